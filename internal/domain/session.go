package domain

import (
	"context"
	"time"
)

// Session is the token pair handed to a viewer after a successful verification.
type Session struct {
	AccessToken  string `json:"access_token"`
	RefreshToken string `json:"refresh_token"`
	UserID       string `json:"user_id"`
}

// Valid reports whether the session can be used at all. Both the access token
// and the user id are required.
func (s *Session) Valid() bool {
	return s != nil && s.AccessToken != "" && s.UserID != ""
}

// SessionStore is the viewer-side persistence capability for a Session.
// Load returns (nil, nil) when nothing is stored.
type SessionStore interface {
	Store(ctx context.Context, s Session) error
	Load(ctx context.Context) (*Session, error)
	Clear(ctx context.Context) error
}

// ServerSession is the server-side record backing a refresh token.
type ServerSession struct {
	SessionID        string    `json:"id" dynamodbav:"session_id"`
	UserID           string    `json:"user_id" dynamodbav:"user_id"`
	Enable           bool      `json:"enable" dynamodbav:"enable"`
	RefreshToken     string    `json:"-" dynamodbav:"refresh_token"`
	RefreshExpiresAt int64     `json:"-" dynamodbav:"refresh_expires_at"`
	CreatedAt        time.Time `json:"created" dynamodbav:"created_at"`
	UpdatedAt        time.Time `json:"updated" dynamodbav:"updated_at"`
}
