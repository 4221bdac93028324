package jwtinfra

import (
	"crypto/rsa"
	"errors"
	"fmt"
	"os"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/playback-gate/internal/config"
	"github.com/playback-gate/internal/pkg/clock"
	"github.com/playback-gate/internal/pkg/id"
)

const defaultIssuer = "playback-gate"

// ErrInvalidToken wraps every reason an access token is refused.
var ErrInvalidToken = errors.New("invalid access token")

// Claims is the access token payload. SessionID names the server session
// that backs the token and is checked again on every entitlement lookup.
type Claims struct {
	UserID    string `json:"user_id"`
	SessionID string `json:"session_id"`
	jwt.RegisteredClaims
}

// Provider issues and checks the RS256 access tokens handed to viewers
// after verification and refresh.
type Provider struct {
	privateKey *rsa.PrivateKey
	publicKey  *rsa.PublicKey
	expiry     time.Duration
	issuer     string
	clock      clock.Clock
	parser     *jwt.Parser
}

// NewProvider loads the PEM key pair named in cfg. A nil clock uses the wall
// clock; the same clock stamps and validates tokens.
func NewProvider(cfg *config.Config, c clock.Clock) (*Provider, error) {
	if c == nil {
		c = clock.New()
	}
	privKey, err := loadKey(cfg.JWTPrivateKeyPath, jwt.ParseRSAPrivateKeyFromPEM)
	if err != nil {
		return nil, fmt.Errorf("private key: %w", err)
	}
	pubKey, err := loadKey(cfg.JWTPublicKeyPath, jwt.ParseRSAPublicKeyFromPEM)
	if err != nil {
		return nil, fmt.Errorf("public key: %w", err)
	}
	if !privKey.PublicKey.Equal(pubKey) {
		return nil, errors.New("jwt key pair does not match")
	}

	issuer := cfg.JWTIssuer
	if issuer == "" {
		issuer = defaultIssuer
	}
	return &Provider{
		privateKey: privKey,
		publicKey:  pubKey,
		expiry:     cfg.JWTExpiry,
		issuer:     issuer,
		clock:      c,
		parser: jwt.NewParser(
			jwt.WithValidMethods([]string{jwt.SigningMethodRS256.Alg()}),
			jwt.WithIssuer(issuer),
			jwt.WithExpirationRequired(),
			jwt.WithIssuedAt(),
			jwt.WithTimeFunc(c.Now),
		),
	}, nil
}

func loadKey[K any](path string, parse func([]byte) (K, error)) (K, error) {
	var zero K
	raw, err := os.ReadFile(path)
	if err != nil {
		return zero, fmt.Errorf("read %s: %w", path, err)
	}
	key, err := parse(raw)
	if err != nil {
		return zero, fmt.Errorf("parse %s: %w", path, err)
	}
	return key, nil
}

// Sign issues an access token for the server session sessionID of userID.
func (p *Provider) Sign(userID, sessionID string) (string, error) {
	if userID == "" || sessionID == "" {
		return "", errors.New("sign access token: user and session are required")
	}
	now := p.clock.Now()
	claims := Claims{
		UserID:    userID,
		SessionID: sessionID,
		RegisteredClaims: jwt.RegisteredClaims{
			ID:        id.NewAt(now),
			Issuer:    p.issuer,
			Subject:   userID,
			ExpiresAt: jwt.NewNumericDate(now.Add(p.expiry)),
			IssuedAt:  jwt.NewNumericDate(now),
		},
	}
	return jwt.NewWithClaims(jwt.SigningMethodRS256, claims).SignedString(p.privateKey)
}

// Verify returns the claims of a token this provider issued and that is
// still live. Every failure wraps ErrInvalidToken.
func (p *Provider) Verify(tokenStr string) (*Claims, error) {
	var claims Claims
	token, err := p.parser.ParseWithClaims(tokenStr, &claims, func(*jwt.Token) (interface{}, error) {
		return p.publicKey, nil
	})
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrInvalidToken, err)
	}
	if !token.Valid {
		return nil, ErrInvalidToken
	}
	if claims.UserID == "" || claims.UserID != claims.Subject || claims.SessionID == "" {
		return nil, fmt.Errorf("%w: incomplete claims", ErrInvalidToken)
	}
	return &claims, nil
}
