package jwtinfra_test

import (
	"crypto/rand"
	"crypto/rsa"
	"testing"
	"time"

	"github.com/golang-jwt/jwt/v5"
	jwtinfra "github.com/playback-gate/internal/infrastructure/jwt"
	"github.com/playback-gate/internal/infrastructure/jwt/jwttest"
	"github.com/playback-gate/internal/pkg/clock"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestProvider_SignVerifyRoundTrip(t *testing.T) {
	p := jwttest.NewProvider(t, time.Hour)

	signed, err := p.Sign("u1", "sess1")
	require.NoError(t, err)

	claims, err := p.Verify(signed)
	require.NoError(t, err)
	assert.Equal(t, "u1", claims.UserID)
	assert.Equal(t, "sess1", claims.SessionID)
	assert.Equal(t, "u1", claims.Subject)
	assert.Equal(t, "playback-gate", claims.Issuer)
	assert.Len(t, claims.ID, 26)
}

func TestProvider_RejectsForeignKey(t *testing.T) {
	signer := jwttest.NewProvider(t, time.Hour)
	verifier := jwttest.NewProvider(t, time.Hour)

	signed, err := signer.Sign("u1", "sess1")
	require.NoError(t, err)

	_, err = verifier.Verify(signed)
	assert.ErrorIs(t, err, jwtinfra.ErrInvalidToken)
}

func TestProvider_RejectsExpired(t *testing.T) {
	p := jwttest.NewProvider(t, -time.Minute)

	signed, err := p.Sign("u1", "sess1")
	require.NoError(t, err)

	_, err = p.Verify(signed)
	assert.Error(t, err)
}

func TestProvider_ExpiryFollowsClock(t *testing.T) {
	fc := clock.NewFake(time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC))
	p := jwttest.NewProviderWithClock(t, time.Hour, fc)

	signed, err := p.Sign("u1", "sess1")
	require.NoError(t, err)

	fc.Advance(59 * time.Minute)
	_, err = p.Verify(signed)
	require.NoError(t, err)

	fc.Advance(2 * time.Minute)
	_, err = p.Verify(signed)
	assert.ErrorIs(t, err, jwtinfra.ErrInvalidToken)
}

func TestProvider_SignRequiresSession(t *testing.T) {
	p := jwttest.NewProvider(t, time.Hour)
	_, err := p.Sign("u1", "")
	assert.Error(t, err)
}

func TestProvider_RejectsForeignOrIncompleteClaims(t *testing.T) {
	p := jwttest.NewProvider(t, time.Hour)
	now := time.Now()

	tests := []struct {
		name   string
		method jwt.SigningMethod
		claims jwtinfra.Claims
	}{
		{"unsigned", jwt.SigningMethodNone, jwtinfra.Claims{UserID: "u1", SessionID: "s1", RegisteredClaims: registered("u1", "playback-gate", now)}},
		{"other issuer", jwt.SigningMethodRS256, jwtinfra.Claims{UserID: "u1", SessionID: "s1", RegisteredClaims: registered("u1", "someone-else", now)}},
		{"no session", jwt.SigningMethodRS256, jwtinfra.Claims{UserID: "u1", RegisteredClaims: registered("u1", "playback-gate", now)}},
		{"subject mismatch", jwt.SigningMethodRS256, jwtinfra.Claims{UserID: "u1", SessionID: "s1", RegisteredClaims: registered("u2", "playback-gate", now)}},
	}
	key, err := rsa.GenerateKey(rand.Reader, 2048)
	require.NoError(t, err)
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var signingKey interface{} = key
			if tt.method == jwt.SigningMethodNone {
				signingKey = jwt.UnsafeAllowNoneSignatureType
			}
			signed, err := jwt.NewWithClaims(tt.method, tt.claims).SignedString(signingKey)
			require.NoError(t, err)

			_, err = p.Verify(signed)
			assert.ErrorIs(t, err, jwtinfra.ErrInvalidToken)
		})
	}
}

func registered(subject, issuer string, now time.Time) jwt.RegisteredClaims {
	return jwt.RegisteredClaims{
		Subject:   subject,
		Issuer:    issuer,
		IssuedAt:  jwt.NewNumericDate(now),
		ExpiresAt: jwt.NewNumericDate(now.Add(time.Hour)),
	}
}
