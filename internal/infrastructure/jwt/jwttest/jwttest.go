// Package jwttest builds throwaway RS256 providers for tests.
package jwttest

import (
	"crypto/rand"
	"crypto/rsa"
	"crypto/x509"
	"encoding/pem"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/playback-gate/internal/config"
	jwtinfra "github.com/playback-gate/internal/infrastructure/jwt"
	"github.com/playback-gate/internal/pkg/clock"
	"github.com/stretchr/testify/require"
)

// NewProvider returns a wall-clock provider backed by a throwaway key pair.
func NewProvider(t *testing.T, expiry time.Duration) *jwtinfra.Provider {
	t.Helper()
	return NewProviderWithClock(t, expiry, nil)
}

// NewProviderWithClock writes a fresh RSA key pair under t.TempDir() and
// builds a provider that stamps and checks tokens against c.
func NewProviderWithClock(t *testing.T, expiry time.Duration, c clock.Clock) *jwtinfra.Provider {
	t.Helper()
	privKey, err := rsa.GenerateKey(rand.Reader, 2048)
	require.NoError(t, err)

	dir := t.TempDir()
	privPath := filepath.Join(dir, "private.pem")
	pubPath := filepath.Join(dir, "public.pem")

	privPEM := pem.EncodeToMemory(&pem.Block{Type: "RSA PRIVATE KEY", Bytes: x509.MarshalPKCS1PrivateKey(privKey)})
	require.NoError(t, os.WriteFile(privPath, privPEM, 0600))

	pubBytes, err := x509.MarshalPKIXPublicKey(&privKey.PublicKey)
	require.NoError(t, err)
	pubPEM := pem.EncodeToMemory(&pem.Block{Type: "PUBLIC KEY", Bytes: pubBytes})
	require.NoError(t, os.WriteFile(pubPath, pubPEM, 0600))

	p, err := jwtinfra.NewProvider(&config.Config{
		JWTPrivateKeyPath: privPath,
		JWTPublicKeyPath:  pubPath,
		JWTExpiry:         expiry,
	}, c)
	require.NoError(t, err)
	return p
}
