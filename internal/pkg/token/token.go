// Package token produces the random secrets handed to viewers: refresh tokens
// and numeric one-time passcodes.
package token

import (
	"crypto/rand"
	"encoding/hex"
	"fmt"
	"math/big"
)

const refreshTokenBytes = 32

var ten = big.NewInt(10)

// NewRefreshToken returns 32 random bytes as 64 lowercase hex characters.
func NewRefreshToken() (string, error) {
	b := make([]byte, refreshTokenBytes)
	if _, err := rand.Read(b); err != nil {
		return "", fmt.Errorf("generate refresh token: %w", err)
	}
	return hex.EncodeToString(b), nil
}

// Digits returns n uniformly random decimal digits. Leading zeros are kept.
func Digits(n int) (string, error) {
	out := make([]byte, n)
	for i := range out {
		d, err := rand.Int(rand.Reader, ten)
		if err != nil {
			return "", fmt.Errorf("generate code: %w", err)
		}
		out[i] = byte('0' + d.Int64())
	}
	return string(out), nil
}
