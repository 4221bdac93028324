package config

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestLoad_Defaults(t *testing.T) {
	cfg := Load()
	assert.Equal(t, "3000", cfg.AppPort)
	assert.Equal(t, 60*time.Second, cfg.OTP.Cooldown)
	assert.Equal(t, 5*time.Second, cfg.Playback.MinimumWatch)
	assert.Equal(t, 7*24*time.Hour, cfg.JWTExpiry)
	assert.Equal(t, "verification_codes", cfg.DynamoTables.VerificationCodes)
}

func TestLoad_Overrides(t *testing.T) {
	t.Setenv("OTP_RESEND_COOLDOWN", "90s")
	t.Setenv("OTP_MAX_ATTEMPTS", "3")
	t.Setenv("ALLOWED_ORIGINS", "https://a.example,https://b.example")
	t.Setenv("AD_MINIMUM_WATCH", "not-a-duration")

	cfg := Load()
	assert.Equal(t, 90*time.Second, cfg.OTP.Cooldown)
	assert.Equal(t, 3, cfg.OTP.MaxAttempts)
	assert.Equal(t, []string{"https://a.example", "https://b.example"}, cfg.AllowedOrigins)
	assert.Equal(t, 5*time.Second, cfg.Playback.MinimumWatch)
}
