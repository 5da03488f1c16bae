package config

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoad(t *testing.T) {
	// Pin the keys under test so ambient CI variables cannot interfere.
	t.Setenv("PORT", "8080")
	t.Setenv("JWT_TTL", "24h")
	t.Setenv("RATE_LIMIT_SUBMISSION", "30s")
	t.Setenv("ADMIN_EMAIL", "admin@clickbag.eco")

	cfg, err := Load()
	require.NoError(t, err)

	assert.Equal(t, "8080", cfg.Port)
	assert.Equal(t, 24*time.Hour, cfg.JWTTTL)
	assert.Equal(t, 30*time.Second, cfg.SubmissionRateLimit)
	assert.Equal(t, "admin@clickbag.eco", cfg.AdminEmail)
}

func TestLoadOverrides(t *testing.T) {
	t.Setenv("PORT", "9999")
	t.Setenv("JWT_TTL", "1h")
	t.Setenv("RATE_LIMIT_SUBMISSION", "5s")
	t.Setenv("ADMIN_EMAIL", "ops@clickbag.eco")
	t.Setenv("AUDIT_SCHEDULE", "0 4 * * *")

	cfg, err := Load()
	require.NoError(t, err)

	assert.Equal(t, "9999", cfg.Port)
	assert.Equal(t, time.Hour, cfg.JWTTTL)
	assert.Equal(t, 5*time.Second, cfg.SubmissionRateLimit)
	assert.Equal(t, "ops@clickbag.eco", cfg.AdminEmail)
	assert.Equal(t, "0 4 * * *", cfg.AuditSchedule)
}

func TestLoadRejectsInvalidDurations(t *testing.T) {
	t.Setenv("JWT_TTL", "not-a-duration")

	_, err := Load()
	require.Error(t, err)
	assert.Contains(t, err.Error(), "JWT_TTL")
}
