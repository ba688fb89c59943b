package config

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoad_DefaultsWhenUnset(t *testing.T) {
	cfg, err := Load()
	require.NoError(t, err)
	assert.Equal(t, 4, cfg.MaxConcurrentJobs)
	assert.Equal(t, time.Hour, cfg.ProgressTTL)
	assert.Equal(t, "base", cfg.WhisperModelTag)
}

func TestLoad_ReadsOverridesFromEnvironment(t *testing.T) {
	t.Setenv("MAX_CONCURRENT_JOBS", "8")
	t.Setenv("PROGRESS_TTL", "90s")
	t.Setenv("CORS_ORIGINS", "https://a.example, https://b.example")

	cfg, err := Load()
	require.NoError(t, err)
	assert.Equal(t, 8, cfg.MaxConcurrentJobs)
	assert.Equal(t, 90*time.Second, cfg.ProgressTTL)
	assert.Equal(t, []string{"https://a.example", "https://b.example"}, cfg.CORSOrigins)
}

func TestLoad_InvalidIntReturnsError(t *testing.T) {
	t.Setenv("MAX_CONCURRENT_JOBS", "not-a-number")
	_, err := Load()
	assert.Error(t, err)
}

func TestLoad_PlainSecondsDuration(t *testing.T) {
	t.Setenv("FETCH_TIMEOUT", "45")
	cfg, err := Load()
	require.NoError(t, err)
	assert.Equal(t, 45*time.Second, cfg.FetchTimeout)
}
