// Package config loads process configuration from the environment, the
// way the teacher's binaries expect an operator to configure a deployed
// instance rather than threading flags through every constructor.
package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"
)

// Config holds every tunable named in the external CLI/environment
// surface. Fields outside the core's scope (HOST, PORT, DEBUG,
// CORS_ORIGINS, RATE_LIMIT_*) are parsed here anyway so a boundary
// process has one place to read them from, even though the core
// components never consult them directly.
type Config struct {
	Host string
	Port int
	Debug bool
	CORSOrigins []string

	WhisperModelTag string
	DemucsModel     string
	GeniusAPIToken  string

	RateLimitRequests int
	RateLimitWindow   time.Duration

	MaxConcurrentJobs int

	FetchTimeout     time.Duration
	SeparationTimeout time.Duration
	MuxTimeout       time.Duration
	ShutdownTimeout  time.Duration

	ProgressTTL time.Duration

	// AlignmentThreshold overrides alignment.MinMatchThreshold; zero means
	// use the package default.
	AlignmentThreshold float64

	DownloadsDir string
	ProcessedDir string
}

// Load reads Config from the environment, applying the same defaults the
// teacher's Config constructors apply for their own tunables.
func Load() (Config, error) {
	cfg := Config{
		Host:              envString("HOST", "0.0.0.0"),
		Port:              0,
		Debug:             envBool("DEBUG", false),
		CORSOrigins:       envList("CORS_ORIGINS"),
		WhisperModelTag:   envString("WHISPER_MODEL_TAG", "base"),
		DemucsModel:       envString("DEMUCS_MODEL", "htdemucs"),
		GeniusAPIToken:    os.Getenv("GENIUS_API_TOKEN"),
		RateLimitRequests: 0,
		RateLimitWindow:   0,
		MaxConcurrentJobs: 4,
		FetchTimeout:      60 * time.Second,
		SeparationTimeout: 2400 * time.Second,
		MuxTimeout:        600 * time.Second,
		ShutdownTimeout:   30 * time.Second,
		ProgressTTL:       time.Hour,
		DownloadsDir:      envString("DOWNLOADS_DIR", "./data/downloads"),
		ProcessedDir:      envString("PROCESSED_DIR", "./data/processed"),
	}

	var err error
	if cfg.Port, err = envInt("PORT", 8080); err != nil {
		return Config{}, err
	}
	if cfg.RateLimitRequests, err = envInt("RATE_LIMIT_REQUESTS", 60); err != nil {
		return Config{}, err
	}
	if cfg.RateLimitWindow, err = envDuration("RATE_LIMIT_WINDOW", time.Minute); err != nil {
		return Config{}, err
	}
	if cfg.MaxConcurrentJobs, err = envInt("MAX_CONCURRENT_JOBS", cfg.MaxConcurrentJobs); err != nil {
		return Config{}, err
	}
	if cfg.FetchTimeout, err = envDuration("FETCH_TIMEOUT", cfg.FetchTimeout); err != nil {
		return Config{}, err
	}
	if cfg.SeparationTimeout, err = envDuration("SEPARATION_TIMEOUT", cfg.SeparationTimeout); err != nil {
		return Config{}, err
	}
	if cfg.MuxTimeout, err = envDuration("MUX_TIMEOUT", cfg.MuxTimeout); err != nil {
		return Config{}, err
	}
	if cfg.ShutdownTimeout, err = envDuration("SHUTDOWN_TIMEOUT", cfg.ShutdownTimeout); err != nil {
		return Config{}, err
	}
	if cfg.ProgressTTL, err = envDuration("PROGRESS_TTL", cfg.ProgressTTL); err != nil {
		return Config{}, err
	}
	if raw := os.Getenv("ALIGNMENT_THRESHOLD"); raw != "" {
		threshold, err := strconv.ParseFloat(raw, 64)
		if err != nil {
			return Config{}, fmt.Errorf("invalid ALIGNMENT_THRESHOLD: %w", err)
		}
		cfg.AlignmentThreshold = threshold
	}

	return cfg, nil
}

func envString(key, def string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return def
}

func envBool(key string, def bool) bool {
	v := os.Getenv(key)
	if v == "" {
		return def
	}
	parsed, err := strconv.ParseBool(v)
	if err != nil {
		return def
	}
	return parsed
}

func envInt(key string, def int) (int, error) {
	v := os.Getenv(key)
	if v == "" {
		return def, nil
	}
	parsed, err := strconv.Atoi(v)
	if err != nil {
		return 0, fmt.Errorf("invalid %s: %w", key, err)
	}
	return parsed, nil
}

func envDuration(key string, def time.Duration) (time.Duration, error) {
	v := os.Getenv(key)
	if v == "" {
		return def, nil
	}
	seconds, err := strconv.Atoi(v)
	if err == nil {
		return time.Duration(seconds) * time.Second, nil
	}
	parsed, err := time.ParseDuration(v)
	if err != nil {
		return 0, fmt.Errorf("invalid %s: %w", key, err)
	}
	return parsed, nil
}

func envList(key string) []string {
	v := os.Getenv(key)
	if v == "" {
		return nil
	}
	parts := strings.Split(v, ",")
	out := make([]string, 0, len(parts))
	for _, p := range parts {
		if trimmed := strings.TrimSpace(p); trimmed != "" {
			out = append(out, trimmed)
		}
	}
	return out
}
