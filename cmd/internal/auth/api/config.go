package authapi

import (
	"os"
	"strconv"
	"strings"
)

// Config controls auth API behavior and security defaults.
type Config struct {
	TrustProxy   bool
	MaxBodyBytes int64

	// RatePerSec and RateBurst bound register/login attempts per client IP.
	// RatePerSec <= 0 disables the limiter.
	RatePerSec float64
	RateBurst  int
}

const defaultMaxBodyBytes = 64 << 10 // 64 KiB

// DefaultConfig returns the defaults used when no env is set.
func DefaultConfig() Config {
	return Config{
		TrustProxy:   false,
		MaxBodyBytes: defaultMaxBodyBytes,
		RatePerSec:   5,
		RateBurst:    20,
	}
}

// LoadConfigFromEnv loads auth config from environment variables with safe defaults.
func LoadConfigFromEnv() Config {
	def := DefaultConfig()
	cfg := Config{
		TrustProxy:   envBool("ASTRO_AUTH_TRUST_PROXY", def.TrustProxy),
		MaxBodyBytes: envInt64("ASTRO_AUTH_MAX_BODY_BYTES", def.MaxBodyBytes),
		RatePerSec:   envFloat("ASTRO_AUTH_RATE_PER_SEC", def.RatePerSec),
		RateBurst:    envInt("ASTRO_AUTH_RATE_BURST", def.RateBurst),
	}

	if cfg.MaxBodyBytes <= 0 {
		cfg.MaxBodyBytes = defaultMaxBodyBytes
	}
	if cfg.RateBurst <= 0 {
		cfg.RateBurst = def.RateBurst
	}

	return cfg
}

func envBool(key string, def bool) bool {
	v := strings.TrimSpace(os.Getenv(key))
	if v == "" {
		return def
	}
	b, err := strconv.ParseBool(v)
	if err != nil {
		return def
	}
	return b
}

func envInt(key string, def int) int {
	v := strings.TrimSpace(os.Getenv(key))
	if v == "" {
		return def
	}
	n, err := strconv.Atoi(v)
	if err != nil || n <= 0 {
		return def
	}
	return n
}

func envInt64(key string, def int64) int64 {
	v := strings.TrimSpace(os.Getenv(key))
	if v == "" {
		return def
	}
	n, err := strconv.ParseInt(v, 10, 64)
	if err != nil || n <= 0 {
		return def
	}
	return n
}

// envFloat accepts 0 to disable a rate.
func envFloat(key string, def float64) float64 {
	v := strings.TrimSpace(os.Getenv(key))
	if v == "" {
		return def
	}
	f, err := strconv.ParseFloat(v, 64)
	if err != nil || f < 0 {
		return def
	}
	return f
}
