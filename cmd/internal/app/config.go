package app

import "time"

// Config contains all runtime configuration loaded from environment variables.
type Config struct {
	HTTPAddr  string
	LogLevel  string
	LogFormat string // "json" (default) or "pretty"

	ReadHeaderTimeout time.Duration
	ReadTimeout       time.Duration
	WriteTimeout      time.Duration
	IdleTimeout       time.Duration
	ShutdownTimeout   time.Duration
	MaxHeaderBytes    int

	DatabaseURL   string
	DBMaxConns    int32
	DBMinConns    int32
	DBAutoMigrate bool

	// If true:
	// - /readyz returns 503 unless DB is configured and reachable.
	ReadinessRequireDB bool

	// CORSAllowedOrigins lists exact origins (or "scheme://host:*"); "*" allows any.
	CORSAllowedOrigins []string
	CORSMaxAgeSeconds  int

	// Security policy:
	// If true, ASTRO_TOKEN_HMAC_KEY MUST be set (>= 32 bytes) and session tokens are stored as HMAC digests.
	RequireTokenHMAC bool
}

// LoadConfig loads Config from environment variables with defaults.
func LoadConfig() Config {
	return Config{
		HTTPAddr:  EnvString("ASTRO_HTTP_ADDR", "0.0.0.0:8080"),
		LogLevel:  EnvString("ASTRO_LOG_LEVEL", "info"),
		LogFormat: EnvString("ASTRO_LOG_FORMAT", "json"),

		ReadHeaderTimeout: EnvDuration("ASTRO_HTTP_READ_HEADER_TIMEOUT", 5*time.Second),
		ReadTimeout:       EnvDuration("ASTRO_HTTP_READ_TIMEOUT", 15*time.Second),
		WriteTimeout:      EnvDuration("ASTRO_HTTP_WRITE_TIMEOUT", 15*time.Second),
		IdleTimeout:       EnvDuration("ASTRO_HTTP_IDLE_TIMEOUT", 60*time.Second),
		ShutdownTimeout:   EnvDuration("ASTRO_HTTP_SHUTDOWN_TIMEOUT", 10*time.Second),

		MaxHeaderBytes: EnvInt("ASTRO_HTTP_MAX_HEADER_BYTES", 1<<20),

		DatabaseURL:   EnvString("ASTRO_DATABASE_URL", EnvString("DATABASE_URL", "")),
		DBMaxConns:    EnvInt32("ASTRO_DB_MAX_CONNS", 10),
		DBMinConns:    EnvInt32("ASTRO_DB_MIN_CONNS", 0),
		DBAutoMigrate: EnvBool("ASTRO_DB_AUTO_MIGRATE", true),

		ReadinessRequireDB: EnvBool("ASTRO_READINESS_REQUIRE_DB", false),

		CORSAllowedOrigins: EnvStringList("ASTRO_CORS_ALLOWED_ORIGINS", []string{"*"}),
		CORSMaxAgeSeconds:  EnvInt("ASTRO_CORS_MAX_AGE_SECONDS", 86400),

		RequireTokenHMAC: EnvBool("ASTRO_REQUIRE_TOKEN_HMAC", false),
	}
}
