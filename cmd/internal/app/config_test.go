package app

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"
)

func TestLoadConfig_Defaults(t *testing.T) {
	for _, k := range []string{
		"ASTRO_HTTP_ADDR", "ASTRO_DATABASE_URL", "DATABASE_URL",
		"ASTRO_CORS_ALLOWED_ORIGINS", "ASTRO_DB_AUTO_MIGRATE", "ASTRO_HTTP_READ_TIMEOUT",
	} {
		t.Setenv(k, "")
	}

	cfg := LoadConfig()
	if cfg.HTTPAddr != "0.0.0.0:8080" {
		t.Fatalf("HTTPAddr=%q", cfg.HTTPAddr)
	}
	if cfg.DatabaseURL != "" {
		t.Fatalf("DatabaseURL=%q want empty", cfg.DatabaseURL)
	}
	if !cfg.DBAutoMigrate {
		t.Fatalf("DBAutoMigrate should default to true")
	}
	if len(cfg.CORSAllowedOrigins) != 1 || cfg.CORSAllowedOrigins[0] != "*" {
		t.Fatalf("CORSAllowedOrigins=%v", cfg.CORSAllowedOrigins)
	}
	if cfg.CORSMaxAgeSeconds != 86400 {
		t.Fatalf("CORSMaxAgeSeconds=%d", cfg.CORSMaxAgeSeconds)
	}
	if cfg.ReadTimeout != 15*time.Second {
		t.Fatalf("ReadTimeout=%v", cfg.ReadTimeout)
	}
}

func TestLoadConfig_Overrides(t *testing.T) {
	t.Setenv("ASTRO_DATABASE_URL", "")
	t.Setenv("DATABASE_URL", "postgres://fallback/db")
	t.Setenv("ASTRO_CORS_ALLOWED_ORIGINS", " https://a.example , ,http://127.0.0.1:* ")
	t.Setenv("ASTRO_HTTP_READ_TIMEOUT", "bogus")
	t.Setenv("ASTRO_DB_MAX_CONNS", "-3")

	cfg := LoadConfig()
	if cfg.DatabaseURL != "postgres://fallback/db" {
		t.Fatalf("DatabaseURL=%q", cfg.DatabaseURL)
	}
	if strings.Join(cfg.CORSAllowedOrigins, "|") != "https://a.example|http://127.0.0.1:*" {
		t.Fatalf("CORSAllowedOrigins=%v", cfg.CORSAllowedOrigins)
	}
	if cfg.ReadTimeout != 15*time.Second {
		t.Fatalf("invalid duration should fall back, got %v", cfg.ReadTimeout)
	}
	if cfg.DBMaxConns != 10 {
		t.Fatalf("negative max conns should fall back, got %d", cfg.DBMaxConns)
	}
}

func TestLoadDotEnv(t *testing.T) {
	dir := t.TempDir()
	p := filepath.Join(dir, ".env.local")
	if err := os.WriteFile(p, []byte("ASTRO_TEST_DOTENV_A=from-file\nASTRO_TEST_DOTENV_B=from-file\n"), 0o600); err != nil {
		t.Fatalf("write: %v", err)
	}

	t.Setenv("ASTRO_TEST_DOTENV_A", "from-env")
	t.Setenv("ASTRO_TEST_DOTENV_B", "")
	os.Unsetenv("ASTRO_TEST_DOTENV_B")

	if err := LoadDotEnv(filepath.Join(dir, "missing.env"), p); err != nil {
		t.Fatalf("LoadDotEnv: %v", err)
	}
	if got := os.Getenv("ASTRO_TEST_DOTENV_A"); got != "from-env" {
		t.Fatalf("existing env must win, got %q", got)
	}
	if got := os.Getenv("ASTRO_TEST_DOTENV_B"); got != "from-file" {
		t.Fatalf("file value not loaded, got %q", got)
	}
}

func TestValidateSecurityConfig(t *testing.T) {
	cases := []struct {
		name    string
		require bool
		key     string
		wantErr string
	}{
		{name: "not required", require: false, key: ""},
		{name: "missing", require: true, key: "", wantErr: "missing"},
		{name: "too short", require: true, key: "short", wantErr: "too short"},
		{name: "ok", require: true, key: strings.Repeat("k", 32)},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			t.Setenv("ASTRO_TOKEN_HMAC_KEY", tc.key)

			err := ValidateSecurityConfig(Config{RequireTokenHMAC: tc.require})
			if tc.wantErr == "" {
				if err != nil {
					t.Fatalf("unexpected error: %v", err)
				}
				return
			}
			if err == nil || !strings.Contains(err.Error(), tc.wantErr) {
				t.Fatalf("err=%v want substring %q", err, tc.wantErr)
			}
		})
	}
}
