package config

import (
	"strings"
	"testing"
	"time"
)

func TestLoadDefaults(t *testing.T) {
	t.Setenv("DATABASE_URL", "postgres://localhost:5432/clinic")

	cfg, err := Load()
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if cfg.Port != "8000" {
		t.Errorf("Port = %q, want 8000", cfg.Port)
	}
	if cfg.Env != "development" || !cfg.IsDev() {
		t.Errorf("Env = %q, want development", cfg.Env)
	}
	if cfg.DBMaxConns != 20 || cfg.DBMinConns != 5 {
		t.Errorf("pool bounds = %d/%d, want 20/5", cfg.DBMaxConns, cfg.DBMinConns)
	}
	if cfg.TokenTTL() != time.Hour {
		t.Errorf("TokenTTL = %v, want 1h", cfg.TokenTTL())
	}
	if cfg.BcryptCost != 12 {
		t.Errorf("BcryptCost = %d, want 12", cfg.BcryptCost)
	}
}

func TestLoadRequiresDatabaseURL(t *testing.T) {
	t.Setenv("DATABASE_URL", "")

	_, err := Load()
	if err == nil || !strings.Contains(err.Error(), "DATABASE_URL") {
		t.Errorf("err = %v, want missing DATABASE_URL", err)
	}
}

func TestLoadOverrides(t *testing.T) {
	t.Setenv("DATABASE_URL", "postgres://localhost:5432/clinic")
	t.Setenv("PORT", "9090")
	t.Setenv("TOKEN_TTL_MINUTES", "15")

	cfg, err := Load()
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if cfg.Port != "9090" {
		t.Errorf("Port = %q, want 9090", cfg.Port)
	}
	if cfg.TokenTTL() != 15*time.Minute {
		t.Errorf("TokenTTL = %v, want 15m", cfg.TokenTTL())
	}
}

func TestValidate(t *testing.T) {
	base := Config{Env: "production", JWTSecret: strings.Repeat("s", 32), BcryptCost: 12}

	if err := base.Validate(); err != nil {
		t.Errorf("valid config: %v", err)
	}

	missing := base
	missing.JWTSecret = ""
	if err := missing.Validate(); err == nil {
		t.Error("expected error for missing JWT_SECRET in production")
	}

	short := base
	short.JWTSecret = "short"
	if err := short.Validate(); err == nil {
		t.Error("expected error for short JWT_SECRET")
	}

	dev := Config{Env: "development", BcryptCost: 12}
	if err := dev.Validate(); err != nil {
		t.Errorf("dev config without secret: %v", err)
	}

	badCost := base
	badCost.BcryptCost = 2
	if err := badCost.Validate(); err == nil {
		t.Error("expected error for out-of-range BCRYPT_COST")
	}
}
