// Copyright (c) 2025 Daniel Kuo.
// Source-available; no permission granted to use, copy, modify, or distribute. See LICENSE.

package cliparse

import (
	"os"
	"path/filepath"
	"testing"
	"time"
)

func TestParseFlags_EnvVars(t *testing.T) {
	t.Setenv("PORT", "9000")
	t.Setenv("DATABASE_URL", "postgres://test")
	t.Setenv("DATABASE_TYPE", "postgres")
	t.Setenv("ADMIN_KEY_SALT", "test-salt")
	t.Setenv("LINK_SLUG_SALT", "test-link")
	t.Setenv("RESULTS_REFRESH", "2s")

	cfg, err := ParseFlags([]string{"-env", filepath.Join(t.TempDir(), "missing.env")})
	if err != nil {
		t.Fatal(err)
	}

	if cfg.Port != 9000 {
		t.Errorf("expected port 9000, got %d", cfg.Port)
	}
	if cfg.DatabaseType != "postgres" {
		t.Errorf("expected postgres, got %s", cfg.DatabaseType)
	}
	if cfg.ResultsRefresh != 2*time.Second {
		t.Errorf("expected 2s refresh, got %s", cfg.ResultsRefresh)
	}
}

func TestParseFlags_CLIOverridesEnv(t *testing.T) {
	t.Setenv("PORT", "9000")

	cfg, err := ParseFlags([]string{
		"-p", "8080", "-d", "file:test.db", "-admin-salt", "s1", "-link-salt", "s2",
		"-env", filepath.Join(t.TempDir(), "missing.env"),
	})
	if err != nil {
		t.Fatal(err)
	}

	// CLI should override env
	if cfg.Port != 8080 {
		t.Errorf("CLI should override env: expected 8080, got %d", cfg.Port)
	}
	if cfg.DatabaseType != "sqlite" {
		t.Errorf("expected default sqlite, got %s", cfg.DatabaseType)
	}
	if cfg.ResultsRefresh != DefaultResultsRefresh {
		t.Errorf("expected default refresh, got %s", cfg.ResultsRefresh)
	}
}

func TestParseFlags_DotEnv(t *testing.T) {
	envFile := filepath.Join(t.TempDir(), "test.env")
	content := "DATABASE_URL=file:dotenv.db\nADMIN_KEY_SALT=from-file\nLINK_SLUG_SALT=link-from-file\n"
	if err := os.WriteFile(envFile, []byte(content), 0o600); err != nil {
		t.Fatal(err)
	}
	// Already-set variables win over the file
	t.Setenv("ADMIN_KEY_SALT", "from-env")
	t.Setenv("DATABASE_URL", "")
	t.Setenv("LINK_SLUG_SALT", "")
	os.Unsetenv("DATABASE_URL")
	os.Unsetenv("LINK_SLUG_SALT")

	cfg, err := ParseFlags([]string{"-env", envFile})
	if err != nil {
		t.Fatal(err)
	}

	if cfg.DatabaseURL != "file:dotenv.db" {
		t.Errorf("expected DATABASE_URL from .env, got %q", cfg.DatabaseURL)
	}
	if cfg.AdminKeySalt != "from-env" {
		t.Errorf("expected environment to win over .env, got %q", cfg.AdminKeySalt)
	}
}

func TestParseFlags_MissingRequired(t *testing.T) {
	t.Setenv("DATABASE_URL", "")
	t.Setenv("ADMIN_KEY_SALT", "")
	t.Setenv("LINK_SLUG_SALT", "")

	tests := []struct {
		name string
		args []string
	}{
		{"no admin salt", []string{"-d", "file:x.db", "-link-salt", "l"}},
		{"no database url", []string{"-admin-salt", "a", "-link-salt", "l"}},
		{"no link salt", []string{"-d", "file:x.db", "-admin-salt", "a"}},
		{"bad database type", []string{"-d", "file:x.db", "-admin-salt", "a", "-link-salt", "l", "-t", "mysql"}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			args := append(tt.args, "-env", filepath.Join(t.TempDir(), "missing.env"))
			if _, err := ParseFlags(args); err == nil {
				t.Error("expected error")
			}
		})
	}
}

func TestParseFlags_RegistryKeyOnlyNeedsSalt(t *testing.T) {
	t.Setenv("DATABASE_URL", "")
	t.Setenv("LINK_SLUG_SALT", "")

	cfg, err := ParseFlags([]string{"-registry-key", "-admin-salt", "a", "-env", filepath.Join(t.TempDir(), "missing.env")})
	if err != nil {
		t.Fatal(err)
	}
	if !cfg.PrintRegistryKey {
		t.Error("expected PrintRegistryKey to be set")
	}
}

func TestParseFlags_RefreshMustBePositive(t *testing.T) {
	t.Setenv("DATABASE_URL", "file:x.db")
	t.Setenv("ADMIN_KEY_SALT", "a")
	t.Setenv("LINK_SLUG_SALT", "l")

	for _, refresh := range []string{"0s", "-1s"} {
		t.Run(refresh, func(t *testing.T) {
			t.Setenv("RESULTS_REFRESH", refresh)

			cfg, err := ParseFlags([]string{"-env", filepath.Join(t.TempDir(), "missing.env")})
			if err == nil {
				t.Errorf("expected error for refresh %s, got interval %s", refresh, cfg.ResultsRefresh)
			}
		})
	}
}
