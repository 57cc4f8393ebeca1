// Copyright (c) 2025 Daniel Kuo.
// Source-available; no permission granted to use, copy, modify, or distribute. See LICENSE.

package cliparse

import (
	"errors"
	"flag"
	"fmt"
	"os"
	"strconv"
	"time"

	"github.com/joho/godotenv"
)

const (
	DefaultPort           = 3318
	DefaultResultsRefresh = 5 * time.Second
)

type Config struct {
	Port           int
	DatabaseURL    string
	DatabaseType   string
	AdminKeySalt   string
	LinkSlugSalt   string
	ResultsRefresh time.Duration

	// PrintRegistryKey asks main to print the voter registry key and exit.
	PrintRegistryKey bool
}

// ParseFlags reads flags, then .env, then the environment.
// Flags win over environment variables.
func ParseFlags(args []string) (Config, error) {
	var cfg Config
	var envFile string

	fs := flag.NewFlagSet("quickly-elect", flag.ContinueOnError)

	// Network config (can be CLI args or env)
	fs.IntVar(&cfg.Port, "p", 0, "Server port")
	fs.StringVar(&cfg.DatabaseURL, "d", "", "Database URL")
	fs.StringVar(&cfg.DatabaseType, "t", "", "Database type (sqlite or postgres)")
	fs.DurationVar(&cfg.ResultsRefresh, "refresh", 0, "Live results refresh interval")
	fs.StringVar(&envFile, "env", ".env", "Path to a .env file")

	// Secrets (prefer env variables, but allow CLI for dev)
	fs.StringVar(&cfg.AdminKeySalt, "admin-salt", "", "Admin key salt (prefer env)")
	fs.StringVar(&cfg.LinkSlugSalt, "link-salt", "", "Public link salt (prefer env)")

	fs.BoolVar(&cfg.PrintRegistryKey, "registry-key", false, "Print the voter registry admin key and exit")

	if err := fs.Parse(args); err != nil {
		return Config{}, err
	}

	// .env never overrides variables already set in the environment
	if err := godotenv.Load(envFile); err != nil && !errors.Is(err, os.ErrNotExist) {
		return Config{}, fmt.Errorf("failed to load %s: %w", envFile, err)
	}

	// Fall back to environment variables
	if cfg.Port == 0 {
		if portStr := os.Getenv("PORT"); portStr != "" {
			port, err := strconv.Atoi(portStr)
			if err != nil {
				return Config{}, errors.New("invalid PORT env variable")
			}
			cfg.Port = port
		} else {
			cfg.Port = DefaultPort
		}
	}

	if cfg.ResultsRefresh == 0 {
		if refreshStr := os.Getenv("RESULTS_REFRESH"); refreshStr != "" {
			refresh, err := time.ParseDuration(refreshStr)
			if err != nil {
				return Config{}, errors.New("invalid RESULTS_REFRESH env variable")
			}
			cfg.ResultsRefresh = refresh
		} else {
			cfg.ResultsRefresh = DefaultResultsRefresh
		}
	}
	if cfg.ResultsRefresh <= 0 {
		return Config{}, errors.New("results refresh interval must be positive")
	}

	// Secrets - MUST be provided
	if cfg.AdminKeySalt == "" {
		cfg.AdminKeySalt = os.Getenv("ADMIN_KEY_SALT")
	}
	if cfg.AdminKeySalt == "" {
		return Config{}, errors.New("ADMIN_KEY_SALT required")
	}

	// Printing the registry key needs nothing else
	if cfg.PrintRegistryKey {
		return cfg, nil
	}

	if cfg.DatabaseURL == "" {
		cfg.DatabaseURL = os.Getenv("DATABASE_URL")
	}
	if cfg.DatabaseURL == "" {
		return Config{}, errors.New("database URL required (use -d or DATABASE_URL env)")
	}

	if cfg.DatabaseType == "" {
		cfg.DatabaseType = os.Getenv("DATABASE_TYPE")
		if cfg.DatabaseType == "" {
			cfg.DatabaseType = "sqlite"
		}
	}
	if cfg.DatabaseType != "sqlite" && cfg.DatabaseType != "postgres" {
		return Config{}, fmt.Errorf("unsupported database type %q", cfg.DatabaseType)
	}

	if cfg.LinkSlugSalt == "" {
		cfg.LinkSlugSalt = os.Getenv("LINK_SLUG_SALT")
	}
	if cfg.LinkSlugSalt == "" {
		return Config{}, errors.New("LINK_SLUG_SALT required")
	}

	return cfg, nil
}
