// Package config loads server configuration from the environment and client
// settings from a YAML file.
package config

import (
	"errors"
	"fmt"
	"io/fs"
	"log"

	"github.com/caarlos0/env/v11"
	"github.com/joho/godotenv"

	"github.com/balkashynov/mentalbank/internal/db"
)

// Profiles
const (
	ProfileDevelopment = "development"
	ProfileProduction  = "production"
)

// Server configures `mbb serve`.
type Server struct {
	Addr         string `env:"MBB_ADDR"           envDefault:":8080"`
	DatabasePath string `env:"MBB_DATABASE_PATH"`
	Profile      string `env:"MBB_PROFILE"        envDefault:"production"`
	ListLimitMax int    `env:"MBB_LIST_LIMIT_MAX" envDefault:"100"`
	OTelEndpoint string `env:"MBB_OTEL_ENDPOINT"`
	OTelInsecure bool   `env:"MBB_OTEL_INSECURE"`
}

// Development reports whether error details may be returned to callers.
func (s Server) Development() bool {
	return s.Profile == ProfileDevelopment
}

// ParseEnv loads configuration from environment variables.
func ParseEnv(target any) error {
	if err := env.Parse(target); err != nil {
		return fmt.Errorf("parse env: %w", err)
	}
	return nil
}

// LoadDotEnv loads variables from .env files into the environment. Missing
// files are skipped; variables already set win.
func LoadDotEnv(paths ...string) error {
	if len(paths) == 0 {
		paths = []string{".env"}
	}
	for _, path := range paths {
		if err := godotenv.Load(path); err != nil {
			if errors.Is(err, fs.ErrNotExist) {
				continue
			}
			return fmt.Errorf("load %s: %w", path, err)
		}
		log.Printf("[config] loaded environment from %s", path)
	}
	return nil
}

// LoadServer reads the server configuration from the environment.
func LoadServer() (Server, error) {
	var cfg Server
	if err := ParseEnv(&cfg); err != nil {
		return cfg, err
	}

	if cfg.DatabasePath == "" {
		path, err := db.DefaultPath()
		if err != nil {
			return cfg, fmt.Errorf("resolve database path: %w", err)
		}
		cfg.DatabasePath = path
	}

	switch cfg.Profile {
	case ProfileDevelopment, ProfileProduction:
	default:
		return cfg, fmt.Errorf("MBB_PROFILE must be %q or %q, got %q", ProfileDevelopment, ProfileProduction, cfg.Profile)
	}
	if cfg.ListLimitMax <= 0 {
		return cfg, fmt.Errorf("MBB_LIST_LIMIT_MAX must be positive, got %d", cfg.ListLimitMax)
	}
	return cfg, nil
}
