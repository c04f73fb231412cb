package config

import (
	"fmt"
	"log"
	"os"
	"strconv"
	"strings"

	"github.com/joho/godotenv"
)

type Config struct {
	DBDSN           string `mapstructure:"DB_DSN"`
	HTTPAddr        string `mapstructure:"HTTP_ADDR"`
	Environment     string `mapstructure:"ENV"`
	RedisURL        string `mapstructure:"REDIS_URL"`
	ClaimTTLSeconds int    `mapstructure:"CLAIM_TTL_SECONDS"`
	CORSOrigins     []string
	MigrationsDir   string `mapstructure:"MIGRATIONS_DIR"`
}

func Load() (*Config, error) {
	// Load .env if present; a missing file just means the environment is
	// already populated.
	if err := godotenv.Load(".env"); err != nil {
		log.Println("No .env file found, using environment variables")
	}

	cfg := &Config{
		DBDSN:         os.Getenv("DB_DSN"),
		HTTPAddr:      os.Getenv("HTTP_ADDR"),
		Environment:   os.Getenv("ENV"),
		RedisURL:      os.Getenv("REDIS_URL"),
		MigrationsDir: os.Getenv("MIGRATIONS_DIR"),
	}

	if cfg.HTTPAddr == "" {
		cfg.HTTPAddr = ":8080"
	}
	if cfg.Environment == "" {
		cfg.Environment = "development"
	}
	if cfg.MigrationsDir == "" {
		cfg.MigrationsDir = "migrations"
	}

	cfg.ClaimTTLSeconds = 30
	if raw := os.Getenv("CLAIM_TTL_SECONDS"); raw != "" {
		ttl, err := strconv.Atoi(raw)
		if err != nil || ttl <= 0 {
			return nil, fmt.Errorf("CLAIM_TTL_SECONDS must be a positive integer, got %q", raw)
		}
		cfg.ClaimTTLSeconds = ttl
	}

	if raw := os.Getenv("CORS_ORIGINS"); raw != "" {
		for _, origin := range strings.Split(raw, ",") {
			if origin = strings.TrimSpace(origin); origin != "" {
				cfg.CORSOrigins = append(cfg.CORSOrigins, origin)
			}
		}
	}

	if cfg.DBDSN == "" {
		return nil, fmt.Errorf("DB_DSN is required but not set")
	}

	return cfg, nil
}

func (c *Config) IsProduction() bool {
	return c.Environment == "production"
}
