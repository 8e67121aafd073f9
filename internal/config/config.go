// Package config содержит логику чтения конфигурации сервиса заявок на забор.
package config

import (
	"errors"
	"flag"
	"fmt"
	"io/fs"
	"time"

	"github.com/caarlos0/env/v11"
	"github.com/joho/godotenv"
)

const (
	defaultRunAddress = "localhost:8080"
	defaultCacheTTL   = 30 * time.Second
)

// Config содержит параметры конфигурации сервиса. Читается один раз при старте
// и передаётся компонентам явно.
type Config struct {
	RunAddress       string        `env:"RUN_ADDRESS"`
	DatabaseURI      string        `env:"DATABASE_URI"`
	JWTSecret        string        `env:"JWT_SECRET"`
	RedisURL         string        `env:"REDIS_URL"`
	TrackingCacheTTL time.Duration `env:"TRACKING_CACHE_TTL"`
	AllowedOrigins   []string      `env:"ALLOWED_ORIGINS" envSeparator:","`
	AdminEmail       string        `env:"ADMIN_EMAIL"`
	AdminPassword    string        `env:"ADMIN_PASSWORD"`
	AdminName        string        `env:"ADMIN_NAME" envDefault:"Administrador"`
}

// Parse считывает конфигурацию из .env, флагов командной строки и переменных окружения.
// Переменные окружения имеют приоритет над флагами.
func Parse() (*Config, error) {
	if err := godotenv.Load(); err != nil && !errors.Is(err, fs.ErrNotExist) {
		return nil, fmt.Errorf("load .env: %w", err)
	}

	cfg := &Config{}

	if err := env.Parse(cfg); err != nil {
		return nil, fmt.Errorf("parse env: %w", err)
	}

	envRunAddress := cfg.RunAddress
	envDatabaseURI := cfg.DatabaseURI
	envJWTSecret := cfg.JWTSecret
	envRedisURL := cfg.RedisURL

	flag.StringVar(&cfg.RunAddress, "a", defaultRunAddress, "address and port for HTTP server")
	flag.StringVar(&cfg.DatabaseURI, "d", "", "database URI")
	flag.StringVar(&cfg.JWTSecret, "s", "", "secret used to sign identity tokens")
	flag.StringVar(&cfg.RedisURL, "r", "", "redis URL for the public tracking cache")

	flag.Parse()

	if envRunAddress != "" {
		cfg.RunAddress = envRunAddress
	}
	if envDatabaseURI != "" {
		cfg.DatabaseURI = envDatabaseURI
	}
	if envJWTSecret != "" {
		cfg.JWTSecret = envJWTSecret
	}
	if envRedisURL != "" {
		cfg.RedisURL = envRedisURL
	}

	if cfg.RunAddress == "" {
		cfg.RunAddress = defaultRunAddress
	}
	if cfg.TrackingCacheTTL <= 0 {
		cfg.TrackingCacheTTL = defaultCacheTTL
	}

	return cfg, nil
}

// BootstrapAdmin сообщает, заданы ли учётные данные администратора по умолчанию.
func (c *Config) BootstrapAdmin() bool {
	return c.AdminEmail != "" && c.AdminPassword != ""
}
