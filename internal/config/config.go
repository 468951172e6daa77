// Package config loads the server configuration from environment variables.
package config

import (
	"errors"
	"fmt"
	"log/slog"
	"os"
	"strconv"
	"strings"

	"github.com/sakif/blog-platform/internal/auth"
	"github.com/sakif/blog-platform/internal/service"
)

// Store drivers.
const (
	DriverMongo  = "mongo"
	DriverSQLite = "sqlite"
)

// Config holds application level configuration loaded from environment variables.
type Config struct {
	Port int

	StoreDriver   string // mongo | sqlite
	MongoURI      string
	MongoDatabase string
	DBPath        string // sqlite file

	SearchMode service.SearchMode
	AuthorMode service.AuthorMode

	// JWTSecret enables login sessions when set. Empty disables them.
	JWTSecret     string
	SecureCookies bool

	LogLevel   slog.Level
	BcryptCost int

	// problems collects values that were present but unparseable, so that
	// Validate can report them instead of silently using the default.
	problems []error
}

// Load builds Config from environment with sensible defaults.
//
//	PORT              8080
//	STORE_DRIVER      mongo
//	MONGODB_URI       mongodb://localhost:27017
//	MONGODB_DATABASE  blog_platform
//	DB_PATH           data/blog.db
//	SEARCH_MODE       text       (text | regex)
//	POST_AUTHOR_MODE  required   (required | anonymous)
//	JWT_SECRET        ""         (sessions disabled)
//	COOKIE_SECURE     false
//	LOG_LEVEL         info       (debug | info | warn | error)
//	BCRYPT_COST       10
func Load() *Config {
	c := &Config{
		StoreDriver:   strings.ToLower(getEnv("STORE_DRIVER", DriverMongo)),
		MongoURI:      getEnv("MONGODB_URI", "mongodb://localhost:27017"),
		MongoDatabase: getEnv("MONGODB_DATABASE", "blog_platform"),
		DBPath:        getEnv("DB_PATH", "data/blog.db"),
		SearchMode:    service.SearchMode(strings.ToLower(getEnv("SEARCH_MODE", string(service.SearchText)))),
		AuthorMode:    service.AuthorMode(strings.ToLower(getEnv("POST_AUTHOR_MODE", string(service.AuthorRequired)))),
		JWTSecret:     os.Getenv("JWT_SECRET"),
	}

	c.Port = c.getEnvInt("PORT", 8080)
	c.BcryptCost = c.getEnvInt("BCRYPT_COST", 10)

	if v := os.Getenv("COOKIE_SECURE"); v != "" {
		secure, err := strconv.ParseBool(v)
		if err != nil {
			c.problems = append(c.problems, fmt.Errorf("COOKIE_SECURE: %q is not a boolean", v))
		}
		c.SecureCookies = secure
	}

	c.LogLevel = slog.LevelInfo
	if v := os.Getenv("LOG_LEVEL"); v != "" {
		if err := c.LogLevel.UnmarshalText([]byte(v)); err != nil {
			c.problems = append(c.problems, fmt.Errorf("LOG_LEVEL: %q is not a log level", v))
		}
	}

	return c
}

// SessionsEnabled reports whether login issues session cookies.
func (c *Config) SessionsEnabled() bool {
	return c.JWTSecret != ""
}

// Validate rejects configurations the server cannot run with.
// All problems are reported together.
func (c *Config) Validate() error {
	errs := append([]error(nil), c.problems...)

	if c.Port < 1 || c.Port > 65535 {
		errs = append(errs, fmt.Errorf("PORT: %d is out of range", c.Port))
	}

	switch c.StoreDriver {
	case DriverMongo:
		if c.MongoURI == "" {
			errs = append(errs, errors.New("MONGODB_URI: required for the mongo driver"))
		}
	case DriverSQLite:
		if c.DBPath == "" {
			errs = append(errs, errors.New("DB_PATH: required for the sqlite driver"))
		}
	default:
		errs = append(errs, fmt.Errorf("STORE_DRIVER: unknown driver %q (want %s or %s)", c.StoreDriver, DriverMongo, DriverSQLite))
	}

	switch c.SearchMode {
	case service.SearchText, service.SearchRegex:
	default:
		errs = append(errs, fmt.Errorf("SEARCH_MODE: unknown mode %q (want %s or %s)", c.SearchMode, service.SearchText, service.SearchRegex))
	}

	switch c.AuthorMode {
	case service.AuthorRequired, service.AuthorAnonymous:
	default:
		errs = append(errs, fmt.Errorf("POST_AUTHOR_MODE: unknown mode %q (want %s or %s)", c.AuthorMode, service.AuthorRequired, service.AuthorAnonymous))
	}

	if c.SessionsEnabled() && len(c.JWTSecret) < auth.MinSecretLength {
		errs = append(errs, fmt.Errorf("JWT_SECRET: must be at least %d characters", auth.MinSecretLength))
	}

	return errors.Join(errs...)
}

func getEnv(key, def string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return def
}

func (c *Config) getEnvInt(key string, def int) int {
	v := os.Getenv(key)
	if v == "" {
		return def
	}
	parsed, err := strconv.Atoi(v)
	if err != nil {
		c.problems = append(c.problems, fmt.Errorf("%s: %q is not an integer", key, v))
		return def
	}
	return parsed
}
