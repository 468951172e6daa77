package config

import (
	"log/slog"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/sakif/blog-platform/internal/service"
)

var allKeys = []string{
	"PORT", "STORE_DRIVER", "MONGODB_URI", "MONGODB_DATABASE", "DB_PATH",
	"SEARCH_MODE", "POST_AUTHOR_MODE", "JWT_SECRET", "COOKIE_SECURE",
	"LOG_LEVEL", "BCRYPT_COST",
}

// clearEnv blanks every key Load reads; t.Setenv restores them afterwards.
func clearEnv(t *testing.T) {
	t.Helper()
	for _, k := range allKeys {
		t.Setenv(k, "")
	}
}

func TestLoad_Defaults(t *testing.T) {
	clearEnv(t)

	c := Load()
	assert.Equal(t, 8080, c.Port)
	assert.Equal(t, DriverMongo, c.StoreDriver)
	assert.Equal(t, "mongodb://localhost:27017", c.MongoURI)
	assert.Equal(t, "blog_platform", c.MongoDatabase)
	assert.Equal(t, "data/blog.db", c.DBPath)
	assert.Equal(t, service.SearchText, c.SearchMode)
	assert.Equal(t, service.AuthorRequired, c.AuthorMode)
	assert.Empty(t, c.JWTSecret)
	assert.False(t, c.SessionsEnabled())
	assert.False(t, c.SecureCookies)
	assert.Equal(t, slog.LevelInfo, c.LogLevel)
	assert.Equal(t, 10, c.BcryptCost)

	assert.NoError(t, c.Validate())
}

func TestLoad_Overrides(t *testing.T) {
	clearEnv(t)
	t.Setenv("PORT", "9090")
	t.Setenv("STORE_DRIVER", "SQLite")
	t.Setenv("DB_PATH", "/tmp/blog.db")
	t.Setenv("SEARCH_MODE", "regex")
	t.Setenv("POST_AUTHOR_MODE", "anonymous")
	t.Setenv("JWT_SECRET", "0123456789abcdef0123")
	t.Setenv("COOKIE_SECURE", "true")
	t.Setenv("LOG_LEVEL", "debug")
	t.Setenv("BCRYPT_COST", "12")

	c := Load()
	require.NoError(t, c.Validate())
	assert.Equal(t, 9090, c.Port)
	assert.Equal(t, DriverSQLite, c.StoreDriver)
	assert.Equal(t, "/tmp/blog.db", c.DBPath)
	assert.Equal(t, service.SearchRegex, c.SearchMode)
	assert.Equal(t, service.AuthorAnonymous, c.AuthorMode)
	assert.True(t, c.SessionsEnabled())
	assert.True(t, c.SecureCookies)
	assert.Equal(t, slog.LevelDebug, c.LogLevel)
	assert.Equal(t, 12, c.BcryptCost)
}

func TestValidate_Rejects(t *testing.T) {
	tests := []struct {
		name    string
		env     map[string]string
		wantMsg string
	}{
		{"unknown driver", map[string]string{"STORE_DRIVER": "postgres"}, "STORE_DRIVER"},
		{"unknown search mode", map[string]string{"SEARCH_MODE": "fuzzy"}, "SEARCH_MODE"},
		{"unknown author mode", map[string]string{"POST_AUTHOR_MODE": "optional"}, "POST_AUTHOR_MODE"},
		{"port not a number", map[string]string{"PORT": "http"}, "PORT"},
		{"port out of range", map[string]string{"PORT": "70000"}, "PORT"},
		{"short secret", map[string]string{"JWT_SECRET": "short"}, "JWT_SECRET"},
		{"bad log level", map[string]string{"LOG_LEVEL": "loud"}, "LOG_LEVEL"},
		{"bad cookie flag", map[string]string{"COOKIE_SECURE": "maybe"}, "COOKIE_SECURE"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			clearEnv(t)
			for k, v := range tt.env {
				t.Setenv(k, v)
			}

			err := Load().Validate()
			require.Error(t, err)
			assert.Contains(t, err.Error(), tt.wantMsg)
		})
	}
}

func TestValidate_ReportsEverything(t *testing.T) {
	clearEnv(t)
	t.Setenv("STORE_DRIVER", "postgres")
	t.Setenv("SEARCH_MODE", "fuzzy")

	err := Load().Validate()
	require.Error(t, err)
	assert.Contains(t, err.Error(), "STORE_DRIVER")
	assert.Contains(t, err.Error(), "SEARCH_MODE")
}
