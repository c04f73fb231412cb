package config

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoadDefaults(t *testing.T) {
	t.Setenv("DB_DSN", "postgres://localhost/slotwise_test")
	t.Setenv("HTTP_ADDR", "")
	t.Setenv("ENV", "")
	t.Setenv("CLAIM_TTL_SECONDS", "")
	t.Setenv("CORS_ORIGINS", "")
	t.Setenv("MIGRATIONS_DIR", "")

	cfg, err := Load()
	require.NoError(t, err)

	assert.Equal(t, ":8080", cfg.HTTPAddr)
	assert.Equal(t, "development", cfg.Environment)
	assert.Equal(t, 30, cfg.ClaimTTLSeconds)
	assert.Equal(t, "migrations", cfg.MigrationsDir)
	assert.Empty(t, cfg.CORSOrigins)
	assert.False(t, cfg.IsProduction())
}

func TestLoadRequiresDSN(t *testing.T) {
	t.Setenv("DB_DSN", "")

	_, err := Load()
	require.Error(t, err)
	assert.Contains(t, err.Error(), "DB_DSN")
}

func TestLoadParsesClaimTTL(t *testing.T) {
	t.Setenv("DB_DSN", "postgres://localhost/slotwise_test")

	t.Run("custom value", func(t *testing.T) {
		t.Setenv("CLAIM_TTL_SECONDS", "90")
		cfg, err := Load()
		require.NoError(t, err)
		assert.Equal(t, 90, cfg.ClaimTTLSeconds)
	})

	t.Run("garbage rejected", func(t *testing.T) {
		t.Setenv("CLAIM_TTL_SECONDS", "soon")
		_, err := Load()
		assert.Error(t, err)
	})

	t.Run("zero rejected", func(t *testing.T) {
		t.Setenv("CLAIM_TTL_SECONDS", "0")
		_, err := Load()
		assert.Error(t, err)
	})
}

func TestLoadSplitsCORSOrigins(t *testing.T) {
	t.Setenv("DB_DSN", "postgres://localhost/slotwise_test")
	t.Setenv("CORS_ORIGINS", "https://app.example.com, https://staging.example.com ,")

	cfg, err := Load()
	require.NoError(t, err)
	assert.Equal(t, []string{"https://app.example.com", "https://staging.example.com"}, cfg.CORSOrigins)
}
