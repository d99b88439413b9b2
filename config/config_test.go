package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoadDefaults(t *testing.T) {
	t.Setenv("PORT", "")
	t.Setenv("CORS_ORIGINS", "")
	os.Unsetenv("PORT")
	os.Unsetenv("CORS_ORIGINS")

	cfg, err := Load(filepath.Join(t.TempDir(), "missing.env"))
	require.NoError(t, err)

	assert.Equal(t, "8080", cfg.Port)
	assert.Equal(t, 24*time.Hour, cfg.TokenTTL)
	assert.Equal(t, int64(50<<20), cfg.MaxUploadBytes)
	assert.Equal(t, "@every 1h", cfg.JobSweepSchedule)
	assert.Equal(t, defaultOrigins, cfg.CORSOrigins)
}

func TestLoadFromEnvFile(t *testing.T) {
	t.Setenv("JWT_SECRET", "")
	os.Unsetenv("JWT_SECRET")
	t.Setenv("CORS_ORIGINS", "https://a.example, https://b.example ,")

	path := filepath.Join(t.TempDir(), ".env")
	require.NoError(t, os.WriteFile(path, []byte("JWT_SECRET=from-file\nTOKEN_TTL=2h\n"), 0o600))
	t.Cleanup(func() { os.Unsetenv("TOKEN_TTL") })

	cfg, err := Load(path)
	require.NoError(t, err)

	assert.Equal(t, "from-file", cfg.JWTSecret)
	assert.Equal(t, 2*time.Hour, cfg.TokenTTL)
	assert.Equal(t, []string{"https://a.example", "https://b.example"}, cfg.CORSOrigins)
}

func TestValidate(t *testing.T) {
	cfg := &Config{}
	assert.Error(t, cfg.Validate(false))

	cfg.JWTSecret = "secret"
	assert.NoError(t, cfg.Validate(false))
	assert.Error(t, cfg.Validate(true))

	cfg.MongoURI = "mongodb://localhost:27017"
	assert.NoError(t, cfg.Validate(true))
}
