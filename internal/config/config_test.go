package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoad_EnvOverrides(t *testing.T) {
	t.Setenv("COMPRAS_DATABASE_DSN", "postgres://compras@localhost/compras")
	t.Setenv("COMPRAS_JWT_SECRET", "s3cret")
	t.Setenv("COMPRAS_SERVER_PORT", "9090")
	t.Setenv("COMPRAS_QUOTE_FAN_OUT", "4")

	cfg, err := Load(t.TempDir())
	require.NoError(t, err)

	assert.Equal(t, 9090, cfg.Server.Port)
	assert.Equal(t, "postgres://compras@localhost/compras", cfg.Database.DSN)
	assert.Equal(t, "s3cret", cfg.JWT.Secret)
	assert.Equal(t, 4, cfg.Quote.FanOut)
	assert.Equal(t, 7*24*time.Hour, cfg.Quote.DraftTTL)
	assert.Equal(t, int32(20), cfg.Database.MaxConns)
	assert.Equal(t, "@every 15m", cfg.Worker.ExpireSpec)
}

func TestLoad_File(t *testing.T) {
	dir := t.TempDir()
	yaml := []byte(`
server:
  port: 7000
database:
  dsn: postgres://file
jwt:
  secret: from-file
minio:
  endpoint: minio:9000
  bucket: anexos
`)
	require.NoError(t, os.WriteFile(filepath.Join(dir, "config.yaml"), yaml, 0o600))
	t.Setenv("COMPRAS_JWT_SECRET", "from-env")

	cfg, err := Load(dir)
	require.NoError(t, err)

	assert.Equal(t, 7000, cfg.Server.Port)
	assert.Equal(t, "postgres://file", cfg.Database.DSN)
	assert.Equal(t, "from-env", cfg.JWT.Secret)
	assert.Equal(t, "minio:9000", cfg.MinIO.Endpoint)
	assert.Equal(t, "anexos", cfg.MinIO.Bucket)
}

func TestLoad_MissingRequired(t *testing.T) {
	_, err := Load(t.TempDir())

	require.Error(t, err)
	assert.Contains(t, err.Error(), "database.dsn is required")
	assert.Contains(t, err.Error(), "jwt.secret is required")
}
