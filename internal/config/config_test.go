package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const sampleYAML = `
server:
  port: "8081"
database:
  sql:
    driver: sqlite
    dsn: portal.db
jwt:
  secret: from-file
kafka:
  brokers: "k1:9092, k2:9092"
cors:
  allowed_origins:
    - https://portal.example.edu
`

func writeConfig(t *testing.T, body string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "config.yaml")
	require.NoError(t, os.WriteFile(path, []byte(body), 0o600))
	return path
}

func TestLoad_FileAndDefaults(t *testing.T) {
	cfg, err := Load(writeConfig(t, sampleYAML))
	require.NoError(t, err)

	assert.Equal(t, "8081", cfg.Server.Port)
	assert.Equal(t, "sqlite", cfg.Database.SQL.Driver)
	assert.Equal(t, "from-file", cfg.JWT.Secret)
	assert.Equal(t, []string{"https://portal.example.edu"}, cfg.CORS.AllowedOrigins)
	assert.Equal(t, []string{"k1:9092", "k2:9092"}, cfg.Kafka.BrokerList())

	// defaults
	assert.Equal(t, int64(10<<20), cfg.Upload.MaxSizeBytes)
	assert.Equal(t, 50, cfg.Notification.ListLimit)
	assert.Equal(t, "college-resources", cfg.MinIO.Folder)
	assert.Equal(t, time.Hour, cfg.MinIO.PresignExpiry())
	assert.False(t, cfg.Kafka.Enabled)
}

func TestLoad_EnvOverridesFile(t *testing.T) {
	t.Setenv("PORTAL_JWT_SECRET", "from-env")
	t.Setenv("PORTAL_DATABASE_SQL_DSN", "other.db")

	cfg, err := Load(writeConfig(t, sampleYAML))
	require.NoError(t, err)

	assert.Equal(t, "from-env", cfg.JWT.Secret)
	assert.Equal(t, "other.db", cfg.Database.SQL.DSN)
}

func TestLoad_EnvOnly(t *testing.T) {
	t.Setenv("PORTAL_DATABASE_SQL_DRIVER", "postgres")
	t.Setenv("PORTAL_DATABASE_SQL_DSN", "host=db user=portal")
	t.Setenv("PORTAL_JWT_SECRET", "s")

	cfg, err := Load("")
	require.NoError(t, err)
	assert.Equal(t, "postgres", cfg.Database.SQL.Driver)
}

func TestLoad_Validation(t *testing.T) {
	_, err := Load(writeConfig(t, "database:\n  sql:\n    driver: oracle\n    dsn: x\njwt:\n  secret: s\n"))
	assert.ErrorContains(t, err, "database.sql.driver")

	_, err = Load(writeConfig(t, "database:\n  sql:\n    driver: sqlite\n    dsn: x\n"))
	assert.ErrorContains(t, err, "jwt.secret")
}

func TestLoad_NotificationListLimitBounds(t *testing.T) {
	base := "database:\n  sql:\n    driver: sqlite\n    dsn: x\njwt:\n  secret: s\nnotification:\n  list_limit: "

	_, err := Load(writeConfig(t, base+"51\n"))
	assert.ErrorContains(t, err, "notification.list_limit")
	_, err = Load(writeConfig(t, base+"0\n"))
	assert.ErrorContains(t, err, "notification.list_limit")

	cfg, err := Load(writeConfig(t, base+"50\n"))
	require.NoError(t, err)
	assert.Equal(t, MaxNotificationListLimit, cfg.Notification.ListLimit)
}

func TestLoad_MissingFile(t *testing.T) {
	_, err := Load(filepath.Join(t.TempDir(), "nope.yaml"))
	assert.Error(t, err)
}
