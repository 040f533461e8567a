package config

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestLoad(t *testing.T) {
	t.Setenv("DB_HOST", "test-host")
	t.Setenv("DB_MAX_OPEN_CONNS", "20")
	t.Setenv("MINIO_USE_SSL", "true")
	t.Setenv("DEDUP_KEY", "type_company_serial")
	t.Setenv("UPLOAD_RATE_LIMIT_RPS", "2.5")

	cfg := Load()

	assert.Equal(t, "test-host", cfg.Database.Host)
	assert.Equal(t, 20, cfg.Database.MaxOpenConns)
	assert.True(t, cfg.MinIO.UseSSL)
	assert.Equal(t, "type_company_serial", cfg.Upload.DedupKey)
	assert.Equal(t, 2.5, cfg.Upload.RateLimitRPS)
	assert.Equal(t, 7, cfg.Share.DefaultExpiryDays)
	assert.Equal(t, "dms.audit", cfg.Audit.NATSSubject)
}

func TestLoadDefaults(t *testing.T) {
	t.Setenv("DEDUP_KEY", "")
	t.Setenv("STORE_TIMEOUT_SEC", "")
	t.Setenv("AUDIT_QUEUE_SIZE", "")

	cfg := Load()

	assert.Equal(t, "serial", cfg.Upload.DedupKey)
	assert.Equal(t, 15, cfg.Upload.StoreTimeoutSec)
	assert.Equal(t, "", cfg.Audit.NATSURL)
	assert.Equal(t, 1024, cfg.Audit.QueueSize)
}

func TestLocation(t *testing.T) {
	cfg := &AppConfig{Timezone: "Asia/Jakarta"}
	assert.Equal(t, "Asia/Jakarta", cfg.Location().String())

	cfg.Timezone = "Not/AZone"
	assert.Equal(t, time.UTC, cfg.Location())
}

func TestSeconds(t *testing.T) {
	assert.Equal(t, 3*time.Second, Seconds(3))
	assert.Equal(t, time.Duration(0), Seconds(0))
	assert.Equal(t, time.Duration(0), Seconds(-1))
}

func TestGetEnv(t *testing.T) {
	key := "TEST_ENV_VAR"
	t.Setenv(key, "value")

	assert.Equal(t, "value", getEnv(key, "default"))
	assert.Equal(t, "default", getEnv("NON_EXISTENT", "default"))
}

func TestGetEnvBool(t *testing.T) {
	key := "TEST_BOOL_VAR"

	t.Setenv(key, "true")
	assert.True(t, getEnvBool(key, false))

	t.Setenv(key, "false")
	assert.False(t, getEnvBool(key, true))

	t.Setenv(key, "invalid")
	assert.True(t, getEnvBool(key, true))

	t.Setenv(key, "")
	assert.True(t, getEnvBool(key, true))
}

func TestGetEnvInt(t *testing.T) {
	key := "TEST_INT_VAR"

	t.Setenv(key, "123")
	assert.Equal(t, 123, getEnvInt(key, 0))

	t.Setenv(key, "invalid")
	assert.Equal(t, 10, getEnvInt(key, 10))

	t.Setenv(key, "")
	assert.Equal(t, 10, getEnvInt(key, 10))
}

func TestGetEnvFloat(t *testing.T) {
	key := "TEST_FLOAT_VAR"

	t.Setenv(key, "0.5")
	assert.Equal(t, 0.5, getEnvFloat(key, 1))

	t.Setenv(key, "nope")
	assert.Equal(t, 1.0, getEnvFloat(key, 1))
}
