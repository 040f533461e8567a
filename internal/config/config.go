package config

import (
	"os"
	"strconv"
	"time"
)

// DatabaseConfig holds PostgreSQL database connection settings.
type DatabaseConfig struct {
	Host               string
	Port               string
	User               string
	Password           string
	Name               string
	SSLMode            string
	MaxOpenConns       int
	MaxIdleConns       int
	ConnMaxLifetimeSec int
}

// MinIOConfig holds object storage settings for MinIO.
type MinIOConfig struct {
	Endpoint  string
	AccessKey string
	SecretKey string
	Bucket    string
	UseSSL    bool
}

// UploadConfig controls the upload pipeline.
type UploadConfig struct {
	// DedupKey selects the identity key used for duplicate and version detection:
	// "serial" (default) or "type_company_serial".
	DedupKey        string
	DocTypesFile    string
	MaxBodyMB       int
	StoreTimeoutSec int
	RateLimitRPS    float64
	RateLimitBurst  int
}

// ShareConfig controls expiring share links.
type ShareConfig struct {
	DefaultExpiryDays int
	PresignExpiryMin  int
}

// AuditConfig configures audit dispatch and optional fan-out to NATS.
type AuditConfig struct {
	NATSURL     string
	NATSSubject string
	TimeoutSec  int
	// QueueSize bounds entries waiting for the sinks; overflow is dropped.
	QueueSize int
}

// SuggestConfig configures the advisory rename suggester.
type SuggestConfig struct {
	OllamaURL  string
	Model      string
	TimeoutSec int
}

// AppConfig is the centralized configuration struct for the application.
// It is populated from environment variables. Sensitive values are not hardcoded.
type AppConfig struct {
	AppHost  string
	Port     string
	LogLevel string
	Timezone string
	Database DatabaseConfig
	MinIO    MinIOConfig
	Upload   UploadConfig
	Share    ShareConfig
	Audit    AuditConfig
	Suggest  SuggestConfig
}

// Load reads configuration from environment variables.
// A .env file can be auto-loaded by importing: _ "github.com/joho/godotenv/autoload"
// This function does not require a .env file; real environment variables take precedence.
func Load() *AppConfig {
	return &AppConfig{
		AppHost:  getEnv("APP_HOST", "localhost:8080"),
		Port:     getEnv("PORT", "8080"),
		LogLevel: getEnv("LOG_LEVEL", "info"),
		Timezone: getEnv("APP_TIMEZONE", "UTC"),
		Database: DatabaseConfig{
			Host:               getEnv("DB_HOST", ""),
			Port:               getEnv("DB_PORT", "5432"),
			User:               getEnv("DB_USER", ""),
			Password:           getEnv("DB_PASSWORD", ""),
			Name:               getEnv("DB_NAME", ""),
			SSLMode:            getEnv("DB_SSLMODE", "disable"),
			MaxOpenConns:       getEnvInt("DB_MAX_OPEN_CONNS", 10),
			MaxIdleConns:       getEnvInt("DB_MAX_IDLE_CONNS", 5),
			ConnMaxLifetimeSec: getEnvInt("DB_CONN_MAX_LIFETIME_SEC", 300),
		},
		MinIO: MinIOConfig{
			Endpoint:  getEnv("MINIO_ENDPOINT", ""),
			AccessKey: getEnv("MINIO_ACCESS_KEY", ""),
			SecretKey: getEnv("MINIO_SECRET_KEY", ""),
			Bucket:    getEnv("MINIO_BUCKET", ""),
			UseSSL:    getEnvBool("MINIO_USE_SSL", false),
		},
		Upload: UploadConfig{
			DedupKey:        getEnv("DEDUP_KEY", "serial"),
			DocTypesFile:    getEnv("DOC_TYPES_FILE", ""),
			MaxBodyMB:       getEnvInt("UPLOAD_MAX_BODY_MB", 50),
			StoreTimeoutSec: getEnvInt("STORE_TIMEOUT_SEC", 15),
			RateLimitRPS:    getEnvFloat("UPLOAD_RATE_LIMIT_RPS", 5),
			RateLimitBurst:  getEnvInt("UPLOAD_RATE_LIMIT_BURST", 10),
		},
		Share: ShareConfig{
			DefaultExpiryDays: getEnvInt("SHARE_DEFAULT_EXPIRY_DAYS", 7),
			PresignExpiryMin:  getEnvInt("SHARE_PRESIGN_EXPIRY_MIN", 15),
		},
		Audit: AuditConfig{
			NATSURL:     getEnv("AUDIT_NATS_URL", ""),
			NATSSubject: getEnv("AUDIT_NATS_SUBJECT", "dms.audit"),
			TimeoutSec:  getEnvInt("AUDIT_TIMEOUT_SEC", 3),
			QueueSize:   getEnvInt("AUDIT_QUEUE_SIZE", 1024),
		},
		Suggest: SuggestConfig{
			OllamaURL:  getEnv("SUGGEST_OLLAMA_URL", ""),
			Model:      getEnv("SUGGEST_MODEL", "llama3.1:8b"),
			TimeoutSec: getEnvInt("SUGGEST_TIMEOUT_SEC", 30),
		},
	}
}

// Location resolves the configured timezone, falling back to UTC.
func (c *AppConfig) Location() *time.Location {
	loc, err := time.LoadLocation(c.Timezone)
	if err != nil {
		return time.UTC
	}
	return loc
}

// Seconds converts a seconds setting into a duration; non-positive values yield zero.
func Seconds(v int) time.Duration {
	if v <= 0 {
		return 0
	}
	return time.Duration(v) * time.Second
}

func getEnv(key, def string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return def
}

func getEnvBool(key string, def bool) bool {
	if v := os.Getenv(key); v != "" {
		b, err := strconv.ParseBool(v)
		if err == nil {
			return b
		}
	}
	return def
}

func getEnvInt(key string, def int) int {
	if v := os.Getenv(key); v != "" {
		i, err := strconv.Atoi(v)
		if err == nil {
			return i
		}
	}
	return def
}

func getEnvFloat(key string, def float64) float64 {
	if v := os.Getenv(key); v != "" {
		f, err := strconv.ParseFloat(v, 64)
		if err == nil {
			return f
		}
	}
	return def
}
