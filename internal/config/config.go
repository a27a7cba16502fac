// Package config centralizes how filevault reads environment variables and
// exposes them as strongly typed Go values.
package config

import (
	"errors"
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
)

// Config represents runtime configuration shared by the API, the worker and
// the operator CLI.
type Config struct {
	Address  string
	Env      string
	LogLevel string

	// WorkerMetricsAddress serves the worker's /metrics. Empty disables it.
	WorkerMetricsAddress string

	DBDriver    string
	DBHost      string
	DBPort      int
	DBName      string
	DatabaseURL string

	RedisAddr     string
	RedisPassword string
	RedisDB       int

	BlobDriver  string
	FolderPath  string
	S3Endpoint  string
	S3AccessKey string
	S3SecretKey string
	S3Bucket    string
	S3Region    string
	S3UseSSL    bool

	QueueMode        string
	WorkerCount      int
	SessionTTL       time.Duration
	MaxUploadBytes   int64
	ConnectRateLimit string
	AllowedOrigins   []string
}

const (
	DriverMongo    = "mongo"
	DriverPostgres = "postgres"
	DriverMemory   = "memory"

	BlobLocal = "local"
	BlobMinio = "minio"

	QueueRedis  = "redis"
	QueueInline = "inline"
)

const (
	defaultAddress        = ":5000"
	defaultMetricsAddress = ":9091"
	defaultEnv            = "development"
	defaultLogLevel       = "info"
	defaultDBHost         = "localhost"
	defaultDBPort         = 27017
	defaultDBName         = "files_manager"
	defaultRedisAddr      = "localhost:6379"
	defaultFolderPath     = "/tmp/files_manager"
	defaultBucket         = "files-manager"
	defaultRegion         = "us-east-1"
	defaultWorkerCount    = 4
	defaultSessionTTL     = 24 * time.Hour
	defaultMaxUploadBytes = 25 << 20 // 25 MiB
	defaultConnectLimit   = "20-M"
	defaultAllowedOrigins = "*"
)

// Load reads an optional .env file and then the process environment, falling
// back to defaults for anything unset.
func Load() (*Config, error) {
	if err := godotenv.Load(); err != nil && !errors.Is(err, os.ErrNotExist) {
		return nil, fmt.Errorf("load .env: %w", err)
	}
	cfg := &Config{
		Address:  readEnv("FILEVAULT_ADDRESS", defaultAddress),
		Env:      readEnv("FILEVAULT_ENV", defaultEnv),
		LogLevel: readEnv("FILEVAULT_LOG_LEVEL", defaultLogLevel),

		WorkerMetricsAddress: readWorkerMetricsAddress(),

		DBDriver:    strings.ToLower(readEnv("DB_DRIVER", DriverMongo)),
		DBHost:      readEnv("DB_HOST", defaultDBHost),
		DBPort:      parseInt("DB_PORT", defaultDBPort),
		DBName:      readEnv("DB_DATABASE", defaultDBName),
		DatabaseURL: readEnv("DATABASE_URL", ""),

		RedisAddr:     readEnv("REDIS_ADDR", defaultRedisAddr),
		RedisPassword: readEnv("REDIS_PASSWORD", ""),
		RedisDB:       parseInt("REDIS_DB", 0),

		BlobDriver:  strings.ToLower(readEnv("BLOB_DRIVER", BlobLocal)),
		FolderPath:  readEnv("FOLDER_PATH", defaultFolderPath),
		S3Endpoint:  readEnv("S3_ENDPOINT", ""),
		S3AccessKey: readEnv("S3_ACCESS_KEY", ""),
		S3SecretKey: readEnv("S3_SECRET_KEY", ""),
		S3Bucket:    readEnv("S3_BUCKET", defaultBucket),
		S3Region:    readEnv("S3_REGION", defaultRegion),
		S3UseSSL:    parseBool("S3_USE_SSL", false),

		QueueMode:        strings.ToLower(readEnv("QUEUE_MODE", QueueRedis)),
		WorkerCount:      parseInt("FILEVAULT_WORKERS", defaultWorkerCount),
		SessionTTL:       parseDuration("SESSION_TTL", defaultSessionTTL),
		MaxUploadBytes:   parseInt64("MAX_UPLOAD_BYTES", defaultMaxUploadBytes),
		ConnectRateLimit: readEnv("CONNECT_RATE_LIMIT", defaultConnectLimit),
		AllowedOrigins:   parseList("ALLOWED_ORIGINS", defaultAllowedOrigins),
	}
	if cfg.WorkerCount <= 0 {
		cfg.WorkerCount = defaultWorkerCount
	}
	if cfg.SessionTTL <= 0 {
		cfg.SessionTTL = defaultSessionTTL
	}
	if cfg.MaxUploadBytes <= 0 {
		cfg.MaxUploadBytes = defaultMaxUploadBytes
	}
	if err := cfg.validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// IsProduction reports whether FILEVAULT_ENV names a production deployment.
func (c *Config) IsProduction() bool {
	return strings.EqualFold(c.Env, "production")
}

// MongoURI builds the connection string from DB_HOST and DB_PORT.
func (c *Config) MongoURI() string {
	return fmt.Sprintf("mongodb://%s:%d", c.DBHost, c.DBPort)
}

func (c *Config) validate() error {
	switch c.DBDriver {
	case DriverMongo, DriverMemory:
	case DriverPostgres:
		if c.DatabaseURL == "" {
			return errors.New("DATABASE_URL is required when DB_DRIVER=postgres")
		}
	default:
		return fmt.Errorf("unknown DB_DRIVER %q", c.DBDriver)
	}
	switch c.BlobDriver {
	case BlobLocal:
	case BlobMinio:
		if c.S3Endpoint == "" {
			return errors.New("S3_ENDPOINT is required when BLOB_DRIVER=minio")
		}
	default:
		return fmt.Errorf("unknown BLOB_DRIVER %q", c.BlobDriver)
	}
	if c.QueueMode != QueueRedis && c.QueueMode != QueueInline {
		return fmt.Errorf("unknown QUEUE_MODE %q", c.QueueMode)
	}
	return nil
}

// readWorkerMetricsAddress lets FILEVAULT_WORKER_METRICS_ADDRESS="off" turn
// the endpoint off.
func readWorkerMetricsAddress() string {
	addr := readEnv("FILEVAULT_WORKER_METRICS_ADDRESS", defaultMetricsAddress)
	if strings.EqualFold(addr, "off") {
		return ""
	}
	return addr
}

func readEnv(key, def string) string {
	if v, ok := os.LookupEnv(key); ok && v != "" {
		return v
	}
	return def
}

func parseList(key, def string) []string {
	val := readEnv(key, def)
	out := strings.Split(val, ",")
	for i := range out {
		out[i] = strings.TrimSpace(out[i])
	}
	return out
}

func parseInt64(key string, def int64) int64 {
	if v, ok := os.LookupEnv(key); ok && v != "" {
		if parsed, err := strconv.ParseInt(v, 10, 64); err == nil {
			return parsed
		}
	}
	return def
}

func parseInt(key string, def int) int {
	if v, ok := os.LookupEnv(key); ok && v != "" {
		if parsed, err := strconv.Atoi(v); err == nil {
			return parsed
		}
	}
	return def
}

func parseBool(key string, def bool) bool {
	if v, ok := os.LookupEnv(key); ok && v != "" {
		if parsed, err := strconv.ParseBool(v); err == nil {
			return parsed
		}
	}
	return def
}

func parseDuration(key string, def time.Duration) time.Duration {
	// time.ParseDuration understands inputs like "24h" or "30m".
	if v, ok := os.LookupEnv(key); ok && v != "" {
		if parsed, err := time.ParseDuration(v); err == nil {
			return parsed
		}
	}
	return def
}
