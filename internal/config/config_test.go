package config

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoad_Defaults(t *testing.T) {
	cfg, err := Load()
	require.NoError(t, err)

	assert.Equal(t, ":5000", cfg.Address)
	assert.Equal(t, ":9091", cfg.WorkerMetricsAddress)
	assert.Equal(t, DriverMongo, cfg.DBDriver)
	assert.Equal(t, "mongodb://localhost:27017", cfg.MongoURI())
	assert.Equal(t, "files_manager", cfg.DBName)
	assert.Equal(t, "/tmp/files_manager", cfg.FolderPath)
	assert.Equal(t, BlobLocal, cfg.BlobDriver)
	assert.Equal(t, QueueRedis, cfg.QueueMode)
	assert.Equal(t, 24*time.Hour, cfg.SessionTTL)
	assert.Equal(t, int64(25<<20), cfg.MaxUploadBytes)
	assert.Equal(t, []string{"*"}, cfg.AllowedOrigins)
	assert.False(t, cfg.IsProduction())
}

func TestLoad_Overrides(t *testing.T) {
	t.Setenv("FILEVAULT_ADDRESS", ":9000")
	t.Setenv("FILEVAULT_ENV", "Production")
	t.Setenv("DB_DRIVER", "POSTGRES")
	t.Setenv("DATABASE_URL", "postgres://u:p@db:5432/files")
	t.Setenv("DB_PORT", "not-a-number")
	t.Setenv("SESSION_TTL", "2h")
	t.Setenv("FILEVAULT_WORKERS", "-3")
	t.Setenv("ALLOWED_ORIGINS", "https://a.example, https://b.example")
	t.Setenv("S3_USE_SSL", "true")
	t.Setenv("FILEVAULT_WORKER_METRICS_ADDRESS", "OFF")

	cfg, err := Load()
	require.NoError(t, err)

	assert.Equal(t, ":9000", cfg.Address)
	assert.True(t, cfg.IsProduction())
	assert.Equal(t, DriverPostgres, cfg.DBDriver)
	assert.Equal(t, 27017, cfg.DBPort)
	assert.Equal(t, 2*time.Hour, cfg.SessionTTL)
	assert.Equal(t, 4, cfg.WorkerCount)
	assert.Equal(t, []string{"https://a.example", "https://b.example"}, cfg.AllowedOrigins)
	assert.True(t, cfg.S3UseSSL)
	assert.Empty(t, cfg.WorkerMetricsAddress)
}

func TestLoad_Invalid(t *testing.T) {
	tests := []struct {
		name string
		env  map[string]string
	}{
		{"unknown db driver", map[string]string{"DB_DRIVER": "sqlite"}},
		{"postgres without dsn", map[string]string{"DB_DRIVER": "postgres"}},
		{"unknown blob driver", map[string]string{"BLOB_DRIVER": "ftp"}},
		{"minio without endpoint", map[string]string{"BLOB_DRIVER": "minio"}},
		{"unknown queue mode", map[string]string{"QUEUE_MODE": "kafka"}},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			for k, v := range tc.env {
				t.Setenv(k, v)
			}
			_, err := Load()
			require.Error(t, err)
		})
	}
}
