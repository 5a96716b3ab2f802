package storage

import (
	"fmt"
	"time"

	"github.com/sirupsen/logrus"

	"github.com/marcuslam20/thingsboard-server-sub000/internal/storage/file"
	"github.com/marcuslam20/thingsboard-server-sub000/internal/storage/influx"
	"github.com/marcuslam20/thingsboard-server-sub000/internal/storage/memory"
	"github.com/marcuslam20/thingsboard-server-sub000/internal/storage/redis"
	"github.com/marcuslam20/thingsboard-server-sub000/pkg/errors"
	"github.com/marcuslam20/thingsboard-server-sub000/pkg/interfaces"
)

// Supported backend type names.
const (
	TypeMemory   = "memory"
	TypeFile     = "file"
	TypeRedis    = "redis"
	TypeInfluxDB = "influxdb"
)

// DashboardStoreConfig selects and configures the dashboard persistence
// backend.
type DashboardStoreConfig struct {
	Type     string `json:"type" yaml:"type" mapstructure:"type"`
	BasePath string `json:"base_path" yaml:"base_path" mapstructure:"base_path"`
	Pretty   bool   `json:"pretty" yaml:"pretty" mapstructure:"pretty"`
}

// TelemetryConfig selects and configures the telemetry backend.
type TelemetryConfig struct {
	Type string `json:"type" yaml:"type" mapstructure:"type"`

	RedisAddr     string        `json:"redis_addr" yaml:"redis_addr" mapstructure:"redis_addr"`
	RedisPassword string        `json:"redis_password" yaml:"redis_password" mapstructure:"redis_password"`
	RedisDB       int           `json:"redis_db" yaml:"redis_db" mapstructure:"redis_db"`
	RedisTTL      time.Duration `json:"redis_ttl" yaml:"redis_ttl" mapstructure:"redis_ttl"`

	InfluxURL    string `json:"influx_url" yaml:"influx_url" mapstructure:"influx_url"`
	InfluxToken  string `json:"influx_token" yaml:"influx_token" mapstructure:"influx_token"`
	InfluxOrg    string `json:"influx_org" yaml:"influx_org" mapstructure:"influx_org"`
	InfluxBucket string `json:"influx_bucket" yaml:"influx_bucket" mapstructure:"influx_bucket"`
}

// TelemetryBackend bundles the read and write halves plus the lifecycle
// of one telemetry store.
type TelemetryBackend interface {
	interfaces.TelemetryReader
	interfaces.TelemetryWriter
	interfaces.Storage
}

// DashboardBackend bundles dashboard persistence with its lifecycle.
type DashboardBackend interface {
	interfaces.DashboardStore
	interfaces.Storage
}

// NewDashboardStore builds the configured dashboard backend. The memory
// backend is the default.
func NewDashboardStore(cfg DashboardStoreConfig, logger *logrus.Logger) (DashboardBackend, error) {
	switch cfg.Type {
	case TypeMemory, "":
		return memory.NewStorage(logger), nil
	case TypeFile:
		return file.NewStore(&file.StoreConfig{
			BasePath:   cfg.BasePath,
			CreateDirs: true,
			Pretty:     cfg.Pretty,
		}, logger)
	default:
		return nil, errors.NewStorageError(errors.CodeStorageError,
			fmt.Sprintf("unsupported dashboard store type %q", cfg.Type))
	}
}

// NewTelemetryBackend builds the configured telemetry backend. The
// memory backend is the default.
func NewTelemetryBackend(cfg TelemetryConfig, logger *logrus.Logger) (TelemetryBackend, error) {
	switch cfg.Type {
	case TypeMemory, "":
		return memory.NewStorage(logger), nil
	case TypeRedis:
		return redis.NewStorage(&redis.Config{
			Addr:     cfg.RedisAddr,
			Password: cfg.RedisPassword,
			DB:       cfg.RedisDB,
			TTL:      cfg.RedisTTL,
		}, logger)
	case TypeInfluxDB:
		return influx.NewStorage(&influx.Config{
			URL:          cfg.InfluxURL,
			Token:        cfg.InfluxToken,
			Organization: cfg.InfluxOrg,
			Bucket:       cfg.InfluxBucket,
		}, logger)
	default:
		return nil, errors.NewStorageError(errors.CodeStorageError,
			fmt.Sprintf("unsupported telemetry backend type %q", cfg.Type))
	}
}
