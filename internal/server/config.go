package server

import (
	"fmt"
	"strings"
	"time"

	"github.com/spf13/viper"

	"github.com/marcuslam20/thingsboard-server-sub000/internal/storage"
)

// Config contains the dashboard server configuration.
type Config struct {
	Host            string        `json:"host" yaml:"host" mapstructure:"host"`
	Port            int           `json:"port" yaml:"port" mapstructure:"port"`
	MetricsPort     int           `json:"metrics_port" yaml:"metrics_port" mapstructure:"metrics_port"`
	ReadTimeout     time.Duration `json:"read_timeout" yaml:"read_timeout" mapstructure:"read_timeout"`
	WriteTimeout    time.Duration `json:"write_timeout" yaml:"write_timeout" mapstructure:"write_timeout"`
	IdleTimeout     time.Duration `json:"idle_timeout" yaml:"idle_timeout" mapstructure:"idle_timeout"`
	ShutdownTimeout time.Duration `json:"shutdown_timeout" yaml:"shutdown_timeout" mapstructure:"shutdown_timeout"`
	EnableMetrics   bool          `json:"enable_metrics" yaml:"enable_metrics" mapstructure:"enable_metrics"`
	EnableCORS      bool          `json:"enable_cors" yaml:"enable_cors" mapstructure:"enable_cors"`
	MaxRequestSize  int64         `json:"max_request_size" yaml:"max_request_size" mapstructure:"max_request_size"`

	LogLevel  string `json:"log_level" yaml:"log_level" mapstructure:"log_level"`
	LogFormat string `json:"log_format" yaml:"log_format" mapstructure:"log_format"`

	Dashboards storage.DashboardStoreConfig `json:"dashboards" yaml:"dashboards" mapstructure:"dashboards"`
	Telemetry  storage.TelemetryConfig      `json:"telemetry" yaml:"telemetry" mapstructure:"telemetry"`

	// GatewayURL is the device connectivity endpoint RPC commands are
	// forwarded to. Empty disables command forwarding.
	GatewayURL string `json:"gateway_url" yaml:"gateway_url" mapstructure:"gateway_url"`
}

// NewDefaultConfig returns the development defaults: everything in
// memory, metrics on.
func NewDefaultConfig() *Config {
	return &Config{
		Host:            "0.0.0.0",
		Port:            8080,
		MetricsPort:     9090,
		ReadTimeout:     15 * time.Second,
		WriteTimeout:    15 * time.Second,
		IdleTimeout:     60 * time.Second,
		ShutdownTimeout: 30 * time.Second,
		EnableMetrics:   true,
		EnableCORS:      true,
		MaxRequestSize:  1 << 20,
		LogLevel:        "info",
		LogFormat:       "json",
		Dashboards:      storage.DashboardStoreConfig{Type: storage.TypeMemory},
		Telemetry:       storage.TelemetryConfig{Type: storage.TypeMemory},
	}
}

// LoadConfig reads the configuration file (when given) and environment
// overrides on top of the defaults. Environment variables use the
// DASHBOARD_ prefix with underscores for nesting.
func LoadConfig(path string) (*Config, error) {
	v := viper.New()
	v.SetEnvPrefix("DASHBOARD")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	if path != "" {
		v.SetConfigFile(path)
		if err := v.ReadInConfig(); err != nil {
			return nil, fmt.Errorf("failed to read config file %s: %w", path, err)
		}
	}

	cfg := NewDefaultConfig()
	if err := v.Unmarshal(cfg); err != nil {
		return nil, fmt.Errorf("failed to unmarshal configuration: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// Validate checks the configuration for values that cannot work.
func (c *Config) Validate() error {
	if c.Port < 1 || c.Port > 65535 {
		return fmt.Errorf("invalid port: %d", c.Port)
	}
	if c.EnableMetrics && (c.MetricsPort < 1 || c.MetricsPort > 65535) {
		return fmt.Errorf("invalid metrics port: %d", c.MetricsPort)
	}
	if c.EnableMetrics && c.MetricsPort == c.Port {
		return fmt.Errorf("metrics port must differ from server port")
	}
	if c.ReadTimeout <= 0 || c.WriteTimeout <= 0 {
		return fmt.Errorf("timeouts must be positive")
	}
	if c.MaxRequestSize <= 0 {
		return fmt.Errorf("max request size must be positive")
	}
	if c.Dashboards.Type == storage.TypeFile && c.Dashboards.BasePath == "" {
		return fmt.Errorf("dashboard file store requires a base path")
	}
	return nil
}

// Address returns the main listen address.
func (c *Config) Address() string {
	return fmt.Sprintf("%s:%d", c.Host, c.Port)
}

// MetricsAddress returns the metrics listen address.
func (c *Config) MetricsAddress() string {
	return fmt.Sprintf("%s:%d", c.Host, c.MetricsPort)
}
