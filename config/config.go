package config

import (
	"errors"
	"fmt"
	"os"
	"regexp"
	"strings"
	"time"

	"gopkg.in/yaml.v3"
)

const (
	// DefaultConfigPath is used when no -config flag is given.
	DefaultConfigPath = "config/config.yml"
	// DefaultPontosURL is the public PONTOS data hub endpoint.
	DefaultPontosURL = "https://pontos.ri.se/api"
)

type Config struct {
	Pontosflow PontosflowConfig `yaml:"pontosflow"`
	Source     SourceConfig     `yaml:"source"`
	Reader     ReaderConfig     `yaml:"reader"`
	Export     ExportConfig     `yaml:"export"`
	Storage    StorageConfig    `yaml:"storage"`
	Metrics    MetricsConfig    `yaml:"metrics"`
	Logging    LoggingConfig    `yaml:"logging"`
}

type PontosflowConfig struct {
	Name    string `yaml:"name"`
	Version string `yaml:"version"`
}

type SourceConfig struct {
	Pontos PontosSourceConfig `yaml:"pontos"`
}

type PontosSourceConfig struct {
	URL            string               `yaml:"url"`
	VesselTable    string               `yaml:"vessel_table"`
	DataTable      string               `yaml:"data_table"`
	ConnectionPool ConnectionPoolConfig `yaml:"connection_pool"`
}

type ConnectionPoolConfig struct {
	MaxIdleConns    int           `yaml:"max_idle_conns"`
	MaxConnsPerHost int           `yaml:"max_conns_per_host"`
	IdleConnTimeout time.Duration `yaml:"idle_conn_timeout"`
}

type ReaderConfig struct {
	Timeout   time.Duration   `yaml:"timeout"`
	PageSize  int             `yaml:"page_size"`
	UserAgent string          `yaml:"user_agent"`
	RateLimit RateLimitConfig `yaml:"rate_limit"`
}

type RateLimitConfig struct {
	RequestsPerSecond int `yaml:"requests_per_second"`
	BurstSize         int `yaml:"burst_size"`
}

type ExportConfig struct {
	Dir          string `yaml:"dir"`
	Format       string `yaml:"format"`
	NestByVessel bool   `yaml:"nest_by_vessel"`
	TimeFormat   string `yaml:"time_format"`
}

type StorageConfig struct {
	S3 S3Config `yaml:"s3"`
}

type S3Config struct {
	Enabled         bool   `yaml:"enabled"`
	Bucket          string `yaml:"bucket"`
	Prefix          string `yaml:"prefix"`
	Region          string `yaml:"region"`
	Endpoint        string `yaml:"endpoint"`
	PathStyle       bool   `yaml:"path_style"`
	AccessKeyID     string `yaml:"access_key_id"`
	SecretAccessKey string `yaml:"secret_access_key"`
}

type MetricsConfig struct {
	CloudWatch CloudWatchConfig `yaml:"cloudwatch"`
}

type CloudWatchConfig struct {
	Enabled   bool   `yaml:"enabled"`
	Region    string `yaml:"region"`
	Namespace string `yaml:"namespace"`
	Dashboard string `yaml:"dashboard"`
}

type LoggingConfig struct {
	Level  string `yaml:"level"`
	Format string `yaml:"format"`
	Output string `yaml:"output"`
	MaxAge int    `yaml:"max_age"`
}

// Export formats understood by the writer package.
const (
	FormatCSV     = "csv"
	FormatParquet = "parquet"
)

// DefaultTimeFormat renders timestamps with fixed microsecond precision.
const DefaultTimeFormat = "2006-01-02T15:04:05.000000Z07:00"

// Default returns the configuration used when no file is present.
func Default() *Config {
	return &Config{
		Pontosflow: PontosflowConfig{Name: "pontosflow", Version: "dev"},
		Source: SourceConfig{
			Pontos: PontosSourceConfig{
				URL:         DefaultPontosURL,
				VesselTable: "vessel_ids",
				DataTable:   "vessel_data",
				ConnectionPool: ConnectionPoolConfig{
					MaxIdleConns:    16,
					MaxConnsPerHost: 16,
					IdleConnTimeout: 90 * time.Second,
				},
			},
		},
		Reader: ReaderConfig{
			Timeout:   2 * time.Minute,
			UserAgent: "pontosflow/1.0",
		},
		Export: ExportConfig{
			Dir:        ".",
			Format:     FormatCSV,
			TimeFormat: DefaultTimeFormat,
		},
		Metrics: MetricsConfig{
			CloudWatch: CloudWatchConfig{Namespace: "Pontosflow", Dashboard: "Pontosflow"},
		},
		Logging: LoggingConfig{
			Level:  "info",
			Format: "text",
			Output: "stderr",
		},
	}
}

// LoadConfig reads the YAML file at path over Default, applies environment
// overrides and validates the result.
func LoadConfig(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read config file: %w", err)
	}

	config := Default()
	if err := yaml.Unmarshal(data, config); err != nil {
		return nil, fmt.Errorf("failed to parse config file: %w", err)
	}

	return finish(config)
}

// LoadOrDefault behaves like LoadConfig but falls back to Default when path
// does not exist.
func LoadOrDefault(path string) (*Config, error) {
	cfg, err := LoadConfig(path)
	if err == nil {
		return cfg, nil
	}
	if errors.Is(err, os.ErrNotExist) {
		return finish(Default())
	}
	return nil, err
}

func finish(config *Config) (*Config, error) {
	applyEnvOverrides(config)

	config.Storage.S3.Bucket = strings.TrimSpace(config.Storage.S3.Bucket)
	config.Export.Format = strings.ToLower(strings.TrimSpace(config.Export.Format))

	if err := validateConfig(config); err != nil {
		return nil, fmt.Errorf("configuration validation failed: %w", err)
	}
	return config, nil
}

func applyEnvOverrides(config *Config) {
	if v := os.Getenv("PONTOS_URL"); v != "" {
		config.Source.Pontos.URL = strings.TrimSpace(v)
	}

	if config.Storage.S3.Enabled {
		if v := os.Getenv("AWS_ACCESS_KEY_ID"); v != "" {
			config.Storage.S3.AccessKeyID = strings.TrimSpace(v)
		}
		if v := os.Getenv("AWS_SECRET_ACCESS_KEY"); v != "" {
			config.Storage.S3.SecretAccessKey = strings.TrimSpace(v)
		}
		if v := os.Getenv("AWS_REGION"); v != "" {
			config.Storage.S3.Region = strings.TrimSpace(v)
		}
		if v := os.Getenv("S3_BUCKET"); v != "" {
			config.Storage.S3.Bucket = strings.TrimSpace(v)
		}
	}
}

func validateConfig(cfg *Config) error {
	if cfg.Pontosflow.Name == "" {
		return fmt.Errorf("pontosflow.name is required")
	}

	if cfg.Source.Pontos.URL == "" {
		return fmt.Errorf("source.pontos.url is required")
	}
	if !strings.HasPrefix(cfg.Source.Pontos.URL, "http://") && !strings.HasPrefix(cfg.Source.Pontos.URL, "https://") {
		return fmt.Errorf("source.pontos.url '%s' must be an http(s) URL", cfg.Source.Pontos.URL)
	}
	if cfg.Source.Pontos.VesselTable == "" || cfg.Source.Pontos.DataTable == "" {
		return fmt.Errorf("source.pontos.vessel_table and source.pontos.data_table are required")
	}

	if cfg.Reader.Timeout < 0 {
		return fmt.Errorf("reader.timeout must not be negative")
	}
	if cfg.Reader.PageSize < 0 {
		return fmt.Errorf("reader.page_size must not be negative")
	}
	if cfg.Reader.RateLimit.RequestsPerSecond < 0 || cfg.Reader.RateLimit.BurstSize < 0 {
		return fmt.Errorf("reader.rate_limit values must not be negative")
	}

	switch cfg.Export.Format {
	case FormatCSV, FormatParquet:
	default:
		return fmt.Errorf("export.format '%s' is invalid", cfg.Export.Format)
	}
	if cfg.Export.TimeFormat == "" {
		return fmt.Errorf("export.time_format is required")
	}

	if cfg.Storage.S3.Enabled {
		if cfg.Storage.S3.Bucket == "" {
			return fmt.Errorf("storage.s3.bucket is required when S3 is enabled")
		}
		if cfg.Storage.S3.Region == "" {
			return fmt.Errorf("storage.s3.region is required when S3 is enabled")
		}
		if !isValidS3Bucket(cfg.Storage.S3.Bucket) {
			return fmt.Errorf("storage.s3.bucket '%s' is invalid", cfg.Storage.S3.Bucket)
		}
	}

	return nil
}

var s3BucketRegexp = regexp.MustCompile(`^[a-z0-9][a-z0-9.-]{1,61}[a-z0-9]$`)

func isValidS3Bucket(name string) bool {
	if len(name) < 3 || len(name) > 63 {
		return false
	}
	if strings.Contains(name, "..") || strings.HasPrefix(name, ".") || strings.HasSuffix(name, ".") {
		return false
	}
	return s3BucketRegexp.MatchString(name)
}
