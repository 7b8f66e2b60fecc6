// Package config loads gridetl settings.
//
// Sources, lowest to highest priority:
//
//  1. built-in defaults
//  2. optional YAML file (GRIDETL_CONFIG, else ./gridetl.yaml when present)
//  3. environment variables, after loading a local .env file
//
// Environment keys use the GRIDETL_ prefix with "__" as section separator
// (GRIDETL_STORAGE__DSN -> storage.dsn). The AWS_* and MEDIA_* names used by
// older deployments are accepted as aliases.
package config

import (
	"errors"
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/joho/godotenv"
	"github.com/knadh/koanf/parsers/yaml"
	"github.com/knadh/koanf/providers/env"
	"github.com/knadh/koanf/providers/file"
	"github.com/knadh/koanf/providers/structs"
	"github.com/knadh/koanf/v2"
)

// PathEnvVar names the env var pointing at a YAML config file.
const PathEnvVar = "GRIDETL_CONFIG"

const defaultPath = "gridetl.yaml"

type Config struct {
	Storage StorageConfig `koanf:"storage"`
	S3      S3Config      `koanf:"s3"`
	Media   MediaConfig   `koanf:"media"`
	Metrics MetricsConfig `koanf:"metrics"`
	Log     LogConfig     `koanf:"log"`
	Report  ReportConfig  `koanf:"report"`
	Breaker BreakerConfig `koanf:"breaker"`
}

type StorageConfig struct {
	Kind string `koanf:"kind" validate:"required,oneof=postgres sqlite mssql"`
	DSN  string `koanf:"dsn" validate:"required"`
}

// S3Config is optional as a whole: an empty Bucket disables the object store
// and reports go to local media storage.
type S3Config struct {
	Bucket          string        `koanf:"bucket"`
	AccessKeyID     string        `koanf:"access_key_id"`
	SecretAccessKey string        `koanf:"secret_access_key"`
	Region          string        `koanf:"region"`
	EndpointURL     string        `koanf:"endpoint_url" validate:"omitempty,url"`
	UseSSL          bool          `koanf:"use_ssl"`
	Prefix          string        `koanf:"prefix"`
	URLExpiration   time.Duration `koanf:"url_expiration" validate:"gt=0"`
}

// Configured reports whether every setting required to reach the bucket is set.
func (c S3Config) Configured() bool {
	return c.Bucket != "" && c.AccessKeyID != "" && c.SecretAccessKey != ""
}

type MediaConfig struct {
	Root string `koanf:"root" validate:"required"`
	URL  string `koanf:"url" validate:"required"`
}

type MetricsConfig struct {
	Backend        string        `koanf:"backend" validate:"oneof=none pushgateway datadog"`
	PushgatewayURL string        `koanf:"pushgateway_url"`
	Job            string        `koanf:"job"`
	Tags           string        `koanf:"tags"`
	FlushEvery     time.Duration `koanf:"flush_every"`
}

type LogConfig struct {
	Level  string `koanf:"level" validate:"oneof=trace debug info warn error disabled"`
	Format string `koanf:"format" validate:"oneof=json console"`
}

type ReportConfig struct {
	Workers   int `koanf:"workers" validate:"min=1,max=64"`
	QueueSize int `koanf:"queue_size" validate:"min=1"`
}

type BreakerConfig struct {
	FailureThreshold uint32        `koanf:"failure_threshold" validate:"min=1"`
	OpenTimeout      time.Duration `koanf:"open_timeout" validate:"gt=0"`
}

// Default returns the built-in configuration (local SQLite, no S3, no metrics).
func Default() *Config {
	return &Config{
		Storage: StorageConfig{Kind: "sqlite", DSN: "file:gridetl.db?_pragma=busy_timeout(5000)"},
		S3: S3Config{
			Region:        "us-east-1",
			UseSSL:        true,
			Prefix:        "analytics/data-profiles",
			URLExpiration: 7 * 24 * time.Hour,
		},
		Media:   MediaConfig{Root: "media", URL: "/media/"},
		Metrics: MetricsConfig{Backend: "none", PushgatewayURL: "http://localhost:9091", Job: "gridetl", FlushEvery: time.Minute},
		Log:     LogConfig{Level: "info", Format: "console"},
		Report:  ReportConfig{Workers: 2, QueueSize: 16},
		Breaker: BreakerConfig{FailureThreshold: 3, OpenTimeout: 30 * time.Second},
	}
}

// Load reads configuration from defaults, the optional YAML file and the
// environment, then validates it.
func Load() (*Config, error) {
	// A missing .env is normal outside development.
	_ = godotenv.Load()

	path := os.Getenv(PathEnvVar)
	if path == "" {
		if _, err := os.Stat(defaultPath); err == nil {
			path = defaultPath
		}
	}
	return LoadFile(path)
}

// LoadFile is Load with an explicit YAML path; an empty path skips the file layer.
func LoadFile(path string) (*Config, error) {
	k := koanf.New(".")

	if err := k.Load(structs.Provider(Default(), "koanf"), nil); err != nil {
		return nil, fmt.Errorf("config: load defaults: %w", err)
	}
	if path != "" {
		if err := k.Load(file.Provider(path), yaml.Parser()); err != nil {
			return nil, fmt.Errorf("config: load %s: %w", path, err)
		}
	}
	if err := k.Load(env.Provider("", ".", envKey), nil); err != nil {
		return nil, fmt.Errorf("config: load env: %w", err)
	}

	cfg := &Config{}
	if err := k.Unmarshal("", cfg); err != nil {
		return nil, fmt.Errorf("config: unmarshal: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

var aliases = map[string]string{
	"aws_storage_bucket_name": "s3.bucket",
	"aws_access_key_id":       "s3.access_key_id",
	"aws_secret_access_key":   "s3.secret_access_key",
	"aws_s3_region_name":      "s3.region",
	"aws_s3_endpoint_url":     "s3.endpoint_url",
	"aws_s3_use_ssl":          "s3.use_ssl",
	"media_root":              "media.root",
	"media_url":               "media.url",
	"database_url":            "storage.dsn",
	"pushgateway_url":         "metrics.pushgateway_url",
	"metrics_backend":         "metrics.backend",
	"metrics_tags":            "metrics.tags",
}

// envKey maps an environment variable name to a koanf path. Unrelated
// variables map to "" and are dropped by the provider.
func envKey(name string) string {
	lower := strings.ToLower(name)
	if p, ok := aliases[lower]; ok {
		return p
	}
	rest, ok := strings.CutPrefix(lower, "gridetl_")
	if !ok || rest == "config" {
		return ""
	}
	return strings.ReplaceAll(rest, "__", ".")
}

var validate = validator.New(validator.WithRequiredStructEnabled())

// Validate checks field constraints and cross-field rules.
func (c *Config) Validate() error {
	if err := validate.Struct(c); err != nil {
		var ve validator.ValidationErrors
		if errors.As(err, &ve) {
			msgs := make([]string, 0, len(ve))
			for _, fe := range ve {
				msgs = append(msgs, fmt.Sprintf("%s failed %q", fe.Namespace(), fe.Tag()))
			}
			return fmt.Errorf("config: invalid: %s", strings.Join(msgs, "; "))
		}
		return fmt.Errorf("config: invalid: %w", err)
	}
	if c.Metrics.Backend == "pushgateway" && c.Metrics.PushgatewayURL == "" {
		return errors.New("config: invalid: metrics.pushgateway_url required for pushgateway backend")
	}
	return nil
}
