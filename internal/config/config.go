package config

import (
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"time"

	"gopkg.in/yaml.v3"
)

// Config holds all corpora configuration.
type Config struct {
	Root        string        `yaml:"root"`
	MetricsFile string        `yaml:"metrics_file"`
	Log         LogConfig     `yaml:"log"`
	Fetch       FetchConfig   `yaml:"fetch"`
	Storage     StorageConfig `yaml:"storage"`
	Export      ExportConfig  `yaml:"export"`
	Infer       InferConfig   `yaml:"infer"`
}

// LogConfig holds logger settings.
type LogConfig struct {
	Level string `yaml:"level"` // "debug", "info", "warn", "error"
	JSON  bool   `yaml:"json"`
}

// FetchConfig holds download transport settings.
type FetchConfig struct {
	Proxy   string        `yaml:"proxy"`
	Timeout time.Duration `yaml:"timeout"` // 0 = no client timeout
	Retries int           `yaml:"retries"` // 0 = fail on first error
	Quiet   bool          `yaml:"quiet"`   // suppress the progress bar
}

// StorageConfig holds S3 mirror settings, used for s3:// dataset URLs.
type StorageConfig struct {
	Region   string `yaml:"region"`
	Endpoint string `yaml:"endpoint"` // MinIO or other S3-compatible endpoint
}

// ExportConfig holds sink settings.
type ExportConfig struct {
	DatabaseURL string `yaml:"database_url"`
	Table       string `yaml:"table"`
}

// InferConfig holds ONNX Runtime settings.
type InferConfig struct {
	Library string `yaml:"library"` // path to libonnxruntime shared library
}

// Default returns the configuration used when neither a file nor the
// environment says otherwise.
func Default() Config {
	return Config{
		Root: defaultRoot(),
		Log:  LogConfig{Level: "info"},
		Storage: StorageConfig{
			Region: "us-east-1",
		},
		Export: ExportConfig{Table: "corpora_examples"},
		Infer:  InferConfig{Library: "libonnxruntime.so"},
	}
}

// Load reads configuration from environment variables with sensible defaults.
func Load() Config {
	cfg := Default()
	applyEnv(&cfg)
	return cfg
}

// LoadFile reads a YAML config file over the defaults, then applies
// environment variables on top. Environment values win over the file.
func LoadFile(path string) (Config, error) {
	cfg := Default()
	data, err := os.ReadFile(path)
	if err != nil {
		return Config{}, fmt.Errorf("config: %w", err)
	}
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return Config{}, fmt.Errorf("config: parse %s: %w", path, err)
	}
	applyEnv(&cfg)
	return cfg, nil
}

func applyEnv(cfg *Config) {
	cfg.Root = getenv("CORPORA_ROOT", cfg.Root)
	cfg.MetricsFile = getenv("CORPORA_METRICS_FILE", cfg.MetricsFile)
	cfg.Log.Level = getenv("CORPORA_LOG_LEVEL", cfg.Log.Level)
	cfg.Log.JSON = getenvBool("CORPORA_LOG_JSON", cfg.Log.JSON)
	cfg.Fetch.Proxy = getenv("CORPORA_PROXY", cfg.Fetch.Proxy)
	cfg.Fetch.Timeout = getenvDuration("CORPORA_HTTP_TIMEOUT", cfg.Fetch.Timeout)
	cfg.Fetch.Retries = getenvInt("CORPORA_RETRIES", cfg.Fetch.Retries)
	cfg.Fetch.Quiet = getenvBool("CORPORA_QUIET", cfg.Fetch.Quiet)
	cfg.Storage.Region = getenv("CORPORA_S3_REGION", cfg.Storage.Region)
	cfg.Storage.Endpoint = getenv("CORPORA_S3_ENDPOINT", cfg.Storage.Endpoint)
	cfg.Export.DatabaseURL = getenv("CORPORA_DATABASE_URL", cfg.Export.DatabaseURL)
	cfg.Export.Table = getenv("CORPORA_DATABASE_TABLE", cfg.Export.Table)
	cfg.Infer.Library = getenv("CORPORA_ORT_LIB", cfg.Infer.Library)
}

func defaultRoot() string {
	home, err := os.UserHomeDir()
	if err != nil {
		return ".corpora"
	}
	return filepath.Join(home, ".corpora")
}

func getenv(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}

func getenvInt(key string, fallback int) int {
	v := os.Getenv(key)
	if v == "" {
		return fallback
	}
	n, err := strconv.Atoi(v)
	if err != nil || n < 0 {
		return fallback
	}
	return n
}

func getenvBool(key string, fallback bool) bool {
	v := os.Getenv(key)
	if v == "" {
		return fallback
	}
	b, err := strconv.ParseBool(v)
	if err != nil {
		return fallback
	}
	return b
}

func getenvDuration(key string, fallback time.Duration) time.Duration {
	v := os.Getenv(key)
	if v == "" {
		return fallback
	}
	d, err := time.ParseDuration(v)
	if err != nil || d < 0 {
		return fallback
	}
	return d
}
