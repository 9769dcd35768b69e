package config

import (
	"errors"
	"fmt"
	"net"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/pelletier/go-toml/v2"

	"github.com/anime-shed/face-batch-inspector-go/pkg/models"
)

// Duration is a time.Duration written as "30s" in the config file
type Duration struct {
	time.Duration
}

// UnmarshalText parses a Go duration string
func (d *Duration) UnmarshalText(text []byte) error {
	v, err := time.ParseDuration(strings.TrimSpace(string(text)))
	if err != nil {
		return err
	}
	d.Duration = v
	return nil
}

// MarshalText renders the duration as a Go duration string
func (d Duration) MarshalText() ([]byte, error) {
	return []byte(d.Duration.String()), nil
}

type Config struct {
	Server     ServerConfig                 `toml:"server"`
	Statistics StatisticsConfig             `toml:"statistics"`
	Collector  CollectorConfig              `toml:"collector"`
	Labels     map[string]map[string]string `toml:"labels"`
	Export     ExportConfig                 `toml:"export"`
	Sinks      SinksConfig                  `toml:"sinks"`
}

type ServerConfig struct {
	Host               string   `toml:"host"`
	Port               string   `toml:"port"`
	RequestTimeout     Duration `toml:"request_timeout"`
	MaxRequestBodySize int64    `toml:"max_request_body_size"`
}

// StatisticsConfig holds the constants of the statistics engines
type StatisticsConfig struct {
	ValenceThreshold          float64 `toml:"valence_threshold"`
	NeutralFloor              float64 `toml:"neutral_floor"`
	RequireCanonicalAgreement bool    `toml:"require_canonical_agreement"`
	MaxWorkers                int     `toml:"max_workers"`
}

// CollectorConfig decides which backends every image waits for
type CollectorConfig struct {
	AnalysisMode     string   `toml:"analysis_mode"`
	ExpectedBackends []string `toml:"expected_backends"`
}

type ExportConfig struct {
	OutputDir     string `toml:"output_dir"`
	DefaultFormat string `toml:"default_format"`
}

type SinksConfig struct {
	File    FileSinkConfig    `toml:"file"`
	Azure   AzureSinkConfig   `toml:"azure"`
	Kafka   KafkaSinkConfig   `toml:"kafka"`
	Webhook WebhookSinkConfig `toml:"webhook"`
}

type FileSinkConfig struct {
	Enabled bool   `toml:"enabled"`
	Dir     string `toml:"dir"`
}

type AzureSinkConfig struct {
	Enabled     bool   `toml:"enabled"`
	AccountName string `toml:"account_name"`
	AccountKey  string `toml:"account_key"`
	Container   string `toml:"container"`
	Prefix      string `toml:"prefix"`
}

type KafkaSinkConfig struct {
	Enabled bool     `toml:"enabled"`
	Brokers []string `toml:"brokers"`
	Topic   string   `toml:"topic"`
}

type WebhookSinkConfig struct {
	Enabled bool     `toml:"enabled"`
	URL     string   `toml:"url"`
	Timeout Duration `toml:"timeout"`
	Backoff Duration `toml:"backoff"`
}

func (c *Config) ServerAddress() string {
	// Trim any whitespace from host and port
	host := strings.TrimSpace(c.Server.Host)
	port := strings.TrimSpace(c.Server.Port)
	return net.JoinHostPort(host, port)
}

// Default returns the built-in configuration
func Default() *Config {
	return &Config{
		Server: ServerConfig{
			Host:               "0.0.0.0",
			Port:               "8080",
			RequestTimeout:     Duration{30 * time.Second},
			MaxRequestBodySize: 10 * 1024 * 1024, // 10MB
		},
		Statistics: StatisticsConfig{
			ValenceThreshold:          0.1,
			NeutralFloor:              1.0,
			RequireCanonicalAgreement: true,
		},
		Collector: CollectorConfig{
			AnalysisMode:     string(models.ModeMulti),
			ExpectedBackends: []string{string(models.BackendFER), string(models.BackendDeepFace), string(models.BackendFACS)},
		},
		Labels: map[string]map[string]string{},
		Export: ExportConfig{
			OutputDir:     "exports",
			DefaultFormat: string(models.FormatCSV),
		},
		Sinks: SinksConfig{
			File:    FileSinkConfig{Dir: "exports"},
			Webhook: WebhookSinkConfig{Timeout: Duration{30 * time.Second}, Backoff: Duration{time.Second}},
		},
	}
}

// Load builds the configuration from defaults, an optional TOML file, a .env file and the environment.
// An empty path skips the file; a path that does not exist is an error.
func Load(path string) (*Config, error) {
	cfg := Default()

	if path != "" {
		file, err := os.Open(path)
		if err != nil {
			return nil, fmt.Errorf("open config: %w", err)
		}
		defer file.Close()

		decoder := toml.NewDecoder(file)
		if err := decoder.Decode(cfg); err != nil {
			return nil, fmt.Errorf("parse config: %w", err)
		}
	}

	// .env is optional
	_ = godotenv.Load()
	applyEnv(cfg)

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// LoadFromEnv builds the configuration without a config file
func LoadFromEnv() (*Config, error) {
	return Load("")
}

func applyEnv(cfg *Config) {
	cfg.Server.Host = getEnvOrDefault("HOST", cfg.Server.Host)
	cfg.Server.Port = getEnvOrDefault("PORT", cfg.Server.Port)
	cfg.Server.RequestTimeout.Duration = parseDurationOrDefault("REQUEST_TIMEOUT", cfg.Server.RequestTimeout.Duration)
	cfg.Server.MaxRequestBodySize = parseIntOrDefault("MAX_REQUEST_BODY_SIZE", cfg.Server.MaxRequestBodySize)

	cfg.Statistics.ValenceThreshold = parseFloatOrDefault("VALENCE_THRESHOLD", cfg.Statistics.ValenceThreshold)
	cfg.Statistics.NeutralFloor = parseFloatOrDefault("NEUTRAL_FLOOR", cfg.Statistics.NeutralFloor)
	cfg.Statistics.MaxWorkers = int(parseIntOrDefault("MAX_WORKERS", int64(cfg.Statistics.MaxWorkers)))

	cfg.Collector.AnalysisMode = getEnvOrDefault("ANALYSIS_MODE", cfg.Collector.AnalysisMode)
	cfg.Collector.ExpectedBackends = parseListOrDefault("EXPECTED_BACKENDS", cfg.Collector.ExpectedBackends)

	cfg.Export.OutputDir = getEnvOrDefault("OUTPUT_DIR", cfg.Export.OutputDir)
	cfg.Export.DefaultFormat = getEnvOrDefault("DEFAULT_EXPORT_FORMAT", cfg.Export.DefaultFormat)

	if dir := os.Getenv("EXPORT_SINK_DIR"); dir != "" {
		cfg.Sinks.File.Enabled = true
		cfg.Sinks.File.Dir = dir
	}
	if account := os.Getenv("AZURE_STORAGE_ACCOUNT"); account != "" {
		cfg.Sinks.Azure.Enabled = true
		cfg.Sinks.Azure.AccountName = account
		cfg.Sinks.Azure.AccountKey = getEnvOrDefault("AZURE_STORAGE_KEY", cfg.Sinks.Azure.AccountKey)
		cfg.Sinks.Azure.Container = getEnvOrDefault("AZURE_STORAGE_CONTAINER", cfg.Sinks.Azure.Container)
	}
	if brokers := parseListOrDefault("KAFKA_BROKERS", nil); len(brokers) > 0 {
		cfg.Sinks.Kafka.Enabled = true
		cfg.Sinks.Kafka.Brokers = brokers
		cfg.Sinks.Kafka.Topic = getEnvOrDefault("KAFKA_TOPIC", cfg.Sinks.Kafka.Topic)
	}
	if url := os.Getenv("WEBHOOK_URL"); url != "" {
		cfg.Sinks.Webhook.Enabled = true
		cfg.Sinks.Webhook.URL = url
	}
}

// Validate checks ranges and that every enabled sink is fully configured
func (c *Config) Validate() error {
	// Validate port is numeric and in range
	p, err := strconv.Atoi(strings.TrimSpace(c.Server.Port))
	if err != nil || p < 1 || p > 65535 {
		return fmt.Errorf("invalid PORT: %q", c.Server.Port)
	}
	if c.Server.MaxRequestBodySize <= 0 {
		return fmt.Errorf("MAX_REQUEST_BODY_SIZE must be > 0 (got %d)", c.Server.MaxRequestBodySize)
	}
	if c.Server.RequestTimeout.Duration <= 0 {
		return fmt.Errorf("request timeout must be > 0 (got %s)", c.Server.RequestTimeout.Duration)
	}

	if c.Statistics.ValenceThreshold < 0 {
		return fmt.Errorf("valence threshold must be >= 0 (got %g)", c.Statistics.ValenceThreshold)
	}
	if c.Statistics.NeutralFloor <= 0 {
		return fmt.Errorf("neutral floor must be > 0 (got %g)", c.Statistics.NeutralFloor)
	}
	if c.Statistics.MaxWorkers < 0 {
		return fmt.Errorf("max workers must be >= 0 (got %d)", c.Statistics.MaxWorkers)
	}

	if !models.AnalysisMode(c.Collector.AnalysisMode).IsValid() {
		return fmt.Errorf("invalid analysis mode: %q", c.Collector.AnalysisMode)
	}
	if _, err := c.ExpectedBackendIDs(); err != nil {
		return err
	}
	for backend := range c.Labels {
		if _, ok := models.ParseBackendID(backend); !ok {
			return fmt.Errorf("labels: unknown backend %q", backend)
		}
	}
	if !isExportFormat(c.Export.DefaultFormat) {
		return fmt.Errorf("invalid default export format: %q", c.Export.DefaultFormat)
	}

	return c.Sinks.validate()
}

func (s SinksConfig) validate() error {
	var errs []error
	if s.File.Enabled && s.File.Dir == "" {
		errs = append(errs, errors.New("file sink: dir is required"))
	}
	if s.Azure.Enabled && (s.Azure.AccountName == "" || s.Azure.AccountKey == "" || s.Azure.Container == "") {
		errs = append(errs, errors.New("azure sink: account_name, account_key and container are required"))
	}
	if s.Kafka.Enabled && (len(s.Kafka.Brokers) == 0 || s.Kafka.Topic == "") {
		errs = append(errs, errors.New("kafka sink: brokers and topic are required"))
	}
	if s.Webhook.Enabled && s.Webhook.URL == "" {
		errs = append(errs, errors.New("webhook sink: url is required"))
	}
	return errors.Join(errs...)
}

// ExpectedBackendIDs parses the collector's expected backends
func (c *Config) ExpectedBackendIDs() ([]models.BackendID, error) {
	if len(c.Collector.ExpectedBackends) == 0 {
		return nil, errors.New("at least one expected backend is required")
	}
	ids := make([]models.BackendID, 0, len(c.Collector.ExpectedBackends))
	for _, raw := range c.Collector.ExpectedBackends {
		id, ok := models.ParseBackendID(strings.TrimSpace(raw))
		if !ok {
			return nil, fmt.Errorf("unknown expected backend: %q", raw)
		}
		ids = append(ids, id)
	}
	return ids, nil
}

func isExportFormat(s string) bool {
	for _, f := range models.ExportFormats {
		if string(f) == s {
			return true
		}
	}
	return false
}

func getEnvOrDefault(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func parseDurationOrDefault(key string, defaultValue time.Duration) time.Duration {
	if value := os.Getenv(key); value != "" {
		if duration, err := time.ParseDuration(strings.TrimSpace(value)); err == nil && duration > 0 {
			return duration
		}
	}
	return defaultValue
}

func parseIntOrDefault(key string, defaultValue int64) int64 {
	if value := os.Getenv(key); value != "" {
		if intValue, err := strconv.ParseInt(strings.TrimSpace(value), 10, 64); err == nil {
			return intValue
		}
	}
	return defaultValue
}

func parseFloatOrDefault(key string, defaultValue float64) float64 {
	if value := os.Getenv(key); value != "" {
		if f, err := strconv.ParseFloat(strings.TrimSpace(value), 64); err == nil {
			return f
		}
	}
	return defaultValue
}

func parseListOrDefault(key string, defaultValue []string) []string {
	value := os.Getenv(key)
	if value == "" {
		return defaultValue
	}
	var out []string
	for _, part := range strings.Split(value, ",") {
		if p := strings.TrimSpace(part); p != "" {
			out = append(out, p)
		}
	}
	return out
}
