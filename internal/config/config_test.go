package config

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/anime-shed/face-batch-inspector-go/pkg/models"
)

var envKeys = []string{
	"HOST", "PORT", "REQUEST_TIMEOUT", "MAX_REQUEST_BODY_SIZE",
	"VALENCE_THRESHOLD", "NEUTRAL_FLOOR", "MAX_WORKERS",
	"ANALYSIS_MODE", "EXPECTED_BACKENDS", "OUTPUT_DIR", "DEFAULT_EXPORT_FORMAT",
	"EXPORT_SINK_DIR", "AZURE_STORAGE_ACCOUNT", "AZURE_STORAGE_KEY", "AZURE_STORAGE_CONTAINER",
	"KAFKA_BROKERS", "KAFKA_TOPIC", "WEBHOOK_URL",
}

func clearEnv(t *testing.T) {
	t.Helper()
	for _, k := range envKeys {
		t.Setenv(k, "")
	}
}

func writeConfig(t *testing.T, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "facebatch.toml")
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		t.Fatalf("write config: %v", err)
	}
	return path
}

func TestLoad_Defaults(t *testing.T) {
	clearEnv(t)
	cfg, err := Load("")
	if err != nil {
		t.Fatalf("Expected no error, got %v", err)
	}
	if cfg.ServerAddress() != "0.0.0.0:8080" {
		t.Errorf("Expected 0.0.0.0:8080, got %s", cfg.ServerAddress())
	}
	if cfg.Statistics.ValenceThreshold != 0.1 || cfg.Statistics.NeutralFloor != 1.0 {
		t.Errorf("Expected threshold 0.1 and floor 1.0, got %g and %g", cfg.Statistics.ValenceThreshold, cfg.Statistics.NeutralFloor)
	}
	ids, err := cfg.ExpectedBackendIDs()
	if err != nil || len(ids) != 3 {
		t.Errorf("Expected 3 default backends, got %v (%v)", ids, err)
	}
	if cfg.Sinks.File.Enabled || cfg.Sinks.Azure.Enabled || cfg.Sinks.Kafka.Enabled || cfg.Sinks.Webhook.Enabled {
		t.Error("Expected every sink disabled by default")
	}
}

func TestLoad_FileThenEnv(t *testing.T) {
	clearEnv(t)
	path := writeConfig(t, `
[server]
port = "9090"
request_timeout = "45s"

[statistics]
valence_threshold = 0.2
neutral_floor = 0.5

[collector]
analysis_mode = "single"
expected_backends = ["facs_delta"]

[labels.deepface]
joy = "happiness"

[export]
default_format = "xlsx"

[sinks.webhook]
enabled = true
url = "http://collector.local/hook"
timeout = "5s"
`)
	t.Setenv("PORT", "7070")
	t.Setenv("KAFKA_BROKERS", "k1:9092, k2:9092")
	t.Setenv("KAFKA_TOPIC", "exports")

	cfg, err := Load(path)
	if err != nil {
		t.Fatalf("Expected no error, got %v", err)
	}

	tests := []struct {
		name     string
		got      interface{}
		expected interface{}
	}{
		{"env port wins", cfg.Server.Port, "7070"},
		{"file timeout", cfg.Server.RequestTimeout.Duration, 45 * time.Second},
		{"file threshold", cfg.Statistics.ValenceThreshold, 0.2},
		{"file floor", cfg.Statistics.NeutralFloor, 0.5},
		{"file mode", cfg.Collector.AnalysisMode, "single"},
		{"file label", cfg.Labels["deepface"]["joy"], "happiness"},
		{"file format", cfg.Export.DefaultFormat, "xlsx"},
		{"webhook enabled", cfg.Sinks.Webhook.Enabled, true},
		{"webhook timeout", cfg.Sinks.Webhook.Timeout.Duration, 5 * time.Second},
		{"webhook default backoff", cfg.Sinks.Webhook.Backoff.Duration, time.Second},
		{"kafka enabled by env", cfg.Sinks.Kafka.Enabled, true},
		{"kafka topic", cfg.Sinks.Kafka.Topic, "exports"},
		{"kafka broker count", len(cfg.Sinks.Kafka.Brokers), 2},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if tt.got != tt.expected {
				t.Errorf("Expected %v, got %v", tt.expected, tt.got)
			}
		})
	}

	ids, _ := cfg.ExpectedBackendIDs()
	if len(ids) != 1 || ids[0] != models.BackendFACSDelta {
		t.Errorf("Expected [facs_delta], got %v", ids)
	}
}

func TestLoad_Errors(t *testing.T) {
	tests := []struct {
		name     string
		file     string
		env      map[string]string
		contains string
	}{
		{"bad port", "", map[string]string{"PORT": "99999"}, "invalid PORT"},
		{"zero body size", "", map[string]string{"MAX_REQUEST_BODY_SIZE": "0"}, "MAX_REQUEST_BODY_SIZE"},
		{"bad mode", "", map[string]string{"ANALYSIS_MODE": "dual"}, "invalid analysis mode"},
		{"unknown backend", "", map[string]string{"EXPECTED_BACKENDS": "fer,openface"}, "unknown expected backend"},
		{"bad format", "", map[string]string{"DEFAULT_EXPORT_FORMAT": "pdf"}, "invalid default export format"},
		{"negative floor", "", map[string]string{"NEUTRAL_FLOOR": "-1"}, "neutral floor"},
		{"azure missing key", "", map[string]string{"AZURE_STORAGE_ACCOUNT": "acct"}, "azure sink"},
		{"kafka missing topic", "", map[string]string{"KAFKA_BROKERS": "k1:9092"}, "kafka sink"},
		{"labels for unknown backend", "[labels.openface]\nhappy = \"happiness\"\n", nil, "unknown backend"},
		{"malformed toml", "[server\nport = 1", nil, "parse config"},
		{"bad duration", "[server]\nrequest_timeout = \"soon\"\n", nil, "parse config"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			clearEnv(t)
			for k, v := range tt.env {
				t.Setenv(k, v)
			}
			path := ""
			if tt.file != "" {
				path = writeConfig(t, tt.file)
			}
			_, err := Load(path)
			if err == nil {
				t.Fatal("Expected an error")
			}
			if !strings.Contains(err.Error(), tt.contains) {
				t.Errorf("Expected error containing %q, got %v", tt.contains, err)
			}
		})
	}
}

func TestLoad_MissingFile(t *testing.T) {
	clearEnv(t)
	if _, err := Load(filepath.Join(t.TempDir(), "absent.toml")); err == nil {
		t.Error("Expected an error for a missing config file")
	}
}
