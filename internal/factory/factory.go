package factory

import (
	"fmt"
	"strings"

	"github.com/anime-shed/face-batch-inspector-go/internal/config"
	"github.com/anime-shed/face-batch-inspector-go/internal/export"
	"github.com/anime-shed/face-batch-inspector-go/internal/storage"
	"github.com/anime-shed/face-batch-inspector-go/pkg/models"
)

// SinkType represents the destinations an artifact can be published to
type SinkType string

const (
	// FileSink writes into a local directory
	FileSink SinkType = "file"
	// AzureSink uploads to Azure Blob Storage
	AzureSink SinkType = "azure"
	// KafkaSink publishes to a Kafka topic
	KafkaSink SinkType = "kafka"
	// WebhookSink POSTs to an HTTP endpoint
	WebhookSink SinkType = "webhook"
)

// ProjectorFactory creates export projectors
type ProjectorFactory interface {
	CreateProjector(format models.ExportFormat) (export.Projector, error)
}

// SinkFactory creates artifact sinks
type SinkFactory interface {
	CreateSink(sinkType SinkType) (storage.ArtifactSink, error)
	CreateConfiguredSinks() ([]storage.ArtifactSink, error)
}

// projectorFactory implements ProjectorFactory
type projectorFactory struct{}

// NewProjectorFactory creates a new projector factory
func NewProjectorFactory() ProjectorFactory {
	return &projectorFactory{}
}

// CreateProjector creates the projector for a format
func (f *projectorFactory) CreateProjector(format models.ExportFormat) (export.Projector, error) {
	switch models.ExportFormat(strings.ToLower(string(format))) {
	case models.FormatCSV:
		return export.NewCSVProjector(), nil
	case models.FormatJSON:
		return export.NewRawJSONProjector(), nil
	case models.FormatEnriched:
		return export.NewEnrichedJSONProjector(), nil
	case models.FormatXLSX:
		return export.NewXLSXProjector(), nil
	case models.FormatParquet:
		return export.NewParquetProjector(), nil
	default:
		return nil, fmt.Errorf("unsupported export format: %s", format)
	}
}

// sinkFactory implements SinkFactory from the sinks section of the configuration
type sinkFactory struct {
	cfg   config.SinksConfig
	runID func() string
}

// NewSinkFactory creates a new sink factory. runID labels published messages.
func NewSinkFactory(cfg config.SinksConfig, runID func() string) SinkFactory {
	return &sinkFactory{cfg: cfg, runID: runID}
}

// CreateSink creates a sink based on the specified type
func (f *sinkFactory) CreateSink(sinkType SinkType) (storage.ArtifactSink, error) {
	switch sinkType {
	case FileSink:
		return storage.NewFileSink(f.cfg.File.Dir)
	case AzureSink:
		az := f.cfg.Azure
		return storage.NewAzureArtifactSink(az.AccountName, az.AccountKey, az.Container, az.Prefix)
	case KafkaSink:
		return storage.NewKafkaArtifactSink(f.cfg.Kafka.Brokers, f.cfg.Kafka.Topic, f.runID)
	case WebhookSink:
		return storage.NewWebhookSink(f.cfg.Webhook.URL, f.cfg.Webhook.Timeout.Duration, f.cfg.Webhook.Backoff.Duration)
	default:
		return nil, fmt.Errorf("unsupported sink type: %s", sinkType)
	}
}

// CreateConfiguredSinks creates every enabled sink in a fixed order
func (f *sinkFactory) CreateConfiguredSinks() ([]storage.ArtifactSink, error) {
	enabled := []struct {
		on   bool
		kind SinkType
	}{
		{f.cfg.File.Enabled, FileSink},
		{f.cfg.Azure.Enabled, AzureSink},
		{f.cfg.Kafka.Enabled, KafkaSink},
		{f.cfg.Webhook.Enabled, WebhookSink},
	}

	var sinks []storage.ArtifactSink
	for _, e := range enabled {
		if !e.on {
			continue
		}
		sink, err := f.CreateSink(e.kind)
		if err != nil {
			return nil, fmt.Errorf("%s sink: %w", e.kind, err)
		}
		sinks = append(sinks, sink)
	}
	return sinks, nil
}

// ComponentFactory combines all factories
type ComponentFactory struct {
	ProjectorFactory ProjectorFactory
	SinkFactory      SinkFactory
}

// NewComponentFactory creates a new component factory
func NewComponentFactory(cfg config.SinksConfig, runID func() string) *ComponentFactory {
	return &ComponentFactory{
		ProjectorFactory: NewProjectorFactory(),
		SinkFactory:      NewSinkFactory(cfg, runID),
	}
}
