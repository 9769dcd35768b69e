package container

import (
	"fmt"
	"net/http"

	"github.com/google/uuid"

	"github.com/anime-shed/face-batch-inspector-go/internal/analyzer"
	"github.com/anime-shed/face-batch-inspector-go/internal/collector"
	"github.com/anime-shed/face-batch-inspector-go/internal/config"
	"github.com/anime-shed/face-batch-inspector-go/internal/factory"
	"github.com/anime-shed/face-batch-inspector-go/internal/logger"
	"github.com/anime-shed/face-batch-inspector-go/internal/normalizer"
	"github.com/anime-shed/face-batch-inspector-go/internal/observer"
	"github.com/anime-shed/face-batch-inspector-go/internal/repository"
	"github.com/anime-shed/face-batch-inspector-go/internal/service"
	"github.com/anime-shed/face-batch-inspector-go/internal/strategy"
	"github.com/anime-shed/face-batch-inspector-go/internal/transport"
	"github.com/anime-shed/face-batch-inspector-go/pkg/models"
)

// Container holds all application dependencies
type Container struct {
	config       *config.Config
	store        repository.BatchRepository
	collector    *collector.Collector
	events       *observer.EventPublisher
	metrics      *observer.MetricsObserver
	batchService service.BatchService
	handler      http.Handler
}

// NewContainer creates a new dependency injection container
func NewContainer(cfg *config.Config) (*Container, error) {
	expected, err := cfg.ExpectedBackendIDs()
	if err != nil {
		return nil, err
	}
	mode := models.AnalysisMode(cfg.Collector.AnalysisMode)

	// Build dependency graph
	norm, err := NewNormalizer(cfg)
	if err != nil {
		return nil, err
	}
	// Results may arrive before any explicit run start
	store := repository.NewMemoryBatchRepository(uuid.NewString())

	opts := StatisticsOptions(cfg)
	engine := analyzer.NewComparisonEngine(opts)
	summary := analyzer.NewSummaryCalculator(opts)

	events := observer.NewEventPublisher()
	metrics := observer.NewMetricsObserver()
	events.Subscribe(observer.NewLoggingObserver(logger.Logger))
	events.Subscribe(metrics)

	comparisons := strategy.NewComparisonContext(engine)
	coll, err := collector.New(norm, store, comparisons, events, mode, expected)
	if err != nil {
		return nil, fmt.Errorf("failed to create collector: %w", err)
	}

	components := factory.NewComponentFactory(cfg.Sinks, store.RunID)
	sinks, err := components.SinkFactory.CreateConfiguredSinks()
	if err != nil {
		return nil, fmt.Errorf("failed to create sinks: %w", err)
	}

	batchService := service.NewBatchService(service.Dependencies{
		Store:           store,
		Collector:       coll,
		Summary:         summary,
		Comparison:      engine,
		Projectors:      components.ProjectorFactory,
		Sinks:           sinks,
		Events:          events,
		DefaultMode:     mode,
		DefaultBackends: expected,
	})
	handler := transport.NewHandler(batchService, metrics, cfg)

	return &Container{
		config:       cfg,
		store:        store,
		collector:    coll,
		events:       events,
		metrics:      metrics,
		batchService: batchService,
		handler:      handler,
	}, nil
}

// NewNormalizer builds the normalizer with each backend's extra label mappings
func NewNormalizer(cfg *config.Config) (*normalizer.Normalizer, error) {
	base := normalizer.DefaultLabelTable()
	n := normalizer.New(base)
	for backend, extra := range cfg.Labels {
		id, ok := models.ParseBackendID(backend)
		if !ok {
			return nil, fmt.Errorf("labels: unknown backend %q", backend)
		}
		n.SetTable(id, base.With(extra))
	}
	return n, nil
}

// StatisticsOptions maps the statistics section onto engine options
func StatisticsOptions(cfg *config.Config) analyzer.StatisticsOptions {
	opts := analyzer.DefaultStatisticsOptions().
		WithValenceThreshold(cfg.Statistics.ValenceThreshold).
		WithNeutralFloor(cfg.Statistics.NeutralFloor).
		WithMaxWorkers(cfg.Statistics.MaxWorkers)
	opts.RequireCanonicalAgreement = cfg.Statistics.RequireCanonicalAgreement
	return opts
}

// Handler returns the HTTP handler
func (c *Container) Handler() http.Handler {
	return c.handler
}

// Config returns the configuration
func (c *Container) Config() *config.Config {
	return c.config
}

// Service returns the batch service
func (c *Container) Service() service.BatchService {
	return c.batchService
}

// Metrics returns the event counters
func (c *Container) Metrics() *observer.MetricsObserver {
	return c.metrics
}

// Close releases sink connections
func (c *Container) Close() error {
	return c.batchService.Close()
}
