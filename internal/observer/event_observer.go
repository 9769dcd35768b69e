package observer

import (
	"context"
	"sync"
	"time"

	"github.com/sirupsen/logrus"
)

// BatchEvent represents something that happened to the batch
type BatchEvent struct {
	EventType      EventType              `json:"event_type"`
	Timestamp      time.Time              `json:"timestamp"`
	RunID          string                 `json:"run_id"`
	SequenceNumber int                    `json:"sequence_number,omitempty"`
	Backend        string                 `json:"backend,omitempty"`
	Format         string                 `json:"format,omitempty"`
	Sink           string                 `json:"sink,omitempty"`
	ProcessingTime time.Duration          `json:"processing_time,omitempty"`
	ErrorMessage   string                 `json:"error_message,omitempty"`
	Metadata       map[string]interface{} `json:"metadata,omitempty"`
}

// EventType represents the type of batch event
type EventType string

const (
	// RunStarted when the batch is reset for a new run
	RunStarted EventType = "run_started"
	// ResultReceived when one backend result for one image is accepted
	ResultReceived EventType = "result_received"
	// ResultRejected when a submission cannot be accepted
	ResultRejected EventType = "result_rejected"
	// RecordAppended when an image is reconciled and stored
	RecordAppended EventType = "record_appended"
	// ExportGenerated when a projector produced an artifact
	ExportGenerated EventType = "export_generated"
	// ExportPublished when an artifact reached a sink
	ExportPublished EventType = "export_published"
	// ExportFailed when projection or publishing failed
	ExportFailed EventType = "export_failed"
)

// Observer defines the interface for event observers
type Observer interface {
	OnEvent(ctx context.Context, event BatchEvent)
	GetObserverName() string
}

// Subject defines the interface for event publishers
type Subject interface {
	Subscribe(observer Observer)
	Unsubscribe(observer Observer)
	NotifyObservers(ctx context.Context, event BatchEvent)
}

// LoggingObserver logs batch events
type LoggingObserver struct {
	logger *logrus.Logger
}

// NewLoggingObserver creates a new logging observer
func NewLoggingObserver(logger *logrus.Logger) Observer {
	return &LoggingObserver{
		logger: logger,
	}
}

// OnEvent handles batch events by logging them
func (o *LoggingObserver) OnEvent(ctx context.Context, event BatchEvent) {
	fields := logrus.Fields{
		"event_type": event.EventType,
		"run_id":     event.RunID,
	}
	if event.SequenceNumber != 0 {
		fields["sequence_number"] = event.SequenceNumber
	}
	if event.Backend != "" {
		fields["backend"] = event.Backend
	}
	if event.Format != "" {
		fields["format"] = event.Format
	}
	if event.Sink != "" {
		fields["sink"] = event.Sink
	}
	if event.ProcessingTime > 0 {
		fields["processing_time_ms"] = event.ProcessingTime.Milliseconds()
	}
	if event.ErrorMessage != "" {
		fields["error"] = event.ErrorMessage
	}
	for k, v := range event.Metadata {
		fields[k] = v
	}

	entry := o.logger.WithFields(fields)
	switch event.EventType {
	case RunStarted:
		entry.Info("Batch run started")
	case ResultReceived:
		entry.Debug("Backend result received")
	case ResultRejected:
		entry.Warn("Backend result rejected")
	case RecordAppended:
		entry.Debug("Image record appended")
	case ExportGenerated:
		entry.Info("Export generated")
	case ExportPublished:
		entry.Info("Export published")
	case ExportFailed:
		entry.Error("Export failed")
	default:
		entry.Info("Batch event occurred")
	}
}

// GetObserverName returns the observer name
func (o *LoggingObserver) GetObserverName() string {
	return "logging_observer"
}

// MetricsObserver counts batch events
type MetricsObserver struct {
	mu               sync.RWMutex
	runsStarted      int64
	resultsReceived  int64
	resultsRejected  int64
	recordsAppended  int64
	exportsGenerated int64
	exportsPublished int64
	exportsFailed    int64
	totalExportTime  time.Duration
	exportsByFormat  map[string]int64
	resultsByBackend map[string]int64
	lastRunID        string
}

// NewMetricsObserver creates a new metrics observer
func NewMetricsObserver() *MetricsObserver {
	return &MetricsObserver{
		exportsByFormat:  make(map[string]int64),
		resultsByBackend: make(map[string]int64),
	}
}

// OnEvent handles batch events by collecting metrics
func (o *MetricsObserver) OnEvent(ctx context.Context, event BatchEvent) {
	o.mu.Lock()
	defer o.mu.Unlock()

	switch event.EventType {
	case RunStarted:
		o.runsStarted++
		o.lastRunID = event.RunID
	case ResultReceived:
		o.resultsReceived++
		o.resultsByBackend[event.Backend]++
	case ResultRejected:
		o.resultsRejected++
	case RecordAppended:
		o.recordsAppended++
	case ExportGenerated:
		o.exportsGenerated++
		o.totalExportTime += event.ProcessingTime
		o.exportsByFormat[event.Format]++
	case ExportPublished:
		o.exportsPublished++
	case ExportFailed:
		o.exportsFailed++
	}
}

// GetObserverName returns the observer name
func (o *MetricsObserver) GetObserverName() string {
	return "metrics_observer"
}

// GetMetrics returns current metrics
func (o *MetricsObserver) GetMetrics() map[string]interface{} {
	o.mu.RLock()
	defer o.mu.RUnlock()

	avgExportTime := time.Duration(0)
	if o.exportsGenerated > 0 {
		avgExportTime = o.totalExportTime / time.Duration(o.exportsGenerated)
	}

	byFormat := make(map[string]int64, len(o.exportsByFormat))
	for k, v := range o.exportsByFormat {
		byFormat[k] = v
	}
	byBackend := make(map[string]int64, len(o.resultsByBackend))
	for k, v := range o.resultsByBackend {
		byBackend[k] = v
	}

	return map[string]interface{}{
		"runs_started":       o.runsStarted,
		"last_run_id":        o.lastRunID,
		"results_received":   o.resultsReceived,
		"results_rejected":   o.resultsRejected,
		"results_by_backend": byBackend,
		"records_appended":   o.recordsAppended,
		"exports_generated":  o.exportsGenerated,
		"exports_by_format":  byFormat,
		"exports_published":  o.exportsPublished,
		"exports_failed":     o.exportsFailed,
		"avg_export_time_ms": avgExportTime.Milliseconds(),
	}
}

// EventPublisher implements the Subject interface
type EventPublisher struct {
	mu        sync.RWMutex
	observers []Observer
}

// NewEventPublisher creates a new event publisher
func NewEventPublisher() *EventPublisher {
	return &EventPublisher{
		observers: make([]Observer, 0),
	}
}

// Subscribe adds an observer
func (p *EventPublisher) Subscribe(observer Observer) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.observers = append(p.observers, observer)
}

// Unsubscribe removes an observer
func (p *EventPublisher) Unsubscribe(observer Observer) {
	p.mu.Lock()
	defer p.mu.Unlock()

	for i, obs := range p.observers {
		if obs.GetObserverName() == observer.GetObserverName() {
			p.observers = append(p.observers[:i], p.observers[i+1:]...)
			break
		}
	}
}

// NotifyObservers delivers the event to every observer in subscription order.
// Delivery is synchronous so counters are current when the triggering call returns.
func (p *EventPublisher) NotifyObservers(ctx context.Context, event BatchEvent) {
	if event.Timestamp.IsZero() {
		event.Timestamp = time.Now().UTC()
	}

	p.mu.RLock()
	observers := make([]Observer, len(p.observers))
	copy(observers, p.observers)
	p.mu.RUnlock()

	for _, obs := range observers {
		notify(ctx, obs, event)
	}
}

func notify(ctx context.Context, obs Observer, event BatchEvent) {
	defer func() {
		if r := recover(); r != nil {
			logrus.WithField("observer", obs.GetObserverName()).
				WithField("panic", r).
				Error("Observer panicked while handling event")
		}
	}()
	obs.OnEvent(ctx, event)
}
