package service

import (
	"context"
	"errors"
	"io"
	"time"

	"github.com/google/uuid"
	"github.com/sirupsen/logrus"

	"github.com/anime-shed/face-batch-inspector-go/internal/analyzer"
	"github.com/anime-shed/face-batch-inspector-go/internal/collector"
	apperrors "github.com/anime-shed/face-batch-inspector-go/internal/errors"
	"github.com/anime-shed/face-batch-inspector-go/internal/factory"
	"github.com/anime-shed/face-batch-inspector-go/internal/logger"
	"github.com/anime-shed/face-batch-inspector-go/internal/observer"
	"github.com/anime-shed/face-batch-inspector-go/internal/repository"
	"github.com/anime-shed/face-batch-inspector-go/internal/schema"
	"github.com/anime-shed/face-batch-inspector-go/internal/storage"
	"github.com/anime-shed/face-batch-inspector-go/pkg/models"
	"github.com/anime-shed/face-batch-inspector-go/pkg/validation"
)

// BatchService is the application boundary over the batch: ingest, statistics and export
type BatchService interface {
	// Run lifecycle
	StartRun(ctx context.Context, req models.StartRunRequest) (*models.StartRunResponse, error)
	Submit(ctx context.Context, sub models.ResultSubmission) (*models.SubmissionResponse, error)
	Settle(ctx context.Context) (*models.SettleResponse, error)

	// Read side
	RunID() string
	Records() []models.BatchRecord
	Schema() models.Schema
	Summary() *models.SummaryResponse
	Snapshot() models.Snapshot

	// Export
	Export(ctx context.Context, format models.ExportFormat) (models.Artifact, error)
	Publish(ctx context.Context, format models.ExportFormat) (*models.PublishResponse, error)

	// Close releases sink connections
	Close() error
}

// Dependencies are the collaborators of the batch service
type Dependencies struct {
	Store      repository.BatchRepository
	Collector  *collector.Collector
	Summary    analyzer.SummaryCalculator
	Comparison analyzer.ComparisonEngine
	Projectors factory.ProjectorFactory
	Sinks      []storage.ArtifactSink
	Events     observer.Subject

	// Defaults applied when a run is started without them
	DefaultMode     models.AnalysisMode
	DefaultBackends []models.BackendID
}

type batchService struct {
	deps       Dependencies
	submission *validation.SubmissionValidator
	payload    *validation.PayloadValidator
	newRunID   func() string
}

// NewBatchService creates a new batch service
func NewBatchService(deps Dependencies) BatchService {
	return &batchService{
		deps:       deps,
		submission: validation.NewSubmissionValidator(),
		payload:    validation.NewPayloadValidator(),
		newRunID:   uuid.NewString,
	}
}

// StartRun resets the batch and configures the collector for a new run
func (s *batchService) StartRun(ctx context.Context, req models.StartRunRequest) (*models.StartRunResponse, error) {
	mode := req.AnalysisMode
	if mode == "" {
		mode = s.deps.DefaultMode
	}
	expected := req.ExpectedBackends
	if len(expected) == 0 {
		expected = s.deps.DefaultBackends
	}

	runID := s.newRunID()
	if err := s.deps.Collector.Restart(runID, mode, expected); err != nil {
		return nil, apperrors.NewValidationError("invalid run configuration", err)
	}

	backends := s.deps.Collector.Expected()
	logger.WithFields(logrus.Fields{
		"run_id":            runID,
		"analysis_mode":     mode,
		"expected_backends": backends,
	}).Info("Batch run started")

	s.notify(ctx, observer.BatchEvent{
		EventType: observer.RunStarted,
		RunID:     runID,
		Metadata: map[string]interface{}{
			"analysis_mode":     string(mode),
			"expected_backends": len(backends),
		},
	})

	return &models.StartRunResponse{
		RunID:            runID,
		AnalysisMode:     mode,
		ExpectedBackends: backends,
	}, nil
}

// Submit files one backend result. Payload sanity issues come back as warnings.
func (s *batchService) Submit(ctx context.Context, sub models.ResultSubmission) (*models.SubmissionResponse, error) {
	fields := logrus.Fields{
		"run_id":          s.deps.Store.RunID(),
		"sequence_number": sub.SequenceNumber,
		"backend":         sub.Backend,
	}

	if err := s.submission.Validate(sub); err != nil {
		logger.WithError(err).WithFields(fields).Warn("Submission rejected")
		return nil, err
	}

	outcome, err := s.deps.Collector.Submit(ctx, sub)
	if err != nil {
		appErr := collectorError(err)
		logger.WithError(appErr).WithFields(fields).Warn("Submission rejected")
		return nil, appErr
	}

	issues := s.payload.Validate(outcome.Result)
	for _, issue := range issues {
		logger.WithFields(fields).WithFields(logrus.Fields{
			"issue": issue.Type,
			"field": issue.Field,
		}).Warn(issue.Message)
	}
	if msg := outcome.Result.ErrorMessage(); msg != "" {
		logger.WithFields(fields).WithField("error_message", msg).Debug("Backend reported an error result")
	}

	return &models.SubmissionResponse{
		SequenceNumber: outcome.SequenceNumber,
		Backend:        string(sub.Backend),
		Completed:      outcome.Completed,
		Pending:        outcome.Pending,
		Warnings:       s.payload.ConvertIssuesToMessages(issues),
	}, nil
}

// Settle appends images still waiting for a backend
func (s *batchService) Settle(ctx context.Context) (*models.SettleResponse, error) {
	settled, err := s.deps.Collector.Settle(ctx)
	if err != nil {
		return nil, collectorError(err)
	}

	logger.WithFields(logrus.Fields{
		"run_id":  s.deps.Store.RunID(),
		"settled": settled,
	}).Info("Pending images settled")

	return &models.SettleResponse{Settled: settled, Total: s.deps.Store.Len()}, nil
}

func (s *batchService) RunID() string {
	return s.deps.Store.RunID()
}

func (s *batchService) Records() []models.BatchRecord {
	return s.deps.Store.All()
}

func (s *batchService) Schema() models.Schema {
	return schema.Discover(s.deps.Store.All())
}

// Summary runs both statistics engines over the current batch. An empty batch yields zeroed statistics.
func (s *batchService) Summary() *models.SummaryResponse {
	snap := s.Snapshot()
	return &models.SummaryResponse{
		RunID:       snap.RunID,
		GeneratedAt: snap.GeneratedAt.UTC().Format(time.RFC3339),
		Schema:      snap.Schema,
		Statistics:  snap.Summary,
		Comparison:  snap.Comparison,
	}
}

// Snapshot captures the batch for projection. The generation time is the last batch mutation,
// so exporting an unchanged batch twice yields identical artifacts.
func (s *batchService) Snapshot() models.Snapshot {
	records := s.deps.Store.All()
	return models.Snapshot{
		RunID:       s.deps.Store.RunID(),
		Records:     records,
		Schema:      schema.Discover(records),
		Summary:     s.deps.Summary.Summarize(records),
		Comparison:  s.deps.Comparison.CompareBatch(records),
		GeneratedAt: s.deps.Store.UpdatedAt(),
	}
}

// Export renders the batch in one format
func (s *batchService) Export(ctx context.Context, format models.ExportFormat) (models.Artifact, error) {
	start := time.Now()

	projector, err := s.deps.Projectors.CreateProjector(format)
	if err != nil {
		return models.Artifact{}, apperrors.NewValidationError("unsupported export format", err).WithDetails(string(format))
	}

	snap := s.Snapshot()
	art, err := projector.Project(snap)
	if err != nil {
		s.notify(ctx, observer.BatchEvent{
			EventType:    observer.ExportFailed,
			Format:       string(projector.Format()),
			ErrorMessage: err.Error(),
		})
		logger.WithError(err).WithFields(logrus.Fields{
			"run_id": snap.RunID,
			"format": projector.Format(),
		}).Error("Export failed")

		var appErr *apperrors.AppError
		if errors.As(err, &appErr) {
			return models.Artifact{}, err
		}
		return models.Artifact{}, apperrors.NewProcessingError("export failed", err)
	}

	elapsed := time.Since(start)
	s.notify(ctx, observer.BatchEvent{
		EventType:      observer.ExportGenerated,
		Format:         string(art.Format),
		ProcessingTime: elapsed,
		Metadata:       map[string]interface{}{"bytes": art.Size(), "images": len(snap.Records)},
	})
	logger.WithFields(logrus.Fields{
		"run_id":             snap.RunID,
		"format":             art.Format,
		"filename":           art.Filename,
		"bytes":              art.Size(),
		"processing_time_ms": elapsed.Milliseconds(),
	}).Info("Export generated")

	return art, nil
}

// Publish renders the batch and pushes it to every configured sink in order.
// One failing sink does not stop the others; the call fails only when none succeeded.
func (s *batchService) Publish(ctx context.Context, format models.ExportFormat) (*models.PublishResponse, error) {
	if len(s.deps.Sinks) == 0 {
		return nil, apperrors.NewValidationError("no artifact sinks configured", nil)
	}

	art, err := s.Export(ctx, format)
	if err != nil {
		return nil, err
	}

	resp := &models.PublishResponse{
		Artifact:  art,
		Locations: make(map[string]string),
	}
	var errs []error
	for _, sink := range s.deps.Sinks {
		start := time.Now()
		location, err := sink.Publish(ctx, art)
		fields := logrus.Fields{
			"run_id":   s.deps.Store.RunID(),
			"format":   art.Format,
			"sink":     sink.Name(),
			"filename": art.Filename,
		}
		if err != nil {
			if resp.Failures == nil {
				resp.Failures = make(map[string]string)
			}
			resp.Failures[sink.Name()] = err.Error()
			errs = append(errs, err)
			s.notify(ctx, observer.BatchEvent{
				EventType:    observer.ExportFailed,
				Format:       string(art.Format),
				Sink:         sink.Name(),
				ErrorMessage: err.Error(),
			})
			logger.WithError(err).WithFields(fields).Error("Artifact publish failed")
			continue
		}

		resp.Locations[sink.Name()] = location
		s.notify(ctx, observer.BatchEvent{
			EventType:      observer.ExportPublished,
			Format:         string(art.Format),
			Sink:           sink.Name(),
			ProcessingTime: time.Since(start),
			Metadata:       map[string]interface{}{"location": location},
		})
		logger.WithFields(fields).WithField("location", location).Info("Artifact published")
	}

	if len(resp.Locations) == 0 {
		if errors.Is(ctx.Err(), context.DeadlineExceeded) {
			return nil, apperrors.NewTimeoutError("artifact publish timed out", errors.Join(errs...))
		}
		return nil, apperrors.NewNetworkError("failed to publish artifact", errors.Join(errs...))
	}
	return resp, nil
}

// Close closes every sink holding a connection
func (s *batchService) Close() error {
	var errs []error
	for _, sink := range s.deps.Sinks {
		if closer, ok := sink.(io.Closer); ok {
			if err := closer.Close(); err != nil {
				errs = append(errs, err)
			}
		}
	}
	return errors.Join(errs...)
}

func (s *batchService) notify(ctx context.Context, event observer.BatchEvent) {
	if s.deps.Events == nil {
		return
	}
	if event.RunID == "" {
		event.RunID = s.deps.Store.RunID()
	}
	s.deps.Events.NotifyObservers(ctx, event)
}

// collectorError maps collector and store failures onto application errors
func collectorError(err error) *apperrors.AppError {
	switch {
	case errors.Is(err, repository.ErrDuplicateSequence), errors.Is(err, collector.ErrDuplicateResult):
		return apperrors.NewConflictError("result already recorded", err)
	case errors.Is(err, repository.ErrInvalidSequence),
		errors.Is(err, collector.ErrUnknownBackend),
		errors.Is(err, collector.ErrInvalidMode),
		errors.Is(err, collector.ErrNoExpectedBackends):
		return apperrors.NewValidationError("invalid submission", err)
	default:
		return apperrors.NewInternalError("failed to record result", err)
	}
}
