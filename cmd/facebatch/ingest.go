package main

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"os"
	"strings"
	"sync/atomic"

	"github.com/sirupsen/logrus"
	"github.com/spf13/cobra"

	"github.com/anime-shed/face-batch-inspector-go/internal/analyzer"
	"github.com/anime-shed/face-batch-inspector-go/internal/config"
	"github.com/anime-shed/face-batch-inspector-go/internal/container"
	"github.com/anime-shed/face-batch-inspector-go/internal/logger"
	"github.com/anime-shed/face-batch-inspector-go/internal/service"
	"github.com/anime-shed/face-batch-inspector-go/pkg/models"
)

// runFlags select the run configuration for commands that ingest submissions
type runFlags struct {
	mode     string
	backends []string
	workers  int
}

func (f *runFlags) register(cmd *cobra.Command) {
	cmd.Flags().StringVar(&f.mode, "mode", "", "Analysis mode (single or multi); defaults to the configured mode")
	cmd.Flags().StringSliceVar(&f.backends, "backends", nil, "Expected backends; defaults to the configured set")
	cmd.Flags().IntVar(&f.workers, "workers", 0, "Concurrent submissions; defaults to statistics.max_workers")
}

func (f *runFlags) request() models.StartRunRequest {
	req := models.StartRunRequest{AnalysisMode: models.AnalysisMode(f.mode)}
	for _, b := range f.backends {
		req.ExpectedBackends = append(req.ExpectedBackends, models.BackendID(strings.TrimSpace(b)))
	}
	return req
}

type ingestStats struct {
	RunID     string `json:"run_id"`
	Submitted int    `json:"submitted"`
	Rejected  int    `json:"rejected"`
	Settled   int    `json:"settled"`
	Images    int    `json:"images"`
}

// ingestFiles starts a run, feeds every NDJSON submission through the worker pool and settles the batch
func ingestFiles(ctx context.Context, cfg *config.Config, flags runFlags, paths []string, stdin io.Reader) (*container.Container, ingestStats, error) {
	c, err := container.NewContainer(cfg)
	if err != nil {
		return nil, ingestStats{}, err
	}
	svc := c.Service()

	run, err := svc.StartRun(ctx, flags.request())
	if err != nil {
		c.Close()
		return nil, ingestStats{}, err
	}

	var subs []models.ResultSubmission
	for _, path := range paths {
		batch, err := readSubmissionFile(path, stdin)
		if err != nil {
			c.Close()
			return nil, ingestStats{}, err
		}
		subs = append(subs, batch...)
	}

	workers := flags.workers
	if workers <= 0 {
		workers = cfg.Statistics.MaxWorkers
	}
	rejected := submitAll(ctx, svc, subs, workers)

	settle, err := svc.Settle(ctx)
	if err != nil {
		c.Close()
		return nil, ingestStats{}, err
	}

	stats := ingestStats{
		RunID:     run.RunID,
		Submitted: len(subs),
		Rejected:  rejected,
		Settled:   settle.Settled,
		Images:    settle.Total,
	}
	logger.WithFields(logrus.Fields{
		"run_id":    stats.RunID,
		"submitted": stats.Submitted,
		"rejected":  stats.Rejected,
		"settled":   stats.Settled,
		"images":    stats.Images,
	}).Info("Submissions ingested")
	return c, stats, nil
}

// submitAll runs submissions concurrently and returns how many were rejected
func submitAll(ctx context.Context, svc service.BatchService, subs []models.ResultSubmission, workers int) int {
	pool := analyzer.NewWorkerPool(workers)
	pool.Start()
	defer pool.Close()

	var rejected atomic.Int64
	for _, sub := range subs {
		sub := sub
		pool.Submit(func() {
			if _, err := svc.Submit(ctx, sub); err != nil {
				rejected.Add(1)
			}
		})
	}
	pool.Wait()
	return int(rejected.Load())
}

// readSubmissionFile decodes a stream of JSON submissions; "-" reads stdin
func readSubmissionFile(path string, stdin io.Reader) ([]models.ResultSubmission, error) {
	var r io.Reader
	if path == "-" {
		r = stdin
	} else {
		f, err := os.Open(path)
		if err != nil {
			return nil, fmt.Errorf("open submissions: %w", err)
		}
		defer f.Close()
		r = f
	}

	subs, err := decodeSubmissions(r)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", path, err)
	}
	return subs, nil
}

func decodeSubmissions(r io.Reader) ([]models.ResultSubmission, error) {
	dec := json.NewDecoder(r)
	var subs []models.ResultSubmission
	for {
		var sub models.ResultSubmission
		err := dec.Decode(&sub)
		if errors.Is(err, io.EOF) {
			return subs, nil
		}
		if err != nil {
			return nil, fmt.Errorf("submission %d: %w", len(subs)+1, err)
		}
		subs = append(subs, sub)
	}
}
