package storage

import (
	"context"
	"fmt"
	"os"
	"path/filepath"

	"github.com/gofrs/flock"

	"github.com/anime-shed/face-batch-inspector-go/pkg/models"
)

const lockFileName = ".facebatch.lock"

// FileSink writes artifacts into a local directory.
// Writers in other processes are serialized through a lock file in the same directory.
type FileSink struct {
	dir string
}

// NewFileSink creates a sink writing into dir, creating it when missing
func NewFileSink(dir string) (*FileSink, error) {
	if dir == "" {
		return nil, fmt.Errorf("output directory is required")
	}
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("create output directory: %w", err)
	}
	return &FileSink{dir: dir}, nil
}

// Name returns the sink name
func (s *FileSink) Name() string {
	return "file"
}

// Publish writes the artifact to a temp file and renames it into place
func (s *FileSink) Publish(ctx context.Context, artifact models.Artifact) (string, error) {
	if err := ctx.Err(); err != nil {
		return "", err
	}

	lock := flock.New(filepath.Join(s.dir, lockFileName))
	if err := lock.Lock(); err != nil {
		return "", fmt.Errorf("lock output directory: %w", err)
	}
	defer func() {
		_ = lock.Unlock()
	}()

	target := filepath.Join(s.dir, filepath.Base(artifact.Filename))
	tmp, err := os.CreateTemp(s.dir, ".tmp-"+filepath.Base(artifact.Filename)+"-*")
	if err != nil {
		return "", fmt.Errorf("create temp file: %w", err)
	}
	tmpName := tmp.Name()
	cleanup := func() {
		_ = os.Remove(tmpName)
	}

	if _, err := tmp.Write(artifact.Content); err != nil {
		tmp.Close()
		cleanup()
		return "", fmt.Errorf("write artifact: %w", err)
	}
	if err := tmp.Sync(); err != nil {
		tmp.Close()
		cleanup()
		return "", fmt.Errorf("sync artifact: %w", err)
	}
	if err := tmp.Close(); err != nil {
		cleanup()
		return "", fmt.Errorf("close artifact: %w", err)
	}
	if err := os.Chmod(tmpName, 0o644); err != nil {
		cleanup()
		return "", fmt.Errorf("chmod artifact: %w", err)
	}
	if err := os.Rename(tmpName, target); err != nil {
		cleanup()
		return "", fmt.Errorf("move artifact into place: %w", err)
	}
	return target, nil
}
