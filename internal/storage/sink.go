package storage

import (
	"context"
	"path"
	"strings"

	"github.com/anime-shed/face-batch-inspector-go/pkg/models"
)

// ArtifactSink delivers a rendered export somewhere outside the process.
// Publish returns a location string describing where the artifact ended up.
type ArtifactSink interface {
	Publish(ctx context.Context, artifact models.Artifact) (string, error)
	Name() string
}

// objectName joins an optional prefix with the artifact filename using forward slashes
func objectName(prefix string, artifact models.Artifact) string {
	prefix = strings.Trim(prefix, "/")
	if prefix == "" {
		return artifact.Filename
	}
	return path.Join(prefix, artifact.Filename)
}
