// Package ports defines the narrow contracts for everything consumed
// outside the core pipeline: the two B-roll collaborators and the external
// encoder binary.
package ports

import (
	"context"

	"github.com/clipsmith/clipsmith/internal/types"
)

// KeywordExtractor turns caption text into stock-footage search keywords.
// An empty slice is a valid answer, not an error.
type KeywordExtractor interface {
	ExtractKeywords(ctx context.Context, transcript string) ([]string, error)
}

// ClipFinder resolves one keyword to a downloadable clip URL. An empty
// URL means no clip was found for the keyword.
type ClipFinder interface {
	FindClip(ctx context.Context, keyword string) (string, error)
}

// VideoEncoder runs the external encoder and probes input geometry.
type VideoEncoder interface {
	// Encode invokes the encoder once with arguments derived from spec.
	// It never retries; any failure carries the subprocess diagnostics.
	Encode(ctx context.Context, spec types.EncodeSpec) error

	// ProbeDimensions reports the frame size of a video file.
	ProbeDimensions(ctx context.Context, path string) (width, height int, err error)
}
