// Package broll turns parsed captions into an optional local stock clip:
// keyword extraction, clip lookup, bounded fetch. Every failure along the
// way degrades to "no B-roll" — the enhancement is never allowed to fail
// a request.
package broll

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/hashicorp/go-hclog"

	"github.com/clipsmith/clipsmith/internal/assets"
	"github.com/clipsmith/clipsmith/internal/domain/keywords"
	"github.com/clipsmith/clipsmith/internal/domain/subtitles"
	"github.com/clipsmith/clipsmith/internal/ports"
)

const (
	fetchAttempts   = 3
	fetchBackoff    = 500 * time.Millisecond
	attemptTimeout  = 30 * time.Second
	resolveDeadline = 2 * time.Minute
)

type Resolver struct {
	extractor ports.KeywordExtractor
	clips     ports.ClipFinder
	client    *http.Client
	log       hclog.Logger
}

func NewResolver(extractor ports.KeywordExtractor, clips ports.ClipFinder, client *http.Client, log hclog.Logger) *Resolver {
	if client == nil {
		client = http.DefaultClient
	}
	return &Resolver{
		extractor: extractor,
		clips:     clips,
		client:    client,
		log:       log.Named("broll"),
	}
}

// Resolve tries to place a stock clip at the reserved B-roll path and
// reports whether one is available. It never returns an error: absence of
// B-roll is a logged outcome, not a failure.
//
// Only the first keyword is tried; falling through the rest of the list
// when the lookup comes back empty is a known v1 gap.
func (r *Resolver) Resolve(ctx context.Context, segs []subtitles.Segment, h *assets.Handle) (string, bool) {
	ctx, cancel := context.WithTimeout(ctx, resolveDeadline)
	defer cancel()

	transcript := keywords.Truncate(subtitles.JoinText(segs), keywords.TranscriptBudget)
	if transcript == "" {
		r.log.Info("no caption text, skipping B-roll")
		return "", false
	}

	kws, err := r.extractor.ExtractKeywords(ctx, transcript)
	if err != nil {
		r.log.Warn("keyword extraction failed, skipping B-roll", "error", err)
		return "", false
	}
	if len(kws) == 0 {
		r.log.Info("no keywords extracted, skipping B-roll")
		return "", false
	}

	keyword := kws[0]
	clipURL, err := r.clips.FindClip(ctx, keyword)
	if err != nil {
		r.log.Warn("clip lookup failed, skipping B-roll", "keyword", keyword, "error", err)
		return "", false
	}
	if clipURL == "" {
		r.log.Info("no clip for keyword, skipping B-roll", "keyword", keyword)
		return "", false
	}

	path, err := r.fetch(ctx, clipURL, h)
	if err != nil {
		r.log.Warn("clip fetch exhausted retries, skipping B-roll", "keyword", keyword, "error", err)
		return "", false
	}
	r.log.Info("B-roll resolved", "keyword", keyword, "path", path)
	return path, true
}

// fetch downloads the clip to the reserved asset path with bounded
// retries and backoff.
func (r *Resolver) fetch(ctx context.Context, clipURL string, h *assets.Handle) (string, error) {
	var lastErr error
	for attempt := 1; attempt <= fetchAttempts; attempt++ {
		if attempt > 1 {
			select {
			case <-ctx.Done():
				return "", ctx.Err()
			case <-time.After(fetchBackoff << (attempt - 2)):
			}
		}

		path, err := r.fetchOnce(ctx, clipURL, h)
		if err == nil {
			return path, nil
		}
		lastErr = err
		r.log.Warn("clip fetch attempt failed", "attempt", attempt, "error", err)
	}
	return "", fmt.Errorf("after %d attempts: %w", fetchAttempts, lastErr)
}

func (r *Resolver) fetchOnce(ctx context.Context, clipURL string, h *assets.Handle) (string, error) {
	attemptCtx, cancel := context.WithTimeout(ctx, attemptTimeout)
	defer cancel()

	req, err := http.NewRequestWithContext(attemptCtx, http.MethodGet, clipURL, nil)
	if err != nil {
		return "", err
	}
	resp, err := r.client.Do(req)
	if err != nil {
		return "", err
	}
	defer resp.Body.Close()
	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		_, _ = io.Copy(io.Discard, io.LimitReader(resp.Body, 4096))
		return "", fmt.Errorf("clip fetch status %d", resp.StatusCode)
	}

	n, err := h.CommitFrom(assets.KindBroll, resp.Body)
	if err != nil {
		return "", err
	}
	if n == 0 {
		return "", fmt.Errorf("clip fetch returned an empty body")
	}
	return h.Reserve(assets.KindBroll), nil
}
