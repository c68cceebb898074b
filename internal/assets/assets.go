// Package assets owns every ephemeral file a request touches. A Handle is
// acquired when the request starts and released exactly once on every exit
// path; nothing it reserved survives the request.
package assets

import (
	"fmt"
	"io"
	"os"
	"path/filepath"
	"sync"

	"github.com/hashicorp/go-hclog"
)

// Kind names the four per-request assets.
type Kind int

const (
	KindInput Kind = iota
	KindSubtitle
	KindBroll
	KindOutput
)

func (k Kind) String() string {
	switch k {
	case KindInput:
		return "input"
	case KindSubtitle:
		return "subs"
	case KindBroll:
		return "broll"
	case KindOutput:
		return "output"
	}
	return fmt.Sprintf("kind(%d)", int(k))
}

func (k Kind) ext() string {
	if k == KindSubtitle {
		return ".srt"
	}
	return ".mp4"
}

// Manager hands out per-request handles under one working directory.
type Manager struct {
	dir string
	log hclog.Logger
}

func NewManager(dir string, log hclog.Logger) (*Manager, error) {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("create working dir: %w", err)
	}
	return &Manager{dir: dir, log: log.Named("assets")}, nil
}

// Dir reports the working directory root.
func (m *Manager) Dir() string { return m.dir }

// Begin opens a handle scoped to one request. Paths are namespaced by the
// request ID plus asset kind, so concurrent requests can never collide.
func (m *Manager) Begin(requestID string) *Handle {
	return &Handle{
		dir:    m.dir,
		id:     requestID,
		log:    m.log.With("request_id", requestID),
		assets: map[Kind]*asset{},
	}
}

type asset struct {
	path    string
	created bool
}

// Handle tracks the assets of one request. Not shared across requests;
// safe for the request's own concurrent helpers.
type Handle struct {
	dir string
	id  string
	log hclog.Logger

	mu       sync.Mutex
	assets   map[Kind]*asset
	released bool
}

// Reserve allocates a unique path for kind without creating a file.
// Reserving the same kind twice returns the same path.
func (h *Handle) Reserve(kind Kind) string {
	h.mu.Lock()
	defer h.mu.Unlock()
	if a, ok := h.assets[kind]; ok {
		return a.path
	}
	a := &asset{path: filepath.Join(h.dir, h.id+"-"+kind.String()+kind.ext())}
	h.assets[kind] = a
	return a.path
}

// Commit materializes kind with the given bytes.
func (h *Handle) Commit(kind Kind, data []byte) error {
	path := h.Reserve(kind)
	if err := os.WriteFile(path, data, 0o644); err != nil {
		return fmt.Errorf("write %s asset: %w", kind, err)
	}
	h.markCreated(kind)
	return nil
}

// CommitFrom materializes kind by streaming from r, returning the byte
// count. Used for the B-roll download so the clip never sits in memory.
func (h *Handle) CommitFrom(kind Kind, r io.Reader) (int64, error) {
	path := h.Reserve(kind)
	f, err := os.Create(path)
	if err != nil {
		return 0, fmt.Errorf("create %s asset: %w", kind, err)
	}
	h.markCreated(kind)
	n, err := io.Copy(f, r)
	if cerr := f.Close(); err == nil {
		err = cerr
	}
	if err != nil {
		return n, fmt.Errorf("write %s asset: %w", kind, err)
	}
	return n, nil
}

// MarkCreated records that an external process (ffmpeg, a download)
// materialized the reserved path, so release will delete it.
func (h *Handle) MarkCreated(kind Kind) { h.markCreated(kind) }

func (h *Handle) markCreated(kind Kind) {
	h.mu.Lock()
	defer h.mu.Unlock()
	if a, ok := h.assets[kind]; ok {
		a.created = true
	}
}

// ReleaseAll deletes every reserved path. Individual delete failures are
// logged and skipped; they never fail the request. Safe to call more than
// once, only the first call does work.
func (h *Handle) ReleaseAll() {
	h.mu.Lock()
	if h.released {
		h.mu.Unlock()
		return
	}
	h.released = true
	pending := make([]*asset, 0, len(h.assets))
	for _, a := range h.assets {
		pending = append(pending, a)
	}
	h.mu.Unlock()

	for _, a := range pending {
		err := os.Remove(a.path)
		switch {
		case err == nil:
		case os.IsNotExist(err):
			// Reserved but never materialized.
		default:
			h.log.Warn("failed to remove ephemeral asset", "path", a.path, "error", err)
		}
	}
	h.log.Debug("released ephemeral assets", "count", len(pending))
}
