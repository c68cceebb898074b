package filtergraph

import (
	"sort"

	"github.com/clipsmith/clipsmith/internal/types"
)

// FontRegistry is an immutable key→font table injected into the builder.
// Lookups never fail: unknown keys resolve to the default entry, so a bad
// fontName from a caller can degrade the styling but not the request.
type FontRegistry struct {
	defaultKey string
	fonts      map[string]types.Font
}

// NewFontRegistry copies fonts into a registry with the given default key.
// The default key must be present in the table.
func NewFontRegistry(defaultKey string, fonts map[string]types.Font) (FontRegistry, error) {
	if _, ok := fonts[defaultKey]; !ok {
		return FontRegistry{}, errMissingDefaultFont(defaultKey)
	}
	copied := make(map[string]types.Font, len(fonts))
	for k, v := range fonts {
		copied[k] = v
	}
	return FontRegistry{defaultKey: defaultKey, fonts: copied}, nil
}

// Resolve returns the font for key, or the default font for unknown keys.
func (r FontRegistry) Resolve(key string) types.Font {
	if f, ok := r.fonts[key]; ok {
		return f
	}
	return r.fonts[r.defaultKey]
}

// DefaultKey reports the fallback key.
func (r FontRegistry) DefaultKey() string { return r.defaultKey }

// Keys lists the registered font keys, sorted, for diagnostics and the
// server's font listing endpoint.
func (r FontRegistry) Keys() []string {
	keys := make([]string, 0, len(r.fonts))
	for k := range r.fonts {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}
