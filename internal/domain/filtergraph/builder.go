// Package filtergraph composes the ffmpeg filter description for one
// request: the subtitle burn-in filter and, when a B-roll clip was
// acquired, the scale+overlay chain in front of it.
package filtergraph

import (
	"errors"
	"fmt"
	"path/filepath"
	"strings"

	"github.com/clipsmith/clipsmith/internal/types"
)

// ErrMalformedSpec tags builder precondition violations and content that
// cannot be represented in the filter grammar. It is a build-time error,
// never a silently wrong render.
var ErrMalformedSpec = errors.New("malformed encode spec")

// Overlay gating window. A fixed placement is a documented placeholder
// until B-roll position is derived from actual content.
const (
	OverlayStartSec = 5
	OverlayEndSec   = 10
)

// Fixed burn-in style; only the font family varies per request.
const (
	burnFontSize      = 28
	burnPrimaryColour = "&H00FFFFFF"
	burnOutlineColour = "&H00000000"
	burnOutlineWidth  = 2
	burnShadowDepth   = 1
)

// Geometry is the main video's frame size, used to scale B-roll to match.
type Geometry struct {
	Width  int
	Height int
}

// Params describes one request's filter inputs. SubtitlePath empty means
// no captions; BrollPresent means a second input (the clip) exists.
type Params struct {
	SubtitlePath string
	BrollPresent bool
	MainGeometry Geometry
	Style        types.StyleOptions
}

// Graph is the built filter description. Complex marks a labeled
// multi-input graph (-filter_complex); otherwise Filter is a plain -vf
// chain. An empty Filter means no filtering at all.
type Graph struct {
	Filter  string
	Complex bool
}

// Builder composes filter graphs against an injected font registry.
type Builder struct {
	fonts FontRegistry
}

func NewBuilder(fonts FontRegistry) Builder {
	return Builder{fonts: fonts}
}

// Build composes the graph for the given inputs.
//
// B-roll without captions is not a reachable state (keyword extraction
// depends on caption text), so it is rejected rather than accepted
// silently. When both are present the overlay stage always precedes the
// burn stage so captions are never occluded by the inserted clip.
func (b Builder) Build(p Params) (Graph, error) {
	if p.SubtitlePath == "" {
		if p.BrollPresent {
			return Graph{}, fmt.Errorf("%w: B-roll overlay requires a caption track", ErrMalformedSpec)
		}
		return Graph{}, nil
	}

	burn, err := b.burnFilter(p.SubtitlePath, p.Style)
	if err != nil {
		return Graph{}, err
	}

	if !p.BrollPresent {
		return Graph{Filter: burn}, nil
	}

	g := p.MainGeometry
	if g.Width <= 0 || g.Height <= 0 {
		return Graph{}, fmt.Errorf("%w: overlay requires the main video geometry, got %dx%d", ErrMalformedSpec, g.Width, g.Height)
	}

	var sb strings.Builder
	fmt.Fprintf(&sb, "[1:v]scale=%d:%d[broll];", g.Width, g.Height)
	fmt.Fprintf(&sb, "[0:v][broll]overlay=0:0:enable='between(t,%d,%d)'[comp];", OverlayStartSec, OverlayEndSec)
	fmt.Fprintf(&sb, "[comp]%s[vout]", burn)
	return Graph{Filter: sb.String(), Complex: true}, nil
}

func (b Builder) burnFilter(subtitlePath string, style types.StyleOptions) (string, error) {
	font := style.Font
	if font.File == "" {
		font = b.fonts.Resolve(style.FontKey)
	}

	path, err := escapeFilterValue(subtitlePath)
	if err != nil {
		return "", err
	}
	fontsDir, err := escapeFilterValue(filepath.Dir(font.File))
	if err != nil {
		return "", err
	}
	if strings.ContainsAny(font.Name, "',\n") {
		return "", fmt.Errorf("%w: font name %q cannot be used in force_style", ErrMalformedSpec, font.Name)
	}

	forceStyle := fmt.Sprintf("FontName=%s,FontSize=%d,PrimaryColour=%s,OutlineColour=%s,Outline=%d,Shadow=%d",
		font.Name, burnFontSize, burnPrimaryColour, burnOutlineColour, burnOutlineWidth, burnShadowDepth)

	return fmt.Sprintf("subtitles=%s:fontsdir=%s:force_style='%s'", path, fontsDir, forceStyle), nil
}

// escapeFilterValue prepares a path for the filter grammar: backslashes
// and colons are escaped, characters the grammar cannot carry safely are
// rejected outright.
func escapeFilterValue(v string) (string, error) {
	if strings.ContainsAny(v, "'\n\r,;[]") {
		return "", fmt.Errorf("%w: path %q contains characters that cannot be escaped for the filter grammar", ErrMalformedSpec, v)
	}
	v = strings.ReplaceAll(v, "\\", "\\\\")
	v = strings.ReplaceAll(v, ":", "\\:")
	return v, nil
}

func errMissingDefaultFont(key string) error {
	return fmt.Errorf("%w: default font key %q is not in the registry", ErrMalformedSpec, key)
}
