package filtergraph

import (
	"errors"
	"strings"
	"testing"

	"github.com/clipsmith/clipsmith/internal/types"
)

func testRegistry(t *testing.T) FontRegistry {
	t.Helper()
	reg, err := NewFontRegistry("inter", map[string]types.Font{
		"inter":  {Name: "Inter", File: "/fonts/Inter.ttf"},
		"impact": {Name: "Impact", File: "/fonts/Impact.ttf"},
	})
	if err != nil {
		t.Fatal(err)
	}
	return reg
}

func TestBuild_NoCaptionsNoBroll(t *testing.T) {
	t.Parallel()

	g, err := NewBuilder(testRegistry(t)).Build(Params{})
	if err != nil {
		t.Fatal(err)
	}
	if g.Filter != "" || g.Complex {
		t.Fatalf("expected empty graph, got %+v", g)
	}
}

func TestBuild_SubtitlesOnly(t *testing.T) {
	t.Parallel()

	g, err := NewBuilder(testRegistry(t)).Build(Params{
		SubtitlePath: "/tmp/work/req-subs.srt",
		Style:        types.StyleOptions{FontKey: "impact"},
	})
	if err != nil {
		t.Fatal(err)
	}
	if g.Complex {
		t.Fatal("single-input burn must not be a complex graph")
	}
	if !strings.HasPrefix(g.Filter, "subtitles=") {
		t.Fatalf("expected subtitles filter, got %q", g.Filter)
	}
	if !strings.Contains(g.Filter, "FontName=Impact") {
		t.Fatalf("font not applied: %q", g.Filter)
	}
	if !strings.Contains(g.Filter, "fontsdir=/fonts") {
		t.Fatalf("fontsdir missing: %q", g.Filter)
	}
}

func TestBuild_UnknownFontFallsBack(t *testing.T) {
	t.Parallel()

	g, err := NewBuilder(testRegistry(t)).Build(Params{
		SubtitlePath: "/tmp/work/req-subs.srt",
		Style:        types.StyleOptions{FontKey: "comic-sans"},
	})
	if err != nil {
		t.Fatal(err)
	}
	if !strings.Contains(g.Filter, "FontName=Inter") {
		t.Fatalf("expected default font fallback, got %q", g.Filter)
	}
}

func TestBuild_OverlayPrecedesBurn(t *testing.T) {
	t.Parallel()

	g, err := NewBuilder(testRegistry(t)).Build(Params{
		SubtitlePath: "/tmp/work/req-subs.srt",
		BrollPresent: true,
		MainGeometry: Geometry{Width: 1920, Height: 1080},
		Style:        types.StyleOptions{FontKey: "inter"},
	})
	if err != nil {
		t.Fatal(err)
	}
	if !g.Complex {
		t.Fatal("two-input graph must be complex")
	}
	overlayAt := strings.Index(g.Filter, "overlay=")
	burnAt := strings.Index(g.Filter, "subtitles=")
	if overlayAt < 0 || burnAt < 0 {
		t.Fatalf("graph missing a stage: %q", g.Filter)
	}
	if overlayAt > burnAt {
		t.Fatalf("overlay must precede subtitle burn: %q", g.Filter)
	}
	if !strings.Contains(g.Filter, "scale=1920:1080") {
		t.Fatalf("B-roll not scaled to main geometry: %q", g.Filter)
	}
	if !strings.Contains(g.Filter, "enable='between(t,5,10)'") {
		t.Fatalf("overlay window not gated: %q", g.Filter)
	}
	if !strings.HasSuffix(g.Filter, "[vout]") {
		t.Fatalf("complex graph must label its output: %q", g.Filter)
	}
}

func TestBuild_BrollWithoutCaptionsRejected(t *testing.T) {
	t.Parallel()

	_, err := NewBuilder(testRegistry(t)).Build(Params{
		BrollPresent: true,
		MainGeometry: Geometry{Width: 1280, Height: 720},
	})
	if !errors.Is(err, ErrMalformedSpec) {
		t.Fatalf("expected ErrMalformedSpec, got %v", err)
	}
}

func TestBuild_MissingGeometryRejected(t *testing.T) {
	t.Parallel()

	_, err := NewBuilder(testRegistry(t)).Build(Params{
		SubtitlePath: "/tmp/work/req-subs.srt",
		BrollPresent: true,
	})
	if !errors.Is(err, ErrMalformedSpec) {
		t.Fatalf("expected ErrMalformedSpec, got %v", err)
	}
}

func TestBuild_PathEscaping(t *testing.T) {
	t.Parallel()

	g, err := NewBuilder(testRegistry(t)).Build(Params{
		SubtitlePath: `C:\work\req-subs.srt`,
		Style:        types.StyleOptions{FontKey: "inter"},
	})
	if err != nil {
		t.Fatal(err)
	}
	if !strings.Contains(g.Filter, `C\:\\work\\req-subs.srt`) {
		t.Fatalf("path not escaped for filter grammar: %q", g.Filter)
	}
}

func TestBuild_UnescapablePathRejected(t *testing.T) {
	t.Parallel()

	for _, path := range []string{"/tmp/it's.srt", "/tmp/a,b.srt", "/tmp/a\nb.srt"} {
		_, err := NewBuilder(testRegistry(t)).Build(Params{
			SubtitlePath: path,
			Style:        types.StyleOptions{FontKey: "inter"},
		})
		if !errors.Is(err, ErrMalformedSpec) {
			t.Fatalf("path %q: expected ErrMalformedSpec, got %v", path, err)
		}
	}
}
