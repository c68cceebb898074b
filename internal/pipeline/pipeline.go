// Package pipeline sequences one render request through its state
// machine: stage assets, optionally resolve B-roll, build the encode
// spec, run the encoder, deliver the bytes. It owns the terminal cleanup
// guarantee for every ephemeral asset the request touched.
package pipeline

import (
	"context"
	"errors"
	"fmt"
	"os"
	"strings"

	"github.com/hashicorp/go-hclog"

	"github.com/clipsmith/clipsmith/internal/assets"
	"github.com/clipsmith/clipsmith/internal/broll"
	"github.com/clipsmith/clipsmith/internal/domain/filtergraph"
	"github.com/clipsmith/clipsmith/internal/domain/subtitles"
	"github.com/clipsmith/clipsmith/internal/ports"
	"github.com/clipsmith/clipsmith/internal/types"
)

// Stage names the state-machine step a request was in when it terminated.
type Stage string

const (
	StageStaging   Stage = "staging"
	StageBroll     Stage = "broll"
	StageSpecBuild Stage = "spec-build"
	StageEncode    Stage = "encode"
	StageDeliver   Stage = "deliver"
)

// ErrMissingInput marks a request that arrived without video bytes.
var ErrMissingInput = errors.New("no video uploaded")

// Outcome is the single terminal result of one request: either delivered
// bytes or a stage-tagged failure.
type Outcome struct {
	Stage Stage
	Bytes []byte
	Err   error
}

// Delivered reports whether the request reached its success terminal.
func (o Outcome) Delivered() bool { return o.Err == nil }

// InvalidInput reports whether the failure was caused by the caller's
// payload rather than by processing.
func (o Outcome) InvalidInput() bool {
	return errors.Is(o.Err, ErrMissingInput) || errors.Is(o.Err, subtitles.ErrMalformed)
}

func failed(stage Stage, err error) Outcome {
	return Outcome{Stage: stage, Err: err}
}

// Request is one caller submission. The video is held fully in memory by
// contract: delivery is all-or-nothing, never streamed.
type Request struct {
	ID         string
	Video      []byte
	Filename   string
	SRTContent string
	FontKey    string
	AddBroll   bool
}

// Baseline output encoding. Quality knobs follow the usual
// "good enough, fast" web-delivery settings.
const (
	outputVideoCodec = "libx264"
	outputAudioCodec = "aac"
	outputPreset     = "veryfast"
	outputCRF        = 23
	outputMovFlags   = "+faststart"
)

type Pipeline struct {
	assets  *assets.Manager
	broll   *broll.Resolver
	encoder ports.VideoEncoder
	builder filtergraph.Builder
	log     hclog.Logger
}

func New(am *assets.Manager, resolver *broll.Resolver, encoder ports.VideoEncoder, builder filtergraph.Builder, log hclog.Logger) *Pipeline {
	return &Pipeline{
		assets:  am,
		broll:   resolver,
		encoder: encoder,
		builder: builder,
		log:     log.Named("pipeline"),
	}
}

// Process runs one request to a terminal state. Exactly one Outcome is
// produced; ReleaseAll runs on every exit path, including cancellation
// and panics, via the deferred handle release.
func (p *Pipeline) Process(ctx context.Context, req Request) Outcome {
	log := p.log.With("request_id", req.ID)
	h := p.assets.Begin(req.ID)
	defer h.ReleaseAll()

	// Staging.
	if len(req.Video) == 0 {
		return failed(StageStaging, ErrMissingInput)
	}
	if err := h.Commit(assets.KindInput, req.Video); err != nil {
		return failed(StageStaging, err)
	}
	inputPath := h.Reserve(assets.KindInput)

	var segs []subtitles.Segment
	subtitlePath := ""
	if strings.TrimSpace(req.SRTContent) != "" {
		var err error
		segs, err = subtitles.Parse(req.SRTContent)
		if err != nil {
			return failed(StageStaging, err)
		}
		if len(segs) > 0 {
			// The burn always uses the normalized re-serialization,
			// never the raw upload.
			if err := h.Commit(assets.KindSubtitle, []byte(subtitles.Render(segs))); err != nil {
				return failed(StageStaging, err)
			}
			subtitlePath = h.Reserve(assets.KindSubtitle)
		}
	}
	log.Debug("assets staged", "captions", len(segs))

	// B-roll: only when requested and captions exist, and only ever an
	// enhancement. Probe failures drop the overlay the same way a failed
	// lookup does.
	brollPath := ""
	var geom filtergraph.Geometry
	if req.AddBroll && len(segs) > 0 {
		if path, ok := p.broll.Resolve(ctx, segs, h); ok {
			w, ht, err := p.encoder.ProbeDimensions(ctx, inputPath)
			if err != nil {
				log.Warn("probe failed, dropping B-roll overlay", "error", err)
			} else {
				brollPath = path
				geom = filtergraph.Geometry{Width: w, Height: ht}
			}
		}
	}

	// Spec build.
	graph, err := p.builder.Build(filtergraph.Params{
		SubtitlePath: subtitlePath,
		BrollPresent: brollPath != "",
		MainGeometry: geom,
		Style:        types.StyleOptions{FontKey: req.FontKey, AddBroll: req.AddBroll},
	})
	if err != nil {
		return failed(StageSpecBuild, err)
	}

	spec := types.EncodeSpec{
		Inputs:        []string{inputPath},
		FilterGraph:   graph.Filter,
		FilterComplex: graph.Complex,
		VideoCodec:    outputVideoCodec,
		AudioCodec:    outputAudioCodec,
		Preset:        outputPreset,
		CRF:           outputCRF,
		MovFlags:      outputMovFlags,
		Output:        h.Reserve(assets.KindOutput),
	}
	if brollPath != "" {
		spec.Inputs = append(spec.Inputs, brollPath)
	}

	// Encode. The full output is buffered in memory before delivery by
	// contract; large outputs are a flagged scalability limit, not a bug.
	if err := p.encoder.Encode(ctx, spec); err != nil {
		h.MarkCreated(assets.KindOutput)
		return failed(StageEncode, err)
	}
	h.MarkCreated(assets.KindOutput)

	out, err := os.ReadFile(spec.Output)
	if err != nil {
		return failed(StageEncode, fmt.Errorf("read encoder output: %w", err))
	}
	log.Info("request delivered", "bytes", len(out), "broll", brollPath != "")
	return Outcome{Stage: StageDeliver, Bytes: out}
}
