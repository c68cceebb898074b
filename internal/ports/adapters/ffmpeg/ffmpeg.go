// Package ffmpeg invokes the external encoder binary with arguments
// derived one-to-one from an EncodeSpec. Codec internals stay a black box;
// this adapter only owns argv construction and process lifecycle.
package ffmpeg

import (
	"bufio"
	"context"
	"fmt"
	"os/exec"
	"strconv"
	"strings"

	"github.com/hashicorp/go-hclog"

	"github.com/clipsmith/clipsmith/internal/types"
)

// diagnosticTail bounds how much encoder output is carried into an error.
const diagnosticTail = 20

type Adapter struct {
	ffmpeg  string
	ffprobe string
	log     hclog.Logger
}

func New(ffmpegPath, ffprobePath string, log hclog.Logger) *Adapter {
	if ffmpegPath == "" {
		ffmpegPath = "ffmpeg"
	}
	if ffprobePath == "" {
		ffprobePath = "ffprobe"
	}
	return &Adapter{ffmpeg: ffmpegPath, ffprobe: ffprobePath, log: log.Named("ffmpeg")}
}

// Encode runs the encoder once. The subprocess inherits ctx, so a
// cancelled request kills the encode rather than leaving it running.
// Progress output streams to the log sink; it is informational only.
func (a *Adapter) Encode(ctx context.Context, spec types.EncodeSpec) error {
	args := BuildArgs(spec)
	a.log.Debug("invoking encoder", "args", strings.Join(args, " "))

	cmd := exec.CommandContext(ctx, a.ffmpeg, args...)
	stderr, err := cmd.StderrPipe()
	if err != nil {
		return fmt.Errorf("ffmpeg stderr pipe: %w", err)
	}
	if err := cmd.Start(); err != nil {
		return fmt.Errorf("ffmpeg start: %w", err)
	}

	var tail []string
	sc := bufio.NewScanner(stderr)
	sc.Buffer(make([]byte, 0, 64*1024), 256*1024)
	for sc.Scan() {
		line := sc.Text()
		a.log.Debug("encoder", "line", line)
		tail = append(tail, line)
		if len(tail) > diagnosticTail {
			tail = tail[1:]
		}
	}

	if err := cmd.Wait(); err != nil {
		return fmt.Errorf("ffmpeg: %w\n%s", err, strings.Join(tail, "\n"))
	}
	return nil
}

// BuildArgs maps an EncodeSpec to the encoder's argument list.
func BuildArgs(spec types.EncodeSpec) []string {
	args := []string{"-hide_banner", "-y"}
	for _, in := range spec.Inputs {
		args = append(args, "-i", in)
	}

	switch {
	case spec.FilterComplex:
		args = append(args,
			"-filter_complex", spec.FilterGraph,
			"-map", "[vout]",
			"-map", "0:a?",
		)
	case spec.FilterGraph != "":
		args = append(args, "-vf", spec.FilterGraph)
	}

	args = append(args,
		"-c:v", spec.VideoCodec,
		"-preset", spec.Preset,
		"-crf", strconv.Itoa(spec.CRF),
	)
	if spec.AudioCodec == "copy" {
		args = append(args, "-c:a", "copy")
	} else {
		args = append(args, "-c:a", spec.AudioCodec, "-b:a", "192k")
	}
	if spec.MovFlags != "" {
		args = append(args, "-movflags", spec.MovFlags)
	}
	return append(args, spec.Output)
}

// ProbeDimensions reads the frame size of the first video stream.
func (a *Adapter) ProbeDimensions(ctx context.Context, path string) (int, int, error) {
	cmd := exec.CommandContext(ctx, a.ffprobe,
		"-v", "error",
		"-select_streams", "v:0",
		"-show_entries", "stream=width,height",
		"-of", "csv=s=x:p=0",
		path,
	)
	b, err := cmd.CombinedOutput()
	if err != nil {
		return 0, 0, fmt.Errorf("ffprobe dimensions: %w\n%s", err, string(b))
	}
	s := strings.TrimSpace(string(b))
	parts := strings.Split(s, "x")
	if len(parts) != 2 {
		return 0, 0, fmt.Errorf("parse dimensions %q", s)
	}
	w, err := strconv.Atoi(parts[0])
	if err != nil {
		return 0, 0, fmt.Errorf("parse width %q: %w", parts[0], err)
	}
	h, err := strconv.Atoi(parts[1])
	if err != nil {
		return 0, 0, fmt.Errorf("parse height %q: %w", parts[1], err)
	}
	return w, h, nil
}
