package subtitles

import (
	"errors"
	"fmt"
	"strings"
)

// ErrMalformed tags every subtitle grammar violation so callers can map it
// to the input-invalid error class without string matching.
var ErrMalformed = errors.New("malformed subtitle")

// Segment is one parsed caption block. Immutable after Parse.
type Segment struct {
	Index int
	Start Timecode
	End   Timecode
	Text  string
}

const timecodeSeparator = " --> "

// Parse validates an SRT payload into ordered caption segments.
//
// Grammar: blocks separated by a blank line; each block is an optional
// index line, a "TIME --> TIME" line, then one or more text lines joined
// with a single space. The index line is only used for diagnostics.
// Trailing whitespace and empty trailing blocks are tolerated.
//
// Parse is the sole caption interface for the rest of the pipeline: both
// burn-in and keyword extraction consume its output, never the raw text.
func Parse(text string) ([]Segment, error) {
	normalized := strings.ReplaceAll(text, "\r\n", "\n")
	blocks := strings.Split(normalized, "\n\n")

	var segs []Segment
	for i, block := range blocks {
		lines := nonEmptyLines(block)
		if len(lines) == 0 {
			continue
		}

		label := fmt.Sprintf("block %d", i+1)
		if len(lines) > 0 && isIndexLine(lines[0]) {
			label = fmt.Sprintf("block %s", strings.TrimSpace(lines[0]))
			lines = lines[1:]
		}
		if len(lines) == 0 || !strings.Contains(lines[0], "-->") {
			return nil, fmt.Errorf("%w: %s: missing timecode line", ErrMalformed, label)
		}

		start, end, err := parseTimecodeLine(lines[0])
		if err != nil {
			return nil, fmt.Errorf("%w: %s: %v", ErrMalformed, label, err)
		}
		if start >= end {
			return nil, fmt.Errorf("%w: %s: start %s is not before end %s", ErrMalformed, label, start, end)
		}
		if n := len(segs); n > 0 && segs[n-1].Start > start {
			return nil, fmt.Errorf("%w: %s: starts at %s, before previous block", ErrMalformed, label, start)
		}

		body := strings.TrimSpace(strings.Join(lines[1:], " "))
		if body == "" {
			return nil, fmt.Errorf("%w: %s: empty caption text", ErrMalformed, label)
		}

		segs = append(segs, Segment{Index: len(segs) + 1, Start: start, End: end, Text: body})
	}
	return segs, nil
}

// Render serializes segments back to the canonical SRT grammar: renumbered
// indexes, canonical timecodes, one text line per block. Parsing the output
// yields the same segment list.
func Render(segs []Segment) string {
	var b strings.Builder
	for i, s := range segs {
		fmt.Fprintf(&b, "%d\n", i+1)
		b.WriteString(s.Start.String())
		b.WriteString(timecodeSeparator)
		b.WriteString(s.End.String())
		b.WriteString("\n")
		b.WriteString(s.Text)
		b.WriteString("\n\n")
	}
	return b.String()
}

// JoinText concatenates segment texts with single spaces, for consumers
// that need the transcript as one string.
func JoinText(segs []Segment) string {
	parts := make([]string, 0, len(segs))
	for _, s := range segs {
		parts = append(parts, s.Text)
	}
	return strings.Join(parts, " ")
}

func parseTimecodeLine(line string) (Timecode, Timecode, error) {
	parts := strings.Split(line, "-->")
	if len(parts) != 2 {
		return 0, 0, fmt.Errorf("invalid timecode line %q", strings.TrimSpace(line))
	}
	start, err := ParseTimecode(strings.TrimSpace(parts[0]))
	if err != nil {
		return 0, 0, err
	}
	end, err := ParseTimecode(strings.TrimSpace(parts[1]))
	if err != nil {
		return 0, 0, err
	}
	return start, end, nil
}

func nonEmptyLines(block string) []string {
	var out []string
	for _, l := range strings.Split(block, "\n") {
		if strings.TrimSpace(l) == "" {
			continue
		}
		out = append(out, l)
	}
	return out
}

func isIndexLine(line string) bool {
	s := strings.TrimSpace(line)
	if s == "" {
		return false
	}
	for _, r := range s {
		if r < '0' || r > '9' {
			return false
		}
	}
	return true
}
