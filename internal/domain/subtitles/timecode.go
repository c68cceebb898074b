package subtitles

import (
	"fmt"
	"regexp"
	"strconv"
	"time"
)

// Timecode is an elapsed time with millisecond precision. The canonical
// textual form is HH:MM:SS,mmm; HH:MM:SS is accepted on input.
type Timecode time.Duration

var reTimecode = regexp.MustCompile(`^(\d{2}):(\d{2}):(\d{2})(?:,(\d{3}))?$`)

// ParseTimecode accepts HH:MM:SS and HH:MM:SS,mmm.
func ParseTimecode(s string) (Timecode, error) {
	m := reTimecode.FindStringSubmatch(s)
	if m == nil {
		return 0, fmt.Errorf("invalid timecode %q", s)
	}
	h, _ := strconv.Atoi(m[1])
	mi, _ := strconv.Atoi(m[2])
	sec, _ := strconv.Atoi(m[3])
	if mi > 59 || sec > 59 {
		return 0, fmt.Errorf("invalid timecode %q: minutes and seconds must be < 60", s)
	}
	ms := 0
	if m[4] != "" {
		ms, _ = strconv.Atoi(m[4])
	}
	d := time.Duration(h)*time.Hour +
		time.Duration(mi)*time.Minute +
		time.Duration(sec)*time.Second +
		time.Duration(ms)*time.Millisecond
	return Timecode(d), nil
}

// String renders the canonical HH:MM:SS,mmm form.
func (t Timecode) String() string {
	d := time.Duration(t)
	if d < 0 {
		d = 0
	}
	h := int(d / time.Hour)
	d -= time.Duration(h) * time.Hour
	m := int(d / time.Minute)
	d -= time.Duration(m) * time.Minute
	s := int(d / time.Second)
	d -= time.Duration(s) * time.Second
	ms := int(d / time.Millisecond)
	return fmt.Sprintf("%02d:%02d:%02d,%03d", h, m, s, ms)
}

// Duration converts to the stdlib representation.
func (t Timecode) Duration() time.Duration { return time.Duration(t) }

// NormalizeTimecode parses either accepted textual form and re-renders the
// canonical one. Normalizing an already canonical string is a no-op.
func NormalizeTimecode(s string) (string, error) {
	t, err := ParseTimecode(s)
	if err != nil {
		return "", err
	}
	return t.String(), nil
}
