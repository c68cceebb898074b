package types

// Font is one entry of the font registry: a family name as the subtitle
// renderer knows it, and the file backing it.
type Font struct {
	Name string
	File string
}

// StyleOptions carries the caller-chosen rendering options for one request.
// Font is the resolved registry entry; unknown keys resolve to the default
// font before this struct is built, so Font is always usable.
type StyleOptions struct {
	FontKey  string
	Font     Font
	AddBroll bool
}

// EncodeSpec is the fully resolved instruction set for one encoder run.
// It is built once per request and must not be mutated after being handed
// to the encoder.
type EncodeSpec struct {
	// Inputs in ffmpeg order: the main video first, the B-roll clip
	// second when present.
	Inputs []string

	// FilterGraph is the filter description, empty when no filtering is
	// needed. FilterComplex marks a labeled multi-input graph that must
	// be passed as -filter_complex with explicit output maps.
	FilterGraph   string
	FilterComplex bool

	VideoCodec string
	AudioCodec string // "copy" passes audio through
	Preset     string
	CRF        int
	MovFlags   string

	Output string
}
