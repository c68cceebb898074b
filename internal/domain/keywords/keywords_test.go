package keywords

import (
	"reflect"
	"strings"
	"testing"
)

func TestTruncate(t *testing.T) {
	t.Parallel()

	cases := []struct {
		name   string
		in     string
		budget int
		want   string
	}{
		{name: "under budget", in: "short text", budget: 100, want: "short text"},
		{name: "word boundary", in: "the quick brown fox", budget: 12, want: "the quick"},
		{name: "exact fit", in: "abcd", budget: 4, want: "abcd"},
		{name: "zero budget keeps text", in: "abcd", budget: 0, want: "abcd"},
	}

	for _, tc := range cases {
		tc := tc
		t.Run(tc.name, func(t *testing.T) {
			t.Parallel()
			if got := Truncate(tc.in, tc.budget); got != tc.want {
				t.Fatalf("Truncate(%q, %d) = %q, want %q", tc.in, tc.budget, got, tc.want)
			}
		})
	}
}

func TestTruncate_NeverExceedsBudget(t *testing.T) {
	t.Parallel()

	long := strings.Repeat("sunset over the ocean ", 500)
	got := Truncate(long, TranscriptBudget)
	if len(got) > TranscriptBudget {
		t.Fatalf("truncated text is %d chars, budget %d", len(got), TranscriptBudget)
	}
}

func TestCandidates_FrequencyRanked(t *testing.T) {
	t.Parallel()

	text := "Sunset, sunset, sunset over the ocean. The ocean glows at sunset."
	got := Candidates(text, 2)
	want := []string{"sunset", "ocean"}
	if !reflect.DeepEqual(got, want) {
		t.Fatalf("Candidates = %v, want %v", got, want)
	}
}

func TestCandidates_SkipsStopwords(t *testing.T) {
	t.Parallel()

	got := Candidates("the and that with because really", 5)
	if len(got) != 0 {
		t.Fatalf("expected no candidates from stopwords, got %v", got)
	}
}

func TestCandidates_Deterministic(t *testing.T) {
	t.Parallel()

	text := "alpha beta gamma delta alpha beta gamma delta"
	first := Candidates(text, 4)
	for i := 0; i < 5; i++ {
		if again := Candidates(text, 4); !reflect.DeepEqual(first, again) {
			t.Fatalf("candidates unstable: %v vs %v", first, again)
		}
	}
}
