package openrouter

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"reflect"
	"strings"
	"testing"

	"github.com/hashicorp/go-hclog"
)

func keywordServer(t *testing.T, content any) *httptest.Server {
	t.Helper()
	return httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/api/v1/chat/completions" {
			t.Errorf("unexpected path %s", r.URL.Path)
		}
		if got := r.Header.Get("Authorization"); got != "Bearer test-key" {
			t.Errorf("unexpected auth header %q", got)
		}
		resp := map[string]any{
			"choices": []map[string]any{
				{"message": map[string]any{"content": content}},
			},
		}
		_ = json.NewEncoder(w).Encode(resp)
	}))
}

func newTestAdapter(url string) *Adapter {
	a := New("test-key", "test-model", "", hclog.NewNullLogger())
	a.baseURL = url
	return a
}

func TestExtractKeywords_WellFormedResponse(t *testing.T) {
	srv := keywordServer(t, `{"keywords":["Sunset","ocean waves","sunset",""]}`)
	defer srv.Close()

	got, err := newTestAdapter(srv.URL).ExtractKeywords(context.Background(), "a sunset over ocean waves")
	if err != nil {
		t.Fatal(err)
	}
	// Lowercased, deduplicated, empties dropped.
	want := []string{"sunset", "ocean waves"}
	if !reflect.DeepEqual(got, want) {
		t.Fatalf("keywords = %v, want %v", got, want)
	}
}

func TestExtractKeywords_EmptyListIsNotAnError(t *testing.T) {
	srv := keywordServer(t, `{"keywords":[]}`)
	defer srv.Close()

	got, err := newTestAdapter(srv.URL).ExtractKeywords(context.Background(), "hmm")
	if err != nil {
		t.Fatal(err)
	}
	if len(got) != 0 {
		t.Fatalf("expected no keywords, got %v", got)
	}
}

func TestExtractKeywords_GarbageContentFallsBack(t *testing.T) {
	srv := keywordServer(t, "I could not produce JSON, sorry!")
	defer srv.Close()

	got, err := newTestAdapter(srv.URL).ExtractKeywords(context.Background(), "sunset sunset sunset over mountains")
	if err != nil {
		t.Fatal(err)
	}
	if len(got) == 0 || got[0] != "sunset" {
		t.Fatalf("expected frequency fallback led by 'sunset', got %v", got)
	}
}

func TestExtractKeywords_StatusErrorSurfacesRedacted(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusUnauthorized)
		_, _ = w.Write([]byte(`{"error":"bad key test-key"}`))
	}))
	defer srv.Close()

	_, err := newTestAdapter(srv.URL).ExtractKeywords(context.Background(), "anything")
	if err == nil {
		t.Fatal("expected error for status 401")
	}
	if strings.Contains(err.Error(), "test-key") {
		t.Fatalf("API key leaked into error: %v", err)
	}
}

func TestExtractKeywords_EmptyTranscript(t *testing.T) {
	got, err := newTestAdapter("http://127.0.0.1:0").ExtractKeywords(context.Background(), "   ")
	if err != nil {
		t.Fatal(err)
	}
	if got != nil {
		t.Fatalf("expected nil keywords for empty transcript, got %v", got)
	}
}

func TestExtractJSONObject(t *testing.T) {
	cases := []struct {
		name    string
		in      string
		wantSub string
		wantErr bool
	}{
		{name: "raw", in: `{"keywords":["sunset"]}`, wantSub: `"keywords"`},
		{name: "fenced", in: "```json\n{\"keywords\":[]}\n```", wantSub: `"keywords"`},
		{name: "chatter around object", in: "sure! {\"keywords\":[]} hope that helps", wantSub: `"keywords"`},
		{name: "blank", in: "  ", wantErr: true},
		{name: "no object", in: "sunset, ocean", wantErr: true},
	}
	for _, tc := range cases {
		tc := tc
		t.Run(tc.name, func(t *testing.T) {
			got, err := extractJSONObject(tc.in)
			if tc.wantErr {
				if err == nil {
					t.Fatalf("expected error, got %q", got)
				}
				return
			}
			if err != nil {
				t.Fatal(err)
			}
			if !strings.Contains(got, tc.wantSub) {
				t.Fatalf("expected %q to contain %q", got, tc.wantSub)
			}
		})
	}
}

func TestRedactSecrets(t *testing.T) {
	key := "sk-or-v1-abc123"
	in := "status 401; Authorization: Bearer sk-or-v1-abc123; api_key=sk-or-v1-abc123"
	got := redactSecrets(in, key)
	if strings.Contains(got, key) {
		t.Fatalf("key survived redaction: %q", got)
	}
}
