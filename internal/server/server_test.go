package server

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"os"
	"testing"

	"github.com/hashicorp/go-hclog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/clipsmith/clipsmith/internal/assets"
	"github.com/clipsmith/clipsmith/internal/broll"
	"github.com/clipsmith/clipsmith/internal/domain/filtergraph"
	"github.com/clipsmith/clipsmith/internal/pipeline"
	"github.com/clipsmith/clipsmith/internal/types"
)

const sampleSRT = "1\n00:00:00,000 --> 00:00:02,000\nHello\n"

type stubEncoder struct {
	err error
}

func (s stubEncoder) Encode(_ context.Context, spec types.EncodeSpec) error {
	if s.err != nil {
		return s.err
	}
	return os.WriteFile(spec.Output, []byte("encoded bytes"), 0o644)
}

func (s stubEncoder) ProbeDimensions(context.Context, string) (int, int, error) {
	return 1280, 720, nil
}

type stubExtractor struct{}

func (stubExtractor) ExtractKeywords(context.Context, string) ([]string, error) { return nil, nil }

type stubFinder struct{}

func (stubFinder) FindClip(context.Context, string) (string, error) { return "", nil }

func newTestServer(t *testing.T, enc stubEncoder) *Server {
	t.Helper()

	log := hclog.NewNullLogger()
	am, err := assets.NewManager(t.TempDir(), log)
	require.NoError(t, err)

	reg, err := filtergraph.NewFontRegistry("inter", map[string]types.Font{
		"inter": {Name: "Inter", File: "/fonts/Inter.ttf"},
	})
	require.NoError(t, err)

	resolver := broll.NewResolver(stubExtractor{}, stubFinder{}, http.DefaultClient, log)
	p := pipeline.New(am, resolver, enc, filtergraph.NewBuilder(reg), log)
	return New(p, reg, 2, log)
}

func renderRequest(t *testing.T, fields map[string]string, withVideo bool) *http.Request {
	t.Helper()

	var body bytes.Buffer
	w := multipart.NewWriter(&body)
	if withVideo {
		fw, err := w.CreateFormFile("video", "holiday.mp4")
		require.NoError(t, err)
		_, err = fw.Write([]byte("fake video bytes"))
		require.NoError(t, err)
	}
	for k, v := range fields {
		require.NoError(t, w.WriteField(k, v))
	}
	require.NoError(t, w.Close())

	req := httptest.NewRequest(http.MethodPost, "/api/render", &body)
	req.Header.Set("Content-Type", w.FormDataContentType())
	return req
}

func TestRender_Success(t *testing.T) {
	srv := newTestServer(t, stubEncoder{})

	rec := httptest.NewRecorder()
	srv.Handler().ServeHTTP(rec, renderRequest(t, map[string]string{"srtContent": sampleSRT}, true))

	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "encoded bytes", rec.Body.String())
	assert.Contains(t, rec.Header().Get("Content-Disposition"), "subtitled_holiday.mp4")
	assert.Equal(t, "video/mp4", rec.Header().Get("Content-Type"))
}

func TestRender_MissingVideoIs400(t *testing.T) {
	srv := newTestServer(t, stubEncoder{})

	rec := httptest.NewRecorder()
	srv.Handler().ServeHTTP(rec, renderRequest(t, map[string]string{"srtContent": sampleSRT}, false))

	require.Equal(t, http.StatusBadRequest, rec.Code)
	var body map[string]string
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
	assert.Contains(t, body["error"], "video")
}

func TestRender_MalformedSubtitleIs500WithInputContext(t *testing.T) {
	srv := newTestServer(t, stubEncoder{})

	rec := httptest.NewRecorder()
	srv.Handler().ServeHTTP(rec, renderRequest(t, map[string]string{
		"srtContent": "1\nno timecode here\n",
	}, true))

	require.Equal(t, http.StatusInternalServerError, rec.Code)
	var body map[string]string
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
	assert.Contains(t, body["error"], "invalid input")
}

func TestRender_EncodeFailureIs500WithoutInternals(t *testing.T) {
	srv := newTestServer(t, stubEncoder{err: errors.New("ffmpeg: exit status 1\n/tmp/secret-path.mp4")})

	rec := httptest.NewRecorder()
	srv.Handler().ServeHTTP(rec, renderRequest(t, map[string]string{"srtContent": sampleSRT}, true))

	require.Equal(t, http.StatusInternalServerError, rec.Code)
	var body map[string]string
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
	assert.Contains(t, body["error"], "encode")
	assert.NotContains(t, body["error"], "/tmp/secret-path.mp4")
}

func TestHealthz(t *testing.T) {
	srv := newTestServer(t, stubEncoder{})

	rec := httptest.NewRecorder()
	srv.Handler().ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/healthz", nil))

	require.Equal(t, http.StatusOK, rec.Code)
}

func TestFonts(t *testing.T) {
	srv := newTestServer(t, stubEncoder{})

	rec := httptest.NewRecorder()
	srv.Handler().ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/api/fonts", nil))

	require.Equal(t, http.StatusOK, rec.Code)
	var body struct {
		Fonts   []string `json:"fonts"`
		Default string   `json:"default"`
	}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
	assert.Equal(t, "inter", body.Default)
	assert.Contains(t, body.Fonts, "inter")
}
