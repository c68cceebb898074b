// Package openrouter is the keyword-extraction collaborator: it asks an
// OpenRouter-hosted model for stock-footage search keywords matching a
// caption transcript. Responses are treated as untrusted; anything
// unusable degrades to a local deterministic heuristic.
package openrouter

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"regexp"
	"strings"
	"time"

	"github.com/hashicorp/go-hclog"

	"github.com/clipsmith/clipsmith/internal/domain/keywords"
)

const (
	requestTimeout = 45 * time.Second
	maxKeywords    = 5
)

type Adapter struct {
	key     string
	model   string
	baseURL string
	client  *http.Client
	log     hclog.Logger
}

func New(apiKey, model, baseURL string, log hclog.Logger) *Adapter {
	if model == "" {
		model = "anthropic/claude-3.5-haiku"
	}
	return &Adapter{
		key:     apiKey,
		model:   model,
		baseURL: normalizeBaseURL(baseURL),
		client:  &http.Client{Timeout: 2 * time.Minute},
		log:     log.Named("openrouter"),
	}
}

// ExtractKeywords asks the model for up to maxKeywords search terms.
// Transport and status failures are returned as errors (the caller
// degrades); a successful response with unusable content falls back to
// the local frequency heuristic so one flaky completion does not cost
// the enhancement.
func (a *Adapter) ExtractKeywords(ctx context.Context, transcript string) ([]string, error) {
	transcript = strings.TrimSpace(transcript)
	if transcript == "" {
		return nil, nil
	}

	payload := map[string]any{
		"model":  a.model,
		"stream": false,
		"messages": []map[string]any{
			{"role": "user", "content": buildPrompt(transcript)},
		},
		"response_format": map[string]any{
			"type": "json_schema",
			"json_schema": map[string]any{
				"name": "clipsmith_keywords",
				"schema": map[string]any{
					"type": "object",
					"properties": map[string]any{
						"keywords": map[string]any{
							"type":  "array",
							"items": map[string]any{"type": "string"},
						},
					},
					"required": []string{"keywords"},
				},
			},
		},
	}
	body, err := json.Marshal(payload)
	if err != nil {
		return nil, fmt.Errorf("marshal request: %w", err)
	}

	reqCtx, cancel := context.WithTimeout(ctx, requestTimeout)
	defer cancel()

	req, err := http.NewRequestWithContext(reqCtx, http.MethodPost, a.baseURL+"/api/v1/chat/completions", bytes.NewReader(body))
	if err != nil {
		return nil, err
	}
	req.Header.Set("Authorization", "Bearer "+a.key)
	req.Header.Set("Content-Type", "application/json")

	resp, err := a.client.Do(req)
	if err != nil {
		if errors.Is(reqCtx.Err(), context.DeadlineExceeded) {
			return nil, fmt.Errorf("openrouter timeout after %s (model=%s)", requestTimeout, a.model)
		}
		return nil, err
	}
	defer resp.Body.Close()
	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		rb, readErr := io.ReadAll(resp.Body)
		if readErr != nil {
			return nil, fmt.Errorf("openrouter status %d and read body failed: %v", resp.StatusCode, readErr)
		}
		return nil, fmt.Errorf("openrouter status %d: %s", resp.StatusCode, truncate(redactSecrets(string(rb), a.key), 400))
	}

	var raw struct {
		Choices []struct {
			Message struct {
				Content any `json:"content"`
			} `json:"message"`
		} `json:"choices"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&raw); err != nil {
		return nil, err
	}
	if len(raw.Choices) == 0 {
		return a.fallback(transcript, "no choices"), nil
	}

	content, err := messageContentToString(raw.Choices[0].Message.Content)
	if err != nil {
		return a.fallback(transcript, "unreadable content"), nil
	}
	clean, err := extractJSONObject(content)
	if err != nil {
		return a.fallback(transcript, "no JSON object"), nil
	}

	var out struct {
		Keywords []string `json:"keywords"`
	}
	if err := json.Unmarshal([]byte(clean), &out); err != nil {
		return a.fallback(transcript, "schema mismatch"), nil
	}

	res := make([]string, 0, maxKeywords)
	for _, k := range out.Keywords {
		k = strings.ToLower(strings.TrimSpace(k))
		if k == "" || containsString(res, k) {
			continue
		}
		res = append(res, k)
		if len(res) >= maxKeywords {
			break
		}
	}
	a.log.Debug("keywords extracted", "count", len(res))
	return res, nil
}

// fallback keeps the enhancement useful when the model answered but the
// answer is unusable.
func (a *Adapter) fallback(transcript, reason string) []string {
	a.log.Warn("unusable model response, using frequency fallback", "reason", reason)
	return keywords.Candidates(transcript, maxKeywords)
}

func buildPrompt(transcript string) string {
	return "Suggest short stock-footage search keywords that visually match this transcript. " +
		"Return strictly valid JSON (no markdown, no code fences) matching the provided schema, " +
		"with at most " + fmt.Sprint(maxKeywords) + " concrete, visual keywords, most relevant first. " +
		"Return an empty list when nothing in the transcript suggests footage." +
		"\n\nTranscript:\n" + transcript
}

func messageContentToString(v any) (string, error) {
	switch x := v.(type) {
	case string:
		return x, nil
	case []any:
		// Some providers return an array of {type,text} parts.
		var b strings.Builder
		for _, it := range x {
			m, ok := it.(map[string]any)
			if !ok {
				continue
			}
			if t, ok := m["text"].(string); ok {
				b.WriteString(t)
			}
		}
		s := b.String()
		if strings.TrimSpace(s) == "" {
			return "", errors.New("openrouter: empty content")
		}
		return s, nil
	default:
		return "", fmt.Errorf("openrouter: unexpected content type %T", v)
	}
}

func extractJSONObject(s string) (string, error) {
	t := strings.TrimSpace(s)
	if t == "" {
		return "", errors.New("openrouter: empty content")
	}

	if strings.HasPrefix(t, "```") {
		if i := strings.Index(t, "\n"); i >= 0 {
			t = t[i+1:]
		}
		if j := strings.LastIndex(t, "```"); j >= 0 {
			t = t[:j]
		}
		t = strings.TrimSpace(t)
	}

	start := strings.Index(t, "{")
	end := strings.LastIndex(t, "}")
	if start >= 0 && end > start {
		return t[start : end+1], nil
	}
	return "", fmt.Errorf("openrouter: could not locate JSON object in: %q", truncate(t, 200))
}

func truncate(s string, n int) string {
	r := []rune(s)
	if len(r) <= n {
		return s
	}
	return string(r[:n])
}

var (
	bearerTokenRE = regexp.MustCompile(`(?i)\bBearer\s+[A-Za-z0-9._-]+\b`)
	authHeaderRE  = regexp.MustCompile(`(?i)(authorization\s*[:=]\s*)([^\n\r,;]+)`)
	apiKeyFieldRE = regexp.MustCompile(`(?i)(api[_-]?key\s*[:=]\s*)([^\n\r,;]+)`)
)

func redactSecrets(s, apiKey string) string {
	if s == "" {
		return s
	}
	out := s
	if apiKey != "" {
		out = strings.ReplaceAll(out, apiKey, "[REDACTED]")
	}
	out = bearerTokenRE.ReplaceAllString(out, "Bearer [REDACTED]")
	out = authHeaderRE.ReplaceAllString(out, "${1}[REDACTED]")
	out = apiKeyFieldRE.ReplaceAllString(out, "${1}[REDACTED]")
	return out
}

func containsString(xs []string, s string) bool {
	for _, x := range xs {
		if x == s {
			return true
		}
	}
	return false
}
