// Package pexels is the stock-clip lookup collaborator: one keyword in,
// one downloadable clip URL out, via the Pexels video search API.
package pexels

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"time"

	"github.com/hashicorp/go-hclog"
)

const (
	defaultBaseURL = "https://api.pexels.com"
	requestTimeout = 20 * time.Second

	// Smallest variant that still upscales acceptably to common frame
	// sizes; larger files only waste fetch time for a short overlay.
	minVariantWidth = 640
)

type Adapter struct {
	key     string
	baseURL string
	client  *http.Client
	log     hclog.Logger
}

func New(apiKey, baseURL string, log hclog.Logger) *Adapter {
	if baseURL == "" {
		baseURL = defaultBaseURL
	}
	return &Adapter{
		key:     apiKey,
		baseURL: baseURL,
		client:  &http.Client{Timeout: requestTimeout},
		log:     log.Named("pexels"),
	}
}

type videoFile struct {
	Width    int    `json:"width"`
	FileType string `json:"file_type"`
	Link     string `json:"link"`
}

type searchResponse struct {
	Videos []struct {
		ID         int64       `json:"id"`
		VideoFiles []videoFile `json:"video_files"`
	} `json:"videos"`
}

// FindClip searches for the keyword and returns the smallest acceptable
// MP4 variant of the first usable hit. An empty URL means nothing was
// found; that is not an error.
func (a *Adapter) FindClip(ctx context.Context, keyword string) (string, error) {
	q := url.Values{}
	q.Set("query", keyword)
	q.Set("per_page", "3")

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, a.baseURL+"/videos/search?"+q.Encode(), nil)
	if err != nil {
		return "", err
	}
	req.Header.Set("Authorization", a.key)

	resp, err := a.client.Do(req)
	if err != nil {
		return "", fmt.Errorf("pexels search: %w", err)
	}
	defer resp.Body.Close()
	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		b, _ := io.ReadAll(io.LimitReader(resp.Body, 512))
		return "", fmt.Errorf("pexels status %d: %s", resp.StatusCode, string(b))
	}

	var sr searchResponse
	if err := json.NewDecoder(resp.Body).Decode(&sr); err != nil {
		return "", fmt.Errorf("pexels decode: %w", err)
	}

	for _, v := range sr.Videos {
		if link := pickVariant(v.VideoFiles); link != "" {
			a.log.Debug("clip found", "keyword", keyword, "video_id", v.ID)
			return link, nil
		}
	}
	a.log.Debug("no clip found", "keyword", keyword)
	return "", nil
}

// pickVariant prefers the smallest MP4 at or above minVariantWidth, then
// the widest one below it.
func pickVariant(files []videoFile) string {
	best := ""
	bestWidth := 0
	for _, v := range files {
		if v.Link == "" || (v.FileType != "" && v.FileType != "video/mp4") {
			continue
		}
		switch {
		case bestWidth == 0:
			best, bestWidth = v.Link, v.Width
		case v.Width >= minVariantWidth && (bestWidth < minVariantWidth || v.Width < bestWidth):
			best, bestWidth = v.Link, v.Width
		case bestWidth < minVariantWidth && v.Width > bestWidth:
			best, bestWidth = v.Link, v.Width
		}
	}
	return best
}
