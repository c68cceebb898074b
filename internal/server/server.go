// Package server is the HTTP boundary: one multipart render operation,
// a font listing, and a health probe. Everything else lives below the
// pipeline.
package server

import (
	"fmt"
	"io"
	"net/http"
	"path/filepath"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/hashicorp/go-hclog"

	"github.com/clipsmith/clipsmith/internal/domain/filtergraph"
	"github.com/clipsmith/clipsmith/internal/pipeline"
)

type Server struct {
	engine   *gin.Engine
	pipeline *pipeline.Pipeline
	fonts    filtergraph.FontRegistry
	log      hclog.Logger

	// slots bounds concurrent encodes so a burst of uploads cannot
	// exhaust the host. Unbounded was the inherited behavior; a small
	// cap is the explicit policy here.
	slots chan struct{}
}

func New(p *pipeline.Pipeline, fonts filtergraph.FontRegistry, maxConcurrent int, log hclog.Logger) *Server {
	if maxConcurrent <= 0 {
		maxConcurrent = 2
	}
	gin.SetMode(gin.ReleaseMode)
	s := &Server{
		engine:   gin.New(),
		pipeline: p,
		fonts:    fonts,
		log:      log.Named("http"),
		slots:    make(chan struct{}, maxConcurrent),
	}
	s.engine.Use(gin.Recovery())
	s.routes()
	return s
}

// Handler exposes the router for an http.Server and for tests.
func (s *Server) Handler() http.Handler { return s.engine }

func (s *Server) routes() {
	s.engine.GET("/healthz", s.handleHealth)
	api := s.engine.Group("/api")
	api.POST("/render", s.handleRender)
	api.GET("/fonts", s.handleFonts)
}

func (s *Server) handleHealth(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{"status": "ok"})
}

func (s *Server) handleFonts(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{
		"fonts":   s.fonts.Keys(),
		"default": s.fonts.DefaultKey(),
	})
}

// handleRender accepts the multipart payload, runs one pipeline instance,
// and streams back the whole encoded file or a structured error.
func (s *Server) handleRender(c *gin.Context) {
	upload, err := c.FormFile("video")
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "video file is required"})
		return
	}
	f, err := upload.Open()
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to read upload"})
		return
	}
	video, err := io.ReadAll(f)
	_ = f.Close()
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to read upload"})
		return
	}

	req := pipeline.Request{
		ID:         uuid.NewString(),
		Video:      video,
		Filename:   filepath.Base(upload.Filename),
		SRTContent: c.PostForm("srtContent"),
		FontKey:    c.DefaultPostForm("fontName", s.fonts.DefaultKey()),
		AddBroll:   c.PostForm("addBroll") == "true",
	}
	log := s.log.With("request_id", req.ID)
	log.Info("render request", "file", req.Filename, "captions", req.SRTContent != "", "broll", req.AddBroll)

	select {
	case s.slots <- struct{}{}:
		defer func() { <-s.slots }()
	case <-c.Request.Context().Done():
		log.Warn("caller disconnected while queued")
		c.JSON(http.StatusInternalServerError, gin.H{"error": "request cancelled"})
		return
	}

	out := s.pipeline.Process(c.Request.Context(), req)
	if !out.Delivered() {
		log.Error("pipeline failed", "stage", out.Stage, "error", out.Err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": clientMessage(out)})
		return
	}

	name := req.Filename
	if name == "" || name == "." {
		name = "video.mp4"
	}
	c.Header("Content-Disposition", fmt.Sprintf("attachment; filename=%q", "subtitled_"+name))
	c.Data(http.StatusOK, "video/mp4", out.Bytes)
}

// clientMessage keeps stage context in the response while keeping
// internal paths and collaborator details out of it.
func clientMessage(out pipeline.Outcome) string {
	if out.InvalidInput() {
		return fmt.Sprintf("invalid input: %v", out.Err)
	}
	return fmt.Sprintf("processing failed at the %s stage", out.Stage)
}
