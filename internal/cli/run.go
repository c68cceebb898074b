package cli

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"path/filepath"
	"strings"
	"syscall"
	"time"

	"github.com/hashicorp/go-hclog"
	"github.com/spf13/cobra"

	"github.com/clipsmith/clipsmith/internal/assets"
	"github.com/clipsmith/clipsmith/internal/broll"
	"github.com/clipsmith/clipsmith/internal/domain/filtergraph"
	"github.com/clipsmith/clipsmith/internal/pipeline"
	"github.com/clipsmith/clipsmith/internal/ports"
	ffmpegadapter "github.com/clipsmith/clipsmith/internal/ports/adapters/ffmpeg"
	"github.com/clipsmith/clipsmith/internal/ports/adapters/openrouter"
	"github.com/clipsmith/clipsmith/internal/ports/adapters/pexels"
	"github.com/clipsmith/clipsmith/internal/server"
	"github.com/clipsmith/clipsmith/internal/types"
)

const defaultFontKey = "inter"

type Config struct {
	Addr       string
	WorkDir    string
	FontsDir   string
	MaxEncodes int
	LogLevel   string

	FFmpegPath  string
	FFprobePath string

	OpenRouterAPIKey       string
	OpenRouterModel        string
	OpenRouterBaseURL      string
	OpenRouterAllowedHosts []string

	PexelsAPIKey string
}

func (c Config) Validate() error {
	if c.Addr == "" {
		return errors.New("addr is empty")
	}
	if c.WorkDir == "" {
		return errors.New("workdir is empty")
	}
	if c.FontsDir == "" {
		return errors.New("fonts dir is empty")
	}
	if c.MaxEncodes <= 0 {
		return fmt.Errorf("max encodes must be > 0")
	}
	return openrouter.ValidateBaseURL(
		c.OpenRouterBaseURL,
		c.OpenRouterAllowedHosts,
	)
}

func run(cmd *cobra.Command) error {
	addr, _ := cmd.Flags().GetString("addr")
	workDir, _ := cmd.Flags().GetString("workdir")
	fontsDir, _ := cmd.Flags().GetString("fonts-dir")
	maxEncodes, _ := cmd.Flags().GetInt("max-encodes")
	logLevel, _ := cmd.Flags().GetString("log-level")
	ffmpegPath, _ := cmd.Flags().GetString("ffmpeg")
	ffprobePath, _ := cmd.Flags().GetString("ffprobe")

	if workDir == "" {
		workDir = filepath.Join(os.TempDir(), "clipsmith")
	}

	cfg := Config{
		Addr:       addr,
		WorkDir:    workDir,
		FontsDir:   fontsDir,
		MaxEncodes: maxEncodes,
		LogLevel:   logLevel,

		FFmpegPath:  ffmpegPath,
		FFprobePath: ffprobePath,

		OpenRouterAPIKey:       os.Getenv("OPENROUTER_API_KEY"),
		OpenRouterModel:        os.Getenv("OPENROUTER_MODEL"),
		OpenRouterBaseURL:      getenvDefault("OPENROUTER_BASE_URL", "https://openrouter.ai"),
		OpenRouterAllowedHosts: splitHosts(os.Getenv("OPENROUTER_ALLOWED_HOSTS")),

		PexelsAPIKey: os.Getenv("PEXELS_API_KEY"),
	}
	if err := cfg.Validate(); err != nil {
		return fmt.Errorf("config: %w", err)
	}

	log := hclog.New(&hclog.LoggerOptions{
		Name:  "clipsmith",
		Level: hclog.LevelFromString(cfg.LogLevel),
	})
	if cfg.OpenRouterAPIKey == "" {
		log.Warn("OPENROUTER_API_KEY not set; B-roll keyword extraction will degrade")
	}
	if cfg.PexelsAPIKey == "" {
		log.Warn("PEXELS_API_KEY not set; B-roll clip lookup will degrade")
	}

	am, err := assets.NewManager(cfg.WorkDir, log)
	if err != nil {
		return err
	}

	fonts, err := filtergraph.NewFontRegistry(defaultFontKey, registryFonts(cfg.FontsDir))
	if err != nil {
		return err
	}

	// adapters
	extractor := openrouter.New(cfg.OpenRouterAPIKey, cfg.OpenRouterModel, cfg.OpenRouterBaseURL, log)
	finder := pexels.New(cfg.PexelsAPIKey, "", log)
	encoder := ffmpegadapter.New(cfg.FFmpegPath, cfg.FFprobePath, log)

	resolver := broll.NewResolver(extractor, finder, &http.Client{Timeout: 2 * time.Minute}, log)
	p := pipeline.New(am, resolver, encoder, filtergraph.NewBuilder(fonts), log)
	srv := server.New(p, fonts, cfg.MaxEncodes, log)

	httpSrv := &http.Server{
		Addr:              cfg.Addr,
		Handler:           srv.Handler(),
		ReadHeaderTimeout: 10 * time.Second,
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	errCh := make(chan error, 1)
	go func() {
		log.Info("listening", "addr", cfg.Addr, "workdir", cfg.WorkDir)
		errCh <- httpSrv.ListenAndServe()
	}()

	select {
	case err := <-errCh:
		return err
	case <-ctx.Done():
	}

	log.Info("shutting down")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()
	return httpSrv.Shutdown(shutdownCtx)
}

// registryFonts is the fixed key→file table served from the fonts dir.
func registryFonts(dir string) map[string]types.Font {
	return map[string]types.Font{
		"inter":      {Name: "Inter", File: filepath.Join(dir, "Inter.ttf")},
		"impact":     {Name: "Impact", File: filepath.Join(dir, "Impact.ttf")},
		"roboto":     {Name: "Roboto", File: filepath.Join(dir, "Roboto.ttf")},
		"montserrat": {Name: "Montserrat", File: filepath.Join(dir, "Montserrat.ttf")},
	}
}

func getenvDefault(k, def string) string {
	v := os.Getenv(k)
	if v == "" {
		return def
	}
	return v
}

func splitHosts(s string) []string {
	if strings.TrimSpace(s) == "" {
		return nil
	}
	parts := strings.Split(s, ",")
	out := make([]string, 0, len(parts))
	for _, p := range parts {
		if v := strings.TrimSpace(p); v != "" {
			out = append(out, v)
		}
	}
	return out
}

// ensure adapters implement ports
var _ ports.KeywordExtractor = (*openrouter.Adapter)(nil)
var _ ports.ClipFinder = (*pexels.Adapter)(nil)
var _ ports.VideoEncoder = (*ffmpegadapter.Adapter)(nil)
