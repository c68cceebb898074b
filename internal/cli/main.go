package cli

import (
	"fmt"
	"os"

	"github.com/joho/godotenv"
	"github.com/spf13/cobra"
)

func Main() {
	_ = godotenv.Load() // best-effort: load .env if present

	root := &cobra.Command{
		Use:          "clipsmith",
		Short:        "HTTP service that burns subtitles and stock B-roll into uploaded videos",
		Args:         cobra.NoArgs,
		SilenceUsage: true,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return run(cmd)
		},
	}

	root.SetOut(os.Stdout)
	root.SetErr(os.Stderr)
	root.SilenceErrors = true

	// Visible flags
	root.Flags().String("addr", ":8080", "Listen address")
	root.Flags().String("workdir", "", "Working directory for ephemeral assets (default: system temp)")
	root.Flags().String("fonts-dir", "/usr/share/fonts/clipsmith", "Directory holding the registry font files")
	root.Flags().Int("max-encodes", 2, "Maximum concurrent encoder runs")
	root.Flags().String("log-level", "info", "Log level (trace, debug, info, warn, error)")

	// Hidden tuning flags (internal)
	root.Flags().String("ffmpeg", "ffmpeg", "ffmpeg binary path")
	root.Flags().String("ffprobe", "ffprobe", "ffprobe binary path")
	_ = root.Flags().MarkHidden("ffmpeg")
	_ = root.Flags().MarkHidden("ffprobe")

	if err := root.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}
