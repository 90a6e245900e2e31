package cmd

import (
	"context"
	"log/slog"
	"os"

	"reelsmith/internal/app"
	"reelsmith/internal/imagegen"
	"reelsmith/pkg/config"

	"github.com/spf13/cobra"
)

var (
	verbose    bool
	configPath string
)

var rootCmd = &cobra.Command{
	Use:   "reelsmith",
	Short: "Generate script text and images for short videos",
	Long: `Reelsmith turns a topic into narration text and illustrative images,
using one of several hosted model providers (Tongyi, VolcEngine, Groq, DeepSeek, Gemini).`,
	SilenceUsage: true,
}

func init() {
	rootCmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "Enable debug logging")
	rootCmd.PersistentFlags().StringVar(&configPath, "config", "config.yaml", "Path to config file")
	rootCmd.PersistentPreRun = func(cmd *cobra.Command, args []string) {
		setupLogger()
	}
}

func Execute() error {
	return rootCmd.Execute()
}

func setupLogger() {
	level := slog.LevelInfo
	if verbose {
		level = slog.LevelDebug
	}
	slog.SetDefault(slog.New(slog.NewTextHandler(os.Stdout, &slog.HandlerOptions{Level: level})))
}

func loadService(ctx context.Context, policy imagegen.DownloadPolicy) (*app.Service, error) {
	cfg, err := config.LoadFrom(ctx, configPath)
	if err != nil {
		return nil, err
	}
	return app.BuildService(ctx, cfg, app.BuildOptions{Policy: policy})
}
