// Package cli holds the cobra commands of the chromadna binary.
package cli

import (
	"context"
	"fmt"
	"path/filepath"
	"strings"

	"github.com/himanishpuri/ChromaDNA/internal/config"
	"github.com/himanishpuri/ChromaDNA/pkg/chromadna"
	"github.com/himanishpuri/ChromaDNA/pkg/chromadna/histogram"
	"github.com/himanishpuri/ChromaDNA/pkg/chromadna/video"
	"github.com/himanishpuri/ChromaDNA/pkg/logger"
	"github.com/himanishpuri/ChromaDNA/pkg/models"
	"github.com/spf13/cobra"
)

const banner = `
  ____ _                               ____  _   _    _
 / ___| |__  _ __ ___  _ __ ___   __ _|  _ \| \ | |  / \
| |   | '_ \| '__/ _ \| '_ ' _ \ / _' | | | |  \| | / _ \
| |___| | | | | | (_) | | | | | | (_| | |_| | |\  |/ ___ \
 \____|_| |_|_|  \___/|_| |_| |_|\__,_|____/|_| \_/_/   \_\

        Color-Histogram Video Retrieval CLI Tool
`

var (
	cfgFile     string
	dbPath      string
	postgresURL string
	tempDir     string
	bins        int
	metricName  string
	debug       bool

	cfg *config.Config

	// videoOpener decodes video files; set by the binary through Execute.
	videoOpener video.Opener

	openPostgres = chromadna.NewPostgresStorage
)

var rootCmd = &cobra.Command{
	Use:           "chromadna",
	Short:         "Identify video clips by their color histograms",
	Long:          banner + "\nIndex reference videos, identify query clips against them and split videos into shots.",
	SilenceUsage:  true,
	SilenceErrors: true,
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		loaded, err := config.Load(cfgFile)
		if err != nil {
			return fmt.Errorf("loading config: %w", err)
		}
		cfg = loaded

		level := logger.ParseLevel(cfg.LogLevel)
		if debug {
			level = logger.DEBUG
		}
		logger.SetLevel(level)
		return nil
	},
}

func init() {
	pf := rootCmd.PersistentFlags()
	pf.StringVar(&cfgFile, "config", "", "config file (default: ./"+config.DefaultFile+")")
	pf.StringVar(&dbPath, "db", "", "path to the SQLite database file")
	pf.StringVar(&postgresURL, "postgres", "", "PostgreSQL connection string; overrides --db")
	pf.StringVar(&tempDir, "temp", "", "directory for downloads and stabilized videos")
	pf.IntVar(&bins, "bins", 0, "histogram bins per channel (must match the indexed database)")
	pf.StringVar(&metricName, "metric", "", "distance metric: chisquare, correlation, intersection, bhattacharyya")
	pf.BoolVarP(&debug, "debug", "d", false, "debug output")
}

// Execute runs the root command with opener as the video decoder.
func Execute(ctx context.Context, opener video.Opener) error {
	videoOpener = opener
	return rootCmd.ExecuteContext(ctx)
}

// pick returns the flag value when set, else the config value.
func pick[T comparable](flagVal, cfgVal T) T {
	var zero T
	if flagVal != zero {
		return flagVal
	}
	return cfgVal
}

// serviceOptions builds the service options from flags and config. The returned
// store is non-nil when a Postgres store was opened here; the caller closes it
// if the service is never created.
func serviceOptions(ctx context.Context, extra ...chromadna.Option) ([]chromadna.Option, chromadna.Storage, error) {
	m, err := histogram.ParseMetric(pick(metricName, cfg.Match.Metric))
	if err != nil {
		return nil, nil, err
	}

	weights, err := cfg.Match.ModelWeights()
	if err != nil {
		return nil, nil, err
	}

	temp := pick(tempDir, cfg.TempDir)
	opts := []chromadna.Option{
		chromadna.WithDBPath(pick(dbPath, cfg.DBPath)),
		chromadna.WithTempDir(temp),
		chromadna.WithBins(pick(bins, cfg.Match.Bins)),
		chromadna.WithMetric(m),
		chromadna.WithModelWeights(weights),
		chromadna.WithWorkers(cfg.Index.Workers),
		chromadna.WithVideoOpener(videoOpener),
		chromadna.WithStabilizer(video.NewFFmpegStabilizer(filepath.Join(temp, "stable"))),
		chromadna.WithLogger(logger.WithComponent("chromadna")),
	}
	if cfg.Match.SkipEmpty {
		opts = append(opts, chromadna.WithEmptyModelPolicy(chromadna.EmptyModelSkip))
	}

	if url := pick(postgresURL, cfg.PostgresURL); url != "" {
		store, err := openPostgres(ctx, url)
		if err != nil {
			return nil, nil, err
		}
		return append(append(opts, chromadna.WithStorage(store)), extra...), store, nil
	}
	return append(opts, extra...), nil, nil
}

func newService(cmd *cobra.Command, extra ...chromadna.Option) (chromadna.Service, error) {
	opts, store, err := serviceOptions(cmd.Context(), extra...)
	if err != nil {
		return nil, err
	}
	svc, err := chromadna.NewService(opts...)
	if err != nil {
		if store != nil {
			store.Close()
		}
		return nil, fmt.Errorf("failed to create service: %w", err)
	}
	return svc, nil
}

func parseModels(flagVal string) ([]models.ColorModel, error) {
	if flagVal == "" {
		flagVal = strings.Join(cfg.Match.Models, ",")
	}
	return models.ParseColorModels(flagVal)
}

// frameRangeFlag returns the explicit range given by --start/--end, or nil.
func frameRangeFlag(start, end int) (*models.FrameRange, error) {
	if start < 0 && end < 0 {
		return nil, nil
	}
	if start < 0 {
		start = 0
	}
	if end < 0 {
		return nil, fmt.Errorf("--end is required with --start")
	}
	return &models.FrameRange{Start: start, End: end}, nil
}

func fail(cmd *cobra.Command, format string, args ...any) {
	cmd.PrintErrf("❌ "+format+"\n", args...)
}
