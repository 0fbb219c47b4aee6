//go:build !js && !wasm
// +build !js,!wasm

package main

import (
	"context"
	"flag"
	"log"
	"os"
	"os/signal"
	"path/filepath"
	"strings"
	"syscall"

	"github.com/himanishpuri/ChromaDNA/internal/config"
	"github.com/himanishpuri/ChromaDNA/internal/server"
	"github.com/himanishpuri/ChromaDNA/pkg/chromadna"
	"github.com/himanishpuri/ChromaDNA/pkg/chromadna/histogram"
	"github.com/himanishpuri/ChromaDNA/pkg/chromadna/video"
	"github.com/himanishpuri/ChromaDNA/pkg/chromadna/video/opencv"
	"github.com/himanishpuri/ChromaDNA/pkg/logger"
)

var (
	configPath     string
	port           string
	dbPath         string
	allowedOrigins string
)

func init() {
	flag.StringVar(&configPath, "config", "", "Path to config file (default: ./chromadna.yaml)")
	flag.StringVar(&port, "port", "", "HTTP server port (overrides config)")
	flag.StringVar(&dbPath, "db", "", "Path to SQLite database (overrides config)")
	flag.StringVar(&allowedOrigins, "origins", "*", "Comma-separated list of allowed CORS origins (use * for all)")
}

func main() {
	flag.Parse()

	cfg, err := config.Load(configPath)
	if err != nil {
		log.Fatalf("Failed to load config: %v", err)
	}
	logger.SetLevel(logger.ParseLevel(cfg.LogLevel))
	if port != "" {
		cfg.Server.Port = port
	}
	if dbPath != "" {
		cfg.DBPath = dbPath
	}

	var origins []string
	if allowedOrigins == "*" {
		origins = []string{"*"}
	} else {
		origins = strings.Split(allowedOrigins, ",")
		for i := range origins {
			origins[i] = strings.TrimSpace(origins[i])
		}
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	metric, err := histogram.ParseMetric(cfg.Match.Metric)
	if err != nil {
		log.Fatalf("Invalid metric: %v", err)
	}
	weights, err := cfg.Match.ModelWeights()
	if err != nil {
		log.Fatalf("Invalid config: %v", err)
	}

	opts := []chromadna.Option{
		chromadna.WithDBPath(cfg.DBPath),
		chromadna.WithTempDir(cfg.TempDir),
		chromadna.WithBins(cfg.Match.Bins),
		chromadna.WithMetric(metric),
		chromadna.WithModelWeights(weights),
		chromadna.WithWorkers(cfg.Index.Workers),
		chromadna.WithVideoOpener(opencv.Open),
		chromadna.WithStabilizer(video.NewFFmpegStabilizer(filepath.Join(cfg.TempDir, "stable"))),
	}
	if cfg.Match.SkipEmpty {
		opts = append(opts, chromadna.WithEmptyModelPolicy(chromadna.EmptyModelSkip))
	}
	if cfg.PostgresURL != "" {
		store, err := chromadna.NewPostgresStorage(ctx, cfg.PostgresURL)
		if err != nil {
			log.Fatalf("Failed to connect to postgres: %v", err)
		}
		opts = append(opts, chromadna.WithStorage(store))
	}

	service, err := chromadna.NewService(opts...)
	if err != nil {
		log.Fatalf("Failed to create service: %v", err)
	}
	defer service.Close()

	srv := server.New(service, &server.Config{
		Port:           cfg.Server.Port,
		DBPath:         cfg.DBPath,
		UploadDir:      cfg.Server.UploadDir,
		MaxUploadBytes: cfg.Server.MaxUploadMB << 20,
		Bins:           cfg.Match.Bins,
		Metric:         string(metric),
		AllowedOrigins: origins,
	})
	if err := srv.Start(ctx); err != nil {
		log.Printf("Server failed: %v", err)
		service.Close()
		os.Exit(1)
	}
}
