package main

import (
	"context"
	"flag"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"climatelens/internal/api"
	"climatelens/internal/app"
	"climatelens/pkg/config"
	"climatelens/pkg/db/maintenance"
	"climatelens/pkg/logging"
	"climatelens/pkg/narrative"
	"climatelens/pkg/observability"
	"climatelens/pkg/probe"
	"climatelens/pkg/tts"
	"climatelens/pkg/version"
)

const defaultConfigPath = "configs/climatelens.yaml"

var (
	initConfig = flag.Bool("init-config", false, "Generate default config file and exit")
	configPath = flag.String("config", defaultConfigPath, "Path to the config file")
	seedPath   = flag.String("seed", "data/stories.csv", "CSV of stories imported when it changes")
)

func main() {
	flag.Parse()

	if *initConfig {
		if err := config.GenerateDefault(*configPath); err != nil {
			fmt.Fprintf(os.Stderr, "Failed to generate config: %v\n", err)
			os.Exit(1)
		}
		fmt.Println("Config file generated:", *configPath)
		return
	}

	if err := run(context.Background(), *configPath); err != nil {
		fmt.Fprintf(os.Stderr, "CRITICAL ERROR: Application failed: %v\n", err)
		os.Exit(1)
	}
}

func run(ctx context.Context, configPath string) error {
	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	appCfg, err := config.Load(configPath)
	if err != nil {
		return fmt.Errorf("failed to load config: %w", err)
	}

	cleanupLogs, err := logging.Init(&appCfg.Log)
	if err != nil {
		return fmt.Errorf("failed to initialize logging: %w", err)
	}
	defer cleanupLogs()

	tts.SetLogPath(appCfg.Log.TTS.Path)

	slog.Info("ClimateLens Started", "version", version.Version)

	metrics := observability.NewMetrics()
	svcs, err := app.New(ctx, appCfg, metrics)
	if err != nil {
		return err
	}
	defer svcs.Close()

	maintenance.Run(ctx, svcs.Store, svcs.DB, *seedPath)

	results := probe.Run(ctx, svcs.Probes())
	if err := probe.AnalyzeResults(results); err != nil {
		return fmt.Errorf("startup checks failed: %w", err)
	}

	return runServer(ctx, svcs)
}

func runServer(ctx context.Context, svcs *app.Services) error {
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, os.Interrupt, syscall.SIGTERM)
	defer signal.Stop(quit)
	shutdownFunc := func() { quit <- syscall.SIGTERM }

	cfg := svcs.Config
	srv := api.NewServer(cfg.Server.Address, api.Handlers{
		Stats:      api.NewStatsHandler(svcs.Tracker),
		Story:      api.NewStoryHandler(svcs.Pipeline, svcs.Persister, svcs.Playback, svcs.Metrics, svcs.DefaultLanguage),
		Playback:   playbackHandler(svcs),
		Stories:    api.NewStoriesHandler(svcs.Store, svcs.Summarizer, cfg.Story.NearbyMaxRadius.Kilometers()),
		GenerateAI: api.NewGenerateAIHandler(narrativeBackend(svcs), cfg.Server.APIToken),
		Metrics:    svcs.Metrics.Handler(),
	}, cfg.Server.AllowedOrigins, shutdownFunc)

	return runServerLifecycle(ctx, srv, quit)
}

func playbackHandler(svcs *app.Services) *api.PlaybackHandler {
	h := api.NewPlaybackHandler(svcs.Playback, svcs.Pipeline)
	if svcs.Audio != nil {
		h = h.WithVolume(svcs.Audio, svcs.Store)
	}
	return h
}

// narrativeBackend is the generator behind /api/stories/generate-ai. A
// server that itself delegates to a remote backend must not call itself.
func narrativeBackend(svcs *app.Services) narrative.Generator {
	if svcs.Config.Generator.Mode == "remote" {
		return narrative.NewLLMGenerator(svcs.LLM, svcs.Prompts)
	}
	return svcs.Generator
}

func runServerLifecycle(ctx context.Context, srv *http.Server, quit chan os.Signal) error {
	slog.Info("Starting server", "addr", srv.Addr)
	serverErrors := make(chan error, 1)
	go func() {
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			serverErrors <- err
		}
	}()
	select {
	case <-quit:
		slog.Info("Shutting down server...")
	case <-ctx.Done():
		slog.Info("Context cancelled, shutting down...")
	case err := <-serverErrors:
		return fmt.Errorf("server failed: %w", err)
	}
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	return srv.Shutdown(shutdownCtx)
}
