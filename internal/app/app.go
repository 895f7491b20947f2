// Package app wires the climatelens services from a configuration.
package app

import (
	"context"
	"fmt"
	"log/slog"
	"strconv"

	"climatelens/pkg/audio"
	"climatelens/pkg/config"
	"climatelens/pkg/db"
	"climatelens/pkg/geo"
	"climatelens/pkg/geocode"
	"climatelens/pkg/llm"
	"climatelens/pkg/llm/gemini"
	"climatelens/pkg/llm/openai"
	"climatelens/pkg/llm/prompts"
	"climatelens/pkg/model"
	"climatelens/pkg/narrative"
	"climatelens/pkg/observability"
	"climatelens/pkg/pipeline"
	"climatelens/pkg/playback"
	"climatelens/pkg/probe"
	"climatelens/pkg/request"
	"climatelens/pkg/speech"
	"climatelens/pkg/store"
	"climatelens/pkg/tracker"
	"climatelens/pkg/tts/edgetts"
	"climatelens/pkg/weather"
)

// Services holds every long-lived component.
type Services struct {
	Config  *config.Config
	DB      *db.DB
	Store   *store.SQLiteStore
	Tracker *tracker.Tracker
	Metrics *observability.Metrics

	LLM        llm.Provider
	Prompts    *prompts.Manager
	Generator  narrative.Generator
	Summarizer *narrative.Summarizer
	Pipeline   *pipeline.Orchestrator
	Playback   *playback.Controller
	Persister  store.StoryPersister
	Audio      *audio.Manager // nil when speech output is disabled

	DefaultLanguage model.Language
}

// New builds the services. metrics may be nil. The returned Services must
// be closed.
func New(ctx context.Context, cfg *config.Config, metrics *observability.Metrics) (*Services, error) {
	dbConn, err := db.Init(cfg.DB.Path)
	if err != nil {
		return nil, fmt.Errorf("failed to initialize database: %w", err)
	}
	st := store.NewSQLiteStore(dbConn)

	s := &Services{
		Config:  cfg,
		DB:      dbConn,
		Store:   st,
		Tracker: tracker.New(),
		Metrics: metrics,
	}
	// Validated by config.Load.
	s.DefaultLanguage, _ = model.ParseLanguage(cfg.Story.DefaultLanguage)

	rc := request.New(s.Tracker, cfg.Request.Timeout.Std(), cfg.Request.UserAgent)

	s.LLM, err = newLLMProvider(cfg, rc, s.Tracker)
	if err != nil {
		s.Close()
		return nil, fmt.Errorf("failed to initialize LLM provider: %w", err)
	}
	s.Prompts, err = prompts.Default()
	if err != nil {
		s.Close()
		return nil, fmt.Errorf("failed to initialize prompt manager: %w", err)
	}
	s.Summarizer = narrative.NewSummarizer(s.LLM, s.Prompts)

	switch cfg.Generator.Mode {
	case "remote":
		genClient := request.New(s.Tracker, cfg.Generator.Timeout.Std(), cfg.Request.UserAgent)
		s.Generator = narrative.NewRemoteGenerator(genClient, cfg.Generator.BaseURL, cfg.Generator.Token)
	default:
		s.Generator = narrative.NewLLMGenerator(s.LLM, s.Prompts)
	}

	resolver := geocode.NewCachedResolver(
		geocode.NewOpenWeather(rc, cfg.Geocoder.BaseURL, cfg.Geocoder.Key),
		cfg.Geocoder.CacheSize, cfg.Geocoder.CellResolution, s.Tracker,
	).WithStore(st)

	s.Pipeline = pipeline.New(pipeline.Options{
		Position:        newPositionSource(cfg, rc),
		PositionTimeout: cfg.Position.Timeout.Std(),
		Resolver:        resolver,
		Conditions:      weather.NewOpenWeather(rc, cfg.Weather.BaseURL, cfg.Weather.Key),
		Generator:       s.Generator,
		Metrics:         metrics,
	})

	s.Playback = playback.NewController(s.newSpeechDevice(ctx), metrics)

	switch cfg.Story.Persister {
	case "remote":
		s.Persister = store.NewRemotePersister(rc, cfg.Story.RemoteURL, cfg.Story.RemoteToken)
	default:
		s.Persister = st
	}

	return s, nil
}

// Probes returns the startup checks for the configured services.
func (s *Services) Probes() []probe.Probe {
	probes := []probe.Probe{
		probe.Database(s.DB),
		probe.LLM(s.LLM, s.Config.Generator.Mode == "llm"),
		probe.Key("OpenWeather API key", s.Config.Weather.Key),
	}
	if s.Config.TTS.Engine == "edge-tts" {
		probes = append(probes, probe.Probe{
			Name:  "Edge TTS endpoint",
			Check: func(context.Context) error { return edgetts.EndpointFromEnv().Validate() },
		})
	}
	return probes
}

// Close stops playback and releases the database.
func (s *Services) Close() {
	if s.Playback != nil {
		s.Playback.Stop()
	}
	if s.Audio != nil {
		s.Audio.Shutdown()
	}
	if c, ok := s.LLM.(interface{ Close() }); ok {
		c.Close()
	}
	if err := s.Store.Close(); err != nil {
		slog.Warn("Failed to close database", "error", err)
	}
}

func newLLMProvider(cfg *config.Config, rc *request.Client, t *tracker.Tracker) (llm.Provider, error) {
	if cfg.LLM.Provider == "openai" {
		c, err := openai.NewClient(cfg.LLM, rc)
		if err != nil {
			return nil, err
		}
		return c, nil
	}
	c, err := gemini.NewClient(cfg.LLM, cfg.Log.LLM.Path, t)
	if err != nil {
		return nil, err
	}
	return c, nil
}

func newPositionSource(cfg *config.Config, rc *request.Client) geo.Source {
	if cfg.Position.Provider == "ip" {
		return geo.NewIPLocator(rc, cfg.Position.IPLookupURL)
	}
	return geo.Unavailable{Reason: "no coordinates in request"}
}

func (s *Services) newSpeechDevice(ctx context.Context) playback.Device {
	if s.Config.TTS.Engine != "edge-tts" {
		return speech.NullDevice{}
	}

	volume := s.Config.Playback.Volume
	if v, ok := s.Store.GetState(ctx, store.StateVolume); ok {
		if f, err := strconv.ParseFloat(v, 64); err == nil {
			volume = f
		}
	}
	s.Audio = audio.New(volume)

	provider := edgetts.NewProvider(s.Tracker, edgetts.EndpointFromEnv())
	return speech.NewDevice(provider, s.Audio, s.Config.TTS.EdgeTTS.Voices, s.Config.Playback.TempDir)
}
