package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"regexp"
	"time"

	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"

	"climatelens/pkg/model"
)

// Config holds the application configuration.
type Config struct {
	Server    ServerConfig    `yaml:"server"`
	Log       LogConfig       `yaml:"log"`
	DB        DBConfig        `yaml:"db"`
	Request   RequestConfig   `yaml:"request"`
	Position  PositionConfig  `yaml:"position"`
	Weather   WeatherConfig   `yaml:"weather"`
	Geocoder  GeocoderConfig  `yaml:"geocoder"`
	LLM       LLMConfig       `yaml:"llm"`
	Generator GeneratorConfig `yaml:"generator"`
	TTS       TTSConfig       `yaml:"tts"`
	Playback  PlaybackConfig  `yaml:"playback"`
	Story     StoryConfig     `yaml:"story"`
}

// ServerConfig holds HTTP server settings.
type ServerConfig struct {
	Address        string   `yaml:"address"`
	APIToken       string   `yaml:"api_token"` // Bearer token for /api/stories/generate-ai
	AllowedOrigins []string `yaml:"allowed_origins"`
}

// LogConfig holds logging settings.
type LogConfig struct {
	Server   LogSettings `yaml:"server"`
	Requests LogSettings `yaml:"requests"`
	LLM      LogSettings `yaml:"llm"`
	TTS      LogSettings `yaml:"tts"`
}

// LogSettings holds settings for a specific logger.
type LogSettings struct {
	Path  string `yaml:"path"`
	Level string `yaml:"level"`
}

// DBConfig holds database settings.
type DBConfig struct {
	Path string `yaml:"path"`
}

// RequestConfig holds outbound HTTP settings.
type RequestConfig struct {
	Timeout   Duration `yaml:"timeout"`
	UserAgent string   `yaml:"user_agent"`
}

// PositionConfig selects how the current position is obtained when a
// request carries no coordinates.
type PositionConfig struct {
	Provider    string   `yaml:"provider"` // "request", "ip"
	Timeout     Duration `yaml:"timeout"`
	IPLookupURL string   `yaml:"ip_lookup_url"`
}

// WeatherConfig holds settings for the current-conditions provider.
type WeatherConfig struct {
	BaseURL string `yaml:"base_url"`
	Key     string `yaml:"key"`
}

// GeocoderConfig holds settings for reverse geocoding.
type GeocoderConfig struct {
	BaseURL        string `yaml:"base_url"`
	Key            string `yaml:"key"` // Defaults to the weather key
	CacheSize      int    `yaml:"cache_size"`
	CellResolution int    `yaml:"cell_resolution"` // H3 resolution of cache keys
}

// LLMConfig holds settings for the Large Language Model provider.
type LLMConfig struct {
	Provider string            `yaml:"provider"` // "gemini", "openai"
	Model    string            `yaml:"model"`
	Key      string            `yaml:"key"`
	BaseURL  string            `yaml:"base_url"` // OpenAI-compatible endpoints only
	Profiles map[string]string `yaml:"profiles"` // Map of intent -> model
}

// GeneratorConfig selects where stories are generated.
type GeneratorConfig struct {
	Mode    string   `yaml:"mode"` // "llm" (in-process), "remote" (story backend)
	BaseURL string   `yaml:"base_url"`
	Token   string   `yaml:"token"`
	Timeout Duration `yaml:"timeout"`
}

// EdgeTTSConfig holds settings for Edge TTS.
type EdgeTTSConfig struct {
	Voices map[string]string `yaml:"voices"` // language tag -> voice
}

// TTSConfig holds Text-To-Speech settings.
type TTSConfig struct {
	Engine  string        `yaml:"engine"` // "edge-tts", "none"
	EdgeTTS EdgeTTSConfig `yaml:"edge_tts"`
}

// PlaybackConfig holds speech output settings.
type PlaybackConfig struct {
	Volume  float64 `yaml:"volume"`
	TempDir string  `yaml:"temp_dir"`
}

// StoryConfig holds story persistence and language settings.
type StoryConfig struct {
	Persister       string   `yaml:"persister"` // "sqlite", "remote"
	RemoteURL       string   `yaml:"remote_url"`
	RemoteToken     string   `yaml:"remote_token"`
	DefaultLanguage string   `yaml:"default_language"`
	NearbyMaxRadius Distance `yaml:"nearby_max_radius"`
}

// DefaultConfig returns the default configuration.
func DefaultConfig() *Config {
	return &Config{
		Server: ServerConfig{
			Address:        "localhost:5000",
			AllowedOrigins: []string{"http://localhost:3000"},
		},
		Log: LogConfig{
			Server:   LogSettings{Path: "./logs/server.log", Level: "INFO"},
			Requests: LogSettings{Path: "./logs/requests.log", Level: "INFO"},
			LLM:      LogSettings{Path: "./logs/llm.log", Level: "INFO"},
			TTS:      LogSettings{Path: "./logs/tts.log", Level: "INFO"},
		},
		DB: DBConfig{
			Path: "./data/climatelens.db",
		},
		Request: RequestConfig{
			Timeout: Duration(30 * time.Second),
		},
		Position: PositionConfig{
			Provider:    "request",
			Timeout:     Duration(10 * time.Second),
			IPLookupURL: "http://ip-api.com/json",
		},
		Weather: WeatherConfig{
			BaseURL: "https://api.openweathermap.org",
		},
		Geocoder: GeocoderConfig{
			BaseURL:        "https://api.openweathermap.org",
			CacheSize:      1000,
			CellResolution: 7,
		},
		LLM: LLMConfig{
			Provider: "gemini",
			Model:    "gemini-2.5-flash-lite",
			Profiles: map[string]string{
				"story":   "gemini-2.5-flash",
				"summary": "gemini-2.5-flash-lite",
			},
		},
		Generator: GeneratorConfig{
			Mode:    "llm",
			BaseURL: "http://localhost:5000",
			Timeout: Duration(60 * time.Second),
		},
		TTS: TTSConfig{
			Engine: "edge-tts",
			EdgeTTS: EdgeTTSConfig{
				Voices: map[string]string{
					"en-US": "en-US-AvaMultilingualNeural",
					"hi-IN": "hi-IN-SwaraNeural",
					"ne-NP": "ne-NP-HemkalaNeural",
				},
			},
		},
		Playback: PlaybackConfig{
			Volume:  1.0,
			TempDir: "./data/audio",
		},
		Story: StoryConfig{
			Persister:       "sqlite",
			DefaultLanguage: string(model.LanguageEnglish),
			NearbyMaxRadius: Distance(500_000),
		},
	}
}

// Load loads the configuration from the given path.
// If the file does not exist, it creates it with default values.
// Secrets missing from the file are taken from the environment (and .env).
func Load(path string) (*Config, error) {
	cfg := DefaultConfig()

	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("failed to create config directory: %w", err)
	}

	if _, err := os.Stat(path); err == nil {
		data, err := os.ReadFile(path)
		if err != nil {
			return nil, fmt.Errorf("failed to read config file: %w", err)
		}
		if err := yaml.Unmarshal(data, cfg); err != nil {
			return nil, fmt.Errorf("failed to parse config file: %w", err)
		}
	} else if err := Save(path, cfg); err != nil {
		return nil, fmt.Errorf("failed to save config file: %w", err)
	}

	// .env is optional; real environment variables take precedence over it.
	_ = godotenv.Load()
	applyEnv(cfg)

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

func applyEnv(cfg *Config) {
	setIfEmpty(&cfg.LLM.Key, "GEMINI_API_KEY")
	setIfEmpty(&cfg.Weather.Key, "OPENWEATHER_API_KEY")
	setIfEmpty(&cfg.Generator.Token, "STORY_BACKEND_TOKEN")
	setIfEmpty(&cfg.Story.RemoteToken, "STORY_BACKEND_TOKEN")
	setIfEmpty(&cfg.Server.APIToken, "CLIMATELENS_API_TOKEN")
	if cfg.Geocoder.Key == "" {
		cfg.Geocoder.Key = cfg.Weather.Key
	}
}

func setIfEmpty(dst *string, env string) {
	if *dst != "" {
		return
	}
	if v := os.Getenv(env); v != "" {
		*dst = v
	}
}

var urlPattern = regexp.MustCompile(`^https?://`)

// Validate checks the configuration for values the services cannot run with.
func (c *Config) Validate() error {
	var errs []error

	if _, err := model.ParseLanguage(c.Story.DefaultLanguage); err != nil {
		errs = append(errs, fmt.Errorf("story.default_language: %w", err))
	}
	if c.Position.Timeout <= 0 {
		errs = append(errs, errors.New("position.timeout must be positive"))
	}
	switch c.Position.Provider {
	case "request", "ip":
	default:
		errs = append(errs, fmt.Errorf("position.provider: unknown provider %q", c.Position.Provider))
	}
	switch c.LLM.Provider {
	case "gemini", "openai":
	default:
		errs = append(errs, fmt.Errorf("llm.provider: unknown provider %q", c.LLM.Provider))
	}
	switch c.Generator.Mode {
	case "llm":
	case "remote":
		if !urlPattern.MatchString(c.Generator.BaseURL) {
			errs = append(errs, fmt.Errorf("generator.base_url: invalid url %q", c.Generator.BaseURL))
		}
	default:
		errs = append(errs, fmt.Errorf("generator.mode: unknown mode %q", c.Generator.Mode))
	}
	switch c.TTS.Engine {
	case "edge-tts", "none":
	default:
		errs = append(errs, fmt.Errorf("tts.engine: unknown engine %q", c.TTS.Engine))
	}
	switch c.Story.Persister {
	case "sqlite":
	case "remote":
		if !urlPattern.MatchString(c.Story.RemoteURL) {
			errs = append(errs, fmt.Errorf("story.remote_url: invalid url %q", c.Story.RemoteURL))
		}
	default:
		errs = append(errs, fmt.Errorf("story.persister: unknown persister %q", c.Story.Persister))
	}
	if c.Geocoder.CellResolution < 0 || c.Geocoder.CellResolution > 15 {
		errs = append(errs, fmt.Errorf("geocoder.cell_resolution: %d not in [0,15]", c.Geocoder.CellResolution))
	}

	return errors.Join(errs...)
}

// Save writes the configuration to the path.
func Save(path string, cfg *Config) error {
	data, err := yaml.Marshal(cfg)
	if err != nil {
		return fmt.Errorf("failed to marshal config: %w", err)
	}

	header := []byte(`# ClimateLens Configuration
# ------------------------
# Supported Units:
#   Duration: ns, us (or µs), ms, s, m, h, d (day), w (week)
#   Distance: m (meters), km (kilometers)
# Secrets may be left empty and supplied via GEMINI_API_KEY, OPENWEATHER_API_KEY,
# STORY_BACKEND_TOKEN and CLIMATELENS_API_TOKEN (environment or .env).

`)
	data = append(header, data...)

	reEngine := regexp.MustCompile(`(?m)^(\s+)engine:`)
	data = reEngine.ReplaceAll(data, []byte("${1}# Options: edge-tts, none\n${1}engine:"))

	reMode := regexp.MustCompile(`(?m)^(\s+)mode:`)
	data = reMode.ReplaceAll(data, []byte("${1}# Options: llm, remote\n${1}mode:"))

	if err := os.WriteFile(path, data, 0o644); err != nil {
		return fmt.Errorf("failed to write config file: %w", err)
	}
	return nil
}

// GenerateDefault creates a default config file at the given path.
// Returns nil if the file already exists.
func GenerateDefault(path string) error {
	if _, err := os.Stat(path); err == nil {
		return nil
	}

	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return fmt.Errorf("failed to create config directory: %w", err)
	}

	return Save(path, DefaultConfig())
}
