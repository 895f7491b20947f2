// Command storyteller generates one climate story for a position and prints it.
package main

import (
	"context"
	"flag"
	"fmt"
	"io"
	"os"
	"os/signal"
	"syscall"
	"time"

	"climatelens/internal/app"
	"climatelens/pkg/config"
	"climatelens/pkg/geo"
	"climatelens/pkg/logging"
	"climatelens/pkg/model"
	"climatelens/pkg/pipeline"
	"climatelens/pkg/tts"
)

type options struct {
	configPath string
	lat, lon   float64
	hasFix     bool
	lang       model.Language
	speak      bool
	save       bool
	userID     string
}

func main() {
	opts, err := parseFlags(os.Args[1:])
	if err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(2)
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := run(ctx, opts, os.Stdout); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}

func parseFlags(args []string) (options, error) {
	var opts options
	var lat, lon, lang string

	fs := flag.NewFlagSet("storyteller", flag.ContinueOnError)
	fs.StringVar(&opts.configPath, "config", "configs/climatelens.yaml", "Path to the config file")
	fs.StringVar(&lat, "lat", "", "Latitude in decimal degrees")
	fs.StringVar(&lon, "lon", "", "Longitude in decimal degrees")
	fs.StringVar(&lang, "lang", "", "Story language: english, hindi, nepali")
	fs.BoolVar(&opts.speak, "speak", false, "Read the story aloud")
	fs.BoolVar(&opts.save, "save", false, "Save the story")
	fs.StringVar(&opts.userID, "user", "", "User ID recorded with a saved story")
	if err := fs.Parse(args); err != nil {
		return opts, err
	}

	if (lat == "") != (lon == "") {
		return opts, fmt.Errorf("-lat and -lon must be given together")
	}
	if lat != "" {
		if _, err := fmt.Sscan(lat, &opts.lat); err != nil {
			return opts, fmt.Errorf("invalid -lat %q", lat)
		}
		if _, err := fmt.Sscan(lon, &opts.lon); err != nil {
			return opts, fmt.Errorf("invalid -lon %q", lon)
		}
		opts.hasFix = true
	}

	if lang != "" {
		l, err := model.ParseLanguage(lang)
		if err != nil {
			return opts, err
		}
		opts.lang = l
	}
	return opts, nil
}

func run(ctx context.Context, opts options, out io.Writer) error {
	cfg, err := config.Load(opts.configPath)
	if err != nil {
		return fmt.Errorf("failed to load config: %w", err)
	}
	// The console belongs to the story; logs go to files only.
	cfg.Log.Server.Level = "ERROR"
	cleanupLogs, err := logging.Init(&cfg.Log)
	if err != nil {
		return fmt.Errorf("failed to initialize logging: %w", err)
	}
	defer cleanupLogs()
	tts.SetLogPath(cfg.Log.TTS.Path)

	if !opts.speak {
		cfg.TTS.Engine = "none"
	}

	svcs, err := app.New(ctx, cfg, nil)
	if err != nil {
		return err
	}
	defer svcs.Close()

	lang := opts.lang
	if lang == "" {
		lang = svcs.DefaultLanguage
	}
	var src geo.Source
	if opts.hasFix {
		src = geo.Fixed{Latitude: opts.lat, Longitude: opts.lon}
	}

	res, err := svcs.Pipeline.Run(ctx, src, lang)
	if err != nil {
		return err
	}
	st := svcs.Pipeline.Status()
	printStatus(out, st)
	fmt.Fprintf(out, "\n%s\n\n", res.Text)

	if opts.save {
		if err := saveStory(ctx, svcs, st, opts.userID, out); err != nil {
			// Saving is an acknowledgement only.
			fmt.Fprintf(out, "Could not save story: %v\n", err)
		}
	}

	if opts.speak {
		return speak(ctx, svcs, res, out)
	}
	return nil
}

func printStatus(out io.Writer, st pipeline.Status) {
	for _, p := range st.Progress {
		fmt.Fprintf(out, "[%s] %s\n", p.At.Format("15:04:05"), p.Label)
	}
	if st.Place != nil {
		fmt.Fprintf(out, "Location: %s\n", st.Place.Address())
	}
	if st.Conditions != nil {
		c := st.Conditions
		fmt.Fprintf(out, "Weather: %s, %.1f°C, humidity %d%%, wind %.1f m/s\n",
			c.Description, c.TemperatureCelsius, c.HumidityPercent, c.WindSpeedMetersPerSecond)
	}
}

func saveStory(ctx context.Context, svcs *app.Services, st pipeline.Status, userID string, out io.Writer) error {
	if st.Result == nil || st.Coordinates == nil {
		return fmt.Errorf("story has no location")
	}
	place := model.UnknownPlace()
	if st.Place != nil {
		place = *st.Place
	}
	id, err := svcs.Persister.SaveStory(ctx, model.NewGeneratedStory(*st.Result, *st.Coordinates, place, userID))
	if err != nil {
		return err
	}
	fmt.Fprintf(out, "Story saved: %s\n", id)
	return nil
}

func speak(ctx context.Context, svcs *app.Services, res model.NarrativeResult, out io.Writer) error {
	if _, err := svcs.Playback.Start(ctx, res.Text, res.Language); err != nil {
		return err
	}
	fmt.Fprintln(out, "Speaking... (Ctrl+C to stop)")

	ticker := time.NewTicker(200 * time.Millisecond)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			svcs.Playback.Stop()
			return nil
		case <-ticker.C:
			if svcs.Playback.Status().State != model.PlaybackPlaying {
				return svcs.Playback.LastError()
			}
		}
	}
}
