// Package maintenance runs the startup housekeeping of the story database.
package maintenance

import (
	"context"
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/paulmach/orb"

	"climatelens/pkg/db"
	"climatelens/pkg/model"
	"climatelens/pkg/store"
)

const seedStateKey = "seed_stories_csv_mtime"

// CacheMaxAge is how long persisted geocode results are kept.
const CacheMaxAge = 30 * 24 * time.Hour

// Store is what maintenance needs from the story store.
type Store interface {
	store.StoryPersister
	store.StateStore
}

// Run imports seed stories (if seedPath changed since the last import) and
// prunes the cache. Failures are logged; startup continues.
func Run(ctx context.Context, s Store, d *db.DB, seedPath string) {
	slog.Info("Starting database maintenance...")

	if seedPath != "" {
		n, err := importSeed(ctx, s, seedPath)
		switch {
		case err != nil:
			slog.Error("Seed story import failed", "path", seedPath, "error", err)
		case n > 0:
			slog.Info("Seed stories imported", "count", n)
		}
	}

	pruned, err := d.PruneCache(ctx, CacheMaxAge)
	if err != nil {
		slog.Error("Cache pruning failed", "error", err)
		return
	}
	slog.Info("Cache pruning completed", "removed", pruned)
}

// importSeed loads stories from a CSV file with the header
// title,content,latitude,longitude,address,climateImpact,submittedBy.
// The file's mtime is remembered so an unchanged file is not imported twice.
func importSeed(ctx context.Context, s Store, path string) (int, error) {
	info, err := os.Stat(path)
	if errors.Is(err, os.ErrNotExist) {
		return 0, nil
	}
	if err != nil {
		return 0, fmt.Errorf("failed to stat csv: %w", err)
	}

	mtime := info.ModTime().UTC().Format(time.RFC3339)
	if stored, found := s.GetState(ctx, seedStateKey); found && stored == mtime {
		return 0, nil
	}

	f, err := os.Open(path)
	if err != nil {
		return 0, fmt.Errorf("failed to open csv: %w", err)
	}
	defer f.Close()

	reader := csv.NewReader(f)
	headers, err := reader.Read()
	if err != nil {
		return 0, fmt.Errorf("failed to read header: %w", err)
	}
	if len(headers) > 0 {
		headers[0] = strings.TrimPrefix(headers[0], "\ufeff")
	}
	col := make(map[string]int, len(headers))
	for i, h := range headers {
		col[strings.TrimSpace(h)] = i
	}
	for _, required := range []string{"title", "content", "latitude", "longitude"} {
		if _, ok := col[required]; !ok {
			return 0, fmt.Errorf("missing column %q", required)
		}
	}

	field := func(rec []string, name string) string {
		i, ok := col[name]
		if !ok || i >= len(rec) {
			return ""
		}
		return strings.TrimSpace(rec[i])
	}

	count := 0
	for line := 2; ; line++ {
		rec, err := reader.Read()
		if err == io.EOF {
			break
		}
		if err != nil {
			return count, fmt.Errorf("line %d: %w", line, err)
		}

		lat, errLat := strconv.ParseFloat(field(rec, "latitude"), 64)
		lon, errLon := strconv.ParseFloat(field(rec, "longitude"), 64)
		if errLat != nil || errLon != nil {
			slog.Warn("Skipping seed story with bad coordinates", "line", line)
			continue
		}
		impact := field(rec, "climateImpact")
		if impact == "" {
			impact = model.ImpactOther
		}
		story := model.StoryRecord{
			Title:         field(rec, "title"),
			Content:       field(rec, "content"),
			Location:      model.StoryLocation{Point: orb.Point{lon, lat}, Address: field(rec, "address")},
			ClimateImpact: impact,
			SubmittedBy:   field(rec, "submittedBy"),
		}
		if _, err := s.SaveStory(ctx, story); err != nil {
			slog.Warn("Skipping invalid seed story", "line", line, "error", err)
			continue
		}
		count++
	}

	if err := s.SetState(ctx, seedStateKey, mtime); err != nil {
		return count, fmt.Errorf("failed to record import: %w", err)
	}
	return count, nil
}
