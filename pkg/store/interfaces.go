package store

import (
	"context"
	"errors"

	"climatelens/pkg/model"
)

// ErrInvalidStory is returned for records missing required fields.
var ErrInvalidStory = errors.New("invalid story")

// StoryPersister saves a story and returns its ID.
type StoryPersister interface {
	SaveStory(ctx context.Context, rec model.StoryRecord) (string, error)
}

// StoryReader lists saved stories.
type StoryReader interface {
	// ListStories returns up to limit stories, newest first.
	ListStories(ctx context.Context, limit int) ([]model.StoryRecord, error)
	// NearbyStories returns stories within radiusMeters of c, nearest first.
	NearbyStories(ctx context.Context, c model.Coordinates, radiusMeters float64) ([]model.StoryRecord, error)
}

// CacheStore handles generic key-value caching.
type CacheStore interface {
	GetCache(ctx context.Context, key string) ([]byte, bool)
	SetCache(ctx context.Context, key string, val []byte) error
}

// StateVolume is the state key of the playback volume.
const StateVolume = "volume"

// StateStore handles persistent application state.
type StateStore interface {
	GetState(ctx context.Context, key string) (string, bool)
	SetState(ctx context.Context, key, val string) error
	DeleteState(ctx context.Context, key string) error
}

// Validate checks the fields every persister requires.
func Validate(rec model.StoryRecord) error {
	var errs []error
	if rec.Title == "" {
		errs = append(errs, errors.New("title is required"))
	}
	if rec.Content == "" {
		errs = append(errs, errors.New("content is required"))
	}
	if !model.ValidImpact(rec.ClimateImpact) {
		errs = append(errs, errors.New("climateImpact must be one of flood, drought, heatwave, storm, wildfire, other"))
	}
	if err := rec.Location.Coordinates().Validate(); err != nil {
		errs = append(errs, err)
	}
	if len(errs) > 0 {
		return errors.Join(append([]error{ErrInvalidStory}, errs...)...)
	}
	return nil
}
