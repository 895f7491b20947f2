package store

import (
	"bytes"
	"compress/gzip"
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"sort"
	"sync"
	"time"

	"github.com/google/uuid"

	"climatelens/pkg/db"
	"climatelens/pkg/geo"
	"climatelens/pkg/model"
)

// Store composes everything the SQLite backend offers.
type Store interface {
	StoryPersister
	StoryReader
	CacheStore
	StateStore

	// Close closes the store connection.
	Close() error
}

// SQLiteStore implements Store.
type SQLiteStore struct {
	db  *db.DB
	now func() time.Time
}

// NewSQLiteStore creates a new store.
func NewSQLiteStore(db *db.DB) *SQLiteStore {
	return &SQLiteStore{db: db, now: time.Now}
}

func (s *SQLiteStore) Close() error {
	return s.db.Close()
}

// --- Stories ---

const storyColumns = `id, title, content, user_id, location, climate_impact, ai_summary, submitted_by, ai_generated, created_at`

// SaveStory inserts rec. A missing ID or creation time is filled in.
func (s *SQLiteStore) SaveStory(ctx context.Context, rec model.StoryRecord) (string, error) {
	if err := Validate(rec); err != nil {
		return "", err
	}
	if rec.ID == "" {
		rec.ID = uuid.NewString()
	}
	if rec.CreatedAt.IsZero() {
		rec.CreatedAt = s.now()
	}
	// UTC keeps the text ordering of created_at chronological.
	rec.CreatedAt = rec.CreatedAt.UTC()
	loc, err := json.Marshal(rec.Location)
	if err != nil {
		return "", fmt.Errorf("encode location: %w", err)
	}

	c := rec.Location.Coordinates()
	_, err = s.db.ExecContext(ctx,
		`INSERT INTO stories (id, title, content, user_id, lat, lon, location, climate_impact, ai_summary, submitted_by, ai_generated, created_at)
		 VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		rec.ID, rec.Title, rec.Content, nullString(rec.UserID), c.Latitude, c.Longitude, string(loc),
		rec.ClimateImpact, nullString(rec.AISummary), rec.SubmittedBy, rec.AIGenerated, rec.CreatedAt)
	if err != nil {
		return "", fmt.Errorf("insert story: %w", err)
	}
	return rec.ID, nil
}

// GetStory returns the story with id, or nil if it does not exist.
func (s *SQLiteStore) GetStory(ctx context.Context, id string) (*model.StoryRecord, error) {
	row := s.db.QueryRowContext(ctx, `SELECT `+storyColumns+` FROM stories WHERE id = ?`, id)
	rec, err := scanStory(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &rec, nil
}

// ListStories implements StoryReader.
func (s *SQLiteStore) ListStories(ctx context.Context, limit int) ([]model.StoryRecord, error) {
	if limit <= 0 {
		limit = 100
	}
	rows, err := s.db.QueryContext(ctx, `SELECT `+storyColumns+` FROM stories ORDER BY created_at DESC LIMIT ?`, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	return scanStories(rows)
}

// NearbyStories implements StoryReader. A bounding box pre-filters in SQL,
// the haversine distance decides.
func (s *SQLiteStore) NearbyStories(ctx context.Context, c model.Coordinates, radiusMeters float64) ([]model.StoryRecord, error) {
	b := geo.BoundAround(c, radiusMeters)
	lonCond := `lon BETWEEN ? AND ?`
	if b.Min.Lon() > b.Max.Lon() {
		// box wraps across the antimeridian
		lonCond = `(lon >= ? OR lon <= ?)`
	}
	rows, err := s.db.QueryContext(ctx,
		`SELECT `+storyColumns+` FROM stories WHERE lat BETWEEN ? AND ? AND `+lonCond,
		b.Min.Lat(), b.Max.Lat(), b.Min.Lon(), b.Max.Lon())
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	all, err := scanStories(rows)
	if err != nil {
		return nil, err
	}

	type hit struct {
		rec  model.StoryRecord
		dist float64
	}
	hits := make([]hit, 0, len(all))
	for _, rec := range all {
		d := geo.Distance(c, rec.Location.Coordinates())
		if d <= radiusMeters {
			hits = append(hits, hit{rec, d})
		}
	}
	sort.SliceStable(hits, func(i, j int) bool { return hits[i].dist < hits[j].dist })

	out := make([]model.StoryRecord, len(hits))
	for i, h := range hits {
		out[i] = h.rec
	}
	return out, nil
}

// CountStories returns the number of saved stories.
func (s *SQLiteStore) CountStories(ctx context.Context) (int, error) {
	var n int
	err := s.db.QueryRowContext(ctx, "SELECT count(*) FROM stories").Scan(&n)
	return n, err
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanStory(r rowScanner) (model.StoryRecord, error) {
	var (
		rec              model.StoryRecord
		userID, summary  sql.NullString
		submittedBy, loc sql.NullString
	)
	err := r.Scan(&rec.ID, &rec.Title, &rec.Content, &userID, &loc, &rec.ClimateImpact,
		&summary, &submittedBy, &rec.AIGenerated, &rec.CreatedAt)
	if err != nil {
		return rec, err
	}
	rec.UserID = userID.String
	rec.AISummary = summary.String
	rec.SubmittedBy = submittedBy.String
	if err := json.Unmarshal([]byte(loc.String), &rec.Location); err != nil {
		return rec, fmt.Errorf("decode location of %s: %w", rec.ID, err)
	}
	return rec, nil
}

func scanStories(rows *sql.Rows) ([]model.StoryRecord, error) {
	out := []model.StoryRecord{}
	for rows.Next() {
		rec, err := scanStory(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, rec)
	}
	return out, rows.Err()
}

func nullString(s string) sql.NullString {
	return sql.NullString{String: s, Valid: s != ""}
}

// --- Cache ---

// GetCache returns a cached value, transparently decompressing gzip payloads.
func (s *SQLiteStore) GetCache(ctx context.Context, key string) ([]byte, bool) {
	var val []byte
	err := s.db.QueryRowContext(ctx, "SELECT value FROM cache WHERE key = ?", key).Scan(&val)
	if err != nil {
		return nil, false
	}

	if len(val) > 2 && val[0] == 0x1f && val[1] == 0x8b {
		if decompressed, err := decompress(val); err == nil {
			return decompressed, true
		}
	}
	return val, true
}

// SetCache stores val gzip-compressed.
func (s *SQLiteStore) SetCache(ctx context.Context, key string, val []byte) error {
	if compressed, err := compress(val); err == nil {
		val = compressed
	}
	query := `INSERT OR REPLACE INTO cache (key, value, created_at) VALUES (?, ?, ?)`
	_, err := s.db.ExecContext(ctx, query, key, val, s.now().UTC().Format("2006-01-02 15:04:05"))
	return err
}

var (
	gzipWriterPool = sync.Pool{
		New: func() any { return gzip.NewWriter(io.Discard) },
	}
	bufferPool = sync.Pool{
		New: func() any { return new(bytes.Buffer) },
	}
)

func compress(data []byte) ([]byte, error) {
	buf := bufferPool.Get().(*bytes.Buffer)
	buf.Reset()
	defer bufferPool.Put(buf)

	w := gzipWriterPool.Get().(*gzip.Writer)
	defer gzipWriterPool.Put(w)
	w.Reset(buf)

	if _, err := w.Write(data); err != nil {
		return nil, err
	}
	if err := w.Close(); err != nil {
		return nil, err
	}

	// buf goes back to the pool
	out := make([]byte, buf.Len())
	copy(out, buf.Bytes())
	return out, nil
}

func decompress(data []byte) ([]byte, error) {
	r, err := gzip.NewReader(bytes.NewReader(data))
	if err != nil {
		return nil, err
	}
	defer r.Close()
	return io.ReadAll(r)
}

// --- State ---

func (s *SQLiteStore) GetState(ctx context.Context, key string) (string, bool) {
	var val string
	err := s.db.QueryRowContext(ctx, "SELECT value FROM persistent_state WHERE key = ?", key).Scan(&val)
	if err != nil {
		return "", false
	}
	return val, true
}

func (s *SQLiteStore) SetState(ctx context.Context, key, val string) error {
	query := `INSERT OR REPLACE INTO persistent_state (key, value, created_at) VALUES (?, ?, ?)`
	_, err := s.db.ExecContext(ctx, query, key, val, s.now().UTC())
	return err
}

func (s *SQLiteStore) DeleteState(ctx context.Context, key string) error {
	_, err := s.db.ExecContext(ctx, "DELETE FROM persistent_state WHERE key = ?", key)
	return err
}
