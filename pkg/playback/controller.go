// Package playback arbitrates the single speech output device. At most one
// utterance is active at any time.
package playback

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"

	"github.com/google/uuid"

	"climatelens/pkg/model"
	"climatelens/pkg/narrative"
	"climatelens/pkg/observability"
)

// ErrEmptyText is returned when asked to speak nothing.
var ErrEmptyText = errors.New("nothing to speak")

// Device is the speech output capability. Speak starts an utterance and
// returns without waiting for it; done is called exactly once when it ends
// naturally or fails. After Cancel, done may still fire for the cancelled
// utterance and is ignored by the controller.
type Device interface {
	Speak(ctx context.Context, text, languageTag string, done func(error)) error
	Cancel()
}

// Controller owns the speech device.
type Controller struct {
	device  Device
	metrics *observability.Metrics
	logger  *slog.Logger

	mu      sync.Mutex
	session model.PlaybackSession
	lastErr error
}

// NewController wraps device. metrics may be nil.
func NewController(device Device, metrics *observability.Metrics) *Controller {
	return &Controller{
		device:  device,
		metrics: metrics,
		logger:  slog.With("component", "playback"),
		session: model.PlaybackSession{State: model.PlaybackIdle},
	}
}

// Start stops any active utterance and speaks text with the voice of lang.
func (c *Controller) Start(ctx context.Context, text string, lang model.Language) (model.PlaybackSession, error) {
	if text == "" {
		return c.Status(), ErrEmptyText
	}

	c.mu.Lock()
	defer c.mu.Unlock()
	return c.startLocked(ctx, text, lang)
}

// Toggle is the single play/stop control: it stops when text is already
// playing and starts it otherwise.
func (c *Controller) Toggle(ctx context.Context, text string, lang model.Language) (model.PlaybackSession, error) {
	if text == "" {
		return c.Status(), ErrEmptyText
	}

	c.mu.Lock()
	defer c.mu.Unlock()
	if c.session.State == model.PlaybackPlaying && c.session.Text == text {
		c.stopLocked()
		return c.session, nil
	}
	return c.startLocked(ctx, text, lang)
}

// Stop cancels the active utterance. It is a no-op when idle.
func (c *Controller) Stop() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.stopLocked()
}

// Status returns the current session. Its ID is empty before the first Start.
func (c *Controller) Status() model.PlaybackSession {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.session
}

// LastError returns the error that ended the most recent utterance, if any.
func (c *Controller) LastError() error {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.lastErr
}

func (c *Controller) startLocked(ctx context.Context, text string, lang model.Language) (model.PlaybackSession, error) {
	c.stopLocked()

	id := uuid.NewString()
	tag := narrative.VoiceTag(lang)
	c.session = model.PlaybackSession{ID: id, Text: text, Language: lang, State: model.PlaybackPlaying}
	c.lastErr = nil

	// done runs off the caller's goroutine so a device that completes
	// synchronously cannot deadlock on c.mu.
	done := func(err error) { go c.finished(id, err) }
	if err := c.device.Speak(ctx, text, tag, done); err != nil {
		c.session.State = model.PlaybackIdle
		c.lastErr = err
		if c.metrics != nil {
			c.metrics.PlaybackErrors.Inc()
		}
		c.logger.Warn("Speech device refused utterance", "language", lang, "error", err)
		return c.session, fmt.Errorf("start playback: %w", err)
	}

	if c.metrics != nil {
		c.metrics.PlaybackStarts.WithLabelValues(string(lang)).Inc()
	}
	c.logger.Debug("Playback started", "session", id, "voice", tag, "chars", len(text))
	return c.session, nil
}

func (c *Controller) stopLocked() {
	if c.session.State != model.PlaybackPlaying {
		return
	}
	c.device.Cancel()
	c.session.State = model.PlaybackIdle
	c.logger.Debug("Playback stopped", "session", c.session.ID)
}

func (c *Controller) finished(id string, err error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.session.ID != id || c.session.State != model.PlaybackPlaying {
		return
	}
	c.session.State = model.PlaybackIdle
	if err != nil {
		c.lastErr = err
		if c.metrics != nil {
			c.metrics.PlaybackErrors.Inc()
		}
		c.logger.Warn("Playback failed", "session", id, "error", err)
		return
	}
	c.logger.Debug("Playback finished", "session", id)
}
