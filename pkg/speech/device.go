// Package speech implements playback.Device on top of a TTS provider and the
// system speaker.
package speech

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"sync"

	"github.com/google/uuid"

	"climatelens/pkg/tts"
)

// Player plays an audio file and reports natural completion.
type Player interface {
	Play(path string, onComplete func()) error
	Stop()
}

// Device synthesizes an utterance to a temporary file, then plays it.
type Device struct {
	provider tts.Provider
	player   Player
	voices   map[string]string
	tempDir  string
	logger   *slog.Logger

	mu     sync.Mutex
	cancel context.CancelFunc
	seq    uint64
}

// NewDevice creates a device. voices maps language tags to provider voices.
func NewDevice(provider tts.Provider, player Player, voices map[string]string, tempDir string) *Device {
	if tempDir == "" {
		tempDir = os.TempDir()
	}
	return &Device{
		provider: provider,
		player:   player,
		voices:   voices,
		tempDir:  tempDir,
		logger:   slog.With("component", "speech"),
	}
}

// Speak implements playback.Device. Synthesis runs in the background; done
// fires once playback ends or any step fails.
func (d *Device) Speak(ctx context.Context, text, languageTag string, done func(error)) error {
	voice, err := tts.VoiceFor(d.voices, languageTag)
	if err != nil {
		return err
	}
	if err := os.MkdirAll(d.tempDir, 0o755); err != nil {
		return fmt.Errorf("create temp dir: %w", err)
	}

	d.mu.Lock()
	d.cancelLocked()
	// The utterance outlives the request that started it.
	uctx, cancel := context.WithCancel(context.WithoutCancel(ctx))
	d.cancel = cancel
	d.seq++
	seq := d.seq
	d.mu.Unlock()

	out := filepath.Join(d.tempDir, "utterance-"+uuid.NewString())
	go d.run(uctx, seq, text, voice, out, done)
	return nil
}

func (d *Device) run(ctx context.Context, seq uint64, text, voice, out string, done func(error)) {
	format, err := d.provider.Synthesize(ctx, text, voice, out)
	if err != nil {
		cleanup(out)
		done(fmt.Errorf("synthesize: %w", err))
		return
	}
	path := out
	if filepath.Ext(path) != "."+format {
		path = out + "." + format
	}
	if err := tts.VerifyAudioFile(path); err != nil {
		cleanup(path)
		done(err)
		return
	}

	d.mu.Lock()
	if seq != d.seq || ctx.Err() != nil {
		d.mu.Unlock()
		cleanup(path)
		done(context.Canceled)
		return
	}
	err = d.player.Play(path, func() { done(nil) })
	d.mu.Unlock()
	if err != nil {
		cleanup(path)
		done(fmt.Errorf("play: %w", err))
		return
	}
	d.logger.Debug("Speaking", "voice", voice, "path", path)
}

// Cancel stops synthesis and playback of the current utterance.
func (d *Device) Cancel() {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.cancelLocked()
	d.seq++
	d.player.Stop()
}

func (d *Device) cancelLocked() {
	if d.cancel != nil {
		d.cancel()
		d.cancel = nil
	}
}

func cleanup(path string) {
	if err := os.Remove(path); err != nil && !os.IsNotExist(err) {
		slog.Debug("Speech: failed to remove temp file", "path", path, "error", err)
	}
}

// NullDevice is used when speech output is disabled. Every utterance
// completes immediately.
type NullDevice struct{}

// Speak implements playback.Device.
func (NullDevice) Speak(_ context.Context, text, languageTag string, done func(error)) error {
	slog.Debug("Speech output disabled; skipping utterance", "tag", languageTag, "chars", len(text))
	done(nil)
	return nil
}

// Cancel implements playback.Device.
func (NullDevice) Cancel() {}
