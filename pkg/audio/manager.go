// Package audio plays synthesized speech through the system speaker.
package audio

import (
	"log/slog"
	"math"
	"os"
	"sync"
	"time"

	"github.com/gopxl/beep/v2"
	"github.com/gopxl/beep/v2/effects"
	"github.com/gopxl/beep/v2/speaker"
)

const targetSampleRate = beep.SampleRate(48000)

// Manager plays one audio file at a time using gopxl/beep.
type Manager struct {
	mu                 sync.Mutex
	ctrl               *beep.Ctrl
	volume             float64
	speakerInitialized bool
	streamer           *effects.Volume
	trackStreamer      beep.StreamSeekCloser
	trackFormat        beep.Format
	current            string
	seq                uint64
}

// New creates a Manager with the given initial volume (0.0 to 1.0).
func New(volume float64) *Manager {
	return &Manager{volume: clampVolume(volume)}
}

// Play stops whatever is playing and starts path. onComplete runs when the
// file plays to its end; it is not called for files stopped by Stop or by a
// later Play. The file is deleted once it is no longer playing.
func (m *Manager) Play(path string, onComplete func()) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	m.stopLocked()

	streamer, format, err := DecodeMedia(path)
	if err != nil {
		return err
	}
	if err := m.ensureSpeakerInitialized(); err != nil {
		streamer.Close()
		return err
	}

	resampled := beep.Resample(3, format.SampleRate, targetSampleRate, streamer)
	vol := &effects.Volume{
		Streamer: resampled,
		Base:     2,
		Volume:   volumeToPower(m.volume),
		Silent:   m.volume <= 0.01,
	}

	m.seq++
	seq := m.seq
	m.streamer = vol
	m.trackStreamer = streamer
	m.trackFormat = format
	m.current = path
	m.ctrl = &beep.Ctrl{Streamer: vol}

	speaker.Play(beep.Seq(m.ctrl, beep.Callback(func() {
		// Never block the speaker goroutine.
		go m.finished(seq, onComplete)
	})))

	slog.Debug("Playing audio", "path", path, "duration", format.SampleRate.D(streamer.Len()))
	return nil
}

func (m *Manager) finished(seq uint64, onComplete func()) {
	m.mu.Lock()
	if seq != m.seq {
		m.mu.Unlock()
		return
	}
	m.stopLocked()
	m.mu.Unlock()

	if onComplete != nil {
		onComplete()
	}
}

// Stop stops current playback. It is a no-op when nothing is playing.
func (m *Manager) Stop() {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.stopLocked()
}

func (m *Manager) stopLocked() {
	m.seq++
	if m.ctrl != nil {
		speaker.Clear()
		m.ctrl = nil
	}
	if m.trackStreamer != nil {
		m.trackStreamer.Close()
		m.trackStreamer = nil
	}
	m.streamer = nil
	if m.current != "" {
		if err := os.Remove(m.current); err != nil && !os.IsNotExist(err) {
			slog.Warn("Audio: Failed to remove played file", "path", m.current, "error", err)
		}
		m.current = ""
	}
}

func (m *Manager) ensureSpeakerInitialized() error {
	if m.speakerInitialized {
		return nil
	}
	if err := speaker.Init(targetSampleRate, targetSampleRate.N(time.Second/10)); err != nil {
		slog.Error("Failed to initialize speaker", "error", err)
		return err
	}
	m.speakerInitialized = true
	return nil
}

// Shutdown stops playback and removes the current file.
func (m *Manager) Shutdown() {
	m.Stop()
}

// IsPlaying reports whether a file is loaded.
func (m *Manager) IsPlaying() bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.ctrl != nil
}

// SetVolume sets playback volume (0.0 to 1.0), including for the current file.
func (m *Manager) SetVolume(vol float64) {
	m.mu.Lock()
	defer m.mu.Unlock()

	m.volume = clampVolume(vol)
	if m.streamer != nil {
		speaker.Lock()
		m.streamer.Volume = volumeToPower(m.volume)
		m.streamer.Silent = m.volume <= 0.01
		speaker.Unlock()
	}
}

// Volume returns the current volume level.
func (m *Manager) Volume() float64 {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.volume
}

// Remaining returns the time left in the current file.
func (m *Manager) Remaining() time.Duration {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.trackStreamer == nil || m.trackFormat.SampleRate == 0 {
		return 0
	}
	n := m.trackStreamer.Len() - m.trackStreamer.Position()
	if n < 0 {
		return 0
	}
	return m.trackFormat.SampleRate.D(n)
}

func clampVolume(vol float64) float64 {
	return math.Max(0, math.Min(1, vol))
}

// volumeToPower maps linear 0..1 volume onto beep's base-2 exponent.
func volumeToPower(vol float64) float64 {
	if vol <= 0.01 {
		return -10
	}
	return math.Log2(vol)
}
