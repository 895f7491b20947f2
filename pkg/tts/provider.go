// Package tts synthesizes speech audio files from text.
package tts

import (
	"context"
	"errors"
)

// MinAudioSize is the minimum size of a synthesized audio file (1KB).
// Files smaller than this are likely failed synthesis attempts.
const MinAudioSize = 1024

// ErrNoVoice is returned when no voice is configured for a language tag.
var ErrNoVoice = errors.New("no voice for language")

// Provider defines the interface for Text-To-Speech engines.
type Provider interface {
	// Synthesize generates audio from text and writes it to outputPath.
	// Returns the audio format ("mp3", "wav") and error.
	Synthesize(ctx context.Context, text, voice, outputPath string) (string, error)

	// Voices returns the voices the provider offers.
	Voices(ctx context.Context) ([]Voice, error)
}

// Voice represents an available TTS voice.
type Voice struct {
	ID       string
	Name     string
	Language string
	IsNeural bool
}
