package model

import (
	"time"
)

// NarrativeSource tells genuine model output apart from the local fallback.
type NarrativeSource string

const (
	SourceGenerated NarrativeSource = "generated"
	SourceFallback  NarrativeSource = "fallback"
)

// NarrativeRequest is the input of one generation attempt.
type NarrativeRequest struct {
	Place      PlaceDescriptor    `json:"location"`
	Conditions ConditionsSnapshot `json:"weather"`
	Language   Language           `json:"language"`
}

// NarrativeResult is a finished story ready for display.
type NarrativeResult struct {
	Text     string          `json:"text"`
	Language Language        `json:"language"`
	Source   NarrativeSource `json:"source"`
}

// PlaybackState is the state of the speech output.
type PlaybackState string

const (
	PlaybackIdle    PlaybackState = "idle"
	PlaybackPlaying PlaybackState = "playing"
)

// PlaybackSession is one utterance handed to the speech device.
type PlaybackSession struct {
	ID       string        `json:"id"`
	Text     string        `json:"text"`
	Language Language      `json:"language"`
	State    PlaybackState `json:"state"`
}

// ProgressEntry is one line of the pipeline progress log.
type ProgressEntry struct {
	Step  string    `json:"step"`
	Label string    `json:"label"`
	At    time.Time `json:"at"`
}
