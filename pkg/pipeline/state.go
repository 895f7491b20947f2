package pipeline

import (
	"errors"

	"climatelens/pkg/model"
)

// State is a pipeline state.
type State string

const (
	StateIdle               State = "idle"
	StateDetectingLocation  State = "detecting_location"
	StateFetchingConditions State = "fetching_conditions"
	StateGenerating         State = "generating"
	StateDoneGenerated      State = "done_generated"
	StateDoneFallback       State = "done_fallback"
)

// Running reports whether a run is in flight in this state.
func (s State) Running() bool {
	switch s {
	case StateDetectingLocation, StateFetchingConditions, StateGenerating:
		return true
	}
	return false
}

// Done reports whether s is terminal.
func (s State) Done() bool {
	return s == StateDoneGenerated || s == StateDoneFallback
}

// Phase names the step that was last attempted.
type Phase string

const (
	PhaseLocation   Phase = "location"
	PhaseConditions Phase = "conditions"
	PhaseGeneration Phase = "generation"
)

// Progress labels shown to the user.
const (
	LabelDetecting  = "Detecting your location..."
	LabelFetching   = "Fetching weather data..."
	LabelGenerating = "Generating climate story..."
	LabelSuccess    = "Story generated successfully!"
)

var phaseNames = map[Phase]string{
	PhaseLocation:   "your location",
	PhaseConditions: "the weather service",
	PhaseGeneration: "the story generator",
}

// FallbackLabel is the terminal label of a run that failed in phase p.
func FallbackLabel(p Phase) string {
	return "Could not reach " + phaseNames[p] + "; showing a locally composed story."
}

var (
	// ErrBusy is returned when a run is triggered while another is in flight.
	ErrBusy = errors.New("a story is already being generated")
)

// Status is a snapshot of the orchestrator.
type Status struct {
	State       State                     `json:"state"`
	Progress    []model.ProgressEntry     `json:"progress"`
	Coordinates *model.Coordinates        `json:"coordinates,omitempty"`
	Place       *model.PlaceDescriptor    `json:"place,omitempty"`
	Conditions  *model.ConditionsSnapshot `json:"conditions,omitempty"`
	Result      *model.NarrativeResult    `json:"result,omitempty"`
	FailedPhase Phase                     `json:"failedPhase,omitempty"`
	Run         uint64                    `json:"run"`
}
