// Package pipeline turns a position into a story: position fix, place and
// conditions lookup, then generation, with a local story whenever a required
// step fails. Every run ends in done_generated or done_fallback.
package pipeline

import (
	"context"
	"log/slog"
	"strings"
	"sync"
	"time"

	"github.com/jonboulle/clockwork"

	"climatelens/pkg/geo"
	"climatelens/pkg/geocode"
	"climatelens/pkg/logging"
	"climatelens/pkg/model"
	"climatelens/pkg/narrative"
	"climatelens/pkg/observability"
	"climatelens/pkg/weather"
)

// Options configures an Orchestrator.
type Options struct {
	// Position is used when a run does not bring its own source.
	Position        geo.Source
	PositionTimeout time.Duration

	Resolver   geocode.Resolver
	Conditions weather.Provider
	Generator  narrative.Generator

	Clock   clockwork.Clock
	Metrics *observability.Metrics
}

// Orchestrator runs the story pipeline. At most one run is active at a time.
type Orchestrator struct {
	position        geo.Source
	positionTimeout time.Duration
	resolver        geocode.Resolver
	conditions      weather.Provider
	generator       narrative.Generator
	clock           clockwork.Clock
	metrics         *observability.Metrics
	logger          *slog.Logger

	mu     sync.Mutex
	run    uint64 // incremented per run and on Abandon; stale runs drop their writes
	status Status
}

// New creates an orchestrator in the idle state.
func New(opts Options) *Orchestrator {
	if opts.Position == nil {
		opts.Position = geo.Unavailable{Reason: "no position provided"}
	}
	if opts.Clock == nil {
		opts.Clock = clockwork.NewRealClock()
	}
	if opts.PositionTimeout <= 0 {
		opts.PositionTimeout = geo.DefaultTimeout
	}
	return &Orchestrator{
		position:        opts.Position,
		positionTimeout: opts.PositionTimeout,
		resolver:        opts.Resolver,
		conditions:      opts.Conditions,
		generator:       opts.Generator,
		clock:           opts.Clock,
		metrics:         opts.Metrics,
		logger:          slog.With("component", "pipeline"),
		status:          Status{State: StateIdle},
	}
}

// Run executes one pipeline run and blocks until it is done. src overrides the
// default position source when non-nil. The only error is ErrBusy: every other
// failure ends in a fallback result.
//
// The result is returned to the caller even if the run was abandoned meanwhile,
// but an abandoned run no longer updates Status.
func (o *Orchestrator) Run(ctx context.Context, src geo.Source, lang model.Language) (model.NarrativeResult, error) {
	run, err := o.begin()
	if err != nil {
		return model.NarrativeResult{}, err
	}
	if src == nil {
		src = o.position
	}

	if o.metrics != nil {
		o.metrics.PipelineRunning.Inc()
		defer o.metrics.PipelineRunning.Dec()
	}

	// Detecting location: begin already entered the state under the lock.
	logging.Trace(o.logger, "Pipeline transition", "run", run, "state", StateDetectingLocation)
	start := o.clock.Now()
	coords, err := geo.WithTimeout(src, o.positionTimeout).CurrentCoordinates(ctx)
	o.observe("location", start)
	if err != nil {
		o.logger.Warn("Position fix failed", "error", err)
		req := model.NarrativeRequest{Place: model.UnknownPlace(), Conditions: model.DefaultConditions(), Language: lang}
		return o.fallback(run, req, PhaseLocation), nil
	}
	o.update(run, func(s *Status) { s.Coordinates = &coords })

	// Fetching conditions: place and weather concurrently, both must return.
	o.enter(run, StateFetchingConditions, LabelFetching)
	start = o.clock.Now()
	place, cond, condErr := o.lookup(ctx, coords)
	o.observe("conditions", start)
	o.update(run, func(s *Status) { s.Place = &place })

	if condErr != nil {
		o.logger.Warn("Conditions unavailable", "coords", coords.String(), "error", condErr)
		req := model.NarrativeRequest{Place: place, Conditions: model.DefaultConditions(), Language: lang}
		return o.fallback(run, req, PhaseConditions), nil
	}
	o.update(run, func(s *Status) { s.Conditions = &cond })

	// Generating
	req := model.NarrativeRequest{Place: place, Conditions: cond, Language: lang}
	o.enter(run, StateGenerating, LabelGenerating)
	start = o.clock.Now()
	text, err := o.generate(ctx, req)
	o.observe("generation", start)
	if err != nil {
		o.logger.Warn("Story generation failed", "language", lang, "error", err)
		return o.fallback(run, req, PhaseGeneration), nil
	}

	res := model.NarrativeResult{Text: text, Language: lang, Source: model.SourceGenerated}
	o.finish(run, StateDoneGenerated, LabelSuccess, res, "")
	return res, nil
}

// Reset returns a finished pipeline to idle. It is a no-op while idle and
// returns ErrBusy while a run is in flight.
func (o *Orchestrator) Reset() error {
	o.mu.Lock()
	defer o.mu.Unlock()
	if o.status.State.Running() {
		return ErrBusy
	}
	o.status = Status{State: StateIdle, Run: o.run}
	return nil
}

// Abandon drops the current run: the view that asked for it is gone. The
// in-flight calls finish on their own, their results are discarded, and the
// pipeline is idle immediately.
func (o *Orchestrator) Abandon() {
	o.mu.Lock()
	defer o.mu.Unlock()
	if o.status.State.Running() {
		o.logger.Info("Pipeline run abandoned", "run", o.run)
	}
	o.run++
	o.status = Status{State: StateIdle, Run: o.run}
}

// Status returns a snapshot of the pipeline.
func (o *Orchestrator) Status() Status {
	o.mu.Lock()
	defer o.mu.Unlock()
	s := o.status
	s.Progress = append([]model.ProgressEntry(nil), o.status.Progress...)
	return s
}

// Result returns the finished result, if any.
func (o *Orchestrator) Result() (Status, bool) {
	s := o.Status()
	return s, s.State.Done() && s.Result != nil
}

func (o *Orchestrator) begin() (uint64, error) {
	o.mu.Lock()
	defer o.mu.Unlock()
	if o.status.State.Running() {
		if o.metrics != nil {
			o.metrics.PipelineRejected.Inc()
		}
		return 0, ErrBusy
	}
	o.run++
	o.status = Status{
		State:    StateDetectingLocation,
		Run:      o.run,
		Progress: []model.ProgressEntry{{Step: string(StateDetectingLocation), Label: LabelDetecting, At: o.clock.Now()}},
	}
	return o.run, nil
}

// update applies fn to the status if run is still current.
func (o *Orchestrator) update(run uint64, fn func(s *Status)) bool {
	o.mu.Lock()
	defer o.mu.Unlock()
	if run != o.run {
		return false
	}
	fn(&o.status)
	return true
}

func (o *Orchestrator) enter(run uint64, state State, label string) {
	now := o.clock.Now()
	if o.update(run, func(s *Status) {
		s.State = state
		s.Progress = append(s.Progress, model.ProgressEntry{Step: string(state), Label: label, At: now})
	}) {
		logging.Trace(o.logger, "Pipeline transition", "run", run, "state", state)
	}
}

func (o *Orchestrator) finish(run uint64, state State, label string, res model.NarrativeResult, phase Phase) {
	now := o.clock.Now()
	current := o.update(run, func(s *Status) {
		s.State = state
		s.Progress = append(s.Progress, model.ProgressEntry{Step: string(state), Label: label, At: now})
		s.Result = &res
		s.FailedPhase = phase
	})
	if o.metrics != nil {
		o.metrics.PipelineRuns.WithLabelValues(string(res.Source)).Inc()
		if phase != "" {
			o.metrics.Fallbacks.WithLabelValues(string(phase)).Inc()
		}
	}
	if !current {
		o.logger.Debug("Discarding result of abandoned run", "run", run)
		return
	}
	o.logger.Info("Pipeline finished", "run", run, "source", res.Source, "language", res.Language)
}

func (o *Orchestrator) fallback(run uint64, req model.NarrativeRequest, phase Phase) model.NarrativeResult {
	res := narrative.Fallback(req)
	o.finish(run, StateDoneFallback, FallbackLabel(phase), res, phase)
	return res
}

// lookup resolves the place and fetches conditions concurrently.
// The resolver is total, so only the conditions error matters.
func (o *Orchestrator) lookup(ctx context.Context, c model.Coordinates) (model.PlaceDescriptor, model.ConditionsSnapshot, error) {
	var (
		wg      sync.WaitGroup
		res     geocode.Resolution
		cond    model.ConditionsSnapshot
		condErr error
	)
	wg.Add(2)
	go func() {
		defer wg.Done()
		if o.resolver == nil {
			res = geocode.Unresolved(nil)
			return
		}
		res = o.resolver.Resolve(ctx, c)
	}()
	go func() {
		defer wg.Done()
		if o.conditions == nil {
			condErr = weather.ErrConditionsUnavailable
			return
		}
		cond, condErr = o.conditions.Fetch(ctx, c)
	}()
	wg.Wait()

	if res.Err != nil {
		o.logger.Info("Place not resolved, using sentinel", "coords", c.String(), "error", res.Err)
	}
	place := res.Place
	if place.City == "" {
		place = model.UnknownPlace()
	}
	return place, cond, condErr
}

func (o *Orchestrator) generate(ctx context.Context, req model.NarrativeRequest) (string, error) {
	if o.generator == nil {
		return "", narrative.ErrGenerationFailed
	}
	text, err := o.generator.Generate(ctx, req)
	if err != nil {
		return "", err
	}
	if strings.TrimSpace(text) == "" {
		return "", narrative.ErrGenerationFailed
	}
	return text, nil
}

func (o *Orchestrator) observe(step string, start time.Time) {
	if o.metrics == nil {
		return
	}
	o.metrics.StepDuration.WithLabelValues(step).Observe(o.clock.Since(start).Seconds())
}
