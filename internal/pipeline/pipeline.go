// Package pipeline sequences decoding, metrics extraction and cost
// estimation for one part file at a time.
package pipeline

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"

	"github.com/philipparndt/partquote/pkg/advisor"
	"github.com/philipparndt/partquote/pkg/analysis"
	"github.com/philipparndt/partquote/pkg/cost"
	"github.com/philipparndt/partquote/pkg/mesh"
	"github.com/philipparndt/partquote/pkg/stl"
	"github.com/philipparndt/partquote/pkg/surrogate"
)

var (
	// ErrRunSuperseded is returned by Start when Reset or Select replaced the
	// run while it was in flight. The run's results are discarded.
	ErrRunSuperseded = errors.New("run superseded")
	// ErrNotReady is returned by Start when no file is selected
	ErrNotReady = errors.New("pipeline is not ready")
	// ErrCancelled is returned by Start when its context ends first
	ErrCancelled = errors.New("processing cancelled")
)

// Estimator turns metrics into a cost estimate. *advisor.Advisor implements it.
type Estimator interface {
	Estimate(ctx context.Context, metrics analysis.GeometryMetrics, material string) advisor.Result
}

// State is a snapshot of the pipeline
type State struct {
	RunID     string
	Stage     Stage
	Progress  int
	Message   string
	FileName  string
	Material  string
	Mesh      *mesh.Buffer
	Metrics   *analysis.GeometryMetrics
	Estimate  *advisor.Result
	UpdatedAt time.Time
}

// Result is what a completed run produced
type Result struct {
	RunID    string
	Input    ParsedInput
	Mesh     *mesh.Buffer
	Metrics  analysis.GeometryMetrics
	Estimate advisor.Result
}

// Pipeline runs one part file through the stages. It is safe for concurrent
// use; a new Select or Reset supersedes the run in flight.
//
// Listeners see events in the order the state changed and never see an
// event of a superseded run after the next run's Ready. They may call
// Snapshot but must not call Select, Reset or Start.
type Pipeline struct {
	backend   *surrogate.Backend
	estimator Estimator
	logger    zerolog.Logger
	listeners []Listener
	material  string

	// emitMu is held from a state change until its event is delivered
	emitMu sync.Mutex

	mu    sync.Mutex
	input *Input
	state State
}

// Option configures a Pipeline
type Option func(*Pipeline)

// WithLogger sets the logger
func WithLogger(logger zerolog.Logger) Option {
	return func(p *Pipeline) { p.logger = logger }
}

// WithListener registers a listener for stage events
func WithListener(l Listener) Option {
	return func(p *Pipeline) { p.listeners = append(p.listeners, l) }
}

// WithMaterial sets the material estimates are made for
func WithMaterial(material string) Option {
	return func(p *Pipeline) { p.material = material }
}

// New creates an idle pipeline. A nil backend gets a fresh one.
func New(backend *surrogate.Backend, estimator Estimator, opts ...Option) *Pipeline {
	if backend == nil {
		backend = surrogate.NewBackend()
	}
	p := &Pipeline{
		backend:   backend,
		estimator: estimator,
		logger:    log.With().Str("component", "pipeline").Logger(),
		material:  cost.DefaultMaterial,
	}
	for _, opt := range opts {
		opt(p)
	}
	p.state = State{Stage: StageIdle, Material: p.material, UpdatedAt: time.Now()}
	return p
}

// Select discards the current run and makes the input ready to start.
// Files that are neither meshes nor solids are rejected with
// *UnsupportedFormatError and leave the pipeline untouched.
func (p *Pipeline) Select(in Input) error {
	if in.Format == FormatUnknown {
		in.Format = DetectFormat(in.Name)
	}
	if in.Format == FormatUnknown {
		return &UnsupportedFormatError{Name: in.Name}
	}

	p.emitMu.Lock()
	defer p.emitMu.Unlock()

	p.mu.Lock()
	p.input = &in
	p.state = State{
		RunID:     uuid.NewString(),
		Stage:     StageReady,
		FileName:  in.Name,
		Material:  p.material,
		UpdatedAt: time.Now(),
	}
	event := p.eventLocked()
	p.mu.Unlock()

	p.logger.Debug().Str("run", event.RunID).Str("file", in.Name).Stringer("format", in.Format).Msg("file selected")
	p.emit(event)
	return nil
}

// Reset returns to Idle and clears every result. A run in flight is
// superseded.
func (p *Pipeline) Reset() {
	p.emitMu.Lock()
	defer p.emitMu.Unlock()

	p.mu.Lock()
	p.input = nil
	p.state = State{Stage: StageIdle, Material: p.material, UpdatedAt: time.Now()}
	event := p.eventLocked()
	p.mu.Unlock()

	p.emit(event)
}

// Snapshot returns the current state
func (p *Pipeline) Snapshot() State {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.state
}

// Start runs the selected input through every stage. A decode failure or a
// cancelled context moves the run to Error. No stage is retried.
func (p *Pipeline) Start(ctx context.Context) (*Result, error) {
	p.emitMu.Lock()
	p.mu.Lock()
	if p.state.Stage != StageReady || p.input == nil {
		stage := p.state.Stage
		p.mu.Unlock()
		p.emitMu.Unlock()
		return nil, fmt.Errorf("%w: stage is %s", ErrNotReady, stage)
	}
	in := *p.input
	runID := p.state.RunID
	material := p.state.Material
	p.setStageLocked(StageParsing, "")
	event := p.eventLocked()
	p.mu.Unlock()
	p.emit(event)
	p.emitMu.Unlock()

	runLog := p.logger.With().Str("run", runID).Str("file", in.Name).Logger()
	runLog.Info().Stringer("format", in.Format).Str("material", material).Msg("processing started")

	parsed, err := p.parse(in)
	if err != nil {
		runLog.Warn().Err(err).Msg("decode failed")
		return nil, p.fail(runID, err)
	}
	if ctx.Err() != nil {
		return nil, p.cancel(ctx, runID)
	}

	var buf *mesh.Buffer
	switch input := parsed.(type) {
	case RealMesh:
		buf = input.Mesh
	case SyntheticInput:
		buf = p.backend.Preview(input.FileName)
	}
	if err := p.commit(runID, StageExtracting, func(s *State) {
		s.Mesh = buf
	}); err != nil {
		return nil, err
	}

	var metrics analysis.GeometryMetrics
	switch input := parsed.(type) {
	case RealMesh:
		if !buf.HasNormals() {
			buf = mesh.ComputeVertexNormals(buf)
		}
		metrics = analysis.Calculate(buf)
	case SyntheticInput:
		metrics = surrogate.EstimateSeed(input.Seed)
	}
	runLog.Debug().Str("source", string(metrics.Source)).Float64("volume", metrics.Volume).Int("faces", metrics.FaceCount).Msg("metrics extracted")
	if ctx.Err() != nil {
		return nil, p.cancel(ctx, runID)
	}

	if err := p.commit(runID, StageEstimating, func(s *State) {
		s.Mesh = buf
		s.Metrics = &metrics
	}); err != nil {
		return nil, err
	}
	estimate := p.estimate(ctx, metrics, material)
	if ctx.Err() != nil {
		return nil, p.cancel(ctx, runID)
	}

	if err := p.commit(runID, StageComplete, func(s *State) {
		s.Estimate = &estimate
	}); err != nil {
		return nil, err
	}
	runLog.Info().Float64("total", estimate.Breakdown.TotalCost).Str("provenance", string(estimate.Provenance)).Msg("processing complete")

	return &Result{
		RunID:    runID,
		Input:    parsed,
		Mesh:     buf,
		Metrics:  metrics,
		Estimate: estimate,
	}, nil
}

func (p *Pipeline) parse(in Input) (ParsedInput, error) {
	if in.Format == FormatSolid {
		return SyntheticInput{FileName: in.Name, Seed: surrogate.Seed(in.Name)}, nil
	}
	model, err := stl.Decode(in.Data)
	if err != nil {
		return nil, err
	}
	return RealMesh{Name: in.Name, Mesh: model.Mesh}, nil
}

func (p *Pipeline) estimate(ctx context.Context, metrics analysis.GeometryMetrics, material string) advisor.Result {
	if p.estimator == nil {
		return advisor.Result{
			Breakdown:  cost.NewModel(nil).Estimate(metrics, material),
			Provenance: advisor.ProvenanceAlgorithm,
		}
	}
	return p.estimator.Estimate(ctx, metrics, material)
}

// commit moves the run to stage and applies update, unless the run has been
// superseded
func (p *Pipeline) commit(runID string, stage Stage, update func(*State)) error {
	p.emitMu.Lock()
	defer p.emitMu.Unlock()

	p.mu.Lock()
	if p.state.RunID != runID || p.state.Stage.Terminal() {
		p.mu.Unlock()
		p.logger.Debug().Str("run", runID).Str("stage", string(stage)).Msg("discarding stale stage")
		return ErrRunSuperseded
	}
	if update != nil {
		update(&p.state)
	}
	p.setStageLocked(stage, "")
	event := p.eventLocked()
	p.mu.Unlock()

	p.emit(event)
	return nil
}

// fail moves the run to Error and returns cause, or ErrRunSuperseded
func (p *Pipeline) fail(runID string, cause error) error {
	p.emitMu.Lock()
	defer p.emitMu.Unlock()

	p.mu.Lock()
	if p.state.RunID != runID || p.state.Stage.Terminal() {
		p.mu.Unlock()
		return ErrRunSuperseded
	}
	p.setStageLocked(StageError, cause.Error())
	event := p.eventLocked()
	p.mu.Unlock()

	p.emit(event)
	return cause
}

// cancel moves the run to Error with the cancellation message
func (p *Pipeline) cancel(ctx context.Context, runID string) error {
	p.logger.Info().Str("run", runID).Msg("processing cancelled")
	if err := p.fail(runID, ErrCancelled); errors.Is(err, ErrRunSuperseded) {
		return err
	}
	return fmt.Errorf("%w: %w", ErrCancelled, context.Cause(ctx))
}

func (p *Pipeline) setStageLocked(stage Stage, message string) {
	p.state.Stage = stage
	p.state.Progress = stage.Progress()
	p.state.Message = message
	p.state.UpdatedAt = time.Now()
}

func (p *Pipeline) eventLocked() Event {
	return Event{
		RunID:    p.state.RunID,
		Stage:    p.state.Stage,
		Progress: p.state.Progress,
		Message:  p.state.Message,
	}
}

func (p *Pipeline) emit(e Event) {
	for _, l := range p.listeners {
		l.OnEvent(e)
	}
}

// Run selects the input on a fresh pipeline and processes it
func Run(ctx context.Context, backend *surrogate.Backend, estimator Estimator, in Input, opts ...Option) (*Result, error) {
	p := New(backend, estimator, opts...)
	if err := p.Select(in); err != nil {
		return nil, err
	}
	return p.Start(ctx)
}
