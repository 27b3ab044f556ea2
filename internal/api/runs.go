package api

import (
	"context"
	"sync"
	"time"

	"github.com/rs/zerolog"

	"github.com/philipparndt/partquote/internal/history"
	"github.com/philipparndt/partquote/internal/pipeline"
	"github.com/philipparndt/partquote/pkg/surrogate"
)

// Recorder stores finished estimates
type Recorder interface {
	Record(ctx context.Context, e history.Entry) (int64, error)
}

type run struct {
	pipeline *pipeline.Pipeline
	cancel   context.CancelFunc
	done     chan struct{}
	err      error
	finished time.Time
}

// Registry tracks the runs started over HTTP. Each run owns a pipeline and a
// goroutine. Finished runs are dropped by Cleanup once older than the TTL.
type Registry struct {
	backend   *surrogate.Backend
	estimator pipeline.Estimator
	recorder  Recorder
	logger    zerolog.Logger
	ttl       time.Duration
	now       func() time.Time

	mu   sync.Mutex
	runs map[string]*run
}

// NewRegistry creates an empty registry. recorder may be nil.
func NewRegistry(backend *surrogate.Backend, estimator pipeline.Estimator, recorder Recorder, ttl time.Duration, logger zerolog.Logger) *Registry {
	if backend == nil {
		backend = surrogate.NewBackend()
	}
	return &Registry{
		backend:   backend,
		estimator: estimator,
		recorder:  recorder,
		logger:    logger,
		ttl:       ttl,
		now:       time.Now,
		runs:      make(map[string]*run),
	}
}

// Start selects the input on a new pipeline and processes it in the
// background. The returned state is the Ready snapshot.
func (r *Registry) Start(in pipeline.Input, material string) (pipeline.State, error) {
	p := pipeline.New(r.backend, r.estimator,
		pipeline.WithLogger(r.logger),
		pipeline.WithMaterial(material),
	)
	if err := p.Select(in); err != nil {
		return pipeline.State{}, err
	}
	state := p.Snapshot()

	ctx, cancel := context.WithCancel(context.Background())
	rn := &run{pipeline: p, cancel: cancel, done: make(chan struct{})}

	r.mu.Lock()
	r.runs[state.RunID] = rn
	r.mu.Unlock()

	go r.process(ctx, state.RunID, rn)
	return state, nil
}

func (r *Registry) process(ctx context.Context, id string, rn *run) {
	defer close(rn.done)
	defer rn.cancel()

	result, err := rn.pipeline.Start(ctx)

	r.mu.Lock()
	rn.err = err
	rn.finished = r.now()
	r.mu.Unlock()

	if err != nil {
		r.logger.Debug().Err(err).Str("run", id).Msg("run failed")
		return
	}
	if r.recorder == nil {
		return
	}
	entry := history.NewEntry(result.RunID, rn.pipeline.Snapshot().FileName, result.Metrics, result.Estimate)
	if _, err := r.recorder.Record(context.Background(), entry); err != nil {
		r.logger.Warn().Err(err).Str("run", id).Msg("failed to record estimate")
	}
}

func (r *Registry) lookup(id string) (*run, bool) {
	r.mu.Lock()
	defer r.mu.Unlock()
	rn, ok := r.runs[id]
	return rn, ok
}

// Get returns the current state of a run
func (r *Registry) Get(id string) (pipeline.State, bool) {
	rn, ok := r.lookup(id)
	if !ok {
		return pipeline.State{}, false
	}
	return rn.pipeline.Snapshot(), true
}

// Wait blocks until the run finishes or ctx ends and returns the run's error
func (r *Registry) Wait(ctx context.Context, id string) (pipeline.State, error) {
	rn, ok := r.lookup(id)
	if !ok {
		return pipeline.State{}, NewNotFoundError("run", id)
	}
	select {
	case <-rn.done:
	case <-ctx.Done():
		return rn.pipeline.Snapshot(), ctx.Err()
	}

	r.mu.Lock()
	err := rn.err
	r.mu.Unlock()
	return rn.pipeline.Snapshot(), err
}

// Delete cancels a run and forgets it
func (r *Registry) Delete(id string) bool {
	r.mu.Lock()
	rn, ok := r.runs[id]
	delete(r.runs, id)
	r.mu.Unlock()
	if !ok {
		return false
	}
	rn.cancel()
	rn.pipeline.Reset()
	return true
}

// Len returns the number of tracked runs
func (r *Registry) Len() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.runs)
}

// Cleanup drops finished runs older than the TTL and returns how many
func (r *Registry) Cleanup() int {
	r.mu.Lock()
	defer r.mu.Unlock()

	cutoff := r.now().Add(-r.ttl)
	removed := 0
	for id, rn := range r.runs {
		if rn.finished.IsZero() || rn.finished.After(cutoff) {
			continue
		}
		delete(r.runs, id)
		removed++
	}
	return removed
}

// RunCleanup calls Cleanup every interval until ctx ends
func (r *Registry) RunCleanup(ctx context.Context, interval time.Duration) {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			if n := r.Cleanup(); n > 0 {
				r.logger.Debug().Int("count", n).Msg("expired runs removed")
			}
		}
	}
}

// Close cancels every run in flight
func (r *Registry) Close() {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, rn := range r.runs {
		rn.cancel()
	}
}
