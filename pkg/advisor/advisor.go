// Package advisor asks a language model for a cost estimate and falls back
// to the deterministic cost model on any failure.
package advisor

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"

	"github.com/philipparndt/partquote/pkg/analysis"
	"github.com/philipparndt/partquote/pkg/cost"
)

// DefaultTimeout bounds a single advisor call
const DefaultTimeout = 20 * time.Second

// Provenance tells which path produced an estimate
type Provenance string

const (
	// ProvenanceAI means the language model answer was accepted
	ProvenanceAI Provenance = "ai"
	// ProvenanceFallback means the model call failed and the cost model answered
	ProvenanceFallback Provenance = "algorithm-fallback"
	// ProvenanceAlgorithm means no model was configured
	ProvenanceAlgorithm Provenance = "algorithm"
)

// ErrNoJSON is reported when a reply contains no JSON object
var ErrNoJSON = errors.New("no JSON object in reply")

// ServiceError wraps every failure of the language model path
type ServiceError struct {
	Op  string
	Err error
}

func (e *ServiceError) Error() string {
	return fmt.Sprintf("ai service %s: %v", e.Op, e.Err)
}

func (e *ServiceError) Unwrap() error {
	return e.Err
}

// Result is the outcome of an advisor call. Err holds the absorbed service
// error when Provenance is ProvenanceFallback.
type Result struct {
	Breakdown  cost.Breakdown
	Provenance Provenance
	Err        error
}

// Advisor produces cost estimates
type Advisor struct {
	completer Completer
	model     *cost.Model
	timeout   time.Duration
	logger    zerolog.Logger
}

// Option configures an Advisor
type Option func(*Advisor)

// WithTimeout bounds the model call. Non-positive values are ignored.
func WithTimeout(timeout time.Duration) Option {
	return func(a *Advisor) {
		if timeout > 0 {
			a.timeout = timeout
		}
	}
}

// WithLogger sets the logger
func WithLogger(logger zerolog.Logger) Option {
	return func(a *Advisor) { a.logger = logger }
}

// New creates an advisor. A nil completer disables the model path and every
// estimate comes from the cost model.
func New(completer Completer, model *cost.Model, opts ...Option) *Advisor {
	if model == nil {
		model = cost.NewModel(nil)
	}
	a := &Advisor{
		completer: completer,
		model:     model,
		timeout:   DefaultTimeout,
		logger:    log.With().Str("component", "advisor").Logger(),
	}
	for _, opt := range opts {
		opt(a)
	}
	return a
}

// Model returns the deterministic cost model behind the advisor
func (a *Advisor) Model() *cost.Model {
	return a.model
}

// Estimate asks the model once and validates the answer. Any failure yields
// the cost model result tagged ProvenanceFallback.
func (a *Advisor) Estimate(ctx context.Context, metrics analysis.GeometryMetrics, material string) Result {
	if material == "" {
		material = cost.DefaultMaterial
	}
	if a.completer == nil {
		return Result{Breakdown: a.model.Estimate(metrics, material), Provenance: ProvenanceAlgorithm}
	}

	breakdown, err := a.ask(ctx, metrics, material)
	if err != nil {
		a.logger.Warn().Err(err).Str("material", material).Msg("ai estimate failed, using cost model")
		return Result{
			Breakdown:  a.model.Estimate(metrics, material),
			Provenance: ProvenanceFallback,
			Err:        err,
		}
	}

	a.logger.Debug().Str("material", material).Float64("total", breakdown.TotalCost).Msg("ai estimate accepted")
	return Result{Breakdown: breakdown, Provenance: ProvenanceAI}
}

func (a *Advisor) ask(ctx context.Context, metrics analysis.GeometryMetrics, material string) (cost.Breakdown, error) {
	ctx, cancel := context.WithTimeout(ctx, a.timeout)
	defer cancel()

	reply, err := a.completer.Complete(ctx, BuildMessages(metrics, material, a.model.Rates()))
	if err != nil {
		return cost.Breakdown{}, &ServiceError{Op: "request", Err: err}
	}

	breakdown, err := ParseReply(reply, material)
	if err != nil {
		return cost.Breakdown{}, &ServiceError{Op: "parse", Err: err}
	}
	if err := cost.Validate(breakdown); err != nil {
		return cost.Breakdown{}, &ServiceError{Op: "validate", Err: err}
	}
	return breakdown, nil
}

// ParseReply extracts a breakdown from a model reply. All five cost fields
// must be numbers; material defaults to the requested one.
func ParseReply(reply, material string) (cost.Breakdown, error) {
	raw, ok := ExtractJSON(reply)
	if !ok {
		return cost.Breakdown{}, ErrNoJSON
	}

	var fields struct {
		MaterialCost  *float64 `json:"materialCost"`
		MachiningCost *float64 `json:"machiningCost"`
		SetupCost     *float64 `json:"setupCost"`
		FinishingCost *float64 `json:"finishingCost"`
		TotalCost     *float64 `json:"totalCost"`
		EstimatedTime *string  `json:"estimatedTime"`
		Complexity    *string  `json:"complexity"`
		Material      *string  `json:"material"`
	}
	if err := json.Unmarshal([]byte(raw), &fields); err != nil {
		return cost.Breakdown{}, fmt.Errorf("failed to decode reply: %w", err)
	}

	var missing []string
	for _, field := range []struct {
		name  string
		value *float64
	}{
		{"materialCost", fields.MaterialCost},
		{"machiningCost", fields.MachiningCost},
		{"setupCost", fields.SetupCost},
		{"finishingCost", fields.FinishingCost},
		{"totalCost", fields.TotalCost},
	} {
		if field.value == nil {
			missing = append(missing, field.name)
		}
	}
	if fields.EstimatedTime == nil || strings.TrimSpace(*fields.EstimatedTime) == "" {
		missing = append(missing, "estimatedTime")
	}
	if len(missing) > 0 {
		return cost.Breakdown{}, fmt.Errorf("reply is missing %s", strings.Join(missing, ", "))
	}

	var complexity cost.Complexity
	if fields.Complexity != nil {
		complexity, ok = cost.ParseComplexity(*fields.Complexity)
	}
	if fields.Complexity == nil || !ok {
		return cost.Breakdown{}, errors.New("reply has no valid complexity")
	}

	if fields.Material != nil && strings.TrimSpace(*fields.Material) != "" {
		material = *fields.Material
	}

	return cost.Breakdown{
		MaterialCost:  *fields.MaterialCost,
		MachiningCost: *fields.MachiningCost,
		SetupCost:     *fields.SetupCost,
		FinishingCost: *fields.FinishingCost,
		TotalCost:     *fields.TotalCost,
		EstimatedTime: strings.TrimSpace(*fields.EstimatedTime),
		Complexity:    complexity,
		Material:      material,
	}, nil
}
