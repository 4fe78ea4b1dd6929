// Package engine wires rule evaluation and hierarchy reconciliation into the
// classification pipeline: evaluate every applicable rule, aggregate per
// class, propagate through the ontology, detect conflicts, and emit a Result
// with full provenance.
package engine

import (
	"fmt"

	"github.com/turtacn/ChemClassify/internal/infrastructure/logging"
	"github.com/turtacn/ChemClassify/internal/infrastructure/metrics"
	"github.com/turtacn/ChemClassify/pkg/errors"
	"github.com/turtacn/ChemClassify/pkg/types/classify"
)

// Options carries the tunable behavior of a Classifier.  Construct via
// defaultOptions and the With* functional options; zero values are never
// used directly.
type Options struct {
	// Aggregation selects how multiple rule outcomes for one class combine.
	Aggregation classify.RuleAggregation

	// ConflictConfidenceThreshold is the minimum certainty an explicit
	// negative signal needs before it contradicts a matched descendant.
	// Negatives below the threshold are recorded in provenance but do not
	// block hierarchy propagation.
	ConflictConfidenceThreshold float64

	// EdgeDecayFactor attenuates propagated confidence per hierarchy edge:
	// an ancestor at up-distance d receives confidence·decay^d.  1.0 (the
	// default) propagates undiminished.
	EdgeDecayFactor float64

	Logger  logging.Logger
	Metrics metrics.EngineMetrics
}

// Option mutates Options during Classifier construction.
type Option func(*Options)

// WithAggregation sets the per-class rule aggregation policy.
func WithAggregation(a classify.RuleAggregation) Option {
	return func(o *Options) { o.Aggregation = a }
}

// WithConflictThreshold sets the negative-signal certainty required to raise
// an ancestor conflict.
func WithConflictThreshold(t float64) Option {
	return func(o *Options) { o.ConflictConfidenceThreshold = t }
}

// WithEdgeDecay sets the per-edge confidence decay factor for hierarchy
// propagation.
func WithEdgeDecay(d float64) Option {
	return func(o *Options) { o.EdgeDecayFactor = d }
}

// WithLogger sets the structured logger used by the classifier.
func WithLogger(l logging.Logger) Option {
	return func(o *Options) { o.Logger = l }
}

// WithMetrics sets the telemetry sink used by the classifier.
func WithMetrics(m metrics.EngineMetrics) Option {
	return func(o *Options) { o.Metrics = m }
}

func defaultOptions() Options {
	return Options{
		Aggregation:                 classify.AggregationMax,
		ConflictConfidenceThreshold: 0.5,
		EdgeDecayFactor:             1.0,
		Logger:                      logging.NewNopLogger(),
		Metrics:                     metrics.NewNopMetrics(),
	}
}

func (o Options) validate() error {
	if !o.Aggregation.IsValid() {
		return errors.InvalidParam("unknown aggregation policy").
			WithDetail("value=" + o.Aggregation.String())
	}
	if o.ConflictConfidenceThreshold < 0 || o.ConflictConfidenceThreshold > 1 {
		return errors.InvalidParam("conflict threshold must be in [0,1]").
			WithDetail(fmt.Sprintf("value=%g", o.ConflictConfidenceThreshold))
	}
	if o.EdgeDecayFactor <= 0 || o.EdgeDecayFactor > 1 {
		return errors.InvalidParam("edge decay factor must be in (0,1]").
			WithDetail(fmt.Sprintf("value=%g", o.EdgeDecayFactor))
	}
	if o.Logger == nil || o.Metrics == nil {
		return errors.InvalidParam("logger and metrics must not be nil")
	}
	return nil
}
