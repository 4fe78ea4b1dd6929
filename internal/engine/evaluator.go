package engine

import (
	"context"
	"sort"

	"github.com/turtacn/ChemClassify/internal/domain/ontology"
	"github.com/turtacn/ChemClassify/internal/domain/rule"
	"github.com/turtacn/ChemClassify/internal/domain/structure"
	"github.com/turtacn/ChemClassify/internal/infrastructure/logging"
	"github.com/turtacn/ChemClassify/internal/infrastructure/metrics"
	"github.com/turtacn/ChemClassify/pkg/types/classify"
)

// ClassSignal is the aggregated evidence for one ontology class after every
// rule registered for it has been evaluated.
type ClassSignal struct {
	// Matched is true when the aggregation policy accepts the class.
	Matched bool

	// Confidence is the aggregated positive confidence when Matched.
	Confidence float64

	// NegativeConfidence is the strongest explicit-negative certainty among
	// the class's unmatched outcomes.  Tracked independently of the policy so
	// the reconciler can test it against the conflict threshold.
	NegativeConfidence float64

	// Outcomes holds every rule outcome for the class, including unavailable
	// ones, in rule-ID order.
	Outcomes []rule.Outcome
}

// evaluator runs every rule of a set against one structure and aggregates
// outcomes per class.  Rules shared by several classes are evaluated once.
type evaluator struct {
	rules       *rule.RuleSet
	aggregation classify.RuleAggregation
	log         logging.Logger
	metrics     metrics.EngineMetrics
}

func newEvaluator(rs *rule.RuleSet, opts Options) *evaluator {
	return &evaluator{
		rules:       rs,
		aggregation: opts.Aggregation,
		log:         opts.Logger.Named("evaluator"),
		metrics:     opts.Metrics,
	}
}

// evaluate produces a ClassSignal for every class that has at least one
// registered rule.  A rule whose declared requirements the structure cannot
// satisfy is skipped with an unavailable outcome instead of being run; one
// rule's unavailability never aborts the rest.
func (e *evaluator) evaluate(ctx context.Context, s structure.Structure) (map[ontology.ClassID]ClassSignal, error) {
	outcomes := make(map[string]rule.Outcome, e.rules.Len())

	for _, r := range e.rules.Rules() {
		if err := ctx.Err(); err != nil {
			return nil, err
		}

		var out rule.Outcome
		if !r.Requires().SatisfiedBy(s) {
			out = rule.Outcome{
				RuleID: r.ID(),
				Evidence: rule.Evidence{
					Unavailable: true,
					Reason:      "declared requirements not satisfiable on structure",
				},
			}
		} else {
			out = r.Evaluate(s)
		}
		outcomes[r.ID()] = out

		switch {
		case out.Evidence.Unavailable:
			e.metrics.RecordRuleEvaluation(metrics.DispositionUnavailable)
		case out.Matched:
			e.metrics.RecordRuleEvaluation(metrics.DispositionMatched)
		default:
			e.metrics.RecordRuleEvaluation(metrics.DispositionUnmatched)
		}
	}

	signals := make(map[ontology.ClassID]ClassSignal)
	for _, c := range e.rules.Graph().Classes() {
		classRules := e.rules.RulesFor(c)
		if len(classRules) == 0 {
			continue
		}
		outs := make([]rule.Outcome, 0, len(classRules))
		for _, r := range classRules {
			outs = append(outs, outcomes[r.ID()])
		}
		sig := aggregate(outs, e.aggregation)
		signals[c] = sig

		if sig.Matched {
			e.log.Debug("class matched",
				logging.String("class", string(c)),
				logging.Float64("confidence", sig.Confidence))
		}
	}
	return signals, nil
}

// aggregate folds the outcomes of one class under the given policy.  All
// policies are order independent; unavailable outcomes contribute nothing
// beyond provenance.  The strongest explicit-negative certainty is tracked
// uniformly across policies.
func aggregate(outs []rule.Outcome, policy classify.RuleAggregation) ClassSignal {
	sortOutcomes(outs)
	sig := ClassSignal{Outcomes: outs}

	evaluable, matched := 0, 0
	minConf := 1.0
	for _, o := range outs {
		if o.Evidence.Unavailable {
			continue
		}
		evaluable++
		if o.Matched {
			matched++
			if o.Confidence > sig.Confidence {
				sig.Confidence = o.Confidence
			}
			if o.Confidence < minConf {
				minConf = o.Confidence
			}
		} else if o.Confidence > sig.NegativeConfidence {
			sig.NegativeConfidence = o.Confidence
		}
	}

	switch policy {
	case classify.AggregationAny:
		if matched > 0 {
			sig.Matched = true
			sig.Confidence = 1.0
		}
	case classify.AggregationAll:
		if evaluable > 0 && matched == evaluable {
			sig.Matched = true
			sig.Confidence = minConf
		} else {
			sig.Confidence = 0
		}
	default: // AggregationMax
		sig.Matched = matched > 0
	}
	if !sig.Matched {
		sig.Confidence = 0
	}
	return sig
}

func sortOutcomes(outs []rule.Outcome) {
	sort.Slice(outs, func(i, j int) bool { return outs[i].RuleID < outs[j].RuleID })
}
