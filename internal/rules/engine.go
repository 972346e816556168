package rules

import (
	"context"
	"fmt"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/metric"
	"go.uber.org/zap"

	"github.com/yairfalse/sampo/pkg/domain"
)

// Ruleset is a validated, compiled analysis configuration ready for
// evaluation. Load and Parse are the only ways to obtain one, so an engine
// can never run on unvalidated config.
type Ruleset struct {
	Doc      *Document
	Compiled []*CompiledRule
}

// Rules returns the configured rules in document order.
func (rs *Ruleset) Rules() []domain.Rule {
	rules := make([]domain.Rule, 0, len(rs.Compiled))
	for _, cr := range rs.Compiled {
		rules = append(rules, cr.Rule)
	}
	return rules
}

// Engine applies a compiled ruleset to observations. Evaluation is
// single-threaded and ordered: row order first, rule order within a row,
// so identical input always yields an identical flag slice.
type Engine struct {
	ruleset *Ruleset
	logger  *zap.Logger

	observationsSeen metric.Int64Counter
	flagsRaised      metric.Int64Counter
}

// NewEngine creates an engine for the given ruleset.
func NewEngine(ruleset *Ruleset, logger *zap.Logger) *Engine {
	meter := otel.Meter("sampo.rules")
	e := &Engine{ruleset: ruleset, logger: logger}

	var err error
	e.observationsSeen, err = meter.Int64Counter(
		"sampo_observations_evaluated_total",
		metric.WithDescription("Total observations evaluated against the ruleset"),
		metric.WithUnit("1"),
	)
	if err != nil {
		if logger != nil {
			logger.Debug("Failed to create observations counter", zap.Error(err))
		}
		e.observationsSeen = nil
	}

	e.flagsRaised, err = meter.Int64Counter(
		"sampo_flags_raised_total",
		metric.WithDescription("Total risk flags raised"),
		metric.WithUnit("1"),
	)
	if err != nil {
		if logger != nil {
			logger.Debug("Failed to create flags counter", zap.Error(err))
		}
		e.flagsRaised = nil
	}

	return e
}

// Evaluate applies every rule to every observation. An observation that
// satisfies k rules yields exactly k flags; one that satisfies none yields
// none. Flags are fully formed here and never mutated afterwards.
func (e *Engine) Evaluate(ctx context.Context, observations []domain.Observation) []domain.RiskFlag {
	flags := make([]domain.RiskFlag, 0)
	for _, obs := range observations {
		for _, cr := range e.ruleset.Compiled {
			if !cr.Matches(obs) {
				continue
			}
			value, _ := obs.Value(cr.Rule.Attribute)
			flags = append(flags, domain.RiskFlag{
				Entity:    obs.Entity,
				Row:       obs.Row,
				Rule:      cr.Rule.Name,
				Label:     cr.Rule.Label,
				Severity:  cr.Rule.Severity,
				Attribute: cr.Rule.Attribute,
				Value:     value,
				Threshold: cr.Rule.Threshold,
				Detail:    fmt.Sprintf("%s %s %s %s", cr.Rule.Attribute, value, cr.Rule.Comparator, cr.Rule.Threshold),
			})
		}
	}

	if e.observationsSeen != nil {
		e.observationsSeen.Add(ctx, int64(len(observations)))
	}
	if e.flagsRaised != nil {
		e.flagsRaised.Add(ctx, int64(len(flags)))
	}
	if e.logger != nil {
		e.logger.Debug("Rule evaluation complete",
			zap.Int("observations", len(observations)),
			zap.Int("rules", len(e.ruleset.Compiled)),
			zap.Int("flags", len(flags)))
	}

	return flags
}
