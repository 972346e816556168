package pipeline

import (
	"context"
	"time"

	"github.com/google/uuid"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/metric"
	"go.uber.org/zap"

	"github.com/yairfalse/sampo/internal/analyze"
	"github.com/yairfalse/sampo/internal/ingest"
	"github.com/yairfalse/sampo/internal/rules"
	"github.com/yairfalse/sampo/pkg/domain"
)

// Runner executes one complete batch run: load and compile the rule
// configuration, ingest the data file, evaluate every rule against every
// observation, aggregate, and assemble the report. Configuration is loaded
// first so a broken config aborts before the data file is ever opened.
type Runner struct {
	logger *zap.Logger

	runsTotal   metric.Int64Counter
	runDuration metric.Float64Histogram
}

// NewRunner creates a runner.
func NewRunner(logger *zap.Logger) *Runner {
	meter := otel.Meter("sampo.pipeline")
	r := &Runner{logger: logger}

	var err error
	r.runsTotal, err = meter.Int64Counter(
		"sampo_runs_total",
		metric.WithDescription("Total pipeline runs"),
		metric.WithUnit("1"),
	)
	if err != nil {
		if logger != nil {
			logger.Debug("Failed to create runs counter", zap.Error(err))
		}
		r.runsTotal = nil
	}

	r.runDuration, err = meter.Float64Histogram(
		"sampo_run_duration_seconds",
		metric.WithDescription("Duration of one pipeline run"),
		metric.WithUnit("s"),
	)
	if err != nil {
		if logger != nil {
			logger.Debug("Failed to create run duration histogram", zap.Error(err))
		}
		r.runDuration = nil
	}

	return r
}

// Run performs one batch run over the data file at dataPath using the
// analysis configuration at configPath.
func (r *Runner) Run(ctx context.Context, dataPath, configPath string) (*domain.Report, error) {
	start := time.Now()

	ruleset, err := rules.Load(configPath)
	if err != nil {
		return nil, err
	}

	report, err := r.RunWithRuleset(ctx, ruleset, dataPath, configPath)
	if err != nil {
		return nil, err
	}

	if r.runsTotal != nil {
		r.runsTotal.Add(ctx, 1)
	}
	if r.runDuration != nil {
		r.runDuration.Record(ctx, time.Since(start).Seconds())
	}
	return report, nil
}

// RunWithRuleset performs one batch run with an already compiled ruleset.
// Watch and serve modes reuse this to re-run without reloading an unchanged
// configuration.
func (r *Runner) RunWithRuleset(ctx context.Context, ruleset *rules.Ruleset, dataPath, configPath string) (*domain.Report, error) {
	start := time.Now()

	reader := ingest.NewReader(ruleset.Doc.Schema, r.logger,
		ingest.WithDelimiter(ruleset.Doc.Schema.DelimiterRune()))
	dataset, err := reader.ReadFile(ctx, dataPath)
	if err != nil {
		return nil, err
	}

	engine := rules.NewEngine(ruleset, r.logger)
	flags := engine.Evaluate(ctx, dataset.Observations)

	analyzer := analyze.New(ruleset, r.logger)
	report := &domain.Report{
		Meta: domain.RunMeta{
			RunID:       uuid.NewString(),
			GeneratedAt: time.Now().UTC(),
			DataPath:    dataPath,
			ConfigPath:  configPath,
		},
		Summary:         analyzer.Summarize(dataset.Observations, dataset.Skipped, flags),
		Flags:           flags,
		Skipped:         dataset.Skipped,
		Groups:          analyzer.Groups(dataset.Observations, flags),
		Top:             analyzer.Top(dataset.Observations),
		HighRisk:        analyzer.HighRisk(flags),
		Recommendations: analyzer.Recommendations(flags),
	}
	report.Meta.Duration = time.Since(start)

	if r.logger != nil {
		r.logger.Info("Run complete",
			zap.String("run_id", report.Meta.RunID),
			zap.Int("observations", report.Summary.Observations),
			zap.Int("skipped", report.Summary.SkippedRows),
			zap.Int("flags", report.Summary.TotalFlags),
			zap.Duration("duration", report.Meta.Duration))
	}
	return report, nil
}
