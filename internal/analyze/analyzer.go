package analyze

import (
	"fmt"
	"sort"

	"go.uber.org/zap"

	"github.com/yairfalse/sampo/internal/rules"
	"github.com/yairfalse/sampo/pkg/domain"
)

// Analyzer derives the aggregate sections of a report from observations and
// flags. Every method is a pure computation over its inputs: identical
// observations and flags always produce identical output, regardless of how
// often or in which order the methods run.
type Analyzer struct {
	schema  domain.Schema
	options rules.AnalysisOptions
	rules   []domain.Rule
	logger  *zap.Logger
}

// New creates an analyzer for the given ruleset.
func New(ruleset *rules.Ruleset, logger *zap.Logger) *Analyzer {
	return &Analyzer{
		schema:  ruleset.Doc.Schema,
		options: ruleset.Doc.Analysis,
		rules:   ruleset.Rules(),
		logger:  logger,
	}
}

// Summarize computes overall run statistics. An empty observation set yields
// a zeroed summary with empty count maps, never an error and never NaN.
func (a *Analyzer) Summarize(observations []domain.Observation, skipped []domain.SkippedRow, flags []domain.RiskFlag) domain.Summary {
	summary := domain.Summary{
		Observations:    len(observations),
		SkippedRows:     len(skipped),
		TotalFlags:      len(flags),
		FlagsByLabel:    make(map[string]int),
		FlagsBySeverity: make(map[domain.Severity]int),
		Metrics:         make(map[string]domain.MetricStats),
	}

	entities := make(map[string]bool)
	for _, flag := range flags {
		summary.FlagsByLabel[flag.Label]++
		summary.FlagsBySeverity[flag.Severity]++
		entities[flag.Entity] = true
	}
	summary.FlaggedEntities = len(entities)

	for _, attr := range a.schema.NumericAttributes() {
		summary.Metrics[attr] = metricStats(observations, attr)
	}

	if a.logger != nil {
		a.logger.Debug("Summary computed",
			zap.Int("observations", summary.Observations),
			zap.Int("flags", summary.TotalFlags),
			zap.Int("flagged_entities", summary.FlaggedEntities))
	}
	return summary
}

// metricStats folds one numeric attribute across the observations that carry
// it. Count 0 reports min, max, and mean as 0.
func metricStats(observations []domain.Observation, attr string) domain.MetricStats {
	var stats domain.MetricStats
	for _, obs := range observations {
		v, ok := obs.Number(attr)
		if !ok {
			continue
		}
		if stats.Count == 0 || v < stats.Min {
			stats.Min = v
		}
		if stats.Count == 0 || v > stats.Max {
			stats.Max = v
		}
		stats.Sum += v
		stats.Count++
	}
	if stats.Count > 0 {
		stats.Mean = stats.Sum / float64(stats.Count)
	}
	return stats
}

// Groups aggregates observations by each configured grouping attribute.
// Observations that do not carry the attribute are left out of that
// grouping. Rows are sorted by group key.
func (a *Analyzer) Groups(observations []domain.Observation, flags []domain.RiskFlag) []domain.GroupSummary {
	if len(a.options.Groups) == 0 {
		return nil
	}

	flagsByRow := make(map[int]int, len(flags))
	for _, flag := range flags {
		flagsByRow[flag.Row]++
	}

	numeric := a.schema.NumericAttributes()
	summaries := make([]domain.GroupSummary, 0, len(a.options.Groups))
	for _, attr := range a.options.Groups {
		summaries = append(summaries, a.groupBy(attr, observations, flagsByRow, numeric))
	}
	return summaries
}

func (a *Analyzer) groupBy(attr string, observations []domain.Observation, flagsByRow map[int]int, numeric []string) domain.GroupSummary {
	type bucket struct {
		count   int
		flags   int
		sums    map[string]float64
		nCounts map[string]int
	}
	buckets := make(map[string]*bucket)

	for _, obs := range observations {
		key, ok := obs.Text(attr)
		if !ok {
			continue
		}
		b := buckets[key]
		if b == nil {
			b = &bucket{sums: make(map[string]float64), nCounts: make(map[string]int)}
			buckets[key] = b
		}
		b.count++
		b.flags += flagsByRow[obs.Row]
		for _, n := range numeric {
			if v, ok := obs.Number(n); ok {
				b.sums[n] += v
				b.nCounts[n]++
			}
		}
	}

	keys := make([]string, 0, len(buckets))
	for key := range buckets {
		keys = append(keys, key)
	}
	sort.Strings(keys)

	rows := make([]domain.GroupRow, 0, len(keys))
	for _, key := range keys {
		b := buckets[key]
		row := domain.GroupRow{
			Key:     key,
			Count:   b.count,
			Flags:   b.flags,
			Metrics: make(map[string]domain.GroupStat, len(numeric)),
		}
		for _, n := range numeric {
			count := b.nCounts[n]
			stat := domain.GroupStat{Count: count, Sum: b.sums[n]}
			if count > 0 {
				stat.Mean = stat.Sum / float64(count)
			}
			row.Metrics[n] = stat
		}
		rows = append(rows, row)
	}

	return domain.GroupSummary{Attribute: attr, Rows: rows}
}

// Top ranks entities by the configured numeric attribute, descending.
// An entity observed several times ranks by the sum of its values; ties
// break by entity ID ascending. Returns nil when no ranking is configured.
func (a *Analyzer) Top(observations []domain.Observation) *domain.Ranking {
	attr := a.options.Top.Attribute
	if attr == "" {
		return nil
	}

	totals := make(map[string]float64)
	for _, obs := range observations {
		if v, ok := obs.Number(attr); ok {
			totals[obs.Entity] += v
		}
	}

	entities := make([]domain.TopEntity, 0, len(totals))
	for entity, value := range totals {
		entities = append(entities, domain.TopEntity{Entity: entity, Value: value})
	}
	sort.Slice(entities, func(i, j int) bool {
		if entities[i].Value != entities[j].Value {
			return entities[i].Value > entities[j].Value
		}
		return entities[i].Entity < entities[j].Entity
	})

	if len(entities) > a.options.Top.Count {
		entities = entities[:a.options.Top.Count]
	}
	return &domain.Ranking{Attribute: attr, Entities: entities}
}

// HighRisk lists entities whose flag count reached the configured minimum,
// sorted by flag count descending, then entity ID. Each entry carries the
// distinct labels raised against the entity and the worst severity seen.
func (a *Analyzer) HighRisk(flags []domain.RiskFlag) []domain.EntityRisk {
	type tally struct {
		flags  int
		worst  domain.Severity
		labels map[string]bool
	}
	tallies := make(map[string]*tally)

	for _, flag := range flags {
		t := tallies[flag.Entity]
		if t == nil {
			t = &tally{labels: make(map[string]bool)}
			tallies[flag.Entity] = t
		}
		t.flags++
		t.labels[flag.Label] = true
		if flag.Severity.Rank() > t.worst.Rank() {
			t.worst = flag.Severity
		}
	}

	risks := make([]domain.EntityRisk, 0)
	for entity, t := range tallies {
		if t.flags < a.options.Risk.MinFlags {
			continue
		}
		labels := make([]string, 0, len(t.labels))
		for label := range t.labels {
			labels = append(labels, label)
		}
		sort.Strings(labels)
		risks = append(risks, domain.EntityRisk{
			Entity: entity,
			Flags:  t.flags,
			Worst:  t.worst,
			Labels: labels,
		})
	}

	sort.Slice(risks, func(i, j int) bool {
		if risks[i].Flags != risks[j].Flags {
			return risks[i].Flags > risks[j].Flags
		}
		return risks[i].Entity < risks[j].Entity
	})
	return risks
}

// Recommendations turns fired rules into actions: one entry per rule that
// flagged at least one record, ordered by severity (worst first) and then
// by rule order in the configuration.
func (a *Analyzer) Recommendations(flags []domain.RiskFlag) []domain.Recommendation {
	fired := make(map[string]int)
	for _, flag := range flags {
		fired[flag.Rule]++
	}

	type entry struct {
		rec      domain.Recommendation
		severity domain.Severity
		order    int
	}
	entries := make([]entry, 0, len(fired))
	for i, rule := range a.rules {
		count, ok := fired[rule.Name]
		if !ok {
			continue
		}
		entries = append(entries, entry{
			rec: domain.Recommendation{
				Area:     ruleArea(rule),
				Issue:    fmt.Sprintf("%s raised on %d records", rule.Label, count),
				Action:   ruleAction(rule),
				Priority: severityPriority(rule.Severity),
			},
			severity: rule.Severity,
			order:    i,
		})
	}

	sort.SliceStable(entries, func(i, j int) bool {
		if entries[i].severity.Rank() != entries[j].severity.Rank() {
			return entries[i].severity.Rank() > entries[j].severity.Rank()
		}
		return entries[i].order < entries[j].order
	})

	recs := make([]domain.Recommendation, 0, len(entries))
	for _, e := range entries {
		recs = append(recs, e.rec)
	}
	return recs
}

func ruleArea(rule domain.Rule) string {
	if rule.Area != "" {
		return rule.Area
	}
	return "General"
}

func ruleAction(rule domain.Rule) string {
	if rule.Action != "" {
		return rule.Action
	}
	return fmt.Sprintf("Review records flagged by rule %q", rule.Name)
}

func severityPriority(severity domain.Severity) string {
	switch severity {
	case domain.SeverityCritical:
		return "high"
	case domain.SeverityWarning:
		return "medium"
	default:
		return "low"
	}
}
