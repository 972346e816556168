package domain

import "time"

// MetricStats summarizes one numeric attribute across the dataset.
type MetricStats struct {
	Count int     `json:"count" yaml:"count"`
	Min   float64 `json:"min" yaml:"min"`
	Max   float64 `json:"max" yaml:"max"`
	Mean  float64 `json:"mean" yaml:"mean"`
	Sum   float64 `json:"sum" yaml:"sum"`
}

// Summary provides overall run statistics. For a given data file and rule
// configuration the Summary is deterministic: two runs produce equal values.
type Summary struct {
	Observations    int                    `json:"observations" yaml:"observations"`
	SkippedRows     int                    `json:"skipped_rows" yaml:"skipped_rows"`
	FlaggedEntities int                    `json:"flagged_entities" yaml:"flagged_entities"`
	TotalFlags      int                    `json:"total_flags" yaml:"total_flags"`
	FlagsByLabel    map[string]int         `json:"flags_by_label" yaml:"flags_by_label"`
	FlagsBySeverity map[Severity]int       `json:"flags_by_severity" yaml:"flags_by_severity"`
	Metrics         map[string]MetricStats `json:"metrics" yaml:"metrics"`
}

// GroupStat is one group's aggregate for one numeric attribute.
type GroupStat struct {
	Count int     `json:"count" yaml:"count"`
	Mean  float64 `json:"mean" yaml:"mean"`
	Sum   float64 `json:"sum" yaml:"sum"`
}

// GroupRow aggregates the observations sharing one value of the grouping
// attribute.
type GroupRow struct {
	Key     string               `json:"key" yaml:"key"`
	Count   int                  `json:"count" yaml:"count"`
	Flags   int                  `json:"flags" yaml:"flags"`
	Metrics map[string]GroupStat `json:"metrics,omitempty" yaml:"metrics,omitempty"`
}

// GroupSummary holds per-group aggregates for one grouping attribute.
// Rows are sorted by key.
type GroupSummary struct {
	Attribute string     `json:"attribute" yaml:"attribute"`
	Rows      []GroupRow `json:"rows" yaml:"rows"`
}

// TopEntity is one row of a ranking.
type TopEntity struct {
	Entity string  `json:"entity" yaml:"entity"`
	Value  float64 `json:"value" yaml:"value"`
}

// Ranking lists the top entities by one numeric attribute, descending.
type Ranking struct {
	Attribute string      `json:"attribute" yaml:"attribute"`
	Entities  []TopEntity `json:"entities" yaml:"entities"`
}

// EntityRisk is an entity whose flag count crossed the high-risk threshold.
type EntityRisk struct {
	Entity string   `json:"entity" yaml:"entity"`
	Flags  int      `json:"flags" yaml:"flags"`
	Worst  Severity `json:"worst" yaml:"worst"`
	Labels []string `json:"labels" yaml:"labels"` // sorted, deduplicated
}

// Recommendation is an action suggested because a rule fired at least once.
type Recommendation struct {
	Area     string `json:"area" yaml:"area"`
	Issue    string `json:"issue" yaml:"issue"`
	Action   string `json:"action" yaml:"action"`
	Priority string `json:"priority" yaml:"priority"` // "high", "medium", "low"
}

// RunMeta carries run bookkeeping. It sits apart from Summary and Flags so
// that those stay comparable across runs on identical input.
type RunMeta struct {
	RunID       string        `json:"run_id" yaml:"run_id"`
	GeneratedAt time.Time     `json:"generated_at" yaml:"generated_at"`
	DataPath    string        `json:"data_path" yaml:"data_path"`
	ConfigPath  string        `json:"config_path" yaml:"config_path"`
	Duration    time.Duration `json:"duration" yaml:"duration"`
}

// Report is the complete output artifact of one run.
type Report struct {
	Meta            RunMeta          `json:"meta" yaml:"meta"`
	Summary         Summary          `json:"summary" yaml:"summary"`
	Flags           []RiskFlag       `json:"flags" yaml:"flags"`
	Skipped         []SkippedRow     `json:"skipped,omitempty" yaml:"skipped,omitempty"`
	Groups          []GroupSummary   `json:"groups,omitempty" yaml:"groups,omitempty"`
	Top             *Ranking         `json:"top,omitempty" yaml:"top,omitempty"`
	HighRisk        []EntityRisk     `json:"high_risk,omitempty" yaml:"high_risk,omitempty"`
	Recommendations []Recommendation `json:"recommendations,omitempty" yaml:"recommendations,omitempty"`
}
