package domain

// RiskFlag marks one observation that satisfied one rule. Flags are
// append-only: the engine creates them fully formed and nothing mutates
// them afterwards. Identity is the (entity, row, rule) triple.
type RiskFlag struct {
	Entity    string   `json:"entity" yaml:"entity"`
	Row       int      `json:"row" yaml:"row"`
	Rule      string   `json:"rule" yaml:"rule"`
	Label     string   `json:"label" yaml:"label"`
	Severity  Severity `json:"severity" yaml:"severity"`
	Attribute string   `json:"attribute" yaml:"attribute"`
	Value     string   `json:"value" yaml:"value"`         // observed value, formatted
	Threshold string   `json:"threshold" yaml:"threshold"` // configured threshold, as written
	Detail    string   `json:"detail,omitempty" yaml:"detail,omitempty"`
}
