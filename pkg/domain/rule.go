package domain

import "fmt"

// Comparator is the relation a rule applies between an attribute value and
// its threshold. The set is fixed; anything else is a configuration error.
type Comparator string

const (
	Less     Comparator = "<"
	Greater  Comparator = ">"
	Equal    Comparator = "=="
	NotEqual Comparator = "!="
)

// ParseComparator validates s against the supported comparator set.
func ParseComparator(s string) (Comparator, error) {
	switch c := Comparator(s); c {
	case Less, Greater, Equal, NotEqual:
		return c, nil
	}
	return "", fmt.Errorf("unknown comparator %q (supported: <, >, ==, !=)", s)
}

// Ordered reports whether the comparator needs numeric operands.
func (c Comparator) Ordered() bool {
	return c == Less || c == Greater
}

// Severity grades how serious a raised flag is.
type Severity string

const (
	SeverityInfo     Severity = "info"
	SeverityWarning  Severity = "warning"
	SeverityCritical Severity = "critical"
)

// ParseSeverity validates s against the supported severity set.
func ParseSeverity(s string) (Severity, error) {
	switch sev := Severity(s); sev {
	case SeverityInfo, SeverityWarning, SeverityCritical:
		return sev, nil
	}
	return "", fmt.Errorf("unknown severity %q (supported: info, warning, critical)", s)
}

// Rank orders severities for sorting; higher is worse.
func (s Severity) Rank() int {
	switch s {
	case SeverityCritical:
		return 3
	case SeverityWarning:
		return 2
	case SeverityInfo:
		return 1
	}
	return 0
}

// Rule is one configured threshold check evaluated against every observation.
type Rule struct {
	Name        string     `yaml:"name" json:"name"`
	Attribute   string     `yaml:"attribute" json:"attribute"`
	Comparator  Comparator `yaml:"comparator" json:"comparator"`
	Threshold   string     `yaml:"threshold" json:"threshold"`
	Label       string     `yaml:"label" json:"label"`
	Severity    Severity   `yaml:"severity,omitempty" json:"severity"`
	Area        string     `yaml:"area,omitempty" json:"area,omitempty"`
	Action      string     `yaml:"action,omitempty" json:"action,omitempty"`
	Description string     `yaml:"description,omitempty" json:"description,omitempty"`
}
