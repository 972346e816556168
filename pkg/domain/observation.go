package domain

import (
	"strconv"
	"time"
)

// Observation is one ingested record: a single entity at a point in time
// with its typed attribute values. Observations are value types and are
// never mutated after ingestion.
type Observation struct {
	Entity    string             `json:"entity"`
	Row       int                `json:"row"` // 1-based line in the source file
	Timestamp time.Time          `json:"timestamp,omitempty"`
	Numbers   map[string]float64 `json:"numbers,omitempty"`
	Strings   map[string]string  `json:"strings,omitempty"`
}

// Number returns the numeric value of the named attribute.
func (o Observation) Number(name string) (float64, bool) {
	v, ok := o.Numbers[name]
	return v, ok
}

// Text returns the string value of the named attribute.
func (o Observation) Text(name string) (string, bool) {
	v, ok := o.Strings[name]
	return v, ok
}

// Has reports whether the observation carries the named attribute.
func (o Observation) Has(name string) bool {
	if _, ok := o.Numbers[name]; ok {
		return true
	}
	_, ok := o.Strings[name]
	return ok
}

// Value returns the named attribute formatted for display, regardless of type.
func (o Observation) Value(name string) (string, bool) {
	if v, ok := o.Numbers[name]; ok {
		return strconv.FormatFloat(v, 'g', -1, 64), true
	}
	if v, ok := o.Strings[name]; ok {
		return v, true
	}
	return "", false
}

// SkippedRow records a source row rejected during ingestion.
type SkippedRow struct {
	Line   int    `json:"line" yaml:"line"`
	Reason string `json:"reason" yaml:"reason"`
}
