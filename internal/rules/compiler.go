package rules

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/yairfalse/sampo/pkg/domain"
)

// matchFunc reports whether an observation satisfies a rule's condition.
type matchFunc func(domain.Observation) bool

// CompiledRule pairs a rule with the predicate compiled from it. The
// predicate is built once at load time; evaluation never reparses config.
type CompiledRule struct {
	Rule  domain.Rule
	match matchFunc
}

// Matches reports whether the observation satisfies the rule.
// Observations that do not carry the rule's attribute never match.
func (c *CompiledRule) Matches(obs domain.Observation) bool {
	return c.match(obs)
}

// Compiler turns rules into predicates bound to a schema. Compilation is
// where rule-level configuration errors surface: unknown attributes,
// comparators incompatible with the attribute type, unparsable thresholds.
type Compiler struct {
	schema domain.Schema
}

// NewCompiler creates a compiler for the given schema.
func NewCompiler(schema domain.Schema) *Compiler {
	return &Compiler{schema: schema}
}

// Compile validates the rule against the schema and builds its predicate.
func (c *Compiler) Compile(rule domain.Rule) (*CompiledRule, error) {
	if rule.Label == "" {
		return nil, NewRuleError(rule.Name, "label", "risk label is required",
			"set label to the tag flagged records should carry, e.g. STOCK_RISK")
	}
	if _, err := domain.ParseComparator(string(rule.Comparator)); err != nil {
		return nil, NewRuleError(rule.Name, "comparator", err.Error(), "")
	}
	if _, err := domain.ParseSeverity(string(rule.Severity)); err != nil {
		return nil, NewRuleError(rule.Name, "severity", err.Error(), "")
	}
	if rule.Attribute == "" {
		return nil, NewRuleError(rule.Name, "attribute", "attribute is required", "")
	}

	typ, ok := c.schema.AttributeType(rule.Attribute)
	if !ok {
		return nil, NewRuleError(rule.Name, "attribute",
			fmt.Sprintf("unknown attribute %q", rule.Attribute),
			c.knownAttributesHint())
	}
	if rule.Threshold == "" {
		return nil, NewRuleError(rule.Name, "threshold", "threshold is required", "")
	}

	switch typ {
	case domain.AttributeNumber:
		return c.compileNumeric(rule)
	case domain.AttributeString:
		return c.compileString(rule)
	}
	return nil, NewRuleError(rule.Name, "attribute",
		fmt.Sprintf("attribute %q has unsupported type %q", rule.Attribute, typ), "")
}

func (c *Compiler) compileNumeric(rule domain.Rule) (*CompiledRule, error) {
	threshold, err := strconv.ParseFloat(rule.Threshold, 64)
	if err != nil {
		return nil, NewRuleError(rule.Name, "threshold",
			fmt.Sprintf("threshold %q is not numeric but attribute %q is", rule.Threshold, rule.Attribute),
			"use a numeric threshold or declare the attribute as string")
	}

	attr := rule.Attribute
	var match matchFunc
	switch rule.Comparator {
	case domain.Less:
		match = func(o domain.Observation) bool { v, ok := o.Number(attr); return ok && v < threshold }
	case domain.Greater:
		match = func(o domain.Observation) bool { v, ok := o.Number(attr); return ok && v > threshold }
	case domain.Equal:
		match = func(o domain.Observation) bool { v, ok := o.Number(attr); return ok && v == threshold }
	case domain.NotEqual:
		match = func(o domain.Observation) bool { v, ok := o.Number(attr); return ok && v != threshold }
	}
	return &CompiledRule{Rule: rule, match: match}, nil
}

func (c *Compiler) compileString(rule domain.Rule) (*CompiledRule, error) {
	if rule.Comparator.Ordered() {
		return nil, NewRuleError(rule.Name, "comparator",
			fmt.Sprintf("comparator %q needs a numeric attribute but %q is a string", rule.Comparator, rule.Attribute),
			"use == or != on string attributes")
	}

	attr := rule.Attribute
	threshold := rule.Threshold
	var match matchFunc
	switch rule.Comparator {
	case domain.Equal:
		match = func(o domain.Observation) bool { v, ok := o.Text(attr); return ok && v == threshold }
	case domain.NotEqual:
		match = func(o domain.Observation) bool { v, ok := o.Text(attr); return ok && v != threshold }
	}
	return &CompiledRule{Rule: rule, match: match}, nil
}

func (c *Compiler) knownAttributesHint() string {
	attrs := c.schema.Attributes()
	if len(attrs) == 0 {
		return "declare attributes under schema.columns"
	}
	return "known attributes: " + strings.Join(attrs, ", ")
}
