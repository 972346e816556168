package rules

import (
	"errors"
	"fmt"
	"os"
	"strings"
	"unicode/utf8"

	"gopkg.in/yaml.v3"

	"github.com/yairfalse/sampo/pkg/domain"
)

// Document is the analysis configuration: the data schema, the rule set,
// and the aggregation options, all loaded from a single YAML file.
type Document struct {
	Version  int             `yaml:"version" json:"version"`
	Schema   domain.Schema   `yaml:"schema" json:"schema"`
	Rules    []domain.Rule   `yaml:"rules" json:"rules"`
	Analysis AnalysisOptions `yaml:"analysis,omitempty" json:"analysis,omitempty"`
}

// AnalysisOptions tunes the aggregation stage.
type AnalysisOptions struct {
	Groups []string `yaml:"groups,omitempty" json:"groups,omitempty"` // string attributes to group by
	Top    TopSpec  `yaml:"top,omitempty" json:"top,omitempty"`
	Risk   RiskSpec `yaml:"risk,omitempty" json:"risk,omitempty"`
}

// TopSpec ranks entities by one numeric attribute, descending.
type TopSpec struct {
	Attribute string `yaml:"attribute,omitempty" json:"attribute,omitempty"`
	Count     int    `yaml:"count,omitempty" json:"count,omitempty"`
}

// RiskSpec sets the flag count at which an entity counts as high-risk.
type RiskSpec struct {
	MinFlags int `yaml:"min_flags,omitempty" json:"min_flags,omitempty"`
}

const (
	defaultTopCount = 10
	defaultMinFlags = 2
)

// Load reads, validates, and compiles the analysis configuration at path.
// Any configuration problem is returned here, before any data is read.
func Load(path string) (*Ruleset, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read rule config: %w", err)
	}

	rs, err := Parse(data)
	if err != nil {
		var cerrs *ConfigErrors
		if errors.As(err, &cerrs) {
			cerrs.File = path
		}
		return nil, err
	}
	return rs, nil
}

// Parse validates and compiles a raw YAML analysis configuration.
func Parse(data []byte) (*Ruleset, error) {
	var doc Document
	if err := yaml.Unmarshal(data, &doc); err != nil {
		return nil, fmt.Errorf("failed to parse rule config: %w", err)
	}

	doc.applyDefaults()

	cerrs := &ConfigErrors{}
	doc.validateSchema(cerrs)
	doc.validateAnalysis(cerrs)

	compiler := NewCompiler(doc.Schema)
	compiled := doc.compileRules(compiler, cerrs)

	if !cerrs.IsEmpty() {
		return nil, cerrs
	}

	return &Ruleset{Doc: &doc, Compiled: compiled}, nil
}

func (d *Document) applyDefaults() {
	if d.Version == 0 {
		d.Version = 1
	}
	for i := range d.Rules {
		if d.Rules[i].Severity == "" {
			d.Rules[i].Severity = domain.SeverityWarning
		}
	}
	for i := range d.Schema.Columns {
		if d.Schema.Columns[i].Type == "" {
			d.Schema.Columns[i].Type = domain.AttributeString
		}
	}
	if d.Analysis.Top.Attribute != "" && d.Analysis.Top.Count == 0 {
		d.Analysis.Top.Count = defaultTopCount
	}
	if d.Analysis.Risk.MinFlags == 0 {
		d.Analysis.Risk.MinFlags = defaultMinFlags
	}
}

func (d *Document) validateSchema(cerrs *ConfigErrors) {
	if d.Schema.Entity == "" {
		cerrs.add(NewConfigError("schema.entity", "entity column is required",
			"set schema.entity to the column holding the record identifier"))
	}
	if d.Schema.Delimiter != "" && utf8.RuneCountInString(d.Schema.Delimiter) != 1 {
		cerrs.add(NewConfigError("schema.delimiter",
			fmt.Sprintf("delimiter %q must be a single character", d.Schema.Delimiter), ""))
	}
	if len(d.Schema.Columns) == 0 {
		cerrs.add(NewConfigError("schema.columns", "at least one column mapping is required",
			"map each source column to an attribute under schema.columns"))
		return
	}

	seen := make(map[string]bool, len(d.Schema.Columns))
	for i, col := range d.Schema.Columns {
		field := fmt.Sprintf("schema.columns[%d]", i)
		if col.Column == "" {
			cerrs.add(NewConfigError(field+".column", "source column name is required", ""))
		}
		if col.Attribute == "" {
			cerrs.add(NewConfigError(field+".attribute", "attribute name is required", ""))
			continue
		}
		if seen[col.Attribute] {
			cerrs.add(NewConfigError(field+".attribute",
				fmt.Sprintf("attribute %q is declared twice", col.Attribute),
				"attribute names must be unique across schema.columns"))
		}
		seen[col.Attribute] = true
		if col.Type != domain.AttributeNumber && col.Type != domain.AttributeString {
			cerrs.add(NewConfigError(field+".type",
				fmt.Sprintf("unknown attribute type %q", col.Type),
				`use "number" or "string"`))
		}
	}
}

func (d *Document) validateAnalysis(cerrs *ConfigErrors) {
	for i, group := range d.Analysis.Groups {
		field := fmt.Sprintf("analysis.groups[%d]", i)
		typ, ok := d.Schema.AttributeType(group)
		if !ok {
			cerrs.add(NewConfigError(field,
				fmt.Sprintf("unknown attribute %q", group),
				d.knownAttributesHint()))
			continue
		}
		if typ != domain.AttributeString {
			cerrs.add(NewConfigError(field,
				fmt.Sprintf("cannot group by numeric attribute %q", group),
				"grouping attributes must be declared as string"))
		}
	}

	if top := d.Analysis.Top; top.Attribute != "" {
		typ, ok := d.Schema.AttributeType(top.Attribute)
		switch {
		case !ok:
			cerrs.add(NewConfigError("analysis.top.attribute",
				fmt.Sprintf("unknown attribute %q", top.Attribute),
				d.knownAttributesHint()))
		case typ != domain.AttributeNumber:
			cerrs.add(NewConfigError("analysis.top.attribute",
				fmt.Sprintf("cannot rank by string attribute %q", top.Attribute),
				"ranking attributes must be declared as number"))
		}
		if top.Count < 0 {
			cerrs.add(NewConfigError("analysis.top.count", "count cannot be negative", ""))
		}
	}

	if d.Analysis.Risk.MinFlags < 1 {
		cerrs.add(NewConfigError("analysis.risk.min_flags", "must be at least 1", ""))
	}
}

func (d *Document) compileRules(compiler *Compiler, cerrs *ConfigErrors) []*CompiledRule {
	if len(d.Rules) == 0 {
		cerrs.add(NewConfigError("rules", "at least one rule is required",
			"define threshold rules under the rules section"))
		return nil
	}

	compiled := make([]*CompiledRule, 0, len(d.Rules))
	names := make(map[string]bool, len(d.Rules))
	for i, rule := range d.Rules {
		if rule.Name == "" {
			cerrs.add(NewConfigError(fmt.Sprintf("rules[%d].name", i), "rule name is required", ""))
			continue
		}
		if names[rule.Name] {
			cerrs.add(NewRuleError(rule.Name, "name", "duplicate rule name",
				"rule names must be unique"))
			continue
		}
		names[rule.Name] = true

		cr, err := compiler.Compile(rule)
		if err != nil {
			var cerr ConfigError
			if errors.As(err, &cerr) {
				cerrs.add(cerr)
			} else {
				cerrs.add(NewRuleError(rule.Name, "rule", err.Error(), ""))
			}
			continue
		}
		compiled = append(compiled, cr)
	}
	return compiled
}

func (d *Document) knownAttributesHint() string {
	attrs := d.Schema.Attributes()
	if len(attrs) == 0 {
		return "declare attributes under schema.columns"
	}
	return "known attributes: " + strings.Join(attrs, ", ")
}
