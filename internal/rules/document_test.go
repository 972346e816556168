package rules

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/yairfalse/sampo/pkg/domain"
)

func TestLoadValidDocument(t *testing.T) {
	rs, err := Load("testdata/rules.yaml")
	require.NoError(t, err)
	require.NotNil(t, rs)

	assert.Equal(t, 1, rs.Doc.Version)
	assert.Equal(t, "SKU", rs.Doc.Schema.Entity)
	assert.Len(t, rs.Compiled, 4)

	rules := rs.Rules()
	assert.Equal(t, "low-stock", rules[0].Name)
	assert.Equal(t, domain.Less, rules[0].Comparator)
	assert.Equal(t, "20", rules[0].Threshold)
	assert.Equal(t, domain.SeverityCritical, rules[0].Severity)

	assert.Equal(t, []string{"product_type", "supplier"}, rs.Doc.Analysis.Groups)
	assert.Equal(t, "revenue", rs.Doc.Analysis.Top.Attribute)
	assert.Equal(t, 5, rs.Doc.Analysis.Top.Count)
	assert.Equal(t, 2, rs.Doc.Analysis.Risk.MinFlags)
}

func TestLoadMissingFile(t *testing.T) {
	_, err := Load("testdata/does-not-exist.yaml")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "failed to read rule config")
}

func TestParseAppliesDefaults(t *testing.T) {
	rs, err := Parse([]byte(`
schema:
  entity: SKU
  columns:
    - column: "Stock levels"
      attribute: stock_level
      type: number
rules:
  - name: low-stock
    attribute: stock_level
    comparator: "<"
    threshold: 20
    label: STOCK_RISK
`))
	require.NoError(t, err)

	assert.Equal(t, 1, rs.Doc.Version)
	assert.Equal(t, domain.SeverityWarning, rs.Compiled[0].Rule.Severity, "severity defaults to warning")
	assert.Equal(t, defaultMinFlags, rs.Doc.Analysis.Risk.MinFlags)
}

func TestParseUnknownAttribute(t *testing.T) {
	_, err := Parse([]byte(`
schema:
  entity: SKU
  columns:
    - column: "Stock levels"
      attribute: stock_level
      type: number
rules:
  - name: ghost-rule
    attribute: warehouse_temp
    comparator: ">"
    threshold: 30
    label: TEMP_RISK
`))
	require.Error(t, err)

	var cerrs *ConfigErrors
	require.ErrorAs(t, err, &cerrs)
	require.Len(t, cerrs.Errors, 1)
	assert.Equal(t, "ghost-rule", cerrs.Errors[0].Rule)
	assert.Contains(t, cerrs.Errors[0].Message, `unknown attribute "warehouse_temp"`)
	assert.Contains(t, cerrs.Errors[0].Suggestion, "stock_level")
}

func TestParseRejectsBadRules(t *testing.T) {
	tests := []struct {
		name     string
		rule     string
		wantRule string
		wantMsg  string
	}{
		{
			name: "unknown comparator",
			rule: `
  - name: bad-comparator
    attribute: stock_level
    comparator: ">="
    threshold: 20
    label: STOCK_RISK`,
			wantRule: "bad-comparator",
			wantMsg:  "unknown comparator",
		},
		{
			name: "ordering comparator on string attribute",
			rule: `
  - name: ordered-string
    attribute: supplier
    comparator: "<"
    threshold: M
    label: SUPPLIER_RISK`,
			wantRule: "ordered-string",
			wantMsg:  "needs a numeric attribute",
		},
		{
			name: "non-numeric threshold",
			rule: `
  - name: word-threshold
    attribute: stock_level
    comparator: "<"
    threshold: twenty
    label: STOCK_RISK`,
			wantRule: "word-threshold",
			wantMsg:  "not numeric",
		},
		{
			name: "missing label",
			rule: `
  - name: no-label
    attribute: stock_level
    comparator: "<"
    threshold: 20`,
			wantRule: "no-label",
			wantMsg:  "risk label is required",
		},
		{
			name: "unknown severity",
			rule: `
  - name: bad-severity
    attribute: stock_level
    comparator: "<"
    threshold: 20
    label: STOCK_RISK
    severity: fatal`,
			wantRule: "bad-severity",
			wantMsg:  "unknown severity",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			doc := `
schema:
  entity: SKU
  columns:
    - column: "Stock levels"
      attribute: stock_level
      type: number
    - column: "Supplier name"
      attribute: supplier
      type: string
rules:` + tt.rule

			_, err := Parse([]byte(doc))
			require.Error(t, err)

			var cerrs *ConfigErrors
			require.ErrorAs(t, err, &cerrs)
			require.Len(t, cerrs.Errors, 1)
			assert.Equal(t, tt.wantRule, cerrs.Errors[0].Rule)
			assert.Contains(t, cerrs.Errors[0].Message, tt.wantMsg)
		})
	}
}

func TestParseCollectsAllProblems(t *testing.T) {
	_, err := Parse([]byte(`
schema:
  entity: SKU
  columns:
    - column: "Stock levels"
      attribute: stock_level
      type: number
rules:
  - name: first
    attribute: missing_one
    comparator: "<"
    threshold: 1
    label: A
  - name: second
    attribute: missing_two
    comparator: ">"
    threshold: 2
    label: B
  - name: first
    attribute: stock_level
    comparator: "<"
    threshold: 3
    label: C
`))
	require.Error(t, err)

	var cerrs *ConfigErrors
	require.ErrorAs(t, err, &cerrs)
	assert.Len(t, cerrs.Errors, 3, "all problems reported in one pass")
}

func TestParseDuplicateSchemaAttribute(t *testing.T) {
	_, err := Parse([]byte(`
schema:
  entity: SKU
  columns:
    - column: "Stock levels"
      attribute: stock_level
      type: number
    - column: "Stock (backup)"
      attribute: stock_level
      type: number
rules:
  - name: low-stock
    attribute: stock_level
    comparator: "<"
    threshold: 20
    label: STOCK_RISK
`))
	require.Error(t, err)

	var cerrs *ConfigErrors
	require.ErrorAs(t, err, &cerrs)
	require.Len(t, cerrs.Errors, 1)
	assert.Contains(t, cerrs.Errors[0].Message, "declared twice")
}

func TestParseValidatesAnalysisOptions(t *testing.T) {
	_, err := Parse([]byte(`
schema:
  entity: SKU
  columns:
    - column: "Stock levels"
      attribute: stock_level
      type: number
    - column: "Supplier name"
      attribute: supplier
      type: string
rules:
  - name: low-stock
    attribute: stock_level
    comparator: "<"
    threshold: 20
    label: STOCK_RISK
analysis:
  groups: [stock_level, nowhere]
  top:
    attribute: supplier
`))
	require.Error(t, err)

	var cerrs *ConfigErrors
	require.ErrorAs(t, err, &cerrs)
	require.Len(t, cerrs.Errors, 3)
	assert.Contains(t, cerrs.Errors[0].Message, "cannot group by numeric attribute")
	assert.Contains(t, cerrs.Errors[1].Message, `unknown attribute "nowhere"`)
	assert.Contains(t, cerrs.Errors[2].Message, "cannot rank by string attribute")
}

func TestParseRejectsMalformedYAML(t *testing.T) {
	_, err := Parse([]byte("rules: ["))
	require.Error(t, err)
	assert.Contains(t, err.Error(), "failed to parse rule config")
}
