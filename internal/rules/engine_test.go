package rules

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap/zaptest"

	"github.com/yairfalse/sampo/pkg/domain"
)

func testRuleset(t *testing.T) *Ruleset {
	t.Helper()
	rs, err := Load("testdata/rules.yaml")
	require.NoError(t, err)
	return rs
}

func obs(entity string, row int, numbers map[string]float64, strings map[string]string) domain.Observation {
	return domain.Observation{Entity: entity, Row: row, Numbers: numbers, Strings: strings}
}

func TestEngineEvaluateRaisesOneFlagPerSatisfiedRule(t *testing.T) {
	engine := NewEngine(testRuleset(t), zaptest.NewLogger(t))

	// Violates low-stock, long-lead-time, and failed-inspection at once.
	observations := []domain.Observation{
		obs("SKU1", 2,
			map[string]float64{"stock_level": 5, "lead_time": 29, "defect_rate": 0.5},
			map[string]string{"product_type": "haircare", "inspection": "Fail"}),
	}

	flags := engine.Evaluate(context.Background(), observations)
	require.Len(t, flags, 3)

	assert.Equal(t, "low-stock", flags[0].Rule)
	assert.Equal(t, "STOCK_RISK", flags[0].Label)
	assert.Equal(t, domain.SeverityCritical, flags[0].Severity)
	assert.Equal(t, "SKU1", flags[0].Entity)
	assert.Equal(t, 2, flags[0].Row)
	assert.Equal(t, "5", flags[0].Value)
	assert.Equal(t, "20", flags[0].Threshold)
	assert.Equal(t, "stock_level 5 < 20", flags[0].Detail)

	assert.Equal(t, "long-lead-time", flags[1].Rule)
	assert.Equal(t, "failed-inspection", flags[2].Rule)
	assert.Equal(t, "inspection Fail == Fail", flags[2].Detail)
}

func TestEngineEvaluateCleanObservationRaisesNothing(t *testing.T) {
	engine := NewEngine(testRuleset(t), zaptest.NewLogger(t))

	observations := []domain.Observation{
		obs("SKU2", 3,
			map[string]float64{"stock_level": 80, "lead_time": 10, "defect_rate": 1.2},
			map[string]string{"product_type": "skincare", "inspection": "Pass"}),
	}

	flags := engine.Evaluate(context.Background(), observations)
	assert.Empty(t, flags)
	assert.NotNil(t, flags, "empty result is a slice, not nil")
}

func TestEngineEvaluateMissingAttributeDoesNotFlag(t *testing.T) {
	engine := NewEngine(testRuleset(t), zaptest.NewLogger(t))

	// No defect_rate and no inspection value: those rules must stay silent.
	observations := []domain.Observation{
		obs("SKU3", 4,
			map[string]float64{"stock_level": 3, "lead_time": 1},
			map[string]string{"product_type": "cosmetics"}),
	}

	flags := engine.Evaluate(context.Background(), observations)
	require.Len(t, flags, 1)
	assert.Equal(t, "low-stock", flags[0].Rule)
}

func TestEngineEvaluateOrderIsRowThenRule(t *testing.T) {
	engine := NewEngine(testRuleset(t), zaptest.NewLogger(t))

	observations := []domain.Observation{
		obs("SKU1", 2, map[string]float64{"stock_level": 5, "lead_time": 25}, nil),
		obs("SKU2", 3, map[string]float64{"stock_level": 1}, nil),
	}

	flags := engine.Evaluate(context.Background(), observations)
	require.Len(t, flags, 3)
	assert.Equal(t, []string{"SKU1", "SKU1", "SKU2"}, []string{flags[0].Entity, flags[1].Entity, flags[2].Entity})
	assert.Equal(t, []string{"low-stock", "long-lead-time", "low-stock"}, []string{flags[0].Rule, flags[1].Rule, flags[2].Rule})
}

func TestEngineEvaluateIsDeterministic(t *testing.T) {
	engine := NewEngine(testRuleset(t), zaptest.NewLogger(t))

	observations := []domain.Observation{
		obs("SKU1", 2,
			map[string]float64{"stock_level": 5, "lead_time": 29, "defect_rate": 4.1},
			map[string]string{"inspection": "Fail"}),
		obs("SKU2", 3,
			map[string]float64{"stock_level": 55, "lead_time": 4, "defect_rate": 0.1},
			map[string]string{"inspection": "Pass"}),
	}

	first := engine.Evaluate(context.Background(), observations)
	second := engine.Evaluate(context.Background(), observations)
	assert.Equal(t, first, second)
}

func TestEngineEvaluateEmptyInput(t *testing.T) {
	engine := NewEngine(testRuleset(t), zaptest.NewLogger(t))

	flags := engine.Evaluate(context.Background(), nil)
	assert.Empty(t, flags)
}

func TestEngineEqualAndNotEqualOnNumbers(t *testing.T) {
	rs, err := Parse([]byte(`
schema:
  entity: ID
  columns:
    - column: Availability
      attribute: availability
      type: number
rules:
  - name: out-of-stock
    attribute: availability
    comparator: "=="
    threshold: 0
    label: OUT_OF_STOCK
    severity: critical
  - name: nonstandard-availability
    attribute: availability
    comparator: "!="
    threshold: 100
    label: PARTIAL_AVAILABILITY
    severity: info
`))
	require.NoError(t, err)
	engine := NewEngine(rs, zaptest.NewLogger(t))

	flags := engine.Evaluate(context.Background(), []domain.Observation{
		obs("A", 2, map[string]float64{"availability": 0}, nil),
		obs("B", 3, map[string]float64{"availability": 100}, nil),
		obs("C", 4, map[string]float64{"availability": 55}, nil),
	})

	require.Len(t, flags, 3)
	assert.Equal(t, "out-of-stock", flags[0].Rule)
	assert.Equal(t, "A", flags[0].Entity)
	assert.Equal(t, "nonstandard-availability", flags[1].Rule)
	assert.Equal(t, "A", flags[1].Entity, "zero availability also differs from 100")
	assert.Equal(t, "nonstandard-availability", flags[2].Rule)
	assert.Equal(t, "C", flags[2].Entity)
}
