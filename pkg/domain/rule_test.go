package domain

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseComparator(t *testing.T) {
	tests := []struct {
		name    string
		input   string
		want    Comparator
		wantErr bool
	}{
		{name: "less", input: "<", want: Less},
		{name: "greater", input: ">", want: Greater},
		{name: "equal", input: "==", want: Equal},
		{name: "not equal", input: "!=", want: NotEqual},
		{name: "unsupported gte", input: ">=", wantErr: true},
		{name: "single equals", input: "=", wantErr: true},
		{name: "empty", input: "", wantErr: true},
		{name: "word", input: "above", wantErr: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := ParseComparator(tt.input)
			if tt.wantErr {
				require.Error(t, err)
				assert.Contains(t, err.Error(), "unknown comparator")
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestComparatorOrdered(t *testing.T) {
	assert.True(t, Less.Ordered())
	assert.True(t, Greater.Ordered())
	assert.False(t, Equal.Ordered())
	assert.False(t, NotEqual.Ordered())
}

func TestParseSeverity(t *testing.T) {
	tests := []struct {
		name    string
		input   string
		want    Severity
		wantErr bool
	}{
		{name: "info", input: "info", want: SeverityInfo},
		{name: "warning", input: "warning", want: SeverityWarning},
		{name: "critical", input: "critical", want: SeverityCritical},
		{name: "uppercase rejected", input: "WARNING", wantErr: true},
		{name: "unknown", input: "fatal", wantErr: true},
		{name: "empty", input: "", wantErr: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := ParseSeverity(tt.input)
			if tt.wantErr {
				require.Error(t, err)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestSeverityRank(t *testing.T) {
	assert.Greater(t, SeverityCritical.Rank(), SeverityWarning.Rank())
	assert.Greater(t, SeverityWarning.Rank(), SeverityInfo.Rank())
	assert.Greater(t, SeverityInfo.Rank(), Severity("").Rank())
}
