package ingest

import (
	"context"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap/zaptest"

	"github.com/yairfalse/sampo/pkg/domain"
)

func testSchema() domain.Schema {
	return domain.Schema{
		Entity: "SKU",
		Columns: []domain.ColumnSpec{
			{Column: "Product type", Attribute: "product_type", Type: domain.AttributeString},
			{Column: "Supplier name", Attribute: "supplier", Type: domain.AttributeString},
			{Column: "Stock levels", Attribute: "stock_level", Type: domain.AttributeNumber, Required: true},
			{Column: "Defect rates", Attribute: "defect_rate", Type: domain.AttributeNumber},
		},
	}
}

func TestReaderReadFile(t *testing.T) {
	reader := NewReader(testSchema(), zaptest.NewLogger(t))

	ds, err := reader.ReadFile(context.Background(), "testdata/inventory.csv")
	require.NoError(t, err)

	require.Len(t, ds.Observations, 3)
	require.Len(t, ds.Skipped, 2)

	first := ds.Observations[0]
	assert.Equal(t, "SKU1", first.Entity)
	assert.Equal(t, 2, first.Row)
	assert.Equal(t, "Acme, Inc.", first.Strings["supplier"])
	assert.Equal(t, 5.0, first.Numbers["stock_level"])
	assert.Equal(t, 0.5, first.Numbers["defect_rate"])

	// Optional empty attribute is simply absent, not zero.
	last := ds.Observations[2]
	assert.Equal(t, "SKU5", last.Entity)
	assert.False(t, last.Has("defect_rate"))

	assert.Equal(t, 4, ds.Skipped[0].Line)
	assert.Equal(t, "missing entity ID", ds.Skipped[0].Reason)
	assert.Equal(t, 5, ds.Skipped[1].Line)
	assert.Equal(t, `attribute "stock_level": invalid number "not-a-number"`, ds.Skipped[1].Reason)
}

func TestReaderMissingFile(t *testing.T) {
	reader := NewReader(testSchema(), zaptest.NewLogger(t))

	_, err := reader.ReadFile(context.Background(), "testdata/nope.csv")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "failed to open data file")
}

func TestReaderSkipsRowMissingRequiredAttribute(t *testing.T) {
	const data = `SKU,Product type,Supplier name,Stock levels,Defect rates
SKU1,haircare,Supplier 1,,0.5
SKU2,skincare,Supplier 2,80,1.2
`
	reader := NewReader(testSchema(), zaptest.NewLogger(t))

	ds, err := reader.Read(context.Background(), strings.NewReader(data), "inline")
	require.NoError(t, err)

	require.Len(t, ds.Observations, 1)
	assert.Equal(t, "SKU2", ds.Observations[0].Entity)
	require.Len(t, ds.Skipped, 1)
	assert.Equal(t, 2, ds.Skipped[0].Line)
	assert.Equal(t, `missing required attribute "stock_level"`, ds.Skipped[0].Reason)
}

func TestReaderSkipsMalformedRow(t *testing.T) {
	const data = `SKU,Product type,Supplier name,Stock levels,Defect rates
SKU1,haircare,Supplier 1,5
SKU2,skincare,Supplier 2,80,1.2
`
	reader := NewReader(testSchema(), zaptest.NewLogger(t))

	ds, err := reader.Read(context.Background(), strings.NewReader(data), "inline")
	require.NoError(t, err)

	require.Len(t, ds.Observations, 1)
	require.Len(t, ds.Skipped, 1)
	assert.Equal(t, 2, ds.Skipped[0].Line)
	assert.Contains(t, ds.Skipped[0].Reason, "malformed row")
}

func TestReaderStripsByteOrderMark(t *testing.T) {
	const data = "\uFEFFSKU,Product type,Supplier name,Stock levels,Defect rates\nSKU1,haircare,Supplier 1,5,0.5\n"
	reader := NewReader(testSchema(), zaptest.NewLogger(t))

	ds, err := reader.Read(context.Background(), strings.NewReader(data), "inline")
	require.NoError(t, err)
	require.Len(t, ds.Observations, 1)
	assert.Equal(t, "SKU1", ds.Observations[0].Entity)
}

func TestReaderCustomDelimiter(t *testing.T) {
	const data = `SKU;Product type;Supplier name;Stock levels;Defect rates
SKU1;haircare;Supplier 1;5;0.5
`
	reader := NewReader(testSchema(), zaptest.NewLogger(t), WithDelimiter(';'))

	ds, err := reader.Read(context.Background(), strings.NewReader(data), "inline")
	require.NoError(t, err)
	require.Len(t, ds.Observations, 1)
	assert.Equal(t, 5.0, ds.Observations[0].Numbers["stock_level"])
}

func TestReaderEntityColumnAbsentAborts(t *testing.T) {
	const data = `Item,Stock levels
A,5
`
	reader := NewReader(testSchema(), zaptest.NewLogger(t))

	_, err := reader.Read(context.Background(), strings.NewReader(data), "inline")
	require.Error(t, err)

	var derr *DataError
	require.ErrorAs(t, err, &derr)
	assert.Contains(t, derr.Message, `entity column "SKU" not found`)
	assert.NotEmpty(t, derr.Suggestion)
}

func TestReaderRequiredColumnAbsentAborts(t *testing.T) {
	const data = `SKU,Product type
SKU1,haircare
`
	reader := NewReader(testSchema(), zaptest.NewLogger(t))

	_, err := reader.Read(context.Background(), strings.NewReader(data), "inline")
	require.Error(t, err)

	var derr *DataError
	require.ErrorAs(t, err, &derr)
	assert.Contains(t, derr.Message, `required column "Stock levels" not found`)
}

func TestReaderOptionalColumnAbsentIsFine(t *testing.T) {
	const data = `SKU,Product type,Stock levels
SKU1,haircare,5
`
	reader := NewReader(testSchema(), zaptest.NewLogger(t))

	ds, err := reader.Read(context.Background(), strings.NewReader(data), "inline")
	require.NoError(t, err)
	require.Len(t, ds.Observations, 1)
	assert.False(t, ds.Observations[0].Has("supplier"))
}

func TestReaderEmptyFileAborts(t *testing.T) {
	reader := NewReader(testSchema(), zaptest.NewLogger(t))

	_, err := reader.Read(context.Background(), strings.NewReader(""), "inline")
	require.Error(t, err)

	var derr *DataError
	require.ErrorAs(t, err, &derr)
	assert.Contains(t, derr.Message, "file is empty")
}

func TestReaderTimestamps(t *testing.T) {
	schema := testSchema()
	schema.Timestamp = domain.TimestampSpec{Column: "Observed", Format: "2006-01-02"}

	const data = `SKU,Product type,Supplier name,Stock levels,Defect rates,Observed
SKU1,haircare,Supplier 1,5,0.5,2024-03-01
SKU2,skincare,Supplier 2,80,1.2,yesterday
SKU3,cosmetics,Supplier 1,3,0.1,
`
	reader := NewReader(schema, zaptest.NewLogger(t))

	ds, err := reader.Read(context.Background(), strings.NewReader(data), "inline")
	require.NoError(t, err)

	require.Len(t, ds.Observations, 1)
	want := time.Date(2024, 3, 1, 0, 0, 0, 0, time.UTC)
	assert.True(t, ds.Observations[0].Timestamp.Equal(want))

	require.Len(t, ds.Skipped, 2)
	assert.Equal(t, `invalid timestamp "yesterday"`, ds.Skipped[0].Reason)
	assert.Equal(t, "missing timestamp", ds.Skipped[1].Reason)
}

func TestReaderTimestampColumnAbsentAborts(t *testing.T) {
	schema := testSchema()
	schema.Timestamp = domain.TimestampSpec{Column: "Observed"}

	const data = `SKU,Product type,Supplier name,Stock levels,Defect rates
SKU1,haircare,Supplier 1,5,0.5
`
	reader := NewReader(schema, zaptest.NewLogger(t))

	_, err := reader.Read(context.Background(), strings.NewReader(data), "inline")
	require.Error(t, err)

	var derr *DataError
	require.ErrorAs(t, err, &derr)
	assert.Contains(t, derr.Message, `timestamp column "Observed" not found`)
}
