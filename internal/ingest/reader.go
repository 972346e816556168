package ingest

import (
	"context"
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"os"
	"strconv"
	"strings"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/metric"
	"go.uber.org/zap"

	"github.com/yairfalse/sampo/pkg/domain"
)

// Dataset is the outcome of one ingestion pass: the observations that made
// it through plus an account of every row that did not.
type Dataset struct {
	Observations []domain.Observation
	Skipped      []domain.SkippedRow
}

// Reader ingests a delimited tabular file into observations according to a
// schema. Rows that violate the schema are skipped and recorded, never
// silently dropped.
type Reader struct {
	schema domain.Schema
	comma  rune
	logger *zap.Logger

	rowsIngested metric.Int64Counter
	rowsSkipped  metric.Int64Counter
}

// Option adjusts reader behavior.
type Option func(*Reader)

// WithDelimiter sets the field delimiter. Default is ','.
func WithDelimiter(comma rune) Option {
	return func(r *Reader) { r.comma = comma }
}

// NewReader creates a reader bound to the given schema.
func NewReader(schema domain.Schema, logger *zap.Logger, opts ...Option) *Reader {
	r := &Reader{
		schema: schema,
		comma:  ',',
		logger: logger,
	}
	for _, opt := range opts {
		opt(r)
	}

	meter := otel.Meter("sampo.ingest")
	var err error
	r.rowsIngested, err = meter.Int64Counter(
		"sampo_rows_ingested_total",
		metric.WithDescription("Total rows ingested as observations"),
		metric.WithUnit("1"),
	)
	if err != nil {
		if logger != nil {
			logger.Debug("Failed to create rows ingested counter", zap.Error(err))
		}
		r.rowsIngested = nil
	}
	r.rowsSkipped, err = meter.Int64Counter(
		"sampo_rows_skipped_total",
		metric.WithDescription("Total rows skipped for format problems"),
		metric.WithUnit("1"),
	)
	if err != nil {
		if logger != nil {
			logger.Debug("Failed to create rows skipped counter", zap.Error(err))
		}
		r.rowsSkipped = nil
	}

	return r
}

// ReadFile ingests the file at path.
func (r *Reader) ReadFile(ctx context.Context, path string) (*Dataset, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("failed to open data file: %w", err)
	}
	defer f.Close()

	ds, err := r.Read(ctx, f, path)
	if err != nil {
		return nil, err
	}

	if r.logger != nil {
		r.logger.Info("Ingested data file",
			zap.String("path", path),
			zap.Int("observations", len(ds.Observations)),
			zap.Int("skipped", len(ds.Skipped)))
	}
	return ds, nil
}

// Read ingests from an open stream. source names the stream for errors.
func (r *Reader) Read(ctx context.Context, src io.Reader, source string) (*Dataset, error) {
	cr := csv.NewReader(src)
	cr.Comma = r.comma
	cr.TrimLeadingSpace = true

	header, err := cr.Read()
	if err == io.EOF {
		return nil, NewDataError(source, "file is empty", "the first row must be a header")
	}
	if err != nil {
		return nil, fmt.Errorf("failed to read header: %w", err)
	}
	if len(header) > 0 {
		header[0] = strings.TrimPrefix(header[0], "\uFEFF")
	}

	index, err := r.headerIndex(source, header)
	if err != nil {
		return nil, err
	}

	ds := &Dataset{
		Observations: make([]domain.Observation, 0),
		Skipped:      make([]domain.SkippedRow, 0),
	}

	line := 1 // header line
	for {
		record, err := cr.Read()
		if err == io.EOF {
			break
		}
		line++
		var parseErr *csv.ParseError
		if errors.As(err, &parseErr) {
			r.skip(ctx, ds, line, fmt.Sprintf("malformed row: %v", parseErr.Err))
			continue
		}
		if err != nil {
			return nil, fmt.Errorf("failed to read row %d: %w", line, err)
		}

		obs, reason := r.parseRow(record, index, line)
		if reason != "" {
			r.skip(ctx, ds, line, reason)
			continue
		}
		ds.Observations = append(ds.Observations, obs)
		if r.rowsIngested != nil {
			r.rowsIngested.Add(ctx, 1)
		}
	}

	return ds, nil
}

// headerIndex resolves schema columns to field positions. Missing required
// columns are a file-level error: the schema and the file disagree.
func (r *Reader) headerIndex(source string, header []string) (map[string]int, error) {
	index := make(map[string]int, len(header))
	for i, name := range header {
		index[strings.TrimSpace(name)] = i
	}

	if _, ok := index[r.schema.Entity]; !ok {
		return nil, NewDataError(source,
			fmt.Sprintf("entity column %q not found in header", r.schema.Entity),
			"check schema.entity against the file header")
	}
	if ts := r.schema.Timestamp.Column; ts != "" {
		if _, ok := index[ts]; !ok {
			return nil, NewDataError(source,
				fmt.Sprintf("timestamp column %q not found in header", ts),
				"check schema.timestamp.column against the file header")
		}
	}
	for _, col := range r.schema.Columns {
		if _, ok := index[col.Column]; !ok && col.Required {
			return nil, NewDataError(source,
				fmt.Sprintf("required column %q not found in header", col.Column),
				"check schema.columns against the file header")
		}
	}
	return index, nil
}

// parseRow builds one observation. A non-empty reason means the row is
// rejected; the reason names the first offending attribute.
func (r *Reader) parseRow(record []string, index map[string]int, line int) (domain.Observation, string) {
	obs := domain.Observation{
		Row:     line,
		Numbers: make(map[string]float64),
		Strings: make(map[string]string),
	}

	entity := strings.TrimSpace(record[index[r.schema.Entity]])
	if entity == "" {
		return domain.Observation{}, "missing entity ID"
	}
	obs.Entity = entity

	if ts := r.schema.Timestamp.Column; ts != "" {
		raw := strings.TrimSpace(record[index[ts]])
		if raw == "" {
			return domain.Observation{}, "missing timestamp"
		}
		layout := r.schema.Timestamp.Format
		if layout == "" {
			layout = time.RFC3339
		}
		parsed, err := time.Parse(layout, raw)
		if err != nil {
			return domain.Observation{}, fmt.Sprintf("invalid timestamp %q", raw)
		}
		obs.Timestamp = parsed
	}

	for _, col := range r.schema.Columns {
		pos, ok := index[col.Column]
		if !ok || pos >= len(record) {
			if col.Required {
				return domain.Observation{}, fmt.Sprintf("missing required attribute %q", col.Attribute)
			}
			continue
		}
		raw := strings.TrimSpace(record[pos])
		if raw == "" {
			if col.Required {
				return domain.Observation{}, fmt.Sprintf("missing required attribute %q", col.Attribute)
			}
			continue
		}

		switch col.Type {
		case domain.AttributeNumber:
			v, err := strconv.ParseFloat(raw, 64)
			if err != nil {
				return domain.Observation{}, fmt.Sprintf("attribute %q: invalid number %q", col.Attribute, raw)
			}
			obs.Numbers[col.Attribute] = v
		default:
			obs.Strings[col.Attribute] = raw
		}
	}

	return obs, ""
}

func (r *Reader) skip(ctx context.Context, ds *Dataset, line int, reason string) {
	ds.Skipped = append(ds.Skipped, domain.SkippedRow{Line: line, Reason: reason})
	if r.rowsSkipped != nil {
		r.rowsSkipped.Add(ctx, 1)
	}
	if r.logger != nil {
		r.logger.Debug("Skipped row", zap.Int("line", line), zap.String("reason", reason))
	}
}
