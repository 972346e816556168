package report

import (
	"encoding/csv"
	"encoding/json"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"sort"
	"strconv"
	"strings"
	"sync"
	"time"

	"go.uber.org/zap"
	"gopkg.in/yaml.v3"

	"github.com/yairfalse/sampo/pkg/domain"
)

// Export formats.
const (
	FormatJSON     = "json"
	FormatYAML     = "yaml"
	FormatCSV      = "csv"
	FormatMarkdown = "markdown"
)

// ValidateExportFormat checks format against the supported export formats.
func ValidateExportFormat(format string) error {
	switch format {
	case FormatJSON, FormatYAML, FormatCSV, FormatMarkdown:
		return nil
	}
	return fmt.Errorf("unknown export format %q (supported: json, yaml, csv, markdown)", format)
}

// ExportMetrics tracks exporter activity.
type ExportMetrics struct {
	ExportsTotal   int64
	ExportsSuccess int64
	ExportsFailed  int64
	FilesCreated   int64
	LastExportTime time.Time
	mutex          sync.RWMutex
}

// Exporter writes report artifacts to disk. Files are named
// <prefix>-<runID>.<ext> so successive runs never clobber each other.
type Exporter struct {
	dir     string
	prefix  string
	logger  *zap.Logger
	metrics ExportMetrics
}

// NewExporter creates an exporter writing into dir.
func NewExporter(dir, prefix string, logger *zap.Logger) *Exporter {
	if dir == "" {
		dir = "./exports"
	}
	if prefix == "" {
		prefix = "sampo"
	}
	return &Exporter{dir: dir, prefix: prefix, logger: logger}
}

// Export writes the report in every requested format and returns the paths
// written. The first failure aborts the export; files already written stay.
func (e *Exporter) Export(report *domain.Report, formats []string) ([]string, error) {
	e.metrics.mutex.Lock()
	e.metrics.ExportsTotal++
	e.metrics.mutex.Unlock()

	for _, format := range formats {
		if err := ValidateExportFormat(format); err != nil {
			return nil, err
		}
	}

	if err := os.MkdirAll(e.dir, 0o755); err != nil {
		e.recordFailure()
		return nil, fmt.Errorf("failed to create export directory: %w", err)
	}

	paths := make([]string, 0, len(formats))
	for _, format := range formats {
		path := filepath.Join(e.dir, e.filename(report.Meta.RunID, format))
		if err := e.exportOne(path, format, report); err != nil {
			e.recordFailure()
			return paths, fmt.Errorf("failed to export %s: %w", format, err)
		}
		paths = append(paths, path)

		e.metrics.mutex.Lock()
		e.metrics.FilesCreated++
		e.metrics.mutex.Unlock()

		if e.logger != nil {
			e.logger.Info("Exported report",
				zap.String("format", format),
				zap.String("path", path))
		}
	}

	e.metrics.mutex.Lock()
	e.metrics.ExportsSuccess++
	e.metrics.LastExportTime = time.Now()
	e.metrics.mutex.Unlock()

	return paths, nil
}

// Metrics returns a snapshot of exporter activity counters.
func (e *Exporter) Metrics() map[string]int64 {
	e.metrics.mutex.RLock()
	defer e.metrics.mutex.RUnlock()
	return map[string]int64{
		"exports_total":   e.metrics.ExportsTotal,
		"exports_success": e.metrics.ExportsSuccess,
		"exports_failed":  e.metrics.ExportsFailed,
		"files_created":   e.metrics.FilesCreated,
	}
}

func (e *Exporter) recordFailure() {
	e.metrics.mutex.Lock()
	e.metrics.ExportsFailed++
	e.metrics.mutex.Unlock()
}

func (e *Exporter) filename(runID, format string) string {
	return fmt.Sprintf("%s-%s.%s", e.prefix, runID, extension(format))
}

func extension(format string) string {
	if format == FormatMarkdown {
		return "md"
	}
	return format
}

func (e *Exporter) exportOne(path, format string, report *domain.Report) error {
	switch format {
	case FormatJSON:
		return writeFile(path, func(w io.Writer) error {
			encoder := json.NewEncoder(w)
			encoder.SetIndent("", "  ")
			return encoder.Encode(report)
		})
	case FormatYAML:
		return writeFile(path, func(w io.Writer) error {
			encoder := yaml.NewEncoder(w)
			encoder.SetIndent(2)
			defer encoder.Close()
			return encoder.Encode(report)
		})
	case FormatCSV:
		return writeFile(path, func(w io.Writer) error {
			return writeFlagsCSV(w, report.Flags)
		})
	case FormatMarkdown:
		return writeFile(path, func(w io.Writer) error {
			return writeMarkdown(w, report)
		})
	}
	return fmt.Errorf("unsupported format: %s", format)
}

func writeFile(path string, writeFunc func(io.Writer) error) error {
	file, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("failed to create file: %w", err)
	}
	defer file.Close()
	return writeFunc(file)
}

// writeFlagsCSV renders the flag list as a flat table, one flag per row.
func writeFlagsCSV(w io.Writer, flags []domain.RiskFlag) error {
	cw := csv.NewWriter(w)
	if err := cw.Write([]string{"entity", "row", "rule", "label", "severity", "attribute", "value", "threshold"}); err != nil {
		return err
	}
	for _, flag := range flags {
		record := []string{
			flag.Entity,
			strconv.Itoa(flag.Row),
			flag.Rule,
			flag.Label,
			string(flag.Severity),
			flag.Attribute,
			flag.Value,
			flag.Threshold,
		}
		if err := cw.Write(record); err != nil {
			return err
		}
	}
	cw.Flush()
	return cw.Error()
}

// writeMarkdown renders the report as a markdown document: the shareable
// artifact for readers without the CLI.
func writeMarkdown(w io.Writer, report *domain.Report) error {
	var b strings.Builder

	b.WriteString("# Supply Chain Analysis Report\n\n")
	fmt.Fprintf(&b, "- Run: `%s`\n", report.Meta.RunID)
	fmt.Fprintf(&b, "- Generated: %s\n", report.Meta.GeneratedAt.Format(time.RFC3339))
	fmt.Fprintf(&b, "- Data: `%s`\n", report.Meta.DataPath)
	fmt.Fprintf(&b, "- Rules: `%s`\n\n", report.Meta.ConfigPath)

	b.WriteString("## Summary\n\n")
	fmt.Fprintf(&b, "| Observations | Skipped rows | Flags | Flagged entities |\n")
	fmt.Fprintf(&b, "|---|---|---|---|\n")
	fmt.Fprintf(&b, "| %d | %d | %d | %d |\n\n",
		report.Summary.Observations, report.Summary.SkippedRows,
		report.Summary.TotalFlags, report.Summary.FlaggedEntities)

	if len(report.Summary.FlagsByLabel) > 0 {
		labels := make([]string, 0, len(report.Summary.FlagsByLabel))
		for label := range report.Summary.FlagsByLabel {
			labels = append(labels, label)
		}
		sort.Strings(labels)

		b.WriteString("### Flags by label\n\n| Label | Count |\n|---|---|\n")
		for _, label := range labels {
			fmt.Fprintf(&b, "| %s | %d |\n", label, report.Summary.FlagsByLabel[label])
		}
		b.WriteString("\n")
	}

	if len(report.Flags) > 0 {
		b.WriteString("## Flags\n\n")
		b.WriteString("| Entity | Row | Rule | Label | Severity | Detail |\n|---|---|---|---|---|---|\n")
		for _, flag := range report.Flags {
			fmt.Fprintf(&b, "| %s | %d | %s | %s | %s | %s |\n",
				flag.Entity, flag.Row, flag.Rule, flag.Label, flag.Severity, flag.Detail)
		}
		b.WriteString("\n")
	}

	if len(report.HighRisk) > 0 {
		b.WriteString("## High-risk entities\n\n")
		b.WriteString("| Entity | Flags | Worst severity | Labels |\n|---|---|---|---|\n")
		for _, risk := range report.HighRisk {
			fmt.Fprintf(&b, "| %s | %d | %s | %s |\n",
				risk.Entity, risk.Flags, risk.Worst, strings.Join(risk.Labels, ", "))
		}
		b.WriteString("\n")
	}

	if len(report.Recommendations) > 0 {
		b.WriteString("## Recommendations\n\n")
		for _, rec := range report.Recommendations {
			fmt.Fprintf(&b, "- **%s** (%s priority): %s. %s\n", rec.Area, rec.Priority, rec.Issue, rec.Action)
		}
		b.WriteString("\n")
	}

	if len(report.Skipped) > 0 {
		b.WriteString("## Skipped rows\n\n")
		for _, row := range report.Skipped {
			fmt.Fprintf(&b, "- line %d: %s\n", row.Line, row.Reason)
		}
	}

	_, err := io.WriteString(w, b.String())
	return err
}
