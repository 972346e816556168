package report

import (
	"fmt"
	"io"
	"math"
	"sort"
	"strconv"
	"time"

	"github.com/fatih/color"

	"github.com/yairfalse/sampo/pkg/domain"
)

// HumanFormatter renders a report as structured, colored text. Sections
// appear in a fixed order and map-shaped data is sorted before rendering,
// so identical reports render identically.
type HumanFormatter struct {
	w io.Writer
}

// NewHumanFormatter creates a human formatter writing to w.
func NewHumanFormatter(w io.Writer) *HumanFormatter {
	return &HumanFormatter{w: w}
}

func (f *HumanFormatter) Print(report *domain.Report) error {
	f.printMeta(report.Meta)
	f.printSummary(report.Summary)
	f.printMetrics(report.Summary.Metrics)
	f.printFlags(report.Flags)
	f.printGroups(report.Groups)
	f.printTop(report.Top)
	f.printHighRisk(report.HighRisk)
	f.printRecommendations(report.Recommendations)
	f.printSkipped(report.Skipped)
	return nil
}

func (f *HumanFormatter) printMeta(meta domain.RunMeta) {
	fmt.Fprintf(f.w, "%s run %s\n", Colors.Heading("Supply chain analysis"), meta.RunID)
	fmt.Fprintf(f.w, "Generated: %s (%s)\n", meta.GeneratedAt.Format(time.RFC3339), meta.Duration.Round(time.Millisecond))
	fmt.Fprintf(f.w, "Data:      %s\n", meta.DataPath)
	fmt.Fprintf(f.w, "Rules:     %s\n", meta.ConfigPath)
	fmt.Fprintln(f.w)
}

func (f *HumanFormatter) printSummary(summary domain.Summary) {
	green := color.New(color.FgGreen, color.Bold).SprintFunc()
	yellow := color.New(color.FgYellow, color.Bold).SprintFunc()
	red := color.New(color.FgRed, color.Bold).SprintFunc()
	blue := color.New(color.FgBlue, color.Bold).SprintFunc()

	fmt.Fprintf(f.w, "Observations: %d ingested, %d rows skipped\n", summary.Observations, summary.SkippedRows)

	if summary.TotalFlags == 0 {
		fmt.Fprintf(f.w, "%s no rules fired\n", green("CLEAN:"))
		return
	}

	if n := summary.FlagsBySeverity[domain.SeverityCritical]; n > 0 {
		fmt.Fprintf(f.w, "%s %d flags\n", red("CRITICAL:"), n)
	}
	if n := summary.FlagsBySeverity[domain.SeverityWarning]; n > 0 {
		fmt.Fprintf(f.w, "%s %d flags\n", yellow("WARNING:"), n)
	}
	if n := summary.FlagsBySeverity[domain.SeverityInfo]; n > 0 {
		fmt.Fprintf(f.w, "%s %d flags\n", blue("INFO:"), n)
	}
	fmt.Fprintf(f.w, "Flagged entities: %d\n", summary.FlaggedEntities)
}

func (f *HumanFormatter) printMetrics(metrics map[string]domain.MetricStats) {
	if len(metrics) == 0 {
		return
	}

	names := make([]string, 0, len(metrics))
	for name := range metrics {
		names = append(names, name)
	}
	sort.Strings(names)

	fmt.Fprintf(f.w, "\n%s\n", Colors.Heading("Metrics"))
	fmt.Fprintf(f.w, "  %-24s %8s %12s %12s %12s %14s\n", "ATTRIBUTE", "COUNT", "MIN", "MAX", "MEAN", "SUM")
	for _, name := range names {
		stats := metrics[name]
		fmt.Fprintf(f.w, "  %-24s %8d %12s %12s %12s %14s\n",
			name, stats.Count,
			formatValue(stats.Min), formatValue(stats.Max),
			formatValue(stats.Mean), formatValue(stats.Sum))
	}
}

func (f *HumanFormatter) printFlags(flags []domain.RiskFlag) {
	if len(flags) == 0 {
		return
	}

	byLabel := make(map[string][]domain.RiskFlag)
	labels := make([]string, 0)
	for _, flag := range flags {
		if _, seen := byLabel[flag.Label]; !seen {
			labels = append(labels, flag.Label)
		}
		byLabel[flag.Label] = append(byLabel[flag.Label], flag)
	}
	sort.Strings(labels)

	fmt.Fprintf(f.w, "\n%s\n", Colors.Heading("Flags"))
	for _, label := range labels {
		group := byLabel[label]
		fmt.Fprintf(f.w, "  %s (%d)\n", Colors.Warning(label), len(group))
		for _, flag := range group {
			fmt.Fprintf(f.w, "    %s %s row %d: %s [%s]\n",
				severityLabel(flag.Severity), flag.Entity, flag.Row, flag.Detail, flag.Rule)
		}
	}
}

func (f *HumanFormatter) printGroups(groups []domain.GroupSummary) {
	for _, group := range groups {
		fmt.Fprintf(f.w, "\n%s %s\n", Colors.Heading("Groups by"), Colors.Heading(group.Attribute))
		for _, row := range group.Rows {
			fmt.Fprintf(f.w, "  %-24s rows %-5d flags %d\n", row.Key, row.Count, row.Flags)
			if line := groupMeansLine(row.Metrics); line != "" {
				fmt.Fprintf(f.w, "    %s\n", Colors.Muted(line))
			}
		}
	}
}

// groupMeansLine joins per-attribute means into one muted line, skipping
// attributes no observation in the group carried.
func groupMeansLine(metrics map[string]domain.GroupStat) string {
	names := make([]string, 0, len(metrics))
	for name, stat := range metrics {
		if stat.Count > 0 {
			names = append(names, name)
		}
	}
	sort.Strings(names)

	line := ""
	for i, name := range names {
		if i > 0 {
			line += "   "
		}
		line += fmt.Sprintf("%s mean %s", name, formatValue(metrics[name].Mean))
	}
	return line
}

func (f *HumanFormatter) printTop(top *domain.Ranking) {
	if top == nil || len(top.Entities) == 0 {
		return
	}

	fmt.Fprintf(f.w, "\n%s %d %s %s\n", Colors.Heading("Top"), len(top.Entities), Colors.Heading("entities by"), Colors.Heading(top.Attribute))
	for i, entity := range top.Entities {
		fmt.Fprintf(f.w, "  %2d. %-24s %s\n", i+1, entity.Entity, formatValue(entity.Value))
	}
}

func (f *HumanFormatter) printHighRisk(risks []domain.EntityRisk) {
	if len(risks) == 0 {
		return
	}

	fmt.Fprintf(f.w, "\n%s\n", Colors.Heading("High-risk entities"))
	for _, risk := range risks {
		labels := ""
		for i, label := range risk.Labels {
			if i > 0 {
				labels += ", "
			}
			labels += label
		}
		fmt.Fprintf(f.w, "  %s %-24s %d flags   %s\n",
			severityLabel(risk.Worst), risk.Entity, risk.Flags, labels)
	}
}

func (f *HumanFormatter) printRecommendations(recs []domain.Recommendation) {
	if len(recs) == 0 {
		return
	}

	fmt.Fprintf(f.w, "\n%s\n", Colors.Heading("Recommendations"))
	for _, rec := range recs {
		fmt.Fprintf(f.w, "  %s %s: %s\n", priorityLabel(rec.Priority), rec.Area, rec.Issue)
		fmt.Fprintf(f.w, "     %s\n", rec.Action)
	}
}

func (f *HumanFormatter) printSkipped(skipped []domain.SkippedRow) {
	if len(skipped) == 0 {
		return
	}

	fmt.Fprintf(f.w, "\n%s\n", Colors.Heading("Skipped rows"))
	for _, row := range skipped {
		fmt.Fprintf(f.w, "  line %d: %s\n", row.Line, row.Reason)
	}
}

func severityLabel(severity domain.Severity) string {
	red := color.New(color.FgRed, color.Bold).SprintFunc()
	yellow := color.New(color.FgYellow, color.Bold).SprintFunc()
	blue := color.New(color.FgBlue).SprintFunc()

	switch severity {
	case domain.SeverityCritical:
		return red("[CRIT]")
	case domain.SeverityWarning:
		return yellow("[WARN]")
	default:
		return blue("[INFO]")
	}
}

func priorityLabel(priority string) string {
	red := color.New(color.FgRed, color.Bold).SprintFunc()
	yellow := color.New(color.FgYellow, color.Bold).SprintFunc()
	blue := color.New(color.FgBlue).SprintFunc()

	switch priority {
	case "high":
		return red("[HIGH]")
	case "medium":
		return yellow("[MEDIUM]")
	default:
		return blue("[LOW]")
	}
}

// formatValue renders whole numbers without decimals and everything else
// with two, matching how the aggregates are meant to be read.
func formatValue(v float64) string {
	if v == math.Trunc(v) {
		return strconv.FormatFloat(v, 'f', 0, 64)
	}
	return strconv.FormatFloat(v, 'f', 2, 64)
}
