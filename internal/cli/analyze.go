package cli

import (
	"fmt"
	"os"

	"github.com/fatih/color"
	"github.com/spf13/cobra"

	"github.com/yairfalse/sampo/internal/pipeline"
	"github.com/yairfalse/sampo/internal/report"
)

var (
	analyzeData          string
	analyzeRules         string
	analyzeOutput        string
	analyzeExport        bool
	analyzeExportDir     string
	analyzeExportFormats []string
)

var analyzeCmd = &cobra.Command{
	Use:   "analyze",
	Short: "Run the configured rules over a data file and report risk flags",
	Long: `Analyze ingests a delimited data file, evaluates every configured
threshold rule against every record, and prints the resulting report:
summary metrics, raised risk flags grouped by label, per-group aggregates,
top entities, high-risk entities, and recommendations.

The analysis configuration (schema, rules, aggregation options) lives in
one YAML document. Configuration problems abort the run before the data
file is opened.`,
	Example: `  # Analyze a supply chain snapshot
  sampo analyze --data supply.csv --rules rules.yaml

  # Machine-readable output
  sampo analyze --data supply.csv --rules rules.yaml --output json

  # Write report files next to the terminal output
  sampo analyze --data supply.csv --rules rules.yaml --export --export-format json,csv`,
	Args: cobra.NoArgs,
	RunE: runAnalyze,
}

func init() {
	analyzeCmd.Flags().StringVarP(&analyzeData, "data", "d", "", "path to the delimited data file")
	analyzeCmd.Flags().StringVarP(&analyzeRules, "rules", "r", "", "path to the analysis config document")
	analyzeCmd.Flags().StringVarP(&analyzeOutput, "output", "o", "", "output format: human, json, yaml")
	analyzeCmd.Flags().BoolVar(&analyzeExport, "export", false, "write report files after the run")
	analyzeCmd.Flags().StringVar(&analyzeExportDir, "export-dir", "", "directory for exported report files")
	analyzeCmd.Flags().StringSliceVar(&analyzeExportFormats, "export-format", nil, "export formats: json, yaml, csv, markdown")

	analyzeCmd.MarkFlagRequired("data")
	analyzeCmd.MarkFlagRequired("rules")
}

func runAnalyze(cmd *cobra.Command, args []string) error {
	cfg, err := loadConfig()
	if err != nil {
		return err
	}

	format := analyzeOutput
	if format == "" {
		format = cfg.Output.Format
	}
	if err := report.ValidateFormat(format); err != nil {
		return err
	}
	if noColor || !cfg.Output.Color {
		color.NoColor = true
	}

	logger, err := newLogger(cfg)
	if err != nil {
		return fmt.Errorf("failed to build logger: %w", err)
	}
	defer logger.Sync()

	runner := pipeline.NewRunner(logger)
	result, err := runner.Run(cmd.Context(), analyzeData, analyzeRules)
	if err != nil {
		return err
	}

	formatter := report.NewFormatter(format)
	if err := formatter.Print(result); err != nil {
		return err
	}

	if analyzeExport || cfg.Export.Enabled {
		dir := analyzeExportDir
		if dir == "" {
			dir = cfg.Export.Directory
		}
		formats := analyzeExportFormats
		if len(formats) == 0 {
			formats = cfg.Export.Formats
		}

		exporter := report.NewExporter(dir, cfg.Export.Prefix, logger)
		paths, err := exporter.Export(result, formats)
		if err != nil {
			return fmt.Errorf("export failed: %w", err)
		}
		for _, path := range paths {
			fmt.Fprintf(os.Stderr, "%s wrote %s\n", report.Icons.Success, path)
		}
	}

	return nil
}
