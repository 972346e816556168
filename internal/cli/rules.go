package cli

import (
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"github.com/yairfalse/sampo/internal/report"
	"github.com/yairfalse/sampo/internal/rules"
)

var rulesFile string

var rulesCmd = &cobra.Command{
	Use:   "rules",
	Short: "Inspect and validate the analysis configuration",
}

var rulesValidateCmd = &cobra.Command{
	Use:     "validate",
	Short:   "Load and compile the analysis configuration, reporting every problem",
	Example: "  sampo rules validate --rules rules.yaml",
	Args:    cobra.NoArgs,
	RunE:    runRulesValidate,
}

var rulesShowCmd = &cobra.Command{
	Use:     "show",
	Short:   "Print the configured rules and analysis options",
	Example: "  sampo rules show --rules rules.yaml",
	Args:    cobra.NoArgs,
	RunE:    runRulesShow,
}

func init() {
	rulesCmd.PersistentFlags().StringVarP(&rulesFile, "rules", "r", "", "path to the analysis config document")
	rulesCmd.MarkPersistentFlagRequired("rules")

	rulesCmd.AddCommand(rulesValidateCmd)
	rulesCmd.AddCommand(rulesShowCmd)
}

func runRulesValidate(cmd *cobra.Command, args []string) error {
	ruleset, err := rules.Load(rulesFile)
	if err != nil {
		return err
	}

	fmt.Printf("%s %s is valid: %d rules, %d attributes\n",
		report.Icons.Success,
		rulesFile,
		len(ruleset.Rules()),
		len(ruleset.Doc.Schema.Columns))
	return nil
}

func runRulesShow(cmd *cobra.Command, args []string) error {
	ruleset, err := rules.Load(rulesFile)
	if err != nil {
		return err
	}

	doc := ruleset.Doc
	fmt.Printf("Schema: entity column %q, %d attributes\n", doc.Schema.Entity, len(doc.Schema.Columns))
	for _, col := range doc.Schema.Columns {
		required := ""
		if col.Required {
			required = " (required)"
		}
		fmt.Printf("  %-20s <- %q  %s%s\n", col.Attribute, col.Column, col.Type, required)
	}

	fmt.Printf("\nRules:\n")
	fmt.Printf("  %-20s %-16s %-4s %-12s %-16s %s\n", "NAME", "ATTRIBUTE", "CMP", "THRESHOLD", "LABEL", "SEVERITY")
	for _, rule := range ruleset.Rules() {
		fmt.Printf("  %-20s %-16s %-4s %-12s %-16s %s\n",
			rule.Name, rule.Attribute, rule.Comparator, rule.Threshold, rule.Label, rule.Severity)
	}

	var options []string
	if len(doc.Analysis.Groups) > 0 {
		options = append(options, fmt.Sprintf("group by %s", strings.Join(doc.Analysis.Groups, ", ")))
	}
	if doc.Analysis.Top.Attribute != "" {
		options = append(options, fmt.Sprintf("top %d by %s", doc.Analysis.Top.Count, doc.Analysis.Top.Attribute))
	}
	options = append(options, fmt.Sprintf("high-risk at %d+ flags", doc.Analysis.Risk.MinFlags))
	fmt.Printf("\nAnalysis: %s\n", strings.Join(options, "; "))

	return nil
}
