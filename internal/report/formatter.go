package report

import (
	"encoding/json"
	"fmt"
	"io"
	"os"

	"gopkg.in/yaml.v3"

	"github.com/yairfalse/sampo/pkg/domain"
)

// Formatter renders reports in one of the supported output formats.
type Formatter struct {
	format string
	w      io.Writer
}

// NewFormatter creates a formatter for the specified format writing to
// stdout. Unknown formats fall back to human output.
func NewFormatter(format string) *Formatter {
	return NewFormatterWithWriter(format, os.Stdout)
}

// NewFormatterWithWriter creates a formatter writing to w.
func NewFormatterWithWriter(format string, w io.Writer) *Formatter {
	return &Formatter{format: format, w: w}
}

// ValidateFormat checks format against the supported output formats.
func ValidateFormat(format string) error {
	switch format {
	case "human", "json", "yaml":
		return nil
	}
	return fmt.Errorf("unknown output format %q (supported: human, json, yaml)", format)
}

// Print renders the report in the configured format.
func (f *Formatter) Print(report *domain.Report) error {
	switch f.format {
	case "json":
		return f.printJSON(report)
	case "yaml":
		return f.printYAML(report)
	default:
		return NewHumanFormatter(f.w).Print(report)
	}
}

func (f *Formatter) printJSON(report *domain.Report) error {
	encoder := json.NewEncoder(f.w)
	encoder.SetIndent("", "  ")
	return encoder.Encode(report)
}

func (f *Formatter) printYAML(report *domain.Report) error {
	data, err := yaml.Marshal(report)
	if err != nil {
		return err
	}
	_, err = f.w.Write(data)
	return err
}
