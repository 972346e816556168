package report

import (
	"github.com/fatih/color"
)

// Icons contains the icons used across sampo's terminal output
var Icons = struct {
	Success   string
	Error     string
	Warning   string
	Info      string
	Critical  string
	Watch     string
	Clock     string
	Separator string
}{
	Success:   "✓",
	Error:     "✗",
	Warning:   "⚠",
	Info:      "ℹ",
	Critical:  "🔥",
	Watch:     "👁",
	Clock:     "⏱",
	Separator: "─",
}

// Colors contains the color functions used across sampo's terminal output
var Colors = struct {
	Success  func(a ...interface{}) string
	Error    func(a ...interface{}) string
	Warning  func(a ...interface{}) string
	Info     func(a ...interface{}) string
	Heading  func(a ...interface{}) string
	Muted    func(a ...interface{}) string
	Critical func(a ...interface{}) string
}{
	Success:  color.New(color.FgGreen).SprintFunc(),
	Error:    color.New(color.FgRed).SprintFunc(),
	Warning:  color.New(color.FgYellow).SprintFunc(),
	Info:     color.New(color.FgCyan).SprintFunc(),
	Heading:  color.New(color.FgWhite, color.Bold).SprintFunc(),
	Muted:    color.New(color.FgHiBlack).SprintFunc(),
	Critical: color.New(color.FgRed, color.Bold).SprintFunc(),
}
