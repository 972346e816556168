package cli

import (
	"testing"
	"time"
)

func TestCommandsRegistered(t *testing.T) {
	names := make(map[string]bool)
	for _, cmd := range rootCmd.Commands() {
		names[cmd.Name()] = true
	}

	for _, want := range []string{"analyze", "rules", "watch", "serve", "version"} {
		if !names[want] {
			t.Errorf("Expected %q command on root", want)
		}
	}
}

func TestRootFlags(t *testing.T) {
	for _, flag := range []string{"config", "verbose", "no-color"} {
		if rootCmd.PersistentFlags().Lookup(flag) == nil {
			t.Errorf("Expected persistent --%s flag on root", flag)
		}
	}
}

func TestAnalyzeFlags(t *testing.T) {
	for _, flag := range []string{"data", "rules", "output", "export", "export-dir", "export-format"} {
		if analyzeCmd.Flag(flag) == nil {
			t.Errorf("Expected --%s flag on analyze", flag)
		}
	}
}

func TestWatchFlags(t *testing.T) {
	for _, flag := range []string{"data", "rules", "output", "debounce"} {
		if watchCmd.Flag(flag) == nil {
			t.Errorf("Expected --%s flag on watch", flag)
		}
	}
}

func TestServeFlags(t *testing.T) {
	for _, flag := range []string{"data", "rules", "host", "port", "no-reload"} {
		if serveCmd.Flag(flag) == nil {
			t.Errorf("Expected --%s flag on serve", flag)
		}
	}
}

func TestRulesSubcommands(t *testing.T) {
	names := make(map[string]bool)
	for _, cmd := range rulesCmd.Commands() {
		names[cmd.Name()] = true
	}
	if !names["validate"] || !names["show"] {
		t.Errorf("Expected validate and show under rules, got %v", names)
	}
}

func TestWatchSessionCounters(t *testing.T) {
	session := newWatchSession()
	session.recordRun(3)
	session.recordRun(7)
	session.recordFailure()

	runs, failures, lastFlags, uptime := session.stats()
	if runs != 3 {
		t.Errorf("Expected 3 runs, got %d", runs)
	}
	if failures != 1 {
		t.Errorf("Expected 1 failure, got %d", failures)
	}
	if lastFlags != 7 {
		t.Errorf("Expected last flags 7, got %d", lastFlags)
	}
	if uptime < 0 || uptime > time.Minute {
		t.Errorf("Unexpected uptime %s", uptime)
	}
}
