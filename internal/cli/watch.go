package cli

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"strings"
	"sync"
	"syscall"
	"time"

	"github.com/fatih/color"
	"github.com/fsnotify/fsnotify"
	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/yairfalse/sampo/internal/pipeline"
	"github.com/yairfalse/sampo/internal/report"
	"github.com/yairfalse/sampo/internal/rules"
	"github.com/yairfalse/sampo/pkg/domain"
)

var (
	watchData     string
	watchRules    string
	watchOutput   string
	watchDebounce time.Duration
)

var watchCmd = &cobra.Command{
	Use:   "watch",
	Short: "Re-run the analysis whenever the data or rules change",
	Long: `Watch keeps the analysis running: every time the data file or the
rule document changes, the whole batch runs again and the result is
printed as a one-line status.

Each run is still a pure batch over the whole file. A broken rule edit
does not stop the session; the previous ruleset stays active until the
document is valid again.`,
	Example: `  # Watch a dataset while editing its rules
  sampo watch --data supply.csv --rules rules.yaml

  # Emit one JSON report per run
  sampo watch --data supply.csv --rules rules.yaml --output json`,
	Args: cobra.NoArgs,
	RunE: runWatch,
}

func init() {
	watchCmd.Flags().StringVarP(&watchData, "data", "d", "", "path to the delimited data file")
	watchCmd.Flags().StringVarP(&watchRules, "rules", "r", "", "path to the analysis config document")
	watchCmd.Flags().StringVarP(&watchOutput, "output", "o", "human", "per-run output: human (one line) or json (full report)")
	watchCmd.Flags().DurationVar(&watchDebounce, "debounce", 0, "quiet period after a change before re-running")

	watchCmd.MarkFlagRequired("data")
	watchCmd.MarkFlagRequired("rules")
}

// watchSession tracks counters across the runs of one watch invocation.
type watchSession struct {
	mu        sync.Mutex
	runs      int
	failures  int
	lastFlags int
	start     time.Time
}

func newWatchSession() *watchSession {
	return &watchSession{start: time.Now()}
}

func (s *watchSession) recordRun(flags int) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.runs++
	s.lastFlags = flags
}

func (s *watchSession) recordFailure() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.runs++
	s.failures++
}

func (s *watchSession) stats() (runs, failures, lastFlags int, uptime time.Duration) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.runs, s.failures, s.lastFlags, time.Since(s.start)
}

func runWatch(cmd *cobra.Command, args []string) error {
	cfg, err := loadConfig()
	if err != nil {
		return err
	}
	if watchOutput != "human" {
		if err := report.ValidateFormat(watchOutput); err != nil {
			return err
		}
	}
	if noColor || !cfg.Output.Color {
		color.NoColor = true
	}

	logger, err := newLogger(cfg)
	if err != nil {
		return fmt.Errorf("failed to build logger: %w", err)
	}
	defer logger.Sync()

	// The session cannot start on a broken config.
	ruleset, err := rules.Load(watchRules)
	if err != nil {
		return err
	}

	debounce := watchDebounce
	if debounce <= 0 {
		debounce = cfg.Watch.Debounce()
	}

	ctx, cancel := context.WithCancel(cmd.Context())
	defer cancel()

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)

	watcher, err := fsnotify.NewWatcher()
	if err != nil {
		return fmt.Errorf("failed to create watcher: %w", err)
	}
	defer watcher.Close()

	for _, path := range []string{watchData, watchRules} {
		if err := watcher.Add(path); err != nil {
			return fmt.Errorf("failed to watch %s: %w", path, err)
		}
	}

	runner := pipeline.NewRunner(logger)
	session := newWatchSession()

	runOnce := func() {
		result, err := runner.RunWithRuleset(ctx, ruleset, watchData, watchRules)
		if err != nil {
			session.recordFailure()
			fmt.Printf("%s %s run failed: %v\n",
				report.Colors.Error(report.Icons.Error),
				time.Now().Format("15:04:05"),
				err)
			return
		}
		session.recordRun(result.Summary.TotalFlags)
		printRunStatus(result)
	}

	printWatchHeader()
	runOnce()

	debounceTimer := time.NewTimer(0)
	<-debounceTimer.C
	rulesChanged := false

	for {
		select {
		case event, ok := <-watcher.Events:
			if !ok {
				return fmt.Errorf("watch stream closed unexpectedly")
			}
			if event.Op&(fsnotify.Write|fsnotify.Create) != 0 {
				if event.Name == watchRules {
					rulesChanged = true
				}
				debounceTimer.Reset(debounce)
			}

		case <-debounceTimer.C:
			if rulesChanged {
				fresh, err := rules.Load(watchRules)
				if err != nil {
					// Keep the previous ruleset until the document is fixed.
					fmt.Printf("%s %s config invalid, keeping previous rules: %v\n",
						report.Colors.Warning(report.Icons.Warning),
						time.Now().Format("15:04:05"),
						err)
				} else {
					ruleset = fresh
					logger.Info("Reloaded analysis configuration", zap.String("path", watchRules))
				}
				rulesChanged = false
			}
			runOnce()

		case err, ok := <-watcher.Errors:
			if !ok {
				return fmt.Errorf("watch stream closed unexpectedly")
			}
			logger.Warn("Watcher error", zap.Error(err))

		case <-sigCh:
			fmt.Println("\nStopping watch...")
			printWatchSummary(session)
			return nil

		case <-ctx.Done():
			return ctx.Err()
		}
	}
}

func printWatchHeader() {
	fmt.Println()
	fmt.Printf("%s  Watching %s and %s for changes...\n", report.Icons.Watch, watchData, watchRules)
	fmt.Println("Press Ctrl+C to stop")
	fmt.Println(strings.Repeat("-", 72))
}

// printRunStatus prints one line per run, or the full report when JSON or
// YAML output was requested.
func printRunStatus(result *domain.Report) {
	if watchOutput != "human" {
		formatter := report.NewFormatter(watchOutput)
		if err := formatter.Print(result); err != nil {
			fmt.Fprintf(os.Stderr, "failed to print report: %v\n", err)
		}
		return
	}

	summary := result.Summary
	icon := report.Colors.Success(report.Icons.Success)
	if summary.FlagsBySeverity[domain.SeverityCritical] > 0 {
		icon = report.Colors.Error(report.Icons.Critical)
	} else if summary.TotalFlags > 0 {
		icon = report.Colors.Warning(report.Icons.Warning)
	}

	fmt.Printf("%s %s run %s: %d observations, %d flags, %d skipped (%s)\n",
		icon,
		time.Now().Format("15:04:05"),
		result.Meta.RunID[:8],
		summary.Observations,
		summary.TotalFlags,
		summary.SkippedRows,
		result.Meta.Duration.Round(time.Millisecond))
}

func printWatchSummary(session *watchSession) {
	runs, failures, lastFlags, uptime := session.stats()

	fmt.Println(strings.Repeat("-", 72))
	fmt.Printf("\nWatch summary:\n")
	fmt.Printf("   Duration:   %s\n", uptime.Round(time.Second))
	fmt.Printf("   Runs:       %d\n", runs)
	fmt.Printf("   Failures:   %d\n", failures)
	fmt.Printf("   Last flags: %d\n", lastFlags)

	if lastFlags > 0 {
		fmt.Printf("\n   Run 'sampo analyze --data %s --rules %s' for the full report\n", watchData, watchRules)
	}
}
