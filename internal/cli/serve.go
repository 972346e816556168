package cli

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/fsnotify/fsnotify"
	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/yairfalse/sampo/internal/dashboard"
	"github.com/yairfalse/sampo/internal/pipeline"
	"github.com/yairfalse/sampo/pkg/domain"
)

var (
	serveData     string
	serveRules    string
	serveHost     string
	servePort     int
	serveNoReload bool
)

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Serve the latest analysis report over HTTP",
	Long: `Serve runs the analysis once and keeps the report available over a
JSON API plus a small dashboard page. The report can be refreshed with
POST /api/v1/refresh, and by default refreshes itself whenever the data
or rule file changes.`,
	Example: `  # Serve on the default address
  sampo serve --data supply.csv --rules rules.yaml

  # Serve on all interfaces without auto-reload
  sampo serve --data supply.csv --rules rules.yaml --host 0.0.0.0 --no-reload`,
	Args: cobra.NoArgs,
	RunE: runServe,
}

func init() {
	serveCmd.Flags().StringVarP(&serveData, "data", "d", "", "path to the delimited data file")
	serveCmd.Flags().StringVarP(&serveRules, "rules", "r", "", "path to the analysis config document")
	serveCmd.Flags().StringVar(&serveHost, "host", "", "listen host")
	serveCmd.Flags().IntVar(&servePort, "port", 0, "listen port")
	serveCmd.Flags().BoolVar(&serveNoReload, "no-reload", false, "do not refresh when the input files change")

	serveCmd.MarkFlagRequired("data")
	serveCmd.MarkFlagRequired("rules")
}

func runServe(cmd *cobra.Command, args []string) error {
	cfg, err := loadConfig()
	if err != nil {
		return err
	}
	if serveHost != "" {
		cfg.Serve.Host = serveHost
	}
	if servePort != 0 {
		cfg.Serve.Port = servePort
	}
	if serveNoReload {
		cfg.Serve.AutoReload = false
	}

	logger, err := newLogger(cfg)
	if err != nil {
		return fmt.Errorf("failed to build logger: %w", err)
	}
	defer logger.Sync()

	ctx, cancel := context.WithCancel(cmd.Context())
	defer cancel()

	// The dashboard never serves an empty snapshot: the first run must
	// succeed before the server starts.
	runner := pipeline.NewRunner(logger)
	initial, err := runner.Run(ctx, serveData, serveRules)
	if err != nil {
		return err
	}

	refresh := func(ctx context.Context) (*domain.Report, error) {
		return runner.Run(ctx, serveData, serveRules)
	}

	server := dashboard.NewServer(cfg.Serve, initial, refresh, logger)

	errCh := make(chan error, 1)
	go func() {
		if err := server.Start(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
	}()

	if cfg.Serve.AutoReload {
		if err := autoReload(ctx, server, cfg.Watch.Debounce(), logger); err != nil {
			logger.Warn("Auto-reload unavailable", zap.Error(err))
		}
	}

	fmt.Printf("Dashboard at http://%s (Ctrl+C to stop)\n", cfg.Serve.Address())

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)

	select {
	case err := <-errCh:
		return err
	case <-sigCh:
	case <-ctx.Done():
	}

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(),
		time.Duration(cfg.Serve.ShutdownTimeout)*time.Second)
	defer shutdownCancel()

	return server.Shutdown(shutdownCtx)
}

// autoReload refreshes the server snapshot whenever the data or rule file
// changes. A failed refresh keeps the previous snapshot.
func autoReload(ctx context.Context, server *dashboard.Server, debounce time.Duration, logger *zap.Logger) error {
	watcher, err := fsnotify.NewWatcher()
	if err != nil {
		return fmt.Errorf("failed to create watcher: %w", err)
	}

	for _, path := range []string{serveData, serveRules} {
		if err := watcher.Add(path); err != nil {
			watcher.Close()
			return fmt.Errorf("failed to watch %s: %w", path, err)
		}
	}

	go func() {
		defer watcher.Close()

		debounceTimer := time.NewTimer(0)
		<-debounceTimer.C

		for {
			select {
			case event, ok := <-watcher.Events:
				if !ok {
					return
				}
				if event.Op&(fsnotify.Write|fsnotify.Create) != 0 {
					debounceTimer.Reset(debounce)
				}

			case <-debounceTimer.C:
				if _, err := server.Refresh(ctx); err != nil {
					logger.Warn("Auto-reload failed, keeping previous report", zap.Error(err))
				}

			case err, ok := <-watcher.Errors:
				if !ok {
					return
				}
				logger.Warn("Watcher error", zap.Error(err))

			case <-ctx.Done():
				return
			}
		}
	}()

	return nil
}
