package dashboard

import (
	"context"
	"encoding/json"
	"net/http"
	"sync"
	"time"

	"github.com/gorilla/mux"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/metric"
	"go.uber.org/zap"

	"github.com/yairfalse/sampo/pkg/config"
	"github.com/yairfalse/sampo/pkg/domain"
)

// RefreshFunc re-runs the analysis pipeline and returns a fresh report.
type RefreshFunc func(ctx context.Context) (*domain.Report, error)

// Server serves the latest analysis report over HTTP: a JSON API plus a
// small embedded dashboard page. The report snapshot is swapped atomically
// on refresh; requests in flight keep reading the old one.
type Server struct {
	cfg     config.ServeConfig
	logger  *zap.Logger
	router  *mux.Router
	server  *http.Server
	refresh RefreshFunc

	mu     sync.RWMutex
	report *domain.Report

	requestsTotal  metric.Int64Counter
	refreshesTotal metric.Int64Counter
}

// NewServer creates a dashboard server holding report as its first snapshot.
// refresh may be nil, in which case POST /api/v1/refresh is rejected.
func NewServer(cfg config.ServeConfig, report *domain.Report, refresh RefreshFunc, logger *zap.Logger) *Server {
	s := &Server{
		cfg:     cfg,
		logger:  logger,
		router:  mux.NewRouter(),
		refresh: refresh,
		report:  report,
	}

	meter := otel.Meter("sampo.dashboard")
	var err error
	s.requestsTotal, err = meter.Int64Counter(
		"sampo_http_requests_total",
		metric.WithDescription("Total HTTP requests served"),
		metric.WithUnit("1"),
	)
	if err != nil {
		if logger != nil {
			logger.Debug("Failed to create requests counter", zap.Error(err))
		}
		s.requestsTotal = nil
	}
	s.refreshesTotal, err = meter.Int64Counter(
		"sampo_report_refreshes_total",
		metric.WithDescription("Total report refreshes triggered over HTTP"),
		metric.WithUnit("1"),
	)
	if err != nil {
		if logger != nil {
			logger.Debug("Failed to create refreshes counter", zap.Error(err))
		}
		s.refreshesTotal = nil
	}

	s.router.Use(s.loggingMiddleware)
	s.router.Use(corsMiddleware)
	s.setupRoutes()

	return s
}

func (s *Server) setupRoutes() {
	s.router.HandleFunc("/healthz", s.handleHealth).Methods("GET", "OPTIONS")
	s.router.HandleFunc("/api/v1/report", s.handleReport).Methods("GET", "OPTIONS")
	s.router.HandleFunc("/api/v1/summary", s.handleSummary).Methods("GET", "OPTIONS")
	s.router.HandleFunc("/api/v1/flags", s.handleFlags).Methods("GET", "OPTIONS")
	s.router.HandleFunc("/api/v1/entities", s.handleEntities).Methods("GET", "OPTIONS")
	s.router.HandleFunc("/api/v1/groups/{attribute}", s.handleGroup).Methods("GET", "OPTIONS")
	s.router.HandleFunc("/api/v1/recommendations", s.handleRecommendations).Methods("GET", "OPTIONS")
	s.router.HandleFunc("/api/v1/refresh", s.handleRefresh).Methods("POST", "OPTIONS")
	s.router.HandleFunc("/", s.handleIndex).Methods("GET")
}

// Handler exposes the router, mainly for tests.
func (s *Server) Handler() http.Handler {
	return s.router
}

// Report returns the current snapshot.
func (s *Server) Report() *domain.Report {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.report
}

// SetReport swaps in a new snapshot.
func (s *Server) SetReport(report *domain.Report) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.report = report
}

// Refresh re-runs the pipeline and swaps the snapshot. The old snapshot
// survives a failed refresh.
func (s *Server) Refresh(ctx context.Context) (*domain.Report, error) {
	if s.refresh == nil {
		return nil, ErrRefreshUnavailable
	}

	report, err := s.refresh(ctx)
	if err != nil {
		return nil, err
	}

	s.SetReport(report)
	if s.refreshesTotal != nil {
		s.refreshesTotal.Add(ctx, 1)
	}
	if s.logger != nil {
		s.logger.Info("Report refreshed",
			zap.String("run_id", report.Meta.RunID),
			zap.Int("flags", report.Summary.TotalFlags))
	}
	return report, nil
}

// Start runs the HTTP server until it fails or Shutdown is called.
func (s *Server) Start() error {
	s.server = &http.Server{
		Addr:         s.cfg.Address(),
		Handler:      s.router,
		ReadTimeout:  time.Duration(s.cfg.ReadTimeout) * time.Second,
		WriteTimeout: time.Duration(s.cfg.WriteTimeout) * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	if s.logger != nil {
		s.logger.Info("Dashboard listening", zap.String("address", s.cfg.Address()))
	}
	return s.server.ListenAndServe()
}

// Shutdown stops the server, letting in-flight requests finish.
func (s *Server) Shutdown(ctx context.Context) error {
	if s.server == nil {
		return nil
	}
	if s.logger != nil {
		s.logger.Info("Dashboard shutting down")
	}
	return s.server.Shutdown(ctx)
}

func (s *Server) loggingMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		next.ServeHTTP(w, r)
		if s.requestsTotal != nil {
			s.requestsTotal.Add(r.Context(), 1)
		}
		if s.logger != nil {
			s.logger.Debug("Request",
				zap.String("method", r.Method),
				zap.String("path", r.RequestURI),
				zap.Duration("duration", time.Since(start)))
		}
	})
}

func corsMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Access-Control-Allow-Origin", "*")
		w.Header().Set("Access-Control-Allow-Methods", "GET, POST, OPTIONS")
		w.Header().Set("Access-Control-Allow-Headers", "Content-Type")

		if r.Method == "OPTIONS" {
			w.WriteHeader(http.StatusOK)
			return
		}

		next.ServeHTTP(w, r)
	})
}

func respondJSON(w http.ResponseWriter, status int, payload any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(payload)
}

func respondError(w http.ResponseWriter, status int, message string) {
	respondJSON(w, status, map[string]string{"error": message})
}
