package dashboard

import (
	_ "embed"
	"errors"
	"net/http"
	"sort"
	"strings"
	"time"

	"github.com/gorilla/mux"

	"github.com/yairfalse/sampo/pkg/domain"
)

// ErrRefreshUnavailable is returned when the server was built without a
// refresh function.
var ErrRefreshUnavailable = errors.New("refresh is not available")

//go:embed static/index.html
var indexPage []byte

type healthResponse struct {
	Status      string    `json:"status"`
	RunID       string    `json:"run_id,omitempty"`
	GeneratedAt time.Time `json:"generated_at,omitempty"`
}

type flagsResponse struct {
	Count int               `json:"count"`
	Flags []domain.RiskFlag `json:"flags"`
}

type entitiesResponse struct {
	Count    int                 `json:"count"`
	Entities []domain.EntityRisk `json:"entities"`
}

type refreshResponse struct {
	RunID       string         `json:"run_id"`
	GeneratedAt time.Time      `json:"generated_at"`
	Summary     domain.Summary `json:"summary"`
}

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	resp := healthResponse{Status: "ok"}
	if report := s.Report(); report != nil {
		resp.RunID = report.Meta.RunID
		resp.GeneratedAt = report.Meta.GeneratedAt
	}
	respondJSON(w, http.StatusOK, resp)
}

func (s *Server) handleIndex(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write(indexPage)
}

func (s *Server) handleReport(w http.ResponseWriter, r *http.Request) {
	report := s.Report()
	if report == nil {
		respondError(w, http.StatusServiceUnavailable, "no report available yet")
		return
	}
	respondJSON(w, http.StatusOK, report)
}

func (s *Server) handleSummary(w http.ResponseWriter, r *http.Request) {
	report := s.Report()
	if report == nil {
		respondError(w, http.StatusServiceUnavailable, "no report available yet")
		return
	}
	respondJSON(w, http.StatusOK, report.Summary)
}

// handleFlags serves the flag list, optionally narrowed by the label,
// severity, and entity query parameters.
func (s *Server) handleFlags(w http.ResponseWriter, r *http.Request) {
	report := s.Report()
	if report == nil {
		respondError(w, http.StatusServiceUnavailable, "no report available yet")
		return
	}

	label := r.URL.Query().Get("label")
	severity := r.URL.Query().Get("severity")
	entity := r.URL.Query().Get("entity")

	flags := make([]domain.RiskFlag, 0, len(report.Flags))
	for _, f := range report.Flags {
		if label != "" && f.Label != label {
			continue
		}
		if severity != "" && !strings.EqualFold(string(f.Severity), severity) {
			continue
		}
		if entity != "" && f.Entity != entity {
			continue
		}
		flags = append(flags, f)
	}

	respondJSON(w, http.StatusOK, flagsResponse{Count: len(flags), Flags: flags})
}

// handleEntities serves per-entity flag aggregates for every flagged
// entity, worst first.
func (s *Server) handleEntities(w http.ResponseWriter, r *http.Request) {
	report := s.Report()
	if report == nil {
		respondError(w, http.StatusServiceUnavailable, "no report available yet")
		return
	}

	entities := aggregateEntities(report.Flags)
	respondJSON(w, http.StatusOK, entitiesResponse{Count: len(entities), Entities: entities})
}

func (s *Server) handleGroup(w http.ResponseWriter, r *http.Request) {
	report := s.Report()
	if report == nil {
		respondError(w, http.StatusServiceUnavailable, "no report available yet")
		return
	}

	attribute := mux.Vars(r)["attribute"]
	for _, g := range report.Groups {
		if g.Attribute == attribute {
			respondJSON(w, http.StatusOK, g)
			return
		}
	}
	respondError(w, http.StatusNotFound, "no grouping for attribute "+attribute)
}

func (s *Server) handleRecommendations(w http.ResponseWriter, r *http.Request) {
	report := s.Report()
	if report == nil {
		respondError(w, http.StatusServiceUnavailable, "no report available yet")
		return
	}
	respondJSON(w, http.StatusOK, report.Recommendations)
}

func (s *Server) handleRefresh(w http.ResponseWriter, r *http.Request) {
	report, err := s.Refresh(r.Context())
	if err != nil {
		if errors.Is(err, ErrRefreshUnavailable) {
			respondError(w, http.StatusNotImplemented, err.Error())
			return
		}
		respondError(w, http.StatusInternalServerError, err.Error())
		return
	}

	respondJSON(w, http.StatusOK, refreshResponse{
		RunID:       report.Meta.RunID,
		GeneratedAt: report.Meta.GeneratedAt,
		Summary:     report.Summary,
	})
}

// aggregateEntities folds flags into one row per flagged entity, sorted by
// flag count descending then entity ascending.
func aggregateEntities(flags []domain.RiskFlag) []domain.EntityRisk {
	type tally struct {
		count  int
		worst  domain.Severity
		labels map[string]bool
	}

	byEntity := make(map[string]*tally)
	for _, f := range flags {
		t, ok := byEntity[f.Entity]
		if !ok {
			t = &tally{labels: make(map[string]bool)}
			byEntity[f.Entity] = t
		}
		t.count++
		t.labels[f.Label] = true
		if f.Severity.Rank() > t.worst.Rank() {
			t.worst = f.Severity
		}
	}

	entities := make([]domain.EntityRisk, 0, len(byEntity))
	for entity, t := range byEntity {
		labels := make([]string, 0, len(t.labels))
		for label := range t.labels {
			labels = append(labels, label)
		}
		sort.Strings(labels)
		entities = append(entities, domain.EntityRisk{
			Entity: entity,
			Flags:  t.count,
			Worst:  t.worst,
			Labels: labels,
		})
	}

	sort.Slice(entities, func(i, j int) bool {
		if entities[i].Flags != entities[j].Flags {
			return entities[i].Flags > entities[j].Flags
		}
		return entities[i].Entity < entities[j].Entity
	})
	return entities
}
