package server

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strconv"
	"time"

	"github.com/claude/volleyplan/internal/generator"
	"github.com/claude/volleyplan/internal/importer"
	"github.com/claude/volleyplan/internal/models"
	"github.com/claude/volleyplan/internal/storage"
	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"
	"golang.org/x/sync/errgroup"
)

const (
	maxRequestBody = 1 << 20
	maxImportBody  = 32 << 20
)

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	if err := s.store.Ping(r.Context()); err != nil {
		writeJSON(w, http.StatusServiceUnavailable, map[string]string{"status": "unavailable", "error": err.Error()})
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

func (s *Server) handleMe(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, coachInfoFromContext(r))
}

func (s *Server) handleRulesets(w http.ResponseWriter, r *http.Request) {
	d := s.engine.Defaults()
	writeJSON(w, http.StatusOK, map[string]any{
		"rulesets": s.engine.Rulesets(),
		"defaults": map[string]any{
			"ruleset":               d.Ruleset,
			"periodPhase":           d.PeriodPhase,
			"intensityTarget":       d.IntensityTarget,
			"durationTotalMin":      d.DurationTotalMin,
			"maxHighIntensityInRow": d.MaxHighIntensityInRow,
		},
	})
}

func (s *Server) handleGenerate(w http.ResponseWriter, r *http.Request) {
	body, err := io.ReadAll(http.MaxBytesReader(w, r.Body, maxRequestBody))
	if err != nil {
		writeJSON(w, http.StatusRequestEntityTooLarge, map[string]string{"error": "reading body: " + err.Error()})
		return
	}

	_, session, err := s.generate(r, body)
	if err != nil {
		writeJSON(w, statusFor(err), map[string]string{"error": err.Error()})
		return
	}
	writeJSON(w, http.StatusOK, session)
}

func (s *Server) handleCreateTraining(w http.ResponseWriter, r *http.Request) {
	body, err := io.ReadAll(http.MaxBytesReader(w, r.Body, maxRequestBody))
	if err != nil {
		writeJSON(w, http.StatusRequestEntityTooLarge, map[string]string{"error": "reading body: " + err.Error()})
		return
	}

	req, session, err := s.generate(r, body)
	if err != nil {
		writeJSON(w, statusFor(err), map[string]string{"error": err.Error()})
		return
	}

	plan, ids, summary := storage.BuildPlan(session)
	title := r.URL.Query().Get("title")
	if title == "" {
		title = fmt.Sprintf("%s session, %d min", req.PeriodPhase, req.DurationTotalMin)
	}
	t := &models.Training{
		CoachID:          coachIDFromContext(r),
		Title:            title,
		Status:           models.TrainingDraft,
		PeriodPhase:      req.PeriodPhase,
		Ruleset:          session.Ruleset,
		Request:          json.RawMessage(body),
		Session:          session,
		Plan:             plan,
		SelectedDrillIDs: ids,
		ScoreSummary:     summary,
		ModelVersion:     s.opts.ModelVersion,
	}
	if err := s.store.InsertTraining(r.Context(), t); err != nil {
		s.log.Error("saving training", "coach_id", t.CoachID, "error", err)
		writeJSON(w, http.StatusInternalServerError, map[string]string{"error": err.Error()})
		return
	}

	writeJSON(w, http.StatusCreated, map[string]any{
		"id":               t.ID,
		"title":            t.Title,
		"createdAt":        t.CreatedAt,
		"session":          session,
		"plan":             plan,
		"selectedDrillIds": ids,
		"scoreSummary":     summary,
	})
}

// generate parses a request body, fills the anti-repeat buckets from the
// coach's saved trainings when the request carries none, and runs the engine.
func (s *Server) generate(r *http.Request, body []byte) (models.GenerationRequest, *models.GeneratedSession, error) {
	ctx := r.Context()
	coachID := coachIDFromContext(r)

	req, err := s.engine.ParseRequest(body)
	if err != nil {
		s.metrics.ObserveGeneration(s.rulesetLabel(req.Ruleset), nil, err, 0)
		return req, nil, err
	}

	var drills []models.Drill
	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		var err error
		drills, err = s.store.ListDrills(gctx, storage.DrillFilter{})
		if err != nil {
			return fmt.Errorf("loading drills: %w", err)
		}
		return nil
	})
	if len(req.RecentDrillIDsBySession) == 0 && s.opts.RecentSessions > 0 {
		g.Go(func() error {
			buckets, err := s.store.RecentDrillBuckets(gctx, coachID, s.opts.RecentSessions)
			if err != nil {
				s.log.Warn("recent drills unavailable", "coach_id", coachID, "error", err)
				return nil
			}
			req.RecentDrillIDsBySession = buckets
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return req, nil, err
	}

	start := time.Now()
	session, err := s.engine.Generate(drills, req)
	elapsed := time.Since(start)
	s.metrics.ObserveGeneration(s.rulesetLabel(req.Ruleset), session, err, elapsed)
	if err != nil {
		return req, nil, err
	}

	s.log.Info("session generated",
		"coach_id", coachID,
		"ruleset", session.Ruleset,
		"catalog", len(drills),
		"blocks", len(session.Blocks),
		"minutes_ok", session.Checks.MinutesOK,
		"primary_ratio", session.Checks.PrimaryFocusRatio,
		"duration", elapsed.String(),
	)
	return req, session, nil
}

func (s *Server) handleRecentTrainings(w http.ResponseWriter, r *http.Request) {
	n := s.opts.RecentSessions
	if v := r.URL.Query().Get("n"); v != "" {
		parsed, err := strconv.Atoi(v)
		if err != nil || parsed < 1 {
			writeJSON(w, http.StatusBadRequest, map[string]string{"error": "n must be a positive integer"})
			return
		}
		n = parsed
	}
	if n < 1 {
		n = 1
	}

	coachID := coachIDFromContext(r)
	buckets, err := s.store.RecentDrillBuckets(r.Context(), coachID, n)
	if err != nil {
		writeJSON(w, http.StatusInternalServerError, map[string]string{"error": err.Error()})
		return
	}
	if buckets == nil {
		buckets = [][]int{}
	}
	writeJSON(w, http.StatusOK, map[string]any{
		"coachId":                 coachID,
		"recentDrillIdsBySession": buckets,
	})
}

func (s *Server) handleGetTraining(w http.ResponseWriter, r *http.Request) {
	id, err := uuid.Parse(chi.URLParam(r, "id"))
	if err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "invalid training id"})
		return
	}

	t, err := s.store.GetTraining(r.Context(), id, coachIDFromContext(r))
	if err != nil {
		writeJSON(w, statusFor(err), map[string]string{"error": err.Error()})
		return
	}
	writeJSON(w, http.StatusOK, t)
}

func (s *Server) handleListDrills(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	f := storage.DrillFilter{
		Category: q.Get("category"),
		Level:    q.Get("level"),
	}
	if v := q.Get("limit"); v != "" {
		limit, err := strconv.Atoi(v)
		if err != nil || limit < 0 {
			writeJSON(w, http.StatusBadRequest, map[string]string{"error": "limit must be a non-negative integer"})
			return
		}
		f.Limit = limit
	}

	drills, err := s.store.ListDrills(r.Context(), f)
	if err != nil {
		writeJSON(w, http.StatusInternalServerError, map[string]string{"error": err.Error()})
		return
	}
	if drills == nil {
		drills = []models.Drill{}
	}
	writeJSON(w, http.StatusOK, drills)
}

func (s *Server) handleImportDrills(w http.ResponseWriter, r *http.Request) {
	body, err := io.ReadAll(http.MaxBytesReader(w, r.Body, maxImportBody))
	if err != nil {
		writeJSON(w, http.StatusRequestEntityTooLarge, map[string]string{"error": "reading body: " + err.Error()})
		return
	}

	source := r.URL.Query().Get("source")
	if source == "" {
		source = fmt.Sprintf("api:coach-%d", coachIDFromContext(r))
	}
	stats, err := s.importer.Import(r.Context(), source, body)
	if err != nil {
		s.log.Error("drill import failed", "source", source, "error", err)
		writeJSON(w, statusFor(err), map[string]string{"error": err.Error()})
		return
	}
	s.metrics.ImportedDrills.Add(float64(stats.Upserted))
	writeJSON(w, http.StatusOK, stats)
}

func (s *Server) handleStats(w http.ResponseWriter, r *http.Request) {
	stats, err := s.store.GetCatalogStats(r.Context(), coachIDFromContext(r))
	if err != nil {
		writeJSON(w, http.StatusInternalServerError, map[string]string{"error": err.Error()})
		return
	}
	writeJSON(w, http.StatusOK, stats)
}

func (s *Server) handleImportLogs(w http.ResponseWriter, r *http.Request) {
	limit := 20
	if v := r.URL.Query().Get("limit"); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil || n < 1 {
			writeJSON(w, http.StatusBadRequest, map[string]string{"error": "limit must be a positive integer"})
			return
		}
		limit = n
	}

	logs, err := s.store.QueryImportLogs(r.Context(), limit)
	if err != nil {
		writeJSON(w, http.StatusInternalServerError, map[string]string{"error": err.Error()})
		return
	}
	if logs == nil {
		logs = []storage.ImportLog{}
	}
	writeJSON(w, http.StatusOK, logs)
}

// statusFor maps domain errors onto HTTP status codes.
func statusFor(err error) int {
	switch {
	case errors.Is(err, generator.ErrInvalidRequest):
		return http.StatusBadRequest
	case errors.Is(err, importer.ErrTooLarge):
		return http.StatusRequestEntityTooLarge
	case errors.Is(err, importer.ErrEmptyCatalog), errors.Is(err, importer.ErrMalformedCatalog):
		return http.StatusBadRequest
	case errors.Is(err, storage.ErrNotFound):
		return http.StatusNotFound
	default:
		return http.StatusInternalServerError
	}
}

// rulesetLabel keeps metric labels to registered ruleset names.
func (s *Server) rulesetLabel(name string) string {
	for _, n := range s.engine.Rulesets() {
		if n == name {
			return name
		}
	}
	return "unknown"
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(v)
}
