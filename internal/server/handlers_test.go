package server

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/claude/volleyplan/internal/generator"
	"github.com/claude/volleyplan/internal/importer"
	"github.com/claude/volleyplan/internal/models"
	"github.com/claude/volleyplan/internal/storage"
	"github.com/google/go-cmp/cmp"
	"github.com/google/uuid"
	"github.com/klauspost/compress/gzip"
	"github.com/prometheus/client_golang/prometheus/testutil"
)

const testAPIKey = "test-key"

// fakeStore is an in-memory Store.
type fakeStore struct {
	drills    []models.Drill
	trainings map[uuid.UUID]*models.Training
	buckets   [][]int
	logs      []storage.ImportLog
	pingErr   error

	lastFilter  storage.DrillFilter
	recentCalls []recentCall
	upserted    []models.Drill
}

type recentCall struct {
	coachID, n int
}

func newFakeStore() *fakeStore {
	return &fakeStore{drills: testCatalog(40), trainings: map[uuid.UUID]*models.Training{}}
}

func (f *fakeStore) ListDrills(_ context.Context, flt storage.DrillFilter) ([]models.Drill, error) {
	f.lastFilter = flt
	var out []models.Drill
	for _, d := range f.drills {
		if flt.Category != "" && d.Category != flt.Category {
			continue
		}
		out = append(out, d)
		if flt.Limit > 0 && len(out) == flt.Limit {
			break
		}
	}
	return out, nil
}

func (f *fakeStore) UpsertDrills(_ context.Context, drills []models.Drill) (int64, error) {
	f.upserted = append(f.upserted, drills...)
	return int64(len(drills)), nil
}

func (f *fakeStore) InsertTraining(_ context.Context, t *models.Training) error {
	t.ID = uuid.New()
	t.CreatedAt = time.Date(2026, 3, 1, 18, 0, 0, 0, time.UTC)
	f.trainings[t.ID] = t
	return nil
}

func (f *fakeStore) GetTraining(_ context.Context, id uuid.UUID, coachID int) (*models.Training, error) {
	t, ok := f.trainings[id]
	if !ok || t.CoachID != coachID {
		return nil, storage.ErrNotFound
	}
	return t, nil
}

func (f *fakeStore) RecentDrillBuckets(_ context.Context, coachID, n int) ([][]int, error) {
	f.recentCalls = append(f.recentCalls, recentCall{coachID: coachID, n: n})
	return f.buckets, nil
}

func (f *fakeStore) InsertImportLog(_ context.Context, log storage.ImportLog) (int64, error) {
	f.logs = append(f.logs, log)
	return int64(len(f.logs)), nil
}

func (f *fakeStore) UpdateImportLog(_ context.Context, id int64, log storage.ImportLog) error {
	f.logs[id-1] = log
	return nil
}

func (f *fakeStore) QueryImportLogs(_ context.Context, limit int) ([]storage.ImportLog, error) {
	if len(f.logs) > limit {
		return f.logs[:limit], nil
	}
	return f.logs, nil
}

func (f *fakeStore) GetCatalogStats(_ context.Context, coachID int) (*storage.CatalogStats, error) {
	return &storage.CatalogStats{ApprovedDrills: int64(len(f.drills)), TotalTrainings: int64(len(f.trainings))}, nil
}

func (f *fakeStore) Ping(context.Context) error {
	return f.pingErr
}

var testCategories = []string{"Warm-up", "Technique", "Tactics", "Game situation", "Physical", "Cool-down"}

func testCatalog(n int) []models.Drill {
	intensities := []models.Intensity{models.IntensityLow, models.IntensityMedium, models.IntensityHigh}
	lo, hi := 5, 15
	drills := make([]models.Drill, 0, n)
	for i := 1; i <= n; i++ {
		skill := models.CanonicalSkills[i%len(models.CanonicalSkills)]
		drills = append(drills, models.Drill{
			ID:           i,
			Name:         fmt.Sprintf("%s exercise %d", skill, i),
			Category:     testCategories[i%len(testCategories)],
			Intensity:    intensities[i%len(intensities)],
			SkillDomains: []string{skill},
			DurationMin:  &lo,
			DurationMax:  &hi,
		})
	}
	return drills
}

func newTestServer(t *testing.T, store *fakeStore) *Server {
	t.Helper()
	engine, err := generator.New()
	if err != nil {
		t.Fatalf("generator.New: %v", err)
	}
	log := slog.New(slog.NewTextHandler(io.Discard, nil))
	return New(store, engine, Options{APIKey: testAPIKey, RecentSessions: 3, ModelVersion: "test"}, log)
}

func do(t *testing.T, s *Server, method, path, body string, headers ...string) *httptest.ResponseRecorder {
	t.Helper()
	req := httptest.NewRequest(method, path, strings.NewReader(body))
	req.Header.Set("X-API-Key", testAPIKey)
	for i := 0; i+1 < len(headers); i += 2 {
		req.Header.Set(headers[i], headers[i+1])
	}
	rec := httptest.NewRecorder()
	s.ServeHTTP(rec, req)
	return rec
}

func decode(t *testing.T, rec *httptest.ResponseRecorder, v any) {
	t.Helper()
	if err := json.NewDecoder(rec.Body).Decode(v); err != nil {
		t.Fatalf("decode error: %v", err)
	}
}

// TestHealth verifies the health endpoint reflects database reachability.
func TestHealth(t *testing.T) {
	store := newFakeStore()
	s := newTestServer(t, store)

	rec := httptest.NewRecorder()
	s.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/health", nil))
	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, want 200", rec.Code)
	}

	store.pingErr = errors.New("connection refused")
	rec = httptest.NewRecorder()
	s.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/health", nil))
	if rec.Code != http.StatusServiceUnavailable {
		t.Errorf("status = %d, want 503", rec.Code)
	}
}

// TestAPIRequiresKey verifies API routes reject missing and wrong keys.
func TestAPIRequiresKey(t *testing.T) {
	s := newTestServer(t, newFakeStore())

	rec := httptest.NewRecorder()
	s.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/api/v1/drills", nil))
	if rec.Code != http.StatusUnauthorized {
		t.Errorf("missing key: status = %d, want 401", rec.Code)
	}

	req := httptest.NewRequest(http.MethodGet, "/api/v1/drills", nil)
	req.Header.Set("X-API-Key", "wrong")
	rec = httptest.NewRecorder()
	s.ServeHTTP(rec, req)
	if rec.Code != http.StatusForbidden {
		t.Errorf("wrong key: status = %d, want 403", rec.Code)
	}
}

// TestGenerateSession verifies a generated session fills the requested
// minutes and is not persisted.
func TestGenerateSession(t *testing.T) {
	store := newFakeStore()
	s := newTestServer(t, store)

	rec := do(t, s, http.MethodPost, "/api/v1/sessions/generate",
		`{"durationTotalMin": 60, "mainFocus": "Serve", "randomSeed": 7}`)
	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, want 200: %s", rec.Code, rec.Body)
	}

	var session models.GeneratedSession
	decode(t, rec, &session)
	total := 0
	for _, b := range session.Blocks {
		total += b.Minutes()
	}
	if total != 60 || !session.Checks.MinutesOK {
		t.Errorf("minutes = %d (ok=%v), want 60", total, session.Checks.MinutesOK)
	}
	if session.Focus.Primary != "Serve" {
		t.Errorf("focus.primary = %q, want Serve", session.Focus.Primary)
	}
	if len(store.trainings) != 0 {
		t.Errorf("generate saved %d trainings, want 0", len(store.trainings))
	}
}

// TestGenerateUsesRecentHistory verifies requests without anti-repeat buckets
// are filled from the coach's saved trainings.
func TestGenerateUsesRecentHistory(t *testing.T) {
	store := newFakeStore()
	store.buckets = [][]int{{1, 2, 3}}
	s := newTestServer(t, store)

	rec := do(t, s, http.MethodPost, "/api/v1/sessions/generate", `{"randomSeed": 1}`, "X-Coach-ID", "5")
	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, want 200: %s", rec.Code, rec.Body)
	}
	if len(store.recentCalls) != 1 || store.recentCalls[0] != (recentCall{coachID: 5, n: 3}) {
		t.Errorf("recent calls = %+v, want one call for coach 5 with n=3", store.recentCalls)
	}

	store.recentCalls = nil
	rec = do(t, s, http.MethodPost, "/api/v1/sessions/generate", `{"recentDrillIdsBySession": [[4]]}`)
	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, want 200", rec.Code)
	}
	if len(store.recentCalls) != 0 {
		t.Errorf("history consulted although the request carried buckets")
	}
}

// TestGenerateInvalidRequest verifies field problems map to 400 and are
// counted as invalid generations.
func TestGenerateInvalidRequest(t *testing.T) {
	s := newTestServer(t, newFakeStore())

	rec := do(t, s, http.MethodPost, "/api/v1/sessions/generate", `{"durationTotalMin": -5, "mainFocus": "Juggling"}`)
	if rec.Code != http.StatusBadRequest {
		t.Fatalf("status = %d, want 400", rec.Code)
	}
	var body map[string]string
	decode(t, rec, &body)
	for _, field := range []string{"durationTotalMin", "mainFocus"} {
		if !strings.Contains(body["error"], field) {
			t.Errorf("error %q does not mention %s", body["error"], field)
		}
	}
	if got := testutil.ToFloat64(s.metrics.Generations.WithLabelValues("unknown", "invalid")); got != 1 {
		t.Errorf("invalid generations = %v, want 1", got)
	}
}

// TestGenerateUnknownRuleset verifies an unregistered ruleset is a client error.
func TestGenerateUnknownRuleset(t *testing.T) {
	s := newTestServer(t, newFakeStore())
	rec := do(t, s, http.MethodPost, "/api/v1/sessions/generate", `{"ruleset": "random"}`)
	if rec.Code != http.StatusBadRequest {
		t.Fatalf("status = %d, want 400", rec.Code)
	}
}

// TestCreateAndGetTraining verifies a saved training is returned to its coach
// only.
func TestCreateAndGetTraining(t *testing.T) {
	store := newFakeStore()
	s := newTestServer(t, store)
	body := `{"durationTotalMin": 60, "randomSeed": 3}`

	rec := do(t, s, http.MethodPost, "/api/v1/trainings", body, "X-Coach-ID", "7")
	if rec.Code != http.StatusCreated {
		t.Fatalf("status = %d, want 201: %s", rec.Code, rec.Body)
	}
	var created struct {
		ID               uuid.UUID           `json:"id"`
		Title            string              `json:"title"`
		Plan             models.Plan         `json:"plan"`
		SelectedDrillIDs []int               `json:"selectedDrillIds"`
		ScoreSummary     models.ScoreSummary `json:"scoreSummary"`
	}
	decode(t, rec, &created)

	saved := store.trainings[created.ID]
	if saved == nil {
		t.Fatalf("training %s not stored", created.ID)
	}
	if saved.CoachID != 7 {
		t.Errorf("coach = %d, want 7", saved.CoachID)
	}
	if string(saved.Request) != body {
		t.Errorf("request = %s, want %s", saved.Request, body)
	}
	if created.Title != "inseason session, 60 min" {
		t.Errorf("title = %q", created.Title)
	}
	if len(created.SelectedDrillIDs) == 0 || len(created.Plan) == 0 {
		t.Errorf("plan = %v, ids = %v, want non-empty", created.Plan, created.SelectedDrillIDs)
	}
	if !created.ScoreSummary.MinutesOK {
		t.Error("scoreSummary.minutesOk = false, want true")
	}

	rec = do(t, s, http.MethodGet, "/api/v1/trainings/"+created.ID.String(), "", "X-Coach-ID", "7")
	if rec.Code != http.StatusOK {
		t.Fatalf("get: status = %d, want 200", rec.Code)
	}
	rec = do(t, s, http.MethodGet, "/api/v1/trainings/"+created.ID.String(), "", "X-Coach-ID", "8")
	if rec.Code != http.StatusNotFound {
		t.Errorf("other coach: status = %d, want 404", rec.Code)
	}
	rec = do(t, s, http.MethodGet, "/api/v1/trainings/not-a-uuid", "")
	if rec.Code != http.StatusBadRequest {
		t.Errorf("bad id: status = %d, want 400", rec.Code)
	}
}

// TestRecentTrainings verifies the recent buckets endpoint and its n parameter.
func TestRecentTrainings(t *testing.T) {
	store := newFakeStore()
	store.buckets = [][]int{{9, 8}, {7}}
	s := newTestServer(t, store)

	rec := do(t, s, http.MethodGet, "/api/v1/trainings/recent?n=2", "")
	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, want 200", rec.Code)
	}
	var body struct {
		CoachID int     `json:"coachId"`
		Buckets [][]int `json:"recentDrillIdsBySession"`
	}
	decode(t, rec, &body)
	if body.CoachID != 1 || len(body.Buckets) != 2 {
		t.Errorf("body = %+v, want coach 1 with 2 buckets", body)
	}
	if store.recentCalls[0].n != 2 {
		t.Errorf("n = %d, want 2", store.recentCalls[0].n)
	}

	if rec := do(t, s, http.MethodGet, "/api/v1/trainings/recent?n=zero", ""); rec.Code != http.StatusBadRequest {
		t.Errorf("bad n: status = %d, want 400", rec.Code)
	}
}

// TestListDrills verifies query parameters become the store filter.
func TestListDrills(t *testing.T) {
	store := newFakeStore()
	s := newTestServer(t, store)

	rec := do(t, s, http.MethodGet, "/api/v1/drills?category=Warm-up&limit=2", "")
	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, want 200", rec.Code)
	}
	var drills []models.Drill
	decode(t, rec, &drills)
	if len(drills) != 2 {
		t.Errorf("got %d drills, want 2", len(drills))
	}
	if store.lastFilter.Category != "Warm-up" || store.lastFilter.Limit != 2 {
		t.Errorf("filter = %+v", store.lastFilter)
	}

	if rec := do(t, s, http.MethodGet, "/api/v1/drills?limit=-1", ""); rec.Code != http.StatusBadRequest {
		t.Errorf("bad limit: status = %d, want 400", rec.Code)
	}
}

// TestImportDrills verifies catalog uploads are normalized, stored and logged.
func TestImportDrills(t *testing.T) {
	store := newFakeStore()
	s := newTestServer(t, store)

	rec := do(t, s, http.MethodPost, "/api/v1/drills/import",
		`[{"id": 101, "name": "Float serve ladder", "skill_focus": "Serve"}, {"name": "no id"}]`)
	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, want 200: %s", rec.Code, rec.Body)
	}
	if len(store.upserted) != 1 || store.upserted[0].ID != 101 {
		t.Errorf("upserted = %+v, want drill 101", store.upserted)
	}
	if len(store.logs) != 1 || store.logs[0].Status != "success" || store.logs[0].Source != "api:coach-1" {
		t.Errorf("logs = %+v, want one success entry for api:coach-1", store.logs)
	}
	if got := testutil.ToFloat64(s.metrics.ImportedDrills); got != 1 {
		t.Errorf("imported drills metric = %v, want 1", got)
	}

	rec = do(t, s, http.MethodPost, "/api/v1/drills/import", `{"drills": "nope"}`)
	if rec.Code != http.StatusBadRequest {
		t.Errorf("malformed: status = %d, want 400", rec.Code)
	}
}

// TestImportDrillsGzipTooLarge verifies a compact gzip upload that expands past
// the decompression cap is refused without touching the store.
func TestImportDrillsGzipTooLarge(t *testing.T) {
	store := newFakeStore()
	s := newTestServer(t, store)

	var buf bytes.Buffer
	zw := gzip.NewWriter(&buf)
	if _, err := zw.Write(make([]byte, importer.MaxDecompressedSize+1)); err != nil {
		t.Fatal(err)
	}
	if err := zw.Close(); err != nil {
		t.Fatal(err)
	}
	if buf.Len() >= maxImportBody {
		t.Fatalf("compressed upload is %d bytes, want it under the body limit", buf.Len())
	}

	rec := do(t, s, http.MethodPost, "/api/v1/drills/import", buf.String())
	if rec.Code != http.StatusRequestEntityTooLarge {
		t.Errorf("status = %d, want 413: %s", rec.Code, rec.Body)
	}
	if len(store.upserted) != 0 {
		t.Errorf("upserted %d drills, want none", len(store.upserted))
	}
	if len(store.logs) != 1 || store.logs[0].Status != "error" {
		t.Errorf("logs = %+v, want one error entry", store.logs)
	}
}

// TestImportLogs verifies the import log listing and its limit validation.
func TestImportLogs(t *testing.T) {
	store := newFakeStore()
	store.logs = []storage.ImportLog{{ID: 1, Source: "a"}, {ID: 2, Source: "b"}}
	s := newTestServer(t, store)

	rec := do(t, s, http.MethodGet, "/api/v1/import-logs?limit=1", "")
	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, want 200", rec.Code)
	}
	var logs []storage.ImportLog
	decode(t, rec, &logs)
	if len(logs) != 1 {
		t.Errorf("got %d logs, want 1", len(logs))
	}

	if rec := do(t, s, http.MethodGet, "/api/v1/import-logs?limit=0", ""); rec.Code != http.StatusBadRequest {
		t.Errorf("limit=0: status = %d, want 400", rec.Code)
	}
}

// TestStatsAndRulesets verifies the informational endpoints.
func TestStatsAndRulesets(t *testing.T) {
	s := newTestServer(t, newFakeStore())

	rec := do(t, s, http.MethodGet, "/api/v1/stats", "")
	var stats storage.CatalogStats
	decode(t, rec, &stats)
	if stats.ApprovedDrills != 40 {
		t.Errorf("approved_drills = %d, want 40", stats.ApprovedDrills)
	}

	rec = do(t, s, http.MethodGet, "/api/v1/rulesets", "")
	var rs struct {
		Rulesets []string `json:"rulesets"`
	}
	decode(t, rec, &rs)
	want := []string{generator.RulesetPeriodized, generator.RulesetPhased}
	if diff := cmp.Diff(want, rs.Rulesets); diff != "" {
		t.Errorf("rulesets mismatch (-want +got):\n%s", diff)
	}
}

// TestHandleMe verifies the coach identity endpoint echoes the header.
func TestHandleMe(t *testing.T) {
	s := newTestServer(t, newFakeStore())
	rec := do(t, s, http.MethodGet, "/api/v1/me", "", "X-Coach-ID", "12")

	var info CoachInfo
	decode(t, rec, &info)
	if info.ID != 12 || info.Source != "header" {
		t.Errorf("info = %+v, want coach 12 from header", info)
	}
}

// TestMetricsEndpoint verifies generations show up in the exposition.
func TestMetricsEndpoint(t *testing.T) {
	s := newTestServer(t, newFakeStore())
	do(t, s, http.MethodPost, "/api/v1/sessions/generate", `{"randomSeed": 2}`)

	rec := httptest.NewRecorder()
	s.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/metrics", nil))
	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, want 200", rec.Code)
	}
	if !bytes.Contains(rec.Body.Bytes(), []byte(`volleyplan_generations_total{`)) {
		t.Errorf("metrics output lacks generations counter:\n%s", rec.Body)
	}
}

// TestStatusFor verifies error to status mapping.
func TestStatusFor(t *testing.T) {
	tests := []struct {
		err  error
		want int
	}{
		{generator.ErrInvalidRequest, http.StatusBadRequest},
		{fmt.Errorf("get: %w", storage.ErrNotFound), http.StatusNotFound},
		{fmt.Errorf("%w: %w", importer.ErrMalformedCatalog, importer.ErrTooLarge), http.StatusRequestEntityTooLarge},
		{errors.New("boom"), http.StatusInternalServerError},
	}
	for _, tt := range tests {
		if got := statusFor(tt.err); got != tt.want {
			t.Errorf("statusFor(%v) = %d, want %d", tt.err, got, tt.want)
		}
	}
}
