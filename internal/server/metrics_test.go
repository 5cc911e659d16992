package server

import (
	"errors"
	"testing"
	"time"

	"github.com/claude/volleyplan/internal/models"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
)

// TestObserveGeneration verifies outcomes and failed checks are counted.
func TestObserveGeneration(t *testing.T) {
	m := NewMetrics(prometheus.NewRegistry())

	ok := &models.GeneratedSession{
		Blocks: []models.Block{{Drills: make([]models.SelectedDrill, 3)}},
		Checks: models.Checks{MinutesOK: true, IntensityProgressionOK: true, PrimaryFocusRatioOK: true, MustIncludeOK: true},
	}
	degraded := &models.GeneratedSession{
		Checks: models.Checks{MinutesOK: false, IntensityProgressionOK: true, PrimaryFocusRatioOK: false, MustIncludeOK: true},
	}

	m.ObserveGeneration("periodized", ok, nil, 5*time.Millisecond)
	m.ObserveGeneration("periodized", degraded, nil, time.Millisecond)
	m.ObserveGeneration("phased", nil, errors.New("db gone"), 0)

	if got := testutil.ToFloat64(m.Generations.WithLabelValues("periodized", "ok")); got != 1 {
		t.Errorf("ok generations = %v, want 1", got)
	}
	if got := testutil.ToFloat64(m.Generations.WithLabelValues("periodized", "degraded")); got != 1 {
		t.Errorf("degraded generations = %v, want 1", got)
	}
	if got := testutil.ToFloat64(m.Generations.WithLabelValues("phased", "error")); got != 1 {
		t.Errorf("error generations = %v, want 1", got)
	}
	if got := testutil.ToFloat64(m.FailedChecks.WithLabelValues("minutes")); got != 1 {
		t.Errorf("failed minutes checks = %v, want 1", got)
	}
	if got := testutil.ToFloat64(m.FailedChecks.WithLabelValues("primary_focus_ratio")); got != 1 {
		t.Errorf("failed ratio checks = %v, want 1", got)
	}
	if got := testutil.CollectAndCount(m.Duration); got != 1 {
		t.Errorf("duration series = %d, want 1", got)
	}
}
