package server

import (
	"errors"
	"time"

	"github.com/claude/volleyplan/internal/generator"
	"github.com/claude/volleyplan/internal/models"
	"github.com/prometheus/client_golang/prometheus"
)

// Metrics holds the generation collectors.
type Metrics struct {
	Generations    *prometheus.CounterVec
	Duration       *prometheus.HistogramVec
	FailedChecks   *prometheus.CounterVec
	DrillsSelected prometheus.Histogram
	ImportedDrills prometheus.Counter
}

// NewMetrics creates the collectors and registers them with reg.
func NewMetrics(reg prometheus.Registerer) *Metrics {
	m := &Metrics{
		Generations: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "volleyplan",
			Name:      "generations_total",
			Help:      "Session generations by ruleset and outcome.",
		}, []string{"ruleset", "outcome"}),
		Duration: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: "volleyplan",
			Name:      "generation_duration_seconds",
			Help:      "Time spent generating a session.",
			Buckets:   []float64{.001, .0025, .005, .01, .025, .05, .1, .25, .5, 1},
		}, []string{"ruleset"}),
		FailedChecks: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "volleyplan",
			Name:      "failed_checks_total",
			Help:      "Generated sessions that failed a session check, by check.",
		}, []string{"check"}),
		DrillsSelected: prometheus.NewHistogram(prometheus.HistogramOpts{
			Namespace: "volleyplan",
			Name:      "session_drills",
			Help:      "Drills selected per generated session.",
			Buckets:   prometheus.LinearBuckets(0, 2, 10),
		}),
		ImportedDrills: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: "volleyplan",
			Name:      "imported_drills_total",
			Help:      "Drills upserted through catalog imports.",
		}),
	}
	reg.MustRegister(m.Generations, m.Duration, m.FailedChecks, m.DrillsSelected, m.ImportedDrills)
	return m
}

// ObserveGeneration records one Generate call.
func (m *Metrics) ObserveGeneration(ruleset string, s *models.GeneratedSession, err error, elapsed time.Duration) {
	switch {
	case errors.Is(err, generator.ErrInvalidRequest):
		m.Generations.WithLabelValues(ruleset, "invalid").Inc()
		return
	case err != nil:
		m.Generations.WithLabelValues(ruleset, "error").Inc()
		return
	}

	m.Duration.WithLabelValues(ruleset).Observe(elapsed.Seconds())
	n := 0
	for _, b := range s.Blocks {
		n += len(b.Drills)
	}
	m.DrillsSelected.Observe(float64(n))

	outcome := "ok"
	for check, ok := range map[string]bool{
		"minutes":               s.Checks.MinutesOK,
		"intensity_progression": s.Checks.IntensityProgressionOK,
		"primary_focus_ratio":   s.Checks.PrimaryFocusRatioOK,
		"must_include":          s.Checks.MustIncludeOK,
	} {
		if !ok {
			m.FailedChecks.WithLabelValues(check).Inc()
			outcome = "degraded"
		}
	}
	m.Generations.WithLabelValues(ruleset, outcome).Inc()
}
