package server

import (
	"context"
	"log/slog"
	"net/http"

	"github.com/claude/volleyplan/internal/generator"
	"github.com/claude/volleyplan/internal/importer"
	"github.com/claude/volleyplan/internal/models"
	"github.com/claude/volleyplan/internal/storage"
	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// DrillStore reads and writes the drill catalog.
type DrillStore interface {
	ListDrills(ctx context.Context, f storage.DrillFilter) ([]models.Drill, error)
	UpsertDrills(ctx context.Context, drills []models.Drill) (int64, error)
}

// TrainingStore persists generated trainings.
type TrainingStore interface {
	InsertTraining(ctx context.Context, t *models.Training) error
	GetTraining(ctx context.Context, id uuid.UUID, coachID int) (*models.Training, error)
	RecentDrillBuckets(ctx context.Context, coachID, n int) ([][]int, error)
}

// Store is the persistence the HTTP API needs.
type Store interface {
	DrillStore
	TrainingStore
	importer.LogStore
	QueryImportLogs(ctx context.Context, limit int) ([]storage.ImportLog, error)
	GetCatalogStats(ctx context.Context, coachID int) (*storage.CatalogStats, error)
	Ping(ctx context.Context) error
}

var _ Store = (*storage.DB)(nil)

// Options tune request handling.
type Options struct {
	APIKey       string
	ModelVersion string

	// RecentSessions is how many saved trainings feed the anti-repeat
	// buckets when a request carries none.
	RecentSessions int
}

// Server holds dependencies for HTTP handlers.
type Server struct {
	store    Store
	engine   *generator.Engine
	importer *importer.Importer
	metrics  *Metrics
	registry *prometheus.Registry
	log      *slog.Logger
	opts     Options
	router   chi.Router
}

// New creates a new Server with all routes configured.
func New(store Store, engine *generator.Engine, opts Options, log *slog.Logger) *Server {
	reg := prometheus.NewRegistry()
	s := &Server{
		store:    store,
		engine:   engine,
		importer: importer.New(store, store, log, false),
		metrics:  NewMetrics(reg),
		registry: reg,
		log:      log,
		opts:     opts,
		router:   chi.NewRouter(),
	}
	s.routes()
	return s
}

// ServeHTTP implements http.Handler.
func (s *Server) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	s.router.ServeHTTP(w, r)
}

// Metrics exposes the collectors so other components can record into them.
func (s *Server) Metrics() *Metrics {
	return s.metrics
}

func (s *Server) routes() {
	s.router.Use(RequestLogging(s.log))
	s.router.Use(CORS)

	s.router.Get("/health", s.handleHealth)
	s.router.Handle("/metrics", promhttp.HandlerFor(s.registry, promhttp.HandlerOpts{}))

	s.router.Route("/api/v1", func(r chi.Router) {
		r.Use(APIKeyAuth(s.opts.APIKey))
		r.Use(CoachIdentity)

		r.Get("/me", s.handleMe)
		r.Get("/rulesets", s.handleRulesets)
		r.Post("/sessions/generate", s.handleGenerate)
		r.Post("/trainings", s.handleCreateTraining)
		r.Get("/trainings/recent", s.handleRecentTrainings)
		r.Get("/trainings/{id}", s.handleGetTraining)
		r.Get("/drills", s.handleListDrills)
		r.Post("/drills/import", s.handleImportDrills)
		r.Get("/stats", s.handleStats)
		r.Get("/import-logs", s.handleImportLogs)
	})
}

// SetMCP mounts an MCP handler at /mcp behind the API key.
func (s *Server) SetMCP(h http.Handler) {
	s.router.Group(func(r chi.Router) {
		r.Use(APIKeyAuth(s.opts.APIKey))
		r.Use(CoachIdentity)
		r.Handle("/mcp", h)
		r.Handle("/mcp/*", h)
	})
}
