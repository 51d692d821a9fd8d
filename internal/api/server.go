package api

import (
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.uber.org/zap"

	"github.com/sitescout/sitescout/internal/dispatcher"
	"github.com/sitescout/sitescout/internal/metrics"
	"github.com/sitescout/sitescout/internal/progress"
	"github.com/sitescout/sitescout/internal/search"
)

// Options tunes the Server beyond its collaborators.
type Options struct {
	// RequestTimeout bounds JSON API handlers (default 30s). The WebSocket
	// route is exempt: progress streams outlive any sane request timeout.
	RequestTimeout time.Duration
	// Gatherer backs GET /metrics. Nil disables the route.
	Gatherer prometheus.Gatherer
	// Metrics, when set, records request counts and latencies for the
	// JSON API routes.
	Metrics *metrics.HTTP
	Logger  *zap.Logger
}

const defaultRequestTimeout = 30 * time.Second

// Server wires HTTP handlers to the dispatcher, job store, and broker.
type Server struct {
	router     chi.Router
	store      search.JobStore
	dispatcher *dispatcher.Dispatcher
	broker     *progress.Broker
	idGen      search.IDGenerator
	clock      search.Clock
	logger     *zap.Logger
}

// NewServer constructs a Server with middleware and routes.
func NewServer(
	store search.JobStore,
	disp *dispatcher.Dispatcher,
	broker *progress.Broker,
	idGen search.IDGenerator,
	clock search.Clock,
	opts Options,
) *Server {
	if opts.RequestTimeout <= 0 {
		opts.RequestTimeout = defaultRequestTimeout
	}
	if opts.Logger == nil {
		opts.Logger = zap.NewNop()
	}
	s := &Server{
		store:      store,
		dispatcher: disp,
		broker:     broker,
		idGen:      idGen,
		clock:      clock,
		logger:     opts.Logger,
	}

	r := chi.NewRouter()
	r.Use(requestIDMiddleware)
	r.Use(loggingMiddleware(opts.Logger))
	r.Use(recoverMiddleware(opts.Logger))

	r.Get("/healthz", s.healthz)
	if opts.Gatherer != nil {
		r.Method(http.MethodGet, "/metrics",
			promhttp.HandlerFor(opts.Gatherer, promhttp.HandlerOpts{}))
	}

	// The upgrade needs the raw connection, so no timeout wrapper here.
	r.Get("/ws/{search_id}", s.streamProgress)

	r.Route("/api", func(r chi.Router) {
		if opts.Metrics != nil {
			r.Use(opts.Metrics.Middleware)
		}
		r.Use(timeoutMiddleware(opts.RequestTimeout))
		r.Post("/search", s.submitSearch)
		r.Route("/search/{search_id}", func(r chi.Router) {
			r.Post("/cancel", s.cancelSearch)
		})
		r.Get("/status/{search_id}", s.getStatus)
		r.Get("/results/{search_id}", s.getResults)
	})

	s.router = r
	return s
}

// Handler returns the router for use with http.Server.
func (s *Server) Handler() http.Handler {
	return s.router
}

func (s *Server) healthz(w http.ResponseWriter, _ *http.Request) {
	s.writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}
