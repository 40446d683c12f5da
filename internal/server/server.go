package server

import (
	"context"
	"fmt"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/longregen/refinery/internal/config"
	"github.com/longregen/refinery/internal/history"
)

const ReadTimeout = 30 * time.Second

type Server struct {
	cfg    *config.Config
	router *chi.Mux
	server *http.Server
}

func NewServer(cfg *config.Config, engine Refiner, log *history.Log, metrics *Metrics) *Server {
	router := chi.NewRouter()

	router.Use(Recovery)
	router.Use(Logger)

	router.Get("/healthz", healthz)
	router.Method(http.MethodGet, "/metrics", promhttp.HandlerFor(metrics.Registry(), promhttp.HandlerOpts{}))

	router.Route("/v1", func(r chi.Router) {
		refineH := &refineHandler{engine: engine, cfg: cfg, log: log, metrics: metrics}
		r.Post("/refinements", refineH.Create)

		histH := &historyHandler{log: log}
		r.Get("/history", histH.List)
	})

	return &Server{
		cfg:    cfg,
		router: router,
	}
}

// Router exposes the handler for tests.
func (s *Server) Router() http.Handler {
	return s.router
}

func (s *Server) Start() error {
	addr := fmt.Sprintf("%s:%d", s.cfg.Server.Host, s.cfg.Server.Port)
	s.server = &http.Server{
		Addr:         addr,
		Handler:      s.router,
		ReadTimeout:  ReadTimeout,
		WriteTimeout: 0,
	}
	return s.server.ListenAndServe()
}

func (s *Server) Stop(ctx context.Context) error {
	if s.server != nil {
		return s.server.Shutdown(ctx)
	}
	return nil
}
