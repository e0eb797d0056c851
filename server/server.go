// Package server wires the sightings tracker's HTTP surface.
package server

import (
	"context"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
	"github.com/go-chi/httprate"
	"github.com/ufotracker/tracker/config"
	"github.com/ufotracker/tracker/consts"
	"github.com/ufotracker/tracker/logging"
	"github.com/ufotracker/tracker/observability"
	"github.com/ufotracker/tracker/source"
)

// Deps are the collaborators the handlers are built from.
type Deps struct {
	Source     source.Source
	SourceKind string
	Limit      int
	AssetsHost string
	// View serves the websocket pane. Nil leaves /ws/view unrouted.
	View    http.Handler
	Metrics *observability.Collector
	Logger  logging.Logger
}

type Server struct {
	server *http.Server
	router *chi.Mux
}

func New(cfg config.ServerConfig, deps Deps) *Server {
	router := NewRouter(cfg, deps)
	return &Server{
		server: &http.Server{
			Addr:              ":" + cfg.Port,
			ReadHeaderTimeout: consts.ReadHeaderTimeout,
			Handler:           router,
		},
		router: router,
	}
}

// NewRouter builds the routes without binding a listener.
func NewRouter(cfg config.ServerConfig, deps Deps) *chi.Mux {
	h := newHandlers(deps)

	r := chi.NewRouter()
	r.Use(middleware.RealIP)
	r.Use(middleware.Logger)
	r.Use(middleware.Recoverer)
	r.Use(deps.Metrics.Middleware)

	r.Get("/", h.index)
	r.Get("/healthz", h.health)
	r.Method(http.MethodGet, "/metrics", deps.Metrics.Handler())
	if deps.View != nil {
		r.Method(http.MethodGet, "/ws/view", deps.View)
	}

	limiter := httprate.NewRateLimiter(cfg.RateLimit, cfg.RateWindow, httprate.WithKeyByIP())
	r.Route("/api", func(r chi.Router) {
		r.Use(cors.Handler(cors.Options{
			AllowedOrigins: cfg.CorsOrigins,
			AllowedMethods: []string{http.MethodGet, http.MethodOptions},
			AllowedHeaders: []string{"Accept", "Content-Type"},
			MaxAge:         300,
		}))
		r.Use(limiter.Handler)

		r.Get("/sightings", h.sightings)
		r.Get("/sightings.geojson", h.geoJSON)
		r.Get("/sightings/{id}", h.sighting)
		r.Get("/summary", h.summary)
		r.Get("/summary/{field}.png", h.rankingPNG)
		r.Get("/map.png", h.mapPNG)
	})

	return r
}

// Router exposes the mux so callers can mount extra routes before serving.
func (s *Server) Router() chi.Router {
	return s.router
}

func (s *Server) ListenAndServe() error {
	return s.server.ListenAndServe()
}

func (s *Server) Shutdown(ctx context.Context) error {
	return s.server.Shutdown(ctx)
}
