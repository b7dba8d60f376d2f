// Package server provides the HTTP server and routing for the Market Confidence API.
package server

import (
	"context"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
	"github.com/rs/zerolog"

	"github.com/aristath/market-confidence/internal/config"
	"github.com/aristath/market-confidence/internal/di"
	chartshandlers "github.com/aristath/market-confidence/internal/modules/charts/handlers"
	eventshandlers "github.com/aristath/market-confidence/internal/modules/events/handlers"
	markethandlers "github.com/aristath/market-confidence/internal/modules/market/handlers"
	portfoliohandlers "github.com/aristath/market-confidence/internal/modules/portfolio/handlers"
	simulationhandlers "github.com/aristath/market-confidence/internal/modules/simulation/handlers"
)

// requestTimeout bounds every non-websocket request
const requestTimeout = 60 * time.Second

// Config holds server configuration
type Config struct {
	Log       zerolog.Logger
	Config    *config.Config
	Container *di.Container // DI container with all services
	Jobs      *di.JobInstances
	Port      int
	DevMode   bool
}

// Server represents the HTTP server
type Server struct {
	router         *chi.Mux
	server         *http.Server
	log            zerolog.Logger
	cfg            *config.Config
	port           int
	container      *di.Container
	systemHandlers *SystemHandlers
}

// New creates a new HTTP server
func New(cfg Config) *Server {
	s := &Server{
		router:         chi.NewRouter(),
		log:            cfg.Log.With().Str("component", "server").Logger(),
		cfg:            cfg.Config,
		port:           cfg.Port,
		container:      cfg.Container,
		systemHandlers: NewSystemHandlers(cfg.Log, cfg.Container, cfg.Jobs),
	}

	s.setupMiddleware(cfg.DevMode)
	s.setupRoutes()

	// No WriteTimeout: it would also apply to hijacked websocket connections.
	// Plain requests are bounded by the timeout middleware instead.
	s.server = &http.Server{
		Addr:        fmt.Sprintf(":%d", cfg.Port),
		Handler:     s.router,
		ReadTimeout: 15 * time.Second,
		IdleTimeout: 60 * time.Second,
	}

	return s
}

// Handler returns the root HTTP handler
func (s *Server) Handler() http.Handler {
	return s.router
}

// setupMiddleware configures middleware
func (s *Server) setupMiddleware(devMode bool) {
	// Recovery from panics
	s.router.Use(middleware.Recoverer)

	// Request ID
	s.router.Use(middleware.RequestID)

	// Real IP
	s.router.Use(middleware.RealIP)

	// Logging
	s.router.Use(s.loggingMiddleware)

	// Timeout
	s.router.Use(timeoutUnlessWebSocket(requestTimeout))

	// CORS
	s.router.Use(cors.Handler(cors.Options{
		AllowedOrigins:   s.cfg.CORSAllowedOrigins,
		AllowedMethods:   []string{"GET", "POST", "PUT", "DELETE", "OPTIONS"},
		AllowedHeaders:   []string{"Accept", "Authorization", "Content-Type"},
		ExposedHeaders:   []string{"Link"},
		AllowCredentials: true,
		MaxAge:           300,
	}))

	// Compress responses
	if !devMode {
		s.router.Use(middleware.Compress(5))
	}
}

// setupRoutes configures all routes
func (s *Server) setupRoutes() {
	s.router.Get("/", s.handleRoot)
	s.router.Get("/health", s.handleHealth)

	marketHandler := markethandlers.NewHandler(s.container.Catalog, s.container.YahooClient, s.log)
	eventsHandler := eventshandlers.NewHandler(s.container.EventAnalyzer, s.log)
	portfolioHandler := portfoliohandlers.NewHandler(s.container.PortfolioService, s.log)
	chartsHandler := chartshandlers.NewHandler(s.container.ChartsService, s.log)
	simulationHandler := simulationhandlers.NewHandler(
		s.container.SimulationService,
		websocketOriginPatterns(s.cfg.CORSAllowedOrigins),
		s.log,
	)

	s.router.Route("/api", func(r chi.Router) {
		marketHandler.RegisterRoutes(r)
		eventsHandler.RegisterRoutes(r)
		chartsHandler.RegisterRoutes(r)

		// /event-simulation is static and wins over /{id}
		r.Route("/portfolios", func(r chi.Router) {
			simulationHandler.RegisterRoutes(r)
			portfolioHandler.RegisterRoutes(r)
		})

		r.Route("/system", s.systemHandlers.RegisterRoutes)
	})
}

// Start starts the HTTP server
func (s *Server) Start() error {
	s.log.Info().Int("port", s.port).Msg("Starting HTTP server")
	return s.server.ListenAndServe()
}

// Shutdown gracefully shuts down the server
func (s *Server) Shutdown(ctx context.Context) error {
	s.log.Info().Msg("Shutting down HTTP server")
	return s.server.Shutdown(ctx)
}

// loggingMiddleware logs HTTP requests
func (s *Server) loggingMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()

		ww := middleware.NewWrapResponseWriter(w, r.ProtoMajor)
		next.ServeHTTP(ww, r)

		s.log.Info().
			Str("method", r.Method).
			Str("path", r.URL.Path).
			Int("status", ww.Status()).
			Int("bytes", ww.BytesWritten()).
			Dur("duration_ms", time.Since(start)).
			Str("request_id", middleware.GetReqID(r.Context())).
			Msg("HTTP request")
	})
}

// timeoutUnlessWebSocket applies middleware.Timeout to everything but websocket upgrades,
// which carry their own deadline.
func timeoutUnlessWebSocket(timeout time.Duration) func(http.Handler) http.Handler {
	limit := middleware.Timeout(timeout)
	return func(next http.Handler) http.Handler {
		limited := limit(next)
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if isWebSocketUpgrade(r) {
				next.ServeHTTP(w, r)
				return
			}
			limited.ServeHTTP(w, r)
		})
	}
}

func isWebSocketUpgrade(r *http.Request) bool {
	return strings.EqualFold(r.Header.Get("Upgrade"), "websocket")
}

// websocketOriginPatterns turns CORS origins into host patterns for websocket.Accept.
// A "*" origin allows every host.
func websocketOriginPatterns(origins []string) []string {
	patterns := make([]string, 0, len(origins))
	for _, origin := range origins {
		origin = strings.TrimSpace(origin)
		if origin == "" {
			continue
		}
		if i := strings.Index(origin, "://"); i >= 0 {
			origin = origin[i+3:]
		}
		patterns = append(patterns, strings.TrimSuffix(origin, "/"))
	}
	return patterns
}
