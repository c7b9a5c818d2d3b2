// Package web serves the workbench page and its JSON API.
package web

import (
	"context"
	"errors"
	"html/template"
	"net/http"
	"time"

	"github.com/BetterCallFirewall/ssti-master/internal/config"
	"github.com/BetterCallFirewall/ssti-master/internal/logger"
	"github.com/BetterCallFirewall/ssti-master/internal/workbench"
)

// StatePusher is the websocket endpoint of the state hub
type StatePusher interface {
	ServeWS(w http.ResponseWriter, r *http.Request)
}

// Server is the HTTP front of one workbench
type Server struct {
	cfg     config.WebConfig
	wb      *workbench.Workbench
	ws      StatePusher
	metrics http.Handler
	log     logger.Logger

	page       *template.Template
	httpServer *http.Server
}

// NewServer wires the routes. ws and metricsHandler may be nil.
func NewServer(cfg config.WebConfig, wb *workbench.Workbench, ws StatePusher, metricsHandler http.Handler, log logger.Logger) (*Server, error) {
	page, err := parsePage()
	if err != nil {
		return nil, err
	}

	s := &Server{
		cfg:     cfg,
		wb:      wb,
		ws:      ws,
		metrics: metricsHandler,
		log:     log,
		page:    page,
	}

	s.httpServer = &http.Server{
		Addr:              cfg.ListenAddr,
		Handler:           s.Handler(),
		ReadHeaderTimeout: 10 * time.Second,
	}
	return s, nil
}

// Handler returns the router, used directly by tests
func (s *Server) Handler() http.Handler {
	mux := http.NewServeMux()

	mux.HandleFunc("GET /{$}", s.handlePage)
	mux.HandleFunc("GET /healthz", s.handleHealth)

	mux.HandleFunc("GET /api/state", s.handleState)
	mux.HandleFunc("GET /api/catalog", s.handleCatalog)
	mux.HandleFunc("PUT /api/mode", s.handleSetMode)
	mux.HandleFunc("PUT /api/generator", s.handleUpdateGenerator)
	mux.HandleFunc("POST /api/generator/restrictions", s.handleToggleRestriction)
	mux.HandleFunc("PUT /api/auditor", s.handleUpdateAuditor)
	mux.HandleFunc("POST /api/generate", s.handleGenerate)
	mux.HandleFunc("POST /api/audit", s.handleAudit)
	mux.HandleFunc("GET /api/history", s.handleHistory)
	mux.HandleFunc("POST /api/history/{id}/load", s.handleLoadHistory)
	mux.HandleFunc("DELETE /api/history/{id}", s.handleDeleteHistory)
	mux.HandleFunc("POST /api/install/offer", s.handleInstallOffer)
	mux.HandleFunc("POST /api/install/resolve", s.handleInstallResolve)

	if s.ws != nil {
		mux.HandleFunc("GET /ws", s.ws.ServeWS)
	}
	if s.metrics != nil {
		mux.Handle("GET /metrics", s.metrics)
	}

	return s.logRequests(mux)
}

// Start blocks until the server stops
func (s *Server) Start() error {
	s.log.Info("🌐 Web interface listening", "addr", s.cfg.ListenAddr)
	if err := s.httpServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		return err
	}
	return nil
}

func (s *Server) Stop(ctx context.Context) error {
	return s.httpServer.Shutdown(ctx)
}

type statusRecorder struct {
	http.ResponseWriter
	status int
}

func (r *statusRecorder) WriteHeader(code int) {
	r.status = code
	r.ResponseWriter.WriteHeader(code)
}

func (s *Server) logRequests(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		// the upgrader needs the raw writer
		if r.URL.Path == "/ws" {
			next.ServeHTTP(w, r)
			return
		}
		start := time.Now()
		rec := &statusRecorder{ResponseWriter: w, status: http.StatusOK}
		next.ServeHTTP(rec, r)
		s.log.Debug("HTTP request",
			"method", r.Method,
			"path", r.URL.Path,
			"status", rec.status,
			"duration_ms", time.Since(start).Milliseconds(),
		)
	})
}
