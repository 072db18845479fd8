package server

import (
	"log"
	"net/http"
	"strings"

	"github.com/stepnetwork/mesh-validator/pkg/config"
	"github.com/stepnetwork/mesh-validator/pkg/database"
	"github.com/stepnetwork/mesh-validator/pkg/orchestrator"
)

// Server bundles the validator's HTTP handlers over its collaborating
// packages.
type Server struct {
	orchestrator *orchestrator.Orchestrator
	triangles    *database.TriangleRepository
	dbClient     *database.Client
	cfg          *config.Config
	logger       *log.Logger
}

// New builds a Server. dbClient is used only by the health probe; all
// triangle persistence reads go through triangles.
func New(cfg *config.Config, orch *orchestrator.Orchestrator, triangles *database.TriangleRepository, dbClient *database.Client, logger *log.Logger) *Server {
	if logger == nil {
		logger = log.New(log.Writer(), "[Server] ", log.LstdFlags)
	}
	return &Server{orchestrator: orch, triangles: triangles, dbClient: dbClient, cfg: cfg, logger: logger}
}

// pathParam extracts the path segment following prefix, trimming a
// trailing slash, matching the manual-parsing idiom used throughout this
// codebase's predecessor for single-resource routes (no router library).
func pathParam(r *http.Request, prefix string) string {
	rest := strings.TrimPrefix(r.URL.Path, prefix)
	return strings.TrimSuffix(rest, "/")
}

// Routes builds the top-level handler, with rate limiting applied to every
// route.
func (s *Server) Routes() http.Handler {
	mux := http.NewServeMux()

	mux.HandleFunc("/proof/submit", s.HandleSubmit)
	mux.HandleFunc("/proof/config", s.HandleConfig)

	mux.HandleFunc("/mesh/triangleAt", s.HandleTriangleAt)
	mux.HandleFunc("/mesh/search", s.HandleSearch)
	mux.HandleFunc("/mesh/nearest", s.HandleNearest)
	mux.HandleFunc("/mesh/stats", s.HandleStats)

	mux.HandleFunc("/mesh/polygon/", func(w http.ResponseWriter, r *http.Request) {
		s.HandlePolygon(w, r, pathParam(r, "/mesh/polygon/"))
	})
	mux.HandleFunc("/mesh/children/", func(w http.ResponseWriter, r *http.Request) {
		s.HandleChildren(w, r, pathParam(r, "/mesh/children/"))
	})
	mux.HandleFunc("/mesh/parent/", func(w http.ResponseWriter, r *http.Request) {
		s.HandleParent(w, r, pathParam(r, "/mesh/parent/"))
	})
	mux.HandleFunc("/mesh/info/", func(w http.ResponseWriter, r *http.Request) {
		s.HandleInfo(w, r, pathParam(r, "/mesh/info/"))
	})

	mux.HandleFunc("/health", s.HandleHealth)

	return NewRateLimitMiddleware(s.cfg.RateLimitRequestsPerSecond, s.cfg.RateLimitBurst)(mux)
}
