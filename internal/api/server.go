// Package api translates HTTP requests into gateway calls and shapes the
// JSON wire contract.
package api

import (
	"net/http"
	"strings"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"go.uber.org/zap"

	"github.com/skoryh/dogtown/internal/app"
)

// Server handles HTTP requests.
type Server struct {
	app     *app.Application
	log     *zap.Logger
	wwwRoot string
}

// NewServer creates the request surface. wwwRoot is the static document
// root.
func NewServer(application *app.Application, log *zap.Logger, wwwRoot string) *Server {
	return &Server{app: application, log: log, wwwRoot: wwwRoot}
}

// allowedMethods maps API paths to their Allow header for 405 responses.
// The maps/{id} route is matched by prefix in allowFor.
var allowedMethods = map[string]string{
	"/api/v1/maps":               "GET, HEAD",
	"/api/v1/game/join":          "POST",
	"/api/v1/game/players":       "GET, HEAD",
	"/api/v1/game/state":         "GET, HEAD",
	"/api/v1/game/player/action": "POST",
	"/api/v1/game/tick":          "POST",
	"/api/v1/game/records":       "GET, HEAD",
}

func allowFor(path string) string {
	if allow, ok := allowedMethods[path]; ok {
		return allow
	}
	if strings.HasPrefix(path, "/api/v1/maps/") {
		return "GET, HEAD"
	}
	return ""
}

// Routes sets up the HTTP routes.
func (s *Server) Routes() http.Handler {
	r := chi.NewRouter()

	r.Use(middleware.RequestID)
	r.Use(s.requestLogger)
	r.Use(middleware.Recoverer)
	r.Use(middleware.Timeout(60 * time.Second))

	r.MethodNotAllowed(s.handleMethodNotAllowed)
	r.NotFound(s.handleNotFound)

	getHead(r, "/api/v1/maps", s.handleListMaps)
	getHead(r, "/api/v1/maps/{id}", s.handleGetMap)
	r.Post("/api/v1/game/join", s.handleJoin)
	getHead(r, "/api/v1/game/players", s.handleGetPlayers)
	getHead(r, "/api/v1/game/state", s.handleGetState)
	r.Post("/api/v1/game/player/action", s.handlePlayerAction)
	r.Post("/api/v1/game/tick", s.handleTick)
	getHead(r, "/api/v1/game/records", s.handleGetRecords)

	return r
}

// getHead registers a handler for both GET and HEAD. The http package
// suppresses response bodies on HEAD automatically.
func getHead(r chi.Router, pattern string, h http.HandlerFunc) {
	r.Get(pattern, h)
	r.Method(http.MethodHead, pattern, h)
}

func (s *Server) handleMethodNotAllowed(w http.ResponseWriter, r *http.Request) {
	if allow := allowFor(r.URL.Path); allow != "" {
		w.Header().Set("Allow", allow)
	}
	s.writeError(w, http.StatusMethodNotAllowed, codeInvalidMethod, "Invalid method")
}

// handleNotFound rejects unknown API paths and hands everything else to
// the static file responder.
func (s *Server) handleNotFound(w http.ResponseWriter, r *http.Request) {
	if strings.HasPrefix(r.URL.Path, "/api/") {
		s.writeError(w, http.StatusBadRequest, codeBadRequest, "Invalid request")
		return
	}
	s.handleStatic(w, r)
}

// requestLogger emits one structured line per request.
func (s *Server) requestLogger(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		ww := middleware.NewWrapResponseWriter(w, r.ProtoMajor)
		start := time.Now()

		next.ServeHTTP(ww, r)

		s.log.Info("request",
			zap.String("method", r.Method),
			zap.String("path", r.URL.Path),
			zap.Int("status", ww.Status()),
			zap.Duration("duration", time.Since(start)),
			zap.String("request_id", middleware.GetReqID(r.Context())),
		)
	})
}
