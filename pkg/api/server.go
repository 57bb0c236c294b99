package api

import (
	"net/http"
	"time"

	"github.com/gorilla/mux"

	"github.com/platinummonkey/capsule/pkg/auth"
	"github.com/platinummonkey/capsule/pkg/httputil"
	"github.com/platinummonkey/capsule/pkg/memories"
	"github.com/platinummonkey/capsule/pkg/middleware"
	"github.com/platinummonkey/capsule/pkg/observability"
	"github.com/platinummonkey/capsule/pkg/storage"
	"github.com/platinummonkey/capsule/pkg/upload"
)

// Server hosts the capsule HTTP API
type Server struct {
	router  *mux.Router
	logger  *observability.Logger
	metrics *observability.Metrics

	authHandlers     *AuthHandlers
	uploadHandlers   *UploadHandlers
	memoriesHandlers *MemoriesHandlers

	requiredAuth *middleware.AuthMiddleware
	optionalAuth *middleware.AuthMiddleware
	rateLimit    *middleware.RateLimitMiddleware

	allowedOrigins []string
}

// ServerConfig carries the collaborators the server routes to. RateLimit
// may be nil, in which case login requests are not rate limited.
type ServerConfig struct {
	Logger         *observability.Logger
	Metrics        *observability.Metrics
	AuthService    *auth.Service
	Codec          *auth.Codec
	Pipeline       *upload.Pipeline
	Blobs          storage.BlobStore
	Memories       *memories.Service
	RateLimit      *middleware.RateLimitMiddleware
	AllowedOrigins []string
}

// NewServer creates a new API server and registers all routes
func NewServer(cfg ServerConfig) *Server {
	s := &Server{
		router:           mux.NewRouter(),
		logger:           cfg.Logger,
		metrics:          cfg.Metrics,
		authHandlers:     NewAuthHandlers(cfg.AuthService, cfg.Metrics, cfg.Logger),
		uploadHandlers:   NewUploadHandlers(cfg.Pipeline, cfg.Blobs, cfg.Metrics, cfg.Logger),
		memoriesHandlers: NewMemoriesHandlers(cfg.Memories, cfg.Logger),
		requiredAuth:     middleware.NewAuthMiddleware(cfg.Codec, false),
		optionalAuth:     middleware.NewAuthMiddleware(cfg.Codec, true),
		rateLimit:        cfg.RateLimit,
		allowedOrigins:   cfg.AllowedOrigins,
	}
	s.setupRoutes()
	return s
}

func (s *Server) setupRoutes() {
	register := http.HandlerFunc(s.authHandlers.register)
	if s.rateLimit != nil {
		s.router.Handle("/register", s.rateLimit.Handler(register)).Methods("POST")
	} else {
		s.router.Handle("/register", register).Methods("POST")
	}

	// Serving uploaded assets needs no session; keys are unguessable UUIDs
	s.router.Handle("/upload",
		s.requiredAuth.Handler(http.HandlerFunc(s.uploadHandlers.upload))).Methods("POST")
	s.router.HandleFunc("/uploads/{key}", s.uploadHandlers.serve).Methods("GET")

	s.router.Handle("/memories",
		s.requiredAuth.Handler(http.HandlerFunc(s.memoriesHandlers.list))).Methods("GET")
	s.router.Handle("/memories",
		s.requiredAuth.Handler(http.HandlerFunc(s.memoriesHandlers.create))).Methods("POST")
	// Single-memory reads allow anonymous access so public memories can be
	// shared by link
	s.router.Handle("/memories/{id}",
		s.optionalAuth.Handler(http.HandlerFunc(s.memoriesHandlers.get))).Methods("GET")
	s.router.Handle("/memories/{id}",
		s.requiredAuth.Handler(http.HandlerFunc(s.memoriesHandlers.update))).Methods("PUT")
	s.router.Handle("/memories/{id}",
		s.requiredAuth.Handler(http.HandlerFunc(s.memoriesHandlers.delete))).Methods("DELETE")
}

// Router returns the underlying mux router, mostly for tests
func (s *Server) Router() *mux.Router {
	return s.router
}

// Handler returns the fully wrapped handler: request IDs, recovery,
// logging, CORS, and per-route metrics around the router.
func (s *Server) Handler() http.Handler {
	var h http.Handler = s.router
	h = s.metricsMiddleware(h)
	h = httputil.CORSMiddleware(s.allowedOrigins)(h)
	h = httputil.LoggingMiddleware(h)
	h = httputil.RecoveryMiddleware(h)
	h = httputil.RequestIDMiddleware(h)
	return h
}

// metricsMiddleware records request counts and latency per route template,
// so path parameters do not explode the label space.
func (s *Server) metricsMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		rec := &statusRecorder{ResponseWriter: w, status: http.StatusOK}
		next.ServeHTTP(rec, r)

		path := r.URL.Path
		var match mux.RouteMatch
		if s.router.Match(r, &match) && match.Route != nil {
			if tmpl, err := match.Route.GetPathTemplate(); err == nil {
				path = tmpl
			}
		}
		s.metrics.ObserveHTTPRequest(r.Method, path, rec.status, time.Since(start))
	})
}

type statusRecorder struct {
	http.ResponseWriter
	status int
}

func (r *statusRecorder) WriteHeader(code int) {
	r.status = code
	r.ResponseWriter.WriteHeader(code)
}
