// Package server wires the HTTP surface of the chat backend: REST handlers
// for tenants, users, messages, and groups, plus the WebSocket handshake
// that hands authenticated connections to the chat core.
package server

import (
	"context"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
	"github.com/gorilla/websocket"
	"github.com/rs/zerolog"

	"github.com/campuslink/campuslink/internal/auth"
	"github.com/campuslink/campuslink/internal/chat"
	"github.com/campuslink/campuslink/internal/store"
)

// Server holds the wired dependencies behind the HTTP handlers.
type Server struct {
	cfg      Config
	log      zerolog.Logger
	auth     *auth.Authenticator
	tenants  *store.TenantStore
	registry *chat.Registry
	router   *chat.Router
	presence *chat.Presence
	upgrader websocket.Upgrader
}

// New assembles a Server from its collaborators.
func New(cfg Config, logger zerolog.Logger, authenticator *auth.Authenticator,
	tenants *store.TenantStore, registry *chat.Registry) *Server {

	cfg = sanitizeConfig(cfg)
	origins := newOriginPolicy(cfg.AllowedOrigins)
	log := logger.With().Str("component", "server").Logger()

	s := &Server{
		cfg:      cfg,
		log:      log,
		auth:     authenticator,
		tenants:  tenants,
		registry: registry,
		router:   chat.NewRouter(registry, logger),
		presence: chat.NewPresence(registry, logger),
		upgrader: websocket.Upgrader{
			ReadBufferSize:  1024,
			WriteBufferSize: 1024,
			CheckOrigin: func(r *http.Request) bool {
				if origins.check(r) {
					return true
				}
				log.Warn().Str("origin", r.Header.Get("Origin")).
					Msg("blocked websocket upgrade from disallowed origin")
				return false
			},
		},
	}
	return s
}

// Registry exposes the connection registry for shutdown coordination.
func (s *Server) Registry() *chat.Registry {
	return s.registry
}

// Routes builds the chi router with the middleware stack and every
// application route.
func (s *Server) Routes() chi.Router {
	r := chi.NewRouter()

	r.Use(
		middleware.RequestID,
		withCORS(),
		withLogger(s.log),
		middleware.Recoverer,
	)

	r.Get("/", s.handleHealth)
	r.Get("/ws/{userID}", s.handleWebSocket)

	r.Post("/colleges", s.handleCreateCollege)
	r.Post("/colleges/{collegeID}/approve", s.handleApproveCollege)
	r.Post("/college-login", s.handleCollegeLogin)
	r.Post("/login", s.handleLogin)
	r.Post("/register", s.handleRegister)

	r.Group(func(r chi.Router) {
		r.Use(s.withAuth)
		r.Get("/colleges", s.handleListColleges)
		r.Get("/users/me", s.handleCurrentUser)
		r.Get("/users", s.handleListUsers)
		r.Get("/users/{userID}", s.handleGetUser)
		r.Post("/messages", s.handleCreateMessage)
		r.Get("/messages", s.handleListMessages)
		r.Get("/messages/{messageID}", s.handleGetMessage)
		r.Post("/groups", s.handleCreateGroup)
		r.Get("/groups", s.handleListGroups)
		r.Get("/groups/{groupID}", s.handleGetGroup)
		r.Post("/groups/{groupID}/members", s.handleAddGroupMember)
	})

	return r
}

func withCORS() func(http.Handler) http.Handler {
	return cors.Handler(cors.Options{
		AllowedOrigins:   []string{"*"},
		AllowedMethods:   []string{"GET", "POST", "PUT", "DELETE", "OPTIONS"},
		AllowedHeaders:   []string{"Accept", "Authorization", "Content-Type"},
		AllowCredentials: false,
	})
}

func withLogger(logger zerolog.Logger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			ctx := logger.WithContext(r.Context())
			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}

// handleHealth reports that the service is up.
func (s *Server) handleHealth(w http.ResponseWriter, _ *http.Request) {
	respondJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

// CreateServer configures the HTTP server with production timeouts. The
// WebSocket endpoint hijacks its connections, so these timeouts only govern
// the REST surface.
func CreateServer(port string, handler http.Handler) *http.Server {
	return &http.Server{
		Addr:         port,
		Handler:      handler,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 15 * time.Second,
		IdleTimeout:  60 * time.Second,
	}
}

// ShutdownServer gracefully shuts down the HTTP server, waiting for active
// requests up to timeout.
func ShutdownServer(server *http.Server, timeout time.Duration) error {
	ctx, cancel := context.WithTimeout(context.Background(), timeout)
	defer cancel()
	return server.Shutdown(ctx)
}
