package web

import (
	"embed"
	"fmt"
	"html/template"
	"net/http"
	"time"

	"github.com/adrianmcphee/ninjadb"
	"github.com/adrianmcphee/ninjadb/internal/game"
	"go.uber.org/zap"
)

//go:embed templates/*.html
var templateFS embed.FS

// SessionCookie carries the session token.
const SessionCookie = "session_token"

var pages = []string{
	"index.html",
	"result.html",
	"profile.html",
	"profile_edit.html",
	"profile_delete.html",
	"users.html",
	"user.html",
}

// Options configures the HTTP server.
type Options struct {
	Logger *zap.Logger
	// Metrics serves /metrics when set
	Metrics      http.Handler
	CookieSecure bool
}

// Server serves the guessing game over HTTP
type Server struct {
	game         *game.Service
	store        *ninjadb.Store
	logger       *zap.Logger
	metrics      http.Handler
	cookieSecure bool
	mux          *http.ServeMux
	templates    map[string]*template.Template
}

// NewServer creates a server and registers its routes
func NewServer(svc *game.Service, store *ninjadb.Store, opts Options) (*Server, error) {
	if opts.Logger == nil {
		opts.Logger = zap.NewNop()
	}

	templates := make(map[string]*template.Template, len(pages))
	for _, page := range pages {
		tmpl, err := template.ParseFS(templateFS, "templates/layout.html", "templates/"+page)
		if err != nil {
			return nil, fmt.Errorf("failed to parse template %s: %w", page, err)
		}
		templates[page] = tmpl
	}

	s := &Server{
		game:         svc,
		store:        store,
		logger:       opts.Logger,
		metrics:      opts.Metrics,
		cookieSecure: opts.CookieSecure,
		mux:          http.NewServeMux(),
		templates:    templates,
	}
	s.RegisterRoutes()
	return s, nil
}

// RegisterRoutes registers all routes
func (s *Server) RegisterRoutes() {
	s.mux.HandleFunc("GET /{$}", s.handleIndex)
	s.mux.HandleFunc("POST /login", s.handleLogin)
	s.mux.HandleFunc("GET /logout", s.handleLogout)
	s.mux.HandleFunc("POST /result", s.handleResult)

	s.mux.HandleFunc("GET /profile", s.handleProfile)
	s.mux.HandleFunc("GET /profile/edit", s.handleProfileEditForm)
	s.mux.HandleFunc("POST /profile/edit", s.handleProfileEdit)
	s.mux.HandleFunc("GET /profile/delete", s.handleProfileDeleteForm)
	s.mux.HandleFunc("POST /profile/delete", s.handleProfileDelete)

	s.mux.HandleFunc("GET /users", s.handleUsers)
	s.mux.HandleFunc("GET /user/{id}", s.handleUser)

	s.mux.HandleFunc("GET /healthz", s.handleHealth)
	if s.metrics != nil {
		s.mux.Handle("GET /metrics", s.metrics)
	}
}

// ServeHTTP logs every request and dispatches it
func (s *Server) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	start := time.Now()
	rw := &statusWriter{ResponseWriter: w, status: http.StatusOK}
	s.mux.ServeHTTP(rw, r)
	s.logger.Debug("request",
		zap.String("method", r.Method),
		zap.String("path", r.URL.Path),
		zap.Int("status", rw.status),
		zap.Duration("duration", time.Since(start)))
}

type statusWriter struct {
	http.ResponseWriter
	status int
}

func (w *statusWriter) WriteHeader(status int) {
	w.status = status
	w.ResponseWriter.WriteHeader(status)
}
