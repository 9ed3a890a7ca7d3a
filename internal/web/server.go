package web

import (
	"context"
	"embed"
	"encoding/json"
	"errors"
	"html/template"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/example/gymbook/internal/auth"
	"github.com/example/gymbook/internal/history"
	"github.com/example/gymbook/internal/scheduler"
)

//go:embed templates/*.html
var fs embed.FS

// Task is the part of scheduler.Task the server needs.
type Task interface {
	Snapshot() scheduler.Snapshot
	Trigger()
}

type Server struct {
	Auth     *auth.Store
	Task     Task
	Gatherer prometheus.Gatherer
	History  history.Store // optional
	Logger   *slog.Logger
}

type tmplData struct {
	Title string
	User  string
	Flash string

	Status   scheduler.Snapshot
	Attempts []history.Attempt
}

func (s *Server) Routes() http.Handler {
	logger := s.Logger
	if logger == nil {
		logger = slog.Default()
	}

	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(requestLogger(logger))
	r.Use(middleware.Recoverer)

	r.Get("/healthz", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte("ok\n"))
	})
	if s.Gatherer != nil {
		r.Handle("/metrics", promhttp.HandlerFor(s.Gatherer, promhttp.HandlerOpts{}))
	}

	r.Get("/login", s.handleLoginForm)
	r.Post("/login", s.handleLogin)
	r.Get("/logout", s.handleLogout)
	r.Post("/logout", s.handleLogout)

	r.Group(func(r chi.Router) {
		r.Use(s.Auth.RequireAuth)
		r.Get("/", s.handleHome)
		r.Get("/status", s.handleStatus)
		r.Post("/run", s.handleRun)
	})

	return r
}

func (s *Server) handleHome(w http.ResponseWriter, r *http.Request) {
	user, _ := auth.UsernameFromContext(r.Context())
	data := tmplData{Title: "Status", User: user, Status: s.Task.Snapshot()}
	if s.History != nil {
		attempts, err := s.History.Recent(r.Context(), 10)
		if err != nil {
			data.Flash = "History unavailable: " + err.Error()
		}
		data.Attempts = attempts
	}
	s.render(w, http.StatusOK, "templates/status.html", data)
}

func (s *Server) handleStatus(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, s.Task.Snapshot())
}

func (s *Server) handleRun(w http.ResponseWriter, r *http.Request) {
	s.Task.Trigger()
	if strings.Contains(r.Header.Get("Accept"), "text/html") {
		http.Redirect(w, r, "/", http.StatusSeeOther)
		return
	}
	writeJSON(w, http.StatusAccepted, map[string]string{"status": "triggered"})
}

func (s *Server) handleLoginForm(w http.ResponseWriter, r *http.Request) {
	data := tmplData{Title: "Login"}
	if !s.Auth.Enabled() {
		data.Flash = "Admin login is not configured."
	}
	s.render(w, http.StatusOK, "templates/login.html", data)
}

func (s *Server) handleLogin(w http.ResponseWriter, r *http.Request) {
	if err := r.ParseForm(); err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}
	username := strings.TrimSpace(r.FormValue("username"))
	password := r.FormValue("password")

	err := s.Auth.Authenticate(username, password)
	switch {
	case errors.Is(err, auth.ErrDisabled):
		s.render(w, http.StatusForbidden, "templates/login.html", tmplData{Title: "Login", Flash: "Admin login is not configured."})
		return
	case err != nil:
		s.render(w, http.StatusUnauthorized, "templates/login.html", tmplData{Title: "Login", Flash: "Invalid username/password"})
		return
	}
	if err := s.Auth.SetSession(w, r, username); err != nil {
		http.Error(w, err.Error(), http.StatusInternalServerError)
		return
	}
	http.Redirect(w, r, "/", http.StatusFound)
}

func (s *Server) handleLogout(w http.ResponseWriter, r *http.Request) {
	s.Auth.ClearSession(w)
	http.Redirect(w, r, "/login", http.StatusFound)
}

func (s *Server) render(w http.ResponseWriter, status int, name string, data tmplData) {
	t, err := template.ParseFS(fs,
		"templates/base.html",
		name,
	)
	if err != nil {
		http.Error(w, "template error: "+err.Error(), http.StatusInternalServerError)
		return
	}
	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	w.WriteHeader(status)
	if err := t.ExecuteTemplate(w, "base", data); err != nil {
		http.Error(w, "render error: "+err.Error(), http.StatusInternalServerError)
	}
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

// requestLogger logs method, path, status and duration.
func requestLogger(logger *slog.Logger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			start := time.Now()
			ww := middleware.NewWrapResponseWriter(w, r.ProtoMajor)
			next.ServeHTTP(ww, r)
			if r.URL.Path == "/healthz" {
				return
			}
			logger.Debug("request",
				"method", r.Method,
				"path", r.URL.Path,
				"status", ww.Status(),
				"duration_ms", time.Since(start).Milliseconds(),
				"request_id", middleware.GetReqID(r.Context()),
			)
		})
	}
}

// Start serves h on addr until ctx is done.
func Start(ctx context.Context, addr string, h http.Handler, logger *slog.Logger) error {
	srv := &http.Server{
		Addr:              addr,
		Handler:           h,
		ReadHeaderTimeout: 5 * time.Second,
	}
	go func() {
		<-ctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		_ = srv.Shutdown(shutdownCtx)
	}()
	logger.Info("status server listening", "addr", addr)
	if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		return err
	}
	return nil
}
