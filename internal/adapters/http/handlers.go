package web

import (
	"bytes"
	"encoding/json"
	"errors"
	"html/template"
	"log/slog"
	"net/http"
	"path/filepath"
	"strings"
	"time"

	"github.com/gorilla/csrf"
	"github.com/yuin/goldmark"
	"github.com/yuin/goldmark/extension"
	goldmarkHTML "github.com/yuin/goldmark/renderer/html"

	"courseplayer/internal/adapters/http/middleware"
	"courseplayer/internal/application/orchestrators"
)

// mdRenderer is a goldmark instance configured for safe HTML output.
// Raw HTML in markdown input is escaped (WithUnsafe is NOT set).
var mdRenderer = goldmark.New(
	goldmark.WithExtensions(extension.Linkify, extension.Table),
	goldmark.WithRendererOptions(
		goldmarkHTML.WithHardWraps(),
	),
)

// renderMarkdown converts course and lesson bodies to HTML.
func renderMarkdown(md string) template.HTML {
	var buf bytes.Buffer
	if err := mdRenderer.Convert([]byte(md), &buf); err != nil {
		return template.HTML(template.HTMLEscapeString(md))
	}
	return template.HTML(buf.String())
}

// internalError logs the real error and returns a generic message to the client.
func internalError(w http.ResponseWriter, r *http.Request, err error) {
	slog.ErrorContext(r.Context(), "internal_error", "path", r.URL.Path, "error", err.Error())
	http.Error(w, "internal server error", http.StatusInternalServerError)
}

func isHTMLRequest(r *http.Request) bool {
	accept := r.Header.Get("Accept")
	return strings.Contains(accept, "text/html") || strings.Contains(accept, "application/xhtml+xml")
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		slog.Error("json_encode_failed", "error", err.Error())
	}
}

// localRedirect returns next when it is a same-site path, "/" otherwise.
func localRedirect(next string) string {
	if next == "" || !strings.HasPrefix(next, "/") || strings.HasPrefix(next, "//") || strings.HasPrefix(next, "/\\") {
		return "/"
	}
	return next
}

// renderTemplate executes layout.html plus the named page from the templates dir.
func (s *Server) renderTemplate(w http.ResponseWriter, r *http.Request, templateName string, data map[string]any) {
	s.renderTemplateStatus(w, r, http.StatusOK, templateName, data)
}

// renderTemplateStatus is renderTemplate with an explicit status code.
// Nothing is written until the page executes cleanly.
func (s *Server) renderTemplateStatus(w http.ResponseWriter, r *http.Request, status int, templateName string, data map[string]any) {
	sess, loggedIn := middleware.GetSessionFromContext(r.Context())

	funcMap := template.FuncMap{
		"isLoggedIn":     func() bool { return loggedIn },
		"isAdmin":        func() bool { return middleware.IsAdmin(r.Context()) },
		"currentEmail":   func() string { return sess.Email },
		"currentName":    func() string { return sess.DisplayName },
		"csrfField":      func() template.HTML { return csrf.TemplateField(r) },
		"renderMarkdown": renderMarkdown,
		"add":            func(a, b int) int { return a + b },
		"year":           func() int { return s.opts.Now().Year() },
	}

	layoutPath := filepath.Join(s.opts.TemplatesDir, "layout.html")
	pagePath := filepath.Join(s.opts.TemplatesDir, templateName)
	tpl, err := template.New("layout.html").Funcs(funcMap).ParseFiles(layoutPath, pagePath)
	if err != nil {
		internalError(w, r, err)
		return
	}

	var buf bytes.Buffer
	if err := tpl.Execute(&buf, data); err != nil {
		internalError(w, r, err)
		return
	}
	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	w.WriteHeader(status)
	if _, err := buf.WriteTo(w); err != nil {
		slog.WarnContext(r.Context(), "response_write_failed", "error", err.Error())
	}
}

// handleLoginForm handles GET /login
func (s *Server) handleLoginForm(w http.ResponseWriter, r *http.Request) {
	if _, ok := middleware.GetSessionFromContext(r.Context()); ok {
		http.Redirect(w, r, localRedirect(r.URL.Query().Get("next")), http.StatusSeeOther)
		return
	}
	s.renderTemplate(w, r, "login.html", map[string]any{
		"Title": "Log in",
		"Next":  r.URL.Query().Get("next"),
	})
}

// handleLogin handles POST /login
func (s *Server) handleLogin(w http.ResponseWriter, r *http.Request) {
	if err := r.ParseForm(); err != nil {
		http.Error(w, "Invalid form submission", http.StatusBadRequest)
		return
	}
	next := r.FormValue("next")

	result, err := orchestrators.ExecuteLogin(r.Context(), orchestrators.LoginInput{
		Email:    r.FormValue("email"),
		Password: r.FormValue("password"),
		Now:      s.opts.Now(),
	}, orchestrators.LoginDeps{AccountStore: s.stores.Accounts})
	if err != nil {
		status := http.StatusUnauthorized
		if !errors.Is(err, orchestrators.ErrInvalidCredentials) && !errors.Is(err, orchestrators.ErrAccountLocked) {
			internalError(w, r, err)
			return
		}
		if errors.Is(err, orchestrators.ErrAccountLocked) {
			status = http.StatusTooManyRequests
		}
		s.renderTemplateStatus(w, r, status, "login.html", map[string]any{
			"Title": "Log in",
			"Next":  next,
			"Email": r.FormValue("email"),
			"Error": err.Error(),
		})
		return
	}

	token, err := s.sessions.Create(middleware.Session{
		AccountID:   result.AccountID,
		Email:       result.Email,
		DisplayName: result.DisplayName,
		Role:        result.Role,
	})
	if err != nil {
		internalError(w, r, err)
		return
	}
	middleware.SetSessionCookie(w, token, s.opts.Secure, middleware.DefaultSessionTTL)
	http.Redirect(w, r, localRedirect(next), http.StatusSeeOther)
}

// handleLogout handles POST /logout
func (s *Server) handleLogout(w http.ResponseWriter, r *http.Request) {
	if cookie, err := r.Cookie(middleware.SessionCookieName); err == nil {
		s.sessions.Delete(cookie.Value)
	}
	middleware.ClearSessionCookie(w, s.opts.Secure)
	http.Redirect(w, r, "/", http.StatusSeeOther)
}

// handleHealthz handles GET /healthz
func (s *Server) handleHealthz(w http.ResponseWriter, r *http.Request) {
	if s.stores.DB != nil {
		if err := s.stores.DB.PingContext(r.Context()); err != nil {
			slog.ErrorContext(r.Context(), "healthz_db_unreachable", "error", err.Error())
			writeJSON(w, http.StatusServiceUnavailable, map[string]string{"status": "unavailable"})
			return
		}
	}
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok", "version": s.opts.Version})
}

// handlePerf handles GET /admin/perf. ?window= takes a Go duration, default 15m.
func (s *Server) handlePerf(w http.ResponseWriter, r *http.Request) {
	if s.collector == nil {
		http.Error(w, "performance collection disabled", http.StatusNotFound)
		return
	}
	window := 15 * time.Minute
	if v := r.URL.Query().Get("window"); v != "" {
		d, err := time.ParseDuration(v)
		if err != nil || d <= 0 {
			http.Error(w, "window must be a positive duration", http.StatusBadRequest)
			return
		}
		window = d
	}
	writeJSON(w, http.StatusOK, s.collector.Snapshot(s.opts.Now().Add(-window), 10))
}
