// Package server serves a registration form over HTTP. Each browser gets a
// session keyed by a cookie; pages post back to the same URL and follow the
// post/redirect/get pattern on successful navigation.
package server

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"
	gocache "github.com/patrickmn/go-cache"

	"github.com/goliatone/go-formflow/pkg/logging"
	"github.com/goliatone/go-formflow/pkg/model"
	"github.com/goliatone/go-formflow/pkg/phone"
	"github.com/goliatone/go-formflow/pkg/renderers/html"
	"github.com/goliatone/go-formflow/pkg/session"
)

// AssetPrefix is where the bundled stylesheet is served.
const AssetPrefix = "/assets/"

// Defaults for the cookie session store.
const (
	DefaultCookieName = "formflow_session"
	DefaultSessionTTL = 30 * time.Minute
)

// Form actions posted by the page buttons.
const (
	ActionNext     = "next"
	ActionPrevious = "previous"
	ActionSubmit   = "submit"
)

// SessionFactory starts a session for a new visitor.
type SessionFactory func(ctx context.Context) (*session.Session, error)

// Option configures a Server.
type Option func(*Server)

// WithSessionTTL sets how long an idle session is kept.
func WithSessionTTL(ttl time.Duration) Option {
	return func(s *Server) {
		if ttl > 0 {
			s.ttl = ttl
		}
	}
}

// WithCookieName overrides DefaultCookieName.
func WithCookieName(name string) Option {
	return func(s *Server) {
		if name = strings.TrimSpace(name); name != "" {
			s.cookieName = name
		}
	}
}

// WithLogger sets the request logger.
func WithLogger(logger logging.Logger) Option {
	return func(s *Server) {
		if logger != nil {
			s.logger = logger
		}
	}
}

// Server routes form requests to cookie-bound sessions.
type Server struct {
	renderer   *html.Renderer
	newSession SessionFactory
	sessions   *gocache.Cache
	ttl        time.Duration
	cookieName string
	logger     logging.Logger
	router     chi.Router
}

// New builds the server and its routes.
func New(renderer *html.Renderer, factory SessionFactory, opts ...Option) *Server {
	s := &Server{
		renderer:   renderer,
		newSession: factory,
		ttl:        DefaultSessionTTL,
		cookieName: DefaultCookieName,
		logger:     logging.Nop(),
	}
	for _, opt := range opts {
		if opt != nil {
			opt(s)
		}
	}
	s.sessions = gocache.New(s.ttl, s.ttl/2)
	s.sessions.OnEvicted(func(_ string, value any) {
		if sess, ok := value.(*session.Session); ok {
			sess.Close()
		}
	})

	r := chi.NewRouter()
	r.Get("/healthz", func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte("ok"))
	})
	r.Handle(AssetPrefix+"*", http.StripPrefix(AssetPrefix, http.FileServerFS(html.AssetsFS())))
	r.Get("/", s.handlePage)
	r.Post("/", s.handlePost)
	r.Get("/done", s.handleDone)
	r.Post("/reset", s.handleReset)
	s.router = r
	return s
}

// Handler exposes the router.
func (s *Server) Handler() http.Handler { return s.router }

// Close ends every live session.
func (s *Server) Close() {
	for id := range s.sessions.Items() {
		s.sessions.Delete(id)
	}
}

// ListenAndServe serves on addr until ctx is cancelled, then shuts down
// gracefully.
func (s *Server) ListenAndServe(ctx context.Context, addr string) error {
	srv := &http.Server{
		Addr:              addr,
		Handler:           s.router,
		ReadHeaderTimeout: 10 * time.Second,
	}
	errCh := make(chan error, 1)
	go func() {
		s.logger.Info("server: listening", "addr", addr)
		errCh <- srv.ListenAndServe()
	}()

	select {
	case err := <-errCh:
		if errors.Is(err, http.ErrServerClosed) {
			return nil
		}
		return err
	case <-ctx.Done():
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		err := srv.Shutdown(shutdownCtx)
		s.Close()
		return err
	}
}

func (s *Server) handlePage(w http.ResponseWriter, r *http.Request) {
	sess, ok := s.session(w, r)
	if !ok {
		return
	}
	if sess.State() == session.StateSubmitted {
		http.Redirect(w, r, "/done", http.StatusSeeOther)
		return
	}
	s.renderPage(w, r, sess, http.StatusOK)
}

func (s *Server) handlePost(w http.ResponseWriter, r *http.Request) {
	sess, ok := s.session(w, r)
	if !ok {
		return
	}
	if err := r.ParseForm(); err != nil {
		http.Error(w, "invalid form body", http.StatusBadRequest)
		return
	}
	if sess.Event().CloseForm {
		s.renderPage(w, r, sess, http.StatusForbidden)
		return
	}
	ApplyForm(sess, r.PostForm)

	switch r.PostForm.Get("action") {
	case ActionPrevious:
		sess.Previous()
		http.Redirect(w, r, "/", http.StatusSeeOther)
	case ActionSubmit:
		s.submit(w, r, sess)
	default:
		if err := sess.Next(); err != nil {
			s.renderPage(w, r, sess, http.StatusUnprocessableEntity)
			return
		}
		http.Redirect(w, r, "/", http.StatusSeeOther)
	}
}

func (s *Server) submit(w http.ResponseWriter, r *http.Request, sess *session.Session) {
	_, err := sess.Submit(r.Context())
	switch {
	case err == nil:
		http.Redirect(w, r, "/done", http.StatusSeeOther)
	case errors.Is(err, session.ErrAlreadySubmitted):
		http.Redirect(w, r, "/done", http.StatusSeeOther)
	case errors.Is(err, session.ErrNotLastPage):
		http.Redirect(w, r, "/", http.StatusSeeOther)
	case errors.Is(err, session.ErrNavigationGuard), errors.Is(err, session.ErrSubmitInFlight):
		s.renderPage(w, r, sess, http.StatusConflict)
	case errors.Is(err, session.ErrValidation):
		s.renderPage(w, r, sess, http.StatusUnprocessableEntity)
	default:
		s.logger.Warn("server: submit failed", "event_id", sess.Event().ID, "error", err)
		s.renderPage(w, r, sess, http.StatusBadGateway)
	}
}

func (s *Server) handleDone(w http.ResponseWriter, r *http.Request) {
	sess, ok := s.session(w, r)
	if !ok {
		return
	}
	resp := sess.Response()
	if sess.State() != session.StateSubmitted || resp == nil {
		http.Redirect(w, r, "/", http.StatusSeeOther)
		return
	}
	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	if err := s.renderer.RenderConfirmation(w, sess.Event(), resp); err != nil {
		s.logger.Error("server: render confirmation", "error", err)
	}
}

func (s *Server) handleReset(w http.ResponseWriter, r *http.Request) {
	if sess, ok := s.session(w, r); ok {
		sess.Reset()
		http.Redirect(w, r, "/", http.StatusSeeOther)
	}
}

func (s *Server) renderPage(w http.ResponseWriter, r *http.Request, sess *session.Session, status int) {
	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	w.WriteHeader(status)
	if err := s.renderer.RenderPage(w, html.PageFromSession(sess, r.URL.Path)); err != nil {
		s.logger.Error("server: render page", "error", err)
	}
}

// session returns the visitor's session, creating one (and its cookie) when
// the cookie is missing or points at an expired session. Each hit refreshes
// the session's expiry.
func (s *Server) session(w http.ResponseWriter, r *http.Request) (*session.Session, bool) {
	if cookie, err := r.Cookie(s.cookieName); err == nil {
		if value, found := s.sessions.Get(cookie.Value); found {
			sess := value.(*session.Session)
			s.sessions.Set(cookie.Value, sess, gocache.DefaultExpiration)
			return sess, true
		}
	}

	sess, err := s.newSession(r.Context())
	if err != nil {
		s.logger.Error("server: start session", "error", err)
		http.Error(w, fmt.Sprintf("unable to load the form: %v", err), http.StatusBadGateway)
		return nil, false
	}
	id := uuid.NewString()
	s.sessions.Set(id, sess, gocache.DefaultExpiration)
	http.SetCookie(w, &http.Cookie{
		Name:     s.cookieName,
		Value:    id,
		Path:     "/",
		HttpOnly: true,
		SameSite: http.SameSiteLaxMode,
		MaxAge:   int(s.ttl.Seconds()),
	})
	return sess, true
}

// ApplyForm copies posted values for the fields currently shown into sess.
// Unchecked checkboxes are absent from a post and are stored as "false";
// phone fields arrive as a dial code and a local number and are joined.
// Fields revealed by the applied values pick up their posted value too.
func ApplyForm(sess *session.Session, form map[string][]string) {
	shown := make(map[string]bool)
	for _, field := range sess.VisibleFields() {
		shown[field.FieldKey] = true
		applyField(sess, field, form, true)
	}
	for _, field := range sess.VisibleFields() {
		if !shown[field.FieldKey] {
			applyField(sess, field, form, false)
		}
	}
}

func applyField(sess *session.Session, field model.Field, form map[string][]string, rendered bool) {
	key := field.FieldKey
	_, posted := form[key]
	switch {
	case field.Type == model.FieldTypeCheckbox:
		if posted {
			if first(form, key) == "true" {
				sess.UpdateField(key, "true")
			} else {
				sess.UpdateField(key, "false")
			}
		} else if rendered {
			sess.UpdateField(key, "false")
		}
	case !posted:
	case field.Type == model.FieldTypePhone:
		number := strings.TrimSpace(first(form, key))
		if number == "" {
			sess.UpdateField(key, "")
			return
		}
		code := strings.TrimSpace(first(form, key+html.CodeSuffix))
		if code == "" {
			code = phone.DefaultCode
		}
		sess.UpdateField(key, phone.Combine(code, number))
	default:
		sess.UpdateField(key, first(form, key))
	}
}

func first(form map[string][]string, key string) string {
	if values := form[key]; len(values) > 0 {
		return values[0]
	}
	return ""
}
