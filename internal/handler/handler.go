package handler

import (
	"encoding/json"
	"errors"
	"go-pages-app/internal/data"
	"go-pages-app/internal/logger"
	"go-pages-app/internal/middleware"
	"go-pages-app/internal/service"
	"go-pages-app/internal/session"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"
)

// Renderer renders a named page template with the shared layout and writes it with
// the given status code. A zero status means 200.
type Renderer interface {
	Render(w http.ResponseWriter, r *http.Request, status int, name string, data map[string]interface{}) error
}

// base holds what every HTML handler needs.
type base struct {
	view     Renderer
	sessions session.Manager
	log      logger.Logger
}

func (b *base) render(w http.ResponseWriter, r *http.Request, name string, data map[string]interface{}) *middleware.AppError {
	return b.renderStatus(w, r, http.StatusOK, name, data)
}

// renderStatus renders a page with a non-200 status. Handlers must not call
// w.WriteHeader themselves: the session is committed with the first header write,
// and the flashes shown on the page are popped during rendering.
func (b *base) renderStatus(w http.ResponseWriter, r *http.Request, status int, name string, data map[string]interface{}) *middleware.AppError {
	if err := b.view.Render(w, r, status, name, data); err != nil {
		return &middleware.AppError{Error: err, Message: "Failed to render page", Code: http.StatusInternalServerError}
	}
	return nil
}

func (b *base) flash(r *http.Request, level, message string) {
	session.AddFlash(r.Context(), b.sessions, level, message)
}

func (b *base) redirect(w http.ResponseWriter, r *http.Request, level, message, to string) *middleware.AppError {
	if message != "" {
		b.flash(r, level, message)
	}
	http.Redirect(w, r, to, http.StatusSeeOther)
	return nil
}

// appError maps service and store errors to an HTTP error page.
func appError(err error, notFound string) *middleware.AppError {
	switch {
	case errors.Is(err, data.ErrNotFound):
		return &middleware.AppError{Error: err, Message: notFound, Code: http.StatusNotFound}
	case errors.Is(err, service.ErrPermissionDenied):
		return &middleware.AppError{Error: err, Message: "You are not allowed to do that.", Code: http.StatusForbidden}
	case errors.Is(err, service.ErrUnauthenticated):
		return &middleware.AppError{Error: err, Message: "Please log in first.", Code: http.StatusUnauthorized}
	}
	return &middleware.AppError{Error: err, Message: "Something went wrong", Code: http.StatusInternalServerError}
}

// idParam parses a positive integer URL parameter.
func idParam(r *http.Request, name string) (int64, *middleware.AppError) {
	id, err := strconv.ParseInt(chi.URLParam(r, name), 10, 64)
	if err != nil || id < 1 {
		return 0, &middleware.AppError{Error: err, Message: "Page not found", Code: http.StatusNotFound}
	}
	return id, nil
}

// validationMessage returns the user-facing text of a validation error.
func validationMessage(err error) (string, bool) {
	var v *service.ValidationError
	if errors.As(err, &v) {
		return v.Message, true
	}
	return "", false
}

func writeJSON(w http.ResponseWriter, status int, v interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, status int, message string) {
	writeJSON(w, status, map[string]string{"error": message})
}

// TemplateDefaults supplies the current caller and pending flash messages to every template.
func TemplateDefaults(sm session.Manager) func(r *http.Request) map[string]interface{} {
	return func(r *http.Request) map[string]interface{} {
		return map[string]interface{}{
			"Caller":  middleware.GetCaller(r.Context()),
			"Flashes": session.PopFlashes(r.Context(), sm),
		}
	}
}
