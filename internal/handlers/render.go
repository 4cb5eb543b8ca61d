package handlers

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"html/template"
	"io/fs"
	"log/slog"
	"net/http"
	"net/url"

	chimiddleware "github.com/go-chi/chi/v5/middleware"

	"quizarena-backend/internal/middleware"
	"quizarena-backend/internal/models"
	"quizarena-backend/internal/services"
)

// view is what every page template receives.
type view struct {
	Title    string
	Identity *models.Identity
	Notice   string
	Error    string
	Fields   map[string]string
	Form     url.Values
	Data     any
}

var pageNames = []string{
	"login", "register", "start", "dashboard", "result", "review", "history", "stats",
	"admin_users", "admin_user_edit", "admin_questions", "admin_question_form", "admin_import", "error",
}

// Renderer holds one parsed template set per page, each layered on the shared layout.
type Renderer struct {
	pages  map[string]*template.Template
	logger *slog.Logger
}

func NewRenderer(templates fs.FS, logger *slog.Logger) (*Renderer, error) {
	funcs := template.FuncMap{
		"deref": func(s *string) string {
			if s == nil {
				return ""
			}
			return *s
		},
	}

	pages := make(map[string]*template.Template, len(pageNames))
	for _, name := range pageNames {
		t, err := template.New("layout").Funcs(funcs).ParseFS(templates,
			"templates/layout.html", "templates/"+name+".html")
		if err != nil {
			return nil, fmt.Errorf("parse %s template: %w", name, err)
		}
		pages[name] = t
	}
	return &Renderer{pages: pages, logger: logger}, nil
}

// Render executes into a buffer first so a template failure never sends half a page.
func (rd *Renderer) Render(w http.ResponseWriter, r *http.Request, status int, page string, v view) {
	t, ok := rd.pages[page]
	if !ok {
		rd.logger.Error("unknown template", "page", page)
		http.Error(w, "Internal Server Error", http.StatusInternalServerError)
		return
	}
	if v.Identity == nil {
		v.Identity = middleware.GetIdentity(r.Context())
	}

	var buf bytes.Buffer
	if err := t.ExecuteTemplate(&buf, "layout", v); err != nil {
		rd.logger.Error("template execution failed",
			"page", page,
			"error", err,
			"request_id", chimiddleware.GetReqID(r.Context()),
		)
		http.Error(w, "Internal Server Error", http.StatusInternalServerError)
		return
	}

	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	w.WriteHeader(status)
	buf.WriteTo(w)
}

func (rd *Renderer) NotFound(w http.ResponseWriter, r *http.Request) {
	rd.Render(w, r, http.StatusNotFound, "error", view{Title: "Page not found"})
}

// HandleError maps a service error that has no form to re-render: missing rows get
// the 404 page, bad sessions go to login, the rest is logged and gets the 500 page.
func (rd *Renderer) HandleError(w http.ResponseWriter, r *http.Request, err error) {
	var nf *services.NotFoundError
	var unauthorized *services.UnauthorizedError
	switch {
	case errors.As(err, &nf):
		rd.Render(w, r, http.StatusNotFound, "error", view{Title: nf.Message})
	case errors.As(err, &unauthorized):
		http.Redirect(w, r, middleware.LoginPath, http.StatusSeeOther)
	default:
		rd.logger.Error("request failed",
			"method", r.Method,
			"path", r.URL.Path,
			"error", err,
			"request_id", chimiddleware.GetReqID(r.Context()),
		)
		rd.Render(w, r, http.StatusInternalServerError, "error", view{Title: "Something went wrong"})
	}
}

// formError turns validation and conflict errors into an inline message and
// field map. ok is false for any other error.
func formError(err error) (status int, message string, fields map[string]string, ok bool) {
	var verr *services.ValidationError
	var conflict *services.ConflictError
	var unauthorized *services.UnauthorizedError
	switch {
	case errors.As(err, &verr):
		return http.StatusBadRequest, "Please fix the highlighted fields.", verr.Fields, true
	case errors.As(err, &conflict):
		return http.StatusConflict, conflict.Message, nil, true
	case errors.As(err, &unauthorized):
		return http.StatusUnauthorized, unauthorized.Message, nil, true
	}
	return 0, "", nil, false
}

// Shared helpers

func writeJSON(w http.ResponseWriter, status int, data interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(data)
}

func errorResp(code, message string, r *http.Request) models.ErrorResponse {
	return models.ErrorResponse{
		Error: models.APIError{
			Code:      code,
			Message:   message,
			RequestID: chimiddleware.GetReqID(r.Context()),
		},
	}
}
