package handlers

import (
	"context"
	"log/slog"
	"net/http"
	"time"

	"quizarena-backend/internal/middleware"
	"quizarena-backend/internal/models"
)

type Authenticator interface {
	Register(ctx context.Context, req models.RegisterRequest) (*models.User, error)
	Authenticate(ctx context.Context, username, password string) (*models.Identity, error)
	IssueSession(identity *models.Identity) (string, time.Time, error)
	RevokeSession(ctx context.Context, token string) error
}

type AuthHandler struct {
	auth         Authenticator
	render       *Renderer
	secureCookie bool
	logger       *slog.Logger
}

func NewAuthHandler(auth Authenticator, render *Renderer, secureCookie bool, logger *slog.Logger) *AuthHandler {
	return &AuthHandler{auth: auth, render: render, secureCookie: secureCookie, logger: logger}
}

func (h *AuthHandler) RegisterPage(w http.ResponseWriter, r *http.Request) {
	h.render.Render(w, r, http.StatusOK, "register", view{Title: "Register"})
}

func (h *AuthHandler) Register(w http.ResponseWriter, r *http.Request) {
	if err := r.ParseForm(); err != nil {
		h.render.Render(w, r, http.StatusBadRequest, "register", view{Title: "Register", Error: "Invalid form"})
		return
	}

	_, err := h.auth.Register(r.Context(), models.RegisterRequest{
		Username: r.PostForm.Get("username"),
		Email:    r.PostForm.Get("email"),
		Password: r.PostForm.Get("password"),
	})
	if err != nil {
		if status, msg, fields, ok := formError(err); ok {
			h.render.Render(w, r, status, "register", view{
				Title: "Register", Error: msg, Fields: fields, Form: r.PostForm,
			})
			return
		}
		h.render.HandleError(w, r, err)
		return
	}

	http.Redirect(w, r, middleware.LoginPath+"?registered=1", http.StatusSeeOther)
}

func (h *AuthHandler) LoginPage(w http.ResponseWriter, r *http.Request) {
	v := view{Title: "Log in"}
	if r.URL.Query().Get("registered") != "" {
		v.Notice = "Account created. You can log in now."
	}
	h.render.Render(w, r, http.StatusOK, "login", v)
}

func (h *AuthHandler) Login(w http.ResponseWriter, r *http.Request) {
	if err := r.ParseForm(); err != nil {
		h.render.Render(w, r, http.StatusBadRequest, "login", view{Title: "Log in", Error: "Invalid form"})
		return
	}

	identity, err := h.auth.Authenticate(r.Context(), r.PostForm.Get("username"), r.PostForm.Get("password"))
	if err != nil {
		if status, msg, _, ok := formError(err); ok {
			h.render.Render(w, r, status, "login", view{Title: "Log in", Error: msg, Form: r.PostForm})
			return
		}
		h.render.HandleError(w, r, err)
		return
	}

	token, expires, err := h.auth.IssueSession(identity)
	if err != nil {
		h.render.HandleError(w, r, err)
		return
	}
	middleware.SetSessionCookie(w, token, expires, h.secureCookie)

	h.logger.Info("login", "username", identity.Username, "role", identity.Role)
	http.Redirect(w, r, homeFor(identity), http.StatusSeeOther)
}

func (h *AuthHandler) Logout(w http.ResponseWriter, r *http.Request) {
	if cookie, err := r.Cookie(middleware.SessionCookie); err == nil && cookie.Value != "" {
		if err := h.auth.RevokeSession(r.Context(), cookie.Value); err != nil {
			h.logger.Warn("session revoke failed", "error", err)
		}
	}
	middleware.ClearSessionCookie(w, h.secureCookie)
	http.Redirect(w, r, middleware.LoginPath, http.StatusSeeOther)
}

func homeFor(identity *models.Identity) string {
	if identity.IsAdmin() {
		return "/admin"
	}
	return "/auth/start-quiz"
}
