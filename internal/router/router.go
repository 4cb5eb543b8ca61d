package router

import (
	"fmt"
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"
	chimiddleware "github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"

	"quizarena-backend/internal/handlers"
	"quizarena-backend/internal/middleware"
	"quizarena-backend/internal/websocket"
)

type Options struct {
	Resolver      middleware.SessionResolver
	Renderer      *handlers.Renderer
	AuthHandler   *handlers.AuthHandler
	QuizHandler   *handlers.QuizHandler
	AdminHandler  *handlers.AdminHandler
	Hub           *websocket.Hub
	AuthLimiter   *middleware.RateLimiter
	AllowedOrigin string
	SecureCookie  bool
	Logger        *slog.Logger
}

func New(o Options) http.Handler {
	r := chi.NewRouter()

	// Global middleware
	r.Use(chimiddleware.RequestID)
	r.Use(chimiddleware.RealIP)
	r.Use(middleware.RequestLogger(o.Logger))
	r.Use(chimiddleware.Recoverer)

	r.NotFound(o.Renderer.NotFound)

	sessionAuth := middleware.SessionAuth(o.Resolver, o.SecureCookie)

	// Health check
	r.Get("/health", func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		fmt.Fprintf(w, `{"status":"ok","websockets":%d}`, o.Hub.ConnectionCount())
	})

	r.Get("/", func(w http.ResponseWriter, r *http.Request) {
		http.Redirect(w, r, middleware.LoginPath, http.StatusSeeOther)
	})

	// ──── Auth Routes ────
	r.Route("/auth", func(r chi.Router) {
		r.Group(func(r chi.Router) {
			r.Use(o.AuthLimiter.Middleware)
			r.Get("/register", o.AuthHandler.RegisterPage)
			r.Post("/register", o.AuthHandler.Register)
			r.Get("/login", o.AuthHandler.LoginPage)
			r.Post("/login", o.AuthHandler.Login)
		})
		r.Post("/logout", o.AuthHandler.Logout)
		r.Get("/logout", o.AuthHandler.Logout)

		// ──── Player pages ────
		r.Group(func(r chi.Router) {
			r.Use(sessionAuth)
			r.Use(middleware.RequireUser)
			r.Get("/start-quiz", o.QuizHandler.StartPage)
			r.Post("/start-quiz", o.QuizHandler.StartQuiz)
			r.Get("/dashboard", o.QuizHandler.Dashboard)
			r.Post("/submit-quiz", o.QuizHandler.Submit)
			r.Get("/review-quiz", o.QuizHandler.Review)
			r.Get("/history", o.QuizHandler.History)
			r.Get("/stats", o.QuizHandler.Stats)
		})
	})

	// ──── Admin Routes ────
	r.Route("/admin", func(r chi.Router) {
		r.Use(sessionAuth)
		r.Use(middleware.RequireAdmin)

		r.Get("/", o.AdminHandler.Users)
		r.Route("/users/{id}", func(r chi.Router) {
			r.Get("/edit", o.AdminHandler.EditUserPage)
			r.Post("/edit", o.AdminHandler.EditUser)
			r.Post("/delete", o.AdminHandler.DeleteUser)
		})

		r.Route("/questions", func(r chi.Router) {
			r.Get("/", o.AdminHandler.Questions)
			r.Get("/new", o.AdminHandler.NewQuestionPage)
			r.Post("/new", o.AdminHandler.CreateQuestion)
			r.Get("/{id}/edit", o.AdminHandler.EditQuestionPage)
			r.Post("/{id}/edit", o.AdminHandler.UpdateQuestion)
			r.Post("/{id}/delete", o.AdminHandler.DeleteQuestion)
		})

		r.Get("/import", o.AdminHandler.ImportPage)
		r.Post("/import", o.AdminHandler.Import)
	})

	// ──── JSON + live feed ────
	r.Route("/api/v1", func(r chi.Router) {
		r.Use(cors.Handler(cors.Options{
			AllowedOrigins:   []string{o.AllowedOrigin},
			AllowedMethods:   []string{"GET", "OPTIONS"},
			AllowedHeaders:   []string{"Accept", "Content-Type"},
			AllowCredentials: true,
			MaxAge:           300,
		}))

		r.With(sessionAuth).Get("/leaderboard", o.QuizHandler.Leaderboard)

		// The hub authenticates the session cookie itself.
		r.Get("/ws", o.Hub.HandleWebSocket)
	})

	return r
}
