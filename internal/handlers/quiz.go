package handlers

import (
	"context"
	"log/slog"
	"net/http"
	"net/url"
	"strings"

	"quizarena-backend/internal/middleware"
	"quizarena-backend/internal/models"
	"quizarena-backend/internal/services"
)

type QuizEngine interface {
	GradeAndRecord(ctx context.Context, userID int64, answers map[int64]string) (*models.QuizResult, error)
	Review(ctx context.Context, userID int64, sessionID string) ([]models.QuizAttempt, error)
	History(ctx context.Context, userID int64) ([]models.SessionSummary, error)
	Stats(ctx context.Context, userID int64) ([]models.UserQuizStats, error)
	Leaderboard(ctx context.Context, n int) ([]models.LeaderboardEntry, error)
}

type QuestionSampler interface {
	Sample(ctx context.Context, f models.QuestionFilter, n int) ([]models.Question, error)
	Facets(ctx context.Context) (models.Facets, error)
}

type UserReader interface {
	GetUser(ctx context.Context, id int64) (*models.User, error)
}

type QuizHandler struct {
	quiz      QuizEngine
	questions QuestionSampler
	users     UserReader
	render    *Renderer
	quizSize  int
	logger    *slog.Logger
}

func NewQuizHandler(quiz QuizEngine, questions QuestionSampler, users UserReader, render *Renderer, quizSize int, logger *slog.Logger) *QuizHandler {
	return &QuizHandler{
		quiz:      quiz,
		questions: questions,
		users:     users,
		render:    render,
		quizSize:  quizSize,
		logger:    logger,
	}
}

type startPage struct {
	User    *models.User
	Facets  models.Facets
	Leaders []models.LeaderboardEntry
}

func (h *QuizHandler) StartPage(w http.ResponseWriter, r *http.Request) {
	identity := middleware.GetIdentity(r.Context())

	user, err := h.users.GetUser(r.Context(), identity.ID)
	if err != nil {
		h.render.HandleError(w, r, err)
		return
	}
	facets, err := h.questions.Facets(r.Context())
	if err != nil {
		h.render.HandleError(w, r, err)
		return
	}
	leaders, err := h.quiz.Leaderboard(r.Context(), 5)
	if err != nil {
		h.render.HandleError(w, r, err)
		return
	}

	h.render.Render(w, r, http.StatusOK, "start", view{
		Title: "Start a quiz",
		Data:  startPage{User: user, Facets: facets, Leaders: leaders},
	})
}

// StartQuiz turns the category/difficulty choice into a dashboard URL.
func (h *QuizHandler) StartQuiz(w http.ResponseWriter, r *http.Request) {
	if err := r.ParseForm(); err != nil {
		http.Redirect(w, r, "/auth/start-quiz", http.StatusSeeOther)
		return
	}
	q := url.Values{}
	if c := strings.TrimSpace(r.PostForm.Get("category")); c != "" {
		q.Set("category", c)
	}
	if d := strings.TrimSpace(r.PostForm.Get("difficulty")); d != "" {
		q.Set("difficulty", d)
	}
	target := "/auth/dashboard"
	if len(q) > 0 {
		target += "?" + q.Encode()
	}
	http.Redirect(w, r, target, http.StatusSeeOther)
}

type dashboardPage struct {
	Questions []models.Question
	Letters   []string
}

// Dashboard serves a random batch of questions for the chosen filter.
func (h *QuizHandler) Dashboard(w http.ResponseWriter, r *http.Request) {
	filter := models.QuestionFilter{
		Category:   r.URL.Query().Get("category"),
		Difficulty: r.URL.Query().Get("difficulty"),
	}

	questions, err := h.questions.Sample(r.Context(), filter, h.quizSize)
	if err != nil {
		h.render.HandleError(w, r, err)
		return
	}

	h.render.Render(w, r, http.StatusOK, "dashboard", view{
		Title: "Quiz",
		Data:  dashboardPage{Questions: questions, Letters: models.OptionLetters},
	})
}

func (h *QuizHandler) Submit(w http.ResponseWriter, r *http.Request) {
	if err := r.ParseForm(); err != nil {
		h.render.Render(w, r, http.StatusBadRequest, "error", view{Title: "Invalid submission"})
		return
	}
	identity := middleware.GetIdentity(r.Context())

	result, err := h.quiz.GradeAndRecord(r.Context(), identity.ID, services.ParseAnswers(r.PostForm))
	if err != nil {
		h.render.HandleError(w, r, err)
		return
	}

	h.render.Render(w, r, http.StatusOK, "result", view{Title: "Result", Data: result})
}

func (h *QuizHandler) Review(w http.ResponseWriter, r *http.Request) {
	identity := middleware.GetIdentity(r.Context())

	attempts, err := h.quiz.Review(r.Context(), identity.ID, r.URL.Query().Get("session_id"))
	if err != nil {
		h.render.HandleError(w, r, err)
		return
	}

	h.render.Render(w, r, http.StatusOK, "review", view{Title: "Review", Data: attempts})
}

func (h *QuizHandler) History(w http.ResponseWriter, r *http.Request) {
	identity := middleware.GetIdentity(r.Context())

	sessions, err := h.quiz.History(r.Context(), identity.ID)
	if err != nil {
		h.render.HandleError(w, r, err)
		return
	}

	h.render.Render(w, r, http.StatusOK, "history", view{Title: "History", Data: sessions})
}

func (h *QuizHandler) Stats(w http.ResponseWriter, r *http.Request) {
	identity := middleware.GetIdentity(r.Context())

	stats, err := h.quiz.Stats(r.Context(), identity.ID)
	if err != nil {
		h.render.HandleError(w, r, err)
		return
	}

	h.render.Render(w, r, http.StatusOK, "stats", view{Title: "Stats", Data: stats})
}

// Leaderboard is the JSON feed behind the live scoreboard.
func (h *QuizHandler) Leaderboard(w http.ResponseWriter, r *http.Request) {
	entries, err := h.quiz.Leaderboard(r.Context(), services.LeaderboardSize)
	if err != nil {
		h.logger.Error("leaderboard read failed", "error", err)
		writeJSON(w, http.StatusInternalServerError, errorResp("INTERNAL_ERROR", "An unexpected error occurred", r))
		return
	}
	writeJSON(w, http.StatusOK, models.LeaderboardUpdate{Entries: entries})
}
