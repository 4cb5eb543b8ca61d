package handlers

import (
	"context"
	"log/slog"
	"net/http"
	"strconv"
	"strings"

	"github.com/go-chi/chi/v5"

	"quizarena-backend/internal/middleware"
	"quizarena-backend/internal/models"
)

type Roster interface {
	ListUsers(ctx context.Context) ([]*models.User, error)
	GetUser(ctx context.Context, id int64) (*models.User, error)
	SetScore(ctx context.Context, id int64, score int) error
	DeleteUser(ctx context.Context, id int64) error
}

type QuestionAdmin interface {
	List(ctx context.Context, f models.QuestionFilter) ([]models.Question, error)
	Get(ctx context.Context, id int64) (*models.Question, error)
	Create(ctx context.Context, in models.QuestionInput) (*models.Question, error)
	Update(ctx context.Context, id int64, in models.QuestionInput) (*models.Question, error)
	Delete(ctx context.Context, id int64) error
}

type ImportEnqueuer interface {
	Enqueue(ctx context.Context, requestedBy string) (*models.ImportJob, error)
	Recent(ctx context.Context, limit int) ([]models.ImportJob, error)
}

type AdminHandler struct {
	roster    Roster
	questions QuestionAdmin
	imports   ImportEnqueuer
	render    *Renderer
	logger    *slog.Logger
}

func NewAdminHandler(roster Roster, questions QuestionAdmin, imports ImportEnqueuer, render *Renderer, logger *slog.Logger) *AdminHandler {
	return &AdminHandler{roster: roster, questions: questions, imports: imports, render: render, logger: logger}
}

const questionListLimit = 200

func idParam(r *http.Request) (int64, bool) {
	id, err := strconv.ParseInt(chi.URLParam(r, "id"), 10, 64)
	return id, err == nil && id > 0
}

// ──── Users ────

func (h *AdminHandler) Users(w http.ResponseWriter, r *http.Request) {
	users, err := h.roster.ListUsers(r.Context())
	if err != nil {
		h.render.HandleError(w, r, err)
		return
	}
	h.render.Render(w, r, http.StatusOK, "admin_users", view{Title: "Users", Data: users})
}

func (h *AdminHandler) EditUserPage(w http.ResponseWriter, r *http.Request) {
	id, ok := idParam(r)
	if !ok {
		h.render.NotFound(w, r)
		return
	}
	user, err := h.roster.GetUser(r.Context(), id)
	if err != nil {
		h.render.HandleError(w, r, err)
		return
	}
	h.render.Render(w, r, http.StatusOK, "admin_user_edit", view{Title: "Edit user", Data: user})
}

func (h *AdminHandler) EditUser(w http.ResponseWriter, r *http.Request) {
	id, ok := idParam(r)
	if !ok {
		h.render.NotFound(w, r)
		return
	}
	if err := r.ParseForm(); err != nil {
		h.render.Render(w, r, http.StatusBadRequest, "error", view{Title: "Invalid form"})
		return
	}

	user, err := h.roster.GetUser(r.Context(), id)
	if err != nil {
		h.render.HandleError(w, r, err)
		return
	}

	score, convErr := strconv.Atoi(strings.TrimSpace(r.PostForm.Get("score")))
	if convErr != nil {
		h.render.Render(w, r, http.StatusBadRequest, "admin_user_edit", view{
			Title: "Edit user", Error: "Score must be a whole number",
			Fields: map[string]string{"score": "Score must be a whole number"}, Data: user,
		})
		return
	}

	if err := h.roster.SetScore(r.Context(), id, score); err != nil {
		if status, msg, fields, ok := formError(err); ok {
			h.render.Render(w, r, status, "admin_user_edit", view{Title: "Edit user", Error: msg, Fields: fields, Data: user})
			return
		}
		h.render.HandleError(w, r, err)
		return
	}

	http.Redirect(w, r, "/admin", http.StatusSeeOther)
}

func (h *AdminHandler) DeleteUser(w http.ResponseWriter, r *http.Request) {
	id, ok := idParam(r)
	if !ok {
		h.render.NotFound(w, r)
		return
	}
	if err := h.roster.DeleteUser(r.Context(), id); err != nil {
		h.render.HandleError(w, r, err)
		return
	}
	http.Redirect(w, r, "/admin", http.StatusSeeOther)
}

// ──── Questions ────

func (h *AdminHandler) Questions(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	filter := models.QuestionFilter{
		Search: q.Get("search"),
		Limit:  questionListLimit,
	}
	switch q.Get("origin") {
	case "admin":
		v := true
		filter.AdminCreated = &v
	case "imported":
		v := false
		filter.AdminCreated = &v
	}

	questions, err := h.questions.List(r.Context(), filter)
	if err != nil {
		h.render.HandleError(w, r, err)
		return
	}
	h.render.Render(w, r, http.StatusOK, "admin_questions", view{Title: "Questions", Form: q, Data: questions})
}

type questionForm struct {
	ID           int64
	Action       string
	Category     string
	Difficulty   string
	QuestionText string
	Options      [4]string
	Correct      string // option letter
	Letters      []string
	Difficulties []string
}

func formFromQuestion(q *models.Question) questionForm {
	return questionForm{
		ID:           q.ID,
		Action:       "/admin/questions/" + strconv.FormatInt(q.ID, 10) + "/edit",
		Category:     q.Category,
		Difficulty:   q.Difficulty,
		QuestionText: q.QuestionText,
		Options:      q.Options(),
		Correct:      q.LetterOf(q.CorrectOption),
		Letters:      models.OptionLetters,
		Difficulties: models.Difficulties,
	}
}

func inputFromForm(r *http.Request) models.QuestionInput {
	in := models.QuestionInput{
		Category:     r.PostForm.Get("category"),
		Difficulty:   r.PostForm.Get("difficulty"),
		QuestionText: r.PostForm.Get("question_text"),
		Correct:      r.PostForm.Get("correct_option"),
	}
	for i, l := range models.OptionLetters {
		in.Options[i] = r.PostForm.Get("option_" + l)
	}
	return in
}

func formFromInput(id int64, action string, in models.QuestionInput) questionForm {
	return questionForm{
		ID:           id,
		Action:       action,
		Category:     in.Category,
		Difficulty:   strings.ToLower(in.Difficulty),
		QuestionText: in.QuestionText,
		Options:      in.Options,
		Correct:      strings.ToLower(in.Correct),
		Letters:      models.OptionLetters,
		Difficulties: models.Difficulties,
	}
}

func (h *AdminHandler) NewQuestionPage(w http.ResponseWriter, r *http.Request) {
	form := formFromInput(0, "/admin/questions/new", models.QuestionInput{Difficulty: "easy", Correct: "a"})
	h.render.Render(w, r, http.StatusOK, "admin_question_form", view{Title: "New question", Data: form})
}

func (h *AdminHandler) CreateQuestion(w http.ResponseWriter, r *http.Request) {
	if err := r.ParseForm(); err != nil {
		h.render.Render(w, r, http.StatusBadRequest, "error", view{Title: "Invalid form"})
		return
	}
	in := inputFromForm(r)

	if _, err := h.questions.Create(r.Context(), in); err != nil {
		if status, msg, fields, ok := formError(err); ok {
			h.render.Render(w, r, status, "admin_question_form", view{
				Title: "New question", Error: msg, Fields: fields,
				Data: formFromInput(0, "/admin/questions/new", in),
			})
			return
		}
		h.render.HandleError(w, r, err)
		return
	}
	http.Redirect(w, r, "/admin/questions", http.StatusSeeOther)
}

func (h *AdminHandler) EditQuestionPage(w http.ResponseWriter, r *http.Request) {
	id, ok := idParam(r)
	if !ok {
		h.render.NotFound(w, r)
		return
	}
	q, err := h.questions.Get(r.Context(), id)
	if err != nil {
		h.render.HandleError(w, r, err)
		return
	}
	h.render.Render(w, r, http.StatusOK, "admin_question_form", view{Title: "Edit question", Data: formFromQuestion(q)})
}

func (h *AdminHandler) UpdateQuestion(w http.ResponseWriter, r *http.Request) {
	id, ok := idParam(r)
	if !ok {
		h.render.NotFound(w, r)
		return
	}
	if err := r.ParseForm(); err != nil {
		h.render.Render(w, r, http.StatusBadRequest, "error", view{Title: "Invalid form"})
		return
	}
	in := inputFromForm(r)

	if _, err := h.questions.Update(r.Context(), id, in); err != nil {
		if status, msg, fields, ok := formError(err); ok {
			action := "/admin/questions/" + strconv.FormatInt(id, 10) + "/edit"
			h.render.Render(w, r, status, "admin_question_form", view{
				Title: "Edit question", Error: msg, Fields: fields,
				Data: formFromInput(id, action, in),
			})
			return
		}
		h.render.HandleError(w, r, err)
		return
	}
	http.Redirect(w, r, "/admin/questions", http.StatusSeeOther)
}

func (h *AdminHandler) DeleteQuestion(w http.ResponseWriter, r *http.Request) {
	id, ok := idParam(r)
	if !ok {
		h.render.NotFound(w, r)
		return
	}
	if err := h.questions.Delete(r.Context(), id); err != nil {
		h.render.HandleError(w, r, err)
		return
	}
	http.Redirect(w, r, "/admin/questions", http.StatusSeeOther)
}

// ──── Import ────

const importListLimit = 20

func (h *AdminHandler) ImportPage(w http.ResponseWriter, r *http.Request) {
	h.renderImports(w, r, http.StatusOK, "", "")
}

func (h *AdminHandler) Import(w http.ResponseWriter, r *http.Request) {
	requestedBy := "admin"
	if identity := middleware.GetIdentity(r.Context()); identity != nil {
		requestedBy = identity.Username
	}

	job, err := h.imports.Enqueue(r.Context(), requestedBy)
	if err != nil {
		h.logger.Error("enqueue import failed", "error", err)
		h.renderImports(w, r, http.StatusServiceUnavailable, "", "Could not start the import. Try again shortly.")
		return
	}
	h.renderImports(w, r, http.StatusAccepted, "Import "+job.ID.String()+" queued.", "")
}

func (h *AdminHandler) renderImports(w http.ResponseWriter, r *http.Request, status int, notice, errMsg string) {
	jobs, err := h.imports.Recent(r.Context(), importListLimit)
	if err != nil {
		h.render.HandleError(w, r, err)
		return
	}
	h.render.Render(w, r, status, "admin_import", view{Title: "Import", Notice: notice, Error: errMsg, Data: jobs})
}
