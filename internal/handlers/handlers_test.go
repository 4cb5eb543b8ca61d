package handlers

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"net/url"
	"strings"
	"testing"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"

	"quizarena-backend/internal/middleware"
	"quizarena-backend/internal/models"
	"quizarena-backend/internal/services"
	"quizarena-backend/web"
)

// ─── Helpers ───

func discardLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func newTestRenderer(t *testing.T) *Renderer {
	t.Helper()
	rd, err := NewRenderer(web.Templates, discardLogger())
	if err != nil {
		t.Fatalf("NewRenderer: %v", err)
	}
	return rd
}

func formRequest(method, target string, form url.Values) *http.Request {
	req := httptest.NewRequest(method, target, strings.NewReader(form.Encode()))
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
	return req
}

func asUser(req *http.Request, id int64, name string) *http.Request {
	identity := &models.Identity{ID: id, Username: name, Role: models.RoleUser}
	return req.WithContext(middleware.WithIdentity(req.Context(), identity))
}

func asAdmin(req *http.Request) *http.Request {
	identity := &models.Identity{ID: 1, Username: "root", Role: models.RoleAdmin}
	return req.WithContext(middleware.WithIdentity(req.Context(), identity))
}

func withURLParam(req *http.Request, key, value string) *http.Request {
	rctx := chi.NewRouteContext()
	rctx.URLParams.Add(key, value)
	return req.WithContext(context.WithValue(req.Context(), chi.RouteCtxKey, rctx))
}

// ─── Stubs ───

type stubAuth struct {
	registerErr error
	identity    *models.Identity
	authErr     error
	revoked     []string
}

func (s *stubAuth) Register(ctx context.Context, req models.RegisterRequest) (*models.User, error) {
	if s.registerErr != nil {
		return nil, s.registerErr
	}
	return &models.User{ID: 7, Username: req.Username, Email: req.Email}, nil
}

func (s *stubAuth) Authenticate(ctx context.Context, username, password string) (*models.Identity, error) {
	if s.authErr != nil {
		return nil, s.authErr
	}
	return s.identity, nil
}

func (s *stubAuth) IssueSession(identity *models.Identity) (string, time.Time, error) {
	return "signed-token", time.Now().Add(time.Hour), nil
}

func (s *stubAuth) RevokeSession(ctx context.Context, token string) error {
	s.revoked = append(s.revoked, token)
	return nil
}

type stubQuiz struct {
	gotUser    int64
	gotAnswers map[int64]string
	result     *models.QuizResult
	review     []models.QuizAttempt
	reviewErr  error
	leaders    []models.LeaderboardEntry
}

func (s *stubQuiz) GradeAndRecord(ctx context.Context, userID int64, answers map[int64]string) (*models.QuizResult, error) {
	s.gotUser = userID
	s.gotAnswers = answers
	return s.result, nil
}

func (s *stubQuiz) Review(ctx context.Context, userID int64, sessionID string) ([]models.QuizAttempt, error) {
	return s.review, s.reviewErr
}

func (s *stubQuiz) History(ctx context.Context, userID int64) ([]models.SessionSummary, error) {
	return nil, nil
}

func (s *stubQuiz) Stats(ctx context.Context, userID int64) ([]models.UserQuizStats, error) {
	return nil, nil
}

func (s *stubQuiz) Leaderboard(ctx context.Context, n int) ([]models.LeaderboardEntry, error) {
	if len(s.leaders) > n {
		return s.leaders[:n], nil
	}
	return s.leaders, nil
}

type stubSampler struct {
	questions []models.Question
	gotFilter models.QuestionFilter
}

func (s *stubSampler) Sample(ctx context.Context, f models.QuestionFilter, n int) ([]models.Question, error) {
	s.gotFilter = f
	return s.questions, nil
}

func (s *stubSampler) Facets(ctx context.Context) (models.Facets, error) {
	return models.Facets{Categories: []string{"Science"}, Difficulties: []string{"easy"}}, nil
}

type stubRoster struct {
	users   map[int64]*models.User
	deleted []int64
	scores  map[int64]int
}

func (s *stubRoster) ListUsers(ctx context.Context) ([]*models.User, error) {
	var out []*models.User
	for _, u := range s.users {
		out = append(out, u)
	}
	return out, nil
}

func (s *stubRoster) GetUser(ctx context.Context, id int64) (*models.User, error) {
	u, ok := s.users[id]
	if !ok {
		return nil, &services.NotFoundError{Message: "User not found"}
	}
	return u, nil
}

func (s *stubRoster) SetScore(ctx context.Context, id int64, score int) error {
	if score < 0 {
		return &services.ValidationError{Fields: map[string]string{"score": "Score cannot be negative"}}
	}
	if s.scores == nil {
		s.scores = map[int64]int{}
	}
	s.scores[id] = score
	return nil
}

func (s *stubRoster) DeleteUser(ctx context.Context, id int64) error {
	if _, ok := s.users[id]; !ok {
		return &services.NotFoundError{Message: "User not found"}
	}
	s.deleted = append(s.deleted, id)
	return nil
}

type stubQuestionAdmin struct {
	gotFilter models.QuestionFilter
	created   []models.QuestionInput
	createErr error
	byID      map[int64]*models.Question
	deleted   []int64
}

func (s *stubQuestionAdmin) List(ctx context.Context, f models.QuestionFilter) ([]models.Question, error) {
	s.gotFilter = f
	return nil, nil
}

func (s *stubQuestionAdmin) Get(ctx context.Context, id int64) (*models.Question, error) {
	q, ok := s.byID[id]
	if !ok {
		return nil, &services.NotFoundError{Message: "Question not found"}
	}
	return q, nil
}

func (s *stubQuestionAdmin) Create(ctx context.Context, in models.QuestionInput) (*models.Question, error) {
	if s.createErr != nil {
		return nil, s.createErr
	}
	s.created = append(s.created, in)
	return &models.Question{ID: 99}, nil
}

func (s *stubQuestionAdmin) Update(ctx context.Context, id int64, in models.QuestionInput) (*models.Question, error) {
	return &models.Question{ID: id}, nil
}

func (s *stubQuestionAdmin) Delete(ctx context.Context, id int64) error {
	s.deleted = append(s.deleted, id)
	return nil
}

type stubImports struct {
	requestedBy string
	err         error
}

func (s *stubImports) Enqueue(ctx context.Context, requestedBy string) (*models.ImportJob, error) {
	if s.err != nil {
		return nil, s.err
	}
	s.requestedBy = requestedBy
	return &models.ImportJob{ID: uuid.New(), RequestedBy: requestedBy, Status: models.JobPending}, nil
}

func (s *stubImports) Recent(ctx context.Context, limit int) ([]models.ImportJob, error) {
	return nil, nil
}

// ─── Auth Handler Tests ───

func TestRegister_RedirectsToLogin(t *testing.T) {
	h := NewAuthHandler(&stubAuth{}, newTestRenderer(t), false, discardLogger())

	form := url.Values{"username": {"alice"}, "email": {"alice@example.com"}, "password": {"longenough"}}
	rr := httptest.NewRecorder()
	h.Register(rr, formRequest(http.MethodPost, "/auth/register", form))

	if rr.Code != http.StatusSeeOther {
		t.Fatalf("Expected 303, got %d", rr.Code)
	}
	if loc := rr.Header().Get("Location"); loc != "/auth/login?registered=1" {
		t.Errorf("Expected redirect to login, got %q", loc)
	}
}

func TestRegister_ConflictRerendersForm(t *testing.T) {
	auth := &stubAuth{registerErr: &services.ConflictError{Message: "Username already exists"}}
	h := NewAuthHandler(auth, newTestRenderer(t), false, discardLogger())

	form := url.Values{"username": {"alice"}, "email": {"alice@example.com"}, "password": {"longenough"}}
	rr := httptest.NewRecorder()
	h.Register(rr, formRequest(http.MethodPost, "/auth/register", form))

	if rr.Code != http.StatusConflict {
		t.Fatalf("Expected 409, got %d", rr.Code)
	}
	body := rr.Body.String()
	if !strings.Contains(body, "Username already exists") {
		t.Error("Expected conflict message in page")
	}
	if !strings.Contains(body, `value="alice"`) {
		t.Error("Expected submitted username to be kept in the form")
	}
}

func TestRegister_ValidationShowsFieldErrors(t *testing.T) {
	auth := &stubAuth{registerErr: &services.ValidationError{Fields: map[string]string{"password": "Password must be at least 8 characters"}}}
	h := NewAuthHandler(auth, newTestRenderer(t), false, discardLogger())

	rr := httptest.NewRecorder()
	h.Register(rr, formRequest(http.MethodPost, "/auth/register", url.Values{"username": {"bob"}}))

	if rr.Code != http.StatusBadRequest {
		t.Fatalf("Expected 400, got %d", rr.Code)
	}
	if !strings.Contains(rr.Body.String(), "Password must be at least 8 characters") {
		t.Error("Expected field error in page")
	}
}

func TestLogin_InvalidCredentialsRerenders(t *testing.T) {
	auth := &stubAuth{authErr: &services.UnauthorizedError{Message: "Invalid username or password"}}
	h := NewAuthHandler(auth, newTestRenderer(t), false, discardLogger())

	rr := httptest.NewRecorder()
	h.Login(rr, formRequest(http.MethodPost, "/auth/login", url.Values{"username": {"alice"}, "password": {"nope"}}))

	if rr.Code != http.StatusUnauthorized {
		t.Fatalf("Expected 401, got %d", rr.Code)
	}
	if !strings.Contains(rr.Body.String(), "Invalid username or password") {
		t.Error("Expected generic credential error")
	}
	for _, c := range rr.Result().Cookies() {
		if c.Name == middleware.SessionCookie {
			t.Error("No session cookie should be set on failed login")
		}
	}
}

func TestLogin_SetsCookieAndRedirectsByRole(t *testing.T) {
	tests := []struct {
		name     string
		identity *models.Identity
		want     string
	}{
		{"user", &models.Identity{ID: 3, Username: "alice", Role: models.RoleUser}, "/auth/start-quiz"},
		{"admin", &models.Identity{ID: 1, Username: "root", Role: models.RoleAdmin}, "/admin"},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			h := NewAuthHandler(&stubAuth{identity: tc.identity}, newTestRenderer(t), false, discardLogger())

			rr := httptest.NewRecorder()
			h.Login(rr, formRequest(http.MethodPost, "/auth/login", url.Values{"username": {"x"}, "password": {"y"}}))

			if rr.Code != http.StatusSeeOther {
				t.Fatalf("Expected 303, got %d", rr.Code)
			}
			if loc := rr.Header().Get("Location"); loc != tc.want {
				t.Errorf("Expected redirect %q, got %q", tc.want, loc)
			}
			var found bool
			for _, c := range rr.Result().Cookies() {
				if c.Name == middleware.SessionCookie && c.Value == "signed-token" && c.HttpOnly {
					found = true
				}
			}
			if !found {
				t.Error("Expected HttpOnly session cookie")
			}
		})
	}
}

func TestLogout_RevokesAndClearsCookie(t *testing.T) {
	auth := &stubAuth{}
	h := NewAuthHandler(auth, newTestRenderer(t), false, discardLogger())

	req := httptest.NewRequest(http.MethodPost, "/auth/logout", nil)
	req.AddCookie(&http.Cookie{Name: middleware.SessionCookie, Value: "tok"})
	rr := httptest.NewRecorder()
	h.Logout(rr, req)

	if len(auth.revoked) != 1 || auth.revoked[0] != "tok" {
		t.Errorf("Expected token to be revoked, got %v", auth.revoked)
	}
	if rr.Header().Get("Location") != middleware.LoginPath {
		t.Errorf("Expected redirect to login, got %q", rr.Header().Get("Location"))
	}
}

// ─── Quiz Handler Tests ───

func TestSubmit_GradesParsedAnswers(t *testing.T) {
	quiz := &stubQuiz{result: &models.QuizResult{Score: 1, Total: 2, SessionID: "0190-session"}}
	h := NewQuizHandler(quiz, &stubSampler{}, &stubRoster{}, newTestRenderer(t), 5, discardLogger())

	form := url.Values{"q1": {"c"}, "q2": {"a"}, "csrf": {"ignored"}}
	req := asUser(formRequest(http.MethodPost, "/auth/submit-quiz", form), 42, "alice")
	rr := httptest.NewRecorder()
	h.Submit(rr, req)

	if rr.Code != http.StatusOK {
		t.Fatalf("Expected 200, got %d", rr.Code)
	}
	if quiz.gotUser != 42 {
		t.Errorf("Expected grading for user 42, got %d", quiz.gotUser)
	}
	if len(quiz.gotAnswers) != 2 || quiz.gotAnswers[1] != "c" || quiz.gotAnswers[2] != "a" {
		t.Errorf("Unexpected parsed answers: %v", quiz.gotAnswers)
	}
	body := rr.Body.String()
	if !strings.Contains(body, "You scored 1 out of 2") {
		t.Error("Expected score summary in result page")
	}
	if !strings.Contains(body, "session_id=0190-session") {
		t.Error("Expected review link for the session")
	}
}

func TestReview_UnknownSessionIs404(t *testing.T) {
	quiz := &stubQuiz{reviewErr: &services.NotFoundError{Message: "Quiz session not found"}}
	h := NewQuizHandler(quiz, &stubSampler{}, &stubRoster{}, newTestRenderer(t), 5, discardLogger())

	req := asUser(httptest.NewRequest(http.MethodGet, "/auth/review-quiz?session_id=other", nil), 42, "alice")
	rr := httptest.NewRecorder()
	h.Review(rr, req)

	if rr.Code != http.StatusNotFound {
		t.Fatalf("Expected 404, got %d", rr.Code)
	}
}

func TestReview_ShowsAnswers(t *testing.T) {
	answer := "Jupiter"
	quiz := &stubQuiz{review: []models.QuizAttempt{
		{QuestionText: "Largest planet?", UserAnswer: &answer, CorrectAnswer: "Jupiter", IsCorrect: true},
		{QuestionText: "Smallest planet?", CorrectAnswer: "Mercury"},
	}}
	h := NewQuizHandler(quiz, &stubSampler{}, &stubRoster{}, newTestRenderer(t), 5, discardLogger())

	req := asUser(httptest.NewRequest(http.MethodGet, "/auth/review-quiz?session_id=s1", nil), 42, "alice")
	rr := httptest.NewRecorder()
	h.Review(rr, req)

	if rr.Code != http.StatusOK {
		t.Fatalf("Expected 200, got %d", rr.Code)
	}
	body := rr.Body.String()
	if !strings.Contains(body, "Largest planet?") || !strings.Contains(body, "no answer") {
		t.Error("Expected both attempts rendered, including the unanswered one")
	}
}

func TestDashboard_PassesFilterAndRendersOptions(t *testing.T) {
	sampler := &stubSampler{questions: []models.Question{{
		ID: 5, Category: "Science", Difficulty: "easy", QuestionText: "H2O is?",
		OptionA: "Water", OptionB: "Salt", OptionC: "Iron", OptionD: "Gold", CorrectOption: "Water",
	}}}
	h := NewQuizHandler(&stubQuiz{}, sampler, &stubRoster{}, newTestRenderer(t), 5, discardLogger())

	req := asUser(httptest.NewRequest(http.MethodGet, "/auth/dashboard?category=Science&difficulty=easy", nil), 42, "alice")
	rr := httptest.NewRecorder()
	h.Dashboard(rr, req)

	if rr.Code != http.StatusOK {
		t.Fatalf("Expected 200, got %d", rr.Code)
	}
	if sampler.gotFilter.Category != "Science" || sampler.gotFilter.Difficulty != "easy" {
		t.Errorf("Unexpected filter: %+v", sampler.gotFilter)
	}
	body := rr.Body.String()
	if !strings.Contains(body, `name="q5" value="a"`) || !strings.Contains(body, `name="q5" value="d"`) {
		t.Error("Expected one radio per option letter")
	}
}

func TestStartQuiz_RedirectsWithSelection(t *testing.T) {
	h := NewQuizHandler(&stubQuiz{}, &stubSampler{}, &stubRoster{}, newTestRenderer(t), 5, discardLogger())

	rr := httptest.NewRecorder()
	h.StartQuiz(rr, formRequest(http.MethodPost, "/auth/start-quiz", url.Values{"category": {"Science"}, "difficulty": {""}}))

	if loc := rr.Header().Get("Location"); loc != "/auth/dashboard?category=Science" {
		t.Errorf("Unexpected redirect %q", loc)
	}
}

func TestLeaderboard_JSON(t *testing.T) {
	leaders := make([]models.LeaderboardEntry, 12)
	for i := range leaders {
		leaders[i] = models.LeaderboardEntry{Rank: i + 1, UserID: int64(i + 1), Username: "u", Score: 100 - i}
	}
	h := NewQuizHandler(&stubQuiz{leaders: leaders}, &stubSampler{}, &stubRoster{}, newTestRenderer(t), 5, discardLogger())

	rr := httptest.NewRecorder()
	h.Leaderboard(rr, httptest.NewRequest(http.MethodGet, "/api/v1/leaderboard", nil))

	if rr.Code != http.StatusOK {
		t.Fatalf("Expected 200, got %d", rr.Code)
	}
	if ct := rr.Header().Get("Content-Type"); ct != "application/json" {
		t.Errorf("Expected JSON content type, got %q", ct)
	}
	var update models.LeaderboardUpdate
	if err := json.NewDecoder(rr.Body).Decode(&update); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if len(update.Entries) != services.LeaderboardSize {
		t.Errorf("Expected %d entries, got %d", services.LeaderboardSize, len(update.Entries))
	}
}

// ─── Admin Handler Tests ───

func newAdminHandler(t *testing.T, roster *stubRoster, questions *stubQuestionAdmin, imports *stubImports) *AdminHandler {
	t.Helper()
	return NewAdminHandler(roster, questions, imports, newTestRenderer(t), discardLogger())
}

func TestDeleteUser_RedirectsToAdmin(t *testing.T) {
	roster := &stubRoster{users: map[int64]*models.User{3: {ID: 3, Username: "alice"}}}
	h := newAdminHandler(t, roster, &stubQuestionAdmin{}, &stubImports{})

	req := withURLParam(asAdmin(httptest.NewRequest(http.MethodPost, "/admin/users/3/delete", nil)), "id", "3")
	rr := httptest.NewRecorder()
	h.DeleteUser(rr, req)

	if rr.Code != http.StatusSeeOther || rr.Header().Get("Location") != "/admin" {
		t.Fatalf("Expected 303 to /admin, got %d %q", rr.Code, rr.Header().Get("Location"))
	}
	if len(roster.deleted) != 1 || roster.deleted[0] != 3 {
		t.Errorf("Expected user 3 deleted, got %v", roster.deleted)
	}
}

func TestDeleteUser_BadIDIs404(t *testing.T) {
	h := newAdminHandler(t, &stubRoster{}, &stubQuestionAdmin{}, &stubImports{})

	for _, id := range []string{"abc", "0", "-4"} {
		req := withURLParam(asAdmin(httptest.NewRequest(http.MethodPost, "/admin/users/x/delete", nil)), "id", id)
		rr := httptest.NewRecorder()
		h.DeleteUser(rr, req)
		if rr.Code != http.StatusNotFound {
			t.Errorf("id %q: expected 404, got %d", id, rr.Code)
		}
	}
}

func TestEditUser_RejectsNonNumericAndNegativeScore(t *testing.T) {
	roster := &stubRoster{users: map[int64]*models.User{3: {ID: 3, Username: "alice", Score: 10}}}
	h := newAdminHandler(t, roster, &stubQuestionAdmin{}, &stubImports{})

	for _, score := range []string{"ten", "-1"} {
		req := withURLParam(asAdmin(formRequest(http.MethodPost, "/admin/users/3/edit", url.Values{"score": {score}})), "id", "3")
		rr := httptest.NewRecorder()
		h.EditUser(rr, req)
		if rr.Code != http.StatusBadRequest {
			t.Errorf("score %q: expected 400, got %d", score, rr.Code)
		}
	}
	if _, ok := roster.scores[3]; ok {
		t.Error("Score should not have been written")
	}

	req := withURLParam(asAdmin(formRequest(http.MethodPost, "/admin/users/3/edit", url.Values{"score": {"25"}})), "id", "3")
	rr := httptest.NewRecorder()
	h.EditUser(rr, req)
	if rr.Code != http.StatusSeeOther || roster.scores[3] != 25 {
		t.Errorf("Expected score override to 25, got %d (status %d)", roster.scores[3], rr.Code)
	}
}

func TestQuestions_OriginFilter(t *testing.T) {
	questions := &stubQuestionAdmin{}
	h := newAdminHandler(t, &stubRoster{}, questions, &stubImports{})

	req := asAdmin(httptest.NewRequest(http.MethodGet, "/admin/questions?search=planet&origin=imported", nil))
	rr := httptest.NewRecorder()
	h.Questions(rr, req)

	if rr.Code != http.StatusOK {
		t.Fatalf("Expected 200, got %d", rr.Code)
	}
	if questions.gotFilter.Search != "planet" {
		t.Errorf("Expected search to be passed through, got %q", questions.gotFilter.Search)
	}
	if questions.gotFilter.AdminCreated == nil || *questions.gotFilter.AdminCreated {
		t.Error("Expected imported-only filter")
	}
}

func TestCreateQuestion_CollectsOptionFields(t *testing.T) {
	questions := &stubQuestionAdmin{}
	h := newAdminHandler(t, &stubRoster{}, questions, &stubImports{})

	form := url.Values{
		"category": {"Science"}, "difficulty": {"easy"}, "question_text": {"H2O is?"},
		"option_a": {"Water"}, "option_b": {"Salt"}, "option_c": {"Iron"}, "option_d": {"Gold"},
		"correct_option": {"a"},
	}
	rr := httptest.NewRecorder()
	h.CreateQuestion(rr, asAdmin(formRequest(http.MethodPost, "/admin/questions/new", form)))

	if rr.Code != http.StatusSeeOther {
		t.Fatalf("Expected 303, got %d", rr.Code)
	}
	if len(questions.created) != 1 {
		t.Fatalf("Expected one created question, got %d", len(questions.created))
	}
	in := questions.created[0]
	if in.Options != [4]string{"Water", "Salt", "Iron", "Gold"} || in.Correct != "a" {
		t.Errorf("Unexpected input: %+v", in)
	}
}

func TestCreateQuestion_ValidationRerendersWithValues(t *testing.T) {
	questions := &stubQuestionAdmin{createErr: &services.ValidationError{Fields: map[string]string{"option_b": "Options must be distinct"}}}
	h := newAdminHandler(t, &stubRoster{}, questions, &stubImports{})

	form := url.Values{"question_text": {"Dup?"}, "option_a": {"Same"}, "option_b": {"Same"}, "correct_option": {"a"}}
	rr := httptest.NewRecorder()
	h.CreateQuestion(rr, asAdmin(formRequest(http.MethodPost, "/admin/questions/new", form)))

	if rr.Code != http.StatusBadRequest {
		t.Fatalf("Expected 400, got %d", rr.Code)
	}
	body := rr.Body.String()
	if !strings.Contains(body, "Options must be distinct") || !strings.Contains(body, "Dup?") {
		t.Error("Expected field error and submitted values in the form")
	}
}

func TestEditQuestionPage_PreselectsCorrectLetter(t *testing.T) {
	questions := &stubQuestionAdmin{byID: map[int64]*models.Question{8: {
		ID: 8, Category: "Science", Difficulty: "hard", QuestionText: "Q?",
		OptionA: "w", OptionB: "x", OptionC: "y", OptionD: "z", CorrectOption: "y",
	}}}
	h := newAdminHandler(t, &stubRoster{}, questions, &stubImports{})

	req := withURLParam(asAdmin(httptest.NewRequest(http.MethodGet, "/admin/questions/8/edit", nil)), "id", "8")
	rr := httptest.NewRecorder()
	h.EditQuestionPage(rr, req)

	if rr.Code != http.StatusOK {
		t.Fatalf("Expected 200, got %d", rr.Code)
	}
	if !strings.Contains(rr.Body.String(), `value="c" checked`) {
		t.Error("Expected option c preselected as correct")
	}
}

func TestDeleteQuestion_Redirects(t *testing.T) {
	questions := &stubQuestionAdmin{}
	h := newAdminHandler(t, &stubRoster{}, questions, &stubImports{})

	req := withURLParam(asAdmin(httptest.NewRequest(http.MethodPost, "/admin/questions/4/delete", nil)), "id", "4")
	rr := httptest.NewRecorder()
	h.DeleteQuestion(rr, req)

	if rr.Header().Get("Location") != "/admin/questions" || len(questions.deleted) != 1 {
		t.Errorf("Expected delete and redirect, got %q %v", rr.Header().Get("Location"), questions.deleted)
	}
}

func TestImport_QueuesJobForAdmin(t *testing.T) {
	imports := &stubImports{}
	h := newAdminHandler(t, &stubRoster{}, &stubQuestionAdmin{}, imports)

	rr := httptest.NewRecorder()
	h.Import(rr, asAdmin(httptest.NewRequest(http.MethodPost, "/admin/import", nil)))

	if rr.Code != http.StatusAccepted {
		t.Fatalf("Expected 202, got %d", rr.Code)
	}
	if imports.requestedBy != "root" {
		t.Errorf("Expected job requested by root, got %q", imports.requestedBy)
	}
	if !strings.Contains(rr.Body.String(), "queued") {
		t.Error("Expected queued notice")
	}
}

func TestImport_EnqueueFailure(t *testing.T) {
	h := newAdminHandler(t, &stubRoster{}, &stubQuestionAdmin{}, &stubImports{err: errors.New("redis down")})

	rr := httptest.NewRecorder()
	h.Import(rr, asAdmin(httptest.NewRequest(http.MethodPost, "/admin/import", nil)))

	if rr.Code != http.StatusServiceUnavailable {
		t.Fatalf("Expected 503, got %d", rr.Code)
	}
}

func TestRenderer_ParsesEveryPage(t *testing.T) {
	rd := newTestRenderer(t)
	for _, name := range pageNames {
		if _, ok := rd.pages[name]; !ok {
			t.Errorf("page %q not parsed", name)
		}
	}

	rr := httptest.NewRecorder()
	rd.NotFound(rr, httptest.NewRequest(http.MethodGet, "/nope", nil))
	if rr.Code != http.StatusNotFound {
		t.Errorf("Expected 404, got %d", rr.Code)
	}
}
