package services

import (
	"context"
	"io"
	"log/slog"
	"sort"
	"sync"
	"testing"

	miniredis "github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"

	"quizarena-backend/internal/models"
	"quizarena-backend/internal/repository"
)

func discardLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func newTestRedis(t *testing.T) (*miniredis.Miniredis, *redis.Client) {
	t.Helper()
	mr, err := miniredis.Run()
	if err != nil {
		t.Fatalf("run miniredis: %v", err)
	}
	t.Cleanup(mr.Close)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { client.Close() })
	return mr, client
}

// ─── Users / admins ───

type fakeUsers struct {
	mu        sync.Mutex
	byID      map[int64]*models.User
	nextID    int64
	createErr error
	created   int
}

func newFakeUsers() *fakeUsers {
	return &fakeUsers{byID: make(map[int64]*models.User), nextID: 1}
}

func (f *fakeUsers) Create(ctx context.Context, u *models.User) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.createErr != nil {
		return f.createErr
	}
	u.ID = f.nextID
	f.nextID++
	cp := *u
	f.byID[u.ID] = &cp
	f.created++
	return nil
}

func (f *fakeUsers) GetByID(ctx context.Context, id int64) (*models.User, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	u, ok := f.byID[id]
	if !ok {
		return nil, repository.ErrNotFound
	}
	cp := *u
	return &cp, nil
}

func (f *fakeUsers) GetByUsername(ctx context.Context, username string) (*models.User, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	for _, u := range f.byID {
		if u.Username == username {
			cp := *u
			return &cp, nil
		}
	}
	return nil, repository.ErrNotFound
}

func (f *fakeUsers) IdentityTaken(ctx context.Context, username, email string) (bool, bool, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	var uTaken, eTaken bool
	for _, u := range f.byID {
		if u.Username == username {
			uTaken = true
		}
		if u.Email == email {
			eTaken = true
		}
	}
	return uTaken, eTaken, nil
}

func (f *fakeUsers) List(ctx context.Context) ([]*models.User, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	var out []*models.User
	for _, u := range f.byID {
		cp := *u
		out = append(out, &cp)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out, nil
}

func (f *fakeUsers) SetScore(ctx context.Context, id int64, score int) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	u, ok := f.byID[id]
	if !ok {
		return repository.ErrNotFound
	}
	u.Score = score
	return nil
}

func (f *fakeUsers) Delete(ctx context.Context, id int64) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if _, ok := f.byID[id]; !ok {
		return repository.ErrNotFound
	}
	delete(f.byID, id)
	return nil
}

func (f *fakeUsers) TopByScore(ctx context.Context, limit int) ([]models.LeaderboardEntry, error) {
	users, _ := f.List(ctx)
	sort.SliceStable(users, func(i, j int) bool { return users[i].Score > users[j].Score })
	var out []models.LeaderboardEntry
	for i, u := range users {
		if i == limit {
			break
		}
		out = append(out, models.LeaderboardEntry{Rank: i + 1, UserID: u.ID, Username: u.Username, Score: u.Score})
	}
	return out, nil
}

type fakeAdmins struct {
	byName map[string]*models.Admin
}

func newFakeAdmins() *fakeAdmins {
	return &fakeAdmins{byName: make(map[string]*models.Admin)}
}

func (f *fakeAdmins) GetByUsername(ctx context.Context, username string) (*models.Admin, error) {
	a, ok := f.byName[username]
	if !ok {
		return nil, repository.ErrNotFound
	}
	cp := *a
	return &cp, nil
}

func (f *fakeAdmins) GetByID(ctx context.Context, id int64) (*models.Admin, error) {
	for _, a := range f.byName {
		if a.ID == id {
			cp := *a
			return &cp, nil
		}
	}
	return nil, repository.ErrNotFound
}

func (f *fakeAdmins) Upsert(ctx context.Context, admin *models.Admin) error {
	if existing, ok := f.byName[admin.Username]; ok {
		existing.PasswordHash = admin.PasswordHash
		admin.ID = existing.ID
		return nil
	}
	admin.ID = int64(len(f.byName) + 1)
	cp := *admin
	f.byName[admin.Username] = &cp
	return nil
}

// ─── Questions ───

type fakeQuestions struct {
	byID        map[int64]models.Question
	facetCalls  int
	inserted    [][]models.Question
	insertErr   error
	existingKey map[string]bool
}

func newFakeQuestions(qs ...models.Question) *fakeQuestions {
	f := &fakeQuestions{byID: make(map[int64]models.Question), existingKey: make(map[string]bool)}
	for _, q := range qs {
		f.byID[q.ID] = q
	}
	return f
}

func (f *fakeQuestions) List(ctx context.Context, flt models.QuestionFilter) ([]models.Question, error) {
	var out []models.Question
	for _, q := range f.byID {
		out = append(out, q)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out, nil
}

func (f *fakeQuestions) Sample(ctx context.Context, flt models.QuestionFilter, n int) ([]models.Question, error) {
	all, _ := f.List(ctx, flt)
	if len(all) > n {
		all = all[:n]
	}
	return all, nil
}

func (f *fakeQuestions) GetByID(ctx context.Context, id int64) (*models.Question, error) {
	q, ok := f.byID[id]
	if !ok {
		return nil, repository.ErrNotFound
	}
	return &q, nil
}

func (f *fakeQuestions) GetByIDs(ctx context.Context, ids []int64) ([]models.Question, error) {
	var out []models.Question
	for _, id := range ids {
		if q, ok := f.byID[id]; ok {
			out = append(out, q)
		}
	}
	return out, nil
}

func (f *fakeQuestions) Create(ctx context.Context, q *models.Question) error {
	q.ID = int64(len(f.byID) + 100)
	f.byID[q.ID] = *q
	return nil
}

func (f *fakeQuestions) Update(ctx context.Context, q *models.Question) error {
	if _, ok := f.byID[q.ID]; !ok {
		return repository.ErrNotFound
	}
	f.byID[q.ID] = *q
	return nil
}

func (f *fakeQuestions) Delete(ctx context.Context, id int64) (int64, error) {
	if _, ok := f.byID[id]; !ok {
		return 0, repository.ErrNotFound
	}
	delete(f.byID, id)
	return 0, nil
}

func (f *fakeQuestions) InsertBatch(ctx context.Context, qs []models.Question) (int, error) {
	if f.insertErr != nil {
		return 0, f.insertErr
	}
	f.inserted = append(f.inserted, qs)
	n := 0
	for _, q := range qs {
		key := q.Category + "|" + q.QuestionText
		if f.existingKey[key] {
			continue
		}
		f.existingKey[key] = true
		n++
	}
	return n, nil
}

func (f *fakeQuestions) Count(ctx context.Context) (int, error) {
	return len(f.byID), nil
}

func (f *fakeQuestions) Facets(ctx context.Context) (models.Facets, error) {
	f.facetCalls++
	cats := map[string]bool{}
	diffs := map[string]bool{}
	for _, q := range f.byID {
		cats[q.Category] = true
		diffs[q.Difficulty] = true
	}
	var out models.Facets
	for c := range cats {
		out.Categories = append(out.Categories, c)
	}
	for d := range diffs {
		out.Difficulties = append(out.Difficulties, d)
	}
	sort.Strings(out.Categories)
	sort.Strings(out.Difficulties)
	return out, nil
}

// ─── Quiz persistence ───

type fakeQuizStore struct {
	submissions []*models.Submission
	recordErr   error
	attempts    []models.QuizAttempt
}

func (f *fakeQuizStore) RecordSubmission(ctx context.Context, sub *models.Submission) error {
	if f.recordErr != nil {
		return f.recordErr
	}
	f.submissions = append(f.submissions, sub)
	for i := range sub.Answers {
		a := &sub.Answers[i].Attempt
		a.ID = int64(len(f.attempts) + 1)
		a.UserID = sub.UserID
		f.attempts = append(f.attempts, *a)
	}
	return nil
}

func (f *fakeQuizStore) SessionAttempts(ctx context.Context, userID int64, sessionID string) ([]models.QuizAttempt, error) {
	var out []models.QuizAttempt
	for _, a := range f.attempts {
		if a.UserID == userID && a.SessionID == sessionID {
			out = append(out, a)
		}
	}
	return out, nil
}

func (f *fakeQuizStore) RecentSessions(ctx context.Context, userID int64, limit int) ([]models.SessionSummary, error) {
	return nil, nil
}

type fakeStats struct{}

func (fakeStats) ListByUser(ctx context.Context, userID int64) ([]models.UserQuizStats, error) {
	return nil, nil
}

type fakePublisher struct {
	mu       sync.Mutex
	messages map[string][]models.WSMessage
}

func (p *fakePublisher) Publish(ctx context.Context, channel string, msg models.WSMessage) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.messages == nil {
		p.messages = make(map[string][]models.WSMessage)
	}
	p.messages[channel] = append(p.messages[channel], msg)
	return nil
}

func (p *fakePublisher) count(channel string) int {
	p.mu.Lock()
	defer p.mu.Unlock()
	return len(p.messages[channel])
}
