package services

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/redis/go-redis/v9"
	"golang.org/x/sync/singleflight"

	"quizarena-backend/internal/models"
)

type QuestionStore interface {
	List(ctx context.Context, f models.QuestionFilter) ([]models.Question, error)
	Sample(ctx context.Context, f models.QuestionFilter, n int) ([]models.Question, error)
	GetByID(ctx context.Context, id int64) (*models.Question, error)
	GetByIDs(ctx context.Context, ids []int64) ([]models.Question, error)
	Create(ctx context.Context, q *models.Question) error
	Update(ctx context.Context, q *models.Question) error
	Delete(ctx context.Context, id int64) (int64, error)
	InsertBatch(ctx context.Context, questions []models.Question) (int, error)
	Count(ctx context.Context) (int, error)
	Facets(ctx context.Context) (models.Facets, error)
}

const facetsKey = "quiz:facets"

type QuestionService struct {
	store     QuestionStore
	redis     *redis.Client
	facetsTTL time.Duration
	group     singleflight.Group
	logger    *slog.Logger
}

func NewQuestionService(store QuestionStore, redisClient *redis.Client, facetsTTL time.Duration, logger *slog.Logger) *QuestionService {
	return &QuestionService{
		store:     store,
		redis:     redisClient,
		facetsTTL: facetsTTL,
		logger:    logger,
	}
}

func (s *QuestionService) List(ctx context.Context, f models.QuestionFilter) ([]models.Question, error) {
	return s.store.List(ctx, f)
}

// Sample returns up to n random questions; a short bank yields what it has.
func (s *QuestionService) Sample(ctx context.Context, f models.QuestionFilter, n int) ([]models.Question, error) {
	if n <= 0 {
		return nil, nil
	}
	return s.store.Sample(ctx, f, n)
}

func (s *QuestionService) Get(ctx context.Context, id int64) (*models.Question, error) {
	q, err := s.store.GetByID(ctx, id)
	if err != nil {
		return nil, notFound(err, "Question not found")
	}
	return q, nil
}

func (s *QuestionService) Count(ctx context.Context) (int, error) {
	return s.store.Count(ctx)
}

func (s *QuestionService) Create(ctx context.Context, in models.QuestionInput) (*models.Question, error) {
	q, err := buildQuestion(in)
	if err != nil {
		return nil, err
	}
	q.AdminCreated = true

	if err := s.store.Create(ctx, q); err != nil {
		return nil, err
	}
	s.InvalidateFacets(ctx)
	s.logger.Info("question created", "question_id", q.ID, "category", q.Category)
	return q, nil
}

func (s *QuestionService) Update(ctx context.Context, id int64, in models.QuestionInput) (*models.Question, error) {
	existing, err := s.Get(ctx, id)
	if err != nil {
		return nil, err
	}

	q, err := buildQuestion(in)
	if err != nil {
		return nil, err
	}
	q.ID = existing.ID
	q.AdminCreated = existing.AdminCreated
	q.CreatedAt = existing.CreatedAt

	if err := s.store.Update(ctx, q); err != nil {
		return nil, notFound(err, "Question not found")
	}
	s.InvalidateFacets(ctx)
	return q, nil
}

// Delete removes the question and the attempts that reference it.
func (s *QuestionService) Delete(ctx context.Context, id int64) error {
	removed, err := s.store.Delete(ctx, id)
	if err != nil {
		return notFound(err, "Question not found")
	}
	s.InvalidateFacets(ctx)
	s.logger.Info("question deleted", "question_id", id, "attempts_removed", removed)
	return nil
}

// Facets lists distinct categories and difficulties. The result is cached in Redis;
// concurrent misses share one database query.
func (s *QuestionService) Facets(ctx context.Context) (models.Facets, error) {
	cached, err := s.redis.Get(ctx, facetsKey).Bytes()
	if err == nil {
		var f models.Facets
		if json.Unmarshal(cached, &f) == nil {
			return f, nil
		}
	} else if !errors.Is(err, redis.Nil) {
		s.logger.Warn("facets cache read failed", "error", err)
	}

	v, err, _ := s.group.Do(facetsKey, func() (interface{}, error) {
		f, err := s.store.Facets(ctx)
		if err != nil {
			return models.Facets{}, err
		}
		if data, err := json.Marshal(f); err == nil {
			if err := s.redis.Set(ctx, facetsKey, data, s.facetsTTL).Err(); err != nil {
				s.logger.Warn("facets cache write failed", "error", err)
			}
		}
		return f, nil
	})
	if err != nil {
		return models.Facets{}, fmt.Errorf("load facets: %w", err)
	}
	return v.(models.Facets), nil
}

func (s *QuestionService) InvalidateFacets(ctx context.Context) {
	if err := s.redis.Del(ctx, facetsKey).Err(); err != nil {
		s.logger.Warn("facets cache invalidation failed", "error", err)
	}
}

// buildQuestion validates admin input. The correct answer may be given as an
// option letter or as the literal option text; it is stored as text.
func buildQuestion(in models.QuestionInput) (*models.Question, error) {
	fieldErrors := make(map[string]string)

	q := &models.Question{
		Category:     strings.TrimSpace(in.Category),
		Difficulty:   strings.ToLower(strings.TrimSpace(in.Difficulty)),
		QuestionText: strings.TrimSpace(in.QuestionText),
	}

	if q.Category == "" {
		fieldErrors["category"] = "Category is required"
	}
	if !models.ValidDifficulty(q.Difficulty) {
		fieldErrors["difficulty"] = "Difficulty must be easy, medium or hard"
	}
	if q.QuestionText == "" {
		fieldErrors["question_text"] = "Question text is required"
	}

	var opts [4]string
	seen := make(map[string]bool, len(opts))
	for i, o := range in.Options {
		opts[i] = strings.TrimSpace(o)
		if opts[i] == "" {
			fieldErrors["option_"+models.OptionLetters[i]] = "Option is required"
			continue
		}
		if seen[opts[i]] {
			fieldErrors["option_"+models.OptionLetters[i]] = "Options must be distinct"
		}
		seen[opts[i]] = true
	}
	q.SetOptions(opts)

	correct := strings.TrimSpace(in.Correct)
	if text, ok := q.OptionText(correct); ok {
		correct = text
	}
	if correct == "" || q.LetterOf(correct) == "" {
		fieldErrors["correct_option"] = "Correct answer must be one of the options"
	}
	q.CorrectOption = correct

	if len(fieldErrors) > 0 {
		return nil, &ValidationError{Fields: fieldErrors}
	}
	return q, nil
}
