package services

import (
	"context"
	"fmt"
	"log/slog"
	"net/url"
	"sort"
	"strconv"
	"strings"

	"github.com/google/uuid"

	"quizarena-backend/internal/models"
)

type QuestionLookup interface {
	GetByIDs(ctx context.Context, ids []int64) ([]models.Question, error)
}

type QuizStore interface {
	RecordSubmission(ctx context.Context, sub *models.Submission) error
	SessionAttempts(ctx context.Context, userID int64, sessionID string) ([]models.QuizAttempt, error)
	RecentSessions(ctx context.Context, userID int64, limit int) ([]models.SessionSummary, error)
}

type StatsReader interface {
	ListByUser(ctx context.Context, userID int64) ([]models.UserQuizStats, error)
}

type LeaderboardReader interface {
	TopByScore(ctx context.Context, limit int) ([]models.LeaderboardEntry, error)
}

// LeaderboardSize is how many entries a published update carries.
const LeaderboardSize = 10

const historyLimit = 50

type QuizService struct {
	questions   QuestionLookup
	quizzes     QuizStore
	stats       StatsReader
	leaderboard LeaderboardReader
	publisher   Publisher
	newSession  func() (string, error)
	logger      *slog.Logger
}

func NewQuizService(questions QuestionLookup, quizzes QuizStore, stats StatsReader, leaderboard LeaderboardReader,
	publisher Publisher, logger *slog.Logger) *QuizService {
	return &QuizService{
		questions:   questions,
		quizzes:     quizzes,
		stats:       stats,
		leaderboard: leaderboard,
		publisher:   publisher,
		newSession:  newSessionID,
		logger:      logger,
	}
}

// newSessionID returns a time-ordered UUIDv7, so ids sort by submission time.
func newSessionID() (string, error) {
	id, err := uuid.NewV7()
	if err != nil {
		return "", err
	}
	return id.String(), nil
}

// ParseAnswers collects the q<id>=<letter> fields of a quiz form. Keys without the
// prefix or with a non-numeric id are ignored.
func ParseAnswers(form url.Values) map[int64]string {
	answers := make(map[int64]string)
	for key, values := range form {
		if !strings.HasPrefix(key, "q") || len(values) == 0 {
			continue
		}
		id, err := strconv.ParseInt(key[1:], 10, 64)
		if err != nil || id <= 0 {
			continue
		}
		answers[id] = values[0]
	}
	return answers
}

// GradeAndRecord grades one submission and records it atomically: attempts, stats
// and score either all land or none do.
func (s *QuizService) GradeAndRecord(ctx context.Context, userID int64, answers map[int64]string) (*models.QuizResult, error) {
	ids := make([]int64, 0, len(answers))
	for id := range answers {
		ids = append(ids, id)
	}
	sort.Slice(ids, func(i, j int) bool { return ids[i] < ids[j] })

	questions, err := s.questions.GetByIDs(ctx, ids)
	if err != nil {
		return nil, fmt.Errorf("load questions: %w", err)
	}
	if len(questions) == 0 {
		return &models.QuizResult{}, nil
	}

	sessionID, err := s.newSession()
	if err != nil {
		return nil, fmt.Errorf("generate session id: %w", err)
	}

	sub := &models.Submission{
		UserID:    userID,
		SessionID: sessionID,
		Answers:   make([]models.GradedAnswer, 0, len(questions)),
	}

	for i := range questions {
		q := &questions[i]
		attempt := models.QuizAttempt{
			QuestionID:    q.ID,
			CorrectAnswer: q.CorrectOption,
			SessionID:     sessionID,
			QuestionText:  q.QuestionText,
			Category:      q.Category,
			Difficulty:    q.Difficulty,
		}
		if text, ok := q.OptionText(answers[q.ID]); ok {
			attempt.UserAnswer = &text
			attempt.IsCorrect = q.IsCorrect(text)
		}
		if attempt.IsCorrect {
			sub.Score++
		}
		sub.Answers = append(sub.Answers, models.GradedAnswer{
			Attempt:    attempt,
			Category:   q.Category,
			Difficulty: q.Difficulty,
		})
	}

	if err := s.quizzes.RecordSubmission(ctx, sub); err != nil {
		return nil, fmt.Errorf("record submission: %w", err)
	}

	s.logger.Info("quiz graded",
		"user_id", userID,
		"session_id", sessionID,
		"score", sub.Score,
		"total", len(sub.Answers),
	)

	if sub.Score > 0 {
		s.publishLeaderboard(ctx)
	}

	result := &models.QuizResult{
		Score:     sub.Score,
		Total:     len(sub.Answers),
		SessionID: sessionID,
		Attempts:  make([]models.QuizAttempt, len(sub.Answers)),
	}
	for i, a := range sub.Answers {
		result.Attempts[i] = a.Attempt
	}
	return result, nil
}

// publishLeaderboard is best-effort; the submission is already committed.
func (s *QuizService) publishLeaderboard(ctx context.Context) {
	if s.publisher == nil {
		return
	}
	entries, err := s.leaderboard.TopByScore(ctx, LeaderboardSize)
	if err != nil {
		s.logger.Warn("leaderboard read for publish failed", "error", err)
		return
	}
	msg := models.WSMessage{Type: "leaderboard", Payload: models.LeaderboardUpdate{Entries: entries}}
	if err := s.publisher.Publish(ctx, LeaderboardChannel, msg); err != nil {
		s.logger.Warn("leaderboard publish failed", "error", err)
	}
}

// Review returns one session's attempts, only ever the caller's own.
func (s *QuizService) Review(ctx context.Context, userID int64, sessionID string) ([]models.QuizAttempt, error) {
	sessionID = strings.TrimSpace(sessionID)
	if sessionID == "" {
		return nil, &NotFoundError{Message: "Quiz session not found"}
	}
	attempts, err := s.quizzes.SessionAttempts(ctx, userID, sessionID)
	if err != nil {
		return nil, err
	}
	if len(attempts) == 0 {
		return nil, &NotFoundError{Message: "Quiz session not found"}
	}
	return attempts, nil
}

func (s *QuizService) History(ctx context.Context, userID int64) ([]models.SessionSummary, error) {
	return s.quizzes.RecentSessions(ctx, userID, historyLimit)
}

func (s *QuizService) Stats(ctx context.Context, userID int64) ([]models.UserQuizStats, error) {
	return s.stats.ListByUser(ctx, userID)
}

func (s *QuizService) Leaderboard(ctx context.Context, n int) ([]models.LeaderboardEntry, error) {
	if n <= 0 {
		n = LeaderboardSize
	}
	return s.leaderboard.TopByScore(ctx, n)
}
