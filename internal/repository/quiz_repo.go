package repository

import (
	"context"
	"fmt"

	"github.com/jackc/pgx/v5"

	"quizarena-backend/internal/models"
)

type QuizRepo struct {
	db DBTX
}

func NewQuizRepo(db DBTX) *QuizRepo {
	return &QuizRepo{db: db}
}

// RecordSubmission writes every attempt, the per-bucket stats and the score delta
// of one graded submission in a single transaction. Either all of it lands or none.
func (r *QuizRepo) RecordSubmission(ctx context.Context, sub *models.Submission) error {
	return pgx.BeginFunc(ctx, r.db, func(tx pgx.Tx) error {
		stats := NewStatsRepo(tx)
		users := NewUserRepo(tx)

		for i := range sub.Answers {
			a := &sub.Answers[i].Attempt
			err := tx.QueryRow(ctx, `
				INSERT INTO quiz_attempts (user_id, question_id, user_answer, correct_answer, is_correct, session_id)
				VALUES ($1, $2, $3, $4, $5, $6)
				RETURNING id, created_at`,
				sub.UserID, a.QuestionID, a.UserAnswer, a.CorrectAnswer, a.IsCorrect, sub.SessionID,
			).Scan(&a.ID, &a.CreatedAt)
			if err != nil {
				return fmt.Errorf("insert attempt for question %d: %w", a.QuestionID, err)
			}
			a.UserID = sub.UserID
			a.SessionID = sub.SessionID

			g := sub.Answers[i]
			if err := stats.Record(ctx, sub.UserID, g.Category, g.Difficulty, a.IsCorrect); err != nil {
				return fmt.Errorf("record stats: %w", err)
			}
		}

		if err := users.AddScore(ctx, sub.UserID, sub.Score); err != nil {
			return fmt.Errorf("add score: %w", err)
		}
		return nil
	})
}

const attemptSelect = `
	SELECT a.id, a.user_id, a.question_id, a.user_answer, a.correct_answer, a.is_correct, a.session_id,
		a.created_at, q.question_text, q.category, q.difficulty
	FROM quiz_attempts a
	JOIN questions q ON q.id = a.question_id`

// SessionAttempts returns the attempts of one session, scoped to its owner.
func (r *QuizRepo) SessionAttempts(ctx context.Context, userID int64, sessionID string) ([]models.QuizAttempt, error) {
	rows, err := r.db.Query(ctx, attemptSelect+`
		WHERE a.user_id = $1 AND a.session_id = $2
		ORDER BY a.id`, userID, sessionID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var attempts []models.QuizAttempt
	for rows.Next() {
		var a models.QuizAttempt
		err := rows.Scan(&a.ID, &a.UserID, &a.QuestionID, &a.UserAnswer, &a.CorrectAnswer, &a.IsCorrect,
			&a.SessionID, &a.CreatedAt, &a.QuestionText, &a.Category, &a.Difficulty)
		if err != nil {
			return nil, err
		}
		attempts = append(attempts, a)
	}
	return attempts, rows.Err()
}

// RecentSessions summarizes a user's latest sessions, newest first.
func (r *QuizRepo) RecentSessions(ctx context.Context, userID int64, limit int) ([]models.SessionSummary, error) {
	rows, err := r.db.Query(ctx, `
		SELECT session_id,
			COUNT(*) FILTER (WHERE is_correct) AS score,
			COUNT(*) AS total,
			MIN(created_at) AS taken_at
		FROM quiz_attempts
		WHERE user_id = $1
		GROUP BY session_id
		ORDER BY taken_at DESC
		LIMIT $2`, userID, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var sessions []models.SessionSummary
	for rows.Next() {
		var s models.SessionSummary
		if err := rows.Scan(&s.SessionID, &s.Score, &s.Total, &s.TakenAt); err != nil {
			return nil, err
		}
		sessions = append(sessions, s)
	}
	return sessions, rows.Err()
}
