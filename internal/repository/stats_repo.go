package repository

import (
	"context"

	"quizarena-backend/internal/models"
)

type StatsRepo struct {
	db DBTX
}

func NewStatsRepo(db DBTX) *StatsRepo {
	return &StatsRepo{db: db}
}

// Record counts one graded answer against the (user, category, difficulty) bucket,
// creating the bucket on first use.
func (r *StatsRepo) Record(ctx context.Context, userID int64, category, difficulty string, correct bool) error {
	inc := 0
	if correct {
		inc = 1
	}
	_, err := r.db.Exec(ctx, `
		INSERT INTO user_quiz_stats (user_id, category, difficulty, solved_count, correct_count)
		VALUES ($1, $2, $3, 1, $4)
		ON CONFLICT (user_id, category, difficulty) DO UPDATE
		SET solved_count = user_quiz_stats.solved_count + 1,
		    correct_count = user_quiz_stats.correct_count + EXCLUDED.correct_count`,
		userID, category, difficulty, inc,
	)
	return err
}

func (r *StatsRepo) ListByUser(ctx context.Context, userID int64) ([]models.UserQuizStats, error) {
	rows, err := r.db.Query(ctx, `
		SELECT id, user_id, category, difficulty, solved_count, correct_count
		FROM user_quiz_stats WHERE user_id = $1
		ORDER BY category, difficulty`, userID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var stats []models.UserQuizStats
	for rows.Next() {
		var s models.UserQuizStats
		if err := rows.Scan(&s.ID, &s.UserID, &s.Category, &s.Difficulty, &s.SolvedCount, &s.CorrectCount); err != nil {
			return nil, err
		}
		stats = append(stats, s)
	}
	return stats, rows.Err()
}
