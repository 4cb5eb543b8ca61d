package repository

import (
	"context"
	"fmt"

	"github.com/jackc/pgx/v5"

	"quizarena-backend/internal/models"
)

type UserRepo struct {
	db DBTX
}

func NewUserRepo(db DBTX) *UserRepo {
	return &UserRepo{db: db}
}

const userColumns = `id, username, email, password_hash, score, tokens, created_at`

func scanUser(row pgx.Row) (*models.User, error) {
	u := &models.User{}
	err := row.Scan(&u.ID, &u.Username, &u.Email, &u.PasswordHash, &u.Score, &u.Tokens, &u.CreatedAt)
	if err != nil {
		return nil, notFoundIfNoRows(err)
	}
	return u, nil
}

func (r *UserRepo) Create(ctx context.Context, user *models.User) error {
	query := `
		INSERT INTO users (username, email, password_hash, score, tokens)
		VALUES ($1, $2, $3, $4, $5)
		RETURNING id, created_at`

	return r.db.QueryRow(ctx, query,
		user.Username, user.Email, user.PasswordHash, user.Score, user.Tokens,
	).Scan(&user.ID, &user.CreatedAt)
}

func (r *UserRepo) GetByID(ctx context.Context, id int64) (*models.User, error) {
	return scanUser(r.db.QueryRow(ctx, `SELECT `+userColumns+` FROM users WHERE id = $1`, id))
}

func (r *UserRepo) GetByUsername(ctx context.Context, username string) (*models.User, error) {
	return scanUser(r.db.QueryRow(ctx, `SELECT `+userColumns+` FROM users WHERE username = $1`, username))
}

// IdentityTaken reports which of username and email already belong to a user.
func (r *UserRepo) IdentityTaken(ctx context.Context, username, email string) (usernameTaken, emailTaken bool, err error) {
	err = r.db.QueryRow(ctx, `
		SELECT
			EXISTS(SELECT 1 FROM users WHERE username = $1),
			EXISTS(SELECT 1 FROM users WHERE LOWER(email) = LOWER($2))
	`, username, email).Scan(&usernameTaken, &emailTaken)
	return
}

func (r *UserRepo) List(ctx context.Context) ([]*models.User, error) {
	rows, err := r.db.Query(ctx, `SELECT `+userColumns+` FROM users ORDER BY score DESC, id`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var users []*models.User
	for rows.Next() {
		u, err := scanUser(rows)
		if err != nil {
			return nil, err
		}
		users = append(users, u)
	}
	return users, rows.Err()
}

func (r *UserRepo) TopByScore(ctx context.Context, limit int) ([]models.LeaderboardEntry, error) {
	rows, err := r.db.Query(ctx, `
		SELECT id, username, score FROM users
		ORDER BY score DESC, id
		LIMIT $1`, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	entries := make([]models.LeaderboardEntry, 0, limit)
	for rows.Next() {
		var e models.LeaderboardEntry
		if err := rows.Scan(&e.UserID, &e.Username, &e.Score); err != nil {
			return nil, err
		}
		e.Rank = len(entries) + 1
		entries = append(entries, e)
	}
	return entries, rows.Err()
}

// AddScore increments the score atomically; concurrent submissions serialize on the row lock.
func (r *UserRepo) AddScore(ctx context.Context, userID int64, delta int) error {
	tag, err := r.db.Exec(ctx, "UPDATE users SET score = score + $1 WHERE id = $2", delta, userID)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return ErrNotFound
	}
	return nil
}

// SetScore is the admin override; it is the only path that may lower a score.
func (r *UserRepo) SetScore(ctx context.Context, userID int64, score int) error {
	tag, err := r.db.Exec(ctx, "UPDATE users SET score = $1 WHERE id = $2", score, userID)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return ErrNotFound
	}
	return nil
}

// Delete removes the user together with their attempts and stats rows.
func (r *UserRepo) Delete(ctx context.Context, userID int64) error {
	return pgx.BeginFunc(ctx, r.db, func(tx pgx.Tx) error {
		if _, err := tx.Exec(ctx, "DELETE FROM quiz_attempts WHERE user_id = $1", userID); err != nil {
			return fmt.Errorf("delete attempts: %w", err)
		}
		if _, err := tx.Exec(ctx, "DELETE FROM user_quiz_stats WHERE user_id = $1", userID); err != nil {
			return fmt.Errorf("delete stats: %w", err)
		}
		tag, err := tx.Exec(ctx, "DELETE FROM users WHERE id = $1", userID)
		if err != nil {
			return fmt.Errorf("delete user: %w", err)
		}
		if tag.RowsAffected() == 0 {
			return ErrNotFound
		}
		return nil
	})
}
