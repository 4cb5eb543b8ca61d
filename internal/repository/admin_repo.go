package repository

import (
	"context"

	"quizarena-backend/internal/models"
)

type AdminRepo struct {
	db DBTX
}

func NewAdminRepo(db DBTX) *AdminRepo {
	return &AdminRepo{db: db}
}

func (r *AdminRepo) GetByUsername(ctx context.Context, username string) (*models.Admin, error) {
	a := &models.Admin{}
	err := r.db.QueryRow(ctx,
		`SELECT id, username, password_hash, created_at FROM admins WHERE username = $1`, username,
	).Scan(&a.ID, &a.Username, &a.PasswordHash, &a.CreatedAt)
	if err != nil {
		return nil, notFoundIfNoRows(err)
	}
	return a, nil
}

func (r *AdminRepo) GetByID(ctx context.Context, id int64) (*models.Admin, error) {
	a := &models.Admin{}
	err := r.db.QueryRow(ctx,
		`SELECT id, username, password_hash, created_at FROM admins WHERE id = $1`, id,
	).Scan(&a.ID, &a.Username, &a.PasswordHash, &a.CreatedAt)
	if err != nil {
		return nil, notFoundIfNoRows(err)
	}
	return a, nil
}

// Upsert creates the admin or resets its password hash.
func (r *AdminRepo) Upsert(ctx context.Context, admin *models.Admin) error {
	return r.db.QueryRow(ctx, `
		INSERT INTO admins (username, password_hash)
		VALUES ($1, $2)
		ON CONFLICT (username) DO UPDATE SET password_hash = EXCLUDED.password_hash
		RETURNING id, created_at`,
		admin.Username, admin.PasswordHash,
	).Scan(&admin.ID, &admin.CreatedAt)
}
