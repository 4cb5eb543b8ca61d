package repository

import (
	"context"
	"time"

	"github.com/google/uuid"

	"quizarena-backend/internal/models"
)

type JobRepo struct {
	db DBTX
}

func NewJobRepo(db DBTX) *JobRepo {
	return &JobRepo{db: db}
}

const jobColumns = `id, requested_by, status, imported, skipped, failed_sources, error_message, created_at, completed_at`

func (r *JobRepo) Create(ctx context.Context, j *models.ImportJob) error {
	j.ID = uuid.New()
	j.Status = models.JobPending

	query := `INSERT INTO import_jobs (id, requested_by, status)
		VALUES ($1, $2, $3) RETURNING created_at`

	return r.db.QueryRow(ctx, query, j.ID, j.RequestedBy, j.Status).Scan(&j.CreatedAt)
}

func (r *JobRepo) GetByID(ctx context.Context, id uuid.UUID) (*models.ImportJob, error) {
	j := &models.ImportJob{}
	err := r.db.QueryRow(ctx, `SELECT `+jobColumns+` FROM import_jobs WHERE id = $1`, id).Scan(
		&j.ID, &j.RequestedBy, &j.Status, &j.Imported, &j.Skipped, &j.FailedSources,
		&j.ErrorMessage, &j.CreatedAt, &j.CompletedAt,
	)
	if err != nil {
		return nil, notFoundIfNoRows(err)
	}
	return j, nil
}

func (r *JobRepo) ListRecent(ctx context.Context, limit int) ([]models.ImportJob, error) {
	rows, err := r.db.Query(ctx, `SELECT `+jobColumns+` FROM import_jobs ORDER BY created_at DESC LIMIT $1`, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var jobs []models.ImportJob
	for rows.Next() {
		var j models.ImportJob
		err := rows.Scan(&j.ID, &j.RequestedBy, &j.Status, &j.Imported, &j.Skipped, &j.FailedSources,
			&j.ErrorMessage, &j.CreatedAt, &j.CompletedAt)
		if err != nil {
			return nil, err
		}
		jobs = append(jobs, j)
	}
	return jobs, rows.Err()
}

func (r *JobRepo) MarkProcessing(ctx context.Context, id uuid.UUID) error {
	_, err := r.db.Exec(ctx, "UPDATE import_jobs SET status = $1 WHERE id = $2", models.JobProcessing, id)
	return err
}

func (r *JobRepo) Complete(ctx context.Context, id uuid.UUID, imported, skipped, failedSources int) error {
	_, err := r.db.Exec(ctx, `
		UPDATE import_jobs
		SET status = $1, imported = $2, skipped = $3, failed_sources = $4, completed_at = $5
		WHERE id = $6`,
		models.JobCompleted, imported, skipped, failedSources, time.Now(), id,
	)
	return err
}

func (r *JobRepo) Fail(ctx context.Context, id uuid.UUID, errMsg string) error {
	_, err := r.db.Exec(ctx,
		"UPDATE import_jobs SET status = $1, error_message = $2, completed_at = $3 WHERE id = $4",
		models.JobFailed, errMsg, time.Now(), id,
	)
	return err
}
