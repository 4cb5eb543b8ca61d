package services

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"

	"quizarena-backend/internal/models"
)

// ImportQueueKey is the Redis list import jobs are pushed to.
const ImportQueueKey = "queue:question-import"

type JobStore interface {
	Create(ctx context.Context, j *models.ImportJob) error
	GetByID(ctx context.Context, id uuid.UUID) (*models.ImportJob, error)
	ListRecent(ctx context.Context, limit int) ([]models.ImportJob, error)
	MarkProcessing(ctx context.Context, id uuid.UUID) error
	Complete(ctx context.Context, id uuid.UUID, imported, skipped, failedSources int) error
	Fail(ctx context.Context, id uuid.UUID, errMsg string) error
}

type ImportQueue struct {
	jobs   JobStore
	redis  *redis.Client
	logger *slog.Logger
}

func NewImportQueue(jobs JobStore, redisClient *redis.Client, logger *slog.Logger) *ImportQueue {
	return &ImportQueue{jobs: jobs, redis: redisClient, logger: logger}
}

// Enqueue records a pending job row and pushes it for the worker pool.
func (q *ImportQueue) Enqueue(ctx context.Context, requestedBy string) (*models.ImportJob, error) {
	job := &models.ImportJob{RequestedBy: requestedBy}
	if err := q.jobs.Create(ctx, job); err != nil {
		return nil, fmt.Errorf("create import job: %w", err)
	}

	data, err := json.Marshal(job)
	if err != nil {
		return nil, err
	}
	if err := q.redis.RPush(ctx, ImportQueueKey, data).Err(); err != nil {
		if failErr := q.jobs.Fail(ctx, job.ID, "enqueue failed"); failErr != nil {
			q.logger.Error("record job failure failed", "job_id", job.ID, "error", failErr)
		}
		return nil, fmt.Errorf("enqueue import job: %w", err)
	}

	q.logger.Info("import job enqueued", "job_id", job.ID, "requested_by", requestedBy)
	return job, nil
}

func (q *ImportQueue) Recent(ctx context.Context, limit int) ([]models.ImportJob, error) {
	return q.jobs.ListRecent(ctx, limit)
}

func (q *ImportQueue) Get(ctx context.Context, id uuid.UUID) (*models.ImportJob, error) {
	job, err := q.jobs.GetByID(ctx, id)
	if err != nil {
		return nil, notFound(err, "Import job not found")
	}
	return job, nil
}
