package worker

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"sync"
	"time"

	"github.com/redis/go-redis/v9"

	"quizarena-backend/internal/models"
	"quizarena-backend/internal/services"
)

type ImportRunner interface {
	Run(ctx context.Context, sources []services.Source) ([]models.ImportReport, error)
}

// Pool consumes import jobs from Redis and runs them through the importer.
type Pool struct {
	redis       *redis.Client
	jobs        services.JobStore
	importer    ImportRunner
	sources     []services.Source
	publisher   services.Publisher
	logger      *slog.Logger
	workerCount int
	jobTimeout  time.Duration
	pollTimeout time.Duration

	stopChan chan struct{}
	wg       sync.WaitGroup
}

func NewPool(
	redisClient *redis.Client,
	jobs services.JobStore,
	importer ImportRunner,
	sources []services.Source,
	publisher services.Publisher,
	logger *slog.Logger,
	workerCount int,
	jobTimeout time.Duration,
) *Pool {
	if workerCount < 1 {
		workerCount = 1
	}
	return &Pool{
		redis:       redisClient,
		jobs:        jobs,
		importer:    importer,
		sources:     sources,
		publisher:   publisher,
		logger:      logger,
		workerCount: workerCount,
		jobTimeout:  jobTimeout,
		pollTimeout: 5 * time.Second,
		stopChan:    make(chan struct{}),
	}
}

func (p *Pool) Start() {
	for i := 0; i < p.workerCount; i++ {
		p.wg.Add(1)
		go p.worker(i)
	}
	p.logger.Info("worker pool started", "workers", p.workerCount, "queue", services.ImportQueueKey)
}

// Stop signals the workers and waits for in-flight jobs to finish.
func (p *Pool) Stop() {
	close(p.stopChan)
	p.wg.Wait()
}

func (p *Pool) worker(id int) {
	defer p.wg.Done()
	log := p.logger.With("worker", id)

	for {
		select {
		case <-p.stopChan:
			log.Info("worker shutting down")
			return
		default:
		}

		ctx := context.Background()

		result, err := p.redis.BLPop(ctx, p.pollTimeout, services.ImportQueueKey).Result()
		if err != nil {
			if !errors.Is(err, redis.Nil) {
				log.Warn("queue poll failed", "error", err)
				time.Sleep(time.Second)
			}
			continue
		}
		if len(result) < 2 {
			continue
		}

		var job models.ImportJob
		if err := json.Unmarshal([]byte(result[1]), &job); err != nil {
			log.Error("failed to parse job", "error", err)
			continue
		}

		p.Process(ctx, &job)
	}
}

// Process runs one import job to a terminal status. The CLI calls it directly.
func (p *Pool) Process(ctx context.Context, job *models.ImportJob) {
	log := p.logger.With("job_id", job.ID)
	log.Info("processing import job", "requested_by", job.RequestedBy)

	if err := p.jobs.MarkProcessing(ctx, job.ID); err != nil {
		log.Warn("mark processing failed", "error", err)
	}
	job.Status = models.JobProcessing
	p.publishStatus(ctx, job)

	runCtx, cancel := context.WithTimeout(ctx, p.jobTimeout)
	reports, err := p.importer.Run(runCtx, p.sources)
	cancel()

	if err != nil {
		log.Error("import job failed", "error", err)
		if failErr := p.jobs.Fail(ctx, job.ID, err.Error()); failErr != nil {
			log.Error("record job failure failed", "error", failErr)
		}
		msg := err.Error()
		job.Status = models.JobFailed
		job.ErrorMessage = &msg
		p.publishStatus(ctx, job)
		return
	}

	job.Imported, job.Skipped, job.FailedSources = services.Totals(reports)
	if err := p.jobs.Complete(ctx, job.ID, job.Imported, job.Skipped, job.FailedSources); err != nil {
		log.Error("record job completion failed", "error", err)
	}
	job.Status = models.JobCompleted
	p.publishStatus(ctx, job)

	log.Info("import job completed",
		"imported", job.Imported,
		"skipped", job.Skipped,
		"failed_sources", job.FailedSources,
	)
}

func (p *Pool) publishStatus(ctx context.Context, job *models.ImportJob) {
	if p.publisher == nil {
		return
	}
	msg := models.WSMessage{
		Type: "import_status",
		Payload: models.ImportStatusUpdate{
			JobID:    job.ID,
			Status:   job.Status,
			Imported: job.Imported,
			Skipped:  job.Skipped,
		},
	}
	if err := p.publisher.Publish(ctx, services.ImportsChannel, msg); err != nil {
		p.logger.Warn("publish import status failed", "job_id", job.ID, "error", err)
	}
}
