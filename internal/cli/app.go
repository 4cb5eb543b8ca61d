package cli

import (
	"fmt"
	"log/slog"
	"net/http"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"

	"quizarena-backend/internal/config"
	"quizarena-backend/internal/database"
	"quizarena-backend/internal/logging"
	"quizarena-backend/internal/middleware"
	"quizarena-backend/internal/repository"
	"quizarena-backend/internal/services"
	"quizarena-backend/internal/worker"
)

// app is the wiring every subcommand shares: connections, repositories and services.
type app struct {
	cfg    *config.Config
	logger *slog.Logger
	pool   *pgxpool.Pool
	redis  *database.RedisClients

	users     *repository.UserRepo
	jobs      *repository.JobRepo
	jwt       *middleware.JWTAuth
	auth      *services.AuthService
	questions *services.QuestionService
	quiz      *services.QuizService
	queue     *services.ImportQueue
	importer  *services.Importer
	sources   []services.Source
	publisher *services.RedisPublisher
}

func newApp() (*app, error) {
	cfg := config.Load()
	logger := logging.New(cfg.LogLevel, cfg.IsProduction())

	pool, err := database.NewPostgresPool(cfg.DatabaseURL)
	if err != nil {
		return nil, fmt.Errorf("postgres: %w", err)
	}
	logger.Info("postgres connected")

	redisClients, err := database.NewRedisClients(cfg.RedisURL, cfg.ImportWorkers)
	if err != nil {
		pool.Close()
		return nil, fmt.Errorf("redis: %w", err)
	}
	logger.Info("redis connected")

	a := &app{cfg: cfg, logger: logger, pool: pool, redis: redisClients}

	// ──── Repositories ────
	a.users = repository.NewUserRepo(pool)
	admins := repository.NewAdminRepo(pool)
	questionRepo := repository.NewQuestionRepo(pool)
	quizRepo := repository.NewQuizRepo(pool)
	statsRepo := repository.NewStatsRepo(pool)
	a.jobs = repository.NewJobRepo(pool)

	// ──── Services ────
	a.jwt = middleware.NewJWTAuth(cfg.SessionSecret, cfg.SessionTTL)
	a.publisher = services.NewRedisPublisher(redisClients.Queue)
	a.auth = services.NewAuthService(a.users, admins, redisClients.Queue, a.jwt, cfg.BcryptCost, cfg.StartingTokens, logger)
	a.questions = services.NewQuestionService(questionRepo, redisClients.Queue, cfg.FacetsTTL, logger)
	a.quiz = services.NewQuizService(questionRepo, quizRepo, statsRepo, a.users, a.publisher, logger)
	a.queue = services.NewImportQueue(a.jobs, redisClients.Queue, logger)

	httpClient := &http.Client{Timeout: cfg.ImportTimeout}
	a.sources = services.SourcesFrom(cfg.ImportSources, httpClient)
	a.importer = services.NewImporter(questionRepo, a.questions, redisClients.Queue, a.importBudget(), logger)

	return a, nil
}

// importBudget bounds one full import: every source may take the whole fetch timeout.
func (a *app) importBudget() time.Duration {
	return a.cfg.ImportTimeout*time.Duration(len(a.sources)+1) + 30*time.Second
}

func (a *app) newWorkerPool() *worker.Pool {
	return worker.NewPool(
		a.redis.Queue,
		a.jobs,
		a.importer,
		a.sources,
		a.publisher,
		a.logger,
		a.cfg.ImportWorkers,
		a.importBudget(),
	)
}

func (a *app) Close() {
	a.redis.Close()
	a.pool.Close()
}
