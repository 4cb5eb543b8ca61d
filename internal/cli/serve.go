package cli

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"quizarena-backend/internal/database"
	"quizarena-backend/internal/handlers"
	"quizarena-backend/internal/middleware"
	"quizarena-backend/internal/router"
	"quizarena-backend/internal/websocket"
	"quizarena-backend/web"
)

func newServeCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "serve",
		Short: "Start the HTTP server and import workers",
		RunE: func(cmd *cobra.Command, args []string) error {
			return runServer(cmd.Context())
		},
	}
}

func runServer(parent context.Context) error {
	a, err := newApp()
	if err != nil {
		return err
	}
	defer a.Close()
	cfg, logger := a.cfg, a.logger

	ctx, stop := signal.NotifyContext(parent, syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	if err := database.RunMigrations(ctx, cfg.DatabaseURL, logger); err != nil {
		return fmt.Errorf("migrations: %w", err)
	}

	// ──── Handlers ────
	renderer, err := handlers.NewRenderer(web.Templates, logger)
	if err != nil {
		return err
	}
	authHandler := handlers.NewAuthHandler(a.auth, renderer, cfg.CookieSecure, logger)
	quizHandler := handlers.NewQuizHandler(a.quiz, a.questions, a.auth, renderer, cfg.QuizSize, logger)
	adminHandler := handlers.NewAdminHandler(a.auth, a.questions, a.queue, renderer, logger)

	// ──── Workers + live feed ────
	workerPool := a.newWorkerPool()
	workerPool.Start()

	hub := websocket.NewHub(a.redis.Hub, a.auth, cfg.AllowedOrigin, logger)
	go hub.Run(ctx)

	if cfg.AutoSeed {
		a.autoSeed(ctx)
	}

	// Auth rate limiter (10 req/min per IP)
	authLimiter := middleware.NewRateLimiter(10, time.Minute)
	defer authLimiter.Stop()

	handler := router.New(router.Options{
		Resolver:      a.auth,
		Renderer:      renderer,
		AuthHandler:   authHandler,
		QuizHandler:   quizHandler,
		AdminHandler:  adminHandler,
		Hub:           hub,
		AuthLimiter:   authLimiter,
		AllowedOrigin: cfg.AllowedOrigin,
		SecureCookie:  cfg.CookieSecure,
		Logger:        logger,
	})

	server := &http.Server{
		Addr:         ":" + cfg.Port,
		Handler:      handler,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 15 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		logger.Info("quiz arena ready", "addr", "http://localhost:"+cfg.Port)
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
	}()

	select {
	case <-ctx.Done():
		logger.Info("shutting down")
	case err := <-errCh:
		workerPool.Stop()
		return err
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()
	err = server.Shutdown(shutdownCtx)
	workerPool.Stop()
	return err
}

// autoSeed queues an import when the question bank is empty.
func (a *app) autoSeed(ctx context.Context) {
	n, err := a.questions.Count(ctx)
	if err != nil {
		a.logger.Warn("auto-seed: count questions failed", "error", err)
		return
	}
	if n > 0 {
		return
	}
	job, err := a.queue.Enqueue(ctx, "auto-seed")
	if err != nil {
		a.logger.Warn("auto-seed: enqueue failed", "error", err)
		return
	}
	a.logger.Info("question bank empty, import queued", "job_id", job.ID)
}
