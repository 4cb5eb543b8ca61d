package cli

import (
	"github.com/spf13/cobra"

	"quizarena-backend/internal/config"
	"quizarena-backend/internal/database"
	"quizarena-backend/internal/logging"
)

func newMigrateCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "migrate",
		Short: "Apply pending database migrations",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg := config.Load()
			logger := logging.New(cfg.LogLevel, cfg.IsProduction())
			return database.RunMigrations(cmd.Context(), cfg.DatabaseURL, logger)
		},
	}
}
