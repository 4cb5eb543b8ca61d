package cli

import (
	"fmt"

	"github.com/spf13/cobra"

	"quizarena-backend/internal/models"
)

func newImportCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "import",
		Short: "Run a bulk question import in the foreground",
		RunE: func(cmd *cobra.Command, args []string) error {
			a, err := newApp()
			if err != nil {
				return err
			}
			defer a.Close()

			ctx := cmd.Context()
			job := &models.ImportJob{RequestedBy: "cli"}
			if err := a.jobs.Create(ctx, job); err != nil {
				return fmt.Errorf("create import job: %w", err)
			}

			a.newWorkerPool().Process(ctx, job)

			out := cmd.OutOrStdout()
			if job.Status == models.JobFailed {
				msg := ""
				if job.ErrorMessage != nil {
					msg = *job.ErrorMessage
				}
				return fmt.Errorf("import %s failed: %s", job.ID, msg)
			}
			fmt.Fprintf(out, "import %s: %d imported, %d skipped, %d failed sources\n",
				job.ID, job.Imported, job.Skipped, job.FailedSources)
			return nil
		},
	}
}
