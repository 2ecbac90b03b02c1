package cmd

import (
	"fmt"

	"github.com/harrison/benchmaker/internal/logger"
	"github.com/harrison/benchmaker/internal/models"
	"github.com/harrison/benchmaker/internal/store"
	"github.com/spf13/cobra"
)

// newRunsCommand creates the 'benchmaker runs' parent command
func newRunsCommand(opts *rootOptions) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "runs",
		Short: "List, save and delete benchmark runs",
	}

	cmd.AddCommand(&cobra.Command{
		Use:   "list",
		Short: "Print every run with its results as JSON",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return opts.withStore(cmd, func(s *store.Store, _ *logger.ConsoleLogger) error {
				runs, err := s.ListRuns(cmd.Context())
				if err != nil {
					return fmt.Errorf("failed to list runs: %w", err)
				}
				return writeJSON(cmd, runs)
			})
		},
	})

	cmd.AddCommand(&cobra.Command{
		Use:   "save <file|->",
		Short: "Insert a run, or update the status of an existing one",
		Long: `Insert a run from a JSON document. When the run already exists only its
status and completion time are updated; its results are always replaced
with the results in the document. Use "-" to read from stdin.`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			var run models.RunResult
			if err := readJSONInput(cmd, args[0], &run); err != nil {
				return err
			}
			return opts.withStore(cmd, func(s *store.Store, log *logger.ConsoleLogger) error {
				if err := s.SaveRun(cmd.Context(), &run); err != nil {
					return fmt.Errorf("failed to save run %s: %w", run.ID, err)
				}
				log.LogInfo(fmt.Sprintf("Saved run %s (%s) with %d results", run.ID, run.Status, len(run.Results)))
				return nil
			})
		},
	})

	cmd.AddCommand(&cobra.Command{
		Use:   "delete <id>",
		Short: "Delete a run and its results",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return opts.withStore(cmd, func(s *store.Store, log *logger.ConsoleLogger) error {
				if err := s.DeleteRun(cmd.Context(), args[0]); err != nil {
					return fmt.Errorf("failed to delete run %s: %w", args[0], err)
				}
				log.LogInfo(fmt.Sprintf("Deleted run %s", args[0]))
				return nil
			})
		},
	})

	return cmd
}
