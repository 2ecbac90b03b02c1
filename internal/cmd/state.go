package cmd

import (
	"fmt"

	"github.com/harrison/benchmaker/internal/logger"
	"github.com/harrison/benchmaker/internal/models"
	"github.com/harrison/benchmaker/internal/store"
	"github.com/spf13/cobra"
)

// newStateCommand creates the 'benchmaker state' parent command
func newStateCommand(opts *rootOptions) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "state",
		Short: "Show or change the active suite and current run",
	}

	cmd.AddCommand(&cobra.Command{
		Use:   "get",
		Short: "Print the session pointer as JSON",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return opts.withStore(cmd, func(s *store.Store, _ *logger.ConsoleLogger) error {
				state, err := s.GetAppState(cmd.Context())
				if err != nil {
					return fmt.Errorf("failed to read app state: %w", err)
				}
				return writeJSON(cmd, state)
			})
		},
	})

	cmd.AddCommand(newStateSetCommand(opts))

	return cmd
}

func newStateSetCommand(opts *rootOptions) *cobra.Command {
	var suiteID, runID string

	cmd := &cobra.Command{
		Use:   "set",
		Short: "Change the active suite and/or current run",
		Long: `Change the active suite and/or current run. Only the flags given are
changed; an empty value clears the pointer. Ids are not checked against
stored suites or runs.

Examples:
  benchmaker state set --suite arithmetic
  benchmaker state set --run ""`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			suiteChanged := cmd.Flags().Changed("suite")
			runChanged := cmd.Flags().Changed("run")
			if !suiteChanged && !runChanged {
				return fmt.Errorf("nothing to change: pass --suite and/or --run")
			}

			return opts.withStore(cmd, func(s *store.Store, _ *logger.ConsoleLogger) error {
				state, err := s.GetAppState(cmd.Context())
				if err != nil {
					return fmt.Errorf("failed to read app state: %w", err)
				}
				if suiteChanged {
					state.ActiveTestSuiteID = models.StringPtr(suiteID)
				}
				if runChanged {
					state.CurrentRunID = models.StringPtr(runID)
				}
				if err := s.SaveAppState(cmd.Context(), state); err != nil {
					return fmt.Errorf("failed to save app state: %w", err)
				}
				return writeJSON(cmd, state)
			})
		},
	}

	cmd.Flags().StringVar(&suiteID, "suite", "", "Active test suite id (empty clears)")
	cmd.Flags().StringVar(&runID, "run", "", "Current run id (empty clears)")

	return cmd
}
