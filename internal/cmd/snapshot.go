package cmd

import (
	"fmt"

	"github.com/harrison/benchmaker/internal/filelock"
	"github.com/harrison/benchmaker/internal/logger"
	"github.com/harrison/benchmaker/internal/models"
	"github.com/harrison/benchmaker/internal/store"
	"github.com/spf13/cobra"
)

// newSnapshotCommand creates the 'benchmaker snapshot' parent command
func newSnapshotCommand(opts *rootOptions) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "snapshot",
		Short: "Read or replace the whole database as one document",
		Long: `Read or replace the whole database as one JSON document holding every
suite, run and the session pointer.

Writing a snapshot replaces the stored state: suites and runs missing from
the document are deleted.`,
	}

	cmd.AddCommand(newSnapshotReadCommand(opts))
	cmd.AddCommand(newSnapshotWriteCommand(opts))

	return cmd
}

func newSnapshotReadCommand(opts *rootOptions) *cobra.Command {
	var output string

	cmd := &cobra.Command{
		Use:   "read",
		Short: "Print the whole database as JSON",
		Long: `Print the whole database as JSON, or write it to --output. The output
file is replaced atomically, so an interrupted export never leaves a
partial document behind.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return opts.withStore(cmd, func(s *store.Store, log *logger.ConsoleLogger) error {
				snap, err := s.ReadSnapshot(cmd.Context())
				if err != nil {
					return fmt.Errorf("failed to read snapshot: %w", err)
				}

				if output == "" {
					return writeJSON(cmd, snap)
				}

				data, err := marshalJSON(snap)
				if err != nil {
					return err
				}
				if err := filelock.LockAndWrite(output, data); err != nil {
					return fmt.Errorf("failed to write snapshot: %w", err)
				}
				log.LogSummary("Snapshot exported to "+output, logger.Summarize(snap))
				return nil
			})
		},
	}

	cmd.Flags().StringVarP(&output, "output", "o", "", "Write to this file instead of stdout")

	return cmd
}

func newSnapshotWriteCommand(opts *rootOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "write <file|->",
		Short: "Replace the database contents with a snapshot document",
		Long: `Replace the database contents with a snapshot document. Keys this
version does not know are ignored, so documents written by older
releases are accepted. Use "-" to read from stdin.`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			var snap models.Snapshot
			if err := readLenientJSONInput(cmd, args[0], &snap); err != nil {
				return err
			}
			return opts.withStore(cmd, func(s *store.Store, log *logger.ConsoleLogger) error {
				if err := s.WriteSnapshot(cmd.Context(), &snap); err != nil {
					return fmt.Errorf("failed to write snapshot: %w", err)
				}
				log.LogSummary("Snapshot written", logger.Summarize(&snap))
				return nil
			})
		},
	}
}
