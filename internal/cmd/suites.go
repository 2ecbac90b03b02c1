package cmd

import (
	"fmt"
	"os"

	"github.com/harrison/benchmaker/internal/logger"
	"github.com/harrison/benchmaker/internal/models"
	"github.com/harrison/benchmaker/internal/parser"
	"github.com/harrison/benchmaker/internal/store"
	"github.com/spf13/cobra"
)

// newSuitesCommand creates the 'benchmaker suites' parent command
func newSuitesCommand(opts *rootOptions) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "suites",
		Short: "List, save, delete and import test suites",
	}

	cmd.AddCommand(&cobra.Command{
		Use:   "list",
		Short: "Print every suite with its cases as JSON",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return opts.withStore(cmd, func(s *store.Store, _ *logger.ConsoleLogger) error {
				suites, err := s.ListSuites(cmd.Context())
				if err != nil {
					return fmt.Errorf("failed to list suites: %w", err)
				}
				return writeJSON(cmd, suites)
			})
		},
	})

	cmd.AddCommand(&cobra.Command{
		Use:   "save <file|->",
		Short: "Insert or update a suite from a JSON document",
		Long: `Insert or update a suite from a JSON document, replacing all of its
cases with the cases in the document. Use "-" to read from stdin.`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			var suite models.TestSuite
			if err := readJSONInput(cmd, args[0], &suite); err != nil {
				return err
			}
			return opts.withStore(cmd, func(s *store.Store, log *logger.ConsoleLogger) error {
				if err := s.SaveSuite(cmd.Context(), &suite); err != nil {
					return fmt.Errorf("failed to save suite %s: %w", suite.ID, err)
				}
				log.LogInfo(fmt.Sprintf("Saved suite %s with %d cases", suite.ID, len(suite.TestCases)))
				return nil
			})
		},
	})

	cmd.AddCommand(&cobra.Command{
		Use:   "delete <id>",
		Short: "Delete a suite and its cases",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return opts.withStore(cmd, func(s *store.Store, log *logger.ConsoleLogger) error {
				if err := s.DeleteSuite(cmd.Context(), args[0]); err != nil {
					return fmt.Errorf("failed to delete suite %s: %w", args[0], err)
				}
				log.LogInfo(fmt.Sprintf("Deleted suite %s", args[0]))
				return nil
			})
		},
	})

	cmd.AddCommand(newSuitesImportCommand(opts))

	return cmd
}

func newSuitesImportCommand(opts *rootOptions) *cobra.Command {
	var recursive bool

	cmd := &cobra.Command{
		Use:   "import <file|dir>",
		Short: "Import suites from Markdown, YAML or JSON files",
		Long: `Import suites written as Markdown (.md), YAML (.yaml, .yml) or JSON (.json).

Given a directory, every suite file directly inside it is imported in
path order; --recursive also searches subdirectories. Suites and cases
without an id get a generated one. The id of each imported suite is
printed on its own line.

Markdown layout:
  # Suite name
  Description paragraphs.
  ## System Prompt
  ## Judge Prompt
  ## Case: optional-id
  - scoring: exact
  - weight: 1
  Prompt paragraphs, then an optional ` + "```expected" + ` block.`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			suites, err := parseSuites(args[0], recursive)
			if err != nil {
				return err
			}

			return opts.withStore(cmd, func(s *store.Store, log *logger.ConsoleLogger) error {
				for _, suite := range suites {
					if err := s.SaveSuite(cmd.Context(), suite); err != nil {
						return fmt.Errorf("failed to save suite %q: %w", suite.Name, err)
					}
					log.LogInfo(fmt.Sprintf("Imported suite %q (%d cases)", suite.Name, len(suite.TestCases)))
					fmt.Fprintln(cmd.OutOrStdout(), suite.ID)
				}
				return nil
			})
		},
	}

	cmd.Flags().BoolVarP(&recursive, "recursive", "r", false, "Search subdirectories of a directory argument")

	return cmd
}

func parseSuites(path string, recursive bool) ([]*models.TestSuite, error) {
	info, err := os.Stat(path)
	if err != nil {
		return nil, fmt.Errorf("failed to access path: %w", err)
	}
	if info.IsDir() {
		return parser.ParseDirectory(path, recursive)
	}

	suite, err := parser.ParseFile(path)
	if err != nil {
		return nil, err
	}
	return []*models.TestSuite{suite}, nil
}
