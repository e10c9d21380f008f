package main

import (
	"errors"
	"fmt"
	"strings"

	"github.com/spf13/cobra"
	"jiradataset/pkg/checkpoint"
	"jiradataset/pkg/storage"
	"jiradataset/pkg/ui"
)

func newCheckpointCmd(root *rootOptions) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "checkpoint",
		Short: "Inspect or reset scrape checkpoints",
		Long: `Inspect or reset the per-project checkpoints that let a scrape resume.

A checkpoint records the last page saved for a project. Resetting it makes
the next scrape start that project from the first page.`,
	}

	cmd.AddCommand(newCheckpointShowCmd(root), newCheckpointResetCmd(root))
	return cmd
}

func newCheckpointShowCmd(root *rootOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "show",
		Short: "Show the stored checkpoints and raw page counts",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, log, err := root.loadConfig(cmd, nil)
			if err != nil {
				return err
			}

			store, closeStore, err := checkpoint.Open(cmd.Context(), cfg.Checkpoint, log)
			if err != nil {
				return err
			}
			defer closeStore()

			entries, err := store.All(cmd.Context())
			if err != nil {
				return err
			}

			ui.PrintHighlight("Checkpoints (" + store.Backend() + ")")
			ui.PrintCheckpoints(entries)

			pages, err := storage.NewPageStore(cfg.Storage.RawDir)
			if err != nil {
				return err
			}
			projects, err := pages.Projects()
			if err != nil {
				return err
			}
			if len(projects) > 0 {
				counts := make(map[string]int, len(projects))
				for _, project := range projects {
					counts[project] = pages.Count(project)
				}
				fmt.Fprintln(ui.Output)
				ui.PrintCounts("Raw pages", "PAGES", cfg.Scrape.Projects, counts)
			}
			return nil
		},
	}
}

func newCheckpointResetCmd(root *rootOptions) *cobra.Command {
	var all bool

	cmd := &cobra.Command{
		Use:   "reset [project...]",
		Short: "Delete checkpoints so projects are scraped from the start",
		Long: `Delete the checkpoint of each named project, or of every project with --all.

The file backend copies the current checkpoint document to <path>.backup first.
Raw pages already saved are left in place and are overwritten by the next scrape.`,
		Example: `  # Reset one project
  jiradataset checkpoint reset KAFKA

  # Reset everything
  jiradataset checkpoint reset --all`,
		RunE: func(cmd *cobra.Command, args []string) error {
			if len(args) == 0 && !all {
				return errors.New("name at least one project or pass --all")
			}
			if len(args) > 0 && all {
				return errors.New("--all cannot be combined with project names")
			}

			cfg, log, err := root.loadConfig(cmd, nil)
			if err != nil {
				return err
			}

			store, closeStore, err := checkpoint.Open(cmd.Context(), cfg.Checkpoint, log)
			if err != nil {
				return err
			}
			defer closeStore()

			if fs, ok := store.(*checkpoint.FileStore); ok {
				if err := fs.Backup(); err != nil {
					return err
				}
			}

			if all {
				if err := store.Reset(cmd.Context(), ""); err != nil {
					return err
				}
				ui.PrintSuccess("All checkpoints reset")
				return nil
			}

			for _, project := range args {
				project = strings.ToUpper(strings.TrimSpace(project))
				if err := store.Reset(cmd.Context(), project); err != nil {
					return err
				}
				ui.PrintSuccess("Checkpoint reset: " + project)
			}
			return nil
		},
	}

	cmd.Flags().BoolVar(&all, "all", false, "reset every project")
	return cmd
}
