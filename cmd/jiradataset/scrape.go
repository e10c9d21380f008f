package main

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/spf13/cobra"
	"jiradataset/pkg/pipeline"
	"jiradataset/pkg/scraper"
	"jiradataset/pkg/ui"
)

// scrapeOptions holds the flags shared by scrape and run
type scrapeOptions struct {
	limit      int
	resume     bool
	pageSize   int
	rateLimit  int
	maxRetries int
}

func (o *scrapeOptions) addFlags(cmd *cobra.Command) {
	cmd.Flags().IntVar(&o.limit, "limit", 0, "maximum issues per project (0 = no limit)")
	cmd.Flags().BoolVar(&o.resume, "resume", true, "resume from the last checkpoint")
	cmd.Flags().IntVar(&o.pageSize, "page-size", 50, "issues per search page (max 100)")
	cmd.Flags().IntVar(&o.rateLimit, "rate-limit", 0, "requests per minute (0 = unpaced)")
	cmd.Flags().IntVar(&o.maxRetries, "max-retries", 3, "retries per page on transient failures")
}

func (o *scrapeOptions) overrides(cmd *cobra.Command) map[string]interface{} {
	flags := make(map[string]interface{})
	setIfChanged(cmd, flags, "limit", o.limit)
	setIfChanged(cmd, flags, "resume", o.resume)
	setIfChanged(cmd, flags, "page-size", o.pageSize)
	if cmd.Flags().Changed("rate-limit") {
		flags["requests-per-minute"] = o.rateLimit
	}
	setIfChanged(cmd, flags, "max-retries", o.maxRetries)
	return flags
}

func newScrapeCmd(root *rootOptions) *cobra.Command {
	opts := &scrapeOptions{}

	cmd := &cobra.Command{
		Use:   "scrape",
		Short: "Fetch raw search pages for every project",
		Long: `Fetch every configured project page by page from the Jira search API.

Each page is saved as {PROJECT}_page_{N}.json in the raw directory and the
page index is checkpointed right after. With --resume (the default) a project
restarts at its checkpointed page.`,
		Example: `  # Scrape the default projects
  jiradataset scrape

  # Scrape two projects, at most 500 issues each
  jiradataset scrape --projects SPARK,KAFKA --limit 500

  # Start over, ignoring checkpoints
  jiradataset scrape --resume=false`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, log, err := root.loadConfig(cmd, opts.overrides(cmd))
			if err != nil {
				return err
			}
			applyCredentials(cfg, log)

			ui.PrintInfo("Projects", strings.Join(cfg.Scrape.Projects, ", "))
			result, err := pipeline.New(cfg, log).Scrape(cmd.Context())
			printScrapeResult(result)
			return err
		},
	}

	opts.addFlags(cmd)
	return cmd
}

func newTransformCmd(root *rootOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "transform",
		Short: "Clean raw pages into per-project issue files",
		Long: `Read every raw page of each project in page order and write the cleaned
issues to {PROJECT}_processed.json in the processed directory. Projects are
transformed concurrently.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, log, err := root.loadConfig(cmd, nil)
			if err != nil {
				return err
			}

			counts, err := pipeline.New(cfg, log).Transform(cmd.Context())
			if counts != nil {
				ui.PrintCounts("Transform", "ISSUES", cfg.Scrape.Projects, counts)
			}
			return interruptible(err)
		},
	}
}

func newTasksCmd(root *rootOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "tasks",
		Short: "Derive training tasks and write the final dataset",
		Long: `Add summarization, classification and QnA tasks to every processed issue
and write the records to the JSONL dataset, plus PostgreSQL when a DSN is set.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, log, err := root.loadConfig(cmd, nil)
			if err != nil {
				return err
			}

			records, err := pipeline.New(cfg, log).Tasks(cmd.Context())
			if err != nil {
				return interruptible(err)
			}
			ui.PrintInfo("Records", fmt.Sprintf("%d", records))
			ui.PrintInfo("Output", pipeline.OutputPath(cfg))
			return nil
		},
	}
}

func newRunCmd(root *rootOptions) *cobra.Command {
	opts := &scrapeOptions{}
	var testMode bool

	cmd := &cobra.Command{
		Use:   "run",
		Short: "Run scrape, transform and tasks in order",
		Example: `  # Full run over the default projects
  jiradataset run

  # Quick run with 100 issues per project
  jiradataset run --test`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			flags := opts.overrides(cmd)
			if testMode || cmd.Flags().Changed("limit") {
				flags["limit"] = pipeline.IssueLimit(opts.limit, testMode)
			}

			cfg, log, err := root.loadConfig(cmd, flags)
			if err != nil {
				return err
			}
			applyCredentials(cfg, log)

			ui.PrintBanner()
			ui.PrintInfo("Projects", strings.Join(cfg.Scrape.Projects, ", "))
			if testMode {
				ui.PrintWarning("Test mode", fmt.Sprintf("%d issues per project", pipeline.TestModeIssueLimit))
			}

			report, err := pipeline.New(cfg, log).Run(cmd.Context())
			printReport(report, cfg.Scrape.Projects, err == nil)
			return err
		},
	}

	opts.addFlags(cmd)
	cmd.Flags().BoolVar(&testMode, "test", false, fmt.Sprintf("limit each project to %d issues", pipeline.TestModeIssueLimit))
	return cmd
}

func printScrapeResult(result *scraper.Result) {
	if result == nil {
		return
	}
	ui.PrintCounts("Scrape", "PAGES", result.Order, result.Pages)
	if result.Interrupted {
		ui.PrintWarning("Interrupted, progress saved in checkpoints")
	}
}

// printReport prints the stage tables; the dataset summary only when the run
// completed
func printReport(report *pipeline.Report, projects []string, completed bool) {
	if report == nil {
		return
	}

	printScrapeResult(report.Scrape)
	if report.Transformed != nil {
		ui.PrintCounts("Transform", "ISSUES", projects, report.Transformed)
	}
	if report.Interrupted {
		if report.Scrape == nil || !report.Scrape.Interrupted {
			ui.PrintWarning("Interrupted")
		}
		return
	}
	if !completed {
		return
	}
	ui.PrintInfo("Records", fmt.Sprintf("%d", report.Records))
	ui.PrintInfo("Output", report.OutputPath)
	ui.PrintInfo("Duration", report.Duration.Round(100*time.Millisecond).String())
}

// interruptible turns a cancelled offline stage into a warning
func interruptible(err error) error {
	if err == nil {
		return nil
	}
	if errors.Is(err, context.Canceled) {
		ui.PrintWarning("Interrupted")
		return nil
	}
	return err
}
