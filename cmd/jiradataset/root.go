package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"runtime"
	"syscall"

	"github.com/spf13/cobra"
	"jiradataset/pkg/auth"
	"jiradataset/pkg/config"
	"jiradataset/pkg/logger"
	"jiradataset/pkg/ui"
)

var (
	// Version information
	version   = "1.0.0"
	gitCommit = "unknown"
	buildDate = "unknown"
)

// rootOptions holds the global flags shared by every command
type rootOptions struct {
	configFile        string
	logLevel          string
	logFile           string
	projects          []string
	baseURL           string
	rawDir            string
	processedDir      string
	outputDir         string
	checkpointBackend string
	checkpointPath    string
	redisAddr         string
	postgresDSN       string
	metricsAddr       string
}

func newRootCmd() *cobra.Command {
	opts := &rootOptions{}

	cmd := &cobra.Command{
		Use:   "jiradataset",
		Short: "Build an LLM training dataset from public Jira issues",
		Long: `jiradataset scrapes issues from a Jira search API, cleans them and derives
training tasks (summarization, classification, QnA) for every issue.

Stages:
  scrape     fetch raw search pages per project, resumable through checkpoints
  transform  clean the raw pages into one issue file per project
  tasks      derive training tasks and write the final dataset
  run        all three stages in order

Interrupting a scrape with Ctrl+C keeps every saved page and checkpoint;
the next run resumes where it stopped.`,
		Version:       fmt.Sprintf("%s (commit: %s, built: %s)", version, gitCommit, buildDate),
		SilenceUsage:  true,
		SilenceErrors: true,
	}

	pf := cmd.PersistentFlags()
	pf.StringVarP(&opts.configFile, "config", "c", "", "config file (default is ./.jiradataset.yaml or ~/.config/jiradataset/config.yaml)")
	pf.StringVar(&opts.logLevel, "log-level", "info", "log level (debug, info, warn, error)")
	pf.StringVar(&opts.logFile, "log-file", "", "also write JSON logs to this file")
	pf.StringSliceVarP(&opts.projects, "projects", "p", nil, "comma separated project keys (default SPARK,KAFKA,HADOOP)")
	pf.StringVar(&opts.baseURL, "base-url", "", "Jira REST API base URL")
	pf.StringVar(&opts.rawDir, "raw-dir", "", "directory for raw search pages")
	pf.StringVar(&opts.processedDir, "processed-dir", "", "directory for processed issue files")
	pf.StringVar(&opts.outputDir, "output-dir", "", "directory for the final dataset")
	pf.StringVar(&opts.checkpointBackend, "checkpoint-backend", "", "checkpoint backend (file, redis)")
	pf.StringVar(&opts.checkpointPath, "checkpoint-path", "", "checkpoint file for the file backend")
	pf.StringVar(&opts.redisAddr, "redis-addr", "", "redis address for the redis checkpoint backend")
	pf.StringVar(&opts.postgresDSN, "postgres-dsn", "", "also upsert the dataset into this PostgreSQL database")
	pf.StringVar(&opts.metricsAddr, "metrics-addr", "", "serve Prometheus metrics on this address")

	cmd.SetVersionTemplate(`jiradataset {{.Version}}
Go Version: ` + runtime.Version() + `
OS/Arch: ` + runtime.GOOS + `/` + runtime.GOARCH + `
`)

	cmd.CompletionOptions.DisableDefaultCmd = true

	cmd.AddCommand(
		newScrapeCmd(opts),
		newTransformCmd(opts),
		newTasksCmd(opts),
		newRunCmd(opts),
		newCheckpointCmd(opts),
		newConfigCmd(opts),
		newAuthCmd(),
	)

	return cmd
}

// Execute runs the root command. SIGINT and SIGTERM cancel the command
// context so stages stop at their next suspension point.
func Execute() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := newRootCmd().ExecuteContext(ctx); err != nil {
		ui.PrintError("Error", err)
		stop()
		os.Exit(1)
	}
}

// flagOverrides collects the global flags set on the command line, keyed the
// way config.MergeCommandLineFlags expects
func (o *rootOptions) flagOverrides(cmd *cobra.Command) map[string]interface{} {
	flags := make(map[string]interface{})
	setIfChanged(cmd, flags, "log-level", o.logLevel)
	setIfChanged(cmd, flags, "log-file", o.logFile)
	setIfChanged(cmd, flags, "projects", o.projects)
	setIfChanged(cmd, flags, "base-url", o.baseURL)
	setIfChanged(cmd, flags, "raw-dir", o.rawDir)
	setIfChanged(cmd, flags, "processed-dir", o.processedDir)
	setIfChanged(cmd, flags, "output-dir", o.outputDir)
	setIfChanged(cmd, flags, "checkpoint-backend", o.checkpointBackend)
	setIfChanged(cmd, flags, "checkpoint-path", o.checkpointPath)
	setIfChanged(cmd, flags, "redis-addr", o.redisAddr)
	setIfChanged(cmd, flags, "postgres-dsn", o.postgresDSN)
	setIfChanged(cmd, flags, "metrics-addr", o.metricsAddr)
	return flags
}

func setIfChanged(cmd *cobra.Command, flags map[string]interface{}, name string, value interface{}) {
	if cmd.Flags().Changed(name) {
		flags[name] = value
	}
}

// loadConfig resolves the configuration for cmd and starts the global logger
func (o *rootOptions) loadConfig(cmd *cobra.Command, extra map[string]interface{}) (*config.Config, logger.Logger, error) {
	flags := o.flagOverrides(cmd)
	for k, v := range extra {
		flags[k] = v
	}

	cfg, err := config.Load(o.configFile, flags)
	if err != nil {
		return nil, nil, err
	}

	if err := logger.Initialize(&cfg.Logging); err != nil {
		return nil, nil, fmt.Errorf("failed to initialize logger: %w", err)
	}
	log := logger.GetLogger()
	log.WithField("version", version).Debug("jiradataset starting")

	return cfg, log, nil
}

// applyCredentials fills in stored credentials when none were configured.
// Without credentials requests go out anonymously.
func applyCredentials(cfg *config.Config, log logger.Logger) {
	if cfg.Jira.Username != "" && cfg.Jira.APIToken != "" {
		log.WithField("username", cfg.Jira.Username).Info("Using configured credentials")
		return
	}

	manager, err := auth.NewManager()
	if err != nil {
		log.WithError(err).Warn("Credential manager unavailable, using anonymous access")
		return
	}

	if manager.Apply(&cfg.Jira) {
		log.WithField("username", cfg.Jira.Username).Info("Using stored credentials")
		return
	}
	log.Info("No credentials found, using anonymous access")
}
