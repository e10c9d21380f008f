package main

import (
	"fmt"
	"net/url"
	"os"
	"path/filepath"

	"github.com/spf13/cobra"
	"gopkg.in/yaml.v3"
	"jiradataset/pkg/auth"
	"jiradataset/pkg/config"
	"jiradataset/pkg/ui"
)

// defaultConfigPath is where config init writes when --config is not set
const defaultConfigPath = ".jiradataset.yaml"

func newConfigCmd(root *rootOptions) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "config",
		Short: "Manage configuration files",
		Long: `Manage jiradataset configuration files.

Configuration can be loaded from:
  - Command line flags (highest priority)
  - Environment variables (JIRADATASET_*)
  - .env files
  - Configuration file
  - Default values (lowest priority)`,
	}

	cmd.AddCommand(
		newConfigInitCmd(root),
		newConfigShowCmd(root),
		newConfigValidateCmd(root),
	)
	return cmd
}

func newConfigInitCmd(root *rootOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "init",
		Short: "Write a configuration file with the default values",
		Long: `Write a configuration file holding every option at its default value.

The file is created as '` + defaultConfigPath + `' in the current directory
unless a different path is given with --config.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			path := root.configFile
			if path == "" {
				path = defaultConfigPath
			}

			if _, err := os.Stat(path); err == nil {
				return fmt.Errorf("configuration file already exists: %s", path)
			}

			if err := config.DefaultConfig().Save(path); err != nil {
				return err
			}

			ui.PrintSuccess("Configuration file created: " + path)
			fmt.Fprintln(ui.Output, "\nNext steps:")
			fmt.Fprintln(ui.Output, "1. Edit the projects and directories in the file")
			fmt.Fprintln(ui.Output, "2. Run 'jiradataset config validate' to check it")
			fmt.Fprintln(ui.Output, "3. Build the dataset with 'jiradataset run'")
			return nil
		},
	}
}

func newConfigShowCmd(root *rootOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "show",
		Short: "Show the effective configuration",
		Long: `Show the configuration after merging every source. Secrets are masked.`,
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := config.Load(root.configFile, root.flagOverrides(cmd))
			if err != nil {
				return err
			}

			data, err := yaml.Marshal(maskSecrets(*cfg))
			if err != nil {
				return fmt.Errorf("failed to format configuration: %w", err)
			}

			ui.PrintHighlight("Current Configuration")
			fmt.Fprintln(ui.Output)
			fmt.Fprint(ui.Output, string(data))

			fmt.Fprintln(ui.Output, "\nConfiguration sources (in order of priority):")
			fmt.Fprintln(ui.Output, "1. Command line flags")
			fmt.Fprintln(ui.Output, "2. Environment variables (JIRADATASET_*)")
			fmt.Fprintln(ui.Output, "3. .env files")
			if root.configFile != "" {
				fmt.Fprintf(ui.Output, "4. Configuration file: %s\n", root.configFile)
			} else {
				fmt.Fprintln(ui.Output, "4. Configuration file: (searched in default locations)")
			}
			fmt.Fprintln(ui.Output, "5. Default values")
			return nil
		},
	}
}

func newConfigValidateCmd(root *rootOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "validate",
		Short: "Validate the configuration",
		Long: `Validate the merged configuration and check that its directories can be created.`,
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			if root.configFile != "" {
				ui.PrintInfo("Validating configuration", root.configFile)
			}

			cfg, err := config.Load(root.configFile, root.flagOverrides(cmd))
			if err != nil {
				return err
			}

			var problems, warnings []string

			dirs := []string{cfg.Storage.RawDir, cfg.Storage.ProcessedDir, cfg.Storage.OutputDir}
			if cfg.Checkpoint.Backend == "file" {
				dirs = append(dirs, filepath.Dir(cfg.Checkpoint.Path))
			}
			if cfg.Logging.File != "" {
				dirs = append(dirs, filepath.Dir(cfg.Logging.File))
			}
			for _, dir := range dirs {
				if err := os.MkdirAll(dir, 0755); err != nil {
					problems = append(problems, fmt.Sprintf("cannot create directory %s: %v", dir, err))
				}
			}

			if cfg.Jira.Username == "" {
				warnings = append(warnings, "no credentials configured; stored credentials or anonymous access will be used")
			}
			if cfg.Scrape.MaxIssuesPerProject == 0 {
				warnings = append(warnings, "no per-project issue limit; large projects take hours to scrape")
			}

			if len(problems) > 0 {
				ui.PrintError("Configuration has errors")
				for _, p := range problems {
					fmt.Fprintf(ui.Output, "  - %s\n", p)
				}
				return fmt.Errorf("configuration has %d error(s)", len(problems))
			}

			if len(warnings) > 0 {
				ui.PrintWarning("Configuration warnings")
				for _, w := range warnings {
					fmt.Fprintf(ui.Output, "  - %s\n", w)
				}
				fmt.Fprintln(ui.Output)
			}

			ui.PrintSuccess("Configuration is valid")

			fmt.Fprintln(ui.Output, "\nConfiguration summary:")
			fmt.Fprintf(ui.Output, "  Base URL: %s\n", cfg.Jira.BaseURL)
			fmt.Fprintf(ui.Output, "  Projects: %v\n", cfg.Scrape.Projects)
			fmt.Fprintf(ui.Output, "  Page size: %d\n", cfg.Scrape.PageSize)
			fmt.Fprintf(ui.Output, "  Max retries: %d\n", cfg.Retry.MaxRetries)
			fmt.Fprintf(ui.Output, "  Checkpoint backend: %s\n", cfg.Checkpoint.Backend)
			fmt.Fprintf(ui.Output, "  Output: %s\n", filepath.Join(cfg.Storage.OutputDir, cfg.Storage.OutputFile))
			fmt.Fprintf(ui.Output, "  Log level: %s\n", cfg.Logging.Level)
			return nil
		},
	}
}

// maskSecrets returns cfg with credentials and connection passwords hidden
func maskSecrets(cfg config.Config) config.Config {
	if cfg.Jira.APIToken != "" {
		cfg.Jira.APIToken = auth.SanitizeAccount(&auth.Account{APIToken: cfg.Jira.APIToken}).APIToken
	}
	if cfg.Checkpoint.RedisPassword != "" {
		cfg.Checkpoint.RedisPassword = "********"
	}
	if cfg.Dataset.PostgresDSN != "" {
		if u, err := url.Parse(cfg.Dataset.PostgresDSN); err == nil && u.User != nil {
			cfg.Dataset.PostgresDSN = u.Redacted()
		}
	}
	return cfg
}
