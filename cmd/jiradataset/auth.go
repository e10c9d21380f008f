package main

import (
	"bufio"
	"errors"
	"fmt"
	"io"
	"os"
	"strings"
	"time"

	"github.com/spf13/cobra"
	"golang.org/x/term"
	"jiradataset/pkg/auth"
	"jiradataset/pkg/ui"
)

func newAuthCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "auth",
		Short: "Manage Jira credentials",
		Long: `Manage stored Jira credentials.

Credentials are stored using:
  - System keychain (when available)
  - Encrypted file with PBKDF2 key derivation
  - Environment variables (` + auth.EnvUsername + `, ` + auth.EnvAPIToken + `)

Public instances need no credentials; requests then go out anonymously.`,
	}

	cmd.AddCommand(newLoginCmd(), newLogoutCmd(), newListCmd())
	return cmd
}

func newLoginCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "login [username]",
		Short: "Store Jira credentials securely",
		Long: `Store a Jira username and API token in the system keychain or the
encrypted credentials file. The token is read without echo.`,
		Example: `  # Interactive login
  jiradataset auth login

  # Login with username
  jiradataset auth login me@example.com`,
		Args: cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			manager, err := auth.NewManager()
			if err != nil {
				return fmt.Errorf("failed to initialize credential manager: %w", err)
			}

			in := cmd.InOrStdin()
			reader := bufio.NewReader(in)
			auth.ShowTokenGuide(ui.Output)
			fmt.Fprintln(ui.Output)

			var username string
			if len(args) > 0 {
				username = strings.TrimSpace(args[0])
			} else {
				fmt.Fprint(ui.Output, "Jira username: ")
				if username, err = readLine(reader); err != nil {
					return fmt.Errorf("failed to read username: %w", err)
				}
			}
			if username == "" {
				return errors.New("username is required")
			}

			if existing, _ := manager.Retrieve(username); existing != nil {
				fmt.Fprintf(ui.Output, "Account '%s' already exists. Update credentials? (y/N): ", username)
				answer, _ := readLine(reader)
				if !strings.HasPrefix(strings.ToLower(answer), "y") {
					return nil
				}
			}

			fmt.Fprint(ui.Output, "API token: ")
			token, err := readSecret(in, reader)
			if err != nil {
				return fmt.Errorf("failed to read API token: %w", err)
			}
			if token == "" {
				return errors.New("API token is required")
			}

			fmt.Fprint(ui.Output, "Restrict to base URL (press Enter for any instance): ")
			baseURL, _ := readLine(reader)

			account := &auth.Account{
				Username:     username,
				APIToken:     token,
				BaseURL:      baseURL,
				LastModified: time.Now(),
			}
			if err := manager.Store(account); err != nil {
				return fmt.Errorf("failed to store credentials: %w", err)
			}

			ui.PrintSuccess("Account saved: " + username)
			fmt.Fprintln(ui.Output, "\nStored credentials are used by 'jiradataset scrape' and 'jiradataset run'.")
			fmt.Fprintln(ui.Output, "Never share your credentials or config files!")
			return nil
		},
	}
}

func newLogoutCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "logout <username>",
		Short: "Remove stored credentials",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			manager, err := auth.NewManager()
			if err != nil {
				return fmt.Errorf("failed to initialize credential manager: %w", err)
			}

			if err := manager.Delete(args[0]); err != nil {
				return fmt.Errorf("failed to remove account: %w", err)
			}
			ui.PrintSuccess("Account removed: " + args[0])
			return nil
		},
	}
}

func newListCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "list",
		Short: "List all stored accounts",
		Long:  `List all stored Jira accounts with masked tokens.`,
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			manager, err := auth.NewManager()
			if err != nil {
				return fmt.Errorf("failed to initialize credential manager: %w", err)
			}

			accounts, err := manager.List()
			if err != nil {
				return fmt.Errorf("failed to list accounts: %w", err)
			}

			if len(accounts) == 0 {
				ui.PrintInfo("No stored accounts", "Use 'jiradataset auth login' to add an account")
				return nil
			}

			ui.PrintHighlight("Stored Accounts")
			fmt.Fprintln(ui.Output)
			for i, account := range accounts {
				sanitized := auth.SanitizeAccount(account)
				fmt.Fprintf(ui.Output, "%d. Username: %s\n", i+1, sanitized.Username)
				fmt.Fprintf(ui.Output, "   API Token: %s\n", sanitized.APIToken)
				if sanitized.BaseURL != "" {
					fmt.Fprintf(ui.Output, "   Base URL: %s\n", sanitized.BaseURL)
				}
				fmt.Fprintf(ui.Output, "   Last Modified: %s\n", sanitized.LastModified.Format("2006-01-02 15:04:05"))
				fmt.Fprintln(ui.Output)
			}
			return nil
		},
	}
}

func readLine(r *bufio.Reader) (string, error) {
	line, err := r.ReadString('\n')
	if err != nil && !(errors.Is(err, io.EOF) && line != "") {
		return "", err
	}
	return strings.TrimSpace(line), nil
}

// readSecret reads without echo when in is a terminal and falls back to a
// plain line
func readSecret(in io.Reader, r *bufio.Reader) (string, error) {
	if f, ok := in.(*os.File); ok && term.IsTerminal(int(f.Fd())) {
		secret, err := term.ReadPassword(int(f.Fd()))
		fmt.Fprintln(ui.Output)
		if err == nil {
			return strings.TrimSpace(string(secret)), nil
		}
	}
	return readLine(r)
}
