package auth

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"time"
)

const appName = "jiradataset"

var (
	ErrCredentialsNotFound = errors.New("credentials not found")
	ErrInvalidCredentials  = errors.New("invalid credentials")
	ErrStoreUnavailable    = errors.New("credential store unavailable")
)

// Account holds Basic-auth credentials for a Jira instance. An empty BaseURL
// makes the account usable against any instance.
type Account struct {
	Username     string    `json:"username"`
	APIToken     string    `json:"api_token"`
	BaseURL      string    `json:"base_url,omitempty"`
	LastModified time.Time `json:"last_modified"`
}

// CredentialStore persists accounts keyed by username
type CredentialStore interface {
	Store(account *Account) error
	Retrieve(username string) (*Account, error)
	List() ([]*Account, error)
	Delete(username string) error
	Exists(username string) bool
}

// SanitizeAccount returns a copy of account safe to print
func SanitizeAccount(account *Account) *Account {
	if account == nil {
		return nil
	}
	masked := *account
	masked.APIToken = maskToken(account.APIToken)
	return &masked
}

// maskToken keeps the first and last four characters of long tokens
func maskToken(token string) string {
	const keep = 4
	if len(token) <= 2*keep {
		return "********"
	}
	return token[:keep] + "..." + token[len(token)-keep:]
}

// ConfigDir returns the per-user jiradataset directory, creating it with
// owner-only permissions
func ConfigDir() (string, error) {
	base, err := os.UserConfigDir()
	if err != nil {
		return "", fmt.Errorf("failed to locate user config directory: %w", err)
	}

	dir := filepath.Join(base, appName)
	if err := os.MkdirAll(dir, 0700); err != nil {
		return "", fmt.Errorf("failed to create config directory: %w", err)
	}
	return dir, nil
}
