package auth

import (
	"errors"
	"fmt"
	"path/filepath"
	"slices"
	"strings"
	"time"

	"jiradataset/pkg/config"
)

// credentialsFile is the encrypted fallback store inside ConfigDir
const credentialsFile = "credentials.enc"

// Manager reads and writes accounts across an ordered chain of stores.
// Writes go to the first store that accepts them; reads take the first hit.
type Manager struct {
	chain []CredentialStore
}

// NewManager builds the default chain: system keychain when reachable, the
// encrypted file in ConfigDir, then the environment
func NewManager() (*Manager, error) {
	dir, err := ConfigDir()
	if err != nil {
		return nil, err
	}
	file, err := NewEncryptedFileStore(filepath.Join(dir, credentialsFile))
	if err != nil {
		return nil, fmt.Errorf("failed to open encrypted store: %w", err)
	}

	var chain []CredentialStore
	if kr, err := NewKeyringStore(); err == nil {
		chain = append(chain, kr)
	}
	chain = append(chain, file, NewEnvironmentStore())
	return &Manager{chain: chain}, nil
}

// NewManagerWithStores uses stores in the given order
func NewManagerWithStores(stores ...CredentialStore) *Manager {
	return &Manager{chain: stores}
}

// Store stamps account and saves it in the first store that accepts it
func (m *Manager) Store(account *Account) error {
	switch {
	case account == nil || account.Username == "":
		return errors.New("username is required")
	case account.APIToken == "":
		return errors.New("API token is required")
	}
	if len(m.chain) == 0 {
		return errors.New("no available credential stores")
	}

	account.LastModified = time.Now()

	var failures []error
	for _, store := range m.chain {
		err := store.Store(account)
		if err == nil {
			return nil
		}
		failures = append(failures, err)
	}
	return fmt.Errorf("failed to store credentials: %w", errors.Join(failures...))
}

// Retrieve returns the account for username from the first store holding it
func (m *Manager) Retrieve(username string) (*Account, error) {
	for _, store := range m.chain {
		account, err := store.Retrieve(username)
		if err == nil && account != nil {
			return account, nil
		}
	}
	return nil, fmt.Errorf("%w for user: %s", ErrCredentialsNotFound, username)
}

// RetrieveDefault prefers credentials from the environment and otherwise
// returns the first stored account in username order
func (m *Manager) RetrieveDefault() (*Account, error) {
	for _, store := range m.chain {
		env, ok := store.(*EnvironmentStore)
		if !ok {
			continue
		}
		if account, err := env.Retrieve(""); err == nil {
			return account, nil
		}
	}

	accounts, _ := m.List()
	if len(accounts) == 0 {
		return nil, ErrCredentialsNotFound
	}
	return accounts[0], nil
}

// List merges every store, keeping the most recently modified copy of each
// username. Stores that cannot list are skipped.
func (m *Manager) List() ([]*Account, error) {
	newest := make(map[string]*Account)
	for _, store := range m.chain {
		accounts, err := store.List()
		if err != nil {
			continue
		}
		for _, a := range accounts {
			if cur, ok := newest[a.Username]; ok && !a.LastModified.After(cur.LastModified) {
				continue
			}
			newest[a.Username] = a
		}
	}

	merged := make([]*Account, 0, len(newest))
	for _, a := range newest {
		merged = append(merged, a)
	}
	slices.SortFunc(merged, func(a, b *Account) int { return strings.Compare(a.Username, b.Username) })
	return merged, nil
}

// Delete removes username from every store. It fails only when no store held
// the account.
func (m *Manager) Delete(username string) error {
	removed := 0
	var lastErr error
	for _, store := range m.chain {
		if err := store.Delete(username); err != nil {
			lastErr = err
			continue
		}
		removed++
	}

	switch {
	case removed > 0:
		return nil
	case lastErr != nil && !errors.Is(lastErr, ErrCredentialsNotFound):
		return fmt.Errorf("failed to delete credentials: %w", lastErr)
	default:
		return fmt.Errorf("%w for user: %s", ErrCredentialsNotFound, username)
	}
}

// Apply fills the missing half of cfg's credentials from the stores and
// reports whether cfg ends up with a username and token. Values already in
// cfg win. An account saved for another base URL is never applied.
func (m *Manager) Apply(cfg *config.JiraConfig) bool {
	if cfg.Username != "" && cfg.APIToken != "" {
		return true
	}

	lookup := m.RetrieveDefault
	if cfg.Username != "" {
		lookup = func() (*Account, error) { return m.Retrieve(cfg.Username) }
	}
	account, err := lookup()
	if err != nil || !account.matches(cfg.BaseURL) {
		return false
	}

	cfg.Username, cfg.APIToken = account.Username, account.APIToken
	return true
}

// matches reports whether the account may be sent to baseURL
func (a *Account) matches(baseURL string) bool {
	if a.BaseURL == "" || baseURL == "" {
		return true
	}
	return strings.TrimRight(a.BaseURL, "/") == strings.TrimRight(baseURL, "/")
}
