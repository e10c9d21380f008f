package auth

import "sync"

// MockStore is an in-memory CredentialStore for tests. FailOn makes a single
// operation return a fixed error.
type MockStore struct {
	mu       sync.RWMutex
	accounts map[string]Account
	failures map[string]error
}

// NewMockStore creates an empty mock store
func NewMockStore() *MockStore {
	return &MockStore{
		accounts: make(map[string]Account),
		failures: make(map[string]error),
	}
}

// FailOn makes op ("store", "retrieve", "list" or "delete") return err
func (m *MockStore) FailOn(op string, err error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.failures[op] = err
}

func (m *MockStore) failure(op string) error {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.failures[op]
}

func (m *MockStore) Store(account *Account) error {
	if err := m.failure("store"); err != nil {
		return err
	}
	if account == nil || account.Username == "" {
		return ErrInvalidCredentials
	}

	m.mu.Lock()
	defer m.mu.Unlock()
	m.accounts[account.Username] = *account
	return nil
}

func (m *MockStore) Retrieve(username string) (*Account, error) {
	if err := m.failure("retrieve"); err != nil {
		return nil, err
	}

	m.mu.RLock()
	defer m.mu.RUnlock()
	if account, ok := m.accounts[username]; ok {
		return &account, nil
	}
	return nil, ErrCredentialsNotFound
}

func (m *MockStore) List() ([]*Account, error) {
	if err := m.failure("list"); err != nil {
		return nil, err
	}

	m.mu.RLock()
	defer m.mu.RUnlock()
	out := make([]*Account, 0, len(m.accounts))
	for _, account := range m.accounts {
		account := account
		out = append(out, &account)
	}
	return out, nil
}

func (m *MockStore) Delete(username string) error {
	if err := m.failure("delete"); err != nil {
		return err
	}

	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.accounts[username]; !ok {
		return ErrCredentialsNotFound
	}
	delete(m.accounts, username)
	return nil
}

func (m *MockStore) Exists(username string) bool {
	m.mu.RLock()
	defer m.mu.RUnlock()
	_, ok := m.accounts[username]
	return ok
}

// Count returns the number of stored accounts
func (m *MockStore) Count() int {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return len(m.accounts)
}
