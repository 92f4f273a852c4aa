// Package credentials provides the injected credential capability used by the
// inspector status panels and the run request builder.
package credentials

import (
	"context"
	"errors"
	"sync"
)

// ErrEmptyProvider is returned when a provider name is missing.
var ErrEmptyProvider = errors.New("credential provider cannot be empty")

// Store holds one access token per provider.
type Store interface {
	Get(ctx context.Context, provider string) (string, bool, error)
	Set(ctx context.Context, provider, token string) error
	Clear(ctx context.Context, provider string) error
}

// AccountResolver is optionally implemented by stores that know which account
// a token belongs to.
type AccountResolver interface {
	Account(ctx context.Context, provider string) string
}

// Status summarises whether an integration has a usable token.
type Status struct {
	Provider  string `json:"provider"`
	Connected bool   `json:"connected"`
	Account   string `json:"account,omitempty"`
}

// Label renders the status the way the status indicator shows it.
func (s Status) Label() string {
	switch {
	case !s.Connected:
		return "Not connected to " + s.Provider
	case s.Account != "":
		return "Connected as " + s.Account
	default:
		return "Connected"
	}
}

// StatusOf reads the status of provider from store. Lookup failures are
// reported as not connected.
func StatusOf(ctx context.Context, store Store, provider string) Status {
	status := Status{Provider: provider}
	if store == nil {
		return status
	}

	token, ok, err := store.Get(ctx, provider)
	if err != nil || !ok || token == "" {
		return status
	}

	status.Connected = true

	if resolver, ok := store.(AccountResolver); ok {
		status.Account = resolver.Account(ctx, provider)
	}

	return status
}

// MemoryStore keeps credentials in process memory.
type MemoryStore struct {
	mu       sync.RWMutex
	tokens   map[string]string
	accounts map[string]string
}

// NewMemoryStore creates an empty store.
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{
		tokens:   make(map[string]string),
		accounts: make(map[string]string),
	}
}

func (m *MemoryStore) Get(_ context.Context, provider string) (string, bool, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	token, ok := m.tokens[provider]

	return token, ok, nil
}

func (m *MemoryStore) Set(_ context.Context, provider, token string) error {
	if provider == "" {
		return ErrEmptyProvider
	}

	m.mu.Lock()
	defer m.mu.Unlock()

	m.tokens[provider] = token

	return nil
}

func (m *MemoryStore) Clear(_ context.Context, provider string) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	delete(m.tokens, provider)
	delete(m.accounts, provider)

	return nil
}

// SetAccount records the account name shown next to a connected provider.
func (m *MemoryStore) SetAccount(provider, account string) {
	m.mu.Lock()
	defer m.mu.Unlock()

	m.accounts[provider] = account
}

func (m *MemoryStore) Account(_ context.Context, provider string) string {
	m.mu.RLock()
	defer m.mu.RUnlock()

	return m.accounts[provider]
}
