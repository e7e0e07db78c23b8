package credentials_test

import (
	"context"
	"sync"

	credentials "github.com/goliatone/go-credentials"
	goerrors "github.com/goliatone/go-errors"
	"github.com/google/uuid"
	"github.com/stretchr/testify/mock"
)

// memoryStore is a CredentialStore backed by a map; AtomicUpdate runs the
// mutator under the store lock so it matches the per-account atomicity the
// interface promises.
type memoryStore struct {
	mu       sync.Mutex
	accounts map[uuid.UUID]*credentials.Account
}

func newMemoryStore() *memoryStore {
	return &memoryStore{accounts: map[uuid.UUID]*credentials.Account{}}
}

func notFoundErr() error {
	return goerrors.New("account not found", goerrors.CategoryNotFound).
		WithCode(goerrors.CodeNotFound)
}

func (s *memoryStore) FindByUsername(_ context.Context, username string) (*credentials.Account, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	for _, acc := range s.accounts {
		if acc.Username == username {
			return acc.Clone(), nil
		}
	}
	return nil, notFoundErr()
}

func (s *memoryStore) FindByEmail(_ context.Context, email string) (*credentials.Account, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	for _, acc := range s.accounts {
		if acc.Email == email {
			return acc.Clone(), nil
		}
	}
	return nil, notFoundErr()
}

func (s *memoryStore) Create(_ context.Context, account *credentials.Account) (*credentials.Account, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	for _, acc := range s.accounts {
		if acc.Username == account.Username || acc.Email == account.Email {
			return nil, goerrors.New("duplicate account record", goerrors.CategoryConflict).
				WithCode(goerrors.CodeConflict)
		}
	}

	record := account.Clone()
	if record.ID == uuid.Nil {
		record.ID = uuid.New()
	}

	s.accounts[record.ID] = record
	return record.Clone(), nil
}

func (s *memoryStore) AtomicUpdate(_ context.Context, id uuid.UUID, mutator func(*credentials.Account) error) (*credentials.Account, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	acc, ok := s.accounts[id]
	if !ok {
		return nil, notFoundErr()
	}

	working := acc.Clone()
	if err := mutator(working); err != nil {
		return nil, err
	}

	s.accounts[id] = working
	return working.Clone(), nil
}

func (s *memoryStore) get(id uuid.UUID) *credentials.Account {
	s.mu.Lock()
	defer s.mu.Unlock()

	if acc, ok := s.accounts[id]; ok {
		return acc.Clone()
	}
	return nil
}

// captureNotifier records each dispatched link.
type captureNotifier struct {
	mu    sync.Mutex
	sends []capturedSend
}

type capturedSend struct {
	Email string
	Link  string
}

func (n *captureNotifier) Send(_ context.Context, email, link string) error {
	n.mu.Lock()
	defer n.mu.Unlock()
	n.sends = append(n.sends, capturedSend{Email: email, Link: link})
	return nil
}

func (n *captureNotifier) count() int {
	n.mu.Lock()
	defer n.mu.Unlock()
	return len(n.sends)
}

func (n *captureNotifier) last() (capturedSend, bool) {
	n.mu.Lock()
	defer n.mu.Unlock()
	if len(n.sends) == 0 {
		return capturedSend{}, false
	}
	return n.sends[len(n.sends)-1], true
}

// MockNotifier implements credentials.Notifier
type MockNotifier struct {
	mock.Mock
}

func (m *MockNotifier) Send(ctx context.Context, email, link string) error {
	args := m.Called(ctx, email, link)
	return args.Error(0)
}
