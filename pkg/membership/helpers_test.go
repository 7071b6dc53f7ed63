package membership

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"golang.org/x/crypto/bcrypt"
)

// fakeClock is a settable time source.
type fakeClock struct {
	mu  sync.Mutex
	now time.Time
}

func newFakeClock() *fakeClock {
	return &fakeClock{now: time.Date(2024, 3, 1, 12, 0, 0, 0, time.UTC)}
}

func (c *fakeClock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.now
}

func (c *fakeClock) Advance(d time.Duration) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.now = c.now.Add(d)
}

func newAccountService(t *testing.T, storage AccountServiceStorage, opts ...AccountOption) AccountStore {
	t.Helper()
	opts = append([]AccountOption{WithBcryptCost(bcrypt.MinCost)}, opts...)
	return NewAccountService(storage, opts...)
}

// createConfirmed creates a confirmed local account.
func createConfirmed(t *testing.T, svc AccountStore, userName, password string) {
	t.Helper()
	if _, err := svc.CreateLocalAccount(context.Background(), userName, password, false, ""); err != nil {
		t.Fatalf("create %s: %v", userName, err)
	}
}

var errBackendDown = errors.New("backend down")

// faultyStorage wraps MemoryStorage and fails selected calls.
type faultyStorage struct {
	*MemoryStorage

	// failAddRolesFor makes AddAccountRoles fail for the listed user ids.
	failAddRolesFor map[int64]bool
	// failLookups makes AccountByUserName fail.
	failLookups bool
	// sawDeadline records whether AccountByUserName got a context with a deadline.
	sawDeadline bool
	// afterRead runs once, right after the next successful read by user name or reset token.
	afterRead func(*Account)
}

func newFaultyStorage() *faultyStorage {
	return &faultyStorage{MemoryStorage: NewMemoryStorage(nil), failAddRolesFor: map[int64]bool{}}
}

func (s *faultyStorage) AccountByUserName(ctx context.Context, userName string) (*Account, error) {
	_, s.sawDeadline = ctx.Deadline()
	if s.failLookups {
		return nil, unavailable(errBackendDown)
	}
	account, err := s.MemoryStorage.AccountByUserName(ctx, userName)
	if err == nil {
		s.interleave(account)
	}
	return account, err
}

func (s *faultyStorage) AccountByResetToken(ctx context.Context, token string) (*Account, error) {
	account, err := s.MemoryStorage.AccountByResetToken(ctx, token)
	if err == nil {
		s.interleave(account)
	}
	return account, err
}

// interleave runs afterRead between an engine's read and its write.
func (s *faultyStorage) interleave(account *Account) {
	if hook := s.afterRead; hook != nil {
		s.afterRead = nil
		hook(account)
	}
}

func (s *faultyStorage) AddAccountRoles(ctx context.Context, id int64, roles []string) error {
	if s.failAddRolesFor[id] {
		return unavailable(errBackendDown)
	}
	return s.MemoryStorage.AddAccountRoles(ctx, id, roles)
}
