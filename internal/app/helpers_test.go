package app

import (
	"context"
	"math/rand"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"golang.org/x/crypto/bcrypt"

	"worksafe/internal/domain"
	"worksafe/internal/infra/memory"
)

// clock is a settable time source.
type clock struct {
	mu  sync.Mutex
	now time.Time
}

func newClock() *clock {
	return &clock{now: time.Date(2024, 11, 22, 8, 0, 0, 0, time.UTC)}
}

func (c *clock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.now
}

func (c *clock) Advance(d time.Duration) {
	c.mu.Lock()
	c.now = c.now.Add(d)
	c.mu.Unlock()
}

// seededAccounts returns an AccountService over a fresh memory store holding
// the demo accounts (admin123 at 5000, worker1 at 1200).
func seededAccounts(t *testing.T) (*AccountService, *memory.StateStore) {
	t.Helper()
	state := memory.NewStateStore()
	accounts := NewAccountService(state, zap.NewNop(), WithBcryptCost(bcrypt.MinCost))
	seeded, err := accounts.Seed(context.Background())
	require.NoError(t, err)
	require.True(t, seeded)
	return accounts, state
}

func fixedRand() *rand.Rand {
	return rand.New(rand.NewSource(7))
}

// userList is a static UserLister.
type userList []domain.User

func (l userList) List(context.Context) ([]domain.User, error) {
	out := make([]domain.User, len(l))
	copy(out, l)
	return out, nil
}
