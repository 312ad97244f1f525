package service

import (
	"context"
	"sync"
	"time"

	"github.com/phorium/phorium/internal/model"
	"github.com/phorium/phorium/internal/repository"
)

// memStore is an in-memory LedgerStore with the same floor rules as Postgres.
type memStore struct {
	mu          sync.Mutex
	accounts    map[string]*model.CreditAccount
	profiles    map[string]*model.Profile
	entries     []*model.LedgerEntry
	generations []*model.Generation
	failWith    error

	// afterGet runs once an account has been read, outside the lock.
	afterGet func()
}

func newMemStore() *memStore {
	return &memStore{
		accounts: make(map[string]*model.CreditAccount),
		profiles: make(map[string]*model.Profile),
	}
}

func (m *memStore) DebitCredits(_ context.Context, userID string, amount int64, reason string) (int64, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	if m.failWith != nil {
		return 0, m.failWith
	}
	acc, ok := m.accounts[userID]
	if !ok {
		return 0, repository.ErrAccountNotFound
	}
	if acc.Balance < amount {
		return acc.Balance, repository.ErrInsufficientCredits
	}
	acc.Balance -= amount
	acc.LastReason = reason
	acc.UpdatedAt = time.Now().UTC()
	m.journal(userID, -amount, acc.Balance, model.LedgerDebit, reason)
	return acc.Balance, nil
}

func (m *memStore) GrantCredits(_ context.Context, userID string, delta int64, reason string, kind model.LedgerKind) (int64, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	if m.failWith != nil {
		return 0, m.failWith
	}
	acc, ok := m.accounts[userID]
	current := int64(0)
	if ok {
		current = acc.Balance
	}
	if current+delta < 0 {
		return current, repository.ErrInsufficientCredits
	}
	if !ok {
		acc = &model.CreditAccount{UserID: userID}
		m.accounts[userID] = acc
	}
	acc.Balance = current + delta
	acc.LastReason = reason
	acc.UpdatedAt = time.Now().UTC()
	m.journal(userID, delta, acc.Balance, kind, reason)
	return acc.Balance, nil
}

func (m *memStore) GetCreditAccount(_ context.Context, userID string) (*model.CreditAccount, error) {
	m.mu.Lock()
	if m.failWith != nil {
		m.mu.Unlock()
		return nil, m.failWith
	}
	acc, ok := m.accounts[userID]
	var cp model.CreditAccount
	if ok {
		cp = *acc
	}
	hook := m.afterGet
	m.mu.Unlock()

	if hook != nil {
		hook()
	}
	if !ok {
		return nil, repository.ErrAccountNotFound
	}
	return &cp, nil
}

func (m *memStore) ListLedgerEntries(_ context.Context, userID string, limit int) ([]*model.LedgerEntry, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	var out []*model.LedgerEntry
	for i := len(m.entries) - 1; i >= 0 && len(out) < limit; i-- {
		if m.entries[i].UserID == userID {
			out = append(out, m.entries[i])
		}
	}
	return out, nil
}

func (m *memStore) SetPlan(_ context.Context, userID string, plan model.Plan, quota int64) (*model.Profile, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	if m.failWith != nil {
		return nil, m.failWith
	}
	p := &model.Profile{UserID: userID, Plan: plan, PlanQuota: quota, UpdatedAt: time.Now().UTC()}
	m.profiles[userID] = p
	return p, nil
}

func (m *memStore) GetProfile(_ context.Context, userID string) (*model.Profile, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	p, ok := m.profiles[userID]
	if !ok {
		return nil, repository.ErrProfileNotFound
	}
	return p, nil
}

func (m *memStore) CreateGeneration(_ context.Context, g *model.Generation) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	m.generations = append(m.generations, g)
	return nil
}

func (m *memStore) ListGenerations(_ context.Context, userID string, limit int) ([]*model.Generation, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	var out []*model.Generation
	for i := len(m.generations) - 1; i >= 0 && len(out) < limit; i-- {
		if m.generations[i].UserID == userID {
			out = append(out, m.generations[i])
		}
	}
	return out, nil
}

func (m *memStore) balance(userID string) (int64, bool) {
	m.mu.Lock()
	defer m.mu.Unlock()

	acc, ok := m.accounts[userID]
	if !ok {
		return 0, false
	}
	return acc.Balance, true
}

func (m *memStore) journal(userID string, delta, after int64, kind model.LedgerKind, reason string) {
	m.entries = append(m.entries, &model.LedgerEntry{
		ID:           generateULID(),
		UserID:       userID,
		Delta:        delta,
		BalanceAfter: after,
		Kind:         kind,
		Reason:       reason,
		CreatedAt:    time.Now().UTC(),
	})
}

// memCache is an in-memory BalanceCache.
type memCache struct {
	mu          sync.Mutex
	values      map[string]int64
	invalidated int
	setErr      error
}

func newMemCache() *memCache {
	return &memCache{values: make(map[string]int64)}
}

func (c *memCache) GetBalance(_ context.Context, userID string) (int64, bool, error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	v, ok := c.values[userID]
	return v, ok, nil
}

func (c *memCache) SetBalance(_ context.Context, userID string, balance int64, _ time.Duration) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.setErr != nil {
		return c.setErr
	}
	c.values[userID] = balance
	return nil
}

func (c *memCache) FillBalance(_ context.Context, userID string, balance int64, _ time.Duration) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.setErr != nil {
		return c.setErr
	}
	if _, ok := c.values[userID]; !ok {
		c.values[userID] = balance
	}
	return nil
}

func (c *memCache) cached(userID string) (int64, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()

	v, ok := c.values[userID]
	return v, ok
}

func (c *memCache) InvalidateBalance(_ context.Context, userID string) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	delete(c.values, userID)
	c.invalidated++
	return nil
}
