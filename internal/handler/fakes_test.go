package handler

import (
	"context"
	"sync"

	"github.com/phorium/phorium/internal/model"
	"github.com/phorium/phorium/internal/service"
)

// fakeLedger keeps balances in memory and follows the ledger's rules.
type fakeLedger struct {
	mu       sync.Mutex
	balances map[string]int64
	plans    map[string]model.Plan
	err      error

	lastReason string
}

func newFakeLedger() *fakeLedger {
	return &fakeLedger{
		balances: make(map[string]int64),
		plans:    make(map[string]model.Plan),
	}
}

func (f *fakeLedger) Debit(_ context.Context, userID string, amount int64, reason string) (service.Result, error) {
	f.mu.Lock()
	defer f.mu.Unlock()

	if f.err != nil {
		return service.Result{}, f.err
	}
	if userID == "" {
		return service.Result{}, service.ErrInvalidUserID
	}
	balance, ok := f.balances[userID]
	if amount <= 0 {
		return service.Result{OK: true, Balance: balance}, nil
	}
	if !ok {
		return service.Result{}, service.ErrAccountNotFound
	}
	if balance < amount {
		return service.Result{Balance: balance}, service.ErrInsufficientCredits
	}
	f.balances[userID] = balance - amount
	f.lastReason = reason
	return service.Result{OK: true, Balance: balance - amount}, nil
}

func (f *fakeLedger) Grant(_ context.Context, userID string, amount int64, reason string) (service.Result, error) {
	f.mu.Lock()
	defer f.mu.Unlock()

	if f.err != nil {
		return service.Result{}, f.err
	}
	if userID == "" {
		return service.Result{}, service.ErrInvalidUserID
	}
	if amount == 0 {
		return service.Result{}, service.ErrInvalidAmount
	}
	balance := f.balances[userID]
	if balance+amount < 0 {
		return service.Result{Balance: balance}, service.ErrInsufficientCredits
	}
	f.balances[userID] = balance + amount
	f.lastReason = reason
	return service.Result{OK: true, Balance: balance + amount}, nil
}

func (f *fakeLedger) SetPlan(_ context.Context, userID, plan string) (model.PlanAssignment, error) {
	f.mu.Lock()
	defer f.mu.Unlock()

	if userID == "" {
		return model.PlanAssignment{}, service.ErrInvalidUserID
	}
	p := model.NormalizePlan(plan)
	f.plans[userID] = p
	return model.PlanAssignment{Plan: p, Quota: model.QuotaFor(p)}, nil
}

func (f *fakeLedger) Balance(_ context.Context, userID string) (int64, error) {
	f.mu.Lock()
	defer f.mu.Unlock()

	if f.err != nil {
		return 0, f.err
	}
	if userID == "" {
		return 0, service.ErrInvalidUserID
	}
	return f.balances[userID], nil
}

func (f *fakeLedger) History(_ context.Context, userID string, _ int) ([]*model.LedgerEntry, error) {
	if userID == "" {
		return nil, service.ErrInvalidUserID
	}
	return nil, nil
}

func (f *fakeLedger) Account(_ context.Context, userID string) (*model.AccountView, error) {
	f.mu.Lock()
	defer f.mu.Unlock()

	balance, ok := f.balances[userID]
	plan, hasPlan := f.plans[userID]
	if !hasPlan {
		plan = model.PlanSource
	}
	return &model.AccountView{
		UserID:    userID,
		Exists:    ok,
		Balance:   balance,
		Plan:      plan,
		PlanQuota: model.QuotaFor(plan),
	}, nil
}
