package service

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/phorium/phorium/internal/metrics"
	"github.com/phorium/phorium/internal/model"
	"github.com/phorium/phorium/internal/repository"
)

const (
	defaultHistoryLimit = 50
	maxHistoryLimit     = 500
)

// LedgerStore persists credit accounts, their journal and user profiles.
type LedgerStore interface {
	DebitCredits(ctx context.Context, userID string, amount int64, reason string) (int64, error)
	GrantCredits(ctx context.Context, userID string, delta int64, reason string, kind model.LedgerKind) (int64, error)
	GetCreditAccount(ctx context.Context, userID string) (*model.CreditAccount, error)
	ListLedgerEntries(ctx context.Context, userID string, limit int) ([]*model.LedgerEntry, error)
	SetPlan(ctx context.Context, userID string, plan model.Plan, quota int64) (*model.Profile, error)
	GetProfile(ctx context.Context, userID string) (*model.Profile, error)
}

// BalanceCache caches balances in front of the store.
// SetBalance overwrites; FillBalance writes only when nothing is cached.
type BalanceCache interface {
	GetBalance(ctx context.Context, userID string) (int64, bool, error)
	SetBalance(ctx context.Context, userID string, balance int64, ttl time.Duration) error
	FillBalance(ctx context.Context, userID string, balance int64, ttl time.Duration) error
	InvalidateBalance(ctx context.Context, userID string) error
}

// Result is the outcome of a ledger mutation.
type Result struct {
	OK      bool  `json:"ok"`
	Balance int64 `json:"balance"`
}

// LedgerService owns per-user credit balances.
type LedgerService struct {
	store    LedgerStore
	cache    BalanceCache
	cacheTTL time.Duration
	metrics  metrics.Recorder
	logger   *slog.Logger
}

// NewLedgerService creates a new LedgerService. cache may be nil.
func NewLedgerService(store LedgerStore, cache BalanceCache, cacheTTL time.Duration, recorder metrics.Recorder, logger *slog.Logger) *LedgerService {
	if recorder == nil {
		recorder = metrics.NewNoop()
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &LedgerService{
		store:    store,
		cache:    cache,
		cacheTTL: cacheTTL,
		metrics:  recorder,
		logger:   logger,
	}
}

// Debit subtracts amount from the balance of userID.
//
// An amount <= 0 is a read straight from the store: the current balance is
// returned unchanged and a missing account reads as zero without being created. A positive amount never
// creates an account. On ErrInsufficientCredits the result carries the
// unchanged balance.
func (s *LedgerService) Debit(ctx context.Context, userID string, amount int64, reason string) (Result, error) {
	userID, err := normalizeUserID(userID)
	if err != nil {
		return Result{}, err
	}

	if amount <= 0 {
		balance, err := s.storedBalance(ctx, userID)
		if err != nil {
			return Result{}, err
		}
		return Result{OK: true, Balance: balance}, nil
	}

	balance, err := s.store.DebitCredits(ctx, userID, amount, truncateReason(reason))
	switch {
	case errors.Is(err, repository.ErrAccountNotFound):
		s.metrics.IncDebit(metrics.OutcomeRejected)
		return Result{}, ErrAccountNotFound
	case errors.Is(err, repository.ErrInsufficientCredits):
		s.metrics.IncDebit(metrics.OutcomeInsufficient)
		return Result{Balance: balance}, ErrInsufficientCredits
	case err != nil:
		s.metrics.IncDebit(metrics.OutcomeError)
		return Result{}, fmt.Errorf("debit credits: %w", err)
	}

	s.metrics.IncDebit(metrics.OutcomeSuccess)
	s.publish(ctx, userID, balance)

	return Result{OK: true, Balance: balance}, nil
}

// Grant adjusts the balance of userID by a signed amount, creating the account
// with balance = amount when absent. Nothing may drive a balance below zero:
// a negative grant larger than the balance fails with ErrInsufficientCredits.
func (s *LedgerService) Grant(ctx context.Context, userID string, amount int64, reason string) (Result, error) {
	return s.adjust(ctx, userID, amount, reason, model.LedgerGrant)
}

// Refund returns credits taken by a debit whose work did not happen.
func (s *LedgerService) Refund(ctx context.Context, userID string, amount int64, reason string) (Result, error) {
	if amount <= 0 {
		return Result{}, ErrInvalidAmount
	}
	return s.adjust(ctx, userID, amount, reason, model.LedgerRefund)
}

func (s *LedgerService) adjust(ctx context.Context, userID string, amount int64, reason string, kind model.LedgerKind) (Result, error) {
	userID, err := normalizeUserID(userID)
	if err != nil {
		return Result{}, err
	}
	if amount == 0 {
		return Result{}, ErrInvalidAmount
	}

	balance, err := s.store.GrantCredits(ctx, userID, amount, truncateReason(reason), kind)
	switch {
	case errors.Is(err, repository.ErrInsufficientCredits):
		s.metrics.IncGrant(metrics.OutcomeInsufficient)
		return Result{Balance: balance}, ErrInsufficientCredits
	case err != nil:
		s.metrics.IncGrant(metrics.OutcomeError)
		return Result{}, fmt.Errorf("grant credits: %w", err)
	}

	s.metrics.IncGrant(metrics.OutcomeSuccess)
	s.publish(ctx, userID, balance)

	s.logger.Info("credits adjusted",
		"user_id", userID,
		"delta", amount,
		"kind", kind,
		"balance", balance,
	)

	return Result{OK: true, Balance: balance}, nil
}

// SetPlan assigns a plan to userID. Empty and unknown names normalize to the
// base tier. The credit balance is never touched.
func (s *LedgerService) SetPlan(ctx context.Context, userID, plan string) (model.PlanAssignment, error) {
	userID, err := normalizeUserID(userID)
	if err != nil {
		return model.PlanAssignment{}, err
	}

	p := model.NormalizePlan(plan)
	profile, err := s.store.SetPlan(ctx, userID, p, model.QuotaFor(p))
	if err != nil {
		return model.PlanAssignment{}, fmt.Errorf("set plan: %w", err)
	}

	s.metrics.IncPlanChange(string(profile.Plan))

	return model.PlanAssignment{Plan: profile.Plan, Quota: profile.PlanQuota}, nil
}

// Balance returns the current balance of userID, zero for a missing account.
// It reads through the balance cache.
func (s *LedgerService) Balance(ctx context.Context, userID string) (int64, error) {
	userID, err := normalizeUserID(userID)
	if err != nil {
		return 0, err
	}

	if s.cache != nil {
		balance, ok, err := s.cache.GetBalance(ctx, userID)
		if err != nil {
			s.logger.Warn("balance cache read failed", "user_id", userID, "error", err)
		} else if ok {
			s.metrics.IncBalanceCacheHit()
			return balance, nil
		}
		s.metrics.IncBalanceCacheMiss()
	}

	balance, err := s.storedBalance(ctx, userID)
	if err != nil {
		return 0, err
	}

	if s.cache != nil {
		if err := s.cache.FillBalance(ctx, userID, balance, s.cacheTTL); err != nil {
			s.logger.Warn("balance cache write failed", "user_id", userID, "error", err)
		}
	}

	return balance, nil
}

func (s *LedgerService) storedBalance(ctx context.Context, userID string) (int64, error) {
	account, err := s.store.GetCreditAccount(ctx, userID)
	if errors.Is(err, repository.ErrAccountNotFound) {
		return 0, nil
	}
	if err != nil {
		return 0, fmt.Errorf("get balance: %w", err)
	}
	return account.Balance, nil
}

// History returns the most recent journal entries of userID.
func (s *LedgerService) History(ctx context.Context, userID string, limit int) ([]*model.LedgerEntry, error) {
	userID, err := normalizeUserID(userID)
	if err != nil {
		return nil, err
	}

	entries, err := s.store.ListLedgerEntries(ctx, userID, clampLimit(limit))
	if err != nil {
		return nil, fmt.Errorf("list ledger: %w", err)
	}
	return entries, nil
}

// Account returns the combined balance and plan view of userID.
func (s *LedgerService) Account(ctx context.Context, userID string) (*model.AccountView, error) {
	userID, err := normalizeUserID(userID)
	if err != nil {
		return nil, err
	}

	view := &model.AccountView{
		UserID:    userID,
		Plan:      model.DefaultPlan,
		PlanQuota: model.QuotaFor(model.DefaultPlan),
	}

	account, err := s.store.GetCreditAccount(ctx, userID)
	switch {
	case errors.Is(err, repository.ErrAccountNotFound):
	case err != nil:
		return nil, fmt.Errorf("get account: %w", err)
	default:
		view.Exists = true
		view.Balance = account.Balance
		view.LastReason = account.LastReason
		updatedAt := account.UpdatedAt
		view.UpdatedAt = &updatedAt
	}

	profile, err := s.store.GetProfile(ctx, userID)
	switch {
	case errors.Is(err, repository.ErrProfileNotFound):
	case err != nil:
		return nil, fmt.Errorf("get profile: %w", err)
	default:
		view.Plan = profile.Plan
		view.PlanQuota = profile.PlanQuota
	}

	return view, nil
}

// publish caches the balance a committed mutation returned. If that write
// fails the key is dropped so readers fall back to the store.
func (s *LedgerService) publish(ctx context.Context, userID string, balance int64) {
	if s.cache == nil {
		return
	}
	err := s.cache.SetBalance(ctx, userID, balance, s.cacheTTL)
	if err == nil {
		return
	}
	s.logger.Warn("balance cache write failed", "user_id", userID, "error", err)
	if err := s.cache.InvalidateBalance(ctx, userID); err != nil {
		s.logger.Error("balance cache invalidation failed", "user_id", userID, "error", err)
	}
}

func clampLimit(limit int) int {
	if limit <= 0 {
		return defaultHistoryLimit
	}
	if limit > maxHistoryLimit {
		return maxHistoryLimit
	}
	return limit
}
