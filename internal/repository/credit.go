package repository

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/oklog/ulid/v2"

	"github.com/phorium/phorium/internal/model"
)

// Common errors for credit repository operations.
var (
	ErrAccountNotFound     = errors.New("credit account not found")
	ErrInsufficientCredits = errors.New("insufficient credits")
)

// DebitCredits subtracts amount from the user's balance.
//
// The check and the write are one conditional UPDATE, so concurrent debits
// serialize on the row lock and each sees the balance left by the previous one.
// On ErrInsufficientCredits the returned balance is the unchanged current balance.
func (r *Repository) DebitCredits(ctx context.Context, userID string, amount int64, reason string) (int64, error) {
	debitQuery := `
		UPDATE credit_accounts
		SET balance = balance - $2, last_reason = $3, updated_at = $4
		WHERE user_id = $1 AND balance >= $2
		RETURNING balance
	`

	var balance int64
	err := pgx.BeginFunc(ctx, r.pool, func(tx pgx.Tx) error {
		now := time.Now().UTC()
		err := tx.QueryRow(ctx, debitQuery, userID, amount, reason, now).Scan(&balance)
		if errors.Is(err, pgx.ErrNoRows) {
			account, getErr := getCreditAccount(ctx, tx, userID)
			if getErr != nil {
				return getErr
			}
			balance = account.Balance
			return ErrInsufficientCredits
		}
		if err != nil {
			return fmt.Errorf("failed to debit credits: %w", err)
		}

		return insertLedgerEntry(ctx, tx, &model.LedgerEntry{
			ID:           ulid.Make().String(),
			UserID:       userID,
			Delta:        -amount,
			BalanceAfter: balance,
			Kind:         model.LedgerDebit,
			Reason:       reason,
			CreatedAt:    now,
		})
	})
	if err != nil {
		return balance, err
	}

	return balance, nil
}

// GrantCredits adds a signed delta to the user's balance, creating the
// account with balance = delta when it does not exist yet.
// A delta that would leave the balance below zero is rejected with
// ErrInsufficientCredits; the returned balance is then the unchanged one.
func (r *Repository) GrantCredits(ctx context.Context, userID string, delta int64, reason string, kind model.LedgerKind) (int64, error) {
	grantQuery := `
		INSERT INTO credit_accounts (user_id, balance, last_reason, updated_at)
		VALUES ($1, $2, $3, $4)
		ON CONFLICT (user_id) DO UPDATE
		SET balance = credit_accounts.balance + EXCLUDED.balance,
			last_reason = EXCLUDED.last_reason,
			updated_at = EXCLUDED.updated_at
		WHERE credit_accounts.balance + EXCLUDED.balance >= 0
		RETURNING balance
	`

	var balance int64
	err := pgx.BeginFunc(ctx, r.pool, func(tx pgx.Tx) error {
		now := time.Now().UTC()
		err := tx.QueryRow(ctx, grantQuery, userID, delta, reason, now).Scan(&balance)
		if isCheckViolation(err) {
			// Only the insert path can trip the constraint: the account is new.
			balance = 0
			return ErrInsufficientCredits
		}
		if errors.Is(err, pgx.ErrNoRows) {
			account, getErr := getCreditAccount(ctx, tx, userID)
			if getErr != nil {
				return getErr
			}
			balance = account.Balance
			return ErrInsufficientCredits
		}
		if err != nil {
			return fmt.Errorf("failed to grant credits: %w", err)
		}

		return insertLedgerEntry(ctx, tx, &model.LedgerEntry{
			ID:           ulid.Make().String(),
			UserID:       userID,
			Delta:        delta,
			BalanceAfter: balance,
			Kind:         kind,
			Reason:       reason,
			CreatedAt:    now,
		})
	})
	if err != nil {
		return balance, err
	}

	return balance, nil
}

// GetCreditAccount retrieves the credit account of a user.
func (r *Repository) GetCreditAccount(ctx context.Context, userID string) (*model.CreditAccount, error) {
	return getCreditAccount(ctx, r.pool, userID)
}

// ListLedgerEntries returns the most recent journal entries of a user, newest first.
func (r *Repository) ListLedgerEntries(ctx context.Context, userID string, limit int) ([]*model.LedgerEntry, error) {
	query := `
		SELECT id, user_id, delta, balance_after, kind, reason, created_at
		FROM credit_ledger
		WHERE user_id = $1
		ORDER BY created_at DESC, id DESC
		LIMIT $2
	`

	rows, err := r.pool.Query(ctx, query, userID, limit)
	if err != nil {
		return nil, fmt.Errorf("failed to list ledger entries: %w", err)
	}
	defer rows.Close()

	entries := make([]*model.LedgerEntry, 0, limit)
	for rows.Next() {
		var e model.LedgerEntry
		if err := rows.Scan(
			&e.ID,
			&e.UserID,
			&e.Delta,
			&e.BalanceAfter,
			&e.Kind,
			&e.Reason,
			&e.CreatedAt,
		); err != nil {
			return nil, fmt.Errorf("failed to scan ledger entry: %w", err)
		}
		entries = append(entries, &e)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to iterate ledger entries: %w", err)
	}

	return entries, nil
}

// querier is satisfied by both the pool and a transaction.
type querier interface {
	QueryRow(ctx context.Context, sql string, args ...any) pgx.Row
}

func getCreditAccount(ctx context.Context, q querier, userID string) (*model.CreditAccount, error) {
	query := `
		SELECT user_id, balance, last_reason, updated_at
		FROM credit_accounts
		WHERE user_id = $1
	`

	var account model.CreditAccount
	err := q.QueryRow(ctx, query, userID).Scan(
		&account.UserID,
		&account.Balance,
		&account.LastReason,
		&account.UpdatedAt,
	)

	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrAccountNotFound
		}
		return nil, fmt.Errorf("failed to get credit account: %w", err)
	}

	return &account, nil
}

func insertLedgerEntry(ctx context.Context, tx pgx.Tx, entry *model.LedgerEntry) error {
	query := `
		INSERT INTO credit_ledger (id, user_id, delta, balance_after, kind, reason, created_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7)
	`

	_, err := tx.Exec(ctx, query,
		entry.ID,
		entry.UserID,
		entry.Delta,
		entry.BalanceAfter,
		entry.Kind,
		entry.Reason,
		entry.CreatedAt,
	)
	if err != nil {
		return fmt.Errorf("failed to write ledger entry: %w", err)
	}

	return nil
}
