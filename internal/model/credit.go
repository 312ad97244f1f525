package model

import "time"

// LedgerKind classifies a balance mutation.
type LedgerKind string

const (
	LedgerDebit  LedgerKind = "debit"
	LedgerGrant  LedgerKind = "grant"
	LedgerRefund LedgerKind = "refund"
)

// CreditAccount holds the credit balance of one user.
// Rows are created by the first grant; debits never create them.
type CreditAccount struct {
	UserID     string    `json:"user_id"`
	Balance    int64     `json:"balance"`
	LastReason string    `json:"last_reason"`
	UpdatedAt  time.Time `json:"updated_at"`
}

// LedgerEntry is an append-only journal row written alongside every balance change.
type LedgerEntry struct {
	ID           string     `json:"id"`
	UserID       string     `json:"user_id"`
	Delta        int64      `json:"delta"`
	BalanceAfter int64      `json:"balance_after"`
	Kind         LedgerKind `json:"kind"`
	Reason       string     `json:"reason,omitempty"`
	CreatedAt    time.Time  `json:"created_at"`
}

// Profile carries the plan of a user. It is stored apart from the credit
// account, and changing it never touches the balance.
type Profile struct {
	UserID    string    `json:"user_id"`
	Plan      Plan      `json:"plan"`
	PlanQuota int64     `json:"plan_quota"`
	UpdatedAt time.Time `json:"updated_at"`
}

// AccountView combines the balance and plan of a user for admin lookups.
type AccountView struct {
	UserID     string     `json:"user_id"`
	Exists     bool       `json:"exists"`
	Balance    int64      `json:"balance"`
	LastReason string     `json:"last_reason,omitempty"`
	UpdatedAt  *time.Time `json:"updated_at,omitempty"`
	Plan       Plan       `json:"plan"`
	PlanQuota  int64      `json:"plan_quota"`
}
