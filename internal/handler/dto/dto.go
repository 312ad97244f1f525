// Package dto provides Data Transfer Objects for API requests and responses.
package dto

import (
	"encoding/json"
	"errors"
	"math"
	"strconv"
	"strings"

	"github.com/phorium/phorium/internal/model"
)

// ErrInvalidAmount is returned for amounts that are not finite integers.
var ErrInvalidAmount = errors.New("amount must be an integer")

// ErrorResponse represents an API error.
type ErrorResponse struct {
	OK      bool   `json:"ok"`
	Error   string `json:"error"`
	Code    string `json:"code"`
	Balance *int64 `json:"balance,omitempty"`
}

// BalanceResponse is returned by every ledger mutation and balance read.
type BalanceResponse struct {
	OK      bool  `json:"ok"`
	Balance int64 `json:"balance"`
}

// ParseAmount converts a JSON number into whole credits.
// Integral floats such as 10.0 or 1e3 are accepted; fractions are not.
func ParseAmount(n json.Number) (int64, error) {
	s := strings.TrimSpace(n.String())
	if s == "" {
		return 0, ErrInvalidAmount
	}
	if v, err := strconv.ParseInt(s, 10, 64); err == nil {
		return v, nil
	}

	f, err := strconv.ParseFloat(s, 64)
	if err != nil || math.IsNaN(f) || math.IsInf(f, 0) || f != math.Trunc(f) {
		return 0, ErrInvalidAmount
	}
	if f >= 1<<63 || f < -(1<<63) {
		return 0, ErrInvalidAmount
	}
	return int64(f), nil
}

// DebitRequest is the body of POST /api/credits/use.
type DebitRequest struct {
	UserID string      `json:"user_id"`
	Amount json.Number `json:"amount"`
	Reason string      `json:"reason,omitempty"`
}

// GrantRequest is the body of POST /api/admin/credits.
// Both userId and user_id spellings are accepted.
type GrantRequest struct {
	UserID      string      `json:"userId"`
	UserIDSnake string      `json:"user_id"`
	Amount      json.Number `json:"amount"`
	Reason      string      `json:"reason,omitempty"`
}

// User returns whichever user id spelling was sent.
func (r GrantRequest) User() string {
	if r.UserID != "" {
		return r.UserID
	}
	return r.UserIDSnake
}

// PlanRequest is the body of POST /api/admin/plan. A null plan resets to the base tier.
type PlanRequest struct {
	UserID      string  `json:"userId"`
	UserIDSnake string  `json:"user_id"`
	Plan        *string `json:"plan"`
}

// User returns whichever user id spelling was sent.
func (r PlanRequest) User() string {
	if r.UserID != "" {
		return r.UserID
	}
	return r.UserIDSnake
}

// PlanResponse reports a plan assignment.
type PlanResponse struct {
	OK    bool       `json:"ok"`
	Plan  model.Plan `json:"plan"`
	Quota int64      `json:"quota"`
}

// HistoryResponse lists ledger entries newest first.
type HistoryResponse struct {
	OK      bool                 `json:"ok"`
	UserID  string               `json:"user_id"`
	Entries []*model.LedgerEntry `json:"entries"`
}

// AccountResponse wraps the admin account view.
type AccountResponse struct {
	OK      bool               `json:"ok"`
	Account *model.AccountView `json:"account"`
}
