package handler

import (
	"context"
	"errors"
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/phorium/phorium/internal/handler/dto"
	"github.com/phorium/phorium/internal/model"
	"github.com/phorium/phorium/internal/service"
)

// Ledger is the credit ledger as seen by the HTTP layer.
type Ledger interface {
	Debit(ctx context.Context, userID string, amount int64, reason string) (service.Result, error)
	Grant(ctx context.Context, userID string, amount int64, reason string) (service.Result, error)
	SetPlan(ctx context.Context, userID, plan string) (model.PlanAssignment, error)
	Balance(ctx context.Context, userID string) (int64, error)
	History(ctx context.Context, userID string, limit int) ([]*model.LedgerEntry, error)
	Account(ctx context.Context, userID string) (*model.AccountView, error)
}

// CreditHandler handles user-facing credit requests.
type CreditHandler struct {
	ledger Ledger
	logger *slog.Logger
}

// NewCreditHandler creates a new CreditHandler.
func NewCreditHandler(ledger Ledger, logger *slog.Logger) *CreditHandler {
	return &CreditHandler{
		ledger: ledger,
		logger: logger,
	}
}

// Use handles POST /api/credits/use.
func (h *CreditHandler) Use(w http.ResponseWriter, r *http.Request) {
	var req dto.DebitRequest
	if err := decodeJSON(r, &req); err != nil {
		writeError(w, http.StatusBadRequest, "INVALID_JSON", "Invalid request body")
		return
	}

	amount, err := dto.ParseAmount(req.Amount)
	if err != nil {
		handleServiceError(w, h.logger, err)
		return
	}

	res, err := h.ledger.Debit(r.Context(), req.UserID, amount, req.Reason)
	if errors.Is(err, service.ErrInsufficientCredits) {
		writeInsufficient(w, res.Balance)
		return
	}
	if err != nil {
		handleServiceError(w, h.logger, err)
		return
	}

	if amount > 0 {
		h.logger.Info("credits_used",
			"user_id", req.UserID,
			"amount", amount,
			"balance", res.Balance,
		)
	}

	writeJSON(w, http.StatusOK, dto.BalanceResponse{OK: true, Balance: res.Balance})
}

// Balance handles GET /api/credits/{userID}.
func (h *CreditHandler) Balance(w http.ResponseWriter, r *http.Request) {
	balance, err := h.ledger.Balance(r.Context(), chi.URLParam(r, "userID"))
	if err != nil {
		handleServiceError(w, h.logger, err)
		return
	}
	writeJSON(w, http.StatusOK, dto.BalanceResponse{OK: true, Balance: balance})
}

// History handles GET /api/credits/{userID}/history.
func (h *CreditHandler) History(w http.ResponseWriter, r *http.Request) {
	userID := chi.URLParam(r, "userID")

	entries, err := h.ledger.History(r.Context(), userID, queryLimit(r))
	if err != nil {
		handleServiceError(w, h.logger, err)
		return
	}
	if entries == nil {
		entries = []*model.LedgerEntry{}
	}

	writeJSON(w, http.StatusOK, dto.HistoryResponse{OK: true, UserID: userID, Entries: entries})
}
