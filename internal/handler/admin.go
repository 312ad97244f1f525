package handler

import (
	"errors"
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/phorium/phorium/internal/handler/dto"
	"github.com/phorium/phorium/internal/middleware"
	"github.com/phorium/phorium/internal/service"
)

// AdminHandler provides admin-only ledger endpoints. Routes must sit behind
// middleware.RequireAdmin.
type AdminHandler struct {
	ledger Ledger
	logger *slog.Logger
}

// NewAdminHandler creates a new AdminHandler.
func NewAdminHandler(ledger Ledger, logger *slog.Logger) *AdminHandler {
	return &AdminHandler{
		ledger: ledger,
		logger: logger,
	}
}

// GrantCredits handles POST /api/admin/credits.
func (h *AdminHandler) GrantCredits(w http.ResponseWriter, r *http.Request) {
	var req dto.GrantRequest
	if err := decodeJSON(r, &req); err != nil {
		writeError(w, http.StatusBadRequest, "INVALID_JSON", "Invalid request body")
		return
	}

	amount, err := dto.ParseAmount(req.Amount)
	if err != nil {
		handleServiceError(w, h.logger, err)
		return
	}

	res, err := h.ledger.Grant(r.Context(), req.User(), amount, req.Reason)
	if errors.Is(err, service.ErrInsufficientCredits) {
		writeInsufficient(w, res.Balance)
		return
	}
	if err != nil {
		handleServiceError(w, h.logger, err)
		return
	}

	h.logger.Info("admin_credits_granted",
		"user_id", req.User(),
		"amount", amount,
		"balance", res.Balance,
		"request_id", middleware.GetRequestID(r.Context()),
	)

	writeJSON(w, http.StatusOK, dto.BalanceResponse{OK: true, Balance: res.Balance})
}

// SetPlan handles POST /api/admin/plan.
func (h *AdminHandler) SetPlan(w http.ResponseWriter, r *http.Request) {
	var req dto.PlanRequest
	if err := decodeJSON(r, &req); err != nil {
		writeError(w, http.StatusBadRequest, "INVALID_JSON", "Invalid request body")
		return
	}

	plan := ""
	if req.Plan != nil {
		plan = *req.Plan
	}

	assignment, err := h.ledger.SetPlan(r.Context(), req.User(), plan)
	if err != nil {
		handleServiceError(w, h.logger, err)
		return
	}

	h.logger.Info("admin_plan_set",
		"user_id", req.User(),
		"plan", assignment.Plan,
		"quota", assignment.Quota,
	)

	writeJSON(w, http.StatusOK, dto.PlanResponse{OK: true, Plan: assignment.Plan, Quota: assignment.Quota})
}

// Account handles GET /api/admin/accounts/{userID}.
func (h *AdminHandler) Account(w http.ResponseWriter, r *http.Request) {
	view, err := h.ledger.Account(r.Context(), chi.URLParam(r, "userID"))
	if err != nil {
		handleServiceError(w, h.logger, err)
		return
	}
	writeJSON(w, http.StatusOK, dto.AccountResponse{OK: true, Account: view})
}
