package handler

import (
	"log/slog"
	"net/http"
	"time"

	"github.com/google/uuid"

	"github.com/phorium/phorium/internal/auth"
	"github.com/phorium/phorium/internal/handler/dto"
	"github.com/phorium/phorium/internal/middleware"
	"github.com/phorium/phorium/internal/model"
)

// SessionIssuer signs gate tokens.
type SessionIssuer interface {
	Issue(subject, role string, ttl time.Duration) (string, time.Time, error)
}

// AccessConfig holds the gate secrets. Empty hashes disable the matching gate.
type AccessConfig struct {
	AccessCodeHash  string
	AdminSecretHash string
	SessionTTL      time.Duration
	SecureCookies   bool
}

// AccessHandler exchanges the shared access code and admin secret for
// signed gate cookies.
type AccessHandler struct {
	issuer SessionIssuer
	cfg    AccessConfig
	logger *slog.Logger
}

// NewAccessHandler creates a new AccessHandler.
func NewAccessHandler(issuer SessionIssuer, cfg AccessConfig, logger *slog.Logger) *AccessHandler {
	return &AccessHandler{
		issuer: issuer,
		cfg:    cfg,
		logger: logger,
	}
}

// Access handles POST /access.
func (h *AccessHandler) Access(w http.ResponseWriter, r *http.Request) {
	if h.cfg.AccessCodeHash == "" {
		writeError(w, http.StatusNotFound, "ACCESS_DISABLED", "Access code is not enabled")
		return
	}

	var req dto.AccessRequest
	if err := decodeJSON(r, &req); err != nil {
		writeError(w, http.StatusBadRequest, "INVALID_JSON", "Invalid request body")
		return
	}

	if !auth.SecretMatches(req.Code, h.cfg.AccessCodeHash) {
		h.logger.Warn("access_code_rejected", "request_id", middleware.GetRequestID(r.Context()))
		writeError(w, http.StatusUnauthorized, "INVALID_CODE", "Invalid access code")
		return
	}

	h.issue(w, middleware.AccessCookieName, uuid.NewString(), model.RoleVisitor)
}

// AdminLogin handles POST /admin/session.
func (h *AccessHandler) AdminLogin(w http.ResponseWriter, r *http.Request) {
	if h.cfg.AdminSecretHash == "" {
		writeError(w, http.StatusNotFound, "ADMIN_DISABLED", "Admin access is not enabled")
		return
	}

	var req dto.AdminSessionRequest
	if err := decodeJSON(r, &req); err != nil {
		writeError(w, http.StatusBadRequest, "INVALID_JSON", "Invalid request body")
		return
	}

	if !auth.SecretMatches(req.Secret, h.cfg.AdminSecretHash) {
		h.logger.Warn("admin_secret_rejected", "request_id", middleware.GetRequestID(r.Context()))
		writeError(w, http.StatusUnauthorized, "INVALID_SECRET", "Invalid admin secret")
		return
	}

	h.logger.Info("admin_session_started", "request_id", middleware.GetRequestID(r.Context()))
	h.issue(w, middleware.AdminCookieName, "admin", model.RoleAdmin)
}

// AdminLogout handles DELETE /admin/session.
func (h *AccessHandler) AdminLogout(w http.ResponseWriter, r *http.Request) {
	http.SetCookie(w, &http.Cookie{
		Name:     middleware.AdminCookieName,
		Value:    "",
		Path:     "/",
		MaxAge:   -1,
		HttpOnly: true,
		Secure:   h.cfg.SecureCookies,
		SameSite: http.SameSiteLaxMode,
	})
	w.WriteHeader(http.StatusNoContent)
}

func (h *AccessHandler) issue(w http.ResponseWriter, cookieName, subject, role string) {
	token, expiresAt, err := h.issuer.Issue(subject, role, h.cfg.SessionTTL)
	if err != nil {
		h.logger.Error("session_issue_failed", "role", role, "error", err)
		writeError(w, http.StatusInternalServerError, "INTERNAL_ERROR", "An internal error occurred")
		return
	}

	http.SetCookie(w, &http.Cookie{
		Name:     cookieName,
		Value:    token,
		Path:     "/",
		Expires:  expiresAt,
		HttpOnly: true,
		Secure:   h.cfg.SecureCookies,
		SameSite: http.SameSiteLaxMode,
	})

	writeJSON(w, http.StatusOK, dto.SessionResponse{OK: true, Role: role, ExpiresAt: expiresAt.Unix()})
}
