// Package handler provides HTTP request handlers.
package handler

import (
	"encoding/json"
	"errors"
	"io"
	"log/slog"
	"net/http"
	"strconv"

	"github.com/phorium/phorium/internal/handler/dto"
	"github.com/phorium/phorium/internal/service"
)

// Handler serves the index and the router fallbacks.
type Handler struct {
	version string
}

// New creates a new Handler instance.
func New(version string) *Handler {
	return &Handler{version: version}
}

// Index describes the service.
// GET /
func (h *Handler) Index(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]any{
		"ok":      true,
		"name":    "phorium",
		"version": h.version,
	})
}

// NotFound handles 404 responses.
func (h *Handler) NotFound(w http.ResponseWriter, r *http.Request) {
	writeError(w, http.StatusNotFound, "NOT_FOUND", "Resource not found")
}

// MethodNotAllowed handles 405 responses.
func (h *Handler) MethodNotAllowed(w http.ResponseWriter, r *http.Request) {
	writeError(w, http.StatusMethodNotAllowed, "METHOD_NOT_ALLOWED", "Method not allowed")
}

// writeJSON writes a JSON response with the given status code.
func writeJSON(w http.ResponseWriter, status int, data any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(data)
}

// writeError writes the error envelope.
func writeError(w http.ResponseWriter, status int, code, message string) {
	writeJSON(w, status, dto.ErrorResponse{Error: message, Code: code})
}

func writeInsufficient(w http.ResponseWriter, balance int64) {
	writeJSON(w, http.StatusForbidden, dto.ErrorResponse{
		Error:   "Insufficient credits",
		Code:    "INSUFFICIENT_CREDITS",
		Balance: &balance,
	})
}

// decodeJSON reads a single JSON object. Numbers stay json.Number so amounts
// can be checked for fractions.
func decodeJSON(r *http.Request, v any) error {
	dec := json.NewDecoder(r.Body)
	dec.UseNumber()
	if err := dec.Decode(v); err != nil {
		return err
	}
	if _, err := dec.Token(); !errors.Is(err, io.EOF) {
		return errors.New("unexpected data after JSON body")
	}
	return nil
}

func queryLimit(r *http.Request) int {
	limit, err := strconv.Atoi(r.URL.Query().Get("limit"))
	if err != nil || limit < 0 {
		return 0
	}
	return limit
}

// handleServiceError maps service errors to HTTP responses.
func handleServiceError(w http.ResponseWriter, logger *slog.Logger, err error) {
	switch {
	case errors.Is(err, service.ErrInvalidUserID):
		writeError(w, http.StatusBadRequest, "INVALID_USER_ID", "user_id is required")
	case errors.Is(err, service.ErrInvalidAmount), errors.Is(err, dto.ErrInvalidAmount):
		writeError(w, http.StatusBadRequest, "INVALID_AMOUNT", "amount must be a non-zero integer")
	case errors.Is(err, service.ErrAccountNotFound):
		writeError(w, http.StatusBadRequest, "ACCOUNT_NOT_FOUND", "No credit account for user")
	case errors.Is(err, service.ErrInsufficientCredits):
		writeError(w, http.StatusForbidden, "INSUFFICIENT_CREDITS", "Insufficient credits")
	case errors.Is(err, service.ErrInvalidPrompt):
		writeError(w, http.StatusBadRequest, "INVALID_PROMPT", "A prompt is required")
	case errors.Is(err, service.ErrPromptTooLong):
		writeError(w, http.StatusBadRequest, "PROMPT_TOO_LONG", "Prompt is too long")
	case errors.Is(err, service.ErrInvalidImageSize):
		writeError(w, http.StatusBadRequest, "INVALID_IMAGE_SIZE", "Size must be 256x256, 512x512 or 1024x1024")
	case errors.Is(err, service.ErrProviderUnavailable):
		writeError(w, http.StatusServiceUnavailable, "PROVIDER_UNAVAILABLE", "Generation provider is not configured")
	case errors.Is(err, service.ErrProviderFailed):
		logger.Warn("provider_failed", "error", err)
		writeError(w, http.StatusBadGateway, "PROVIDER_FAILED", "Generation failed, credits were refunded")
	case errors.Is(err, service.ErrInvalidShop):
		writeError(w, http.StatusBadRequest, "INVALID_SHOP", "shop must be a *.myshopify.com domain")
	case errors.Is(err, service.ErrMissingAccessToken):
		writeError(w, http.StatusBadRequest, "MISSING_ACCESS_TOKEN", "access_token is required")
	case errors.Is(err, service.ErrInvalidProductTitle):
		writeError(w, http.StatusBadRequest, "INVALID_TITLE", "title is required")
	case errors.Is(err, service.ErrStoreNotConnected):
		writeError(w, http.StatusNotFound, "STORE_NOT_CONNECTED", "No store connected")
	case errors.Is(err, service.ErrProductNotFound):
		writeError(w, http.StatusNotFound, "PRODUCT_NOT_FOUND", "Product not found")
	case errors.Is(err, service.ErrMissingScope):
		writeError(w, http.StatusForbidden, "MISSING_SCOPE", "Store token lacks the write_products scope")
	case errors.Is(err, service.ErrStoreUnauthorized):
		writeError(w, http.StatusUnprocessableEntity, "STORE_UNAUTHORIZED", "Store rejected the access token")
	case errors.Is(err, service.ErrStorefrontFailed):
		logger.Warn("storefront_failed", "error", err)
		writeError(w, http.StatusBadGateway, "STOREFRONT_FAILED", "Storefront request failed")
	default:
		logger.Error("internal_error", "error", err)
		writeError(w, http.StatusInternalServerError, "INTERNAL_ERROR", "An internal error occurred")
	}
}
