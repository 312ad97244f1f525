package handler

import (
	"context"
	"log/slog"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"

	"github.com/phorium/phorium/internal/handler/dto"
	"github.com/phorium/phorium/internal/model"
	"github.com/phorium/phorium/internal/service"
)

// Storefront manages store connections and product writes.
type Storefront interface {
	Connect(ctx context.Context, in service.ConnectInput) (*model.StoreConnection, *model.Shop, error)
	Disconnect(ctx context.Context, userID string) error
	Status(ctx context.Context, userID string) (*service.StoreStatus, error)
	Products(ctx context.Context, userID string, limit int) ([]model.Product, error)
	PublishDescription(ctx context.Context, userID string, productID int64, html string) (*model.Product, error)
	CreateDraft(ctx context.Context, userID, title, html string) (*model.Product, error)
}

// StoreHandler handles storefront connection and product requests.
type StoreHandler struct {
	svc    Storefront
	logger *slog.Logger
}

// NewStoreHandler creates a new StoreHandler.
func NewStoreHandler(svc Storefront, logger *slog.Logger) *StoreHandler {
	return &StoreHandler{
		svc:    svc,
		logger: logger,
	}
}

// Connect handles POST /api/store/connect.
func (h *StoreHandler) Connect(w http.ResponseWriter, r *http.Request) {
	var req dto.ConnectStoreRequest
	if err := decodeJSON(r, &req); err != nil {
		writeError(w, http.StatusBadRequest, "INVALID_JSON", "Invalid request body")
		return
	}

	conn, shop, err := h.svc.Connect(r.Context(), service.ConnectInput{
		UserID:      req.UserID,
		Shop:        req.Shop,
		AccessToken: req.AccessToken,
		Scopes:      req.Scopes,
	})
	if err != nil {
		handleServiceError(w, h.logger, err)
		return
	}

	writeJSON(w, http.StatusOK, dto.StoreResponse{OK: true, Connected: true, Connection: conn, Shop: shop})
}

// Disconnect handles DELETE /api/store/{userID}.
func (h *StoreHandler) Disconnect(w http.ResponseWriter, r *http.Request) {
	userID := chi.URLParam(r, "userID")
	if err := h.svc.Disconnect(r.Context(), userID); err != nil {
		handleServiceError(w, h.logger, err)
		return
	}

	h.logger.Info("store_disconnected", "user_id", userID)

	w.WriteHeader(http.StatusNoContent)
}

// Status handles GET /api/store/{userID}.
func (h *StoreHandler) Status(w http.ResponseWriter, r *http.Request) {
	status, err := h.svc.Status(r.Context(), chi.URLParam(r, "userID"))
	if err != nil {
		handleServiceError(w, h.logger, err)
		return
	}
	writeJSON(w, http.StatusOK, dto.StoreResponse{OK: true, Connected: status.Connected, Connection: status.Connection})
}

// Products handles GET /api/store/{userID}/products.
func (h *StoreHandler) Products(w http.ResponseWriter, r *http.Request) {
	products, err := h.svc.Products(r.Context(), chi.URLParam(r, "userID"), queryLimit(r))
	if err != nil {
		handleServiceError(w, h.logger, err)
		return
	}
	if products == nil {
		products = []model.Product{}
	}
	writeJSON(w, http.StatusOK, dto.ProductsResponse{OK: true, Products: products})
}

// PublishDescription handles PUT /api/store/{userID}/products/{productID}/description.
func (h *StoreHandler) PublishDescription(w http.ResponseWriter, r *http.Request) {
	productID, err := strconv.ParseInt(chi.URLParam(r, "productID"), 10, 64)
	if err != nil || productID <= 0 {
		writeError(w, http.StatusBadRequest, "INVALID_PRODUCT_ID", "productID must be a positive integer")
		return
	}

	var req dto.DescriptionRequest
	if err := decodeJSON(r, &req); err != nil {
		writeError(w, http.StatusBadRequest, "INVALID_JSON", "Invalid request body")
		return
	}

	product, err := h.svc.PublishDescription(r.Context(), chi.URLParam(r, "userID"), productID, req.BodyHTML)
	if err != nil {
		handleServiceError(w, h.logger, err)
		return
	}
	writeJSON(w, http.StatusOK, dto.ProductResponse{OK: true, Product: product})
}

// CreateDraft handles POST /api/store/{userID}/products.
func (h *StoreHandler) CreateDraft(w http.ResponseWriter, r *http.Request) {
	var req dto.DraftRequest
	if err := decodeJSON(r, &req); err != nil {
		writeError(w, http.StatusBadRequest, "INVALID_JSON", "Invalid request body")
		return
	}

	product, err := h.svc.CreateDraft(r.Context(), chi.URLParam(r, "userID"), req.Title, req.BodyHTML)
	if err != nil {
		handleServiceError(w, h.logger, err)
		return
	}
	writeJSON(w, http.StatusCreated, dto.ProductResponse{OK: true, Product: product})
}
