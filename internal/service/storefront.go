package service

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/phorium/phorium/internal/metrics"
	"github.com/phorium/phorium/internal/model"
	"github.com/phorium/phorium/internal/repository"
	"github.com/phorium/phorium/internal/storefront"
)

// Storefront errors.
var (
	ErrStoreNotConnected   = errors.New("store not connected")
	ErrInvalidShop         = errors.New("shop must be a *.myshopify.com domain")
	ErrMissingAccessToken  = errors.New("access_token is required")
	ErrStoreUnauthorized   = errors.New("store rejected the access token")
	ErrProductNotFound     = errors.New("product not found")
	ErrMissingScope        = errors.New("store token lacks the write_products scope")
	ErrInvalidProductTitle = errors.New("title is required")
	ErrStorefrontFailed    = errors.New("storefront request failed")
)

const writeProductsScope = "write_products"

// StoreConnectionStore persists storefront connections.
type StoreConnectionStore interface {
	UpsertStoreConnection(ctx context.Context, conn *model.StoreConnection) error
	GetStoreConnection(ctx context.Context, userID string) (*model.StoreConnection, error)
	DeleteStoreConnection(ctx context.Context, userID string) error
}

// StorefrontAPI is the remote storefront.
type StorefrontAPI interface {
	Shop(ctx context.Context, creds storefront.Credentials) (*model.Shop, error)
	ListProducts(ctx context.Context, creds storefront.Credentials, limit int) ([]model.Product, error)
	UpdateProductDescription(ctx context.Context, creds storefront.Credentials, productID int64, html string) (*model.Product, error)
	CreateProductDraft(ctx context.Context, creds storefront.Credentials, title, html string) (*model.Product, error)
}

// StorefrontService manages the storefront connection of each user.
type StorefrontService struct {
	store   StoreConnectionStore
	api     StorefrontAPI
	metrics metrics.Recorder
	logger  *slog.Logger
}

// NewStorefrontService creates a new StorefrontService.
func NewStorefrontService(store StoreConnectionStore, api StorefrontAPI, recorder metrics.Recorder, logger *slog.Logger) *StorefrontService {
	if recorder == nil {
		recorder = metrics.NewNoop()
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &StorefrontService{store: store, api: api, metrics: recorder, logger: logger}
}

// ConnectInput defines input for connecting a store.
// The access token has already been exchanged by the caller.
type ConnectInput struct {
	UserID      string
	Shop        string
	AccessToken string
	Scopes      []string
}

// StoreStatus reports whether a user has a connected store.
type StoreStatus struct {
	Connected  bool                   `json:"connected"`
	Connection *model.StoreConnection `json:"connection,omitempty"`
}

// Connect verifies the token against the shop and saves the connection.
func (s *StorefrontService) Connect(ctx context.Context, in ConnectInput) (*model.StoreConnection, *model.Shop, error) {
	userID, err := normalizeUserID(in.UserID)
	if err != nil {
		return nil, nil, err
	}
	shopDomain, err := storefront.NormalizeShopDomain(in.Shop)
	if err != nil {
		return nil, nil, ErrInvalidShop
	}
	token := strings.TrimSpace(in.AccessToken)
	if token == "" {
		return nil, nil, ErrMissingAccessToken
	}

	shop, err := s.api.Shop(ctx, storefront.Credentials{Shop: shopDomain, Token: token})
	if err != nil {
		return nil, nil, s.mapAPIError("connect", err)
	}
	s.metrics.IncStorefrontCall("connect", metrics.OutcomeSuccess)

	now := time.Now().UTC()
	conn := &model.StoreConnection{
		ID:          generateULID(),
		UserID:      userID,
		ShopDomain:  shopDomain,
		AccessToken: token,
		Scopes:      normalizeScopes(in.Scopes),
		CreatedAt:   now,
		UpdatedAt:   now,
	}
	if err := s.store.UpsertStoreConnection(ctx, conn); err != nil {
		return nil, nil, fmt.Errorf("save store connection: %w", err)
	}

	s.logger.Info("store connected", "user_id", userID, "shop", shopDomain)

	return conn, shop, nil
}

// Disconnect removes the connection of userID.
func (s *StorefrontService) Disconnect(ctx context.Context, userID string) error {
	userID, err := normalizeUserID(userID)
	if err != nil {
		return err
	}

	err = s.store.DeleteStoreConnection(ctx, userID)
	if errors.Is(err, repository.ErrStoreNotConnected) {
		return ErrStoreNotConnected
	}
	if err != nil {
		return fmt.Errorf("delete store connection: %w", err)
	}
	return nil
}

// Status reports the connection of userID.
func (s *StorefrontService) Status(ctx context.Context, userID string) (*StoreStatus, error) {
	conn, err := s.connection(ctx, userID)
	if errors.Is(err, ErrStoreNotConnected) {
		return &StoreStatus{Connected: false}, nil
	}
	if err != nil {
		return nil, err
	}
	return &StoreStatus{Connected: true, Connection: conn}, nil
}

// Products lists products of the connected store.
func (s *StorefrontService) Products(ctx context.Context, userID string, limit int) ([]model.Product, error) {
	conn, err := s.connection(ctx, userID)
	if err != nil {
		return nil, err
	}

	products, err := s.api.ListProducts(ctx, credentials(conn), limit)
	if err != nil {
		return nil, s.mapAPIError("products", err)
	}
	s.metrics.IncStorefrontCall("products", metrics.OutcomeSuccess)
	return products, nil
}

// PublishDescription writes generated copy onto an existing product.
func (s *StorefrontService) PublishDescription(ctx context.Context, userID string, productID int64, html string) (*model.Product, error) {
	if productID <= 0 {
		return nil, ErrProductNotFound
	}
	conn, err := s.writableConnection(ctx, userID)
	if err != nil {
		return nil, err
	}

	product, err := s.api.UpdateProductDescription(ctx, credentials(conn), productID, html)
	if err != nil {
		return nil, s.mapAPIError("publish", err)
	}
	s.metrics.IncStorefrontCall("publish", metrics.OutcomeSuccess)
	return product, nil
}

// CreateDraft creates an unpublished product from generated copy.
func (s *StorefrontService) CreateDraft(ctx context.Context, userID, title, html string) (*model.Product, error) {
	title = strings.TrimSpace(title)
	if title == "" {
		return nil, ErrInvalidProductTitle
	}
	conn, err := s.writableConnection(ctx, userID)
	if err != nil {
		return nil, err
	}

	product, err := s.api.CreateProductDraft(ctx, credentials(conn), title, html)
	if err != nil {
		return nil, s.mapAPIError("draft", err)
	}
	s.metrics.IncStorefrontCall("draft", metrics.OutcomeSuccess)
	return product, nil
}

func (s *StorefrontService) connection(ctx context.Context, userID string) (*model.StoreConnection, error) {
	userID, err := normalizeUserID(userID)
	if err != nil {
		return nil, err
	}

	conn, err := s.store.GetStoreConnection(ctx, userID)
	if errors.Is(err, repository.ErrStoreNotConnected) {
		return nil, ErrStoreNotConnected
	}
	if err != nil {
		return nil, fmt.Errorf("get store connection: %w", err)
	}
	return conn, nil
}

// writableConnection requires write_products when the token's scopes are known.
func (s *StorefrontService) writableConnection(ctx context.Context, userID string) (*model.StoreConnection, error) {
	conn, err := s.connection(ctx, userID)
	if err != nil {
		return nil, err
	}
	if len(conn.Scopes) > 0 && !conn.HasScope(writeProductsScope) {
		return nil, ErrMissingScope
	}
	return conn, nil
}

func (s *StorefrontService) mapAPIError(op string, err error) error {
	switch {
	case errors.Is(err, storefront.ErrUnauthorized):
		s.metrics.IncStorefrontCall(op, metrics.OutcomeRejected)
		return ErrStoreUnauthorized
	case errors.Is(err, storefront.ErrProductNotFound):
		s.metrics.IncStorefrontCall(op, metrics.OutcomeRejected)
		return ErrProductNotFound
	default:
		s.metrics.IncStorefrontCall(op, metrics.OutcomeError)
		s.logger.Warn("storefront call failed", "operation", op, "error", err)
		return fmt.Errorf("%w: %v", ErrStorefrontFailed, err)
	}
}

func credentials(conn *model.StoreConnection) storefront.Credentials {
	return storefront.Credentials{Shop: conn.ShopDomain, Token: conn.AccessToken}
}

func normalizeScopes(scopes []string) []string {
	out := make([]string, 0, len(scopes))
	seen := make(map[string]bool, len(scopes))
	for _, sc := range scopes {
		for _, part := range strings.Split(sc, ",") {
			part = strings.TrimSpace(part)
			if part == "" || seen[part] {
				continue
			}
			seen[part] = true
			out = append(out, part)
		}
	}
	return out
}
