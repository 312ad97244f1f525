package service

import (
	"context"
	"errors"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/phorium/phorium/internal/metrics"
	"github.com/phorium/phorium/internal/model"
	"github.com/phorium/phorium/internal/repository"
	"github.com/phorium/phorium/internal/storefront"
)

type memConnections struct {
	mu    sync.Mutex
	conns map[string]*model.StoreConnection
}

func newMemConnections() *memConnections {
	return &memConnections{conns: make(map[string]*model.StoreConnection)}
}

func (m *memConnections) UpsertStoreConnection(_ context.Context, conn *model.StoreConnection) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if prev, ok := m.conns[conn.UserID]; ok {
		conn.ID = prev.ID
		conn.CreatedAt = prev.CreatedAt
	}
	cp := *conn
	m.conns[conn.UserID] = &cp
	return nil
}

func (m *memConnections) GetStoreConnection(_ context.Context, userID string) (*model.StoreConnection, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	c, ok := m.conns[userID]
	if !ok {
		return nil, repository.ErrStoreNotConnected
	}
	cp := *c
	return &cp, nil
}

func (m *memConnections) DeleteStoreConnection(_ context.Context, userID string) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if _, ok := m.conns[userID]; !ok {
		return repository.ErrStoreNotConnected
	}
	delete(m.conns, userID)
	return nil
}

type fakeStorefrontAPI struct {
	err       error
	lastCreds storefront.Credentials
	updated   map[int64]string
}

func (f *fakeStorefrontAPI) Shop(_ context.Context, creds storefront.Credentials) (*model.Shop, error) {
	f.lastCreds = creds
	if f.err != nil {
		return nil, f.err
	}
	return &model.Shop{Name: "Demo", Domain: creds.Shop}, nil
}

func (f *fakeStorefrontAPI) ListProducts(_ context.Context, creds storefront.Credentials, limit int) ([]model.Product, error) {
	f.lastCreds = creds
	if f.err != nil {
		return nil, f.err
	}
	return []model.Product{{ID: 1, Title: "Mug"}}, nil
}

func (f *fakeStorefrontAPI) UpdateProductDescription(_ context.Context, creds storefront.Credentials, id int64, html string) (*model.Product, error) {
	f.lastCreds = creds
	if f.err != nil {
		return nil, f.err
	}
	if f.updated == nil {
		f.updated = make(map[int64]string)
	}
	f.updated[id] = html
	return &model.Product{ID: id, DescriptionHTML: html}, nil
}

func (f *fakeStorefrontAPI) CreateProductDraft(_ context.Context, creds storefront.Credentials, title, html string) (*model.Product, error) {
	f.lastCreds = creds
	if f.err != nil {
		return nil, f.err
	}
	return &model.Product{ID: 9, Title: title, Status: "draft", DescriptionHTML: html}, nil
}

func newStorefrontFixture(t *testing.T) (*StorefrontService, *memConnections, *fakeStorefrontAPI, *metrics.InMemoryRecorder) {
	t.Helper()

	conns := newMemConnections()
	api := &fakeStorefrontAPI{}
	rec := metrics.NewInMemory()
	return NewStorefrontService(conns, api, rec, nil), conns, api, rec
}

func TestStorefront_Connect(t *testing.T) {
	svc, conns, api, _ := newStorefrontFixture(t)

	conn, shop, err := svc.Connect(context.Background(), ConnectInput{
		UserID:      "u1",
		Shop:        "https://Demo.myshopify.com/",
		AccessToken: " shpat_1 ",
		Scopes:      []string{"read_products,write_products", "read_products"},
	})
	require.NoError(t, err)

	assert.Equal(t, "demo.myshopify.com", conn.ShopDomain)
	assert.Equal(t, []string{"read_products", "write_products"}, conn.Scopes)
	assert.Equal(t, "Demo", shop.Name)
	assert.Equal(t, storefront.Credentials{Shop: "demo.myshopify.com", Token: "shpat_1"}, api.lastCreds)

	stored, err := conns.GetStoreConnection(context.Background(), "u1")
	require.NoError(t, err)
	assert.Equal(t, "shpat_1", stored.AccessToken)
}

func TestStorefront_ConnectValidation(t *testing.T) {
	tests := []struct {
		name    string
		in      ConnectInput
		wantErr error
	}{
		{"bad shop", ConnectInput{UserID: "u1", Shop: "shop.example.com", AccessToken: "t"}, ErrInvalidShop},
		{"missing token", ConnectInput{UserID: "u1", Shop: "demo.myshopify.com"}, ErrMissingAccessToken},
		{"missing user", ConnectInput{Shop: "demo.myshopify.com", AccessToken: "t"}, ErrInvalidUserID},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			svc, _, _, _ := newStorefrontFixture(t)
			_, _, err := svc.Connect(context.Background(), tt.in)
			assert.ErrorIs(t, err, tt.wantErr)
		})
	}
}

func TestStorefront_ConnectRejectedToken(t *testing.T) {
	svc, conns, api, rec := newStorefrontFixture(t)
	api.err = storefront.ErrUnauthorized

	_, _, err := svc.Connect(context.Background(), ConnectInput{UserID: "u1", Shop: "demo.myshopify.com", AccessToken: "bad"})
	require.ErrorIs(t, err, ErrStoreUnauthorized)

	_, getErr := conns.GetStoreConnection(context.Background(), "u1")
	assert.ErrorIs(t, getErr, repository.ErrStoreNotConnected)
	assert.Equal(t, uint64(1), rec.Snapshot().StorefrontCalls["connect/rejected"])
}

func TestStorefront_StatusAndDisconnect(t *testing.T) {
	ctx := context.Background()
	svc, _, _, _ := newStorefrontFixture(t)

	status, err := svc.Status(ctx, "u1")
	require.NoError(t, err)
	assert.False(t, status.Connected)

	_, _, err = svc.Connect(ctx, ConnectInput{UserID: "u1", Shop: "demo.myshopify.com", AccessToken: "t"})
	require.NoError(t, err)

	status, err = svc.Status(ctx, "u1")
	require.NoError(t, err)
	assert.True(t, status.Connected)

	require.NoError(t, svc.Disconnect(ctx, "u1"))
	assert.ErrorIs(t, svc.Disconnect(ctx, "u1"), ErrStoreNotConnected)
}

func TestStorefront_ProductsRequiresConnection(t *testing.T) {
	svc, _, _, _ := newStorefrontFixture(t)

	_, err := svc.Products(context.Background(), "u1", 10)
	assert.ErrorIs(t, err, ErrStoreNotConnected)
}

func TestStorefront_PublishDescription(t *testing.T) {
	ctx := context.Background()
	svc, _, api, _ := newStorefrontFixture(t)

	_, _, err := svc.Connect(ctx, ConnectInput{UserID: "u1", Shop: "demo.myshopify.com", AccessToken: "t", Scopes: []string{"write_products"}})
	require.NoError(t, err)

	p, err := svc.PublishDescription(ctx, "u1", 42, "<p>copy</p>")
	require.NoError(t, err)
	assert.Equal(t, "<p>copy</p>", p.DescriptionHTML)
	assert.Equal(t, "<p>copy</p>", api.updated[42])

	_, err = svc.PublishDescription(ctx, "u1", 0, "x")
	assert.ErrorIs(t, err, ErrProductNotFound)
}

func TestStorefront_ScopeEnforced(t *testing.T) {
	ctx := context.Background()
	svc, _, _, _ := newStorefrontFixture(t)

	_, _, err := svc.Connect(ctx, ConnectInput{UserID: "u1", Shop: "demo.myshopify.com", AccessToken: "t", Scopes: []string{"read_products"}})
	require.NoError(t, err)

	_, err = svc.PublishDescription(ctx, "u1", 42, "x")
	assert.ErrorIs(t, err, ErrMissingScope)

	_, err = svc.CreateDraft(ctx, "u1", "Mug", "x")
	assert.ErrorIs(t, err, ErrMissingScope)

	products, err := svc.Products(ctx, "u1", 5)
	require.NoError(t, err)
	assert.Len(t, products, 1)
}

func TestStorefront_CreateDraft(t *testing.T) {
	ctx := context.Background()
	svc, _, _, _ := newStorefrontFixture(t)

	_, _, err := svc.Connect(ctx, ConnectInput{UserID: "u1", Shop: "demo.myshopify.com", AccessToken: "t"})
	require.NoError(t, err)

	_, err = svc.CreateDraft(ctx, "u1", "  ", "x")
	assert.ErrorIs(t, err, ErrInvalidProductTitle)

	p, err := svc.CreateDraft(ctx, "u1", "Mug", "<p>x</p>")
	require.NoError(t, err)
	assert.Equal(t, "draft", p.Status)
}

func TestStorefront_UpstreamFailure(t *testing.T) {
	ctx := context.Background()
	svc, _, api, rec := newStorefrontFixture(t)

	_, _, err := svc.Connect(ctx, ConnectInput{UserID: "u1", Shop: "demo.myshopify.com", AccessToken: "t"})
	require.NoError(t, err)

	api.err = &storefront.APIError{StatusCode: 500, Message: "boom"}
	_, err = svc.Products(ctx, "u1", 5)
	require.ErrorIs(t, err, ErrStorefrontFailed)

	var apiErr *storefront.APIError
	assert.False(t, errors.As(err, &apiErr), "upstream error detail is flattened into the message")
	assert.Equal(t, uint64(1), rec.Snapshot().StorefrontCalls["products/error"])
}
