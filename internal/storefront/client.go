// Package storefront is a small client for the Shopify Admin REST API.
package storefront

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"regexp"
	"strconv"
	"strings"
	"time"

	"github.com/gosimple/slug"
	"github.com/tidwall/gjson"

	"github.com/phorium/phorium/internal/model"
)

// Client errors.
var (
	ErrInvalidShopDomain = errors.New("shop domain must be a *.myshopify.com host")
	ErrUnauthorized      = errors.New("storefront rejected the access token")
	ErrProductNotFound   = errors.New("product not found")
)

// APIError is any other non-success Admin API response.
type APIError struct {
	StatusCode int
	Message    string
}

func (e *APIError) Error() string {
	return fmt.Sprintf("storefront api: status %d: %s", e.StatusCode, e.Message)
}

const (
	DefaultAPIVersion   = "2024-07"
	defaultProductLimit = 50
	maxProductLimit     = 250
	maxResponseBytes    = 4 << 20
	productFields       = "id,title,handle,status,body_html"
)

var shopDomainRegex = regexp.MustCompile(`^[a-z0-9][a-z0-9-]*\.myshopify\.com$`)

// NormalizeShopDomain lowercases the domain and strips scheme and path.
func NormalizeShopDomain(shop string) (string, error) {
	shop = strings.ToLower(strings.TrimSpace(shop))
	shop = strings.TrimPrefix(shop, "https://")
	shop = strings.TrimPrefix(shop, "http://")
	if i := strings.IndexByte(shop, '/'); i >= 0 {
		shop = shop[:i]
	}
	if !shopDomainRegex.MatchString(shop) {
		return "", ErrInvalidShopDomain
	}
	return shop, nil
}

// Credentials identify one shop and the token used against it.
type Credentials struct {
	Shop  string
	Token string
}

// Client calls the Admin API of any connected shop.
type Client struct {
	httpClient *http.Client
	apiVersion string
	baseURL    func(shop string) string
}

// Option configures a Client.
type Option func(*Client)

// WithHTTPClient sets the HTTP client used for requests.
func WithHTTPClient(hc *http.Client) Option {
	return func(c *Client) { c.httpClient = hc }
}

// WithBaseURL routes every shop to a fixed base URL.
func WithBaseURL(base string) Option {
	base = strings.TrimSuffix(base, "/")
	return func(c *Client) {
		c.baseURL = func(string) string { return base + "/admin/api/" + c.apiVersion }
	}
}

// NewClient creates a Client for the given Admin API version.
func NewClient(apiVersion string, opts ...Option) *Client {
	if apiVersion == "" {
		apiVersion = DefaultAPIVersion
	}
	c := &Client{
		httpClient: &http.Client{Timeout: 15 * time.Second},
		apiVersion: apiVersion,
	}
	c.baseURL = func(shop string) string {
		return "https://" + shop + "/admin/api/" + c.apiVersion
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// Shop fetches the shop profile. It doubles as a token check.
func (c *Client) Shop(ctx context.Context, creds Credentials) (*model.Shop, error) {
	raw, err := c.do(ctx, creds, http.MethodGet, "/shop.json", nil)
	if err != nil {
		return nil, err
	}

	s := gjson.GetBytes(raw, "shop")
	return &model.Shop{
		Name:     s.Get("name").String(),
		Domain:   s.Get("myshopify_domain").String(),
		Email:    s.Get("email").String(),
		Currency: s.Get("currency").String(),
	}, nil
}

// ListProducts returns up to limit products.
func (c *Client) ListProducts(ctx context.Context, creds Credentials, limit int) ([]model.Product, error) {
	if limit <= 0 {
		limit = defaultProductLimit
	}
	if limit > maxProductLimit {
		limit = maxProductLimit
	}

	path := "/products.json?limit=" + strconv.Itoa(limit) + "&fields=" + productFields
	raw, err := c.do(ctx, creds, http.MethodGet, path, nil)
	if err != nil {
		return nil, err
	}

	items := gjson.GetBytes(raw, "products").Array()
	products := make([]model.Product, 0, len(items))
	for _, item := range items {
		products = append(products, productFromJSON(item))
	}
	return products, nil
}

// UpdateProductDescription replaces the description HTML of a product.
func (c *Client) UpdateProductDescription(ctx context.Context, creds Credentials, productID int64, html string) (*model.Product, error) {
	body := map[string]any{
		"product": map[string]any{
			"id":        productID,
			"body_html": html,
		},
	}

	raw, err := c.do(ctx, creds, http.MethodPut, "/products/"+strconv.FormatInt(productID, 10)+".json", body)
	if err != nil {
		return nil, err
	}

	p := productFromJSON(gjson.GetBytes(raw, "product"))
	return &p, nil
}

// CreateProductDraft creates an unpublished product.
func (c *Client) CreateProductDraft(ctx context.Context, creds Credentials, title, html string) (*model.Product, error) {
	body := map[string]any{
		"product": map[string]any{
			"title":     title,
			"body_html": html,
			"handle":    slug.Make(title),
			"status":    "draft",
		},
	}

	raw, err := c.do(ctx, creds, http.MethodPost, "/products.json", body)
	if err != nil {
		return nil, err
	}

	p := productFromJSON(gjson.GetBytes(raw, "product"))
	return &p, nil
}

func (c *Client) do(ctx context.Context, creds Credentials, method, path string, body any) ([]byte, error) {
	var reader io.Reader
	if body != nil {
		payload, err := json.Marshal(body)
		if err != nil {
			return nil, fmt.Errorf("failed to encode request: %w", err)
		}
		reader = bytes.NewReader(payload)
	}

	req, err := http.NewRequestWithContext(ctx, method, c.baseURL(creds.Shop)+path, reader)
	if err != nil {
		return nil, fmt.Errorf("failed to build request: %w", err)
	}
	req.Header.Set("X-Shopify-Access-Token", creds.Token)
	req.Header.Set("Accept", "application/json")
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("storefront request failed: %w", err)
	}
	defer resp.Body.Close()

	raw, err := io.ReadAll(io.LimitReader(resp.Body, maxResponseBytes))
	if err != nil {
		return nil, fmt.Errorf("failed to read storefront response: %w", err)
	}

	switch {
	case resp.StatusCode == http.StatusUnauthorized, resp.StatusCode == http.StatusForbidden:
		return nil, ErrUnauthorized
	case resp.StatusCode == http.StatusNotFound:
		return nil, ErrProductNotFound
	case resp.StatusCode < 200 || resp.StatusCode >= 300:
		return nil, &APIError{StatusCode: resp.StatusCode, Message: errorMessage(raw, resp.StatusCode)}
	}

	return raw, nil
}

// errorMessage extracts the "errors" field, which is a string or an object.
func errorMessage(raw []byte, status int) string {
	errs := gjson.GetBytes(raw, "errors")
	if !errs.Exists() {
		return http.StatusText(status)
	}
	if errs.Type == gjson.String {
		return errs.String()
	}
	return errs.Raw
}

func productFromJSON(v gjson.Result) model.Product {
	return model.Product{
		ID:              v.Get("id").Int(),
		Title:           v.Get("title").String(),
		Handle:          v.Get("handle").String(),
		Status:          v.Get("status").String(),
		DescriptionHTML: v.Get("body_html").String(),
	}
}
