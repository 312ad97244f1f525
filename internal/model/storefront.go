package model

import (
	"slices"
	"time"
)

// StoreConnection links a user to a storefront shop.
// There is at most one connection per user.
type StoreConnection struct {
	ID          string    `json:"id"`
	UserID      string    `json:"user_id"`
	ShopDomain  string    `json:"shop_domain"`
	AccessToken string    `json:"-"` // Never serialize
	Scopes      []string  `json:"scopes"`
	CreatedAt   time.Time `json:"created_at"`
	UpdatedAt   time.Time `json:"updated_at"`
}

// HasScope checks whether the stored token was granted a scope.
func (c *StoreConnection) HasScope(scope string) bool {
	return slices.Contains(c.Scopes, scope)
}

// Product is the subset of a storefront product the app reads and writes.
type Product struct {
	ID              int64  `json:"id"`
	Title           string `json:"title"`
	Handle          string `json:"handle"`
	Status          string `json:"status,omitempty"`
	DescriptionHTML string `json:"body_html"`
}

// Shop describes the connected storefront.
type Shop struct {
	Name     string `json:"name"`
	Domain   string `json:"domain"`
	Email    string `json:"email,omitempty"`
	Currency string `json:"currency,omitempty"`
}
