package dto

import "github.com/phorium/phorium/internal/model"

// ConnectStoreRequest is the body of POST /api/store/connect.
// The access token has already been exchanged by the caller.
type ConnectStoreRequest struct {
	UserID      string   `json:"user_id"`
	Shop        string   `json:"shop"`
	AccessToken string   `json:"access_token"`
	Scopes      []string `json:"scopes,omitempty"`
}

// StoreResponse describes the connection of a user.
type StoreResponse struct {
	OK         bool                   `json:"ok"`
	Connected  bool                   `json:"connected"`
	Connection *model.StoreConnection `json:"connection,omitempty"`
	Shop       *model.Shop            `json:"shop,omitempty"`
}

// ProductsResponse lists store products.
type ProductsResponse struct {
	OK       bool            `json:"ok"`
	Products []model.Product `json:"products"`
}

// ProductResponse wraps a single product.
type ProductResponse struct {
	OK      bool           `json:"ok"`
	Product *model.Product `json:"product"`
}

// DescriptionRequest is the body of PUT .../products/{productID}/description.
type DescriptionRequest struct {
	BodyHTML string `json:"body_html"`
}

// DraftRequest is the body of POST /api/store/{userID}/products.
type DraftRequest struct {
	Title    string `json:"title"`
	BodyHTML string `json:"body_html"`
}

// AccessRequest is the body of POST /access.
type AccessRequest struct {
	Code string `json:"code"`
}

// AdminSessionRequest is the body of POST /admin/session.
type AdminSessionRequest struct {
	Secret string `json:"secret"`
}

// SessionResponse confirms a gate cookie was issued.
type SessionResponse struct {
	OK        bool   `json:"ok"`
	Role      string `json:"role"`
	ExpiresAt int64  `json:"expires_at"`
}
