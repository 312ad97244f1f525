package repository

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/lib/pq"

	"github.com/phorium/phorium/internal/model"
)

// ErrStoreNotConnected is returned when a user has no storefront connection.
var ErrStoreNotConnected = errors.New("store not connected")

// UpsertStoreConnection saves the storefront connection of a user,
// replacing any previous one.
func (r *Repository) UpsertStoreConnection(ctx context.Context, conn *model.StoreConnection) error {
	query := `
		INSERT INTO store_connections (id, user_id, shop_domain, access_token, scopes, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7)
		ON CONFLICT (user_id) DO UPDATE
		SET shop_domain = EXCLUDED.shop_domain,
			access_token = EXCLUDED.access_token,
			scopes = EXCLUDED.scopes,
			updated_at = EXCLUDED.updated_at
		RETURNING id, created_at
	`

	err := r.pool.QueryRow(ctx, query,
		conn.ID,
		conn.UserID,
		conn.ShopDomain,
		conn.AccessToken,
		pq.Array(conn.Scopes),
		conn.CreatedAt,
		conn.UpdatedAt,
	).Scan(&conn.ID, &conn.CreatedAt)

	if err != nil {
		return fmt.Errorf("failed to save store connection: %w", err)
	}

	return nil
}

// GetStoreConnection retrieves the storefront connection of a user.
// This is the single lookup for "the current storefront session".
func (r *Repository) GetStoreConnection(ctx context.Context, userID string) (*model.StoreConnection, error) {
	query := `
		SELECT id, user_id, shop_domain, access_token, scopes, created_at, updated_at
		FROM store_connections
		WHERE user_id = $1
	`

	var conn model.StoreConnection
	var scopes []string
	err := r.pool.QueryRow(ctx, query, userID).Scan(
		&conn.ID,
		&conn.UserID,
		&conn.ShopDomain,
		&conn.AccessToken,
		pq.Array(&scopes),
		&conn.CreatedAt,
		&conn.UpdatedAt,
	)

	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrStoreNotConnected
		}
		return nil, fmt.Errorf("failed to get store connection: %w", err)
	}

	conn.Scopes = scopes
	return &conn, nil
}

// DeleteStoreConnection removes the storefront connection of a user.
func (r *Repository) DeleteStoreConnection(ctx context.Context, userID string) error {
	query := `DELETE FROM store_connections WHERE user_id = $1`

	result, err := r.pool.Exec(ctx, query, userID)
	if err != nil {
		return fmt.Errorf("failed to delete store connection: %w", err)
	}

	if result.RowsAffected() == 0 {
		return ErrStoreNotConnected
	}

	return nil
}
