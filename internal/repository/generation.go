package repository

import (
	"context"
	"fmt"

	"github.com/phorium/phorium/internal/model"
)

// CreateGeneration records a generation attempt.
func (r *Repository) CreateGeneration(ctx context.Context, g *model.Generation) error {
	query := `
		INSERT INTO generations (id, user_id, kind, prompt, output, cost, tokens_used, status, created_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)
	`

	_, err := r.pool.Exec(ctx, query,
		g.ID,
		g.UserID,
		g.Kind,
		g.Prompt,
		g.Output,
		g.Cost,
		g.TokensUsed,
		g.Status,
		g.CreatedAt,
	)
	if err != nil {
		return fmt.Errorf("failed to create generation: %w", err)
	}

	return nil
}

// ListGenerations returns the most recent generations of a user, newest first.
func (r *Repository) ListGenerations(ctx context.Context, userID string, limit int) ([]*model.Generation, error) {
	query := `
		SELECT id, user_id, kind, prompt, output, cost, tokens_used, status, created_at
		FROM generations
		WHERE user_id = $1
		ORDER BY created_at DESC, id DESC
		LIMIT $2
	`

	rows, err := r.pool.Query(ctx, query, userID, limit)
	if err != nil {
		return nil, fmt.Errorf("failed to list generations: %w", err)
	}
	defer rows.Close()

	generations := make([]*model.Generation, 0, limit)
	for rows.Next() {
		var g model.Generation
		if err := rows.Scan(
			&g.ID,
			&g.UserID,
			&g.Kind,
			&g.Prompt,
			&g.Output,
			&g.Cost,
			&g.TokensUsed,
			&g.Status,
			&g.CreatedAt,
		); err != nil {
			return nil, fmt.Errorf("failed to scan generation: %w", err)
		}
		generations = append(generations, &g)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to iterate generations: %w", err)
	}

	return generations, nil
}
