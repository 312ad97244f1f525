package repository

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"

	"github.com/phorium/phorium/internal/model"
)

// ErrProfileNotFound is returned when a user has no profile row.
var ErrProfileNotFound = errors.New("profile not found")

// SetPlan stores the plan and quota of a user, creating the profile if needed.
// The credit balance is deliberately not read or written here.
func (r *Repository) SetPlan(ctx context.Context, userID string, plan model.Plan, quota int64) (*model.Profile, error) {
	query := `
		INSERT INTO profiles (user_id, plan, plan_quota, updated_at)
		VALUES ($1, $2, $3, $4)
		ON CONFLICT (user_id) DO UPDATE
		SET plan = EXCLUDED.plan,
			plan_quota = EXCLUDED.plan_quota,
			updated_at = EXCLUDED.updated_at
		RETURNING user_id, plan, plan_quota, updated_at
	`

	var profile model.Profile
	err := r.pool.QueryRow(ctx, query, userID, plan, quota, time.Now().UTC()).Scan(
		&profile.UserID,
		&profile.Plan,
		&profile.PlanQuota,
		&profile.UpdatedAt,
	)
	if err != nil {
		return nil, fmt.Errorf("failed to set plan: %w", err)
	}

	return &profile, nil
}

// GetProfile retrieves a user's profile.
func (r *Repository) GetProfile(ctx context.Context, userID string) (*model.Profile, error) {
	query := `
		SELECT user_id, plan, plan_quota, updated_at
		FROM profiles
		WHERE user_id = $1
	`

	var profile model.Profile
	err := r.pool.QueryRow(ctx, query, userID).Scan(
		&profile.UserID,
		&profile.Plan,
		&profile.PlanQuota,
		&profile.UpdatedAt,
	)

	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrProfileNotFound
		}
		return nil, fmt.Errorf("failed to get profile: %w", err)
	}

	return &profile, nil
}
