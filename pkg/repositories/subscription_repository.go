package repositories

import (
	"context"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"

	"github.com/lumenbrand/lumen-engine/pkg/database"
	"github.com/lumenbrand/lumen-engine/pkg/models"
)

// SubscriptionRepository provides access to organization subscription tiers.
type SubscriptionRepository interface {
	// Get returns nil, nil when the organization has no subscription row.
	Get(ctx context.Context, orgID uuid.UUID) (*models.Subscription, error)
	Upsert(ctx context.Context, sub *models.Subscription) error
}

type subscriptionRepository struct{}

// NewSubscriptionRepository creates a new SubscriptionRepository.
func NewSubscriptionRepository() SubscriptionRepository {
	return &subscriptionRepository{}
}

var _ SubscriptionRepository = (*subscriptionRepository)(nil)

func (r *subscriptionRepository) Get(ctx context.Context, orgID uuid.UUID) (*models.Subscription, error) {
	scope, ok := database.GetTenantScope(ctx)
	if !ok {
		return nil, fmt.Errorf("no tenant scope in context")
	}

	var sub models.Subscription
	var tier string
	err := scope.Conn.QueryRow(ctx, `
		SELECT organization_id, tier, status, updated_at
		FROM organization_subscriptions
		WHERE organization_id = $1`, orgID).Scan(&sub.OrganizationID, &tier, &sub.Status, &sub.UpdatedAt)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get subscription: %w", err)
	}
	sub.Tier = models.Tier(tier)
	return &sub, nil
}

func (r *subscriptionRepository) Upsert(ctx context.Context, sub *models.Subscription) error {
	scope, ok := database.GetTenantScope(ctx)
	if !ok {
		return fmt.Errorf("no tenant scope in context")
	}
	if sub.Status == "" {
		sub.Status = "active"
	}

	err := scope.Conn.QueryRow(ctx, `
		INSERT INTO organization_subscriptions (organization_id, tier, status)
		VALUES ($1, $2, $3)
		ON CONFLICT (organization_id) DO UPDATE
		SET tier = EXCLUDED.tier, status = EXCLUDED.status, updated_at = now()
		RETURNING updated_at`, sub.OrganizationID, string(sub.Tier), sub.Status).Scan(&sub.UpdatedAt)
	if err != nil {
		return fmt.Errorf("failed to upsert subscription: %w", err)
	}
	return nil
}
