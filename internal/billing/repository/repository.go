package repository

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

var ErrNotFound = errors.New("subscription not found")

const (
	PlanFree       = "free"
	PlanPro        = "pro"
	PlanEnterprise = "enterprise"

	StatusTrialing = "trialing"
	StatusActive   = "active"
	StatusPastDue  = "past_due"
	StatusCanceled = "canceled"
)

type Repository struct {
	pool *pgxpool.Pool
}

func New(pool *pgxpool.Pool) *Repository {
	return &Repository{pool: pool}
}

// Subscription mirrors the Stripe subscription state for one artisan account.
type Subscription struct {
	ID                   uuid.UUID
	UserID               uuid.UUID
	Plan                 string
	Status               string
	StripeCustomerID     string
	StripeSubscriptionID string
	CurrentPeriodEnd     *time.Time
	CreatedAt            time.Time
	UpdatedAt            time.Time
}

const subscriptionSelectCols = `
	id, user_id, plan, status, stripe_customer_id, stripe_subscription_id,
	current_period_end, created_at, updated_at`

func (r *Repository) GetByUserID(ctx context.Context, userID uuid.UUID) (Subscription, error) {
	var sub Subscription
	err := r.pool.QueryRow(ctx, `
		SELECT`+subscriptionSelectCols+`
		FROM subscriptions WHERE user_id = $1
	`, userID).Scan(scanTargets(&sub)...)
	if errors.Is(err, pgx.ErrNoRows) {
		return Subscription{}, ErrNotFound
	}
	return sub, err
}

func (r *Repository) GetByStripeCustomerID(ctx context.Context, customerID string) (Subscription, error) {
	var sub Subscription
	err := r.pool.QueryRow(ctx, `
		SELECT`+subscriptionSelectCols+`
		FROM subscriptions WHERE stripe_customer_id = $1
	`, customerID).Scan(scanTargets(&sub)...)
	if errors.Is(err, pgx.ErrNoRows) {
		return Subscription{}, ErrNotFound
	}
	return sub, err
}

// SetStripeCustomerID records the Stripe customer created for a user, keeping
// the row at the free plan until a webhook upgrades it.
func (r *Repository) SetStripeCustomerID(ctx context.Context, userID uuid.UUID, customerID string) error {
	_, err := r.pool.Exec(ctx, `
		INSERT INTO subscriptions (user_id, plan, status, stripe_customer_id)
		VALUES ($1, $2, $3, $4)
		ON CONFLICT (user_id) DO UPDATE SET
			stripe_customer_id = EXCLUDED.stripe_customer_id,
			updated_at = now()
	`, userID, PlanFree, StatusActive, customerID)
	return err
}

// Upsert writes the webhook-derived subscription state for a user.
func (r *Repository) Upsert(ctx context.Context, sub Subscription) (Subscription, error) {
	var stored Subscription
	err := r.pool.QueryRow(ctx, `
		INSERT INTO subscriptions (user_id, plan, status, stripe_customer_id, stripe_subscription_id, current_period_end)
		VALUES ($1, $2, $3, $4, $5, $6)
		ON CONFLICT (user_id) DO UPDATE SET
			plan = EXCLUDED.plan,
			status = EXCLUDED.status,
			stripe_customer_id = EXCLUDED.stripe_customer_id,
			stripe_subscription_id = EXCLUDED.stripe_subscription_id,
			current_period_end = EXCLUDED.current_period_end,
			updated_at = now()
		RETURNING`+subscriptionSelectCols,
		sub.UserID, sub.Plan, sub.Status, sub.StripeCustomerID,
		sub.StripeSubscriptionID, sub.CurrentPeriodEnd,
	).Scan(scanTargets(&stored)...)
	return stored, err
}

func scanTargets(s *Subscription) []any {
	return []any{
		&s.ID, &s.UserID, &s.Plan, &s.Status, &s.StripeCustomerID,
		&s.StripeSubscriptionID, &s.CurrentPeriodEnd, &s.CreatedAt, &s.UpdatedAt,
	}
}
