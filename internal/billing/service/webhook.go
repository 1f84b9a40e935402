package service

import (
	"context"
	"encoding/json"
	"errors"
	"time"

	"github.com/stripe/stripe-go/v76"
	"github.com/stripe/stripe-go/v76/webhook"

	"plombipro_backend/internal/billing/repository"
	"plombipro_backend/internal/events"
	"plombipro_backend/platform/apperr"
)

// signatureTolerance bounds accepted clock drift on webhook signatures.
const signatureTolerance = 5 * time.Minute

// HandleWebhook verifies a Stripe webhook payload and applies subscription
// events to the local mirror. Unhandled event types are acknowledged and
// ignored.
func (s *Service) HandleWebhook(ctx context.Context, payload []byte, signature string) error {
	event, err := webhook.ConstructEventWithTolerance(payload, signature, s.cfg.GetStripeWebhookSecret(), signatureTolerance)
	if err != nil {
		return apperr.Wrap(apperr.KindUnauthorized, "signature de webhook invalide", err)
	}

	switch event.Type {
	case "customer.subscription.created", "customer.subscription.updated", "customer.subscription.deleted":
		var sub stripe.Subscription
		if err := json.Unmarshal(event.Data.Raw, &sub); err != nil {
			return apperr.Wrap(apperr.KindBadRequest, "contenu de webhook invalide", err)
		}
		return s.applySubscriptionEvent(ctx, string(event.Type), sub)
	default:
		s.log.Debug("ignoring stripe event", "event_type", event.Type)
		return nil
	}
}

func (s *Service) applySubscriptionEvent(ctx context.Context, eventType string, sub stripe.Subscription) error {
	if sub.Customer == nil {
		return apperr.BadRequest("webhook sans client")
	}

	existing, err := s.repo.GetByStripeCustomerID(ctx, sub.Customer.ID)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			// Customer created outside this backend, nothing to mirror onto.
			s.log.Warn("stripe webhook for unknown customer", "customer_id", sub.Customer.ID)
			return nil
		}
		return err
	}

	plan := s.planFromSubscription(sub)
	status := mapSubscriptionStatus(sub.Status)
	if eventType == "customer.subscription.deleted" {
		plan = repository.PlanFree
		status = repository.StatusCanceled
	}

	var periodEnd *time.Time
	if sub.CurrentPeriodEnd > 0 {
		t := time.Unix(sub.CurrentPeriodEnd, 0).UTC()
		periodEnd = &t
	}

	updated, err := s.repo.Upsert(ctx, repository.Subscription{
		UserID:               existing.UserID,
		Plan:                 plan,
		Status:               status,
		StripeCustomerID:     sub.Customer.ID,
		StripeSubscriptionID: sub.ID,
		CurrentPeriodEnd:     periodEnd,
	})
	if err != nil {
		return err
	}

	s.eventBus.Publish(ctx, events.SubscriptionChanged{
		BaseEvent: events.NewBaseEvent(),
		UserID:    updated.UserID,
		Plan:      updated.Plan,
		Status:    updated.Status,
		StripeID:  updated.StripeSubscriptionID,
		EventType: eventType,
	})
	s.log.Info("subscription mirrored",
		"user_id", updated.UserID, "plan", updated.Plan, "status", updated.Status)
	return nil
}

func (s *Service) planFromSubscription(sub stripe.Subscription) string {
	if sub.Items == nil || len(sub.Items.Data) == 0 || sub.Items.Data[0].Price == nil {
		return repository.PlanFree
	}
	switch sub.Items.Data[0].Price.ID {
	case s.cfg.GetStripePriceIDPro():
		return repository.PlanPro
	case s.cfg.GetStripePriceIDEnterprise():
		return repository.PlanEnterprise
	default:
		return repository.PlanFree
	}
}

func mapSubscriptionStatus(status stripe.SubscriptionStatus) string {
	switch status {
	case stripe.SubscriptionStatusTrialing:
		return repository.StatusTrialing
	case stripe.SubscriptionStatusActive:
		return repository.StatusActive
	case stripe.SubscriptionStatusPastDue, stripe.SubscriptionStatusIncomplete, stripe.SubscriptionStatusUnpaid:
		return repository.StatusPastDue
	default:
		return repository.StatusCanceled
	}
}
