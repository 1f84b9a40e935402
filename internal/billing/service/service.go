// Package service implements subscription billing: the local mirror of Stripe
// subscription state, checkout and portal session creation, and webhook intake.
package service

import (
	"context"
	"errors"

	"github.com/google/uuid"
	"github.com/stripe/stripe-go/v76"
	portalsession "github.com/stripe/stripe-go/v76/billingportal/session"
	checkoutsession "github.com/stripe/stripe-go/v76/checkout/session"
	"github.com/stripe/stripe-go/v76/customer"

	"plombipro_backend/internal/billing/repository"
	"plombipro_backend/internal/events"
	"plombipro_backend/platform/apperr"
	"plombipro_backend/platform/config"
	"plombipro_backend/platform/logger"
)

type Repo interface {
	GetByUserID(ctx context.Context, userID uuid.UUID) (repository.Subscription, error)
	GetByStripeCustomerID(ctx context.Context, customerID string) (repository.Subscription, error)
	SetStripeCustomerID(ctx context.Context, userID uuid.UUID, customerID string) error
	Upsert(ctx context.Context, sub repository.Subscription) (repository.Subscription, error)
}

// UserReader resolves the contact details sent to Stripe when a customer is
// created.
type UserReader interface {
	GetContact(ctx context.Context, userID uuid.UUID) (email, name string, err error)
}

type Config interface {
	config.StripeConfig
	config.AppConfig
}

type Service struct {
	repo     Repo
	users    UserReader
	cfg      Config
	eventBus events.Bus
	log      *logger.Logger
}

func New(repo Repo, users UserReader, cfg Config, eventBus events.Bus, log *logger.Logger) *Service {
	if cfg.IsStripeEnabled() {
		stripe.Key = cfg.GetStripeSecretKey()
	}
	return &Service{repo: repo, users: users, cfg: cfg, eventBus: eventBus, log: log}
}

// GetSubscription returns the user's subscription, defaulting to an active
// free plan when no Stripe state has ever been mirrored.
func (s *Service) GetSubscription(ctx context.Context, userID uuid.UUID) (repository.Subscription, error) {
	sub, err := s.repo.GetByUserID(ctx, userID)
	if errors.Is(err, repository.ErrNotFound) {
		return repository.Subscription{
			UserID: userID,
			Plan:   repository.PlanFree,
			Status: repository.StatusActive,
		}, nil
	}
	return sub, err
}

// CreateCheckoutSession starts a Stripe Checkout flow for the given plan and
// returns the hosted payment page URL.
func (s *Service) CreateCheckoutSession(ctx context.Context, userID uuid.UUID, plan string) (string, error) {
	if !s.cfg.IsStripeEnabled() {
		return "", apperr.Conflict("la facturation en ligne n'est pas configurée")
	}
	priceID, err := s.priceIDForPlan(plan)
	if err != nil {
		return "", err
	}
	customerID, err := s.ensureStripeCustomer(ctx, userID)
	if err != nil {
		return "", err
	}

	baseURL := s.cfg.GetAppBaseURL()
	sess, err := checkoutsession.New(&stripe.CheckoutSessionParams{
		Params:   stripe.Params{Context: ctx},
		Mode:     stripe.String(string(stripe.CheckoutSessionModeSubscription)),
		Customer: stripe.String(customerID),
		LineItems: []*stripe.CheckoutSessionLineItemParams{
			{Price: stripe.String(priceID), Quantity: stripe.Int64(1)},
		},
		SuccessURL: stripe.String(baseURL + "/abonnement?checkout=success"),
		CancelURL:  stripe.String(baseURL + "/abonnement?checkout=cancel"),
	})
	if err != nil {
		return "", err
	}
	return sess.URL, nil
}

// CreatePortalSession returns a Stripe billing portal URL where the artisan
// manages payment methods and cancellation.
func (s *Service) CreatePortalSession(ctx context.Context, userID uuid.UUID) (string, error) {
	if !s.cfg.IsStripeEnabled() {
		return "", apperr.Conflict("la facturation en ligne n'est pas configurée")
	}
	sub, err := s.repo.GetByUserID(ctx, userID)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return "", apperr.Conflict("aucun abonnement à gérer")
		}
		return "", err
	}
	if sub.StripeCustomerID == "" {
		return "", apperr.Conflict("aucun abonnement à gérer")
	}

	sess, err := portalsession.New(&stripe.BillingPortalSessionParams{
		Params:    stripe.Params{Context: ctx},
		Customer:  stripe.String(sub.StripeCustomerID),
		ReturnURL: stripe.String(s.cfg.GetAppBaseURL() + "/abonnement"),
	})
	if err != nil {
		return "", err
	}
	return sess.URL, nil
}

func (s *Service) ensureStripeCustomer(ctx context.Context, userID uuid.UUID) (string, error) {
	sub, err := s.repo.GetByUserID(ctx, userID)
	if err == nil && sub.StripeCustomerID != "" {
		return sub.StripeCustomerID, nil
	}
	if err != nil && !errors.Is(err, repository.ErrNotFound) {
		return "", err
	}

	email, name, err := s.users.GetContact(ctx, userID)
	if err != nil {
		return "", err
	}
	cust, err := customer.New(&stripe.CustomerParams{
		Params: stripe.Params{Context: ctx},
		Email:  stripe.String(email),
		Name:   stripe.String(name),
		Metadata: map[string]string{
			"user_id": userID.String(),
		},
	})
	if err != nil {
		return "", err
	}
	if err := s.repo.SetStripeCustomerID(ctx, userID, cust.ID); err != nil {
		return "", err
	}
	return cust.ID, nil
}

func (s *Service) priceIDForPlan(plan string) (string, error) {
	switch plan {
	case repository.PlanPro:
		return s.cfg.GetStripePriceIDPro(), nil
	case repository.PlanEnterprise:
		return s.cfg.GetStripePriceIDEnterprise(), nil
	default:
		return "", apperr.Validation("offre inconnue")
	}
}
