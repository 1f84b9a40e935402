package service

import (
	"context"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stripe/stripe-go/v76"

	"plombipro_backend/internal/billing/repository"
	appevents "plombipro_backend/internal/events"
	"plombipro_backend/platform/apperr"
	"plombipro_backend/platform/events"
	"plombipro_backend/platform/logger"
)

type fakeSubscriptionRepo struct {
	byUser     map[uuid.UUID]*repository.Subscription
	byCustomer map[string]uuid.UUID
}

func newFakeSubscriptionRepo() *fakeSubscriptionRepo {
	return &fakeSubscriptionRepo{
		byUser:     make(map[uuid.UUID]*repository.Subscription),
		byCustomer: make(map[string]uuid.UUID),
	}
}

func (f *fakeSubscriptionRepo) GetByUserID(_ context.Context, userID uuid.UUID) (repository.Subscription, error) {
	if sub, ok := f.byUser[userID]; ok {
		return *sub, nil
	}
	return repository.Subscription{}, repository.ErrNotFound
}

func (f *fakeSubscriptionRepo) GetByStripeCustomerID(_ context.Context, customerID string) (repository.Subscription, error) {
	if userID, ok := f.byCustomer[customerID]; ok {
		return *f.byUser[userID], nil
	}
	return repository.Subscription{}, repository.ErrNotFound
}

func (f *fakeSubscriptionRepo) SetStripeCustomerID(_ context.Context, userID uuid.UUID, customerID string) error {
	f.byUser[userID] = &repository.Subscription{
		UserID:           userID,
		Plan:             repository.PlanFree,
		Status:           repository.StatusActive,
		StripeCustomerID: customerID,
	}
	f.byCustomer[customerID] = userID
	return nil
}

func (f *fakeSubscriptionRepo) Upsert(_ context.Context, sub repository.Subscription) (repository.Subscription, error) {
	stored := sub
	stored.ID = uuid.New()
	stored.UpdatedAt = time.Now()
	f.byUser[sub.UserID] = &stored
	f.byCustomer[sub.StripeCustomerID] = sub.UserID
	return stored, nil
}

type fakeUsers struct{}

func (fakeUsers) GetContact(_ context.Context, _ uuid.UUID) (string, string, error) {
	return "jean@example.com", "Plomberie Dupont", nil
}

type testStripeConfig struct{ enabled bool }

func (c testStripeConfig) GetStripeSecretKey() string         { return "sk_test_x" }
func (c testStripeConfig) GetStripeWebhookSecret() string     { return "whsec_x" }
func (c testStripeConfig) GetStripePriceIDPro() string        { return "price_pro" }
func (c testStripeConfig) GetStripePriceIDEnterprise() string { return "price_ent" }
func (c testStripeConfig) IsStripeEnabled() bool              { return c.enabled }
func (c testStripeConfig) GetAppBaseURL() string              { return "https://app.plombipro.fr" }

func newFixture(t *testing.T, enabled bool) (*Service, *fakeSubscriptionRepo, events.Bus) {
	t.Helper()
	repo := newFakeSubscriptionRepo()
	log := logger.New("dev")
	bus := events.NewInMemoryBus(log)
	svc := New(repo, fakeUsers{}, testStripeConfig{enabled: enabled}, bus, log)
	return svc, repo, bus
}

func TestGetSubscriptionDefaultsToFreePlan(t *testing.T) {
	svc, _, _ := newFixture(t, true)

	sub, err := svc.GetSubscription(context.Background(), uuid.New())
	if err != nil {
		t.Fatalf("GetSubscription: %v", err)
	}
	if sub.Plan != repository.PlanFree || sub.Status != repository.StatusActive {
		t.Errorf("default = %s/%s, want free/active", sub.Plan, sub.Status)
	}
}

func TestCheckoutSessionRequiresStripeConfigured(t *testing.T) {
	svc, _, _ := newFixture(t, false)

	_, err := svc.CreateCheckoutSession(context.Background(), uuid.New(), repository.PlanPro)
	if apperr.GetKind(err) != apperr.KindConflict {
		t.Fatalf("expected conflict, got %v", err)
	}
	_, err = svc.CreatePortalSession(context.Background(), uuid.New())
	if apperr.GetKind(err) != apperr.KindConflict {
		t.Fatalf("expected conflict, got %v", err)
	}
}

func TestCheckoutSessionRejectsUnknownPlan(t *testing.T) {
	svc, _, _ := newFixture(t, true)

	_, err := svc.CreateCheckoutSession(context.Background(), uuid.New(), "premium")
	if apperr.GetKind(err) != apperr.KindValidation {
		t.Fatalf("expected validation error, got %v", err)
	}
}

func stripeSubscription(customerID, priceID string, status stripe.SubscriptionStatus) stripe.Subscription {
	return stripe.Subscription{
		ID:               "sub_123",
		Customer:         &stripe.Customer{ID: customerID},
		Status:           status,
		CurrentPeriodEnd: time.Now().Add(30 * 24 * time.Hour).Unix(),
		Items: &stripe.SubscriptionItemList{
			Data: []*stripe.SubscriptionItem{
				{Price: &stripe.Price{ID: priceID}},
			},
		},
	}
}

func TestWebhookMirrorsSubscriptionAndPublishes(t *testing.T) {
	svc, repo, bus := newFixture(t, true)

	userID := uuid.New()
	if err := repo.SetStripeCustomerID(context.Background(), userID, "cus_42"); err != nil {
		t.Fatal(err)
	}

	received := make(chan appevents.SubscriptionChanged, 1)
	bus.Subscribe(appevents.SubscriptionChanged{}.EventName(), appevents.HandlerFunc(func(_ context.Context, e appevents.Event) error {
		received <- e.(appevents.SubscriptionChanged)
		return nil
	}))

	err := svc.applySubscriptionEvent(context.Background(), "customer.subscription.created",
		stripeSubscription("cus_42", "price_pro", stripe.SubscriptionStatusTrialing))
	if err != nil {
		t.Fatalf("applySubscriptionEvent: %v", err)
	}

	sub, err := svc.GetSubscription(context.Background(), userID)
	if err != nil {
		t.Fatalf("GetSubscription: %v", err)
	}
	if sub.Plan != repository.PlanPro {
		t.Errorf("plan = %s, want pro", sub.Plan)
	}
	if sub.Status != repository.StatusTrialing {
		t.Errorf("status = %s, want trialing", sub.Status)
	}
	if sub.CurrentPeriodEnd == nil {
		t.Error("expected current period end to be set")
	}

	select {
	case evt := <-received:
		if evt.UserID != userID || evt.Plan != repository.PlanPro {
			t.Errorf("event = %+v", evt)
		}
	case <-time.After(2 * time.Second):
		t.Fatal("SubscriptionChanged never published")
	}
}

func TestWebhookDeletionFallsBackToFree(t *testing.T) {
	svc, repo, _ := newFixture(t, true)

	userID := uuid.New()
	if err := repo.SetStripeCustomerID(context.Background(), userID, "cus_42"); err != nil {
		t.Fatal(err)
	}
	err := svc.applySubscriptionEvent(context.Background(), "customer.subscription.created",
		stripeSubscription("cus_42", "price_ent", stripe.SubscriptionStatusActive))
	if err != nil {
		t.Fatalf("create: %v", err)
	}

	err = svc.applySubscriptionEvent(context.Background(), "customer.subscription.deleted",
		stripeSubscription("cus_42", "price_ent", stripe.SubscriptionStatusCanceled))
	if err != nil {
		t.Fatalf("delete: %v", err)
	}

	sub, _ := svc.GetSubscription(context.Background(), userID)
	if sub.Plan != repository.PlanFree || sub.Status != repository.StatusCanceled {
		t.Errorf("after deletion = %s/%s, want free/canceled", sub.Plan, sub.Status)
	}
}

func TestWebhookUnknownCustomerIsIgnored(t *testing.T) {
	svc, _, _ := newFixture(t, true)

	err := svc.applySubscriptionEvent(context.Background(), "customer.subscription.updated",
		stripeSubscription("cus_inconnu", "price_pro", stripe.SubscriptionStatusActive))
	if err != nil {
		t.Fatalf("expected unknown customer to be ignored, got %v", err)
	}
}

func TestMapSubscriptionStatus(t *testing.T) {
	cases := []struct {
		in   stripe.SubscriptionStatus
		want string
	}{
		{stripe.SubscriptionStatusTrialing, repository.StatusTrialing},
		{stripe.SubscriptionStatusActive, repository.StatusActive},
		{stripe.SubscriptionStatusPastDue, repository.StatusPastDue},
		{stripe.SubscriptionStatusUnpaid, repository.StatusPastDue},
		{stripe.SubscriptionStatusCanceled, repository.StatusCanceled},
		{stripe.SubscriptionStatusIncompleteExpired, repository.StatusCanceled},
	}
	for _, tc := range cases {
		if got := mapSubscriptionStatus(tc.in); got != tc.want {
			t.Errorf("mapSubscriptionStatus(%s) = %s, want %s", tc.in, got, tc.want)
		}
	}
}
