package transport

import (
	"time"

	"plombipro_backend/internal/billing/repository"
)

type CreateCheckoutSessionRequest struct {
	Plan string `json:"plan" validate:"required,oneof=pro enterprise"`
}

type SessionResponse struct {
	URL string `json:"url"`
}

type SubscriptionResponse struct {
	Plan             string     `json:"plan"`
	Status           string     `json:"status"`
	CurrentPeriodEnd *time.Time `json:"currentPeriodEnd,omitempty"`
}

func ToSubscriptionResponse(sub repository.Subscription) SubscriptionResponse {
	return SubscriptionResponse{
		Plan:             sub.Plan,
		Status:           sub.Status,
		CurrentPeriodEnd: sub.CurrentPeriodEnd,
	}
}
