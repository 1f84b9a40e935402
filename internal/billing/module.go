// Package billing provides the subscription module: a local mirror of Stripe
// subscription state, checkout and portal session endpoints, and the webhook
// that keeps the mirror current.
package billing

import (
	"context"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgxpool"

	authrepo "plombipro_backend/internal/auth/repository"
	"plombipro_backend/internal/billing/handler"
	"plombipro_backend/internal/billing/repository"
	"plombipro_backend/internal/billing/service"
	"plombipro_backend/internal/events"
	apphttp "plombipro_backend/internal/http"
	"plombipro_backend/platform/logger"
	"plombipro_backend/platform/validator"
)

type Module struct {
	handler *handler.Handler
	Service *service.Service
}

// userContacts resolves the name and email sent to Stripe on customer creation.
type userContacts struct {
	users *authrepo.Repository
}

func (u userContacts) GetContact(ctx context.Context, userID uuid.UUID) (string, string, error) {
	user, err := u.users.GetByID(ctx, userID)
	if err != nil {
		return "", "", err
	}
	name := user.CompanyName
	if name == "" {
		name = user.FirstName + " " + user.LastName
	}
	return user.Email, name, nil
}

func NewModule(pool *pgxpool.Pool, cfg service.Config, val *validator.Validator, bus events.Bus, log *logger.Logger) *Module {
	repo := repository.New(pool)
	users := userContacts{users: authrepo.New(pool)}
	svc := service.New(repo, users, cfg, bus, log)

	return &Module{
		handler: handler.New(svc, val),
		Service: svc,
	}
}

func (m *Module) Name() string {
	return "billing"
}

func (m *Module) RegisterRoutes(ctx *apphttp.RouterContext) {
	m.handler.RegisterRoutes(ctx.Protected.Group("/billing"))
	m.handler.RegisterWebhookRoutes(ctx.Engine)
}

var _ apphttp.Module = (*Module)(nil)
