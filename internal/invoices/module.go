// Package invoices provides the facture domain module: invoice documents with
// frozen party snapshots, per-user yearly numbering, and the client view link.
package invoices

import (
	"context"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgxpool"

	authrepo "plombipro_backend/internal/auth/repository"
	dossierrepo "plombipro_backend/internal/dossiers/repository"
	"plombipro_backend/internal/events"
	apphttp "plombipro_backend/internal/http"
	"plombipro_backend/internal/invoices/handler"
	"plombipro_backend/internal/invoices/repository"
	"plombipro_backend/internal/invoices/service"
	quoterepo "plombipro_backend/internal/quotes/repository"
	"plombipro_backend/platform/config"
	"plombipro_backend/platform/logger"
	"plombipro_backend/platform/validator"
)

type Module struct {
	handler       *handler.Handler
	publicHandler *handler.PublicHandler
	Service       *service.Service
}

// profileReader maps the artisan's account profile onto the billing snapshot.
type profileReader struct {
	users *authrepo.Repository
}

func (p profileReader) GetBillingDetails(ctx context.Context, userID uuid.UUID) (repository.BillingDetails, error) {
	user, err := p.users.GetByID(ctx, userID)
	if err != nil {
		return repository.BillingDetails{}, err
	}
	name := user.CompanyName
	if name == "" {
		name = user.FirstName + " " + user.LastName
	}
	return repository.BillingDetails{
		Name:    name,
		Address: user.CompanyAddress,
		ZipCode: user.CompanyZipCode,
		City:    user.CompanyCity,
		Phone:   user.Phone,
		Email:   user.Email,
		SIRET:   user.SIRET,
		VATID:   user.VATNumber,
	}, nil
}

func NewModule(pool *pgxpool.Pool, val *validator.Validator, bus events.Bus, log *logger.Logger, ttls config.TokenTTLConfig) *Module {
	repo := repository.New(pool)
	dossiers := dossierrepo.New(pool)
	quotes := quoterepo.New(pool)
	profiles := profileReader{users: authrepo.New(pool)}
	svc := service.New(repo, dossiers, dossiers, quotes, profiles, bus, log, ttls)

	return &Module{
		handler:       handler.New(svc, val),
		publicHandler: handler.NewPublic(svc),
		Service:       svc,
	}
}

func (m *Module) Name() string {
	return "invoices"
}

func (m *Module) RegisterRoutes(ctx *apphttp.RouterContext) {
	m.handler.RegisterRoutes(ctx.Protected.Group("/invoices"))
	m.handler.RegisterDossierRoutes(ctx.Protected.Group("/dossiers"))
	m.publicHandler.RegisterRoutes(ctx.Public)
}

var _ apphttp.Module = (*Module)(nil)
