// Package quotes provides the devis domain module: quote documents, per-user
// sequential numbering, pricing, and the client signature flow.
package quotes

import (
	"github.com/jackc/pgx/v5/pgxpool"

	dossierrepo "plombipro_backend/internal/dossiers/repository"
	"plombipro_backend/internal/events"
	apphttp "plombipro_backend/internal/http"
	"plombipro_backend/internal/quotes/handler"
	"plombipro_backend/internal/quotes/repository"
	"plombipro_backend/internal/quotes/service"
	"plombipro_backend/internal/storage"
	"plombipro_backend/platform/config"
	"plombipro_backend/platform/logger"
	"plombipro_backend/platform/validator"
)

type Module struct {
	handler       *handler.Handler
	publicHandler *handler.PublicHandler
	Service       *service.Service
}

func NewModule(pool *pgxpool.Pool, val *validator.Validator, bus events.Bus, log *logger.Logger, ttls config.TokenTTLConfig) *Module {
	repo := repository.New(pool)
	dossiers := dossierrepo.New(pool)
	svc := service.New(repo, dossiers, dossiers, bus, log, ttls)

	return &Module{
		handler:       handler.New(svc, val),
		publicHandler: handler.NewPublic(svc, val),
		Service:       svc,
	}
}

func (m *Module) Name() string {
	return "quotes"
}

// SetStorageForPDF injects the object store for countersigned PDF endpoints.
func (m *Module) SetStorageForPDF(store storage.ObjectStore, bucket string) {
	m.Service.SetStorageForPDF(store, bucket)
}

func (m *Module) RegisterRoutes(ctx *apphttp.RouterContext) {
	m.handler.RegisterRoutes(ctx.Protected.Group("/quotes"))
	m.handler.RegisterDossierRoutes(ctx.Protected.Group("/dossiers"))
	m.publicHandler.RegisterRoutes(ctx.Public)
}

var _ apphttp.Module = (*Module)(nil)
