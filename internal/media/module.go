// Package media provides dossier attachments: photos, videos, voice notes,
// and plans stored in object storage behind presigned URLs.
package media

import (
	"github.com/jackc/pgx/v5/pgxpool"

	dossierrepo "plombipro_backend/internal/dossiers/repository"
	apphttp "plombipro_backend/internal/http"
	"plombipro_backend/internal/media/handler"
	"plombipro_backend/internal/media/repository"
	"plombipro_backend/internal/media/service"
	"plombipro_backend/internal/storage"
	"plombipro_backend/platform/logger"
	"plombipro_backend/platform/validator"
)

type Module struct {
	handler *handler.Handler
	Service *service.Service
}

func NewModule(pool *pgxpool.Pool, val *validator.Validator, store storage.ObjectStore, bucket string, log *logger.Logger) *Module {
	repo := repository.New(pool)
	dossiers := dossierrepo.New(pool)
	svc := service.New(repo, dossiers, dossiers, store, bucket, log)

	return &Module{
		handler: handler.New(svc, val),
		Service: svc,
	}
}

func (m *Module) Name() string {
	return "media"
}

func (m *Module) RegisterRoutes(ctx *apphttp.RouterContext) {
	m.handler.RegisterRoutes(ctx.Protected.Group("/medias"))
	m.handler.RegisterDossierRoutes(ctx.Protected.Group("/dossiers"))
}

var _ apphttp.Module = (*Module)(nil)
