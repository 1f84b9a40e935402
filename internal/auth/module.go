// Package auth provides artisan account management: registration, login with
// bcrypt-checked credentials, JWT access tokens, and the company profile that
// feeds invoice billing snapshots.
package auth

import (
	"github.com/jackc/pgx/v5/pgxpool"

	"plombipro_backend/internal/auth/handler"
	"plombipro_backend/internal/auth/repository"
	"plombipro_backend/internal/auth/service"
	"plombipro_backend/internal/events"
	apphttp "plombipro_backend/internal/http"
	"plombipro_backend/platform/config"
	"plombipro_backend/platform/logger"
	"plombipro_backend/platform/validator"
)

type Module struct {
	handler *handler.Handler
	service *service.Service
}

func NewModule(pool *pgxpool.Pool, cfg config.AuthServiceConfig, val *validator.Validator, bus events.Bus, log *logger.Logger) *Module {
	repo := repository.New(pool)
	svc := service.New(repo, cfg, bus, log)

	return &Module{
		handler: handler.New(svc, val),
		service: svc,
	}
}

func (m *Module) Name() string {
	return "auth"
}

// Service exposes the auth service for cross-module adapters.
func (m *Module) Service() *service.Service {
	return m.service
}

func (m *Module) RegisterRoutes(ctx *apphttp.RouterContext) {
	authGroup := ctx.V1.Group("/auth")
	authGroup.Use(ctx.PublicRateLimiter.RateLimit())
	m.handler.RegisterRoutes(authGroup)

	m.handler.RegisterProfileRoutes(ctx.Protected.Group("/users"))
}

var _ apphttp.Module = (*Module)(nil)
