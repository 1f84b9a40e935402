// Package dossiers provides the dossier domain module: the root aggregate of
// the CRM, its lifecycle state machine, the historique audit trail,
// appointment slots and client links.
package dossiers

import (
	"context"
	"fmt"

	"github.com/jackc/pgx/v5/pgxpool"

	"plombipro_backend/internal/dossiers/domain"
	"plombipro_backend/internal/dossiers/handler"
	"plombipro_backend/internal/dossiers/repository"
	"plombipro_backend/internal/dossiers/service"
	"plombipro_backend/internal/events"
	apphttp "plombipro_backend/internal/http"
	"plombipro_backend/platform/config"
	"plombipro_backend/platform/logger"
	"plombipro_backend/platform/validator"
)

// Module represents the dossiers domain module.
type Module struct {
	handler       *handler.Handler
	publicHandler *handler.PublicHandler
	Service       *service.Service
	log           *logger.Logger
}

// NewModule creates the dossiers module with all dependencies wired.
func NewModule(pool *pgxpool.Pool, val *validator.Validator, bus events.Bus, log *logger.Logger, ttls config.TokenTTLConfig) *Module {
	repo := repository.New(pool)
	svc := service.New(repo, bus, log, ttls)

	return &Module{
		handler:       handler.New(svc, val),
		publicHandler: handler.NewPublic(svc, val),
		Service:       svc,
		log:           log,
	}
}

func (m *Module) Name() string {
	return "dossiers"
}

func (m *Module) RegisterRoutes(ctx *apphttp.RouterContext) {
	m.handler.RegisterRoutes(ctx.Protected.Group("/dossiers"))
	m.publicHandler.RegisterRoutes(ctx.Public)
}

// RegisterHandlers subscribes the dossiers module to quote and invoice
// lifecycle events. Quote events are published synchronously by the quotes
// module, so a failed dossier transition aborts the quote operation.
func (m *Module) RegisterHandlers(bus events.Bus) {
	bus.Subscribe(events.QuoteSent{}.EventName(), events.HandlerFunc(m.onQuoteSent))
	bus.Subscribe(events.QuoteSigned{}.EventName(), events.HandlerFunc(m.onQuoteSigned))
	bus.Subscribe(events.QuoteRefused{}.EventName(), events.HandlerFunc(m.onQuoteRefused))
	bus.Subscribe(events.InvoiceSent{}.EventName(), events.HandlerFunc(m.onInvoiceSent))
	bus.Subscribe(events.InvoicePaid{}.EventName(), events.HandlerFunc(m.onInvoicePaid))
	bus.Subscribe(events.RelanceDue{}.EventName(), events.HandlerFunc(m.onRelanceDue))
}

func (m *Module) onQuoteSent(ctx context.Context, event events.Event) error {
	e, ok := event.(events.QuoteSent)
	if !ok {
		return nil
	}
	_, err := m.Service.Transition(ctx, e.DossierID, e.UserID, domain.ActionQuoteSent,
		service.SystemActor(), fmt.Sprintf("Devis %s envoyé", e.QuoteNumber))
	return err
}

func (m *Module) onQuoteSigned(ctx context.Context, event events.Event) error {
	e, ok := event.(events.QuoteSigned)
	if !ok {
		return nil
	}
	_, err := m.Service.Transition(ctx, e.DossierID, e.UserID, domain.ActionQuoteSigned,
		service.ClientActor(e.SignatureName), fmt.Sprintf("Devis %s signé", e.QuoteNumber))
	return err
}

func (m *Module) onQuoteRefused(ctx context.Context, event events.Event) error {
	e, ok := event.(events.QuoteRefused)
	if !ok {
		return nil
	}
	_, err := m.Service.Transition(ctx, e.DossierID, e.UserID, domain.ActionQuoteRefused,
		service.ClientActor(e.ClientName), fmt.Sprintf("Devis %s refusé", e.QuoteNumber))
	return err
}

func (m *Module) onInvoiceSent(ctx context.Context, event events.Event) error {
	e, ok := event.(events.InvoiceSent)
	if !ok {
		return nil
	}
	_, err := m.Service.Transition(ctx, e.DossierID, e.UserID, domain.ActionInvoiceSent,
		service.SystemActor(), fmt.Sprintf("Facture %s envoyée", e.InvoiceNumber))
	return err
}

func (m *Module) onInvoicePaid(ctx context.Context, event events.Event) error {
	e, ok := event.(events.InvoicePaid)
	if !ok {
		return nil
	}
	_, err := m.Service.Transition(ctx, e.DossierID, e.UserID, domain.ActionInvoicePaid,
		service.SystemActor(), fmt.Sprintf("Facture %s payée", e.InvoiceNumber))
	return err
}

func (m *Module) onRelanceDue(ctx context.Context, event events.Event) error {
	e, ok := event.(events.RelanceDue)
	if !ok {
		return nil
	}
	_, err := m.Service.SendRelance(ctx, e.DossierID, e.UserID, service.SystemActor())
	return err
}

var _ apphttp.Module = (*Module)(nil)
