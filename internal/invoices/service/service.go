package service

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"

	"plombipro_backend/internal/clientaccess"
	dossierrepo "plombipro_backend/internal/dossiers/repository"
	"plombipro_backend/internal/events"
	"plombipro_backend/internal/invoices/repository"
	"plombipro_backend/internal/quotes/pricing"
	quoterepo "plombipro_backend/internal/quotes/repository"
	"plombipro_backend/platform/apperr"
	"plombipro_backend/platform/config"
	"plombipro_backend/platform/logger"
)

const (
	viewTokenBytes = 32

	// Invoices are due 30 days after issue unless the artisan overrides it.
	defaultPaymentTermDays = 30
)

// DossierReader resolves the owning dossier; satisfied by the dossiers
// repository.
type DossierReader interface {
	GetByID(ctx context.Context, id uuid.UUID, userID uuid.UUID) (dossierrepo.Dossier, error)
}

// HistoriqueWriter appends invoice activity to the dossier's audit trail.
type HistoriqueWriter interface {
	CreateHistoriqueEntry(ctx context.Context, params dossierrepo.CreateHistoriqueParams) (dossierrepo.HistoriqueEntry, error)
}

// QuoteReader lets an invoice be built from a signed quote; satisfied by the
// quotes repository.
type QuoteReader interface {
	GetByID(ctx context.Context, id uuid.UUID, userID uuid.UUID) (quoterepo.Quote, error)
	ListLines(ctx context.Context, quoteID uuid.UUID) ([]quoterepo.Line, error)
}

// ProfileReader supplies the artisan's billing identity for the invoice
// snapshot; satisfied by the auth repository.
type ProfileReader interface {
	GetBillingDetails(ctx context.Context, userID uuid.UUID) (repository.BillingDetails, error)
}

// Repo is the invoice persistence surface; satisfied by *repository.Repository.
type Repo interface {
	NextInvoiceNumber(ctx context.Context, userID uuid.UUID) (string, error)
	CreateWithLines(ctx context.Context, invoice repository.Invoice, lines []repository.Line) (repository.Invoice, error)
	GetByID(ctx context.Context, id uuid.UUID, userID uuid.UUID) (repository.Invoice, error)
	ListByDossier(ctx context.Context, dossierID uuid.UUID, userID uuid.UUID) ([]repository.Invoice, error)
	ListLines(ctx context.Context, invoiceID uuid.UUID) ([]repository.Line, error)
	MarkSent(ctx context.Context, id uuid.UUID, userID uuid.UUID, tok string, expiresAt time.Time) error
	MarkPaid(ctx context.Context, id uuid.UUID, userID uuid.UUID) error
	GetByViewToken(ctx context.Context, tok string) (repository.Invoice, error)
	Delete(ctx context.Context, id uuid.UUID, userID uuid.UUID) error
}

type Service struct {
	repo       Repo
	dossiers   DossierReader
	historique HistoriqueWriter
	quotes     QuoteReader
	profiles   ProfileReader
	eventBus   events.Bus
	log        *logger.Logger
	ttls       config.TokenTTLConfig
}

func New(repo Repo, dossiers DossierReader, historique HistoriqueWriter, quotes QuoteReader, profiles ProfileReader, eventBus events.Bus, log *logger.Logger, ttls config.TokenTTLConfig) *Service {
	return &Service{repo: repo, dossiers: dossiers, historique: historique, quotes: quotes, profiles: profiles, eventBus: eventBus, log: log, ttls: ttls}
}

func mapRepoErr(err error) error {
	switch {
	case errors.Is(err, repository.ErrNotFound):
		return apperr.NotFound("facture introuvable")
	case errors.Is(err, repository.ErrTokenExpired):
		return apperr.Gone("lien de facture expiré")
	case errors.Is(err, dossierrepo.ErrNotFound):
		return apperr.NotFound("dossier introuvable")
	case errors.Is(err, quoterepo.ErrNotFound):
		return apperr.NotFound("devis introuvable")
	default:
		return err
	}
}

// LineInput is one invoice line as submitted by the artisan.
type LineInput struct {
	Label     string
	Quantity  float64
	UnitPrice float64
	VatRate   float64
	Discount  float64
}

func buildLines(inputs []LineInput) ([]repository.Line, pricing.Totals) {
	priced := make([]pricing.Line, 0, len(inputs))
	for _, in := range inputs {
		priced = append(priced, pricing.Line{
			Label:     in.Label,
			Quantity:  in.Quantity,
			UnitPrice: in.UnitPrice,
			VatRate:   in.VatRate,
			Discount:  in.Discount,
		})
	}
	totals := pricing.Calc(priced)

	lines := make([]repository.Line, 0, len(inputs))
	for i, in := range inputs {
		lines = append(lines, repository.Line{
			Position:  i,
			Label:     in.Label,
			Quantity:  in.Quantity,
			UnitPrice: in.UnitPrice,
			VatRate:   in.VatRate,
			Discount:  in.Discount,
			TotalHT:   totals.Lines[i].TotalHT,
			TotalTVA:  totals.Lines[i].TVA,
		})
	}
	return lines, totals
}

// CreateParams drives invoice creation. When FromQuoteID is set the lines
// are copied from that quote and Lines must be empty.
type CreateParams struct {
	DossierID   uuid.UUID
	FromQuoteID *uuid.UUID
	Lines       []LineInput
	DueDate     *time.Time
}

// Create builds a draft invoice. Both party snapshots are frozen at this
// point: the artisan's from their profile, the client's from the dossier.
func (s *Service) Create(ctx context.Context, userID uuid.UUID, params CreateParams) (repository.Invoice, []repository.Line, error) {
	d, err := s.dossiers.GetByID(ctx, params.DossierID, userID)
	if err != nil {
		return repository.Invoice{}, nil, mapRepoErr(err)
	}

	inputs := params.Lines
	var quoteID *uuid.UUID
	if params.FromQuoteID != nil {
		if len(inputs) > 0 {
			return repository.Invoice{}, nil, apperr.Validation("lignes et devis source sont exclusifs")
		}
		quote, err := s.quotes.GetByID(ctx, *params.FromQuoteID, userID)
		if err != nil {
			return repository.Invoice{}, nil, mapRepoErr(err)
		}
		if quote.DossierID != params.DossierID {
			return repository.Invoice{}, nil, apperr.Validation("le devis n'appartient pas à ce dossier")
		}
		if quote.Status != quoterepo.StatusSigned {
			return repository.Invoice{}, nil, apperr.Conflict("seul un devis signé peut être facturé")
		}
		quoteLines, err := s.quotes.ListLines(ctx, quote.ID)
		if err != nil {
			return repository.Invoice{}, nil, err
		}
		for _, ql := range quoteLines {
			inputs = append(inputs, LineInput{
				Label:     ql.Label,
				Quantity:  ql.Quantity,
				UnitPrice: ql.UnitPrice,
				VatRate:   ql.VatRate,
				Discount:  ql.Discount,
			})
		}
		quoteID = &quote.ID
	}
	if len(inputs) == 0 {
		return repository.Invoice{}, nil, apperr.Validation("au moins une ligne est requise")
	}

	artisan, err := s.profiles.GetBillingDetails(ctx, userID)
	if err != nil {
		return repository.Invoice{}, nil, err
	}

	number, err := s.repo.NextInvoiceNumber(ctx, userID)
	if err != nil {
		return repository.Invoice{}, nil, err
	}

	dueDate := params.DueDate
	if dueDate == nil {
		d := time.Now().AddDate(0, 0, defaultPaymentTermDays)
		dueDate = &d
	}

	lines, totals := buildLines(inputs)
	invoice, err := s.repo.CreateWithLines(ctx, repository.Invoice{
		UserID:         userID,
		DossierID:      params.DossierID,
		QuoteID:        quoteID,
		InvoiceNumber:  number,
		Status:         repository.StatusDraft,
		TotalHT:        totals.TotalHT,
		TotalTVA:       totals.TotalTVA,
		TotalTTC:       totals.TotalTTC,
		DueDate:        dueDate,
		ArtisanDetails: artisan,
		ClientDetails:  clientDetails(d),
	}, lines)
	if err != nil {
		return repository.Invoice{}, nil, err
	}

	if _, err := s.historique.CreateHistoriqueEntry(ctx, dossierrepo.CreateHistoriqueParams{
		DossierID: params.DossierID,
		UserID:    userID,
		ActorType: dossierrepo.ActorArtisan,
		Action:    dossierrepo.ActionInvoiceCreated,
		Detail:    dossierrepo.TruncateDetail(fmt.Sprintf("Facture %s créée (%.2f € TTC)", number, invoice.TotalTTC), dossierrepo.HistoriqueDetailMaxLen),
	}); err != nil {
		return repository.Invoice{}, nil, err
	}

	stored, err := s.repo.ListLines(ctx, invoice.ID)
	if err != nil {
		return repository.Invoice{}, nil, err
	}
	return invoice, stored, nil
}

func clientDetails(d dossierrepo.Dossier) repository.BillingDetails {
	details := repository.BillingDetails{
		Name:    d.ClientFirstName + " " + d.ClientLastName,
		Address: d.AddressStreet,
		ZipCode: d.AddressZipCode,
		City:    d.AddressCity,
		Phone:   d.ClientPhone,
	}
	if d.ClientEmail != nil {
		details.Email = *d.ClientEmail
	}
	return details
}

func (s *Service) Get(ctx context.Context, id uuid.UUID, userID uuid.UUID) (repository.Invoice, []repository.Line, error) {
	invoice, err := s.repo.GetByID(ctx, id, userID)
	if err != nil {
		return repository.Invoice{}, nil, mapRepoErr(err)
	}
	lines, err := s.repo.ListLines(ctx, id)
	if err != nil {
		return repository.Invoice{}, nil, err
	}
	return invoice, lines, nil
}

func (s *Service) ListByDossier(ctx context.Context, dossierID uuid.UUID, userID uuid.UUID) ([]repository.Invoice, error) {
	return s.repo.ListByDossier(ctx, dossierID, userID)
}

func (s *Service) Delete(ctx context.Context, id uuid.UUID, userID uuid.UUID) error {
	if err := s.repo.Delete(ctx, id, userID); err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return apperr.Conflict("seul un brouillon peut être supprimé")
		}
		return err
	}
	return nil
}

// Send marks the invoice sent, issues its 90-day view token, and drives the
// dossier to facture_en_attente through a synchronous event. Client delivery
// runs asynchronously in the notification module.
func (s *Service) Send(ctx context.Context, id uuid.UUID, userID uuid.UUID) (repository.Invoice, error) {
	invoice, err := s.repo.GetByID(ctx, id, userID)
	if err != nil {
		return repository.Invoice{}, mapRepoErr(err)
	}
	if invoice.Status != repository.StatusDraft && invoice.Status != repository.StatusSent {
		return repository.Invoice{}, apperr.Conflict("cette facture ne peut plus être envoyée")
	}

	d, err := s.dossiers.GetByID(ctx, invoice.DossierID, userID)
	if err != nil {
		return repository.Invoice{}, mapRepoErr(err)
	}

	tok, err := clientaccess.NewToken(viewTokenBytes)
	if err != nil {
		return repository.Invoice{}, err
	}
	expiresAt := time.Now().Add(s.ttls.GetInvoiceTokenTTL())
	if err := s.repo.MarkSent(ctx, id, userID, tok, expiresAt); err != nil {
		return repository.Invoice{}, mapRepoErr(err)
	}

	evt := events.InvoiceSent{
		BaseEvent:     events.NewBaseEvent(),
		InvoiceID:     id,
		DossierID:     invoice.DossierID,
		UserID:        userID,
		InvoiceNumber: invoice.InvoiceNumber,
		TotalTTC:      invoice.TotalTTC,
		DueDate:       invoice.DueDate,
		ClientName:    d.ClientFirstName + " " + d.ClientLastName,
		ClientPhone:   d.ClientPhone,
		ClientEmail:   emailOrEmpty(d.ClientEmail),
		PublicToken:   tok,
	}
	if err := s.eventBus.PublishSync(ctx, evt); err != nil {
		return repository.Invoice{}, err
	}

	return s.repo.GetByID(ctx, id, userID)
}

// MarkPaid records payment and drives the dossier to facture_payee.
func (s *Service) MarkPaid(ctx context.Context, id uuid.UUID, userID uuid.UUID) (repository.Invoice, error) {
	invoice, err := s.repo.GetByID(ctx, id, userID)
	if err != nil {
		return repository.Invoice{}, mapRepoErr(err)
	}
	if invoice.Status != repository.StatusSent {
		return repository.Invoice{}, apperr.Conflict("seule une facture envoyée peut être marquée payée")
	}

	if err := s.repo.MarkPaid(ctx, id, userID); err != nil {
		return repository.Invoice{}, mapRepoErr(err)
	}

	evt := events.InvoicePaid{
		BaseEvent:     events.NewBaseEvent(),
		InvoiceID:     id,
		DossierID:     invoice.DossierID,
		UserID:        userID,
		InvoiceNumber: invoice.InvoiceNumber,
		TotalTTC:      invoice.TotalTTC,
		ClientName:    invoice.ClientDetails.Name,
		ClientEmail:   invoice.ClientDetails.Email,
	}
	if err := s.eventBus.PublishSync(ctx, evt); err != nil {
		return repository.Invoice{}, err
	}

	return s.repo.GetByID(ctx, id, userID)
}

func emailOrEmpty(email *string) string {
	if email == nil {
		return ""
	}
	return *email
}
