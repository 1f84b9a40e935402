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
	"plombipro_backend/internal/quotes/pricing"
	"plombipro_backend/internal/quotes/repository"
	"plombipro_backend/internal/storage"
	"plombipro_backend/platform/apperr"
	"plombipro_backend/platform/config"
	"plombipro_backend/platform/logger"
)

const signatureTokenBytes = 32

// DossierReader resolves the owning dossier; satisfied by the dossiers
// repository.
type DossierReader interface {
	GetByID(ctx context.Context, id uuid.UUID, userID uuid.UUID) (dossierrepo.Dossier, error)
}

// HistoriqueWriter appends quote activity to the dossier's audit trail.
type HistoriqueWriter interface {
	CreateHistoriqueEntry(ctx context.Context, params dossierrepo.CreateHistoriqueParams) (dossierrepo.HistoriqueEntry, error)
}

// Repo is the quote persistence surface; satisfied by *repository.Repository.
type Repo interface {
	NextQuoteNumber(ctx context.Context, userID uuid.UUID) (string, error)
	CreateWithLines(ctx context.Context, quote repository.Quote, lines []repository.Line) (repository.Quote, error)
	ReplaceLines(ctx context.Context, quoteID uuid.UUID, userID uuid.UUID, lines []repository.Line, totalHT, totalTVA, totalTTC float64) error
	GetByID(ctx context.Context, id uuid.UUID, userID uuid.UUID) (repository.Quote, error)
	ListByDossier(ctx context.Context, dossierID uuid.UUID, userID uuid.UUID) ([]repository.Quote, error)
	ListLines(ctx context.Context, quoteID uuid.UUID) ([]repository.Line, error)
	MarkSent(ctx context.Context, id uuid.UUID, userID uuid.UUID, tok string, expiresAt time.Time) error
	MarkSigned(ctx context.Context, id uuid.UUID, signatureName string) error
	MarkRefused(ctx context.Context, id uuid.UUID, reason string) error
	GetBySignatureToken(ctx context.Context, tok string) (repository.Quote, error)
	SetSignedPDFKey(ctx context.Context, id uuid.UUID, key string) error
	Delete(ctx context.Context, id uuid.UUID, userID uuid.UUID) error
}

type Service struct {
	repo       Repo
	dossiers   DossierReader
	historique HistoriqueWriter
	eventBus   events.Bus
	log        *logger.Logger
	ttls       config.TokenTTLConfig
	store      storage.ObjectStore
	pdfBucket  string
}

func New(repo Repo, dossiers DossierReader, historique HistoriqueWriter, eventBus events.Bus, log *logger.Logger, ttls config.TokenTTLConfig) *Service {
	return &Service{repo: repo, dossiers: dossiers, historique: historique, eventBus: eventBus, log: log, ttls: ttls}
}

// SetStorageForPDF injects the object store used for countersigned PDF
// upload and download. Without it the PDF endpoints answer 409.
func (s *Service) SetStorageForPDF(store storage.ObjectStore, bucket string) {
	s.store = store
	s.pdfBucket = bucket
}

func mapRepoErr(err error) error {
	switch {
	case errors.Is(err, repository.ErrNotFound):
		return apperr.NotFound("devis introuvable")
	case errors.Is(err, repository.ErrTokenExpired):
		return apperr.Gone("lien de signature expiré")
	case errors.Is(err, dossierrepo.ErrNotFound):
		return apperr.NotFound("dossier introuvable")
	default:
		return err
	}
}

// LineInput is one quote line as submitted by the artisan.
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

// Create builds a draft quote on a dossier. Totals are computed from the
// lines; they are stored for listing but recomputed on every line change.
func (s *Service) Create(ctx context.Context, userID uuid.UUID, dossierID uuid.UUID, inputs []LineInput) (repository.Quote, []repository.Line, error) {
	if len(inputs) == 0 {
		return repository.Quote{}, nil, apperr.Validation("au moins une ligne est requise")
	}
	if _, err := s.dossiers.GetByID(ctx, dossierID, userID); err != nil {
		return repository.Quote{}, nil, mapRepoErr(err)
	}

	number, err := s.repo.NextQuoteNumber(ctx, userID)
	if err != nil {
		return repository.Quote{}, nil, err
	}

	lines, totals := buildLines(inputs)
	quote, err := s.repo.CreateWithLines(ctx, repository.Quote{
		UserID:      userID,
		DossierID:   dossierID,
		QuoteNumber: number,
		Status:      repository.StatusDraft,
		TotalHT:     totals.TotalHT,
		TotalTVA:    totals.TotalTVA,
		TotalTTC:    totals.TotalTTC,
	}, lines)
	if err != nil {
		return repository.Quote{}, nil, err
	}

	if _, err := s.historique.CreateHistoriqueEntry(ctx, dossierrepo.CreateHistoriqueParams{
		DossierID: dossierID,
		UserID:    userID,
		ActorType: dossierrepo.ActorArtisan,
		Action:    dossierrepo.ActionQuoteCreated,
		Detail:    dossierrepo.TruncateDetail(fmt.Sprintf("Devis %s créé (%.2f € TTC)", number, quote.TotalTTC), dossierrepo.HistoriqueDetailMaxLen),
	}); err != nil {
		return repository.Quote{}, nil, err
	}

	stored, err := s.repo.ListLines(ctx, quote.ID)
	if err != nil {
		return repository.Quote{}, nil, err
	}
	return quote, stored, nil
}

// UpdateLines replaces a draft's lines and recomputes its totals.
func (s *Service) UpdateLines(ctx context.Context, id uuid.UUID, userID uuid.UUID, inputs []LineInput) (repository.Quote, []repository.Line, error) {
	if len(inputs) == 0 {
		return repository.Quote{}, nil, apperr.Validation("au moins une ligne est requise")
	}

	quote, err := s.repo.GetByID(ctx, id, userID)
	if err != nil {
		return repository.Quote{}, nil, mapRepoErr(err)
	}
	if quote.Status != repository.StatusDraft {
		return repository.Quote{}, nil, apperr.Conflict("seul un brouillon peut être modifié")
	}

	lines, totals := buildLines(inputs)
	if err := s.repo.ReplaceLines(ctx, id, userID, lines, totals.TotalHT, totals.TotalTVA, totals.TotalTTC); err != nil {
		return repository.Quote{}, nil, mapRepoErr(err)
	}

	updated, err := s.repo.GetByID(ctx, id, userID)
	if err != nil {
		return repository.Quote{}, nil, mapRepoErr(err)
	}
	stored, err := s.repo.ListLines(ctx, id)
	if err != nil {
		return repository.Quote{}, nil, err
	}
	return updated, stored, nil
}

func (s *Service) Get(ctx context.Context, id uuid.UUID, userID uuid.UUID) (repository.Quote, []repository.Line, error) {
	quote, err := s.repo.GetByID(ctx, id, userID)
	if err != nil {
		return repository.Quote{}, nil, mapRepoErr(err)
	}
	lines, err := s.repo.ListLines(ctx, id)
	if err != nil {
		return repository.Quote{}, nil, err
	}
	return quote, lines, nil
}

func (s *Service) ListByDossier(ctx context.Context, dossierID uuid.UUID, userID uuid.UUID) ([]repository.Quote, error) {
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

// Send marks the quote sent, issues its 30-day signature token, and drives
// the dossier to devis_envoye through a synchronous event: if the dossier
// transition fails the whole send fails. Client delivery (email, SMS) runs
// asynchronously in the notification module and never blocks this path.
func (s *Service) Send(ctx context.Context, id uuid.UUID, userID uuid.UUID) (repository.Quote, error) {
	quote, err := s.repo.GetByID(ctx, id, userID)
	if err != nil {
		return repository.Quote{}, mapRepoErr(err)
	}
	if quote.Status != repository.StatusDraft && quote.Status != repository.StatusSent {
		return repository.Quote{}, apperr.Conflict("ce devis ne peut plus être envoyé")
	}

	d, err := s.dossiers.GetByID(ctx, quote.DossierID, userID)
	if err != nil {
		return repository.Quote{}, mapRepoErr(err)
	}

	tok, err := clientaccess.NewToken(signatureTokenBytes)
	if err != nil {
		return repository.Quote{}, err
	}
	expiresAt := time.Now().Add(s.ttls.GetQuoteTokenTTL())
	if err := s.repo.MarkSent(ctx, id, userID, tok, expiresAt); err != nil {
		return repository.Quote{}, mapRepoErr(err)
	}

	evt := events.QuoteSent{
		BaseEvent:   events.NewBaseEvent(),
		QuoteID:     id,
		DossierID:   quote.DossierID,
		UserID:      userID,
		QuoteNumber: quote.QuoteNumber,
		TotalTTC:    quote.TotalTTC,
		ClientName:  d.ClientFirstName + " " + d.ClientLastName,
		ClientPhone: d.ClientPhone,
		ClientEmail: emailOrEmpty(d.ClientEmail),
		PublicToken: tok,
	}
	if err := s.eventBus.PublishSync(ctx, evt); err != nil {
		return repository.Quote{}, err
	}

	return s.repo.GetByID(ctx, id, userID)
}

func emailOrEmpty(email *string) string {
	if email == nil {
		return ""
	}
	return *email
}
