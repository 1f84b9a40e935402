package service

import (
	"context"
	"strings"

	"github.com/google/uuid"

	"plombipro_backend/internal/events"
	"plombipro_backend/internal/quotes/repository"
	"plombipro_backend/platform/apperr"
)

// GetBySignatureToken resolves a signature link to its quote and lines.
func (s *Service) GetBySignatureToken(ctx context.Context, tok string) (repository.Quote, []repository.Line, error) {
	quote, err := s.repo.GetBySignatureToken(ctx, tok)
	if err != nil {
		return repository.Quote{}, nil, mapRepoErr(err)
	}
	lines, err := s.repo.ListLines(ctx, quote.ID)
	if err != nil {
		return repository.Quote{}, nil, err
	}
	return quote, lines, nil
}

// Sign records the client's signature. The dossier moves to gagne and its
// appointment axis to rdv_pending through the synchronous QuoteSigned event:
// a failed dossier transition aborts the signature response, but the quote
// row itself was already marked, matching last-write-wins semantics of the
// store (no cross-table transaction here).
func (s *Service) Sign(ctx context.Context, tok string, signatureName string) (repository.Quote, error) {
	signatureName = strings.TrimSpace(signatureName)
	if signatureName == "" {
		return repository.Quote{}, apperr.Validation("le nom du signataire est requis")
	}

	quote, err := s.repo.GetBySignatureToken(ctx, tok)
	if err != nil {
		return repository.Quote{}, mapRepoErr(err)
	}
	if quote.Status != repository.StatusSent {
		return repository.Quote{}, apperr.Conflict("ce devis ne peut plus être signé")
	}

	d, err := s.dossiers.GetByID(ctx, quote.DossierID, quote.UserID)
	if err != nil {
		return repository.Quote{}, mapRepoErr(err)
	}

	if err := s.repo.MarkSigned(ctx, quote.ID, signatureName); err != nil {
		return repository.Quote{}, mapRepoErr(err)
	}

	evt := events.QuoteSigned{
		BaseEvent:     events.NewBaseEvent(),
		QuoteID:       quote.ID,
		DossierID:     quote.DossierID,
		UserID:        quote.UserID,
		QuoteNumber:   quote.QuoteNumber,
		SignatureName: signatureName,
		TotalTTC:      quote.TotalTTC,
		ClientName:    d.ClientFirstName + " " + d.ClientLastName,
		ClientPhone:   d.ClientPhone,
		ClientEmail:   emailOrEmpty(d.ClientEmail),
	}
	if err := s.eventBus.PublishSync(ctx, evt); err != nil {
		return repository.Quote{}, err
	}

	return s.repo.GetBySignatureToken(ctx, tok)
}

// AttachSignedPDF records the storage key of the countersigned document.
func (s *Service) AttachSignedPDF(ctx context.Context, id uuid.UUID, userID uuid.UUID, objectKey string) error {
	quote, err := s.repo.GetByID(ctx, id, userID)
	if err != nil {
		return mapRepoErr(err)
	}
	if quote.Status != repository.StatusSigned {
		return apperr.Conflict("seul un devis signé peut recevoir un PDF signé")
	}
	return s.repo.SetSignedPDFKey(ctx, quote.ID, objectKey)
}

// Refuse records the client's refusal; the dossier moves to perdu.
func (s *Service) Refuse(ctx context.Context, tok string, reason string) (repository.Quote, error) {
	quote, err := s.repo.GetBySignatureToken(ctx, tok)
	if err != nil {
		return repository.Quote{}, mapRepoErr(err)
	}
	if quote.Status != repository.StatusSent {
		return repository.Quote{}, apperr.Conflict("ce devis ne peut plus être refusé")
	}

	d, err := s.dossiers.GetByID(ctx, quote.DossierID, quote.UserID)
	if err != nil {
		return repository.Quote{}, mapRepoErr(err)
	}

	if err := s.repo.MarkRefused(ctx, quote.ID, strings.TrimSpace(reason)); err != nil {
		return repository.Quote{}, mapRepoErr(err)
	}

	evt := events.QuoteRefused{
		BaseEvent:   events.NewBaseEvent(),
		QuoteID:     quote.ID,
		DossierID:   quote.DossierID,
		UserID:      quote.UserID,
		QuoteNumber: quote.QuoteNumber,
		Reason:      strings.TrimSpace(reason),
		ClientName:  d.ClientFirstName + " " + d.ClientLastName,
		ClientEmail: emailOrEmpty(d.ClientEmail),
	}
	if err := s.eventBus.PublishSync(ctx, evt); err != nil {
		return repository.Quote{}, err
	}

	return s.repo.GetBySignatureToken(ctx, tok)
}
