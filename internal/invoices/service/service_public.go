package service

import (
	"context"

	"plombipro_backend/internal/invoices/repository"
)

// GetByViewToken serves the client-facing invoice view. Expiry is enforced
// on every access.
func (s *Service) GetByViewToken(ctx context.Context, tok string) (repository.Invoice, []repository.Line, error) {
	invoice, err := s.repo.GetByViewToken(ctx, tok)
	if err != nil {
		return repository.Invoice{}, nil, mapRepoErr(err)
	}
	lines, err := s.repo.ListLines(ctx, invoice.ID)
	if err != nil {
		return repository.Invoice{}, nil, err
	}
	return invoice, lines, nil
}
