package service

import (
	"context"
	"errors"
	"fmt"
	"testing"
	"time"

	"github.com/google/uuid"

	dossierrepo "plombipro_backend/internal/dossiers/repository"
	appevents "plombipro_backend/internal/events"
	"plombipro_backend/internal/invoices/repository"
	quoterepo "plombipro_backend/internal/quotes/repository"
	"plombipro_backend/platform/apperr"
	"plombipro_backend/platform/events"
	"plombipro_backend/platform/logger"
)

type fakeInvoiceRepo struct {
	invoices map[uuid.UUID]*repository.Invoice
	lines    map[uuid.UUID][]repository.Line
	tokens   map[string]uuid.UUID
	lastNum  int
}

func newFakeInvoiceRepo() *fakeInvoiceRepo {
	return &fakeInvoiceRepo{
		invoices: make(map[uuid.UUID]*repository.Invoice),
		lines:    make(map[uuid.UUID][]repository.Line),
		tokens:   make(map[string]uuid.UUID),
	}
}

func (f *fakeInvoiceRepo) NextInvoiceNumber(_ context.Context, _ uuid.UUID) (string, error) {
	f.lastNum++
	return fmt.Sprintf("F-%d-%04d", time.Now().Year(), f.lastNum), nil
}

func (f *fakeInvoiceRepo) CreateWithLines(_ context.Context, invoice repository.Invoice, lines []repository.Line) (repository.Invoice, error) {
	invoice.ID = uuid.New()
	invoice.CreatedAt = time.Now()
	f.invoices[invoice.ID] = &invoice
	stored := make([]repository.Line, len(lines))
	copy(stored, lines)
	for i := range stored {
		stored[i].ID = uuid.New()
		stored[i].InvoiceID = invoice.ID
	}
	f.lines[invoice.ID] = stored
	return invoice, nil
}

func (f *fakeInvoiceRepo) GetByID(_ context.Context, id uuid.UUID, userID uuid.UUID) (repository.Invoice, error) {
	inv, ok := f.invoices[id]
	if !ok || inv.UserID != userID {
		return repository.Invoice{}, repository.ErrNotFound
	}
	return *inv, nil
}

func (f *fakeInvoiceRepo) ListByDossier(_ context.Context, dossierID uuid.UUID, userID uuid.UUID) ([]repository.Invoice, error) {
	items := make([]repository.Invoice, 0)
	for _, inv := range f.invoices {
		if inv.DossierID == dossierID && inv.UserID == userID {
			items = append(items, *inv)
		}
	}
	return items, nil
}

func (f *fakeInvoiceRepo) ListLines(_ context.Context, invoiceID uuid.UUID) ([]repository.Line, error) {
	return f.lines[invoiceID], nil
}

func (f *fakeInvoiceRepo) MarkSent(_ context.Context, id uuid.UUID, userID uuid.UUID, tok string, expiresAt time.Time) error {
	inv, ok := f.invoices[id]
	if !ok || inv.UserID != userID {
		return repository.ErrNotFound
	}
	now := time.Now()
	inv.Status = repository.StatusSent
	inv.SentAt = &now
	inv.ViewToken = &tok
	inv.TokenExpiresAt = &expiresAt
	f.tokens[tok] = id
	return nil
}

func (f *fakeInvoiceRepo) MarkPaid(_ context.Context, id uuid.UUID, userID uuid.UUID) error {
	inv, ok := f.invoices[id]
	if !ok || inv.UserID != userID || inv.Status != repository.StatusSent {
		return repository.ErrNotFound
	}
	now := time.Now()
	inv.Status = repository.StatusPaid
	inv.PaidAt = &now
	return nil
}

func (f *fakeInvoiceRepo) GetByViewToken(_ context.Context, tok string) (repository.Invoice, error) {
	id, ok := f.tokens[tok]
	if !ok {
		return repository.Invoice{}, repository.ErrNotFound
	}
	inv := f.invoices[id]
	if inv.TokenExpiresAt != nil && inv.TokenExpiresAt.Before(time.Now()) {
		return repository.Invoice{}, repository.ErrTokenExpired
	}
	return *inv, nil
}

func (f *fakeInvoiceRepo) Delete(_ context.Context, id uuid.UUID, userID uuid.UUID) error {
	inv, ok := f.invoices[id]
	if !ok || inv.UserID != userID || inv.Status != repository.StatusDraft {
		return repository.ErrNotFound
	}
	delete(f.invoices, id)
	return nil
}

type fakeDossiers struct {
	dossier dossierrepo.Dossier
}

func (f *fakeDossiers) GetByID(_ context.Context, id uuid.UUID, userID uuid.UUID) (dossierrepo.Dossier, error) {
	if f.dossier.ID != id || f.dossier.UserID != userID {
		return dossierrepo.Dossier{}, dossierrepo.ErrNotFound
	}
	return f.dossier, nil
}

type fakeHistorique struct {
	entries []dossierrepo.CreateHistoriqueParams
}

func (f *fakeHistorique) CreateHistoriqueEntry(_ context.Context, params dossierrepo.CreateHistoriqueParams) (dossierrepo.HistoriqueEntry, error) {
	f.entries = append(f.entries, params)
	return dossierrepo.HistoriqueEntry{ID: uuid.New()}, nil
}

type fakeQuotes struct {
	quotes map[uuid.UUID]quoterepo.Quote
	lines  map[uuid.UUID][]quoterepo.Line
}

func (f *fakeQuotes) GetByID(_ context.Context, id uuid.UUID, userID uuid.UUID) (quoterepo.Quote, error) {
	q, ok := f.quotes[id]
	if !ok || q.UserID != userID {
		return quoterepo.Quote{}, quoterepo.ErrNotFound
	}
	return q, nil
}

func (f *fakeQuotes) ListLines(_ context.Context, quoteID uuid.UUID) ([]quoterepo.Line, error) {
	return f.lines[quoteID], nil
}

type fakeProfiles struct{}

func (fakeProfiles) GetBillingDetails(_ context.Context, _ uuid.UUID) (repository.BillingDetails, error) {
	return repository.BillingDetails{
		Name:    "Plomberie Martin SARL",
		Address: "12 rue des Artisans",
		ZipCode: "69003",
		City:    "Lyon",
		Email:   "contact@plomberie-martin.fr",
		SIRET:   "12345678900012",
	}, nil
}

type testTTLs struct{}

func (testTTLs) GetDossierTokenTTL() time.Duration { return 168 * time.Hour }
func (testTTLs) GetQuoteTokenTTL() time.Duration   { return 720 * time.Hour }
func (testTTLs) GetInvoiceTokenTTL() time.Duration { return 2160 * time.Hour }

type fixture struct {
	repo    *fakeInvoiceRepo
	quotes  *fakeQuotes
	svc     *Service
	bus     *events.InMemoryBus
	userID  uuid.UUID
	dossier dossierrepo.Dossier
	hist    *fakeHistorique
}

func newFixture() *fixture {
	log := logger.New("dev")
	repo := newFakeInvoiceRepo()
	userID := uuid.New()
	email := "marie@example.com"
	dossier := dossierrepo.Dossier{
		ID:              uuid.New(),
		UserID:          userID,
		ClientFirstName: "Marie",
		ClientLastName:  "Dupont",
		ClientPhone:     "+33612345678",
		ClientEmail:     &email,
		AddressStreet:   "8 avenue Jean Jaurès",
		AddressZipCode:  "69007",
		AddressCity:     "Lyon",
	}
	hist := &fakeHistorique{}
	quotes := &fakeQuotes{
		quotes: make(map[uuid.UUID]quoterepo.Quote),
		lines:  make(map[uuid.UUID][]quoterepo.Line),
	}
	bus := events.NewInMemoryBus(log)
	svc := New(repo, &fakeDossiers{dossier: dossier}, hist, quotes, fakeProfiles{}, bus, log, testTTLs{})
	return &fixture{repo: repo, quotes: quotes, svc: svc, bus: bus, userID: userID, dossier: dossier, hist: hist}
}

func TestCreateFreezesPartySnapshots(t *testing.T) {
	fx := newFixture()

	invoice, lines, err := fx.svc.Create(context.Background(), fx.userID, CreateParams{
		DossierID: fx.dossier.ID,
		Lines: []LineInput{
			{Label: "Remplacement chauffe-eau", Quantity: 1, UnitPrice: 650, VatRate: 10},
		},
	})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if invoice.Status != repository.StatusDraft {
		t.Fatalf("status = %s, want draft", invoice.Status)
	}
	if invoice.ArtisanDetails.SIRET != "12345678900012" {
		t.Fatalf("artisan snapshot missing: %+v", invoice.ArtisanDetails)
	}
	if invoice.ClientDetails.Name != "Marie Dupont" || invoice.ClientDetails.City != "Lyon" {
		t.Fatalf("client snapshot = %+v", invoice.ClientDetails)
	}
	if invoice.DueDate == nil {
		t.Fatal("default due date must be set")
	}
	if len(lines) != 1 {
		t.Fatalf("lines = %d, want 1", len(lines))
	}
	if len(fx.hist.entries) != 1 || fx.hist.entries[0].Action != dossierrepo.ActionInvoiceCreated {
		t.Fatalf("expected one invoice_created historique entry, got %+v", fx.hist.entries)
	}
}

func TestCreateFromSignedQuoteCopiesLines(t *testing.T) {
	fx := newFixture()

	quoteID := uuid.New()
	fx.quotes.quotes[quoteID] = quoterepo.Quote{
		ID:        quoteID,
		UserID:    fx.userID,
		DossierID: fx.dossier.ID,
		Status:    quoterepo.StatusSigned,
	}
	fx.quotes.lines[quoteID] = []quoterepo.Line{
		{Label: "Remplacement chauffe-eau", Quantity: 1, UnitPrice: 650, VatRate: 10},
		{Label: "Main d'œuvre", Quantity: 3, UnitPrice: 55, VatRate: 10, Discount: 10},
	}

	invoice, lines, err := fx.svc.Create(context.Background(), fx.userID, CreateParams{
		DossierID:   fx.dossier.ID,
		FromQuoteID: &quoteID,
	})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if invoice.QuoteID == nil || *invoice.QuoteID != quoteID {
		t.Fatalf("quote link = %v, want %s", invoice.QuoteID, quoteID)
	}
	// 650 + 3*55*0.9 = 798.50 HT, TVA 79.85
	if invoice.TotalTTC != 878.35 {
		t.Fatalf("TotalTTC = %.2f, want 878.35", invoice.TotalTTC)
	}
	if len(lines) != 2 {
		t.Fatalf("lines = %d, want 2", len(lines))
	}
}

func TestCreateFromUnsignedQuoteIsRejected(t *testing.T) {
	fx := newFixture()

	quoteID := uuid.New()
	fx.quotes.quotes[quoteID] = quoterepo.Quote{
		ID:        quoteID,
		UserID:    fx.userID,
		DossierID: fx.dossier.ID,
		Status:    quoterepo.StatusSent,
	}

	_, _, err := fx.svc.Create(context.Background(), fx.userID, CreateParams{
		DossierID:   fx.dossier.ID,
		FromQuoteID: &quoteID,
	})
	if apperr.GetKind(err) != apperr.KindConflict {
		t.Fatalf("expected conflict, got %v", err)
	}
}

func TestSendPublishesSyncEventWithToken(t *testing.T) {
	fx := newFixture()

	var captured appevents.InvoiceSent
	fx.bus.Subscribe(appevents.InvoiceSent{}.EventName(), events.HandlerFunc(func(_ context.Context, e events.Event) error {
		captured = e.(appevents.InvoiceSent)
		return nil
	}))

	invoice, _, err := fx.svc.Create(context.Background(), fx.userID, CreateParams{
		DossierID: fx.dossier.ID,
		Lines:     []LineInput{{Label: "Dépannage", Quantity: 1, UnitPrice: 120, VatRate: 20}},
	})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	sent, err := fx.svc.Send(context.Background(), invoice.ID, fx.userID)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if sent.Status != repository.StatusSent {
		t.Fatalf("status = %s, want sent", sent.Status)
	}
	if sent.ViewToken == nil || captured.PublicToken != *sent.ViewToken {
		t.Fatalf("event token %q does not match stored token %v", captured.PublicToken, sent.ViewToken)
	}
	if captured.ClientEmail != "marie@example.com" {
		t.Fatalf("client email = %q", captured.ClientEmail)
	}
}

func TestMarkPaidRequiresSentAndSurfacesTransitionFailure(t *testing.T) {
	fx := newFixture()

	invoice, _, err := fx.svc.Create(context.Background(), fx.userID, CreateParams{
		DossierID: fx.dossier.ID,
		Lines:     []LineInput{{Label: "Dépannage", Quantity: 1, UnitPrice: 120, VatRate: 20}},
	})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if _, err := fx.svc.MarkPaid(context.Background(), invoice.ID, fx.userID); apperr.GetKind(err) != apperr.KindConflict {
		t.Fatalf("expected conflict on draft, got %v", err)
	}

	if _, err := fx.svc.Send(context.Background(), invoice.ID, fx.userID); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	transitionErr := errors.New("dossier transition failed")
	fx.bus.Subscribe(appevents.InvoicePaid{}.EventName(), events.HandlerFunc(func(_ context.Context, _ events.Event) error {
		return transitionErr
	}))

	if _, err := fx.svc.MarkPaid(context.Background(), invoice.ID, fx.userID); !errors.Is(err, transitionErr) {
		t.Fatalf("expected transition error to surface, got %v", err)
	}
}

func TestExpiredViewTokenIsGone(t *testing.T) {
	fx := newFixture()

	invoice, _, err := fx.svc.Create(context.Background(), fx.userID, CreateParams{
		DossierID: fx.dossier.ID,
		Lines:     []LineInput{{Label: "Dépannage", Quantity: 1, UnitPrice: 120, VatRate: 20}},
	})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	sent, err := fx.svc.Send(context.Background(), invoice.ID, fx.userID)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	past := time.Now().Add(-time.Hour)
	fx.repo.invoices[invoice.ID].TokenExpiresAt = &past

	if _, _, err := fx.svc.GetByViewToken(context.Background(), *sent.ViewToken); apperr.GetKind(err) != apperr.KindGone {
		t.Fatalf("expected gone, got %v", err)
	}
}

func TestDeleteOnlyDrafts(t *testing.T) {
	fx := newFixture()

	invoice, _, err := fx.svc.Create(context.Background(), fx.userID, CreateParams{
		DossierID: fx.dossier.ID,
		Lines:     []LineInput{{Label: "Dépannage", Quantity: 1, UnitPrice: 120, VatRate: 20}},
	})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if _, err := fx.svc.Send(context.Background(), invoice.ID, fx.userID); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if err := fx.svc.Delete(context.Background(), invoice.ID, fx.userID); apperr.GetKind(err) != apperr.KindConflict {
		t.Fatalf("expected conflict, got %v", err)
	}
}
