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
	"plombipro_backend/internal/quotes/repository"
	"plombipro_backend/platform/apperr"
	"plombipro_backend/platform/events"
	"plombipro_backend/platform/logger"
)

type fakeQuoteRepo struct {
	quotes  map[uuid.UUID]*repository.Quote
	lines   map[uuid.UUID][]repository.Line
	tokens  map[string]uuid.UUID
	lastNum int
}

func newFakeQuoteRepo() *fakeQuoteRepo {
	return &fakeQuoteRepo{
		quotes: make(map[uuid.UUID]*repository.Quote),
		lines:  make(map[uuid.UUID][]repository.Line),
		tokens: make(map[string]uuid.UUID),
	}
}

func (f *fakeQuoteRepo) NextQuoteNumber(_ context.Context, _ uuid.UUID) (string, error) {
	f.lastNum++
	return fmt.Sprintf("D-%d-%04d", time.Now().Year(), f.lastNum), nil
}

func (f *fakeQuoteRepo) CreateWithLines(_ context.Context, quote repository.Quote, lines []repository.Line) (repository.Quote, error) {
	quote.ID = uuid.New()
	quote.CreatedAt = time.Now()
	f.quotes[quote.ID] = &quote
	stored := make([]repository.Line, len(lines))
	copy(stored, lines)
	for i := range stored {
		stored[i].ID = uuid.New()
		stored[i].QuoteID = quote.ID
	}
	f.lines[quote.ID] = stored
	return quote, nil
}

func (f *fakeQuoteRepo) ReplaceLines(_ context.Context, quoteID uuid.UUID, userID uuid.UUID, lines []repository.Line, totalHT, totalTVA, totalTTC float64) error {
	q, ok := f.quotes[quoteID]
	if !ok || q.UserID != userID {
		return repository.ErrNotFound
	}
	q.TotalHT, q.TotalTVA, q.TotalTTC = totalHT, totalTVA, totalTTC
	f.lines[quoteID] = lines
	return nil
}

func (f *fakeQuoteRepo) GetByID(_ context.Context, id uuid.UUID, userID uuid.UUID) (repository.Quote, error) {
	q, ok := f.quotes[id]
	if !ok || q.UserID != userID {
		return repository.Quote{}, repository.ErrNotFound
	}
	return *q, nil
}

func (f *fakeQuoteRepo) ListByDossier(_ context.Context, dossierID uuid.UUID, userID uuid.UUID) ([]repository.Quote, error) {
	items := make([]repository.Quote, 0)
	for _, q := range f.quotes {
		if q.DossierID == dossierID && q.UserID == userID {
			items = append(items, *q)
		}
	}
	return items, nil
}

func (f *fakeQuoteRepo) ListLines(_ context.Context, quoteID uuid.UUID) ([]repository.Line, error) {
	return f.lines[quoteID], nil
}

func (f *fakeQuoteRepo) MarkSent(_ context.Context, id uuid.UUID, userID uuid.UUID, tok string, expiresAt time.Time) error {
	q, ok := f.quotes[id]
	if !ok || q.UserID != userID {
		return repository.ErrNotFound
	}
	now := time.Now()
	q.Status = repository.StatusSent
	q.SentAt = &now
	q.SignatureToken = &tok
	q.TokenExpiresAt = &expiresAt
	f.tokens[tok] = id
	return nil
}

func (f *fakeQuoteRepo) MarkSigned(_ context.Context, id uuid.UUID, signatureName string) error {
	q, ok := f.quotes[id]
	if !ok || q.Status != repository.StatusSent {
		return repository.ErrNotFound
	}
	now := time.Now()
	q.Status = repository.StatusSigned
	q.SignedAt = &now
	q.SignatureName = &signatureName
	return nil
}

func (f *fakeQuoteRepo) MarkRefused(_ context.Context, id uuid.UUID, reason string) error {
	q, ok := f.quotes[id]
	if !ok || q.Status != repository.StatusSent {
		return repository.ErrNotFound
	}
	q.Status = repository.StatusRefused
	q.RefusalReason = &reason
	return nil
}

func (f *fakeQuoteRepo) GetBySignatureToken(_ context.Context, tok string) (repository.Quote, error) {
	id, ok := f.tokens[tok]
	if !ok {
		return repository.Quote{}, repository.ErrNotFound
	}
	q := f.quotes[id]
	if q.TokenExpiresAt != nil && q.TokenExpiresAt.Before(time.Now()) {
		return repository.Quote{}, repository.ErrTokenExpired
	}
	return *q, nil
}

func (f *fakeQuoteRepo) SetSignedPDFKey(_ context.Context, id uuid.UUID, key string) error {
	q, ok := f.quotes[id]
	if !ok {
		return repository.ErrNotFound
	}
	q.SignedPDFKey = &key
	return nil
}

func (f *fakeQuoteRepo) Delete(_ context.Context, id uuid.UUID, userID uuid.UUID) error {
	q, ok := f.quotes[id]
	if !ok || q.UserID != userID || q.Status != repository.StatusDraft {
		return repository.ErrNotFound
	}
	delete(f.quotes, id)
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

type fixture struct {
	repo    *fakeQuoteRepo
	svc     *Service
	bus     *events.InMemoryBus
	userID  uuid.UUID
	dossier dossierrepo.Dossier
	hist    *fakeHistorique
}

type testTTLs struct{}

func (testTTLs) GetDossierTokenTTL() time.Duration { return 168 * time.Hour }
func (testTTLs) GetQuoteTokenTTL() time.Duration   { return 720 * time.Hour }
func (testTTLs) GetInvoiceTokenTTL() time.Duration { return 2160 * time.Hour }

func newFixture() *fixture {
	log := logger.New("dev")
	repo := newFakeQuoteRepo()
	userID := uuid.New()
	email := "marie@example.com"
	dossier := dossierrepo.Dossier{
		ID:              uuid.New(),
		UserID:          userID,
		ClientFirstName: "Marie",
		ClientLastName:  "Dupont",
		ClientPhone:     "+33612345678",
		ClientEmail:     &email,
	}
	hist := &fakeHistorique{}
	bus := events.NewInMemoryBus(log)
	svc := New(repo, &fakeDossiers{dossier: dossier}, hist, bus, log, testTTLs{})
	return &fixture{repo: repo, svc: svc, bus: bus, userID: userID, dossier: dossier, hist: hist}
}

func TestCreateComputesTotalsFromLines(t *testing.T) {
	fx := newFixture()

	quote, lines, err := fx.svc.Create(context.Background(), fx.userID, fx.dossier.ID, []LineInput{
		{Label: "Remplacement chauffe-eau", Quantity: 1, UnitPrice: 650, VatRate: 10},
		{Label: "Main d'œuvre", Quantity: 3, UnitPrice: 55, VatRate: 10, Discount: 10},
	})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if quote.Status != repository.StatusDraft {
		t.Fatalf("status = %s, want draft", quote.Status)
	}
	// 650 + 3*55*0.9 = 650 + 148.50 = 798.50 HT, TVA 65 + 14.85 = 79.85
	if quote.TotalHT != 798.50 {
		t.Fatalf("TotalHT = %.2f, want 798.50", quote.TotalHT)
	}
	if quote.TotalTVA != 79.85 {
		t.Fatalf("TotalTVA = %.2f, want 79.85", quote.TotalTVA)
	}
	if quote.TotalTTC != 878.35 {
		t.Fatalf("TotalTTC = %.2f, want 878.35", quote.TotalTTC)
	}
	if len(lines) != 2 {
		t.Fatalf("lines = %d, want 2", len(lines))
	}
	if quote.QuoteNumber == "" {
		t.Fatal("quote number must be allocated")
	}
	if len(fx.hist.entries) != 1 || fx.hist.entries[0].Action != dossierrepo.ActionQuoteCreated {
		t.Fatalf("expected one quote_created historique entry, got %+v", fx.hist.entries)
	}
}

func TestUpdateLinesRecomputesTotalsAndRejectsNonDraft(t *testing.T) {
	fx := newFixture()
	quote, _, err := fx.svc.Create(context.Background(), fx.userID, fx.dossier.ID, []LineInput{
		{Label: "Ligne", Quantity: 1, UnitPrice: 100, VatRate: 20},
	})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	updated, _, err := fx.svc.UpdateLines(context.Background(), quote.ID, fx.userID, []LineInput{
		{Label: "Ligne", Quantity: 2, UnitPrice: 100, VatRate: 20},
	})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if updated.TotalTTC != 240 {
		t.Fatalf("TotalTTC = %.2f, want 240", updated.TotalTTC)
	}

	if _, err := fx.svc.Send(context.Background(), quote.ID, fx.userID); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	_, _, err = fx.svc.UpdateLines(context.Background(), quote.ID, fx.userID, []LineInput{
		{Label: "Ligne", Quantity: 3, UnitPrice: 100, VatRate: 20},
	})
	if apperr.GetKind(err) != apperr.KindConflict {
		t.Fatalf("expected conflict editing a sent quote, got %v", err)
	}
}

func TestSendPublishesSyncEventWithToken(t *testing.T) {
	fx := newFixture()
	quote, _, err := fx.svc.Create(context.Background(), fx.userID, fx.dossier.ID, []LineInput{
		{Label: "Ligne", Quantity: 1, UnitPrice: 100, VatRate: 20},
	})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	var received appevents.QuoteSent
	fx.bus.Subscribe(appevents.QuoteSent{}.EventName(), events.HandlerFunc(func(_ context.Context, event events.Event) error {
		received = event.(appevents.QuoteSent)
		return nil
	}))

	sent, err := fx.svc.Send(context.Background(), quote.ID, fx.userID)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if sent.Status != repository.StatusSent {
		t.Fatalf("status = %s, want sent", sent.Status)
	}
	if sent.SignatureToken == nil || *sent.SignatureToken == "" {
		t.Fatal("signature token must be issued")
	}
	if received.PublicToken != *sent.SignatureToken {
		t.Fatal("event must carry the signature token")
	}
	if received.ClientEmail != "marie@example.com" {
		t.Fatalf("event client email = %q", received.ClientEmail)
	}
}

func TestSignFailsWhenDossierTransitionFails(t *testing.T) {
	fx := newFixture()
	quote, _, err := fx.svc.Create(context.Background(), fx.userID, fx.dossier.ID, []LineInput{
		{Label: "Ligne", Quantity: 1, UnitPrice: 100, VatRate: 20},
	})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	sent, err := fx.svc.Send(context.Background(), quote.ID, fx.userID)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	transitionErr := errors.New("dossier transition failed")
	fx.bus.Subscribe(appevents.QuoteSigned{}.EventName(), events.HandlerFunc(func(_ context.Context, _ events.Event) error {
		return transitionErr
	}))

	if _, err := fx.svc.Sign(context.Background(), *sent.SignatureToken, "Marie Dupont"); !errors.Is(err, transitionErr) {
		t.Fatalf("expected the subscriber error to surface, got %v", err)
	}
}

func TestSignAndRefuseRequireSentStatus(t *testing.T) {
	fx := newFixture()
	quote, _, err := fx.svc.Create(context.Background(), fx.userID, fx.dossier.ID, []LineInput{
		{Label: "Ligne", Quantity: 1, UnitPrice: 100, VatRate: 20},
	})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	sent, err := fx.svc.Send(context.Background(), quote.ID, fx.userID)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	signed, err := fx.svc.Sign(context.Background(), *sent.SignatureToken, "Marie Dupont")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if signed.Status != repository.StatusSigned {
		t.Fatalf("status = %s, want signed", signed.Status)
	}

	// Signing twice, or refusing after signing, is rejected.
	if _, err := fx.svc.Sign(context.Background(), *sent.SignatureToken, "Marie Dupont"); apperr.GetKind(err) != apperr.KindConflict {
		t.Fatalf("expected conflict on double sign, got %v", err)
	}
	if _, err := fx.svc.Refuse(context.Background(), *sent.SignatureToken, "trop cher"); apperr.GetKind(err) != apperr.KindConflict {
		t.Fatalf("expected conflict refusing a signed quote, got %v", err)
	}
}

func TestExpiredSignatureTokenIsGone(t *testing.T) {
	fx := newFixture()
	quote, _, err := fx.svc.Create(context.Background(), fx.userID, fx.dossier.ID, []LineInput{
		{Label: "Ligne", Quantity: 1, UnitPrice: 100, VatRate: 20},
	})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	sent, err := fx.svc.Send(context.Background(), quote.ID, fx.userID)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	expired := time.Now().Add(-time.Minute)
	fx.repo.quotes[quote.ID].TokenExpiresAt = &expired

	if _, _, err := fx.svc.GetBySignatureToken(context.Background(), *sent.SignatureToken); apperr.GetKind(err) != apperr.KindGone {
		t.Fatalf("expected gone for expired view, got %v", err)
	}
	if _, err := fx.svc.Sign(context.Background(), *sent.SignatureToken, "Marie Dupont"); apperr.GetKind(err) != apperr.KindGone {
		t.Fatalf("expected gone for expired sign, got %v", err)
	}
	if _, err := fx.svc.Refuse(context.Background(), *sent.SignatureToken, ""); apperr.GetKind(err) != apperr.KindGone {
		t.Fatalf("expected gone for expired refuse, got %v", err)
	}
}
