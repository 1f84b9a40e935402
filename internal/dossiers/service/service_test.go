package service

import (
	"context"
	"testing"
	"time"

	"github.com/google/uuid"

	"plombipro_backend/internal/dossiers/domain"
	"plombipro_backend/internal/dossiers/repository"
	"plombipro_backend/platform/apperr"
	"plombipro_backend/platform/events"
	"plombipro_backend/platform/logger"
)

type fakeRepo struct {
	dossiers   map[uuid.UUID]*repository.Dossier
	slots      map[uuid.UUID]*repository.Slot
	historique []repository.HistoriqueEntry
	tokens     map[string]uuid.UUID

	failSetStatus  bool
	unknownArtisan uuid.UUID
}

func newFakeRepo() *fakeRepo {
	return &fakeRepo{
		dossiers: make(map[uuid.UUID]*repository.Dossier),
		slots:    make(map[uuid.UUID]*repository.Slot),
		tokens:   make(map[string]uuid.UUID),
	}
}

func (f *fakeRepo) addDossier(userID uuid.UUID, status domain.Status, appt domain.AppointmentStatus) *repository.Dossier {
	d := &repository.Dossier{
		ID:                uuid.New(),
		UserID:            userID,
		ClientFirstName:   "Marie",
		ClientLastName:    "Dupont",
		ClientPhone:       "+33612345678",
		Status:            status,
		AppointmentStatus: appt,
		CreatedAt:         time.Now(),
	}
	f.dossiers[d.ID] = d
	return d
}

func (f *fakeRepo) Create(_ context.Context, params repository.CreateDossierParams) (repository.Dossier, error) {
	if params.UserID == f.unknownArtisan {
		return repository.Dossier{}, repository.ErrArtisanNotFound
	}
	d := &repository.Dossier{
		ID:                uuid.New(),
		UserID:            params.UserID,
		ClientFirstName:   params.ClientFirstName,
		ClientLastName:    params.ClientLastName,
		ClientPhone:       params.ClientPhone,
		ClientEmail:       params.ClientEmail,
		ProblemCategory:   params.ProblemCategory,
		UrgencyLevel:      params.UrgencyLevel,
		Status:            domain.StatusNouveau,
		AppointmentStatus: domain.ApptNone,
		Source:            params.Source,
	}
	f.dossiers[d.ID] = d
	return *d, nil
}

func (f *fakeRepo) GetByID(_ context.Context, id uuid.UUID, userID uuid.UUID) (repository.Dossier, error) {
	d, ok := f.dossiers[id]
	if !ok || d.UserID != userID || d.DeletedAt != nil {
		return repository.Dossier{}, repository.ErrNotFound
	}
	return *d, nil
}

func (f *fakeRepo) List(_ context.Context, params repository.ListParams) ([]repository.Dossier, error) {
	items := make([]repository.Dossier, 0)
	for _, d := range f.dossiers {
		if d.UserID == params.UserID && d.DeletedAt == nil {
			items = append(items, *d)
		}
	}
	return items, nil
}

func (f *fakeRepo) Update(_ context.Context, id uuid.UUID, userID uuid.UUID, params repository.UpdateDossierParams) (repository.Dossier, error) {
	d, ok := f.dossiers[id]
	if !ok || d.UserID != userID {
		return repository.Dossier{}, repository.ErrNotFound
	}
	d.ClientFirstName = params.ClientFirstName
	d.ClientLastName = params.ClientLastName
	return *d, nil
}

func (f *fakeRepo) SetStatus(_ context.Context, id uuid.UUID, userID uuid.UUID, status domain.Status) error {
	if f.failSetStatus {
		return context.DeadlineExceeded
	}
	d, ok := f.dossiers[id]
	if !ok || d.UserID != userID {
		return repository.ErrNotFound
	}
	d.Status = status
	d.StatusChangedAt = time.Now()
	return nil
}

func (f *fakeRepo) SetAppointmentStatus(_ context.Context, id uuid.UUID, userID uuid.UUID, status domain.AppointmentStatus) error {
	d, ok := f.dossiers[id]
	if !ok || d.UserID != userID {
		return repository.ErrNotFound
	}
	d.AppointmentStatus = status
	d.StatusChangedAt = time.Now()
	return nil
}

func (f *fakeRepo) SetSelectedSlot(_ context.Context, id uuid.UUID, slotID uuid.UUID) error {
	d, ok := f.dossiers[id]
	if !ok {
		return repository.ErrNotFound
	}
	d.SelectedSlotID = &slotID
	return nil
}

func (f *fakeRepo) SoftDelete(_ context.Context, id uuid.UUID, userID uuid.UUID) error {
	d, ok := f.dossiers[id]
	if !ok || d.UserID != userID {
		return repository.ErrNotFound
	}
	now := time.Now()
	d.DeletedAt = &now
	return nil
}

func (f *fakeRepo) SetRelanceEnabled(_ context.Context, id uuid.UUID, userID uuid.UUID, enabled bool) error {
	d, ok := f.dossiers[id]
	if !ok || d.UserID != userID {
		return repository.ErrNotFound
	}
	d.RelanceEnabled = enabled
	return nil
}

func (f *fakeRepo) IncrementRelance(_ context.Context, id uuid.UUID, userID uuid.UUID) (int, error) {
	d, ok := f.dossiers[id]
	if !ok || d.UserID != userID {
		return 0, repository.ErrNotFound
	}
	d.RelanceCount++
	now := time.Now()
	d.LastRelanceAt = &now
	return d.RelanceCount, nil
}

func (f *fakeRepo) CountByStatus(_ context.Context, userID uuid.UUID) (map[domain.Status]int, error) {
	counts := make(map[domain.Status]int)
	for _, d := range f.dossiers {
		if d.UserID == userID && d.DeletedAt == nil {
			counts[d.Status]++
		}
	}
	return counts, nil
}

func (f *fakeRepo) CreateHistoriqueEntry(_ context.Context, params repository.CreateHistoriqueParams) (repository.HistoriqueEntry, error) {
	entry := repository.HistoriqueEntry{
		ID:        uuid.New(),
		DossierID: params.DossierID,
		UserID:    params.UserID,
		ActorType: params.ActorType,
		ActorName: params.ActorName,
		Action:    params.Action,
		Detail:    params.Detail,
		Metadata:  params.Metadata,
		CreatedAt: time.Now(),
	}
	f.historique = append(f.historique, entry)
	return entry, nil
}

func (f *fakeRepo) ListHistorique(_ context.Context, dossierID uuid.UUID, _ uuid.UUID) ([]repository.HistoriqueEntry, error) {
	items := make([]repository.HistoriqueEntry, 0)
	for _, e := range f.historique {
		if e.DossierID == dossierID {
			items = append(items, e)
		}
	}
	return items, nil
}

func (f *fakeRepo) GetByPublicToken(_ context.Context, token string) (repository.Dossier, error) {
	id, ok := f.tokens[token]
	if !ok {
		return repository.Dossier{}, repository.ErrNotFound
	}
	d := f.dossiers[id]
	if d.PublicTokenExpires != nil && d.PublicTokenExpires.Before(time.Now()) {
		return repository.Dossier{}, repository.ErrTokenExpired
	}
	return *d, nil
}

func (f *fakeRepo) SetPublicToken(_ context.Context, id uuid.UUID, userID uuid.UUID, token string, expiresAt time.Time) error {
	d, ok := f.dossiers[id]
	if !ok || d.UserID != userID {
		return repository.ErrNotFound
	}
	d.PublicToken = &token
	d.PublicTokenExpires = &expiresAt
	f.tokens[token] = id
	return nil
}

func (f *fakeRepo) ReplaceSlots(_ context.Context, dossierID uuid.UUID, params []repository.CreateSlotParams) ([]repository.Slot, error) {
	for id, slot := range f.slots {
		if slot.DossierID == dossierID {
			delete(f.slots, id)
		}
	}
	created := make([]repository.Slot, 0, len(params))
	for _, p := range params {
		slot := &repository.Slot{
			ID:        uuid.New(),
			DossierID: dossierID,
			SlotDate:  p.SlotDate,
			StartTime: p.StartTime,
			EndTime:   p.EndTime,
		}
		f.slots[slot.ID] = slot
		created = append(created, *slot)
	}
	return created, nil
}

func (f *fakeRepo) ListSlots(_ context.Context, dossierID uuid.UUID) ([]repository.Slot, error) {
	items := make([]repository.Slot, 0)
	for _, slot := range f.slots {
		if slot.DossierID == dossierID {
			items = append(items, *slot)
		}
	}
	return items, nil
}

func (f *fakeRepo) GetSlot(_ context.Context, slotID uuid.UUID, dossierID uuid.UUID) (repository.Slot, error) {
	slot, ok := f.slots[slotID]
	if !ok || slot.DossierID != dossierID {
		return repository.Slot{}, repository.ErrSlotNotFound
	}
	return *slot, nil
}

func (f *fakeRepo) MarkSlotSelected(_ context.Context, slotID uuid.UUID, dossierID uuid.UUID) error {
	slot, ok := f.slots[slotID]
	if !ok || slot.DossierID != dossierID {
		return repository.ErrSlotNotFound
	}
	for _, s := range f.slots {
		if s.DossierID == dossierID {
			s.Selected = false
		}
	}
	slot.Selected = true
	return nil
}

type fakeTTLs struct{}

func (fakeTTLs) GetDossierTokenTTL() time.Duration { return 168 * time.Hour }
func (fakeTTLs) GetQuoteTokenTTL() time.Duration   { return 720 * time.Hour }
func (fakeTTLs) GetInvoiceTokenTTL() time.Duration { return 2160 * time.Hour }

func newTestService(repo *fakeRepo) *Service {
	log := logger.New("dev")
	return New(repo, events.NewInMemoryBus(log), log, fakeTTLs{})
}

func countActions(entries []repository.HistoriqueEntry, action string) int {
	n := 0
	for _, e := range entries {
		if e.Action == action {
			n++
		}
	}
	return n
}

func TestTransitionWritesExactlyOneHistoriqueEntry(t *testing.T) {
	repo := newFakeRepo()
	svc := newTestService(repo)
	userID := uuid.New()
	d := repo.addDossier(userID, domain.StatusDevisAFaire, domain.ApptNone)

	updated, err := svc.Transition(context.Background(), d.ID, userID, domain.ActionQuoteSent, ArtisanActor("Jean"), "Devis envoyé")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if updated.Status != domain.StatusDevisEnvoye {
		t.Fatalf("status = %s, want %s", updated.Status, domain.StatusDevisEnvoye)
	}
	if got := countActions(repo.historique, repository.ActionStatusChanged); got != 1 {
		t.Fatalf("historique status_changed entries = %d, want 1", got)
	}
	if updated.StatusChangedAt.IsZero() {
		t.Fatal("status_changed_at was not set")
	}
}

func TestInvalidTransitionLeavesNoTrace(t *testing.T) {
	repo := newFakeRepo()
	svc := newTestService(repo)
	userID := uuid.New()
	d := repo.addDossier(userID, domain.StatusPerdu, domain.ApptNone)

	_, err := svc.Transition(context.Background(), d.ID, userID, domain.ActionQuoteSigned, ArtisanActor("Jean"), "")
	if err == nil {
		t.Fatal("expected transition error")
	}
	if apperr.GetKind(err) != apperr.KindConflict {
		t.Fatalf("kind = %v, want conflict", apperr.GetKind(err))
	}
	if len(repo.historique) != 0 {
		t.Fatalf("historique entries = %d, want 0", len(repo.historique))
	}
	if repo.dossiers[d.ID].Status != domain.StatusPerdu {
		t.Fatal("status must not change on a rejected transition")
	}
}

func TestPersistenceFailureAbortsTransition(t *testing.T) {
	repo := newFakeRepo()
	repo.failSetStatus = true
	svc := newTestService(repo)
	userID := uuid.New()
	d := repo.addDossier(userID, domain.StatusNouveau, domain.ApptNone)

	if _, err := svc.Transition(context.Background(), d.ID, userID, domain.ActionQualify, ArtisanActor("Jean"), ""); err == nil {
		t.Fatal("expected persistence error")
	}
	if len(repo.historique) != 0 {
		t.Fatalf("historique entries = %d, want 0 after aborted transition", len(repo.historique))
	}
}

func TestQuoteSignedMovesBothAxes(t *testing.T) {
	repo := newFakeRepo()
	svc := newTestService(repo)
	userID := uuid.New()
	d := repo.addDossier(userID, domain.StatusDevisEnvoye, domain.ApptNone)

	updated, err := svc.Transition(context.Background(), d.ID, userID, domain.ActionQuoteSigned, ClientActor("Marie Dupont"), "Devis signé")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if updated.Status != domain.StatusGagne {
		t.Fatalf("status = %s, want %s", updated.Status, domain.StatusGagne)
	}
	if updated.AppointmentStatus != domain.ApptRdvPending {
		t.Fatalf("appointment status = %s, want %s", updated.AppointmentStatus, domain.ApptRdvPending)
	}
	if got := countActions(repo.historique, repository.ActionStatusChanged); got != 1 {
		t.Fatalf("status_changed entries = %d, want 1", got)
	}
	if got := countActions(repo.historique, repository.ActionAppointmentChanged); got != 1 {
		t.Fatalf("appointment_changed entries = %d, want 1", got)
	}
}

func TestSendRelanceCountsAttemptBeforeDelivery(t *testing.T) {
	repo := newFakeRepo()
	svc := newTestService(repo)
	userID := uuid.New()
	d := repo.addDossier(userID, domain.StatusDevisEnvoye, domain.ApptNone)

	count, err := svc.SendRelance(context.Background(), d.ID, userID, ArtisanActor("Jean"))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if count != 1 {
		t.Fatalf("relance count = %d, want 1", count)
	}
	stored := repo.dossiers[d.ID]
	if stored.RelanceCount != 1 || stored.LastRelanceAt == nil {
		t.Fatal("relance counter and timestamp must be set before any delivery attempt")
	}
	if got := countActions(repo.historique, repository.ActionRelanceSent); got != 1 {
		t.Fatalf("relance_sent entries = %d, want 1", got)
	}

	// No subscriber consumes the delivery event here; the counter stands
	// regardless of what happens downstream.
	if _, err := svc.SendRelance(context.Background(), d.ID, userID, ArtisanActor("Jean")); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if repo.dossiers[d.ID].RelanceCount != 2 {
		t.Fatalf("relance count = %d, want 2", repo.dossiers[d.ID].RelanceCount)
	}
}

func TestSendRelanceRejectsWrongStatus(t *testing.T) {
	repo := newFakeRepo()
	svc := newTestService(repo)
	userID := uuid.New()
	d := repo.addDossier(userID, domain.StatusGagne, domain.ApptNone)

	if _, err := svc.SendRelance(context.Background(), d.ID, userID, ArtisanActor("Jean")); err == nil {
		t.Fatal("expected conflict for relance outside devis_envoye")
	}
	if repo.dossiers[d.ID].RelanceCount != 0 {
		t.Fatal("counter must not move on a rejected relance")
	}
}

func TestDashboardCountersMergeAQualifier(t *testing.T) {
	repo := newFakeRepo()
	svc := newTestService(repo)
	userID := uuid.New()
	for i := 0; i < 3; i++ {
		repo.addDossier(userID, domain.StatusNouveau, domain.ApptNone)
	}
	repo.addDossier(userID, domain.StatusAQualifier, domain.ApptNone)
	repo.addDossier(userID, domain.StatusGagne, domain.ApptNone)

	counters, err := svc.DashboardCounters(context.Background(), userID)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if counters[domain.StatusNouveau] != 4 {
		t.Fatalf("nouveau bucket = %d, want 4", counters[domain.StatusNouveau])
	}
	if _, ok := counters[domain.StatusAQualifier]; ok {
		t.Fatal("a_qualifier must not appear as its own bucket")
	}
	if counters[domain.StatusGagne] != 1 {
		t.Fatalf("gagne bucket = %d, want 1", counters[domain.StatusGagne])
	}
}

func TestExpiredClientLinkIsGone(t *testing.T) {
	repo := newFakeRepo()
	svc := newTestService(repo)
	userID := uuid.New()
	d := repo.addDossier(userID, domain.StatusNouveau, domain.ApptNone)

	expired := time.Now().Add(-time.Hour)
	tok := "expired-token"
	d.PublicToken = &tok
	d.PublicTokenExpires = &expired
	repo.tokens[tok] = d.ID

	_, _, err := svc.GetByToken(context.Background(), tok)
	if err == nil {
		t.Fatal("expected error for expired link")
	}
	if apperr.GetKind(err) != apperr.KindGone {
		t.Fatalf("kind = %v, want gone", apperr.GetKind(err))
	}

	if _, err := svc.SelectSlotByToken(context.Background(), tok, uuid.New()); apperr.GetKind(err) != apperr.KindGone {
		t.Fatal("slot selection must reject an expired link the same way")
	}
}

func TestClientSlotSelection(t *testing.T) {
	repo := newFakeRepo()
	svc := newTestService(repo)
	userID := uuid.New()
	d := repo.addDossier(userID, domain.StatusGagne, domain.ApptRdvPending)

	slots, err := svc.ProposeSlots(context.Background(), d.ID, userID, []SlotInput{
		{Date: time.Date(2026, 3, 10, 0, 0, 0, 0, time.UTC), StartTime: "09:00", EndTime: "10:00"},
		{Date: time.Date(2026, 3, 11, 0, 0, 0, 0, time.UTC), StartTime: "14:00", EndTime: "15:00"},
	}, ArtisanActor("Jean"))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(slots) != 2 {
		t.Fatalf("slots = %d, want 2", len(slots))
	}
	if repo.dossiers[d.ID].AppointmentStatus != domain.ApptSlotsProposed {
		t.Fatal("appointment status must be slots_proposed")
	}

	tok := "client-token"
	future := time.Now().Add(24 * time.Hour)
	repo.dossiers[d.ID].PublicToken = &tok
	repo.dossiers[d.ID].PublicTokenExpires = &future
	repo.tokens[tok] = d.ID

	selected, err := svc.SelectSlotByToken(context.Background(), tok, slots[0].ID)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if !selected.Selected {
		t.Fatal("slot must be marked selected")
	}
	if repo.dossiers[d.ID].AppointmentStatus != domain.ApptClientSelected {
		t.Fatal("appointment status must be client_selected")
	}
	if repo.dossiers[d.ID].SelectedSlotID == nil || *repo.dossiers[d.ID].SelectedSlotID != slots[0].ID {
		t.Fatal("selected slot not recorded on dossier")
	}

	if _, err := svc.ConfirmAppointment(context.Background(), d.ID, userID, ArtisanActor("Jean")); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if repo.dossiers[d.ID].AppointmentStatus != domain.ApptRdvConfirmed {
		t.Fatal("appointment status must be rdv_confirmed")
	}
}

func TestIntakeCreatesClientLinkDossier(t *testing.T) {
	repo := newFakeRepo()
	svc := newTestService(repo)
	artisanID := uuid.New()

	d, suiviToken, err := svc.CreateFromIntake(context.Background(), artisanID, CreateParams{
		ClientFirstName: "Jean",
		ClientLastName:  "Petit",
		ClientPhone:     "06 12 34 56 78",
		ProblemCategory: "fuite",
		UrgencyLevel:    "urgente",
	})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if d.Source != "client_link" {
		t.Fatalf("source = %q, want client_link", d.Source)
	}
	if suiviToken == "" {
		t.Fatal("suivi token must be issued on intake")
	}

	got, _, err := svc.GetByToken(context.Background(), suiviToken)
	if err != nil {
		t.Fatalf("suivi token must resolve: %v", err)
	}
	if got.ID != d.ID {
		t.Fatal("suivi token resolves to the wrong dossier")
	}

	if n := countActions(repo.historique, repository.ActionDossierCreated); n != 1 {
		t.Fatalf("creation entries = %d, want 1", n)
	}
	entry := repo.historique[0]
	if entry.ActorType != repository.ActorClient {
		t.Fatalf("actor type = %q, want %q", entry.ActorType, repository.ActorClient)
	}
	if entry.ActorName != "Jean Petit" {
		t.Fatalf("actor name = %q, want Jean Petit", entry.ActorName)
	}
}

func TestIntakeUnknownArtisanIsNotFound(t *testing.T) {
	repo := newFakeRepo()
	svc := newTestService(repo)
	repo.unknownArtisan = uuid.New()

	_, _, err := svc.CreateFromIntake(context.Background(), repo.unknownArtisan, CreateParams{
		ClientFirstName: "Jean",
		ClientLastName:  "Petit",
		ClientPhone:     "0612345678",
		ProblemCategory: "fuite",
		UrgencyLevel:    "normale",
	})
	if apperr.GetKind(err) != apperr.KindNotFound {
		t.Fatalf("err = %v, want not-found", err)
	}
	if len(repo.historique) != 0 {
		t.Fatal("failed intake must leave no historique entry")
	}
}
