package notification

import (
	"context"
	"errors"
	"strings"
	"testing"

	"github.com/google/uuid"

	dossierrepo "plombipro_backend/internal/dossiers/repository"
	"plombipro_backend/internal/email"
	appevents "plombipro_backend/internal/events"
	"plombipro_backend/platform/events"
	"plombipro_backend/platform/logger"
)

type sentEmail struct {
	kind        string
	to          string
	attachments []email.Attachment
}

type fakeEmailSender struct {
	email.NoopSender
	sent    []sentEmail
	failAll bool
}

func (f *fakeEmailSender) record(kind, to string, attachments ...email.Attachment) error {
	if f.failAll {
		return errors.New("smtp unreachable")
	}
	f.sent = append(f.sent, sentEmail{kind: kind, to: to, attachments: attachments})
	return nil
}

func (f *fakeEmailSender) SendClientLinkEmail(_ context.Context, to, _, _ string) error {
	return f.record("client_link", to)
}

func (f *fakeEmailSender) SendQuoteEmail(_ context.Context, to, _, _ string, _ float64, _ string) error {
	return f.record("quote", to)
}

func (f *fakeEmailSender) SendQuoteSignedEmail(_ context.Context, to, _, _ string) error {
	return f.record("quote_signed", to)
}

func (f *fakeEmailSender) SendAppointmentConfirmedEmail(_ context.Context, to, _, _, _, _ string, attachments ...email.Attachment) error {
	return f.record("appointment_confirmed", to, attachments...)
}

type fakeSMSSender struct {
	sent    []string
	failAll bool
}

func (f *fakeSMSSender) SendMessage(_ context.Context, phone, _ string) error {
	if f.failAll {
		return errors.New("twilio unreachable")
	}
	f.sent = append(f.sent, phone)
	return nil
}

type fakeHistorique struct {
	entries []dossierrepo.CreateHistoriqueParams
}

func (f *fakeHistorique) CreateHistoriqueEntry(_ context.Context, params dossierrepo.CreateHistoriqueParams) (dossierrepo.HistoriqueEntry, error) {
	f.entries = append(f.entries, params)
	return dossierrepo.HistoriqueEntry{ID: uuid.New()}, nil
}

type fakeArtisans struct {
	email string
}

func (f *fakeArtisans) GetEmail(_ context.Context, _ uuid.UUID) (string, error) {
	return f.email, nil
}

type fixture struct {
	email *fakeEmailSender
	sms   *fakeSMSSender
	hist  *fakeHistorique
	bus   *events.InMemoryBus
}

func newFixture(t *testing.T) *fixture {
	t.Helper()
	log := logger.New("dev")
	emailSender := &fakeEmailSender{}
	smsSender := &fakeSMSSender{}
	hist := &fakeHistorique{}
	bus := events.NewInMemoryBus(log)
	mod := NewModule(emailSender, smsSender, hist, &fakeArtisans{email: "artisan@plomberie-martin.fr"}, "https://app.plombipro.fr", log)
	mod.RegisterHandlers(bus)
	return &fixture{email: emailSender, sms: smsSender, hist: hist, bus: bus}
}

func TestQuoteSentGoesOutOnBothChannels(t *testing.T) {
	fx := newFixture(t)

	err := fx.bus.PublishSync(context.Background(), appevents.QuoteSent{
		BaseEvent:   appevents.NewBaseEvent(),
		QuoteID:     uuid.New(),
		DossierID:   uuid.New(),
		UserID:      uuid.New(),
		QuoteNumber: "D-2026-0001",
		TotalTTC:    878.35,
		ClientName:  "Marie Dupont",
		ClientPhone: "+33612345678",
		ClientEmail: "marie@example.com",
		PublicToken: "tok",
	})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(fx.email.sent) != 1 || fx.email.sent[0].kind != "quote" {
		t.Fatalf("email not sent: %+v", fx.email.sent)
	}
	if len(fx.sms.sent) != 1 {
		t.Fatalf("sms not sent: %v", fx.sms.sent)
	}
	if len(fx.hist.entries) != 0 {
		t.Fatalf("no failure entries expected, got %+v", fx.hist.entries)
	}
}

func TestChannelFailureIsRecordedNotSurfaced(t *testing.T) {
	fx := newFixture(t)
	fx.email.failAll = true
	fx.sms.failAll = true

	dossierID := uuid.New()
	err := fx.bus.PublishSync(context.Background(), appevents.QuoteSent{
		BaseEvent:   appevents.NewBaseEvent(),
		DossierID:   dossierID,
		UserID:      uuid.New(),
		QuoteNumber: "D-2026-0002",
		ClientName:  "Marie Dupont",
		ClientPhone: "+33612345678",
		ClientEmail: "marie@example.com",
		PublicToken: "tok",
	})
	if err != nil {
		t.Fatalf("delivery failure must not surface, got %v", err)
	}
	if len(fx.hist.entries) != 2 {
		t.Fatalf("expected 2 failure entries (email + sms), got %d", len(fx.hist.entries))
	}
	for _, entry := range fx.hist.entries {
		if entry.Action != dossierrepo.ActionNotificationFailed {
			t.Fatalf("unexpected action %s", entry.Action)
		}
		if entry.Detail == nil || !strings.Contains(*entry.Detail, "non envoyé") {
			t.Fatalf("detail must mark non envoyé: %v", entry.Detail)
		}
		if entry.DossierID != dossierID {
			t.Fatalf("entry bound to wrong dossier")
		}
	}
}

func TestAppointmentConfirmedAttachesCalendar(t *testing.T) {
	fx := newFixture(t)

	err := fx.bus.PublishSync(context.Background(), appevents.AppointmentConfirmed{
		BaseEvent:   appevents.NewBaseEvent(),
		DossierID:   uuid.New(),
		UserID:      uuid.New(),
		SlotID:      uuid.New(),
		SlotDate:    "2026-03-10",
		StartTime:   "09:00",
		EndTime:     "10:00",
		Address:     "8 avenue Jean Jaurès, 69007 Lyon",
		ClientName:  "Marie Dupont",
		ClientPhone: "+33612345678",
		ClientEmail: "marie@example.com",
	})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(fx.email.sent) != 1 {
		t.Fatalf("email not sent: %+v", fx.email.sent)
	}
	atts := fx.email.sent[0].attachments
	if len(atts) != 1 || atts[0].FileName != "rendez-vous.ics" {
		t.Fatalf("calendar attachment missing: %+v", atts)
	}
	body := string(atts[0].Content)
	if !strings.Contains(body, "DTSTART:20260310T090000\r\n") {
		t.Fatalf("floating local start missing:\n%s", body)
	}
	if !strings.Contains(body, "TRIGGER:-PT30M") {
		t.Fatalf("alarm missing:\n%s", body)
	}
}

func TestQuoteSignedNotifiesArtisan(t *testing.T) {
	fx := newFixture(t)

	err := fx.bus.PublishSync(context.Background(), appevents.QuoteSigned{
		BaseEvent:     appevents.NewBaseEvent(),
		DossierID:     uuid.New(),
		UserID:        uuid.New(),
		QuoteNumber:   "D-2026-0003",
		SignatureName: "Marie Dupont",
	})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(fx.email.sent) != 1 || fx.email.sent[0].to != "artisan@plomberie-martin.fr" {
		t.Fatalf("artisan not notified: %+v", fx.email.sent)
	}
}

func TestMissingClientEmailSkipsQuietly(t *testing.T) {
	fx := newFixture(t)

	err := fx.bus.PublishSync(context.Background(), appevents.DossierCreated{
		BaseEvent:   appevents.NewBaseEvent(),
		DossierID:   uuid.New(),
		UserID:      uuid.New(),
		ClientName:  "Marie Dupont",
		PublicToken: "tok",
	})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(fx.email.sent) != 0 || len(fx.hist.entries) != 0 {
		t.Fatalf("nothing should be sent or recorded: %+v %+v", fx.email.sent, fx.hist.entries)
	}
}
