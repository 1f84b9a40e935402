// Package notification fans domain events out to the client-facing channels.
// Email is the primary channel, SMS the secondary one for quote and invoice
// sends. Every delivery failure is caught, recorded in the dossier historique
// as a "non envoyé" entry, and never blocks the other channel or the
// lifecycle transition that triggered it.
package notification

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"

	dossierrepo "plombipro_backend/internal/dossiers/repository"
	"plombipro_backend/internal/email"
	"plombipro_backend/internal/events"
	"plombipro_backend/internal/ics"
	"plombipro_backend/internal/sms"
	"plombipro_backend/platform/logger"
)

// HistoriqueWriter appends delivery outcomes to the dossier's audit trail.
type HistoriqueWriter interface {
	CreateHistoriqueEntry(ctx context.Context, params dossierrepo.CreateHistoriqueParams) (dossierrepo.HistoriqueEntry, error)
}

// ArtisanEmailReader resolves the artisan's own address for the
// signed/refused/slot-selected notifications.
type ArtisanEmailReader interface {
	GetEmail(ctx context.Context, userID uuid.UUID) (string, error)
}

type Module struct {
	emailSender email.Sender
	smsSender   sms.Sender
	historique  HistoriqueWriter
	artisans    ArtisanEmailReader
	baseURL     string
	log         *logger.Logger
}

func NewModule(emailSender email.Sender, smsSender sms.Sender, historique HistoriqueWriter, artisans ArtisanEmailReader, baseURL string, log *logger.Logger) *Module {
	return &Module{
		emailSender: emailSender,
		smsSender:   smsSender,
		historique:  historique,
		artisans:    artisans,
		baseURL:     baseURL,
		log:         log,
	}
}

func (m *Module) Name() string { return "notification" }

// RegisterHandlers subscribes to every lifecycle event that reaches a client
// or the artisan. All handlers return nil: the dossiers module subscribes to
// some of these same events synchronously and a delivery failure must never
// abort its transition.
func (m *Module) RegisterHandlers(bus events.Bus) {
	bus.Subscribe(events.DossierCreated{}.EventName(), events.HandlerFunc(m.onDossierCreated))
	bus.Subscribe(events.QuoteSent{}.EventName(), events.HandlerFunc(m.onQuoteSent))
	bus.Subscribe(events.QuoteSigned{}.EventName(), events.HandlerFunc(m.onQuoteSigned))
	bus.Subscribe(events.QuoteRefused{}.EventName(), events.HandlerFunc(m.onQuoteRefused))
	bus.Subscribe(events.RelanceSent{}.EventName(), events.HandlerFunc(m.onRelanceSent))
	bus.Subscribe(events.InvoiceSent{}.EventName(), events.HandlerFunc(m.onInvoiceSent))
	bus.Subscribe(events.InvoicePaid{}.EventName(), events.HandlerFunc(m.onInvoicePaid))
	bus.Subscribe(events.SlotsProposed{}.EventName(), events.HandlerFunc(m.onSlotsProposed))
	bus.Subscribe(events.SlotSelected{}.EventName(), events.HandlerFunc(m.onSlotSelected))
	bus.Subscribe(events.AppointmentConfirmed{}.EventName(), events.HandlerFunc(m.onAppointmentConfirmed))
	bus.Subscribe(events.AppointmentReminderDue{}.EventName(), events.HandlerFunc(m.onAppointmentReminderDue))
}

func (m *Module) dossierLink(token string) string {
	return m.baseURL + "/suivi/" + token
}

func (m *Module) quoteLink(token string) string {
	return m.baseURL + "/devis/" + token
}

func (m *Module) invoiceLink(token string) string {
	return m.baseURL + "/facture/" + token
}

// recordFailure writes the "non envoyé" historique entry for one channel.
func (m *Module) recordFailure(ctx context.Context, dossierID, userID uuid.UUID, what string, err error) {
	m.log.Warn("notification delivery failed", "dossier_id", dossierID, "what", what, "error", err)
	detail := fmt.Sprintf("%s non envoyé : %v", what, err)
	if _, histErr := m.historique.CreateHistoriqueEntry(ctx, dossierrepo.CreateHistoriqueParams{
		DossierID: dossierID,
		UserID:    userID,
		ActorType: dossierrepo.ActorSystem,
		ActorName: "système",
		Action:    dossierrepo.ActionNotificationFailed,
		Detail:    dossierrepo.TruncateDetail(detail, dossierrepo.HistoriqueDetailMaxLen),
	}); histErr != nil {
		m.log.Error("failed to record notification failure", "dossier_id", dossierID, "error", histErr)
	}
}

func (m *Module) onDossierCreated(ctx context.Context, event events.Event) error {
	e, ok := event.(events.DossierCreated)
	if !ok {
		return nil
	}
	if e.ClientEmail == "" {
		return nil
	}
	if err := m.emailSender.SendClientLinkEmail(ctx, e.ClientEmail, e.ClientName, m.dossierLink(e.PublicToken)); err != nil {
		m.recordFailure(ctx, e.DossierID, e.UserID, "Email lien de suivi", err)
	}
	return nil
}

func (m *Module) onQuoteSent(ctx context.Context, event events.Event) error {
	e, ok := event.(events.QuoteSent)
	if !ok {
		return nil
	}
	link := m.quoteLink(e.PublicToken)
	if e.ClientEmail != "" {
		if err := m.emailSender.SendQuoteEmail(ctx, e.ClientEmail, e.ClientName, e.QuoteNumber, e.TotalTTC, link); err != nil {
			m.recordFailure(ctx, e.DossierID, e.UserID, fmt.Sprintf("Email devis %s", e.QuoteNumber), err)
		}
	}
	if e.ClientPhone != "" {
		msg := fmt.Sprintf("Votre devis %s (%.2f € TTC) est prêt : %s", e.QuoteNumber, e.TotalTTC, link)
		if err := m.smsSender.SendMessage(ctx, e.ClientPhone, msg); err != nil {
			m.recordFailure(ctx, e.DossierID, e.UserID, fmt.Sprintf("SMS devis %s", e.QuoteNumber), err)
		}
	}
	return nil
}

func (m *Module) onQuoteSigned(ctx context.Context, event events.Event) error {
	e, ok := event.(events.QuoteSigned)
	if !ok {
		return nil
	}
	artisanEmail, err := m.artisans.GetEmail(ctx, e.UserID)
	if err != nil || artisanEmail == "" {
		return nil
	}
	if err := m.emailSender.SendQuoteSignedEmail(ctx, artisanEmail, e.QuoteNumber, e.SignatureName); err != nil {
		m.recordFailure(ctx, e.DossierID, e.UserID, fmt.Sprintf("Email signature devis %s", e.QuoteNumber), err)
	}
	return nil
}

func (m *Module) onQuoteRefused(ctx context.Context, event events.Event) error {
	e, ok := event.(events.QuoteRefused)
	if !ok {
		return nil
	}
	artisanEmail, err := m.artisans.GetEmail(ctx, e.UserID)
	if err != nil || artisanEmail == "" {
		return nil
	}
	if err := m.emailSender.SendQuoteRefusedEmail(ctx, artisanEmail, e.QuoteNumber, e.Reason); err != nil {
		m.recordFailure(ctx, e.DossierID, e.UserID, fmt.Sprintf("Email refus devis %s", e.QuoteNumber), err)
	}
	return nil
}

func (m *Module) onRelanceSent(ctx context.Context, event events.Event) error {
	e, ok := event.(events.RelanceSent)
	if !ok {
		return nil
	}
	if e.ClientEmail == "" {
		return nil
	}
	if err := m.emailSender.SendRelanceEmail(ctx, e.ClientEmail, e.ClientName, m.dossierLink(e.PublicToken)); err != nil {
		m.recordFailure(ctx, e.DossierID, e.UserID, fmt.Sprintf("Email relance n°%d", e.RelanceCount), err)
	}
	return nil
}

func (m *Module) onInvoiceSent(ctx context.Context, event events.Event) error {
	e, ok := event.(events.InvoiceSent)
	if !ok {
		return nil
	}
	link := m.invoiceLink(e.PublicToken)
	dueDate := ""
	if e.DueDate != nil {
		dueDate = e.DueDate.Format("02/01/2006")
	}
	if e.ClientEmail != "" {
		if err := m.emailSender.SendInvoiceEmail(ctx, e.ClientEmail, e.ClientName, e.InvoiceNumber, e.TotalTTC, dueDate, link); err != nil {
			m.recordFailure(ctx, e.DossierID, e.UserID, fmt.Sprintf("Email facture %s", e.InvoiceNumber), err)
		}
	}
	if e.ClientPhone != "" {
		msg := fmt.Sprintf("Votre facture %s (%.2f € TTC) est disponible : %s", e.InvoiceNumber, e.TotalTTC, link)
		if err := m.smsSender.SendMessage(ctx, e.ClientPhone, msg); err != nil {
			m.recordFailure(ctx, e.DossierID, e.UserID, fmt.Sprintf("SMS facture %s", e.InvoiceNumber), err)
		}
	}
	return nil
}

func (m *Module) onInvoicePaid(ctx context.Context, event events.Event) error {
	e, ok := event.(events.InvoicePaid)
	if !ok {
		return nil
	}
	if e.ClientEmail == "" {
		return nil
	}
	if err := m.emailSender.SendInvoicePaidEmail(ctx, e.ClientEmail, e.ClientName, e.InvoiceNumber, e.TotalTTC); err != nil {
		m.recordFailure(ctx, e.DossierID, e.UserID, fmt.Sprintf("Email règlement facture %s", e.InvoiceNumber), err)
	}
	return nil
}

func (m *Module) onSlotsProposed(ctx context.Context, event events.Event) error {
	e, ok := event.(events.SlotsProposed)
	if !ok {
		return nil
	}
	if e.ClientEmail == "" {
		return nil
	}
	if err := m.emailSender.SendSlotsProposedEmail(ctx, e.ClientEmail, e.ClientName, m.dossierLink(e.PublicToken)); err != nil {
		m.recordFailure(ctx, e.DossierID, e.UserID, "Email créneaux proposés", err)
	}
	return nil
}

func (m *Module) onSlotSelected(ctx context.Context, event events.Event) error {
	e, ok := event.(events.SlotSelected)
	if !ok {
		return nil
	}
	artisanEmail, err := m.artisans.GetEmail(ctx, e.UserID)
	if err != nil || artisanEmail == "" {
		return nil
	}
	subject := fmt.Sprintf("Créneau choisi par %s", e.ClientName)
	content := fmt.Sprintf("<p>%s a choisi le créneau du %s de %s à %s. Confirmez le rendez-vous depuis le dossier.</p>",
		e.ClientName, e.SlotDate, e.StartTime, e.EndTime)
	if err := m.emailSender.SendCustomEmail(ctx, artisanEmail, subject, content); err != nil {
		m.recordFailure(ctx, e.DossierID, e.UserID, "Email créneau choisi", err)
	}
	return nil
}

func (m *Module) onAppointmentConfirmed(ctx context.Context, event events.Event) error {
	e, ok := event.(events.AppointmentConfirmed)
	if !ok {
		return nil
	}
	timeRange := e.StartTime + " - " + e.EndTime
	if e.ClientEmail != "" {
		attachments := m.buildCalendarAttachment(e)
		if err := m.emailSender.SendAppointmentConfirmedEmail(ctx, e.ClientEmail, e.ClientName, e.SlotDate, timeRange, e.Address, attachments...); err != nil {
			m.recordFailure(ctx, e.DossierID, e.UserID, "Email confirmation de rendez-vous", err)
		}
	}
	if e.ClientPhone != "" {
		msg := fmt.Sprintf("Rendez-vous confirmé le %s de %s. Adresse : %s", e.SlotDate, timeRange, e.Address)
		if err := m.smsSender.SendMessage(ctx, e.ClientPhone, msg); err != nil {
			m.recordFailure(ctx, e.DossierID, e.UserID, "SMS confirmation de rendez-vous", err)
		}
	}
	return nil
}

func (m *Module) onAppointmentReminderDue(ctx context.Context, event events.Event) error {
	e, ok := event.(events.AppointmentReminderDue)
	if !ok {
		return nil
	}
	if e.ClientPhone == "" {
		return nil
	}
	msg := fmt.Sprintf("Rappel : rendez-vous demain le %s de %s - %s. Adresse : %s",
		e.SlotDate, e.StartTime, e.EndTime, e.Address)
	if err := m.smsSender.SendMessage(ctx, e.ClientPhone, msg); err != nil {
		m.recordFailure(ctx, e.DossierID, e.UserID, "SMS rappel de rendez-vous", err)
	}
	return nil
}

func (m *Module) buildCalendarAttachment(e events.AppointmentConfirmed) []email.Attachment {
	day, err := time.Parse("2006-01-02", e.SlotDate)
	if err != nil {
		m.log.Warn("invalid slot date for calendar attachment", "slot_date", e.SlotDate, "error", err)
		return nil
	}
	content := ics.Generate(ics.Event{
		UID:         fmt.Sprintf("rdv-%s@plombipro", e.SlotID),
		Summary:     "Intervention plomberie",
		Description: "Rendez-vous confirmé avec votre artisan",
		Location:    e.Address,
		Date:        day,
		StartTime:   e.StartTime,
		EndTime:     e.EndTime,
		Stamp:       time.Now(),
	})
	return []email.Attachment{{
		Content:  content,
		FileName: "rendez-vous.ics",
		MIMEType: "text/calendar",
	}}
}
