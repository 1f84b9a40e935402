// Package events provides domain event definitions for decoupled,
// event-driven communication between modules.
// Infrastructure (Bus, Handler) is in platform/events.
package events

import (
	"time"

	"plombipro_backend/platform/events"

	"github.com/google/uuid"
)

// Re-export platform types for convenience
type (
	Event       = events.Event
	Bus         = events.Bus
	Handler     = events.Handler
	HandlerFunc = events.HandlerFunc
	BaseEvent   = events.BaseEvent
)

// Re-export platform functions
var NewBaseEvent = events.NewBaseEvent

// =============================================================================
// Auth Domain Events
// =============================================================================

// UserRegistered is published when a new artisan account is created.
type UserRegistered struct {
	BaseEvent
	UserID uuid.UUID `json:"userId"`
	Email  string    `json:"email"`
}

func (e UserRegistered) EventName() string { return "auth.user.registered" }

// =============================================================================
// Dossier Domain Events
// =============================================================================

// DossierCreated is published when a new dossier is created, whether by the
// artisan, through the public intake link, or from a parsed email.
type DossierCreated struct {
	BaseEvent
	DossierID   uuid.UUID `json:"dossierId"`
	UserID      uuid.UUID `json:"userId"`
	Source      string    `json:"source"` // "manual", "client_link", "email"
	ClientName  string    `json:"clientName"`
	ClientPhone string    `json:"clientPhone"`
	ClientEmail string    `json:"clientEmail"`
	Category    string    `json:"category"`
	Urgency     string    `json:"urgency"`
	PublicToken string    `json:"publicToken"`
}

func (e DossierCreated) EventName() string { return "dossiers.created" }

// DossierStatusChanged is published after a dossier lifecycle transition has
// been persisted and recorded in the historique.
type DossierStatusChanged struct {
	BaseEvent
	DossierID uuid.UUID `json:"dossierId"`
	UserID    uuid.UUID `json:"userId"`
	OldStatus string    `json:"oldStatus"`
	NewStatus string    `json:"newStatus"`
	Action    string    `json:"action"`
}

func (e DossierStatusChanged) EventName() string { return "dossiers.status.changed" }

// SlotsProposed is published when the artisan proposes appointment slots.
// The client is notified with a selection link.
type SlotsProposed struct {
	BaseEvent
	DossierID   uuid.UUID `json:"dossierId"`
	UserID      uuid.UUID `json:"userId"`
	SlotCount   int       `json:"slotCount"`
	ClientName  string    `json:"clientName"`
	ClientPhone string    `json:"clientPhone"`
	ClientEmail string    `json:"clientEmail"`
	PublicToken string    `json:"publicToken"`
}

func (e SlotsProposed) EventName() string { return "dossiers.slots.proposed" }

// SlotSelected is published when the client picks a slot via the public link.
type SlotSelected struct {
	BaseEvent
	DossierID  uuid.UUID `json:"dossierId"`
	UserID     uuid.UUID `json:"userId"`
	SlotID     uuid.UUID `json:"slotId"`
	SlotDate   string    `json:"slotDate"` // YYYY-MM-DD
	StartTime  string    `json:"startTime"`
	EndTime    string    `json:"endTime"`
	ClientName string    `json:"clientName"`
}

func (e SlotSelected) EventName() string { return "dossiers.slot.selected" }

// AppointmentConfirmed is published when the artisan confirms the selected
// slot. Carries everything the notification layer needs to build the
// confirmation email with its .ics attachment and to schedule the reminder.
type AppointmentConfirmed struct {
	BaseEvent
	DossierID   uuid.UUID `json:"dossierId"`
	UserID      uuid.UUID `json:"userId"`
	SlotID      uuid.UUID `json:"slotId"`
	SlotDate    string    `json:"slotDate"` // YYYY-MM-DD
	StartTime   string    `json:"startTime"`
	EndTime     string    `json:"endTime"`
	Address     string    `json:"address"`
	ClientName  string    `json:"clientName"`
	ClientPhone string    `json:"clientPhone"`
	ClientEmail string    `json:"clientEmail"`
}

func (e AppointmentConfirmed) EventName() string { return "dossiers.appointment.confirmed" }

// AppointmentReminderDue is published by the scheduler worker shortly before
// a confirmed appointment, after re-checking that it is still on.
type AppointmentReminderDue struct {
	BaseEvent
	DossierID   uuid.UUID `json:"dossierId"`
	UserID      uuid.UUID `json:"userId"`
	SlotID      uuid.UUID `json:"slotId"`
	SlotDate    string    `json:"slotDate"` // YYYY-MM-DD
	StartTime   string    `json:"startTime"`
	EndTime     string    `json:"endTime"`
	Address     string    `json:"address"`
	ClientName  string    `json:"clientName"`
	ClientPhone string    `json:"clientPhone"`
	ClientEmail string    `json:"clientEmail"`
}

func (e AppointmentReminderDue) EventName() string { return "dossiers.appointment.reminder" }

// RelanceDue is published by the scheduler worker when an automatic follow-up
// becomes due. The dossiers module resolves it through the same send path as
// a manual relance.
type RelanceDue struct {
	BaseEvent
	DossierID uuid.UUID `json:"dossierId"`
	UserID    uuid.UUID `json:"userId"`
}

func (e RelanceDue) EventName() string { return "dossiers.relance.due" }

// RelanceSent is published after a relance has been counted against the
// dossier. Delivery is attempted by the notification module; a delivery
// failure never rolls the counter back.
type RelanceSent struct {
	BaseEvent
	DossierID    uuid.UUID `json:"dossierId"`
	UserID       uuid.UUID `json:"userId"`
	RelanceCount int       `json:"relanceCount"`
	ClientName   string    `json:"clientName"`
	ClientEmail  string    `json:"clientEmail"`
	PublicToken  string    `json:"publicToken"`
}

func (e RelanceSent) EventName() string { return "dossiers.relance.sent" }

// =============================================================================
// Quote Domain Events
// =============================================================================

// QuoteSent is published when the artisan sends a quote to the client.
type QuoteSent struct {
	BaseEvent
	QuoteID     uuid.UUID `json:"quoteId"`
	DossierID   uuid.UUID `json:"dossierId"`
	UserID      uuid.UUID `json:"userId"`
	QuoteNumber string    `json:"quoteNumber"`
	TotalTTC    float64   `json:"totalTtc"`
	ClientName  string    `json:"clientName"`
	ClientPhone string    `json:"clientPhone"`
	ClientEmail string    `json:"clientEmail"`
	PublicToken string    `json:"publicToken"`
}

func (e QuoteSent) EventName() string { return "quotes.sent" }

// QuoteSigned is published when the client signs the quote via the public
// link. Consumed synchronously by the dossiers module (status gagne,
// appointment rdv_pending) and asynchronously by the notification module.
type QuoteSigned struct {
	BaseEvent
	QuoteID       uuid.UUID `json:"quoteId"`
	DossierID     uuid.UUID `json:"dossierId"`
	UserID        uuid.UUID `json:"userId"`
	QuoteNumber   string    `json:"quoteNumber"`
	SignatureName string    `json:"signatureName"`
	TotalTTC      float64   `json:"totalTtc"`
	ClientName    string    `json:"clientName"`
	ClientPhone   string    `json:"clientPhone"`
	ClientEmail   string    `json:"clientEmail"`
}

func (e QuoteSigned) EventName() string { return "quotes.signed" }

// QuoteRefused is published when the client refuses the quote.
type QuoteRefused struct {
	BaseEvent
	QuoteID     uuid.UUID `json:"quoteId"`
	DossierID   uuid.UUID `json:"dossierId"`
	UserID      uuid.UUID `json:"userId"`
	QuoteNumber string    `json:"quoteNumber"`
	Reason      string    `json:"reason"`
	ClientName  string    `json:"clientName"`
	ClientEmail string    `json:"clientEmail"`
}

func (e QuoteRefused) EventName() string { return "quotes.refused" }

// =============================================================================
// Invoice Domain Events
// =============================================================================

// InvoiceSent is published when the artisan sends an invoice to the client.
type InvoiceSent struct {
	BaseEvent
	InvoiceID     uuid.UUID  `json:"invoiceId"`
	DossierID     uuid.UUID  `json:"dossierId"`
	UserID        uuid.UUID  `json:"userId"`
	InvoiceNumber string     `json:"invoiceNumber"`
	TotalTTC      float64    `json:"totalTtc"`
	DueDate       *time.Time `json:"dueDate,omitempty"`
	ClientName    string     `json:"clientName"`
	ClientPhone   string     `json:"clientPhone"`
	ClientEmail   string     `json:"clientEmail"`
	PublicToken   string     `json:"publicToken"`
}

func (e InvoiceSent) EventName() string { return "invoices.sent" }

// InvoicePaid is published when an invoice is marked paid.
type InvoicePaid struct {
	BaseEvent
	InvoiceID     uuid.UUID `json:"invoiceId"`
	DossierID     uuid.UUID `json:"dossierId"`
	UserID        uuid.UUID `json:"userId"`
	InvoiceNumber string    `json:"invoiceNumber"`
	TotalTTC      float64   `json:"totalTtc"`
	ClientName    string    `json:"clientName"`
	ClientEmail   string    `json:"clientEmail"`
}

func (e InvoicePaid) EventName() string { return "invoices.paid" }

// =============================================================================
// Billing Domain Events
// =============================================================================

// SubscriptionChanged is published when a Stripe webhook mutates the local
// subscription mirror.
type SubscriptionChanged struct {
	BaseEvent
	UserID    uuid.UUID `json:"userId"`
	Plan      string    `json:"plan"`
	Status    string    `json:"status"`
	StripeID  string    `json:"stripeId"`
	EventType string    `json:"eventType"`
}

func (e SubscriptionChanged) EventName() string { return "billing.subscription.changed" }
