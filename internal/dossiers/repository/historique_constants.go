package repository

// Historique action types. Stored as-is in historique.action; the frontend
// keys its icons and labels off these values, so they must stay stable.
const (
	ActionDossierCreated     = "dossier_created"
	ActionDossierUpdated     = "dossier_updated"
	ActionDossierDeleted     = "dossier_deleted"
	ActionStatusChanged      = "status_changed"
	ActionAppointmentChanged = "appointment_changed"
	ActionSlotsProposed      = "slots_proposed"
	ActionSlotSelected       = "slot_selected"
	ActionQuoteCreated       = "quote_created"
	ActionQuoteSent          = "quote_sent"
	ActionQuoteSigned        = "quote_signed"
	ActionQuoteRefused       = "quote_refused"
	ActionInvoiceCreated     = "invoice_created"
	ActionInvoiceSent        = "invoice_sent"
	ActionInvoicePaid        = "invoice_paid"
	ActionMediaAdded         = "media_added"
	ActionRelanceSent        = "relance_sent"
	ActionNotificationFailed = "notification_failed"
	ActionClientLinkSent     = "client_link_sent"
)

// Actor types for historique entries.
const (
	ActorArtisan = "artisan"
	ActorClient  = "client"
	ActorSystem  = "system"
)
