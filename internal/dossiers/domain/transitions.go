package domain

import "fmt"

// Action is a trigger that may move a dossier through its lifecycle.
// Triggers come either from explicit staff actions or from server-side
// events (quote sent/signed/refused, invoice sent/paid). There are no
// timeout-based transitions: the relance flag is a reminder, never a
// status change.
type Action string

const (
	ActionQualify      Action = "qualify"
	ActionQuoteToDo    Action = "quote_to_do"
	ActionQuoteSent    Action = "quote_sent"
	ActionQuoteSigned  Action = "quote_signed"
	ActionQuoteRefused Action = "quote_refused"
	ActionMarkLost     Action = "mark_lost"
	ActionInvoiceSent  Action = "invoice_sent"
	ActionInvoicePaid  Action = "invoice_paid"
)

// AppointmentAction is a trigger on the appointment axis.
type AppointmentAction string

const (
	ApptActionRequest      AppointmentAction = "rdv_request"
	ApptActionProposeSlots AppointmentAction = "propose_slots"
	ApptActionClientSelect AppointmentAction = "client_select"
	ApptActionConfirm      AppointmentAction = "confirm"
	ApptActionComplete     AppointmentAction = "complete"
	ApptActionCancel       AppointmentAction = "cancel"
)

// InvalidTransitionError reports a trigger applied in a state that does not
// allow it.
type InvalidTransitionError struct {
	Action string
	From   string
}

func (e *InvalidTransitionError) Error() string {
	return fmt.Sprintf("action %q is not allowed from status %q", e.Action, e.From)
}

// statusTransitions is the full lifecycle transition table. An action is
// valid only when the current status appears in its row. Intermediate
// stages may be skipped forward (a quote can be sent on a dossier that was
// never explicitly qualified) but never revisited backward.
var statusTransitions = map[Action]map[Status]Status{
	ActionQualify: {
		StatusNouveau: StatusAQualifier,
	},
	ActionQuoteToDo: {
		StatusNouveau:    StatusDevisAFaire,
		StatusAQualifier: StatusDevisAFaire,
	},
	ActionQuoteSent: {
		StatusNouveau:     StatusDevisEnvoye,
		StatusAQualifier:  StatusDevisEnvoye,
		StatusDevisAFaire: StatusDevisEnvoye,
		// Re-sending an updated quote keeps the dossier in devis_envoye.
		StatusDevisEnvoye: StatusDevisEnvoye,
	},
	ActionQuoteSigned: {
		StatusDevisEnvoye: StatusGagne,
	},
	ActionQuoteRefused: {
		StatusDevisEnvoye: StatusPerdu,
	},
	ActionMarkLost: {
		StatusNouveau:     StatusPerdu,
		StatusAQualifier:  StatusPerdu,
		StatusDevisAFaire: StatusPerdu,
		StatusDevisEnvoye: StatusPerdu,
	},
	ActionInvoiceSent: {
		StatusGagne: StatusFactureEnAttente,
		// Re-sending an invoice is a no-op on the lifecycle.
		StatusFactureEnAttente: StatusFactureEnAttente,
	},
	ActionInvoicePaid: {
		StatusFactureEnAttente: StatusFacturePayee,
	},
}

var appointmentTransitions = map[AppointmentAction]map[AppointmentStatus]AppointmentStatus{
	ApptActionRequest: {
		ApptNone:      ApptRdvPending,
		ApptCancelled: ApptRdvPending,
	},
	ApptActionProposeSlots: {
		ApptNone:       ApptSlotsProposed,
		ApptRdvPending: ApptSlotsProposed,
		// Re-proposing replaces the previous slot set.
		ApptSlotsProposed:  ApptSlotsProposed,
		ApptClientSelected: ApptSlotsProposed,
	},
	ApptActionClientSelect: {
		ApptSlotsProposed: ApptClientSelected,
	},
	ApptActionConfirm: {
		ApptClientSelected: ApptRdvConfirmed,
	},
	ApptActionComplete: {
		ApptRdvConfirmed: ApptDone,
	},
	ApptActionCancel: {
		ApptRdvPending:     ApptCancelled,
		ApptSlotsProposed:  ApptCancelled,
		ApptClientSelected: ApptCancelled,
		ApptRdvConfirmed:   ApptCancelled,
	},
}

// Next returns the status that results from applying action to current.
// Returns *InvalidTransitionError when the table has no entry.
func Next(current Status, action Action) (Status, error) {
	row, ok := statusTransitions[action]
	if !ok {
		return "", &InvalidTransitionError{Action: string(action), From: string(current)}
	}
	next, ok := row[current]
	if !ok {
		return "", &InvalidTransitionError{Action: string(action), From: string(current)}
	}
	return next, nil
}

// NextAppointment returns the appointment status that results from applying
// action to current.
func NextAppointment(current AppointmentStatus, action AppointmentAction) (AppointmentStatus, error) {
	row, ok := appointmentTransitions[action]
	if !ok {
		return "", &InvalidTransitionError{Action: string(action), From: string(current)}
	}
	next, ok := row[current]
	if !ok {
		return "", &InvalidTransitionError{Action: string(action), From: string(current)}
	}
	return next, nil
}

// CausedAppointmentAction returns the appointment-axis trigger implied by a
// lifecycle action, if any. The two axes are independent except for this
// single causal link: a signed quote asks for an appointment to be planned.
func CausedAppointmentAction(action Action) (AppointmentAction, bool) {
	if action == ActionQuoteSigned {
		return ApptActionRequest, true
	}
	return "", false
}
