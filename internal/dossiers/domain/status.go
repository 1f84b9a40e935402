// Package domain provides core business rules for the dossiers bounded context:
// the lifecycle status taxonomy, the appointment sub-state machine, and the
// explicit transition tables that every mutation goes through.
package domain

// Status is the dossier lifecycle status. Stored values are the French labels
// used throughout the product.
type Status string

const (
	StatusNouveau          Status = "nouveau"
	StatusAQualifier       Status = "a_qualifier"
	StatusDevisAFaire      Status = "devis_a_faire"
	StatusDevisEnvoye      Status = "devis_envoye"
	StatusGagne            Status = "gagne"
	StatusPerdu            Status = "perdu"
	StatusFactureEnAttente Status = "facture_en_attente"
	StatusFacturePayee     Status = "facture_payee"
)

// AppointmentStatus is the orthogonal appointment axis of a dossier.
type AppointmentStatus string

const (
	ApptNone           AppointmentStatus = "none"
	ApptRdvPending     AppointmentStatus = "rdv_pending"
	ApptSlotsProposed  AppointmentStatus = "slots_proposed"
	ApptClientSelected AppointmentStatus = "client_selected"
	ApptRdvConfirmed   AppointmentStatus = "rdv_confirmed"
	ApptDone           AppointmentStatus = "done"
	ApptCancelled      AppointmentStatus = "cancelled"
)

var knownStatuses = map[Status]struct{}{
	StatusNouveau:          {},
	StatusAQualifier:       {},
	StatusDevisAFaire:      {},
	StatusDevisEnvoye:      {},
	StatusGagne:            {},
	StatusPerdu:            {},
	StatusFactureEnAttente: {},
	StatusFacturePayee:     {},
}

var knownAppointmentStatuses = map[AppointmentStatus]struct{}{
	ApptNone:           {},
	ApptRdvPending:     {},
	ApptSlotsProposed:  {},
	ApptClientSelected: {},
	ApptRdvConfirmed:   {},
	ApptDone:           {},
	ApptCancelled:      {},
}

// IsKnownStatus reports whether s is a valid dossier status.
func IsKnownStatus(s Status) bool {
	_, ok := knownStatuses[s]
	return ok
}

// IsKnownAppointmentStatus reports whether s is a valid appointment status.
func IsKnownAppointmentStatus(s AppointmentStatus) bool {
	_, ok := knownAppointmentStatuses[s]
	return ok
}

// terminalStatuses are lifecycle states with no outgoing transitions.
var terminalStatuses = map[Status]bool{
	StatusPerdu:        true,
	StatusFacturePayee: true,
}

// IsTerminal reports whether the dossier lifecycle is finished.
func IsTerminal(s Status) bool {
	return terminalStatuses[s]
}

// StatusMeta carries the display label and badge color for a status.
// The backend is the single source of truth for these so every surface
// (app, client links, emails) renders the same taxonomy.
type StatusMeta struct {
	Label string `json:"label"`
	Color string `json:"color"`
}

var statusMeta = map[Status]StatusMeta{
	StatusNouveau:          {Label: "Nouveau", Color: "blue"},
	StatusAQualifier:       {Label: "À qualifier", Color: "blue"},
	StatusDevisAFaire:      {Label: "Devis à faire", Color: "orange"},
	StatusDevisEnvoye:      {Label: "Devis envoyé", Color: "purple"},
	StatusGagne:            {Label: "Gagné", Color: "green"},
	StatusPerdu:            {Label: "Perdu", Color: "gray"},
	StatusFactureEnAttente: {Label: "Facture en attente", Color: "yellow"},
	StatusFacturePayee:     {Label: "Facture payée", Color: "green"},
}

var appointmentMeta = map[AppointmentStatus]StatusMeta{
	ApptNone:           {Label: "Aucun RDV", Color: "gray"},
	ApptRdvPending:     {Label: "RDV à planifier", Color: "orange"},
	ApptSlotsProposed:  {Label: "Créneaux proposés", Color: "blue"},
	ApptClientSelected: {Label: "Créneau choisi", Color: "purple"},
	ApptRdvConfirmed:   {Label: "RDV confirmé", Color: "green"},
	ApptDone:           {Label: "RDV terminé", Color: "green"},
	ApptCancelled:      {Label: "RDV annulé", Color: "red"},
}

// MetaFor returns the display metadata for a dossier status.
func MetaFor(s Status) StatusMeta {
	if meta, ok := statusMeta[s]; ok {
		return meta
	}
	return StatusMeta{Label: string(s), Color: "gray"}
}

// AppointmentMetaFor returns the display metadata for an appointment status.
func AppointmentMetaFor(s AppointmentStatus) StatusMeta {
	if meta, ok := appointmentMeta[s]; ok {
		return meta
	}
	return StatusMeta{Label: string(s), Color: "gray"}
}

// DashboardBucket maps a status to the dashboard counter it belongs to.
// a_qualifier is folded into the "nouveau" bucket: qualification is a
// refinement of "new work", not a separate pile for the artisan.
func DashboardBucket(s Status) Status {
	if s == StatusAQualifier {
		return StatusNouveau
	}
	return s
}
