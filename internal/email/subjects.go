package email

const (
	subjectClientLink              = "Suivez votre demande d'intervention"
	subjectQuoteFmt                = "Votre devis %s"
	subjectQuoteSignedFmt          = "Devis %s signé"
	subjectQuoteRefusedFmt         = "Devis %s refusé"
	subjectRelance                 = "Votre devis vous attend"
	subjectInvoiceFmt              = "Votre facture %s"
	subjectInvoicePaidFmt          = "Facture %s réglée"
	subjectSlotsProposed           = "Choisissez votre créneau d'intervention"
	subjectAppointmentConfirmedFmt = "Rendez-vous confirmé le %s"
)
