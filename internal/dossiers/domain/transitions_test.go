package domain

import (
	"errors"
	"testing"
)

func TestNextHappyPath(t *testing.T) {
	steps := []struct {
		from   Status
		action Action
		want   Status
	}{
		{StatusNouveau, ActionQualify, StatusAQualifier},
		{StatusAQualifier, ActionQuoteToDo, StatusDevisAFaire},
		{StatusDevisAFaire, ActionQuoteSent, StatusDevisEnvoye},
		{StatusDevisEnvoye, ActionQuoteSigned, StatusGagne},
		{StatusGagne, ActionInvoiceSent, StatusFactureEnAttente},
		{StatusFactureEnAttente, ActionInvoicePaid, StatusFacturePayee},
	}

	for _, step := range steps {
		got, err := Next(step.from, step.action)
		if err != nil {
			t.Fatalf("Next(%s, %s): unexpected error %v", step.from, step.action, err)
		}
		if got != step.want {
			t.Fatalf("Next(%s, %s) = %s, want %s", step.from, step.action, got, step.want)
		}
	}
}

func TestNextAllowsSkippingIntermediateStages(t *testing.T) {
	got, err := Next(StatusNouveau, ActionQuoteSent)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if got != StatusDevisEnvoye {
		t.Fatalf("got %s, want %s", got, StatusDevisEnvoye)
	}
}

func TestNextRejectsBackwardAndTerminalTransitions(t *testing.T) {
	cases := []struct {
		from   Status
		action Action
	}{
		{StatusGagne, ActionQuoteSent},
		{StatusPerdu, ActionQuoteSigned},
		{StatusFacturePayee, ActionInvoiceSent},
		{StatusNouveau, ActionInvoicePaid},
		{StatusDevisAFaire, ActionQuoteSigned},
	}

	for _, tc := range cases {
		_, err := Next(tc.from, tc.action)
		if err == nil {
			t.Fatalf("Next(%s, %s): expected error", tc.from, tc.action)
		}
		var invalid *InvalidTransitionError
		if !errors.As(err, &invalid) {
			t.Fatalf("Next(%s, %s): expected InvalidTransitionError, got %T", tc.from, tc.action, err)
		}
	}
}

func TestQuoteSignedRequestsAppointment(t *testing.T) {
	apptAction, ok := CausedAppointmentAction(ActionQuoteSigned)
	if !ok {
		t.Fatal("quote_signed must imply an appointment action")
	}
	next, err := NextAppointment(ApptNone, apptAction)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if next != ApptRdvPending {
		t.Fatalf("got %s, want %s", next, ApptRdvPending)
	}

	for _, action := range []Action{ActionQuoteSent, ActionQuoteRefused, ActionInvoicePaid, ActionQualify} {
		if _, ok := CausedAppointmentAction(action); ok {
			t.Fatalf("action %s must not imply an appointment action", action)
		}
	}
}

func TestAppointmentMachine(t *testing.T) {
	steps := []struct {
		from   AppointmentStatus
		action AppointmentAction
		want   AppointmentStatus
	}{
		{ApptNone, ApptActionRequest, ApptRdvPending},
		{ApptRdvPending, ApptActionProposeSlots, ApptSlotsProposed},
		{ApptSlotsProposed, ApptActionClientSelect, ApptClientSelected},
		{ApptClientSelected, ApptActionConfirm, ApptRdvConfirmed},
		{ApptRdvConfirmed, ApptActionComplete, ApptDone},
	}

	for _, step := range steps {
		got, err := NextAppointment(step.from, step.action)
		if err != nil {
			t.Fatalf("NextAppointment(%s, %s): unexpected error %v", step.from, step.action, err)
		}
		if got != step.want {
			t.Fatalf("NextAppointment(%s, %s) = %s, want %s", step.from, step.action, got, step.want)
		}
	}

	// Confirming before the client picked a slot is invalid.
	if _, err := NextAppointment(ApptSlotsProposed, ApptActionConfirm); err == nil {
		t.Fatal("confirm from slots_proposed should be rejected")
	}
	// A done appointment cannot be cancelled.
	if _, err := NextAppointment(ApptDone, ApptActionCancel); err == nil {
		t.Fatal("cancel from done should be rejected")
	}
}

func TestDashboardBucketMergesAQualifierIntoNouveau(t *testing.T) {
	if DashboardBucket(StatusAQualifier) != StatusNouveau {
		t.Fatal("a_qualifier must be counted under nouveau")
	}
	for _, s := range []Status{StatusNouveau, StatusDevisAFaire, StatusDevisEnvoye, StatusGagne, StatusPerdu, StatusFactureEnAttente, StatusFacturePayee} {
		if DashboardBucket(s) != s {
			t.Fatalf("bucket for %s should be itself", s)
		}
	}
}

func TestStatusMetaCoversAllKnownStatuses(t *testing.T) {
	for s := range knownStatuses {
		meta := MetaFor(s)
		if meta.Label == "" || meta.Color == "" {
			t.Fatalf("status %s is missing display metadata", s)
		}
	}
	for s := range knownAppointmentStatuses {
		meta := AppointmentMetaFor(s)
		if meta.Label == "" || meta.Color == "" {
			t.Fatalf("appointment status %s is missing display metadata", s)
		}
	}
}
