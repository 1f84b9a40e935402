package ics

import (
	"bytes"
	"strings"
	"testing"
	"time"
)

func TestGenerateFloatingLocalTime(t *testing.T) {
	event := Event{
		UID:         "rdv-42@plombipro",
		Summary:     "Intervention plomberie",
		Description: "Remplacement chauffe-eau",
		Location:    "8 avenue Jean Jaurès, 69007 Lyon",
		Date:        time.Date(2026, 3, 10, 0, 0, 0, 0, time.UTC),
		StartTime:   "09:00",
		EndTime:     "10:00",
		Stamp:       time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC),
	}

	want := strings.Join([]string{
		"BEGIN:VCALENDAR",
		"VERSION:2.0",
		"PRODID:-//PlombiPro//Agenda//FR",
		"CALSCALE:GREGORIAN",
		"METHOD:REQUEST",
		"BEGIN:VEVENT",
		"UID:rdv-42@plombipro",
		"DTSTAMP:20260301T120000Z",
		"DTSTART:20260310T090000",
		"DTEND:20260310T100000",
		"SUMMARY:Intervention plomberie",
		"LOCATION:8 avenue Jean Jaurès\\, 69007 Lyon",
		"DESCRIPTION:Remplacement chauffe-eau",
		"BEGIN:VALARM",
		"TRIGGER:-PT30M",
		"ACTION:DISPLAY",
		"DESCRIPTION:Rappel",
		"END:VALARM",
		"END:VEVENT",
		"END:VCALENDAR",
		"",
	}, "\r\n")

	got := Generate(event)
	if !bytes.Equal(got, []byte(want)) {
		t.Fatalf("calendar mismatch:\ngot:\n%q\nwant:\n%q", got, want)
	}
}

func TestGenerateOmitsEmptyFields(t *testing.T) {
	got := string(Generate(Event{
		UID:       "x",
		Summary:   "Intervention",
		Date:      time.Date(2026, 3, 10, 0, 0, 0, 0, time.UTC),
		StartTime: "14:30",
		EndTime:   "16:00",
		Stamp:     time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC),
	}))

	if strings.Contains(got, "LOCATION") || strings.Contains(got, "DESCRIPTION:Remplacement") {
		t.Fatalf("empty fields must be omitted:\n%s", got)
	}
	if !strings.Contains(got, "DTSTART:20260310T143000\r\n") {
		t.Fatalf("missing half-hour start:\n%s", got)
	}
}

func TestEscapeText(t *testing.T) {
	tests := []struct {
		in   string
		want string
	}{
		{`a\b`, `a\\b`},
		{"a;b", `a\;b`},
		{"a,b", `a\,b`},
		{"a\nb", `a\nb`},
		{"a\r\nb", `a\nb`},
		{"plain", "plain"},
	}
	for _, tt := range tests {
		if got := escapeText(tt.in); got != tt.want {
			t.Errorf("escapeText(%q) = %q, want %q", tt.in, got, tt.want)
		}
	}
}
