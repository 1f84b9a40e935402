// Package ics generates iCalendar invitations for confirmed appointments.
// Events use floating local time: the artisan and the client are in the same
// timezone, and a 09:00 slot must read 09:00 in any calendar app.
package ics

import (
	"strings"
	"time"
)

const prodID = "-//PlombiPro//Agenda//FR"

// Event is one appointment to render as a VEVENT.
type Event struct {
	UID         string
	Summary     string
	Description string
	Location    string
	Date        time.Time // the slot day; time part ignored
	StartTime   string    // wall clock "09:00"
	EndTime     string    // wall clock "10:00"
	Stamp       time.Time // DTSTAMP, in UTC
}

// escapeText applies the RFC 5545 TEXT escaping rules: backslash, semicolon,
// comma, and newline.
func escapeText(s string) string {
	r := strings.NewReplacer(
		"\\", "\\\\",
		";", "\\;",
		",", "\\,",
		"\r\n", "\\n",
		"\n", "\\n",
	)
	return r.Replace(s)
}

// localDateTime formats a slot day plus wall-clock time as a floating
// iCalendar date-time, e.g. "20260310T090000".
func localDateTime(day time.Time, wallClock string) string {
	hhmm := strings.ReplaceAll(wallClock, ":", "")
	return day.Format("20060102") + "T" + hhmm + "00"
}

// Generate renders a complete VCALENDAR with one VEVENT and a display alarm
// 30 minutes before the start. Lines are CRLF-terminated per RFC 5545.
func Generate(e Event) []byte {
	var b strings.Builder
	write := func(line string) {
		b.WriteString(line)
		b.WriteString("\r\n")
	}

	write("BEGIN:VCALENDAR")
	write("VERSION:2.0")
	write("PRODID:" + prodID)
	write("CALSCALE:GREGORIAN")
	write("METHOD:REQUEST")
	write("BEGIN:VEVENT")
	write("UID:" + escapeText(e.UID))
	write("DTSTAMP:" + e.Stamp.UTC().Format("20060102T150405Z"))
	write("DTSTART:" + localDateTime(e.Date, e.StartTime))
	write("DTEND:" + localDateTime(e.Date, e.EndTime))
	write("SUMMARY:" + escapeText(e.Summary))
	if e.Location != "" {
		write("LOCATION:" + escapeText(e.Location))
	}
	if e.Description != "" {
		write("DESCRIPTION:" + escapeText(e.Description))
	}
	write("BEGIN:VALARM")
	write("TRIGGER:-PT30M")
	write("ACTION:DISPLAY")
	write("DESCRIPTION:Rappel")
	write("END:VALARM")
	write("END:VEVENT")
	write("END:VCALENDAR")

	return []byte(b.String())
}
