package event

import (
	"bytes"
	"strings"
	"time"
)

const icsTimeLayout = "20060102T150405Z"

var icsEscaper = strings.NewReplacer(`\`, `\\`, ";", `\;`, ",", `\,`, "\r\n", `\n`, "\n", `\n`)

// ICS renders the event as a single-event iCalendar file, stamped at `now`.
func (e Event) ICS(now time.Time, eventURL string) []byte {
	end := e.EndDate
	if end.IsZero() || end.Before(e.StartDate) {
		end = e.StartDate.Add(time.Hour)
	}
	desc := e.Description
	if e.MeetingURL != "" {
		desc = strings.TrimSpace(desc + "\n\nJoin meeting: " + e.MeetingURL)
	}

	var b bytes.Buffer
	line := func(name, value string) {
		b.WriteString(name + ":" + value + "\r\n")
	}
	line("BEGIN", "VCALENDAR")
	line("VERSION", "2.0")
	line("PRODID", "-//TSA//Events//EN")
	line("METHOD", "PUBLISH")
	line("BEGIN", "VEVENT")
	line("UID", e.ID+"@tsa")
	line("DTSTAMP", now.UTC().Format(icsTimeLayout))
	line("DTSTART", e.StartDate.UTC().Format(icsTimeLayout))
	line("DTEND", end.UTC().Format(icsTimeLayout))
	line("SUMMARY", icsEscaper.Replace(e.Title))
	if place := e.Place(); place != "" {
		line("LOCATION", icsEscaper.Replace(place))
	}
	if desc != "" {
		line("DESCRIPTION", icsEscaper.Replace(desc))
	}
	if eventURL != "" {
		line("URL", eventURL)
	}
	line("END", "VEVENT")
	line("END", "VCALENDAR")
	return b.Bytes()
}
