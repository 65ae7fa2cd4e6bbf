package event_test

import (
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"

	"github.com/malekai-gauntlet/tsa-platform-sub001/core/event"
)

func TestEvent_ICS(t *testing.T) {
	start := time.Date(2026, 7, 1, 15, 0, 0, 0, time.UTC)
	ev := event.Event{
		ID:          "ev-1",
		Title:       "Speed, Agility; Camp",
		Description: "Bring water",
		Venue:       "Zilker Park",
		Address:     "Austin, TX",
		MeetingURL:  "https://meet.example.com/abc",
		StartDate:   start,
	}

	ics := string(ev.ICS(start.Add(-time.Hour), "http://localhost:3000/events/ev-1"))
	lines := strings.Split(strings.TrimSuffix(ics, "\r\n"), "\r\n")

	assert.Equal(t, "BEGIN:VCALENDAR", lines[0])
	assert.Equal(t, "END:VCALENDAR", lines[len(lines)-1])
	assert.Contains(t, lines, "UID:ev-1@tsa")
	assert.Contains(t, lines, "DTSTAMP:20260701T140000Z")
	assert.Contains(t, lines, "DTSTART:20260701T150000Z")
	assert.Contains(t, lines, "DTEND:20260701T160000Z", "defaults to one hour")
	assert.Contains(t, lines, `SUMMARY:Speed\, Agility\; Camp`)
	assert.Contains(t, lines, `LOCATION:Zilker Park\, Austin\, TX`)
	assert.Contains(t, lines, `DESCRIPTION:Bring water\n\nJoin meeting: https://meet.example.com/abc`)
	assert.Contains(t, lines, "URL:http://localhost:3000/events/ev-1")
}
