package core

import (
	"context"
	"time"
)

type (
	// CalendarEvent is the calendar-facing view of a scheduled event.
	CalendarEvent struct {
		ExternalID  string
		Title       string
		Description string
		Location    string
		MeetingURL  string
		Start       time.Time
		End         time.Time
	}

	// CalendarSyncer pushes events to an external calendar.
	CalendarSyncer interface {
		// UpsertEvent creates the event when ExternalID is empty, updates it otherwise,
		// and returns the external ID.
		UpsertEvent(ctx context.Context, ev CalendarEvent) (string, error)
	}
)
