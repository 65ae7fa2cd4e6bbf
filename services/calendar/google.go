package calendarsvc

import (
	"context"
	"net/http"
	"os"
	"strings"
	"time"

	"github.com/pkg/errors"
	"golang.org/x/oauth2"
	"golang.org/x/oauth2/google"
	"google.golang.org/api/calendar/v3"
	"google.golang.org/api/googleapi"
	"google.golang.org/api/option"

	"github.com/malekai-gauntlet/tsa-platform-sub001/core"
)

const DefaultBaseURL = "https://www.googleapis.com/calendar/v3/"

type googleCalendar struct {
	svc        *calendar.Service
	calendarID string
	logger     core.Logger
}

var _ core.CalendarSyncer = (*googleCalendar)(nil)

// NewGoogleCalendar authenticates with the service account key found at
// conf.Google.CredentialsFile.
func NewGoogleCalendar(ctx context.Context, conf *core.Config, logger core.Logger) (core.CalendarSyncer, error) {
	key, err := os.ReadFile(conf.Google.CredentialsFile)
	if err != nil {
		return nil, errors.Wrap(err, "reading google credentials")
	}
	creds, err := google.CredentialsFromJSON(ctx, key, calendar.CalendarEventsScope)
	if err != nil {
		return nil, errors.Wrap(err, "parsing google credentials")
	}
	return NewGoogleCalendarWithTokenSource(ctx, creds.TokenSource, DefaultBaseURL, conf.Google.CalendarID, logger)
}

func NewGoogleCalendarWithTokenSource(
	ctx context.Context,
	ts oauth2.TokenSource,
	baseURL string,
	calendarID string,
	logger core.Logger,
) (core.CalendarSyncer, error) {
	if calendarID == "" {
		calendarID = "primary"
	}
	client := oauth2.NewClient(ctx, ts)
	client.Timeout = 15 * time.Second

	svc, err := calendar.NewService(ctx,
		option.WithHTTPClient(client),
		option.WithEndpoint(strings.TrimRight(baseURL, "/")+"/"),
	)
	if err != nil {
		return nil, errors.Wrap(err, "creating calendar service")
	}
	return &googleCalendar{svc: svc, calendarID: calendarID, logger: logger}, nil
}

// UpsertEvent updates the calendar event known by ev.ExternalID, or inserts a new one when
// there is none or it was deleted on the calendar side.
func (cal *googleCalendar) UpsertEvent(ctx context.Context, ev core.CalendarEvent) (string, error) {
	res := toEvent(ev)
	if ev.ExternalID != "" {
		updated, err := cal.svc.Events.Update(cal.calendarID, ev.ExternalID, res).Context(ctx).Do()
		if err == nil {
			return updated.Id, nil
		}
		if !isGone(err) {
			return "", errors.Wrap(err, "updating calendar event")
		}
		cal.logger.Warn("calendar event gone, re-inserting", map[string]interface{}{"external_id": ev.ExternalID})
	}

	created, err := cal.svc.Events.Insert(cal.calendarID, res).Context(ctx).Do()
	if err != nil {
		return "", errors.Wrap(err, "inserting calendar event")
	}
	if created.Id == "" {
		return "", errors.New("google calendar: response without event id")
	}
	return created.Id, nil
}

func isGone(err error) bool {
	var gErr *googleapi.Error
	if !errors.As(err, &gErr) {
		return false
	}
	return gErr.Code == http.StatusNotFound || gErr.Code == http.StatusGone
}

func toEvent(ev core.CalendarEvent) *calendar.Event {
	desc := ev.Description
	if ev.MeetingURL != "" {
		desc = strings.TrimSpace(desc + "\n\nJoin meeting: " + ev.MeetingURL)
	}
	end := ev.End
	if end.IsZero() || end.Before(ev.Start) {
		end = ev.Start.Add(time.Hour)
	}
	return &calendar.Event{
		Summary:     ev.Title,
		Description: desc,
		Location:    ev.Location,
		Start:       &calendar.EventDateTime{DateTime: ev.Start.UTC().Format(time.RFC3339), TimeZone: "UTC"},
		End:         &calendar.EventDateTime{DateTime: end.UTC().Format(time.RFC3339), TimeZone: "UTC"},
	}
}
