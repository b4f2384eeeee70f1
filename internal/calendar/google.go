// Package calendar wraps the Google Calendar API for the clinic's single calendar.
package calendar

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/wolfman30/clinic-booking-assistant/pkg/logging"
	gcal "google.golang.org/api/calendar/v3"
	"google.golang.org/api/option"
)

// Event is the subset of a calendar event the booking flow needs.
type Event struct {
	ID          string
	Summary     string
	Description string
	Start       time.Time
	End         time.Time
	HTMLLink    string
}

// EventPatch lists the fields an update may change. Nil fields are left alone.
type EventPatch struct {
	Start       *time.Time
	End         *time.Time
	Description *string
}

// GoogleCalendar talks to one calendar id. Event times are written in the clinic timezone.
type GoogleCalendar struct {
	svc        *gcal.Service
	calendarID string
	location   *time.Location
	logger     *logging.Logger
}

// New builds a client with caller supplied options (credentials, endpoint, http client).
func New(ctx context.Context, calendarID string, location *time.Location, logger *logging.Logger, opts ...option.ClientOption) (*GoogleCalendar, error) {
	if strings.TrimSpace(calendarID) == "" {
		return nil, errors.New("calendar: calendar id is required")
	}
	if location == nil {
		location = time.UTC
	}
	if logger == nil {
		logger = logging.Default()
	}
	svc, err := gcal.NewService(ctx, opts...)
	if err != nil {
		return nil, fmt.Errorf("calendar: create service: %w", err)
	}
	return &GoogleCalendar{svc: svc, calendarID: calendarID, location: location, logger: logger}, nil
}

// NewFromServiceAccount authenticates with a service-account key document.
func NewFromServiceAccount(ctx context.Context, credentialsJSON []byte, calendarID string, location *time.Location, logger *logging.Logger) (*GoogleCalendar, error) {
	if len(credentialsJSON) == 0 {
		return nil, errors.New("calendar: service account credentials are empty")
	}
	return New(ctx, calendarID, location, logger,
		option.WithCredentialsJSON(credentialsJSON),
		option.WithScopes(gcal.CalendarScope),
	)
}

// IsFree reports whether the calendar has no busy blocks in [start, end).
func (c *GoogleCalendar) IsFree(ctx context.Context, start, end time.Time) (bool, error) {
	req := &gcal.FreeBusyRequest{
		TimeMin:  start.UTC().Format(time.RFC3339),
		TimeMax:  end.UTC().Format(time.RFC3339),
		TimeZone: c.location.String(),
		Items:    []*gcal.FreeBusyRequestItem{{Id: c.calendarID}},
	}
	resp, err := c.svc.Freebusy.Query(req).Context(ctx).Do()
	if err != nil {
		return false, fmt.Errorf("calendar: freebusy query: %w", err)
	}
	cal, ok := resp.Calendars[c.calendarID]
	if !ok {
		return false, fmt.Errorf("calendar: freebusy response missing calendar %s", c.calendarID)
	}
	if len(cal.Errors) > 0 {
		return false, fmt.Errorf("calendar: freebusy error: %s", cal.Errors[0].Reason)
	}
	return len(cal.Busy) == 0, nil
}

// CreateEvent inserts an event and notifies attendees.
func (c *GoogleCalendar) CreateEvent(ctx context.Context, ev Event) (*Event, error) {
	body := &gcal.Event{
		Summary:     ev.Summary,
		Description: ev.Description,
		Start:       c.dateTime(ev.Start),
		End:         c.dateTime(ev.End),
	}
	created, err := c.svc.Events.Insert(c.calendarID, body).SendUpdates("all").Context(ctx).Do()
	if err != nil {
		return nil, fmt.Errorf("calendar: insert event: %w", err)
	}
	c.logger.Info("calendar event created", "event_id", created.Id)
	return fromAPI(created), nil
}

// UpdateEvent reads the event, applies the patch and writes it back.
func (c *GoogleCalendar) UpdateEvent(ctx context.Context, eventID string, patch EventPatch) (*Event, error) {
	current, err := c.svc.Events.Get(c.calendarID, eventID).Context(ctx).Do()
	if err != nil {
		return nil, fmt.Errorf("calendar: get event %s: %w", eventID, err)
	}
	if patch.Start != nil {
		current.Start = c.dateTime(*patch.Start)
	}
	if patch.End != nil {
		current.End = c.dateTime(*patch.End)
	}
	if patch.Description != nil {
		current.Description = *patch.Description
	}
	updated, err := c.svc.Events.Update(c.calendarID, eventID, current).SendUpdates("all").Context(ctx).Do()
	if err != nil {
		return nil, fmt.Errorf("calendar: update event %s: %w", eventID, err)
	}
	return fromAPI(updated), nil
}

func (c *GoogleCalendar) DeleteEvent(ctx context.Context, eventID string) error {
	if err := c.svc.Events.Delete(c.calendarID, eventID).SendUpdates("all").Context(ctx).Do(); err != nil {
		return fmt.Errorf("calendar: delete event %s: %w", eventID, err)
	}
	return nil
}

func (c *GoogleCalendar) dateTime(t time.Time) *gcal.EventDateTime {
	return &gcal.EventDateTime{
		DateTime: t.In(c.location).Format(time.RFC3339),
		TimeZone: c.location.String(),
	}
}

func fromAPI(ev *gcal.Event) *Event {
	out := &Event{
		ID:          ev.Id,
		Summary:     ev.Summary,
		Description: ev.Description,
		HTMLLink:    ev.HtmlLink,
	}
	if ev.Start != nil {
		out.Start, _ = time.Parse(time.RFC3339, ev.Start.DateTime)
	}
	if ev.End != nil {
		out.End, _ = time.Parse(time.RFC3339, ev.End.DateTime)
	}
	return out
}
