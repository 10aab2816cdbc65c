package google

import (
	"context"
	"strings"
	"time"

	"github.com/felipeadeildo/insper-sync/internal/syncerr"
	"golang.org/x/oauth2"
	"google.golang.org/api/calendar/v3"
	"google.golang.org/api/option"
)

const (
	syncCalendarTimezone   = "America/Sao_Paulo"
	syncCalendarDescription = "Calendário gerenciado automaticamente pelo Insper Sync. Eventos aqui são substituídos a cada sincronização."
)

// CalendarClient is a thin wrapper over the downstream calendar's HTTP
// API: list/create/update/delete events, create/find the sync calendar
// (C7). Defined as an interface so internal/sync can substitute
// MockCalendarClient in tests.
type CalendarClient interface {
	FindOrCreateSyncCalendar(ctx context.Context, accessToken, displayName string) (string, error)
	ListEvents(ctx context.Context, accessToken, calendarID string, timeMin, timeMax time.Time) ([]*calendar.Event, error)
	CreateEvent(ctx context.Context, accessToken, calendarID string, event *calendar.Event) (*calendar.Event, error)
	UpdateEvent(ctx context.Context, accessToken, calendarID, eventID string, event *calendar.Event) (*calendar.Event, error)
	DeleteEvent(ctx context.Context, accessToken, calendarID, eventID string) error
}

// Ensure calendarService implements CalendarClient.
var _ CalendarClient = (*calendarService)(nil)

// calendarService is the real CalendarClient, backed by
// google.golang.org/api/calendar/v3.
type calendarService struct{}

// NewCalendarClient builds the production CalendarClient.
func NewCalendarClient() CalendarClient {
	return &calendarService{}
}

func (s *calendarService) service(ctx context.Context, accessToken string) (*calendar.Service, error) {
	ts := oauth2.StaticTokenSource(&oauth2.Token{AccessToken: accessToken})
	client := oauth2.NewClient(ctx, ts)
	srv, err := calendar.NewService(ctx, option.WithHTTPClient(client))
	if err != nil {
		return nil, syncerr.NewConnectionError("google.service", err)
	}
	return srv, nil
}

// FindOrCreateSyncCalendar lists the user's calendars, matching on
// case-insensitive trimmed display-name equality. If none match, it
// creates one with a fixed timezone and description.
func (s *calendarService) FindOrCreateSyncCalendar(ctx context.Context, accessToken, displayName string) (string, error) {
	srv, err := s.service(ctx, accessToken)
	if err != nil {
		return "", err
	}

	want := strings.ToLower(strings.TrimSpace(displayName))
	pageToken := ""
	for {
		call := srv.CalendarList.List()
		if pageToken != "" {
			call = call.PageToken(pageToken)
		}
		list, err := call.Do()
		if err != nil {
			return "", syncerr.NewConnectionError("google.FindOrCreateSyncCalendar", err)
		}
		for _, item := range list.Items {
			if strings.ToLower(strings.TrimSpace(item.Summary)) == want {
				return item.Id, nil
			}
		}
		pageToken = list.NextPageToken
		if pageToken == "" {
			break
		}
	}

	created, err := srv.Calendars.Insert(&calendar.Calendar{
		Summary:     displayName,
		Description: syncCalendarDescription,
		TimeZone:    syncCalendarTimezone,
	}).Do()
	if err != nil {
		return "", syncerr.NewConnectionError("google.FindOrCreateSyncCalendar", err)
	}
	return created.Id, nil
}

// ListEvents returns every event in [timeMin, timeMax), paging through
// up to 2500 results per page, singleEvents expanded and ordered by
// start time.
func (s *calendarService) ListEvents(ctx context.Context, accessToken, calendarID string, timeMin, timeMax time.Time) ([]*calendar.Event, error) {
	srv, err := s.service(ctx, accessToken)
	if err != nil {
		return nil, err
	}

	var all []*calendar.Event
	pageToken := ""
	for {
		call := srv.Events.List(calendarID).
			TimeMin(timeMin.Format(time.RFC3339)).
			TimeMax(timeMax.Format(time.RFC3339)).
			SingleEvents(true).
			OrderBy("startTime").
			MaxResults(2500)
		if pageToken != "" {
			call = call.PageToken(pageToken)
		}

		result, err := call.Do()
		if err != nil {
			return nil, syncerr.NewConnectionError("google.ListEvents", err)
		}
		all = append(all, result.Items...)

		pageToken = result.NextPageToken
		if pageToken == "" {
			break
		}
	}
	return all, nil
}

// CreateEvent inserts a new event. Success is HTTP 200.
func (s *calendarService) CreateEvent(ctx context.Context, accessToken, calendarID string, event *calendar.Event) (*calendar.Event, error) {
	srv, err := s.service(ctx, accessToken)
	if err != nil {
		return nil, err
	}
	created, err := srv.Events.Insert(calendarID, event).Do()
	if err != nil {
		return nil, syncerr.NewConnectionError("google.CreateEvent", err)
	}
	return created, nil
}

// UpdateEvent replaces an existing event's fields. Success is HTTP 200.
func (s *calendarService) UpdateEvent(ctx context.Context, accessToken, calendarID, eventID string, event *calendar.Event) (*calendar.Event, error) {
	srv, err := s.service(ctx, accessToken)
	if err != nil {
		return nil, err
	}
	updated, err := srv.Events.Update(calendarID, eventID, event).Do()
	if err != nil {
		return nil, syncerr.NewConnectionError("google.UpdateEvent", err)
	}
	return updated, nil
}

// DeleteEvent removes an event. Success is HTTP 204; any other status
// surfaces as an error so the reconciler can skip flipping is_active.
func (s *calendarService) DeleteEvent(ctx context.Context, accessToken, calendarID, eventID string) error {
	srv, err := s.service(ctx, accessToken)
	if err != nil {
		return err
	}
	if err := srv.Events.Delete(calendarID, eventID).Do(); err != nil {
		return syncerr.NewConnectionError("google.DeleteEvent", err)
	}
	return nil
}
