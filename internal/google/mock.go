package google

import (
	"context"
	"fmt"
	"sync"
	"time"

	"google.golang.org/api/calendar/v3"
)

// MockCalendarClient is a mock implementation of CalendarClient for
// testing the reconciler without the downstream calendar API.
type MockCalendarClient struct {
	mu sync.Mutex

	// SyncCalendarID is returned by FindOrCreateSyncCalendar.
	SyncCalendarID    string
	FindOrCreateError error

	// EventsByCalendar maps calendarID to the events ListEvents returns.
	EventsByCalendar map[string][]*calendar.Event
	ListError        error

	// Events keyed by event id, consulted/mutated by Create/Update/Delete.
	events map[string]*calendar.Event

	CreateError error
	UpdateError error
	DeleteError error

	// Call tracking.
	FindOrCreateCalls int
	ListCalls         []ListCall
	CreateCalls       []*calendar.Event
	UpdateCalls       []UpdateCall
	DeleteCalls       []DeleteCall

	nextID int
}

// ListCall records a call to ListEvents.
type ListCall struct {
	CalendarID       string
	TimeMin, TimeMax time.Time
}

// UpdateCall records a call to UpdateEvent.
type UpdateCall struct {
	CalendarID string
	EventID    string
	Event      *calendar.Event
}

// DeleteCall records a call to DeleteEvent.
type DeleteCall struct {
	CalendarID string
	EventID    string
}

// NewMockCalendarClient creates a mock with sensible defaults.
func NewMockCalendarClient() *MockCalendarClient {
	return &MockCalendarClient{
		SyncCalendarID:   "mock-calendar-id",
		EventsByCalendar: make(map[string][]*calendar.Event),
		events:           make(map[string]*calendar.Event),
	}
}

// Ensure MockCalendarClient implements CalendarClient.
var _ CalendarClient = (*MockCalendarClient)(nil)

// FindOrCreateSyncCalendar returns the configured mock calendar id.
func (m *MockCalendarClient) FindOrCreateSyncCalendar(ctx context.Context, accessToken, displayName string) (string, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	m.FindOrCreateCalls++
	if m.FindOrCreateError != nil {
		return "", m.FindOrCreateError
	}
	return m.SyncCalendarID, nil
}

// ListEvents returns the configured mock events for calendarID.
func (m *MockCalendarClient) ListEvents(ctx context.Context, accessToken, calendarID string, timeMin, timeMax time.Time) ([]*calendar.Event, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	m.ListCalls = append(m.ListCalls, ListCall{CalendarID: calendarID, TimeMin: timeMin, TimeMax: timeMax})
	if m.ListError != nil {
		return nil, m.ListError
	}
	return m.EventsByCalendar[calendarID], nil
}

// CreateEvent stores event under a synthesized id and returns it.
func (m *MockCalendarClient) CreateEvent(ctx context.Context, accessToken, calendarID string, event *calendar.Event) (*calendar.Event, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	m.CreateCalls = append(m.CreateCalls, event)
	if m.CreateError != nil {
		return nil, m.CreateError
	}

	m.nextID++
	created := *event
	created.Id = fmt.Sprintf("mock-event-%d", m.nextID)
	created.HtmlLink = "https://calendar.google.com/event?eid=" + created.Id
	m.events[created.Id] = &created

	stored := created
	return &stored, nil
}

// UpdateEvent replaces the stored event's fields and returns it.
func (m *MockCalendarClient) UpdateEvent(ctx context.Context, accessToken, calendarID, eventID string, event *calendar.Event) (*calendar.Event, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	m.UpdateCalls = append(m.UpdateCalls, UpdateCall{CalendarID: calendarID, EventID: eventID, Event: event})
	if m.UpdateError != nil {
		return nil, m.UpdateError
	}

	updated := *event
	updated.Id = eventID
	if existing, ok := m.events[eventID]; ok {
		updated.HtmlLink = existing.HtmlLink
	}
	m.events[eventID] = &updated

	stored := updated
	return &stored, nil
}

// DeleteEvent removes the stored event, returning DeleteError if set.
func (m *MockCalendarClient) DeleteEvent(ctx context.Context, accessToken, calendarID, eventID string) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	m.DeleteCalls = append(m.DeleteCalls, DeleteCall{CalendarID: calendarID, EventID: eventID})
	if m.DeleteError != nil {
		return m.DeleteError
	}
	delete(m.events, eventID)
	return nil
}

// SetEventsForCalendar configures the events ListEvents returns for calendarID.
func (m *MockCalendarClient) SetEventsForCalendar(calendarID string, events []*calendar.Event) {
	m.mu.Lock()
	defer m.mu.Unlock()

	m.EventsByCalendar[calendarID] = events
}

// Reset clears all call tracking.
func (m *MockCalendarClient) Reset() {
	m.mu.Lock()
	defer m.mu.Unlock()

	m.FindOrCreateCalls = 0
	m.ListCalls = nil
	m.CreateCalls = nil
	m.UpdateCalls = nil
	m.DeleteCalls = nil
}
