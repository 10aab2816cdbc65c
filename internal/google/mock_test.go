package google

import (
	"context"
	"testing"
	"time"

	"google.golang.org/api/calendar/v3"
)

func TestMockCalendarClient_CreateUpdateDeleteRoundTrip(t *testing.T) {
	m := NewMockCalendarClient()
	ctx := context.Background()

	created, err := m.CreateEvent(ctx, "token", "cal-1", &calendar.Event{Summary: "Math"})
	if err != nil {
		t.Fatalf("CreateEvent() error = %v", err)
	}
	if created.Id == "" {
		t.Fatal("expected CreateEvent to assign an id")
	}
	if created.HtmlLink == "" {
		t.Error("expected CreateEvent to populate HtmlLink")
	}

	updated, err := m.UpdateEvent(ctx, "token", "cal-1", created.Id, &calendar.Event{Summary: "Math II"})
	if err != nil {
		t.Fatalf("UpdateEvent() error = %v", err)
	}
	if updated.Summary != "Math II" {
		t.Errorf("expected updated summary, got %q", updated.Summary)
	}
	if updated.HtmlLink != created.HtmlLink {
		t.Error("expected UpdateEvent to preserve the original HtmlLink")
	}

	if err := m.DeleteEvent(ctx, "token", "cal-1", created.Id); err != nil {
		t.Fatalf("DeleteEvent() error = %v", err)
	}
	if len(m.DeleteCalls) != 1 {
		t.Errorf("expected 1 tracked delete call, got %d", len(m.DeleteCalls))
	}
}

func TestMockCalendarClient_FindOrCreateSyncCalendar(t *testing.T) {
	m := NewMockCalendarClient()
	m.SyncCalendarID = "calendar-xyz"

	id, err := m.FindOrCreateSyncCalendar(context.Background(), "token", "Insper Sync")
	if err != nil {
		t.Fatalf("FindOrCreateSyncCalendar() error = %v", err)
	}
	if id != "calendar-xyz" {
		t.Errorf("got %q, want %q", id, "calendar-xyz")
	}
	if m.FindOrCreateCalls != 1 {
		t.Errorf("expected 1 call recorded, got %d", m.FindOrCreateCalls)
	}
}

func TestMockCalendarClient_ListEventsReturnsConfiguredEvents(t *testing.T) {
	m := NewMockCalendarClient()
	events := []*calendar.Event{{Id: "ev-1", Summary: "Physics"}}
	m.SetEventsForCalendar("cal-1", events)

	got, err := m.ListEvents(context.Background(), "token", "cal-1", time.Time{}, time.Time{})
	if err != nil {
		t.Fatalf("ListEvents() error = %v", err)
	}
	if len(got) != 1 || got[0].Id != "ev-1" {
		t.Errorf("ListEvents() = %+v, want the configured event", got)
	}
}
