package sync

import (
	"strings"
	"testing"
	"time"

	"github.com/felipeadeildo/insper-sync/internal/store"
	"google.golang.org/api/calendar/v3"
)

func testUpstreamEvent() *store.UpstreamEvent {
	return &store.UpstreamEvent{
		UpstreamEventID: "evt-1",
		Title:           "Prova de Cálculo",
		Description:     "Prova final",
		StartAt:         time.Date(2026, 8, 10, 14, 0, 0, 0, time.UTC),
		EndAt:           time.Date(2026, 8, 10, 16, 0, 0, 0, time.UTC),
		DisciplineCode:  "MATH101",
		Instructor:      "Prof. Silva",
		ClassGroup:      "T1",
		EventKind:       "PROVA",
		SourceTimezone:  "America/Sao_Paulo",
	}
}

func testSyncConfiguration() *store.SyncConfiguration {
	return &store.SyncConfiguration{
		DisplayName:           "Insper Sync",
		AddInsperPrefix:       true,
		IncludeInstructor:     true,
		IncludeDisciplineCode: true,
	}
}

func TestUpstreamContentHash_StableForIdenticalFields(t *testing.T) {
	a := upstreamContentHash(testUpstreamEvent())
	b := upstreamContentHash(testUpstreamEvent())
	if a != b {
		t.Errorf("expected identical hashes, got %q and %q", a, b)
	}
}

func TestUpstreamContentHash_ChangesWithTitle(t *testing.T) {
	e1 := testUpstreamEvent()
	e2 := testUpstreamEvent()
	e2.Title = "Prova de Física"

	if upstreamContentHash(e1) == upstreamContentHash(e2) {
		t.Error("expected different hashes for different titles")
	}
}

func TestFormatTitle_Prefix(t *testing.T) {
	e := testUpstreamEvent()

	cfg := testSyncConfiguration()
	if got := formatTitle(e, cfg); got != "[Insper] Prova de Cálculo" {
		t.Errorf("formatTitle() = %q", got)
	}

	cfg.AddInsperPrefix = false
	if got := formatTitle(e, cfg); got != "Prova de Cálculo" {
		t.Errorf("formatTitle() without prefix = %q", got)
	}
}

func TestFormatDescription_OmitsDisciplineCodeWhenDisabled(t *testing.T) {
	e := testUpstreamEvent()
	cfg := testSyncConfiguration()
	cfg.IncludeDisciplineCode = false

	desc := formatDescription(e, cfg)
	if strings.Contains(desc, "Código da disciplina") {
		t.Errorf("expected discipline code line to be omitted, got %q", desc)
	}
	if !strings.Contains(desc, "Docente: Prof. Silva") {
		t.Errorf("expected instructor line present (it is not gated by config), got %q", desc)
	}
}

func TestFormatDescription_ComposesAllLinesAndFooter(t *testing.T) {
	e := testUpstreamEvent()
	e.Location = "Sala 101"
	cfg := testSyncConfiguration()

	desc := formatDescription(e, cfg)
	for _, want := range []string{
		"Código da disciplina: MATH101",
		"Docente: Prof. Silva",
		"Turma: T1",
		"Local: Sala 101",
		"\n---",
		"Sincronizado automaticamente via Insper Sync",
		"Última atualização: ",
	} {
		if !strings.Contains(desc, want) {
			t.Errorf("expected description to contain %q, got %q", want, desc)
		}
	}
}

func TestMarkerEventID_RequiresBothMarkerAndID(t *testing.T) {
	tests := []struct {
		name  string
		event *calendar.Event
		want  bool
	}{
		{"no extended properties", &calendar.Event{}, false},
		{"wrong source", &calendar.Event{ExtendedProperties: &calendar.EventExtendedProperties{
			Private: map[string]string{"sync_source": "other", "insper_event_id": "evt-1"},
		}}, false},
		{"missing id", &calendar.Event{ExtendedProperties: &calendar.EventExtendedProperties{
			Private: map[string]string{"sync_source": "insper"},
		}}, false},
		{"valid marker", &calendar.Event{ExtendedProperties: &calendar.EventExtendedProperties{
			Private: map[string]string{"sync_source": "insper", "insper_event_id": "evt-1"},
		}}, true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, ok := markerEventID(tt.event)
			if ok != tt.want {
				t.Errorf("markerEventID() ok = %v, want %v", ok, tt.want)
			}
		})
	}
}

func TestBuildDesiredEvent_CarriesMarker(t *testing.T) {
	e := testUpstreamEvent()
	cfg := testSyncConfiguration()

	ev := buildDesiredEvent(e, cfg)
	id, ok := markerEventID(ev)
	if !ok || id != "evt-1" {
		t.Errorf("expected marker id %q, got %q (ok=%v)", "evt-1", id, ok)
	}
}

func TestEventChanged_DetectsTitleDrift(t *testing.T) {
	e := testUpstreamEvent()
	cfg := testSyncConfiguration()
	desired := buildDesiredEvent(e, cfg)

	existing := &calendar.Event{
		Summary:     desired.Summary,
		Description: desired.Description,
		Location:    desired.Location,
		Start:       desired.Start,
		End:         desired.End,
	}
	if eventChanged(desired, existing) {
		t.Error("expected no change for identical events")
	}

	existing.Summary = "something else"
	if !eventChanged(desired, existing) {
		t.Error("expected a change after mutating summary")
	}
}

func TestParseEventDateTime_DateTimeAndAllDay(t *testing.T) {
	dt := &calendar.EventDateTime{DateTime: "2026-08-10T14:00:00Z"}
	got := parseEventDateTime(dt)
	if got.IsZero() {
		t.Fatal("expected a parsed time")
	}

	allDay := &calendar.EventDateTime{Date: "2026-08-10"}
	got = parseEventDateTime(allDay)
	if got.IsZero() {
		t.Fatal("expected a parsed all-day time")
	}
}
