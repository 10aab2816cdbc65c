package sync

import (
	"crypto/md5"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"github.com/felipeadeildo/insper-sync/internal/store"
	"github.com/google/uuid"
	"google.golang.org/api/calendar/v3"
)

// syncSourceMarker is the extendedProperties.private value that marks a
// downstream event as owned by this sync engine (spec §4.7/§9).
const syncSourceMarker = "insper"

// contentHash returns the hex MD5 digest of fields's canonical JSON
// serialisation. encoding/json marshals map keys in sorted order, which
// gives the "canonical JSON serialisation (sorted keys)" spec §4.7
// requires without needing a dedicated canonicalisation library.
func contentHash(fields map[string]any) string {
	b, err := json.Marshal(fields)
	if err != nil {
		// fields is always built from this package's own literals;
		// a marshal failure here means a bug, not bad input.
		panic(fmt.Sprintf("sync: contentHash: %v", err))
	}
	sum := md5.Sum(b)
	return hex.EncodeToString(sum[:])
}

// upstreamContentHash hashes the subset of an upstream event's fields
// that determine whether it needs re-syncing downstream.
func upstreamContentHash(e *store.UpstreamEvent) string {
	return contentHash(map[string]any{
		"title":           e.Title,
		"description":     e.Description,
		"start_datetime":  e.StartAt.UTC().Format(time.RFC3339),
		"end_datetime":    e.EndAt.UTC().Format(time.RFC3339),
		"all_day":         e.AllDay,
		"disciplina_codigo": e.DisciplineCode,
		"docente":         e.Instructor,
		"turma":           e.ClassGroup,
		"tipo_evento":     e.EventKind,
	})
}

// downstreamContentHash hashes the subset of a downstream event's
// fields that mirror what the reconciler itself writes.
func downstreamContentHash(e *store.DownstreamEvent) string {
	return contentHash(map[string]any{
		"title":          e.Title,
		"description":    e.Description,
		"start_datetime": e.StartAt.UTC().Format(time.RFC3339),
		"end_datetime":   e.EndAt.UTC().Format(time.RFC3339),
		"all_day":        e.AllDay,
		"location":       e.Location,
	})
}

// formatTitle builds the downstream event title from an upstream
// event, optionally prefixed per the user's SyncConfiguration.
func formatTitle(e *store.UpstreamEvent, cfg *store.SyncConfiguration) string {
	if cfg.AddInsperPrefix {
		return "[Insper] " + e.Title
	}
	return e.Title
}

// formatDescription composes the downstream description exactly as
// spec §4.7 defines it: the original description, then discipline
// code/instructor/class group/location lines (each only if the field
// is set, discipline code additionally gated by configuration), then
// a "---" separator and the sync engine's fixed attribution footer.
func formatDescription(e *store.UpstreamEvent, cfg *store.SyncConfiguration) string {
	var lines []string
	if e.Description != "" {
		lines = append(lines, e.Description)
	}
	if cfg.IncludeDisciplineCode && e.DisciplineCode != "" {
		lines = append(lines, "Código da disciplina: "+e.DisciplineCode)
	}
	if e.Instructor != "" {
		lines = append(lines, "Docente: "+e.Instructor)
	}
	if e.ClassGroup != "" {
		lines = append(lines, "Turma: "+e.ClassGroup)
	}
	if e.Location != "" {
		lines = append(lines, "Local: "+e.Location)
	}
	lines = append(lines, "\n---")
	lines = append(lines, "Sincronizado automaticamente via Insper Sync")
	lines = append(lines, "Última atualização: "+time.Now().Format("02/01/2006 15:04"))

	return strings.Join(lines, "\n")
}

// eventDateTime builds a calendar.EventDateTime for t, using Date
// instead of DateTime for all-day events, per the Calendar API's
// contract for whole-day events.
func eventDateTime(t time.Time, allDay bool, timezone string) *calendar.EventDateTime {
	if allDay {
		return &calendar.EventDateTime{Date: t.Format("2006-01-02")}
	}
	return &calendar.EventDateTime{
		DateTime: t.Format(time.RFC3339),
		TimeZone: timezone,
	}
}

// buildDesiredEvent builds the calendar.Event payload the reconciler
// wants the downstream calendar to hold for an upstream event,
// including the private extended properties that mark it as
// sync-owned and carry the join key back to the upstream event.
func buildDesiredEvent(e *store.UpstreamEvent, cfg *store.SyncConfiguration) *calendar.Event {
	tz := e.SourceTimezone
	if tz == "" {
		tz = "America/Sao_Paulo"
	}
	return &calendar.Event{
		Summary:     formatTitle(e, cfg),
		Description: formatDescription(e, cfg),
		Location:    e.Location,
		Start:       eventDateTime(e.StartAt, e.AllDay, tz),
		End:         eventDateTime(e.EndAt, e.AllDay, tz),
		Source: &calendar.EventSource{
			Title: "Insper",
			Url:   "https://sga.insper.edu.br",
		},
		ExtendedProperties: &calendar.EventExtendedProperties{
			Private: map[string]string{
				"sync_source":       syncSourceMarker,
				"insper_event_id":   e.UpstreamEventID,
				"disciplina_codigo": e.DisciplineCode,
				"docente":           e.Instructor,
				"turma":             e.ClassGroup,
			},
		},
	}
}

// markerEventID returns the insper_event_id extended property of a
// downstream calendar event, and whether the event carries the
// sync_source="insper" marker at all (spec §4.7/§9). Events lacking
// the marker are never touched by the reconciler, even if they happen
// to live on the sync calendar.
func markerEventID(e *calendar.Event) (string, bool) {
	if e == nil || e.ExtendedProperties == nil || e.ExtendedProperties.Private == nil {
		return "", false
	}
	if e.ExtendedProperties.Private["sync_source"] != syncSourceMarker {
		return "", false
	}
	id, ok := e.ExtendedProperties.Private["insper_event_id"]
	return id, ok && id != ""
}

// downstreamEventFromGoogle maps a raw calendar.Event the Calendar API
// returned into the store's persisted representation, for re-upserting
// into DownstreamEventStore after a create/update/list.
func downstreamEventFromGoogle(ge *calendar.Event, userID uuid.UUID, calendarID string) *store.DownstreamEvent {
	raw, _ := json.Marshal(ge)
	d := &store.DownstreamEvent{
		UserID:             userID,
		DownstreamEventID:  ge.Id,
		CalendarID:         calendarID,
		Title:              ge.Summary,
		Description:        ge.Description,
		Location:           ge.Location,
		HTMLLink:           ge.HtmlLink,
		RawPayload:         raw,
		SyncedFromUpstream: true,
	}
	d.StartAt = parseEventDateTime(ge.Start)
	d.EndAt = parseEventDateTime(ge.End)
	d.AllDay = ge.Start != nil && ge.Start.Date != ""
	d.ContentHash = downstreamContentHash(d)
	return d
}

// parseEventDateTime extracts the instant a calendar.EventDateTime
// represents, from either its DateTime or all-day Date form.
func parseEventDateTime(dt *calendar.EventDateTime) time.Time {
	if dt == nil {
		return time.Time{}
	}
	if dt.DateTime != "" {
		if t, err := time.Parse(time.RFC3339, dt.DateTime); err == nil {
			return t
		}
	}
	if dt.Date != "" {
		if t, err := time.Parse("2006-01-02", dt.Date); err == nil {
			return t
		}
	}
	return time.Time{}
}
