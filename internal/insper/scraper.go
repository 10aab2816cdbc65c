package insper

import (
	"encoding/json"
	"fmt"
	"log/slog"
	"net/url"
	"strings"
	"time"

	"github.com/felipeadeildo/insper-sync/internal/syncerr"
)

// saoPauloOffset is the fixed "-03:00" offset the portal expects on
// scrape URL timestamps, regardless of DST (spec §4.4, §9).
const saoPauloOffset = "-03:00"

// Scraper pages the upstream calendar endpoint (one month per call)
// and stitches the result into an arbitrary date range.
type Scraper struct {
	session *Session
	logger  *slog.Logger
}

// NewScraper builds a scraper against an authenticated session.
func NewScraper(session *Session, logger *slog.Logger) *Scraper {
	if logger == nil {
		logger = slog.Default()
	}
	return &Scraper{session: session, logger: logger}
}

// GetEventsForRange pages getEventsForMonth across every calendar month
// touching [start, end] and returns only events whose start falls
// inside the range. A single month's failure is logged and skipped —
// a partial range is preferred to a total failure (spec §4.4 step 4,
// the PartialScrapeWarning of spec §7).
func (sc *Scraper) GetEventsForRange(academicData AcademicData, start, end time.Time) ([]Event, error) {
	var all []Event

	cursor := time.Date(start.Year(), start.Month(), 1, 0, 0, 0, 0, start.Location())
	endMonth := time.Date(end.Year(), end.Month(), 1, 0, 0, 0, 0, end.Location())

	for !cursor.After(endMonth) {
		events, err := sc.getEventsForMonth(academicData, cursor.Year(), int(cursor.Month()))
		if err != nil {
			sc.logger.Warn("partial scrape: month failed, continuing",
				"year", cursor.Year(), "month", int(cursor.Month()), "error", err)
			cursor = cursor.AddDate(0, 1, 0)
			continue
		}

		for _, e := range events {
			eventStart := time.Unix(e.StartAt, 0)
			if !eventStart.Before(start) && !eventStart.After(end) {
				all = append(all, e)
			}
		}

		cursor = cursor.AddDate(0, 1, 0)
	}

	return all, nil
}

// getEventsForMonth issues a single month's GET and normalises the
// response.
func (sc *Scraper) getEventsForMonth(academicData AcademicData, year int, month int) ([]Event, error) {
	firstOfMonth := time.Date(year, time.Month(month), 1, 0, 0, 0, 0, time.UTC)
	lastOfMonth := firstOfMonth.AddDate(0, 1, -1)

	path := buildCalendarURL(academicData.ID, academicData.CodAluno, firstOfMonth, lastOfMonth)

	resp, err := sc.session.AuthedGet(path)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	if resp.StatusCode != 200 {
		return nil, syncerr.NewConnectionError("scrape month", fmt.Errorf("unexpected status %d", resp.StatusCode))
	}

	var page calendarResponse
	if err := json.NewDecoder(resp.Body).Decode(&page); err != nil {
		return nil, syncerr.NewConnectionError("parse scrape month", err)
	}

	events := make([]Event, 0, len(page.Content))
	for _, raw := range page.Content {
		events = append(events, normalizeEvent(raw))
	}
	return events, nil
}

func buildCalendarURL(pessoaID, codAluno string, start, end time.Time) string {
	params := url.Values{}
	params.Set("codAluno", codAluno)
	params.Set("start", start.Format("2006-01-02T00:00:00.000")+saoPauloOffset)
	params.Set("end", end.Format("2006-01-02T00:00:00.000")+saoPauloOffset)
	params.Set("page", "0")
	params.Set("size", "1000")
	params.Set("timezone", "false")

	return fmt.Sprintf("/AOnline/apix/api/rest/alunos/pessoa/%s/events?%s", pessoaID, params.Encode())
}

// normalizeEvent derives the domain Event from the upstream raw JSON
// shape per spec §4.4's field-extraction rules.
func normalizeEvent(raw rawEvent) Event {
	payload, _ := json.Marshal(raw)

	return Event{
		UpstreamEventID: raw.EventID,
		Title:           raw.Title,
		Description:     raw.Descricao,
		StartAt:         raw.StartDate / 1000,
		EndAt:           raw.EndDate / 1000,
		AllDay:          raw.AllDay,
		DisciplineCode:  disciplineCode(raw.Title),
		Instructor:      instructor(raw.HoverInfo),
		ClassGroup:      classGroup(raw.Descricao),
		Location:        location(raw.Descricao),
		EventKind:       raw.TipoEvento,
		Timezone:        raw.TimeZone,
		RawPayload:      payload,
	}
}

// disciplineCode is the second line of title when it contains a
// newline; otherwise empty (spec: "otherwise null").
func disciplineCode(title string) string {
	lines := strings.SplitN(title, "\n", 2)
	if len(lines) < 2 {
		return ""
	}
	return strings.TrimSpace(lines[1])
}

// instructor is the substring after "Docente: " in hoverInfo.
func instructor(hoverInfo string) string {
	const marker = "Docente: "
	idx := strings.Index(hoverInfo, marker)
	if idx < 0 {
		return ""
	}
	return strings.TrimSpace(hoverInfo[idx+len(marker):])
}

// classGroup is the substring after "Turma: " in descricao, up to the
// next " |" delimiter.
func classGroup(descricao string) string {
	const marker = "Turma: "
	idx := strings.Index(descricao, marker)
	if idx < 0 {
		return ""
	}
	rest := descricao[idx+len(marker):]
	if pipeIdx := strings.Index(rest, " |"); pipeIdx >= 0 {
		rest = rest[:pipeIdx]
	}
	return strings.TrimSpace(rest)
}

// location is the substring after "Dependencia: " in descricao;
// otherwise the literal "NÃO INFORMADA".
func location(descricao string) string {
	const marker = "Dependencia: "
	idx := strings.Index(descricao, marker)
	if idx < 0 {
		return "NÃO INFORMADA"
	}
	return strings.TrimSpace(descricao[idx+len(marker):])
}
