package store

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

var ErrUpstreamEventNotFound = errors.New("upstream event not found")

// UpstreamEvent mirrors an upstream portal event, keyed by
// (user, upstream_event_id) (spec §3).
type UpstreamEvent struct {
	ID              uuid.UUID
	UserID          uuid.UUID
	UpstreamEventID string

	Title          string
	Description    string
	StartAt        time.Time
	EndAt          time.Time
	AllDay         bool
	DisciplineCode string
	Instructor     string
	ClassGroup     string
	Location       string
	EventKind      string
	SourceTimezone string
	RawPayload     []byte

	ContentHash string
	Active      bool
	LastSeenAt  time.Time

	CreatedAt time.Time
	UpdatedAt time.Time
}

// UpstreamEventStore provides PostgreSQL-backed upstream event storage.
type UpstreamEventStore struct {
	pool *pgxpool.Pool
}

// NewUpstreamEventStore creates a new upstream event store.
func NewUpstreamEventStore(pool *pgxpool.Pool) *UpstreamEventStore {
	return &UpstreamEventStore{pool: pool}
}

// Upsert creates or updates the row keyed by (user, upstream_event_id).
// The content hash is always recomputed by the caller before Upsert is
// invoked (spec §3's "on save, content hash is recomputed" invariant).
func (s *UpstreamEventStore) Upsert(ctx context.Context, e *UpstreamEvent) (*UpstreamEvent, error) {
	if e.ID == uuid.Nil {
		e.ID = uuid.New()
	}
	now := time.Now().UTC()

	row := s.pool.QueryRow(ctx, `
		INSERT INTO upstream_events (
			id, user_id, upstream_event_id, title, description, start_datetime, end_datetime,
			all_day, disciplina_codigo, docente, turma, dependencia, tipo_evento, timezone,
			raw_data, content_hash, is_active, last_seen_at, created_at, updated_at
		) VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9,$10,$11,$12,$13,$14,$15,$16,true,$17,$17,$17)
		ON CONFLICT (user_id, upstream_event_id) DO UPDATE SET
			title = EXCLUDED.title,
			description = EXCLUDED.description,
			start_datetime = EXCLUDED.start_datetime,
			end_datetime = EXCLUDED.end_datetime,
			all_day = EXCLUDED.all_day,
			disciplina_codigo = EXCLUDED.disciplina_codigo,
			docente = EXCLUDED.docente,
			turma = EXCLUDED.turma,
			dependencia = EXCLUDED.dependencia,
			tipo_evento = EXCLUDED.tipo_evento,
			timezone = EXCLUDED.timezone,
			raw_data = EXCLUDED.raw_data,
			content_hash = EXCLUDED.content_hash,
			is_active = true,
			last_seen_at = EXCLUDED.last_seen_at,
			updated_at = EXCLUDED.last_seen_at
		RETURNING id, user_id, upstream_event_id, title, description, start_datetime, end_datetime,
			all_day, disciplina_codigo, docente, turma, dependencia, tipo_evento, timezone,
			raw_data, content_hash, is_active, last_seen_at, created_at, updated_at
	`, e.ID, e.UserID, e.UpstreamEventID, e.Title, e.Description, e.StartAt, e.EndAt,
		e.AllDay, e.DisciplineCode, e.Instructor, e.ClassGroup, e.Location, e.EventKind, e.SourceTimezone,
		e.RawPayload, e.ContentHash, now)

	return scanUpstreamEvent(row)
}

func scanUpstreamEvent(row pgx.Row) (*UpstreamEvent, error) {
	e := &UpstreamEvent{}
	err := row.Scan(
		&e.ID, &e.UserID, &e.UpstreamEventID, &e.Title, &e.Description, &e.StartAt, &e.EndAt,
		&e.AllDay, &e.DisciplineCode, &e.Instructor, &e.ClassGroup, &e.Location, &e.EventKind, &e.SourceTimezone,
		&e.RawPayload, &e.ContentHash, &e.Active, &e.LastSeenAt, &e.CreatedAt, &e.UpdatedAt,
	)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrUpstreamEventNotFound
		}
		return nil, err
	}
	return e, nil
}

// ListActiveByUser returns the active upstream events for a user whose
// start falls within [start, end].
func (s *UpstreamEventStore) ListActiveByUser(ctx context.Context, userID uuid.UUID, start, end time.Time) ([]*UpstreamEvent, error) {
	rows, err := s.pool.Query(ctx, `
		SELECT id, user_id, upstream_event_id, title, description, start_datetime, end_datetime,
			all_day, disciplina_codigo, docente, turma, dependencia, tipo_evento, timezone,
			raw_data, content_hash, is_active, last_seen_at, created_at, updated_at
		FROM upstream_events
		WHERE user_id = $1 AND is_active AND start_datetime BETWEEN $2 AND $3
		ORDER BY start_datetime
	`, userID, start, end)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var events []*UpstreamEvent
	for rows.Next() {
		e, err := scanUpstreamEvent(rows)
		if err != nil {
			return nil, err
		}
		events = append(events, e)
	}
	return events, rows.Err()
}

// MarkInactiveNotSeenSince flips is_active=false for every event of
// userID whose last_seen_at is before cutoff — used when a full-range
// scrape no longer returns an event (spec §3 UpstreamEvent lifecycle).
func (s *UpstreamEventStore) MarkInactiveNotSeenSince(ctx context.Context, userID uuid.UUID, cutoff time.Time) error {
	_, err := s.pool.Exec(ctx, `
		UPDATE upstream_events SET is_active = false, updated_at = now()
		WHERE user_id = $1 AND is_active AND last_seen_at < $2
	`, userID, cutoff)
	return err
}
