package store

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

var ErrDownstreamEventNotFound = errors.New("downstream event not found")

// DownstreamEvent mirrors a downstream calendar event, keyed by
// (user, downstream_event_id) (spec §3). Only events whose raw payload
// carries the private extended property sync_source="insper" are ever
// touched by the reconciler (the marker contract, spec §4.7/§9).
type DownstreamEvent struct {
	ID                uuid.UUID
	UserID            uuid.UUID
	DownstreamEventID string
	CalendarID        string

	Title       string
	Description string
	StartAt     time.Time
	EndAt       time.Time
	AllDay      bool
	Location    string
	HTMLLink    string
	RawPayload  []byte

	ContentHash      string
	Active           bool
	SyncedFromUpstream bool

	CreatedAt time.Time
	UpdatedAt time.Time
}

// DownstreamEventStore provides PostgreSQL-backed downstream event
// storage.
type DownstreamEventStore struct {
	pool *pgxpool.Pool
}

// NewDownstreamEventStore creates a new downstream event store.
func NewDownstreamEventStore(pool *pgxpool.Pool) *DownstreamEventStore {
	return &DownstreamEventStore{pool: pool}
}

// Upsert creates or updates the row keyed by (user, downstream_event_id).
func (s *DownstreamEventStore) Upsert(ctx context.Context, e *DownstreamEvent) (*DownstreamEvent, error) {
	if e.ID == uuid.Nil {
		e.ID = uuid.New()
	}
	now := time.Now().UTC()

	row := s.pool.QueryRow(ctx, `
		INSERT INTO downstream_events (
			id, user_id, downstream_event_id, calendar_id, title, description,
			start_datetime, end_datetime, all_day, location, html_link, raw_data,
			content_hash, is_active, synced_from_upstream, created_at, updated_at
		) VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9,$10,$11,$12,$13,true,true,$14,$14)
		ON CONFLICT (user_id, downstream_event_id) DO UPDATE SET
			calendar_id = EXCLUDED.calendar_id,
			title = EXCLUDED.title,
			description = EXCLUDED.description,
			start_datetime = EXCLUDED.start_datetime,
			end_datetime = EXCLUDED.end_datetime,
			all_day = EXCLUDED.all_day,
			location = EXCLUDED.location,
			html_link = EXCLUDED.html_link,
			raw_data = EXCLUDED.raw_data,
			content_hash = EXCLUDED.content_hash,
			is_active = true,
			updated_at = EXCLUDED.updated_at
		RETURNING id, user_id, downstream_event_id, calendar_id, title, description,
			start_datetime, end_datetime, all_day, location, html_link, raw_data,
			content_hash, is_active, synced_from_upstream, created_at, updated_at
	`, e.ID, e.UserID, e.DownstreamEventID, e.CalendarID, e.Title, e.Description,
		e.StartAt, e.EndAt, e.AllDay, e.Location, e.HTMLLink, e.RawPayload,
		e.ContentHash, now)

	return scanDownstreamEvent(row)
}

func scanDownstreamEvent(row pgx.Row) (*DownstreamEvent, error) {
	e := &DownstreamEvent{}
	err := row.Scan(
		&e.ID, &e.UserID, &e.DownstreamEventID, &e.CalendarID, &e.Title, &e.Description,
		&e.StartAt, &e.EndAt, &e.AllDay, &e.Location, &e.HTMLLink, &e.RawPayload,
		&e.ContentHash, &e.Active, &e.SyncedFromUpstream, &e.CreatedAt, &e.UpdatedAt,
	)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrDownstreamEventNotFound
		}
		return nil, err
	}
	return e, nil
}

// MarkInactiveByDownstreamID flips is_active=false for a single
// downstream event after a confirmed delete (spec §4.7 step 4).
func (s *DownstreamEventStore) MarkInactiveByDownstreamID(ctx context.Context, userID uuid.UUID, downstreamEventID string) error {
	_, err := s.pool.Exec(ctx, `
		UPDATE downstream_events SET is_active = false, updated_at = now()
		WHERE user_id = $1 AND downstream_event_id = $2
	`, userID, downstreamEventID)
	return err
}
