package store

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

// MappingStatus is the lifecycle state of an EventMapping.
type MappingStatus string

const (
	MappingPending  MappingStatus = "pending"
	MappingSynced   MappingStatus = "synced"
	MappingFailed   MappingStatus = "failed"
	MappingConflict MappingStatus = "conflict"
	MappingDeleted  MappingStatus = "deleted"
)

// EventMapping ties one UpstreamEvent to one DownstreamEvent within a
// specific SyncSession (spec §3). Direction is always
// "upstream_to_downstream" in this release; the field exists for a
// future bidirectional mode.
type EventMapping struct {
	ID                uuid.UUID
	SyncSessionID     uuid.UUID
	UpstreamEventID   uuid.UUID
	DownstreamEventID *uuid.UUID
	Status            MappingStatus
	Direction         string
	ErrorMessage      string
	NeedsReview       bool
	CreatedAt         time.Time
	UpdatedAt         time.Time
}

// EventMappingStore provides PostgreSQL-backed event mapping storage.
type EventMappingStore struct {
	pool *pgxpool.Pool
}

// NewEventMappingStore creates a new event mapping store.
func NewEventMappingStore(pool *pgxpool.Pool) *EventMappingStore {
	return &EventMappingStore{pool: pool}
}

// Upsert creates or refreshes the mapping for (upstream_event,
// downstream_event) within the given session.
func (s *EventMappingStore) Upsert(ctx context.Context, m *EventMapping) (*EventMapping, error) {
	if m.ID == uuid.Nil {
		m.ID = uuid.New()
	}
	if m.Direction == "" {
		m.Direction = "upstream_to_downstream"
	}
	now := time.Now().UTC()

	row := s.pool.QueryRow(ctx, `
		INSERT INTO event_mappings (
			id, sync_session_id, upstream_event_id, downstream_event_id, status,
			direction, error_message, needs_review, created_at, updated_at
		) VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9,$9)
		ON CONFLICT (upstream_event_id, downstream_event_id) DO UPDATE SET
			sync_session_id = EXCLUDED.sync_session_id,
			status = EXCLUDED.status,
			error_message = EXCLUDED.error_message,
			needs_review = EXCLUDED.needs_review,
			updated_at = EXCLUDED.updated_at
		RETURNING id, sync_session_id, upstream_event_id, downstream_event_id, status,
			direction, error_message, needs_review, created_at, updated_at
	`, m.ID, m.SyncSessionID, m.UpstreamEventID, m.DownstreamEventID, m.Status,
		m.Direction, m.ErrorMessage, m.NeedsReview, now)

	return scanEventMapping(row)
}

func scanEventMapping(row pgx.Row) (*EventMapping, error) {
	m := &EventMapping{}
	err := row.Scan(
		&m.ID, &m.SyncSessionID, &m.UpstreamEventID, &m.DownstreamEventID, &m.Status,
		&m.Direction, &m.ErrorMessage, &m.NeedsReview, &m.CreatedAt, &m.UpdatedAt,
	)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, errors.New("event mapping not found")
		}
		return nil, err
	}
	return m, nil
}
