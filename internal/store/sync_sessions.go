package store

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

var ErrSyncSessionNotFound = errors.New("sync session not found")

// SessionStatus is the terminal/non-terminal status of a SyncSession.
type SessionStatus string

const (
	SessionRunning   SessionStatus = "running"
	SessionCompleted SessionStatus = "completed"
	SessionFailed    SessionStatus = "failed"
	SessionPartial   SessionStatus = "partial"
)

// IsTerminal reports whether status is one of completed/failed/partial
// (spec §3's "completed_at is non-null iff status is terminal").
func (s SessionStatus) IsTerminal() bool {
	return s == SessionCompleted || s == SessionFailed || s == SessionPartial
}

// SyncSession is a single reconciliation run for a user over a date
// range (spec §3).
type SyncSession struct {
	ID        uuid.UUID
	UserID    uuid.UUID
	StartDate time.Time
	EndDate   time.Time

	Status      SessionStatus
	StartedAt   time.Time
	CompletedAt *time.Time

	UpstreamFound   int
	DownstreamFound int
	Created         int
	Updated         int
	Deleted         int
	Failed          int

	ErrorMessage string
	ErrorDetails map[string]any
}

// SyncSessionStore provides PostgreSQL-backed sync session storage.
type SyncSessionStore struct {
	pool *pgxpool.Pool
}

// NewSyncSessionStore creates a new sync session store.
func NewSyncSessionStore(pool *pgxpool.Pool) *SyncSessionStore {
	return &SyncSessionStore{pool: pool}
}

// Create opens a new running SyncSession.
func (s *SyncSessionStore) Create(ctx context.Context, userID uuid.UUID, start, end time.Time) (*SyncSession, error) {
	session := &SyncSession{
		ID:        uuid.New(),
		UserID:    userID,
		StartDate: start,
		EndDate:   end,
		Status:    SessionRunning,
		StartedAt: time.Now().UTC(),
	}

	_, err := s.pool.Exec(ctx, `
		INSERT INTO sync_sessions (id, user_id, start_date, end_date, status, started_at)
		VALUES ($1,$2,$3,$4,$5,$6)
	`, session.ID, session.UserID, session.StartDate, session.EndDate, session.Status, session.StartedAt)
	if err != nil {
		return nil, err
	}
	return session, nil
}

// HasRunningWithin reports whether userID has a session in status
// "running" whose started_at is within the last window — the in-flight
// invariant enforced at the manual-trigger boundary (spec §5).
func (s *SyncSessionStore) HasRunningWithin(ctx context.Context, userID uuid.UUID, window time.Duration) (bool, error) {
	var exists bool
	err := s.pool.QueryRow(ctx, `
		SELECT EXISTS(
			SELECT 1 FROM sync_sessions
			WHERE user_id = $1 AND status = $2 AND started_at > $3
		)
	`, userID, SessionRunning, time.Now().UTC().Add(-window)).Scan(&exists)
	return exists, err
}

// Complete marks a session completed and persists its final counters.
// A session reaches "completed" whenever the run itself didn't fail
// outright, regardless of how many individual events failed to
// reconcile — per-event failures are recorded in the failed counter,
// not reflected in the session status (spec §7/§8 scenario S5).
func (s *SyncSessionStore) Complete(ctx context.Context, id uuid.UUID, upstreamFound, downstreamFound, created, updated, deleted, failed int) error {
	_, err := s.pool.Exec(ctx, `
		UPDATE sync_sessions SET
			status = $2, completed_at = now(),
			upstream_found = $3, downstream_found = $4,
			created = $5, updated = $6, deleted = $7, failed = $8
		WHERE id = $1
	`, id, SessionCompleted, upstreamFound, downstreamFound, created, updated, deleted, failed)
	return err
}

// Fail marks a session failed with an error message and optional
// structured error detail.
func (s *SyncSessionStore) Fail(ctx context.Context, id uuid.UUID, message string, details map[string]any) error {
	_, err := s.pool.Exec(ctx, `
		UPDATE sync_sessions SET status = $2, completed_at = now(), error_message = $3, error_details = $4
		WHERE id = $1
	`, id, SessionFailed, message, details)
	return err
}

func scanSyncSession(row pgx.Row) (*SyncSession, error) {
	s := &SyncSession{}
	err := row.Scan(
		&s.ID, &s.UserID, &s.StartDate, &s.EndDate, &s.Status, &s.StartedAt, &s.CompletedAt,
		&s.UpstreamFound, &s.DownstreamFound, &s.Created, &s.Updated, &s.Deleted, &s.Failed,
		&s.ErrorMessage, &s.ErrorDetails,
	)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrSyncSessionNotFound
		}
		return nil, err
	}
	return s, nil
}

// GetByID retrieves a session by id.
func (s *SyncSessionStore) GetByID(ctx context.Context, id uuid.UUID) (*SyncSession, error) {
	row := s.pool.QueryRow(ctx, `
		SELECT id, user_id, start_date, end_date, status, started_at, completed_at,
			upstream_found, downstream_found, created, updated, deleted, failed,
			error_message, error_details
		FROM sync_sessions WHERE id = $1
	`, id)
	return scanSyncSession(row)
}

// DeleteOlderThan deletes every sync session whose started_at precedes
// the retention cutoff (the second scheduled task of spec §6).
// EventMappings cascade-delete with their owning session (spec §3
// Ownership).
func (s *SyncSessionStore) DeleteOlderThan(ctx context.Context, retention time.Duration) (int64, error) {
	tag, err := s.pool.Exec(ctx, `
		DELETE FROM sync_sessions WHERE started_at < $1
	`, time.Now().UTC().Add(-retention))
	if err != nil {
		return 0, err
	}
	return tag.RowsAffected(), nil
}
