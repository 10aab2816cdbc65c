//go:build integration

package store

import (
	"context"
	"os"
	"testing"
	"time"

	"github.com/google/uuid"

	"github.com/felipeadeildo/insper-sync/internal/database"
)

func mustTestPool(t *testing.T) *UpstreamEventStore {
	dbURL := os.Getenv("TEST_DATABASE_URL")
	if dbURL == "" {
		t.Skip("TEST_DATABASE_URL not set, skipping integration test")
	}

	ctx := context.Background()
	db, err := database.New(ctx, dbURL)
	if err != nil {
		t.Fatalf("failed to connect to database: %v", err)
	}
	t.Cleanup(db.Close)

	if err := db.Migrate(ctx); err != nil {
		t.Fatalf("failed to run migrations: %v", err)
	}

	return NewUpstreamEventStore(db.Pool)
}

func seedTestUser(t *testing.T, s *UpstreamEventStore) uuid.UUID {
	ctx := context.Background()
	userID := uuid.New()
	_, err := s.pool.Exec(ctx, `
		INSERT INTO users (id, email, email_verified, portal_credentials_set, downstream_connected, active)
		VALUES ($1, $2, true, true, true, true)`,
		userID, "upstream-events-test-"+userID.String()[:8]+"@test.com",
	)
	if err != nil {
		t.Fatalf("failed to seed test user: %v", err)
	}
	t.Cleanup(func() {
		s.pool.Exec(context.Background(), `DELETE FROM users WHERE id = $1`, userID)
	})
	return userID
}

func TestUpstreamEventStore_UpsertIsIdempotentOnSourceID(t *testing.T) {
	s := mustTestPool(t)
	userID := seedTestUser(t, s)
	ctx := context.Background()

	start := time.Date(2026, 8, 10, 14, 0, 0, 0, time.UTC)
	event := &UpstreamEvent{
		UserID:          userID,
		UpstreamEventID: "evt-123",
		Title:           "Prova de Cálculo",
		StartAt:         start,
		EndAt:           start.Add(2 * time.Hour),
		EventKind:       "PROVA",
		ContentHash:     "abc123",
		LastSeenAt:      time.Now().UTC(),
	}

	created, err := s.Upsert(ctx, event)
	if err != nil {
		t.Fatalf("Upsert (create) failed: %v", err)
	}

	event.Title = "Prova de Cálculo II"
	event.ContentHash = "def456"
	updated, err := s.Upsert(ctx, event)
	if err != nil {
		t.Fatalf("Upsert (update) failed: %v", err)
	}

	if created.ID != updated.ID {
		t.Errorf("expected the same row to be reused on re-upsert, got ids %s and %s", created.ID, updated.ID)
	}
	if updated.Title != "Prova de Cálculo II" {
		t.Errorf("expected updated title to persist, got %q", updated.Title)
	}

	rows, err := s.ListActiveByUser(ctx, userID, start.Add(-time.Hour), start.Add(24*time.Hour))
	if err != nil {
		t.Fatalf("ListActiveByUser failed: %v", err)
	}
	if len(rows) != 1 {
		t.Fatalf("expected 1 active row, got %d", len(rows))
	}
}

func TestUpstreamEventStore_MarkInactiveNotSeenSince(t *testing.T) {
	s := mustTestPool(t)
	userID := seedTestUser(t, s)
	ctx := context.Background()

	start := time.Date(2026, 9, 1, 10, 0, 0, 0, time.UTC)
	stale := &UpstreamEvent{
		UserID:          userID,
		UpstreamEventID: "evt-stale",
		Title:           "Aula cancelada",
		StartAt:         start,
		EndAt:           start.Add(time.Hour),
		EventKind:       "AULA",
		ContentHash:     "stale-hash",
		LastSeenAt:      start,
	}
	if _, err := s.Upsert(ctx, stale); err != nil {
		t.Fatalf("Upsert failed: %v", err)
	}

	cutoff := start.Add(time.Minute)
	if err := s.MarkInactiveNotSeenSince(ctx, userID, cutoff); err != nil {
		t.Fatalf("MarkInactiveNotSeenSince failed: %v", err)
	}

	rows, err := s.ListActiveByUser(ctx, userID, start.Add(-time.Hour), start.Add(24*time.Hour))
	if err != nil {
		t.Fatalf("ListActiveByUser failed: %v", err)
	}
	if len(rows) != 0 {
		t.Errorf("expected the stale event to be marked inactive, found %d active rows", len(rows))
	}
}
