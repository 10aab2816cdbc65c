package store

import (
	"context"
	"errors"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

// SyncConfiguration holds per-user sync settings (spec §3).
type SyncConfiguration struct {
	UserID uuid.UUID

	SyncEnabled           bool
	FrequencyHours         int
	DisplayName           string
	AddInsperPrefix       bool
	IncludeInstructor     bool
	IncludeDisciplineCode bool

	ExcludedEventKinds []string
	ExcludedDisciplines []string
}

// ShouldSyncEventKind reports whether kind is NOT in the exclusion
// deny-list (spec §3 invariant: exclusion sets are deny-lists).
func (c *SyncConfiguration) ShouldSyncEventKind(kind string) bool {
	for _, excluded := range c.ExcludedEventKinds {
		if excluded == kind {
			return false
		}
	}
	return true
}

// ShouldSyncDiscipline reports whether code is NOT in the exclusion
// deny-list.
func (c *SyncConfiguration) ShouldSyncDiscipline(code string) bool {
	if code == "" {
		return true
	}
	for _, excluded := range c.ExcludedDisciplines {
		if excluded == code {
			return false
		}
	}
	return true
}

// SyncConfigurationStore provides PostgreSQL-backed sync configuration
// storage.
type SyncConfigurationStore struct {
	pool *pgxpool.Pool
}

// NewSyncConfigurationStore creates a new sync configuration store.
func NewSyncConfigurationStore(pool *pgxpool.Pool) *SyncConfigurationStore {
	return &SyncConfigurationStore{pool: pool}
}

// GetOrCreate loads the user's configuration, creating one with the
// spec §4.8 defaults ({sync_enabled: true, display_name: "Insper
// Sync"}) if absent.
func (s *SyncConfigurationStore) GetOrCreate(ctx context.Context, userID uuid.UUID) (*SyncConfiguration, error) {
	cfg, err := s.get(ctx, userID)
	if err == nil {
		return cfg, nil
	}
	if !errors.Is(err, pgx.ErrNoRows) {
		return nil, err
	}

	cfg = &SyncConfiguration{
		UserID:                userID,
		SyncEnabled:           true,
		FrequencyHours:        24,
		DisplayName:           "Insper Sync",
		AddInsperPrefix:       true,
		IncludeInstructor:     true,
		IncludeDisciplineCode: true,
	}
	_, err = s.pool.Exec(ctx, `
		INSERT INTO sync_configurations (
			user_id, sync_enabled, frequency_hours, display_name, add_insper_prefix,
			include_instructor, include_discipline_code, excluded_event_kinds, excluded_disciplines
		) VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9)
		ON CONFLICT (user_id) DO NOTHING
	`, cfg.UserID, cfg.SyncEnabled, cfg.FrequencyHours, cfg.DisplayName, cfg.AddInsperPrefix,
		cfg.IncludeInstructor, cfg.IncludeDisciplineCode, cfg.ExcludedEventKinds, cfg.ExcludedDisciplines)
	if err != nil {
		return nil, err
	}
	return cfg, nil
}

func (s *SyncConfigurationStore) get(ctx context.Context, userID uuid.UUID) (*SyncConfiguration, error) {
	cfg := &SyncConfiguration{UserID: userID}
	err := s.pool.QueryRow(ctx, `
		SELECT sync_enabled, frequency_hours, display_name, add_insper_prefix,
			include_instructor, include_discipline_code, excluded_event_kinds, excluded_disciplines
		FROM sync_configurations WHERE user_id = $1
	`, userID).Scan(
		&cfg.SyncEnabled, &cfg.FrequencyHours, &cfg.DisplayName, &cfg.AddInsperPrefix,
		&cfg.IncludeInstructor, &cfg.IncludeDisciplineCode, &cfg.ExcludedEventKinds, &cfg.ExcludedDisciplines,
	)
	if err != nil {
		return nil, err
	}
	return cfg, nil
}
