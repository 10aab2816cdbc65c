package sync

import (
	"testing"
	"time"
)

func TestDefaultDateRange_StartsAtFirstOfMonth(t *testing.T) {
	now := time.Date(2026, 7, 15, 10, 30, 0, 0, time.UTC)
	start, end := defaultDateRange(now)

	wantStart := time.Date(2026, 7, 1, 0, 0, 0, 0, time.UTC)
	if !start.Equal(wantStart) {
		t.Errorf("start = %v, want %v", start, wantStart)
	}

	wantEnd := time.Date(2026, 8, 1, 0, 0, 0, 0, time.UTC).AddDate(0, 0, 31)
	if !end.Equal(wantEnd) {
		t.Errorf("end = %v, want %v", end, wantEnd)
	}
}

func TestDefaultDateRange_DecemberRollsOverToJanuary(t *testing.T) {
	now := time.Date(2026, 12, 20, 0, 0, 0, 0, time.UTC)
	start, end := defaultDateRange(now)

	wantStart := time.Date(2026, 12, 1, 0, 0, 0, 0, time.UTC)
	if !start.Equal(wantStart) {
		t.Errorf("start = %v, want %v", start, wantStart)
	}

	wantNextMonth := time.Date(2027, 1, 1, 0, 0, 0, 0, time.UTC)
	wantEnd := wantNextMonth.AddDate(0, 0, 31)
	if !end.Equal(wantEnd) {
		t.Errorf("end = %v, want %v", end, wantEnd)
	}
	if end.Year() != 2027 {
		t.Errorf("expected the rolled-over end to land in 2027, got %d", end.Year())
	}
}

func TestDefaultSchedulerConfig_HasSaneDefaults(t *testing.T) {
	cfg := DefaultSchedulerConfig()
	if cfg.EnqueueCron == "" || cfg.CleanupCron == "" {
		t.Error("expected non-empty cron expressions")
	}
	if cfg.SessionRetention <= 0 {
		t.Error("expected a positive session retention window")
	}
}
