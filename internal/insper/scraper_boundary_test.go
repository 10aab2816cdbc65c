package insper

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"
	"time"
)

func newFakeScraperPortal(t *testing.T, calls *int32) *httptest.Server {
	t.Helper()
	return httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		atomic.AddInt32(calls, 1)
		resp := calendarResponse{
			Content: []rawEvent{},
			Page:    map[string]any{"totalElements": 0, "totalPages": 1, "number": 0, "size": 1000},
		}
		w.WriteHeader(http.StatusOK)
		json.NewEncoder(w).Encode(resp)
	}))
}

func TestScraper_MonthBoundaryCallCount(t *testing.T) {
	var calls int32
	server := newFakeScraperPortal(t, &calls)
	defer server.Close()

	session, err := NewSession(server.URL, newFakeEncryptor())
	if err != nil {
		t.Fatalf("NewSession() error = %v", err)
	}

	scraper := NewScraper(session, nil)
	academicData := AcademicData{ID: "p1", CodAluno: "c1"}

	start := time.Date(2024, 1, 15, 0, 0, 0, 0, time.UTC)
	end := time.Date(2024, 3, 10, 0, 0, 0, 0, time.UTC)

	if _, err := scraper.GetEventsForRange(academicData, start, end); err != nil {
		t.Fatalf("GetEventsForRange() error = %v", err)
	}

	// January, February, March: 3 calls, one per calendar month touched.
	if got := atomic.LoadInt32(&calls); got != 3 {
		t.Errorf("scrape calls = %d, want 3", got)
	}
}

func TestScraper_PartialFailureContinues(t *testing.T) {
	var calls int32
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		n := atomic.AddInt32(&calls, 1)
		if n == 1 {
			w.WriteHeader(http.StatusInternalServerError)
			return
		}
		resp := calendarResponse{Content: []rawEvent{}, Page: map[string]any{}}
		w.WriteHeader(http.StatusOK)
		json.NewEncoder(w).Encode(resp)
	}))
	defer server.Close()

	session, err := NewSession(server.URL, newFakeEncryptor())
	if err != nil {
		t.Fatalf("NewSession() error = %v", err)
	}

	scraper := NewScraper(session, nil)
	academicData := AcademicData{ID: "p1", CodAluno: "c1"}

	start := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)
	end := time.Date(2024, 2, 1, 0, 0, 0, 0, time.UTC)

	if _, err := scraper.GetEventsForRange(academicData, start, end); err != nil {
		t.Fatalf("GetEventsForRange() error = %v, want nil (partial failure tolerated)", err)
	}
	if got := atomic.LoadInt32(&calls); got != 2 {
		t.Errorf("scrape calls = %d, want 2 (first fails, second succeeds)", got)
	}
}
