package sync

import (
	"context"
	"io"
	"log/slog"
	"sync/atomic"
	"testing"
)

func discardLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func TestApplyWorkerPool_RunsAllJobs(t *testing.T) {
	pool := newApplyWorkerPool(4, discardLogger())

	var completed int64
	jobs := make([]applyJob, 20)
	for i := range jobs {
		jobs[i] = applyJob{fn: func(ctx context.Context) applyResult {
			atomic.AddInt64(&completed, 1)
			return applyResult{created: true}
		}}
	}

	results := pool.run(context.Background(), jobs)
	if len(results) != 20 {
		t.Fatalf("expected 20 results, got %d", len(results))
	}
	if completed != 20 {
		t.Errorf("expected all 20 jobs to run, got %d", completed)
	}
	for _, r := range results {
		if !r.created {
			t.Error("expected every result to report created=true")
		}
	}
}

func TestApplyWorkerPool_IsolatesPanickingJob(t *testing.T) {
	pool := newApplyWorkerPool(2, discardLogger())

	jobs := []applyJob{
		{fn: func(ctx context.Context) applyResult { panic("boom") }},
		{fn: func(ctx context.Context) applyResult { return applyResult{updated: true} }},
	}

	results := pool.run(context.Background(), jobs)
	if !results[0].failed {
		t.Error("expected the panicking job to report failed=true")
	}
	if !results[1].updated {
		t.Error("expected the second job to complete normally despite the first panicking")
	}
}

func TestApplyWorkerPool_StopsOnContextCancel(t *testing.T) {
	pool := newApplyWorkerPool(1, discardLogger())

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	jobs := make([]applyJob, 5)
	for i := range jobs {
		jobs[i] = applyJob{fn: func(ctx context.Context) applyResult { return applyResult{created: true} }}
	}

	// A cancelled context should return without hanging; some jobs may
	// still have been dispatched before cancellation was observed.
	results := pool.run(ctx, jobs)
	if len(results) != 5 {
		t.Fatalf("expected a result slice sized to the job count, got %d", len(results))
	}
}
