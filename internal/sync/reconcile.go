package sync

import (
	"context"
	"log/slog"

	"github.com/felipeadeildo/insper-sync/internal/google"
	"github.com/felipeadeildo/insper-sync/internal/store"
	"github.com/google/uuid"
	gcal "google.golang.org/api/calendar/v3"
)

// Counters tallies what a reconciliation run did, persisted onto the
// owning SyncSession (spec §4.7's returned counter set).
type Counters struct {
	Created int
	Updated int
	Deleted int
	Failed  int
}

// Add folds other into c, used to accumulate a pool's per-job results.
func (c *Counters) Add(other Counters) {
	c.Created += other.Created
	c.Updated += other.Updated
	c.Deleted += other.Deleted
	c.Failed += other.Failed
}

// Reconciler is the C9 component: it diffs a user's upstream events
// against their downstream calendar's sync-owned events and applies
// the minimal set of create/update/delete calls needed to converge
// them (spec §4.7).
type Reconciler struct {
	calendar   google.CalendarClient
	upstream   *store.UpstreamEventStore
	downstream *store.DownstreamEventStore
	mappings   *store.EventMappingStore
	pool       *applyWorkerPool
	logger     *slog.Logger
}

// NewReconciler builds a Reconciler with a bounded concurrency of
// applyConcurrency for create/update/delete calls against the
// downstream calendar.
func NewReconciler(
	calendar google.CalendarClient,
	upstream *store.UpstreamEventStore,
	downstream *store.DownstreamEventStore,
	mappings *store.EventMappingStore,
	applyConcurrency int,
	logger *slog.Logger,
) *Reconciler {
	return &Reconciler{
		calendar:   calendar,
		upstream:   upstream,
		downstream: downstream,
		mappings:   mappings,
		pool:       newApplyWorkerPool(applyConcurrency, logger),
		logger:     logger,
	}
}

// Run executes the five-step algorithm of spec §4.7:
//  1. Build the marker index G from the already-fetched downstream
//     events (downstreamEvents must already be filtered to the
//     sync_source="insper" marker — callers get this by passing what
//     C7's ListEvents returned, filtered with markerEventID).
//  2. Filter upstreamEvents by the user's SyncConfiguration policy.
//  3. For each kept upstream event: create if absent from G, update
//     if present and changed, no-op otherwise. Every event's failure
//     is isolated — it increments Failed and the loop continues.
//  4. Orphan sweep: delete any downstream event whose marker id is not
//     among ALL upstream ids (not just the policy-kept ones, so an
//     excluded-but-still-upstream event's downstream mirror survives).
//  5. Return the accumulated Counters.
func (r *Reconciler) Run(
	ctx context.Context,
	user *store.User,
	cfg *store.SyncConfiguration,
	sessionID uuid.UUID,
	accessToken, calendarID string,
	upstreamEvents []*store.UpstreamEvent,
	downstreamEvents []*gcal.Event,
) Counters {
	index := make(map[string]*gcal.Event, len(downstreamEvents))
	for _, d := range downstreamEvents {
		if id, ok := markerEventID(d); ok {
			index[id] = d
		}
	}

	allUpstreamIDs := make(map[string]struct{}, len(upstreamEvents))
	for _, e := range upstreamEvents {
		allUpstreamIDs[e.UpstreamEventID] = struct{}{}
	}

	var kept []*store.UpstreamEvent
	for _, e := range upstreamEvents {
		if cfg.ShouldSyncEventKind(e.EventKind) && cfg.ShouldSyncDiscipline(e.DisciplineCode) {
			kept = append(kept, e)
		}
	}

	var total Counters

	applyJobs := make([]applyJob, len(kept))
	for i, e := range kept {
		e := e
		existing := index[e.UpstreamEventID]
		applyJobs[i] = applyJob{fn: func(ctx context.Context) applyResult {
			return r.applyOne(ctx, user, cfg, sessionID, accessToken, calendarID, e, existing)
		}}
	}
	for _, res := range r.pool.run(ctx, applyJobs) {
		total.Add(Counters{
			Created: boolToInt(res.created),
			Updated: boolToInt(res.updated),
			Failed:  boolToInt(res.failed),
		})
	}

	sweepJobs := make([]applyJob, 0, len(downstreamEvents))
	for _, d := range downstreamEvents {
		id, ok := markerEventID(d)
		if !ok {
			continue
		}
		if _, stillUpstream := allUpstreamIDs[id]; stillUpstream {
			continue
		}
		d := d
		sweepJobs = append(sweepJobs, applyJob{fn: func(ctx context.Context) applyResult {
			return r.deleteOrphan(ctx, user, accessToken, calendarID, d)
		}})
	}
	for _, res := range r.pool.run(ctx, sweepJobs) {
		total.Add(Counters{Deleted: boolToInt(res.deleted), Failed: boolToInt(res.failed)})
	}

	return total
}

// applyOne creates or updates a single upstream event downstream,
// recording an EventMapping row regardless of outcome so a failure is
// visible without aborting the rest of the run (spec §4.7 step 3's
// per-event isolation).
func (r *Reconciler) applyOne(
	ctx context.Context,
	user *store.User,
	cfg *store.SyncConfiguration,
	sessionID uuid.UUID,
	accessToken, calendarID string,
	e *store.UpstreamEvent,
	existing *gcal.Event,
) applyResult {
	desired := buildDesiredEvent(e, cfg)

	if existing == nil {
		created, err := r.calendar.CreateEvent(ctx, accessToken, calendarID, desired)
		if err != nil {
			r.logger.Error("reconcile: create failed", "upstream_event_id", e.UpstreamEventID, "error", err)
			r.recordMapping(ctx, sessionID, e.ID, nil, store.MappingFailed, err.Error())
			return applyResult{failed: true}
		}

		stored := downstreamEventFromGoogle(created, user.ID, calendarID)
		stored, err = r.downstream.Upsert(ctx, stored)
		if err != nil {
			r.logger.Error("reconcile: persist created event failed", "upstream_event_id", e.UpstreamEventID, "error", err)
			r.recordMapping(ctx, sessionID, e.ID, nil, store.MappingFailed, err.Error())
			return applyResult{failed: true}
		}

		r.recordMapping(ctx, sessionID, e.ID, &stored.ID, store.MappingSynced, "")
		return applyResult{created: true}
	}

	if !eventChanged(desired, existing) {
		return applyResult{}
	}

	updated, err := r.calendar.UpdateEvent(ctx, accessToken, calendarID, existing.Id, desired)
	if err != nil {
		r.logger.Error("reconcile: update failed", "upstream_event_id", e.UpstreamEventID, "error", err)
		r.recordMapping(ctx, sessionID, e.ID, nil, store.MappingFailed, err.Error())
		return applyResult{failed: true}
	}

	stored := downstreamEventFromGoogle(updated, user.ID, calendarID)
	stored, err = r.downstream.Upsert(ctx, stored)
	if err != nil {
		r.logger.Error("reconcile: persist updated event failed", "upstream_event_id", e.UpstreamEventID, "error", err)
		r.recordMapping(ctx, sessionID, e.ID, nil, store.MappingFailed, err.Error())
		return applyResult{failed: true}
	}

	r.recordMapping(ctx, sessionID, e.ID, &stored.ID, store.MappingSynced, "")
	return applyResult{updated: true}
}

// deleteOrphan removes a downstream event whose upstream counterpart
// has vanished. is_active is only flipped on a confirmed delete (no
// error, i.e. HTTP 204) — any other outcome is logged and left alone
// so the next run retries it (spec §4.7 step 4).
func (r *Reconciler) deleteOrphan(ctx context.Context, user *store.User, accessToken, calendarID string, d *gcal.Event) applyResult {
	if err := r.calendar.DeleteEvent(ctx, accessToken, calendarID, d.Id); err != nil {
		r.logger.Error("reconcile: orphan delete failed", "downstream_event_id", d.Id, "error", err)
		return applyResult{failed: true}
	}
	if err := r.downstream.MarkInactiveByDownstreamID(ctx, user.ID, d.Id); err != nil {
		r.logger.Error("reconcile: failed to mark orphan inactive", "downstream_event_id", d.Id, "error", err)
		return applyResult{failed: true}
	}
	return applyResult{deleted: true}
}

// recordMapping upserts the EventMapping row tying an upstream event
// to its (possibly nil, on failure) downstream counterpart within
// sessionID. Mapping write failures are logged, not propagated: the
// calendar-side mutation already happened and must not be undone by a
// bookkeeping error.
func (r *Reconciler) recordMapping(ctx context.Context, sessionID, upstreamID uuid.UUID, downstreamID *uuid.UUID, status store.MappingStatus, errMsg string) {
	_, err := r.mappings.Upsert(ctx, &store.EventMapping{
		SyncSessionID:     sessionID,
		UpstreamEventID:   upstreamID,
		DownstreamEventID: downstreamID,
		Status:            status,
		ErrorMessage:      errMsg,
	})
	if err != nil {
		r.logger.Error("reconcile: failed to record event mapping", "upstream_event_id", upstreamID, "error", err)
	}
}

// eventChanged reports whether desired differs from existing in any
// field the reconciler owns. This field-by-field comparison, not the
// advisory content hash, is the authoritative change test (spec §4.7:
// "the hash is purely advisory").
func eventChanged(desired, existing *gcal.Event) bool {
	if desired.Summary != existing.Summary {
		return true
	}
	if desired.Description != existing.Description {
		return true
	}
	if desired.Location != existing.Location {
		return true
	}
	if !eventDateTimeEqual(desired.Start, existing.Start) {
		return true
	}
	if !eventDateTimeEqual(desired.End, existing.End) {
		return true
	}
	return false
}

func eventDateTimeEqual(a, b *gcal.EventDateTime) bool {
	if a == nil || b == nil {
		return a == b
	}
	return a.DateTime == b.DateTime && a.Date == b.Date
}

func boolToInt(b bool) int {
	if b {
		return 1
	}
	return 0
}
