package sync

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/felipeadeildo/insper-sync/internal/google"
	"github.com/felipeadeildo/insper-sync/internal/insper"
	"github.com/felipeadeildo/insper-sync/internal/store"
	"github.com/felipeadeildo/insper-sync/internal/syncerr"
	"github.com/google/uuid"
	gcal "google.golang.org/api/calendar/v3"
)

// Orchestrator is the C10 component: it drives one end-to-end sync run
// for a user, from portal scrape through calendar reconciliation (spec
// §4.8).
type Orchestrator struct {
	users      *store.UserStore
	configs    *store.SyncConfigurationStore
	sessions   *store.SyncSessionStore
	upstream   *store.UpstreamEventStore
	downstream *store.DownstreamEventStore
	mappings   *store.EventMappingStore
	tokens   *google.TokenManager
	calendar google.CalendarClient

	portalBaseURL    string
	applyConcurrency int
	retryMax         int
	retryDelay       time.Duration

	logger *slog.Logger
}

// NewOrchestrator builds an Orchestrator wiring together every store
// and external client a sync run touches.
func NewOrchestrator(
	users *store.UserStore,
	configs *store.SyncConfigurationStore,
	sessions *store.SyncSessionStore,
	upstream *store.UpstreamEventStore,
	downstream *store.DownstreamEventStore,
	mappings *store.EventMappingStore,
	tokens *google.TokenManager,
	calendar google.CalendarClient,
	portalBaseURL string,
	applyConcurrency int,
	retryMax int,
	retryDelay time.Duration,
	logger *slog.Logger,
) *Orchestrator {
	return &Orchestrator{
		users:            users,
		configs:          configs,
		sessions:         sessions,
		upstream:         upstream,
		downstream:       downstream,
		mappings:         mappings,
		tokens:           tokens,
		calendar:         calendar,
		portalBaseURL:    portalBaseURL,
		applyConcurrency: applyConcurrency,
		retryMax:         retryMax,
		retryDelay:       retryDelay,
		logger:           logger,
	}
}

// defaultDateRange computes the spec §4.8 default window when the
// caller doesn't pin one: the first of the current month through 31
// days past the first of the next month. time.Date normalises a
// month value of 13 into January of the following year, which is how
// the December→January rollover falls out for free.
func defaultDateRange(now time.Time) (time.Time, time.Time) {
	loc := now.Location()
	start := time.Date(now.Year(), now.Month(), 1, 0, 0, 0, 0, loc)
	nextMonth := time.Date(now.Year(), now.Month()+1, 1, 0, 0, 0, 0, loc)
	end := nextMonth.AddDate(0, 0, 31)
	return start, end
}

// SyncUserCalendarWithRetry runs SyncUserCalendar, retrying up to
// retryMax additional times with a fixed retryDelay between attempts
// when the failure is classified retryable (spec §4.8's retry policy,
// grounded on the original Celery task's
// "bind=True, max_retries=3" / "self.retry(countdown=60, exc=e)"
// pattern). A non-retryable failure, or exhausting the retry budget,
// returns the last error.
func (o *Orchestrator) SyncUserCalendarWithRetry(ctx context.Context, userID uuid.UUID, start, end *time.Time) (*store.SyncSession, error) {
	var lastErr error
	for attempt := 0; attempt <= o.retryMax; attempt++ {
		if attempt > 0 {
			select {
			case <-time.After(o.retryDelay):
			case <-ctx.Done():
				return nil, ctx.Err()
			}
			o.logger.Warn("orchestrator: retrying sync", "user_id", userID, "attempt", attempt)
		}

		session, err := o.SyncUserCalendar(ctx, userID, start, end)
		if err == nil {
			return session, nil
		}
		lastErr = err
		if !syncerr.Retryable(err) {
			return session, err
		}
	}
	return nil, lastErr
}

// SyncUserCalendar runs one full reconciliation pass for userID over
// [start, end) (or the default range, if both are nil): scrape the
// portal, persist upstream events, resolve the downstream sync
// calendar, reconcile, and close out the SyncSession with its final
// counters (spec §4.8).
func (o *Orchestrator) SyncUserCalendar(ctx context.Context, userID uuid.UUID, start, end *time.Time) (*store.SyncSession, error) {
	user, err := o.users.GetByID(ctx, userID)
	if err != nil {
		return nil, fmt.Errorf("load user: %w", err)
	}
	if !user.CanSync() {
		return nil, fmt.Errorf("user %s is not eligible to sync", userID)
	}

	rangeStart, rangeEnd := defaultDateRange(time.Now())
	if start != nil {
		rangeStart = *start
	}
	if end != nil {
		rangeEnd = *end
	}

	cfg, err := o.configs.GetOrCreate(ctx, userID)
	if err != nil {
		return nil, fmt.Errorf("load sync configuration: %w", err)
	}
	if !cfg.SyncEnabled {
		o.logger.Info("orchestrator: sync disabled for user, skipping", "user_id", userID)
		return nil, nil
	}

	session, err := o.sessions.Create(ctx, userID, rangeStart, rangeEnd)
	if err != nil {
		return nil, fmt.Errorf("open sync session: %w", err)
	}

	counters, upstreamFound, downstreamFound, syncErr := o.runSession(ctx, user, cfg, session.ID, rangeStart, rangeEnd)
	if syncErr != nil {
		if failErr := o.sessions.Fail(ctx, session.ID, syncErr.Error(), nil); failErr != nil {
			o.logger.Error("orchestrator: failed to mark session failed", "session_id", session.ID, "error", failErr)
		}
		return session, syncErr
	}

	if err := o.sessions.Complete(ctx, session.ID, upstreamFound, downstreamFound, counters.Created, counters.Updated, counters.Deleted, counters.Failed); err != nil {
		return session, fmt.Errorf("complete sync session: %w", err)
	}
	if err := o.users.UpdateLastSync(ctx, userID, time.Now().UTC()); err != nil {
		o.logger.Error("orchestrator: failed to stamp last_sync", "user_id", userID, "error", err)
	}

	return session, nil
}

// runSession performs the scrape, persist, calendar-resolve, and
// reconcile steps of a single run, returning the reconciler's
// counters and the upstream/downstream event counts found.
func (o *Orchestrator) runSession(
	ctx context.Context,
	user *store.User,
	cfg *store.SyncConfiguration,
	sessionID uuid.UUID,
	rangeStart, rangeEnd time.Time,
) (Counters, int, int, error) {
	events, err := o.scrapeUpstreamEvents(ctx, user, rangeStart, rangeEnd)
	if err != nil {
		return Counters{}, 0, 0, fmt.Errorf("scrape upstream events: %w", err)
	}

	scrapedAt := time.Now().UTC()
	upstreamEvents := make([]*store.UpstreamEvent, 0, len(events))
	for _, ev := range events {
		row := &store.UpstreamEvent{
			UserID:          user.ID,
			UpstreamEventID: ev.UpstreamEventID,
			Title:           ev.Title,
			Description:     ev.Description,
			StartAt:         time.Unix(ev.StartAt, 0).UTC(),
			EndAt:           time.Unix(ev.EndAt, 0).UTC(),
			AllDay:          ev.AllDay,
			DisciplineCode:  ev.DisciplineCode,
			Instructor:      ev.Instructor,
			ClassGroup:      ev.ClassGroup,
			Location:        ev.Location,
			EventKind:       ev.EventKind,
			SourceTimezone:  ev.Timezone,
			RawPayload:      ev.RawPayload,
			LastSeenAt:      scrapedAt,
		}
		row.ContentHash = upstreamContentHash(row)

		stored, err := o.upstream.Upsert(ctx, row)
		if err != nil {
			return Counters{}, 0, 0, fmt.Errorf("persist upstream event %s: %w", ev.UpstreamEventID, err)
		}
		upstreamEvents = append(upstreamEvents, stored)
	}
	if err := o.upstream.MarkInactiveNotSeenSince(ctx, user.ID, scrapedAt); err != nil {
		o.logger.Error("orchestrator: failed to expire stale upstream events", "user_id", user.ID, "error", err)
	}

	accessToken, err := o.tokens.GetValidAccessToken(ctx, user)
	if err != nil {
		return Counters{}, 0, 0, fmt.Errorf("resolve downstream access token: %w", err)
	}

	calendarID, err := o.calendar.FindOrCreateSyncCalendar(ctx, accessToken, cfg.DisplayName)
	if err != nil {
		return Counters{}, 0, 0, fmt.Errorf("resolve sync calendar: %w", err)
	}
	if calendarID != user.DownstreamCalendarID {
		if err := o.users.UpdateDownstreamCalendarID(ctx, user.ID, calendarID); err != nil {
			o.logger.Error("orchestrator: failed to persist resolved calendar id", "user_id", user.ID, "error", err)
		}
	}

	rawDownstream, err := o.calendar.ListEvents(ctx, accessToken, calendarID, rangeStart, rangeEnd)
	if err != nil {
		return Counters{}, 0, 0, fmt.Errorf("list downstream events: %w", err)
	}

	var markered []*gcal.Event
	for _, ge := range rawDownstream {
		if _, ok := markerEventID(ge); ok {
			markered = append(markered, ge)
			stored := downstreamEventFromGoogle(ge, user.ID, calendarID)
			if _, err := o.downstream.Upsert(ctx, stored); err != nil {
				o.logger.Error("orchestrator: failed to persist downstream event", "downstream_event_id", ge.Id, "error", err)
			}
		}
	}

	reconciler := NewReconciler(o.calendar, o.upstream, o.downstream, o.mappings, o.applyConcurrency, o.logger)
	counters := reconciler.Run(ctx, user, cfg, sessionID, accessToken, calendarID, upstreamEvents, markered)

	return counters, len(upstreamEvents), len(markered), nil
}

// scrapeUpstreamEvents performs the C3→C5 chain: authenticate a fresh
// Session using the already-RSA-encrypted stored password, resolve the
// caller's academic profile, and scrape the event calendar for
// [rangeStart, rangeEnd).
//
// user.PortalPasswordCT is the RSA ciphertext produced by the
// interactive setup flow's PasswordEncryptor, not a locally-encrypted
// secret — it is exactly what the portal's login form expects, so it
// is passed straight through with encryptPassword=false (spec §9's
// "encrypted-password storage" contract). No PublicKeyCache or
// PasswordEncryptor is needed here; those only run during interactive
// setup, where a plaintext password briefly exists.
func (o *Orchestrator) scrapeUpstreamEvents(ctx context.Context, user *store.User, rangeStart, rangeEnd time.Time) ([]insper.Event, error) {
	session, err := insper.NewSession(o.portalBaseURL, nil)
	if err != nil {
		return nil, fmt.Errorf("build portal session: %w", err)
	}

	ok, err := session.Login(user.PortalUsername, user.PortalPasswordCT, false)
	if err != nil {
		return nil, err
	}
	if !ok {
		return nil, syncerr.NewAuthError("portal login", fmt.Errorf("login rejected for user %s", user.ID), true)
	}

	profile, err := insper.NewProfileFetcher(session).GetAcademicData(session.UserData.ID)
	if err != nil {
		return nil, err
	}
	if profile == nil {
		return nil, syncerr.NewAuthError("fetch academic profile", fmt.Errorf("no academic record for user %s", user.ID), false)
	}

	scraper := insper.NewScraper(session, o.logger)
	return scraper.GetEventsForRange(*profile, rangeStart, rangeEnd)
}
