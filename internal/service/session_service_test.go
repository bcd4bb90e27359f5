package service

import (
	"context"
	"fmt"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"go.uber.org/zap"

	"github.com/ImArvindRaj/virtual-event-platform/internal/errs"
	"github.com/ImArvindRaj/virtual-event-platform/internal/model"
)

const (
	hostID  = "aaaaaaaa-0000-0000-0000-000000000001"
	guestID = "bbbbbbbb-0000-0000-0000-000000000002"
)

func testGathering() *model.Gathering {
	return &model.Gathering{
		ID:          "gath-1",
		HostID:      hostID,
		Title:       "Launch Call",
		ScheduledAt: time.Date(2026, 3, 1, 18, 0, 0, 0, time.UTC),
		Status:      string(model.GatheringStatusScheduled),
		Channel:     "event_gath-1_123",
	}
}

func newTestService(gatherings *fakeGatheringStore, sessions *fakeSessionStore) (*SessionService, *fakeNotifier) {
	notifier := &fakeNotifier{}
	svc := NewSessionService(gatherings, sessions, &fakeIssuer{}, notifier, nil, zap.NewNop())
	svc.clock = func() time.Time { return time.Date(2026, 3, 1, 18, 5, 0, 0, time.UTC) }
	n := 0
	svc.newID = func() string { n++; return fmt.Sprintf("sess-%d", n) }
	return svc, notifier
}

func TestStatusBeforeAndAfterStart(t *testing.T) {
	gatherings := newFakeGatheringStore(testGathering())
	sessions := newFakeSessionStore()
	svc, _ := newTestService(gatherings, sessions)
	ctx := context.Background()

	st, err := svc.Status(ctx, "gath-1", guestID)
	if err != nil {
		t.Fatalf("status: %v", err)
	}
	if st.SessionStarted || st.IsHost {
		t.Fatalf("expected no session and not host, got %+v", st)
	}

	started, err := svc.Start(ctx, "gath-1", hostID)
	if err != nil {
		t.Fatalf("start: %v", err)
	}

	st, err = svc.Status(ctx, "gath-1", guestID)
	if err != nil {
		t.Fatalf("status after start: %v", err)
	}
	if !st.SessionStarted {
		t.Fatal("expected session_started=true")
	}
	if st.SessionID != started.SessionID {
		t.Fatalf("expected session id %q, got %q", started.SessionID, st.SessionID)
	}
	if st.IsHost {
		t.Fatal("guest must not be host")
	}
	if st.GatheringStatus != model.GatheringStatusLive {
		t.Fatalf("expected gathering live, got %q", st.GatheringStatus)
	}

	hostView, err := svc.Status(ctx, "gath-1", hostID)
	if err != nil {
		t.Fatalf("status host: %v", err)
	}
	if !hostView.IsHost {
		t.Fatal("host must see is_host=true")
	}
}

func TestStatusUnknownGathering(t *testing.T) {
	svc, _ := newTestService(newFakeGatheringStore(), newFakeSessionStore())
	_, err := svc.Status(context.Background(), "missing", guestID)
	if errs.KindOf(err) != errs.KindNotFound {
		t.Fatalf("expected not_found, got %v", err)
	}
}

func TestStartTwiceConflicts(t *testing.T) {
	gatherings := newFakeGatheringStore(testGathering())
	sessions := newFakeSessionStore()
	svc, notifier := newTestService(gatherings, sessions)
	ctx := context.Background()

	if _, err := svc.Start(ctx, "gath-1", hostID); err != nil {
		t.Fatalf("first start: %v", err)
	}
	_, err := svc.Start(ctx, "gath-1", hostID)
	if errs.KindOf(err) != errs.KindConflict {
		t.Fatalf("expected conflict, got %v", err)
	}
	if len(notifier.started) != 1 {
		t.Fatalf("expected one started event, got %d", len(notifier.started))
	}
}

func TestStartByNonHostForbidden(t *testing.T) {
	gatherings := newFakeGatheringStore(testGathering())
	sessions := newFakeSessionStore()
	svc, _ := newTestService(gatherings, sessions)
	ctx := context.Background()

	_, err := svc.Start(ctx, "gath-1", guestID)
	if errs.KindOf(err) != errs.KindForbidden {
		t.Fatalf("expected forbidden, got %v", err)
	}
	st, err := svc.Status(ctx, "gath-1", guestID)
	if err != nil {
		t.Fatalf("status: %v", err)
	}
	if st.SessionStarted {
		t.Fatal("forbidden start must not create a session")
	}
}

func TestConcurrentStartsCreateOneSession(t *testing.T) {
	gatherings := newFakeGatheringStore(testGathering())
	sessions := newFakeSessionStore()
	svc, _ := newTestService(gatherings, sessions)
	var seq atomic.Int64
	svc.newID = func() string { return fmt.Sprintf("sess-%d", seq.Add(1)) }
	ctx := context.Background()

	const n = 16
	var wg sync.WaitGroup
	results := make([]error, n)
	for i := 0; i < n; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			_, results[i] = svc.Start(ctx, "gath-1", hostID)
		}(i)
	}
	wg.Wait()

	var ok, conflicts int
	for _, err := range results {
		switch {
		case err == nil:
			ok++
		case errs.KindOf(err) == errs.KindConflict:
			conflicts++
		default:
			t.Fatalf("unexpected error: %v", err)
		}
	}
	if ok != 1 || conflicts != n-1 {
		t.Fatalf("expected exactly one success, got %d successes and %d conflicts", ok, conflicts)
	}
}

func TestTokenRoleDerivation(t *testing.T) {
	gatherings := newFakeGatheringStore(testGathering())
	sessions := newFakeSessionStore()
	svc, _ := newTestService(gatherings, sessions)
	ctx := context.Background()

	hostTok, err := svc.Token(ctx, "gath-1", hostID)
	if err != nil {
		t.Fatalf("host token: %v", err)
	}
	if hostTok.Role != model.RolePublisher {
		t.Fatalf("host must get publisher, got %q", hostTok.Role)
	}

	if _, err := svc.Start(ctx, "gath-1", hostID); err != nil {
		t.Fatalf("start: %v", err)
	}

	guestTok, err := svc.Token(ctx, "gath-1", guestID)
	if err != nil {
		t.Fatalf("guest token: %v", err)
	}
	if guestTok.Role != model.RoleSubscriber {
		t.Fatalf("guest must get subscriber, got %q", guestTok.Role)
	}
	if guestTok.Channel != hostTok.Channel {
		t.Fatalf("both tokens must reference channel %q, got %q", hostTok.Channel, guestTok.Channel)
	}
	if guestTok.SessionID == "" {
		t.Fatal("token after start must report the active session id")
	}
	if guestTok.UID != guestID {
		t.Fatalf("uid must echo the caller, got %q", guestTok.UID)
	}
}

func TestTokenBeforeStartAllowed(t *testing.T) {
	gatherings := newFakeGatheringStore(testGathering())
	svc, _ := newTestService(gatherings, newFakeSessionStore())

	tok, err := svc.Token(context.Background(), "gath-1", guestID)
	if err != nil {
		t.Fatalf("token: %v", err)
	}
	if tok.SessionID != "" {
		t.Fatalf("no session yet, session id must be empty, got %q", tok.SessionID)
	}
}

func TestTokenMissingSigningMaterial(t *testing.T) {
	gatherings := newFakeGatheringStore(testGathering())
	notifier := &fakeNotifier{}
	svc := NewSessionService(gatherings, newFakeSessionStore(),
		&fakeIssuer{err: errs.Config("RTC_APP_ID is not configured")}, notifier, nil, zap.NewNop())

	_, err := svc.Token(context.Background(), "gath-1", hostID)
	if errs.KindOf(err) != errs.KindConfig {
		t.Fatalf("expected config_error, got %v", err)
	}
}

func TestEndLifecycle(t *testing.T) {
	gatherings := newFakeGatheringStore(testGathering())
	sessions := newFakeSessionStore()
	svc, notifier := newTestService(gatherings, sessions)
	ctx := context.Background()

	started, err := svc.Start(ctx, "gath-1", hostID)
	if err != nil {
		t.Fatalf("start: %v", err)
	}

	ended, err := svc.End(ctx, started.SessionID, hostID)
	if err != nil {
		t.Fatalf("end: %v", err)
	}
	if ended.SessionID != started.SessionID || ended.EndedAt.IsZero() {
		t.Fatalf("bad end response: %+v", ended)
	}

	st, err := svc.Status(ctx, "gath-1", guestID)
	if err != nil {
		t.Fatalf("status: %v", err)
	}
	if st.SessionStarted {
		t.Fatal("ended session must not count as started")
	}
	if st.GatheringStatus != model.GatheringStatusEnded {
		t.Fatalf("expected gathering ended, got %q", st.GatheringStatus)
	}

	// Ending twice is a hard conflict, never a silent second success.
	_, err = svc.End(ctx, started.SessionID, hostID)
	if errs.KindOf(err) != errs.KindConflict {
		t.Fatalf("expected conflict on double end, got %v", err)
	}
	if len(notifier.ended) != 1 {
		t.Fatalf("expected one ended event, got %d", len(notifier.ended))
	}

	// A new start creates a fresh session for the same gathering.
	again, err := svc.Start(ctx, "gath-1", hostID)
	if err != nil {
		t.Fatalf("restart: %v", err)
	}
	if again.SessionID == started.SessionID {
		t.Fatal("restart must create a new session record")
	}
}

func TestEndAuthorization(t *testing.T) {
	gatherings := newFakeGatheringStore(testGathering())
	sessions := newFakeSessionStore()
	svc, _ := newTestService(gatherings, sessions)
	ctx := context.Background()

	started, err := svc.Start(ctx, "gath-1", hostID)
	if err != nil {
		t.Fatalf("start: %v", err)
	}
	_, err = svc.End(ctx, started.SessionID, guestID)
	if errs.KindOf(err) != errs.KindForbidden {
		t.Fatalf("expected forbidden, got %v", err)
	}
	_, err = svc.End(ctx, "missing", hostID)
	if errs.KindOf(err) != errs.KindNotFound {
		t.Fatalf("expected not_found, got %v", err)
	}
}

func TestParticipantsBookkeeping(t *testing.T) {
	gatherings := newFakeGatheringStore(testGathering())
	sessions := newFakeSessionStore()
	svc, _ := newTestService(gatherings, sessions)
	ctx := context.Background()

	started, err := svc.Start(ctx, "gath-1", hostID)
	if err != nil {
		t.Fatalf("start: %v", err)
	}
	if err := svc.Join(ctx, started.SessionID, guestID); err != nil {
		t.Fatalf("join: %v", err)
	}
	// Repeat joins are no-ops.
	if err := svc.Join(ctx, started.SessionID, guestID); err != nil {
		t.Fatalf("repeat join: %v", err)
	}

	resp, err := svc.Participants(ctx, started.SessionID)
	if err != nil {
		t.Fatalf("participants: %v", err)
	}
	if len(resp.Participants) != 2 {
		t.Fatalf("expected 2 participants, got %d", len(resp.Participants))
	}
	if resp.Participants[0].UserID != hostID {
		t.Fatalf("host must be first participant, got %q", resp.Participants[0].UserID)
	}

	if _, err := svc.End(ctx, started.SessionID, hostID); err != nil {
		t.Fatalf("end: %v", err)
	}
	err = svc.Join(ctx, started.SessionID, guestID)
	if errs.KindOf(err) != errs.KindConflict {
		t.Fatalf("join after end must conflict, got %v", err)
	}
}

// memoryCache is an in-process StatusCache for exercising the cache path.
type memoryCache struct {
	mu sync.Mutex
	m  map[string]*CachedStatus
}

func (c *memoryCache) Get(_ context.Context, id string) (*CachedStatus, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()
	st, ok := c.m[id]
	return st, ok
}

func (c *memoryCache) Set(_ context.Context, id string, st *CachedStatus) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.m[id] = st
}

func (c *memoryCache) Invalidate(_ context.Context, id string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	delete(c.m, id)
}

func TestStatusCacheInvalidatedOnStart(t *testing.T) {
	gatherings := newFakeGatheringStore(testGathering())
	sessions := newFakeSessionStore()
	cache := &memoryCache{m: make(map[string]*CachedStatus)}
	svc := NewSessionService(gatherings, sessions, &fakeIssuer{}, nil, cache, zap.NewNop())
	svc.newID = func() string { return "sess-cache" }
	ctx := context.Background()

	if _, err := svc.Status(ctx, "gath-1", guestID); err != nil {
		t.Fatalf("status: %v", err)
	}
	if _, ok := cache.Get(ctx, "gath-1"); !ok {
		t.Fatal("status must populate the cache")
	}

	if _, err := svc.Start(ctx, "gath-1", hostID); err != nil {
		t.Fatalf("start: %v", err)
	}
	// Start invalidates, so the next poll sees the live session immediately.
	st, err := svc.Status(ctx, "gath-1", guestID)
	if err != nil {
		t.Fatalf("status after start: %v", err)
	}
	if !st.SessionStarted {
		t.Fatal("stale cache served after start")
	}

	// isHost is always computed per caller, even on a cache hit.
	hostView, err := svc.Status(ctx, "gath-1", hostID)
	if err != nil {
		t.Fatalf("host status: %v", err)
	}
	if !hostView.IsHost {
		t.Fatal("cache hit must not lose is_host")
	}
}
