package service

import (
	"context"
	"sync"
	"time"

	"github.com/ImArvindRaj/virtual-event-platform/internal/model"
	"github.com/ImArvindRaj/virtual-event-platform/internal/storage"
)

// fakeGatheringStore is an in-memory GatheringStore.
type fakeGatheringStore struct {
	mu         sync.Mutex
	gatherings map[string]*model.Gathering
	attendees  map[string]map[string]time.Time
}

func newFakeGatheringStore(gs ...*model.Gathering) *fakeGatheringStore {
	s := &fakeGatheringStore{
		gatherings: make(map[string]*model.Gathering),
		attendees:  make(map[string]map[string]time.Time),
	}
	for _, g := range gs {
		cp := *g
		s.gatherings[g.ID] = &cp
	}
	return s
}

func (s *fakeGatheringStore) Create(_ context.Context, g *model.Gathering) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	cp := *g
	s.gatherings[g.ID] = &cp
	return nil
}

func (s *fakeGatheringStore) Get(_ context.Context, id string) (*model.Gathering, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	g, ok := s.gatherings[id]
	if !ok {
		return nil, storage.ErrNotFound
	}
	cp := *g
	return &cp, nil
}

func (s *fakeGatheringStore) List(_ context.Context) ([]model.Gathering, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]model.Gathering, 0, len(s.gatherings))
	for _, g := range s.gatherings {
		out = append(out, *g)
	}
	return out, nil
}

func (s *fakeGatheringStore) SetStatus(_ context.Context, id string, status model.GatheringStatus) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	g, ok := s.gatherings[id]
	if !ok {
		return storage.ErrNotFound
	}
	g.Status = string(status)
	return nil
}

func (s *fakeGatheringStore) AddAttendee(_ context.Context, gatheringID, userID string, at time.Time) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.attendees[gatheringID] == nil {
		s.attendees[gatheringID] = make(map[string]time.Time)
	}
	if _, ok := s.attendees[gatheringID][userID]; ok {
		return storage.ErrDuplicate
	}
	s.attendees[gatheringID][userID] = at
	return nil
}

func (s *fakeGatheringStore) HasAttendee(_ context.Context, gatheringID, userID string) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	_, ok := s.attendees[gatheringID][userID]
	return ok, nil
}

func (s *fakeGatheringStore) CountAttendees(_ context.Context, gatheringID string) (int, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.attendees[gatheringID]), nil
}

// fakeSessionStore is an in-memory SessionStore. CreateActive checks for an
// unended session and inserts under one lock, mimicking the partial unique
// index's atomicity.
type fakeSessionStore struct {
	mu           sync.Mutex
	sessions     map[string]*model.LiveSession
	participants map[string][]model.SessionParticipant
}

func newFakeSessionStore() *fakeSessionStore {
	return &fakeSessionStore{
		sessions:     make(map[string]*model.LiveSession),
		participants: make(map[string][]model.SessionParticipant),
	}
}

func (s *fakeSessionStore) CreateActive(_ context.Context, sess *model.LiveSession) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, existing := range s.sessions {
		if existing.GatheringID == sess.GatheringID && existing.EndedAt == nil {
			return storage.ErrDuplicate
		}
	}
	cp := *sess
	s.sessions[sess.ID] = &cp
	return nil
}

func (s *fakeSessionStore) Get(_ context.Context, id string) (*model.LiveSession, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	sess, ok := s.sessions[id]
	if !ok {
		return nil, storage.ErrNotFound
	}
	cp := *sess
	return &cp, nil
}

func (s *fakeSessionStore) FindActiveByGathering(_ context.Context, gatheringID string) (*model.LiveSession, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, sess := range s.sessions {
		if sess.GatheringID == gatheringID && sess.EndedAt == nil {
			cp := *sess
			return &cp, nil
		}
	}
	return nil, storage.ErrNotFound
}

func (s *fakeSessionStore) End(_ context.Context, id string, at time.Time) (int64, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	sess, ok := s.sessions[id]
	if !ok || sess.EndedAt != nil {
		return 0, nil
	}
	t := at
	sess.EndedAt = &t
	return 1, nil
}

func (s *fakeSessionStore) AddParticipant(_ context.Context, sessionID, userID string, at time.Time) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, p := range s.participants[sessionID] {
		if p.UserID == userID {
			return nil
		}
	}
	s.participants[sessionID] = append(s.participants[sessionID], model.SessionParticipant{
		SessionID: sessionID,
		UserID:    userID,
		JoinedAt:  at,
	})
	return nil
}

func (s *fakeSessionStore) Participants(_ context.Context, sessionID string) ([]model.SessionParticipant, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]model.SessionParticipant, len(s.participants[sessionID]))
	copy(out, s.participants[sessionID])
	return out, nil
}

// fakeIssuer mints predictable credentials.
type fakeIssuer struct {
	err error
}

func (f *fakeIssuer) Issue(channel, uid string, role model.Role) (string, error) {
	if f.err != nil {
		return "", f.err
	}
	return "tok:" + channel + ":" + uid + ":" + string(role), nil
}

// fakeNotifier records lifecycle events.
type fakeNotifier struct {
	mu      sync.Mutex
	started []string
	ended   []string
}

func (f *fakeNotifier) SessionStarted(gatheringID, sessionID string) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.started = append(f.started, gatheringID+"/"+sessionID)
}

func (f *fakeNotifier) SessionEnded(gatheringID, sessionID string) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.ended = append(f.ended, gatheringID+"/"+sessionID)
}
