package service

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/ImArvindRaj/virtual-event-platform/internal/errs"
	"github.com/ImArvindRaj/virtual-event-platform/internal/model"
	"github.com/ImArvindRaj/virtual-event-platform/internal/storage"
)

// CredentialIssuer mints media provider credentials.
type CredentialIssuer interface {
	Issue(channel, uid string, role model.Role) (string, error)
}

// SessionNotifier pushes session lifecycle events to waiting-room watchers.
type SessionNotifier interface {
	SessionStarted(gatheringID, sessionID string)
	SessionEnded(gatheringID, sessionID string)
}

// CachedStatus is the caller-independent slice of a status response. isHost is
// computed per caller and never cached.
type CachedStatus struct {
	GatheringStatus model.GatheringStatus `json:"gathering_status"`
	SessionStarted  bool                  `json:"session_started"`
	SessionID       string                `json:"session_id,omitempty"`
}

// StatusCache is an optional short-TTL cache in front of the status query.
type StatusCache interface {
	Get(ctx context.Context, gatheringID string) (*CachedStatus, bool)
	Set(ctx context.Context, gatheringID string, st *CachedStatus)
	Invalidate(ctx context.Context, gatheringID string)
}

// SessionService is the coordinator: it decides whether start/end requests are
// valid, derives the caller's media role and orchestrates the stores and the
// credential issuer.
type SessionService struct {
	gatherings storage.GatheringStore
	sessions   storage.SessionStore
	issuer     CredentialIssuer
	notifier   SessionNotifier
	cache      StatusCache
	log        *zap.Logger
	clock      func() time.Time
	newID      func() string
}

// NewSessionService creates the coordinator. notifier and cache may be nil.
func NewSessionService(
	gatherings storage.GatheringStore,
	sessions storage.SessionStore,
	issuer CredentialIssuer,
	notifier SessionNotifier,
	cache StatusCache,
	log *zap.Logger,
) *SessionService {
	return &SessionService{
		gatherings: gatherings,
		sessions:   sessions,
		issuer:     issuer,
		notifier:   notifier,
		cache:      cache,
		log:        log,
		clock:      time.Now,
		newID:      func() string { return uuid.New().String() },
	}
}

// roleFor derives the media role for a caller. This is the single place role
// is computed; start, token and end all authorize through host identity here.
func roleFor(g *model.Gathering, callerID string) model.Role {
	if g.HostID == callerID {
		return model.RolePublisher
	}
	return model.RoleSubscriber
}

// Status answers the waiting-room poll: gathering lifecycle state, whether an
// unended session exists, and whether the caller is the host. No side effects.
func (s *SessionService) Status(ctx context.Context, gatheringID, callerID string) (*model.SessionStatusResponse, error) {
	if st, ok := s.cacheGet(ctx, gatheringID); ok {
		g, err := s.gatherings.Get(ctx, gatheringID)
		if err != nil {
			return nil, mapGatheringErr(err)
		}
		return &model.SessionStatusResponse{
			GatheringID:     gatheringID,
			GatheringStatus: st.GatheringStatus,
			SessionStarted:  st.SessionStarted,
			SessionID:       st.SessionID,
			IsHost:          g.HostID == callerID,
		}, nil
	}

	g, err := s.gatherings.Get(ctx, gatheringID)
	if err != nil {
		return nil, mapGatheringErr(err)
	}

	resp := &model.SessionStatusResponse{
		GatheringID:     gatheringID,
		GatheringStatus: model.GatheringStatus(g.Status),
		IsHost:          g.HostID == callerID,
	}
	active, err := s.sessions.FindActiveByGathering(ctx, gatheringID)
	if err != nil && !errors.Is(err, storage.ErrNotFound) {
		return nil, err
	}
	if active != nil {
		resp.SessionStarted = true
		resp.SessionID = active.ID
	}
	s.cacheSet(ctx, gatheringID, &CachedStatus{
		GatheringStatus: resp.GatheringStatus,
		SessionStarted:  resp.SessionStarted,
		SessionID:       resp.SessionID,
	})
	return resp, nil
}

// Start creates the live session for a gathering. Only the host may start;
// the duplicate check is the store's atomic conditional insert, so concurrent
// starts cannot create two live sessions.
func (s *SessionService) Start(ctx context.Context, gatheringID, callerID string) (*model.StartSessionResponse, error) {
	g, err := s.gatherings.Get(ctx, gatheringID)
	if err != nil {
		return nil, mapGatheringErr(err)
	}
	if g.HostID != callerID {
		return nil, errs.Forbidden("only the host can start the session")
	}

	now := s.clock()
	sess := &model.LiveSession{
		ID:          s.newID(),
		GatheringID: gatheringID,
		StartedAt:   now,
	}
	if err := s.sessions.CreateActive(ctx, sess); err != nil {
		if errors.Is(err, storage.ErrDuplicate) {
			return nil, errs.Conflict("session already started")
		}
		return nil, err
	}

	// Join bookkeeping and status transition are informational; the session
	// row is already the source of truth.
	if err := s.sessions.AddParticipant(ctx, sess.ID, callerID, now); err != nil {
		s.log.Warn("record host participant failed", zap.String("session_id", sess.ID), zap.Error(err))
	}
	if err := s.gatherings.SetStatus(ctx, gatheringID, model.GatheringStatusLive); err != nil {
		s.log.Warn("set gathering live failed", zap.String("gathering_id", gatheringID), zap.Error(err))
	}
	s.cacheInvalidate(ctx, gatheringID)
	if s.notifier != nil {
		s.notifier.SessionStarted(gatheringID, sess.ID)
	}

	s.log.Info("session started",
		zap.String("gathering_id", gatheringID),
		zap.String("session_id", sess.ID),
		zap.String("host_id", callerID))
	return &model.StartSessionResponse{SessionID: sess.ID}, nil
}

// Token mints a media credential for the caller. There is deliberately no
// "session must be live" precondition: the host fetches a token to become the
// publisher that starts the stream, and a non-host fetching early simply holds
// a subscriber credential it cannot use until the channel exists.
func (s *SessionService) Token(ctx context.Context, gatheringID, callerID string) (*model.TokenResponse, error) {
	g, err := s.gatherings.Get(ctx, gatheringID)
	if err != nil {
		return nil, mapGatheringErr(err)
	}
	role := roleFor(g, callerID)

	token, err := s.issuer.Issue(g.Channel, callerID, role)
	if err != nil {
		return nil, err
	}

	resp := &model.TokenResponse{
		Token:   token,
		Channel: g.Channel,
		UID:     callerID,
		Role:    role,
	}
	// Report the active session id, if any, so the client can correlate a
	// later end call to this concrete instance.
	active, err := s.sessions.FindActiveByGathering(ctx, gatheringID)
	if err != nil && !errors.Is(err, storage.ErrNotFound) {
		return nil, err
	}
	if active != nil {
		resp.SessionID = active.ID
	}
	return resp, nil
}

// End seals a session. Only the host of the owning gathering may end it, and
// ending twice is a conflict, never a silent second success.
func (s *SessionService) End(ctx context.Context, sessionID, callerID string) (*model.EndSessionResponse, error) {
	sess, err := s.sessions.Get(ctx, sessionID)
	if err != nil {
		if errors.Is(err, storage.ErrNotFound) {
			return nil, errs.NotFound("session not found")
		}
		return nil, err
	}
	g, err := s.gatherings.Get(ctx, sess.GatheringID)
	if err != nil {
		return nil, mapGatheringErr(err)
	}
	if g.HostID != callerID {
		return nil, errs.Forbidden("only the host can end the session")
	}
	if sess.EndedAt != nil {
		return nil, errs.Conflict("session already ended")
	}

	now := s.clock()
	rows, err := s.sessions.End(ctx, sessionID, now)
	if err != nil {
		return nil, err
	}
	if rows == 0 {
		// Lost a race with another end call.
		return nil, errs.Conflict("session already ended")
	}
	if err := s.gatherings.SetStatus(ctx, sess.GatheringID, model.GatheringStatusEnded); err != nil {
		s.log.Warn("set gathering ended failed", zap.String("gathering_id", sess.GatheringID), zap.Error(err))
	}
	s.cacheInvalidate(ctx, sess.GatheringID)
	if s.notifier != nil {
		s.notifier.SessionEnded(sess.GatheringID, sessionID)
	}

	s.log.Info("session ended",
		zap.String("gathering_id", sess.GatheringID),
		zap.String("session_id", sessionID))
	return &model.EndSessionResponse{SessionID: sessionID, EndedAt: now}, nil
}

// Join records a participant in an active session. Informational bookkeeping.
func (s *SessionService) Join(ctx context.Context, sessionID, userID string) error {
	sess, err := s.sessions.Get(ctx, sessionID)
	if err != nil {
		if errors.Is(err, storage.ErrNotFound) {
			return errs.NotFound("session not found")
		}
		return err
	}
	if sess.EndedAt != nil {
		return errs.Conflict("session already ended")
	}
	return s.sessions.AddParticipant(ctx, sessionID, userID, s.clock())
}

// Participants returns the session membership in join order.
func (s *SessionService) Participants(ctx context.Context, sessionID string) (*model.SessionParticipantsResponse, error) {
	if _, err := s.sessions.Get(ctx, sessionID); err != nil {
		if errors.Is(err, storage.ErrNotFound) {
			return nil, errs.NotFound("session not found")
		}
		return nil, err
	}
	rows, err := s.sessions.Participants(ctx, sessionID)
	if err != nil {
		return nil, err
	}
	out := make([]model.Participant, 0, len(rows))
	for _, r := range rows {
		out = append(out, model.Participant{UserID: r.UserID, JoinedAt: r.JoinedAt})
	}
	return &model.SessionParticipantsResponse{SessionID: sessionID, Participants: out}, nil
}

func (s *SessionService) cacheGet(ctx context.Context, gatheringID string) (*CachedStatus, bool) {
	if s.cache == nil {
		return nil, false
	}
	return s.cache.Get(ctx, gatheringID)
}

func (s *SessionService) cacheSet(ctx context.Context, gatheringID string, st *CachedStatus) {
	if s.cache != nil {
		s.cache.Set(ctx, gatheringID, st)
	}
}

func (s *SessionService) cacheInvalidate(ctx context.Context, gatheringID string) {
	if s.cache != nil {
		s.cache.Invalidate(ctx, gatheringID)
	}
}

func mapGatheringErr(err error) error {
	if errors.Is(err, storage.ErrNotFound) {
		return errs.NotFound("gathering not found")
	}
	return err
}
