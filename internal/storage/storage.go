// Package storage defines the persistence boundary of the session service.
// Services depend on these interfaces; tests substitute fakes.
package storage

import (
	"context"
	"errors"
	"time"

	"github.com/ImArvindRaj/virtual-event-platform/internal/model"
)

// Sentinel errors the service layer maps to failure kinds.
var (
	ErrNotFound = errors.New("storage: record not found")
	// ErrDuplicate is returned by conditional inserts guarded by a unique
	// index, e.g. a second active session for the same gathering.
	ErrDuplicate = errors.New("storage: duplicate record")
)

// GatheringStore reads and writes gathering records. Most fields belong to
// event management; the session subsystem needs host, channel and status.
type GatheringStore interface {
	Create(ctx context.Context, g *model.Gathering) error
	Get(ctx context.Context, id string) (*model.Gathering, error)
	List(ctx context.Context) ([]model.Gathering, error)
	SetStatus(ctx context.Context, id string, status model.GatheringStatus) error
	AddAttendee(ctx context.Context, gatheringID, userID string, at time.Time) error
	HasAttendee(ctx context.Context, gatheringID, userID string) (bool, error)
	CountAttendees(ctx context.Context, gatheringID string) (int, error)
}

// SessionStore reads and writes live session records.
type SessionStore interface {
	// CreateActive inserts a session for its gathering, returning ErrDuplicate
	// when an unended session already exists. The check and the insert are one
	// atomic operation (partial unique index), never read-then-write.
	CreateActive(ctx context.Context, s *model.LiveSession) error
	Get(ctx context.Context, id string) (*model.LiveSession, error)
	// FindActiveByGathering returns the unended session for a gathering, or
	// ErrNotFound when none exists.
	FindActiveByGathering(ctx context.Context, gatheringID string) (*model.LiveSession, error)
	// End seals the session, returning the number of rows sealed: 0 means the
	// session was already ended.
	End(ctx context.Context, id string, at time.Time) (int64, error)
	// AddParticipant records a join; repeated joins by the same user are no-ops.
	AddParticipant(ctx context.Context, sessionID, userID string, at time.Time) error
	Participants(ctx context.Context, sessionID string) ([]model.SessionParticipant, error)
}
