package storage

import (
	"context"
	"errors"
	"time"

	"gorm.io/gorm"

	"github.com/ImArvindRaj/virtual-event-platform/internal/model"
)

// PgGatheringStore implements GatheringStore on GORM/Postgres.
type PgGatheringStore struct {
	db *gorm.DB
}

// NewPgGatheringStore creates a Postgres-backed gathering store.
func NewPgGatheringStore(db *gorm.DB) *PgGatheringStore {
	return &PgGatheringStore{db: db}
}

func (s *PgGatheringStore) Create(ctx context.Context, g *model.Gathering) error {
	return s.db.WithContext(ctx).Create(g).Error
}

func (s *PgGatheringStore) Get(ctx context.Context, id string) (*model.Gathering, error) {
	var g model.Gathering
	err := s.db.WithContext(ctx).Where("id = ?", id).First(&g).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrNotFound
		}
		return nil, err
	}
	return &g, nil
}

func (s *PgGatheringStore) List(ctx context.Context) ([]model.Gathering, error) {
	var out []model.Gathering
	err := s.db.WithContext(ctx).Order("scheduled_at ASC").Find(&out).Error
	return out, err
}

func (s *PgGatheringStore) SetStatus(ctx context.Context, id string, status model.GatheringStatus) error {
	res := s.db.WithContext(ctx).Model(&model.Gathering{}).
		Where("id = ?", id).
		Update("status", string(status))
	if res.Error != nil {
		return res.Error
	}
	if res.RowsAffected == 0 {
		return ErrNotFound
	}
	return nil
}

func (s *PgGatheringStore) AddAttendee(ctx context.Context, gatheringID, userID string, at time.Time) error {
	att := &model.GatheringAttendee{GatheringID: gatheringID, UserID: userID, JoinedAt: at}
	err := s.db.WithContext(ctx).Create(att).Error
	if errors.Is(err, gorm.ErrDuplicatedKey) {
		return ErrDuplicate
	}
	return err
}

func (s *PgGatheringStore) HasAttendee(ctx context.Context, gatheringID, userID string) (bool, error) {
	var n int64
	err := s.db.WithContext(ctx).Model(&model.GatheringAttendee{}).
		Where("gathering_id = ? AND user_id = ?", gatheringID, userID).
		Count(&n).Error
	return n > 0, err
}

func (s *PgGatheringStore) CountAttendees(ctx context.Context, gatheringID string) (int, error) {
	var n int64
	err := s.db.WithContext(ctx).Model(&model.GatheringAttendee{}).
		Where("gathering_id = ?", gatheringID).
		Count(&n).Error
	return int(n), err
}

// PgSessionStore implements SessionStore on GORM/Postgres.
type PgSessionStore struct {
	db *gorm.DB
}

// NewPgSessionStore creates a Postgres-backed session store.
func NewPgSessionStore(db *gorm.DB) *PgSessionStore {
	return &PgSessionStore{db: db}
}

// CreateActive relies on the partial unique index
// live_sessions (gathering_id) WHERE ended_at IS NULL: a concurrent start for
// the same gathering loses the race inside Postgres, not in application code.
func (s *PgSessionStore) CreateActive(ctx context.Context, sess *model.LiveSession) error {
	err := s.db.WithContext(ctx).Create(sess).Error
	if errors.Is(err, gorm.ErrDuplicatedKey) {
		return ErrDuplicate
	}
	return err
}

func (s *PgSessionStore) Get(ctx context.Context, id string) (*model.LiveSession, error) {
	var sess model.LiveSession
	err := s.db.WithContext(ctx).Where("id = ?", id).First(&sess).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrNotFound
		}
		return nil, err
	}
	return &sess, nil
}

func (s *PgSessionStore) FindActiveByGathering(ctx context.Context, gatheringID string) (*model.LiveSession, error) {
	var sess model.LiveSession
	err := s.db.WithContext(ctx).
		Where("gathering_id = ? AND ended_at IS NULL", gatheringID).
		First(&sess).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrNotFound
		}
		return nil, err
	}
	return &sess, nil
}

// End is conditional on ended_at still being NULL so a second end call
// affects zero rows instead of moving the timestamp.
func (s *PgSessionStore) End(ctx context.Context, id string, at time.Time) (int64, error) {
	res := s.db.WithContext(ctx).Model(&model.LiveSession{}).
		Where("id = ? AND ended_at IS NULL", id).
		Update("ended_at", at)
	return res.RowsAffected, res.Error
}

func (s *PgSessionStore) AddParticipant(ctx context.Context, sessionID, userID string, at time.Time) error {
	p := &model.SessionParticipant{SessionID: sessionID, UserID: userID, JoinedAt: at}
	err := s.db.WithContext(ctx).Create(p).Error
	if errors.Is(err, gorm.ErrDuplicatedKey) {
		return nil
	}
	return err
}

func (s *PgSessionStore) Participants(ctx context.Context, sessionID string) ([]model.SessionParticipant, error) {
	var out []model.SessionParticipant
	err := s.db.WithContext(ctx).
		Where("session_id = ?", sessionID).
		Order("joined_at ASC").
		Find(&out).Error
	return out, err
}
