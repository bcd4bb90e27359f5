package service

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/ImArvindRaj/virtual-event-platform/internal/errs"
	"github.com/ImArvindRaj/virtual-event-platform/internal/model"
	"github.com/ImArvindRaj/virtual-event-platform/internal/storage"
)

const defaultMaxAttendees = 100

// GatheringService covers the minimal gathering surface the session subsystem
// needs to be self-hosting: create, read, and attendee registration.
type GatheringService struct {
	gatherings storage.GatheringStore
	log        *zap.Logger
	clock      func() time.Time
	newID      func() string
}

// NewGatheringService creates a gathering service.
func NewGatheringService(gatherings storage.GatheringStore, log *zap.Logger) *GatheringService {
	return &GatheringService{
		gatherings: gatherings,
		log:        log,
		clock:      time.Now,
		newID:      func() string { return uuid.New().String() },
	}
}

// Create registers a gathering owned by the caller with a fresh media channel.
func (s *GatheringService) Create(ctx context.Context, hostID string, req *model.CreateGatheringRequest) (*model.GatheringResponse, error) {
	max := req.MaxAttendees
	if max <= 0 {
		max = defaultMaxAttendees
	}
	g := &model.Gathering{
		ID:           s.newID(),
		HostID:       hostID,
		Title:        req.Title,
		Description:  req.Description,
		ScheduledAt:  req.ScheduledAt,
		Status:       string(model.GatheringStatusScheduled),
		Channel:      fmt.Sprintf("event_%s_%d", s.newID(), s.clock().Unix()),
		MaxAttendees: max,
	}
	if err := s.gatherings.Create(ctx, g); err != nil {
		return nil, err
	}
	s.log.Info("gathering created", zap.String("gathering_id", g.ID), zap.String("host_id", hostID))
	return toGatheringResponse(g, 0), nil
}

// Get returns one gathering.
func (s *GatheringService) Get(ctx context.Context, id string) (*model.GatheringResponse, error) {
	g, err := s.gatherings.Get(ctx, id)
	if err != nil {
		return nil, mapGatheringErr(err)
	}
	n, err := s.gatherings.CountAttendees(ctx, id)
	if err != nil {
		return nil, err
	}
	return toGatheringResponse(g, n), nil
}

// List returns all gatherings sorted by scheduled time.
func (s *GatheringService) List(ctx context.Context) ([]model.GatheringResponse, error) {
	rows, err := s.gatherings.List(ctx)
	if err != nil {
		return nil, err
	}
	out := make([]model.GatheringResponse, 0, len(rows))
	for i := range rows {
		n, err := s.gatherings.CountAttendees(ctx, rows[i].ID)
		if err != nil {
			return nil, err
		}
		out = append(out, *toGatheringResponse(&rows[i], n))
	}
	return out, nil
}

// Join registers the caller as an attendee, rejecting repeats and full rooms.
func (s *GatheringService) Join(ctx context.Context, gatheringID, userID string) (*model.GatheringResponse, error) {
	g, err := s.gatherings.Get(ctx, gatheringID)
	if err != nil {
		return nil, mapGatheringErr(err)
	}
	joined, err := s.gatherings.HasAttendee(ctx, gatheringID, userID)
	if err != nil {
		return nil, err
	}
	if joined {
		return nil, errs.Conflict("already joined this gathering")
	}
	n, err := s.gatherings.CountAttendees(ctx, gatheringID)
	if err != nil {
		return nil, err
	}
	if n >= g.MaxAttendees {
		return nil, errs.Conflict("gathering is full")
	}
	if err := s.gatherings.AddAttendee(ctx, gatheringID, userID, s.clock()); err != nil {
		if errors.Is(err, storage.ErrDuplicate) {
			return nil, errs.Conflict("already joined this gathering")
		}
		return nil, err
	}
	return toGatheringResponse(g, n+1), nil
}

func toGatheringResponse(g *model.Gathering, attendees int) *model.GatheringResponse {
	return &model.GatheringResponse{
		ID:            g.ID,
		HostID:        g.HostID,
		Title:         g.Title,
		Description:   g.Description,
		ScheduledAt:   g.ScheduledAt,
		Status:        model.GatheringStatus(g.Status),
		Channel:       g.Channel,
		MaxAttendees:  g.MaxAttendees,
		AttendeeCount: attendees,
	}
}
