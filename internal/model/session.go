package model

import "time"

// GatheringStatus represents gathering lifecycle state.
type GatheringStatus string

const (
	GatheringStatusScheduled GatheringStatus = "scheduled"
	GatheringStatusLive      GatheringStatus = "live"
	GatheringStatusEnded     GatheringStatus = "ended"
)

// Role is the media access level carried by a credential.
type Role string

const (
	RolePublisher  Role = "publisher"
	RoleSubscriber Role = "subscriber"
)

// Participant is a session member in API responses.
type Participant struct {
	UserID   string    `json:"user_id"`
	JoinedAt time.Time `json:"joined_at"`
}

// SessionStatusResponse is the response for GET /api/sessions/:gatheringID/status.
// Polled by waiting rooms, so it must stay cheap and side-effect free.
type SessionStatusResponse struct {
	GatheringID     string          `json:"gathering_id"`
	GatheringStatus GatheringStatus `json:"gathering_status"`
	SessionStarted  bool            `json:"session_started"`
	SessionID       string          `json:"session_id,omitempty"`
	IsHost          bool            `json:"is_host"`
}

// StartSessionRequest is the request body for POST /api/sessions/start.
type StartSessionRequest struct {
	GatheringID string `json:"gathering_id" binding:"required"`
}

// StartSessionResponse is the response for POST /api/sessions/start.
type StartSessionResponse struct {
	SessionID string `json:"session_id"`
}

// TokenResponse is the response for GET /api/sessions/:gatheringID/token.
// UID echoes the caller identity as the transport-level participant id.
type TokenResponse struct {
	Token     string `json:"token"`
	Channel   string `json:"channel"`
	UID       string `json:"uid"`
	Role      Role   `json:"role"`
	SessionID string `json:"session_id,omitempty"`
}

// EndSessionResponse is the response for PUT /api/sessions/:id/end.
type EndSessionResponse struct {
	SessionID string    `json:"session_id"`
	EndedAt   time.Time `json:"ended_at"`
}

// SessionParticipantsResponse is the response for GET /api/sessions/:id/participants.
type SessionParticipantsResponse struct {
	SessionID    string        `json:"session_id"`
	Participants []Participant `json:"participants"`
}

// CreateGatheringRequest is the request body for POST /api/gatherings.
type CreateGatheringRequest struct {
	Title        string    `json:"title" binding:"required"`
	Description  string    `json:"description"`
	ScheduledAt  time.Time `json:"scheduled_at" binding:"required"`
	MaxAttendees int       `json:"max_attendees"`
}

// GatheringResponse is the API view of a gathering.
type GatheringResponse struct {
	ID            string          `json:"id"`
	HostID        string          `json:"host_id"`
	Title         string          `json:"title"`
	Description   string          `json:"description,omitempty"`
	ScheduledAt   time.Time       `json:"scheduled_at"`
	Status        GatheringStatus `json:"status"`
	Channel       string          `json:"channel"`
	MaxAttendees  int             `json:"max_attendees"`
	AttendeeCount int             `json:"attendee_count"`
}

// SessionEvent is pushed over the watch WebSocket when a session starts or ends.
type SessionEvent struct {
	Event       string `json:"event"` // session_started, session_ended
	GatheringID string `json:"gathering_id"`
	SessionID   string `json:"session_id"`
}

// ErrorResponse is the error body for all API failures.
type ErrorResponse struct {
	Error   string `json:"error"`
	Message string `json:"message"`
}
