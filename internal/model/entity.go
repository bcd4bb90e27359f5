package model

import "time"

// Gathering is the scheduled event entity (GORM). The session subsystem reads the
// host and channel and writes Status; the rest belongs to event management.
type Gathering struct {
	ID           string    `gorm:"type:uuid;primaryKey;default:gen_random_uuid()"`
	HostID       string    `gorm:"type:uuid;not null;index"`
	Title        string    `gorm:"size:200;not null"`
	Description  string    `gorm:"type:text"`
	ScheduledAt  time.Time `gorm:"not null;index"`
	Status       string    `gorm:"size:20;not null;default:scheduled"` // scheduled, live, ended
	Channel      string    `gorm:"size:128;not null;uniqueIndex"`
	MaxAttendees int       `gorm:"not null;default:100"`
	CreatedAt    time.Time `gorm:"autoCreateTime"`
	UpdatedAt    time.Time `gorm:"autoUpdateTime"`

	Attendees []GatheringAttendee `gorm:"foreignKey:GatheringID"`
}

func (Gathering) TableName() string { return "gatherings" }

// GatheringAttendee records a user's registration for a gathering (GORM).
type GatheringAttendee struct {
	ID          string    `gorm:"type:uuid;primaryKey;default:gen_random_uuid()"`
	GatheringID string    `gorm:"type:uuid;not null;index"`
	UserID      string    `gorm:"type:uuid;not null;index"`
	JoinedAt    time.Time `gorm:"column:joined_at;not null"`
}

func (GatheringAttendee) TableName() string { return "gathering_attendees" }

// LiveSession is one live instance of a gathering (GORM). At most one row per
// gathering may have ended_at NULL; a partial unique index in the migrations
// enforces this at the database level.
type LiveSession struct {
	ID          string     `gorm:"type:uuid;primaryKey;default:gen_random_uuid()"`
	GatheringID string     `gorm:"type:uuid;not null;index"`
	StartedAt   time.Time  `gorm:"column:started_at;not null"`
	EndedAt     *time.Time `gorm:"column:ended_at"`
	CreatedAt   time.Time  `gorm:"autoCreateTime"`
	UpdatedAt   time.Time  `gorm:"autoUpdateTime"`

	Participants []SessionParticipant `gorm:"foreignKey:SessionID"`
}

func (LiveSession) TableName() string { return "live_sessions" }

// SessionParticipant is a user who joined a live session (GORM). Informational
// bookkeeping; insertion order is meaningful for display only.
type SessionParticipant struct {
	ID        string    `gorm:"type:uuid;primaryKey;default:gen_random_uuid()"`
	SessionID string    `gorm:"type:uuid;not null;index"`
	UserID    string    `gorm:"type:uuid;not null;index"`
	JoinedAt  time.Time `gorm:"column:joined_at;not null"`
}

func (SessionParticipant) TableName() string { return "session_participants" }
