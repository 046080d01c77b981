package models

import (
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
)

type SessionState string

const (
	SessionInitializing SessionState = "INITIALIZING"
	SessionAISpeaking   SessionState = "AI_SPEAKING"
	SessionProcessing   SessionState = "PROCESSING"
	SessionCompleted    SessionState = "COMPLETED"
)

type TurnRole string

const (
	RoleAI   TurnRole = "ai"
	RoleUser TurnRole = "user"
)

// SessionTurn is one entry in a live session's history. History is
// append-only: turns are never reordered or deleted.
type SessionTurn struct {
	Role      TurnRole  `json:"role"`
	Content   string    `json:"content"`
	Timestamp time.Time `json:"timestamp"`
}

// LiveSession holds the conversational state for one scripted AI interview.
type LiveSession struct {
	ID              uuid.UUID     `gorm:"type:uuid;primary_key;default:gen_random_uuid()" json:"id"`
	CandidateName   string        `gorm:"type:text;not null" json:"candidate_name"`
	Role            string        `gorm:"type:text" json:"role"`
	Level           string        `gorm:"type:text" json:"level"`
	Experience      string        `gorm:"type:text" json:"experience"`
	DurationMinutes int           `gorm:"not null" json:"duration_minutes"`
	StartTime       time.Time     `gorm:"not null" json:"start_time"`
	State           SessionState  `gorm:"not null;default:'INITIALIZING'" json:"state"`
	History         []SessionTurn `gorm:"type:jsonb;serializer:json" json:"history"`
	TranscriptText  *string       `gorm:"type:text" json:"transcript_text,omitempty"`
	RecordingID     *uuid.UUID    `gorm:"type:uuid" json:"recording_id,omitempty"`
	CreatedAt       time.Time     `gorm:"default:CURRENT_TIMESTAMP" json:"created_at"`
	UpdatedAt       time.Time     `gorm:"default:CURRENT_TIMESTAMP" json:"updated_at"`
}

func (LiveSession) TableName() string {
	return "live_sessions"
}

// FlattenTranscript projects the history into a speaker-labeled transcript.
// Pure and idempotent: calling it twice on the same history yields the same text.
func (s *LiveSession) FlattenTranscript() string {
	label := s.CandidateName
	if label == "" {
		label = "Candidate"
	}

	lines := make([]string, 0, len(s.History))
	for _, turn := range s.History {
		speaker := "Interviewer"
		if turn.Role == RoleUser {
			speaker = label
		}
		lines = append(lines, fmt.Sprintf("%s: %s", speaker, turn.Content))
	}

	return strings.Join(lines, "\n\n")
}

// Elapsed reports wall-clock time since the session started.
func (s *LiveSession) Elapsed(now time.Time) time.Duration {
	return now.Sub(s.StartTime)
}
