package models

import (
	"time"

	"github.com/google/uuid"
)

type RecordingStatus string

const (
	StatusPending    RecordingStatus = "pending"
	StatusProcessing RecordingStatus = "processing"
	StatusScored     RecordingStatus = "scored"
	StatusFailed     RecordingStatus = "failed"
)

// Recording is one analyzed interview artifact: an uploaded file or the
// flattened transcript of a completed live session.
type Recording struct {
	ID                 uuid.UUID            `gorm:"type:uuid;primary_key;default:gen_random_uuid()" json:"id"`
	ContentFingerprint string               `gorm:"type:text;not null;uniqueIndex" json:"content_fingerprint"`
	SourceFileName     string               `gorm:"type:text" json:"source_file_name"`
	StoredFileName     string               `gorm:"type:text" json:"stored_file_name"`
	RetrievalURL       string               `gorm:"type:text" json:"-"`
	CandidateName      string               `gorm:"type:text" json:"candidate_name"`
	Status             RecordingStatus      `gorm:"not null;default:'pending'" json:"status"`
	TranscriptText     *string              `gorm:"type:text" json:"transcript_text,omitempty"`
	SpeechMetrics      *SpeechMetrics       `gorm:"type:jsonb;serializer:json" json:"speech_metrics,omitempty"`
	Scores             *CommunicationScores `gorm:"type:jsonb;serializer:json" json:"scores,omitempty"`
	ErrorMessage       *string              `gorm:"type:text" json:"error_message,omitempty"`
	LiveSessionID      *uuid.UUID           `gorm:"type:uuid" json:"live_session_id,omitempty"`
	CreatedAt          time.Time            `gorm:"default:CURRENT_TIMESTAMP" json:"created_at"`
	UpdatedAt          time.Time            `gorm:"default:CURRENT_TIMESTAMP" json:"updated_at"`
}

func (Recording) TableName() string {
	return "recordings"
}

// SpeechMetrics are derived from word-level timings in the transcription.
type SpeechMetrics struct {
	WordsPerMinute   float64        `json:"words_per_minute"`
	TotalWords       int            `json:"total_words"`
	FillerWordCounts map[string]int `json:"filler_word_counts"`
	TotalFillerWords int            `json:"total_filler_words"`
	PauseCount       int            `json:"pause_count"`
	AvgPauseSeconds  float64        `json:"avg_pause_seconds"`
	LongestPauseSecs float64        `json:"longest_pause_seconds"`
	DurationSeconds  float64        `json:"duration_seconds"`
}

// CommunicationScores is the fixed output shape of the scoring engine.
// Every sub-score is bounded [0,10]; the overall score is produced by the
// model per the weighting instruction, not recomputed here.
type CommunicationScores struct {
	OverallCommunicationScore float64           `json:"overall_communication_score"`
	Summary                   string            `json:"summary"`
	SpeechMetricsAnalysis     string            `json:"speech_metrics_analysis"`
	LanguageQuality           LanguageQuality   `json:"language_quality"`
	CommunicationSkills       CommunicationAxes `json:"communication_skills"`
	CoachingFeedback          CoachingFeedback  `json:"coaching_feedback"`
}

type LanguageQuality struct {
	Grammar              float64 `json:"grammar"`
	Vocabulary           float64 `json:"vocabulary"`
	SentenceConstruction float64 `json:"sentence_construction"`
}

type CommunicationAxes struct {
	Fluency    float64 `json:"fluency"`
	Clarity    float64 `json:"clarity"`
	Confidence float64 `json:"confidence"`
	Structure  float64 `json:"structure"`
	Relevance  float64 `json:"relevance"`
	Engagement float64 `json:"engagement"`
}

type CoachingFeedback struct {
	WhatWentWell  []string `json:"what_went_well"`
	WhatToImprove []string `json:"what_to_improve"`
}

// SubScores returns every bounded sub-score for shape validation.
func (s *CommunicationScores) SubScores() []float64 {
	return []float64{
		s.OverallCommunicationScore,
		s.LanguageQuality.Grammar,
		s.LanguageQuality.Vocabulary,
		s.LanguageQuality.SentenceConstruction,
		s.CommunicationSkills.Fluency,
		s.CommunicationSkills.Clarity,
		s.CommunicationSkills.Confidence,
		s.CommunicationSkills.Structure,
		s.CommunicationSkills.Relevance,
		s.CommunicationSkills.Engagement,
	}
}
