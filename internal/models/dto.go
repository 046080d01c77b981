package models

type ExternalSourceRequest struct {
	FileID      string `json:"file_id" validate:"required"`
	FileName    string `json:"file_name" validate:"required"`
	AccessToken string `json:"access_token" validate:"required"`
}

type StartSessionRequest struct {
	CandidateName   string `json:"candidate_name" validate:"required"`
	Role            string `json:"role"`
	Level           string `json:"level"`
	Experience      string `json:"experience"`
	DurationMinutes int    `json:"duration_minutes"`
}

type StartSessionResponse struct {
	SessionID string `json:"session_id"`
	State     string `json:"state"`
	Message   string `json:"message"`
}

type SubmitTurnRequest struct {
	SessionID string `json:"session_id" validate:"required,uuid"`
	Text      string `json:"text" validate:"required"`
}

type TurnResponse struct {
	SessionID string               `json:"session_id"`
	State     string               `json:"state"`
	Message   string               `json:"message,omitempty"`
	Analysis  *CommunicationScores `json:"analysis,omitempty"`
	// ScoringError carries a soft failure from the scoring stage; the
	// session still completes and the transcript is preserved.
	ScoringError string `json:"scoring_error,omitempty"`
}

type EndSessionRequest struct {
	SessionID string `json:"session_id" validate:"required,uuid"`
}
