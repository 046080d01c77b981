package services

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/sirupsen/logrus"

	"talentvoice/interview-analyzer/internal/logger"
	"talentvoice/interview-analyzer/internal/models"
	"talentvoice/interview-analyzer/internal/repositories"
)

// ErrSessionCompleted rejects turns submitted to a finished session.
var ErrSessionCompleted = fmt.Errorf("live session already completed")

// TurnOutcome is the result of advancing a live session by one step.
type TurnOutcome struct {
	Session  *models.LiveSession
	Message  string
	Analysis *models.CommunicationScores
	// ScoringErr is a soft error: the session completed and the transcript
	// was preserved, only the analysis is missing.
	ScoringErr error
}

// LiveSessionService drives the turn-based scripted AI interview. It is the
// sole mutator of a session's history: turns are appended in order and never
// rewritten.
type LiveSessionService interface {
	Start(ctx context.Context, req models.StartSessionRequest) (*TurnOutcome, error)
	SubmitTurn(ctx context.Context, sessionID uuid.UUID, text string) (*TurnOutcome, error)
	End(ctx context.Context, sessionID uuid.UUID) (*TurnOutcome, error)
}

type liveSessionService struct {
	sessions        repositories.LiveSessionRepository
	recordings      repositories.RecordingRepository
	gemini          GeminiService
	scoring         ScoringService
	promptBuilder   *PromptBuilder
	defaultDuration int
	maxRetries      int
	now             func() time.Time
	log             *logrus.Entry
}

func NewLiveSessionService(
	sessions repositories.LiveSessionRepository,
	recordings repositories.RecordingRepository,
	gemini GeminiService,
	scoring ScoringService,
	defaultDurationMinutes int,
	maxRetries int,
) LiveSessionService {
	return &liveSessionService{
		sessions:        sessions,
		recordings:      recordings,
		gemini:          gemini,
		scoring:         scoring,
		promptBuilder:   NewPromptBuilder(),
		defaultDuration: defaultDurationMinutes,
		maxRetries:      maxRetries,
		now:             time.Now,
		log:             logger.ForModule("livesession"),
	}
}

func (s *liveSessionService) Start(ctx context.Context, req models.StartSessionRequest) (*TurnOutcome, error) {
	duration := req.DurationMinutes
	if duration <= 0 {
		duration = s.defaultDuration
	}

	now := s.now()
	session := &models.LiveSession{
		ID:              uuid.New(),
		CandidateName:   req.CandidateName,
		Role:            req.Role,
		Level:           req.Level,
		Experience:      req.Experience,
		DurationMinutes: duration,
		StartTime:       now,
		State:           models.SessionInitializing,
		History:         []models.SessionTurn{},
		CreatedAt:       now,
		UpdatedAt:       now,
	}

	// The opening is a fixed script, not model-generated.
	opening := openingScript(req.CandidateName, req.Role)
	session.History = append(session.History, models.SessionTurn{
		Role:      models.RoleAI,
		Content:   opening,
		Timestamp: now,
	})
	session.State = models.SessionAISpeaking

	if err := s.sessions.Create(session); err != nil {
		return nil, err
	}

	s.log.WithFields(logrus.Fields{
		"session_id": session.ID,
		"duration":   duration,
	}).Info("live session started")

	return &TurnOutcome{Session: session, Message: opening}, nil
}

func (s *liveSessionService) SubmitTurn(ctx context.Context, sessionID uuid.UUID, text string) (*TurnOutcome, error) {
	session, err := s.sessions.FindByID(sessionID)
	if err != nil {
		return nil, err
	}
	if session.State == models.SessionCompleted {
		return nil, ErrSessionCompleted
	}

	now := s.now()
	session.State = models.SessionProcessing
	session.History = append(session.History, models.SessionTurn{
		Role:      models.RoleUser,
		Content:   text,
		Timestamp: now,
	})

	// Soft duration check at the turn boundary: once elapsed time reaches the
	// configured duration, the session ends regardless of content.
	if session.Elapsed(now) >= time.Duration(session.DurationMinutes)*time.Minute {
		return s.finish(ctx, session)
	}

	question := s.nextQuestion(ctx, session)
	session.History = append(session.History, models.SessionTurn{
		Role:      models.RoleAI,
		Content:   question,
		Timestamp: s.now(),
	})
	session.State = models.SessionAISpeaking
	session.UpdatedAt = s.now()

	if err := s.sessions.Save(session); err != nil {
		return nil, err
	}

	return &TurnOutcome{Session: session, Message: question}, nil
}

func (s *liveSessionService) End(ctx context.Context, sessionID uuid.UUID) (*TurnOutcome, error) {
	session, err := s.sessions.FindByID(sessionID)
	if err != nil {
		return nil, err
	}

	// Ending twice is a no-op: the stored analysis is returned and no second
	// recording is created.
	if session.State == models.SessionCompleted {
		outcome := &TurnOutcome{Session: session, Message: closingScript(session.CandidateName)}
		if session.RecordingID != nil {
			if rec, err := s.recordings.FindByID(*session.RecordingID); err == nil {
				outcome.Analysis = rec.Scores
			}
		}
		return outcome, nil
	}

	return s.finish(ctx, session)
}

// finish runs the end routine: closing script, COMPLETED state, transcript
// projection, then scoring. Completion and the transcript are persisted
// before scoring, so a scoring failure can never lose the session.
func (s *liveSessionService) finish(ctx context.Context, session *models.LiveSession) (*TurnOutcome, error) {
	now := s.now()
	closing := closingScript(session.CandidateName)
	session.History = append(session.History, models.SessionTurn{
		Role:      models.RoleAI,
		Content:   closing,
		Timestamp: now,
	})
	session.State = models.SessionCompleted

	transcript := session.FlattenTranscript()
	session.TranscriptText = &transcript
	session.UpdatedAt = now

	if err := s.sessions.Save(session); err != nil {
		return nil, err
	}

	outcome := &TurnOutcome{Session: session, Message: closing}

	scores, err := s.scoring.ScoreTranscript(ctx, transcript, session.CandidateName)
	if err != nil {
		s.log.WithError(err).WithField("session_id", session.ID).Warn("scoring failed, transcript preserved")
		outcome.ScoringErr = err
		return outcome, nil
	}

	rec := &models.Recording{
		ID:                 uuid.New(),
		ContentFingerprint: contentFingerprint([]byte(transcript)),
		SourceFileName:     fmt.Sprintf("live-session-%s.txt", session.ID),
		CandidateName:      session.CandidateName,
		Status:             models.StatusScored,
		TranscriptText:     &transcript,
		Scores:             scores,
		LiveSessionID:      &session.ID,
		CreatedAt:          now,
		UpdatedAt:          now,
	}
	if err := s.recordings.Create(rec); err != nil {
		s.log.WithError(err).WithField("session_id", session.ID).Error("failed to create linked recording")
		outcome.ScoringErr = err
		return outcome, nil
	}

	session.RecordingID = &rec.ID
	if err := s.sessions.Save(session); err != nil {
		s.log.WithError(err).Error("failed to link recording to session")
	}

	outcome.Analysis = scores

	s.log.WithFields(logrus.Fields{
		"session_id":   session.ID,
		"recording_id": rec.ID,
		"turns":        len(session.History),
	}).Info("live session completed")

	return outcome, nil
}

// nextQuestion asks the model for exactly one follow-up question. Generation
// failures degrade to a canned question rather than stalling the interview.
func (s *liveSessionService) nextQuestion(ctx context.Context, session *models.LiveSession) string {
	history := make([]string, 0, len(session.History))
	for _, turn := range session.History {
		speaker := "Interviewer"
		if turn.Role == models.RoleUser {
			speaker = "Candidate"
		}
		history = append(history, fmt.Sprintf("%s: %s", speaker, turn.Content))
	}

	prompt := s.promptBuilder.BuildNextQuestionPrompt(session.Role, session.Level, session.Experience, history)

	question, err := s.gemini.GenerateTextWithRetry(ctx, prompt, 0.7, s.maxRetries)
	if err != nil || question == "" {
		s.log.WithError(err).Warn("question generation failed, using fallback")
		return "Could you walk me through a challenging situation you faced recently and how you handled it?"
	}

	return question
}

func openingScript(candidateName, role string) string {
	name := candidateName
	if name == "" {
		name = "there"
	}
	position := role
	if position == "" {
		position = "this role"
	}
	return fmt.Sprintf(
		"Hello %s, welcome to your interview for %s. I'll ask you a series of questions about your background and experience; take your time with each answer. Let's begin: tell me a little about yourself and what drew you to this position.",
		name, position,
	)
}

func closingScript(candidateName string) string {
	name := candidateName
	if name == "" {
		name = "there"
	}
	return fmt.Sprintf(
		"Thank you, %s, that concludes our interview. Your responses are being analyzed and a detailed report will be available shortly. Best of luck!",
		name,
	)
}
