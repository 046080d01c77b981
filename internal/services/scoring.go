package services

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"

	"github.com/sirupsen/logrus"

	"talentvoice/interview-analyzer/internal/logger"
	"talentvoice/interview-analyzer/internal/models"
)

// ScoringService turns a speaker-labeled transcript into structured
// communication scores. Model output is treated as untrusted text: strict
// parse first, fenced/substring extraction as fallback, schema validation
// before anything is returned.
type ScoringService interface {
	ScoreTranscript(ctx context.Context, transcript, candidateName string) (*models.CommunicationScores, error)
}

type scoringService struct {
	gemini        GeminiService
	promptBuilder *PromptBuilder
	maxRetries    int
	log           *logrus.Entry
}

func NewScoringService(gemini GeminiService, maxRetries int) ScoringService {
	return &scoringService{
		gemini:        gemini,
		promptBuilder: NewPromptBuilder(),
		maxRetries:    maxRetries,
		log:           logger.ForModule("scoring"),
	}
}

func (s *scoringService) ScoreTranscript(ctx context.Context, transcript, candidateName string) (*models.CommunicationScores, error) {
	prompt := s.promptBuilder.BuildScoringPrompt(transcript, candidateName)

	response, err := s.gemini.GenerateTextWithRetry(ctx, prompt, 0.3, s.maxRetries)
	if err != nil {
		return nil, fmt.Errorf("failed to generate communication scores: %w", err)
	}

	scores, err := parseScoresResponse(response)
	if err != nil {
		s.log.WithError(err).Error("model output rejected")
		return nil, err
	}

	s.log.WithField("overall", scores.OverallCommunicationScore).Info("transcript scored")
	return scores, nil
}

func parseScoresResponse(response string) (*models.CommunicationScores, error) {
	var scores models.CommunicationScores

	// Primary path: the response is already plain JSON.
	if err := json.Unmarshal([]byte(response), &scores); err != nil {
		extracted := extractJSON(response)
		if extracted == "" {
			return nil, &ScoringParseError{Reason: "no JSON object found in response", Raw: response}
		}
		if err := json.Unmarshal([]byte(extracted), &scores); err != nil {
			return nil, &ScoringParseError{Reason: "invalid JSON after extraction", Raw: response, Err: err}
		}
	}

	if err := validateScores(&scores); err != nil {
		return nil, err
	}

	return &scores, nil
}

func validateScores(scores *models.CommunicationScores) error {
	for _, v := range scores.SubScores() {
		if v < 0 || v > 10 {
			return &ScoringParseError{Reason: fmt.Sprintf("sub-score %.2f outside [0,10]", v)}
		}
	}

	if scores.Summary == "" {
		return &ScoringParseError{Reason: "missing summary"}
	}

	// Feedback lists must be present, possibly empty, never nil.
	if scores.CoachingFeedback.WhatWentWell == nil {
		scores.CoachingFeedback.WhatWentWell = []string{}
	}
	if scores.CoachingFeedback.WhatToImprove == nil {
		scores.CoachingFeedback.WhatToImprove = []string{}
	}

	return nil
}

// extractJSON pulls a JSON object out of text that may be wrapped in markdown
// fences or surrounding prose: strip fences, then take the span from the
// first '{' to the last '}'.
func extractJSON(text string) string {
	text = strings.ReplaceAll(text, "```json", "")
	text = strings.ReplaceAll(text, "```", "")

	start := strings.Index(text, "{")
	end := strings.LastIndex(text, "}")
	if start == -1 || end == -1 || end <= start {
		return ""
	}

	return text[start : end+1]
}
