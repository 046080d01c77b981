package services

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const validScoresJSON = `{
  "overall_communication_score": 7.5,
  "summary": "Clear and confident overall.",
  "speech_metrics_analysis": "Good pace with few fillers.",
  "language_quality": {"grammar": 8, "vocabulary": 7, "sentence_construction": 7.5},
  "communication_skills": {"fluency": 8, "clarity": 7, "confidence": 8, "structure": 7, "relevance": 7, "engagement": 7},
  "coaching_feedback": {"what_went_well": ["Concise answers"], "what_to_improve": ["Add concrete examples"]}
}`

func TestParseScoresResponsePlainJSON(t *testing.T) {
	scores, err := parseScoresResponse(validScoresJSON)
	require.NoError(t, err)

	assert.Equal(t, 7.5, scores.OverallCommunicationScore)
	assert.Equal(t, "Clear and confident overall.", scores.Summary)
	assert.Equal(t, []string{"Concise answers"}, scores.CoachingFeedback.WhatWentWell)
}

func TestParseScoresResponseFencedJSON(t *testing.T) {
	fenced := "```json\n" + validScoresJSON + "\n```"

	scores, err := parseScoresResponse(fenced)
	require.NoError(t, err)
	assert.Equal(t, 7.5, scores.OverallCommunicationScore)
}

func TestParseScoresResponseSurroundingProse(t *testing.T) {
	wrapped := "Here is the evaluation you asked for:\n" + validScoresJSON + "\nLet me know if you need anything else."

	scores, err := parseScoresResponse(wrapped)
	require.NoError(t, err)
	assert.Equal(t, 8.0, scores.CommunicationSkills.Fluency)
}

func TestParseScoresResponseTruncated(t *testing.T) {
	_, err := parseScoresResponse(`{"overall_communication_score": 7.5, "summary": "cut off`)
	require.Error(t, err)

	var parseErr *ScoringParseError
	assert.True(t, errors.As(err, &parseErr))
}

func TestParseScoresResponseNoJSONSpan(t *testing.T) {
	_, err := parseScoresResponse("I could not produce an evaluation for this transcript.")
	require.Error(t, err)

	var parseErr *ScoringParseError
	assert.True(t, errors.As(err, &parseErr))
}

func TestParseScoresResponseRejectsOutOfRange(t *testing.T) {
	bad := `{
	  "overall_communication_score": 11,
	  "summary": "too high",
	  "language_quality": {"grammar": 8, "vocabulary": 7, "sentence_construction": 7},
	  "communication_skills": {"fluency": 8, "clarity": 7, "confidence": 8, "structure": 7, "relevance": 7, "engagement": 7},
	  "coaching_feedback": {"what_went_well": [], "what_to_improve": []}
	}`

	_, err := parseScoresResponse(bad)
	require.Error(t, err)

	var parseErr *ScoringParseError
	assert.True(t, errors.As(err, &parseErr))
}

func TestParseScoresResponseNormalizesNilFeedback(t *testing.T) {
	noFeedback := `{
	  "overall_communication_score": 6,
	  "summary": "ok",
	  "language_quality": {"grammar": 6, "vocabulary": 6, "sentence_construction": 6},
	  "communication_skills": {"fluency": 6, "clarity": 6, "confidence": 6, "structure": 6, "relevance": 6, "engagement": 6}
	}`

	scores, err := parseScoresResponse(noFeedback)
	require.NoError(t, err)

	assert.NotNil(t, scores.CoachingFeedback.WhatWentWell)
	assert.NotNil(t, scores.CoachingFeedback.WhatToImprove)
	assert.Empty(t, scores.CoachingFeedback.WhatWentWell)
}

func TestScoreTranscriptUsesModelOutput(t *testing.T) {
	gemini := &fakeGeminiService{response: "```json\n" + validScoresJSON + "\n```"}
	svc := NewScoringService(gemini, 3)

	scores, err := svc.ScoreTranscript(context.Background(), "Speaker 1: hello [NEUTRAL]", "Ada")
	require.NoError(t, err)

	assert.Equal(t, 1, gemini.calls)
	assert.Equal(t, 7.5, scores.OverallCommunicationScore)
	for _, v := range scores.SubScores() {
		assert.GreaterOrEqual(t, v, 0.0)
		assert.LessOrEqual(t, v, 10.0)
	}
}

func TestScoreTranscriptPropagatesParseError(t *testing.T) {
	gemini := &fakeGeminiService{response: "not json at all"}
	svc := NewScoringService(gemini, 3)

	_, err := svc.ScoreTranscript(context.Background(), "Speaker 1: hello", "")
	require.Error(t, err)

	var parseErr *ScoringParseError
	assert.True(t, errors.As(err, &parseErr))
}
