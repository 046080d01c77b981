package services

import (
	"fmt"
	"strings"
)

type PromptBuilder struct{}

func NewPromptBuilder() *PromptBuilder {
	return &PromptBuilder{}
}

// BuildScoringPrompt creates the communication-scoring prompt. The weighting
// and rounding are generation instructions; the model computes the overall
// score, the engine only validates the output shape.
func (pb *PromptBuilder) BuildScoringPrompt(transcript, candidateName string) string {
	subject := "the candidate"
	if candidateName != "" {
		subject = candidateName
	}

	return fmt.Sprintf(`You are an expert communication coach analyzing an interview transcript for %s.

INTERVIEW TRANSCRIPT:
%s

Your task is to evaluate the candidate's communication quality from this transcript.

Score each parameter on a 0-10 scale:
1. Fluency (Weight: 25%%) - Smoothness of speech, absence of excessive fillers or restarts
2. Clarity (Weight: 20%%) - How clearly ideas are expressed and understood
3. Confidence (Weight: 20%%) - Assertiveness and composure in responses
4. Structure (Weight: 15%%) - Logical organization of answers
5. Relevance (Weight: 10%%) - How directly answers address the questions
6. Engagement (Weight: 10%%) - Energy and interaction quality

Also score language quality (grammar, vocabulary, sentence construction) on the same 0-10 scale.

Compute overall_communication_score as the weighted average of the six communication skills, rounded to 1 decimal place.

Return your response in the following JSON format and nothing else:
{
  "overall_communication_score": <weighted average, 0-10, 1 decimal>,
  "summary": "<3-5 sentence overall assessment>",
  "speech_metrics_analysis": "<2-3 sentences on pace, fillers and pauses>",
  "language_quality": {
    "grammar": <0-10>,
    "vocabulary": <0-10>,
    "sentence_construction": <0-10>
  },
  "communication_skills": {
    "fluency": <0-10>,
    "clarity": <0-10>,
    "confidence": <0-10>,
    "structure": <0-10>,
    "relevance": <0-10>,
    "engagement": <0-10>
  },
  "coaching_feedback": {
    "what_went_well": ["<specific strength>", "..."],
    "what_to_improve": ["<specific actionable improvement>", "..."]
  }
}

Be objective and specific. Quote short examples from the transcript to justify your scores.`,
		subject, transcript)
}

// BuildNextQuestionPrompt asks for exactly one follow-up question in a live
// interview, conditioned on the full conversation so far.
func (pb *PromptBuilder) BuildNextQuestionPrompt(role, level, experience string, history []string) string {
	return fmt.Sprintf(`You are conducting a live voice interview for a %s position (%s level, %s experience).

CONVERSATION SO FAR:
%s

Generate the interviewer's next question.

Rules:
- Produce exactly ONE open-ended question, 1-2 sentences long.
- Do not include acknowledgements, filler, or commentary before the question.
- If the candidate's last answer was short or shallow, prefer a follow-up question digging into that answer.
- Otherwise move to a new topic relevant to the role.

Return ONLY the question text.`,
		role, level, experience, strings.Join(history, "\n"))
}
