package services

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/cenkalti/backoff/v4"
	"github.com/sirupsen/logrus"

	"talentvoice/interview-analyzer/internal/config"
	"talentvoice/interview-analyzer/internal/logger"
	"talentvoice/interview-analyzer/internal/models"
)

// TranscriptionResult is the assembled output of one transcription job.
type TranscriptionResult struct {
	Text    string
	Metrics *models.SpeechMetrics
}

// TranscriptionService submits audio for speech-to-text with speaker
// diarization and polls the provider until a terminal state.
type TranscriptionService interface {
	Transcribe(ctx context.Context, audioURL string) (*TranscriptionResult, error)
}

type transcriptionClient struct {
	cfg        config.TranscriptionConfig
	httpClient *http.Client
	log        *logrus.Entry
}

func NewTranscriptionService(cfg config.TranscriptionConfig) TranscriptionService {
	return &transcriptionClient{
		cfg:        cfg,
		httpClient: &http.Client{Timeout: 30 * time.Second},
		log:        logger.ForModule("transcription"),
	}
}

// Provider wire types.

type transcriptRequest struct {
	AudioURL          string `json:"audio_url"`
	SpeakerLabels     bool   `json:"speaker_labels"`
	SpeakersExpected  int    `json:"speakers_expected"`
	Punctuate         bool   `json:"punctuate"`
	SentimentAnalysis bool   `json:"sentiment_analysis"`
}

type transcriptUtterance struct {
	Speaker string `json:"speaker"`
	Text    string `json:"text"`
	Start   int    `json:"start"`
	End     int    `json:"end"`
}

type transcriptWord struct {
	Text  string `json:"text"`
	Start int    `json:"start"`
	End   int    `json:"end"`
}

type sentimentResult struct {
	Text      string `json:"text"`
	Start     int    `json:"start"`
	End       int    `json:"end"`
	Sentiment string `json:"sentiment"`
}

type transcriptResponse struct {
	ID                       string                `json:"id"`
	Status                   string                `json:"status"`
	Text                     string                `json:"text"`
	Error                    string                `json:"error"`
	AudioDuration            float64               `json:"audio_duration"`
	Utterances               []transcriptUtterance `json:"utterances"`
	Words                    []transcriptWord      `json:"words"`
	SentimentAnalysisResults []sentimentResult     `json:"sentiment_analysis_results"`
}

func (c *transcriptionClient) Transcribe(ctx context.Context, audioURL string) (*TranscriptionResult, error) {
	jobID, err := c.submit(ctx, audioURL)
	if err != nil {
		return nil, err
	}

	c.log.WithField("job_id", jobID).Info("transcription submitted")

	resp, err := c.pollUntilDone(ctx, jobID)
	if err != nil {
		return nil, err
	}

	return &TranscriptionResult{
		Text:    assembleTranscript(resp),
		Metrics: computeSpeechMetrics(resp),
	}, nil
}

// submit publishes the job once. Transient network errors are retried with
// exponential backoff, but a job that was accepted is never resubmitted.
func (c *transcriptionClient) submit(ctx context.Context, audioURL string) (string, error) {
	payload, err := json.Marshal(transcriptRequest{
		AudioURL:          audioURL,
		SpeakerLabels:     true,
		SpeakersExpected:  2,
		Punctuate:         true,
		SentimentAnalysis: true,
	})
	if err != nil {
		return "", fmt.Errorf("failed to encode transcript request: %w", err)
	}

	endpoint := strings.TrimRight(c.cfg.BaseURL, "/") + "/v2/transcript"

	bo := backoff.NewExponentialBackOff()
	bo.MaxElapsedTime = 30 * time.Second

	var resp transcriptResponse
	op := func() error {
		req, err := http.NewRequestWithContext(ctx, http.MethodPost, endpoint, bytes.NewReader(payload))
		if err != nil {
			return backoff.Permanent(err)
		}
		req.Header.Set("Content-Type", "application/json")
		req.Header.Set("Authorization", c.cfg.APIKey)

		if err := c.doJSON(req, &resp); err != nil {
			// A rejected request (bad key, bad payload) will not heal with
			// retries; only rate limits and server errors are worth repeating.
			var pe *providerError
			if errors.As(err, &pe) && !pe.transient() {
				return backoff.Permanent(err)
			}
			return err
		}
		return nil
	}

	if err := backoff.Retry(op, backoff.WithContext(bo, ctx)); err != nil {
		return "", fmt.Errorf("transcription submit failed: %w", err)
	}

	if resp.ID == "" {
		return "", fmt.Errorf("transcription submit failed: provider returned no job id")
	}

	return resp.ID, nil
}

// pollUntilDone polls the job with a multiplicatively growing interval
// (bounded above by PollMaxInterval). Transient poll errors back off harder
// and retry the poll, never the submission. The loop is bounded by
// PollMaxAttempts and PollDeadline; exhausting either raises TimeoutError.
func (c *transcriptionClient) pollUntilDone(ctx context.Context, jobID string) (*transcriptResponse, error) {
	endpoint := strings.TrimRight(c.cfg.BaseURL, "/") + "/v2/transcript/" + jobID

	interval := c.cfg.PollInitialInterval
	started := time.Now()

	for attempt := 1; attempt <= c.cfg.PollMaxAttempts; attempt++ {
		if time.Since(started) > c.cfg.PollDeadline {
			return nil, &TimeoutError{Attempts: attempt - 1, Elapsed: time.Since(started)}
		}

		select {
		case <-ctx.Done():
			return nil, fmt.Errorf("polling cancelled: %w", ctx.Err())
		case <-time.After(interval):
		}

		req, err := http.NewRequestWithContext(ctx, http.MethodGet, endpoint, nil)
		if err != nil {
			return nil, fmt.Errorf("failed to build poll request: %w", err)
		}
		req.Header.Set("Authorization", c.cfg.APIKey)

		var resp transcriptResponse
		if err := c.doJSON(req, &resp); err != nil {
			var pe *providerError
			if errors.As(err, &pe) && !pe.transient() {
				return nil, fmt.Errorf("transcription poll rejected: %w", err)
			}
			c.log.WithError(err).WithField("attempt", attempt).Warn("poll failed, backing off")
			interval = nextInterval(interval, c.cfg.ErrorMultiplier, c.cfg.PollMaxInterval)
			continue
		}

		switch resp.Status {
		case "completed":
			return &resp, nil
		case "error":
			return nil, &TranscriptionFailure{Message: resp.Error}
		default:
			// queued or processing
			interval = nextInterval(interval, c.cfg.PollMultiplier, c.cfg.PollMaxInterval)
		}
	}

	return nil, &TimeoutError{Attempts: c.cfg.PollMaxAttempts, Elapsed: time.Since(started)}
}

// providerError carries the HTTP status of a rejected provider call so
// callers can tell a retryable failure from a permanent one.
type providerError struct {
	status int
	body   string
}

func (e *providerError) Error() string {
	return fmt.Sprintf("provider error %d: %s", e.status, e.body)
}

// transient reports whether the call is worth retrying: rate limits and
// server-side errors are, every other 4xx is a permanent rejection.
func (e *providerError) transient() bool {
	return e.status == http.StatusTooManyRequests || e.status >= 500
}

func (c *transcriptionClient) doJSON(req *http.Request, target interface{}) error {
	resp, err := c.httpClient.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return err
	}
	if resp.StatusCode >= 400 {
		return &providerError{status: resp.StatusCode, body: string(body)}
	}
	if err := json.Unmarshal(body, target); err != nil {
		return fmt.Errorf("json decode error: %w", err)
	}
	return nil
}

// nextInterval grows the poll interval multiplicatively, bounded above.
func nextInterval(current time.Duration, multiplier float64, max time.Duration) time.Duration {
	next := time.Duration(float64(current) * multiplier)
	if next > max {
		return max
	}
	return next
}

// assembleTranscript reconstructs the speaker-labeled transcript: one
// "Speaker N: text [SENTIMENT]" block per diarized utterance, joined by blank
// lines, preserving utterance order. Falls back to the flat text when the
// provider returned no utterance-level data.
func assembleTranscript(resp *transcriptResponse) string {
	if len(resp.Utterances) == 0 {
		return resp.Text
	}

	blocks := make([]string, 0, len(resp.Utterances))
	for _, utt := range resp.Utterances {
		block := fmt.Sprintf("Speaker %s: %s", speakerNumber(utt.Speaker), utt.Text)
		if sentiment := sentimentFor(utt, resp.SentimentAnalysisResults); sentiment != "" {
			block += fmt.Sprintf(" [%s]", strings.ToUpper(sentiment))
		}
		blocks = append(blocks, block)
	}

	return strings.Join(blocks, "\n\n")
}

// speakerNumber normalizes provider speaker labels ("A", "B", ...) to 1-based
// numbers. Numeric labels pass through unchanged.
func speakerNumber(label string) string {
	if _, err := strconv.Atoi(label); err == nil {
		return label
	}
	if len(label) == 1 && label[0] >= 'A' && label[0] <= 'Z' {
		return strconv.Itoa(int(label[0]-'A') + 1)
	}
	return label
}

// sentimentFor matches a sentence-level sentiment result to an utterance by
// time overlap; the first overlapping result wins.
func sentimentFor(utt transcriptUtterance, results []sentimentResult) string {
	for _, r := range results {
		if r.Start >= utt.Start && r.Start < utt.End {
			return r.Sentiment
		}
	}
	return ""
}

var fillerWords = []string{"um", "uh", "like", "you know", "actually", "basically", "literally", "sort of", "kind of"}

// computeSpeechMetrics derives pace, filler and pause statistics from the
// provider's word-level timings (milliseconds).
func computeSpeechMetrics(resp *transcriptResponse) *models.SpeechMetrics {
	metrics := &models.SpeechMetrics{
		FillerWordCounts: map[string]int{},
		DurationSeconds:  resp.AudioDuration,
		TotalWords:       len(resp.Words),
	}

	if resp.AudioDuration > 0 {
		metrics.WordsPerMinute = float64(len(resp.Words)) / (resp.AudioDuration / 60.0)
	}

	lowered := strings.ToLower(resp.Text)
	for _, filler := range fillerWords {
		count := countOccurrences(lowered, filler)
		if count > 0 {
			metrics.FillerWordCounts[filler] = count
			metrics.TotalFillerWords += count
		}
	}

	// Inter-word gaps longer than a second count as pauses.
	const pauseThresholdMs = 1000
	var totalPauseMs int
	for i := 1; i < len(resp.Words); i++ {
		gap := resp.Words[i].Start - resp.Words[i-1].End
		if gap >= pauseThresholdMs {
			metrics.PauseCount++
			totalPauseMs += gap
			if secs := float64(gap) / 1000.0; secs > metrics.LongestPauseSecs {
				metrics.LongestPauseSecs = secs
			}
		}
	}
	if metrics.PauseCount > 0 {
		metrics.AvgPauseSeconds = float64(totalPauseMs) / 1000.0 / float64(metrics.PauseCount)
	}

	return metrics
}

// countOccurrences counts whole-word matches of the filler inside the text.
func countOccurrences(text, phrase string) int {
	count := 0
	idx := 0
	for {
		pos := strings.Index(text[idx:], phrase)
		if pos == -1 {
			return count
		}
		abs := idx + pos
		before := abs == 0 || !isWordChar(text[abs-1])
		afterIdx := abs + len(phrase)
		after := afterIdx >= len(text) || !isWordChar(text[afterIdx])
		if before && after {
			count++
		}
		idx = afterIdx
	}
}

func isWordChar(b byte) bool {
	return (b >= 'a' && b <= 'z') || (b >= 'A' && b <= 'Z') || (b >= '0' && b <= '9') || b == '\''
}
