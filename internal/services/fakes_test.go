package services

import (
	"context"
	"fmt"
	"sync"

	"github.com/google/uuid"

	"talentvoice/interview-analyzer/internal/models"
	"talentvoice/interview-analyzer/internal/repositories"
)

// In-memory RecordingRepository mirroring the SQL claim semantics.
type fakeRecordingRepo struct {
	mu          sync.Mutex
	byID        map[uuid.UUID]*models.Recording
	createCalls int
}

func newFakeRecordingRepo() *fakeRecordingRepo {
	return &fakeRecordingRepo{byID: map[uuid.UUID]*models.Recording{}}
}

func (f *fakeRecordingRepo) Create(rec *models.Recording) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.createCalls++
	cp := *rec
	f.byID[rec.ID] = &cp
	return nil
}

func (f *fakeRecordingRepo) ClaimNew(rec *models.Recording) (bool, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	for _, r := range f.byID {
		if r.ContentFingerprint == rec.ContentFingerprint {
			return false, nil
		}
	}
	f.createCalls++
	cp := *rec
	f.byID[rec.ID] = &cp
	return true, nil
}

func (f *fakeRecordingRepo) ClaimReprocess(id uuid.UUID) (bool, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	r, ok := f.byID[id]
	if !ok || r.Status != models.StatusPending {
		return false, nil
	}
	r.Status = models.StatusProcessing
	return true, nil
}

func (f *fakeRecordingRepo) FindByID(id uuid.UUID) (*models.Recording, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	r, ok := f.byID[id]
	if !ok {
		return nil, fmt.Errorf("recording %s: %w", id, repositories.ErrNotFound)
	}
	cp := *r
	return &cp, nil
}

func (f *fakeRecordingRepo) FindByFingerprint(fingerprint string) (*models.Recording, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	for _, r := range f.byID {
		if r.ContentFingerprint == fingerprint {
			cp := *r
			return &cp, nil
		}
	}
	return nil, nil
}

func (f *fakeRecordingRepo) FindAll(limit int) ([]models.Recording, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	var out []models.Recording
	for _, r := range f.byID {
		out = append(out, *r)
		if len(out) == limit {
			break
		}
	}
	return out, nil
}

func (f *fakeRecordingRepo) UpdateStorage(id uuid.UUID, storedFileName, retrievalURL string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	r, ok := f.byID[id]
	if !ok {
		return fmt.Errorf("recording not found")
	}
	r.StoredFileName = storedFileName
	r.RetrievalURL = retrievalURL
	return nil
}

func (f *fakeRecordingRepo) UpdateScored(id uuid.UUID, transcript string, metrics *models.SpeechMetrics, scores *models.CommunicationScores) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	r, ok := f.byID[id]
	if !ok {
		return fmt.Errorf("recording not found")
	}
	r.Status = models.StatusScored
	r.TranscriptText = &transcript
	r.SpeechMetrics = metrics
	r.Scores = scores
	r.ErrorMessage = nil
	return nil
}

func (f *fakeRecordingRepo) UpdateSoftFail(id uuid.UUID, errorMsg string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	r, ok := f.byID[id]
	if !ok || r.Status == models.StatusScored {
		return nil
	}
	r.Status = models.StatusPending
	r.ErrorMessage = &errorMsg
	return nil
}

func (f *fakeRecordingRepo) Delete(id uuid.UUID) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	delete(f.byID, id)
	return nil
}

type fakeLiveSessionRepo struct {
	mu   sync.Mutex
	byID map[uuid.UUID]*models.LiveSession
}

func newFakeLiveSessionRepo() *fakeLiveSessionRepo {
	return &fakeLiveSessionRepo{byID: map[uuid.UUID]*models.LiveSession{}}
}

func (f *fakeLiveSessionRepo) Create(session *models.LiveSession) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	cp := *session
	f.byID[session.ID] = &cp
	return nil
}

func (f *fakeLiveSessionRepo) FindByID(id uuid.UUID) (*models.LiveSession, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	s, ok := f.byID[id]
	if !ok {
		return nil, fmt.Errorf("live session %s: %w", id, repositories.ErrNotFound)
	}
	cp := *s
	return &cp, nil
}

func (f *fakeLiveSessionRepo) Save(session *models.LiveSession) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	cp := *session
	f.byID[session.ID] = &cp
	return nil
}

type fakeTranscoder struct {
	out   []byte
	err   error
	calls int
}

func (f *fakeTranscoder) ExtractAudio(ctx context.Context, video []byte, originalName string) ([]byte, error) {
	f.calls++
	if f.err != nil {
		return nil, f.err
	}
	return f.out, nil
}

type fakeObjectStore struct {
	err          error
	calls        int
	lastFilename string
	lastData     []byte
}

func (f *fakeObjectStore) UploadAudio(ctx context.Context, data []byte, filename string) (*StoredObject, error) {
	f.calls++
	f.lastFilename = filename
	f.lastData = data
	if f.err != nil {
		return nil, f.err
	}
	return &StoredObject{
		Key:          "recordings/test_" + filename,
		RetrievalURL: "https://store.example/" + filename,
	}, nil
}

func (f *fakeObjectStore) RetrievalURL(ctx context.Context, key string) (string, error) {
	return "https://store.example/" + key, nil
}

type fakeTranscriptionService struct {
	result *TranscriptionResult
	err    error
	calls  int
}

func (f *fakeTranscriptionService) Transcribe(ctx context.Context, audioURL string) (*TranscriptionResult, error) {
	f.calls++
	if f.err != nil {
		return nil, f.err
	}
	return f.result, nil
}

type fakeScoringService struct {
	scores *models.CommunicationScores
	err    error
	calls  int
}

func (f *fakeScoringService) ScoreTranscript(ctx context.Context, transcript, candidateName string) (*models.CommunicationScores, error) {
	f.calls++
	if f.err != nil {
		return nil, f.err
	}
	return f.scores, nil
}

type fakeDriveService struct {
	data []byte
	err  error
}

func (f *fakeDriveService) Download(ctx context.Context, fileID, accessToken string) ([]byte, error) {
	if f.err != nil {
		return nil, f.err
	}
	return f.data, nil
}

type fakeGeminiService struct {
	response string
	err      error
	calls    int
}

func (f *fakeGeminiService) GenerateText(ctx context.Context, prompt string, temperature float32) (string, error) {
	return f.GenerateTextWithRetry(ctx, prompt, temperature, 1)
}

func (f *fakeGeminiService) GenerateTextWithRetry(ctx context.Context, prompt string, temperature float32, maxRetries int) (string, error) {
	f.calls++
	if f.err != nil {
		return "", f.err
	}
	return f.response, nil
}

// syncDispatcher runs tasks inline so tests observe terminal pipeline state
// without sleeping.
type syncDispatcher struct{}

func (syncDispatcher) Start(ctx context.Context) {}
func (syncDispatcher) Stop()                     {}

func (syncDispatcher) Dispatch(name string, fn func(ctx context.Context) error) <-chan error {
	done := make(chan error, 1)
	done <- fn(context.Background())
	return done
}

func validScores() *models.CommunicationScores {
	return &models.CommunicationScores{
		OverallCommunicationScore: 7.5,
		Summary:                   "Clear and confident overall.",
		SpeechMetricsAnalysis:     "Good pace with few fillers.",
		LanguageQuality: models.LanguageQuality{
			Grammar: 8, Vocabulary: 7, SentenceConstruction: 7.5,
		},
		CommunicationSkills: models.CommunicationAxes{
			Fluency: 8, Clarity: 7, Confidence: 8, Structure: 7, Relevance: 7, Engagement: 7,
		},
		CoachingFeedback: models.CoachingFeedback{
			WhatWentWell:  []string{"Concise answers"},
			WhatToImprove: []string{"Add concrete examples"},
		},
	}
}

func testTranscriptionResult() *TranscriptionResult {
	return &TranscriptionResult{
		Text: "Speaker 1: hello world testing one two three [NEUTRAL]",
		Metrics: &models.SpeechMetrics{
			WordsPerMinute:   120,
			TotalWords:       6,
			FillerWordCounts: map[string]int{},
			DurationSeconds:  30,
		},
	}
}
