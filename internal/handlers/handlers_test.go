package handlers

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/gofiber/fiber/v2"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"talentvoice/interview-analyzer/internal/models"
	"talentvoice/interview-analyzer/internal/repositories"
	"talentvoice/interview-analyzer/internal/services"
)

type stubPipeline struct {
	rec *models.Recording
	err error
}

func (s *stubPipeline) ProcessUpload(ctx context.Context, data []byte, filename, mimeType, candidateName string) (*models.Recording, <-chan error, error) {
	if s.err != nil {
		return nil, nil, s.err
	}
	return s.rec, nil, nil
}

func (s *stubPipeline) ProcessExternalSource(ctx context.Context, fileID, fileName, accessToken string) (*models.Recording, error) {
	if s.err != nil {
		return nil, s.err
	}
	return s.rec, nil
}

type stubSessions struct {
	outcome *services.TurnOutcome
	err     error
}

func (s *stubSessions) Start(ctx context.Context, req models.StartSessionRequest) (*services.TurnOutcome, error) {
	return s.outcome, s.err
}

func (s *stubSessions) SubmitTurn(ctx context.Context, sessionID uuid.UUID, text string) (*services.TurnOutcome, error) {
	return s.outcome, s.err
}

func (s *stubSessions) End(ctx context.Context, sessionID uuid.UUID) (*services.TurnOutcome, error) {
	return s.outcome, s.err
}

func multipartUpload(t *testing.T, fieldName, fileName string, content []byte) (*bytes.Buffer, string) {
	t.Helper()
	body := &bytes.Buffer{}
	writer := multipart.NewWriter(body)
	part, err := writer.CreateFormFile(fieldName, fileName)
	require.NoError(t, err)
	_, err = part.Write(content)
	require.NoError(t, err)
	require.NoError(t, writer.Close())
	return body, writer.FormDataContentType()
}

func decodeBody(t *testing.T, resp *http.Response) map[string]any {
	t.Helper()
	var out map[string]any
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&out))
	return out
}

func TestHandleUploadAcceptsRecording(t *testing.T) {
	rec := &models.Recording{ID: uuid.New(), Status: models.StatusProcessing}
	h := NewUploadHandler(&stubPipeline{rec: rec}, 1024*1024)

	app := fiber.New()
	app.Post("/upload", h.HandleUpload)

	body, contentType := multipartUpload(t, "recording", "answer.wav", []byte("wav-bytes"))
	req := httptest.NewRequest(http.MethodPost, "/upload", body)
	req.Header.Set("Content-Type", contentType)

	resp, err := app.Test(req)
	require.NoError(t, err)
	assert.Equal(t, fiber.StatusAccepted, resp.StatusCode)

	payload := decodeBody(t, resp)
	assert.Equal(t, "Recording received", payload["message"])
}

func TestHandleUploadRequiresFileField(t *testing.T) {
	h := NewUploadHandler(&stubPipeline{}, 1024)

	app := fiber.New()
	app.Post("/upload", h.HandleUpload)

	body, contentType := multipartUpload(t, "wrong_field", "answer.wav", []byte("wav-bytes"))
	req := httptest.NewRequest(http.MethodPost, "/upload", body)
	req.Header.Set("Content-Type", contentType)

	resp, err := app.Test(req)
	require.NoError(t, err)
	assert.Equal(t, fiber.StatusBadRequest, resp.StatusCode)
}

func TestHandleUploadRejectsUnsupportedType(t *testing.T) {
	h := NewUploadHandler(&stubPipeline{err: &services.UnsupportedTypeError{MimeType: "application/pdf"}}, 1024*1024)

	app := fiber.New()
	app.Post("/upload", h.HandleUpload)

	body, contentType := multipartUpload(t, "recording", "resume.pdf", []byte("%PDF-1.4"))
	req := httptest.NewRequest(http.MethodPost, "/upload", body)
	req.Header.Set("Content-Type", contentType)

	resp, err := app.Test(req)
	require.NoError(t, err)
	assert.Equal(t, fiber.StatusUnsupportedMediaType, resp.StatusCode)
}

func TestHandleExternalSourceValidatesFields(t *testing.T) {
	h := NewUploadHandler(&stubPipeline{}, 1024)

	app := fiber.New()
	app.Post("/upload/external-source", h.HandleExternalSource)

	req := httptest.NewRequest(http.MethodPost, "/upload/external-source",
		strings.NewReader(`{"file_id": "abc"}`))
	req.Header.Set("Content-Type", "application/json")

	resp, err := app.Test(req)
	require.NoError(t, err)
	assert.Equal(t, fiber.StatusBadRequest, resp.StatusCode)
}

func TestHandleExternalSourceReturnsTerminalRecording(t *testing.T) {
	transcript := "Speaker 1: hello"
	rec := &models.Recording{ID: uuid.New(), Status: models.StatusScored, TranscriptText: &transcript}
	h := NewUploadHandler(&stubPipeline{rec: rec}, 1024)

	app := fiber.New()
	app.Post("/upload/external-source", h.HandleExternalSource)

	req := httptest.NewRequest(http.MethodPost, "/upload/external-source",
		strings.NewReader(`{"file_id": "abc", "file_name": "call.wav", "access_token": "tok"}`))
	req.Header.Set("Content-Type", "application/json")

	resp, err := app.Test(req, 5000)
	require.NoError(t, err)
	assert.Equal(t, fiber.StatusOK, resp.StatusCode)

	payload := decodeBody(t, resp)
	recording := payload["recording"].(map[string]any)
	assert.Equal(t, string(models.StatusScored), recording["status"])
}

func TestHandleExternalSourceDownstreamFailure(t *testing.T) {
	h := NewUploadHandler(&stubPipeline{err: fmt.Errorf("drive returned 403")}, 1024)

	app := fiber.New()
	app.Post("/upload/external-source", h.HandleExternalSource)

	req := httptest.NewRequest(http.MethodPost, "/upload/external-source",
		strings.NewReader(`{"file_id": "abc", "file_name": "call.wav", "access_token": "tok"}`))
	req.Header.Set("Content-Type", "application/json")

	resp, err := app.Test(req)
	require.NoError(t, err)
	assert.Equal(t, fiber.StatusBadGateway, resp.StatusCode)
}

func TestHandleStartCreatesSession(t *testing.T) {
	session := &models.LiveSession{ID: uuid.New(), State: models.SessionAISpeaking}
	h := NewLiveSessionHandler(&stubSessions{outcome: &services.TurnOutcome{
		Session: session,
		Message: "Hello Ada, welcome to your interview.",
	}})

	app := fiber.New()
	app.Post("/live-session/start", h.HandleStart)

	req := httptest.NewRequest(http.MethodPost, "/live-session/start",
		strings.NewReader(`{"candidate_name": "Ada", "role": "Backend Engineer"}`))
	req.Header.Set("Content-Type", "application/json")

	resp, err := app.Test(req)
	require.NoError(t, err)
	assert.Equal(t, fiber.StatusCreated, resp.StatusCode)

	payload := decodeBody(t, resp)
	assert.Equal(t, session.ID.String(), payload["session_id"])
	assert.Equal(t, string(models.SessionAISpeaking), payload["state"])
}

func TestHandleStartRequiresCandidateName(t *testing.T) {
	h := NewLiveSessionHandler(&stubSessions{})

	app := fiber.New()
	app.Post("/live-session/start", h.HandleStart)

	req := httptest.NewRequest(http.MethodPost, "/live-session/start", strings.NewReader(`{}`))
	req.Header.Set("Content-Type", "application/json")

	resp, err := app.Test(req)
	require.NoError(t, err)
	assert.Equal(t, fiber.StatusBadRequest, resp.StatusCode)
}

func TestHandleTurnCompletedSessionConflicts(t *testing.T) {
	h := NewLiveSessionHandler(&stubSessions{err: services.ErrSessionCompleted})

	app := fiber.New()
	app.Post("/live-session/turn", h.HandleTurn)

	body := fmt.Sprintf(`{"session_id": %q, "text": "one more answer"}`, uuid.New())
	req := httptest.NewRequest(http.MethodPost, "/live-session/turn", strings.NewReader(body))
	req.Header.Set("Content-Type", "application/json")

	resp, err := app.Test(req)
	require.NoError(t, err)
	assert.Equal(t, fiber.StatusConflict, resp.StatusCode)
}

func TestHandleTurnRejectsMalformedSessionID(t *testing.T) {
	h := NewLiveSessionHandler(&stubSessions{})

	app := fiber.New()
	app.Post("/live-session/turn", h.HandleTurn)

	req := httptest.NewRequest(http.MethodPost, "/live-session/turn",
		strings.NewReader(`{"session_id": "not-a-uuid", "text": "hi"}`))
	req.Header.Set("Content-Type", "application/json")

	resp, err := app.Test(req)
	require.NoError(t, err)
	assert.Equal(t, fiber.StatusBadRequest, resp.StatusCode)
}

func TestHandleTurnUnknownSessionIsNotFound(t *testing.T) {
	h := NewLiveSessionHandler(&stubSessions{err: fmt.Errorf("live session %s: %w", uuid.New(), repositories.ErrNotFound)})

	app := fiber.New()
	app.Post("/live-session/turn", h.HandleTurn)

	body := fmt.Sprintf(`{"session_id": %q, "text": "hello"}`, uuid.New())
	req := httptest.NewRequest(http.MethodPost, "/live-session/turn", strings.NewReader(body))
	req.Header.Set("Content-Type", "application/json")

	resp, err := app.Test(req)
	require.NoError(t, err)
	assert.Equal(t, fiber.StatusNotFound, resp.StatusCode)
}

func TestHandleTurnRepositoryFailureIsInternal(t *testing.T) {
	h := NewLiveSessionHandler(&stubSessions{err: fmt.Errorf("failed to find live session: connection refused")})

	app := fiber.New()
	app.Post("/live-session/turn", h.HandleTurn)

	body := fmt.Sprintf(`{"session_id": %q, "text": "hello"}`, uuid.New())
	req := httptest.NewRequest(http.MethodPost, "/live-session/turn", strings.NewReader(body))
	req.Header.Set("Content-Type", "application/json")

	resp, err := app.Test(req)
	require.NoError(t, err)
	assert.Equal(t, fiber.StatusInternalServerError, resp.StatusCode)
}

func TestHandleEndRepositoryFailureIsInternal(t *testing.T) {
	h := NewLiveSessionHandler(&stubSessions{err: fmt.Errorf("failed to find live session: connection refused")})

	app := fiber.New()
	app.Post("/live-session/end", h.HandleEnd)

	body := fmt.Sprintf(`{"session_id": %q}`, uuid.New())
	req := httptest.NewRequest(http.MethodPost, "/live-session/end", strings.NewReader(body))
	req.Header.Set("Content-Type", "application/json")

	resp, err := app.Test(req)
	require.NoError(t, err)
	assert.Equal(t, fiber.StatusInternalServerError, resp.StatusCode)
}

func TestHandleEndReportsSoftScoringError(t *testing.T) {
	session := &models.LiveSession{ID: uuid.New(), State: models.SessionCompleted}
	h := NewLiveSessionHandler(&stubSessions{outcome: &services.TurnOutcome{
		Session:    session,
		Message:    "Thank you, that concludes our interview.",
		ScoringErr: &services.ScoringParseError{Reason: "no JSON object found in response"},
	}})

	app := fiber.New()
	app.Post("/live-session/end", h.HandleEnd)

	body := fmt.Sprintf(`{"session_id": %q}`, session.ID)
	req := httptest.NewRequest(http.MethodPost, "/live-session/end", strings.NewReader(body))
	req.Header.Set("Content-Type", "application/json")

	resp, err := app.Test(req)
	require.NoError(t, err)
	assert.Equal(t, fiber.StatusOK, resp.StatusCode)

	payload := decodeBody(t, resp)
	assert.Equal(t, string(models.SessionCompleted), payload["state"])
	assert.NotEmpty(t, payload["scoring_error"])
	assert.Nil(t, payload["analysis"])
}
