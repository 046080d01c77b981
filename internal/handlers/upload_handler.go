package handlers

import (
	"errors"
	"fmt"
	"io"

	"github.com/gofiber/fiber/v2"

	"talentvoice/interview-analyzer/internal/models"
	"talentvoice/interview-analyzer/internal/services"
)

type UploadHandler struct {
	pipeline    services.PipelineService
	maxFileSize int64
}

func NewUploadHandler(pipeline services.PipelineService, maxFileSize int64) *UploadHandler {
	return &UploadHandler{
		pipeline:    pipeline,
		maxFileSize: maxFileSize,
	}
}

// HandleUpload handles POST /upload. The response returns as soon as the
// synchronous stages finish; transcription and scoring continue in the
// background and the client polls GET /recordings/:id for the final state.
func (h *UploadHandler) HandleUpload(c *fiber.Ctx) error {
	fileHeader, err := c.FormFile("recording")
	if err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
			"error": "missing 'recording' file field",
		})
	}

	if fileHeader.Size > h.maxFileSize {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
			"error": fmt.Sprintf("file too large. Max size: %d bytes", h.maxFileSize),
		})
	}

	src, err := fileHeader.Open()
	if err != nil {
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{
			"error": "failed to open uploaded file",
		})
	}
	defer src.Close()

	data, err := io.ReadAll(src)
	if err != nil {
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{
			"error": "failed to read uploaded file",
		})
	}

	candidateName := c.FormValue("candidate_name")
	mimeType := fileHeader.Header.Get("Content-Type")

	rec, _, err := h.pipeline.ProcessUpload(c.Context(), data, fileHeader.Filename, mimeType, candidateName)
	if err != nil {
		var unsupported *services.UnsupportedTypeError
		if errors.As(err, &unsupported) {
			return c.Status(fiber.StatusUnsupportedMediaType).JSON(fiber.Map{
				"error": unsupported.Error(),
			})
		}
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{
			"error": "failed to process upload",
		})
	}

	return c.Status(fiber.StatusAccepted).JSON(fiber.Map{
		"message":   "Recording received",
		"recording": rec,
	})
}

// HandleExternalSource handles POST /upload/external-source. Unlike the
// multipart path, this waits for the full pipeline before responding.
func (h *UploadHandler) HandleExternalSource(c *fiber.Ctx) error {
	var req models.ExternalSourceRequest
	if err := c.BodyParser(&req); err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
			"error": "Invalid request payload",
		})
	}

	if req.FileID == "" || req.FileName == "" || req.AccessToken == "" {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
			"error": "file_id, file_name and access_token are required",
		})
	}

	rec, err := h.pipeline.ProcessExternalSource(c.Context(), req.FileID, req.FileName, req.AccessToken)
	if err != nil {
		var unsupported *services.UnsupportedTypeError
		if errors.As(err, &unsupported) {
			return c.Status(fiber.StatusUnsupportedMediaType).JSON(fiber.Map{
				"error": unsupported.Error(),
			})
		}
		return c.Status(fiber.StatusBadGateway).JSON(fiber.Map{
			"error": fmt.Sprintf("failed to process external file: %v", err),
		})
	}

	return c.JSON(fiber.Map{
		"message":   "External recording processed",
		"recording": rec,
	})
}
