package handlers

import (
	"errors"

	"github.com/gofiber/fiber/v2"
	"github.com/google/uuid"

	"talentvoice/interview-analyzer/internal/repositories"
)

type RecordingHandler struct {
	recordings repositories.RecordingRepository
}

func NewRecordingHandler(recordings repositories.RecordingRepository) *RecordingHandler {
	return &RecordingHandler{recordings: recordings}
}

// HandleList handles GET /recordings (newest first).
func (h *RecordingHandler) HandleList(c *fiber.Ctx) error {
	limit := c.QueryInt("limit", 50)
	if limit <= 0 || limit > 200 {
		limit = 50
	}

	recs, err := h.recordings.FindAll(limit)
	if err != nil {
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{
			"error": "failed to list recordings",
		})
	}

	return c.JSON(fiber.Map{
		"recordings": recs,
	})
}

// HandleGet handles GET /recordings/:id. Readable at any pipeline stage.
func (h *RecordingHandler) HandleGet(c *fiber.Ctx) error {
	id, err := uuid.Parse(c.Params("id"))
	if err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
			"error": "Invalid recording ID format",
		})
	}

	rec, err := h.recordings.FindByID(id)
	if err != nil {
		if errors.Is(err, repositories.ErrNotFound) {
			return c.Status(fiber.StatusNotFound).JSON(fiber.Map{
				"error": "Recording not found",
			})
		}
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{
			"error": "failed to load recording",
		})
	}

	return c.JSON(rec)
}
