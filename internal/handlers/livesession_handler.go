package handlers

import (
	"errors"

	"github.com/gofiber/fiber/v2"
	"github.com/google/uuid"

	"talentvoice/interview-analyzer/internal/models"
	"talentvoice/interview-analyzer/internal/repositories"
	"talentvoice/interview-analyzer/internal/services"
)

type LiveSessionHandler struct {
	sessions services.LiveSessionService
}

func NewLiveSessionHandler(sessions services.LiveSessionService) *LiveSessionHandler {
	return &LiveSessionHandler{sessions: sessions}
}

// HandleStart handles POST /live-session/start.
func (h *LiveSessionHandler) HandleStart(c *fiber.Ctx) error {
	var req models.StartSessionRequest
	if err := c.BodyParser(&req); err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
			"error": "Invalid request payload",
		})
	}

	if req.CandidateName == "" {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
			"error": "candidate_name is required",
		})
	}

	outcome, err := h.sessions.Start(c.Context(), req)
	if err != nil {
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{
			"error": "failed to start live session",
		})
	}

	return c.Status(fiber.StatusCreated).JSON(models.StartSessionResponse{
		SessionID: outcome.Session.ID.String(),
		State:     string(outcome.Session.State),
		Message:   outcome.Message,
	})
}

// HandleTurn handles POST /live-session/turn.
func (h *LiveSessionHandler) HandleTurn(c *fiber.Ctx) error {
	var req models.SubmitTurnRequest
	if err := c.BodyParser(&req); err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
			"error": "Invalid request payload",
		})
	}

	sessionID, err := uuid.Parse(req.SessionID)
	if err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
			"error": "Invalid session_id format",
		})
	}
	if req.Text == "" {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
			"error": "text is required",
		})
	}

	outcome, err := h.sessions.SubmitTurn(c.Context(), sessionID, req.Text)
	if err != nil {
		if errors.Is(err, services.ErrSessionCompleted) {
			return c.Status(fiber.StatusConflict).JSON(fiber.Map{
				"error": err.Error(),
			})
		}
		if errors.Is(err, repositories.ErrNotFound) {
			return c.Status(fiber.StatusNotFound).JSON(fiber.Map{
				"error": "Live session not found",
			})
		}
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{
			"error": "failed to process turn",
		})
	}

	return c.JSON(turnResponse(outcome))
}

// HandleEnd handles POST /live-session/end. Safe to call repeatedly.
func (h *LiveSessionHandler) HandleEnd(c *fiber.Ctx) error {
	var req models.EndSessionRequest
	if err := c.BodyParser(&req); err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
			"error": "Invalid request payload",
		})
	}

	sessionID, err := uuid.Parse(req.SessionID)
	if err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
			"error": "Invalid session_id format",
		})
	}

	outcome, err := h.sessions.End(c.Context(), sessionID)
	if err != nil {
		if errors.Is(err, repositories.ErrNotFound) {
			return c.Status(fiber.StatusNotFound).JSON(fiber.Map{
				"error": "Live session not found",
			})
		}
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{
			"error": "failed to end live session",
		})
	}

	return c.JSON(turnResponse(outcome))
}

func turnResponse(outcome *services.TurnOutcome) models.TurnResponse {
	resp := models.TurnResponse{
		SessionID: outcome.Session.ID.String(),
		State:     string(outcome.Session.State),
		Message:   outcome.Message,
		Analysis:  outcome.Analysis,
	}
	if outcome.ScoringErr != nil {
		resp.ScoringError = outcome.ScoringErr.Error()
	}
	return resp
}
