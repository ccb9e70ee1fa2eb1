package handler

import (
	"github.com/vishal-grover-dev/iq-sub000/internal/dto"
	"github.com/vishal-grover-dev/iq-sub000/internal/middleware"
	"github.com/vishal-grover-dev/iq-sub000/internal/service"

	"github.com/gofiber/fiber/v2"
)

// AttemptHandler handles attempt-scoped HTTP requests
type AttemptHandler struct {
	selection service.SelectionService
}

// NewAttemptHandler creates a new AttemptHandler instance
func NewAttemptHandler(selection service.SelectionService) *AttemptHandler {
	return &AttemptHandler{selection: selection}
}

// GetNextQuestion handles GET /api/attempts/:id/next-question
func (h *AttemptHandler) GetNextQuestion(c *fiber.Ctx) error {
	attemptID := c.Params("id")
	if attemptID == "" {
		return c.Status(fiber.StatusBadRequest).JSON(dto.ErrorResponse{
			Error: "attempt id is required",
		})
	}

	userID, ok := c.Locals(middleware.UserIDKey).(string)
	if !ok || userID == "" {
		return c.Status(fiber.StatusUnauthorized).JSON(dto.ErrorResponse{
			Error: "UNAUTHORIZED",
		})
	}

	result, err := h.selection.NextQuestion(c.Context(), attemptID, userID)
	if err != nil {
		// The error-handler middleware maps domain codes to statuses.
		return err
	}
	return c.JSON(result)
}

// GetAttempt handles GET /api/attempts/:id
func (h *AttemptHandler) GetAttempt(c *fiber.Ctx) error {
	attemptID := c.Params("id")
	if attemptID == "" {
		return c.Status(fiber.StatusBadRequest).JSON(dto.ErrorResponse{
			Error: "attempt id is required",
		})
	}

	userID, ok := c.Locals(middleware.UserIDKey).(string)
	if !ok || userID == "" {
		return c.Status(fiber.StatusUnauthorized).JSON(dto.ErrorResponse{
			Error: "UNAUTHORIZED",
		})
	}

	summary, err := h.selection.GetAttemptSummary(c.Context(), attemptID, userID)
	if err != nil {
		return err
	}
	return c.JSON(summary)
}
