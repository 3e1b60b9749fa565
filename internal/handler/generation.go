package handler

import (
	"errors"

	"github.com/go-playground/validator/v10"
	"github.com/gofiber/fiber/v2"

	"github.com/makeasinger/studio/internal/generation"
	"github.com/makeasinger/studio/internal/model"
	"github.com/makeasinger/studio/pkg/response"
)

type GenerationHandler struct {
	manager   *generation.Manager
	validator *validator.Validate
}

func NewGenerationHandler(manager *generation.Manager, v *validator.Validate) *GenerationHandler {
	return &GenerationHandler{
		manager:   manager,
		validator: v,
	}
}

// Submit handles POST /api/generations
func (h *GenerationHandler) Submit(c *fiber.Ctx) error {
	var req model.SongDetails
	if err := c.BodyParser(&req); err != nil {
		return response.ValidationError(c, "Invalid request body", nil)
	}

	if err := h.validator.Struct(&req); err != nil {
		return response.ValidationError(c, "Validation failed", formatValidationErrors(err))
	}

	jobID, err := h.manager.Submit(req)
	switch {
	case generation.IsConcurrencyLimit(err):
		return response.ConcurrencyLimit(c, err.Error(), fiber.Map{
			"active":   h.manager.ActiveCount(),
			"capacity": h.manager.Capacity(),
		})
	case errors.Is(err, generation.ErrClosed):
		return response.ServiceError(c, "Generation service is shutting down")
	case err != nil:
		return response.ServiceError(c, err.Error())
	}

	return response.Accepted(c, model.GenerationStartResponse{
		JobID:  jobID,
		Status: string(generation.StatusStarting),
	})
}

// List handles GET /api/generations
func (h *GenerationHandler) List(c *fiber.Ctx) error {
	return response.OK(c, fiber.Map{
		"jobs":     h.manager.List(),
		"active":   h.manager.ActiveCount(),
		"capacity": h.manager.Capacity(),
		"queued":   h.manager.Queue().Len(),
	})
}

// Get handles GET /api/generations/:id
func (h *GenerationHandler) Get(c *fiber.Ctx) error {
	job, ok := h.manager.Get(c.Params("id"))
	if !ok {
		return response.NotFound(c, "Job not found")
	}
	return response.OK(c, job)
}

// Cancel handles POST /api/generations/:id/cancel. Cancelling an unknown or
// finished job succeeds with an empty list.
func (h *GenerationHandler) Cancel(c *fiber.Ctx) error {
	id := c.Params("id")
	cancelled := []string{}
	if h.manager.Cancel(id) {
		cancelled = append(cancelled, id)
	}
	return response.OK(c, model.GenerationCancelResponse{Success: true, Cancelled: cancelled})
}

// CancelAll handles POST /api/generations/cancel-all
func (h *GenerationHandler) CancelAll(c *fiber.Ctx) error {
	cancelled := h.manager.CancelAll()
	if cancelled == nil {
		cancelled = []string{}
	}
	return response.OK(c, model.GenerationCancelResponse{Success: true, Cancelled: cancelled})
}

// NextCompleted handles GET /api/generations/completed/next
func (h *GenerationHandler) NextCompleted(c *fiber.Ctx) error {
	id, ok := h.manager.Queue().DequeueNext()
	if !ok {
		return response.NoContent(c)
	}
	return response.OK(c, model.CompletedJobResponse{JobID: id})
}
