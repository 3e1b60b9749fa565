package handler

import (
	"errors"

	"github.com/go-playground/validator/v10"
	"github.com/gofiber/fiber/v2"

	"github.com/makeasinger/studio/internal/model"
	"github.com/makeasinger/studio/internal/service"
	"github.com/makeasinger/studio/pkg/response"
)

type TrackHandler struct {
	service   *service.TrackService
	validator *validator.Validate
}

func NewTrackHandler(svc *service.TrackService, v *validator.Validate) *TrackHandler {
	return &TrackHandler{
		service:   svc,
		validator: v,
	}
}

// List handles GET /api/tracks?page=&size=&jobId=
func (h *TrackHandler) List(c *fiber.Ctx) error {
	page, size := pagination(c)
	tracks, err := h.service.List(c.UserContext(), page, size, c.Query("jobId"))
	if err != nil {
		return response.ServiceError(c, "Failed to list tracks")
	}
	return response.OK(c, fiber.Map{
		"tracks": tracks,
		"page":   page,
		"size":   size,
	})
}

// Get handles GET /api/tracks/:id
func (h *TrackHandler) Get(c *fiber.Ctx) error {
	track, err := h.service.Get(c.UserContext(), c.Params("id"))
	if err != nil {
		return trackError(c, err)
	}
	return response.OK(c, track)
}

// Lyrics handles GET /api/tracks/:id/lyrics
func (h *TrackHandler) Lyrics(c *fiber.Ctx) error {
	result, err := h.service.Lyrics(c.UserContext(), c.Params("id"))
	if err != nil {
		return trackError(c, err)
	}
	return response.OK(c, result)
}

// ApplyCover handles PUT /api/tracks/:id/cover
func (h *TrackHandler) ApplyCover(c *fiber.Ctx) error {
	var req model.ApplyCoverRequest
	if err := c.BodyParser(&req); err != nil {
		return response.ValidationError(c, "Invalid request body", nil)
	}

	if err := h.validator.Struct(&req); err != nil {
		return response.ValidationError(c, "Validation failed", formatValidationErrors(err))
	}

	track, err := h.service.ApplyCover(c.UserContext(), c.Params("id"), req.ImageURL)
	if err != nil {
		return trackError(c, err)
	}
	return response.OK(c, track)
}

// Delete handles DELETE /api/tracks/:id
func (h *TrackHandler) Delete(c *fiber.Ctx) error {
	if err := h.service.Delete(c.UserContext(), c.Params("id")); err != nil {
		return trackError(c, err)
	}
	return response.NoContent(c)
}

func trackError(c *fiber.Ctx, err error) error {
	if errors.Is(err, service.ErrTrackNotFound) {
		return response.NotFound(c, "Track not found")
	}
	return response.ServiceError(c, err.Error())
}
