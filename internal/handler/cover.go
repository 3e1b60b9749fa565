package handler

import (
	"github.com/go-playground/validator/v10"
	"github.com/gofiber/fiber/v2"

	"github.com/makeasinger/studio/internal/model"
	"github.com/makeasinger/studio/internal/service"
	"github.com/makeasinger/studio/pkg/response"
)

type CoverHandler struct {
	service   *service.CoverService
	validator *validator.Validate
}

func NewCoverHandler(svc *service.CoverService, v *validator.Validate) *CoverHandler {
	return &CoverHandler{
		service:   svc,
		validator: v,
	}
}

// Generate handles POST /api/covers
func (h *CoverHandler) Generate(c *fiber.Ctx) error {
	var req model.CoverGenerateRequest
	if err := c.BodyParser(&req); err != nil {
		return response.ValidationError(c, "Invalid request body", nil)
	}

	if err := h.validator.Struct(&req); err != nil {
		return response.ValidationError(c, "Validation failed", formatValidationErrors(err))
	}

	result, err := h.service.Generate(c.UserContext(), &req)
	if err != nil {
		return response.AIError(c, err.Error())
	}

	return response.OK(c, result)
}
