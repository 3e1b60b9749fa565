package handler

import (
	"github.com/go-playground/validator/v10"
	"github.com/gofiber/fiber/v2"

	"github.com/makeasinger/studio/internal/model"
	"github.com/makeasinger/studio/internal/service"
	"github.com/makeasinger/studio/pkg/response"
)

type ChatHandler struct {
	service   *service.ChatService
	validator *validator.Validate
}

func NewChatHandler(svc *service.ChatService, v *validator.Validate) *ChatHandler {
	return &ChatHandler{
		service:   svc,
		validator: v,
	}
}

// Reply handles POST /api/chat
func (h *ChatHandler) Reply(c *fiber.Ctx) error {
	var req model.ChatRequest
	if err := c.BodyParser(&req); err != nil {
		return response.ValidationError(c, "Invalid request body", nil)
	}

	if err := h.validator.Struct(&req); err != nil {
		return response.ValidationError(c, "Validation failed", formatValidationErrors(err))
	}

	result, err := h.service.Reply(c.UserContext(), &req)
	if err != nil {
		return response.AIError(c, err.Error())
	}

	return response.OK(c, result)
}
