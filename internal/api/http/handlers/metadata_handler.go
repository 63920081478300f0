package handlers

import (
	"github.com/gofiber/fiber/v2"

	"github.com/spec-kit/kanban-service/internal/api/dto"
	"github.com/spec-kit/kanban-service/internal/service"
)

// MetadataHandler serves the taxonomy endpoints.
type MetadataHandler struct {
	service *service.MetadataService
}

func NewMetadataHandler(metadataService *service.MetadataService) *MetadataHandler {
	return &MetadataHandler{service: metadataService}
}

// List GET /metadata/:kind.
func (h *MetadataHandler) List(c *fiber.Ctx) error {
	kind, err := service.ParseKind(c.Params("kind"))
	if err != nil {
		return err
	}
	rows, err := h.service.List(c.UserContext(), kind)
	if err != nil {
		return err
	}
	return c.JSON(rows)
}

// Create POST /metadata/:kind.
func (h *MetadataHandler) Create(c *fiber.Ctx) error {
	kind, err := service.ParseKind(c.Params("kind"))
	if err != nil {
		return err
	}
	var req dto.CreateMetadataRequest
	if err := decodeBody(c, &req); err != nil {
		return err
	}
	created, err := h.service.Create(c.UserContext(), kind, service.MetadataCreateInput{
		Name:      req.Name,
		Position:  req.Position,
		Email:     req.Email,
		AvatarURL: req.AvatarURL,
	})
	if err != nil {
		return err
	}
	return c.Status(fiber.StatusCreated).JSON(created)
}
