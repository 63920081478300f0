package handlers

import (
	"encoding/json"
	"errors"

	"github.com/gofiber/fiber/v2"

	"github.com/spec-kit/kanban-service/internal/api/dto"
	"github.com/spec-kit/kanban-service/internal/domain"
	"github.com/spec-kit/kanban-service/internal/service"
	apperrors "github.com/spec-kit/kanban-service/pkg/util/errorutil"
)

// TicketsHandler manages ticket and audit log endpoints.
type TicketsHandler struct {
	service *service.TicketService
}

// NewTicketsHandler constructs handler.
func NewTicketsHandler(ticketService *service.TicketService) *TicketsHandler {
	return &TicketsHandler{service: ticketService}
}

// ListTickets GET /tickets.
func (h *TicketsHandler) ListTickets(c *fiber.Ctx) error {
	tickets, err := h.service.ListTickets(c.UserContext())
	if err != nil {
		return err
	}
	return c.JSON(tickets)
}

// GetTicket GET /tickets/:id.
func (h *TicketsHandler) GetTicket(c *fiber.Ctx) error {
	id, err := pathID(c, "id")
	if err != nil {
		return err
	}
	ticket, err := h.service.GetTicket(c.UserContext(), id)
	if err != nil {
		return err
	}
	return c.JSON(ticket)
}

// CreateTicket POST /tickets.
func (h *TicketsHandler) CreateTicket(c *fiber.Ctx) error {
	var req dto.CreateTicketRequest
	if err := decodeBody(c, &req); err != nil {
		return err
	}

	input := service.TicketCreateInput{
		Title:            req.Title,
		Description:      req.Description,
		StatusID:         req.StatusID,
		TypeID:           req.TypeID,
		ReleaseID:        req.ReleaseID,
		AssignedToUserID: req.AssignedToUserID,
	}
	if req.Position != nil {
		input.Position = *req.Position
	}
	ticket, err := h.service.CreateTicket(c.UserContext(), input)
	if err != nil {
		return err
	}
	return c.Status(fiber.StatusCreated).JSON(ticket)
}

// UpdateTicket PUT /tickets/:id. Keys outside the mutable field set are ignored.
func (h *TicketsHandler) UpdateTicket(c *fiber.Ctx) error {
	id, err := pathID(c, "id")
	if err != nil {
		return err
	}

	var patch domain.TicketPatch
	if err := json.Unmarshal(c.Body(), &patch); err != nil {
		var fieldErr *domain.FieldError
		if errors.As(err, &fieldErr) {
			return apperrors.NewValidationError("invalid field value", map[string]any{
				"field":  string(fieldErr.Field),
				"reason": fieldErr.Reason,
			})
		}
		return apperrors.NewValidationError("invalid JSON payload", nil)
	}

	ticket, err := h.service.UpdateTicket(c.UserContext(), id, patch)
	if err != nil {
		return err
	}
	return c.JSON(ticket)
}

// DeleteTicket DELETE /tickets/:id.
func (h *TicketsHandler) DeleteTicket(c *fiber.Ctx) error {
	id, err := pathID(c, "id")
	if err != nil {
		return err
	}
	if err := h.service.DeleteTicket(c.UserContext(), id); err != nil {
		return err
	}
	return c.JSON(dto.DeleteTicketResponse{ID: id, Deleted: true})
}

// ListAuditLog GET /audit-logs/:ticketId. Unknown tickets return an empty list.
func (h *TicketsHandler) ListAuditLog(c *fiber.Ctx) error {
	ticketID, err := pathID(c, "ticketId")
	if err != nil {
		return err
	}
	entries, err := h.service.ListAuditLog(c.UserContext(), ticketID)
	if err != nil {
		return err
	}
	return c.JSON(entries)
}

// decodeBody parses a JSON object body regardless of Content-Type. A missing
// or null body decodes to the zero value.
func decodeBody(c *fiber.Ctx, out any) error {
	body := c.Body()
	if len(body) == 0 {
		return nil
	}
	if err := json.Unmarshal(body, out); err != nil {
		return apperrors.NewValidationError("invalid JSON payload", nil)
	}
	return nil
}
