package handlers

import (
	"github.com/gofiber/fiber/v2"

	"github.com/spec-kit/intake-desk/internal/api/dto"
	"github.com/spec-kit/intake-desk/internal/service"
	apperrors "github.com/spec-kit/intake-desk/pkg/util/errorutil"
)

// TicketsHandler manages admin ticket endpoints.
type TicketsHandler struct {
	service *service.TicketService
}

// NewTicketsHandler constructs handler.
func NewTicketsHandler(ticketService *service.TicketService) *TicketsHandler {
	return &TicketsHandler{service: ticketService}
}

// ListTickets GET /admin/api/tickets. Unless scan=false, the listing also
// runs the overdue alert pass.
func (h *TicketsHandler) ListTickets(c *fiber.Ctx) error {
	filter := service.ListFilter{
		Query:  c.Query("q"),
		Kind:   c.Query("kind"),
		Status: c.Query("status"),
	}
	list := h.service.Dashboard
	if !c.QueryBool("scan", true) {
		list = h.service.List
	}
	views, err := list(c.UserContext(), filter)
	if err != nil {
		return err
	}
	return c.JSON(dto.TicketListResponse{OK: true, Items: views})
}

// GetTicket GET /admin/api/tickets/:ticket.
func (h *TicketsHandler) GetTicket(c *fiber.Ctx) error {
	view, err := h.service.Get(c.UserContext(), c.Params("ticket"))
	if err != nil {
		return err
	}
	return c.JSON(dto.TicketResponse{OK: true, Item: view})
}

// UpdateTicket PATCH /admin/api/tickets/:ticket.
func (h *TicketsHandler) UpdateTicket(c *fiber.Ctx) error {
	var req dto.UpdateTicketRequest
	if err := c.BodyParser(&req); err != nil {
		return apperrors.NewValidationError("invalid payload", nil)
	}
	res, err := h.service.Update(c.UserContext(), c.Params("ticket"), service.UpdateInput{
		Status:        req.Status,
		Note:          req.Note,
		NotifyClient:  req.EmailClient,
		NotifySubject: req.EmailSubject,
	})
	if err != nil {
		return err
	}
	return c.JSON(dto.UpdateTicketResponse{
		OK:         true,
		Item:       res.View,
		EmailSent:  res.EmailSent,
		EmailError: res.EmailError,
	})
}
