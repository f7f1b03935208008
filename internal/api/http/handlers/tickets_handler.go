package handlers

import (
	"bytes"
	"errors"
	"net/url"
	"strings"

	"github.com/gofiber/fiber/v2"

	"github.com/stanachoad2-cyber/MaintenanceApp/internal/api/dto"
	"github.com/stanachoad2-cyber/MaintenanceApp/internal/auth"
	"github.com/stanachoad2-cyber/MaintenanceApp/internal/domain"
	"github.com/stanachoad2-cyber/MaintenanceApp/internal/service"
	apperrors "github.com/stanachoad2-cyber/MaintenanceApp/pkg/util"
)

// TicketsHandler serves the dashboard and work-order endpoints.
type TicketsHandler struct {
	service *service.TicketService
	export  *service.ExportService
}

// NewTicketsHandler constructs handler.
func NewTicketsHandler(ticketService *service.TicketService, exportService *service.ExportService) *TicketsHandler {
	return &TicketsHandler{service: ticketService, export: exportService}
}

// CreateTicket POST /tickets.
func (h *TicketsHandler) CreateTicket(c *fiber.Ctx) error {
	user, err := auth.CurrentUser(c)
	if err != nil {
		return err
	}
	var req dto.CreateTicketRequest
	if err := c.BodyParser(&req); err != nil {
		return apperrors.NewValidationError("invalid payload", nil)
	}

	ticket, err := h.service.Create(c.UserContext(), user, service.TicketCreateInput{
		MachineID:    req.MachineID,
		MachineName:  req.MachineName,
		JobType:      req.JobType,
		JobTypeOther: req.JobTypeOther,
		Department:   req.Department,
		Factory:      req.Factory,
		Area:         req.Area,
		AreaOther:    req.AreaOther,
		IssueItem:    req.IssueItem,
		IssueDetail:  req.IssueDetail,
		ImageURL:     req.ImageURL,
	})
	if err != nil {
		return err
	}
	view := service.TicketView{Ticket: *ticket}
	return c.Status(fiber.StatusCreated).JSON(fiber.Map{"data": ticketResponse(&view)})
}

// ListTickets GET /tickets?tab=&month=&department=.
func (h *TicketsHandler) ListTickets(c *fiber.Ctx) error {
	user, err := auth.CurrentUser(c)
	if err != nil {
		return err
	}
	views, err := h.service.List(c.UserContext(), user, service.TicketListFilter{
		Tab:        service.Tab(strings.ToLower(strings.TrimSpace(c.Query("tab")))),
		Month:      c.Query("month"),
		Department: c.Query("department"),
	})
	if err != nil {
		return err
	}
	items := make([]dto.TicketResponse, 0, len(views))
	for i := range views {
		items = append(items, ticketResponse(&views[i]))
	}
	return c.JSON(fiber.Map{"data": items})
}

// Counts GET /tickets/counts.
func (h *TicketsHandler) Counts(c *fiber.Ctx) error {
	counts, err := h.service.Counts(c.UserContext())
	if err != nil {
		return err
	}
	byTab := make(map[string]int, len(counts.ByTab))
	for tab, n := range counts.ByTab {
		byTab[string(tab)] = n
	}
	return c.JSON(fiber.Map{"data": dto.TicketCountsResponse{ByStatus: counts.ByStatus, ByTab: byTab}})
}

// Departments GET /tickets/departments.
func (h *TicketsHandler) Departments(c *fiber.Ctx) error {
	depts, err := h.service.Departments(c.UserContext())
	if err != nil {
		return err
	}
	return c.JSON(fiber.Map{"data": depts})
}

// GetTicket GET /tickets/:id.
func (h *TicketsHandler) GetTicket(c *fiber.Ctx) error {
	user, err := auth.CurrentUser(c)
	if err != nil {
		return err
	}
	id, err := ticketID(c)
	if err != nil {
		return err
	}
	view, err := h.service.Get(c.UserContext(), user, id)
	if err != nil {
		return err
	}
	return c.JSON(fiber.Map{"data": ticketResponse(view)})
}

// History GET /tickets/:id/history.
func (h *TicketsHandler) History(c *fiber.Ctx) error {
	id, err := ticketID(c)
	if err != nil {
		return err
	}
	entries, err := h.service.History(c.UserContext(), id)
	if err != nil {
		return err
	}
	return c.JSON(fiber.Map{"data": historyResponses(entries)})
}

// Action POST /tickets/:id/actions/:action. The body is an optional findings patch.
func (h *TicketsHandler) Action(c *fiber.Ctx) error {
	user, err := auth.CurrentUser(c)
	if err != nil {
		return err
	}
	id, err := ticketID(c)
	if err != nil {
		return err
	}
	action, err := domain.ParseAction(c.Params("action"))
	if err != nil {
		return apperrors.NewValidationError(err.Error(), map[string]any{"action": c.Params("action")})
	}

	var req *dto.ActionRequest
	if len(c.Body()) > 0 {
		req = &dto.ActionRequest{}
		if err := c.BodyParser(req); err != nil {
			return apperrors.NewValidationError("invalid payload", nil)
		}
	}

	view, err := h.service.Transition(c.UserContext(), user, id, action, req.Findings())
	if err != nil {
		return err
	}
	return c.JSON(fiber.Map{"data": ticketResponse(view)})
}

// Rename POST /tickets/:id/rename.
func (h *TicketsHandler) Rename(c *fiber.Ctx) error {
	user, err := auth.CurrentUser(c)
	if err != nil {
		return err
	}
	id, err := ticketID(c)
	if err != nil {
		return err
	}
	var req dto.RenameTicketRequest
	if err := c.BodyParser(&req); err != nil {
		return apperrors.NewValidationError("invalid payload", nil)
	}
	ticket, err := h.service.Rename(c.UserContext(), user, id, req.NewID)
	if err != nil {
		return err
	}
	view := service.TicketView{Ticket: *ticket}
	return c.JSON(fiber.Map{"data": ticketResponse(&view)})
}

// Delete DELETE /tickets/:id.
func (h *TicketsHandler) Delete(c *fiber.Ctx) error {
	user, err := auth.CurrentUser(c)
	if err != nil {
		return err
	}
	id, err := ticketID(c)
	if err != nil {
		return err
	}
	if err := h.service.Delete(c.UserContext(), user, id); err != nil {
		return err
	}
	return c.SendStatus(fiber.StatusNoContent)
}

// BatchDelete POST /tickets/batch-delete.
func (h *TicketsHandler) BatchDelete(c *fiber.Ctx) error {
	user, err := auth.CurrentUser(c)
	if err != nil {
		return err
	}
	var req dto.TicketIDsRequest
	if err := c.BodyParser(&req); err != nil {
		return apperrors.NewValidationError("invalid payload", nil)
	}
	n, err := h.service.BatchDelete(c.UserContext(), user, req.IDs)
	if err != nil {
		return err
	}
	return c.JSON(fiber.Map{"data": dto.BatchDeleteResponse{Deleted: n}})
}

// PDF GET /tickets/:id/pdf downloads a single work order as {id}.pdf.
func (h *TicketsHandler) PDF(c *fiber.Ctx) error {
	id, err := ticketID(c)
	if err != nil {
		return err
	}
	return h.sendPDF(c, []string{id}, service.FileName(id))
}

// Export POST /tickets/export renders the selected tickets into one document.
func (h *TicketsHandler) Export(c *fiber.Ctx) error {
	var req dto.TicketIDsRequest
	if err := c.BodyParser(&req); err != nil {
		return apperrors.NewValidationError("invalid payload", nil)
	}
	name := "maintenance-tickets.pdf"
	if len(req.IDs) == 1 {
		name = service.FileName(strings.TrimSpace(req.IDs[0]))
	}
	return h.sendPDF(c, req.IDs, name)
}

func (h *TicketsHandler) sendPDF(c *fiber.Ctx, ids []string, name string) error {
	if h.export == nil {
		return apperrors.NewInternalError(errors.New("pdf export not configured"))
	}
	var buf bytes.Buffer
	if _, err := h.export.ExportPDF(c.UserContext(), ids, &buf); err != nil {
		return err
	}
	c.Attachment(name)
	c.Set(fiber.HeaderContentType, "application/pdf")
	return c.Send(buf.Bytes())
}

// ticketID unescapes the :id segment; renamed IDs may hold any character.
func ticketID(c *fiber.Ctx) (string, error) {
	id, err := url.PathUnescape(c.Params("id"))
	if err != nil || strings.TrimSpace(id) == "" {
		return "", apperrors.NewValidationError("invalid ticket id", map[string]any{"id": c.Params("id")})
	}
	return id, nil
}

func ticketResponse(v *service.TicketView) dto.TicketResponse {
	t := &v.Ticket
	parts := t.SpareParts
	if parts == nil {
		parts = []domain.SparePart{}
	}
	actions := v.Actions
	if actions == nil {
		actions = []domain.TicketAction{}
	}
	return dto.TicketResponse{
		ID:                     t.ID,
		MachineID:              t.MachineID,
		MachineName:            t.MachineName,
		JobType:                t.JobType,
		Department:             t.Department,
		Factory:                t.Factory,
		Area:                   t.Area,
		IssueItem:              t.IssueItem,
		IssueDetail:            t.IssueDetail,
		ImageURL:               t.ImageURL,
		Status:                 t.Status,
		Source:                 t.Source,
		Requester:              t.Requester,
		RequesterFullname:      t.RequesterFullname,
		RequesterDate:          t.RequesterDate,
		TechnicianID:           t.TechnicianID,
		TechnicianName:         t.TechnicianName,
		CauseDetail:            t.CauseDetail,
		Solution:               t.Solution,
		Prevention:             t.Prevention,
		CauseCategory:          t.CauseCategory,
		CauseCategoryOther:     t.CauseCategoryOther,
		SpareParts:             parts,
		MaintenanceResult:      t.MaintenanceResult,
		MaintenanceResultOther: t.MaintenanceResultOther,
		ResultRemark:           t.ResultRemark,
		DelayReason:            t.DelayReason,
		MCStatus:               t.MCStatus,
		StartTime:              t.StartTime,
		EndTime:                t.EndTime,
		TotalHours:             t.TotalHours,
		LeaderCheckedBy:        t.LeaderCheckedBy,
		LeaderCheckedAt:        t.LeaderCheckedAt,
		VerifiedBy:             t.VerifiedBy,
		VerifiedAt:             t.VerifiedAt,
		ApprovedBy:             t.ApprovedBy,
		ApprovedAt:             t.ApprovedAt,
		ClosedAt:               t.ClosedAt,
		CreatedAt:              t.CreatedAt,
		UpdatedAt:              t.UpdatedAt,
		Overdue:                v.Overdue,
		ElapsedMinutes:         int64(v.Elapsed.Minutes()),
		Actions:                actions,
	}
}

func historyResponses(entries []domain.TicketHistory) []dto.TicketHistoryResponse {
	resp := make([]dto.TicketHistoryResponse, 0, len(entries))
	for _, entry := range entries {
		resp = append(resp, dto.TicketHistoryResponse{
			ID:        entry.ID,
			Action:    entry.Action,
			OldStatus: entry.OldStatus,
			NewStatus: entry.NewStatus,
			ActorUser: entry.ActorUser,
			ActorName: entry.ActorName,
			CreatedAt: entry.CreatedAt,
		})
	}
	return resp
}
