package service

import (
	"context"
	"io"

	"go.uber.org/zap"

	"github.com/stanachoad2-cyber/MaintenanceApp/internal/domain"
)

// TicketRenderer draws tickets into a document, one page each.
type TicketRenderer interface {
	Render(w io.Writer, tickets []domain.Ticket) error
}

// ExportService renders work orders for printing.
type ExportService struct {
	tickets  *TicketService
	renderer TicketRenderer
	logger   *zap.Logger
}

// NewExportService constructs the service.
func NewExportService(tickets *TicketService, renderer TicketRenderer, logger *zap.Logger) *ExportService {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &ExportService{tickets: tickets, renderer: renderer, logger: logger}
}

// ExportPDF writes the selected tickets, oldest first, into one PDF.
func (s *ExportService) ExportPDF(ctx context.Context, ids []string, w io.Writer) (int, error) {
	tickets, err := s.tickets.Tickets(ctx, ids)
	if err != nil {
		return 0, err
	}
	if err := s.renderer.Render(w, tickets); err != nil {
		return 0, err
	}
	s.logger.Debug("tickets exported", zap.Int("count", len(tickets)))
	return len(tickets), nil
}

// FileName is the download name for a single ticket.
func FileName(id string) string {
	return id + ".pdf"
}
