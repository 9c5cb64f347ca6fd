package worker

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"

	"github.com/maravena-dev/bloquera-backend/internal/domain"
	"github.com/maravena-dev/bloquera-backend/internal/reports"
)

// SalesProjector folds order placed events into the monthly sales summary
// that backs the dashboard. Delivery is at-least-once; a redelivered event
// can double-count a month, which is acceptable for a dashboard projection
// and self-corrects on rebuild.
type SalesProjector struct {
	summary *reports.SummaryRepository
	logger  *slog.Logger
}

func NewSalesProjector(summary *reports.SummaryRepository, logger *slog.Logger) *SalesProjector {
	return &SalesProjector{
		summary: summary,
		logger:  logger,
	}
}

func (p *SalesProjector) Handle(ctx context.Context, payload []byte) error {
	var event domain.OrderPlacedEvent
	if err := json.Unmarshal(payload, &event); err != nil {
		return fmt.Errorf("unmarshal order placed event: %w", err)
	}

	if err := p.summary.RecordPlacedOrder(ctx, event.PlacedAt, event.Total); err != nil {
		return fmt.Errorf("record placed order %s: %w", event.OrderNumber, err)
	}

	p.logger.Info("sales summary updated",
		"order_number", event.OrderNumber, "total", event.Total, "month", int(event.PlacedAt.Month()))
	return nil
}
