package notifications

import (
	"context"

	"github.com/bazaarline/storefront-backend/pkg/db/models"
	"github.com/bazaarline/storefront-backend/pkg/logger"
)

// Notifier emits fire-and-forget order events. Failures are logged and never
// propagate back into the calling unit of work.
type Notifier interface {
	NotifyOrderPlaced(ctx context.Context, order *models.Order)
	NotifyStatusChanged(ctx context.Context, order *models.Order)
}

type logNotifier struct {
	logg *logger.Logger
}

// NewLogNotifier builds a notifier that records events through the structured
// logger. A real delivery channel (email, push) can replace it without
// touching callers.
func NewLogNotifier(logg *logger.Logger) Notifier {
	if logg == nil {
		return nil
	}
	return &logNotifier{logg: logg}
}

func (n *logNotifier) NotifyOrderPlaced(ctx context.Context, order *models.Order) {
	if order == nil {
		return
	}
	fields := map[string]any{
		"order_id":     order.ID.String(),
		"order_number": order.OrderNumber,
		"user_id":      order.UserID.String(),
		"total":        order.Total.String(),
	}
	n.logg.Info(n.logg.WithFields(context.WithoutCancel(ctx), fields), "order placed")
}

func (n *logNotifier) NotifyStatusChanged(ctx context.Context, order *models.Order) {
	if order == nil {
		return
	}
	fields := map[string]any{
		"order_id":     order.ID.String(),
		"order_number": order.OrderNumber,
		"status":       order.Status.String(),
	}
	n.logg.Info(n.logg.WithFields(context.WithoutCancel(ctx), fields), "order status changed")
}
