package orders

import (
	"context"
	"time"

	"go.uber.org/multierr"

	"github.com/angelmondragon/packdrop-backend/internal/events"
	"github.com/angelmondragon/packdrop-backend/pkg/enums"
	pkgerrors "github.com/angelmondragon/packdrop-backend/pkg/errors"
)

// SendReadyReminders notifies the vendor and driver of orders that were due
// ready more than after ago and were never marked ready. Each order is
// reminded at most once. It returns how many reminders went out; failures
// on single orders are collected without stopping the batch.
func (c *Coordinator) SendReadyReminders(ctx context.Context, now time.Time, after time.Duration, limit int) (int, error) {
	if limit <= 0 {
		return 0, pkgerrors.New(pkgerrors.CodeValidation, "limit must be positive")
	}
	due, err := c.orders.ListReadyDue(ctx, now.Add(-after), limit)
	if err != nil {
		return 0, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "list orders due ready")
	}

	var (
		sent int
		errs error
	)
	for i := range due {
		order := &due[i]
		ok, err := c.orders.MarkReadyNotified(ctx, order.ID, now)
		if err != nil {
			errs = multierr.Append(errs, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "mark order "+order.ID.String()+" reminded"))
			continue
		}
		if !ok {
			continue
		}
		p := c.partiesOf(ctx, nil, order)
		c.events.Emit(ctx, events.Envelope{
			Notifications: []events.Notification{
				notification(enums.NotificationOrderReadyReminder, order, p.vendor, p.driver),
			},
		})
		sent++
	}
	return sent, errs
}
