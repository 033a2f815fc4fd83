package orders

import (
	"github.com/angelmondragon/packdrop-backend/pkg/db/models"
	"github.com/angelmondragon/packdrop-backend/pkg/enums"
	pkgerrors "github.com/angelmondragon/packdrop-backend/pkg/errors"
)

// transitions is the complete order graph. Any status absent from a key's
// set is unreachable from it.
var transitions = map[enums.OrderStatus][]enums.OrderStatus{
	enums.OrderStatusPlaced: {
		enums.OrderStatusVendorAccepted,
		enums.OrderStatusVendorRejected,
		enums.OrderStatusCancelled,
	},
	enums.OrderStatusVendorAccepted: {
		enums.OrderStatusDriverPending,
		enums.OrderStatusCancelled,
	},
	enums.OrderStatusDriverPending: {
		enums.OrderStatusDriverPending,
		enums.OrderStatusDriverAccepted,
		enums.OrderStatusDriverRejected,
		enums.OrderStatusCancelled,
	},
	enums.OrderStatusDriverRejected: {
		enums.OrderStatusDriverPending,
		enums.OrderStatusCancelled,
	},
	enums.OrderStatusDriverAccepted: {
		enums.OrderStatusDriverPending,
		enums.OrderStatusShipped,
		enums.OrderStatusCompleted,
		enums.OrderStatusCancelled,
	},
	enums.OrderStatusShipped: {
		enums.OrderStatusInTransit,
		enums.OrderStatusCompleted,
		enums.OrderStatusCancelled,
	},
	enums.OrderStatusInTransit: {
		enums.OrderStatusCompleted,
		enums.OrderStatusCancelled,
	},
}

// CanTransition reports whether the graph has an edge from -> to.
func CanTransition(from, to enums.OrderStatus) bool {
	for _, next := range transitions[from] {
		if next == to {
			return true
		}
	}
	return false
}

// IsTerminal reports whether no transition leaves status.
func IsTerminal(status enums.OrderStatus) bool {
	return len(transitions[status]) == 0
}

// requireStatus fails with INVALID_TRANSITION unless the order is in one of
// the allowed statuses.
func requireStatus(order *models.Order, allowed ...enums.OrderStatus) error {
	for _, status := range allowed {
		if order.Status == status {
			return nil
		}
	}
	return pkgerrors.Newf(pkgerrors.CodeInvalidTransition, "order is %s", order.Status).
		WithDetails(map[string]any{"status": order.Status, "allowed": allowed})
}

// moveTo applies the edge or fails with INVALID_TRANSITION.
func moveTo(order *models.Order, to enums.OrderStatus) error {
	if !CanTransition(order.Status, to) {
		return pkgerrors.Newf(pkgerrors.CodeInvalidTransition, "order cannot move from %s to %s", order.Status, to).
			WithDetails(map[string]any{"from": order.Status, "to": to})
	}
	order.Status = to
	return nil
}
