package enums

import "fmt"

// NotificationTemplate keys the message a notification sink renders.
type NotificationTemplate string

const (
	NotificationOrderPlaced        NotificationTemplate = "order_placed"
	NotificationOrderAccepted      NotificationTemplate = "order_accepted"
	NotificationOrderRejected      NotificationTemplate = "order_rejected"
	NotificationOrderReady         NotificationTemplate = "order_ready"
	NotificationDriverAssigned     NotificationTemplate = "driver_assigned"
	NotificationDriverAccepted     NotificationTemplate = "driver_accepted"
	NotificationDriverRejected     NotificationTemplate = "driver_rejected"
	NotificationOrderPickedUp      NotificationTemplate = "order_picked_up"
	NotificationOrderOnTheWay      NotificationTemplate = "order_on_the_way"
	NotificationOrderDelivered     NotificationTemplate = "order_delivered"
	NotificationOrderCancelled     NotificationTemplate = "order_cancelled"
	NotificationCashConfirmed      NotificationTemplate = "cash_confirmed"
	NotificationPayoutConfirmed    NotificationTemplate = "payout_confirmed"
	NotificationFundsReleased      NotificationTemplate = "funds_released"
	NotificationDisputeOpened      NotificationTemplate = "dispute_opened"
	NotificationOrderReadyReminder NotificationTemplate = "order_ready_reminder"
)

var validNotificationTemplates = []NotificationTemplate{
	NotificationOrderPlaced,
	NotificationOrderAccepted,
	NotificationOrderRejected,
	NotificationOrderReady,
	NotificationDriverAssigned,
	NotificationDriverAccepted,
	NotificationDriverRejected,
	NotificationOrderPickedUp,
	NotificationOrderOnTheWay,
	NotificationOrderDelivered,
	NotificationOrderCancelled,
	NotificationCashConfirmed,
	NotificationPayoutConfirmed,
	NotificationFundsReleased,
	NotificationDisputeOpened,
	NotificationOrderReadyReminder,
}

// IsValid checks whether the template is one the sinks know how to render.
func (n NotificationTemplate) IsValid() bool {
	for _, candidate := range validNotificationTemplates {
		if candidate == n {
			return true
		}
	}
	return false
}

// ParseNotificationTemplate converts raw input into a NotificationTemplate.
func ParseNotificationTemplate(value string) (NotificationTemplate, error) {
	for _, candidate := range validNotificationTemplates {
		if string(candidate) == value {
			return candidate, nil
		}
	}
	return "", fmt.Errorf("invalid notification template %q", value)
}
