package orders

import (
	"net/http"

	internalorders "github.com/angelmondragon/packdrop-backend/internal/orders"
	"github.com/angelmondragon/packdrop-backend/pkg/logger"
)

func DriverAccept(svc internalorders.DriverTransitions, logg *logger.Logger) http.HandlerFunc {
	if svc == nil {
		return unavailable(logg)
	}
	return transition(logg, svc.DriverAccept)
}

// DriverReject returns the order to the dispatch pool.
func DriverReject(svc internalorders.DriverTransitions, logg *logger.Logger) http.HandlerFunc {
	if svc == nil {
		return unavailable(logg)
	}
	return withReason(logg, true, svc.DriverReject)
}

// ConfirmPickup applies the driver commission and, for wallet orders, splits
// the held balance.
func ConfirmPickup(svc internalorders.DriverTransitions, logg *logger.Logger) http.HandlerFunc {
	if svc == nil {
		return unavailable(logg)
	}
	return transition(logg, svc.ConfirmPickup)
}

func StartDelivery(svc internalorders.DriverTransitions, logg *logger.Logger) http.HandlerFunc {
	if svc == nil {
		return unavailable(logg)
	}
	return transition(logg, svc.StartDelivery)
}

func ReportProblem(svc internalorders.DriverTransitions, logg *logger.Logger) http.HandlerFunc {
	if svc == nil {
		return unavailable(logg)
	}
	return withReason(logg, true, svc.ReportProblem)
}
