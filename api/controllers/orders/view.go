package orders

import (
	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/angelmondragon/packdrop-backend/internal/events"
	"github.com/angelmondragon/packdrop-backend/pkg/auth"
	"github.com/angelmondragon/packdrop-backend/pkg/db/models"
	"github.com/angelmondragon/packdrop-backend/pkg/enums"
	"github.com/angelmondragon/packdrop-backend/pkg/pagination"
)

type itemResponse struct {
	ProductID uuid.UUID       `json:"product_id"`
	Name      string          `json:"name"`
	UnitPrice decimal.Decimal `json:"unit_price"`
	Quantity  int             `json:"quantity"`
	LineTotal decimal.Decimal `json:"line_total"`
}

type commissionResponse struct {
	VendorRate    decimal.Decimal `json:"vendor_rate"`
	VendorValue   decimal.Decimal `json:"vendor_value"`
	DriverRate    decimal.Decimal `json:"driver_rate"`
	DriverValue   decimal.Decimal `json:"driver_value"`
	PlatformTotal decimal.Decimal `json:"platform_total"`
	VendorNet     decimal.Decimal `json:"vendor_net"`
	DriverNet     decimal.Decimal `json:"driver_net"`
}

type orderResponse struct {
	events.OrderView
	AddressID  uuid.UUID           `json:"address_id"`
	Notes      *string             `json:"notes,omitempty"`
	Commission *commissionResponse `json:"commission,omitempty"`
	Items      []itemResponse      `json:"items,omitempty"`
}

// newOrderResponse never carries the delivery OTP; customers read it through
// the protection endpoints. Commission figures are hidden from customers.
func newOrderResponse(o *models.Order, actor auth.Actor) orderResponse {
	resp := orderResponse{
		OrderView: events.NewOrderView(o),
		AddressID: o.AddressID,
		Notes:     o.Notes,
	}
	if !actor.Is(enums.ActorRoleCustomer) {
		resp.Commission = &commissionResponse{
			VendorRate:    o.VendorCommissionRate,
			VendorValue:   o.VendorCommissionValue,
			DriverRate:    o.DriverCommissionRate,
			DriverValue:   o.DriverCommissionValue,
			PlatformTotal: o.PlatformTotalCommission,
			VendorNet:     o.VendorNet,
			DriverNet:     o.DriverNet,
		}
	}
	for _, item := range o.Items {
		resp.Items = append(resp.Items, itemResponse{
			ProductID: item.ProductID,
			Name:      item.Name,
			UnitPrice: item.UnitPrice,
			Quantity:  item.Quantity,
			LineTotal: item.LineTotal,
		})
	}
	return resp
}

func newOrderPage(page *pagination.Page[models.Order], actor auth.Actor) pagination.Page[orderResponse] {
	out := pagination.Page[orderResponse]{Items: []orderResponse{}}
	if page == nil {
		return out
	}
	out.NextCursor = page.NextCursor
	for i := range page.Items {
		out.Items = append(out.Items, newOrderResponse(&page.Items[i], actor))
	}
	return out
}
