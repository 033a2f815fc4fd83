// Package broadcast publishes order snapshots to Redis pub/sub rooms that the
// realtime gateway fans out to connected clients.
package broadcast

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/google/uuid"
	"go.uber.org/multierr"

	"github.com/angelmondragon/packdrop-backend/internal/events"
)

const (
	RoomOrder    = "order"
	RoomVendor   = "vendor"
	RoomCustomer = "customer"
	RoomDriver   = "driver"
	RoomZone     = "zone"
)

// EventOrderUpdated is the message type carried in every order payload.
const EventOrderUpdated = "order.updated"

type publisher interface {
	Publish(ctx context.Context, channel string, payload any) (int64, error)
	ChannelKey(room, id string) string
}

type message struct {
	Type  string           `json:"type"`
	Order events.OrderView `json:"order"`
}

// Broadcaster implements events.Broadcaster over Redis.
type Broadcaster struct {
	pub publisher
}

func New(pub publisher) (*Broadcaster, error) {
	if pub == nil {
		return nil, fmt.Errorf("redis publisher required")
	}
	return &Broadcaster{pub: pub}, nil
}

// BroadcastOrderUpdate publishes the view to the order, vendor, customer and
// zone rooms, plus the driver room when a driver is assigned. Every room is
// attempted; failures are combined.
func (b *Broadcaster) BroadcastOrderUpdate(ctx context.Context, view events.OrderView, zoneID uuid.UUID) error {
	payload, err := json.Marshal(message{Type: EventOrderUpdated, Order: view})
	if err != nil {
		return fmt.Errorf("encode order view: %w", err)
	}

	var errs error
	for _, ch := range b.channels(view, zoneID) {
		if _, err := b.pub.Publish(ctx, ch, payload); err != nil {
			errs = multierr.Append(errs, fmt.Errorf("publish %s: %w", ch, err))
		}
	}
	return errs
}

func (b *Broadcaster) channels(view events.OrderView, zoneID uuid.UUID) []string {
	out := []string{
		b.pub.ChannelKey(RoomOrder, view.ID.String()),
		b.pub.ChannelKey(RoomVendor, view.VendorID.String()),
		b.pub.ChannelKey(RoomCustomer, view.CustomerID.String()),
	}
	if view.DriverID != nil {
		out = append(out, b.pub.ChannelKey(RoomDriver, view.DriverID.String()))
	}
	if zoneID != uuid.Nil {
		out = append(out, b.pub.ChannelKey(RoomZone, zoneID.String()))
	}
	return out
}
