// Package orders implements the order state machine. Role-specific
// operations are grouped into narrow interfaces composed by Coordinator,
// which owns the transaction boundary and emits events after commit.
package orders

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/angelmondragon/packdrop-backend/internal/catalog"
	"github.com/angelmondragon/packdrop-backend/internal/commission"
	"github.com/angelmondragon/packdrop-backend/internal/drivers"
	"github.com/angelmondragon/packdrop-backend/internal/events"
	"github.com/angelmondragon/packdrop-backend/internal/pricing"
	"github.com/angelmondragon/packdrop-backend/internal/settings"
	"github.com/angelmondragon/packdrop-backend/internal/wallet"
	"github.com/angelmondragon/packdrop-backend/pkg/auth"
	"github.com/angelmondragon/packdrop-backend/pkg/db/models"
	"github.com/angelmondragon/packdrop-backend/pkg/enums"
	pkgerrors "github.com/angelmondragon/packdrop-backend/pkg/errors"
	"github.com/angelmondragon/packdrop-backend/pkg/logger"
	"github.com/angelmondragon/packdrop-backend/pkg/metrics"
)

type txRunner interface {
	WithTx(ctx context.Context, fn func(tx *gorm.DB) error) error
}

// Deps are the collaborators of the coordinator. Metrics and Clock are optional.
type Deps struct {
	DB         txRunner
	Orders     Repository
	Catalog    catalog.Service
	Pricing    *pricing.Engine
	Settings   settings.Provider
	Commission commission.Service
	Drivers    drivers.Service
	Ledger     wallet.Ledger
	Escrow     wallet.Escrow
	Events     events.Emitter
	Metrics    *metrics.OrderMetrics
	Logger     *logger.Logger
	Clock      func() time.Time
}

// Coordinator implements every order role interface.
type Coordinator struct {
	db         txRunner
	orders     Repository
	catalog    catalog.Service
	pricing    *pricing.Engine
	settings   settings.Provider
	commission commission.Service
	drivers    drivers.Service
	ledger     wallet.Ledger
	escrow     wallet.Escrow
	events     events.Emitter
	metrics    *metrics.OrderMetrics
	logg       *logger.Logger
	now        func() time.Time
}

var (
	_ Creator             = (*Coordinator)(nil)
	_ Reader              = (*Coordinator)(nil)
	_ VendorTransitions   = (*Coordinator)(nil)
	_ Dispatcher          = (*Coordinator)(nil)
	_ DriverTransitions   = (*Coordinator)(nil)
	_ DeliveryTransitions = (*Coordinator)(nil)
	_ Canceller           = (*Coordinator)(nil)
)

// NewCoordinator validates and wires the dependencies.
func NewCoordinator(d Deps) (*Coordinator, error) {
	switch {
	case d.DB == nil:
		return nil, fmt.Errorf("transaction runner required")
	case d.Orders == nil:
		return nil, fmt.Errorf("orders repository required")
	case d.Catalog == nil:
		return nil, fmt.Errorf("catalog service required")
	case d.Pricing == nil:
		return nil, fmt.Errorf("pricing engine required")
	case d.Settings == nil:
		return nil, fmt.Errorf("settings provider required")
	case d.Commission == nil:
		return nil, fmt.Errorf("commission service required")
	case d.Drivers == nil:
		return nil, fmt.Errorf("drivers service required")
	case d.Ledger == nil:
		return nil, fmt.Errorf("wallet ledger required")
	case d.Escrow == nil:
		return nil, fmt.Errorf("escrow required")
	case d.Events == nil:
		return nil, fmt.Errorf("event emitter required")
	}
	logg := d.Logger
	if logg == nil {
		logg = logger.Nop()
	}
	clock := d.Clock
	if clock == nil {
		clock = func() time.Time { return time.Now().UTC() }
	}
	return &Coordinator{
		db:         d.DB,
		orders:     d.Orders,
		catalog:    d.Catalog,
		pricing:    d.Pricing,
		settings:   d.Settings,
		commission: d.Commission,
		drivers:    d.Drivers,
		ledger:     d.Ledger,
		escrow:     d.Escrow,
		events:     d.Events,
		metrics:    d.Metrics,
		logg:       logg,
		now:        clock,
	}, nil
}

// step is the transactional body of one operation. It returns the envelope
// to emit once the transaction has committed.
type step func(tx *gorm.DB) (*events.Envelope, error)

// run executes fn in a transaction, then records metrics and emits the
// envelope. Emission never affects the returned error.
func (c *Coordinator) run(ctx context.Context, op string, fn step) error {
	var env *events.Envelope
	err := c.db.WithTx(ctx, func(tx *gorm.DB) error {
		var err error
		env, err = fn(tx)
		return err
	})
	if err != nil {
		c.metrics.ObserveFailure(op, string(codeOf(err)))
		return err
	}
	if env == nil {
		return nil
	}
	if lc := env.Lifecycle; lc != nil && lc.PreviousStatus != nil && *lc.PreviousStatus != lc.NewStatus {
		c.metrics.ObserveTransition(string(*lc.PreviousStatus), string(lc.NewStatus))
	}
	c.events.Emit(ctx, *env)
	return nil
}

func codeOf(err error) pkgerrors.Code {
	if typed := pkgerrors.As(err); typed != nil {
		return typed.Code()
	}
	return pkgerrors.CodeInternal
}

// load reads the order inside tx.
// load reads the order; inside a transaction the row stays locked until commit.
func (c *Coordinator) load(ctx context.Context, tx *gorm.DB, id uuid.UUID) (*models.Order, error) {
	repo := c.orders.WithTx(tx)
	find := repo.Find
	if tx != nil {
		find = repo.FindForUpdate
	}
	order, err := find(ctx, id)
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, pkgerrors.New(pkgerrors.CodeNotFound, "order not found")
	}
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "load order")
	}
	return order, nil
}

// save persists the order guarded by the status it was loaded with.
func (c *Coordinator) save(ctx context.Context, tx *gorm.DB, order *models.Order, loadedStatus enums.OrderStatus) error {
	ok, err := c.orders.WithTx(tx).Save(ctx, order, loadedStatus)
	if err != nil {
		return pkgerrors.Wrap(pkgerrors.CodeInternal, err, "save order")
	}
	if !ok {
		return pkgerrors.New(pkgerrors.CodeInvalidTransition, "order was modified concurrently")
	}
	return nil
}

func (c *Coordinator) currentSettings(ctx context.Context) (settings.Settings, error) {
	s, err := c.settings.Current(ctx)
	if err != nil {
		return settings.Settings{}, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "load settings")
	}
	return s, nil
}

func (c *Coordinator) autoReleaseAt(s settings.Settings) time.Time {
	return c.now().AddDate(0, 0, s.AutoReleaseDays)
}

func lifecycle(order *models.Order, typ enums.LifecycleEventType, prev enums.OrderStatus, actor auth.Actor, at time.Time, metadata map[string]any) *events.LifecycleEvent {
	return &events.LifecycleEvent{
		OrderID:        order.ID,
		Type:           typ,
		PreviousStatus: &prev,
		NewStatus:      order.Status,
		ActorID:        actor.IDPtr(),
		ActorRole:      actor.Role,
		Metadata:       metadata,
		OccurredAt:     at,
	}
}

func notification(template enums.NotificationTemplate, order *models.Order, users ...uuid.UUID) events.Notification {
	return events.Notification{
		UserIDs:  users,
		Template: template,
		Payload:  map[string]any{"order_id": order.ID.String(), "status": string(order.Status)},
	}
}
