// Package app assembles the domain service graph shared by the api and
// cron-worker binaries.
package app

import (
	"fmt"

	"github.com/prometheus/client_golang/prometheus"

	"github.com/angelmondragon/packdrop-backend/internal/broadcast"
	"github.com/angelmondragon/packdrop-backend/internal/cash"
	"github.com/angelmondragon/packdrop-backend/internal/catalog"
	"github.com/angelmondragon/packdrop-backend/internal/commission"
	"github.com/angelmondragon/packdrop-backend/internal/drivers"
	"github.com/angelmondragon/packdrop-backend/internal/events"
	"github.com/angelmondragon/packdrop-backend/internal/lifecycle"
	"github.com/angelmondragon/packdrop-backend/internal/notifications"
	"github.com/angelmondragon/packdrop-backend/internal/orders"
	"github.com/angelmondragon/packdrop-backend/internal/pricing"
	"github.com/angelmondragon/packdrop-backend/internal/protection"
	"github.com/angelmondragon/packdrop-backend/internal/settings"
	"github.com/angelmondragon/packdrop-backend/internal/wallet"
	"github.com/angelmondragon/packdrop-backend/pkg/config"
	"github.com/angelmondragon/packdrop-backend/pkg/db"
	"github.com/angelmondragon/packdrop-backend/pkg/logger"
	"github.com/angelmondragon/packdrop-backend/pkg/metrics"
	"github.com/angelmondragon/packdrop-backend/pkg/redis"
)

const settingsHash = "platform"

type Params struct {
	Config *config.Config
	DB     *db.Client
	Redis  *redis.Client
	// Topic mirrors lifecycle events to analytics; nil keeps them local.
	Topic    lifecycle.TopicPublisher
	Registry prometheus.Registerer
	Logger   *logger.Logger
}

type Services struct {
	Settings      *settings.Store
	Catalog       catalog.Service
	Commission    commission.Service
	Drivers       drivers.Service
	Ledger        wallet.Ledger
	Escrow        wallet.Escrow
	Notifications notifications.Service
	Events        *events.Dispatcher
	Orders        *orders.Coordinator
	Protection    protection.Service
	Cash          cash.Service
}

func New(p Params) (*Services, error) {
	if p.Config == nil || p.DB == nil || p.Redis == nil || p.Logger == nil {
		return nil, fmt.Errorf("config, db, redis and logger are required")
	}
	gdb := p.DB.DB()
	logg := p.Logger

	settingsStore, err := settings.NewStore(settings.FromConfig(p.Config.Commission), p.Redis, p.Redis.SettingsKey(settingsHash), logg)
	if err != nil {
		return nil, fmt.Errorf("settings store: %w", err)
	}
	catalogSvc, err := catalog.NewService(catalog.NewRepository(gdb))
	if err != nil {
		return nil, err
	}
	commissionSvc, err := commission.NewService(commission.NewRepository(gdb))
	if err != nil {
		return nil, err
	}
	driversSvc, err := drivers.NewService(drivers.NewRepository(gdb), p.Redis, logg)
	if err != nil {
		return nil, err
	}
	ledger, err := wallet.NewLedger(wallet.NewRepository(gdb))
	if err != nil {
		return nil, err
	}
	escrow, err := wallet.NewEscrow(wallet.NewHoldRepository(gdb), ledger)
	if err != nil {
		return nil, err
	}
	notificationsSvc, err := notifications.NewService(notifications.NewRepository(gdb))
	if err != nil {
		return nil, err
	}
	engine, err := pricing.NewEngine(settingsStore)
	if err != nil {
		return nil, err
	}

	broadcaster, err := broadcast.New(p.Redis)
	if err != nil {
		return nil, err
	}
	tracker, err := lifecycle.NewTracker(gdb, p.Topic, logg)
	if err != nil {
		return nil, err
	}
	dispatcher, err := events.NewDispatcher(notificationsSvc, broadcaster, tracker, logg)
	if err != nil {
		return nil, err
	}

	orderRepo := orders.NewRepository(gdb)
	coordinator, err := orders.NewCoordinator(orders.Deps{
		DB:         p.DB,
		Orders:     orderRepo,
		Catalog:    catalogSvc,
		Pricing:    engine,
		Settings:   settingsStore,
		Commission: commissionSvc,
		Drivers:    driversSvc,
		Ledger:     ledger,
		Escrow:     escrow,
		Events:     dispatcher,
		Metrics:    metrics.NewOrderMetrics(p.Registry),
		Logger:     logg,
	})
	if err != nil {
		return nil, fmt.Errorf("order coordinator: %w", err)
	}

	protectionSvc, err := protection.NewService(protection.Deps{
		DB:       p.DB,
		Orders:   orderRepo,
		Catalog:  catalogSvc,
		Escrow:   escrow,
		Events:   dispatcher,
		AdminIDs: p.Config.Platform.AdminUserIDs,
		Logger:   logg,
	})
	if err != nil {
		return nil, fmt.Errorf("protection service: %w", err)
	}

	cashSvc, err := cash.NewService(p.DB, cash.NewRepository(gdb), orderRepo, catalogSvc, ledger, dispatcher, nil)
	if err != nil {
		return nil, fmt.Errorf("cash service: %w", err)
	}

	return &Services{
		Settings:      settingsStore,
		Catalog:       catalogSvc,
		Commission:    commissionSvc,
		Drivers:       driversSvc,
		Ledger:        ledger,
		Escrow:        escrow,
		Notifications: notificationsSvc,
		Events:        dispatcher,
		Orders:        coordinator,
		Protection:    protectionSvc,
		Cash:          cashSvc,
	}, nil
}
