package routes

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/angelmondragon/packdrop-backend/api/controllers"
	admincontrollers "github.com/angelmondragon/packdrop-backend/api/controllers/admin"
	cashcontrollers "github.com/angelmondragon/packdrop-backend/api/controllers/cash"
	drivercontrollers "github.com/angelmondragon/packdrop-backend/api/controllers/drivers"
	ordercontrollers "github.com/angelmondragon/packdrop-backend/api/controllers/orders"
	protectioncontrollers "github.com/angelmondragon/packdrop-backend/api/controllers/protection"
	"github.com/angelmondragon/packdrop-backend/api/controllers/vendorcontext"
	walletcontrollers "github.com/angelmondragon/packdrop-backend/api/controllers/wallet"
	"github.com/angelmondragon/packdrop-backend/api/middleware"
	"github.com/angelmondragon/packdrop-backend/internal/cash"
	"github.com/angelmondragon/packdrop-backend/internal/commission"
	"github.com/angelmondragon/packdrop-backend/internal/drivers"
	"github.com/angelmondragon/packdrop-backend/internal/notifications"
	"github.com/angelmondragon/packdrop-backend/internal/orders"
	"github.com/angelmondragon/packdrop-backend/internal/protection"
	"github.com/angelmondragon/packdrop-backend/internal/wallet"
	"github.com/angelmondragon/packdrop-backend/pkg/enums"
	"github.com/angelmondragon/packdrop-backend/pkg/logger"
)

// OrderService is the full coordinator surface the API drives.
type OrderService interface {
	orders.Creator
	orders.Reader
	orders.VendorTransitions
	orders.Dispatcher
	orders.DriverTransitions
	orders.DeliveryTransitions
	orders.Canceller
}

// CatalogLookup resolves vendor ownership and zone management.
type CatalogLookup interface {
	vendorcontext.VendorLookup
	drivercontrollers.ZoneAuthorizer
}

// Deps carries everything the router mounts. Nil services produce handlers
// that answer 500, so partial wiring in tests stays safe.
type Deps struct {
	Env         string
	CORSOrigins []string
	Logger      *logger.Logger

	DB    controllers.Pinger
	Redis controllers.Pinger

	Idempotency middleware.IdempotencyStore
	Metrics     prometheus.Gatherer

	Orders        OrderService
	Protection    protection.Service
	Cash          cash.Service
	Ledger        wallet.Ledger
	Catalog       CatalogLookup
	Drivers       drivers.Service
	Commission    commission.Service
	Settings      admincontrollers.SettingsStore
	Notifications notifications.Service
}

const (
	customer = enums.ActorRoleCustomer
	vendor   = enums.ActorRoleVendor
	driver   = enums.ActorRoleDriver
	manager  = enums.ActorRoleManager
	admin    = enums.ActorRoleAdmin
)

func NewRouter(d Deps) http.Handler {
	logg := d.Logger
	r := chi.NewRouter()
	r.Use(
		middleware.Recoverer(logg),
		middleware.RequestID(logg),
		middleware.Logging(logg),
		middleware.CORS(d.CORSOrigins),
	)

	r.Route("/health", func(r chi.Router) {
		r.Get("/live", controllers.HealthLive(d.Env))
		r.Get("/ready", controllers.HealthReady(d.Env, readinessDeps(d), logg))
	})
	if d.Metrics != nil {
		r.Handle("/metrics", promhttp.HandlerFor(d.Metrics, promhttp.HandlerOpts{}))
	}

	role := func(roles ...enums.ActorRole) func(http.Handler) http.Handler {
		return middleware.RequireRole(logg, roles...)
	}

	r.Route("/api/v1", func(r chi.Router) {
		r.Use(middleware.Actor(logg))
		r.Use(middleware.Idempotency(d.Idempotency, logg))

		r.Route("/orders", func(r chi.Router) {
			r.With(role(customer)).Post("/", ordercontrollers.Create(d.Orders, logg))
			r.Get("/", ordercontrollers.List(d.Orders, logg))

			r.Route("/{orderId}", func(r chi.Router) {
				r.Get("/", ordercontrollers.Detail(d.Orders, logg))
				r.With(role(customer, vendor, manager, admin)).Post("/cancel", ordercontrollers.Cancel(d.Orders, logg))
				r.With(role(driver, admin)).Post("/complete", ordercontrollers.Complete(d.Orders, logg))
				r.With(role(vendor, manager, admin)).Get("/commissions", admincontrollers.OrderCommissions(d.Orders, d.Commission, logg))

				r.Route("/protection", func(r chi.Router) {
					r.Use(role(customer))
					r.Get("/", protectioncontrollers.Status(d.Protection, logg))
					r.Post("/confirm", protectioncontrollers.Confirm(d.Protection, logg))
					r.Post("/dispute", protectioncontrollers.Dispute(d.Protection, logg))
					r.Get("/delivery-code", protectioncontrollers.DeliveryCode(d.Protection, logg))
				})
			})
		})

		r.Route("/vendor/orders/{orderId}", func(r chi.Router) {
			r.Use(role(vendor))
			r.Post("/accept", ordercontrollers.VendorAccept(d.Orders, logg))
			r.Post("/reject", ordercontrollers.VendorReject(d.Orders, logg))
			r.Post("/ready", ordercontrollers.MarkReady(d.Orders, logg))
		})

		r.Route("/dispatch", func(r chi.Router) {
			r.Use(role(manager, admin))
			r.Post("/orders/{orderId}/assign", ordercontrollers.AssignDriver(d.Orders, logg))
			r.Get("/zones/{zoneId}/drivers", drivercontrollers.ZoneDrivers(d.Drivers, d.Catalog, logg))
			r.Get("/zones/{zoneId}/drivers/nearby", drivercontrollers.Nearby(d.Drivers, d.Catalog, logg))
		})

		r.Route("/driver", func(r chi.Router) {
			r.Use(role(driver))
			r.Post("/availability", drivercontrollers.SetAvailability(d.Drivers, logg))
			r.Post("/location", drivercontrollers.UpdateLocation(d.Drivers, logg))
			r.Route("/orders/{orderId}", func(r chi.Router) {
				r.Post("/accept", ordercontrollers.DriverAccept(d.Orders, logg))
				r.Post("/reject", ordercontrollers.DriverReject(d.Orders, logg))
				r.Post("/pickup", ordercontrollers.ConfirmPickup(d.Orders, logg))
				r.Post("/start", ordercontrollers.StartDelivery(d.Orders, logg))
				r.Post("/problem", ordercontrollers.ReportProblem(d.Orders, logg))
				r.Post("/cash-collected", cashcontrollers.ReportCollection(d.Cash, logg))
			})
		})

		r.Route("/cash", func(r chi.Router) {
			r.With(role(manager)).Post("/orders/{orderId}/confirm", cashcontrollers.ConfirmReceipt(d.Cash, logg))
			r.With(role(manager, admin)).Get("/on-hand", cashcontrollers.OnHand(d.Cash, logg))
			r.With(role(manager, admin)).Get("/confirmations", cashcontrollers.Report(d.Cash, logg))
			r.With(role(admin)).Post("/payouts", cashcontrollers.ConfirmPayout(d.Cash, logg))
		})

		r.Route("/wallet", func(r chi.Router) {
			r.Use(role(customer, vendor, driver))
			r.Get("/", walletcontrollers.Mine(d.Ledger, d.Catalog, logg))
			r.Get("/transactions", walletcontrollers.MyTransactions(d.Ledger, d.Catalog, logg))
		})

		r.Route("/notifications", func(r chi.Router) {
			r.Get("/", controllers.ListNotifications(d.Notifications, logg))
			r.Get("/unread-count", controllers.UnreadNotificationCount(d.Notifications, logg))
			r.Post("/{notificationId}/read", controllers.MarkNotificationRead(d.Notifications, logg))
			r.Post("/read-all", controllers.MarkAllNotificationsRead(d.Notifications, logg))
		})

		r.Route("/admin", func(r chi.Router) {
			r.Use(role(admin))
			r.Get("/commissions/summary", admincontrollers.CommissionSummary(d.Commission, logg))
			r.Get("/commissions", admincontrollers.CommissionSnapshots(d.Commission, logg))
			r.Get("/settings", admincontrollers.GetSettings(d.Settings, logg))
			r.Patch("/settings", admincontrollers.PatchSettings(d.Settings, logg))
			r.Get("/wallets/{ownerType}", walletcontrollers.Lookup(d.Ledger, logg))
			r.Get("/wallets/{ownerType}/{ownerId}", walletcontrollers.Lookup(d.Ledger, logg))
			r.Get("/wallets/{ownerType}/{ownerId}/transactions", walletcontrollers.LookupTransactions(d.Ledger, logg))
		})
	})

	return r
}

func readinessDeps(d Deps) map[string]controllers.Pinger {
	deps := map[string]controllers.Pinger{}
	if d.DB != nil {
		deps["db"] = d.DB
	}
	if d.Redis != nil {
		deps["redis"] = d.Redis
	}
	return deps
}
