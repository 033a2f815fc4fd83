// Package dbtest opens isolated sqlite databases carrying the full schema for
// repository and service tests.
package dbtest

import (
	"testing"
	"time"

	"github.com/google/uuid"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"

	"github.com/angelmondragon/packdrop-backend/pkg/db"
	"github.com/angelmondragon/packdrop-backend/pkg/db/models"
)

// AllModels lists every table the service owns, in dependency order.
func AllModels() []any {
	return []any{
		&models.Zone{},
		&models.SubscriptionPlan{},
		&models.Vendor{},
		&models.Product{},
		&models.Address{},
		&models.DriverProfile{},
		&models.Order{},
		&models.OrderItem{},
		&models.CommissionSnapshot{},
		&models.Wallet{},
		&models.WalletTransaction{},
		&models.HeldBalance{},
		&models.ManagerCashConfirmation{},
		&models.ManagerPayoutConfirmation{},
		&models.OrderLifecycleEvent{},
		&models.Notification{},
	}
}

// New returns a client over a fresh in-memory database. The pool is pinned to
// one connection so concurrent transactions serialize the way row locks would.
func New(t *testing.T) *db.Client {
	t.Helper()
	dsn := "file:packdrop_" + uuid.NewString() + "?mode=memory&cache=shared&_busy_timeout=5000"
	conn, err := gorm.Open(sqlite.Open(dsn), &gorm.Config{
		SkipDefaultTransaction: true,
		NowFunc:                func() time.Time { return time.Now().UTC() },
	})
	if err != nil {
		t.Fatalf("open sqlite: %v", err)
	}
	sqlDB, err := conn.DB()
	if err != nil {
		t.Fatalf("sql handle: %v", err)
	}
	sqlDB.SetMaxOpenConns(1)
	t.Cleanup(func() { _ = sqlDB.Close() })

	if err := conn.AutoMigrate(AllModels()...); err != nil {
		t.Fatalf("migrate: %v", err)
	}
	return db.Wrap(conn)
}
