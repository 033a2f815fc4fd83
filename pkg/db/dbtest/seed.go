package dbtest

import (
	"testing"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"

	"github.com/angelmondragon/packdrop-backend/pkg/db/models"
	"github.com/angelmondragon/packdrop-backend/pkg/enums"
)

// Marketplace is a minimal seeded catalog: one zone with a manager, a vendor
// on a free plan, two products, a customer address and an available driver.
type Marketplace struct {
	Zone       models.Zone
	ManagerID  uuid.UUID
	Plan       models.SubscriptionPlan
	Vendor     models.Vendor
	VendorUser uuid.UUID
	Products   []models.Product
	CustomerID uuid.UUID
	Address    models.Address
	DriverID   uuid.UUID
}

// SeedMarketplace inserts a Marketplace and returns it.
func SeedMarketplace(t *testing.T, conn *gorm.DB) Marketplace {
	t.Helper()
	m := Marketplace{ManagerID: uuid.New(), VendorUser: uuid.New(), CustomerID: uuid.New()}

	m.Zone = models.Zone{Name: "Centro", ManagerID: &m.ManagerID}
	mustCreate(t, conn, &m.Zone)

	m.Plan = models.SubscriptionPlan{Name: "free", Price: decimal.Zero}
	mustCreate(t, conn, &m.Plan)

	m.Vendor = models.Vendor{
		UserID:          m.VendorUser,
		ZoneID:          m.Zone.ID,
		PlanID:          &m.Plan.ID,
		Name:            "Mercado Sol",
		Latitude:        0,
		Longitude:       0,
		DiscountPercent: decimal.Zero,
		IsOpen:          true,
	}
	mustCreate(t, conn, &m.Vendor)

	m.Products = []models.Product{
		{VendorID: m.Vendor.ID, Name: "Coffee", Price: decimal.NewFromInt(40), Stock: 10, IsActive: true},
		{VendorID: m.Vendor.ID, Name: "Bread", Price: decimal.NewFromInt(10), Stock: 10, IsActive: true},
	}
	for i := range m.Products {
		mustCreate(t, conn, &m.Products[i])
	}

	m.Address = models.Address{UserID: m.CustomerID, Line1: "Calle 1", Latitude: 0, Longitude: 0}
	mustCreate(t, conn, &m.Address)

	m.DriverID = SeedDriver(t, conn, m.Zone.ID, enums.DriverStatusAvailable)
	return m
}

// SeedDriver inserts a driver profile in zoneID.
func SeedDriver(t *testing.T, conn *gorm.DB, zoneID uuid.UUID, status enums.DriverStatus) uuid.UUID {
	t.Helper()
	profile := models.DriverProfile{UserID: uuid.New(), ZoneID: zoneID, Status: status, VehicleType: "motorbike"}
	mustCreate(t, conn, &profile)
	return profile.UserID
}

func mustCreate(t *testing.T, conn *gorm.DB, value any) {
	t.Helper()
	if err := conn.Create(value).Error; err != nil {
		t.Fatalf("seed %T: %v", value, err)
	}
}
