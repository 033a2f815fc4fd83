package catalog

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/angelmondragon/packdrop-backend/pkg/db/models"
	pkgerrors "github.com/angelmondragon/packdrop-backend/pkg/errors"
)

// StockLine is a product quantity to take or return.
type StockLine struct {
	ProductID uuid.UUID
	Quantity  int
}

// Service wraps catalog reads with domain errors.
type Service interface {
	Vendor(ctx context.Context, tx *gorm.DB, id uuid.UUID) (*models.Vendor, error)
	VendorByUser(ctx context.Context, tx *gorm.DB, userID uuid.UUID) (*models.Vendor, error)
	Products(ctx context.Context, tx *gorm.DB, vendorID uuid.UUID, ids []uuid.UUID) (map[uuid.UUID]models.Product, error)
	Address(ctx context.Context, tx *gorm.DB, id uuid.UUID) (*models.Address, error)
	Zone(ctx context.Context, tx *gorm.DB, id uuid.UUID) (*models.Zone, error)
	ManagesZone(ctx context.Context, tx *gorm.DB, managerID, zoneID uuid.UUID) (bool, error)
	ManagedZones(ctx context.Context, tx *gorm.DB, managerID uuid.UUID) ([]uuid.UUID, error)
	ReserveStock(ctx context.Context, tx *gorm.DB, lines []StockLine) error
	RestoreStock(ctx context.Context, tx *gorm.DB, lines []StockLine) error
	EnforceMonthlyLimit(ctx context.Context, tx *gorm.DB, vendor *models.Vendor, now time.Time) error
}

type service struct {
	repo Repository
}

// NewService wires catalog access.
func NewService(repo Repository) (Service, error) {
	if repo == nil {
		return nil, fmt.Errorf("catalog repository required")
	}
	return &service{repo: repo}, nil
}

func (s *service) Vendor(ctx context.Context, tx *gorm.DB, id uuid.UUID) (*models.Vendor, error) {
	vendor, err := s.repo.WithTx(tx).FindVendor(ctx, id)
	return vendor, notFound(err, "vendor")
}

func (s *service) VendorByUser(ctx context.Context, tx *gorm.DB, userID uuid.UUID) (*models.Vendor, error) {
	vendor, err := s.repo.WithTx(tx).FindVendorByUser(ctx, userID)
	return vendor, notFound(err, "vendor")
}

// Products returns the requested products of the vendor keyed by id. Ids
// that do not belong to the vendor are reported as not found.
func (s *service) Products(ctx context.Context, tx *gorm.DB, vendorID uuid.UUID, ids []uuid.UUID) (map[uuid.UUID]models.Product, error) {
	products, err := s.repo.WithTx(tx).FindProducts(ctx, vendorID, ids)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "load products")
	}
	out := make(map[uuid.UUID]models.Product, len(products))
	for _, p := range products {
		out[p.ID] = p
	}
	for _, id := range ids {
		if _, ok := out[id]; !ok {
			return nil, pkgerrors.Newf(pkgerrors.CodeNotFound, "product %s not found", id)
		}
	}
	return out, nil
}

func (s *service) Address(ctx context.Context, tx *gorm.DB, id uuid.UUID) (*models.Address, error) {
	address, err := s.repo.WithTx(tx).FindAddress(ctx, id)
	return address, notFound(err, "address")
}

func (s *service) Zone(ctx context.Context, tx *gorm.DB, id uuid.UUID) (*models.Zone, error) {
	zone, err := s.repo.WithTx(tx).FindZone(ctx, id)
	return zone, notFound(err, "zone")
}

func (s *service) ManagesZone(ctx context.Context, tx *gorm.DB, managerID, zoneID uuid.UUID) (bool, error) {
	zone, err := s.Zone(ctx, tx, zoneID)
	if err != nil {
		return false, err
	}
	return zone.ManagerID != nil && *zone.ManagerID == managerID, nil
}

func (s *service) ManagedZones(ctx context.Context, tx *gorm.DB, managerID uuid.UUID) ([]uuid.UUID, error) {
	ids, err := s.repo.WithTx(tx).ZonesManagedBy(ctx, managerID)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "load managed zones")
	}
	return ids, nil
}

// ReserveStock decrements every line or fails on the first short product.
// Callers run it inside the order transaction so a failure rolls back the
// lines already taken.
func (s *service) ReserveStock(ctx context.Context, tx *gorm.DB, lines []StockLine) error {
	repo := s.repo.WithTx(tx)
	for _, line := range lines {
		ok, err := repo.DecrementStock(ctx, line.ProductID, line.Quantity)
		if err != nil {
			return pkgerrors.Wrap(pkgerrors.CodeInternal, err, "reserve stock")
		}
		if !ok {
			return pkgerrors.Newf(pkgerrors.CodeValidation, "insufficient stock for product %s", line.ProductID).
				WithDetails(map[string]any{"product_id": line.ProductID, "requested": line.Quantity})
		}
	}
	return nil
}

func (s *service) RestoreStock(ctx context.Context, tx *gorm.DB, lines []StockLine) error {
	repo := s.repo.WithTx(tx)
	for _, line := range lines {
		if err := repo.IncrementStock(ctx, line.ProductID, line.Quantity); err != nil {
			return pkgerrors.Wrap(pkgerrors.CodeInternal, err, "restore stock")
		}
	}
	return nil
}

// EnforceMonthlyLimit rejects a new order once the vendor's plan quota for
// the calendar month (UTC) is used up. Zero means unlimited.
func (s *service) EnforceMonthlyLimit(ctx context.Context, tx *gorm.DB, vendor *models.Vendor, now time.Time) error {
	if vendor.Plan == nil || vendor.Plan.MaxOrdersPerMonth <= 0 {
		return nil
	}
	now = now.UTC()
	monthStart := time.Date(now.Year(), now.Month(), 1, 0, 0, 0, 0, time.UTC)
	count, err := s.repo.WithTx(tx).CountVendorOrdersSince(ctx, vendor.ID, monthStart)
	if err != nil {
		return pkgerrors.Wrap(pkgerrors.CodeInternal, err, "count vendor orders")
	}
	if count >= int64(vendor.Plan.MaxOrdersPerMonth) {
		return pkgerrors.New(pkgerrors.CodeValidation, "vendor has reached the monthly order limit of its plan")
	}
	return nil
}

func notFound(err error, what string) error {
	if err == nil {
		return nil
	}
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return pkgerrors.Newf(pkgerrors.CodeNotFound, "%s not found", what)
	}
	return pkgerrors.Wrap(pkgerrors.CodeInternal, err, "load "+what)
}
