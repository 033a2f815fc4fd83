// Package catalog reads the vendor, product, address and zone facts the
// order core prices and authorizes against. Stock is the only column it
// writes.
package catalog

import (
	"context"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/angelmondragon/packdrop-backend/pkg/db/models"
	"github.com/angelmondragon/packdrop-backend/pkg/enums"
)

// Repository exposes catalog reads and the stock counters.
type Repository interface {
	WithTx(tx *gorm.DB) Repository
	FindVendor(ctx context.Context, id uuid.UUID) (*models.Vendor, error)
	FindVendorByUser(ctx context.Context, userID uuid.UUID) (*models.Vendor, error)
	FindProducts(ctx context.Context, vendorID uuid.UUID, ids []uuid.UUID) ([]models.Product, error)
	FindAddress(ctx context.Context, id uuid.UUID) (*models.Address, error)
	FindZone(ctx context.Context, id uuid.UUID) (*models.Zone, error)
	ZonesManagedBy(ctx context.Context, managerID uuid.UUID) ([]uuid.UUID, error)
	DecrementStock(ctx context.Context, productID uuid.UUID, qty int) (bool, error)
	IncrementStock(ctx context.Context, productID uuid.UUID, qty int) error
	CountVendorOrdersSince(ctx context.Context, vendorID uuid.UUID, since time.Time) (int64, error)
}

type repository struct {
	db *gorm.DB
}

// NewRepository returns a catalog repository bound to db.
func NewRepository(db *gorm.DB) Repository {
	return &repository{db: db}
}

func (r *repository) WithTx(tx *gorm.DB) Repository {
	if tx == nil {
		return r
	}
	return &repository{db: tx}
}

func (r *repository) FindVendor(ctx context.Context, id uuid.UUID) (*models.Vendor, error) {
	var vendor models.Vendor
	if err := r.db.WithContext(ctx).Preload("Plan").Where("id = ?", id).First(&vendor).Error; err != nil {
		return nil, err
	}
	return &vendor, nil
}

func (r *repository) FindVendorByUser(ctx context.Context, userID uuid.UUID) (*models.Vendor, error) {
	var vendor models.Vendor
	if err := r.db.WithContext(ctx).Preload("Plan").Where("user_id = ?", userID).First(&vendor).Error; err != nil {
		return nil, err
	}
	return &vendor, nil
}

func (r *repository) FindProducts(ctx context.Context, vendorID uuid.UUID, ids []uuid.UUID) ([]models.Product, error) {
	var products []models.Product
	err := r.db.WithContext(ctx).
		Where("vendor_id = ? AND id IN ?", vendorID, ids).
		Find(&products).Error
	return products, err
}

func (r *repository) FindAddress(ctx context.Context, id uuid.UUID) (*models.Address, error) {
	var address models.Address
	if err := r.db.WithContext(ctx).Where("id = ?", id).First(&address).Error; err != nil {
		return nil, err
	}
	return &address, nil
}

func (r *repository) FindZone(ctx context.Context, id uuid.UUID) (*models.Zone, error) {
	var zone models.Zone
	if err := r.db.WithContext(ctx).Where("id = ?", id).First(&zone).Error; err != nil {
		return nil, err
	}
	return &zone, nil
}

func (r *repository) ZonesManagedBy(ctx context.Context, managerID uuid.UUID) ([]uuid.UUID, error) {
	var ids []uuid.UUID
	err := r.db.WithContext(ctx).
		Model(&models.Zone{}).
		Where("manager_id = ?", managerID).
		Pluck("id", &ids).Error
	return ids, err
}

// DecrementStock takes qty units only when that many remain; false means the
// product was short.
func (r *repository) DecrementStock(ctx context.Context, productID uuid.UUID, qty int) (bool, error) {
	res := r.db.WithContext(ctx).
		Model(&models.Product{}).
		Where("id = ? AND stock >= ?", productID, qty).
		Updates(map[string]any{"stock": gorm.Expr("stock - ?", qty), "updated_at": time.Now().UTC()})
	return res.RowsAffected > 0, res.Error
}

func (r *repository) IncrementStock(ctx context.Context, productID uuid.UUID, qty int) error {
	return r.db.WithContext(ctx).
		Model(&models.Product{}).
		Where("id = ?", productID).
		Updates(map[string]any{"stock": gorm.Expr("stock + ?", qty), "updated_at": time.Now().UTC()}).Error
}

// CountVendorOrdersSince counts orders that consume the vendor's monthly
// quota. Rejected and cancelled orders do not count.
func (r *repository) CountVendorOrdersSince(ctx context.Context, vendorID uuid.UUID, since time.Time) (int64, error) {
	var n int64
	err := r.db.WithContext(ctx).
		Model(&models.Order{}).
		Where("vendor_id = ? AND created_at >= ?", vendorID, since.UTC()).
		Where("status NOT IN ?", []enums.OrderStatus{enums.OrderStatusVendorRejected, enums.OrderStatusCancelled}).
		Count(&n).Error
	return n, err
}
