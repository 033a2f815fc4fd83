package orders

import (
	"context"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"github.com/angelmondragon/packdrop-backend/pkg/db/models"
	"github.com/angelmondragon/packdrop-backend/pkg/enums"
	"github.com/angelmondragon/packdrop-backend/pkg/pagination"
)

// Scope restricts a listing to what one actor may see. Empty fields do not
// filter; a non-nil empty ZoneIDs matches nothing.
type Scope struct {
	CustomerID *uuid.UUID
	VendorID   *uuid.UUID
	DriverID   *uuid.UUID
	ZoneIDs    []uuid.UUID
	Status     *enums.OrderStatus
}

// Repository defines persistence operations for orders and their lines.
type Repository interface {
	WithTx(tx *gorm.DB) Repository
	Create(ctx context.Context, order *models.Order) error
	Find(ctx context.Context, id uuid.UUID) (*models.Order, error)
	FindForUpdate(ctx context.Context, id uuid.UUID) (*models.Order, error)
	Save(ctx context.Context, order *models.Order, expected enums.OrderStatus) (bool, error)
	List(ctx context.Context, scope Scope, cursor *pagination.Cursor, limit int) ([]models.Order, error)
	ListReadyDue(ctx context.Context, cutoff time.Time, limit int) ([]models.Order, error)
	MarkReadyNotified(ctx context.Context, id uuid.UUID, now time.Time) (bool, error)
}

type repository struct {
	db *gorm.DB
}

// NewRepository returns an orders repository bound to db.
func NewRepository(db *gorm.DB) Repository {
	return &repository{db: db}
}

func (r *repository) WithTx(tx *gorm.DB) Repository {
	if tx == nil {
		return r
	}
	return &repository{db: tx}
}

// Create inserts the order together with its item lines.
func (r *repository) Create(ctx context.Context, order *models.Order) error {
	return r.db.WithContext(ctx).Create(order).Error
}

func (r *repository) Find(ctx context.Context, id uuid.UUID) (*models.Order, error) {
	return r.find(r.db.WithContext(ctx), id)
}

// FindForUpdate loads the order and holds its row lock until the surrounding
// transaction ends, so concurrent transitions on one order run one at a time.
// sqlite has no row locks and its dialect drops the clause.
func (r *repository) FindForUpdate(ctx context.Context, id uuid.UUID) (*models.Order, error) {
	return r.find(r.db.WithContext(ctx).Clauses(clause.Locking{Strength: "UPDATE"}), id)
}

func (r *repository) find(q *gorm.DB, id uuid.UUID) (*models.Order, error) {
	var order models.Order
	err := q.
		Preload("Items", func(db *gorm.DB) *gorm.DB { return db.Order("created_at ASC, id ASC") }).
		Where("id = ?", id).
		First(&order).Error
	if err != nil {
		return nil, err
	}
	return &order, nil
}

// Save writes every column of the order provided its stored status still
// equals expected. A false result means another writer moved the order.
func (r *repository) Save(ctx context.Context, order *models.Order, expected enums.OrderStatus) (bool, error) {
	res := r.db.WithContext(ctx).
		Model(order).
		Where("status = ?", expected).
		Select("*").
		Omit("ID", "CreatedAt", clause.Associations).
		Updates(order)
	if res.Error != nil {
		return false, res.Error
	}
	return res.RowsAffected > 0, nil
}

func (r *repository) List(ctx context.Context, scope Scope, cursor *pagination.Cursor, limit int) ([]models.Order, error) {
	q := r.db.WithContext(ctx).Model(&models.Order{})
	if scope.CustomerID != nil {
		q = q.Where("customer_id = ?", *scope.CustomerID)
	}
	if scope.VendorID != nil {
		q = q.Where("vendor_id = ?", *scope.VendorID)
	}
	if scope.DriverID != nil {
		q = q.Where("driver_id = ?", *scope.DriverID)
	}
	if scope.ZoneIDs != nil {
		if len(scope.ZoneIDs) == 0 {
			return []models.Order{}, nil
		}
		q = q.Where("zone_id IN ?", scope.ZoneIDs)
	}
	if scope.Status != nil {
		q = q.Where("status = ?", *scope.Status)
	}

	var rows []models.Order
	err := q.Scopes(pagination.Keyset(cursor, limit)).Find(&rows).Error
	return rows, err
}

// readyStatuses are the pre-pickup statuses in which preparation is tracked.
var readyStatuses = []enums.OrderStatus{
	enums.OrderStatusVendorAccepted,
	enums.OrderStatusDriverPending,
	enums.OrderStatusDriverRejected,
	enums.OrderStatusDriverAccepted,
}

// ListReadyDue returns orders whose estimated ready time is at or before
// cutoff and that have not had a ready notification yet, oldest first.
func (r *repository) ListReadyDue(ctx context.Context, cutoff time.Time, limit int) ([]models.Order, error) {
	var rows []models.Order
	err := r.db.WithContext(ctx).
		Where("status IN ?", readyStatuses).
		Where("ready_notified_at IS NULL").
		Where("estimated_ready_at IS NOT NULL AND estimated_ready_at <= ?", cutoff).
		Order("estimated_ready_at ASC").
		Limit(limit).
		Find(&rows).Error
	return rows, err
}

// MarkReadyNotified stamps ready_notified_at once; false means it was already set.
func (r *repository) MarkReadyNotified(ctx context.Context, id uuid.UUID, now time.Time) (bool, error) {
	res := r.db.WithContext(ctx).
		Model(&models.Order{}).
		Where("id = ? AND ready_notified_at IS NULL", id).
		UpdateColumn("ready_notified_at", now)
	if res.Error != nil {
		return false, res.Error
	}
	return res.RowsAffected > 0, nil
}
