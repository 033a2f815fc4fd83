package wallet

import (
	"context"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"github.com/angelmondragon/packdrop-backend/pkg/db/models"
	"github.com/angelmondragon/packdrop-backend/pkg/enums"
	"github.com/angelmondragon/packdrop-backend/pkg/pagination"
)

// Repository persists wallets and their journal.
type Repository interface {
	WithTx(tx *gorm.DB) Repository
	Find(ctx context.Context, ownerType enums.WalletOwnerType, ownerID uuid.UUID) (*models.Wallet, error)
	FindByID(ctx context.Context, id uuid.UUID) (*models.Wallet, error)
	GetOrCreate(ctx context.Context, ownerType enums.WalletOwnerType, ownerID uuid.UUID) (*models.Wallet, error)
	Adjust(ctx context.Context, walletID uuid.UUID, balanceDelta, pendingDelta decimal.Decimal, minBalance *decimal.Decimal) (bool, error)
	AppendTransaction(ctx context.Context, txn *models.WalletTransaction) error
	ListTransactions(ctx context.Context, walletID uuid.UUID, cursor *pagination.Cursor, limit int) ([]models.WalletTransaction, error)
}

type repository struct {
	db *gorm.DB
}

// NewRepository returns a wallet repository bound to db.
func NewRepository(db *gorm.DB) Repository {
	return &repository{db: db}
}

func (r *repository) WithTx(tx *gorm.DB) Repository {
	if tx == nil {
		return r
	}
	return &repository{db: tx}
}

func (r *repository) Find(ctx context.Context, ownerType enums.WalletOwnerType, ownerID uuid.UUID) (*models.Wallet, error) {
	var w models.Wallet
	if err := r.db.WithContext(ctx).
		Where("owner_type = ? AND owner_id = ?", ownerType, ownerID).
		First(&w).Error; err != nil {
		return nil, err
	}
	return &w, nil
}

func (r *repository) FindByID(ctx context.Context, id uuid.UUID) (*models.Wallet, error) {
	var w models.Wallet
	if err := r.db.WithContext(ctx).Where("id = ?", id).First(&w).Error; err != nil {
		return nil, err
	}
	return &w, nil
}

// GetOrCreate inserts an empty wallet when the owner has none. A concurrent
// insert for the same owner is absorbed by the unique owner index.
func (r *repository) GetOrCreate(ctx context.Context, ownerType enums.WalletOwnerType, ownerID uuid.UUID) (*models.Wallet, error) {
	w := &models.Wallet{OwnerType: ownerType, OwnerID: ownerID}
	if err := r.db.WithContext(ctx).
		Clauses(clause.OnConflict{DoNothing: true}).
		Create(w).Error; err != nil {
		return nil, err
	}
	return r.Find(ctx, ownerType, ownerID)
}

// Adjust applies both deltas in one statement. With minBalance set the update
// only lands when the current balance is at least that amount; the bool
// reports whether a row changed.
func (r *repository) Adjust(ctx context.Context, walletID uuid.UUID, balanceDelta, pendingDelta decimal.Decimal, minBalance *decimal.Decimal) (bool, error) {
	q := r.db.WithContext(ctx).Model(&models.Wallet{}).Where("id = ?", walletID)
	if minBalance != nil {
		q = q.Where("balance >= ?", *minBalance)
	}
	res := q.Updates(map[string]any{
		"balance":         gorm.Expr("balance + ?", balanceDelta),
		"pending_balance": gorm.Expr("pending_balance + ?", pendingDelta),
		"updated_at":      time.Now().UTC(),
	})
	if res.Error != nil {
		return false, res.Error
	}
	return res.RowsAffected > 0, nil
}

func (r *repository) AppendTransaction(ctx context.Context, txn *models.WalletTransaction) error {
	return r.db.WithContext(ctx).Create(txn).Error
}

func (r *repository) ListTransactions(ctx context.Context, walletID uuid.UUID, cursor *pagination.Cursor, limit int) ([]models.WalletTransaction, error) {
	var rows []models.WalletTransaction
	err := r.db.WithContext(ctx).
		Where("wallet_id = ?", walletID).
		Scopes(pagination.Keyset(cursor, limit)).
		Find(&rows).Error
	return rows, err
}
