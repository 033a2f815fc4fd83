// Package wallet implements the balance ledger and the escrow of prepaid
// wallet orders.
package wallet

import (
	"context"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"

	"github.com/angelmondragon/packdrop-backend/pkg/db/models"
	"github.com/angelmondragon/packdrop-backend/pkg/enums"
	pkgerrors "github.com/angelmondragon/packdrop-backend/pkg/errors"
	"github.com/angelmondragon/packdrop-backend/pkg/money"
	"github.com/angelmondragon/packdrop-backend/pkg/pagination"
)

// Entry describes one wallet mutation.
type Entry struct {
	OwnerType    enums.WalletOwnerType
	OwnerID      uuid.UUID
	OrderID      *uuid.UUID
	Type         enums.WalletTransactionType
	Amount       decimal.Decimal
	RequireFunds bool
}

// Ledger mutates wallet balances. Every mutation appends a journal row in the
// same transaction. Pending amounts may be negative for the platform wallet
// when the delivery pay floor is subsidised.
type Ledger interface {
	Debit(ctx context.Context, tx *gorm.DB, entry Entry) (*models.Wallet, error)
	Credit(ctx context.Context, tx *gorm.DB, entry Entry) (*models.Wallet, error)
	CreditPending(ctx context.Context, tx *gorm.DB, entry Entry) (*models.Wallet, error)
	ReversePending(ctx context.Context, tx *gorm.DB, entry Entry) (*models.Wallet, error)
	ReleasePending(ctx context.Context, tx *gorm.DB, entry Entry) (*models.Wallet, error)
	Balance(ctx context.Context, tx *gorm.DB, ownerType enums.WalletOwnerType, ownerID uuid.UUID) (*models.Wallet, error)
	ListTransactions(ctx context.Context, ownerType enums.WalletOwnerType, ownerID uuid.UUID, params pagination.Params) (*pagination.Page[models.WalletTransaction], error)
}

type ledger struct {
	repo Repository
}

// NewLedger wires the wallet ledger.
func NewLedger(repo Repository) (Ledger, error) {
	if repo == nil {
		return nil, fmt.Errorf("wallet repository required")
	}
	return &ledger{repo: repo}, nil
}

func (l *ledger) Debit(ctx context.Context, tx *gorm.DB, entry Entry) (*models.Wallet, error) {
	if err := requirePositive(entry); err != nil {
		return nil, err
	}
	amount := money.Round2(entry.Amount)
	var floor *decimal.Decimal
	if entry.RequireFunds {
		floor = &amount
	}
	return l.apply(ctx, tx, entry, amount.Neg(), decimal.Zero, floor)
}

func (l *ledger) Credit(ctx context.Context, tx *gorm.DB, entry Entry) (*models.Wallet, error) {
	if err := requirePositive(entry); err != nil {
		return nil, err
	}
	return l.apply(ctx, tx, entry, money.Round2(entry.Amount), decimal.Zero, nil)
}

func (l *ledger) CreditPending(ctx context.Context, tx *gorm.DB, entry Entry) (*models.Wallet, error) {
	return l.apply(ctx, tx, entry, decimal.Zero, money.Round2(entry.Amount), nil)
}

func (l *ledger) ReversePending(ctx context.Context, tx *gorm.DB, entry Entry) (*models.Wallet, error) {
	return l.apply(ctx, tx, entry, decimal.Zero, money.Round2(entry.Amount).Neg(), nil)
}

func (l *ledger) ReleasePending(ctx context.Context, tx *gorm.DB, entry Entry) (*models.Wallet, error) {
	amount := money.Round2(entry.Amount)
	return l.apply(ctx, tx, entry, amount, amount.Neg(), nil)
}

func (l *ledger) apply(ctx context.Context, tx *gorm.DB, entry Entry, balanceDelta, pendingDelta decimal.Decimal, floor *decimal.Decimal) (*models.Wallet, error) {
	if !entry.OwnerType.IsValid() {
		return nil, pkgerrors.Newf(pkgerrors.CodeValidation, "invalid wallet owner type %q", entry.OwnerType)
	}
	if entry.OwnerID == uuid.Nil && entry.OwnerType != enums.WalletOwnerPlatform {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "wallet owner required")
	}

	repo := l.repo.WithTx(tx)
	w, err := repo.GetOrCreate(ctx, entry.OwnerType, entry.OwnerID)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "load wallet")
	}
	if balanceDelta.IsZero() && pendingDelta.IsZero() {
		return w, nil
	}

	ok, err := repo.Adjust(ctx, w.ID, balanceDelta, pendingDelta, floor)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "adjust wallet")
	}
	if !ok {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "insufficient wallet balance")
	}

	w, err = repo.FindByID(ctx, w.ID)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "reload wallet")
	}
	w.Balance = money.Round2(w.Balance)
	w.PendingBalance = money.Round2(w.PendingBalance)

	amount := balanceDelta
	if amount.IsZero() {
		amount = pendingDelta
	}
	if err := repo.AppendTransaction(ctx, &models.WalletTransaction{
		WalletID:     w.ID,
		OrderID:      entry.OrderID,
		Type:         entry.Type,
		Amount:       amount,
		BalanceAfter: w.Balance,
		PendingAfter: w.PendingBalance,
	}); err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "append wallet transaction")
	}
	return w, nil
}

// Balance returns the owner's wallet, or an empty one when none exists yet.
func (l *ledger) Balance(ctx context.Context, tx *gorm.DB, ownerType enums.WalletOwnerType, ownerID uuid.UUID) (*models.Wallet, error) {
	w, err := l.repo.WithTx(tx).Find(ctx, ownerType, ownerID)
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return &models.Wallet{OwnerType: ownerType, OwnerID: ownerID}, nil
	}
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "load wallet")
	}
	w.Balance = money.Round2(w.Balance)
	w.PendingBalance = money.Round2(w.PendingBalance)
	return w, nil
}

func (l *ledger) ListTransactions(ctx context.Context, ownerType enums.WalletOwnerType, ownerID uuid.UUID, params pagination.Params) (*pagination.Page[models.WalletTransaction], error) {
	cursor, err := pagination.ParseCursor(params.Cursor)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeValidation, err, "invalid cursor")
	}
	w, err := l.repo.Find(ctx, ownerType, ownerID)
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return &pagination.Page[models.WalletTransaction]{Items: []models.WalletTransaction{}}, nil
	}
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "load wallet")
	}

	rows, err := l.repo.ListTransactions(ctx, w.ID, cursor, pagination.LimitWithBuffer(params.Limit))
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "list wallet transactions")
	}
	page := pagination.Trim(rows, params.Limit, func(row models.WalletTransaction) pagination.Cursor {
		return pagination.Cursor{CreatedAt: row.CreatedAt, ID: row.ID}
	})
	return &page, nil
}

func requirePositive(entry Entry) error {
	if entry.Amount.IsNegative() {
		return pkgerrors.New(pkgerrors.CodeValidation, "amount must not be negative")
	}
	return nil
}
