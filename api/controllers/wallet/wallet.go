// Package wallet serves wallet balances and transaction history.
package wallet

import (
	"net/http"
	"strings"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/angelmondragon/packdrop-backend/api/controllers/vendorcontext"
	"github.com/angelmondragon/packdrop-backend/api/middleware"
	"github.com/angelmondragon/packdrop-backend/api/responses"
	"github.com/angelmondragon/packdrop-backend/api/validators"
	internalwallet "github.com/angelmondragon/packdrop-backend/internal/wallet"
	"github.com/angelmondragon/packdrop-backend/pkg/db/models"
	"github.com/angelmondragon/packdrop-backend/pkg/enums"
	pkgerrors "github.com/angelmondragon/packdrop-backend/pkg/errors"
	"github.com/angelmondragon/packdrop-backend/pkg/logger"
	"github.com/angelmondragon/packdrop-backend/pkg/pagination"
)

type balanceResponse struct {
	OwnerType      enums.WalletOwnerType `json:"owner_type"`
	OwnerID        uuid.UUID             `json:"owner_id"`
	Balance        decimal.Decimal       `json:"balance"`
	PendingBalance decimal.Decimal       `json:"pending_balance"`
}

type transactionResponse struct {
	ID           uuid.UUID                   `json:"id"`
	OrderID      *uuid.UUID                  `json:"order_id,omitempty"`
	Type         enums.WalletTransactionType `json:"type"`
	Amount       decimal.Decimal             `json:"amount"`
	BalanceAfter decimal.Decimal             `json:"balance_after"`
	PendingAfter decimal.Decimal             `json:"pending_after"`
	CreatedAt    time.Time                   `json:"created_at"`
}

type owner struct {
	kind enums.WalletOwnerType
	id   uuid.UUID
}

// ownWallet maps the caller's role onto the wallet they hold.
func ownWallet(r *http.Request, vendors vendorcontext.VendorLookup) (owner, error) {
	actor, err := middleware.RequireActor(r)
	if err != nil {
		return owner{}, err
	}
	switch actor.Role {
	case enums.ActorRoleCustomer:
		return owner{kind: enums.WalletOwnerCustomer, id: actor.UserID}, nil
	case enums.ActorRoleDriver:
		return owner{kind: enums.WalletOwnerDriver, id: actor.UserID}, nil
	case enums.ActorRoleVendor:
		vendorID, err := vendorcontext.ResolveVendorID(r, vendors)
		if err != nil {
			return owner{}, err
		}
		return owner{kind: enums.WalletOwnerVendor, id: vendorID}, nil
	default:
		return owner{}, pkgerrors.New(pkgerrors.CodeForbidden, "role holds no wallet")
	}
}

// namedWallet reads {ownerType}/{ownerId} for admin lookups. The platform
// wallet has no owner id.
func namedWallet(r *http.Request) (owner, error) {
	kind, err := enums.ParseWalletOwnerType(strings.ToUpper(strings.TrimSpace(chi.URLParam(r, "ownerType"))))
	if err != nil {
		return owner{}, pkgerrors.Wrap(pkgerrors.CodeValidation, err, "invalid wallet owner type")
	}
	if kind == enums.WalletOwnerPlatform {
		return owner{kind: kind, id: models.PlatformOwnerID}, nil
	}
	id, err := validators.URLParamUUID(r, "ownerId")
	if err != nil {
		return owner{}, err
	}
	return owner{kind: kind, id: id}, nil
}

func balance(ledger internalwallet.Ledger, logg *logger.Logger, resolve func(*http.Request) (owner, error)) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if ledger == nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeInternal, "wallet ledger unavailable"))
			return
		}
		o, err := resolve(r)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		wallet, err := ledger.Balance(r.Context(), nil, o.kind, o.id)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, balanceResponse{
			OwnerType:      o.kind,
			OwnerID:        o.id,
			Balance:        wallet.Balance,
			PendingBalance: wallet.PendingBalance,
		})
	}
}

func transactions(ledger internalwallet.Ledger, logg *logger.Logger, resolve func(*http.Request) (owner, error)) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if ledger == nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeInternal, "wallet ledger unavailable"))
			return
		}
		o, err := resolve(r)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		params, err := validators.ParsePagination(r)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		page, err := ledger.ListTransactions(r.Context(), o.kind, o.id, params)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		out := pagination.Page[transactionResponse]{Items: []transactionResponse{}, NextCursor: page.NextCursor}
		for _, tx := range page.Items {
			out.Items = append(out.Items, transactionResponse{
				ID:           tx.ID,
				OrderID:      tx.OrderID,
				Type:         tx.Type,
				Amount:       tx.Amount,
				BalanceAfter: tx.BalanceAfter,
				PendingAfter: tx.PendingAfter,
				CreatedAt:    tx.CreatedAt,
			})
		}
		responses.WriteSuccess(w, out)
	}
}

// Mine returns the caller's own balance.
func Mine(ledger internalwallet.Ledger, vendors vendorcontext.VendorLookup, logg *logger.Logger) http.HandlerFunc {
	return balance(ledger, logg, func(r *http.Request) (owner, error) { return ownWallet(r, vendors) })
}

func MyTransactions(ledger internalwallet.Ledger, vendors vendorcontext.VendorLookup, logg *logger.Logger) http.HandlerFunc {
	return transactions(ledger, logg, func(r *http.Request) (owner, error) { return ownWallet(r, vendors) })
}

// Lookup lets admins read any wallet.
func Lookup(ledger internalwallet.Ledger, logg *logger.Logger) http.HandlerFunc {
	return balance(ledger, logg, namedWallet)
}

func LookupTransactions(ledger internalwallet.Ledger, logg *logger.Logger) http.HandlerFunc {
	return transactions(ledger, logg, namedWallet)
}
