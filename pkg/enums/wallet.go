package enums

import "fmt"

// WalletOwnerType identifies which party a wallet belongs to.
type WalletOwnerType string

const (
	WalletOwnerCustomer WalletOwnerType = "CUSTOMER"
	WalletOwnerVendor   WalletOwnerType = "VENDOR"
	WalletOwnerDriver   WalletOwnerType = "DRIVER"
	WalletOwnerPlatform WalletOwnerType = "PLATFORM"
)

var validWalletOwnerTypes = []WalletOwnerType{
	WalletOwnerCustomer,
	WalletOwnerVendor,
	WalletOwnerDriver,
	WalletOwnerPlatform,
}

// String implements fmt.Stringer.
func (w WalletOwnerType) String() string {
	return string(w)
}

// IsValid reports whether the value is a known WalletOwnerType.
func (w WalletOwnerType) IsValid() bool {
	for _, candidate := range validWalletOwnerTypes {
		if candidate == w {
			return true
		}
	}
	return false
}

// ParseWalletOwnerType converts raw input into a WalletOwnerType.
func ParseWalletOwnerType(value string) (WalletOwnerType, error) {
	for _, candidate := range validWalletOwnerTypes {
		if string(candidate) == value {
			return candidate, nil
		}
	}
	return "", fmt.Errorf("invalid wallet owner type %q", value)
}

// WalletTransactionType labels one journal row of a wallet mutation.
type WalletTransactionType string

const (
	WalletTxOrderPayment    WalletTransactionType = "ORDER_PAYMENT"
	WalletTxOrderRefund     WalletTransactionType = "ORDER_REFUND"
	WalletTxPendingCredit   WalletTransactionType = "PENDING_CREDIT"
	WalletTxPendingReversal WalletTransactionType = "PENDING_REVERSAL"
	WalletTxPendingRelease  WalletTransactionType = "PENDING_RELEASE"
	WalletTxEarning         WalletTransactionType = "EARNING"
	WalletTxCashCollected   WalletTransactionType = "CASH_COLLECTED"
	WalletTxCashHandover    WalletTransactionType = "CASH_HANDOVER"
	WalletTxTopUp           WalletTransactionType = "TOP_UP"
)

var validWalletTransactionTypes = []WalletTransactionType{
	WalletTxOrderPayment,
	WalletTxOrderRefund,
	WalletTxPendingCredit,
	WalletTxPendingReversal,
	WalletTxPendingRelease,
	WalletTxEarning,
	WalletTxCashCollected,
	WalletTxCashHandover,
	WalletTxTopUp,
}

// IsValid reports whether the value is a known WalletTransactionType.
func (w WalletTransactionType) IsValid() bool {
	for _, candidate := range validWalletTransactionTypes {
		if candidate == w {
			return true
		}
	}
	return false
}
