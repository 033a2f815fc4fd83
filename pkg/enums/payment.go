package enums

import (
	"fmt"
	"slices"
)

// PaymentMethod describes how the customer settles an order. Wallet orders
// are charged at creation and escrowed; cash orders are collected by the
// driver and settled through manager confirmation.
type PaymentMethod string

const (
	PaymentMethodCash   PaymentMethod = "cash"
	PaymentMethodWallet PaymentMethod = "wallet"
	PaymentMethodOther  PaymentMethod = "other"
)

var paymentMethods = []PaymentMethod{PaymentMethodCash, PaymentMethodWallet, PaymentMethodOther}

func (p PaymentMethod) String() string { return string(p) }

func (p PaymentMethod) IsValid() bool { return slices.Contains(paymentMethods, p) }

func ParsePaymentMethod(value string) (PaymentMethod, error) {
	if m := PaymentMethod(value); m.IsValid() {
		return m, nil
	}
	return "", fmt.Errorf("invalid payment method %q", value)
}

// PaymentStatus tracks whether the order amount reached the platform.
type PaymentStatus string

const (
	PaymentStatusUnpaid   PaymentStatus = "unpaid"
	PaymentStatusPaid     PaymentStatus = "paid"
	PaymentStatusRefunded PaymentStatus = "refunded"
)

var paymentStatuses = []PaymentStatus{PaymentStatusUnpaid, PaymentStatusPaid, PaymentStatusRefunded}

func (p PaymentStatus) String() string { return string(p) }

func (p PaymentStatus) IsValid() bool { return slices.Contains(paymentStatuses, p) }

// Refundable reports whether money was taken and not yet returned.
func (p PaymentStatus) Refundable() bool { return p == PaymentStatusPaid }

func ParsePaymentStatus(value string) (PaymentStatus, error) {
	if s := PaymentStatus(value); s.IsValid() {
		return s, nil
	}
	return "", fmt.Errorf("invalid payment status %q", value)
}
