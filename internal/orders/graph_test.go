package orders

import (
	"testing"

	"github.com/angelmondragon/packdrop-backend/pkg/db/models"
	"github.com/angelmondragon/packdrop-backend/pkg/enums"
	pkgerrors "github.com/angelmondragon/packdrop-backend/pkg/errors"
)

func TestTransitionGraph(t *testing.T) {
	cases := []struct {
		from, to enums.OrderStatus
		want     bool
	}{
		{enums.OrderStatusPlaced, enums.OrderStatusVendorAccepted, true},
		{enums.OrderStatusPlaced, enums.OrderStatusDriverPending, false},
		{enums.OrderStatusPlaced, enums.OrderStatusShipped, false},
		{enums.OrderStatusVendorAccepted, enums.OrderStatusDriverPending, true},
		{enums.OrderStatusDriverRejected, enums.OrderStatusDriverPending, true},
		{enums.OrderStatusDriverAccepted, enums.OrderStatusDriverPending, true},
		{enums.OrderStatusDriverAccepted, enums.OrderStatusCompleted, true},
		{enums.OrderStatusShipped, enums.OrderStatusDriverPending, false},
		{enums.OrderStatusInTransit, enums.OrderStatusCancelled, true},
		{enums.OrderStatusCompleted, enums.OrderStatusCancelled, false},
		{enums.OrderStatusVendorRejected, enums.OrderStatusCancelled, false},
	}
	for _, tc := range cases {
		if got := CanTransition(tc.from, tc.to); got != tc.want {
			t.Errorf("CanTransition(%s, %s) = %v, want %v", tc.from, tc.to, got, tc.want)
		}
	}
}

func TestTerminalStatuses(t *testing.T) {
	for _, s := range []enums.OrderStatus{enums.OrderStatusCompleted, enums.OrderStatusCancelled, enums.OrderStatusVendorRejected} {
		if !IsTerminal(s) {
			t.Errorf("%s should be terminal", s)
		}
	}
	if IsTerminal(enums.OrderStatusInTransit) {
		t.Errorf("IN_TRANSIT should not be terminal")
	}
}

func TestMoveToRejectsMissingEdge(t *testing.T) {
	order := &models.Order{Status: enums.OrderStatusCompleted}
	err := moveTo(order, enums.OrderStatusCancelled)
	if !pkgerrors.IsCode(err, pkgerrors.CodeInvalidTransition) {
		t.Fatalf("expected invalid transition, got %v", err)
	}
	if order.Status != enums.OrderStatusCompleted {
		t.Fatalf("status changed to %s", order.Status)
	}
}

func TestOTPShape(t *testing.T) {
	code, err := generateOTP()
	if err != nil {
		t.Fatalf("generate: %v", err)
	}
	if len(code) != otpDigits {
		t.Fatalf("otp %q has %d digits", code, len(code))
	}
	other := code
	if !otpMatches(&code, &other) {
		t.Fatalf("identical codes should match")
	}
	if otpMatches(nil, &code) || otpMatches(&code, nil) {
		t.Fatalf("missing codes never match")
	}
}
