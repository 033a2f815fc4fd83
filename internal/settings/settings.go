// Package settings resolves the platform commission and delivery settings.
// Values come from configuration and may be overridden at runtime through a
// Redis hash, so operators can change rates without a redeploy.
package settings

import (
	"context"
	"fmt"
	"strconv"

	"github.com/shopspring/decimal"

	"github.com/angelmondragon/packdrop-backend/pkg/config"
	pkgerrors "github.com/angelmondragon/packdrop-backend/pkg/errors"
	"github.com/angelmondragon/packdrop-backend/pkg/logger"
	"github.com/angelmondragon/packdrop-backend/pkg/money"
)

// Hash fields accepted in the override hash.
const (
	FieldVendorRate      = "vendor_rate"
	FieldDriverRate      = "driver_rate"
	FieldMinDeliveryPay  = "min_delivery_pay"
	FieldMinDeliveryFee  = "min_delivery_fee"
	FieldPerKmRate       = "per_km_rate"
	FieldAutoReleaseDays = "auto_release_days"
	FieldMaxDriverDebt   = "max_driver_debt"
)

var hundred = decimal.NewFromInt(100)

// Settings is the snapshot of platform knobs read at the start of an operation.
type Settings struct {
	VendorCommissionRate decimal.Decimal `json:"vendor_commission_rate"`
	DriverCommissionRate decimal.Decimal `json:"driver_commission_rate"`
	MinDeliveryPay       decimal.Decimal `json:"min_delivery_pay"`
	MinDeliveryFee       decimal.Decimal `json:"min_delivery_fee"`
	PerKmRate            decimal.Decimal `json:"per_km_rate"`
	AutoReleaseDays      int             `json:"auto_release_days"`
	MaxDriverDebt        decimal.Decimal `json:"max_driver_debt"`
}

// Provider returns the settings in force.
type Provider interface {
	Current(ctx context.Context) (Settings, error)
}

// FromConfig maps the commission config section onto Settings.
func FromConfig(cfg config.CommissionConfig) Settings {
	return Settings{
		VendorCommissionRate: cfg.VendorRate,
		DriverCommissionRate: cfg.DriverRate,
		MinDeliveryPay:       money.Round2(cfg.MinDeliveryPay),
		MinDeliveryFee:       money.Round2(cfg.MinDeliveryFee),
		PerKmRate:            cfg.PerKmRate,
		AutoReleaseDays:      cfg.AutoReleaseDays,
		MaxDriverDebt:        money.Round2(cfg.MaxDriverDebt),
	}
}

type static struct {
	settings Settings
}

// Static returns a provider that always yields s.
func Static(s Settings) Provider {
	return static{settings: s}
}

func (s static) Current(context.Context) (Settings, error) {
	return s.settings, nil
}

// Patch carries the fields an operator wants to override. Nil fields keep
// their current value.
type Patch struct {
	VendorCommissionRate *decimal.Decimal `json:"vendor_commission_rate,omitempty"`
	DriverCommissionRate *decimal.Decimal `json:"driver_commission_rate,omitempty"`
	MinDeliveryPay       *decimal.Decimal `json:"min_delivery_pay,omitempty"`
	MinDeliveryFee       *decimal.Decimal `json:"min_delivery_fee,omitempty"`
	PerKmRate            *decimal.Decimal `json:"per_km_rate,omitempty"`
	AutoReleaseDays      *int             `json:"auto_release_days,omitempty"`
	MaxDriverDebt        *decimal.Decimal `json:"max_driver_debt,omitempty"`
}

func (p Patch) validate() error {
	for field, rate := range map[string]*decimal.Decimal{
		FieldVendorRate: p.VendorCommissionRate,
		FieldDriverRate: p.DriverCommissionRate,
	} {
		if rate != nil && (rate.IsNegative() || rate.GreaterThan(hundred)) {
			return pkgerrors.Newf(pkgerrors.CodeValidation, "%s must be between 0 and 100", field)
		}
	}
	for field, amount := range map[string]*decimal.Decimal{
		FieldMinDeliveryPay: p.MinDeliveryPay,
		FieldMinDeliveryFee: p.MinDeliveryFee,
		FieldPerKmRate:      p.PerKmRate,
		FieldMaxDriverDebt:  p.MaxDriverDebt,
	} {
		if amount != nil && amount.IsNegative() {
			return pkgerrors.Newf(pkgerrors.CodeValidation, "%s must not be negative", field)
		}
	}
	if p.AutoReleaseDays != nil && *p.AutoReleaseDays < 0 {
		return pkgerrors.Newf(pkgerrors.CodeValidation, "%s must not be negative", FieldAutoReleaseDays)
	}
	return nil
}

func (p Patch) fields() map[string]string {
	out := map[string]string{}
	put := func(field string, v *decimal.Decimal) {
		if v != nil {
			out[field] = v.String()
		}
	}
	put(FieldVendorRate, p.VendorCommissionRate)
	put(FieldDriverRate, p.DriverCommissionRate)
	put(FieldMinDeliveryPay, p.MinDeliveryPay)
	put(FieldMinDeliveryFee, p.MinDeliveryFee)
	put(FieldPerKmRate, p.PerKmRate)
	put(FieldMaxDriverDebt, p.MaxDriverDebt)
	if p.AutoReleaseDays != nil {
		out[FieldAutoReleaseDays] = strconv.Itoa(*p.AutoReleaseDays)
	}
	return out
}

// apply overlays raw hash fields onto base. Unparseable or out-of-range
// values are reported and skipped.
func apply(base Settings, raw map[string]string) (Settings, []error) {
	var errs []error
	rate := func(field string, dst *decimal.Decimal) {
		v, ok := raw[field]
		if !ok {
			return
		}
		d, err := decimal.NewFromString(v)
		if err != nil || d.IsNegative() || d.GreaterThan(hundred) {
			errs = append(errs, fmt.Errorf("invalid %s override %q", field, v))
			return
		}
		*dst = d
	}
	amount := func(field string, dst *decimal.Decimal) {
		v, ok := raw[field]
		if !ok {
			return
		}
		d, err := money.FromString(v)
		if err != nil || d.IsNegative() {
			errs = append(errs, fmt.Errorf("invalid %s override %q", field, v))
			return
		}
		*dst = d
	}

	rate(FieldVendorRate, &base.VendorCommissionRate)
	rate(FieldDriverRate, &base.DriverCommissionRate)
	amount(FieldMinDeliveryPay, &base.MinDeliveryPay)
	amount(FieldMinDeliveryFee, &base.MinDeliveryFee)
	amount(FieldMaxDriverDebt, &base.MaxDriverDebt)
	if v, ok := raw[FieldPerKmRate]; ok {
		d, err := decimal.NewFromString(v)
		if err != nil || d.IsNegative() {
			errs = append(errs, fmt.Errorf("invalid %s override %q", FieldPerKmRate, v))
		} else {
			base.PerKmRate = d
		}
	}
	if v, ok := raw[FieldAutoReleaseDays]; ok {
		days, err := strconv.Atoi(v)
		if err != nil || days < 0 {
			errs = append(errs, fmt.Errorf("invalid %s override %q", FieldAutoReleaseDays, v))
		} else {
			base.AutoReleaseDays = days
		}
	}
	return base, errs
}

type hashStore interface {
	HGetAll(ctx context.Context, key string) (map[string]string, error)
	HSet(ctx context.Context, key string, values map[string]string) error
}

// Store is the Redis-backed provider. Reads fall back to the configured
// defaults when Redis is unavailable.
type Store struct {
	defaults Settings
	hash     hashStore
	key      string
	logg     *logger.Logger
}

// NewStore wires a provider over the override hash stored at key.
func NewStore(defaults Settings, hash hashStore, key string, logg *logger.Logger) (*Store, error) {
	if hash == nil {
		return nil, fmt.Errorf("settings hash store required")
	}
	if key == "" {
		return nil, fmt.Errorf("settings key required")
	}
	if logg == nil {
		logg = logger.Nop()
	}
	return &Store{defaults: defaults, hash: hash, key: key, logg: logg}, nil
}

func (s *Store) Current(ctx context.Context) (Settings, error) {
	raw, err := s.hash.HGetAll(ctx, s.key)
	if err != nil {
		s.logg.Warn(s.logg.WithField(ctx, "error", err.Error()), "settings override unavailable, using defaults")
		return s.defaults, nil
	}
	current, errs := apply(s.defaults, raw)
	for _, e := range errs {
		s.logg.Warn(s.logg.WithField(ctx, "error", e.Error()), "ignoring settings override")
	}
	return current, nil
}

// Update validates and persists an override patch, returning the settings now in force.
func (s *Store) Update(ctx context.Context, patch Patch) (Settings, error) {
	if err := patch.validate(); err != nil {
		return Settings{}, err
	}
	fields := patch.fields()
	if len(fields) == 0 {
		return s.Current(ctx)
	}
	if err := s.hash.HSet(ctx, s.key, fields); err != nil {
		return Settings{}, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "store settings override")
	}
	return s.Current(ctx)
}
