package settings

import (
	"context"
	"errors"
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	pkgerrors "github.com/angelmondragon/packdrop-backend/pkg/errors"
)

type fakeHash struct {
	values map[string]string
	err    error
}

func (f *fakeHash) HGetAll(context.Context, string) (map[string]string, error) {
	if f.err != nil {
		return nil, f.err
	}
	out := map[string]string{}
	for k, v := range f.values {
		out[k] = v
	}
	return out, nil
}

func (f *fakeHash) HSet(_ context.Context, _ string, values map[string]string) error {
	if f.err != nil {
		return f.err
	}
	if f.values == nil {
		f.values = map[string]string{}
	}
	for k, v := range values {
		f.values[k] = v
	}
	return nil
}

func defaults() Settings {
	return Settings{
		VendorCommissionRate: decimal.NewFromInt(15),
		DriverCommissionRate: decimal.NewFromInt(10),
		MinDeliveryPay:       decimal.NewFromInt(15),
		MinDeliveryFee:       decimal.NewFromInt(20),
		PerKmRate:            decimal.NewFromInt(5),
		AutoReleaseDays:      3,
		MaxDriverDebt:        decimal.NewFromInt(500),
	}
}

func TestStoreCurrentAppliesOverrides(t *testing.T) {
	hash := &fakeHash{values: map[string]string{
		FieldVendorRate:      "12.5",
		FieldAutoReleaseDays: "7",
		FieldDriverRate:      "140",
		FieldMinDeliveryPay:  "abc",
	}}
	store, err := NewStore(defaults(), hash, "pd:settings:commission", nil)
	require.NoError(t, err)

	got, err := store.Current(context.Background())
	require.NoError(t, err)
	assert.True(t, got.VendorCommissionRate.Equal(decimal.RequireFromString("12.5")))
	assert.Equal(t, 7, got.AutoReleaseDays)
	assert.True(t, got.DriverCommissionRate.Equal(decimal.NewFromInt(10)), "out of range override ignored")
	assert.True(t, got.MinDeliveryPay.Equal(decimal.NewFromInt(15)), "bad override ignored")
}

func TestStoreFallsBackWhenRedisDown(t *testing.T) {
	store, err := NewStore(defaults(), &fakeHash{err: errors.New("connection refused")}, "k", nil)
	require.NoError(t, err)

	got, err := store.Current(context.Background())
	require.NoError(t, err)
	assert.Equal(t, defaults(), got)
}

func TestStoreUpdate(t *testing.T) {
	hash := &fakeHash{}
	store, err := NewStore(defaults(), hash, "k", nil)
	require.NoError(t, err)

	rate := decimal.NewFromInt(8)
	got, err := store.Update(context.Background(), Patch{DriverCommissionRate: &rate})
	require.NoError(t, err)
	assert.True(t, got.DriverCommissionRate.Equal(rate))
	assert.Equal(t, "8", hash.values[FieldDriverRate])

	bad := decimal.NewFromInt(101)
	_, err = store.Update(context.Background(), Patch{VendorCommissionRate: &bad})
	assert.True(t, pkgerrors.IsCode(err, pkgerrors.CodeValidation))

	days := -1
	_, err = store.Update(context.Background(), Patch{AutoReleaseDays: &days})
	assert.True(t, pkgerrors.IsCode(err, pkgerrors.CodeValidation))
}

func TestNewStoreRequiresDeps(t *testing.T) {
	_, err := NewStore(defaults(), nil, "k", nil)
	assert.Error(t, err)
	_, err = NewStore(defaults(), &fakeHash{}, "", nil)
	assert.Error(t, err)
}
