package money

import (
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRound2HalfAwayFromZero(t *testing.T) {
	assert.Equal(t, "1.01", Round2(decimal.RequireFromString("1.005")).StringFixed(2))
	assert.Equal(t, "-1.01", Round2(decimal.RequireFromString("-1.005")).StringFixed(2))
	assert.Equal(t, "2.00", Round2(decimal.RequireFromString("1.999")).StringFixed(2))
}

func TestPercent(t *testing.T) {
	assert.Equal(t, "15.00", Percent(decimal.NewFromInt(100), decimal.NewFromInt(15)).StringFixed(2))
	assert.Equal(t, "2.00", Percent(decimal.NewFromInt(20), decimal.NewFromInt(10)).StringFixed(2))
	assert.Equal(t, "1.23", Percent(decimal.RequireFromString("12.34"), decimal.NewFromInt(10)).StringFixed(2))
}

func TestMinMaxNonNegative(t *testing.T) {
	a := decimal.NewFromInt(3)
	b := decimal.NewFromInt(-2)
	assert.True(t, Max(a, b).Equal(a))
	assert.True(t, Min(a, b).Equal(b))
	assert.True(t, NonNegative(b).IsZero())
}

func TestFromString(t *testing.T) {
	d, err := FromString("10.239")
	require.NoError(t, err)
	assert.Equal(t, "10.24", d.StringFixed(2))

	_, err = FromString("ten")
	assert.Error(t, err)
}
