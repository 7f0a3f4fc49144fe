package services

import (
	"errors"
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"drog/internal/models"
)

func percent(code string, v int64) models.Coupon {
	return models.Coupon{Code: code, Type: models.DiscountPercent, Value: decimal.NewFromInt(v), Active: true}
}

func TestCouponStore_UpsertIsCaseInsensitive(t *testing.T) {
	s := NewCouponStore(testBridge(), nil)

	_, err := s.Add(percent("drog10", 10))
	require.NoError(t, err)
	_, err = s.Add(percent("DROG10", 15))
	require.NoError(t, err)

	list := s.List()
	require.Len(t, list, 1)
	assert.Equal(t, "DROG10", list[0].Code)
	assert.Equal(t, "15", list[0].Value.String())
}

func TestCouponStore_PersistsThroughBridge(t *testing.T) {
	bridge := testBridge()
	s := NewCouponStore(bridge, nil)
	_, err := s.Add(percent("summer", 20))
	require.NoError(t, err)

	again := NewCouponStore(bridge, nil)
	c, ok := again.Get("SUMMER")
	require.True(t, ok)
	assert.Equal(t, "20", c.Value.String())
}

func TestCouponStore_Validation(t *testing.T) {
	s := NewCouponStore(testBridge(), nil)
	tests := []struct {
		name string
		c    models.Coupon
	}{
		{"empty code", percent("  ", 10)},
		{"zero value", percent("X", 0)},
		{"over 100 percent", percent("X", 101)},
		{"unknown type", models.Coupon{Code: "X", Type: "bogo", Value: decimal.NewFromInt(1)}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := s.Add(tt.c)
			assert.True(t, errors.Is(err, models.ErrValidation))
		})
	}
	assert.Empty(t, s.List())
}

func TestCouponStore_UpdateAndDelete(t *testing.T) {
	s := NewCouponStore(testBridge(), nil)
	_, _ = s.Add(percent("A", 10))
	_, _ = s.Add(percent("B", 10))

	updated, err := s.Update("a", models.Coupon{Type: models.DiscountFixed, Value: decimal.NewFromInt(30), Active: false})
	require.NoError(t, err)
	assert.Equal(t, "A", updated.Code)
	c, _ := s.Get("A")
	assert.Equal(t, models.DiscountFixed, c.Type)
	assert.False(t, c.Active)

	// A'yı B olarak yeniden adlandırmak tek bir B bırakır.
	_, err = s.Update("A", percent("b", 5))
	require.NoError(t, err)
	list := s.List()
	require.Len(t, list, 1)
	assert.Equal(t, "5", list[0].Value.String())

	_, err = s.Update("missing", percent("missing", 5))
	assert.True(t, errors.Is(err, models.ErrNotFound))

	require.NoError(t, s.Delete("b"))
	assert.True(t, errors.Is(s.Delete("b"), models.ErrNotFound))
	assert.Empty(t, s.List())
}

func TestDiscount(t *testing.T) {
	lines := []models.CartLine{
		{ProductID: 1, Price: decimal.NewFromInt(450), Quantity: 2},
		{ProductID: 2, Price: decimal.NewFromInt(850), Quantity: 1},
	}

	assert.Equal(t, "175", Discount(percent("P", 10), lines).String())

	restricted := percent("P", 10)
	restricted.ProductIDs = []int{2}
	assert.Equal(t, "85", Discount(restricted, lines).String())

	fixed := models.Coupon{Code: "F", Type: models.DiscountFixed, Value: decimal.NewFromInt(5000)}
	assert.Equal(t, "1750", Discount(fixed, lines).String())

	none := percent("N", 10)
	none.ProductIDs = []int{42}
	assert.True(t, Discount(none, lines).IsZero())
}
