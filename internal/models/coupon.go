package models

import (
	"strings"

	"github.com/shopspring/decimal"
)

// DiscountType, kupon indirim türü.
type DiscountType string

const (
	DiscountPercent DiscountType = "percent"
	DiscountFixed   DiscountType = "fixed"
)

// Coupon, yalnızca istemci tarafında saklanan indirim kuponu.
type Coupon struct {
	Code       string          `json:"code"`
	Type       DiscountType    `json:"type"`
	Value      decimal.Decimal `json:"value"`
	ProductIDs []int           `json:"product_ids,omitempty"`
	Active     bool            `json:"active"`
}

// NormalizeCode, kupon kodunu karşılaştırma için büyük harfe çevirir.
func NormalizeCode(code string) string {
	return strings.ToUpper(strings.TrimSpace(code))
}

// AppliesTo reports whether the coupon covers productID.
func (c Coupon) AppliesTo(productID int) bool {
	if len(c.ProductIDs) == 0 {
		return true
	}
	for _, id := range c.ProductIDs {
		if id == productID {
			return true
		}
	}
	return false
}
