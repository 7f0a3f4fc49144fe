package models

import (
	"github.com/shopspring/decimal"
)

// CartKey, sepet satırının bileşik anahtarıdır (ürün + beden + renk).
type CartKey struct {
	ProductID int    `json:"product_id" form:"product_id"`
	Size      string `json:"size" form:"size"`
	Color     string `json:"color,omitempty" form:"color"`
}

// CartLine, sepetteki tek bir ürün+beden(+renk) satırını temsil eder.
type CartLine struct {
	ProductID int             `json:"product_id"`
	Name      string          `json:"name"`
	Price     decimal.Decimal `json:"price"`
	Image     string          `json:"image"`
	Size      string          `json:"size"`
	Color     string          `json:"color,omitempty"`
	Quantity  int             `json:"quantity"`
}

// Key, satırın bileşik anahtarını döndürür.
func (l CartLine) Key() CartKey {
	return CartKey{ProductID: l.ProductID, Size: l.Size, Color: l.Color}
}

// LineTotal, birim fiyat × adet.
func (l CartLine) LineTotal() decimal.Decimal {
	return l.Price.Mul(decimal.NewFromInt(int64(l.Quantity)))
}

// CartTotals, sepetten türetilen toplamlar. Asla ayrıca saklanmaz.
type CartTotals struct {
	ItemCount   int             `json:"item_count"`
	Subtotal    decimal.Decimal `json:"subtotal"`
	ShippingFee decimal.Decimal `json:"shipping_fee"`
	Payable     decimal.Decimal `json:"payable"`
}
