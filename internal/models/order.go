package models

import (
	"strings"
	"time"

	"github.com/shopspring/decimal"
)

// PaymentMethod, ödeme yöntemini belirtir.
type PaymentMethod string

const (
	PaymentCashOnDelivery PaymentMethod = "cash_on_delivery"
	PaymentMobileWallet   PaymentMethod = "mobile_wallet"
	PaymentOther          PaymentMethod = "other"
)

// Valid reports whether m is one of the known payment methods.
func (m PaymentMethod) Valid() bool {
	switch m {
	case PaymentCashOnDelivery, PaymentMobileWallet, PaymentOther:
		return true
	}
	return false
}

// OrderRef, bir siparişi id ve documentId ile tanımlar.
type OrderRef struct {
	ID         int    `json:"id"`
	DocumentID string `json:"documentId,omitempty"`
}

// OrderStatus, sipariş durumu. CMS farklı yerlerde farklı kelimeler kullanıyor,
// burada hepsinin birleşimi tutulur.
type OrderStatus string

const (
	OrderPending   OrderStatus = "pending"
	OrderConfirmed OrderStatus = "confirmed"
	OrderShipped   OrderStatus = "shipped"
	OrderDelivered OrderStatus = "delivered"
	OrderCompleted OrderStatus = "completed"
	OrderCancelled OrderStatus = "cancelled"
)

var orderStatuses = []OrderStatus{
	OrderPending, OrderConfirmed, OrderShipped, OrderDelivered, OrderCompleted, OrderCancelled,
}

// OrderStatuses returns the canonical status vocabulary.
func OrderStatuses() []OrderStatus {
	out := make([]OrderStatus, len(orderStatuses))
	copy(out, orderStatuses)
	return out
}

// ParseOrderStatus, gelen değeri kanonik duruma çevirir.
// "canceled" yazımı da kabul edilir.
func ParseOrderStatus(s string) (OrderStatus, bool) {
	v := strings.ToLower(strings.TrimSpace(s))
	if v == "canceled" {
		v = string(OrderCancelled)
	}
	for _, st := range orderStatuses {
		if string(st) == v {
			return st, true
		}
	}
	return "", false
}

// OrderLine, sipariş anındaki sepet satırının kopyasıdır; sepete canlı bağlı değildir.
type OrderLine struct {
	ProductID int             `json:"product_id"`
	Name      string          `json:"name"`
	Size      string          `json:"size"`
	Color     string          `json:"color,omitempty"`
	Quantity  int             `json:"quantity"`
	Price     decimal.Decimal `json:"price"`
}

// Order, CMS tarafından kimlik atanmış siparişi temsil eder.
type Order struct {
	ID            int             `json:"id"`
	DocumentID    string          `json:"documentId,omitempty"`
	ClientRef     string          `json:"client_ref,omitempty"`
	CustomerName  string          `json:"customer_name"`
	Phone         string          `json:"phone"`
	Address       string          `json:"address"`
	Email         string          `json:"email,omitempty"`
	Notes         string          `json:"notes,omitempty"`
	Items         []OrderLine     `json:"items"`
	Subtotal      decimal.Decimal `json:"subtotal"`
	Discount      decimal.Decimal `json:"discount"`
	ShippingFee   decimal.Decimal `json:"shipping_fee"`
	TotalPrice    decimal.Decimal `json:"total_price"`
	PaymentMethod PaymentMethod   `json:"payment_method"`
	CouponCode    string          `json:"coupon_code,omitempty"`
	Status        OrderStatus     `json:"status"`
	CreatedAt     time.Time       `json:"createdAt,omitempty"`
	UpdatedAt     time.Time       `json:"updatedAt,omitempty"`
}

// HasIdentity, CMS'in siparişe kimlik atayıp atamadığını söyler.
func (o Order) HasIdentity() bool {
	return o.ID != 0 || o.DocumentID != ""
}

// OrderForm, checkout formundan gelen teslimat bilgileri.
type OrderForm struct {
	CustomerName  string        `json:"customer_name" form:"customerName"`
	Phone         string        `json:"phone" form:"phone"`
	Address       string        `json:"address" form:"address"`
	Email         string        `json:"email" form:"email"`
	Notes         string        `json:"notes" form:"notes"`
	PaymentMethod PaymentMethod `json:"payment_method" form:"paymentMethod"`
	CouponCode    string        `json:"coupon_code" form:"couponCode"`
}

// OrderDraft, henüz gönderilmemiş, kimliği olmayan sipariştir.
type OrderDraft struct {
	ClientRef     string          `json:"client_ref"`
	CustomerName  string          `json:"customer_name"`
	Phone         string          `json:"phone"`
	Address       string          `json:"address"`
	Email         string          `json:"email,omitempty"`
	Notes         string          `json:"notes,omitempty"`
	Items         []OrderLine     `json:"items"`
	Subtotal      decimal.Decimal `json:"subtotal"`
	Discount      decimal.Decimal `json:"discount"`
	ShippingFee   decimal.Decimal `json:"shipping_fee"`
	TotalPrice    decimal.Decimal `json:"total_price"`
	PaymentMethod PaymentMethod   `json:"payment_method"`
	CouponCode    string          `json:"coupon_code,omitempty"`
	Status        OrderStatus     `json:"status"`
}
