package cms

import (
	"encoding/json"
	"strings"
	"time"

	"github.com/shopspring/decimal"

	"drog/internal/models"
)

// stringList, ["S","M"] dizisini ya da "S, M" metnini kabul eder.
type stringList []string

func (l *stringList) UnmarshalJSON(b []byte) error {
	if string(b) == "null" {
		*l = nil
		return nil
	}
	var arr []string
	if err := json.Unmarshal(b, &arr); err == nil {
		*l = cleanList(arr)
		return nil
	}
	var s string
	if err := json.Unmarshal(b, &s); err != nil {
		return err
	}
	*l = cleanList(strings.Split(s, ","))
	return nil
}

func cleanList(in []string) []string {
	out := make([]string, 0, len(in))
	for _, v := range in {
		if v = strings.TrimSpace(v); v != "" {
			out = append(out, v)
		}
	}
	return out
}

// assetRef, tekil medya alanını ya da çoklu medya dizisinin ilk elemanını okur.
type assetRef struct {
	asset *wireAsset
}

func (a *assetRef) UnmarshalJSON(b []byte) error {
	if string(b) == "null" {
		return nil
	}
	var list []wireAsset
	if err := json.Unmarshal(b, &list); err == nil {
		if len(list) > 0 {
			a.asset = &list[0]
		}
		return nil
	}
	var one wireAsset
	if err := json.Unmarshal(b, &one); err != nil {
		return err
	}
	a.asset = &one
	return nil
}

type wireAsset struct {
	ID  int    `json:"id"`
	URL string `json:"url"`
}

type wireCategory struct {
	ID         int    `json:"id"`
	DocumentID string `json:"documentId"`
	Name       string `json:"name"`
	Slug       string `json:"slug"`
}

type wireProduct struct {
	ID          int              `json:"id"`
	DocumentID  string           `json:"documentId"`
	Name        string           `json:"name"`
	Slug        string           `json:"slug"`
	Price       decimal.Decimal  `json:"price"`
	OldPrice    *decimal.Decimal `json:"oldPrice"`
	Quantity    int              `json:"quantity"`
	Sizes       stringList       `json:"sizes"`
	Colors      stringList       `json:"colors"`
	Description string           `json:"description"`
	Category    *wireCategory    `json:"category"`
	Image       assetRef         `json:"image"`
	CreatedAt   time.Time        `json:"createdAt"`
	UpdatedAt   time.Time        `json:"updatedAt"`
}

type wireOrderLine struct {
	ProductID int             `json:"productId"`
	Name      string          `json:"name"`
	Size      string          `json:"size"`
	Color     string          `json:"color,omitempty"`
	Quantity  int             `json:"quantity"`
	Price     decimal.Decimal `json:"price"`
}

// orderInput, sipariş oluştururken gönderilen alanlar.
type orderInput struct {
	ClientRef     string          `json:"clientRef"`
	CustomerName  string          `json:"customerName"`
	Phone         string          `json:"phone"`
	Address       string          `json:"address"`
	Email         string          `json:"email,omitempty"`
	Notes         string          `json:"notes,omitempty"`
	Items         []wireOrderLine `json:"items"`
	Subtotal      decimal.Decimal `json:"subtotal"`
	Discount      decimal.Decimal `json:"discount"`
	ShippingFee   decimal.Decimal `json:"shippingFee"`
	TotalPrice    decimal.Decimal `json:"totalPrice"`
	PaymentMethod string          `json:"paymentMethod"`
	CouponCode    string          `json:"couponCode,omitempty"`
	Status        string          `json:"status"`
}

type wireOrder struct {
	orderInput
	ID         int       `json:"id"`
	DocumentID string    `json:"documentId"`
	CreatedAt  time.Time `json:"createdAt"`
	UpdatedAt  time.Time `json:"updatedAt"`
}

type wireRole struct {
	Name string `json:"name"`
	Type string `json:"type"`
}

type wireUser struct {
	ID        int       `json:"id"`
	Email     string    `json:"email"`
	Username  string    `json:"username"`
	Blocked   bool      `json:"blocked"`
	Confirmed bool      `json:"confirmed"`
	Role      *wireRole `json:"role"`
}

func (c *Client) toProduct(w wireProduct) models.Product {
	p := models.Product{
		ID:          w.ID,
		DocumentID:  w.DocumentID,
		Slug:        w.Slug,
		Name:        w.Name,
		Price:       w.Price,
		OldPrice:    w.OldPrice,
		Quantity:    w.Quantity,
		Sizes:       []string(w.Sizes),
		Colors:      []string(w.Colors),
		Description: w.Description,
		CreatedAt:   w.CreatedAt,
		UpdatedAt:   w.UpdatedAt,
	}
	if p.Sizes == nil {
		p.Sizes = []string{}
	}
	if w.Category != nil {
		p.Category = &models.Category{
			ID:         w.Category.ID,
			DocumentID: w.Category.DocumentID,
			Name:       w.Category.Name,
			Slug:       w.Category.Slug,
		}
	}
	if w.Image.asset != nil {
		p.Image = &models.Asset{ID: w.Image.asset.ID, URL: c.absoluteURL(w.Image.asset.URL)}
	}
	return p
}

func toOrder(w wireOrder) models.Order {
	o := models.Order{
		ID:            w.ID,
		DocumentID:    w.DocumentID,
		ClientRef:     w.ClientRef,
		CustomerName:  w.CustomerName,
		Phone:         w.Phone,
		Address:       w.Address,
		Email:         w.Email,
		Notes:         w.Notes,
		Items:         make([]models.OrderLine, 0, len(w.Items)),
		Subtotal:      w.Subtotal,
		Discount:      w.Discount,
		ShippingFee:   w.ShippingFee,
		TotalPrice:    w.TotalPrice,
		PaymentMethod: models.PaymentMethod(w.PaymentMethod),
		CouponCode:    w.CouponCode,
		Status:        models.OrderStatus(strings.ToLower(w.Status)),
		CreatedAt:     w.CreatedAt,
		UpdatedAt:     w.UpdatedAt,
	}
	// Bilinen yazım farklarını kanonik hale getir; bilinmeyen durum olduğu gibi gösterilir.
	if st, ok := models.ParseOrderStatus(w.Status); ok {
		o.Status = st
	}
	for _, it := range w.Items {
		o.Items = append(o.Items, models.OrderLine{
			ProductID: it.ProductID,
			Name:      it.Name,
			Size:      it.Size,
			Color:     it.Color,
			Quantity:  it.Quantity,
			Price:     it.Price,
		})
	}
	return o
}

func toUser(w wireUser) models.User {
	u := models.User{
		ID:        w.ID,
		Email:     w.Email,
		Username:  w.Username,
		Blocked:   w.Blocked,
		Confirmed: w.Confirmed,
	}
	if w.Role != nil {
		u.Role = w.Role.Name
		if u.Role == "" {
			u.Role = w.Role.Type
		}
	}
	return u
}

func productPayload(f models.ProductForm) map[string]interface{} {
	data := map[string]interface{}{
		"name":        f.Name,
		"slug":        f.Slug,
		"price":       f.Price,
		"quantity":    f.Quantity,
		"sizes":       f.Sizes,
		"colors":      f.Colors,
		"description": f.Description,
	}
	if f.OldPrice != nil {
		data["oldPrice"] = *f.OldPrice
	} else {
		data["oldPrice"] = nil
	}
	if f.CategoryID != 0 {
		data["category"] = f.CategoryID
	}
	if f.ImageID != 0 {
		data["image"] = f.ImageID
	}
	return data
}

func orderPayload(d models.OrderDraft) orderInput {
	w := orderInput{
		ClientRef:     d.ClientRef,
		CustomerName:  d.CustomerName,
		Phone:         d.Phone,
		Address:       d.Address,
		Email:         d.Email,
		Notes:         d.Notes,
		Items:         make([]wireOrderLine, 0, len(d.Items)),
		Subtotal:      d.Subtotal,
		Discount:      d.Discount,
		ShippingFee:   d.ShippingFee,
		TotalPrice:    d.TotalPrice,
		PaymentMethod: string(d.PaymentMethod),
		CouponCode:    d.CouponCode,
		Status:        string(d.Status),
	}
	for _, it := range d.Items {
		w.Items = append(w.Items, wireOrderLine{
			ProductID: it.ProductID,
			Name:      it.Name,
			Size:      it.Size,
			Color:     it.Color,
			Quantity:  it.Quantity,
			Price:     it.Price,
		})
	}
	return w
}
