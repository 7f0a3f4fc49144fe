package models

import (
	"strings"
	"time"

	"github.com/shopspring/decimal"
)

// Category, ürün kategorisi.
type Category struct {
	ID         int    `json:"id"`
	DocumentID string `json:"documentId,omitempty"`
	Name       string `json:"name"`
	Slug       string `json:"slug"`
}

// Asset, CMS'e yüklenmiş bir dosyanın tanımı.
type Asset struct {
	ID  int    `json:"id"`
	URL string `json:"url"`
}

// Product, CMS'teki ürün kaydı. Slug ikincil, pratikte benzersiz anahtardır.
type Product struct {
	ID          int              `json:"id"`
	DocumentID  string           `json:"documentId,omitempty"`
	Slug        string           `json:"slug"`
	Name        string           `json:"name"`
	Price       decimal.Decimal  `json:"price"`
	OldPrice    *decimal.Decimal `json:"old_price,omitempty"`
	Quantity    int              `json:"quantity"`
	Sizes       []string         `json:"sizes"`
	Colors      []string         `json:"colors,omitempty"`
	Description string           `json:"description"`
	Category    *Category        `json:"category,omitempty"`
	Image       *Asset           `json:"image,omitempty"`
	CreatedAt   time.Time        `json:"createdAt,omitempty"`
	UpdatedAt   time.Time        `json:"updatedAt,omitempty"`
}

func hasFold(list []string, v string) bool {
	for _, item := range list {
		if strings.EqualFold(item, v) {
			return true
		}
	}
	return false
}

// HasSize, bedensiz ürünlerde her bedeni, diğerlerinde yalnızca listedekileri kabul eder.
func (p Product) HasSize(size string) bool {
	return len(p.Sizes) == 0 || hasFold(p.Sizes, size)
}

// HasColor reports whether color is empty or one of the product colors.
func (p Product) HasColor(color string) bool {
	return color == "" || len(p.Colors) == 0 || hasFold(p.Colors, color)
}

// ImageURL returns the product image url or "".
func (p Product) ImageURL() string {
	if p.Image == nil {
		return ""
	}
	return p.Image.URL
}

// ProductForm, admin panelinden gelen ürün verisi.
type ProductForm struct {
	Name        string           `json:"name"`
	Slug        string           `json:"slug"`
	Price       decimal.Decimal  `json:"price"`
	OldPrice    *decimal.Decimal `json:"old_price"`
	Quantity    int              `json:"quantity"`
	Sizes       []string         `json:"sizes"`
	Colors      []string         `json:"colors"`
	Description string           `json:"description"`
	CategoryID  int              `json:"category_id"`
	ImageID     int              `json:"image_id"`
}
