package services

import (
	"context"
	"fmt"

	"drog/internal/models"
)

// ProductCatalog, ürünlerin güncel halini okur. *cms.Client bunu sağlar.
type ProductCatalog interface {
	ListProducts(ctx context.Context) ([]models.Product, error)
}

// RepriceLines, satırları katalogdaki ürünlere göre yeniden kurar. Satırdan yalnızca
// ürün id, beden, renk ve adet alınır; isim, fiyat ve görsel her zaman katalogdan gelir.
// Katalogda olmayan ürünler ve geçersiz beden/renk içeren satırlar atılır.
func RepriceLines(ctx context.Context, catalog ProductCatalog, lines []models.CartLine) ([]models.CartLine, int, error) {
	products, err := catalog.ListProducts(ctx)
	if err != nil {
		return nil, 0, fmt.Errorf("reprice: %w", err)
	}
	byID := make(map[int]models.Product, len(products))
	for _, p := range products {
		byID[p.ID] = p
	}

	out := make([]models.CartLine, 0, len(lines))
	dropped := 0
	for _, l := range lines {
		p, ok := byID[l.ProductID]
		if !ok || l.Quantity < 1 || !p.HasSize(l.Size) || !p.HasColor(l.Color) {
			dropped++
			continue
		}
		out = mergeLine(out, models.CartLine{
			ProductID: p.ID,
			Name:      p.Name,
			Price:     p.Price,
			Image:     p.ImageURL(),
			Size:      l.Size,
			Color:     l.Color,
			Quantity:  l.Quantity,
		})
	}
	return out, dropped, nil
}
