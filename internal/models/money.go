package models

import "github.com/shopspring/decimal"

func init() {
	// Fiyatlar CMS'e ve istemciye sayı olarak gider, string olarak değil.
	decimal.MarshalJSONWithoutQuotes = true
}
