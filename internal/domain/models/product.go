package models

import (
	"strings"

	"github.com/shopspring/decimal"
)

// Category is the closed set of catalog categories.
type Category string

const (
	CategoryRings     Category = "Anéis"
	CategoryEarrings  Category = "Brincos"
	CategoryNecklaces Category = "Colares"
	CategoryBracelets Category = "Pulseiras"
	CategorySets      Category = "Conjuntos"
)

// Categories lists every valid category in display order.
var Categories = []Category{CategoryRings, CategoryEarrings, CategoryNecklaces, CategoryBracelets, CategorySets}

// ParseCategory matches a category case-insensitively.
func ParseCategory(value string) (Category, bool) {
	value = strings.TrimSpace(value)
	for _, c := range Categories {
		if strings.EqualFold(string(c), value) {
			return c, true
		}
	}
	return "", false
}

// Product is a catalog entry held in central stock.
type Product struct {
	ID       string          `json:"id"`
	Name     string          `json:"name" validate:"required"`
	SKU      string          `json:"sku,omitempty"`
	Category Category        `json:"category" validate:"required"`
	Price    decimal.Decimal `json:"price"`
	Stock    int             `json:"stock" validate:"gte=0"`
	Image    string          `json:"image,omitempty"`
}

// UnknownProductName is reported for movements whose product left the catalog.
const UnknownProductName = "unknown"

// Catalog indexes products by id for read-time lookups.
type Catalog map[string]Product

// NewCatalog builds a Catalog from a product list.
func NewCatalog(products []Product) Catalog {
	catalog := make(Catalog, len(products))
	for _, p := range products {
		catalog[p.ID] = p
	}
	return catalog
}

// Lookup returns the product name and current price, degrading to
// ("unknown", 0) when the product is missing.
func (c Catalog) Lookup(productID string) (string, decimal.Decimal) {
	if p, ok := c[productID]; ok {
		return p.Name, p.Price
	}
	return UnknownProductName, decimal.Zero
}
