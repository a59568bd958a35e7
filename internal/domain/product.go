package domain

import (
	"time"

	"github.com/shopspring/decimal"
)

// Product represents a product in the catalog
type Product struct {
	ID          int64           `json:"id" db:"id"`
	Title       string          `json:"title" db:"title"`
	Description string          `json:"description" db:"description"`
	Price       decimal.Decimal `json:"price" db:"price"`
	Category    string          `json:"category" db:"category"`
	Size        string          `json:"size" db:"size"`
	Color       string          `json:"color" db:"color"`
	Brand       string          `json:"brand" db:"brand"`
	ImageURL    string          `json:"image_url" db:"image_url"`
	Stock       int             `json:"stock" db:"stock"`
	CreatedAt   time.Time       `json:"created_at" db:"created_at"`
	UpdatedAt   time.Time       `json:"updated_at" db:"updated_at"`
}

// Category is a distinct product category with the number of products in it
type Category struct {
	Name         string `json:"name"`
	ProductCount int    `json:"product_count"`
}

// ProductSort names the orderings a catalog listing supports
type ProductSort string

const (
	SortNewest    ProductSort = "newest"
	SortPriceLow  ProductSort = "price-low"
	SortPriceHigh ProductSort = "price-high"
	SortName      ProductSort = "name"
)

// ProductFilter narrows a catalog listing. Zero values mean no restriction.
type ProductFilter struct {
	Category string
	Brand    string
	Search   string
	InStock  bool
	Sort     ProductSort
}

// ProductChanges is a partial product edit. Nil fields keep their stored value.
type ProductChanges struct {
	Title       *string
	Description *string
	Price       *decimal.Decimal
	Category    *string
	Size        *string
	Color       *string
	Brand       *string
	ImageURL    *string
	Stock       *int
}

// Apply copies every set field onto p
func (c ProductChanges) Apply(p *Product) {
	setString := func(dst *string, src *string) {
		if src != nil {
			*dst = *src
		}
	}
	setString(&p.Title, c.Title)
	setString(&p.Description, c.Description)
	setString(&p.Category, c.Category)
	setString(&p.Size, c.Size)
	setString(&p.Color, c.Color)
	setString(&p.Brand, c.Brand)
	setString(&p.ImageURL, c.ImageURL)
	if c.Price != nil {
		p.Price = *c.Price
	}
	if c.Stock != nil {
		p.Stock = *c.Stock
	}
}
