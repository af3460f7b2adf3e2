package catalog

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// Product is a sellable card or credit pack; Price is the lowest variant price.
type Product struct {
	ID          uuid.UUID       `json:"id"`
	Name        string          `json:"name"`
	Description string          `json:"description"`
	Price       decimal.Decimal `json:"price"`
	ImageURL    string          `json:"image_url"`
	Category    string          `json:"category"`
	StockStatus StockStatus     `json:"stock_status"`
	Variants    []Variant       `json:"variants,omitempty"`
	CreatedAt   time.Time       `json:"created_at"`
	UpdatedAt   time.Time       `json:"updated_at"`
}

// Variant is a denomination of a product (e.g. "100 diamonds").
type Variant struct {
	ID        uuid.UUID       `json:"id"`
	ProductID uuid.UUID       `json:"product_id"`
	Name      string          `json:"name"`
	Price     decimal.Decimal `json:"price"`
}

type StockStatus string

const (
	InStock    StockStatus = "in_stock"
	OutOfStock StockStatus = "out_of_stock"
)

var (
	ErrProductNotFound = errors.New("product not found")
	ErrVariantNotFound = errors.New("variant not found")
)

// Filter narrows product listings. Category "all" means no category filter.
type Filter struct {
	Category string
	Query    string
}

func (f Filter) Normalize() Filter {
	f.Category = strings.TrimSpace(f.Category)
	if strings.EqualFold(f.Category, "all") {
		f.Category = ""
	}
	f.Query = strings.TrimSpace(f.Query)
	return f
}

// Matches applies the filter in memory.
func (f Filter) Matches(p Product) bool {
	f = f.Normalize()
	if f.Category != "" && p.Category != f.Category {
		return false
	}
	if f.Query != "" && !strings.Contains(strings.ToLower(p.Name), strings.ToLower(f.Query)) {
		return false
	}
	return true
}

// NewProduct creates a product with validation
func NewProduct(name, description string, price decimal.Decimal, imageURL, category string, stock StockStatus) (*Product, error) {
	p := &Product{
		ID:          uuid.New(),
		Name:        strings.TrimSpace(name),
		Description: strings.TrimSpace(description),
		Price:       price,
		ImageURL:    strings.TrimSpace(imageURL),
		Category:    strings.TrimSpace(category),
		StockStatus: stock,
	}
	if p.StockStatus == "" {
		p.StockStatus = InStock
	}
	if err := p.Validate(); err != nil {
		return nil, err
	}
	return p, nil
}

func (p *Product) Validate() error {
	if p.Name == "" {
		return fmt.Errorf("product name is required")
	}
	if len(p.Name) > 200 {
		return fmt.Errorf("product name must be at most 200 characters")
	}
	if p.Price.IsNegative() {
		return fmt.Errorf("price cannot be negative: %s", p.Price)
	}
	if p.StockStatus != InStock && p.StockStatus != OutOfStock {
		return fmt.Errorf("invalid stock status: %s", p.StockStatus)
	}
	return nil
}

// NewVariant creates a variant with validation
func NewVariant(productID uuid.UUID, name string, price decimal.Decimal) (*Variant, error) {
	name = strings.TrimSpace(name)
	if name == "" {
		return nil, fmt.Errorf("variant name is required")
	}
	if !price.IsPositive() {
		return nil, fmt.Errorf("variant price must be positive: %s", price)
	}
	return &Variant{ID: uuid.New(), ProductID: productID, Name: name, Price: price}, nil
}

// ApplyVariantPrice lowers the product "from" price when the variant is cheaper.
// Returns true when the price changed.
func (p *Product) ApplyVariantPrice(v Variant) bool {
	if p.Price.IsZero() || v.Price.LessThan(p.Price) {
		p.Price = v.Price
		return true
	}
	return false
}

// IsAvailable checks if the product can be bought
func (p *Product) IsAvailable() bool {
	return p.StockStatus == InStock
}

// LineName is the cart label for a variant of this product.
func (p *Product) LineName(v Variant) string {
	return p.Name + " - " + v.Name
}
