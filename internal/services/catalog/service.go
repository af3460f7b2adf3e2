package catalog

import (
	"context"
	"errors"
	"fmt"

	"krostyshop/internal/domain/catalog"
	"krostyshop/internal/domain/order"
	"krostyshop/internal/services/svcerr"
	"krostyshop/internal/store/repositories"

	"github.com/google/uuid"
	"github.com/rs/zerolog/log"
	"github.com/shopspring/decimal"
)

// ProductInput is the admin form for a product
type ProductInput struct {
	Name        string          `json:"name"`
	Description string          `json:"description"`
	Price       decimal.Decimal `json:"price"`
	ImageURL    string          `json:"image_url"`
	Category    string          `json:"category"`
	StockStatus string          `json:"stock_status"`
}

// CartLine is what a buyer submits at checkout
type CartLine struct {
	VariantID string `json:"id"`
	Quantity  int    `json:"quantity"`
}

// Service handles catalog business logic
type Service struct {
	products repositories.ProductRepository
}

func NewService(products repositories.ProductRepository) *Service {
	return &Service{products: products}
}

// ListProducts returns products matching filter ordered by name
func (s *Service) ListProducts(ctx context.Context, filter catalog.Filter) ([]*catalog.Product, error) {
	products, err := s.products.List(ctx, filter.Normalize())
	if err != nil {
		return nil, svcerr.Wrap("list_products", err)
	}
	if products == nil {
		products = []*catalog.Product{}
	}
	return products, nil
}

// GetProduct returns a product with its variants cheapest first
func (s *Service) GetProduct(ctx context.Context, id uuid.UUID) (*catalog.Product, error) {
	p, err := s.products.FindByID(ctx, id)
	if err != nil {
		if errors.Is(err, catalog.ErrProductNotFound) {
			return nil, err
		}
		return nil, svcerr.Wrap("get_product", err)
	}
	variants, err := s.products.ListVariants(ctx, id)
	if err != nil {
		return nil, svcerr.Wrap("list_variants", err)
	}
	p.Variants = variants
	return p, nil
}

func (s *Service) CreateProduct(ctx context.Context, in ProductInput) (*catalog.Product, error) {
	p, err := catalog.NewProduct(in.Name, in.Description, in.Price, in.ImageURL, in.Category, catalog.StockStatus(in.StockStatus))
	if err != nil {
		return nil, svcerr.Invalid("product", err.Error())
	}
	if err := s.products.Create(ctx, p); err != nil {
		return nil, svcerr.Wrap("create_product", err)
	}
	log.Info().Str("product_id", p.ID.String()).Str("name", p.Name).Msg("product created")
	return p, nil
}

func (s *Service) UpdateProduct(ctx context.Context, id uuid.UUID, in ProductInput) (*catalog.Product, error) {
	p, err := s.products.FindByID(ctx, id)
	if err != nil {
		if errors.Is(err, catalog.ErrProductNotFound) {
			return nil, err
		}
		return nil, svcerr.Wrap("find_product", err)
	}

	updated, err := catalog.NewProduct(in.Name, in.Description, in.Price, in.ImageURL, in.Category, catalog.StockStatus(in.StockStatus))
	if err != nil {
		return nil, svcerr.Invalid("product", err.Error())
	}
	updated.ID = p.ID
	updated.CreatedAt = p.CreatedAt
	if in.Price.IsZero() {
		updated.Price = p.Price
	}

	if err := s.products.Update(ctx, updated); err != nil {
		if errors.Is(err, catalog.ErrProductNotFound) {
			return nil, err
		}
		return nil, svcerr.Wrap("update_product", err)
	}
	return updated, nil
}

// DeleteProduct removes a product; variants go with it
func (s *Service) DeleteProduct(ctx context.Context, id uuid.UUID) error {
	if err := s.products.Delete(ctx, id); err != nil {
		if errors.Is(err, catalog.ErrProductNotFound) {
			return err
		}
		return svcerr.Wrap("delete_product", err)
	}
	log.Info().Str("product_id", id.String()).Msg("product deleted")
	return nil
}

// AddVariant adds a denomination and keeps the product "from" price current
func (s *Service) AddVariant(ctx context.Context, productID uuid.UUID, name string, price decimal.Decimal) (*catalog.Variant, error) {
	v, err := catalog.NewVariant(productID, name, price)
	if err != nil {
		return nil, svcerr.Invalid("variant", err.Error())
	}

	p, err := s.products.FindByID(ctx, productID)
	if err != nil {
		if errors.Is(err, catalog.ErrProductNotFound) {
			return nil, err
		}
		return nil, svcerr.Wrap("find_product", err)
	}

	if err := s.products.CreateVariant(ctx, v); err != nil {
		return nil, svcerr.Wrap("create_variant", err)
	}
	if p.ApplyVariantPrice(*v) {
		if err := s.products.UpdatePrice(ctx, p.ID, p.Price); err != nil {
			return nil, svcerr.Wrap("update_price", err)
		}
	}
	return v, nil
}

func (s *Service) DeleteVariant(ctx context.Context, id uuid.UUID) error {
	if err := s.products.DeleteVariant(ctx, id); err != nil {
		if errors.Is(err, catalog.ErrVariantNotFound) {
			return err
		}
		return svcerr.Wrap("delete_variant", err)
	}
	return nil
}

// PriceCart rebuilds a cart from catalog prices. Client-side names and prices
// are ignored.
func (s *Service) PriceCart(ctx context.Context, lines []CartLine) (*order.Cart, error) {
	if len(lines) == 0 {
		return nil, order.ErrEmptyCart
	}

	cart := order.NewCart()
	products := make(map[uuid.UUID]*catalog.Product)
	units := make(map[uuid.UUID]int)
	for i, line := range lines {
		id, err := uuid.Parse(line.VariantID)
		if err != nil {
			return nil, svcerr.Invalid("items", fmt.Sprintf("invalid item id at position %d", i))
		}
		if line.Quantity < 1 {
			return nil, svcerr.Invalid("items", "quantity must be at least 1")
		}
		if line.Quantity > order.MaxQuantity-units[id] {
			return nil, svcerr.Invalid("items", fmt.Sprintf("quantity must be at most %d", order.MaxQuantity))
		}
		units[id] += line.Quantity

		v, err := s.products.FindVariant(ctx, id)
		if err != nil {
			if errors.Is(err, catalog.ErrVariantNotFound) {
				return nil, svcerr.Invalid("items", "item "+line.VariantID+" is no longer available")
			}
			return nil, svcerr.Wrap("find_variant", err)
		}

		p, ok := products[v.ProductID]
		if !ok {
			p, err = s.products.FindByID(ctx, v.ProductID)
			if err != nil {
				return nil, svcerr.Wrap("find_product", err)
			}
			products[v.ProductID] = p
		}
		if !p.IsAvailable() {
			return nil, svcerr.Invalid("items", p.Name+" is out of stock")
		}

		cart.Add(order.LineItem{
			ID:       v.ID.String(),
			Name:     p.LineName(*v),
			Price:    v.Price,
			Quantity: line.Quantity,
			Image:    p.ImageURL,
		})
	}
	return cart, nil
}
