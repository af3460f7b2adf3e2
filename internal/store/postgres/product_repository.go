package postgres

import (
	"context"

	"krostyshop/internal/domain/catalog"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/shopspring/decimal"
)

const productColumns = `id, name, description, price::text, image_url, category, stock_status, created_at, updated_at`

type productRepository struct {
	db querier
}

func NewProductRepository(db querier) *productRepository {
	return &productRepository{db: db}
}

// List returns products ordered by name, filtered by category and name
func (r *productRepository) List(ctx context.Context, filter catalog.Filter) ([]*catalog.Product, error) {
	f := filter.Normalize()
	rows, err := r.db.Query(ctx, `
		SELECT `+productColumns+`
		FROM products
		WHERE ($1 = '' OR category = $1)
		  AND ($2 = '' OR name ILIKE '%' || $2 || '%')
		ORDER BY name`, f.Category, f.Query)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var products []*catalog.Product
	for rows.Next() {
		p, err := scanProduct(rows)
		if err != nil {
			return nil, err
		}
		products = append(products, p)
	}
	return products, rows.Err()
}

func (r *productRepository) FindByID(ctx context.Context, id uuid.UUID) (*catalog.Product, error) {
	row := r.db.QueryRow(ctx, `SELECT `+productColumns+` FROM products WHERE id = $1`, id)
	return scanProduct(row)
}

func (r *productRepository) Create(ctx context.Context, p *catalog.Product) error {
	return r.db.QueryRow(ctx, `
		INSERT INTO products (id, name, description, price, image_url, category, stock_status)
		VALUES ($1, $2, $3, $4::text::numeric, $5, $6, $7)
		RETURNING created_at, updated_at`,
		p.ID, p.Name, p.Description, p.Price.String(), p.ImageURL, p.Category, string(p.StockStatus),
	).Scan(&p.CreatedAt, &p.UpdatedAt)
}

func (r *productRepository) Update(ctx context.Context, p *catalog.Product) error {
	err := r.db.QueryRow(ctx, `
		UPDATE products
		SET name = $2, description = $3, price = $4::text::numeric, image_url = $5,
		    category = $6, stock_status = $7, updated_at = now()
		WHERE id = $1
		RETURNING updated_at`,
		p.ID, p.Name, p.Description, p.Price.String(), p.ImageURL, p.Category, string(p.StockStatus),
	).Scan(&p.UpdatedAt)
	if isNoRows(err) {
		return catalog.ErrProductNotFound
	}
	return err
}

func (r *productRepository) UpdatePrice(ctx context.Context, id uuid.UUID, price decimal.Decimal) error {
	tag, err := r.db.Exec(ctx, `
		UPDATE products SET price = $2::text::numeric, updated_at = now() WHERE id = $1`,
		id, price.String())
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return catalog.ErrProductNotFound
	}
	return nil
}

func (r *productRepository) Delete(ctx context.Context, id uuid.UUID) error {
	tag, err := r.db.Exec(ctx, `DELETE FROM products WHERE id = $1`, id)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return catalog.ErrProductNotFound
	}
	return nil
}

// ListVariants returns variants cheapest first
func (r *productRepository) ListVariants(ctx context.Context, productID uuid.UUID) ([]catalog.Variant, error) {
	rows, err := r.db.Query(ctx, `
		SELECT id, product_id, name, price::text
		FROM product_variants
		WHERE product_id = $1
		ORDER BY price ASC`, productID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var variants []catalog.Variant
	for rows.Next() {
		v, err := scanVariant(rows)
		if err != nil {
			return nil, err
		}
		variants = append(variants, *v)
	}
	return variants, rows.Err()
}

func (r *productRepository) FindVariant(ctx context.Context, id uuid.UUID) (*catalog.Variant, error) {
	row := r.db.QueryRow(ctx, `
		SELECT id, product_id, name, price::text FROM product_variants WHERE id = $1`, id)
	return scanVariant(row)
}

func (r *productRepository) CreateVariant(ctx context.Context, v *catalog.Variant) error {
	_, err := r.db.Exec(ctx, `
		INSERT INTO product_variants (id, product_id, name, price)
		VALUES ($1, $2, $3, $4::text::numeric)`,
		v.ID, v.ProductID, v.Name, v.Price.String())
	return err
}

func (r *productRepository) DeleteVariant(ctx context.Context, id uuid.UUID) error {
	tag, err := r.db.Exec(ctx, `DELETE FROM product_variants WHERE id = $1`, id)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return catalog.ErrVariantNotFound
	}
	return nil
}

func scanProduct(row pgx.Row) (*catalog.Product, error) {
	var p catalog.Product
	var price string
	err := row.Scan(&p.ID, &p.Name, &p.Description, &price, &p.ImageURL, &p.Category,
		&p.StockStatus, &p.CreatedAt, &p.UpdatedAt)
	if err != nil {
		if isNoRows(err) {
			return nil, catalog.ErrProductNotFound
		}
		return nil, err
	}
	if p.Price, err = decimal.NewFromString(price); err != nil {
		return nil, err
	}
	return &p, nil
}

func scanVariant(row pgx.Row) (*catalog.Variant, error) {
	var v catalog.Variant
	var price string
	if err := row.Scan(&v.ID, &v.ProductID, &v.Name, &price); err != nil {
		if isNoRows(err) {
			return nil, catalog.ErrVariantNotFound
		}
		return nil, err
	}
	var err error
	if v.Price, err = decimal.NewFromString(price); err != nil {
		return nil, err
	}
	return &v, nil
}
