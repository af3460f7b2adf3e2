package postgres

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"

	"krostyshop/internal/domain/order"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/shopspring/decimal"
)

const orderColumns = `id, display_id, user_id, items, total_usdt::text, total_ves::text, exchange_rate::text,
	status, method, proof_url, merchant_trade_no, prepay_id, created_at, updated_at`

// orderRepository implements OrderRepository on a pool or a transaction
type orderRepository struct {
	db querier
}

// NewOrderRepository creates a new order repository
func NewOrderRepository(db querier) *orderRepository {
	return &orderRepository{db: db}
}

// Create inserts a new order and fills in its display id
func (r *orderRepository) Create(ctx context.Context, o *order.Order) error {
	items, err := json.Marshal(o.Items)
	if err != nil {
		return fmt.Errorf("encode order items: %w", err)
	}

	return r.db.QueryRow(ctx, `
		INSERT INTO orders (id, user_id, items, total_usdt, total_ves, exchange_rate, status, method,
		                    proof_url, merchant_trade_no, prepay_id, created_at, updated_at)
		VALUES ($1, $2, $3, $4::text::numeric, $5::text::numeric, $6::text::numeric, $7, $8,
		        NULLIF($9, ''), NULLIF($10, ''), NULLIF($11, ''), $12, $13)
		RETURNING display_id`,
		o.ID, o.UserID, items, o.Total.String(), o.TotalVES.String(), o.ExchangeRate.String(),
		string(o.Status), string(o.Method), o.ProofURL, o.MerchantTradeNo, o.PrepayID,
		o.CreatedAt, o.UpdatedAt).Scan(&o.DisplayID)
}

// FindByID finds an order by ID
func (r *orderRepository) FindByID(ctx context.Context, id uuid.UUID) (*order.Order, error) {
	row := r.db.QueryRow(ctx, `SELECT `+orderColumns+` FROM orders WHERE id = $1`, id)
	return scanOrder(row)
}

// FindByMerchantTradeNo finds a hosted-checkout order by its trade number
func (r *orderRepository) FindByMerchantTradeNo(ctx context.Context, tradeNo string) (*order.Order, error) {
	row := r.db.QueryRow(ctx, `SELECT `+orderColumns+` FROM orders WHERE merchant_trade_no = $1`, tradeNo)
	return scanOrder(row)
}

// FindByUserID lists a buyer's orders newest first
func (r *orderRepository) FindByUserID(ctx context.Context, userID uuid.UUID, limit, offset int) ([]*order.Order, error) {
	rows, err := r.db.Query(ctx, `
		SELECT `+orderColumns+`
		FROM orders
		WHERE user_id = $1
		ORDER BY created_at DESC
		LIMIT $2 OFFSET $3`, userID, limit, offset)
	if err != nil {
		return nil, err
	}
	return scanOrders(rows)
}

// List lists all orders, optionally filtered by status, newest first
func (r *orderRepository) List(ctx context.Context, status order.Status, limit, offset int) ([]*order.Order, error) {
	rows, err := r.db.Query(ctx, `
		SELECT `+orderColumns+`
		FROM orders
		WHERE ($1 = '' OR status = $1)
		ORDER BY created_at DESC
		LIMIT $2 OFFSET $3`, string(status), limit, offset)
	if err != nil {
		return nil, err
	}
	return scanOrders(rows)
}

// UpdateStatus performs a compare-and-set on the order status
func (r *orderRepository) UpdateStatus(ctx context.Context, id uuid.UUID, from, to order.Status) (*order.Order, error) {
	row := r.db.QueryRow(ctx, `
		UPDATE orders
		SET status = $3, updated_at = now()
		WHERE id = $1 AND status = $2
		RETURNING `+orderColumns, id, string(from), string(to))

	o, err := scanOrder(row)
	if err == order.ErrNotFound {
		// distinguish a lost race from a missing row
		if _, findErr := r.FindByID(ctx, id); findErr != nil {
			return nil, findErr
		}
		return nil, order.ErrStatusChanged
	}
	return o, err
}

// MarkPaid settles a hosted-checkout order
func (r *orderRepository) MarkPaid(ctx context.Context, id uuid.UUID, prepayID string) (*order.Order, error) {
	row := r.db.QueryRow(ctx, `
		UPDATE orders
		SET status = 'paid', prepay_id = COALESCE(NULLIF($2, ''), prepay_id), updated_at = now()
		WHERE id = $1
		RETURNING `+orderColumns, id, prepayID)
	return scanOrder(row)
}

// scanOrder scans a single row into order domain object
func scanOrder(row pgx.Row) (*order.Order, error) {
	var (
		o                         order.Order
		items                     []byte
		total, totalVES, rate     string
		proofURL, tradeNo, prepay sql.NullString
	)

	err := row.Scan(&o.ID, &o.DisplayID, &o.UserID, &items, &total, &totalVES, &rate,
		&o.Status, &o.Method, &proofURL, &tradeNo, &prepay, &o.CreatedAt, &o.UpdatedAt)
	if err != nil {
		if isNoRows(err) {
			return nil, order.ErrNotFound
		}
		return nil, err
	}

	if err := json.Unmarshal(items, &o.Items); err != nil {
		return nil, fmt.Errorf("decode order items: %w", err)
	}
	if o.Total, err = decimal.NewFromString(total); err != nil {
		return nil, err
	}
	if o.TotalVES, err = decimal.NewFromString(totalVES); err != nil {
		return nil, err
	}
	if o.ExchangeRate, err = decimal.NewFromString(rate); err != nil {
		return nil, err
	}
	o.ProofURL = proofURL.String
	o.MerchantTradeNo = tradeNo.String
	o.PrepayID = prepay.String

	return &o, nil
}

func scanOrders(rows pgx.Rows) ([]*order.Order, error) {
	defer rows.Close()

	var orders []*order.Order
	for rows.Next() {
		o, err := scanOrder(rows)
		if err != nil {
			return nil, err
		}
		orders = append(orders, o)
	}
	return orders, rows.Err()
}
