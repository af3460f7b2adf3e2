package postgres

import (
	"context"
	"time"

	"krostyshop/internal/domain/event"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
)

const eventColumns = `id, provider, biz_type, biz_status, external_id, merchant_trade_no, prepay_id,
	order_id, payload_json, error, received_at, processed_at, processing_status`

// eventRepository implements EventRepository interface with pure data access
type eventRepository struct {
	db querier
}

// NewEventRepository creates a new event repository
func NewEventRepository(db querier) *eventRepository {
	return &eventRepository{db: db}
}

// Save stores an event; redelivered notifications refresh the payload and
// keep the existing processing state.
func (r *eventRepository) Save(ctx context.Context, e *event.Event) error {
	return r.db.QueryRow(ctx, `
		INSERT INTO payment_events (provider, biz_type, biz_status, external_id, merchant_trade_no,
		                            prepay_id, payload_json, received_at, processing_status)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)
		ON CONFLICT (provider, biz_type, biz_status, external_id) DO UPDATE SET
		    payload_json = EXCLUDED.payload_json,
		    merchant_trade_no = COALESCE(NULLIF(EXCLUDED.merchant_trade_no, ''), payment_events.merchant_trade_no),
		    prepay_id = COALESCE(NULLIF(EXCLUDED.prepay_id, ''), payment_events.prepay_id),
		    updated_at = now()
		RETURNING id, processing_status`,
		e.Provider, e.BizType, e.BizStatus, e.ExternalID, e.MerchantTradeNo,
		e.PrepayID, e.RawJSON, e.ReceivedAt, string(e.ProcessingStatus),
	).Scan(&e.ID, &e.ProcessingStatus)
}

// FindByID finds an event by ID
func (r *eventRepository) FindByID(ctx context.Context, id int64) (*event.Event, error) {
	row := r.db.QueryRow(ctx, `SELECT `+eventColumns+` FROM payment_events WHERE id = $1`, id)
	return scanEvent(row)
}

// FindUnprocessed returns pending and queued events oldest first
func (r *eventRepository) FindUnprocessed(ctx context.Context, limit int) ([]*event.Event, error) {
	rows, err := r.db.Query(ctx, `
		SELECT `+eventColumns+`
		FROM payment_events
		WHERE processing_status IN ('pending', 'queued')
		ORDER BY received_at ASC
		LIMIT $1`, limit)
	if err != nil {
		return nil, err
	}
	return scanEvents(rows)
}

// List returns events newest first
func (r *eventRepository) List(ctx context.Context, limit, offset int) ([]*event.Event, error) {
	rows, err := r.db.Query(ctx, `
		SELECT `+eventColumns+`
		FROM payment_events
		ORDER BY received_at DESC
		LIMIT $1 OFFSET $2`, limit, offset)
	if err != nil {
		return nil, err
	}
	return scanEvents(rows)
}

// FindIDsInWindow returns ids of events received inside the window
func (r *eventRepository) FindIDsInWindow(ctx context.Context, since, until *time.Time, max int) ([]int64, error) {
	rows, err := r.db.Query(ctx, `
		SELECT id FROM payment_events
		WHERE ($1::timestamptz IS NULL OR received_at >= $1)
		  AND ($2::timestamptz IS NULL OR received_at <= $2)
		ORDER BY received_at ASC
		LIMIT $3`, since, until, max)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var ids []int64
	for rows.Next() {
		var id int64
		if err := rows.Scan(&id); err != nil {
			return nil, err
		}
		ids = append(ids, id)
	}
	return ids, rows.Err()
}

// MarkProcessed records the processing outcome
func (r *eventRepository) MarkProcessed(ctx context.Context, id int64, status event.ProcessingStatus, orderID *uuid.UUID, errMsg string) error {
	_, err := r.db.Exec(ctx, `
		UPDATE payment_events
		SET processing_status = $2, order_id = COALESCE($3, order_id), error = $4,
		    processed_at = now(), updated_at = now()
		WHERE id = $1`, id, string(status), orderID, errMsg)
	return err
}

// MarkForReprocessing puts an event back in the queue
func (r *eventRepository) MarkForReprocessing(ctx context.Context, id int64) error {
	tag, err := r.db.Exec(ctx, `
		UPDATE payment_events
		SET processing_status = 'queued', processed_at = NULL, error = '', updated_at = now()
		WHERE id = $1`, id)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return event.ErrNotFound
	}
	return nil
}

func scanEvent(row pgx.Row) (*event.Event, error) {
	var e event.Event
	err := row.Scan(&e.ID, &e.Provider, &e.BizType, &e.BizStatus, &e.ExternalID, &e.MerchantTradeNo,
		&e.PrepayID, &e.OrderID, &e.RawJSON, &e.Error, &e.ReceivedAt, &e.ProcessedAt, &e.ProcessingStatus)
	if err != nil {
		if isNoRows(err) {
			return nil, event.ErrNotFound
		}
		return nil, err
	}
	return &e, nil
}

func scanEvents(rows pgx.Rows) ([]*event.Event, error) {
	defer rows.Close()

	var events []*event.Event
	for rows.Next() {
		e, err := scanEvent(rows)
		if err != nil {
			return nil, err
		}
		events = append(events, e)
	}
	return events, rows.Err()
}
