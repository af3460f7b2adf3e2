package postgres

import (
	"context"

	"krostyshop/internal/domain/message"

	"github.com/google/uuid"
)

type messageRepository struct {
	db querier
}

func NewMessageRepository(db querier) *messageRepository {
	return &messageRepository{db: db}
}

func (r *messageRepository) Create(ctx context.Context, m *message.Message) error {
	_, err := r.db.Exec(ctx, `
		INSERT INTO messages (id, order_id, user_id, content, created_at)
		VALUES ($1, $2, $3, $4, $5)`,
		m.ID, m.OrderID, m.UserID, m.Content, m.CreatedAt)
	return err
}

// FindByOrderID returns the chat history oldest first
func (r *messageRepository) FindByOrderID(ctx context.Context, orderID uuid.UUID) ([]*message.Message, error) {
	rows, err := r.db.Query(ctx, `
		SELECT id, order_id, user_id, content, created_at
		FROM messages
		WHERE order_id = $1
		ORDER BY created_at ASC, id`, orderID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var msgs []*message.Message
	for rows.Next() {
		var m message.Message
		if err := rows.Scan(&m.ID, &m.OrderID, &m.UserID, &m.Content, &m.CreatedAt); err != nil {
			return nil, err
		}
		msgs = append(msgs, &m)
	}
	return msgs, rows.Err()
}
