package message

import (
	"fmt"
	"strings"
	"time"
	"unicode/utf8"

	"github.com/google/uuid"
)

const MaxContentLength = 2000

// Message is one chat line attached to an order.
type Message struct {
	ID        uuid.UUID `json:"id"`
	OrderID   uuid.UUID `json:"order_id"`
	UserID    uuid.UUID `json:"user_id"`
	Content   string    `json:"content"`
	CreatedAt time.Time `json:"created_at"`
}

// NewMessage trims and validates the content.
func NewMessage(orderID, userID uuid.UUID, content string, now time.Time) (*Message, error) {
	content = strings.TrimSpace(content)
	if content == "" {
		return nil, fmt.Errorf("message content is required")
	}
	if utf8.RuneCountInString(content) > MaxContentLength {
		return nil, fmt.Errorf("message must be at most %d characters", MaxContentLength)
	}
	return &Message{
		ID:        uuid.New(),
		OrderID:   orderID,
		UserID:    userID,
		Content:   content,
		CreatedAt: now,
	}, nil
}
