package chat

import (
	"context"
	"errors"

	"krostyshop/internal/clock"
	"krostyshop/internal/domain/message"
	"krostyshop/internal/domain/order"
	"krostyshop/internal/domain/user"
	"krostyshop/internal/realtime"
	"krostyshop/internal/services/svcerr"
	"krostyshop/internal/store/repositories"

	"github.com/google/uuid"
	"github.com/rs/zerolog/log"
)

// Service handles the per-order conversation between buyer and admins
type Service struct {
	orders   repositories.OrderRepository
	messages repositories.MessageRepository
	pub      realtime.Publisher
	clock    clock.Clock
}

func NewService(orders repositories.OrderRepository, messages repositories.MessageRepository, pub realtime.Publisher, clk clock.Clock) *Service {
	return &Service{orders: orders, messages: messages, pub: pub, clock: clk}
}

// Authorize checks that actor may read or write the order's chat
func (s *Service) Authorize(ctx context.Context, actor user.Actor, orderID uuid.UUID) error {
	if actor.ID == uuid.Nil {
		return svcerr.ErrUnauthorized
	}
	o, err := s.orders.FindByID(ctx, orderID)
	if err != nil {
		if errors.Is(err, order.ErrNotFound) {
			return err
		}
		return svcerr.Wrap("find_order", err)
	}
	if !actor.CanAccess(o.UserID) {
		return order.ErrNotFound
	}
	return nil
}

// List returns the conversation oldest first
func (s *Service) List(ctx context.Context, actor user.Actor, orderID uuid.UUID) ([]*message.Message, error) {
	if err := s.Authorize(ctx, actor, orderID); err != nil {
		return nil, err
	}
	msgs, err := s.messages.FindByOrderID(ctx, orderID)
	if err != nil {
		return nil, svcerr.Wrap("list_messages", err)
	}
	if msgs == nil {
		msgs = []*message.Message{}
	}
	return msgs, nil
}

// Send stores a message and pushes it to everyone watching the order
func (s *Service) Send(ctx context.Context, actor user.Actor, orderID uuid.UUID, content string) (*message.Message, error) {
	if err := s.Authorize(ctx, actor, orderID); err != nil {
		return nil, err
	}

	m, err := message.NewMessage(orderID, actor.ID, content, s.clock.Now())
	if err != nil {
		return nil, svcerr.Invalid("content", err.Error())
	}
	if err := s.messages.Create(ctx, m); err != nil {
		return nil, svcerr.Wrap("create_message", err)
	}

	if s.pub != nil {
		if err := s.pub.Publish(ctx, realtime.OrderTopic(orderID), realtime.EventMessage, m); err != nil {
			log.Warn().Err(err).Str("order_id", orderID.String()).Msg("chat publish failed")
		}
	}
	return m, nil
}
