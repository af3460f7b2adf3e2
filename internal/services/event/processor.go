package event

import (
	"context"
	"errors"
	"fmt"

	"krostyshop/internal/domain/event"
	"krostyshop/internal/domain/order"
	"krostyshop/internal/realtime"
	"krostyshop/internal/store/repositories"

	"github.com/rs/zerolog/log"
)

// Processor handles event processing business logic
type Processor struct {
	eventRepo  repositories.EventRepository
	unitOfWork repositories.UnitOfWork
	pub        realtime.Publisher
}

// NewProcessor creates a new event processor
func NewProcessor(
	eventRepo repositories.EventRepository,
	unitOfWork repositories.UnitOfWork,
	pub realtime.Publisher,
) *Processor {
	return &Processor{
		eventRepo:  eventRepo,
		unitOfWork: unitOfWork,
		pub:        pub,
	}
}

// ProcessEvent applies a stored notification to its order
func (p *Processor) ProcessEvent(ctx context.Context, evt *event.Event) error {
	if !evt.IsPaymentSuccess() {
		// closures and other notifications are recorded only
		return p.markEventProcessed(ctx, evt, event.ProcessingCompleted, "")
	}
	if evt.MerchantTradeNo == "" {
		return p.markEventProcessed(ctx, evt, event.ProcessingFailed, "notification has no merchant trade number")
	}
	return p.settleOrder(ctx, evt)
}

// settleOrder marks the order paid and the event processed in one transaction
func (p *Processor) settleOrder(ctx context.Context, evt *event.Event) error {
	tx, err := p.unitOfWork.Begin(ctx)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback(ctx)

	orders := tx.OrderRepository()
	o, err := orders.FindByMerchantTradeNo(ctx, evt.MerchantTradeNo)
	if err != nil {
		if errors.Is(err, order.ErrNotFound) {
			log.Warn().
				Int64("event_id", evt.ID).
				Str("merchant_trade_no", evt.MerchantTradeNo).
				Msg("no order for merchant trade number")
			return p.markEventProcessed(ctx, evt, event.ProcessingFailed,
				"no order with merchant trade number "+evt.MerchantTradeNo)
		}
		return fmt.Errorf("failed to find order: %w", err)
	}

	paid, err := orders.MarkPaid(ctx, o.ID, evt.PrepayID)
	if err != nil {
		return fmt.Errorf("failed to mark order paid: %w", err)
	}

	if err := tx.EventRepository().MarkProcessed(ctx, evt.ID, event.ProcessingCompleted, &paid.ID, ""); err != nil {
		return fmt.Errorf("failed to mark event processed: %w", err)
	}

	if err := tx.Commit(ctx); err != nil {
		return fmt.Errorf("failed to commit: %w", err)
	}

	log.Info().
		Int64("event_id", evt.ID).
		Str("order_id", paid.ID.String()).
		Str("merchant_trade_no", evt.MerchantTradeNo).
		Str("previous_status", string(o.Status)).
		Msg("order marked paid")

	p.publish(ctx, paid)
	return nil
}

func (p *Processor) publish(ctx context.Context, o *order.Order) {
	if p.pub == nil {
		return
	}
	for _, topic := range []string{realtime.TopicAdminOrders, realtime.OrderTopic(o.ID)} {
		if err := p.pub.Publish(ctx, topic, realtime.EventOrderUpdated, o); err != nil {
			log.Warn().Err(err).Str("topic", topic).Msg("realtime publish failed")
		}
	}
}

// markEventProcessed records a terminal processing status outside a transaction
func (p *Processor) markEventProcessed(ctx context.Context, evt *event.Event, status event.ProcessingStatus, reason string) error {
	return p.eventRepo.MarkProcessed(ctx, evt.ID, status, nil, reason)
}
