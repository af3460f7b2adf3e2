package order

import (
	"context"
	"errors"
	"io"

	"krostyshop/internal/clock"
	"krostyshop/internal/domain/order"
	"krostyshop/internal/domain/user"
	"krostyshop/internal/rates"
	"krostyshop/internal/realtime"
	catalogsvc "krostyshop/internal/services/catalog"
	"krostyshop/internal/services/data"
	"krostyshop/internal/services/svcerr"
	"krostyshop/internal/storage"
	"krostyshop/internal/store/repositories"

	"github.com/google/uuid"
	"github.com/rs/zerolog/log"
)

// Pricer rebuilds carts from catalog prices
type Pricer interface {
	PriceCart(ctx context.Context, lines []catalogsvc.CartLine) (*order.Cart, error)
}

// Proof is the uploaded payment screenshot
type Proof struct {
	Filename string
	Body     io.Reader
}

// Service handles the manual payment reconciliation flow
type Service struct {
	orders repositories.OrderRepository
	pricer Pricer
	rates  rates.Provider
	proofs storage.Store
	pub    realtime.Publisher
	clock  clock.Clock
}

func NewService(
	orders repositories.OrderRepository,
	pricer Pricer,
	rateProvider rates.Provider,
	proofs storage.Store,
	pub realtime.Publisher,
	clk clock.Clock,
) *Service {
	return &Service{
		orders: orders,
		pricer: pricer,
		rates:  rateProvider,
		proofs: proofs,
		pub:    pub,
		clock:  clk,
	}
}

// ManualCheckout records a bank-transfer order awaiting admin review
func (s *Service) ManualCheckout(ctx context.Context, actor user.Actor, lines []catalogsvc.CartLine, proof *Proof) (*order.Order, error) {
	if actor.ID == uuid.Nil {
		return nil, svcerr.ErrUnauthorized
	}
	if len(lines) == 0 {
		return nil, svcerr.Invalid("items", order.ErrEmptyCart.Error())
	}
	if proof == nil || proof.Body == nil {
		return nil, svcerr.Invalid("proof", "payment proof is required")
	}

	rate, err := s.rates.Rate(ctx)
	if err != nil {
		return nil, svcerr.Wrap("fetch_rate", err)
	}

	cart, err := s.pricer.PriceCart(ctx, lines)
	if err != nil {
		if errors.Is(err, order.ErrEmptyCart) {
			return nil, svcerr.Invalid("items", err.Error())
		}
		return nil, err
	}

	obj, err := s.proofs.Put(ctx, actor.ID, proof.Filename, proof.Body)
	if err != nil {
		switch {
		case errors.Is(err, storage.ErrTooLarge), errors.Is(err, storage.ErrNotImage), errors.Is(err, storage.ErrEmptyFile):
			return nil, svcerr.Invalid("proof", err.Error())
		}
		return nil, svcerr.Wrap("store_proof", err)
	}

	o, err := order.NewManualOrder(actor.ID, cart, rate, obj.URL, s.clock.Now())
	if err != nil {
		return nil, svcerr.Invalid("order", err.Error())
	}
	if err := s.orders.Create(ctx, o); err != nil {
		return nil, svcerr.Wrap("create_order", err)
	}

	log.Info().
		Str("order_id", o.ID.String()).
		Str("user_id", actor.ID.String()).
		Str("total_usdt", o.Total.String()).
		Str("total_ves", o.TotalVES.String()).
		Msg("manual order created")

	s.publish(ctx, realtime.TopicAdminOrders, realtime.EventOrderCreated, o)
	return o, nil
}

// ListMine returns the caller's orders newest first
func (s *Service) ListMine(ctx context.Context, actor user.Actor, req data.ListRequest) (*data.OrderListResponse, error) {
	if actor.ID == uuid.Nil {
		return nil, svcerr.ErrUnauthorized
	}
	req.Validate()

	orders, err := s.orders.FindByUserID(ctx, actor.ID, req.Limit, req.Offset)
	if err != nil {
		return nil, svcerr.Wrap("list_my_orders", err)
	}
	if orders == nil {
		orders = []*order.Order{}
	}
	return &data.OrderListResponse{Orders: orders, Limit: req.Limit, Offset: req.Offset}, nil
}

// Get returns an order to its owner or an admin
func (s *Service) Get(ctx context.Context, actor user.Actor, id uuid.UUID) (*order.Order, error) {
	if actor.ID == uuid.Nil {
		return nil, svcerr.ErrUnauthorized
	}
	o, err := s.orders.FindByID(ctx, id)
	if err != nil {
		if errors.Is(err, order.ErrNotFound) {
			return nil, err
		}
		return nil, svcerr.Wrap("get_order", err)
	}
	if !actor.CanAccess(o.UserID) {
		// do not reveal other buyers' orders
		return nil, order.ErrNotFound
	}
	return o, nil
}

// Review approves or rejects an order. The update only applies if nobody
// changed the status since it was read.
func (s *Service) Review(ctx context.Context, actor user.Actor, id uuid.UUID, next order.Status) (*order.Order, error) {
	if !actor.IsAdmin() {
		return nil, svcerr.ErrForbidden
	}

	o, err := s.orders.FindByID(ctx, id)
	if err != nil {
		if errors.Is(err, order.ErrNotFound) {
			return nil, err
		}
		return nil, svcerr.Wrap("find_order", err)
	}
	if err := o.CanReview(next); err != nil {
		return nil, err
	}

	updated, err := s.orders.UpdateStatus(ctx, id, o.Status, next)
	if err != nil {
		if errors.Is(err, order.ErrStatusChanged) || errors.Is(err, order.ErrNotFound) {
			return nil, err
		}
		return nil, svcerr.Wrap("update_status", err)
	}

	log.Info().
		Str("order_id", id.String()).
		Str("admin_id", actor.ID.String()).
		Str("from", string(o.Status)).
		Str("to", string(next)).
		Msg("order reviewed")

	s.publish(ctx, realtime.TopicAdminOrders, realtime.EventOrderUpdated, updated)
	s.publish(ctx, realtime.OrderTopic(id), realtime.EventOrderUpdated, updated)
	return updated, nil
}

// publish never fails the caller; the order is already persisted
func (s *Service) publish(ctx context.Context, topic, eventType string, o *order.Order) {
	if s.pub == nil {
		return
	}
	if err := s.pub.Publish(ctx, topic, eventType, o); err != nil {
		log.Warn().Err(err).Str("order_id", o.ID.String()).Str("event", eventType).Msg("realtime publish failed")
	}
}
