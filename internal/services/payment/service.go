package payment

import (
	"context"
	"errors"
	"net/http"
	"net/url"
	"strings"

	"krostyshop/internal/clock"
	"krostyshop/internal/domain/event"
	"krostyshop/internal/domain/order"
	"krostyshop/internal/domain/user"
	"krostyshop/internal/provider"
	"krostyshop/internal/realtime"
	catalogsvc "krostyshop/internal/services/catalog"
	"krostyshop/internal/services/svcerr"
	"krostyshop/internal/store/repositories"

	"github.com/google/uuid"
	"github.com/rs/zerolog/log"
)

// Pricer rebuilds carts from catalog prices
type Pricer interface {
	PriceCart(ctx context.Context, lines []catalogsvc.CartLine) (*order.Cart, error)
}

// CheckoutResponse sends the buyer to the hosted payment page
type CheckoutResponse struct {
	CheckoutURL string    `json:"checkoutUrl"`
	TradeNo     string    `json:"tradeNo"`
	OrderID     uuid.UUID `json:"orderId"`
}

// Service handles hosted checkout and provider notifications
type Service struct {
	orders   repositories.OrderRepository
	events   repositories.EventRepository
	pricer   Pricer
	provider provider.HostedPayments
	pub      realtime.Publisher
	clock    clock.Clock
	baseURL  string
}

// NewService creates a new payment service
func NewService(
	orders repositories.OrderRepository,
	events repositories.EventRepository,
	pricer Pricer,
	hosted provider.HostedPayments,
	pub realtime.Publisher,
	clk clock.Clock,
	baseURL string,
) *Service {
	return &Service{
		orders:   orders,
		events:   events,
		pricer:   pricer,
		provider: hosted,
		pub:      pub,
		clock:    clk,
		baseURL:  strings.TrimRight(baseURL, "/"),
	}
}

// CreateHostedCheckout registers the cart with the provider and records a
// pending order keyed by the merchant trade number.
func (s *Service) CreateHostedCheckout(ctx context.Context, actor user.Actor, lines []catalogsvc.CartLine) (*CheckoutResponse, error) {
	if actor.ID == uuid.Nil {
		return nil, svcerr.ErrUnauthorized
	}
	if len(lines) == 0 {
		return nil, svcerr.Invalid("items", order.ErrEmptyCart.Error())
	}

	cart, err := s.pricer.PriceCart(ctx, lines)
	if err != nil {
		if errors.Is(err, order.ErrEmptyCart) {
			return nil, svcerr.Invalid("items", err.Error())
		}
		return nil, err
	}

	tradeNo := strings.ReplaceAll(uuid.NewString(), "-", "")
	o, err := order.NewHostedOrder(actor.ID, cart, tradeNo, s.clock.Now())
	if err != nil {
		return nil, svcerr.Invalid("order", err.Error())
	}

	goods := make([]provider.Goods, 0, cart.Len())
	for _, it := range cart.Items() {
		goods = append(goods, provider.Goods{ID: it.ID, Name: it.Name, Quantity: it.Quantity})
	}

	resp, err := s.provider.CreateOrder(ctx, provider.HostedOrderReq{
		MerchantTradeNo: tradeNo,
		Amount:          o.Total,
		Currency:        "USDT",
		Goods:           goods,
		ReturnURL:       s.pageURL("/payment/success", tradeNo),
		CancelURL:       s.pageURL("/payment/cancel", tradeNo),
	})
	if err != nil {
		return nil, svcerr.Wrap("create_hosted_order", err)
	}

	o.PrepayID = resp.PrepayID
	if err := s.orders.Create(ctx, o); err != nil {
		return nil, svcerr.Wrap("create_order", err)
	}

	log.Info().
		Str("order_id", o.ID.String()).
		Str("user_id", actor.ID.String()).
		Str("merchant_trade_no", tradeNo).
		Str("total_usdt", o.Total.String()).
		Msg("hosted order created")

	if s.pub != nil {
		if err := s.pub.Publish(ctx, realtime.TopicAdminOrders, realtime.EventOrderCreated, o); err != nil {
			log.Warn().Err(err).Str("order_id", o.ID.String()).Msg("realtime publish failed")
		}
	}

	return &CheckoutResponse{CheckoutURL: resp.CheckoutURL, TradeNo: tradeNo, OrderID: o.ID}, nil
}

func (s *Service) pageURL(path, tradeNo string) string {
	return s.baseURL + path + "?tradeNo=" + url.QueryEscape(tradeNo)
}

// IngestWebhook verifies and stores a provider notification. Processing
// happens later in the event worker; redeliveries are absorbed by the store.
func (s *Service) IngestWebhook(ctx context.Context, h http.Header, body []byte) (*event.Event, error) {
	if err := s.provider.VerifyWebhook(h, body, s.clock.Now()); err != nil {
		return nil, err
	}

	n, err := s.provider.ParseWebhook(body)
	if err != nil {
		return nil, svcerr.Invalid("body", err.Error())
	}

	evt, err := event.NewEvent(string(s.provider.Type()), n.BizType, n.BizStatus, n.BizID, n.RawJSON, s.clock.Now())
	if err != nil {
		return nil, svcerr.Invalid("body", err.Error())
	}
	evt.MerchantTradeNo = n.MerchantTradeNo
	evt.PrepayID = n.PrepayID

	if err := s.events.Save(ctx, evt); err != nil {
		return nil, svcerr.Wrap("save_event", err)
	}

	log.Info().
		Int64("event_id", evt.ID).
		Str("biz_type", evt.BizType).
		Str("biz_status", evt.BizStatus).
		Str("merchant_trade_no", evt.MerchantTradeNo).
		Msg("provider notification stored")
	return evt, nil
}
