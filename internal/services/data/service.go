package data

import (
	"context"

	"krostyshop/internal/domain/event"
	"krostyshop/internal/domain/order"
	"krostyshop/internal/domain/user"
	"krostyshop/internal/services/svcerr"
	"krostyshop/internal/store/repositories"
)

// Service handles back-office data retrieval
type Service struct {
	orderRepo repositories.OrderRepository
	eventRepo repositories.EventRepository
}

// NewService creates a new data service
func NewService(orderRepo repositories.OrderRepository, eventRepo repositories.EventRepository) *Service {
	return &Service{
		orderRepo: orderRepo,
		eventRepo: eventRepo,
	}
}

// ListOrders retrieves paginated orders, optionally filtered by status
func (s *Service) ListOrders(ctx context.Context, actor user.Actor, status order.Status, req ListRequest) (*OrderListResponse, error) {
	if !actor.IsAdmin() {
		return nil, svcerr.ErrForbidden
	}
	req.Validate()

	orders, err := s.orderRepo.List(ctx, status, req.Limit, req.Offset)
	if err != nil {
		return nil, svcerr.Wrap("list_orders", err)
	}
	if orders == nil {
		orders = []*order.Order{}
	}

	return &OrderListResponse{
		Orders: orders,
		Limit:  req.Limit,
		Offset: req.Offset,
	}, nil
}

// ListEvents retrieves paginated provider events
func (s *Service) ListEvents(ctx context.Context, actor user.Actor, req ListRequest) (*EventListResponse, error) {
	if !actor.IsAdmin() {
		return nil, svcerr.ErrForbidden
	}
	req.Validate()

	events, err := s.eventRepo.List(ctx, req.Limit, req.Offset)
	if err != nil {
		return nil, svcerr.Wrap("list_events", err)
	}
	if events == nil {
		events = []*event.Event{}
	}

	return &EventListResponse{
		Events: events,
		Limit:  req.Limit,
		Offset: req.Offset,
	}, nil
}
