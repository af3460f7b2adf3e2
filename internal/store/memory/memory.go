// Package memory implements the repository interfaces in process. It backs
// service and handler tests.
package memory

import (
	"context"
	"errors"
	"sort"
	"strings"
	"sync"
	"time"

	"krostyshop/internal/domain/catalog"
	"krostyshop/internal/domain/event"
	"krostyshop/internal/domain/message"
	"krostyshop/internal/domain/order"
	"krostyshop/internal/domain/user"
	"krostyshop/internal/store/repositories"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// Store holds every table behind one lock
type Store struct {
	mu       sync.Mutex
	products map[uuid.UUID]*catalog.Product
	variants map[uuid.UUID]*catalog.Variant
	orders   map[uuid.UUID]*order.Order
	messages []*message.Message
	users    map[uuid.UUID]*user.User
	events   []*event.Event
	nextDisp int64
}

func New() *Store {
	return &Store{
		products: make(map[uuid.UUID]*catalog.Product),
		variants: make(map[uuid.UUID]*catalog.Variant),
		orders:   make(map[uuid.UUID]*order.Order),
		users:    make(map[uuid.UUID]*user.User),
	}
}

func (s *Store) Products() repositories.ProductRepository { return productRepo{s} }
func (s *Store) Orders() repositories.OrderRepository     { return orderRepo{s} }
func (s *Store) Messages() repositories.MessageRepository { return messageRepo{s} }
func (s *Store) Users() repositories.UserRepository       { return userRepo{s} }
func (s *Store) Events() repositories.EventRepository     { return eventRepo{s} }
func (s *Store) UnitOfWork() repositories.UnitOfWork      { return uow{s} }

// products

type productRepo struct{ s *Store }

func (r productRepo) List(_ context.Context, filter catalog.Filter) ([]*catalog.Product, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	var out []*catalog.Product
	for _, p := range r.s.products {
		if filter.Matches(*p) {
			cp := *p
			out = append(out, &cp)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Name < out[j].Name })
	return out, nil
}

func (r productRepo) FindByID(_ context.Context, id uuid.UUID) (*catalog.Product, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	p, ok := r.s.products[id]
	if !ok {
		return nil, catalog.ErrProductNotFound
	}
	cp := *p
	return &cp, nil
}

func (r productRepo) Create(_ context.Context, p *catalog.Product) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	now := time.Now().UTC()
	p.CreatedAt, p.UpdatedAt = now, now
	cp := *p
	cp.Variants = nil
	r.s.products[p.ID] = &cp
	return nil
}

func (r productRepo) Update(_ context.Context, p *catalog.Product) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	old, ok := r.s.products[p.ID]
	if !ok {
		return catalog.ErrProductNotFound
	}
	p.CreatedAt = old.CreatedAt
	p.UpdatedAt = time.Now().UTC()
	cp := *p
	cp.Variants = nil
	r.s.products[p.ID] = &cp
	return nil
}

func (r productRepo) UpdatePrice(_ context.Context, id uuid.UUID, price decimal.Decimal) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	p, ok := r.s.products[id]
	if !ok {
		return catalog.ErrProductNotFound
	}
	p.Price = price
	return nil
}

func (r productRepo) Delete(_ context.Context, id uuid.UUID) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	if _, ok := r.s.products[id]; !ok {
		return catalog.ErrProductNotFound
	}
	delete(r.s.products, id)
	for vid, v := range r.s.variants {
		if v.ProductID == id {
			delete(r.s.variants, vid)
		}
	}
	return nil
}

func (r productRepo) ListVariants(_ context.Context, productID uuid.UUID) ([]catalog.Variant, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	var out []catalog.Variant
	for _, v := range r.s.variants {
		if v.ProductID == productID {
			out = append(out, *v)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Price.LessThan(out[j].Price) })
	return out, nil
}

func (r productRepo) FindVariant(_ context.Context, id uuid.UUID) (*catalog.Variant, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	v, ok := r.s.variants[id]
	if !ok {
		return nil, catalog.ErrVariantNotFound
	}
	cp := *v
	return &cp, nil
}

func (r productRepo) CreateVariant(_ context.Context, v *catalog.Variant) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	if _, ok := r.s.products[v.ProductID]; !ok {
		return catalog.ErrProductNotFound
	}
	cp := *v
	r.s.variants[v.ID] = &cp
	return nil
}

func (r productRepo) DeleteVariant(_ context.Context, id uuid.UUID) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	if _, ok := r.s.variants[id]; !ok {
		return catalog.ErrVariantNotFound
	}
	delete(r.s.variants, id)
	return nil
}

// orders

type orderRepo struct{ s *Store }

func (r orderRepo) Create(_ context.Context, o *order.Order) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	if o.MerchantTradeNo != "" {
		for _, existing := range r.s.orders {
			if existing.MerchantTradeNo == o.MerchantTradeNo {
				return errDuplicate
			}
		}
	}
	r.s.nextDisp++
	o.DisplayID = r.s.nextDisp
	r.s.orders[o.ID] = copyOrder(o)
	return nil
}

func (r orderRepo) FindByID(_ context.Context, id uuid.UUID) (*order.Order, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	o, ok := r.s.orders[id]
	if !ok {
		return nil, order.ErrNotFound
	}
	return copyOrder(o), nil
}

func (r orderRepo) FindByMerchantTradeNo(_ context.Context, tradeNo string) (*order.Order, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	for _, o := range r.s.orders {
		if tradeNo != "" && o.MerchantTradeNo == tradeNo {
			return copyOrder(o), nil
		}
	}
	return nil, order.ErrNotFound
}

func (r orderRepo) FindByUserID(_ context.Context, userID uuid.UUID, limit, offset int) ([]*order.Order, error) {
	return r.filter(func(o *order.Order) bool { return o.UserID == userID }, limit, offset), nil
}

func (r orderRepo) List(_ context.Context, status order.Status, limit, offset int) ([]*order.Order, error) {
	return r.filter(func(o *order.Order) bool { return status == "" || o.Status == status }, limit, offset), nil
}

func (r orderRepo) filter(keep func(*order.Order) bool, limit, offset int) []*order.Order {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	var out []*order.Order
	for _, o := range r.s.orders {
		if keep(o) {
			out = append(out, copyOrder(o))
		}
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].CreatedAt.Equal(out[j].CreatedAt) {
			return out[i].DisplayID > out[j].DisplayID
		}
		return out[i].CreatedAt.After(out[j].CreatedAt)
	})
	return page(out, limit, offset)
}

func (r orderRepo) UpdateStatus(_ context.Context, id uuid.UUID, from, to order.Status) (*order.Order, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	o, ok := r.s.orders[id]
	if !ok {
		return nil, order.ErrNotFound
	}
	if o.Status != from {
		return nil, order.ErrStatusChanged
	}
	o.Status = to
	o.UpdatedAt = time.Now().UTC()
	return copyOrder(o), nil
}

func (r orderRepo) MarkPaid(_ context.Context, id uuid.UUID, prepayID string) (*order.Order, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	o, ok := r.s.orders[id]
	if !ok {
		return nil, order.ErrNotFound
	}
	o.Status = order.StatusPaid
	if prepayID != "" {
		o.PrepayID = prepayID
	}
	o.UpdatedAt = time.Now().UTC()
	return copyOrder(o), nil
}

func copyOrder(o *order.Order) *order.Order {
	cp := *o
	cp.Items = append([]order.LineItem(nil), o.Items...)
	return &cp
}

// messages

type messageRepo struct{ s *Store }

func (r messageRepo) Create(_ context.Context, m *message.Message) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	cp := *m
	r.s.messages = append(r.s.messages, &cp)
	return nil
}

func (r messageRepo) FindByOrderID(_ context.Context, orderID uuid.UUID) ([]*message.Message, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	var out []*message.Message
	for _, m := range r.s.messages {
		if m.OrderID == orderID {
			cp := *m
			out = append(out, &cp)
		}
	}
	sort.SliceStable(out, func(i, j int) bool { return out[i].CreatedAt.Before(out[j].CreatedAt) })
	return out, nil
}

// users

type userRepo struct{ s *Store }

func (r userRepo) Create(_ context.Context, u *user.User) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	for _, existing := range r.s.users {
		if strings.EqualFold(existing.Email, u.Email) {
			return user.ErrEmailTaken
		}
	}
	cp := *u
	r.s.users[u.ID] = &cp
	return nil
}

func (r userRepo) FindByID(_ context.Context, id uuid.UUID) (*user.User, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	u, ok := r.s.users[id]
	if !ok {
		return nil, user.ErrNotFound
	}
	cp := *u
	return &cp, nil
}

func (r userRepo) FindByEmail(_ context.Context, email string) (*user.User, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	for _, u := range r.s.users {
		if u.Email == email {
			cp := *u
			return &cp, nil
		}
	}
	return nil, user.ErrNotFound
}

func (r userRepo) UpdatePassword(_ context.Context, id uuid.UUID, hash string) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	u, ok := r.s.users[id]
	if !ok {
		return user.ErrNotFound
	}
	u.PasswordHash = hash
	return nil
}

func (r userRepo) UpdateRole(_ context.Context, id uuid.UUID, role user.Role) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	u, ok := r.s.users[id]
	if !ok {
		return user.ErrNotFound
	}
	u.Role = role
	return nil
}

// events

type eventRepo struct{ s *Store }

func (r eventRepo) Save(_ context.Context, e *event.Event) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	for _, existing := range r.s.events {
		if existing.Provider == e.Provider && existing.BizType == e.BizType &&
			existing.BizStatus == e.BizStatus && existing.ExternalID == e.ExternalID {
			existing.RawJSON = e.RawJSON
			e.ID = existing.ID
			e.ProcessingStatus = existing.ProcessingStatus
			return nil
		}
	}
	e.ID = int64(len(r.s.events) + 1)
	cp := *e
	r.s.events = append(r.s.events, &cp)
	return nil
}

func (r eventRepo) FindByID(_ context.Context, id int64) (*event.Event, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	for _, e := range r.s.events {
		if e.ID == id {
			cp := *e
			return &cp, nil
		}
	}
	return nil, event.ErrNotFound
}

func (r eventRepo) FindUnprocessed(_ context.Context, limit int) ([]*event.Event, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	var out []*event.Event
	for _, e := range r.s.events {
		if e.ProcessingStatus == event.ProcessingPending || e.ProcessingStatus == event.ProcessingQueued {
			cp := *e
			out = append(out, &cp)
		}
	}
	sort.SliceStable(out, func(i, j int) bool { return out[i].ReceivedAt.Before(out[j].ReceivedAt) })
	return page(out, limit, 0), nil
}

func (r eventRepo) List(_ context.Context, limit, offset int) ([]*event.Event, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	out := make([]*event.Event, 0, len(r.s.events))
	for _, e := range r.s.events {
		cp := *e
		out = append(out, &cp)
	}
	sort.SliceStable(out, func(i, j int) bool { return out[i].ReceivedAt.After(out[j].ReceivedAt) })
	return page(out, limit, offset), nil
}

func (r eventRepo) FindIDsInWindow(_ context.Context, since, until *time.Time, max int) ([]int64, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	var ids []int64
	for _, e := range r.s.events {
		if since != nil && e.ReceivedAt.Before(*since) {
			continue
		}
		if until != nil && e.ReceivedAt.After(*until) {
			continue
		}
		ids = append(ids, e.ID)
		if len(ids) == max {
			break
		}
	}
	return ids, nil
}

func (r eventRepo) MarkProcessed(_ context.Context, id int64, status event.ProcessingStatus, orderID *uuid.UUID, errMsg string) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	for _, e := range r.s.events {
		if e.ID == id {
			now := time.Now().UTC()
			e.ProcessingStatus = status
			e.ProcessedAt = &now
			e.Error = errMsg
			if orderID != nil {
				e.OrderID = orderID
			}
			return nil
		}
	}
	return event.ErrNotFound
}

func (r eventRepo) MarkForReprocessing(_ context.Context, id int64) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	for _, e := range r.s.events {
		if e.ID == id {
			e.ProcessingStatus = event.ProcessingQueued
			e.ProcessedAt = nil
			e.Error = ""
			return nil
		}
	}
	return event.ErrNotFound
}

// unit of work; writes are applied immediately

type uow struct{ s *Store }

func (u uow) Begin(context.Context) (repositories.Transaction, error) { return tx{u.s}, nil }

type tx struct{ s *Store }

func (t tx) Commit(context.Context) error                  { return nil }
func (t tx) Rollback(context.Context) error                { return nil }
func (t tx) OrderRepository() repositories.OrderRepository { return orderRepo{t.s} }
func (t tx) EventRepository() repositories.EventRepository { return eventRepo{t.s} }

var errDuplicate = errors.New("duplicate merchant trade number")

func page[T any](items []T, limit, offset int) []T {
	if offset >= len(items) {
		return nil
	}
	items = items[offset:]
	if limit > 0 && limit < len(items) {
		items = items[:limit]
	}
	return items
}
