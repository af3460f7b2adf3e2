package repositories

import (
	"context"
	"time"

	"krostyshop/internal/domain/catalog"
	"krostyshop/internal/domain/event"
	"krostyshop/internal/domain/message"
	"krostyshop/internal/domain/order"
	"krostyshop/internal/domain/user"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// ProductRepository defines the contract for catalog data access
type ProductRepository interface {
	List(ctx context.Context, filter catalog.Filter) ([]*catalog.Product, error)
	FindByID(ctx context.Context, id uuid.UUID) (*catalog.Product, error)
	Create(ctx context.Context, p *catalog.Product) error
	Update(ctx context.Context, p *catalog.Product) error
	UpdatePrice(ctx context.Context, id uuid.UUID, price decimal.Decimal) error
	Delete(ctx context.Context, id uuid.UUID) error
	ListVariants(ctx context.Context, productID uuid.UUID) ([]catalog.Variant, error)
	FindVariant(ctx context.Context, id uuid.UUID) (*catalog.Variant, error)
	CreateVariant(ctx context.Context, v *catalog.Variant) error
	DeleteVariant(ctx context.Context, id uuid.UUID) error
}

// OrderRepository defines the contract for order data access
type OrderRepository interface {
	Create(ctx context.Context, o *order.Order) error
	FindByID(ctx context.Context, id uuid.UUID) (*order.Order, error)
	FindByMerchantTradeNo(ctx context.Context, tradeNo string) (*order.Order, error)
	FindByUserID(ctx context.Context, userID uuid.UUID, limit, offset int) ([]*order.Order, error)
	List(ctx context.Context, status order.Status, limit, offset int) ([]*order.Order, error)
	// UpdateStatus moves id from -> to; returns order.ErrStatusChanged when
	// the stored status is no longer from.
	UpdateStatus(ctx context.Context, id uuid.UUID, from, to order.Status) (*order.Order, error)
	MarkPaid(ctx context.Context, id uuid.UUID, prepayID string) (*order.Order, error)
}

// MessageRepository defines the contract for order chat data access
type MessageRepository interface {
	Create(ctx context.Context, m *message.Message) error
	FindByOrderID(ctx context.Context, orderID uuid.UUID) ([]*message.Message, error)
}

// UserRepository defines the contract for account data access
type UserRepository interface {
	Create(ctx context.Context, u *user.User) error
	FindByID(ctx context.Context, id uuid.UUID) (*user.User, error)
	FindByEmail(ctx context.Context, email string) (*user.User, error)
	UpdatePassword(ctx context.Context, id uuid.UUID, hash string) error
	UpdateRole(ctx context.Context, id uuid.UUID, role user.Role) error
}

// EventRepository defines the contract for provider event data access
type EventRepository interface {
	Save(ctx context.Context, e *event.Event) error
	FindByID(ctx context.Context, id int64) (*event.Event, error)
	FindUnprocessed(ctx context.Context, limit int) ([]*event.Event, error)
	List(ctx context.Context, limit, offset int) ([]*event.Event, error)
	FindIDsInWindow(ctx context.Context, since, until *time.Time, max int) ([]int64, error)
	MarkProcessed(ctx context.Context, id int64, status event.ProcessingStatus, orderID *uuid.UUID, errMsg string) error
	MarkForReprocessing(ctx context.Context, id int64) error
}

// UnitOfWork defines transactional operations
type UnitOfWork interface {
	Begin(ctx context.Context) (Transaction, error)
}

// Transaction defines a database transaction
type Transaction interface {
	Commit(ctx context.Context) error
	Rollback(ctx context.Context) error
	OrderRepository() OrderRepository
	EventRepository() EventRepository
}
