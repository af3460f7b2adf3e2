package order

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// Order is a persisted cart snapshot awaiting (or past) payment review.
type Order struct {
	ID              uuid.UUID       `json:"id"`
	DisplayID       int64           `json:"display_id"`
	UserID          uuid.UUID       `json:"user_id"`
	Items           []LineItem      `json:"items"`
	Total           decimal.Decimal `json:"total_usdt"`
	TotalVES        decimal.Decimal `json:"total_ves"`
	ExchangeRate    decimal.Decimal `json:"exchange_rate"`
	Status          Status          `json:"status"`
	Method          Method          `json:"method"`
	ProofURL        string          `json:"proof_url,omitempty"`
	MerchantTradeNo string          `json:"merchant_trade_no,omitempty"`
	PrepayID        string          `json:"prepay_id,omitempty"`
	CreatedAt       time.Time       `json:"created_at"`
	UpdatedAt       time.Time       `json:"updated_at"`
}

// Status represents order status
type Status string

const (
	StatusPending  Status = "pending"
	StatusApproved Status = "approved"
	StatusRejected Status = "rejected"
	StatusPaid     Status = "paid"
)

// Method represents how the buyer pays
type Method string

const (
	MethodManual  Method = "manual"
	MethodBinance Method = "binance"
)

var (
	ErrNotFound          = errors.New("order not found")
	ErrEmptyCart         = errors.New("cart is empty")
	ErrInvalidTransition = errors.New("invalid status transition")
	ErrStatusChanged     = errors.New("order status changed concurrently")
)

// ParseStatus validates a status string.
func ParseStatus(s string) (Status, error) {
	switch st := Status(strings.ToLower(strings.TrimSpace(s))); st {
	case StatusPending, StatusApproved, StatusRejected, StatusPaid:
		return st, nil
	}
	return "", fmt.Errorf("unknown order status %q", s)
}

// NewManualOrder builds a pending order paid by bank transfer with proof.
func NewManualOrder(userID uuid.UUID, cart *Cart, rate decimal.Decimal, proofURL string, now time.Time) (*Order, error) {
	if cart == nil || cart.IsEmpty() {
		return nil, ErrEmptyCart
	}
	if !rate.IsPositive() {
		return nil, fmt.Errorf("exchange rate must be positive: %s", rate)
	}
	if strings.TrimSpace(proofURL) == "" {
		return nil, fmt.Errorf("payment proof is required")
	}

	total := cart.Total()
	return &Order{
		ID:           uuid.New(),
		UserID:       userID,
		Items:        cart.Items(),
		Total:        total,
		TotalVES:     ConvertTotal(total, rate),
		ExchangeRate: rate,
		Status:       StatusPending,
		Method:       MethodManual,
		ProofURL:     proofURL,
		CreatedAt:    now,
		UpdatedAt:    now,
	}, nil
}

// NewHostedOrder builds a pending order settled through the hosted provider.
func NewHostedOrder(userID uuid.UUID, cart *Cart, merchantTradeNo string, now time.Time) (*Order, error) {
	if cart == nil || cart.IsEmpty() {
		return nil, ErrEmptyCart
	}
	if strings.TrimSpace(merchantTradeNo) == "" {
		return nil, fmt.Errorf("merchant trade number is required")
	}

	return &Order{
		ID:              uuid.New(),
		UserID:          userID,
		Items:           cart.Items(),
		Total:           cart.Total(),
		TotalVES:        decimal.Zero,
		ExchangeRate:    decimal.Zero,
		Status:          StatusPending,
		Method:          MethodBinance,
		MerchantTradeNo: merchantTradeNo,
		CreatedAt:       now,
		UpdatedAt:       now,
	}, nil
}

// ConvertTotal returns the fiat amount for a USDT total, rounded to cents.
func ConvertTotal(total, rate decimal.Decimal) decimal.Decimal {
	return total.Mul(rate).Round(2)
}

// CanReview reports whether an admin may move the order to next.
func (o *Order) CanReview(next Status) error {
	if next != StatusApproved && next != StatusRejected {
		return fmt.Errorf("%w: admins may only approve or reject", ErrInvalidTransition)
	}
	if o.Status == next {
		return fmt.Errorf("%w: order already %s", ErrInvalidTransition, next)
	}
	return nil
}

// IsOwnedBy checks order ownership
func (o *Order) IsOwnedBy(userID uuid.UUID) bool {
	return o.UserID == userID
}

// Reference returns the short human reference shown to buyers and admins.
func (o *Order) Reference() string {
	if o.DisplayID > 0 {
		return fmt.Sprintf("#%d", o.DisplayID)
	}
	return "#" + o.ID.String()[:8]
}
