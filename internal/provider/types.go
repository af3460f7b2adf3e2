package provider

import (
	"github.com/shopspring/decimal"
)

// Provider identification
type ProviderType string

const (
	ProviderBinancePay ProviderType = "binance_pay"
)

// HostedOrderReq describes a checkout to be paid on the provider's hosted page
type HostedOrderReq struct {
	MerchantTradeNo string
	Amount          decimal.Decimal
	Currency        string
	Goods           []Goods
	ReturnURL       string
	CancelURL       string
}

// Goods is one line of a hosted order
type Goods struct {
	ID       string
	Name     string
	Quantity int
}

type HostedOrderResp struct {
	PrepayID    string `json:"prepay_id"`
	CheckoutURL string `json:"checkout_url"`
	TradeNo     string `json:"trade_no"`
}

// Notification is a verified webhook delivery normalized across providers
type Notification struct {
	BizType         string
	BizStatus       string
	BizID           string
	MerchantTradeNo string
	PrepayID        string
	RawJSON         []byte
}

// Common error types
type ProviderError struct {
	Code        string `json:"code"`
	Message     string `json:"message"`
	ProviderErr string `json:"provider_error,omitempty"`
}

func (e *ProviderError) Error() string {
	if e.ProviderErr != "" {
		return e.Message + ": " + e.ProviderErr
	}
	return e.Message
}

// Error codes
const (
	ErrInvalidCredentials = "invalid_credentials"
	ErrInvalidAmount      = "invalid_amount"
	ErrInvalidSignature   = "invalid_signature"
	ErrStaleTimestamp     = "stale_timestamp"
	ErrMissingHeaders     = "missing_headers"
	ErrProviderRejected   = "provider_rejected"
	ErrProviderDown       = "provider_down"
	ErrUnknownError       = "unknown_error"
)
