package provider

import (
	"context"
	"net/http"
	"time"
)

// HostedPayments is implemented by providers that host the payment page and
// report the outcome through a signed webhook.
type HostedPayments interface {
	Name() string
	Type() ProviderType

	CreateOrder(ctx context.Context, req HostedOrderReq) (*HostedOrderResp, error)

	// VerifyWebhook checks the signature headers against body. now is used
	// for the timestamp skew check.
	VerifyWebhook(h http.Header, body []byte, now time.Time) error
	ParseWebhook(body []byte) (*Notification, error)
}
