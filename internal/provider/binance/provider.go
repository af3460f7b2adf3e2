package binance

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"strconv"
	"strings"
	"time"

	"krostyshop/internal/provider"
	"krostyshop/internal/provider/base"

	"github.com/google/uuid"
	"github.com/rs/zerolog/log"
	"github.com/shopspring/decimal"
)

const (
	DefaultBaseURL = "https://bpay.binanceapi.com"
	createOrderURI = "/binancepay/openapi/v2/order"

	goodsTypeVirtual  = "02"
	goodsCategoryGame = "7000"
)

// Config holds merchant credentials
type Config struct {
	APIKey    string
	SecretKey string
	BaseURL   string
	// MaxSkew bounds how far a webhook timestamp may drift from now; zero
	// disables the check.
	MaxSkew time.Duration
}

// Provider implements provider.HostedPayments for Binance Pay
type Provider struct {
	cfg    Config
	client *base.HTTPClient
	amount *base.AmountValidator
	nonce  func() string
	now    func() time.Time
}

func New(cfg Config) *Provider {
	if cfg.BaseURL == "" {
		cfg.BaseURL = DefaultBaseURL
	}
	client := base.NewHTTPClient("binance_pay", 30)
	client.SetBaseURL(strings.TrimRight(cfg.BaseURL, "/"))
	// a merchantTradeNo may only be submitted once
	client.SetRetry(0, nil)

	return &Provider{
		cfg:    cfg,
		client: client,
		amount: base.NewAmountValidator("USDT", decimal.RequireFromString("0.01"), decimal.Zero),
		nonce:  func() string { return strings.ReplaceAll(uuid.NewString(), "-", "") },
		now:    time.Now,
	}
}

func (p *Provider) Name() string                { return "Binance Pay" }
func (p *Provider) Type() provider.ProviderType { return provider.ProviderBinancePay }

type orderEnv struct {
	TerminalType string `json:"terminalType"`
}

type orderGoods struct {
	GoodsType        string `json:"goodsType"`
	GoodsCategory    string `json:"goodsCategory"`
	ReferenceGoodsID string `json:"referenceGoodsId"`
	GoodsName        string `json:"goodsName"`
	GoodsDetail      string `json:"goodsDetail"`
}

type createOrderPayload struct {
	Env             orderEnv   `json:"env"`
	MerchantTradeNo string     `json:"merchantTradeNo"`
	OrderAmount     string     `json:"orderAmount"`
	Currency        string     `json:"currency"`
	Goods           orderGoods `json:"goods"`
	ReturnURL       string     `json:"returnUrl"`
	CancelURL       string     `json:"cancelUrl"`
}

type createOrderResult struct {
	Status       string `json:"status"`
	Code         string `json:"code"`
	ErrorMessage string `json:"errorMessage"`
	Data         struct {
		PrepayID    string `json:"prepayId"`
		CheckoutURL string `json:"checkoutUrl"`
	} `json:"data"`
}

// buildPayload renders the create-order request body
func buildPayload(req provider.HostedOrderReq) createOrderPayload {
	details := make([]string, 0, len(req.Goods))
	for _, g := range req.Goods {
		details = append(details, fmt.Sprintf("%s x%d", g.Name, g.Quantity))
	}
	var refID string
	if len(req.Goods) > 0 {
		refID = req.Goods[0].ID
	}
	currency := req.Currency
	if currency == "" {
		currency = "USDT"
	}

	return createOrderPayload{
		Env:             orderEnv{TerminalType: "WEB"},
		MerchantTradeNo: req.MerchantTradeNo,
		OrderAmount:     req.Amount.StringFixed(2),
		Currency:        currency,
		Goods: orderGoods{
			GoodsType:        goodsTypeVirtual,
			GoodsCategory:    goodsCategoryGame,
			ReferenceGoodsID: refID,
			GoodsName:        fmt.Sprintf("KrostyShop Order - %d items", len(req.Goods)),
			GoodsDetail:      strings.Join(details, ", "),
		},
		ReturnURL: req.ReturnURL,
		CancelURL: req.CancelURL,
	}
}

// CreateOrder registers a hosted checkout and returns its payment page
func (p *Provider) CreateOrder(ctx context.Context, req provider.HostedOrderReq) (*provider.HostedOrderResp, error) {
	if len(req.Goods) == 0 {
		return nil, &provider.ProviderError{Code: provider.ErrInvalidAmount, Message: "order has no goods"}
	}
	if err := p.amount.ValidateAmount(req.Amount); err != nil {
		return nil, err
	}
	if p.cfg.APIKey == "" || p.cfg.SecretKey == "" {
		return nil, &provider.ProviderError{Code: provider.ErrInvalidCredentials, Message: "binance pay credentials not configured"}
	}

	body, err := json.Marshal(buildPayload(req))
	if err != nil {
		return nil, fmt.Errorf("encode order: %w", err)
	}

	ts := strconv.FormatInt(p.now().UnixMilli(), 10)
	nonce := p.nonce()
	headers := map[string]string{
		HeaderTimestamp: ts,
		HeaderNonce:     nonce,
		HeaderCertSN:    p.cfg.APIKey,
		HeaderSignature: Sign([]byte(p.cfg.SecretKey), ts, nonce, body),
	}

	resp, err := p.client.PostRaw(ctx, createOrderURI, body, headers)
	if err != nil {
		return nil, &provider.ProviderError{Code: provider.ErrProviderDown, Message: "binance pay unreachable", ProviderErr: err.Error()}
	}
	if resp.StatusCode >= http.StatusInternalServerError {
		return nil, &provider.ProviderError{
			Code:        provider.ErrProviderDown,
			Message:     fmt.Sprintf("binance pay unavailable (%d)", resp.StatusCode),
			ProviderErr: resp.String(),
		}
	}

	var result createOrderResult
	if err := resp.UnmarshalJSON(&result); err != nil {
		return nil, &provider.ProviderError{
			Code:        provider.ErrUnknownError,
			Message:     fmt.Sprintf("unexpected binance pay response (%d)", resp.StatusCode),
			ProviderErr: err.Error(),
		}
	}
	if result.Status != "SUCCESS" {
		log.Error().
			Str("merchant_trade_no", req.MerchantTradeNo).
			Str("code", result.Code).
			Str("error", result.ErrorMessage).
			Msg("binance pay rejected order")
		return nil, &provider.ProviderError{
			Code:        provider.ErrProviderRejected,
			Message:     "binance pay rejected order",
			ProviderErr: result.ErrorMessage,
		}
	}

	return &provider.HostedOrderResp{
		PrepayID:    result.Data.PrepayID,
		CheckoutURL: result.Data.CheckoutURL,
		TradeNo:     req.MerchantTradeNo,
	}, nil
}

// VerifyWebhook checks the signature headers of a notification
func (p *Provider) VerifyWebhook(h http.Header, body []byte, now time.Time) error {
	if p.cfg.SecretKey == "" {
		// an empty key would accept anything signed with an empty key
		return &provider.ProviderError{Code: provider.ErrInvalidCredentials, Message: "binance pay credentials not configured"}
	}
	ts := h.Get(HeaderTimestamp)
	nonce := h.Get(HeaderNonce)
	sig := h.Get(HeaderSignature)
	if ts == "" || nonce == "" || sig == "" {
		return &provider.ProviderError{Code: provider.ErrMissingHeaders, Message: "missing signature headers"}
	}

	if !Verify([]byte(p.cfg.SecretKey), ts, nonce, body, sig) {
		return &provider.ProviderError{Code: provider.ErrInvalidSignature, Message: "invalid signature"}
	}

	if p.cfg.MaxSkew > 0 {
		ms, err := strconv.ParseInt(ts, 10, 64)
		if err != nil {
			return &provider.ProviderError{Code: provider.ErrStaleTimestamp, Message: "malformed timestamp"}
		}
		skew := now.Sub(time.UnixMilli(ms))
		if skew < 0 {
			skew = -skew
		}
		if skew > p.cfg.MaxSkew {
			return &provider.ProviderError{Code: provider.ErrStaleTimestamp, Message: "timestamp outside allowed window"}
		}
	}
	return nil
}
