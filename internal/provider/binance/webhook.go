package binance

import (
	"encoding/json"
	"fmt"
	"strings"

	"krostyshop/internal/provider"
)

type notification struct {
	BizType   string          `json:"bizType"`
	BizStatus string          `json:"bizStatus"`
	BizID     json.RawMessage `json:"bizId"`
	BizIDStr  string          `json:"bizIdStr"`
	Data      json.RawMessage `json:"data"`

	// some senders flatten the order fields
	MerchantTradeNo string `json:"merchantTradeNo"`
	PrepayID        string `json:"prepayId"`
}

type orderData struct {
	MerchantTradeNo string `json:"merchantTradeNo"`
	PrepayID        string `json:"prepayId"`
}

// ParseWebhook converts a Binance Pay notification into provider.Notification
func (p *Provider) ParseWebhook(body []byte) (*provider.Notification, error) {
	var n notification
	if err := json.Unmarshal(body, &n); err != nil {
		return nil, fmt.Errorf("decode notification: %w", err)
	}
	if n.BizType == "" {
		return nil, fmt.Errorf("unrecognized webhook shape")
	}

	out := &provider.Notification{
		BizType:         n.BizType,
		BizStatus:       n.BizStatus,
		BizID:           n.BizIDStr,
		MerchantTradeNo: n.MerchantTradeNo,
		PrepayID:        n.PrepayID,
		RawJSON:         body,
	}
	if out.BizID == "" {
		out.BizID = strings.Trim(string(n.BizID), `"`)
	}

	if data := decodeData(n.Data); data != nil {
		if data.MerchantTradeNo != "" {
			out.MerchantTradeNo = data.MerchantTradeNo
		}
		if data.PrepayID != "" {
			out.PrepayID = data.PrepayID
		}
	}

	// bizId is the prepay id for PAY notifications
	if out.BizID == "" {
		out.BizID = out.PrepayID
	}
	if out.BizID == "" {
		out.BizID = out.MerchantTradeNo
	}
	if out.BizID == "" {
		return nil, fmt.Errorf("notification has no identifier")
	}
	return out, nil
}

// decodeData accepts data either as a JSON-encoded string or as an object
func decodeData(raw json.RawMessage) *orderData {
	if len(raw) == 0 || string(raw) == "null" {
		return nil
	}
	var d orderData
	var s string
	if err := json.Unmarshal(raw, &s); err == nil {
		if json.Unmarshal([]byte(s), &d) != nil {
			return nil
		}
		return &d
	}
	if json.Unmarshal(raw, &d) != nil {
		return nil
	}
	return &d
}
