package event

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
)

// Event is a verified notification received from the hosted payment provider
type Event struct {
	ID               int64            `json:"id"`
	Provider         string           `json:"provider"`
	BizType          string           `json:"biz_type"`
	BizStatus        string           `json:"biz_status"`
	ExternalID       string           `json:"external_id"`
	MerchantTradeNo  string           `json:"merchant_trade_no"`
	PrepayID         string           `json:"prepay_id,omitempty"`
	OrderID          *uuid.UUID       `json:"order_id,omitempty"`
	RawJSON          []byte           `json:"-"`
	Error            string           `json:"error,omitempty"`
	ReceivedAt       time.Time        `json:"received_at"`
	ProcessedAt      *time.Time       `json:"processed_at,omitempty"`
	ProcessingStatus ProcessingStatus `json:"processing_status"`
}

const (
	BizTypePay       = "PAY"
	BizStatusSuccess = "PAY_SUCCESS"
	BizStatusClosed  = "PAY_CLOSED"
)

var ErrNotFound = errors.New("event not found")

// ProcessingStatus represents the event processing status
type ProcessingStatus string

const (
	ProcessingPending   ProcessingStatus = "pending"
	ProcessingQueued    ProcessingStatus = "queued"
	ProcessingCompleted ProcessingStatus = "completed"
	ProcessingFailed    ProcessingStatus = "failed"
)

// NewEvent creates a new event with validation
func NewEvent(provider, bizType, bizStatus, externalID string, rawJSON []byte, now time.Time) (*Event, error) {
	if strings.TrimSpace(provider) == "" {
		return nil, fmt.Errorf("provider is required")
	}
	if strings.TrimSpace(bizType) == "" {
		return nil, fmt.Errorf("biz type is required")
	}
	if strings.TrimSpace(externalID) == "" {
		return nil, fmt.Errorf("external ID is required")
	}

	return &Event{
		Provider:         provider,
		BizType:          bizType,
		BizStatus:        bizStatus,
		ExternalID:       externalID,
		RawJSON:          rawJSON,
		ReceivedAt:       now,
		ProcessingStatus: ProcessingPending,
	}, nil
}

// IsPaymentSuccess reports whether the event settles an order
func (e *Event) IsPaymentSuccess() bool {
	return e.BizType == BizTypePay && e.BizStatus == BizStatusSuccess
}

// UpdateProcessingStatus updates the event processing status
func (e *Event) UpdateProcessingStatus(status ProcessingStatus, now time.Time) error {
	if !e.CanChangeStatus(status) {
		return fmt.Errorf("cannot change status from %s to %s", e.ProcessingStatus, status)
	}

	e.ProcessingStatus = status
	if status == ProcessingCompleted || status == ProcessingFailed {
		e.ProcessedAt = &now
	}
	return nil
}

// IsProcessed checks if the event has been processed
func (e *Event) IsProcessed() bool {
	return e.ProcessingStatus == ProcessingCompleted || e.ProcessingStatus == ProcessingFailed
}

// CanChangeStatus checks if status can be changed
func (e *Event) CanChangeStatus(newStatus ProcessingStatus) bool {
	switch e.ProcessingStatus {
	case ProcessingPending:
		return newStatus == ProcessingQueued || newStatus == ProcessingCompleted || newStatus == ProcessingFailed
	case ProcessingQueued:
		return newStatus == ProcessingCompleted || newStatus == ProcessingFailed
	case ProcessingCompleted, ProcessingFailed:
		return newStatus == ProcessingQueued // replay
	}
	return false
}
