package data

import (
	"krostyshop/internal/domain/event"
	"krostyshop/internal/domain/order"
)

// ListRequest represents a paginated list request
type ListRequest struct {
	Limit  int `json:"limit,omitempty"`
	Offset int `json:"offset,omitempty"`
}

// Validate validates and normalizes list request parameters
func (req *ListRequest) Validate() {
	// Set defaults
	if req.Limit <= 0 {
		req.Limit = 50
	}
	if req.Offset < 0 {
		req.Offset = 0
	}

	// Apply limits
	if req.Limit > 200 {
		req.Limit = 200
	}
}

// OrderListResponse represents paginated order data
type OrderListResponse struct {
	Orders []*order.Order `json:"orders"`
	Limit  int            `json:"limit"`
	Offset int            `json:"offset"`
}

// EventListResponse represents paginated event data
type EventListResponse struct {
	Events []*event.Event `json:"events"`
	Limit  int            `json:"limit"`
	Offset int            `json:"offset"`
}
