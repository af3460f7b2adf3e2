package handlers

import (
	"net/http"

	"krostyshop/internal/realtime"
	"krostyshop/internal/services/chat"
)

func ListMessages(svc *chat.Service) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		orderID, ok := uuidParam(w, r, "id")
		if !ok {
			return
		}
		msgs, err := svc.List(r.Context(), actor(r), orderID)
		if err != nil {
			writeError(w, r, err)
			return
		}
		writeJSON(w, http.StatusOK, map[string]any{"messages": msgs})
	}
}

func SendMessage(svc *chat.Service) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		orderID, ok := uuidParam(w, r, "id")
		if !ok {
			return
		}
		var in struct {
			Content string `json:"content"`
		}
		if !decodeJSON(w, r, &in) {
			return
		}
		m, err := svc.Send(r.Context(), actor(r), orderID, in.Content)
		if err != nil {
			writeError(w, r, err)
			return
		}
		writeJSON(w, http.StatusCreated, m)
	}
}

// ChatStream upgrades to a websocket carrying the order's messages and
// status changes. Access is checked before the upgrade.
func ChatStream(svc *chat.Service, hub *realtime.Hub, origins []string) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		orderID, ok := uuidParam(w, r, "id")
		if !ok {
			return
		}
		if err := svc.Authorize(r.Context(), actor(r), orderID); err != nil {
			writeError(w, r, err)
			return
		}
		hub.Stream(w, r, realtime.OrderTopic(orderID), origins)
	}
}

// AdminOrdersStream feeds order.created and order.updated to the back office
func AdminOrdersStream(hub *realtime.Hub, origins []string) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		hub.Stream(w, r, realtime.TopicAdminOrders, origins)
	}
}
