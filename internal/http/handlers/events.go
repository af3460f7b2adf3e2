package handlers

import (
	"net/http"

	"krostyshop/internal/services/data"
	"krostyshop/internal/services/event"
)

// ListEvents handles event listing requests using the data service
func ListEvents(dataService *data.Service) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		resp, err := dataService.ListEvents(r.Context(), actor(r), parseListRequest(r))
		if err != nil {
			writeError(w, r, err)
			return
		}
		writeJSON(w, http.StatusOK, resp)
	}
}

// ReplayEvents requeues events by id or by received_at window (RFC3339)
func ReplayEvents(replay *event.ReplayService) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var req event.ReplayRequest
		if !decodeJSON(w, r, &req) {
			return
		}
		resp, err := replay.ReplayEvents(r.Context(), actor(r), req)
		if err != nil {
			writeError(w, r, err)
			return
		}
		writeJSON(w, http.StatusOK, resp)
	}
}
