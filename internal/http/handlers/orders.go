package handlers

import (
	"net/http"

	"krostyshop/internal/domain/order"
	"krostyshop/internal/services/data"
	ordersvc "krostyshop/internal/services/order"
)

func ListMyOrders(svc *ordersvc.Service) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		resp, err := svc.ListMine(r.Context(), actor(r), parseListRequest(r))
		if err != nil {
			writeError(w, r, err)
			return
		}
		writeJSON(w, http.StatusOK, resp)
	}
}

func GetOrder(svc *ordersvc.Service) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		id, ok := uuidParam(w, r, "id")
		if !ok {
			return
		}
		o, err := svc.Get(r.Context(), actor(r), id)
		if err != nil {
			writeError(w, r, err)
			return
		}
		writeJSON(w, http.StatusOK, o)
	}
}

// ListOrders is the admin queue, optionally filtered by ?status=
func ListOrders(dataService *data.Service) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var status order.Status
		if v := r.URL.Query().Get("status"); v != "" && v != "all" {
			st, err := order.ParseStatus(v)
			if err != nil {
				writeJSON(w, http.StatusBadRequest, errorBody{Error: err.Error(), Field: "status"})
				return
			}
			status = st
		}

		resp, err := dataService.ListOrders(r.Context(), actor(r), status, parseListRequest(r))
		if err != nil {
			writeError(w, r, err)
			return
		}
		writeJSON(w, http.StatusOK, resp)
	}
}

func ReviewOrder(svc *ordersvc.Service) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		id, ok := uuidParam(w, r, "id")
		if !ok {
			return
		}
		var in struct {
			Status string `json:"status"`
		}
		if !decodeJSON(w, r, &in) {
			return
		}
		next, err := order.ParseStatus(in.Status)
		if err != nil {
			writeJSON(w, http.StatusBadRequest, errorBody{Error: err.Error(), Field: "status"})
			return
		}

		o, err := svc.Review(r.Context(), actor(r), id, next)
		if err != nil {
			writeError(w, r, err)
			return
		}
		writeJSON(w, http.StatusOK, o)
	}
}
