package handlers

import (
	"net/http"

	"krostyshop/internal/domain/catalog"
	catalogsvc "krostyshop/internal/services/catalog"

	"github.com/shopspring/decimal"
)

func ListProducts(svc *catalogsvc.Service) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		filter := catalog.Filter{
			Category: r.URL.Query().Get("category"),
			Query:    r.URL.Query().Get("q"),
		}
		products, err := svc.ListProducts(r.Context(), filter)
		if err != nil {
			writeError(w, r, err)
			return
		}
		writeJSON(w, http.StatusOK, map[string]any{"products": products})
	}
}

func GetProduct(svc *catalogsvc.Service) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		id, ok := uuidParam(w, r, "id")
		if !ok {
			return
		}
		p, err := svc.GetProduct(r.Context(), id)
		if err != nil {
			writeError(w, r, err)
			return
		}
		writeJSON(w, http.StatusOK, p)
	}
}

func CreateProduct(svc *catalogsvc.Service) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var in catalogsvc.ProductInput
		if !decodeJSON(w, r, &in) {
			return
		}
		p, err := svc.CreateProduct(r.Context(), in)
		if err != nil {
			writeError(w, r, err)
			return
		}
		writeJSON(w, http.StatusCreated, p)
	}
}

func UpdateProduct(svc *catalogsvc.Service) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		id, ok := uuidParam(w, r, "id")
		if !ok {
			return
		}
		var in catalogsvc.ProductInput
		if !decodeJSON(w, r, &in) {
			return
		}
		p, err := svc.UpdateProduct(r.Context(), id, in)
		if err != nil {
			writeError(w, r, err)
			return
		}
		writeJSON(w, http.StatusOK, p)
	}
}

func DeleteProduct(svc *catalogsvc.Service) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		id, ok := uuidParam(w, r, "id")
		if !ok {
			return
		}
		if err := svc.DeleteProduct(r.Context(), id); err != nil {
			writeError(w, r, err)
			return
		}
		w.WriteHeader(http.StatusNoContent)
	}
}

func AddVariant(svc *catalogsvc.Service) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		productID, ok := uuidParam(w, r, "id")
		if !ok {
			return
		}
		var in struct {
			Name  string          `json:"name"`
			Price decimal.Decimal `json:"price"`
		}
		if !decodeJSON(w, r, &in) {
			return
		}
		v, err := svc.AddVariant(r.Context(), productID, in.Name, in.Price)
		if err != nil {
			writeError(w, r, err)
			return
		}
		writeJSON(w, http.StatusCreated, v)
	}
}

func DeleteVariant(svc *catalogsvc.Service) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		id, ok := uuidParam(w, r, "id")
		if !ok {
			return
		}
		if err := svc.DeleteVariant(r.Context(), id); err != nil {
			writeError(w, r, err)
			return
		}
		w.WriteHeader(http.StatusNoContent)
	}
}
