package handlers

import (
	"encoding/json"
	"errors"
	"net/http"

	catalogsvc "krostyshop/internal/services/catalog"
	ordersvc "krostyshop/internal/services/order"
	"krostyshop/internal/services/payment"
)

// multipart overhead on top of the proof itself
const formSlack = 1 << 20

// ManualCheckout takes a multipart form with an "items" JSON field and a
// "proof" image file.
func ManualCheckout(svc *ordersvc.Service, maxProofBytes int64) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		r.Body = http.MaxBytesReader(w, r.Body, maxProofBytes+formSlack)
		if err := r.ParseMultipartForm(maxProofBytes + formSlack); err != nil {
			var tooBig *http.MaxBytesError
			if errors.As(err, &tooBig) {
				writeJSON(w, http.StatusRequestEntityTooLarge, errorBody{Error: "upload too large", Field: "proof"})
				return
			}
			writeJSON(w, http.StatusBadRequest, errorBody{Error: "invalid multipart form"})
			return
		}
		defer r.MultipartForm.RemoveAll()

		var lines []catalogsvc.CartLine
		if err := json.Unmarshal([]byte(r.FormValue("items")), &lines); err != nil {
			writeJSON(w, http.StatusBadRequest, errorBody{Error: "items must be a JSON array", Field: "items"})
			return
		}

		var proof *ordersvc.Proof
		if file, header, err := r.FormFile("proof"); err == nil {
			defer file.Close()
			proof = &ordersvc.Proof{Filename: header.Filename, Body: file}
		}

		o, err := svc.ManualCheckout(r.Context(), actor(r), lines, proof)
		if err != nil {
			writeError(w, r, err)
			return
		}
		writeJSON(w, http.StatusCreated, o)
	}
}

func BinanceCheckout(svc *payment.Service) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var in struct {
			Items []catalogsvc.CartLine `json:"items"`
		}
		if !decodeJSON(w, r, &in) {
			return
		}
		resp, err := svc.CreateHostedCheckout(r.Context(), actor(r), in.Items)
		if err != nil {
			writeError(w, r, err)
			return
		}
		writeJSON(w, http.StatusCreated, resp)
	}
}
