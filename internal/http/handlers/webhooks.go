package handlers

import (
	"io"
	"net/http"

	"krostyshop/internal/services/payment"
)

type webhookAck struct {
	ReturnCode    string  `json:"returnCode"`
	ReturnMessage *string `json:"returnMessage"`
}

// BinanceWebhook stores a signed notification; the event worker applies it
func BinanceWebhook(svc *payment.Service) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		body, err := io.ReadAll(http.MaxBytesReader(w, r.Body, maxJSONBody))
		if err != nil {
			writeJSON(w, http.StatusBadRequest, errorBody{Error: "unreadable body"})
			return
		}

		if _, err := svc.IngestWebhook(r.Context(), r.Header, body); err != nil {
			writeError(w, r, err)
			return
		}
		writeJSON(w, http.StatusOK, webhookAck{ReturnCode: "SUCCESS"})
	}
}
