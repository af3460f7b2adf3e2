package handlers

import (
	"encoding/json"
	"errors"
	"net/http"
	"strconv"

	"krostyshop/internal/domain/catalog"
	"krostyshop/internal/domain/event"
	"krostyshop/internal/domain/order"
	"krostyshop/internal/domain/user"
	middlewarex "krostyshop/internal/http/middleware"
	"krostyshop/internal/provider"
	"krostyshop/internal/rates"
	"krostyshop/internal/services/auth"
	"krostyshop/internal/services/data"
	"krostyshop/internal/services/svcerr"

	"github.com/go-chi/chi/v5"
	chimw "github.com/go-chi/chi/v5/middleware"
	"github.com/google/uuid"
	"github.com/rs/zerolog/log"
)

const maxJSONBody = 1 << 20

type errorBody struct {
	Error string `json:"error"`
	Field string `json:"field,omitempty"`
	Code  string `json:"code,omitempty"`
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

// writeError maps service and domain errors onto HTTP statuses
func writeError(w http.ResponseWriter, r *http.Request, err error) {
	var (
		verr *svcerr.ValidationError
		perr *provider.ProviderError
	)

	switch {
	case errors.As(err, &verr):
		writeJSON(w, http.StatusBadRequest, errorBody{Error: verr.Message, Field: verr.Field})
	case errors.Is(err, svcerr.ErrUnauthorized), errors.Is(err, user.ErrInvalidLogin), errors.Is(err, auth.ErrInvalidToken):
		writeJSON(w, http.StatusUnauthorized, errorBody{Error: err.Error()})
	case errors.Is(err, svcerr.ErrForbidden):
		writeJSON(w, http.StatusForbidden, errorBody{Error: err.Error()})
	case errors.Is(err, order.ErrNotFound), errors.Is(err, catalog.ErrProductNotFound),
		errors.Is(err, catalog.ErrVariantNotFound), errors.Is(err, user.ErrNotFound),
		errors.Is(err, event.ErrNotFound):
		writeJSON(w, http.StatusNotFound, errorBody{Error: err.Error()})
	case errors.Is(err, order.ErrInvalidTransition), errors.Is(err, order.ErrStatusChanged),
		errors.Is(err, user.ErrEmailTaken):
		writeJSON(w, http.StatusConflict, errorBody{Error: err.Error()})
	case errors.Is(err, rates.ErrUnavailable):
		writeJSON(w, http.StatusServiceUnavailable, errorBody{Error: rates.ErrUnavailable.Error()})
	case errors.As(err, &perr):
		writeJSON(w, providerStatus(perr.Code), errorBody{Error: perr.Error(), Code: perr.Code})
	default:
		log.Error().
			Err(err).
			Str("request_id", chimw.GetReqID(r.Context())).
			Str("path", r.URL.Path).
			Msg("request failed")
		writeJSON(w, http.StatusInternalServerError, errorBody{Error: "internal error"})
	}
}

func providerStatus(code string) int {
	switch code {
	case provider.ErrMissingHeaders, provider.ErrInvalidAmount:
		return http.StatusBadRequest
	case provider.ErrInvalidSignature, provider.ErrStaleTimestamp:
		return http.StatusUnauthorized
	case provider.ErrInvalidCredentials:
		return http.StatusServiceUnavailable
	default:
		return http.StatusBadGateway
	}
}

func decodeJSON(w http.ResponseWriter, r *http.Request, dst any) bool {
	r.Body = http.MaxBytesReader(w, r.Body, maxJSONBody)
	if err := json.NewDecoder(r.Body).Decode(dst); err != nil {
		writeJSON(w, http.StatusBadRequest, errorBody{Error: "invalid JSON"})
		return false
	}
	return true
}

// actor returns the caller set by the auth middleware; anonymous is the zero Actor
func actor(r *http.Request) user.Actor {
	a, _ := middlewarex.Actor(r.Context())
	return a
}

func uuidParam(w http.ResponseWriter, r *http.Request, name string) (uuid.UUID, bool) {
	id, err := uuid.Parse(chi.URLParam(r, name))
	if err != nil {
		writeJSON(w, http.StatusBadRequest, errorBody{Error: "invalid " + name, Field: name})
		return uuid.Nil, false
	}
	return id, true
}

// parseListRequest parses HTTP query parameters into ListRequest
func parseListRequest(r *http.Request) data.ListRequest {
	req := data.ListRequest{}

	if v := r.URL.Query().Get("limit"); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			req.Limit = n
		}
	}

	if v := r.URL.Query().Get("offset"); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			req.Offset = n
		}
	}

	return req
}
