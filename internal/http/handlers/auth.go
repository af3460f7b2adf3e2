package handlers

import (
	"net/http"

	"krostyshop/internal/services/auth"
)

type credentialsReq struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}

func SignUp(svc *auth.Service) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var in credentialsReq
		if !decodeJSON(w, r, &in) {
			return
		}
		session, err := svc.SignUp(r.Context(), in.Email, in.Password)
		if err != nil {
			writeError(w, r, err)
			return
		}
		writeJSON(w, http.StatusCreated, session)
	}
}

func Login(svc *auth.Service) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var in credentialsReq
		if !decodeJSON(w, r, &in) {
			return
		}
		session, err := svc.SignIn(r.Context(), in.Email, in.Password)
		if err != nil {
			writeError(w, r, err)
			return
		}
		writeJSON(w, http.StatusOK, session)
	}
}

// RequestPasswordReset always answers 202 for well-formed input
func RequestPasswordReset(svc *auth.Service) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var in struct {
			Email      string `json:"email"`
			RedirectTo string `json:"redirectTo,omitempty"`
		}
		if !decodeJSON(w, r, &in) {
			return
		}
		if err := svc.RequestPasswordReset(r.Context(), in.Email, in.RedirectTo); err != nil {
			writeError(w, r, err)
			return
		}
		writeJSON(w, http.StatusAccepted, map[string]string{"status": "sent"})
	}
}

// UpdatePassword accepts either a reset token in the body or a signed-in
// session.
func UpdatePassword(svc *auth.Service) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var in struct {
			Token    string `json:"token,omitempty"`
			Password string `json:"password"`
		}
		if !decodeJSON(w, r, &in) {
			return
		}

		var err error
		if in.Token != "" {
			err = svc.ResetPassword(r.Context(), in.Token, in.Password)
		} else {
			err = svc.ChangePassword(r.Context(), actor(r), in.Password)
		}
		if err != nil {
			writeError(w, r, err)
			return
		}
		writeJSON(w, http.StatusOK, map[string]string{"status": "updated"})
	}
}

// Bootstrap promotes an account to admin; guarded by the operator token
func Bootstrap(svc *auth.Service) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var in struct {
			Email string `json:"email"`
		}
		if !decodeJSON(w, r, &in) {
			return
		}
		u, err := svc.PromoteAdmin(r.Context(), in.Email)
		if err != nil {
			writeError(w, r, err)
			return
		}
		writeJSON(w, http.StatusOK, map[string]any{"userId": u.ID, "email": u.Email, "role": u.Role})
	}
}
