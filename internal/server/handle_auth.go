package server

import (
	"errors"
	"log/slog"
	"net/http"

	"github.com/playperu/starhunt/internal/hunt"
	"github.com/playperu/starhunt/internal/starhunt"
	"github.com/playperu/starhunt/internal/store"
)

// RegisterRequest is the request body for POST /api/register.
type RegisterRequest struct {
	Name       string `json:"name"`
	Pin        string `json:"pin"`
	ConfirmPin string `json:"confirmPin"`
}

// RegisterResponse is the response for POST /api/register.
type RegisterResponse struct {
	Profile starhunt.TeamProfile `json:"profile"`
	Message string               `json:"message"`
}

// LoginRequest is the request body for POST /api/login.
type LoginRequest struct {
	Name string `json:"name"`
	Pin  string `json:"pin"`
}

// ForgotPasswordRequest is the request body for POST /api/forgot-password.
// Without Confirm the call only checks that the warning can be issued.
type ForgotPasswordRequest struct {
	Name    string `json:"name"`
	Confirm bool   `json:"confirm"`
}

// ForgotPasswordResponse is the response for POST /api/forgot-password.
type ForgotPasswordResponse struct {
	Status  string `json:"status"`
	Message string `json:"message"`
}

const forgotPasswordWarning = "The admin won't be responsible if you cannot log in later."

func handleRegister(svc *hunt.Service, logger *slog.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var req RegisterRequest
		if err := readJSON(r, &req); err != nil {
			writeError(w, http.StatusBadRequest, "invalid request body")
			return
		}

		p, err := svc.Register(r.Context(), req.Name, req.Pin, req.ConfirmPin)
		if err != nil {
			writeServiceError(w, logger, err)
			return
		}

		writeJSON(w, http.StatusCreated, RegisterResponse{
			Profile: p,
			Message: "Profile established. Log in to proceed.",
		})
	}
}

func handleLogin(svc *hunt.Service, logger *slog.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var req LoginRequest
		if err := readJSON(r, &req); err != nil {
			writeError(w, http.StatusBadRequest, "invalid request body")
			return
		}
		if req.Name == "" || req.Pin == "" {
			writeError(w, http.StatusBadRequest, "name and pin are required")
			return
		}

		login, err := svc.Login(r.Context(), req.Name, req.Pin)
		if err != nil {
			writeServiceError(w, logger, err)
			return
		}
		writeJSON(w, http.StatusOK, login)
	}
}

func handleLogout(svc *hunt.Service) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if token := bearerToken(r); token != "" {
			svc.Logout(r.Context(), token)
		}
		writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
	}
}

func handleForgotPassword(svc *hunt.Service, logger *slog.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var req ForgotPasswordRequest
		if err := readJSON(r, &req); err != nil {
			writeError(w, http.StatusBadRequest, "invalid request body")
			return
		}

		err := svc.ForgotPassword(r.Context(), req.Name, req.Confirm)
		if errors.Is(err, store.ErrNotFound) {
			writeError(w, http.StatusNotFound, "team not found")
			return
		}
		if err != nil {
			writeServiceError(w, logger, err)
			return
		}

		status := "confirm"
		if req.Confirm {
			status = "issued"
		}
		writeJSON(w, http.StatusOK, ForgotPasswordResponse{Status: status, Message: forgotPasswordWarning})
	}
}
