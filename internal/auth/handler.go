package auth

import (
	"encoding/json"
	"errors"
	"io"
	"log/slog"
	"net/http"
	"strings"
	"time"
)

type credentials struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}

type tokenResponse struct {
	Token     string    `json:"token"`
	TokenType string    `json:"token_type"`
	ExpiresAt time.Time `json:"expires_at"`
}

// Handler serves POST /api/v1/auth/login.
type Handler struct {
	svc Service
	log *slog.Logger
}

func NewHandler(svc Service, log *slog.Logger) *Handler {
	if log == nil {
		log = slog.Default()
	}
	return &Handler{svc: svc, log: log}
}

func (h *Handler) Login(w http.ResponseWriter, r *http.Request) {
	var body credentials
	dec := json.NewDecoder(io.LimitReader(r.Body, 4<<10))
	dec.DisallowUnknownFields()
	if err := dec.Decode(&body); err != nil {
		jsonError(w, "request body must be {\"email\",\"password\"}", http.StatusBadRequest)
		return
	}
	if strings.TrimSpace(body.Email) == "" || body.Password == "" {
		jsonError(w, "email and password are required", http.StatusBadRequest)
		return
	}

	issued := time.Now().UTC()
	token, err := h.svc.Login(r.Context(), body.Email, body.Password)
	switch {
	case errors.Is(err, ErrInvalidCredentials):
		h.log.Warn("operator login rejected", "email", strings.ToLower(strings.TrimSpace(body.Email)))
		jsonError(w, "invalid credentials", http.StatusUnauthorized)
		return
	case err != nil:
		h.log.Error("operator login failed", "error", err)
		jsonError(w, "login failed", http.StatusInternalServerError)
		return
	}

	w.Header().Set("Content-Type", "application/json")
	w.Header().Set("Cache-Control", "no-store")
	_ = json.NewEncoder(w).Encode(tokenResponse{
		Token:     token,
		TokenType: "Bearer",
		ExpiresAt: issued.Add(tokenLifetime),
	})
}

func jsonError(w http.ResponseWriter, msg string, code int) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	_ = json.NewEncoder(w).Encode(map[string]string{"error": msg})
}
