package handler

import (
	"errors"
	"net/http"

	"gigantefleur/storefront/internal/model"
	"gigantefleur/storefront/internal/service"
)

type LoginRequest struct {
	Email    string     `json:"email"`
	Password string     `json:"password"`
	Role     model.Role `json:"role"`
}

type RegisterRequest struct {
	Email    string     `json:"email"`
	Password string     `json:"password"`
	Name     string     `json:"name"`
	Role     model.Role `json:"role"`
}

type SessionResponse struct {
	Session *model.Session `json:"session"`
	IsAdmin bool           `json:"isAdmin"`
}

func (h *Handler) sessionResponse() SessionResponse {
	return SessionResponse{Session: h.sessions.Current(), IsAdmin: h.sessions.IsAdmin()}
}

func (h *Handler) GetSession(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, h.sessionResponse())
}

func (h *Handler) Login(w http.ResponseWriter, r *http.Request) {
	var req LoginRequest
	if err := decodeJSON(r, &req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}
	if req.Email == "" || req.Password == "" {
		writeError(w, http.StatusBadRequest, "email and password are required")
		return
	}

	if req.Role != "" && !req.Role.Valid() {
		writeError(w, http.StatusBadRequest, "invalid role")
		return
	}

	if _, err := h.sessions.Login(r.Context(), req.Email, req.Password, req.Role); err != nil {
		writeAuthError(w, http.StatusUnauthorized, err)
		return
	}
	writeJSON(w, http.StatusOK, h.sessionResponse())
}

func (h *Handler) Register(w http.ResponseWriter, r *http.Request) {
	var req RegisterRequest
	if err := decodeJSON(r, &req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}
	if req.Email == "" || req.Password == "" {
		writeError(w, http.StatusBadRequest, "email and password are required")
		return
	}

	if req.Role != "" && !req.Role.Valid() {
		writeError(w, http.StatusBadRequest, "invalid role")
		return
	}

	if _, err := h.sessions.Register(r.Context(), req.Email, req.Password, req.Name, req.Role); err != nil {
		writeAuthError(w, http.StatusBadRequest, err)
		return
	}
	writeJSON(w, http.StatusCreated, h.sessionResponse())
}

func (h *Handler) Logout(w http.ResponseWriter, r *http.Request) {
	h.sessions.Logout(r.Context())
	w.WriteHeader(http.StatusNoContent)
}

func writeAuthError(w http.ResponseWriter, code int, err error) {
	var authErr *service.AuthError
	if errors.As(err, &authErr) {
		writeError(w, code, authErr.Message)
		return
	}
	writeError(w, http.StatusInternalServerError, "internal server error")
}
