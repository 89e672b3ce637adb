package handler

import (
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"

	"github.com/imgpress/imgpress/internal/service"
)

// AuthHandler handles registration and login endpoints.
type AuthHandler struct {
	svc    *service.AuthService
	logger *slog.Logger
}

// NewAuthHandler creates a new AuthHandler.
func NewAuthHandler(svc *service.AuthService, logger *slog.Logger) *AuthHandler {
	return &AuthHandler{
		svc:    svc,
		logger: logger,
	}
}

// credentialsRequest is the body of both register and login calls.
type credentialsRequest struct {
	Username string `json:"username"`
	Password string `json:"password"`
}

// loginResponse carries the session token under the legacy "jwt" field name.
// On failed credentials the field is omitted entirely; the shipped client
// treats a 200 without "jwt" as a failed login.
type loginResponse struct {
	Message string `json:"message"`
	Token   string `json:"jwt,omitempty"`
}

// Register handles POST /register.
func (h *AuthHandler) Register(w http.ResponseWriter, r *http.Request) {
	var req credentialsRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "INVALID_JSON", "Invalid request body")
		return
	}

	if err := h.svc.Register(r.Context(), req.Username, req.Password); err != nil {
		switch {
		case errors.Is(err, service.ErrInvalidInput):
			writeError(w, http.StatusBadRequest, "INVALID_INPUT", "Username or password invalid")
		case errors.Is(err, service.ErrUsernameTaken):
			writeError(w, http.StatusConflict, "USERNAME_TAKEN", "Username already exists")
		default:
			h.logger.Error("register failed", "error", err)
			writeError(w, http.StatusInternalServerError, "INTERNAL_ERROR", "An internal error occurred")
		}
		return
	}

	h.logger.Info("user_registered", "username", req.Username)

	writeJSON(w, http.StatusOK, map[string]string{"message": "registration successful!"})
}

// Login handles POST /login.
func (h *AuthHandler) Login(w http.ResponseWriter, r *http.Request) {
	var req credentialsRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "INVALID_JSON", "Invalid request body")
		return
	}

	token, err := h.svc.Login(r.Context(), req.Username, req.Password)
	if err != nil {
		if errors.Is(err, service.ErrInvalidCredentials) {
			// Legacy contract: bad credentials are a 200 with no token, not a
			// 401. The client keys off the missing "jwt" field.
			writeJSON(w, http.StatusOK, loginResponse{Message: "incorrect username or password!"})
			return
		}
		h.logger.Error("login failed", "error", err)
		writeError(w, http.StatusInternalServerError, "INTERNAL_ERROR", "An internal error occurred")
		return
	}

	h.logger.Info("user_logged_in", "username", req.Username)

	writeJSON(w, http.StatusOK, loginResponse{Message: "login successful!", Token: token})
}
