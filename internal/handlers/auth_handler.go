package handlers

import (
	"database/sql"
	"encoding/json"
	"errors"
	"net/http"
	"strconv"

	"coinmarket/internal/middleware"
	"coinmarket/internal/models"
	"coinmarket/internal/services"

	"github.com/rs/zerolog"
)

type AuthHandler struct {
	userService *services.UserService
	logger      zerolog.Logger
}

func NewAuthHandler(db *sql.DB, logger zerolog.Logger) *AuthHandler {
	return &AuthHandler{
		userService: services.NewUserService(db, logger),
		logger:      logger,
	}
}

func (h *AuthHandler) Register(w http.ResponseWriter, r *http.Request) {
	var req models.RegisterRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		h.respondWithError(w, http.StatusBadRequest, "invalid_request", "Invalid request body")
		return
	}

	user, err := h.userService.Register(&req)
	if err != nil {
		if errors.Is(err, services.ErrUsernameTaken) || errors.Is(err, services.ErrEmailTaken) ||
			errors.Is(err, services.ErrMissingFields) {
			h.respondWithError(w, http.StatusBadRequest, "registration_failed", err.Error())
			return
		}
		h.logger.Error().Err(err).Msg("Registration failed")
		h.respondWithError(w, http.StatusInternalServerError, "registration_failed", "Failed to register user")
		return
	}

	h.setSessionCookie(w, user.ID)
	h.respondWithJSON(w, http.StatusOK, models.AuthResponse{
		Message: "Registration successful",
		User:    user,
	})
}

func (h *AuthHandler) Login(w http.ResponseWriter, r *http.Request) {
	var req models.LoginRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		h.respondWithError(w, http.StatusBadRequest, "invalid_request", "Invalid request body")
		return
	}

	user, err := h.userService.Authenticate(&req)
	if err != nil {
		if errors.Is(err, services.ErrInvalidCredentials) {
			h.respondWithError(w, http.StatusUnauthorized, "authentication_failed", "Invalid credentials")
			return
		}
		h.logger.Error().Err(err).Msg("Login failed")
		h.respondWithError(w, http.StatusInternalServerError, "authentication_failed", "Login failed")
		return
	}

	h.setSessionCookie(w, user.ID)
	h.respondWithJSON(w, http.StatusOK, models.AuthResponse{
		Message: "Login successful",
		User:    user,
	})
}

func (h *AuthHandler) Logout(w http.ResponseWriter, r *http.Request) {
	http.SetCookie(w, &http.Cookie{
		Name:     middleware.SessionCookieName,
		Value:    "",
		Path:     "/",
		MaxAge:   -1,
		HttpOnly: true,
	})

	h.respondWithJSON(w, http.StatusOK, map[string]string{"message": "Logged out"})
}

// Me reports the session user, or a null user when the session does not
// resolve. It never fails: a broken cookie means an anonymous visitor.
func (h *AuthHandler) Me(w http.ResponseWriter, r *http.Request) {
	user, _ := middleware.CurrentUser(r)
	h.respondWithJSON(w, http.StatusOK, models.MeResponse{User: user})
}

func (h *AuthHandler) setSessionCookie(w http.ResponseWriter, userID int64) {
	http.SetCookie(w, &http.Cookie{
		Name:     middleware.SessionCookieName,
		Value:    strconv.FormatInt(userID, 10),
		Path:     "/",
		HttpOnly: true,
	})
}

func (h *AuthHandler) respondWithError(w http.ResponseWriter, code int, errorCode, message string) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	json.NewEncoder(w).Encode(map[string]string{
		"error":   errorCode,
		"message": message,
	})
}

func (h *AuthHandler) respondWithJSON(w http.ResponseWriter, code int, payload interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	json.NewEncoder(w).Encode(payload)
}
