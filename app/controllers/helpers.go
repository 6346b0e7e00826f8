package controllers

import (
	"encoding/json"
	"errors"
	"net/http"

	"klik-guard/app/cloudflare"
	"klik-guard/app/middleware"
	"klik-guard/app/models"
	"klik-guard/app/services"
)

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func writeJSONError(w http.ResponseWriter, status int, msg string) {
	writeJSON(w, status, map[string]string{"error": msg})
}

// writeServiceError maps the service error taxonomy onto HTTP statuses.
func writeServiceError(w http.ResponseWriter, err error) {
	var apiErr *cloudflare.APIError
	switch {
	case errors.Is(err, services.ErrNotFound):
		writeJSONError(w, http.StatusNotFound, "not found")
	case errors.Is(err, services.ErrUnauthorized):
		writeJSONError(w, http.StatusForbidden, "forbidden")
	case errors.Is(err, services.ErrLimitReached):
		writeJSONError(w, http.StatusConflict, "policy limit reached")
	case errors.Is(err, services.ErrExhausted):
		writeJSONError(w, http.StatusServiceUnavailable, "no account slot available")
	case errors.Is(err, services.ErrEmailTaken):
		writeJSONError(w, http.StatusConflict, "email already registered")
	case errors.Is(err, services.ErrInvalidEmail), errors.Is(err, services.ErrInvalidToken):
		writeJSONError(w, http.StatusBadRequest, err.Error())
	case errors.Is(err, services.ErrLoginFailed):
		writeJSONError(w, http.StatusUnauthorized, "invalid credentials")
	case errors.As(err, &apiErr):
		writeJSONError(w, http.StatusBadGateway, apiErr.Message)
	default:
		writeJSONError(w, http.StatusInternalServerError, "internal error")
	}
}

// currentUser resolves the authenticated user from the request claims.
func currentUser(r *http.Request, users *services.UserService) (*models.User, bool) {
	claims := middleware.GetClaims(r.Context())
	if claims == nil {
		return nil, false
	}
	u, err := users.GetByID(claims.UserID)
	if err != nil {
		return nil, false
	}
	return u, true
}
