package controllers

import (
	"encoding/json"
	"errors"
	"net/http"

	"klik-guard/app/dto"
	"klik-guard/app/services"
	"klik-guard/global"
)

type AuthController struct{ Auth *services.AuthService }

func NewAuthController(auth *services.AuthService) *AuthController {
	return &AuthController{Auth: auth}
}

// Register POST /auth/register
func (c *AuthController) Register(w http.ResponseWriter, r *http.Request) {
	var req dto.RegisterRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeJSONError(w, http.StatusBadRequest, "invalid payload")
		return
	}
	if err := c.Auth.Register(r.Context(), req.Email, req.Password); err != nil {
		var rerr *services.RecomposeError
		if errors.As(err, &rerr) {
			// The registration and its default rule held; only the
			// aggregate refresh needs a retry.
			writeJSON(w, http.StatusCreated, map[string]string{
				"status":          "registered",
				"recompose_error": rerr.Error(),
			})
			return
		}
		global.Logger.Error().Err(err).Str("email", req.Email).Msg("registration failed")
		writeServiceError(w, err)
		return
	}
	writeJSON(w, http.StatusCreated, map[string]string{"status": "registered"})
}

// Login POST /auth/login
func (c *AuthController) Login(w http.ResponseWriter, r *http.Request) {
	var req dto.LoginRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeJSONError(w, http.StatusBadRequest, "invalid payload")
		return
	}
	token, err := c.Auth.Login(r.Context(), req.Email, req.Password)
	if err != nil {
		writeServiceError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, dto.LoginResponse{Token: token})
}

// Verify GET /auth/verify?token=...
func (c *AuthController) Verify(w http.ResponseWriter, r *http.Request) {
	token := r.URL.Query().Get("token")
	if token == "" {
		writeJSONError(w, http.StatusBadRequest, "missing token")
		return
	}
	if err := c.Auth.Verify(r.Context(), token); err != nil {
		writeServiceError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{"status": "verified"})
}

// ForgotPassword POST /auth/forgot-password
func (c *AuthController) ForgotPassword(w http.ResponseWriter, r *http.Request) {
	var req dto.ForgotPasswordRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeJSONError(w, http.StatusBadRequest, "invalid payload")
		return
	}
	if err := c.Auth.ForgotPassword(r.Context(), req.Email); err != nil {
		writeServiceError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

// ResetPassword POST /auth/reset-password
func (c *AuthController) ResetPassword(w http.ResponseWriter, r *http.Request) {
	var req dto.ResetPasswordRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeJSONError(w, http.StatusBadRequest, "invalid payload")
		return
	}
	if err := c.Auth.ResetPassword(r.Context(), req.Token, req.Password); err != nil {
		writeServiceError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{"status": "password reset"})
}
