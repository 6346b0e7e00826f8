package controllers

import (
	"encoding/json"
	"errors"
	"net/http"
	"strconv"

	"klik-guard/app/dto"
	"klik-guard/app/models"
	"klik-guard/app/services"
	"klik-guard/global"
)

// AdminController exposes the pool-management surface. Every handler sits
// behind the admin middleware.
type AdminController struct {
	Pool  *services.AccountPool
	Users *services.UserService
	Logs  *services.LogService
}

func NewAdminController(pool *services.AccountPool, users *services.UserService, logs *services.LogService) *AdminController {
	return &AdminController{Pool: pool, Users: users, Logs: logs}
}

// Accounts serves /admin/accounts: GET lists the pool, POST registers a new
// gateway account and bootstraps its enrollment gate.
func (c *AdminController) Accounts(w http.ResponseWriter, r *http.Request) {
	switch r.Method {
	case http.MethodGet:
		accounts, err := c.Pool.ListAccounts()
		if err != nil {
			writeServiceError(w, err)
			return
		}
		out := make([]dto.AccountResponse, 0, len(accounts))
		for i := range accounts {
			out = append(out, *dto.AccountToDTO(&accounts[i]))
		}
		writeJSON(w, http.StatusOK, out)
	case http.MethodPost:
		var req dto.AccountRequest
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			writeJSONError(w, http.StatusBadRequest, "invalid payload")
			return
		}
		if req.AccountID == "" || req.AuthorizationToken == "" {
			writeJSONError(w, http.StatusBadRequest, "account_id and authorization_token are required")
			return
		}
		acc, err := c.Pool.RegisterAccount(r.Context(), &models.Account{
			AccountID:          req.AccountID,
			Email:              req.Email,
			AuthorizationToken: req.AuthorizationToken,
		})
		if err != nil {
			global.Logger.Error().Err(err).Str("account", req.AccountID).Msg("failed to register account")
			writeServiceError(w, err)
			return
		}
		writeJSON(w, http.StatusCreated, dto.AccountToDTO(acc))
	default:
		w.WriteHeader(http.StatusMethodNotAllowed)
	}
}

// AccountLogs GET /admin/accounts/logs?id=...&from=...&to=... returns
// unscoped resolver logs for one pool account.
func (c *AdminController) AccountLogs(w http.ResponseWriter, r *http.Request) {
	id := r.URL.Query().Get("id")
	if id == "" {
		writeJSONError(w, http.StatusBadRequest, "missing id")
		return
	}
	entries, err := c.Logs.LogsForAccount(r.Context(), id, logQueryFromRequest(r))
	if err != nil {
		if !errors.Is(err, services.ErrNotFound) {
			global.Logger.Error().Err(err).Str("account", id).Msg("failed to fetch account logs")
		}
		writeServiceError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, entries)
}

// ListUsers GET /admin/users
func (c *AdminController) ListUsers(w http.ResponseWriter, r *http.Request) {
	users, err := c.Users.ListAll()
	if err != nil {
		writeServiceError(w, err)
		return
	}
	out := make([]dto.UserResponse, 0, len(users))
	for i := range users {
		out = append(out, *dto.UserToDTO(&users[i]))
	}
	writeJSON(w, http.StatusOK, out)
}

// SwitchLocked POST /admin/users/lock?id=N toggles the user's lock flag.
func (c *AdminController) SwitchLocked(w http.ResponseWriter, r *http.Request) {
	idStr := r.URL.Query().Get("id")
	id, err := strconv.ParseUint(idStr, 10, 32)
	if err != nil {
		writeJSONError(w, http.StatusBadRequest, "invalid id")
		return
	}
	u, err := c.Users.SwitchLocked(uint(id))
	if err != nil {
		writeServiceError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, dto.UserToDTO(u))
}
