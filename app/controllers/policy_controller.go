package controllers

import (
	"encoding/json"
	"errors"
	"net/http"

	"klik-guard/app/dto"
	"klik-guard/app/models"
	"klik-guard/app/services"
	"klik-guard/global"
)

type PolicyController struct {
	Policies *services.PolicyService
	Users    *services.UserService
}

func NewPolicyController(policies *services.PolicyService, users *services.UserService) *PolicyController {
	return &PolicyController{Policies: policies, Users: users}
}

// Handle serves /policies: GET lists, POST creates, PUT updates (?id=),
// DELETE removes (?id=).
func (c *PolicyController) Handle(w http.ResponseWriter, r *http.Request) {
	user, ok := currentUser(r, c.Users)
	if !ok {
		w.WriteHeader(http.StatusUnauthorized)
		return
	}
	switch r.Method {
	case http.MethodGet:
		c.list(w, user)
	case http.MethodPost:
		c.create(w, r, user)
	case http.MethodPut:
		c.update(w, r, user)
	case http.MethodDelete:
		c.delete(w, r, user)
	default:
		w.WriteHeader(http.StatusMethodNotAllowed)
	}
}

func (c *PolicyController) list(w http.ResponseWriter, user *models.User) {
	policies, err := c.Policies.ListByUser(user)
	if err != nil {
		global.Logger.Error().Err(err).Str("user", user.Email).Msg("failed to list policies")
		writeServiceError(w, err)
		return
	}
	out := make([]dto.PolicyResponse, 0, len(policies))
	for i := range policies {
		out = append(out, *dto.PolicyToDTO(&policies[i]))
	}
	writeJSON(w, http.StatusOK, out)
}

func (c *PolicyController) create(w http.ResponseWriter, r *http.Request, user *models.User) {
	req, ok := decodePolicyRequest(w, r)
	if !ok {
		return
	}
	pol, err := c.Policies.Create(r.Context(), user, policyInput(req))
	if err != nil {
		var rerr *services.RecomposeError
		if errors.As(err, &rerr) {
			resp := dto.PolicyToDTO(pol)
			writeJSON(w, http.StatusCreated, map[string]any{
				"policy":          resp,
				"recompose_error": rerr.Error(),
			})
			return
		}
		global.Logger.Error().Err(err).Str("user", user.Email).Msg("failed to create policy")
		writeServiceError(w, err)
		return
	}
	writeJSON(w, http.StatusCreated, dto.PolicyToDTO(pol))
}

func (c *PolicyController) update(w http.ResponseWriter, r *http.Request, user *models.User) {
	id := r.URL.Query().Get("id")
	if id == "" {
		writeJSONError(w, http.StatusBadRequest, "missing id")
		return
	}
	req, ok := decodePolicyRequest(w, r)
	if !ok {
		return
	}
	pol, err := c.Policies.Update(r.Context(), user, id, policyInput(req))
	if err != nil {
		var rerr *services.RecomposeError
		if errors.As(err, &rerr) {
			writeJSON(w, http.StatusOK, map[string]any{
				"policy":          dto.PolicyToDTO(pol),
				"recompose_error": rerr.Error(),
			})
			return
		}
		global.Logger.Error().Err(err).Str("policy", id).Msg("failed to update policy")
		writeServiceError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, dto.PolicyToDTO(pol))
}

func (c *PolicyController) delete(w http.ResponseWriter, r *http.Request, user *models.User) {
	id := r.URL.Query().Get("id")
	if id == "" {
		writeJSONError(w, http.StatusBadRequest, "missing id")
		return
	}
	if err := c.Policies.Delete(r.Context(), user, id); err != nil {
		var rerr *services.RecomposeError
		if errors.As(err, &rerr) {
			writeJSON(w, http.StatusOK, map[string]string{
				"status":          "deleted",
				"recompose_error": rerr.Error(),
			})
			return
		}
		global.Logger.Error().Err(err).Str("policy", id).Msg("failed to delete policy")
		writeServiceError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{"status": "deleted"})
}

func decodePolicyRequest(w http.ResponseWriter, r *http.Request) (dto.PolicyRequest, bool) {
	var req dto.PolicyRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeJSONError(w, http.StatusBadRequest, "invalid payload")
		return req, false
	}
	if req.Action != "block" && req.Action != "allow" {
		writeJSONError(w, http.StatusBadRequest, "action must be block or allow")
		return req, false
	}
	return req, true
}

func policyInput(req dto.PolicyRequest) services.PolicyInput {
	in := services.PolicyInput{Action: req.Action, Traffic: req.Traffic}
	if req.Schedule != nil {
		in.Schedule = *req.Schedule
	}
	return in
}
