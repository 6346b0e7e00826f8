package controllers

import (
	"encoding/json"
	"net/http"
	"strconv"

	"klik-guard/app/dto"
	"klik-guard/app/models"
	"klik-guard/app/services"
)

type NotificationController struct {
	Notifications *services.NotificationService
	Users         *services.UserService
}

func NewNotificationController(notifications *services.NotificationService, users *services.UserService) *NotificationController {
	return &NotificationController{Notifications: notifications, Users: users}
}

// Handle serves /notifications: GET lists, DELETE removes (?id=).
func (c *NotificationController) Handle(w http.ResponseWriter, r *http.Request) {
	user, ok := currentUser(r, c.Users)
	if !ok {
		w.WriteHeader(http.StatusUnauthorized)
		return
	}
	switch r.Method {
	case http.MethodGet:
		ns, err := c.Notifications.ListByUser(user)
		if err != nil {
			writeServiceError(w, err)
			return
		}
		writeJSON(w, http.StatusOK, toDTOs(ns))
	case http.MethodDelete:
		idStr := r.URL.Query().Get("id")
		id, err := strconv.ParseUint(idStr, 10, 32)
		if err != nil {
			writeJSONError(w, http.StatusBadRequest, "invalid id")
			return
		}
		if err := c.Notifications.Delete(user, uint(id)); err != nil {
			writeServiceError(w, err)
			return
		}
		writeJSON(w, http.StatusOK, map[string]string{"status": "deleted"})
	default:
		w.WriteHeader(http.StatusMethodNotAllowed)
	}
}

// Unseen GET /notifications/unseen returns unseen notifications and marks
// them seen.
func (c *NotificationController) Unseen(w http.ResponseWriter, r *http.Request) {
	user, ok := currentUser(r, c.Users)
	if !ok {
		w.WriteHeader(http.StatusUnauthorized)
		return
	}
	ns, err := c.Notifications.Unseen(user)
	if err != nil {
		writeServiceError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, toDTOs(ns))
}

// UnseenCount GET /notifications/unseen/count
func (c *NotificationController) UnseenCount(w http.ResponseWriter, r *http.Request) {
	user, ok := currentUser(r, c.Users)
	if !ok {
		w.WriteHeader(http.StatusUnauthorized)
		return
	}
	n, err := c.Notifications.UnseenCount(user)
	if err != nil {
		writeServiceError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]int64{"count": n})
}

// MarkSeen POST /notifications/seen
func (c *NotificationController) MarkSeen(w http.ResponseWriter, r *http.Request) {
	user, ok := currentUser(r, c.Users)
	if !ok {
		w.WriteHeader(http.StatusUnauthorized)
		return
	}
	var req dto.MarkSeenRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeJSONError(w, http.StatusBadRequest, "invalid payload")
		return
	}
	if err := c.Notifications.MarkSeen(user, req.IDs); err != nil {
		writeServiceError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{"status": "seen"})
}

func toDTOs(ns []models.Notification) []dto.NotificationResponse {
	out := make([]dto.NotificationResponse, 0, len(ns))
	for i := range ns {
		out = append(out, *dto.NotificationToDTO(&ns[i]))
	}
	return out
}
