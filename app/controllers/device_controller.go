package controllers

import (
	"net/http"

	"klik-guard/app/services"
	"klik-guard/global"
)

type DeviceController struct {
	Devices *services.DeviceService
	Users   *services.UserService
}

func NewDeviceController(devices *services.DeviceService, users *services.UserService) *DeviceController {
	return &DeviceController{Devices: devices, Users: users}
}

// List GET /devices. Listing reconciles: superseded duplicate records are
// deleted from the gateway as a side effect.
func (c *DeviceController) List(w http.ResponseWriter, r *http.Request) {
	user, ok := currentUser(r, c.Users)
	if !ok {
		w.WriteHeader(http.StatusUnauthorized)
		return
	}
	devices, err := c.Devices.ReconcileDevices(r.Context(), user)
	if err != nil {
		global.Logger.Error().Err(err).Str("user", user.Email).Msg("failed to reconcile devices")
		writeServiceError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, devices)
}
