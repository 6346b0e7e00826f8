package router

import (
	"net/http"

	"klik-guard/app/controllers"
	"klik-guard/app/middleware"
)

func NewRouter(
	authCtrl *controllers.AuthController,
	policyCtrl *controllers.PolicyController,
	deviceCtrl *controllers.DeviceController,
	logCtrl *controllers.LogController,
	notifCtrl *controllers.NotificationController,
	adminCtrl *controllers.AdminController,
	mw *middleware.Auth,
) http.Handler {
	mux := http.NewServeMux()

	// public
	mux.HandleFunc("/auth/register", authCtrl.Register)
	mux.HandleFunc("/auth/login", authCtrl.Login)
	mux.HandleFunc("/auth/verify", authCtrl.Verify)
	mux.HandleFunc("/auth/forgot-password", authCtrl.ForgotPassword)
	mux.HandleFunc("/auth/reset-password", authCtrl.ResetPassword)

	// authenticated
	mux.Handle("/policies", mw.RequireAuth(http.HandlerFunc(policyCtrl.Handle)))
	mux.Handle("/devices", mw.RequireAuth(http.HandlerFunc(deviceCtrl.List)))
	mux.Handle("/logs", mw.RequireAuth(http.HandlerFunc(logCtrl.List)))
	mux.Handle("/notifications", mw.RequireAuth(http.HandlerFunc(notifCtrl.Handle)))
	mux.Handle("/notifications/unseen", mw.RequireAuth(http.HandlerFunc(notifCtrl.Unseen)))
	mux.Handle("/notifications/unseen/count", mw.RequireAuth(http.HandlerFunc(notifCtrl.UnseenCount)))
	mux.Handle("/notifications/seen", mw.RequireAuth(http.HandlerFunc(notifCtrl.MarkSeen)))

	// admin-only
	mux.Handle("/admin/accounts", mw.RequireAdmin(http.HandlerFunc(adminCtrl.Accounts)))
	mux.Handle("/admin/accounts/logs", mw.RequireAdmin(http.HandlerFunc(adminCtrl.AccountLogs)))
	mux.Handle("/admin/users", mw.RequireAdmin(http.HandlerFunc(adminCtrl.ListUsers)))
	mux.Handle("/admin/users/lock", mw.RequireAdmin(http.HandlerFunc(adminCtrl.SwitchLocked)))

	return mux
}
