package controllers

import (
	"net/http"
	"strconv"

	"klik-guard/app/cloudflare"
	"klik-guard/app/services"
	"klik-guard/global"
)

type LogController struct {
	Logs  *services.LogService
	Users *services.UserService
}

func NewLogController(logs *services.LogService, users *services.UserService) *LogController {
	return &LogController{Logs: logs, Users: users}
}

// List GET /logs?from=...&to=...&limit=N returns resolver-query logs scoped
// to the caller's policies.
func (c *LogController) List(w http.ResponseWriter, r *http.Request) {
	user, ok := currentUser(r, c.Users)
	if !ok {
		w.WriteHeader(http.StatusUnauthorized)
		return
	}
	q := logQueryFromRequest(r)
	entries, err := c.Logs.LogsForUser(r.Context(), user, q)
	if err != nil {
		global.Logger.Error().Err(err).Str("user", user.Email).Msg("failed to fetch logs")
		writeServiceError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, entries)
}

func logQueryFromRequest(r *http.Request) cloudflare.LogQuery {
	q := cloudflare.LogQuery{
		Start:   r.URL.Query().Get("from"),
		End:     r.URL.Query().Get("to"),
		OrderBy: []string{"datetime_DESC"},
		Limit:   global.Config.Sweep.PageSize,
	}
	if v := r.URL.Query().Get("limit"); v != "" {
		if n, err := strconv.Atoi(v); err == nil && n > 0 {
			q.Limit = n
		}
	}
	return q
}
