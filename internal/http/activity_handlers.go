package httpapi

import (
	"encoding/json"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"

	"smartscribe-backend-go/internal/services"
)

type logActivityRequest struct {
	Action      string                 `json:"action"`
	Description string                 `json:"description"`
	Metadata    map[string]interface{} `json:"metadata"`
}

func (s *Server) LogActivity(w http.ResponseWriter, r *http.Request) {
	user := CurrentUser(r)
	var req logActivityRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		WriteError(w, http.StatusBadRequest, "Invalid request body")
		return
	}
	if !services.ValidActivityAction(req.Action) {
		WriteError(w, http.StatusBadRequest, "Unknown activity action")
		return
	}
	services.LogUserActivity(s.DB, user.ID, user.Email, user.Name, req.Action, req.Description,
		req.Metadata, clientIP(r), r.UserAgent())
	WriteJSON(w, http.StatusCreated, map[string]string{"message": "Activity logged"})
}

func (s *Server) ActivityLogs(w http.ResponseWriter, r *http.Request) {
	query := r.URL.Query()
	filters := services.ActivityFilters{
		UserID:    query.Get("userId"),
		UserEmail: query.Get("email"),
		Action:    query.Get("action"),
	}
	if raw := query.Get("startDate"); raw != "" {
		if parsed, err := time.Parse(time.RFC3339, raw); err == nil {
			filters.StartDate = &parsed
		}
	}
	if raw := query.Get("endDate"); raw != "" {
		if parsed, err := time.Parse(time.RFC3339, raw); err == nil {
			filters.EndDate = &parsed
		}
	}
	limit := parseInt(query.Get("limit"), 50)
	skip := parseInt(query.Get("skip"), 0)
	logs, total, err := services.GetActivityLogs(s.DB, filters, limit, skip)
	if err != nil {
		WriteServiceError(w, err)
		return
	}
	WriteJSON(w, http.StatusOK, map[string]interface{}{
		"logs":  logs,
		"total": total,
		"limit": limit,
		"skip":  skip,
	})
}

func (s *Server) ActivityStats(w http.ResponseWriter, r *http.Request) {
	days := parseInt(r.URL.Query().Get("days"), 7)
	stats, err := services.GetActivityStats(s.DB, days)
	if err != nil {
		WriteServiceError(w, err)
		return
	}
	WriteJSON(w, http.StatusOK, stats)
}

func (s *Server) TopUsers(w http.ResponseWriter, r *http.Request) {
	query := r.URL.Query()
	limit := parseInt(query.Get("limit"), 10)
	days := parseInt(query.Get("days"), 7)
	users, err := services.GetTopActiveUsers(s.DB, limit, days)
	if err != nil {
		WriteServiceError(w, err)
		return
	}
	WriteJSON(w, http.StatusOK, users)
}

func (s *Server) ActivitySummary(w http.ResponseWriter, r *http.Request) {
	days := parseInt(r.URL.Query().Get("days"), 7)
	summary, err := services.GetActivitySummary(s.DB, days)
	if err != nil {
		WriteServiceError(w, err)
		return
	}
	WriteJSON(w, http.StatusOK, summary)
}

// GetUserActivities lets a user read their own trail; admins may read
// anyone's.
func (s *Server) GetUserActivities(w http.ResponseWriter, r *http.Request) {
	user := CurrentUser(r)
	userID := chi.URLParam(r, "userId")
	if userID != user.ID && !user.IsAdmin {
		WriteError(w, http.StatusForbidden, "Access denied")
		return
	}
	limit := parseInt(r.URL.Query().Get("limit"), 50)
	logs, total, err := services.GetActivityLogs(s.DB, services.ActivityFilters{UserID: userID}, limit, 0)
	if err != nil {
		WriteServiceError(w, err)
		return
	}
	WriteJSON(w, http.StatusOK, map[string]interface{}{
		"logs":  logs,
		"total": total,
	})
}
