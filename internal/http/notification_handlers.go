package httpapi

import (
	"encoding/json"
	"net/http"
	"strings"
	"time"

	"github.com/go-chi/chi/v5"

	"smartscribe-backend-go/internal/models"
	"smartscribe-backend-go/internal/services"
)

func (s *Server) ListMyNotifications(w http.ResponseWriter, r *http.Request) {
	user := CurrentUser(r)
	items, err := services.ListUserNotifications(s.DB, user.ID)
	if err != nil {
		WriteServiceError(w, err)
		return
	}
	WriteJSON(w, http.StatusOK, items)
}

func (s *Server) MarkNotificationRead(w http.ResponseWriter, r *http.Request) {
	user := CurrentUser(r)
	if err := services.MarkNotificationRead(s.DB, user.ID, chi.URLParam(r, "notificationId")); err != nil {
		WriteServiceError(w, err)
		return
	}
	services.LogUserActivity(s.DB, user.ID, user.Email, user.Name, "Notification Viewed", "", nil, clientIP(r), r.UserAgent())
	WriteJSON(w, http.StatusOK, map[string]string{"message": "Notification marked as read"})
}

func (s *Server) DeleteMyNotification(w http.ResponseWriter, r *http.Request) {
	user := CurrentUser(r)
	if err := services.DeleteUserNotification(s.DB, user.ID, chi.URLParam(r, "notificationId")); err != nil {
		WriteServiceError(w, err)
		return
	}
	WriteJSON(w, http.StatusOK, map[string]string{"message": "Notification removed"})
}

func (s *Server) AdminListNotifications(w http.ResponseWriter, r *http.Request) {
	limit := parseInt(r.URL.Query().Get("limit"), 50)
	notifications := []models.Notification{}
	err := s.DB.Select(&notifications, `
SELECT id, title, message, type, audience, recipient_count, scheduled_at, sent_at, status, created_by, created_at
FROM notifications
ORDER BY created_at DESC
LIMIT $1
`, limit)
	if err != nil {
		WriteServiceError(w, err)
		return
	}
	out := make([]map[string]interface{}, 0, len(notifications))
	for _, n := range notifications {
		out = append(out, map[string]interface{}{
			"id":             n.ID,
			"title":          n.Title,
			"message":        n.Message,
			"type":           n.Type,
			"audience":       services.AudienceLabel(n.Audience, nil),
			"recipientCount": n.RecipientCount,
			"scheduledAt":    n.ScheduledAt,
			"sentAt":         n.SentAt,
			"status":         n.Status,
			"createdAt":      n.CreatedAt,
		})
	}
	WriteJSON(w, http.StatusOK, out)
}

// RecipientCount previews how many users an audience selection would
// reach before the notification is committed.
func (s *Server) RecipientCount(w http.ResponseWriter, r *http.Request) {
	audience := services.NormalizeAudience(r.URL.Query().Get("audience"))
	var targets []string
	if raw := strings.TrimSpace(r.URL.Query().Get("userIds")); raw != "" {
		targets = strings.Split(raw, ",")
	}
	recipients, err := services.ResolveAudience(s.DB, audience, targets)
	if err != nil {
		WriteServiceError(w, err)
		return
	}
	WriteJSON(w, http.StatusOK, map[string]interface{}{
		"audience": audience,
		"count":    len(recipients),
	})
}

type createNotificationRequest struct {
	Title         string     `json:"title"`
	Message       string     `json:"message"`
	Type          string     `json:"type"`
	Audience      string     `json:"audience"`
	TargetUserIDs []string   `json:"targetUserIds"`
	ScheduledAt   *time.Time `json:"scheduledAt"`
}

func (s *Server) CreateNotification(w http.ResponseWriter, r *http.Request) {
	admin := CurrentUser(r)
	var req createNotificationRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		WriteError(w, http.StatusBadRequest, "Invalid request body")
		return
	}
	if strings.TrimSpace(req.Title) == "" || strings.TrimSpace(req.Message) == "" {
		WriteError(w, http.StatusBadRequest, "Title and message are required")
		return
	}
	notification, err := services.CreateNotification(s.DB, s.Hub, services.CreateNotificationInput{
		Title:         strings.TrimSpace(req.Title),
		Message:       strings.TrimSpace(req.Message),
		Type:          req.Type,
		Audience:      req.Audience,
		TargetUserIDs: req.TargetUserIDs,
		ScheduledAt:   req.ScheduledAt,
		CreatedBy:     admin.ID,
	})
	if err != nil {
		WriteServiceError(w, err)
		return
	}
	WriteJSON(w, http.StatusCreated, map[string]interface{}{
		"id":             notification.ID,
		"status":         notification.Status,
		"recipientCount": notification.RecipientCount,
		"scheduledAt":    notification.ScheduledAt,
		"sentAt":         notification.SentAt,
	})
}
