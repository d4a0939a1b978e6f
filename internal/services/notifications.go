package services

import (
	"context"
	"log"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"
	"golang.org/x/sync/errgroup"

	"smartscribe-backend-go/internal/models"
)

const (
	AudienceAll      = "all"
	AudienceStudents = "students"
	AudienceTeachers = "teachers"
	AudienceUser     = "user"
)

// NormalizeNotificationType maps the incoming type to the allowed set,
// aliasing "error" to "alert". Empty input defaults to "info"; unknown
// values return "".
func NormalizeNotificationType(raw string) string {
	if strings.TrimSpace(raw) == "" {
		return "info"
	}
	normalized := strings.ToLower(strings.TrimSpace(raw))
	if normalized == "error" {
		return "alert"
	}
	switch normalized {
	case "info", "success", "warning", "alert":
		return normalized
	}
	return ""
}

// NormalizeAudience validates the audience selector. Empty input
// defaults to broadcast; unknown values return "".
func NormalizeAudience(raw string) string {
	if strings.TrimSpace(raw) == "" {
		return AudienceAll
	}
	normalized := strings.ToLower(strings.TrimSpace(raw))
	switch normalized {
	case AudienceAll, AudienceStudents, AudienceTeachers, AudienceUser:
		return normalized
	}
	return ""
}

func AudienceLabel(audience string, targetEmails []string) string {
	switch audience {
	case AudienceStudents:
		return "Students Only"
	case AudienceTeachers:
		return "Teachers Only"
	case AudienceUser:
		if len(targetEmails) == 1 {
			return "User: " + targetEmails[0]
		}
		return "Specific Users"
	default:
		return "All Users"
	}
}

// ResolveAudience returns the concrete non-admin recipient ids for a
// selector. For explicit lists, invalid or admin ids are silently
// dropped; an entirely invalid list is an error.
func ResolveAudience(db *sqlx.DB, audience string, targetUserIDs []string) ([]string, error) {
	switch audience {
	case AudienceStudents, AudienceTeachers:
		role := strings.TrimSuffix(audience, "s")
		ids := []string{}
		err := db.Select(&ids, `
SELECT id FROM users
WHERE is_admin = FALSE AND status = 'ACTIVE' AND role = $1
`, role)
		return ids, err
	case AudienceUser:
		cleaned := make([]string, 0, len(targetUserIDs))
		for _, id := range targetUserIDs {
			if strings.TrimSpace(id) != "" {
				cleaned = append(cleaned, strings.TrimSpace(id))
			}
		}
		if len(cleaned) == 0 {
			return nil, ErrBadRequest("targetUserIds is required")
		}
		ids := []string{}
		query, args, err := sqlx.In(`
SELECT id FROM users
WHERE is_admin = FALSE AND status = 'ACTIVE' AND id IN (?)
`, cleaned)
		if err != nil {
			return nil, err
		}
		if err := db.Select(&ids, db.Rebind(query), args...); err != nil {
			return nil, err
		}
		if len(ids) == 0 {
			return nil, ErrNotFound("User not found")
		}
		return ids, nil
	case AudienceAll:
		ids := []string{}
		err := db.Select(&ids, `SELECT id FROM users WHERE is_admin = FALSE AND status = 'ACTIVE'`)
		return ids, err
	default:
		return nil, ErrBadRequest("Audience must be all, students, teachers, or user")
	}
}

type CreateNotificationInput struct {
	Title         string
	Message       string
	Type          string
	Audience      string
	TargetUserIDs []string
	ScheduledAt   *time.Time
	CreatedBy     string
}

// CreateNotification persists the notification with a snapshot
// recipient count and, unless scheduled for the future, runs delivery
// immediately.
func CreateNotification(db *sqlx.DB, hub *EventHub, input CreateNotificationInput) (*models.Notification, error) {
	kind := NormalizeNotificationType(input.Type)
	if kind == "" {
		return nil, ErrBadRequest("Type must be info, success, warning, or alert")
	}
	audience := NormalizeAudience(input.Audience)
	if audience == "" {
		return nil, ErrBadRequest("Audience must be all, students, teachers, or user")
	}
	recipients, err := ResolveAudience(db, audience, input.TargetUserIDs)
	if err != nil {
		return nil, err
	}

	now := time.Now().UTC()
	scheduled := input.ScheduledAt != nil && input.ScheduledAt.After(now)
	notification := models.Notification{
		ID:             uuid.NewString(),
		Title:          strings.TrimSpace(input.Title),
		Message:        strings.TrimSpace(input.Message),
		Type:           kind,
		Audience:       audience,
		RecipientCount: len(recipients),
		CreatedBy:      input.CreatedBy,
		CreatedAt:      now,
	}
	if scheduled {
		notification.Status = "scheduled"
		notification.ScheduledAt = input.ScheduledAt
	} else {
		notification.Status = "sent"
		notification.SentAt = &now
	}

	_, err = db.Exec(`
INSERT INTO notifications (id, title, message, type, audience, recipient_count, scheduled_at, sent_at, status, created_by, created_at)
VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9,$10,$11)
`, notification.ID, notification.Title, notification.Message, notification.Type, notification.Audience,
		notification.RecipientCount, notification.ScheduledAt, notification.SentAt, notification.Status,
		notification.CreatedBy, notification.CreatedAt)
	if err != nil {
		return nil, err
	}
	if audience == AudienceUser {
		for _, userID := range recipients {
			_, _ = db.Exec(`
INSERT INTO notification_targets (notification_id, user_id) VALUES ($1,$2)
ON CONFLICT DO NOTHING
`, notification.ID, userID)
		}
	}

	if !scheduled {
		DeliverNotification(db, hub, &notification, recipients)
	}
	return &notification, nil
}

// DeliverNotification fans one notification out to every recipient:
// a durable per-user row plus a live push. The two are independent;
// duplicate-key conflicts on the durable row are expected on retry and
// ignored, other errors are logged without rolling anything back.
func DeliverNotification(db *sqlx.DB, hub *EventHub, notification *models.Notification, recipients []string) {
	group, _ := errgroup.WithContext(context.Background())
	group.SetLimit(8)
	for _, userID := range recipients {
		userID := userID
		group.Go(func() error {
			_, err := db.Exec(`
INSERT INTO user_notifications (id, user_id, notification_id, is_read, created_at)
VALUES ($1,$2,$3,FALSE,$4)
ON CONFLICT (user_id, notification_id) DO NOTHING
`, uuid.NewString(), userID, notification.ID, time.Now().UTC())
			if err != nil {
				log.Printf("notification delivery to %s: %v", userID, err)
			}
			hub.Push(userID, Event{Name: EventNewNotification, Payload: map[string]interface{}{
				"id":      notification.ID,
				"title":   notification.Title,
				"message": notification.Message,
				"type":    notification.Type,
				"sentAt":  notification.SentAt,
			}})
			return nil
		})
	}
	_ = group.Wait()
}

// DispatchDueScheduled sends any scheduled notifications whose time
// has arrived, following the same delivery procedure as immediate
// sends.
func DispatchDueScheduled(db *sqlx.DB, hub *EventHub) error {
	due := []models.Notification{}
	err := db.Select(&due, `
SELECT id, title, message, type, audience, recipient_count, scheduled_at, sent_at, status, created_by, created_at
FROM notifications
WHERE status = 'scheduled' AND scheduled_at <= now()
`)
	if err != nil {
		return err
	}
	for i := range due {
		notification := &due[i]
		targets := []string{}
		if notification.Audience == AudienceUser {
			if err := db.Select(&targets, `SELECT user_id FROM notification_targets WHERE notification_id = $1`, notification.ID); err != nil {
				log.Printf("scheduled dispatch targets %s: %v", notification.ID, err)
				continue
			}
		}
		recipients, err := ResolveAudience(db, notification.Audience, targets)
		if err != nil {
			log.Printf("scheduled dispatch %s: %v", notification.ID, err)
			continue
		}
		now := time.Now().UTC()
		if _, err := db.Exec(`
UPDATE notifications SET status = 'sent', sent_at = $1 WHERE id = $2 AND status = 'scheduled'
`, now, notification.ID); err != nil {
			log.Printf("scheduled dispatch %s: %v", notification.ID, err)
			continue
		}
		notification.SentAt = &now
		DeliverNotification(db, hub, notification, recipients)
	}
	return nil
}

type UserNotificationView struct {
	ID        string     `db:"id" json:"id"`
	Title     string     `db:"title" json:"title"`
	Message   string     `db:"message" json:"message"`
	Type      string     `db:"type" json:"type"`
	IsRead    bool       `db:"is_read" json:"isRead"`
	SentAt    *time.Time `db:"sent_at" json:"sentAt"`
	CreatedAt time.Time  `db:"created_at" json:"createdAt"`
}

func ListUserNotifications(db *sqlx.DB, userID string) ([]UserNotificationView, error) {
	items := []UserNotificationView{}
	err := db.Select(&items, `
SELECT un.id, n.title, n.message, n.type, un.is_read, n.sent_at, un.created_at
FROM user_notifications un
JOIN notifications n ON n.id = un.notification_id
WHERE un.user_id = $1
ORDER BY un.created_at DESC
`, userID)
	return items, err
}

func MarkNotificationRead(db *sqlx.DB, userID, userNotificationID string) error {
	result, err := db.Exec(`
UPDATE user_notifications SET is_read = TRUE WHERE id = $1 AND user_id = $2
`, userNotificationID, userID)
	if err != nil {
		return err
	}
	affected, err := result.RowsAffected()
	if err != nil {
		return err
	}
	if affected == 0 {
		return ErrNotFound("Notification not found")
	}
	return nil
}

func DeleteUserNotification(db *sqlx.DB, userID, userNotificationID string) error {
	result, err := db.Exec(`
DELETE FROM user_notifications WHERE id = $1 AND user_id = $2
`, userNotificationID, userID)
	if err != nil {
		return err
	}
	affected, err := result.RowsAffected()
	if err != nil {
		return err
	}
	if affected == 0 {
		return ErrNotFound("Notification not found")
	}
	return nil
}
