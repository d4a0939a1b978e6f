package services

import (
	"encoding/json"
	"log"
	"strconv"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"
)

const ActivityRetention = 90 * 24 * time.Hour

var validActions = map[string]bool{
	"Login":                 true,
	"Logout":                true,
	"Transcription Created": true,
	"Summary Generated":     true,
	"Profile Updated":       true,
	"Export PDF":            true,
	"File Upload":           true,
	"File Download":         true,
	"Settings Changed":      true,
	"Password Changed":      true,
	"Account Deleted":       true,
	"Recording Started":     true,
	"Recording Completed":   true,
	"Notification Viewed":   true,
	"Share Document":        true,
}

func ValidActivityAction(action string) bool {
	return validActions[action]
}

// LogUserActivity appends to the audit trail. Best-effort: a write
// failure is logged and never interrupts the primary operation.
func LogUserActivity(db *sqlx.DB, userID, userEmail, userName, action, description string, metadata map[string]interface{}, ip, userAgent string) {
	meta := []byte("{}")
	if len(metadata) > 0 {
		if raw, err := json.Marshal(metadata); err == nil {
			meta = raw
		}
	}
	_, err := db.Exec(`
INSERT INTO user_activities (id, user_id, user_email, user_name, action, description, metadata, ip_address, user_agent, occurred_at)
VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9,$10)
`, uuid.NewString(), userID, strings.ToLower(userEmail), nullIfBlank(userName), action,
		nullIfBlank(description), meta, nullIfBlank(ip), nullIfBlank(userAgent), time.Now().UTC())
	if err != nil {
		log.Printf("activity log: %v", err)
	}
}

type ActivityFilters struct {
	UserID    string
	UserEmail string
	Action    string
	StartDate *time.Time
	EndDate   *time.Time
}

type ActivityLogEntry struct {
	ID          string    `db:"id" json:"_id"`
	OccurredAt  time.Time `db:"occurred_at" json:"timestamp"`
	UserEmail   string    `db:"user_email" json:"user"`
	UserName    *string   `db:"user_name" json:"userName"`
	Action      string    `db:"action" json:"action"`
	Description *string   `db:"description" json:"description"`
}

func GetActivityLogs(db *sqlx.DB, filters ActivityFilters, limit, skip int) ([]ActivityLogEntry, int, error) {
	where := []string{"1=1"}
	args := []interface{}{}
	arg := func(value interface{}) string {
		args = append(args, value)
		return "$" + strconv.Itoa(len(args))
	}
	if filters.UserID != "" {
		where = append(where, "user_id = "+arg(filters.UserID))
	}
	if filters.UserEmail != "" {
		where = append(where, "user_email = "+arg(strings.ToLower(filters.UserEmail)))
	}
	if filters.Action != "" {
		where = append(where, "action = "+arg(filters.Action))
	}
	if filters.StartDate != nil {
		where = append(where, "occurred_at >= "+arg(*filters.StartDate))
	}
	if filters.EndDate != nil {
		where = append(where, "occurred_at <= "+arg(*filters.EndDate))
	}
	clause := strings.Join(where, " AND ")

	var total int
	if err := db.Get(&total, `SELECT COUNT(*) FROM user_activities WHERE `+clause, args...); err != nil {
		return nil, 0, err
	}
	query := `
SELECT id, occurred_at, user_email, user_name, action, description
FROM user_activities
WHERE ` + clause + `
ORDER BY occurred_at DESC
LIMIT ` + arg(limit) + ` OFFSET ` + arg(skip)
	entries := []ActivityLogEntry{}
	if err := db.Select(&entries, query, args...); err != nil {
		return nil, 0, err
	}
	return entries, total, nil
}

type ActionCount struct {
	Action string `db:"action" json:"_id"`
	Count  int    `db:"count" json:"count"`
}

func GetActivityStats(db *sqlx.DB, daysBack int) ([]ActionCount, error) {
	stats := []ActionCount{}
	err := db.Select(&stats, `
SELECT action, COUNT(*) AS count
FROM user_activities
WHERE occurred_at >= $1
GROUP BY action
ORDER BY count DESC
`, time.Now().UTC().AddDate(0, 0, -daysBack))
	return stats, err
}

type TopUser struct {
	UserEmail     string  `db:"user_email" json:"email"`
	UserName      *string `db:"user_name" json:"name"`
	ActivityCount int     `db:"activity_count" json:"activityCount"`
}

func GetTopActiveUsers(db *sqlx.DB, limit, daysBack int) ([]TopUser, error) {
	users := []TopUser{}
	err := db.Select(&users, `
SELECT user_email, MIN(user_name) AS user_name, COUNT(*) AS activity_count
FROM user_activities
WHERE occurred_at >= $1
GROUP BY user_email
ORDER BY activity_count DESC
LIMIT $2
`, time.Now().UTC().AddDate(0, 0, -daysBack), limit)
	return users, err
}

type ActivitySummary struct {
	TotalActivities   int           `json:"totalActivities"`
	UniqueUsers       int           `json:"uniqueUsers"`
	ActivityBreakdown []ActionCount `json:"activityBreakdown"`
}

func GetActivitySummary(db *sqlx.DB, daysBack int) (ActivitySummary, error) {
	start := time.Now().UTC().AddDate(0, 0, -daysBack)
	summary := ActivitySummary{}
	if err := db.Get(&summary.TotalActivities,
		`SELECT COUNT(*) FROM user_activities WHERE occurred_at >= $1`, start); err != nil {
		return summary, err
	}
	if err := db.Get(&summary.UniqueUsers,
		`SELECT COUNT(DISTINCT user_id) FROM user_activities WHERE occurred_at >= $1`, start); err != nil {
		return summary, err
	}
	breakdown, err := GetActivityStats(db, daysBack)
	if err != nil {
		return summary, err
	}
	summary.ActivityBreakdown = breakdown
	return summary, nil
}

// PurgeOldActivities removes audit entries past the 90-day retention.
func PurgeOldActivities(db *sqlx.DB) error {
	_, err := db.Exec(`DELETE FROM user_activities WHERE occurred_at < $1`,
		time.Now().UTC().Add(-ActivityRetention))
	return err
}
