package services

import (
	"database/sql"
	"errors"
	"os"
	"path/filepath"
	"strings"

	"github.com/jmoiron/sqlx"

	"smartscribe-backend-go/internal/models"
)

const ProfileBucket = "profiles"

func GetUserByID(db *sqlx.DB, userID string) (*models.User, error) {
	user := models.User{}
	err := db.Get(&user, `
SELECT id, name, email, password_hash, role, is_admin, transcriptions, image_path, status, created_at, updated_at
FROM users WHERE id = $1
`, userID)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrNotFound("User not found")
	}
	if err != nil {
		return nil, err
	}
	return &user, nil
}

func GetUserByEmail(db *sqlx.DB, email string) (*models.User, error) {
	user := models.User{}
	err := db.Get(&user, `
SELECT id, name, email, password_hash, role, is_admin, transcriptions, image_path, status, created_at, updated_at
FROM users WHERE lower(email) = $1
`, strings.ToLower(strings.TrimSpace(email)))
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrNotFound("User not found")
	}
	if err != nil {
		return nil, err
	}
	return &user, nil
}

// NormalizeRole validates and lowercases a signup role.
func NormalizeRole(raw string) (string, error) {
	if strings.TrimSpace(raw) == "" {
		return "other", nil
	}
	normalized := strings.ToLower(strings.TrimSpace(raw))
	switch normalized {
	case "student", "teacher", "other":
		return normalized, nil
	}
	return "", ErrBadRequest("Role must be teacher, student, or other")
}

func FormatRole(role string) string {
	if role == "" {
		return "Other"
	}
	return strings.ToUpper(role[:1]) + role[1:]
}

func ListNonAdminUsers(db *sqlx.DB) ([]models.User, error) {
	users := []models.User{}
	err := db.Select(&users, `
SELECT id, name, email, password_hash, role, is_admin, transcriptions, image_path, status, created_at, updated_at
FROM users
WHERE is_admin = FALSE
ORDER BY created_at DESC
`)
	return users, err
}

// SetUserStatus enables or disables a non-admin account and notifies
// the affected user plus any admin consoles.
func SetUserStatus(db *sqlx.DB, hub *EventHub, userID, status string) error {
	user, err := GetUserByID(db, userID)
	if err != nil {
		return err
	}
	if user.IsAdmin {
		return ErrForbidden("Cannot modify admin users")
	}
	if _, err := db.Exec(`UPDATE users SET status = $1, updated_at = now() WHERE id = $2`, status, userID); err != nil {
		return err
	}
	hub.Push(userID, Event{Name: EventAccountStatusChanged, Payload: map[string]string{"status": status}})
	hub.Broadcast(Event{Name: EventUserListUpdated})
	return nil
}

// DeleteUser removes a non-admin account; recordings, transcriptions,
// sessions, and delivery rows cascade in the schema.
func DeleteUser(db *sqlx.DB, hub *EventHub, userID string) error {
	user, err := GetUserByID(db, userID)
	if err != nil {
		return err
	}
	if user.IsAdmin {
		return ErrForbidden("Cannot delete admin users")
	}
	if _, err := db.Exec(`DELETE FROM users WHERE id = $1`, userID); err != nil {
		return err
	}
	hub.Broadcast(Event{Name: EventUserListUpdated})
	return nil
}

// ReplaceProfileImage stores the new image and best-effort removes the
// previous one; a missing old file is not an error.
func ReplaceProfileImage(db *sqlx.DB, basePath, userID, filename string, oldPath *string) (string, error) {
	if oldPath != nil {
		stale := filepath.Join(basePath, ProfileBucket, filepath.Base(*oldPath))
		if err := os.Remove(stale); err != nil && !os.IsNotExist(err) {
			return "", WrapError(err, "remove previous profile image")
		}
	}
	imagePath := "/uploads/" + ProfileBucket + "/" + filename
	if _, err := db.Exec(`UPDATE users SET image_path = $1, updated_at = now() WHERE id = $2`, imagePath, userID); err != nil {
		return "", err
	}
	return imagePath, nil
}

func RemoveProfileImage(db *sqlx.DB, basePath, userID string, oldPath *string) error {
	if oldPath != nil {
		stale := filepath.Join(basePath, ProfileBucket, filepath.Base(*oldPath))
		if err := os.Remove(stale); err != nil && !os.IsNotExist(err) {
			return WrapError(err, "remove profile image")
		}
	}
	_, err := db.Exec(`UPDATE users SET image_path = NULL, updated_at = now() WHERE id = $1`, userID)
	return err
}
