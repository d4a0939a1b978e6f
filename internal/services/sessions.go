package services

import (
	"database/sql"
	"errors"
	"time"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"

	"smartscribe-backend-go/internal/models"
)

// CreateAdminSession enforces single-active-session: all prior active
// rows for the admin are deactivated before the new row is inserted,
// inside one transaction, so a concurrent validator never sees two
// active sessions.
func CreateAdminSession(db *sqlx.DB, adminID, token, ip, userAgent string, expiresAt time.Time) error {
	tx, err := db.Beginx()
	if err != nil {
		return err
	}
	defer func() { _ = tx.Rollback() }()

	if _, err := tx.Exec(`
UPDATE admin_sessions SET is_active = FALSE
WHERE admin_id = $1 AND is_active = TRUE
`, adminID); err != nil {
		return err
	}
	now := time.Now().UTC()
	if _, err := tx.Exec(`
INSERT INTO admin_sessions (id, admin_id, token, ip_address, user_agent, last_activity, expires_at, is_active)
VALUES ($1,$2,$3,$4,$5,$6,$7,TRUE)
`, uuid.NewString(), adminID, token, nullIfBlank(ip), nullIfBlank(userAgent), now, expiresAt); err != nil {
		return err
	}
	return tx.Commit()
}

// ValidateAdminSession checks that an active, unexpired session row is
// bound to this exact token and refreshes its last-activity stamp. A
// superseded or revoked token fails here even when its signature is
// still valid.
func ValidateAdminSession(db *sqlx.DB, adminID, token string) (*models.AdminSession, error) {
	session := models.AdminSession{}
	err := db.Get(&session, `
SELECT id, admin_id, token, ip_address, user_agent, last_activity, expires_at, is_active
FROM admin_sessions
WHERE token = $1 AND admin_id = $2 AND is_active = TRUE AND expires_at > now()
`, token, adminID)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrUnauthorized("Session expired or invalid. Please login again.")
	}
	if err != nil {
		return nil, err
	}
	_, _ = db.Exec(`UPDATE admin_sessions SET last_activity = now() WHERE id = $1`, session.ID)
	return &session, nil
}

// RefreshAdminSession swaps the token and expiry on the existing row
// in place; no second row is created.
func RefreshAdminSession(db *sqlx.DB, adminID, oldToken, newToken string, expiresAt time.Time) error {
	result, err := db.Exec(`
UPDATE admin_sessions
SET token = $1, expires_at = $2, last_activity = now()
WHERE token = $3 AND admin_id = $4 AND is_active = TRUE
`, newToken, expiresAt, oldToken, adminID)
	if err != nil {
		return err
	}
	affected, err := result.RowsAffected()
	if err != nil {
		return err
	}
	if affected == 0 {
		return ErrUnauthorized("Invalid session")
	}
	return nil
}

func DeactivateAdminSession(db *sqlx.DB, adminID, token string) error {
	_, err := db.Exec(`
UPDATE admin_sessions SET is_active = FALSE
WHERE token = $1 AND admin_id = $2
`, token, adminID)
	return err
}

func nullIfBlank(value string) *string {
	if value == "" {
		return nil
	}
	return &value
}
