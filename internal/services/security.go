package services

import (
	"log"
	"strings"
	"time"
	"unicode"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"

	"smartscribe-backend-go/internal/models"
)

const (
	LockoutWindow    = 30 * time.Minute
	LockoutThreshold = 5
	AttemptRetention = 24 * time.Hour
)

// RecordLoginAttempt appends to the attempt audit trail. Failures here
// are logged and ignored; the login itself must not break on them.
func RecordLoginAttempt(db *sqlx.DB, email, ip, userAgent string, success bool, attemptType string) {
	email = strings.ToLower(strings.TrimSpace(email))
	if email == "" {
		email = "unknown"
	}
	_, err := db.Exec(`
INSERT INTO login_attempts (id, email, ip_address, user_agent, success, attempt_type, attempted_at)
VALUES ($1,$2,$3,$4,$5,$6,$7)
`, uuid.NewString(), email, ip, nullIfBlank(userAgent), success, attemptType, time.Now().UTC())
	if err != nil {
		log.Printf("login attempt log: %v", err)
	}
}

// LockoutDecision is the outcome of evaluating the trailing attempt
// window for one email.
type LockoutDecision struct {
	Locked      bool
	LockedUntil time.Time
}

// EvaluateLockout applies the lockout rule to attempt rows within the
// trailing window: five or more failures lock the account unless a
// success was recorded inside the same window. The attempt audit trail
// is the only input to this decision.
func EvaluateLockout(attempts []models.LoginAttempt, now time.Time) LockoutDecision {
	windowStart := now.Add(-LockoutWindow)
	failures := 0
	succeeded := false
	for _, attempt := range attempts {
		if attempt.AttemptedAt.Before(windowStart) {
			continue
		}
		if attempt.Success {
			succeeded = true
		} else {
			failures++
		}
	}
	if failures >= LockoutThreshold && !succeeded {
		return LockoutDecision{Locked: true, LockedUntil: now.Add(LockoutWindow)}
	}
	return LockoutDecision{}
}

// CheckAccountLockout loads the last 30 minutes of admin attempts for
// the email and returns ErrLocked when the account is locked out.
func CheckAccountLockout(db *sqlx.DB, email string) error {
	email = strings.ToLower(strings.TrimSpace(email))
	if email == "" {
		return nil
	}
	attempts := []models.LoginAttempt{}
	err := db.Select(&attempts, `
SELECT id, email, ip_address, user_agent, success, attempt_type, attempted_at
FROM login_attempts
WHERE email = $1 AND attempt_type = 'admin' AND attempted_at >= $2
`, email, time.Now().UTC().Add(-LockoutWindow))
	if err != nil {
		// the lockout check is advisory; a read failure must not take
		// the login path down with it
		log.Printf("lockout check: %v", err)
		return nil
	}
	decision := EvaluateLockout(attempts, time.Now().UTC())
	if decision.Locked {
		return ErrLocked("Account temporarily locked due to multiple failed login attempts. Please try again after 30 minutes.")
	}
	return nil
}

// PurgeLoginAttempts removes rows older than the retention window.
func PurgeLoginAttempts(db *sqlx.DB) error {
	_, err := db.Exec(`DELETE FROM login_attempts WHERE attempted_at < $1`,
		time.Now().UTC().Add(-AttemptRetention))
	return err
}

// ValidatePassword collects every unmet password rule independently so
// the caller can report all of them, not just the first.
func ValidatePassword(password string) []string {
	violations := []string{}
	if len(password) < 8 {
		violations = append(violations, "Password must be at least 8 characters long")
	}
	var hasUpper, hasLower, hasDigit, hasSymbol bool
	for _, r := range password {
		switch {
		case unicode.IsUpper(r):
			hasUpper = true
		case unicode.IsLower(r):
			hasLower = true
		case unicode.IsDigit(r):
			hasDigit = true
		case unicode.IsPunct(r) || unicode.IsSymbol(r):
			hasSymbol = true
		}
	}
	if !hasUpper {
		violations = append(violations, "Password must contain at least one uppercase letter")
	}
	if !hasLower {
		violations = append(violations, "Password must contain at least one lowercase letter")
	}
	if !hasDigit {
		violations = append(violations, "Password must contain at least one number")
	}
	if !hasSymbol {
		violations = append(violations, "Password must contain at least one special character")
	}
	return violations
}
