package services

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"

	"smartscribe-backend-go/internal/models"
)

func attemptsAt(now time.Time, offsets []time.Duration, success bool) []models.LoginAttempt {
	attempts := make([]models.LoginAttempt, 0, len(offsets))
	for _, offset := range offsets {
		attempts = append(attempts, models.LoginAttempt{
			Success:     success,
			AttemptedAt: now.Add(-offset),
		})
	}
	return attempts
}

func TestEvaluateLockoutUnderThreshold(t *testing.T) {
	now := time.Now()
	attempts := attemptsAt(now, []time.Duration{time.Minute, 2 * time.Minute, 3 * time.Minute, 4 * time.Minute}, false)
	assert.False(t, EvaluateLockout(attempts, now).Locked)
}

func TestEvaluateLockoutAtThreshold(t *testing.T) {
	now := time.Now()
	attempts := attemptsAt(now, []time.Duration{time.Minute, 2 * time.Minute, 3 * time.Minute, 4 * time.Minute, 5 * time.Minute}, false)
	decision := EvaluateLockout(attempts, now)
	assert.True(t, decision.Locked)
	assert.True(t, decision.LockedUntil.After(now))
}

func TestEvaluateLockoutIgnoresOldFailures(t *testing.T) {
	now := time.Now()
	recent := attemptsAt(now, []time.Duration{time.Minute, 2 * time.Minute}, false)
	stale := attemptsAt(now, []time.Duration{LockoutWindow + time.Minute, LockoutWindow + 2*time.Minute, LockoutWindow + 3*time.Minute}, false)
	assert.False(t, EvaluateLockout(append(recent, stale...), now).Locked)
}

func TestEvaluateLockoutSuccessResetsWindow(t *testing.T) {
	now := time.Now()
	attempts := attemptsAt(now, []time.Duration{time.Minute, 2 * time.Minute, 3 * time.Minute, 4 * time.Minute, 5 * time.Minute}, false)
	attempts = append(attempts, models.LoginAttempt{Success: true, AttemptedAt: now.Add(-10 * time.Minute)})
	assert.False(t, EvaluateLockout(attempts, now).Locked)
}

func TestEvaluateLockoutEmptyTrail(t *testing.T) {
	assert.False(t, EvaluateLockout(nil, time.Now()).Locked)
}

func TestValidatePasswordAccepts(t *testing.T) {
	assert.Empty(t, ValidatePassword("Str0ng!pass"))
}

func TestValidatePasswordReportsEveryViolation(t *testing.T) {
	problems := ValidatePassword("abc")
	// too short, no uppercase, no digit, no symbol
	assert.Len(t, problems, 4)
}

func TestValidatePasswordSingleViolations(t *testing.T) {
	cases := map[string]string{
		"missing uppercase": "str0ng!pass",
		"missing lowercase": "STR0NG!PASS",
		"missing digit":     "Strong!pass",
		"missing symbol":    "Str0ngpass",
		"too short":         "S0r!t",
	}
	for name, password := range cases {
		t.Run(name, func(t *testing.T) {
			assert.Len(t, ValidatePassword(password), 1)
		})
	}
}
