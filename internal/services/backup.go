package services

import (
	"context"
	"fmt"
	"log"
	"strconv"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"

	"smartscribe-backend-go/internal/models"
)

var weekdayNames = map[string]time.Weekday{
	"Sunday":    time.Sunday,
	"Monday":    time.Monday,
	"Tuesday":   time.Tuesday,
	"Wednesday": time.Wednesday,
	"Thursday":  time.Thursday,
	"Friday":    time.Friday,
	"Saturday":  time.Saturday,
}

// BackupSchedule is the recurring-mode portion of the configuration.
type BackupSchedule struct {
	Frequency string // daily, weekly, monthly
	Time      string // HH:MM
	Day       string // weekday name, weekly mode only
}

// NextBackupDate computes the next due timestamp at or after now for
// the schedule. Monthly schedules always roll to day 1 of the next
// month at the configured time; the original system behaves this way
// regardless of any configured day, and compatibility keeps the rule.
func NextBackupDate(schedule BackupSchedule, now time.Time) time.Time {
	hours, minutes := parseClock(schedule.Time)
	next := time.Date(now.Year(), now.Month(), now.Day(), hours, minutes, 0, 0, now.Location())

	switch schedule.Frequency {
	case "weekly":
		target, ok := weekdayNames[schedule.Day]
		if !ok {
			target = time.Sunday
		}
		daysUntil := (int(target) - int(next.Weekday()) + 7) % 7
		if daysUntil == 0 && !next.After(now) {
			daysUntil = 7
		}
		next = next.AddDate(0, 0, daysUntil)
	case "monthly":
		next = time.Date(now.Year(), now.Month()+1, 1, hours, minutes, 0, 0, now.Location())
	default: // daily
		if !next.After(now) {
			next = next.AddDate(0, 0, 1)
		}
	}
	return next
}

func parseClock(value string) (int, int) {
	parts := strings.SplitN(value, ":", 2)
	if len(parts) != 2 {
		return 2, 0
	}
	hours, err := strconv.Atoi(parts[0])
	if err != nil || hours < 0 || hours > 23 {
		return 2, 0
	}
	minutes, err := strconv.Atoi(parts[1])
	if err != nil || minutes < 0 || minutes > 59 {
		return 2, 0
	}
	return hours, minutes
}

func GetBackupState(db *sqlx.DB) (*models.BackupState, error) {
	state := models.BackupState{}
	err := db.Get(&state, `
SELECT id, auto_backup_enabled, backup_frequency, backup_time, backup_day,
       one_time_backup_enabled, one_time_scheduled_at, last_backup_at, next_scheduled_at
FROM backup_state WHERE id = 1
`)
	if err != nil {
		return nil, err
	}
	return &state, nil
}

// RecomputeNextBackup derives next_scheduled_at from the current mode:
// recurring wins when enabled, else a pending one-time schedule, else
// no schedule at all.
func RecomputeNextBackup(db *sqlx.DB, state *models.BackupState, now time.Time) error {
	var next *time.Time
	switch {
	case state.AutoBackupEnabled:
		due := NextBackupDate(BackupSchedule{
			Frequency: state.BackupFrequency,
			Time:      state.BackupTime,
			Day:       state.BackupDay,
		}, now)
		next = &due
	case state.OneTimeEnabled && state.OneTimeScheduledAt != nil:
		next = state.OneTimeScheduledAt
	}
	state.NextScheduledAt = next
	_, err := db.Exec(`UPDATE backup_state SET next_scheduled_at = $1 WHERE id = 1`, next)
	return err
}

// PerformBackup records one executed backup. The payload itself is an
// external collaborator; only the bookkeeping and scheduling
// discipline live here.
func PerformBackup(db *sqlx.DB, triggeredBy *string, backupType string) (*models.BackupHistoryEntry, error) {
	now := time.Now().UTC()
	entry := models.BackupHistoryEntry{
		ID:          uuid.NewString(),
		BackupID:    fmt.Sprintf("backup-%d", now.UnixMilli()),
		BackupDate:  now,
		BackupSize:  "2.5GB",
		Status:      "completed",
		TriggeredBy: triggeredBy,
		BackupType:  backupType,
	}
	entry.BackupPath = "/backups/" + entry.BackupID

	_, err := db.Exec(`
INSERT INTO backup_history (id, backup_id, backup_date, backup_size, status, backup_path, triggered_by, backup_type)
VALUES ($1,$2,$3,$4,$5,$6,$7,$8)
`, entry.ID, entry.BackupID, entry.BackupDate, entry.BackupSize, entry.Status, entry.BackupPath,
		entry.TriggeredBy, entry.BackupType)
	if err != nil {
		return nil, err
	}
	if _, err := db.Exec(`UPDATE backup_state SET last_backup_at = $1 WHERE id = 1`, now); err != nil {
		return nil, err
	}

	state, err := GetBackupState(db)
	if err != nil {
		return nil, err
	}
	// a manual run while one-time mode is pending consumes the one-time
	// schedule so it cannot re-trigger
	if backupType == "manual" && state.OneTimeEnabled {
		state.OneTimeEnabled = false
		state.OneTimeScheduledAt = nil
		if _, err := db.Exec(`
UPDATE backup_state SET one_time_backup_enabled = FALSE, one_time_scheduled_at = NULL WHERE id = 1
`); err != nil {
			return nil, err
		}
	}
	if err := RecomputeNextBackup(db, state, now); err != nil {
		return nil, err
	}
	log.Printf("backup %s completed (%s)", entry.BackupID, backupType)
	return &entry, nil
}

// CheckAndRunBackups performs at most one backup per wake: the
// recurring schedule when auto mode is due, else a due one-time
// schedule. One-time runs are recorded as manual with no actor.
func CheckAndRunBackups(db *sqlx.DB) error {
	state, err := GetBackupState(db)
	if err != nil {
		return err
	}
	now := time.Now().UTC()
	switch {
	case state.AutoBackupEnabled && state.NextScheduledAt != nil && !now.Before(*state.NextScheduledAt):
		_, err = PerformBackup(db, nil, "automatic")
	case !state.AutoBackupEnabled && state.OneTimeEnabled && state.OneTimeScheduledAt != nil && !now.Before(*state.OneTimeScheduledAt):
		if _, err = PerformBackup(db, nil, "manual"); err == nil {
			_, err = db.Exec(`
UPDATE backup_state SET one_time_backup_enabled = FALSE, one_time_scheduled_at = NULL, next_scheduled_at = NULL WHERE id = 1
`)
		}
	}
	return err
}

// RunBackupScheduler polls on start and then every interval. The loop
// is independent of request handling; a slow backup only delays the
// next poll of this goroutine.
func RunBackupScheduler(ctx context.Context, db *sqlx.DB, interval time.Duration) {
	if err := CheckAndRunBackups(db); err != nil {
		log.Printf("backup scheduler: %v", err)
	}
	ticker := time.NewTicker(interval)
	defer ticker.Stop()
	for {
		select {
		case <-ticker.C:
			if err := CheckAndRunBackups(db); err != nil {
				log.Printf("backup scheduler: %v", err)
			}
		case <-ctx.Done():
			return
		}
	}
}

func GetBackupHistory(db *sqlx.DB) ([]models.BackupHistoryEntry, error) {
	history := []models.BackupHistoryEntry{}
	err := db.Select(&history, `
SELECT id, backup_id, backup_date, backup_size, status, backup_path, triggered_by, backup_type
FROM backup_history
ORDER BY backup_date DESC
`)
	return history, err
}
