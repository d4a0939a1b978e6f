package services

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func date(t *testing.T, value string) time.Time {
	t.Helper()
	parsed, err := time.Parse("2006-01-02 15:04", value)
	if err != nil {
		t.Fatalf("parse %q: %v", value, err)
	}
	return parsed
}

func TestNextBackupDateDaily(t *testing.T) {
	schedule := BackupSchedule{Frequency: "daily", Time: "02:00"}

	// before today's slot: runs today
	now := date(t, "2025-03-10 01:00")
	assert.Equal(t, date(t, "2025-03-10 02:00"), NextBackupDate(schedule, now))

	// past today's slot: rolls to tomorrow
	now = date(t, "2025-03-10 03:00")
	assert.Equal(t, date(t, "2025-03-11 02:00"), NextBackupDate(schedule, now))
}

func TestNextBackupDateWeekly(t *testing.T) {
	schedule := BackupSchedule{Frequency: "weekly", Time: "02:00", Day: "Sunday"}

	// Monday 2025-03-10: next Sunday is the 16th
	now := date(t, "2025-03-10 12:00")
	assert.Equal(t, date(t, "2025-03-16 02:00"), NextBackupDate(schedule, now))

	// Sunday before the slot: runs the same day
	now = date(t, "2025-03-16 01:00")
	assert.Equal(t, date(t, "2025-03-16 02:00"), NextBackupDate(schedule, now))

	// Sunday after the slot: a full week out
	now = date(t, "2025-03-16 03:00")
	assert.Equal(t, date(t, "2025-03-23 02:00"), NextBackupDate(schedule, now))
}

func TestNextBackupDateWeeklyUnknownDayDefaultsSunday(t *testing.T) {
	schedule := BackupSchedule{Frequency: "weekly", Time: "02:00", Day: "Someday"}
	now := date(t, "2025-03-10 12:00")
	assert.Equal(t, time.Sunday, NextBackupDate(schedule, now).Weekday())
}

func TestNextBackupDateMonthlyAlwaysFirstOfNextMonth(t *testing.T) {
	schedule := BackupSchedule{Frequency: "monthly", Time: "02:00"}

	now := date(t, "2025-03-10 12:00")
	assert.Equal(t, date(t, "2025-04-01 02:00"), NextBackupDate(schedule, now))

	// even on the 1st before the slot, the run lands next month
	now = date(t, "2025-03-01 01:00")
	assert.Equal(t, date(t, "2025-04-01 02:00"), NextBackupDate(schedule, now))

	// December rolls into January
	now = date(t, "2025-12-25 12:00")
	assert.Equal(t, date(t, "2026-01-01 02:00"), NextBackupDate(schedule, now))
}

func TestNextBackupDateBadClockDefaultsTwoAM(t *testing.T) {
	schedule := BackupSchedule{Frequency: "daily", Time: "not-a-clock"}
	now := date(t, "2025-03-10 01:00")
	next := NextBackupDate(schedule, now)
	assert.Equal(t, 2, next.Hour())
	assert.Equal(t, 0, next.Minute())
}

func TestNextBackupDateAlwaysInFuture(t *testing.T) {
	frequencies := []string{"daily", "weekly", "monthly"}
	now := date(t, "2025-06-15 14:30")
	for _, frequency := range frequencies {
		next := NextBackupDate(BackupSchedule{Frequency: frequency, Time: "02:00", Day: "Monday"}, now)
		assert.True(t, next.After(now), "%s schedule must land after now, got %s", frequency, next)
	}
}
