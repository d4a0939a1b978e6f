package models

import (
	"time"

	"github.com/jmoiron/sqlx/types"
)

type User struct {
	ID             string    `db:"id"`
	Name           string    `db:"name"`
	Email          string    `db:"email"`
	PasswordHash   string    `db:"password_hash"`
	Role           string    `db:"role"`
	IsAdmin        bool      `db:"is_admin"`
	Transcriptions int       `db:"transcriptions"`
	ImagePath      *string   `db:"image_path"`
	Status         string    `db:"status"`
	CreatedAt      time.Time `db:"created_at"`
	UpdatedAt      time.Time `db:"updated_at"`
}

type Recording struct {
	ID           string    `db:"id"`
	UserID       string    `db:"user_id"`
	Filename     string    `db:"filename"`
	OriginalName *string   `db:"original_name"`
	Name         string    `db:"name"`
	Duration     *string   `db:"duration"`
	Deleted      bool      `db:"deleted"`
	CreatedAt    time.Time `db:"created_at"`
}

type Transcription struct {
	ID          string    `db:"id"`
	UserID      string    `db:"user_id"`
	RecordingID string    `db:"recording_id"`
	Text        string    `db:"text"`
	CreatedAt   time.Time `db:"created_at"`
}

type Notification struct {
	ID             string     `db:"id"`
	Title          string     `db:"title"`
	Message        string     `db:"message"`
	Type           string     `db:"type"`
	Audience       string     `db:"audience"`
	RecipientCount int        `db:"recipient_count"`
	ScheduledAt    *time.Time `db:"scheduled_at"`
	SentAt         *time.Time `db:"sent_at"`
	Status         string     `db:"status"`
	CreatedBy      string     `db:"created_by"`
	CreatedAt      time.Time  `db:"created_at"`
}

type UserNotification struct {
	ID             string    `db:"id"`
	UserID         string    `db:"user_id"`
	NotificationID string    `db:"notification_id"`
	IsRead         bool      `db:"is_read"`
	CreatedAt      time.Time `db:"created_at"`
}

type AdminSession struct {
	ID           string    `db:"id"`
	AdminID      string    `db:"admin_id"`
	Token        string    `db:"token"`
	IPAddress    *string   `db:"ip_address"`
	UserAgent    *string   `db:"user_agent"`
	LastActivity time.Time `db:"last_activity"`
	ExpiresAt    time.Time `db:"expires_at"`
	IsActive     bool      `db:"is_active"`
}

type LoginAttempt struct {
	ID          string    `db:"id"`
	Email       string    `db:"email"`
	IPAddress   string    `db:"ip_address"`
	UserAgent   *string   `db:"user_agent"`
	Success     bool      `db:"success"`
	AttemptType string    `db:"attempt_type"`
	AttemptedAt time.Time `db:"attempted_at"`
}

type UserActivity struct {
	ID          string         `db:"id"`
	UserID      string         `db:"user_id"`
	UserEmail   string         `db:"user_email"`
	UserName    *string        `db:"user_name"`
	Action      string         `db:"action"`
	Description *string        `db:"description"`
	Metadata    types.JSONText `db:"metadata"`
	IPAddress   *string        `db:"ip_address"`
	UserAgent   *string        `db:"user_agent"`
	OccurredAt  time.Time      `db:"occurred_at"`
}

// BackupState is the single-row scheduling configuration.
type BackupState struct {
	ID                 int        `db:"id"`
	AutoBackupEnabled  bool       `db:"auto_backup_enabled"`
	BackupFrequency    string     `db:"backup_frequency"`
	BackupTime         string     `db:"backup_time"`
	BackupDay          string     `db:"backup_day"`
	OneTimeEnabled     bool       `db:"one_time_backup_enabled"`
	OneTimeScheduledAt *time.Time `db:"one_time_scheduled_at"`
	LastBackupAt       *time.Time `db:"last_backup_at"`
	NextScheduledAt    *time.Time `db:"next_scheduled_at"`
}

type BackupHistoryEntry struct {
	ID          string    `db:"id"`
	BackupID    string    `db:"backup_id"`
	BackupDate  time.Time `db:"backup_date"`
	BackupSize  string    `db:"backup_size"`
	Status      string    `db:"status"`
	BackupPath  string    `db:"backup_path"`
	TriggeredBy *string   `db:"triggered_by"`
	BackupType  string    `db:"backup_type"`
}

// MaintenanceState is the single-row maintenance/version document.
type MaintenanceState struct {
	ID                 int       `db:"id"`
	MaintenanceMode    bool      `db:"maintenance_mode"`
	MaintenanceMessage string    `db:"maintenance_message"`
	SystemVersion      string    `db:"system_version"`
	LastUpdateDate     time.Time `db:"last_update_date"`
}

type ApkVersion struct {
	ID           string    `db:"id"`
	Version      string    `db:"version"`
	ReleaseDate  time.Time `db:"release_date"`
	Features     []byte    `db:"features"`
	Improvements []byte    `db:"improvements"`
	BugFixes     []byte    `db:"bug_fixes"`
	FilePath     string    `db:"file_path"`
	FileName     string    `db:"file_name"`
	UploadedAt   time.Time `db:"uploaded_at"`
	UploadedBy   *string   `db:"uploaded_by"`
}
