package services

import (
	"database/sql"
	"encoding/json"
	"errors"
	"io"
	"os"
	"path/filepath"
	"time"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"
	"github.com/shirou/gopsutil/v3/cpu"
	"github.com/shirou/gopsutil/v3/disk"
	"github.com/shirou/gopsutil/v3/host"
	"github.com/shirou/gopsutil/v3/mem"

	"smartscribe-backend-go/internal/models"
)

const ApkBucket = "apk"

func GetMaintenanceState(db *sqlx.DB) (*models.MaintenanceState, error) {
	state := models.MaintenanceState{}
	err := db.Get(&state, `
SELECT id, maintenance_mode, maintenance_message, system_version, last_update_date
FROM maintenance_state WHERE id = 1
`)
	if err != nil {
		return nil, err
	}
	return &state, nil
}

// SetMaintenanceMode flips the flag, optionally replacing the message,
// and notifies every connected client.
func SetMaintenanceMode(db *sqlx.DB, hub *EventHub, enabled bool, message string) (*models.MaintenanceState, error) {
	if message != "" {
		if _, err := db.Exec(`
UPDATE maintenance_state SET maintenance_mode = $1, maintenance_message = $2 WHERE id = 1
`, enabled, message); err != nil {
			return nil, err
		}
	} else {
		if _, err := db.Exec(`UPDATE maintenance_state SET maintenance_mode = $1 WHERE id = 1`, enabled); err != nil {
			return nil, err
		}
	}
	state, err := GetMaintenanceState(db)
	if err != nil {
		return nil, err
	}
	hub.Broadcast(Event{Name: EventMaintenanceModeChange, Payload: map[string]interface{}{
		"maintenanceMode":    state.MaintenanceMode,
		"maintenanceMessage": state.MaintenanceMessage,
	}})
	return state, nil
}

// SaveApkVersion stores the uploaded build and bumps the system
// version bookkeeping.
func SaveApkVersion(db *sqlx.DB, basePath, version, fileName, uploadedBy string, features, improvements, bugFixes []string, body io.Reader) (*models.ApkVersion, error) {
	dir := filepath.Join(basePath, ApkBucket)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, err
	}
	storedName := GenerateRecordingFilename(fileName)
	target := filepath.Join(dir, storedName)
	file, err := os.Create(target)
	if err != nil {
		return nil, err
	}
	size, err := io.Copy(file, body)
	_ = file.Close()
	if err != nil {
		_ = os.Remove(target)
		return nil, err
	}
	if size == 0 {
		_ = os.Remove(target)
		return nil, ErrBadRequest("No file uploaded")
	}

	now := time.Now().UTC()
	apk := models.ApkVersion{
		ID:          uuid.NewString(),
		Version:     version,
		ReleaseDate: now,
		FilePath:    "/uploads/" + ApkBucket + "/" + storedName,
		FileName:    fileName,
		UploadedAt:  now,
		UploadedBy:  &uploadedBy,
	}
	apk.Features = marshalList(features)
	apk.Improvements = marshalList(improvements)
	apk.BugFixes = marshalList(bugFixes)

	_, err = db.Exec(`
INSERT INTO apk_versions (id, version, release_date, features, improvements, bug_fixes, file_path, file_name, uploaded_at, uploaded_by)
VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9,$10)
`, apk.ID, apk.Version, apk.ReleaseDate, apk.Features, apk.Improvements, apk.BugFixes,
		apk.FilePath, apk.FileName, apk.UploadedAt, apk.UploadedBy)
	if err != nil {
		_ = os.Remove(target)
		return nil, err
	}
	_, _ = db.Exec(`
UPDATE maintenance_state SET system_version = $1, last_update_date = $2 WHERE id = 1
`, version, now)
	return &apk, nil
}

func marshalList(items []string) []byte {
	if items == nil {
		items = []string{}
	}
	raw, _ := json.Marshal(items)
	return raw
}

func ListApkVersions(db *sqlx.DB) ([]models.ApkVersion, error) {
	versions := []models.ApkVersion{}
	err := db.Select(&versions, `
SELECT id, version, release_date, features, improvements, bug_fixes, file_path, file_name, uploaded_at, uploaded_by
FROM apk_versions
ORDER BY uploaded_at DESC
`)
	return versions, err
}

func LatestApkVersion(db *sqlx.DB) (*models.ApkVersion, error) {
	apk := models.ApkVersion{}
	err := db.Get(&apk, `
SELECT id, version, release_date, features, improvements, bug_fixes, file_path, file_name, uploaded_at, uploaded_by
FROM apk_versions
ORDER BY uploaded_at DESC
LIMIT 1
`)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &apk, nil
}

// DeleteApkVersion removes the stored file (best-effort when already
// gone) and then the row.
func DeleteApkVersion(db *sqlx.DB, basePath, versionID string) error {
	apk := models.ApkVersion{}
	err := db.Get(&apk, `SELECT id, file_path FROM apk_versions WHERE id = $1`, versionID)
	if errors.Is(err, sql.ErrNoRows) {
		return ErrNotFound("APK version not found")
	}
	if err != nil {
		return err
	}
	onDisk := filepath.Join(basePath, ApkBucket, filepath.Base(apk.FilePath))
	if err := os.Remove(onDisk); err != nil && !os.IsNotExist(err) {
		return WrapError(err, "remove apk file")
	}
	_, err = db.Exec(`DELETE FROM apk_versions WHERE id = $1`, versionID)
	return err
}

// SystemSnapshot is a live reading of host resources used by the admin
// system-info view and the periodic analytics broadcast.
type SystemSnapshot struct {
	CapturedAt       time.Time `json:"capturedAt"`
	UptimeSeconds    uint64    `json:"uptimeSeconds"`
	CPULoadPercent   float64   `json:"cpuLoadPercent"`
	MemoryTotalBytes uint64    `json:"memoryTotalBytes"`
	MemoryUsedBytes  uint64    `json:"memoryUsedBytes"`
	DiskTotalBytes   uint64    `json:"diskTotalBytes"`
	DiskUsedBytes    uint64    `json:"diskUsedBytes"`
}

func CaptureSystemSnapshot(diskPath string) SystemSnapshot {
	snapshot := SystemSnapshot{CapturedAt: time.Now().UTC()}
	if uptime, err := host.Uptime(); err == nil {
		snapshot.UptimeSeconds = uptime
	}
	if loads, err := cpu.Percent(0, false); err == nil && len(loads) > 0 {
		snapshot.CPULoadPercent = loads[0]
	}
	if memStat, err := mem.VirtualMemory(); err == nil {
		snapshot.MemoryTotalBytes = memStat.Total
		snapshot.MemoryUsedBytes = memStat.Total - memStat.Available
	}
	diskStat, err := disk.Usage(diskPath)
	if err != nil {
		diskStat, err = disk.Usage("/")
	}
	if err == nil {
		snapshot.DiskTotalBytes = diskStat.Total
		snapshot.DiskUsedBytes = diskStat.Used
	}
	return snapshot
}
