package httpapi

import (
	"encoding/json"
	"net/http"
	"strings"
	"time"

	"github.com/go-chi/chi/v5"

	"smartscribe-backend-go/internal/models"
	"smartscribe-backend-go/internal/services"
)

func (s *Server) CheckMaintenanceMode(w http.ResponseWriter, r *http.Request) {
	state, err := services.GetMaintenanceState(s.DB)
	if err != nil {
		WriteServiceError(w, err)
		return
	}
	WriteJSON(w, http.StatusOK, map[string]interface{}{
		"maintenanceMode": state.MaintenanceMode,
		"message":         state.MaintenanceMessage,
		"systemVersion":   state.SystemVersion,
	})
}

type toggleMaintenanceRequest struct {
	Enabled bool   `json:"enabled"`
	Message string `json:"message"`
}

func (s *Server) ToggleMaintenanceMode(w http.ResponseWriter, r *http.Request) {
	var req toggleMaintenanceRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		WriteError(w, http.StatusBadRequest, "Invalid request body")
		return
	}
	state, err := services.SetMaintenanceMode(s.DB, s.Hub, req.Enabled, req.Message)
	if err != nil {
		WriteServiceError(w, err)
		return
	}
	WriteJSON(w, http.StatusOK, map[string]interface{}{
		"maintenanceMode": state.MaintenanceMode,
		"message":         state.MaintenanceMessage,
	})
}

func (s *Server) UploadApk(w http.ResponseWriter, r *http.Request) {
	admin := CurrentUser(r)
	if err := r.ParseMultipartForm(500 << 20); err != nil {
		WriteError(w, http.StatusBadRequest, "Invalid multipart form")
		return
	}
	file, header, err := r.FormFile("apk")
	if err != nil {
		WriteError(w, http.StatusBadRequest, "No APK file uploaded")
		return
	}
	defer file.Close()

	version := strings.TrimSpace(r.FormValue("version"))
	if version == "" {
		WriteError(w, http.StatusBadRequest, "Version is required")
		return
	}
	if !strings.HasSuffix(strings.ToLower(header.Filename), ".apk") {
		WriteError(w, http.StatusBadRequest, "Only .apk files are accepted")
		return
	}
	apk, err := services.SaveApkVersion(s.DB, s.Config.UploadStoragePath, version, header.Filename,
		admin.ID, splitLines(r.FormValue("features")), splitLines(r.FormValue("improvements")),
		splitLines(r.FormValue("bugFixes")), file)
	if err != nil {
		WriteServiceError(w, err)
		return
	}
	s.Hub.Broadcast(services.Event{Name: services.EventApkListUpdated})
	WriteJSON(w, http.StatusCreated, apkView(apk))
}

func (s *Server) ListApkVersions(w http.ResponseWriter, r *http.Request) {
	versions, err := services.ListApkVersions(s.DB)
	if err != nil {
		WriteServiceError(w, err)
		return
	}
	out := make([]map[string]interface{}, 0, len(versions))
	for i := range versions {
		out = append(out, apkView(&versions[i]))
	}
	WriteJSON(w, http.StatusOK, out)
}

func (s *Server) LatestApk(w http.ResponseWriter, r *http.Request) {
	apk, err := services.LatestApkVersion(s.DB)
	if err != nil {
		WriteServiceError(w, err)
		return
	}
	if apk == nil {
		WriteError(w, http.StatusNotFound, "No APK versions available")
		return
	}
	WriteJSON(w, http.StatusOK, apkView(apk))
}

// PublicApkHistory exposes release notes without requiring a login,
// so the mobile client can show changelogs on its update screen.
func (s *Server) PublicApkHistory(w http.ResponseWriter, r *http.Request) {
	versions, err := services.ListApkVersions(s.DB)
	if err != nil {
		WriteServiceError(w, err)
		return
	}
	out := make([]map[string]interface{}, 0, len(versions))
	for i := range versions {
		view := apkView(&versions[i])
		delete(view, "filePath")
		delete(view, "uploadedBy")
		out = append(out, view)
	}
	WriteJSON(w, http.StatusOK, out)
}

func (s *Server) DeleteApk(w http.ResponseWriter, r *http.Request) {
	if err := services.DeleteApkVersion(s.DB, s.Config.UploadStoragePath, chi.URLParam(r, "versionId")); err != nil {
		WriteServiceError(w, err)
		return
	}
	s.Hub.Broadcast(services.Event{Name: services.EventApkListUpdated})
	WriteJSON(w, http.StatusOK, map[string]string{"message": "APK version deleted"})
}

func (s *Server) UpdateHistory(w http.ResponseWriter, r *http.Request) {
	s.ListApkVersions(w, r)
}

func (s *Server) GetBackupConfig(w http.ResponseWriter, r *http.Request) {
	state, err := services.GetBackupState(s.DB)
	if err != nil {
		WriteServiceError(w, err)
		return
	}
	WriteJSON(w, http.StatusOK, backupStateView(state))
}

type backupConfigRequest struct {
	AutoBackupEnabled  bool       `json:"autoBackupEnabled"`
	BackupFrequency    string     `json:"backupFrequency"`
	BackupTime         string     `json:"backupTime"`
	BackupDay          string     `json:"backupDay"`
	OneTimeEnabled     bool       `json:"oneTimeBackupEnabled"`
	OneTimeScheduledAt *time.Time `json:"oneTimeScheduledAt"`
}

var validFrequencies = map[string]bool{"daily": true, "weekly": true, "monthly": true}

func (s *Server) UpdateBackupConfig(w http.ResponseWriter, r *http.Request) {
	var req backupConfigRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		WriteError(w, http.StatusBadRequest, "Invalid request body")
		return
	}
	frequency := strings.ToLower(strings.TrimSpace(req.BackupFrequency))
	if frequency == "" {
		frequency = "daily"
	}
	if !validFrequencies[frequency] {
		WriteError(w, http.StatusBadRequest, "Backup frequency must be daily, weekly or monthly")
		return
	}
	if req.OneTimeEnabled && req.OneTimeScheduledAt == nil {
		WriteError(w, http.StatusBadRequest, "One-time backup requires a scheduled time")
		return
	}
	_, err := s.DB.Exec(`
UPDATE backup_state
SET auto_backup_enabled = $1, backup_frequency = $2, backup_time = $3, backup_day = $4,
    one_time_backup_enabled = $5, one_time_scheduled_at = $6
WHERE id = 1
`, req.AutoBackupEnabled, frequency, req.BackupTime, req.BackupDay,
		req.OneTimeEnabled, req.OneTimeScheduledAt)
	if err != nil {
		WriteServiceError(w, err)
		return
	}
	state, err := services.GetBackupState(s.DB)
	if err != nil {
		WriteServiceError(w, err)
		return
	}
	if err := services.RecomputeNextBackup(s.DB, state, time.Now().UTC()); err != nil {
		WriteServiceError(w, err)
		return
	}
	WriteJSON(w, http.StatusOK, backupStateView(state))
}

func (s *Server) TriggerBackup(w http.ResponseWriter, r *http.Request) {
	admin := CurrentUser(r)
	entry, err := services.PerformBackup(s.DB, &admin.ID, "manual")
	if err != nil {
		WriteServiceError(w, err)
		return
	}
	WriteJSON(w, http.StatusCreated, map[string]interface{}{
		"backupId":   entry.BackupID,
		"backupDate": entry.BackupDate,
		"backupSize": entry.BackupSize,
		"status":     entry.Status,
	})
}

func (s *Server) BackupHistory(w http.ResponseWriter, r *http.Request) {
	history, err := services.GetBackupHistory(s.DB)
	if err != nil {
		WriteServiceError(w, err)
		return
	}
	out := make([]map[string]interface{}, 0, len(history))
	for _, entry := range history {
		out = append(out, map[string]interface{}{
			"backupId":    entry.BackupID,
			"backupDate":  entry.BackupDate,
			"backupSize":  entry.BackupSize,
			"status":      entry.Status,
			"backupPath":  entry.BackupPath,
			"triggeredBy": entry.TriggeredBy,
			"backupType":  entry.BackupType,
		})
	}
	WriteJSON(w, http.StatusOK, out)
}

// SystemInfo merges the persisted bookkeeping with a live resource
// snapshot.
func (s *Server) SystemInfo(w http.ResponseWriter, r *http.Request) {
	maintenance, err := services.GetMaintenanceState(s.DB)
	if err != nil {
		WriteServiceError(w, err)
		return
	}
	backup, err := services.GetBackupState(s.DB)
	if err != nil {
		WriteServiceError(w, err)
		return
	}
	WriteJSON(w, http.StatusOK, map[string]interface{}{
		"systemVersion":   maintenance.SystemVersion,
		"lastUpdateDate":  maintenance.LastUpdateDate,
		"maintenanceMode": maintenance.MaintenanceMode,
		"lastBackupAt":    backup.LastBackupAt,
		"nextBackupAt":    backup.NextScheduledAt,
		"resources":       services.CaptureSystemSnapshot(s.Config.MetricsDiskPath),
	})
}

func apkView(apk *models.ApkVersion) map[string]interface{} {
	return map[string]interface{}{
		"id":           apk.ID,
		"version":      apk.Version,
		"releaseDate":  apk.ReleaseDate,
		"features":     decodeStringList(apk.Features),
		"improvements": decodeStringList(apk.Improvements),
		"bugFixes":     decodeStringList(apk.BugFixes),
		"filePath":     apk.FilePath,
		"fileName":     apk.FileName,
		"uploadedAt":   apk.UploadedAt,
		"uploadedBy":   apk.UploadedBy,
	}
}

func decodeStringList(raw []byte) []string {
	items := []string{}
	if len(raw) > 0 {
		_ = json.Unmarshal(raw, &items)
	}
	return items
}

func backupStateView(state *models.BackupState) map[string]interface{} {
	return map[string]interface{}{
		"autoBackupEnabled":    state.AutoBackupEnabled,
		"backupFrequency":      state.BackupFrequency,
		"backupTime":           state.BackupTime,
		"backupDay":            state.BackupDay,
		"oneTimeBackupEnabled": state.OneTimeEnabled,
		"oneTimeScheduledAt":   state.OneTimeScheduledAt,
		"lastBackupAt":         state.LastBackupAt,
		"nextScheduledAt":      state.NextScheduledAt,
	}
}

func splitLines(raw string) []string {
	if strings.TrimSpace(raw) == "" {
		return nil
	}
	parts := strings.Split(raw, "\n")
	lines := make([]string, 0, len(parts))
	for _, part := range parts {
		if line := strings.TrimSpace(part); line != "" {
			lines = append(lines, line)
		}
	}
	return lines
}
