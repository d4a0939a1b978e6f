package httpapi

import (
	"encoding/json"
	"io"
	"net/http"
	"os"
	"path/filepath"
	"strings"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"

	"smartscribe-backend-go/internal/models"
	"smartscribe-backend-go/internal/services"
)

func publicUser(user *models.User) map[string]interface{} {
	return map[string]interface{}{
		"id":             user.ID,
		"name":           user.Name,
		"email":          user.Email,
		"role":           services.FormatRole(user.Role),
		"isAdmin":        user.IsAdmin,
		"transcriptions": user.Transcriptions,
		"imagePath":      user.ImagePath,
		"status":         user.Status,
		"createdAt":      user.CreatedAt,
	}
}

func (s *Server) GetProfile(w http.ResponseWriter, r *http.Request) {
	WriteJSON(w, http.StatusOK, publicUser(CurrentUser(r)))
}

func (s *Server) UpdateProfile(w http.ResponseWriter, r *http.Request) {
	user := CurrentUser(r)
	var req profileUpdateRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		WriteError(w, http.StatusBadRequest, "Invalid request body")
		return
	}
	name := strings.TrimSpace(req.Name)
	if name == "" {
		name = user.Name
	}
	email := strings.ToLower(strings.TrimSpace(req.Email))
	if email == "" {
		email = user.Email
	}
	_, err := s.DB.Exec(`UPDATE users SET name = $1, email = $2, updated_at = now() WHERE id = $3`,
		name, email, user.ID)
	if err != nil {
		WriteError(w, http.StatusConflict, "Email already in use")
		return
	}
	services.LogUserActivity(s.DB, user.ID, email, name, "Profile Updated", "Profile updated", nil, clientIP(r), r.UserAgent())
	WriteJSON(w, http.StatusOK, map[string]string{"message": "Profile updated"})
}

var allowedImageExtensions = map[string]bool{
	".jpg":  true,
	".jpeg": true,
	".png":  true,
	".webp": true,
}

func (s *Server) UploadProfileImage(w http.ResponseWriter, r *http.Request) {
	user := CurrentUser(r)
	if err := r.ParseMultipartForm(10 << 20); err != nil {
		WriteError(w, http.StatusBadRequest, "Invalid multipart form")
		return
	}
	file, header, err := r.FormFile("image")
	if err != nil {
		WriteError(w, http.StatusBadRequest, "No image uploaded")
		return
	}
	defer file.Close()

	ext := strings.ToLower(filepath.Ext(header.Filename))
	if !allowedImageExtensions[ext] {
		WriteError(w, http.StatusBadRequest, "Unsupported image format")
		return
	}
	dir := filepath.Join(s.Config.UploadStoragePath, services.ProfileBucket)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		WriteServiceError(w, err)
		return
	}
	filename := uuid.NewString() + ext
	target, err := os.Create(filepath.Join(dir, filename))
	if err != nil {
		WriteServiceError(w, err)
		return
	}
	if _, err := io.Copy(target, file); err != nil {
		_ = target.Close()
		_ = os.Remove(target.Name())
		WriteServiceError(w, err)
		return
	}
	_ = target.Close()

	imagePath, err := services.ReplaceProfileImage(s.DB, s.Config.UploadStoragePath, user.ID, filename, user.ImagePath)
	if err != nil {
		_ = os.Remove(filepath.Join(dir, filename))
		WriteServiceError(w, err)
		return
	}
	services.LogUserActivity(s.DB, user.ID, user.Email, user.Name, "File Upload", "Profile image updated", nil, clientIP(r), r.UserAgent())
	WriteJSON(w, http.StatusOK, map[string]string{"imagePath": imagePath})
}

func (s *Server) RemoveProfileImage(w http.ResponseWriter, r *http.Request) {
	user := CurrentUser(r)
	if err := services.RemoveProfileImage(s.DB, s.Config.UploadStoragePath, user.ID, user.ImagePath); err != nil {
		WriteServiceError(w, err)
		return
	}
	WriteJSON(w, http.StatusOK, map[string]string{"message": "Profile image removed"})
}

func (s *Server) AdminListUsers(w http.ResponseWriter, r *http.Request) {
	users, err := services.ListNonAdminUsers(s.DB)
	if err != nil {
		WriteServiceError(w, err)
		return
	}
	out := make([]map[string]interface{}, 0, len(users))
	for i := range users {
		out = append(out, publicUser(&users[i]))
	}
	WriteJSON(w, http.StatusOK, out)
}

type statusUpdateRequest struct {
	Status string `json:"status"`
}

func (s *Server) AdminSetUserStatus(w http.ResponseWriter, r *http.Request) {
	var req statusUpdateRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		WriteError(w, http.StatusBadRequest, "Invalid request body")
		return
	}
	status := strings.ToUpper(strings.TrimSpace(req.Status))
	if status != "ACTIVE" && status != "DISABLED" {
		WriteError(w, http.StatusBadRequest, "Status must be ACTIVE or DISABLED")
		return
	}
	userID := chi.URLParam(r, "userId")
	if err := services.SetUserStatus(s.DB, s.Hub, userID, status); err != nil {
		WriteServiceError(w, err)
		return
	}
	WriteJSON(w, http.StatusOK, map[string]string{"message": "User status updated"})
}

func (s *Server) AdminDeleteUser(w http.ResponseWriter, r *http.Request) {
	admin := CurrentUser(r)
	userID := chi.URLParam(r, "userId")
	target, err := services.GetUserByID(s.DB, userID)
	if err != nil {
		WriteServiceError(w, err)
		return
	}
	if err := services.DeleteUser(s.DB, s.Hub, userID); err != nil {
		WriteServiceError(w, err)
		return
	}
	services.LogUserActivity(s.DB, admin.ID, admin.Email, admin.Name, "Account Deleted",
		"Deleted account "+target.Email, nil, clientIP(r), r.UserAgent())
	WriteJSON(w, http.StatusOK, map[string]string{"message": "User deleted"})
}
