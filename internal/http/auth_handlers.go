package httpapi

import (
	"encoding/json"
	"log"
	"net/http"
	"strings"

	"github.com/google/uuid"

	"smartscribe-backend-go/internal/services"
)

type signupOTPRequest struct {
	Email string `json:"email"`
}

func (s *Server) RequestSignupOTP(w http.ResponseWriter, r *http.Request) {
	var req signupOTPRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		WriteError(w, http.StatusBadRequest, "Invalid request body")
		return
	}
	email := strings.ToLower(strings.TrimSpace(req.Email))
	if email == "" || !strings.Contains(email, "@") {
		WriteError(w, http.StatusBadRequest, "A valid email is required")
		return
	}
	if existing, err := services.GetUserByEmail(s.DB, email); err == nil && existing != nil {
		WriteError(w, http.StatusConflict, "An account with this email already exists")
		return
	}
	if !s.Mailer.Configured() {
		WriteServiceError(w, services.ErrBadRequest("Mail is not configured on this server"))
		return
	}
	code, err := s.OTP.Issue(email)
	if err != nil {
		WriteServiceError(w, err)
		return
	}
	if err := s.Mailer.SendOTP(email, code); err != nil {
		log.Printf("send signup otp to %s: %v", email, err)
		WriteError(w, http.StatusInternalServerError, "Failed to send verification code")
		return
	}
	WriteJSON(w, http.StatusOK, map[string]string{"message": "Verification code sent"})
}

type signupRequest struct {
	Name     string `json:"name"`
	Email    string `json:"email"`
	Password string `json:"password"`
	Role     string `json:"role"`
	OTP      string `json:"otp"`
}

func (s *Server) Signup(w http.ResponseWriter, r *http.Request) {
	var req signupRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		WriteError(w, http.StatusBadRequest, "Invalid request body")
		return
	}
	email := strings.ToLower(strings.TrimSpace(req.Email))
	name := strings.TrimSpace(req.Name)
	if name == "" || email == "" || req.Password == "" {
		WriteError(w, http.StatusBadRequest, "Name, email and password are required")
		return
	}
	if !s.OTP.Verify(email, req.OTP) {
		WriteError(w, http.StatusBadRequest, "Invalid or expired verification code")
		return
	}
	if problems := services.ValidatePassword(req.Password); len(problems) > 0 {
		WriteJSON(w, http.StatusBadRequest, map[string]interface{}{
			"message": "Password does not meet requirements",
			"errors":  problems,
		})
		return
	}
	role, err := services.NormalizeRole(req.Role)
	if err != nil {
		WriteServiceError(w, err)
		return
	}
	hash, err := s.Tokens.HashPassword(req.Password)
	if err != nil {
		WriteServiceError(w, err)
		return
	}
	userID := uuid.NewString()
	_, err = s.DB.Exec(`
INSERT INTO users (id, name, email, password_hash, role, is_admin, status, created_at, updated_at)
VALUES ($1,$2,$3,$4,$5,FALSE,'ACTIVE',now(),now())
`, userID, name, email, hash, role)
	if err != nil {
		WriteError(w, http.StatusConflict, "An account with this email already exists")
		return
	}
	token, _, err := s.Tokens.CreateToken(userID, false)
	if err != nil {
		WriteServiceError(w, err)
		return
	}
	services.LogUserActivity(s.DB, userID, email, name, "Login", "Account created", nil, clientIP(r), r.UserAgent())
	WriteJSON(w, http.StatusCreated, map[string]interface{}{
		"token": token,
		"user": map[string]interface{}{
			"id":    userID,
			"name":  name,
			"email": email,
			"role":  services.FormatRole(role),
		},
	})
}

type loginRequest struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}

func (s *Server) Login(w http.ResponseWriter, r *http.Request) {
	var req loginRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		WriteError(w, http.StatusBadRequest, "Invalid request body")
		return
	}
	email := strings.ToLower(strings.TrimSpace(req.Email))
	ip := clientIP(r)
	user, err := services.GetUserByEmail(s.DB, email)
	if err != nil || !s.Tokens.VerifyPassword(req.Password, user.PasswordHash) {
		services.RecordLoginAttempt(s.DB, email, ip, r.UserAgent(), false, "user")
		WriteError(w, http.StatusUnauthorized, "Invalid email or password")
		return
	}
	if user.Status != "ACTIVE" {
		services.RecordLoginAttempt(s.DB, email, ip, r.UserAgent(), false, "user")
		WriteError(w, http.StatusForbidden, "Account disabled")
		return
	}
	token, _, err := s.Tokens.CreateToken(user.ID, false)
	if err != nil {
		WriteServiceError(w, err)
		return
	}
	services.RecordLoginAttempt(s.DB, email, ip, r.UserAgent(), true, "user")
	services.LogUserActivity(s.DB, user.ID, user.Email, user.Name, "Login", "User logged in", nil, ip, r.UserAgent())
	WriteJSON(w, http.StatusOK, map[string]interface{}{
		"token": token,
		"user":  publicUser(user),
	})
}

func (s *Server) Logout(w http.ResponseWriter, r *http.Request) {
	user := CurrentUser(r)
	services.LogUserActivity(s.DB, user.ID, user.Email, user.Name, "Logout", "User logged out", nil, clientIP(r), r.UserAgent())
	WriteJSON(w, http.StatusOK, map[string]string{"message": "Logged out"})
}

func (s *Server) AdminLogin(w http.ResponseWriter, r *http.Request) {
	var req loginRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		WriteError(w, http.StatusBadRequest, "Invalid request body")
		return
	}
	email := strings.ToLower(strings.TrimSpace(req.Email))
	ip := clientIP(r)
	if !s.AdminLoginRateLimit(ip+"-"+email, w) {
		return
	}
	if err := services.CheckAccountLockout(s.DB, email); err != nil {
		WriteServiceError(w, err)
		return
	}
	user, err := services.GetUserByEmail(s.DB, email)
	if err != nil || !user.IsAdmin || !s.Tokens.VerifyPassword(req.Password, user.PasswordHash) {
		services.RecordLoginAttempt(s.DB, email, ip, r.UserAgent(), false, "admin")
		WriteError(w, http.StatusUnauthorized, "Invalid admin credentials")
		return
	}
	token, expiresAt, err := s.Tokens.CreateToken(user.ID, true)
	if err != nil {
		WriteServiceError(w, err)
		return
	}
	if err := services.CreateAdminSession(s.DB, user.ID, token, ip, r.UserAgent(), expiresAt); err != nil {
		WriteServiceError(w, err)
		return
	}
	services.RecordLoginAttempt(s.DB, email, ip, r.UserAgent(), true, "admin")
	services.LogUserActivity(s.DB, user.ID, user.Email, user.Name, "Login", "Admin logged in", nil, ip, r.UserAgent())
	WriteJSON(w, http.StatusOK, map[string]interface{}{
		"token":     token,
		"expiresAt": expiresAt,
		"user":      publicUser(user),
	})
}

func (s *Server) AdminLogout(w http.ResponseWriter, r *http.Request) {
	user := CurrentUser(r)
	if err := services.DeactivateAdminSession(s.DB, user.ID, CurrentToken(r)); err != nil {
		WriteServiceError(w, err)
		return
	}
	services.LogUserActivity(s.DB, user.ID, user.Email, user.Name, "Logout", "Admin logged out", nil, clientIP(r), r.UserAgent())
	WriteJSON(w, http.StatusOK, map[string]string{"message": "Logged out"})
}

func (s *Server) VerifyAdmin(w http.ResponseWriter, r *http.Request) {
	WriteJSON(w, http.StatusOK, map[string]interface{}{
		"valid": true,
		"user":  publicUser(CurrentUser(r)),
	})
}

func (s *Server) RefreshAdminToken(w http.ResponseWriter, r *http.Request) {
	user := CurrentUser(r)
	token, expiresAt, err := s.Tokens.CreateToken(user.ID, true)
	if err != nil {
		WriteServiceError(w, err)
		return
	}
	if err := services.RefreshAdminSession(s.DB, user.ID, CurrentToken(r), token, expiresAt); err != nil {
		WriteServiceError(w, err)
		return
	}
	WriteJSON(w, http.StatusOK, map[string]interface{}{
		"token":     token,
		"expiresAt": expiresAt,
	})
}

func (s *Server) GetAdminProfile(w http.ResponseWriter, r *http.Request) {
	WriteJSON(w, http.StatusOK, publicUser(CurrentUser(r)))
}

type profileUpdateRequest struct {
	Name  string `json:"name"`
	Email string `json:"email"`
}

func (s *Server) UpdateAdminProfile(w http.ResponseWriter, r *http.Request) {
	user := CurrentUser(r)
	var req profileUpdateRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		WriteError(w, http.StatusBadRequest, "Invalid request body")
		return
	}
	name := strings.TrimSpace(req.Name)
	email := strings.ToLower(strings.TrimSpace(req.Email))
	if name == "" || email == "" {
		WriteError(w, http.StatusBadRequest, "Name and email are required")
		return
	}
	_, err := s.DB.Exec(`UPDATE users SET name = $1, email = $2, updated_at = now() WHERE id = $3`,
		name, email, user.ID)
	if err != nil {
		WriteError(w, http.StatusConflict, "Email already in use")
		return
	}
	services.LogUserActivity(s.DB, user.ID, email, name, "Profile Updated", "Admin profile updated", nil, clientIP(r), r.UserAgent())
	WriteJSON(w, http.StatusOK, map[string]string{"message": "Profile updated"})
}

type changePasswordRequest struct {
	CurrentPassword string `json:"currentPassword"`
	NewPassword     string `json:"newPassword"`
}

func (s *Server) ChangeAdminPassword(w http.ResponseWriter, r *http.Request) {
	s.changePassword(w, r, "Admin password changed")
}

func (s *Server) ChangePassword(w http.ResponseWriter, r *http.Request) {
	s.changePassword(w, r, "Password changed")
}

func (s *Server) changePassword(w http.ResponseWriter, r *http.Request, description string) {
	user := CurrentUser(r)
	var req changePasswordRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		WriteError(w, http.StatusBadRequest, "Invalid request body")
		return
	}
	if !s.Tokens.VerifyPassword(req.CurrentPassword, user.PasswordHash) {
		WriteError(w, http.StatusUnauthorized, "Current password is incorrect")
		return
	}
	if problems := services.ValidatePassword(req.NewPassword); len(problems) > 0 {
		WriteJSON(w, http.StatusBadRequest, map[string]interface{}{
			"message": "Password does not meet requirements",
			"errors":  problems,
		})
		return
	}
	if req.NewPassword == req.CurrentPassword {
		WriteError(w, http.StatusBadRequest, "New password must be different from the current password")
		return
	}
	hash, err := s.Tokens.HashPassword(req.NewPassword)
	if err != nil {
		WriteServiceError(w, err)
		return
	}
	if _, err := s.DB.Exec(`UPDATE users SET password_hash = $1, updated_at = now() WHERE id = $2`, hash, user.ID); err != nil {
		WriteServiceError(w, err)
		return
	}
	services.LogUserActivity(s.DB, user.ID, user.Email, user.Name, "Password Changed", description, nil, clientIP(r), r.UserAgent())
	WriteJSON(w, http.StatusOK, map[string]string{"message": "Password changed"})
}

func (s *Server) RequestPasswordReset(w http.ResponseWriter, r *http.Request) {
	var req signupOTPRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		WriteError(w, http.StatusBadRequest, "Invalid request body")
		return
	}
	email := strings.ToLower(strings.TrimSpace(req.Email))
	// The response never reveals whether the account exists.
	if user, err := services.GetUserByEmail(s.DB, email); err == nil && user != nil && s.Mailer.Configured() {
		if code, err := s.OTP.Issue(email); err == nil {
			if err := s.Mailer.SendOTP(email, code); err != nil {
				log.Printf("send reset otp to %s: %v", email, err)
			}
		}
	}
	WriteJSON(w, http.StatusOK, map[string]string{"message": "If the account exists, a reset code has been sent"})
}

type passwordResetConfirm struct {
	Email       string `json:"email"`
	OTP         string `json:"otp"`
	NewPassword string `json:"newPassword"`
}

func (s *Server) ConfirmPasswordReset(w http.ResponseWriter, r *http.Request) {
	var req passwordResetConfirm
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		WriteError(w, http.StatusBadRequest, "Invalid request body")
		return
	}
	email := strings.ToLower(strings.TrimSpace(req.Email))
	if !s.OTP.Verify(email, req.OTP) {
		WriteError(w, http.StatusBadRequest, "Invalid or expired verification code")
		return
	}
	if problems := services.ValidatePassword(req.NewPassword); len(problems) > 0 {
		WriteJSON(w, http.StatusBadRequest, map[string]interface{}{
			"message": "Password does not meet requirements",
			"errors":  problems,
		})
		return
	}
	user, err := services.GetUserByEmail(s.DB, email)
	if err != nil {
		WriteServiceError(w, err)
		return
	}
	if s.Tokens.VerifyPassword(req.NewPassword, user.PasswordHash) {
		WriteError(w, http.StatusBadRequest, "New password must be different from the current password")
		return
	}
	hash, err := s.Tokens.HashPassword(req.NewPassword)
	if err != nil {
		WriteServiceError(w, err)
		return
	}
	if _, err := s.DB.Exec(`UPDATE users SET password_hash = $1, updated_at = now() WHERE id = $2`, hash, user.ID); err != nil {
		WriteServiceError(w, err)
		return
	}
	services.LogUserActivity(s.DB, user.ID, user.Email, user.Name, "Password Changed", "Password reset via email code", nil, clientIP(r), r.UserAgent())
	WriteJSON(w, http.StatusOK, map[string]string{"message": "Password has been reset"})
}
