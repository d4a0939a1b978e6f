package httpapi

import (
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/cors"
	"github.com/jmoiron/sqlx"
	"golang.org/x/time/rate"

	"smartscribe-backend-go/internal/config"
	"smartscribe-backend-go/internal/services"
)

type Server struct {
	DB                *sqlx.DB
	Config            config.Config
	Tokens            services.TokenService
	Hub               *services.EventHub
	Transcriber       *services.TranscriptionClient
	OTP               *services.OTPStore
	Mailer            services.Mailer
	APILimiter        *services.IPLimiter
	AdminLoginLimiter *services.FixedWindowLimiter
}

func NewServer(db *sqlx.DB, cfg config.Config, hub *services.EventHub) *Server {
	tokens := services.TokenService{
		Secret:   []byte(cfg.JWTSecret),
		Issuer:   cfg.JWTIssuer,
		UserTTL:  time.Duration(cfg.UserTokenTTLSeconds) * time.Second,
		AdminTTL: time.Duration(cfg.AdminTokenTTLSeconds) * time.Second,
	}
	return &Server{
		DB:          db,
		Config:      cfg,
		Tokens:      tokens,
		Hub:         hub,
		Transcriber: services.NewTranscriptionClient(cfg.OpenAIAPIKey, cfg.OpenAIBaseURL, cfg.FFmpegPath),
		OTP:         services.NewOTPStore(),
		Mailer: services.Mailer{
			Host: cfg.SMTPHost,
			Port: cfg.SMTPPort,
			User: cfg.SMTPUser,
			Pass: cfg.SMTPPass,
			From: cfg.MailFrom,
		},
		// 100 requests per 15-minute window per IP, 5 admin login
		// attempts per 15-minute window per ip-email key
		APILimiter:        services.NewIPLimiter(rate.Limit(100.0/900.0), 100),
		AdminLoginLimiter: services.NewFixedWindowLimiter(15*time.Minute, 5),
	}
}

func (s *Server) Router() http.Handler {
	r := chi.NewRouter()
	r.Use(RequestLogger)
	if len(s.Config.CorsOrigins) > 0 {
		r.Use(cors.Handler(cors.Options{
			AllowedOrigins:   s.Config.CorsOrigins,
			AllowedMethods:   []string{"GET", "POST", "PUT", "DELETE", "OPTIONS"},
			AllowedHeaders:   []string{"Accept", "Authorization", "Content-Type"},
			AllowCredentials: true,
			MaxAge:           300,
		}))
	}

	r.Route("/api", func(api chi.Router) {
		api.Route("/auth", func(auth chi.Router) {
			auth.With(s.APIRateLimit).Post("/signup/request-otp", s.RequestSignupOTP)
			auth.With(s.APIRateLimit).Post("/signup", s.Signup)
			auth.With(s.APIRateLimit).Post("/login", s.Login)
			auth.With(s.APIRateLimit).Post("/password-reset/request", s.RequestPasswordReset)
			auth.With(s.APIRateLimit).Post("/password-reset/confirm", s.ConfirmPasswordReset)
			auth.With(s.WithAuth).Post("/logout", s.Logout)

			auth.Post("/admin/login", s.AdminLogin)
			auth.With(s.WithAuth, s.AdminOnly).Post("/admin/logout", s.AdminLogout)
			auth.With(s.WithAuth, s.AdminOnly).Get("/admin/verify", s.VerifyAdmin)
			auth.With(s.WithAuth, s.AdminOnly).Post("/admin/refresh", s.RefreshAdminToken)
			auth.With(s.WithAuth, s.AdminOnly).Get("/admin/profile", s.GetAdminProfile)
			auth.With(s.WithAuth, s.AdminOnly).Put("/admin/profile", s.UpdateAdminProfile)
			auth.With(s.WithAuth, s.AdminOnly).Post("/admin/change-password", s.ChangeAdminPassword)
		})

		api.Route("/users", func(users chi.Router) {
			users.With(s.WithAuth).Get("/profile", s.GetProfile)
			users.With(s.WithAuth).Put("/profile", s.UpdateProfile)
			users.With(s.WithAuth).Post("/change-password", s.ChangePassword)
			users.With(s.WithAuth).Post("/profile/image", s.UploadProfileImage)
			users.With(s.WithAuth).Delete("/profile/image", s.RemoveProfileImage)

			users.With(s.WithAuth, s.AdminOnly).Get("/", s.AdminListUsers)
			users.With(s.WithAuth, s.AdminOnly).Put("/{userId}/status", s.AdminSetUserStatus)
			users.With(s.WithAuth, s.AdminOnly).Delete("/{userId}", s.AdminDeleteUser)
		})

		api.Route("/recordings", func(recordings chi.Router) {
			recordings.Use(s.WithAuth)
			recordings.Post("/upload", s.UploadRecording)
			recordings.Get("/user", s.ListRecordings)
			recordings.Get("/{recordingId}", s.GetRecording)
			recordings.Delete("/{recordingId}", s.DeleteRecording)
			recordings.Post("/{recordingId}/transcribe", s.TranscribeRecording)
		})

		api.Route("/notifications", func(notifications chi.Router) {
			notifications.With(s.WithAuth).Get("/user/list", s.ListMyNotifications)
			notifications.With(s.WithAuth).Put("/{notificationId}/read", s.MarkNotificationRead)
			notifications.With(s.WithAuth).Delete("/{notificationId}", s.DeleteMyNotification)

			notifications.With(s.WithAuth, s.AdminOnly).Get("/", s.AdminListNotifications)
			notifications.With(s.WithAuth, s.AdminOnly).Get("/recipients", s.RecipientCount)
			notifications.With(s.WithAuth, s.AdminOnly).Post("/", s.CreateNotification)
		})

		api.Route("/maintenance", func(maintenance chi.Router) {
			maintenance.Get("/check-maintenance", s.CheckMaintenanceMode)
			maintenance.Get("/latest-apk-public", s.LatestApk)
			maintenance.Get("/public-apk-history", s.PublicApkHistory)

			maintenance.Group(func(admin chi.Router) {
				admin.Use(s.WithAuth, s.AdminOnly)
				admin.Post("/toggle-mode", s.ToggleMaintenanceMode)
				admin.Post("/upload-apk", s.UploadApk)
				admin.Get("/apk-versions", s.ListApkVersions)
				admin.Get("/latest-apk", s.LatestApk)
				admin.Delete("/delete-apk/{versionId}", s.DeleteApk)
				admin.Get("/update-history", s.UpdateHistory)
				admin.Get("/backup-config", s.GetBackupConfig)
				admin.Post("/update-backup-config", s.UpdateBackupConfig)
				admin.Post("/trigger-backup", s.TriggerBackup)
				admin.Get("/backup-history", s.BackupHistory)
				admin.Get("/system-info", s.SystemInfo)
			})
		})

		api.Route("/activity", func(activity chi.Router) {
			activity.With(s.WithAuth).Post("/log", s.LogActivity)
			activity.With(s.WithAuth).Get("/user/{userId}", s.GetUserActivities)

			activity.With(s.WithAuth, s.AdminOnly).Get("/logs", s.ActivityLogs)
			activity.With(s.WithAuth, s.AdminOnly).Get("/stats", s.ActivityStats)
			activity.With(s.WithAuth, s.AdminOnly).Get("/top-users", s.TopUsers)
			activity.With(s.WithAuth, s.AdminOnly).Get("/summary", s.ActivitySummary)
		})
	})

	r.Get("/ws/events", s.EventSocket)

	fileServer := http.StripPrefix("/uploads/", http.FileServer(http.Dir(s.Config.UploadStoragePath)))
	r.Get("/uploads/*", func(w http.ResponseWriter, req *http.Request) {
		fileServer.ServeHTTP(w, req)
	})

	return r
}
