package config

import (
	"os"
	"strconv"
	"strings"
)

// Config holds runtime configuration loaded from environment variables.
type Config struct {
	DatabaseURL          string
	DBMaxConns           int
	JWTSecret            string
	JWTIssuer            string
	UserTokenTTLSeconds  int64
	AdminTokenTTLSeconds int64
	UploadStoragePath    string
	OpenAIAPIKey         string
	OpenAIBaseURL        string
	FFmpegPath           string
	SMTPHost             string
	SMTPPort             int
	SMTPUser             string
	SMTPPass             string
	MailFrom             string
	BackupPollMinutes    int
	MetricsSampleSeconds int
	MetricsDiskPath      string
	CorsOrigins          []string
}

func Load() Config {
	return Config{
		DatabaseURL:          mustEnv("DATABASE_URL"),
		DBMaxConns:           envOrInt("DB_MAX_CONNS", 20),
		JWTSecret:            mustEnv("JWT_SECRET"),
		JWTIssuer:            envOr("JWT_ISSUER", "smartscribe"),
		UserTokenTTLSeconds:  int64(envOrInt("USER_TOKEN_TTL_SECONDS", 604800)),
		AdminTokenTTLSeconds: int64(envOrInt("ADMIN_TOKEN_TTL_SECONDS", 7200)),
		UploadStoragePath:    envOr("UPLOAD_STORAGE_PATH", "uploads"),
		OpenAIAPIKey:         envOr("OPEN_AI_API_KEY", envOr("OPENAI_API_KEY", "")),
		OpenAIBaseURL:        envOr("OPENAI_BASE_URL", "https://api.openai.com/v1"),
		FFmpegPath:           envOr("FFMPEG_PATH", "ffmpeg"),
		SMTPHost:             envOr("SMTP_HOST", ""),
		SMTPPort:             envOrInt("SMTP_PORT", 587),
		SMTPUser:             envOr("SMTP_USER", ""),
		SMTPPass:             envOr("SMTP_PASS", ""),
		MailFrom:             envOr("MAIL_FROM", "no-reply@smartscribe.app"),
		BackupPollMinutes:    envOrInt("BACKUP_POLL_MINUTES", 30),
		MetricsSampleSeconds: envOrInt("METRICS_SAMPLE_INTERVAL", 30),
		MetricsDiskPath:      envOr("METRICS_DISK_PATH", "uploads"),
		CorsOrigins:          parseCSV(envOr("CORS_ORIGINS", "")),
	}
}

func mustEnv(key string) string {
	value := strings.TrimSpace(os.Getenv(key))
	if value == "" {
		panic("missing env var: " + key)
	}
	return value
}

func envOr(key, fallback string) string {
	value := strings.TrimSpace(os.Getenv(key))
	if value == "" {
		return fallback
	}
	return value
}

func envOrInt(key string, fallback int) int {
	value := strings.TrimSpace(os.Getenv(key))
	if value == "" {
		return fallback
	}
	parsed, err := strconv.Atoi(value)
	if err != nil {
		return fallback
	}
	return parsed
}

func parseCSV(raw string) []string {
	if strings.TrimSpace(raw) == "" {
		return nil
	}
	parts := strings.Split(raw, ",")
	items := make([]string, 0, len(parts))
	for _, part := range parts {
		value := strings.TrimSpace(part)
		if value != "" {
			items = append(items, value)
		}
	}
	return items
}
