// Package config loads service settings from the environment.
package config

import (
	"fmt"
	"net/netip"
	"os"
	"strconv"
	"strings"

	"github.com/joho/godotenv"
)

type Config struct {
	Port        string
	DatabaseURL string
	SiteURL     string

	CronSecret         string
	FallbackCurationID string
	DefaultLocale      string
	Timezone           string
	InviteHour         int // -1 disables the in-process scheduler

	EmailProvider  string
	EmailDryRun    bool
	EmailFrom      string
	PostmarkToken  string
	ResendAPIKey   string
	SendGridAPIKey string
	SMTPHost       string
	SMTPPort       string
	SMTPUser       string
	SMTPPassword   string

	EmotionLoggingEnabled bool

	LogLevel  string
	LogFormat string
	LogFile   string

	CORSOrigins    []string
	TrustedProxies []string

	BackupEndpoint   string
	BackupBucket     string
	BackupRegion     string
	BackupAccessKey  string
	BackupSecretKey  string
	BackupPrefix     string
	BackupPassphrase string
}

// Load reads .env files (if present) and then the environment. Values already
// set in the environment win over the files.
func Load(files ...string) (*Config, error) {
	if len(files) == 0 {
		files = []string{".env"}
	}
	for _, f := range files {
		if err := godotenv.Load(f); err != nil && !os.IsNotExist(err) {
			return nil, fmt.Errorf("load %s: %w", f, err)
		}
	}

	inviteHour, err := getInt("QUIET_INVITE_HOUR", -1)
	if err != nil {
		return nil, err
	}
	if inviteHour > 23 {
		return nil, fmt.Errorf("QUIET_INVITE_HOUR must be between 0 and 23, got %d", inviteHour)
	}

	cfg := &Config{
		Port:        getEnv("QUIET_PORT", "8080"),
		DatabaseURL: getEnv("QUIET_DATABASE_URL", "quiet.db"),
		SiteURL:     strings.TrimRight(getEnv("QUIET_SITE_URL", "http://localhost:8080"), "/"),

		CronSecret:         os.Getenv("QUIET_CRON_SECRET"),
		FallbackCurationID: os.Getenv("QUIET_FALLBACK_CURATION_ID"),
		DefaultLocale:      getEnv("QUIET_DEFAULT_LOCALE", "en"),
		Timezone:           getEnv("QUIET_TIMEZONE", "Asia/Seoul"),
		InviteHour:         inviteHour,

		EmailProvider:  strings.ToLower(getEnv("QUIET_EMAIL_PROVIDER", "log")),
		EmailDryRun:    getBool("QUIET_EMAIL_DRY_RUN"),
		EmailFrom:      getEnv("QUIET_EMAIL_FROM", "Quiet Curation <noreply@quietcuration.app>"),
		PostmarkToken:  os.Getenv("QUIET_POSTMARK_TOKEN"),
		ResendAPIKey:   os.Getenv("QUIET_RESEND_API_KEY"),
		SendGridAPIKey: os.Getenv("QUIET_SENDGRID_API_KEY"),
		SMTPHost:       os.Getenv("QUIET_SMTP_HOST"),
		SMTPPort:       getEnv("QUIET_SMTP_PORT", "587"),
		SMTPUser:       os.Getenv("QUIET_SMTP_USER"),
		SMTPPassword:   os.Getenv("QUIET_SMTP_PASSWORD"),

		EmotionLoggingEnabled: getBool("QUIET_EMOTION_LOGGING_ENABLED"),

		LogLevel:  getEnv("QUIET_LOG_LEVEL", "info"),
		LogFormat: getEnv("QUIET_LOG_FORMAT", "text"),
		LogFile:   os.Getenv("QUIET_LOG_FILE"),

		CORSOrigins:    splitList(os.Getenv("QUIET_CORS_ORIGINS")),
		TrustedProxies: splitList(os.Getenv("QUIET_TRUSTED_PROXIES")),

		BackupEndpoint:   os.Getenv("QUIET_BACKUP_S3_ENDPOINT"),
		BackupBucket:     os.Getenv("QUIET_BACKUP_S3_BUCKET"),
		BackupRegion:     getEnv("QUIET_BACKUP_S3_REGION", "us-east-1"),
		BackupAccessKey:  os.Getenv("QUIET_BACKUP_S3_ACCESS_KEY"),
		BackupSecretKey:  os.Getenv("QUIET_BACKUP_S3_SECRET_KEY"),
		BackupPrefix:     getEnv("QUIET_BACKUP_S3_PREFIX", "quiet/"),
		BackupPassphrase: os.Getenv("QUIET_BACKUP_PASSPHRASE"),
	}
	for _, p := range cfg.TrustedProxies {
		if !validProxy(p) {
			return nil, fmt.Errorf("QUIET_TRUSTED_PROXIES: %q is not an IP address or CIDR range", p)
		}
	}
	return cfg, nil
}

func validProxy(p string) bool {
	if strings.Contains(p, "/") {
		_, err := netip.ParsePrefix(p)
		return err == nil
	}
	_, err := netip.ParseAddr(p)
	return err == nil
}

func getEnv(key, defaultValue string) string {
	if value, ok := os.LookupEnv(key); ok && value != "" {
		return value
	}
	return defaultValue
}

func getBool(key string) bool {
	v, err := strconv.ParseBool(strings.TrimSpace(os.Getenv(key)))
	return err == nil && v
}

func getInt(key string, defaultValue int) (int, error) {
	raw := strings.TrimSpace(os.Getenv(key))
	if raw == "" {
		return defaultValue, nil
	}
	n, err := strconv.Atoi(raw)
	if err != nil {
		return 0, fmt.Errorf("%s: %w", key, err)
	}
	return n, nil
}

func splitList(s string) []string {
	var out []string
	for _, part := range strings.Split(s, ",") {
		if part = strings.TrimSpace(part); part != "" {
			out = append(out, part)
		}
	}
	return out
}
