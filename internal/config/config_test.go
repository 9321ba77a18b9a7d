package config

import (
	"os"
	"path/filepath"
	"testing"
)

func TestLoadDefaults(t *testing.T) {
	t.Setenv("QUIET_PORT", "")
	t.Setenv("QUIET_INVITE_HOUR", "")
	t.Setenv("QUIET_EMAIL_PROVIDER", "")
	t.Setenv("QUIET_BACKUP_S3_PREFIX", "")
	t.Setenv("QUIET_BACKUP_S3_REGION", "")

	cfg, err := Load(filepath.Join(t.TempDir(), "missing.env"))
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	if cfg.Port != "8080" {
		t.Errorf("port = %q, want %q", cfg.Port, "8080")
	}
	if cfg.Timezone != "Asia/Seoul" {
		t.Errorf("timezone = %q, want %q", cfg.Timezone, "Asia/Seoul")
	}
	if cfg.InviteHour != -1 {
		t.Errorf("invite hour = %d, want -1", cfg.InviteHour)
	}
	if cfg.EmailProvider != "log" {
		t.Errorf("email provider = %q, want %q", cfg.EmailProvider, "log")
	}
	if cfg.BackupPrefix != "quiet/" || cfg.BackupRegion != "us-east-1" {
		t.Errorf("backup prefix/region = %q/%q", cfg.BackupPrefix, cfg.BackupRegion)
	}
}

func TestLoadEnvFileDoesNotOverrideEnvironment(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, ".env")
	content := "QUIET_CRON_SECRET=from-file\nQUIET_FALLBACK_CURATION_ID=cur-file\n"
	if err := os.WriteFile(path, []byte(content), 0o600); err != nil {
		t.Fatalf("write env file: %v", err)
	}

	t.Setenv("QUIET_CRON_SECRET", "from-env")
	t.Setenv("QUIET_FALLBACK_CURATION_ID", "")
	os.Unsetenv("QUIET_FALLBACK_CURATION_ID")

	cfg, err := Load(path)
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	if cfg.CronSecret != "from-env" {
		t.Errorf("cron secret = %q, want %q", cfg.CronSecret, "from-env")
	}
	if cfg.FallbackCurationID != "cur-file" {
		t.Errorf("fallback curation = %q, want %q", cfg.FallbackCurationID, "cur-file")
	}
}

func TestLoadParsesValues(t *testing.T) {
	t.Setenv("QUIET_INVITE_HOUR", "7")
	t.Setenv("QUIET_EMOTION_LOGGING_ENABLED", "true")
	t.Setenv("QUIET_CORS_ORIGINS", "https://a.example, https://b.example,")
	t.Setenv("QUIET_SITE_URL", "https://quiet.example/")

	cfg, err := Load(filepath.Join(t.TempDir(), "none.env"))
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	if cfg.InviteHour != 7 {
		t.Errorf("invite hour = %d, want 7", cfg.InviteHour)
	}
	if !cfg.EmotionLoggingEnabled {
		t.Error("expected emotion logging enabled")
	}
	if len(cfg.CORSOrigins) != 2 {
		t.Errorf("cors origins = %v, want 2 entries", cfg.CORSOrigins)
	}
	if cfg.SiteURL != "https://quiet.example" {
		t.Errorf("site url = %q", cfg.SiteURL)
	}
}

func TestLoadRejectsBadInviteHour(t *testing.T) {
	t.Setenv("QUIET_INVITE_HOUR", "25")
	if _, err := Load(filepath.Join(t.TempDir(), "none.env")); err == nil {
		t.Error("expected error for out-of-range hour")
	}
	t.Setenv("QUIET_INVITE_HOUR", "seven")
	if _, err := Load(filepath.Join(t.TempDir(), "none.env")); err == nil {
		t.Error("expected error for non-numeric hour")
	}
}

func TestLoadTrustedProxies(t *testing.T) {
	t.Setenv("QUIET_INVITE_HOUR", "")
	t.Setenv("QUIET_TRUSTED_PROXIES", "10.0.0.0/8, 127.0.0.1")
	cfg, err := Load(filepath.Join(t.TempDir(), "none.env"))
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	if len(cfg.TrustedProxies) != 2 || cfg.TrustedProxies[1] != "127.0.0.1" {
		t.Errorf("trusted proxies = %v", cfg.TrustedProxies)
	}

	t.Setenv("QUIET_TRUSTED_PROXIES", "proxy.internal")
	if _, err := Load(filepath.Join(t.TempDir(), "none.env")); err == nil {
		t.Error("expected error for a hostname proxy")
	}
}
