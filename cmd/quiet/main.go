package main

import (
	"context"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	_ "time/tzdata"

	"github.com/dukerupert/quietcuration/internal/config"
	"github.com/dukerupert/quietcuration/internal/database"
	"github.com/dukerupert/quietcuration/internal/dates"
	"github.com/dukerupert/quietcuration/internal/email"
	"github.com/dukerupert/quietcuration/internal/invite"
	"github.com/dukerupert/quietcuration/internal/logging"
	"github.com/dukerupert/quietcuration/internal/server"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		slog.Error("failed to load config", "error", err)
		os.Exit(1)
	}

	logger := logging.Setup(logging.Options{Level: cfg.LogLevel, Format: cfg.LogFormat, File: cfg.LogFile})

	calendar, err := dates.NewCalendar(cfg.Timezone)
	if err != nil {
		logger.Error("invalid timezone", "timezone", cfg.Timezone, "error", err)
		os.Exit(1)
	}

	db, err := database.Open(cfg.DatabaseURL)
	if err != nil {
		logger.Error("failed to open database", "error", err)
		os.Exit(1)
	}
	defer db.Close()

	sender, err := email.New(email.Settings{
		Provider:       cfg.EmailProvider,
		DryRun:         cfg.EmailDryRun,
		From:           cfg.EmailFrom,
		PostmarkToken:  cfg.PostmarkToken,
		ResendAPIKey:   cfg.ResendAPIKey,
		SendGridAPIKey: cfg.SendGridAPIKey,
		SMTPHost:       cfg.SMTPHost,
		SMTPPort:       cfg.SMTPPort,
		SMTPUser:       cfg.SMTPUser,
		SMTPPassword:   cfg.SMTPPassword,
	}, logger)
	if err != nil {
		logger.Error("failed to configure email", "error", err)
		os.Exit(1)
	}
	if cfg.CronSecret == "" {
		logger.Warn("QUIET_CRON_SECRET is not set; the invite cron endpoint will refuse requests")
	}

	srv := server.New(db, calendar, sender, server.Config{
		SiteURL:               cfg.SiteURL,
		CronSecret:            cfg.CronSecret,
		FallbackCurationID:    cfg.FallbackCurationID,
		DefaultLocale:         cfg.DefaultLocale,
		EmotionLoggingEnabled: cfg.EmotionLoggingEnabled,
		CORSOrigins:           cfg.CORSOrigins,
		TrustedProxies:        cfg.TrustedProxies,
	}, logger)

	httpServer := &http.Server{
		Addr:              ":" + cfg.Port,
		Handler:           srv.Router(),
		ReadHeaderTimeout: 5 * time.Second,
		ReadTimeout:       10 * time.Second,
		WriteTimeout:      60 * time.Second,
		IdleTimeout:       120 * time.Second,
	}

	bgCtx, bgCancel := context.WithCancel(context.Background())
	defer bgCancel()

	var scheduler *invite.Scheduler
	if cfg.InviteHour >= 0 {
		scheduler = invite.NewScheduler(srv.InviteRunner(), calendar, cfg.InviteHour, logger)
		scheduler.Start(bgCtx)
		logger.Info("invite scheduler enabled", "hour", cfg.InviteHour, "timezone", cfg.Timezone)
	}

	go func() {
		ticker := time.NewTicker(1 * time.Hour)
		defer ticker.Stop()
		for {
			select {
			case <-ticker.C:
				srv.Cleanup(bgCtx)
			case <-bgCtx.Done():
				return
			}
		}
	}()

	go func() {
		logger.Info("quiet curation starting", "addr", httpServer.Addr, "database", db.Dialect, "email_provider", sender.Provider())
		if err := httpServer.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			logger.Error("server error", "error", err)
			os.Exit(1)
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	logger.Info("shutting down")
	if scheduler != nil {
		scheduler.Stop()
	}
	bgCancel()

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := httpServer.Shutdown(ctx); err != nil {
		logger.Error("shutdown error", "error", err)
		os.Exit(1)
	}
}
