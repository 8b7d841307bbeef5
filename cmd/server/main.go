// Package main - document vault server
package main

import (
	"context"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/apex/log"
	"github.com/joho/godotenv"
	docvault "github.com/kaviselvaram-dev/docvault"
	"github.com/kaviselvaram-dev/docvault/api"
	"github.com/kaviselvaram-dev/docvault/config"
	"github.com/kaviselvaram-dev/docvault/db"
	"github.com/kaviselvaram-dev/docvault/notify"
	"github.com/kaviselvaram-dev/docvault/scheduler"
	"github.com/labstack/echo/v4"
	"gorm.io/gorm/logger"
)

func main() {
	logTags := log.Fields{"module": "cmd", "component": "server"}

	// .env is optional; the environment itself is authoritative
	_ = godotenv.Load()

	// An unusable encryption key must stop the process before it serves traffic
	cfg, err := config.Load()
	if err != nil {
		log.WithError(err).WithFields(logTags).Fatal("Invalid configuration")
	}

	runtimeCtx, cancel := context.WithCancel(context.Background())
	defer cancel()

	persistence, vault, err := docvault.NewDocumentVault(runtimeCtx, docvault.VaultParams{
		DBDialector:       db.GetSqliteDialector(cfg.DBFile),
		DBLogLevel:        logger.Error,
		EncryptionKey:     cfg.EncryptionKey,
		BlobDir:           cfg.UploadDir,
		AllowedExtensions: cfg.AllowedExtensions,
	})
	if err != nil {
		log.WithError(err).WithFields(logTags).Fatal("Failed to initialize document vault")
	}

	// Prepare registry tables
	if err := persistence.RunSQLInTransaction(runtimeCtx, db.DefineTables); err != nil {
		log.WithError(err).WithFields(logTags).Fatal("Failed to prepare registry tables")
	}

	sink, err := notify.NewSMTPSink(notify.SMTPSinkParams{
		Host:        cfg.SMTP.Host,
		Port:        cfg.SMTP.Port,
		User:        cfg.SMTP.User,
		Password:    cfg.SMTP.Password,
		FromAddress: cfg.SMTP.FromAddress,
	})
	if err != nil {
		log.WithError(err).WithFields(logTags).Fatal("Failed to initialize notification sink")
	}

	reminders, err := scheduler.NewReminderScheduler(scheduler.ReminderSchedulerParams{
		Persistence:   persistence,
		Sink:          sink,
		Ledger:        scheduler.NewMemorySentLedger(),
		SweepInterval: cfg.SweepInterval,
		WindowBefore:  cfg.ReminderWindow,
		WindowAfter:   cfg.ReminderWindow,
	})
	if err != nil {
		log.WithError(err).WithFields(logTags).Fatal("Failed to initialize reminder scheduler")
	}
	reminders.Start()

	handlers, err := api.NewHandlers(persistence, vault, cfg.SessionSecret)
	if err != nil {
		log.WithError(err).WithFields(logTags).Fatal("Failed to initialize HTTP handlers")
	}

	e := echo.New()
	e.HideBanner = true
	api.RegisterRoutes(e, handlers)

	// Serve until signaled
	go func() {
		if err := e.Start(":" + cfg.Port); err != nil {
			log.WithError(err).WithFields(logTags).Error("HTTP server stopped")
			cancel()
		}
	}()
	log.WithFields(logTags).WithField("port", cfg.Port).Info("Document vault serving")

	stop := make(chan os.Signal, 1)
	signal.Notify(stop, os.Interrupt, syscall.SIGTERM)
	select {
	case <-stop:
	case <-runtimeCtx.Done():
	}

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), time.Second*30)
	defer shutdownCancel()
	if err := reminders.Stop(shutdownCtx); err != nil {
		log.WithError(err).WithFields(logTags).Error("Reminder scheduler shutdown failed")
	}
	if err := e.Shutdown(shutdownCtx); err != nil {
		log.WithError(err).WithFields(logTags).Error("HTTP server shutdown failed")
	}
}
