package main

import (
	"context"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/jmoiron/sqlx"
	_ "github.com/lib/pq"
	"github.com/robfig/cron/v3"
	"github.com/sirupsen/logrus"

	"github.com/segyhp/lending-engine/internal/config"
	"github.com/segyhp/lending-engine/internal/logging"
	"github.com/segyhp/lending-engine/internal/notify"
	"github.com/segyhp/lending-engine/internal/repository"
	"github.com/segyhp/lending-engine/internal/service"
)

const reminderRunTimeout = 10 * time.Minute

func main() {
	// Load configuration
	cfg, err := config.Load()
	if err != nil {
		logrus.WithError(err).Fatal("Failed to load configuration")
	}

	logger := logging.New(cfg.Logging)
	logger.Info("Starting lending scheduler...")

	db, err := sqlx.Connect("postgres", cfg.Database.URL)
	if err != nil {
		logger.WithError(err).Fatal("Failed to initialize database")
	}
	defer db.Close()
	db.SetMaxOpenConns(cfg.Database.MaxOpenConns)
	db.SetMaxIdleConns(cfg.Database.MaxIdleConns)
	db.SetConnMaxLifetime(cfg.Database.ConnMaxLifetime)

	var notifier notify.Notifier = notify.Fanout{}
	if cfg.Email.Enabled {
		notifier = notify.NewEmailNotifier(cfg.Email, logger)
	} else {
		logger.Warn("EMAIL_ENABLED is off; reminders are not delivered")
	}

	job := service.NewReminderJob(
		repository.NewLoanRepository(db),
		notifier,
		cfg.Scheduler.ReminderLeadDays,
		cfg.GetSchedulerLocation(),
		logger,
	)

	// Initialize cron scheduler
	c := cron.New(cron.WithSeconds(), cron.WithLocation(cfg.GetSchedulerLocation()))

	if err := setupCronJobs(c, cfg, job, logger); err != nil {
		logger.WithError(err).Fatal("Error scheduling reminder job")
	}

	// Start the scheduler
	c.Start()
	logger.WithField("spec", cfg.Scheduler.ReminderSpec).Info("Scheduler started successfully")

	// Wait for interrupt signal to gracefully shutdown
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	logger.Info("Shutting down scheduler...")
	<-c.Stop().Done()
	logger.Info("Scheduler stopped")
}

func setupCronJobs(c *cron.Cron, cfg *config.Config, job *service.ReminderJob, logger logrus.FieldLogger) error {
	_, err := c.AddJob(cfg.Scheduler.ReminderSpec, cron.FuncJob(func() {
		ctx, cancel := context.WithTimeout(context.Background(), reminderRunTimeout)
		defer cancel()

		started := time.Now()
		sent, err := job.Run(ctx)
		entry := logger.WithFields(logrus.Fields{
			"sent":     sent,
			"duration": time.Since(started).String(),
		})
		if err != nil {
			entry.WithError(err).Error("Installment reminder run failed")
			return
		}
		entry.Info("Installment reminder run completed")
	}))
	return err
}
