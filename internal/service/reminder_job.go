package service

import (
	"context"
	"fmt"
	"time"

	"github.com/sirupsen/logrus"

	"github.com/segyhp/lending-engine/internal/monitoring"
	"github.com/segyhp/lending-engine/internal/notify"
	"github.com/segyhp/lending-engine/internal/repository"
)

const (
	ReminderSent    = "sent"
	ReminderFailed  = "failed"
	ReminderSkipped = "skipped"
)

// ReminderJob notifies borrowers of PENDING installments falling due within
// the lead window.
type ReminderJob struct {
	loans    repository.LoanRepository
	notifier notify.Notifier
	leadDays int
	location *time.Location
	logger   logrus.FieldLogger
	now      func() time.Time
}

func NewReminderJob(
	loans repository.LoanRepository,
	notifier notify.Notifier,
	leadDays int,
	location *time.Location,
	logger logrus.FieldLogger,
) *ReminderJob {
	if location == nil {
		location = time.UTC
	}
	return &ReminderJob{
		loans:    loans,
		notifier: notifier,
		leadDays: leadDays,
		location: location,
		logger:   logger.WithField("job", "InstallmentReminder"),
		now:      time.Now,
	}
}

// Window returns the due-date range covered by a run at now: today in the
// job's location through leadDays later, both inclusive.
func (j *ReminderJob) Window(now time.Time) (time.Time, time.Time) {
	y, m, d := now.In(j.location).Date()
	from := time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
	return from, from.AddDate(0, 0, j.leadDays)
}

// Run sends one reminder per upcoming installment and returns how many were
// delivered. Individual delivery failures are counted, not returned.
func (j *ReminderJob) Run(ctx context.Context) (int, error) {
	start := time.Now()
	from, to := j.Window(j.now())
	logger := j.logger.WithFields(logrus.Fields{
		"from": from.Format(time.DateOnly),
		"to":   to.Format(time.DateOnly),
	})

	installments, err := j.loans.ListUpcomingInstallments(ctx, from, to)
	if err != nil {
		logger.WithError(err).Error("Failed to list upcoming installments")
		return 0, fmt.Errorf("list upcoming installments: %w", err)
	}

	var sent, failed, skipped int
	for _, inst := range installments {
		if err := ctx.Err(); err != nil {
			return sent, err
		}

		entry := logger.WithFields(logrus.Fields{
			"loan_id":            inst.LoanID,
			"installment_number": inst.InstallmentNumber,
		})
		if inst.BorrowerEmail == "" {
			skipped++
			monitoring.RecordReminder(ReminderSkipped)
			entry.Debug("No borrower contact, reminder skipped")
			continue
		}

		msg := notify.InstallmentReminder(inst)
		if err := j.notifier.Notify(ctx, inst.BorrowerEmail, msg.Subject, msg.Body); err != nil {
			failed++
			monitoring.RecordReminder(ReminderFailed)
			entry.WithError(err).Warn("Installment reminder failed")
			continue
		}
		sent++
		monitoring.RecordReminder(ReminderSent)
	}

	logger.WithFields(logrus.Fields{
		"found":       len(installments),
		"sent":        sent,
		"failed":      failed,
		"skipped":     skipped,
		"duration_ms": time.Since(start).Milliseconds(),
	}).Info("Installment reminder job finished")

	return sent, nil
}
