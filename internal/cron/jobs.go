package cron

import (
	"context"
	"fmt"
	"time"

	"github.com/angelmondragon/packdrop-backend/pkg/logger"
)

const defaultBatch = 100

type holdReleaser interface {
	ReleaseDue(ctx context.Context, now time.Time, limit int) (int, error)
}

type readyReminder interface {
	SendReadyReminders(ctx context.Context, now time.Time, after time.Duration, limit int) (int, error)
}

// AutoReleaseJob releases held wallet balances of completed orders once their
// auto-release date passes.
type AutoReleaseJob struct {
	logg     *logger.Logger
	releaser holdReleaser
	batch    int
	now      func() time.Time
}

func NewAutoReleaseJob(logg *logger.Logger, releaser holdReleaser, batch int) (*AutoReleaseJob, error) {
	if logg == nil {
		return nil, fmt.Errorf("logger required")
	}
	if releaser == nil {
		return nil, fmt.Errorf("hold releaser required")
	}
	if batch <= 0 {
		batch = defaultBatch
	}
	return &AutoReleaseJob{
		logg:     logg,
		releaser: releaser,
		batch:    batch,
		now:      func() time.Time { return time.Now().UTC() },
	}, nil
}

func (j *AutoReleaseJob) Name() string { return "escrow-auto-release" }

// Run drains due holds a batch at a time. A batch that comes back short means
// nothing else is due; a partially failed batch ends the run so the same
// failing holds are not retried in a tight loop.
func (j *AutoReleaseJob) Run(ctx context.Context) error {
	now := j.now()
	total := 0
	for {
		released, err := j.releaser.ReleaseDue(ctx, now, j.batch)
		total += released
		if err != nil {
			j.logg.Info(j.logg.WithField(ctx, "released", total), "auto-release stopped on error")
			return err
		}
		if released < j.batch {
			break
		}
		if ctx.Err() != nil {
			return ctx.Err()
		}
	}
	if total > 0 {
		j.logg.Info(j.logg.WithField(ctx, "released", total), "held balances auto-released")
	}
	return nil
}

// ReadyReminderJob nudges vendors and drivers about orders that have sat
// ready for pickup longer than after.
type ReadyReminderJob struct {
	logg     *logger.Logger
	reminder readyReminder
	after    time.Duration
	batch    int
	now      func() time.Time
}

func NewReadyReminderJob(logg *logger.Logger, reminder readyReminder, after time.Duration, batch int) (*ReadyReminderJob, error) {
	if logg == nil {
		return nil, fmt.Errorf("logger required")
	}
	if reminder == nil {
		return nil, fmt.Errorf("ready reminder required")
	}
	if after <= 0 {
		return nil, fmt.Errorf("reminder delay must be positive")
	}
	if batch <= 0 {
		batch = defaultBatch
	}
	return &ReadyReminderJob{
		logg:     logg,
		reminder: reminder,
		after:    after,
		batch:    batch,
		now:      func() time.Time { return time.Now().UTC() },
	}, nil
}

func (j *ReadyReminderJob) Name() string { return "order-ready-reminder" }

func (j *ReadyReminderJob) Run(ctx context.Context) error {
	sent, err := j.reminder.SendReadyReminders(ctx, j.now(), j.after, j.batch)
	if sent > 0 {
		j.logg.Info(j.logg.WithField(ctx, "sent", sent), "ready reminders sent")
	}
	return err
}
