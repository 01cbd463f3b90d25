// Package scheduler records a daily clip snapshot for every user on a cron
// schedule and raises low clip alerts.
package scheduler

import (
	"context"
	"errors"
	"fmt"

	"github.com/robfig/cron/v3"
	"github.com/sirupsen/logrus"

	"moneyclip/internal/models"
)

// Refresher recalculates and stores one user's daily clip
type Refresher interface {
	Refresh(ctx context.Context, userID string, mode models.ClipMode) (*models.DailyClipResult, error)
}

// UserLister enumerates the users to snapshot
type UserLister interface {
	UserIDs(ctx context.Context) ([]string, error)
}

// Alerter is told about snapshots below the threshold
type Alerter interface {
	SendLowClipAlert(snap models.ClipSnapshot, threshold models.Money) error
}

// Scheduler runs snapshot jobs
type Scheduler struct {
	cron      *cron.Cron
	refresher Refresher
	users     UserLister
	alerter   Alerter
	threshold models.Money
	log       *logrus.Entry
}

// New creates a Scheduler. alerter may be nil; alerts are only sent for a
// positive threshold.
func New(refresher Refresher, users UserLister, alerter Alerter, threshold models.Money, log *logrus.Entry) *Scheduler {
	if log == nil {
		log = logrus.NewEntry(logrus.StandardLogger())
	}
	log = log.WithField("component", "scheduler")
	return &Scheduler{
		cron: cron.New(cron.WithLogger(cron.PrintfLogger(log)), cron.WithChain(
			cron.Recover(cron.PrintfLogger(log)),
			cron.SkipIfStillRunning(cron.PrintfLogger(log)),
		)),
		refresher: refresher,
		users:     users,
		alerter:   alerter,
		threshold: threshold,
		log:       log,
	}
}

// Start schedules RunOnce on spec and starts the cron loop
func (s *Scheduler) Start(spec string) error {
	_, err := s.cron.AddFunc(spec, func() {
		if err := s.RunOnce(context.Background()); err != nil {
			s.log.WithError(err).Warn("snapshot run finished with errors")
		}
	})
	if err != nil {
		return fmt.Errorf("invalid snapshot schedule %q: %w", spec, err)
	}
	s.cron.Start()
	s.log.WithField("schedule", spec).Info("snapshot scheduler started")
	return nil
}

// Stop halts the cron loop and waits for a running job
func (s *Scheduler) Stop() {
	<-s.cron.Stop().Done()
}

// RunOnce snapshots every known user. A failure for one user does not stop
// the others; the errors are joined.
func (s *Scheduler) RunOnce(ctx context.Context) error {
	users, err := s.users.UserIDs(ctx)
	if err != nil {
		return fmt.Errorf("list users: %w", err)
	}

	var errs []error
	for _, userID := range users {
		if err := ctx.Err(); err != nil {
			return err
		}
		log := s.log.WithField("user", userID)

		result, err := s.refresher.Refresh(ctx, userID, models.DefaultMode)
		if err != nil {
			log.WithError(err).Error("snapshot failed")
			errs = append(errs, fmt.Errorf("%s: %w", userID, err))
			continue
		}
		log.WithField("daily_clip", result.DailyClip.String()).Info("snapshot recorded")

		if s.shouldAlert(result) {
			snap := models.SnapshotOf(userID, result, result.CalculationDate.Time)
			if err := s.alerter.SendLowClipAlert(snap, s.threshold); err != nil {
				errs = append(errs, fmt.Errorf("%s: alert: %w", userID, err))
			}
		}
	}
	return errors.Join(errs...)
}

func (s *Scheduler) shouldAlert(r *models.DailyClipResult) bool {
	return s.alerter != nil && s.threshold.IsPositive() && r.DailyClip.LessThan(s.threshold.Decimal)
}
