// Package reminder periodically asks subscribers to retake the assessment.
package reminder

import (
	"context"
	"time"

	"go.uber.org/zap"

	"github.com/sells-group/privacy-assess/internal/config"
	"github.com/sells-group/privacy-assess/internal/model"
)

// batchSize is the page size used when listing due subscribers.
const batchSize = 100

// SubscriberStore is the store capability the scheduler needs.
type SubscriberStore interface {
	ListDueSubscribers(ctx context.Context, dueBefore time.Time, afterID string, limit int) ([]model.Subscriber, error)
	MarkReminded(ctx context.Context, id string, at time.Time) error
}

// Notifier delivers one reminder.
type Notifier interface {
	Notify(ctx context.Context, sub model.Subscriber) error
}

// Scheduler runs periodic reminder checks in the background.
type Scheduler struct {
	store    SubscriberStore
	notifier Notifier
	interval time.Duration
	every    time.Duration
	now      func() time.Time
}

// NewScheduler creates a reminder scheduler from the subscription config.
func NewScheduler(store SubscriberStore, notifier Notifier, cfg config.SubscriptionConfig) *Scheduler {
	interval := time.Duration(cfg.CheckIntervalSecs) * time.Second
	if interval <= 0 {
		interval = time.Hour
	}
	every := time.Duration(cfg.ReminderIntervalDays) * 24 * time.Hour
	if every <= 0 {
		every = 90 * 24 * time.Hour
	}
	return &Scheduler{
		store:    store,
		notifier: notifier,
		interval: interval,
		every:    every,
		now:      time.Now,
	}
}

// Run starts the periodic check loop. It blocks until ctx is cancelled.
func (s *Scheduler) Run(ctx context.Context) {
	log := zap.L().With(zap.String("component", "reminder.scheduler"))
	log.Info("starting reminder scheduler",
		zap.Duration("check_interval", s.interval),
		zap.Duration("reminder_interval", s.every),
	)

	ticker := time.NewTicker(s.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			log.Info("reminder scheduler stopped")
			return
		case <-ticker.C:
			s.RunOnce(ctx, log)
		}
	}
}

// RunOnce sends reminders to every subscriber currently due and returns how
// many were sent. Due subscribers are paged by id, so a run of failing
// deliveries at the head of the list does not hide the rest. A failed
// delivery leaves the subscriber due for the next tick.
func (s *Scheduler) RunOnce(ctx context.Context, log *zap.Logger) int {
	now := s.now().UTC()
	dueBefore := now.Add(-s.every)

	var cursor string
	due, sent, failed := 0, 0, 0
	for ctx.Err() == nil {
		page, err := s.store.ListDueSubscribers(ctx, dueBefore, cursor, batchSize)
		if err != nil {
			log.Error("reminder: failed to list due subscribers",
				zap.String("after", cursor),
				zap.Error(err),
			)
			break
		}
		due += len(page)

		for _, sub := range page {
			if ctx.Err() != nil {
				break
			}
			if s.remind(ctx, log, sub, now) {
				sent++
			} else {
				failed++
			}
		}

		if len(page) < batchSize {
			break
		}
		cursor = page[len(page)-1].ID
	}

	if due == 0 {
		log.Debug("reminder: nobody due")
		return 0
	}
	log.Info("reminder: check complete",
		zap.Int("due", due),
		zap.Int("sent", sent),
		zap.Int("failed", failed),
	)
	return sent
}

func (s *Scheduler) remind(ctx context.Context, log *zap.Logger, sub model.Subscriber, now time.Time) bool {
	if err := s.notifier.Notify(ctx, sub); err != nil {
		log.Error("reminder: failed to notify subscriber",
			zap.String("subscriber_id", sub.ID),
			zap.Error(err),
		)
		return false
	}
	if err := s.store.MarkReminded(ctx, sub.ID, now); err != nil {
		log.Error("reminder: failed to mark subscriber reminded",
			zap.String("subscriber_id", sub.ID),
			zap.Error(err),
		)
		return false
	}
	return true
}
