// Package scanner runs the periodic reminder due-scan and fans results out
// to the delivery bus.
package scanner

import (
	"context"
	"time"

	"github.com/rs/zerolog"

	"github.com/recallhq/recall/internal/events"
	"github.com/recallhq/recall/internal/model"
)

// Store is the slice of the record service the scanner needs.
type Store interface {
	DueReminders(ctx context.Context, now time.Time) ([]model.Reminder, error)
	MarkReminderSent(ctx context.Context, reminderID string) (bool, error)
}

// Config controls scan cadence and post-delivery behavior.
type Config struct {
	Interval time.Duration // poll interval
	MarkSent bool          // mark reminders sent after publishing
}

// Worker polls for due reminders and publishes each one to the bus exactly
// once per process lifetime. With MarkSent the sent flag is persisted after
// a successful publish, so the reminder stops surfacing across restarts too.
type Worker struct {
	store    Store
	bus      *events.Bus
	cfg      Config
	log      zerolog.Logger
	now      func() time.Time
	notified map[string]struct{}
}

// NewWorker constructs a Worker from dependencies.
func NewWorker(store Store, bus *events.Bus, cfg Config, log zerolog.Logger) *Worker {
	if cfg.Interval <= 0 {
		cfg.Interval = 30 * time.Second
	}
	return &Worker{
		store:    store,
		bus:      bus,
		cfg:      cfg,
		log:      log,
		now:      time.Now,
		notified: make(map[string]struct{}),
	}
}

// Run starts the polling loop until ctx is canceled.
func (w *Worker) Run(ctx context.Context) error {
	w.log.Info().Dur("interval", w.cfg.Interval).Bool("mark_sent", w.cfg.MarkSent).Msg("reminder scanner starting")
	ticker := time.NewTicker(w.cfg.Interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			w.log.Info().Msg("reminder scanner stopping")
			return ctx.Err()
		case <-ticker.C:
			if err := w.scanOnce(ctx); err != nil {
				// Log and keep polling; the store may recover.
				w.log.Error().Err(err).Msg("reminder scan failed")
			}
		}
	}
}

func (w *Worker) scanOnce(ctx context.Context) error {
	due, err := w.store.DueReminders(ctx, w.now())
	if err != nil {
		return err
	}

	for _, r := range due {
		if _, done := w.notified[r.ID]; done {
			continue
		}
		ok := w.bus.Publish(events.ReminderDue{
			RecordID:     r.RecordID,
			ReminderID:   r.ID,
			ScheduledFor: r.ScheduledFor,
			Message:      r.Message,
		})
		if !ok {
			// Bus full. Leave the reminder unnotified and retry next pass.
			w.log.Warn().Str("reminder_id", r.ID).Msg("delivery bus full, deferring")
			continue
		}
		w.notified[r.ID] = struct{}{}

		if w.cfg.MarkSent {
			if _, err := w.store.MarkReminderSent(ctx, r.ID); err != nil {
				w.log.Error().Err(err).Str("reminder_id", r.ID).Msg("mark sent failed")
			}
		}
	}
	return nil
}
