package workflow

import (
	"context"
	"time"

	"github.com/jonboulle/clockwork"
	"github.com/robfig/cron/v3"
	"go.uber.org/zap"

	"github.com/qs-lzh/cinema-booking/internal/cache"
	"github.com/qs-lzh/cinema-booking/internal/mq"
	"github.com/qs-lzh/cinema-booking/internal/service/domain"
)

// notices are only sent for shows that started less than this long ago
const closedNoticeHorizon = 24 * time.Hour

type OnceMarker interface {
	MarkOnce(ctx context.Context, key string, ttl time.Duration) (bool, error)
}

var (
	_ OnceMarker = (*cache.RedisCache)(nil)
	_ OnceMarker = (*cache.LocalMarker)(nil)
)

// WaitlistWorkflow tells people still queued for a screen that the
// waiting list closed once the cancellation cutoff has passed.
// Entries stay in place, a late cancellation can still promote them.
type WaitlistWorkflow struct {
	catalog   domain.CatalogService
	waiting   domain.WaitingListService
	marker    OnceMarker
	publisher EventPublisher
	clock     clockwork.Clock
	cutoff    time.Duration
	logger    *zap.Logger

	cron *cron.Cron
}

func NewWaitlistWorkflow(catalog domain.CatalogService, waiting domain.WaitingListService, marker OnceMarker,
	publisher EventPublisher, clock clockwork.Clock, cutoff time.Duration, logger *zap.Logger) *WaitlistWorkflow {
	return &WaitlistWorkflow{
		catalog:   catalog,
		waiting:   waiting,
		marker:    marker,
		publisher: publisher,
		clock:     clock,
		cutoff:    cutoff,
		logger:    logger,
	}
}

func (w *WaitlistWorkflow) Start(schedule string) error {
	cronLog := cronLogger{w.logger.Sugar()}
	w.cron = cron.New(
		cron.WithLogger(cronLog),
		cron.WithChain(cron.SkipIfStillRunning(cronLog)),
	)

	if _, err := w.cron.AddFunc(schedule, func() {
		ctx, cancel := context.WithTimeout(context.Background(), time.Minute)
		defer cancel()
		if _, err := w.Sweep(ctx); err != nil {
			w.logger.Error("waitlist sweep failed", zap.Error(err))
		}
	}); err != nil {
		return err
	}

	w.cron.Start()
	w.logger.Info("waitlist sweep scheduled", zap.String("schedule", schedule))
	return nil
}

// Stop waits for a running sweep to finish.
func (w *WaitlistWorkflow) Stop() {
	if w.cron != nil {
		<-w.cron.Stop().Done()
	}
}

// Sweep sends one waitlist.closed notice per entry on every screen whose
// cutoff has passed and returns how many notices went out.
func (w *WaitlistWorkflow) Sweep(ctx context.Context) (int, error) {
	screens, err := w.catalog.ListAllScreens(ctx)
	if err != nil {
		return 0, err
	}

	now := w.clock.Now()
	sent := 0
	for _, screen := range screens {
		if !now.Add(w.cutoff).After(screen.ShowTime) || now.Sub(screen.ShowTime) > closedNoticeHorizon {
			continue
		}

		entries, err := w.waiting.List(ctx, &screen.ID)
		if err != nil {
			return sent, err
		}
		for _, entry := range entries {
			first, err := w.marker.MarkOnce(ctx, cache.MakeWaitlistClosedNoticeKey(entry.ID), 2*closedNoticeHorizon)
			if err != nil {
				return sent, err
			}
			if !first {
				continue
			}

			err = w.publisher.PublishEvent(ctx, mq.BookingEventMessage{
				Type:       mq.EventWaitlistClosed,
				ScreenID:   screen.ID,
				EntryID:    entry.ID,
				UserName:   entry.UserName,
				Message:    "Waiting list closed for " + screen.MovieName + ". No seat was freed before the cutoff.",
				OccurredAt: now,
			})
			if err != nil {
				w.logger.Warn("failed to publish waitlist closed notice",
					zap.Uint("entry_id", entry.ID), zap.Error(err))
				continue
			}
			sent++
		}
	}

	if sent > 0 {
		w.logger.Info("waitlist closed notices sent", zap.Int("count", sent))
	}
	return sent, nil
}

type cronLogger struct {
	s *zap.SugaredLogger
}

func (l cronLogger) Info(msg string, keysAndValues ...any) {
	l.s.Debugw(msg, keysAndValues...)
}

func (l cronLogger) Error(err error, msg string, keysAndValues ...any) {
	l.s.Errorw(msg, append(keysAndValues, "error", err)...)
}
