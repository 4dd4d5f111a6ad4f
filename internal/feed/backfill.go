package feed

import (
	"context"
	"sync"
	"time"

	"github.com/AdhubOrg/rebase-bot/internal/delivery"
	"github.com/AdhubOrg/rebase-bot/internal/monitoring"
)

// backfillLimit caps how many historic messages one backfill pass fetches.
const backfillLimit = 200

// HistorySource fetches prior messages from the ingestion channel. The chat
// REST client satisfies it.
type HistorySource interface {
	History(ctx context.Context, channelID string, after time.Time, limit int) ([]delivery.Message, error)
}

// Reconciler replays channel history since the last scheduled digest
// boundary to recover events missed while the process was down. It runs at
// most once per process lifetime; a failed history fetch is logged and
// degrades to a no-op rather than retrying.
type Reconciler struct {
	feed     *Service
	source   HistorySource
	boundary func(time.Time) time.Time
	logger   *monitoring.Logger
	metrics  *monitoring.Metrics

	once sync.Once
}

// NewReconciler creates a backfill reconciler. boundary maps "now" to the
// most recent past digest slot time.
func NewReconciler(feed *Service, source HistorySource, boundary func(time.Time) time.Time, logger *monitoring.Logger, metrics *monitoring.Metrics) *Reconciler {
	return &Reconciler{
		feed:     feed,
		source:   source,
		boundary: boundary,
		logger:   logger,
		metrics:  metrics,
	}
}

// Run performs the one-shot backfill. Calling it again is a no-op.
func (r *Reconciler) Run(ctx context.Context) {
	r.once.Do(func() {
		r.run(ctx)
	})
}

func (r *Reconciler) run(ctx context.Context) {
	channelID := r.feed.ChannelID()
	if channelID == "" {
		r.logger.SystemLogger("backfill_skipped", "no feed channel configured")
		return
	}

	cutoff := r.boundary(time.Now())
	r.logger.SystemLogger("backfill_started", "replaying history since "+cutoff.Format(time.RFC3339))

	messages, err := r.source.History(ctx, channelID, cutoff, backfillLimit)
	if err != nil {
		r.logger.Error("Backfill history fetch failed", "error", err.Error())
		return
	}

	recovered := 0
	for _, msg := range messages {
		n := r.feed.IngestHistoric(msg)
		for i := 0; i < n; i++ {
			r.metrics.IncrementBackfillEvent()
		}
		recovered += n
	}

	r.logger.BackfillLogger(recovered, cutoff)
}
