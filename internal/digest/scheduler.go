package digest

import (
	"context"
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/AdhubOrg/rebase-bot/internal/feed"
	"github.com/AdhubOrg/rebase-bot/internal/monitoring"
)

const (
	softWarnOffset = 30 * time.Minute
	hardWarnOffset = 10 * time.Minute
)

// Slot is one fixed time of day, in the configured timezone, at which the
// digest fires. Each slot implies two warning checkpoints at slot-30m and
// slot-10m.
type Slot struct {
	Hour   int
	Minute int
}

// String renders the slot as HH:MM
func (s Slot) String() string {
	return fmt.Sprintf("%02d:%02d", s.Hour, s.Minute)
}

// ParseSlot parses a HH:MM string into a Slot
func ParseSlot(raw string) (Slot, error) {
	parts := strings.SplitN(strings.TrimSpace(raw), ":", 2)
	if len(parts) != 2 {
		return Slot{}, fmt.Errorf("invalid slot %q: want HH:MM", raw)
	}
	hour, err := strconv.Atoi(parts[0])
	if err != nil || hour < 0 || hour > 23 {
		return Slot{}, fmt.Errorf("invalid slot hour in %q", raw)
	}
	minute, err := strconv.Atoi(parts[1])
	if err != nil || minute < 0 || minute > 59 {
		return Slot{}, fmt.Errorf("invalid slot minute in %q", raw)
	}
	return Slot{Hour: hour, Minute: minute}, nil
}

// Checkpoint identifies what a scheduler tick matched.
type Checkpoint int

const (
	CheckpointNone Checkpoint = iota
	CheckpointFire
	CheckpointSoftWarning
	CheckpointHardWarning
)

// String returns a readable checkpoint name
func (c Checkpoint) String() string {
	switch c {
	case CheckpointFire:
		return "fire"
	case CheckpointSoftWarning:
		return "soft_warning"
	case CheckpointHardWarning:
		return "hard_warning"
	default:
		return "none"
	}
}

// Publisher delivers digest output and warnings to the team channel.
type Publisher interface {
	PublishDigest(ctx context.Context, sum Summary) error
	PublishWarning(ctx context.Context, checkpoint Checkpoint, slot Slot) error
}

// Scheduler polls the wall clock once per minute and fires the warning and
// digest checkpoints for each configured slot. It is the only component that
// drains the buffer in the normal path; the manual trigger reuses the same
// routine. No "last fired" marker is persisted — missed windows are covered
// by the backfill reconciler after restart.
type Scheduler struct {
	slots    []Slot
	loc      *time.Location
	buffer   *feed.Buffer
	renderer *Renderer
	pub      Publisher
	logger   *monitoring.Logger
	metrics  *monitoring.Metrics

	now      func() time.Time
	interval time.Duration
}

// NewScheduler creates a digest scheduler for the given slots.
func NewScheduler(slots []Slot, loc *time.Location, buffer *feed.Buffer, renderer *Renderer, pub Publisher, logger *monitoring.Logger, metrics *monitoring.Metrics) *Scheduler {
	if loc == nil {
		loc = time.UTC
	}
	return &Scheduler{
		slots:    slots,
		loc:      loc,
		buffer:   buffer,
		renderer: renderer,
		pub:      pub,
		logger:   logger,
		metrics:  metrics,
		now:      time.Now,
		interval: time.Minute,
	}
}

// Slots returns the configured schedule slots
func (s *Scheduler) Slots() []Slot {
	return s.slots
}

// Run polls until the context is canceled. Buffered-but-undrained events are
// left in memory on shutdown.
func (s *Scheduler) Run(ctx context.Context) {
	ticker := time.NewTicker(s.interval)
	defer ticker.Stop()

	s.logger.SystemLogger("scheduler_started", fmt.Sprintf("%d slots, tz=%s", len(s.slots), s.loc.String()))

	for {
		select {
		case <-ctx.Done():
			s.logger.SystemLogger("scheduler_stopped", fmt.Sprintf("%d events still buffered", s.buffer.Len()))
			return
		case <-ticker.C:
			s.tick(ctx, s.now())
		}
	}
}

// tick evaluates one wall-clock minute. At most one checkpoint fires per
// tick so adjacent slots cannot double-fire.
func (s *Scheduler) tick(ctx context.Context, now time.Time) {
	checkpoint, slot := s.evaluate(now)
	switch checkpoint {
	case CheckpointFire:
		s.runDigest(ctx, now, false)
	case CheckpointSoftWarning, CheckpointHardWarning:
		s.sendWarning(ctx, checkpoint, slot)
	}
}

// evaluate finds the first checkpoint matching now's wall-clock minute,
// scanning slots in configured order and checking the fire time before the
// warnings. No match is the expected steady state, not an error.
func (s *Scheduler) evaluate(now time.Time) (Checkpoint, Slot) {
	local := now.In(s.loc)

	for _, slot := range s.slots {
		base := time.Date(2000, 1, 2, slot.Hour, slot.Minute, 0, 0, time.UTC)

		if minuteMatches(local, base) {
			return CheckpointFire, slot
		}
		if minuteMatches(local, base.Add(-softWarnOffset)) {
			return CheckpointSoftWarning, slot
		}
		if minuteMatches(local, base.Add(-hardWarnOffset)) {
			return CheckpointHardWarning, slot
		}
	}

	return CheckpointNone, Slot{}
}

// minuteMatches compares only the time-of-day minute, so warning offsets
// that cross midnight still line up.
func minuteMatches(t time.Time, ref time.Time) bool {
	return t.Hour() == ref.Hour() && t.Minute() == ref.Minute()
}

// runDigest drains the buffer, renders and publishes. A delivery failure is
// logged and counted; the drained events are not re-queued (accepted loss
// boundary, same as a hard restart).
func (s *Scheduler) runDigest(ctx context.Context, now time.Time, manual bool) Summary {
	start := time.Now()

	drained := s.buffer.DrainAll()
	sum := s.renderer.Render(drained, now.In(s.loc))
	sum.Manual = manual

	if err := s.pub.PublishDigest(ctx, sum); err != nil {
		s.metrics.IncrementDeliveryError()
		s.logger.Error("Digest delivery failed", "error", err.Error(), "events", len(drained))
		return sum
	}

	s.metrics.IncrementDigestSent()
	s.logger.DigestLogger(len(drained), manual, time.Since(start))
	return sum
}

func (s *Scheduler) sendWarning(ctx context.Context, checkpoint Checkpoint, slot Slot) {
	if err := s.pub.PublishWarning(ctx, checkpoint, slot); err != nil {
		s.metrics.IncrementDeliveryError()
		s.logger.Error("Warning delivery failed", "error", err.Error(), "checkpoint", checkpoint.String())
		return
	}

	s.metrics.IncrementWarningSent()
	s.logger.WarningLogger(checkpoint.String(), slot.String())
}

// TriggerNow runs the digest routine immediately, outside the schedule.
func (s *Scheduler) TriggerNow(ctx context.Context) Summary {
	return s.runDigest(ctx, s.now(), true)
}

// Preview renders the upcoming digest from a non-destructive buffer snapshot.
func (s *Scheduler) Preview() Summary {
	sum := s.renderer.Render(s.buffer.PeekAll(), s.now().In(s.loc))
	sum.Manual = true
	return sum
}

// LastBoundary returns the most recent slot time at or before now, in UTC.
// The backfill reconciler uses it as its replay cutoff.
func (s *Scheduler) LastBoundary(now time.Time) time.Time {
	local := now.In(s.loc)

	var best time.Time
	for _, slot := range s.slots {
		candidate := time.Date(local.Year(), local.Month(), local.Day(), slot.Hour, slot.Minute, 0, 0, s.loc)
		if candidate.After(local) {
			candidate = candidate.AddDate(0, 0, -1)
		}
		if candidate.After(best) {
			best = candidate
		}
	}

	if best.IsZero() {
		// No slots configured: fall back to one day of history.
		return now.UTC().Add(-24 * time.Hour)
	}
	return best.UTC()
}
