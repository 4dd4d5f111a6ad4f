package digest

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/AdhubOrg/rebase-bot/internal/events"
	"github.com/AdhubOrg/rebase-bot/internal/feed"
	"github.com/AdhubOrg/rebase-bot/internal/monitoring"
)

type publishedWarning struct {
	checkpoint Checkpoint
	slot       Slot
	at         time.Time
}

type fakePublisher struct {
	digests  []Summary
	warnings []publishedWarning
	err      error

	clock func() time.Time
}

func (f *fakePublisher) PublishDigest(_ context.Context, sum Summary) error {
	if f.err != nil {
		return f.err
	}
	f.digests = append(f.digests, sum)
	return nil
}

func (f *fakePublisher) PublishWarning(_ context.Context, checkpoint Checkpoint, slot Slot) error {
	if f.err != nil {
		return f.err
	}
	w := publishedWarning{checkpoint: checkpoint, slot: slot}
	if f.clock != nil {
		w.at = f.clock()
	}
	f.warnings = append(f.warnings, w)
	return nil
}

func newTestScheduler(slots []Slot, pub Publisher) (*Scheduler, *feed.Buffer) {
	buffer := feed.NewBuffer()
	s := NewScheduler(slots, time.UTC, buffer, NewRenderer("dev"), pub, monitoring.NewLogger(), monitoring.NewMetrics())
	return s, buffer
}

func TestParseSlot(t *testing.T) {
	tests := []struct {
		raw     string
		want    Slot
		wantErr bool
	}{
		{raw: "12:00", want: Slot{12, 0}},
		{raw: "18:30", want: Slot{18, 30}},
		{raw: " 09:05 ", want: Slot{9, 5}},
		{raw: "24:00", wantErr: true},
		{raw: "12:60", wantErr: true},
		{raw: "noon", wantErr: true},
		{raw: "12", wantErr: true},
	}

	for _, tt := range tests {
		t.Run(tt.raw, func(t *testing.T) {
			slot, err := ParseSlot(tt.raw)
			if tt.wantErr {
				assert.Error(t, err)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.want, slot)
		})
	}
}

// Simulate a full day of minute ticks against one 18:00 slot: exactly one
// soft warning at 17:30, one hard warning at 17:50 and one digest at 18:00.
func TestSchedulerFullDay(t *testing.T) {
	pub := &fakePublisher{}
	var current time.Time
	pub.clock = func() time.Time { return current }

	s, buffer := newTestScheduler([]Slot{{18, 0}}, pub)
	buffer.Append(events.Event{Kind: events.KindIssue, Number: 1, Title: "x", Action: "opened"})

	start := time.Date(2026, 8, 24, 0, 0, 0, 0, time.UTC)
	for m := 0; m < 24*60; m++ {
		current = start.Add(time.Duration(m) * time.Minute)
		s.tick(context.Background(), current)
	}

	require.Len(t, pub.digests, 1)
	require.Len(t, pub.warnings, 2)

	assert.Equal(t, CheckpointSoftWarning, pub.warnings[0].checkpoint)
	assert.Equal(t, time.Date(2026, 8, 24, 17, 30, 0, 0, time.UTC), pub.warnings[0].at)
	assert.Equal(t, CheckpointHardWarning, pub.warnings[1].checkpoint)
	assert.Equal(t, time.Date(2026, 8, 24, 17, 50, 0, 0, time.UTC), pub.warnings[1].at)
	assert.Equal(t, Slot{18, 0}, pub.warnings[0].slot)

	assert.Equal(t, 0, buffer.Len(), "fire drains the buffer")
	assert.Equal(t, 1, pub.digests[0].Issues)
	assert.False(t, pub.digests[0].Manual)
}

func TestSchedulerTwoSlots(t *testing.T) {
	pub := &fakePublisher{}
	s, _ := newTestScheduler([]Slot{{12, 0}, {18, 0}}, pub)

	start := time.Date(2026, 8, 24, 0, 0, 0, 0, time.UTC)
	for m := 0; m < 24*60; m++ {
		s.tick(context.Background(), start.Add(time.Duration(m)*time.Minute))
	}

	assert.Len(t, pub.digests, 2)
	assert.Len(t, pub.warnings, 4)
}

// A midnight slot's warnings land on the previous calendar day.
func TestSchedulerMidnightWraparound(t *testing.T) {
	pub := &fakePublisher{}
	s, _ := newTestScheduler([]Slot{{0, 15}}, pub)

	cp, slot := s.evaluate(time.Date(2026, 8, 23, 23, 45, 0, 0, time.UTC))
	assert.Equal(t, CheckpointSoftWarning, cp)
	assert.Equal(t, Slot{0, 15}, slot)

	cp, _ = s.evaluate(time.Date(2026, 8, 24, 0, 5, 0, 0, time.UTC))
	assert.Equal(t, CheckpointHardWarning, cp)

	cp, _ = s.evaluate(time.Date(2026, 8, 24, 0, 15, 0, 0, time.UTC))
	assert.Equal(t, CheckpointFire, cp)
}

func TestSchedulerTimezone(t *testing.T) {
	loc := time.FixedZone("PHT", 8*3600)
	pub := &fakePublisher{}
	buffer := feed.NewBuffer()
	s := NewScheduler([]Slot{{18, 0}}, loc, buffer, NewRenderer("dev"), pub, monitoring.NewLogger(), monitoring.NewMetrics())

	// 10:00 UTC is 18:00 in the configured zone.
	cp, _ := s.evaluate(time.Date(2026, 8, 24, 10, 0, 0, 0, time.UTC))
	assert.Equal(t, CheckpointFire, cp)

	cp, _ = s.evaluate(time.Date(2026, 8, 24, 18, 0, 0, 0, time.UTC))
	assert.Equal(t, CheckpointNone, cp)
}

func TestTriggerNowBypassesSchedule(t *testing.T) {
	pub := &fakePublisher{}
	s, buffer := newTestScheduler([]Slot{{18, 0}}, pub)
	buffer.Append(events.Event{Kind: events.KindRelease, Tag: "v1.0.0", Action: "published"})

	sum := s.TriggerNow(context.Background())

	assert.True(t, sum.Manual)
	assert.Equal(t, 1, sum.Releases)
	assert.Equal(t, 0, buffer.Len())
	require.Len(t, pub.digests, 1)
	assert.True(t, pub.digests[0].Manual)
}

func TestPreviewDoesNotDrain(t *testing.T) {
	pub := &fakePublisher{}
	s, buffer := newTestScheduler([]Slot{{18, 0}}, pub)
	buffer.Append(events.Event{Kind: events.KindIssue, Number: 1, Title: "x", Action: "opened"})

	sum := s.Preview()

	assert.Equal(t, 1, sum.Issues)
	assert.True(t, sum.Manual)
	assert.Equal(t, 1, buffer.Len())
	assert.Empty(t, pub.digests)
}

func TestDigestDeliveryFailureDropsEvents(t *testing.T) {
	pub := &fakePublisher{err: errors.New("channel unavailable")}
	s, buffer := newTestScheduler([]Slot{{18, 0}}, pub)
	buffer.Append(events.Event{Kind: events.KindIssue, Number: 1, Title: "x", Action: "opened"})

	s.runDigest(context.Background(), time.Now(), false)

	// Accepted loss boundary: drained events are not re-queued.
	assert.Equal(t, 0, buffer.Len())
	assert.Empty(t, pub.digests)
}

func TestLastBoundary(t *testing.T) {
	pub := &fakePublisher{}
	s, _ := newTestScheduler([]Slot{{12, 0}, {18, 0}}, pub)

	tests := []struct {
		name string
		now  time.Time
		want time.Time
	}{
		{
			name: "afternoon falls back to noon",
			now:  time.Date(2026, 8, 24, 15, 0, 0, 0, time.UTC),
			want: time.Date(2026, 8, 24, 12, 0, 0, 0, time.UTC),
		},
		{
			name: "evening falls back to 18:00",
			now:  time.Date(2026, 8, 24, 23, 30, 0, 0, time.UTC),
			want: time.Date(2026, 8, 24, 18, 0, 0, 0, time.UTC),
		},
		{
			name: "early morning reaches back to yesterday",
			now:  time.Date(2026, 8, 24, 6, 0, 0, 0, time.UTC),
			want: time.Date(2026, 8, 23, 18, 0, 0, 0, time.UTC),
		},
		{
			name: "exactly on a slot counts as that slot",
			now:  time.Date(2026, 8, 24, 12, 0, 0, 0, time.UTC),
			want: time.Date(2026, 8, 24, 12, 0, 0, 0, time.UTC),
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, s.LastBoundary(tt.now))
		})
	}
}

func TestLastBoundaryNoSlots(t *testing.T) {
	pub := &fakePublisher{}
	s, _ := newTestScheduler(nil, pub)

	now := time.Date(2026, 8, 24, 6, 0, 0, 0, time.UTC)
	assert.Equal(t, now.Add(-24*time.Hour), s.LastBoundary(now))
}
