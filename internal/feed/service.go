package feed

import (
	"sync"

	"github.com/AdhubOrg/rebase-bot/internal/delivery"
	"github.com/AdhubOrg/rebase-bot/internal/monitoring"
)

// seenLimit bounds the deduplication set. Old message IDs are evicted in
// FIFO order once the limit is reached.
const seenLimit = 2048

// Service is the live ingestion path for the feed channel: it filters
// messages down to bot-authored embeds, parses them, and appends the results
// to the event buffer. Backfill feeds historic messages through the same
// path so the shared seen-ID set deduplicates the backfill/live overlap.
type Service struct {
	buffer    *Buffer
	channelID string
	logger    *monitoring.Logger
	metrics   *monitoring.Metrics

	mu        sync.Mutex
	seen      map[string]struct{}
	seenOrder []string
}

// NewService creates the feed ingestion service for one channel
func NewService(buffer *Buffer, channelID string, logger *monitoring.Logger, metrics *monitoring.Metrics) *Service {
	return &Service{
		buffer:    buffer,
		channelID: channelID,
		logger:    logger,
		metrics:   metrics,
		seen:      make(map[string]struct{}),
	}
}

// Buffer returns the event buffer the service appends to
func (s *Service) Buffer() *Buffer {
	return s.buffer
}

// ChannelID returns the configured feed channel
func (s *Service) ChannelID() string {
	return s.channelID
}

// HandleMessage processes one live message and returns the number of events
// buffered from it. Messages outside the feed channel or not authored by the
// integration bot are skipped.
func (s *Service) HandleMessage(msg delivery.Message) int {
	if s.channelID != "" && msg.ChannelID != s.channelID {
		return 0
	}
	return s.IngestHistoric(msg)
}

// IngestHistoric feeds one (possibly historic) message through the ingestion
// path. The backfill reconciler has already scoped its fetch to the feed
// channel, so no channel filter is applied here.
func (s *Service) IngestHistoric(msg delivery.Message) int {
	if !msg.Bot || len(msg.Embeds) == 0 {
		return 0
	}

	if !s.markSeen(msg.ID) {
		s.metrics.IncrementDuplicateSkipped()
		return 0
	}

	buffered := 0
	for _, embed := range msg.Embeds {
		ev := Parse(embed)
		if ev == nil {
			s.metrics.IncrementParseMiss()
			s.logger.ParseMissLogger(embed.Title)
			continue
		}

		// The message's original post time beats the parse time; it is
		// what keeps backfilled events in their real order.
		if !msg.CreatedAt.IsZero() {
			ev.Timestamp = msg.CreatedAt.UTC()
		}

		s.buffer.Append(*ev)
		s.metrics.IncrementEventBuffered()
		s.logger.EventLogger(string(ev.Kind), ev.Repo, ev.Sender, "embed")
		buffered++
	}

	return buffered
}

// markSeen records a message ID, returning false if it was already seen
func (s *Service) markSeen(id string) bool {
	if id == "" {
		return true
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if _, dup := s.seen[id]; dup {
		return false
	}

	s.seen[id] = struct{}{}
	s.seenOrder = append(s.seenOrder, id)
	if len(s.seenOrder) > seenLimit {
		oldest := s.seenOrder[0]
		s.seenOrder = s.seenOrder[1:]
		delete(s.seen, oldest)
	}
	return true
}

// Status describes the feed for the status surface
type Status struct {
	ChannelID string `json:"channel_id"`
	Buffered  int    `json:"buffered"`
}

// Status returns the current feed status
func (s *Service) Status() Status {
	return Status{
		ChannelID: s.channelID,
		Buffered:  s.buffer.Len(),
	}
}
