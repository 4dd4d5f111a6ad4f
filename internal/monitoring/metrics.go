package monitoring

import (
	"sync"
	"sync/atomic"
	"time"
)

// Metrics holds application metrics
type Metrics struct {
	RequestCount int64
	ErrorCount   int64
	StartTime    time.Time

	// Ingestion metrics
	EventsBuffered    int64
	ParseMisses       int64
	WebhookDeliveries int64
	WebhookIgnored    int64
	BackfillEvents    int64
	DuplicatesSkipped int64

	// Digest metrics
	DigestsSent    int64
	WarningsSent   int64
	DeliveryErrors int64

	// Rate limit metrics
	RateLimitBlocks int64

	// External API metrics
	ExternalAPIRequests   map[string]int64
	ExternalAPIErrorCount map[string]int64
	ExternalAPIMutex      sync.RWMutex

	// Cache metrics
	CacheHits   int64
	CacheMisses int64

	// Response time tracking
	ResponseTimes      []time.Duration
	ResponseTimesMutex sync.RWMutex

	// Status code tracking
	RequestCountByStatus map[int]int64
	StatusMutex          sync.RWMutex
}

// NewMetrics creates a new metrics instance
func NewMetrics() *Metrics {
	return &Metrics{
		StartTime:             time.Now(),
		ResponseTimes:         make([]time.Duration, 0, 1000),
		RequestCountByStatus:  make(map[int]int64),
		ExternalAPIRequests:   make(map[string]int64),
		ExternalAPIErrorCount: make(map[string]int64),
	}
}

// IncrementRequest increments the request counter
func (m *Metrics) IncrementRequest() {
	atomic.AddInt64(&m.RequestCount, 1)
}

// IncrementError increments the error counter
func (m *Metrics) IncrementError() {
	atomic.AddInt64(&m.ErrorCount, 1)
}

// IncrementEventBuffered increments the buffered event counter
func (m *Metrics) IncrementEventBuffered() {
	atomic.AddInt64(&m.EventsBuffered, 1)
}

// IncrementParseMiss increments the parse miss counter
func (m *Metrics) IncrementParseMiss() {
	atomic.AddInt64(&m.ParseMisses, 1)
}

// IncrementWebhookDelivery increments the webhook delivery counter
func (m *Metrics) IncrementWebhookDelivery() {
	atomic.AddInt64(&m.WebhookDeliveries, 1)
}

// IncrementWebhookIgnored increments the ignored webhook counter
func (m *Metrics) IncrementWebhookIgnored() {
	atomic.AddInt64(&m.WebhookIgnored, 1)
}

// IncrementBackfillEvent increments the backfilled event counter
func (m *Metrics) IncrementBackfillEvent() {
	atomic.AddInt64(&m.BackfillEvents, 1)
}

// IncrementDuplicateSkipped increments the duplicate message counter
func (m *Metrics) IncrementDuplicateSkipped() {
	atomic.AddInt64(&m.DuplicatesSkipped, 1)
}

// IncrementDigestSent increments the digest counter
func (m *Metrics) IncrementDigestSent() {
	atomic.AddInt64(&m.DigestsSent, 1)
}

// IncrementWarningSent increments the warning counter
func (m *Metrics) IncrementWarningSent() {
	atomic.AddInt64(&m.WarningsSent, 1)
}

// IncrementDeliveryError increments the delivery error counter
func (m *Metrics) IncrementDeliveryError() {
	atomic.AddInt64(&m.DeliveryErrors, 1)
}

// IncrementRateLimitBlock increments the rate limit block counter
func (m *Metrics) IncrementRateLimitBlock() {
	atomic.AddInt64(&m.RateLimitBlocks, 1)
}

// IncrementCacheHit increments the cache hit counter
func (m *Metrics) IncrementCacheHit() {
	atomic.AddInt64(&m.CacheHits, 1)
}

// IncrementCacheMiss increments the cache miss counter
func (m *Metrics) IncrementCacheMiss() {
	atomic.AddInt64(&m.CacheMisses, 1)
}

// RecordExternalAPICall records a call to an external API
func (m *Metrics) RecordExternalAPICall(apiName string, success bool) {
	m.ExternalAPIMutex.Lock()
	defer m.ExternalAPIMutex.Unlock()

	m.ExternalAPIRequests[apiName]++
	if !success {
		m.ExternalAPIErrorCount[apiName]++
	}
}

// RecordResponseTime records a response time sample
func (m *Metrics) RecordResponseTime(duration time.Duration) {
	m.ResponseTimesMutex.Lock()
	defer m.ResponseTimesMutex.Unlock()

	// Keep a bounded sliding window of samples
	if len(m.ResponseTimes) >= 1000 {
		m.ResponseTimes = m.ResponseTimes[1:]
	}
	m.ResponseTimes = append(m.ResponseTimes, duration)
}

// RecordRequestByStatus records a request by status code
func (m *Metrics) RecordRequestByStatus(statusCode int) {
	m.StatusMutex.Lock()
	defer m.StatusMutex.Unlock()

	m.RequestCountByStatus[statusCode]++
}

// GetStats returns a snapshot of current metrics
func (m *Metrics) GetStats() map[string]interface{} {
	m.ExternalAPIMutex.RLock()
	externalRequests := make(map[string]int64, len(m.ExternalAPIRequests))
	for k, v := range m.ExternalAPIRequests {
		externalRequests[k] = v
	}
	externalErrors := make(map[string]int64, len(m.ExternalAPIErrorCount))
	for k, v := range m.ExternalAPIErrorCount {
		externalErrors[k] = v
	}
	m.ExternalAPIMutex.RUnlock()

	m.StatusMutex.RLock()
	byStatus := make(map[int]int64, len(m.RequestCountByStatus))
	for k, v := range m.RequestCountByStatus {
		byStatus[k] = v
	}
	m.StatusMutex.RUnlock()

	return map[string]interface{}{
		"uptime_seconds":      time.Since(m.StartTime).Seconds(),
		"request_count":       atomic.LoadInt64(&m.RequestCount),
		"error_count":         atomic.LoadInt64(&m.ErrorCount),
		"events_buffered":     atomic.LoadInt64(&m.EventsBuffered),
		"parse_misses":        atomic.LoadInt64(&m.ParseMisses),
		"webhook_deliveries":  atomic.LoadInt64(&m.WebhookDeliveries),
		"webhook_ignored":     atomic.LoadInt64(&m.WebhookIgnored),
		"backfill_events":     atomic.LoadInt64(&m.BackfillEvents),
		"duplicates_skipped":  atomic.LoadInt64(&m.DuplicatesSkipped),
		"digests_sent":        atomic.LoadInt64(&m.DigestsSent),
		"warnings_sent":       atomic.LoadInt64(&m.WarningsSent),
		"delivery_errors":     atomic.LoadInt64(&m.DeliveryErrors),
		"rate_limit_blocks":   atomic.LoadInt64(&m.RateLimitBlocks),
		"cache_hits":          atomic.LoadInt64(&m.CacheHits),
		"cache_misses":        atomic.LoadInt64(&m.CacheMisses),
		"external_api_calls":  externalRequests,
		"external_api_errors": externalErrors,
		"requests_by_status":  byStatus,
		"avg_response_ms":     m.averageResponseMillis(),
	}
}

func (m *Metrics) averageResponseMillis() float64 {
	m.ResponseTimesMutex.RLock()
	defer m.ResponseTimesMutex.RUnlock()

	if len(m.ResponseTimes) == 0 {
		return 0
	}
	var total time.Duration
	for _, d := range m.ResponseTimes {
		total += d
	}
	return float64(total.Milliseconds()) / float64(len(m.ResponseTimes))
}
