package quiz

import (
	"log/slog"
	"sync"

	engineerrors "github.com/hrygo/adaptiq/internal/errors"
	"github.com/hrygo/adaptiq/internal/observability"
	"github.com/hrygo/adaptiq/store"
)

// BucketStats aggregates pipeline outcomes for one difficulty bucket.
type BucketStats struct {
	// Requests counts generation calls issued to the LLM.
	Requests int64
	// Accepted counts items that survived the full pipeline.
	Accepted int64

	// Rejections by cause.
	RejectedValidation int64
	RejectedDuplicate  int64
	Transient          int64

	// LatencyMs is the cumulative generation call latency.
	LatencyMs int64
}

// AvgLatencyMs returns the mean generation call latency.
func (s BucketStats) AvgLatencyMs() float64 {
	if s.Requests == 0 {
		return 0
	}
	return float64(s.LatencyMs) / float64(s.Requests)
}

// Metrics tracks generation cost and yield across buckets. All methods are
// safe on a nil receiver, so an unconfigured pipeline pays nothing.
type Metrics struct {
	mu      sync.RWMutex
	buckets map[store.Difficulty]*BucketStats
}

func NewMetrics() *Metrics {
	return &Metrics{buckets: make(map[store.Difficulty]*BucketStats)}
}

func (m *Metrics) bucket(d store.Difficulty) *BucketStats {
	stats, ok := m.buckets[d]
	if !ok {
		stats = &BucketStats{}
		m.buckets[d] = stats
	}
	return stats
}

func (m *Metrics) recordRequest(d store.Difficulty, latencyMs int64) {
	if m == nil {
		return
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	stats := m.bucket(d)
	stats.Requests++
	stats.LatencyMs += latencyMs
}

func (m *Metrics) recordAccept(d store.Difficulty) {
	if m == nil {
		return
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	m.bucket(d).Accepted++
}

func (m *Metrics) recordRejection(d store.Difficulty, code engineerrors.ErrorCode) {
	if m == nil {
		return
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	stats := m.bucket(d)
	switch code {
	case engineerrors.ErrCodeValidationFailed:
		stats.RejectedValidation++
	case engineerrors.ErrCodeDuplicate:
		stats.RejectedDuplicate++
	default:
		stats.Transient++
	}
}

// Snapshot returns a copy of the per-bucket stats.
func (m *Metrics) Snapshot() map[store.Difficulty]BucketStats {
	if m == nil {
		return nil
	}
	m.mu.RLock()
	defer m.mu.RUnlock()
	out := make(map[store.Difficulty]BucketStats, len(m.buckets))
	for d, stats := range m.buckets {
		out[d] = *stats
	}
	return out
}

// LogSummary emits one line per bucket that saw traffic.
func (m *Metrics) LogSummary(log *observability.RequestContext) {
	snapshot := m.Snapshot()
	for _, d := range store.Difficulties {
		stats, ok := snapshot[d]
		if !ok || stats.Requests == 0 {
			continue
		}
		log.Info("generation stats",
			slog.String(observability.LogFieldDifficulty, string(d)),
			slog.Int64("requests", stats.Requests),
			slog.Int64("accepted", stats.Accepted),
			slog.Int64("rejected_validation", stats.RejectedValidation),
			slog.Int64("rejected_duplicate", stats.RejectedDuplicate),
			slog.Int64("transient", stats.Transient),
			slog.Float64("avg_latency_ms", stats.AvgLatencyMs()),
		)
	}
}
