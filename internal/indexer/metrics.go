package indexer

import (
	"sync"
	"time"

	"github.com/google/uuid"
)

// BatchMetrics describes one batch execution. Immutable once recorded.
type BatchMetrics struct {
	BatchID   string
	Size      int
	StartedAt time.Time
	EndedAt   time.Time
	Processed int
	Failed    int
}

// NewBatchMetrics stamps a fresh metrics record for a starting batch.
func NewBatchMetrics(size int) BatchMetrics {
	return BatchMetrics{
		BatchID:   uuid.NewString(),
		Size:      size,
		StartedAt: time.Now(),
	}
}

// Duration is the wall time of the batch.
func (m BatchMetrics) Duration() time.Duration {
	return m.EndedAt.Sub(m.StartedAt)
}

// Throughput is processed items per second. Zero-duration batches report 0.
func (m BatchMetrics) Throughput() float64 {
	d := m.Duration().Seconds()
	if d <= 0 {
		return 0
	}
	return float64(m.Processed) / d
}

// Trend classifies recent throughput movement.
type Trend string

const (
	TrendImproving Trend = "improving"
	TrendDegrading Trend = "degrading"
	TrendStable    Trend = "stable"
)

// sizeStats accumulates throughput per batch size.
type sizeStats struct {
	total float64
	n     int
}

// Collector keeps a bounded ring of batch metrics and derives an optimal
// batch size (highest average throughput per size) and a throughput trend.
type Collector struct {
	mu      sync.Mutex
	history []BatchMetrics // ring buffer, chronological via next/full
	next    int
	full    bool
	perSize map[int]*sizeStats
	window  int
}

// NewCollector creates a collector retaining the last capacity batches.
func NewCollector(capacity int) *Collector {
	if capacity <= 0 {
		capacity = 256
	}
	return &Collector{
		history: make([]BatchMetrics, capacity),
		perSize: make(map[int]*sizeStats),
		window:  20,
	}
}

// Record stores a completed batch.
func (c *Collector) Record(m BatchMetrics) {
	c.mu.Lock()
	defer c.mu.Unlock()

	c.history[c.next] = m
	c.next = (c.next + 1) % len(c.history)
	if c.next == 0 {
		c.full = true
	}

	st, ok := c.perSize[m.Size]
	if !ok {
		st = &sizeStats{}
		c.perSize[m.Size] = st
	}
	st.total += m.Throughput()
	st.n++
}

// recent returns up to n most recent metrics, oldest first. Caller holds mu.
func (c *Collector) recent(n int) []BatchMetrics {
	size := c.next
	if c.full {
		size = len(c.history)
	}
	if n > size {
		n = size
	}
	out := make([]BatchMetrics, 0, n)
	start := c.next - n
	if start < 0 {
		start += len(c.history)
	}
	for i := 0; i < n; i++ {
		out = append(out, c.history[(start+i)%len(c.history)])
	}
	return out
}

// History returns a chronological copy of retained metrics.
func (c *Collector) History() []BatchMetrics {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.recent(len(c.history))
}

// OptimalBatchSize recommends the size with the highest observed average
// throughput. Returns 0 before any batch completes.
func (c *Collector) OptimalBatchSize() int {
	c.mu.Lock()
	defer c.mu.Unlock()

	best, bestAvg := 0, -1.0
	for size, st := range c.perSize {
		avg := st.total / float64(st.n)
		if avg > bestAvg || (avg == bestAvg && size < best) {
			best, bestAvg = size, avg
		}
	}
	return best
}

// TrendOverWindow compares average throughput of the first half of the
// recent window against the second half: improving above 1.1x, degrading
// below 0.9x, stable otherwise (including with too few samples).
func (c *Collector) TrendOverWindow() Trend {
	c.mu.Lock()
	defer c.mu.Unlock()

	samples := c.recent(c.window)
	if len(samples) < 4 {
		return TrendStable
	}

	half := len(samples) / 2
	firstAvg := avgThroughput(samples[:half])
	secondAvg := avgThroughput(samples[half:])

	if firstAvg == 0 {
		return TrendStable
	}
	switch ratio := secondAvg / firstAvg; {
	case ratio > 1.1:
		return TrendImproving
	case ratio < 0.9:
		return TrendDegrading
	default:
		return TrendStable
	}
}

func avgThroughput(ms []BatchMetrics) float64 {
	if len(ms) == 0 {
		return 0
	}
	var total float64
	for _, m := range ms {
		total += m.Throughput()
	}
	return total / float64(len(ms))
}
