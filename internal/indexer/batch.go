package indexer

import (
	"runtime"
	"sync"
)

// Load thresholds for the hysteresis controller.
const (
	loadGrowBelow   = 0.5
	loadShrinkAbove = 0.8
)

// LoadSampler reports current system load normalized to [0, 1].
type LoadSampler interface {
	Sample() float64
}

// RuntimeSampler approximates load from the Go runtime: memory pressure as
// heap-in-use over heap-from-OS, CPU pressure as runnable goroutines per
// logical CPU. It is a proxy, not a measurement; deployments that need real
// numbers plug in their own LoadSampler.
type RuntimeSampler struct{}

// Sample implements LoadSampler.
func (RuntimeSampler) Sample() float64 {
	var m runtime.MemStats
	runtime.ReadMemStats(&m)

	mem := 0.0
	if m.HeapSys > 0 {
		mem = float64(m.HeapInuse) / float64(m.HeapSys)
	}

	cpu := float64(runtime.NumGoroutine()) / float64(runtime.GOMAXPROCS(0)*32)
	if cpu > 1 {
		cpu = 1
	}

	return (cpu + mem) / 2
}

// BatchController owns the adaptive batch size. Size moves one step at a
// time and always stays within [min, max], whatever the load sequence.
type BatchController struct {
	mu      sync.Mutex
	size    int
	min     int
	max     int
	sampler LoadSampler
}

// NewBatchController starts at min size with the given bounds.
func NewBatchController(min, max int, sampler LoadSampler) *BatchController {
	if min < 1 {
		min = 1
	}
	if max < min {
		max = min
	}
	if sampler == nil {
		sampler = RuntimeSampler{}
	}
	return &BatchController{size: min, min: min, max: max, sampler: sampler}
}

// Size returns the current batch size without adjusting it.
func (c *BatchController) Size() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.size
}

// Adjust samples load, nudges the size, and returns the new value.
func (c *BatchController) Adjust() int {
	load := c.sampler.Sample()

	c.mu.Lock()
	defer c.mu.Unlock()

	switch {
	case load < loadGrowBelow && c.size < c.max:
		c.size++
	case load > loadShrinkAbove && c.size > c.min:
		c.size--
	}
	return c.size
}

// Bounds returns the configured [min, max] for status reporting.
func (c *BatchController) Bounds() (int, int) {
	return c.min, c.max
}
