// Package indexer implements priority-ordered bulk indexing with adaptive
// batch sizing.
//
// Tasks are totally ordered by (priority ascending, creation time ascending):
// strict priority across tiers, FIFO within a tier. Failed tasks re-enter the
// queue until their retry budget is exhausted, then move to a terminal failed
// count.
//
// Batch size is driven by sampled system load through a hysteresis
// controller: one step up under light load, one step down under heavy load,
// otherwise unchanged. It intentionally reacts slowly to avoid oscillation.
package indexer
