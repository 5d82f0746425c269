package types

import "time"

// TaskPriority orders indexing tasks. Lower values drain first.
type TaskPriority int

const (
	PriorityCritical TaskPriority = iota
	PriorityHigh
	PriorityNormal
	PriorityLow
)

// String returns the priority tier name.
func (p TaskPriority) String() string {
	switch p {
	case PriorityCritical:
		return "critical"
	case PriorityHigh:
		return "high"
	case PriorityNormal:
		return "normal"
	case PriorityLow:
		return "low"
	default:
		return "unknown"
	}
}

// ParsePriority converts a tier name into a TaskPriority.
// Unknown names map to PriorityNormal.
func ParsePriority(s string) TaskPriority {
	switch s {
	case "critical":
		return PriorityCritical
	case "high":
		return PriorityHigh
	case "low":
		return PriorityLow
	default:
		return PriorityNormal
	}
}

// Multiplier returns the cross-project ranking multiplier for results owned
// by a project of this priority tier.
func (p TaskPriority) Multiplier() float64 {
	switch p {
	case PriorityCritical:
		return 1.5
	case PriorityHigh:
		return 1.2
	case PriorityLow:
		return 0.7
	default:
		return 1.0
	}
}

// IndexingTask is a unit of work in the priority indexer. Tasks are totally
// ordered by (Priority ascending, CreatedAt ascending): strict priority
// across tiers, FIFO within a tier.
type IndexingTask struct {
	Path       string
	Priority   TaskPriority
	RetryCount int
	MaxRetries int
	CreatedAt  time.Time
}
