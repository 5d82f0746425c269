// Package profiler records per-query phase timings and rolling statistics,
// and derives optimization hints from threshold comparisons on those stats.
//
// A nil *Profiler is valid and free: Begin returns a nil span whose methods
// are no-ops, so callers never branch on whether profiling is enabled.
package profiler

import (
	"sync"
	"time"
)

// Phase names a stage of query execution.
type Phase string

const (
	PhaseParse        Phase = "parse"
	PhaseVectorSearch Phase = "vector_search"
	PhaseRank         Phase = "rank"
	PhaseFilter       Phase = "filter"
)

// QueryProfile is the record of one executed query.
type QueryProfile struct {
	Query       string
	StartedAt   time.Time
	EndedAt     time.Time
	Phases      map[Phase]time.Duration
	ResultCount int
	CacheHit    bool
}

// Duration is the query's total wall time.
func (p QueryProfile) Duration() time.Duration {
	return p.EndedAt.Sub(p.StartedAt)
}

// Stats is a snapshot of the rolling statistics.
type Stats struct {
	Queries        int
	AvgDuration    time.Duration
	CacheHitRate   float64
	SlowQueries    int
	SlowThreshold  time.Duration
	AvgPhase       map[Phase]time.Duration
	RecentProfiles int
}

// Profiler aggregates query profiles into rolling statistics.
type Profiler struct {
	slowThreshold time.Duration

	mu            sync.Mutex
	count         int
	totalDuration time.Duration
	cacheHits     int
	slow          int
	phaseTotals   map[Phase]time.Duration
	phaseCounts   map[Phase]int
	recent        []QueryProfile // bounded ring
	next          int
	full          bool
}

// New creates a profiler. slowThreshold <= 0 selects the 1s default.
func New(slowThreshold time.Duration) *Profiler {
	if slowThreshold <= 0 {
		slowThreshold = time.Second
	}
	return &Profiler{
		slowThreshold: slowThreshold,
		phaseTotals:   make(map[Phase]time.Duration),
		phaseCounts:   make(map[Phase]int),
		recent:        make([]QueryProfile, 128),
	}
}

// Span tracks one in-flight query. Obtained from Begin; all methods are
// safe on a nil receiver.
type Span struct {
	prof      *Profiler
	profile   QueryProfile
	phase     Phase
	phaseFrom time.Time
}

// Begin starts profiling a query.
func (p *Profiler) Begin(query string) *Span {
	if p == nil {
		return nil
	}
	return &Span{
		prof: p,
		profile: QueryProfile{
			Query:     query,
			StartedAt: time.Now(),
			Phases:    make(map[Phase]time.Duration),
		},
	}
}

// StartPhase marks the beginning of a phase, ending any open phase first.
func (s *Span) StartPhase(phase Phase) {
	if s == nil {
		return
	}
	s.EndPhase()
	s.phase = phase
	s.phaseFrom = time.Now()
}

// EndPhase closes the currently open phase, if any.
func (s *Span) EndPhase() {
	if s == nil || s.phase == "" {
		return
	}
	s.profile.Phases[s.phase] += time.Since(s.phaseFrom)
	s.phase = ""
}

// Finish completes the span and folds it into the rolling statistics.
func (s *Span) Finish(resultCount int, cacheHit bool) {
	if s == nil {
		return
	}
	s.EndPhase()
	s.profile.EndedAt = time.Now()
	s.profile.ResultCount = resultCount
	s.profile.CacheHit = cacheHit
	s.prof.record(s.profile)
}

// Abandon drops the span without recording; used when a query fails before
// producing a result.
func (s *Span) Abandon() {
	if s == nil {
		return
	}
	s.phase = ""
}

func (p *Profiler) record(profile QueryProfile) {
	p.mu.Lock()
	defer p.mu.Unlock()

	p.count++
	p.totalDuration += profile.Duration()
	if profile.CacheHit {
		p.cacheHits++
	}
	if profile.Duration() > p.slowThreshold {
		p.slow++
	}
	for phase, d := range profile.Phases {
		p.phaseTotals[phase] += d
		p.phaseCounts[phase]++
	}

	p.recent[p.next] = profile
	p.next = (p.next + 1) % len(p.recent)
	if p.next == 0 {
		p.full = true
	}
}

// Snapshot returns the current rolling statistics.
func (p *Profiler) Snapshot() Stats {
	if p == nil {
		return Stats{}
	}
	p.mu.Lock()
	defer p.mu.Unlock()

	stats := Stats{
		Queries:       p.count,
		SlowQueries:   p.slow,
		SlowThreshold: p.slowThreshold,
		AvgPhase:      make(map[Phase]time.Duration),
	}
	if p.count > 0 {
		stats.AvgDuration = p.totalDuration / time.Duration(p.count)
		stats.CacheHitRate = float64(p.cacheHits) / float64(p.count)
	}
	for phase, total := range p.phaseTotals {
		if n := p.phaseCounts[phase]; n > 0 {
			stats.AvgPhase[phase] = total / time.Duration(n)
		}
	}
	stats.RecentProfiles = len(p.recent)
	if !p.full {
		stats.RecentProfiles = p.next
	}
	return stats
}

// Recommendations derives textual hints from the rolling statistics. Pure
// threshold comparisons; no heuristics beyond what the numbers say.
func (p *Profiler) Recommendations() []string {
	stats := p.Snapshot()
	if stats.Queries < 10 {
		return nil
	}

	var recs []string
	if stats.CacheHitRate < 0.2 {
		recs = append(recs, "low cache hit rate: consider a longer cache TTL or a shared cache tier")
	}
	if stats.SlowQueries > stats.Queries/10 {
		recs = append(recs, "more than 10% of queries exceed the slow-query threshold")
	}
	if vs, ok := stats.AvgPhase[PhaseVectorSearch]; ok && stats.AvgDuration > 0 &&
		float64(vs) > 0.7*float64(stats.AvgDuration) {
		recs = append(recs, "vector search dominates query time: consider reducing candidate fetch size or enabling the sqlite-vec build")
	}
	return recs
}
