package cache

import "time"

// Stats is a point-in-time snapshot of manager counters and timings.
// Averages are incremental running means over all samples since startup.
type Stats struct {
	Gets          uint64
	Sets          uint64
	Deletes       uint64
	Invalidations uint64

	Hits   uint64
	Misses uint64

	HitRate float64

	AvgGet          time.Duration
	AvgSet          time.Duration
	AvgInvalidation time.Duration

	Entries int
}

// Health status values.
const (
	StatusHealthy   = "healthy"
	StatusDegraded  = "degraded"
	StatusUnhealthy = "unhealthy"
)

// HealthStatus is an on-demand health snapshot. One issue degrades the
// cache; two or more make it unhealthy.
type HealthStatus struct {
	Status    string
	Issues    []string
	LastCheck time.Time
}

// runningMean maintains an incremental average without retaining samples:
// avg' = (avg*(n-1) + sample) / n.
type runningMean struct {
	n   uint64
	avg time.Duration
}

func (m *runningMean) add(sample time.Duration) {
	m.n++
	m.avg += (sample - m.avg) / time.Duration(m.n)
}

func (m *runningMean) value() time.Duration {
	return m.avg
}

// statsState is the manager's mutable counter block. Guarded by the
// manager's mutex; increment-only arithmetic so interleaved background
// sweeps can't corrupt it.
type statsState struct {
	gets          uint64
	sets          uint64
	deletes       uint64
	invalidations uint64
	hits          uint64
	misses        uint64

	getTime          runningMean
	setTime          runningMean
	invalidationTime runningMean
}

func (s *statsState) hitRate() float64 {
	if s.gets == 0 {
		return 0
	}
	return float64(s.hits) / float64(s.gets)
}

func (s *statsState) snapshot(entries int) Stats {
	return Stats{
		Gets:            s.gets,
		Sets:            s.sets,
		Deletes:         s.deletes,
		Invalidations:   s.invalidations,
		Hits:            s.hits,
		Misses:          s.misses,
		HitRate:         s.hitRate(),
		AvgGet:          s.getTime.value(),
		AvgSet:          s.setTime.value(),
		AvgInvalidation: s.invalidationTime.value(),
		Entries:         entries,
	}
}
