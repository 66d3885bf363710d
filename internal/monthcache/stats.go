package monthcache

import "time"

// Stats counts cache activity since the cache was created.
type Stats struct {
	Hits       uint64 // served from a fresh entry
	Misses     uint64 // loaded by the caller
	Joins      uint64 // waited on another caller's or a prefetch load
	Errors     uint64 // failed loads, prefetch included
	Prefetches uint64 // prefetch loads started
	Entries    int
	Pending    int
}

// HitRate is the percentage of reads served without waiting on a load.
func (s Stats) HitRate() float64 {
	total := s.Hits + s.Misses + s.Joins
	if total == 0 {
		return 0
	}
	return float64(s.Hits) / float64(total) * 100
}

func (c *Cache) Stats() Stats {
	c.mu.Lock()
	defer c.mu.Unlock()

	s := c.stats
	s.Entries = len(c.entries)
	s.Pending = len(c.pending)
	return s
}

// State describes the cache entry of one month.
type State int

const (
	Absent State = iota
	Loading
	Fresh
	Stale
)

func (s State) String() string {
	switch s {
	case Loading:
		return "loading"
	case Fresh:
		return "fresh"
	case Stale:
		return "stale"
	default:
		return "absent"
	}
}

// StateOf reports the state of the month containing t.
func (c *Cache) StateOf(t time.Time) State {
	key := c.monthOf(t).Key()

	c.mu.Lock()
	defer c.mu.Unlock()

	e, ok := c.entries[key]
	switch {
	case !ok:
		return Absent
	case e.loading:
		return Loading
	case c.fresh(e):
		return Fresh
	default:
		return Stale
	}
}
