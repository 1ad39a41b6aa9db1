package prefilter

// Tracker retires a prefilter whose candidates mostly fail verification.
//
// Every verified candidate is a hit, every rejected one a miss. Once
// Warmup candidates have been seen, the hit rate is checked every Interval
// candidates; below MinHitsPer1024/1024 the tracker retires and Next
// reports it, so the caller continues with a plain engine search from its
// current position. A retired tracker stays retired until Reset.
//
//	tr := prefilter.NewTracker(pf, prefilter.DefaultTrackerConfig())
//	for {
//	    cand, ok := tr.Next(s, start)
//	    if !ok {
//	        return searchFrom(s, start)
//	    }
//	    if cand < 0 {
//	        return nil
//	    }
//	    if m := matchAt(s, cand); m != nil {
//	        tr.Hit()
//	        return m
//	    }
//	    start = cand + 1
//	}
type Tracker struct {
	pf     Prefilter
	config TrackerConfig

	candidates uint64
	hits       uint64
	checked    uint64
	retired    bool
}

// TrackerConfig sets when a Tracker gives up on its prefilter.
type TrackerConfig struct {
	// Warmup is the number of candidates seen before the first check.
	Warmup uint64

	// Interval is the number of candidates between checks.
	Interval uint64

	// MinHitsPer1024 is the lowest tolerated hit rate, scaled by 1024.
	MinHitsPer1024 uint64
}

// DefaultTrackerConfig retires a prefilter after 128 candidates when fewer
// than one in ten verify, checking every 64 candidates.
func DefaultTrackerConfig() TrackerConfig {
	return TrackerConfig{Warmup: 128, Interval: 64, MinHitsPer1024: 102}
}

// NewTracker returns a tracker for pf, or nil if pf is nil.
func NewTracker(pf Prefilter, config TrackerConfig) *Tracker {
	if pf == nil {
		return nil
	}
	if config.Interval == 0 {
		config.Interval = 1
	}
	return &Tracker{pf: pf, config: config}
}

// Next returns the next candidate at or after start, or -1. The boolean is
// false once the tracker has retired; the candidate is then always -1.
func (t *Tracker) Next(s string, start int) (int, bool) {
	if t.retired {
		return -1, false
	}
	cand := t.pf.Find(s, start)
	if cand < 0 {
		return -1, true
	}
	t.candidates++
	if t.shouldRetire() {
		t.retired = true
		return -1, false
	}
	return cand, true
}

// Hit records that the last candidate verified.
func (t *Tracker) Hit() { t.hits++ }

// Retired reports whether the prefilter has been given up.
func (t *Tracker) Retired() bool { return t.retired }

// Counts returns the candidates seen and the hits among them.
func (t *Tracker) Counts() (candidates, hits uint64) { return t.candidates, t.hits }

// Reset prepares the tracker for a new search.
func (t *Tracker) Reset() {
	*t = Tracker{pf: t.pf, config: t.config}
}

func (t *Tracker) shouldRetire() bool {
	c := t.config
	if t.candidates < c.Warmup || t.candidates-t.checked < c.Interval {
		return false
	}
	t.checked = t.candidates
	return t.hits*1024 < t.candidates*c.MinHitsPer1024
}
