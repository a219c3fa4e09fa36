package pool

// Stats is a snapshot of pool counters.
type Stats struct {
	Allocs           uint64 `json:"allocs"` // bucket chunks handed out
	Frees            uint64 `json:"frees"`
	LargeAllocs      uint64 `json:"large_allocs"` // includes overflows
	LargeFrees       uint64 `json:"large_frees"`
	Overflows        uint64 `json:"overflows"` // small requests served by virtual memory
	PagesCommitted   uint64 `json:"pages_committed"`
	PagesDecommitted uint64 `json:"pages_decommitted"`
	CommittedBytes   int64  `json:"committed_bytes"`
	LargeBytes       int64  `json:"large_bytes"`
}

// Stats returns the pool counters. Bucket counters are read one bucket at a
// time, so the snapshot is not atomic across buckets.
func (p *Pool) Stats() Stats {
	s := Stats{
		LargeAllocs:      p.largeAllocs.Load(),
		LargeFrees:       p.largeFrees.Load(),
		Overflows:        p.overflows.Load(),
		PagesCommitted:   p.pagesCommitted.Load(),
		PagesDecommitted: p.pagesDecommitted.Load(),
		CommittedBytes:   p.committed.Load(),
		LargeBytes:       p.largeBytes.Load(),
	}
	for i := range p.buckets {
		b := &p.buckets[i]
		b.lock.Lock()
		s.Allocs += b.allocs
		s.Frees += b.frees
		b.lock.Unlock()
	}
	return s
}
