package bufferpool

// BucketStats reports one bucket's aggregated metrics.
type BucketStats struct {
	Index              int
	Size               int
	Allocated          int
	Available          int
	Capacity           int
	MemoryBytes        int64
	HitRatio           float64
	MissRate           float64
	Allocations        int64
	Releases           int64
	Evictions          int64
	Fragmentation      float64 // Available / Capacity, 0 when Capacity is 0
}

// Stats aggregates statistics across every bucket.
type Stats struct {
	Buckets []BucketStats
}

// GetStats snapshots metrics from every bucket.
func (bp *BufferPool) GetStats() Stats {
	out := Stats{Buckets: make([]BucketStats, len(bp.buckets))}
	for i, b := range bp.buckets {
		allocated, free, total := b.pool.Len()
		m := b.pool.Metrics()
		bs := BucketStats{
			Index:       b.index,
			Size:        b.size,
			Allocated:   allocated,
			Available:   free,
			Capacity:    total,
			MemoryBytes: int64(total) * int64(b.size),
			HitRatio:    m.HitRatio(),
			Allocations: m.Acquires,
			Releases:    m.Releases,
			Evictions:   m.Evictions,
		}
		if m.Hits+m.Misses > 0 {
			bs.MissRate = float64(m.Misses) / float64(m.Hits+m.Misses)
		}
		if total > 0 {
			bs.Fragmentation = float64(free) / float64(total)
		}
		out.Buckets[i] = bs
	}
	return out
}
