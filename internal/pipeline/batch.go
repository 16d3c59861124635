package pipeline

// segmentRange is a half-open [Start, End) slice of manifest indices
// processed as one batch.
type segmentRange struct {
	start int
	end   int
}

func (r segmentRange) size() int { return r.end - r.start }

// batchRanges splits n segments into consecutive batches of at most size
// segments each. The final batch may be shorter. Every index in [0, n)
// appears in exactly one range.
func batchRanges(n, size int) []segmentRange {
	if n <= 0 || size <= 0 {
		return nil
	}

	ranges := make([]segmentRange, 0, (n+size-1)/size)
	for start := 0; start < n; start += size {
		end := start + size
		if end > n {
			end = n
		}
		ranges = append(ranges, segmentRange{start: start, end: end})
	}
	return ranges
}
