// Package parallel splits work between a fixed number of workers.
package parallel

// Partition splits items into n contiguous, non-overlapping slices covering
// items exactly once in their original order. Slice sizes differ by at most
// one, the longer slices come first. n is clamped to [1, len(items)], so no
// slice is ever empty unless items is.
func Partition[T any](items []T, n int) [][]T {
	if len(items) == 0 {
		return nil
	}
	n = max(1, min(n, len(items)))

	size, rest := len(items)/n, len(items)%n
	ret := make([][]T, 0, n)
	start := 0
	for i := range n {
		end := start + size
		if i < rest {
			end++
		}
		ret = append(ret, items[start:end:end])
		start = end
	}
	return ret
}

// Workers returns the number of workers worth starting for count top-level
// items: asked, unless there are fewer than two items per worker, in which
// case a single worker does the job.
func Workers(asked, count int) int {
	if asked < 1 || count < 2*asked {
		return 1
	}
	return asked
}
