package series

import (
	"math"
	"sort"
)

// DedupPolicy selects which row survives when several rows share a position.
type DedupPolicy int

const (
	// KeepFirst keeps the earliest row for a duplicated position. Used for
	// channel data, where the first reading is the one taken at the position.
	KeepFirst DedupPolicy = iota

	// KeepLast keeps the latest row for a duplicated position. Used for axis
	// data, where later set-point writes supersede earlier ones.
	KeepLast
)

// SortPerm returns the permutation that sorts positions ascending. The sort
// is stable so that duplicate positions keep their original relative order,
// which the dedup policies rely on.
func SortPerm(positions []int64) []int {
	perm := make([]int, len(positions))
	for i := range perm {
		perm[i] = i
	}
	sort.SliceStable(perm, func(a, b int) bool {
		return positions[perm[a]] < positions[perm[b]]
	})
	return perm
}

// ApplyPermInt64 reorders values by the given permutation.
func ApplyPermInt64(values []int64, perm []int) []int64 {
	out := make([]int64, len(perm))
	for i, p := range perm {
		out[i] = values[p]
	}
	return out
}

// ApplyPermFloat64 reorders values by the given permutation.
func ApplyPermFloat64(values []float64, perm []int) []float64 {
	out := make([]float64, len(perm))
	for i, p := range perm {
		out[i] = values[p]
	}
	return out
}

// ApplyPermStrings reorders values by the given permutation.
func ApplyPermStrings(values []string, perm []int) []string {
	out := make([]string, len(perm))
	for i, p := range perm {
		out[i] = values[p]
	}
	return out
}

// DedupPerm returns the indices to keep from a sorted position array so that
// every position occurs exactly once. The input must already be sorted
// ascending (duplicates adjacent).
func DedupPerm(sorted []int64, policy DedupPolicy) []int {
	var keep []int
	for i := 0; i < len(sorted); i++ {
		if i > 0 && sorted[i] == sorted[i-1] {
			if policy == KeepLast {
				keep[len(keep)-1] = i
			}
			continue
		}
		keep = append(keep, i)
	}
	return keep
}

// SearchLastLE returns the index of the last element of sorted that is <= x,
// or -1 if no such element exists. sorted must be ascending.
func SearchLastLE(sorted []int64, x int64) int {
	// sort.Search finds the first index with sorted[i] > x.
	i := sort.Search(len(sorted), func(i int) bool { return sorted[i] > x })
	return i - 1
}

// SplitRuns splits a position sequence into contiguous runs. A new run starts
// wherever the difference to the previous element exceeds gap. The input is
// expected to be ascending; each returned slice aliases the input.
func SplitRuns(positions []int64, gap int64) [][]int64 {
	if len(positions) == 0 {
		return nil
	}
	var runs [][]int64
	start := 0
	for i := 1; i < len(positions); i++ {
		if positions[i]-positions[i-1] > gap {
			runs = append(runs, positions[start:i])
			start = i
		}
	}
	runs = append(runs, positions[start:])
	return runs
}

// GroupByRuns groups values into one ragged row per run, where runs describes
// the run lengths of the position sequence the values are aligned with.
func GroupByRuns(values []float64, runs [][]int64) [][]float64 {
	grouped := make([][]float64, 0, len(runs))
	off := 0
	for _, run := range runs {
		end := off + len(run)
		if end > len(values) {
			end = len(values)
		}
		grouped = append(grouped, values[off:end])
		off = end
	}
	return grouped
}

// Mean returns the arithmetic mean of values, or 0 for an empty slice.
func Mean(values []float64) float64 {
	if len(values) == 0 {
		return 0
	}
	sum := 0.0
	for _, v := range values {
		sum += v
	}
	return sum / float64(len(values))
}

// StdDev returns the sample standard deviation of values, or 0 for fewer
// than two samples.
func StdDev(values []float64) float64 {
	if len(values) < 2 {
		return 0
	}
	m := Mean(values)
	sum := 0.0
	for _, v := range values {
		d := v - m
		sum += d * d
	}
	return math.Sqrt(sum / float64(len(values)-1))
}

// Contains reports whether x occurs in the sorted position array.
func Contains(sorted []int64, x int64) bool {
	i := SearchLastLE(sorted, x)
	return i >= 0 && sorted[i] == x
}
