// Package series provides the low-level array plumbing shared by the import
// pipeline, the skip-averaging transform and the join engine: sorting and
// deduplicating position-indexed rows, predecessor searches over sorted
// position arrays, and splitting flat position sequences into contiguous runs.
package series
