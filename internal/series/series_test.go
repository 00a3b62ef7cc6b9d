package series

import (
	"reflect"
	"testing"
)

func TestSortPerm(t *testing.T) {
	tests := []struct {
		name      string
		positions []int64
		want      []int64
	}{
		{"already sorted", []int64{1, 2, 3}, []int64{1, 2, 3}},
		{"reversed", []int64{3, 2, 1}, []int64{1, 2, 3}},
		{"shuffled", []int64{5, 1, 4, 2}, []int64{1, 2, 4, 5}},
		{"duplicates keep order", []int64{5, 5, 6}, []int64{5, 5, 6}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			perm := SortPerm(tt.positions)
			got := ApplyPermInt64(tt.positions, perm)
			if !reflect.DeepEqual(got, tt.want) {
				t.Errorf("got %v, want %v", got, tt.want)
			}
		})
	}
}

func TestSortPermStable(t *testing.T) {
	// Duplicate positions must keep their original relative order, so the
	// dedup policies can pick first vs last occurrence.
	positions := []int64{5, 5, 6}
	values := []float64{1, 2, 3}
	perm := SortPerm(positions)
	got := ApplyPermFloat64(values, perm)
	want := []float64{1, 2, 3}
	if !reflect.DeepEqual(got, want) {
		t.Errorf("got %v, want %v", got, want)
	}
}

func TestDedupPerm(t *testing.T) {
	sorted := []int64{5, 5, 6}
	values := []float64{1, 2, 3}

	t.Run("keep first", func(t *testing.T) {
		keep := DedupPerm(sorted, KeepFirst)
		if got := ApplyPermInt64(sorted, keep); !reflect.DeepEqual(got, []int64{5, 6}) {
			t.Errorf("positions: got %v", got)
		}
		if got := ApplyPermFloat64(values, keep); !reflect.DeepEqual(got, []float64{1, 3}) {
			t.Errorf("values: got %v", got)
		}
	})

	t.Run("keep last", func(t *testing.T) {
		keep := DedupPerm(sorted, KeepLast)
		if got := ApplyPermInt64(sorted, keep); !reflect.DeepEqual(got, []int64{5, 6}) {
			t.Errorf("positions: got %v", got)
		}
		if got := ApplyPermFloat64(values, keep); !reflect.DeepEqual(got, []float64{2, 3}) {
			t.Errorf("values: got %v", got)
		}
	})

	t.Run("no duplicates", func(t *testing.T) {
		keep := DedupPerm([]int64{1, 2, 3}, KeepFirst)
		if len(keep) != 3 {
			t.Errorf("got %d kept rows, want 3", len(keep))
		}
	})
}

func TestSearchLastLE(t *testing.T) {
	sorted := []int64{2, 3, 4}
	tests := []struct {
		x    int64
		want int
	}{
		{0, -1},
		{1, -1},
		{2, 0},
		{3, 1},
		{4, 2},
		{9, 2},
	}
	for _, tt := range tests {
		if got := SearchLastLE(sorted, tt.x); got != tt.want {
			t.Errorf("SearchLastLE(%v, %d) = %d, want %d", sorted, tt.x, got, tt.want)
		}
	}
	if got := SearchLastLE(nil, 1); got != -1 {
		t.Errorf("empty: got %d, want -1", got)
	}
}

func TestSplitRuns(t *testing.T) {
	// The skip-averaging input: gaps >1 split the sequence into runs.
	positions := []int64{5, 6, 8, 9, 10, 12, 13, 14, 15, 17, 18, 19}
	runs := SplitRuns(positions, 1)
	if len(runs) != 4 {
		t.Fatalf("got %d runs, want 4", len(runs))
	}
	wantLens := []int{2, 3, 4, 3}
	for i, run := range runs {
		if len(run) != wantLens[i] {
			t.Errorf("run %d: got len %d, want %d", i, len(run), wantLens[i])
		}
	}
	wantFirsts := []int64{5, 8, 12, 17}
	for i, run := range runs {
		if run[0] != wantFirsts[i] {
			t.Errorf("run %d: first = %d, want %d", i, run[0], wantFirsts[i])
		}
	}
}

func TestSplitRunsEdge(t *testing.T) {
	if runs := SplitRuns(nil, 1); runs != nil {
		t.Errorf("nil input: got %v", runs)
	}
	runs := SplitRuns([]int64{7}, 1)
	if len(runs) != 1 || len(runs[0]) != 1 {
		t.Errorf("single element: got %v", runs)
	}
}

func TestGroupByRuns(t *testing.T) {
	positions := []int64{1, 2, 4, 5, 6}
	values := []float64{10, 20, 30, 40, 50}
	runs := SplitRuns(positions, 1)
	grouped := GroupByRuns(values, runs)
	want := [][]float64{{10, 20}, {30, 40, 50}}
	if !reflect.DeepEqual(grouped, want) {
		t.Errorf("got %v, want %v", grouped, want)
	}
}

func TestMeanStdDev(t *testing.T) {
	values := []float64{2, 4, 4, 4, 5, 5, 7, 9}
	if got := Mean(values); got != 5 {
		t.Errorf("Mean = %v, want 5", got)
	}
	got := StdDev(values)
	if got < 2.13 || got > 2.14 {
		t.Errorf("StdDev = %v, want ~2.138", got)
	}
	if Mean(nil) != 0 || StdDev(nil) != 0 {
		t.Error("empty input should yield 0")
	}
	if StdDev([]float64{1}) != 0 {
		t.Error("single sample should yield 0")
	}
}

func TestContains(t *testing.T) {
	sorted := []int64{2, 4, 6}
	for _, x := range []int64{2, 4, 6} {
		if !Contains(sorted, x) {
			t.Errorf("Contains(%d) = false", x)
		}
	}
	for _, x := range []int64{1, 3, 7} {
		if Contains(sorted, x) {
			t.Errorf("Contains(%d) = true", x)
		}
	}
}
