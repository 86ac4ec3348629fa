package histogram

import (
	"math/rand"
	"sort"
	"testing"
)

func TestRecordTracksCountSumMinMax(t *testing.T) {
	h := New()
	xs := []int64{5, 100, 3, 9999, 42}
	var sum, min, max int64
	min = xs[0]
	for i, x := range xs {
		h.Record(x)
		sum += x
		if x < min {
			min = x
		}
		if i == 0 || x > max {
			max = x
		}
	}

	if h.Count() != int64(len(xs)) {
		t.Errorf("Count = %d, want %d", h.Count(), len(xs))
	}
	if h.Sum() != sum {
		t.Errorf("Sum = %d, want %d", h.Sum(), sum)
	}
	if h.Min() != min {
		t.Errorf("Min = %d, want %d", h.Min(), min)
	}
	if h.Max() != max {
		t.Errorf("Max = %d, want %d", h.Max(), max)
	}
}

func TestRecordClampsNegative(t *testing.T) {
	h := New()
	h.Record(-5)
	if h.Min() != 0 || h.Max() != 0 {
		t.Errorf("expected negative sample clamped to 0, got min=%d max=%d", h.Min(), h.Max())
	}
}

func TestPercentileWithinBucketBound(t *testing.T) {
	h := New()
	r := rand.New(rand.NewSource(1))
	var xs []int64
	for i := 0; i < 5000; i++ {
		v := int64(r.Intn(200000))
		xs = append(xs, v)
		h.Record(v)
	}
	sort.Slice(xs, func(i, j int) bool { return xs[i] < xs[j] })

	for _, p := range []float64{0.5, 0.9, 0.95, 0.99} {
		idx := int(p * float64(len(xs)))
		if idx >= len(xs) {
			idx = len(xs) - 1
		}
		want := xs[idx]
		got := h.Percentile(p)
		// Quantization bound: at most ~12.5% relative error above 64 ticks,
		// plus one linear tick below it.
		bound := want/8 + 2
		diff := got - want
		if diff < 0 {
			diff = -diff
		}
		if diff > bound {
			t.Errorf("p%.2f: got %d, want ~%d (bound %d)", p, got, want, bound)
		}
	}
}

func TestMergeCommutativeAssociative(t *testing.T) {
	h1, h2 := New(), New()
	for _, x := range []int64{1, 2, 3, 1000} {
		h1.Record(x)
	}
	for _, x := range []int64{7, 8, 90000} {
		h2.Record(x)
	}

	a := h1.Snapshot()
	a.Merge(h2)

	b := h2.Snapshot()
	b.Merge(h1)

	if a.Count() != b.Count() || a.Sum() != b.Sum() || a.Min() != b.Min() || a.Max() != b.Max() {
		t.Errorf("merge not commutative: a={%d %d %d %d} b={%d %d %d %d}",
			a.Count(), a.Sum(), a.Min(), a.Max(), b.Count(), b.Sum(), b.Min(), b.Max())
	}
}

func TestSnapshotIndependentOfFurtherWrites(t *testing.T) {
	h := New()
	h.Record(10)
	snap := h.Snapshot()
	h.Record(20)

	if snap.Count() != 1 {
		t.Errorf("snapshot count changed after further writes: got %d", snap.Count())
	}
}

func TestResetClearsEverything(t *testing.T) {
	h := New()
	h.Record(10)
	h.Record(20)
	h.Reset()
	if h.Count() != 0 || h.Sum() != 0 || h.Min() != 0 || h.Max() != 0 {
		t.Errorf("reset did not clear state: count=%d sum=%d min=%d max=%d", h.Count(), h.Sum(), h.Min(), h.Max())
	}
	if h.Percentile(0.5) != 0 {
		t.Errorf("percentile on empty histogram should be 0, got %d", h.Percentile(0.5))
	}
}
