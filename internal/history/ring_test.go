package history

import (
	"testing"
	"time"
)

func values(samples []Sample) []float64 {
	out := make([]float64, len(samples))
	for i, s := range samples {
		out[i] = s.Value
	}
	return out
}

func TestRing_KeepsInsertionOrderBelowCapacity(t *testing.T) {
	r := New(4)
	for i := 1; i <= 3; i++ {
		r.Push(Sample{At: time.Unix(int64(i), 0), Value: float64(i)})
	}
	got := values(r.Values())
	want := []float64{1, 2, 3}
	if len(got) != len(want) {
		t.Fatalf("Values len = %d, want %d", len(got), len(want))
	}
	for i := range want {
		if got[i] != want[i] {
			t.Fatalf("Values = %v, want %v", got, want)
		}
	}
}

func TestRing_EvictsOldestWhenFull(t *testing.T) {
	r := New(3)
	for i := 1; i <= 5; i++ {
		r.Push(Sample{Value: float64(i)})
	}
	if r.Len() != 3 {
		t.Fatalf("Len = %d, want 3", r.Len())
	}
	got := values(r.Values())
	want := []float64{3, 4, 5}
	for i := range want {
		if got[i] != want[i] {
			t.Fatalf("Values = %v, want %v", got, want)
		}
	}
	last, ok := r.Last()
	if !ok || last.Value != 5 {
		t.Fatalf("Last = %v/%v, want 5/true", last, ok)
	}
}

func TestRing_DefaultsCapacityAndResets(t *testing.T) {
	r := New(0)
	if r.Cap() != DefaultCapacity {
		t.Fatalf("Cap = %d, want %d", r.Cap(), DefaultCapacity)
	}
	if _, ok := r.Last(); ok {
		t.Fatalf("Last on empty ring returned ok")
	}
	r.Push(Sample{Value: 1})
	r.Reset()
	if r.Len() != 0 || r.Values() != nil {
		t.Fatalf("Reset left %d samples", r.Len())
	}
}
