package window

import "testing"

func TestWindow_PushEvictsOldest(t *testing.T) {
	w := New(3)
	for _, v := range []float64{1, 2, 3, 4, 5} {
		w.Push(v)
	}
	if w.Len() != 3 {
		t.Fatalf("Len()=%d, want 3", w.Len())
	}
	got := w.Values()
	want := []float64{3, 4, 5}
	for i := range want {
		if got[i] != want[i] {
			t.Errorf("Values()[%d]=%v, want %v", i, got[i], want[i])
		}
	}
}

func TestWindow_Last(t *testing.T) {
	w := New(4)
	if _, ok := w.Last(); ok {
		t.Error("Last() on empty window should report ok=false")
	}
	w.Push(10)
	w.Push(20)
	if v, ok := w.Last(); !ok || v != 20 {
		t.Errorf("Last()=%v,%v, want 20,true", v, ok)
	}
}

func TestWindow_TailSum(t *testing.T) {
	w := New(5)
	for _, v := range []float64{1, 2, 3, 4, 5, 6} { // window holds 2..6
		w.Push(v)
	}
	if got := w.TailSum(3); got != 15 { // 4+5+6
		t.Errorf("TailSum(3)=%v, want 15", got)
	}
	if got := w.TailSum(5); got != 20 { // 2+3+4+5+6
		t.Errorf("TailSum(5)=%v, want 20", got)
	}
}

func TestWindow_RestoreTruncates(t *testing.T) {
	w := New(3)
	w.Restore([]float64{1, 2, 3, 4, 5})
	got := w.Values()
	want := []float64{3, 4, 5}
	if len(got) != len(want) {
		t.Fatalf("Len=%d, want %d", len(got), len(want))
	}
	for i := range want {
		if got[i] != want[i] {
			t.Errorf("Values()[%d]=%v, want %v", i, got[i], want[i])
		}
	}
}
