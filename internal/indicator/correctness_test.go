package indicator

import (
	"math"
	"testing"
)

func assertClose(t *testing.T, label string, got, want, tol float64) {
	t.Helper()
	if math.Abs(got-want) > tol {
		t.Errorf("%s: got %.6f, want %.6f (tol=%.6f, diff=%.6f)", label, got, want, tol, math.Abs(got-want))
	}
}

// ────────────────────────────────────────────────────────────
// RSI Correctness
// ────────────────────────────────────────────────────────────

func TestRSI_Correctness_Period3(t *testing.T) {
	// Hand-calculated Wilder RSI(3):
	// Closes: 10, 11, 10.5, 11.5 → deltas +1, -0.5, +1
	// Seed: avgGain = (1+0+1)/3 = 0.666667, avgLoss = 0.5/3 = 0.166667
	// RS = 4 → RSI = 80.00
	// Next close 11.0 (delta -0.5):
	// avgGain = (0.666667*2+0)/3 = 0.444444
	// avgLoss = (0.166667*2+0.5)/3 = 0.277778
	// RS = 1.6 → RSI = 100-100/2.6 = 61.54
	rsi := NewRSI(3)
	for _, c := range []float64{10, 11, 10.5, 11.5} {
		rsi.Update(c)
	}
	if !rsi.Ready() {
		t.Fatal("RSI should be ready after period+1 closes")
	}
	assertClose(t, "RSI(3) seed", rsi.Value(), 80.00, 0.005)

	rsi.Update(11.0)
	assertClose(t, "RSI(3) wilder step", rsi.Value(), 61.54, 0.005)
}

func TestRSI_AllGains_Is100(t *testing.T) {
	// 14 steps with average gain 1.0 and zero losses → avgLoss == 0 → RSI = 100
	rsi := NewRSI(14)
	close := 100.0
	rsi.Update(close)
	for i := 0; i < 14; i++ {
		close += 1.0
		rsi.Update(close)
	}
	if !rsi.Ready() {
		t.Fatal("RSI should be ready")
	}
	if rsi.Value() != 100.0 {
		t.Errorf("RSI=%v, want 100 when avg loss is zero", rsi.Value())
	}
}

func TestRSI_FlatSeries_Is100(t *testing.T) {
	// All deltas zero → avgLoss == 0 → RSI = 100
	rsi := NewRSI(14)
	for i := 0; i < 40; i++ {
		rsi.Update(250.0)
	}
	if rsi.Value() != 100.0 {
		t.Errorf("RSI=%v, want 100 for a fully flat series", rsi.Value())
	}
}

func TestRSI_Bounded(t *testing.T) {
	// Any gain/loss sequence must keep RSI within [0, 100].
	rsi := NewRSI(14)
	close := 500.0
	for i := 0; i < 300; i++ {
		// Deterministic sawtooth with drift
		if i%3 == 0 {
			close -= float64(i%17) * 2.5
		} else {
			close += float64(i%11) * 1.75
		}
		rsi.Update(close)
		if rsi.Ready() && (rsi.Value() < 0 || rsi.Value() > 100) {
			t.Fatalf("step %d: RSI=%v out of [0,100]", i, rsi.Value())
		}
	}
}

func TestRSI_NotReadyBeforeWarmup(t *testing.T) {
	rsi := NewRSI(14)
	for i := 0; i < 14; i++ { // period+1 closes needed, feed only period
		rsi.Update(100 + float64(i))
		if rsi.Ready() {
			t.Fatalf("close %d: ready too early", i)
		}
	}
	rsi.Update(120)
	if !rsi.Ready() {
		t.Error("RSI should be ready after period+1 closes")
	}
}

func TestRSI_Peek_DoesNotMutate(t *testing.T) {
	rsi := NewRSI(3)
	for _, c := range []float64{10, 11, 10.5, 11.5} {
		rsi.Update(c)
	}
	before := rsi.Snapshot()
	peeked := rsi.Peek(11.0)
	assertClose(t, "peeked RSI", peeked, 61.54, 0.005)
	after := rsi.Snapshot()
	// IndicatorSnapshot carries a slice field, so compare the RSI scalars.
	if after.Count != before.Count || after.PrevClose != before.PrevClose ||
		after.AvgGain != before.AvgGain || after.AvgLoss != before.AvgLoss ||
		after.Current != before.Current {
		t.Errorf("Peek mutated RSI state: before=%+v after=%+v", before, after)
	}
	// The mutating path produces the same value
	rsi.Update(11.0)
	assertClose(t, "Update after Peek", rsi.Value(), peeked, 0.005)
}

// ────────────────────────────────────────────────────────────
// SMA Correctness
// ────────────────────────────────────────────────────────────

func TestSMA_Correctness_Period3(t *testing.T) {
	// Values: 100, 102, 104, 103, 105
	// SMA after value 3: (100+102+104)/3 = 102.00
	// SMA after value 4: (102+104+103)/3 = 103.00
	// SMA after value 5: (104+103+105)/3 = 104.00
	sma := NewSMA(3)
	values := []float64{100, 102, 104, 103, 105}
	expected := []float64{0, 0, 102.0, 103.0, 104.0}
	ready := []bool{false, false, true, true, true}

	for i, v := range values {
		sma.Update(v)
		if sma.Ready() != ready[i] {
			t.Errorf("value %d: Ready()=%v, want %v", i, sma.Ready(), ready[i])
		}
		if ready[i] {
			assertClose(t, "SMA(3)", sma.Value(), expected[i], 0.005)
		}
	}
}

func TestSMA_NoValueUntilWindowFull(t *testing.T) {
	// Absence must be distinguishable from a true zero reading: Ready stays
	// false until exactly period observations exist.
	sma := NewSMA(21)
	for i := 0; i < 20; i++ {
		sma.Update(50)
		if sma.Ready() {
			t.Fatalf("observation %d: SMA ready before window full", i+1)
		}
	}
	sma.Update(50)
	if !sma.Ready() {
		t.Error("SMA should produce its first value at exactly the period-th observation")
	}
	assertClose(t, "SMA first value", sma.Value(), 50, 0.005)
}

func TestSMA_Peek_DoesNotMutate(t *testing.T) {
	sma := NewSMA(3)
	for _, v := range []float64{100, 102, 104} {
		sma.Update(v)
	}
	peeked := sma.Peek(106) // (102+104+106)/3 = 104
	assertClose(t, "peeked SMA", peeked, 104.0, 0.005)
	assertClose(t, "SMA unchanged", sma.Value(), 102.0, 0.005)
}

// ────────────────────────────────────────────────────────────
// EMA Correctness
// ────────────────────────────────────────────────────────────

func TestEMA_Correctness_Period3(t *testing.T) {
	// Seed = SMA of first 3 closes; multiplier = 2/(3+1) = 0.5
	// Closes: 1, 2, 3, 4, 5
	// Seed after close 3: (1+2+3)/3 = 2.0
	// After close 4: (4-2)*0.5 + 2 = 3.0
	// After close 5: (5-3)*0.5 + 3 = 4.0
	ema := NewEMA(3)
	closes := []float64{1, 2, 3, 4, 5}
	expected := []float64{0, 0, 2.0, 3.0, 4.0}
	ready := []bool{false, false, true, true, true}

	for i, c := range closes {
		ema.Update(c)
		if ema.Ready() != ready[i] {
			t.Errorf("close %d: Ready()=%v, want %v", i, ema.Ready(), ready[i])
		}
		if ready[i] {
			assertClose(t, "EMA(3)", ema.Value(), expected[i], 0.0001)
		}
	}
}

func TestEMA_ReferenceSeries(t *testing.T) {
	// Fixed synthetic series against hand-computed values, period 5.
	// Seed = (10+11+12+13+14)/5 = 12.0, multiplier = 2/6 = 0.333333
	// close 15: (15-12)/3 + 12        = 13.0
	// close 14: (14-13)/3 + 13        = 13.333333
	// close 16: (16-13.333333)/3 + 13.333333 = 14.222222
	ema := NewEMA(5)
	for _, c := range []float64{10, 11, 12, 13, 14} {
		ema.Update(c)
	}
	assertClose(t, "EMA seed", ema.Value(), 12.0, 1e-9)

	steps := []struct{ close, want float64 }{
		{15, 13.0},
		{14, 13.333333},
		{16, 14.222222},
	}
	for _, s := range steps {
		ema.Update(s.close)
		assertClose(t, "EMA steady", ema.Value(), s.want, 1e-5)
	}
}

func TestEMA_Peek_DoesNotMutate(t *testing.T) {
	ema := NewEMA(3)
	for _, c := range []float64{1, 2, 3} {
		ema.Update(c)
	}
	peeked := ema.Peek(4)
	assertClose(t, "peeked EMA", peeked, 3.0, 1e-9)
	assertClose(t, "EMA unchanged", ema.Value(), 2.0, 1e-9)
}
