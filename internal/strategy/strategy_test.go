package strategy

import (
	"testing"

	"deltabot/internal/indicator"
	"deltabot/internal/model"
)

func reading(fast, slow float64) indicator.Reading {
	return indicator.Reading{Fast: fast, Slow: slow, Ready: true}
}

func TestEvaluateBullishCross(t *testing.T) {
	sig := Evaluate(reading(29.00, 30.00), reading(31.00, 30.00), model.SideFlat, 900)
	if sig == nil || sig.Direction != model.SideLong {
		t.Fatalf("expected long signal, got %+v", sig)
	}
	if sig.Boundary != 900 || sig.FastValue != 31.00 || sig.SlowValue != 30.00 {
		t.Fatalf("signal fields wrong: %+v", sig)
	}
}

func TestEvaluateBearishCross(t *testing.T) {
	sig := Evaluate(reading(55.00, 54.00), reading(53.00, 54.00), model.SideFlat, 900)
	if sig == nil || sig.Direction != model.SideShort {
		t.Fatalf("expected short signal, got %+v", sig)
	}
}

func TestEvaluateNoCross(t *testing.T) {
	// Fast stays above slow: no edge, no signal.
	if sig := Evaluate(reading(60, 50), reading(61, 50), model.SideFlat, 900); sig != nil {
		t.Fatalf("expected nil, got %+v", sig)
	}
	// Fast stays below slow.
	if sig := Evaluate(reading(40, 50), reading(41, 50), model.SideFlat, 900); sig != nil {
		t.Fatalf("expected nil, got %+v", sig)
	}
}

func TestEvaluateTouchThenDiverge(t *testing.T) {
	// Equal then strictly above counts as a bullish cross.
	sig := Evaluate(reading(30.00, 30.00), reading(31.00, 30.00), model.SideFlat, 900)
	if sig == nil || sig.Direction != model.SideLong {
		t.Fatalf("expected long on touch-then-diverge, got %+v", sig)
	}
	// Equal to equal is not a cross.
	if sig := Evaluate(reading(30.00, 30.00), reading(30.00, 30.00), model.SideFlat, 900); sig != nil {
		t.Fatalf("flat touch fired: %+v", sig)
	}
}

func TestEvaluateFiresOncePerCross(t *testing.T) {
	// The cross fires on the crossing candle only; the next candle with fast
	// still above slow is not a new edge.
	if sig := Evaluate(reading(29.00, 30.00), reading(31.00, 30.00), model.SideFlat, 900); sig == nil {
		t.Fatal("crossing candle should fire")
	}
	if sig := Evaluate(reading(31.00, 30.00), reading(32.00, 30.00), model.SideFlat, 1800); sig != nil {
		t.Fatalf("follow-through candle fired again: %+v", sig)
	}
}

func TestEvaluateHysteresis(t *testing.T) {
	// Already long: a bullish cross is suppressed.
	if sig := Evaluate(reading(29.00, 30.00), reading(31.00, 30.00), model.SideLong, 900); sig != nil {
		t.Fatalf("bullish cross while long should be suppressed, got %+v", sig)
	}
	// Already long: a bearish cross still fires (reversal).
	sig := Evaluate(reading(31.00, 30.00), reading(29.00, 30.00), model.SideLong, 900)
	if sig == nil || sig.Direction != model.SideShort {
		t.Fatalf("expected short reversal while long, got %+v", sig)
	}
	// Already short: bearish suppressed, bullish fires.
	if sig := Evaluate(reading(31.00, 30.00), reading(29.00, 30.00), model.SideShort, 900); sig != nil {
		t.Fatalf("bearish cross while short should be suppressed, got %+v", sig)
	}
	if sig := Evaluate(reading(29.00, 30.00), reading(31.00, 30.00), model.SideShort, 900); sig == nil {
		t.Fatal("expected long reversal while short")
	}
}

func TestEvaluateRequiresReadyReadings(t *testing.T) {
	notReady := indicator.Reading{Fast: 29, Slow: 30}
	if sig := Evaluate(notReady, reading(31, 30), model.SideFlat, 900); sig != nil {
		t.Fatalf("unready prev fired: %+v", sig)
	}
	if sig := Evaluate(reading(29, 30), indicator.Reading{Fast: 31, Slow: 30}, model.SideFlat, 900); sig != nil {
		t.Fatalf("unready cur fired: %+v", sig)
	}
}
