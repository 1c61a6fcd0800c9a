package indicator

// RSI calculates the Relative Strength Index using Wilder's smoothing method.
// Update is O(1) per candle — no history scans. The first value is seeded
// from the arithmetic mean of the first period gains/losses; every later
// step applies avg = (avg*(period-1) + x) / period. Feeding a long close
// history through Update reproduces a deterministic warm-up.
type RSI struct {
	period    int
	count     int
	prevClose float64
	avgGain   float64
	avgLoss   float64
	current   float64
}

// NewRSI creates a new RSI indicator with the given period (typically 14).
func NewRSI(period int) *RSI {
	return &RSI{period: period}
}

func (r *RSI) Name() string { return "RSI" }

func (r *RSI) Update(close float64) {
	r.count++

	if r.count == 1 {
		// First close — just record it, no delta yet
		r.prevClose = close
		return
	}

	gain, loss := gainLoss(close - r.prevClose)
	r.prevClose = close

	if r.count <= r.period+1 {
		// Accumulation phase: build initial averages
		r.avgGain += gain
		r.avgLoss += loss

		if r.count == r.period+1 {
			r.avgGain /= float64(r.period)
			r.avgLoss /= float64(r.period)
			r.current = rsiFrom(r.avgGain, r.avgLoss)
		}
		return
	}

	// Wilder's smoothing: avgGain = (prevAvgGain * (period-1) + gain) / period
	p := float64(r.period)
	r.avgGain = (r.avgGain*(p-1) + gain) / p
	r.avgLoss = (r.avgLoss*(p-1) + loss) / p
	r.current = rsiFrom(r.avgGain, r.avgLoss)
}

// Value returns the current RSI rounded to 2 decimal places.
func (r *RSI) Value() float64 { return r.current }

func (r *RSI) Ready() bool { return r.count > r.period }

// Peek computes what RSI would be with one more close without mutating state.
func (r *RSI) Peek(close float64) float64 {
	if !r.Ready() {
		return r.current
	}
	gain, loss := gainLoss(close - r.prevClose)
	p := float64(r.period)
	ag := (r.avgGain*(p-1) + gain) / p
	al := (r.avgLoss*(p-1) + loss) / p
	return rsiFrom(ag, al)
}

func gainLoss(delta float64) (gain, loss float64) {
	if delta > 0 {
		return delta, 0
	}
	if delta < 0 {
		return 0, -delta
	}
	return 0, 0
}

func rsiFrom(avgGain, avgLoss float64) float64 {
	if avgLoss == 0 {
		return 100.0
	}
	rs := avgGain / avgLoss
	return round2(100.0 - (100.0 / (1.0 + rs)))
}

// Snapshot serializes the RSI state for checkpoint persistence.
func (r *RSI) Snapshot() IndicatorSnapshot {
	return IndicatorSnapshot{
		Type:      "RSI",
		Period:    r.period,
		Count:     r.count,
		PrevClose: r.prevClose,
		AvgGain:   r.avgGain,
		AvgLoss:   r.avgLoss,
		Current:   r.current,
	}
}

// RestoreFromSnapshot restores RSI state from a checkpoint.
func (r *RSI) RestoreFromSnapshot(snap IndicatorSnapshot) error {
	r.period = snap.Period
	r.count = snap.Count
	r.prevClose = snap.PrevClose
	r.avgGain = snap.AvgGain
	r.avgLoss = snap.AvgLoss
	r.current = snap.Current
	return nil
}
