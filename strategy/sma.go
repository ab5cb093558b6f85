package strategy

import "Tradewinds/utilities"

// CrossoverSignals is the vectorized output of the moving average crossover
// strategy, used as backtester input.
type CrossoverSignals struct {
	Price     []float64
	ShortMA   []float64
	LongMA    []float64
	Signal    []float64 // 1 while short MA is above long MA, else 0
	Positions []float64 // diff of Signal: +1 enter, -1 exit
}

// GenerateCrossoverSignals computes the in-market flag per bar and the
// resulting position deltas. Bars before the short window never signal.
func GenerateCrossoverSignals(bars []utilities.OHLCVBar, shortWindow, longWindow int) CrossoverSignals {
	closes := Closes(bars)
	out := CrossoverSignals{
		Price:     closes,
		ShortMA:   SMASeries(closes, shortWindow),
		LongMA:    SMASeries(closes, longWindow),
		Signal:    make([]float64, len(bars)),
		Positions: make([]float64, len(bars)),
	}
	for i := shortWindow; i < len(bars); i++ {
		if out.ShortMA[i] > out.LongMA[i] {
			out.Signal[i] = 1
		}
	}
	for i := 1; i < len(bars); i++ {
		out.Positions[i] = out.Signal[i] - out.Signal[i-1]
	}
	return out
}
