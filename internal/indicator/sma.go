package indicator

import "crossbot/internal/md"

// SMASeries returns the simple moving average ending at every position of
// closes. Positions with fewer than window closes behind them are undefined.
func SMASeries(closes []float64, window int) []Value {
	out := make([]Value, len(closes))
	if window <= 0 {
		return out
	}
	w := md.NewWindow(window)
	for i, c := range closes {
		w.Push(c)
		if mean, ok := w.Mean(); ok {
			out[i] = Defined(mean)
		}
	}
	return out
}

// SMA is the moving average at the most recent close.
func SMA(closes []float64, window int) Value {
	if len(closes) == 0 || window <= 0 || len(closes) < window {
		return Value{}
	}
	series := SMASeries(closes[len(closes)-window:], window)
	return series[len(series)-1]
}
