package indicator

import (
	"math"

	"crossbot/internal/md"
)

// ADX is Wilder's average directional index at the last bar. True range and
// directional movement need a previous bar, and the DX average needs period
// DX values, so fewer than 2*period bars leave it undefined.
func ADX(series md.Series, period int) Value {
	if period < 1 || series.Len() < 2*period {
		return Value{}
	}

	n := series.Len()
	trs := make([]float64, 0, n-1)
	plusDM := make([]float64, 0, n-1)
	minusDM := make([]float64, 0, n-1)
	for i := 1; i < n; i++ {
		cur, prev := series[i], series[i-1]
		trs = append(trs, trueRange(cur, prev))

		up := cur.High - prev.High
		down := prev.Low - cur.Low
		var plus, minus float64
		if up > down && up > 0 {
			plus = up
		}
		if down > up && down > 0 {
			minus = down
		}
		plusDM = append(plusDM, plus)
		minusDM = append(minusDM, minus)
	}

	atr := mean(trs[:period])
	smoothPlus := mean(plusDM[:period])
	smoothMinus := mean(minusDM[:period])
	dxs := []float64{directionalIndex(smoothPlus, smoothMinus, atr)}
	for i := period; i < len(trs); i++ {
		atr = wilder(atr, trs[i], period)
		smoothPlus = wilder(smoothPlus, plusDM[i], period)
		smoothMinus = wilder(smoothMinus, minusDM[i], period)
		dxs = append(dxs, directionalIndex(smoothPlus, smoothMinus, atr))
	}

	adx := mean(dxs[:period])
	for _, dx := range dxs[period:] {
		adx = wilder(adx, dx, period)
	}
	return Defined(adx)
}

func trueRange(cur, prev md.Bar) float64 {
	return max(cur.High-cur.Low, math.Abs(cur.High-prev.Close), math.Abs(cur.Low-prev.Close))
}

// directionalIndex is 0 when there is no range or no directional movement.
func directionalIndex(plusDM, minusDM, atr float64) float64 {
	if atr == 0 {
		return 0
	}
	plusDI := 100 * plusDM / atr
	minusDI := 100 * minusDM / atr
	if plusDI+minusDI == 0 {
		return 0
	}
	return 100 * math.Abs(plusDI-minusDI) / (plusDI + minusDI)
}

func wilder(prev, next float64, period int) float64 {
	p := float64(period)
	return (prev*(p-1) + next) / p
}

func mean(values []float64) float64 {
	sum := 0.0
	for _, v := range values {
		sum += v
	}
	return sum / float64(len(values))
}
