// Package charge calibrates the bespoke charge sensors and models the
// ground-level electric field of the space charge an ascent samples.
package charge

import (
	"errors"
	"fmt"
	"math"

	"gonum.org/v1/gonum/stat"
)

// SmoothingWindow is the moving-average span applied to the raw charge
// currents before any fit: wide enough to suppress telemetry jitter,
// narrow enough to keep polarity reversals sharp.
const SmoothingWindow = 11

// ErrNoSamples reports a calibration with no usable sample pairs.
var ErrNoSamples = errors.New("charge: no finite sample pairs")

// MovingAverage smooths vals with a centred window. The window
// shrinks near the edges so the output keeps the input's length.
// Window must be odd.
func MovingAverage(vals []float64, window int) ([]float64, error) {
	if window < 1 || window%2 == 0 {
		return nil, fmt.Errorf("charge: window %d must be odd and positive", window)
	}
	half := window / 2
	out := make([]float64, len(vals))
	for i := range vals {
		lo, hi := i-half, i+half
		if lo < 0 {
			lo = 0
		}
		if hi > len(vals)-1 {
			hi = len(vals) - 1
		}
		sum, n := 0.0, 0
		for j := lo; j <= hi; j++ {
			if math.IsNaN(vals[j]) {
				continue
			}
			sum += vals[j]
			n++
		}
		if n == 0 {
			out[i] = math.NaN()
			continue
		}
		out[i] = sum / float64(n)
	}
	return out, nil
}

// Fit is one least-squares line with its goodness of fit.
type Fit struct {
	Slope     float64
	Intercept float64
	R2        float64
	N         int
}

// Calibration relates the log charge sensor's counts to the linear
// sensor's current. The linear sensor saturates quickly but carries
// sign, so the positive and negative branches are fitted separately in
// log-current space alongside a plain fit over everything.
type Calibration struct {
	All      Fit
	Positive Fit // log sensor counts vs log10 of positive linear current
	Negative Fit // log sensor counts vs -log10 of negated negative current
}

// Calibrate fits the log charge sensor against the linear one. Both
// inputs are smoothed first; NaN pairs are skipped. The negative
// branch fit is zero when the linear current never goes negative.
func Calibrate(logCounts, linearCurrent []float64) (Calibration, error) {
	if len(logCounts) != len(linearCurrent) {
		return Calibration{}, fmt.Errorf("charge: %d log samples for %d linear samples",
			len(logCounts), len(linearCurrent))
	}
	logSm, err := MovingAverage(logCounts, SmoothingWindow)
	if err != nil {
		return Calibration{}, err
	}
	linSm, err := MovingAverage(linearCurrent, SmoothingWindow)
	if err != nil {
		return Calibration{}, err
	}

	var all, pos, neg struct{ x, y []float64 }
	for i := range logSm {
		if math.IsNaN(logSm[i]) || math.IsNaN(linSm[i]) {
			continue
		}
		all.x = append(all.x, logSm[i])
		all.y = append(all.y, linSm[i])
		if linSm[i] > 0 {
			pos.x = append(pos.x, logSm[i])
			pos.y = append(pos.y, math.Log10(linSm[i]))
		} else if linSm[i] < 0 {
			neg.x = append(neg.x, logSm[i])
			neg.y = append(neg.y, -math.Log10(-linSm[i]))
		}
	}
	if len(all.x) < 2 {
		return Calibration{}, ErrNoSamples
	}

	cal := Calibration{All: fitLine(all.x, all.y)}
	if len(pos.x) >= 2 {
		cal.Positive = fitLine(pos.x, pos.y)
	}
	if len(neg.x) >= 2 {
		cal.Negative = fitLine(neg.x, neg.y)
	}
	return cal, nil
}

func fitLine(x, y []float64) Fit {
	alpha, beta := stat.LinearRegression(x, y, nil, false)
	return Fit{
		Slope:     beta,
		Intercept: alpha,
		R2:        stat.RSquared(x, y, nil, alpha, beta),
		N:         len(x),
	}
}
