package charge

import (
	"fmt"
	"math"
)

// DefaultCollectionAreaM2 is the effective collection area of the
// charge sensor inlet.
const DefaultCollectionAreaM2 = 5e-4

// AscentRate differentiates height against time with centred
// differences, returning metres per second. Endpoints use one-sided
// differences. NaN heights or times yield NaN rates.
func AscentRate(timeS, heightKM []float64) ([]float64, error) {
	if len(timeS) != len(heightKM) {
		return nil, fmt.Errorf("charge: %d times for %d heights", len(timeS), len(heightKM))
	}
	n := len(timeS)
	out := make([]float64, n)
	if n == 0 {
		return out, nil
	}
	if n == 1 {
		out[0] = math.NaN()
		return out, nil
	}
	for i := range out {
		lo, hi := i-1, i+1
		if lo < 0 {
			lo = 0
		}
		if hi > n-1 {
			hi = n - 1
		}
		dt := timeS[hi] - timeS[lo]
		if dt == 0 {
			out[i] = math.NaN()
			continue
		}
		out[i] = (heightKM[hi] - heightKM[lo]) * 1000 / dt
	}
	return out, nil
}

// SpaceChargeDensity converts a calibrated sensor current into a space
// charge density. The sensor sweeps a column of air as the balloon
// rises, so the density is the current divided by the swept volume
// rate: areaM2 times the local ascent rate. Currents are picoamps and
// the result is picocoulombs per cubic metre. Samples where the sonde
// is not rising carry NaN.
func SpaceChargeDensity(currentPA, timeS, heightKM []float64, areaM2 float64) ([]float64, error) {
	if len(currentPA) != len(timeS) {
		return nil, fmt.Errorf("charge: %d currents for %d times", len(currentPA), len(timeS))
	}
	if areaM2 <= 0 {
		return nil, fmt.Errorf("charge: collection area %f must be positive", areaM2)
	}
	rate, err := AscentRate(timeS, heightKM)
	if err != nil {
		return nil, err
	}
	out := make([]float64, len(currentPA))
	for i := range out {
		if math.IsNaN(currentPA[i]) || math.IsNaN(rate[i]) || rate[i] <= 0 {
			out[i] = math.NaN()
			continue
		}
		out[i] = currentPA[i] / (areaM2 * rate[i])
	}
	return out, nil
}
