package thermo

import (
	"errors"
	"fmt"
	"math"
	"sort"

	"gonum.org/v1/gonum/interp"
)

// Thermodynamic constants.
const (
	kappa       = 0.286  // Rd/cp for dry air
	epsilonMW   = 0.622  // molecular weight ratio of water vapour to dry air
	latentHeat  = 2.5e6  // J/kg, evaporation
	cpDry       = 1004   // J/(kg K)
	rdDry       = 287    // J/(kg K)
	vapourE     = 6.014  // hPa, reference vapour pressure for virtual temperature
	kelvinZeroC = 273.15
)

// ErrNoSaturation reports a profile whose surface parcel never reaches
// saturation, so no condensation level exists.
var ErrNoSaturation = errors.New("thermo: lifted parcel never saturates")

// Parcel holds the results of lifting a surface parcel through the
// profile. LFC and EL are NaN when the parcel never becomes buoyant,
// in which case CAPE and CIN are zero.
type Parcel struct {
	LCL  float64 // m, lifting condensation level
	LFC  float64 // m, level of free convection
	EL   float64 // m, equilibrium level
	CAPE float64 // J/kg
	CIN  float64 // J/kg
}

// saturationVapourPressureK is Teten's formula for temperature in
// kelvin, returning hPa.
func saturationVapourPressureK(tK float64) float64 {
	return 6.112 * math.Exp(17.67*(tK-kelvinZeroC)/(tK-29.65))
}

// LiftParcel lifts the surface parcel of a profile and integrates its
// buoyancy. Pressures are hPa and strictly decreasing with index,
// temperatures degrees Celsius, heights metres above ground.
func LiftParcel(pressureHPa, tdryC, tdewC, heightM []float64) (Parcel, error) {
	n := len(pressureHPa)
	if n < 3 {
		return Parcel{}, ErrShortProfile
	}
	for name, l := range map[string]int{
		"tdry": len(tdryC), "tdew": len(tdewC), "height": len(heightM),
	} {
		if l != n {
			return Parcel{}, fmt.Errorf("thermo: column %s has %d samples, want %d", name, l, n)
		}
	}

	tdry := make([]float64, n)
	for i := range tdryC {
		tdry[i] = tdryC[i] + kelvinZeroC
	}

	theta := make([]float64, n)
	for i := range tdry {
		theta[i] = tdry[i] * math.Pow(1000/pressureHPa[i], kappa)
	}
	thetaBase := theta[0]

	// Potential temperature of each level's saturation pressure for
	// the surface parcel's mixing ratio. The parcel condenses at the
	// first level whose value crosses the surface potential
	// temperature.
	qsBase := epsilonMW * saturationVapourPressureK(tdewC[0]+kelvinZeroC) / pressureHPa[0]
	lclIdx := -1
	thetaQs := make([]float64, n)
	for i := range tdry {
		pqs := epsilonMW * saturationVapourPressureK(tdry[i]) / qsBase
		thetaQs[i] = tdry[i] * math.Pow(1000/pqs, kappa)
		if lclIdx < 0 && thetaQs[i] > thetaBase {
			lclIdx = i
		}
	}
	if lclIdx < 0 {
		return Parcel{}, ErrNoSaturation
	}

	parcel := Parcel{
		LCL:  heightM[lclIdx],
		LFC:  math.NaN(),
		EL:   math.NaN(),
	}

	// Integrate the moist adiabat through the condensation point, then
	// interpolate the parcel temperature onto the profile's pressure
	// levels.
	adiabatP, adiabatT := moistAdiabat(tdry[lclIdx], thetaQs[lclIdx])
	if len(adiabatP) < 2 {
		return parcel, nil
	}
	parcelT := make([]float64, n)
	var pl interp.PiecewiseLinear
	if err := pl.Fit(adiabatP, adiabatT); err != nil {
		return Parcel{}, fmt.Errorf("thermo: fitting moist adiabat: %w", err)
	}
	for i := range pressureHPa {
		parcelT[i] = pl.Predict(pressureHPa[i])
	}

	// Buoyant levels: where the environment is colder than the lifted
	// parcel.
	first, last := -1, -1
	for i := range tdry {
		if tdry[i] < parcelT[i] {
			if first < 0 {
				first = i
			}
			last = i
		}
	}
	if first < 0 {
		return parcel, nil
	}
	parcel.LFC = heightM[first]
	parcel.EL = heightM[last]

	// Virtual temperature correction shared by the parcel, the
	// environment and the dry adiabat from the surface.
	tvParcel := make([]float64, n)
	tvEnv := make([]float64, n)
	tvDryAdiabat := make([]float64, n)
	for i := range tdry {
		corr := 1 - (vapourE/pressureHPa[i])*(1-epsilonMW)
		tvParcel[i] = parcelT[i] / corr
		tvEnv[i] = tdry[i] / corr
		tvDryAdiabat[i] = thetaBase / math.Pow(1000/pressureHPa[i], kappa) / corr
	}

	// CAPE = Rd * integral(LFC..EL) (Tv_parcel - Tv_env) d ln p
	for i := first; i < last && i+1 < n; i++ {
		parcel.CAPE += rdDry * (tvParcel[i] - tvEnv[i]) * math.Log(pressureHPa[i]/pressureHPa[i+1])
	}

	// CIN accumulates the negative area below the LFC: along the moist
	// adiabat between the LCL and LFC, and along the dry adiabat below
	// the LCL.
	for i := 0; i+1 < n && heightM[i] < parcel.LFC; i++ {
		if heightM[i] >= parcel.LCL && tdry[i] > parcelT[i] {
			parcel.CIN += rdDry * (tvParcel[i] - tvEnv[i]) * math.Log(pressureHPa[i]/pressureHPa[i+1])
		}
		if heightM[i] < parcel.LCL && tvEnv[i] > tvDryAdiabat[i] {
			parcel.CIN += rdDry * (tvDryAdiabat[i] - tvEnv[i]) * math.Log(pressureHPa[i]/pressureHPa[i+1])
		}
	}
	return parcel, nil
}

// moistAdiabat integrates potential temperature along a saturated
// pseudo-adiabat through the point (startT, startTheta), in 1 K steps
// both above and below it, and returns the curve as parallel pressure
// and temperature slices sorted by increasing pressure. Points outside
// the physically useful 253-380 K potential temperature band are
// dropped.
func moistAdiabat(startT, startTheta float64) (p, t []float64) {
	type point struct{ p, t float64 }
	var pts []point

	add := func(th, tk float64) {
		if th <= 253 || th >= 380 {
			return
		}
		pp := 1000 / math.Pow(th/tk, 1/kappa)
		if math.IsNaN(pp) || math.IsInf(pp, 0) {
			return
		}
		pts = append(pts, point{p: pp, t: tk})
	}

	integrate := func(dir float64) {
		tk, th := startT, startTheta
		pp := 1000 * math.Pow(tk/th, 1/kappa)
		qs0 := epsilonMW * saturationVapourPressureK(tk) / pp
		for i := 0; i < 100; i++ {
			tk += dir
			pp = 1000 * math.Pow(tk/th, 1/kappa)
			qs := epsilonMW * saturationVapourPressureK(tk) / pp
			th -= (latentHeat / cpDry) * (th / tk) * (qs - qs0)
			qs0 = qs
			add(th, tk)
		}
	}

	add(startTheta, startT)
	integrate(-1) // upward: cooling
	integrate(+1) // back toward the surface: warming

	sort.Slice(pts, func(i, j int) bool { return pts[i].p < pts[j].p })
	for _, pt := range pts {
		// interp.PiecewiseLinear needs strictly increasing abscissae.
		if len(p) > 0 && pt.p <= p[len(p)-1] {
			continue
		}
		p = append(p, pt.p)
		t = append(t, pt.t)
	}
	return p, t
}
