package correlation

import "math"

// Unit weight assumed for overburden stress when no density data exists,
// and unit weight of water, both kN/m3.
const (
	soilUnitWeight  = 18.0
	waterUnitWeight = 9.81
)

// defaultGWLDepth is assumed when a record has neither a measured nor a
// modelled groundwater level.
const defaultGWLDepth = 2.0

// n60 converts a raw blow count to the standardised N60 value. The hammer
// energy ratio and borehole diameter corrections follow Skempton (1986);
// when the energy ratio is unknown an automatic trip hammer at 60 % is
// assumed and the estimate's efficiency flag is cleared.
func n60(in RawInput) (n float64, usedEfficiency bool) {
	n = in.Value
	if in.Params.HammerEnergyRatio.Valid && in.Params.HammerEnergyRatio.Float64 > 0 {
		n *= in.Params.HammerEnergyRatio.Float64 / 60.0
		usedEfficiency = true
	}
	if in.Params.BoreholeDiameter.Valid {
		switch d := in.Params.BoreholeDiameter.Float64; {
		case d > 175:
			n *= 1.15
		case d > 120:
			n *= 1.05
		}
	}
	if n < 1 {
		n = 1
	}
	return n, usedEfficiency
}

// effectiveStress estimates the vertical effective stress in kPa at depth,
// assuming hydrostatic pore pressure below the water table.
func effectiveStress(depth float64, in RawInput) float64 {
	gwl := defaultGWLDepth
	if in.Params.MeasuredGWL.Valid {
		gwl = in.Params.MeasuredGWL.Float64
	}
	total := soilUnitWeight * depth
	pore := 0.0
	if depth > gwl {
		pore = waterUnitWeight * (depth - gwl)
	}
	sigma := total - pore
	if sigma < 1 {
		sigma = 1
	}
	return sigma
}

// Brandenberg et al. (2010) regression coefficients for
// ln(Vs) = b0 + b1*ln(N60) + b2*ln(sigma'_v), by soil class.
var brandenbergCoeffs = map[SoilClass]struct {
	b0, b1, b2, tau float64
}{
	SoilSand: {4.045, 0.096, 0.236, 0.217},
	SoilSilt: {3.783, 0.178, 0.231, 0.227},
	SoilClay: {3.996, 0.230, 0.164, 0.227},
}

var brandenberg2010 = RawToVsModel{
	Key:  "brandenberg_2010",
	Name: "Brandenberg et al. (2010)",
	fn: func(in RawInput) (VsSample, error) {
		n, usedEff := n60(in)
		c := brandenbergCoeffs[in.Soil]
		lnVs := c.b0 + c.b1*math.Log(n) + c.b2*math.Log(effectiveStress(in.Depth, in))
		return VsSample{
			Vs:             math.Exp(lnVs),
			LnStddev:       c.tau,
			UsedSoilInfo:   true,
			UsedEfficiency: usedEff,
		}, nil
	},
}

// Imai & Tonouchi (1982): Vs = 96.9 * N60^0.314 across all soils. Kept as a
// soil-independent alternative for records with sparse logs.
var imaiTonouchi1982 = RawToVsModel{
	Key:  "imai_tonouchi_1982",
	Name: "Imai & Tonouchi (1982)",
	fn: func(in RawInput) (VsSample, error) {
		n, usedEff := n60(in)
		return VsSample{
			Vs:             96.9 * math.Pow(n, 0.314),
			LnStddev:       0.30,
			UsedSoilInfo:   false,
			UsedEfficiency: usedEff,
		}, nil
	},
}
