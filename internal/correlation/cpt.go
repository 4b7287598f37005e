package correlation

import "math"

// soilBehaviourIndex computes the Robertson Ic soil behaviour type index
// from cone resistance and sleeve friction, using the non-iterative n=1
// normalisation. qc and fs are in MPa; stresses are converted to kPa.
func soilBehaviourIndex(in RawInput) float64 {
	sigmaV := soilUnitWeight * in.Depth
	sigmaVEff := effectiveStress(in.Depth, in)

	qt := in.Value * 1000 // MPa -> kPa
	net := qt - sigmaV
	if net < 1 {
		net = 1
	}
	qtn := net / sigmaVEff
	if qtn < 1 {
		qtn = 1
	}
	fr := in.Fs * 1000 / net * 100
	if fr < 0.01 {
		fr = 0.01
	}
	return math.Sqrt(math.Pow(3.47-math.Log10(qtn), 2) + math.Pow(math.Log10(fr)+1.22, 2))
}

// andrus2007 builds an Andrus et al. (2007) CPT correlation:
// Vs = sf * c * qt^a * Ic^b * D^d, with qt in kPa and depth D in m.
// Sleeve friction is required to form Ic; the model is skipped for records
// without it.
func andrus2007(key, name string, scale float64) RawToVsModel {
	return RawToVsModel{
		Key:  key,
		Name: name,
		fn: func(in RawInput) (VsSample, error) {
			if !in.HasFs {
				return VsSample{}, &MissingInputError{Model: key, Input: "sleeve friction"}
			}
			ic := soilBehaviourIndex(in)
			qt := in.Value * 1000
			if qt < 1 {
				qt = 1
			}
			depth := in.Depth
			if depth < 0.1 {
				depth = 0.1
			}
			vs := scale * 2.27 * math.Pow(qt, 0.412) * math.Pow(ic, 0.989) * math.Pow(depth, 0.033)
			return VsSample{Vs: vs, LnStddev: 0.17, UsedSoilInfo: false}, nil
		},
	}
}

var (
	andrus2007Pleistocene = andrus2007("andrus_2007_pleistocene", "Andrus et al. (2007), Pleistocene", 1.12)
	andrus2007Holocene    = andrus2007("andrus_2007_holocene", "Andrus et al. (2007), Holocene", 1.0)
)

// McGann et al. (2015), fitted to Christchurch CPT/SCPT pairs:
// Vs = 18.4 * qc^0.144 * fs^0.0832 * z^0.278 with qc and fs in kPa.
var mcgann2015 = RawToVsModel{
	Key:  "mcgann_2015",
	Name: "McGann et al. (2015)",
	fn: func(in RawInput) (VsSample, error) {
		if !in.HasFs {
			return VsSample{}, &MissingInputError{Model: "mcgann_2015", Input: "sleeve friction"}
		}
		qc := in.Value * 1000
		if qc < 1 {
			qc = 1
		}
		fs := in.Fs * 1000
		if fs < 0.1 {
			fs = 0.1
		}
		depth := in.Depth
		if depth < 0.1 {
			depth = 0.1
		}
		vs := 18.4 * math.Pow(qc, 0.144) * math.Pow(fs, 0.0832) * math.Pow(depth, 0.278)
		return VsSample{Vs: vs, LnStddev: 0.24, UsedSoilInfo: false}, nil
	},
}
