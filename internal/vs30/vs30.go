// Package vs30 turns a record's raw depth profile into a Vs30 estimate under
// a chosen pair of correlation models. Computation is pure: the same inputs
// always produce bit-identical output.
package vs30

import (
	"database/sql"
	"fmt"
	"math"

	"github.com/quakecoresoft/nzgdmap/internal/correlation"
	"github.com/quakecoresoft/nzgdmap/internal/models"
)

// InsufficientDataError reports a profile that cannot support an estimate.
// The record is excluded from Vs30-dependent views but still mapped.
type InsufficientDataError struct {
	RecordName string
	Reason     string
}

func (e *InsufficientDataError) Error() string {
	return fmt.Sprintf("record %s: %s", e.RecordName, e.Reason)
}

// velocityEpsilon replaces non-positive per-depth velocities so integration
// stays finite. Estimates touched by the clamp are flagged low-confidence.
const velocityEpsilon = 0.1

// Compute estimates Vs30 for one profile. Soil intervals are optional; when
// none are supplied every depth falls back to the default soil class. A
// correlation.MissingInputError from the raw model means the model cannot
// run for this record and is returned unwrapped so callers can report the
// skip.
func Compute(
	profile models.DepthProfile,
	soils []models.SoilInterval,
	rawModel correlation.RawToVsModel,
	vsModel correlation.VsToVs30Model,
	params models.InstrumentParams,
	referenceVs30 sql.NullFloat64,
) (models.Vs30Estimate, error) {
	est := models.Vs30Estimate{
		RecordName:    profile.RecordName,
		RawToVsModel:  rawModel.Key,
		VsToVs30Model: vsModel.Key,
	}

	if len(profile.Samples) < 2 {
		return est, &InsufficientDataError{
			RecordName: profile.RecordName,
			Reason:     fmt.Sprintf("%d depth samples, need at least 2", len(profile.Samples)),
		}
	}
	if deepest := profile.DeepestDepth(); deepest < vsModel.MinDepth {
		return est, &InsufficientDataError{
			RecordName: profile.RecordName,
			Reason: fmt.Sprintf("deepest sample at %.2f m, %s requires at least %.0f m",
				deepest, vsModel.Key, vsModel.MinDepth),
		}
	}

	layers, flags, err := resolveVelocities(profile, soils, rawModel, params)
	if err != nil {
		return est, err
	}
	est.UsedSoilInfo = flags.usedSoil
	est.UsedEfficiency = flags.usedEfficiency
	est.LowConfidence = flags.clamped

	res := vsModel.Apply(layers)
	est.Vs30 = res.Vs30
	est.Stddev = res.LnStddev
	est.Extrapolated = res.Extrapolated

	if referenceVs30.Valid && referenceVs30.Float64 > 0 && est.Vs30 > 0 {
		est.LogResidual = sql.NullFloat64{
			Float64: math.Log(est.Vs30) - math.Log(referenceVs30.Float64),
			Valid:   true,
		}
	}
	return est, nil
}

type profileFlags struct {
	usedSoil       bool
	usedEfficiency bool
	clamped        bool
}

// resolveVelocities converts every depth sample to a shear-wave velocity and
// partitions the profile into constant-velocity layers. Layer boundaries sit
// midway between adjacent samples; the first layer extends up to the
// surface so the stack spans 0 m to the deepest sample.
func resolveVelocities(
	profile models.DepthProfile,
	soils []models.SoilInterval,
	rawModel correlation.RawToVsModel,
	params models.InstrumentParams,
) ([]correlation.VsLayer, profileFlags, error) {
	samples := profile.Samples
	var flags profileFlags
	layers := make([]correlation.VsLayer, 0, len(samples))

	for i, s := range samples {
		in := correlation.RawInput{
			Depth:  s.Depth,
			Value:  s.Value,
			Soil:   correlation.DefaultSoil,
			Params: params,
		}
		if s.SleeveFriction.Valid {
			in.Fs = s.SleeveFriction.Float64
			in.HasFs = true
		}
		if st, ok := soilAt(soils, s.Depth); ok {
			in.Soil = correlation.ClassifySoil(st)
		}

		vs, err := rawModel.Apply(in)
		if err != nil {
			return nil, flags, err
		}
		if vs.Vs <= 0 {
			vs.Vs = velocityEpsilon
			flags.clamped = true
		}
		if vs.UsedSoilInfo && len(soils) > 0 {
			flags.usedSoil = true
		}
		if vs.UsedEfficiency {
			flags.usedEfficiency = true
		}

		top := 0.0
		if i > 0 {
			top = (samples[i-1].Depth + s.Depth) / 2
		}
		bottom := s.Depth
		if i < len(samples)-1 {
			bottom = (s.Depth + samples[i+1].Depth) / 2
		}
		layers = append(layers, correlation.VsLayer{
			Thickness: bottom - top,
			Vs:        vs.Vs,
			LnStddev:  vs.LnStddev,
		})
	}
	return layers, flags, nil
}

// soilAt finds the soil label covering a depth, if any interval does.
func soilAt(soils []models.SoilInterval, depth float64) (string, bool) {
	for _, si := range soils {
		if si.Contains(depth) {
			return si.SoilType, true
		}
	}
	return "", false
}
