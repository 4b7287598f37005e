// Package correlation holds the closed registries of empirical correlation
// models: raw SPT/CPT measurements to shear-wave velocity, and velocity
// profiles to Vs30. Every model is a pure transform; the registries are fixed
// at compile time and enumerable for UI selectors.
package correlation

import (
	"fmt"

	"github.com/quakecoresoft/nzgdmap/internal/models"
)

type Kind string

const (
	KindSPTToVs  Kind = "spt_to_vs"
	KindCPTToVs  Kind = "cpt_to_vs"
	KindVsToVs30 Kind = "vs_to_vs30"
)

// UnknownModelError reports a correlation key that is not registered for the
// requested kind. Callers fall back to the kind's default model and flag the
// response rather than failing the request.
type UnknownModelError struct {
	Kind Kind
	Key  string
}

func (e *UnknownModelError) Error() string {
	return fmt.Sprintf("unknown %s correlation %q", e.Kind, e.Key)
}

// MissingInputError reports that a model could not run for a record because
// a required input was absent. The model is skipped for that record only.
type MissingInputError struct {
	Model string
	Input string
}

func (e *MissingInputError) Error() string {
	return fmt.Sprintf("correlation %s requires %s", e.Model, e.Input)
}

// RawInput is one depth sample plus the record context a raw-to-Vs model may
// draw on.
type RawInput struct {
	Depth  float64
	Value  float64 // blow count (SPT) or cone resistance qc in MPa (CPT)
	Fs     float64 // sleeve friction, MPa; valid only when HasFs
	HasFs  bool
	Soil   SoilClass
	Params models.InstrumentParams
}

// VsSample is a per-depth shear-wave velocity with its log-space uncertainty.
type VsSample struct {
	Vs             float64
	LnStddev       float64
	UsedSoilInfo   bool
	UsedEfficiency bool
}

// RawToVsModel converts a raw measurement at depth to shear-wave velocity.
type RawToVsModel struct {
	Key  string
	Name string
	fn   func(RawInput) (VsSample, error)
}

func (m RawToVsModel) Apply(in RawInput) (VsSample, error) {
	return m.fn(in)
}

// VsLayer is one constant-velocity layer of a resolved velocity profile.
type VsLayer struct {
	Thickness float64
	Vs        float64
	LnStddev  float64
}

// Vs30Result is the output of a Vs-to-Vs30 model.
type Vs30Result struct {
	Vs30         float64
	LnStddev     float64
	Extrapolated bool
}

// VsToVs30Model averages a velocity profile down to 30 m. MinDepth is the
// shallowest profile the model's authors consider usable.
type VsToVs30Model struct {
	Key      string
	Name     string
	MinDepth float64
	fn       func(layers []VsLayer) Vs30Result
}

func (m VsToVs30Model) Apply(layers []VsLayer) Vs30Result {
	return m.fn(layers)
}

var (
	sptToVsModels  = []RawToVsModel{brandenberg2010, imaiTonouchi1982}
	cptToVsModels  = []RawToVsModel{andrus2007Pleistocene, andrus2007Holocene, mcgann2015}
	vsToVs30Models = []VsToVs30Model{boore2004, boore2011}
)

// List returns the registered keys for a kind in registration order. The
// order is stable for the process lifetime and drives UI selectors.
func List(kind Kind) []string {
	var keys []string
	switch kind {
	case KindSPTToVs:
		for _, m := range sptToVsModels {
			keys = append(keys, m.Key)
		}
	case KindCPTToVs:
		for _, m := range cptToVsModels {
			keys = append(keys, m.Key)
		}
	case KindVsToVs30:
		for _, m := range vsToVs30Models {
			keys = append(keys, m.Key)
		}
	}
	return keys
}

// Default returns the key used when a request omits or misspells a selection.
func Default(kind Kind) string {
	switch kind {
	case KindSPTToVs:
		return brandenberg2010.Key
	case KindCPTToVs:
		return andrus2007Pleistocene.Key
	case KindVsToVs30:
		return boore2004.Key
	}
	return ""
}

// RawToVs looks up a raw-to-Vs model. Kind must be KindSPTToVs or
// KindCPTToVs.
func RawToVs(kind Kind, key string) (RawToVsModel, error) {
	var pool []RawToVsModel
	switch kind {
	case KindSPTToVs:
		pool = sptToVsModels
	case KindCPTToVs:
		pool = cptToVsModels
	default:
		return RawToVsModel{}, &UnknownModelError{Kind: kind, Key: key}
	}
	for _, m := range pool {
		if m.Key == key {
			return m, nil
		}
	}
	return RawToVsModel{}, &UnknownModelError{Kind: kind, Key: key}
}

// VsToVs30 looks up a Vs-to-Vs30 model by key.
func VsToVs30(key string) (VsToVs30Model, error) {
	for _, m := range vsToVs30Models {
		if m.Key == key {
			return m, nil
		}
	}
	return VsToVs30Model{}, &UnknownModelError{Kind: KindVsToVs30, Key: key}
}
