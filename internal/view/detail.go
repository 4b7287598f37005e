package view

import (
	"fmt"
	"strconv"

	"github.com/quakecoresoft/nzgdmap/internal/correlation"
	"github.com/quakecoresoft/nzgdmap/internal/dataset"
	"github.com/quakecoresoft/nzgdmap/internal/models"
	"github.com/quakecoresoft/nzgdmap/internal/vs30"
)

// RecordDetail is the view-model for a single record page: the record, its
// raw profile and soil log, and an estimate under every correlation
// combination usable at the record's depth.
type RecordDetail struct {
	Record           models.Record
	SourceFiles      string
	HasProfile       bool
	Profile          models.DepthProfile
	Soils            []models.SoilInterval
	Estimates        []EstimateDetail
	DepthExplanation string
}

// EstimateDetail is one (raw model, averaging model) combination's result.
type EstimateDetail struct {
	RawToVs  string
	VsToVs30 string
	Estimate models.Vs30Estimate
	Error    string // set when the combination produced no estimate
}

// BuildRecordDetail computes estimates for a record under every registered
// combination whose minimum depth the record satisfies.
func BuildRecordDetail(snap *dataset.Snapshot, name string) (RecordDetail, bool) {
	r, ok := snap.Record(name)
	if !ok {
		return RecordDetail{}, false
	}
	d := RecordDetail{
		Record:      r,
		SourceFiles: r.SourceFileURL(sourceFileBase),
		Soils:       snap.Soils(r.NZGDID),
	}
	d.Profile, d.HasProfile = snap.Profile(r.NZGDID)

	deepest := 0.0
	if d.HasProfile {
		deepest = d.Profile.DeepestDepth()
	}
	d.DepthExplanation = depthExplanation(name, deepest)

	rawKind := correlation.KindCPTToVs
	if r.IsSPT() {
		rawKind = correlation.KindSPTToVs
	}
	params := models.InstrumentParams{
		HammerEnergyRatio: r.HammerEnergyRatio,
		BoreholeDiameter:  r.BoreholeDiameter,
		TipNetAreaRatio:   r.TipNetAreaRatio,
		MeasuredGWL:       r.MeasuredGWL,
	}
	for _, vsKey := range correlation.List(correlation.KindVsToVs30) {
		vsModel, _ := correlation.VsToVs30(vsKey)
		if deepest < vsModel.MinDepth {
			continue
		}
		for _, rawKey := range correlation.List(rawKind) {
			rawModel, _ := correlation.RawToVs(rawKind, rawKey)
			ed := EstimateDetail{RawToVs: rawKey, VsToVs30: vsKey}
			est, err := vs30.Compute(d.Profile, d.Soils, rawModel, vsModel, params, r.ModelVs30)
			if err != nil {
				ed.Error = err.Error()
			} else {
				ed.Estimate = est
			}
			d.Estimates = append(d.Estimates, ed)
		}
	}
	return d, true
}

// depthExplanation mirrors the explanation text shown alongside detail
// pages: which averaging models the record's depth allows.
func depthExplanation(name string, deepest float64) string {
	switch {
	case deepest < 5:
		return fmt.Sprintf("Unable to estimate a Vs30 value from %s as it has a maximum depth of %.2f m, "+
			"while depths of at least 10 m and 5 m are required for the Boore (2004) and "+
			"Boore et al. (2011) Vs to Vs30 correlations, respectively.", name, deepest)
	case deepest < 10:
		return fmt.Sprintf("%s has a maximum depth of %.2f m so only the Boore et al. (2011) Vs to Vs30 "+
			"correlation can be used, as it requires a depth of at least 5 m while Boore (2004) "+
			"requires at least 10 m.", name, deepest)
	default:
		return fmt.Sprintf("%s has a maximum depth of %.2f m so both the Boore (2004) and "+
			"Boore et al. (2011) Vs to Vs30 correlations can be used.", name, deepest)
	}
}

// Table is a plain tabular structure ready for CSV serialisation, with no
// presentation formatting embedded.
type Table struct {
	Columns []string
	Rows    [][]string
}

func f64(v float64) string { return strconv.FormatFloat(v, 'f', -1, 64) }

// ProfileTable flattens a depth profile into download rows. Column names
// match the original export headers.
func ProfileTable(p models.DepthProfile) Table {
	if p.SPT {
		t := Table{Columns: []string{"depth_m", "number_of_blows"}}
		for _, s := range p.Samples {
			t.Rows = append(t.Rows, []string{f64(s.Depth), f64(s.Value)})
		}
		return t
	}
	t := Table{Columns: []string{"depth_(m)", "cone_resistance_qc_(Mpa)", "sleeve_friction_fs_(Mpa)", "pore_pressure_u2_(Mpa)"}}
	for _, s := range p.Samples {
		fs, u2 := "", ""
		if s.SleeveFriction.Valid {
			fs = f64(s.SleeveFriction.Float64)
		}
		if s.PorePressure.Valid {
			u2 = f64(s.PorePressure.Float64)
		}
		t.Rows = append(t.Rows, []string{f64(s.Depth), f64(s.Value), fs, u2})
	}
	return t
}

// SoilTable flattens a soil log into download rows.
func SoilTable(soils []models.SoilInterval) Table {
	t := Table{Columns: []string{"depth_at_layer_top_m", "thickness_m", "soil_type"}}
	for _, si := range soils {
		t.Rows = append(t.Rows, []string{f64(si.TopDepth), f64(si.Thickness), si.SoilType})
	}
	return t
}
