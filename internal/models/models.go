package models

import (
	"database/sql"
	"fmt"
	"time"
)

// Record is one NZGD investigation: a borehole (BH), cone penetration test
// (CPT) or seismic CPT (SCPT). Records are loaded once from the extracted
// dataset and never mutated afterwards.
type Record struct {
	NZGDID            int64
	Name              string // e.g. "CPT_12345"
	Type              string // "BH", "CPT" or "SCPT"
	Latitude          float64
	Longitude         float64
	InvestigationDate sql.NullTime
	PublishedDate     sql.NullTime
	OriginalReference sql.NullString
	Region            string
	District          string
	City              string
	Suburb            string
	ShallowestDepth   sql.NullFloat64
	DeepestDepth      sql.NullFloat64
	MeasuredGWL       sql.NullFloat64
	ModelGWL          sql.NullFloat64 // Westerhoff et al. (2019)
	ModelVs30         sql.NullFloat64 // Foster et al. (2019) reference model
	ModelVs30Stddev   sql.NullFloat64
	TipNetAreaRatio   sql.NullFloat64 // CPT cone geometry
	HammerEnergyRatio sql.NullFloat64 // SPT hammer efficiency, percent
	BoreholeDiameter  sql.NullFloat64 // SPT borehole diameter, mm
}

// IsSPT reports whether the record's raw data is blow counts rather than
// cone resistance.
func (r Record) IsSPT() bool {
	return r.Type == "BH"
}

// SourceFileURL builds the link to the record's raw source files, mirroring
// the upstream directory layout of type/region/district/city/suburb/name.
func (r Record) SourceFileURL(base string) string {
	folder := map[string]string{"CPT": "cpt", "SCPT": "scpt", "BH": "borehole"}[r.Type]
	return fmt.Sprintf("%s/%s/%s/%s/%s/%s/%s", base, folder, r.Region, r.District, r.City, r.Suburb, r.Name)
}

// ProfileSample is one depth level of a record's raw measurements. Value is
// the blow count for SPT records and cone resistance qc (MPa) for CPT
// records. Sleeve friction and pore pressure are only present for CPTs, and
// not for all of them.
type ProfileSample struct {
	Depth          float64
	Value          float64
	SleeveFriction sql.NullFloat64 // fs, MPa
	PorePressure   sql.NullFloat64 // u2, MPa
}

// DepthProfile is the ordered raw measurement sequence for a single record.
// Depths are strictly increasing and non-negative.
type DepthProfile struct {
	RecordName string
	SPT        bool
	Samples    []ProfileSample
}

func (p DepthProfile) ShallowestDepth() float64 {
	if len(p.Samples) == 0 {
		return 0
	}
	return p.Samples[0].Depth
}

func (p DepthProfile) DeepestDepth() float64 {
	if len(p.Samples) == 0 {
		return 0
	}
	return p.Samples[len(p.Samples)-1].Depth
}

// SoilInterval is one layer of a record's soil log. Intervals are ordered by
// top depth and do not overlap. A record may have no soil log at all.
type SoilInterval struct {
	TopDepth  float64
	Thickness float64
	SoilType  string // e.g. "CLAY", "SAND", "SILT", "SANDY GRAVEL"
}

func (si SoilInterval) Contains(depth float64) bool {
	return depth >= si.TopDepth && depth < si.TopDepth+si.Thickness
}

// InstrumentParams carries the per-record instrument metadata the
// correlation models need. All fields are optional; each model documents
// which it requires and which it defaults.
type InstrumentParams struct {
	HammerEnergyRatio sql.NullFloat64 // percent, SPT
	BoreholeDiameter  sql.NullFloat64 // mm, SPT
	TipNetAreaRatio   sql.NullFloat64 // CPT
	MeasuredGWL       sql.NullFloat64 // m below ground
}

// Vs30Estimate is the derived site metric for one (record, correlation pair)
// combination. Estimates are recomputed on demand and never stored.
type Vs30Estimate struct {
	RecordName     string
	Vs30           float64         // m/s
	Stddev         float64         // of ln(Vs30)
	LogResidual    sql.NullFloat64 // ln(estimate) - ln(reference model)
	Extrapolated   bool            // profile shallower than 30 m
	UsedSoilInfo   bool
	UsedEfficiency bool
	LowConfidence  bool // a velocity was clamped during integration
	RawToVsModel   string
	VsToVs30Model  string
}

// DatasetMeta describes the loaded snapshot for display.
type DatasetMeta struct {
	RetrievedAt time.Time // date of last NZGD retrieval
	LoadedAt    time.Time
	Skipped     int // records dropped by integrity checks
}
