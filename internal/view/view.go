// Package view joins filtered records with their Vs30 estimates and shapes
// the map, histogram and summary payloads the presentation layer renders.
package view

import (
	"database/sql"
	"fmt"

	"github.com/quakecoresoft/nzgdmap/internal/correlation"
	"github.com/quakecoresoft/nzgdmap/internal/dataset"
	"github.com/quakecoresoft/nzgdmap/internal/models"
	"github.com/quakecoresoft/nzgdmap/internal/query"
)

// sourceFileBase is where the raw investigation files are mirrored.
const sourceFileBase = "https://quakecoresoft.canterbury.ac.nz/nzgd_source_files"

// Request is the core-facing input contract. Everything but Query is
// validated against a closed enumeration; unrecognised keys fall back to the
// documented default and add a notice to the response.
type Request struct {
	Query            string
	Vs30Correlation  string
	SPTVsCorrelation string
	CPTVsCorrelation string
	ColourBy         string
	HistBy           string
	HistBins         int
}

const (
	defaultColourBy = "vs30"
	defaultHistBy   = "vs30_log_residual"
	defaultHistBins = 30
)

// displayAttrs is the closed enumeration of attributes the map can colour by
// and the histogram can bin by.
var displayAttrs = []string{
	"vs30",
	"vs30_stddev",
	"vs30_log_residual",
	"type_code",
	"deepest_depth",
	"shallowest_depth",
	"measured_gwl",
	"gwl_residual",
	"model_gwl_westerhoff_2019",
	"model_vs30_foster_2019",
	"model_vs30_stddev_foster_2019",
}

// DisplayAttrs returns the selectable colour/histogram attributes.
func DisplayAttrs() []string {
	out := make([]string, len(displayAttrs))
	copy(out, displayAttrs)
	return out
}

// Response is the full display payload for one index request. Validation
// failures are carried as data: the filtered set is empty and
// ValidationError explains why, so the caller never silently renders
// unfiltered records against a broken filter.
type Response struct {
	Records         []RecordRow
	Map             []MapPoint
	Histogram       []HistogramBin
	ResidualSummary ResidualSummary
	ValidationError *query.ValidationError
	Notices         []string
	WithoutEstimate int
	Meta            models.DatasetMeta
}

// RecordRow is one record joined with its estimate under the selected
// correlations. It backs both the JSON record listing and query evaluation.
type RecordRow struct {
	models.Record
	Vs30            sql.NullFloat64
	Vs30Stddev      sql.NullFloat64
	Vs30LogResidual sql.NullFloat64
	GWLResidual     sql.NullFloat64
	Extrapolated    bool
	UsedSoilInfo    bool
	UsedEfficiency  bool
	LowConfidence   bool
	NoEstimate      string // why there is no estimate, empty on success
	SourceFiles     string
}

// typeCode mirrors the numeric record-type encoding the map colours by.
func (r RecordRow) typeCode() float64 {
	switch r.Type {
	case "SCPT":
		return 1
	case "BH":
		return 2
	}
	return 0
}

// Field implements query.Source, exposing typed values for the whitelist.
// A false return means the record has no value for the attribute.
func (r RecordRow) Field(name string) (query.Value, bool) {
	num := func(v sql.NullFloat64) (query.Value, bool) {
		return query.Value{Type: query.FieldNumber, Num: v.Float64}, v.Valid
	}
	str := func(v string) (query.Value, bool) {
		return query.Value{Type: query.FieldString, Str: v}, true
	}
	switch name {
	case "record_name":
		return str(r.Name)
	case "type":
		return str(r.Type)
	case "region":
		return str(r.Region)
	case "district":
		return str(r.District)
	case "city":
		return str(r.City)
	case "suburb":
		return str(r.Suburb)
	case "original_reference":
		return query.Value{Type: query.FieldString, Str: r.OriginalReference.String}, r.OriginalReference.Valid
	case "investigation_date":
		return query.Value{Type: query.FieldDate, Date: r.InvestigationDate.Time}, r.InvestigationDate.Valid
	case "published_date":
		return query.Value{Type: query.FieldDate, Date: r.PublishedDate.Time}, r.PublishedDate.Valid
	case "latitude":
		return query.Value{Type: query.FieldNumber, Num: r.Latitude}, true
	case "longitude":
		return query.Value{Type: query.FieldNumber, Num: r.Longitude}, true
	case "deepest_depth":
		return num(r.DeepestDepth)
	case "shallowest_depth":
		return num(r.ShallowestDepth)
	case "measured_gwl":
		return num(r.MeasuredGWL)
	case "model_gwl_westerhoff_2019":
		return num(r.ModelGWL)
	case "model_vs30_foster_2019":
		return num(r.ModelVs30)
	case "model_vs30_stddev_foster_2019":
		return num(r.ModelVs30Stddev)
	case "spt_efficiency":
		return num(r.HammerEnergyRatio)
	case "spt_borehole_diameter":
		return num(r.BoreholeDiameter)
	case "cpt_tip_net_area_ratio":
		return num(r.TipNetAreaRatio)
	case "vs30":
		return num(r.Vs30)
	case "vs30_stddev":
		return num(r.Vs30Stddev)
	case "vs30_log_residual":
		return num(r.Vs30LogResidual)
	case "gwl_residual":
		return num(r.GWLResidual)
	}
	return query.Value{}, false
}

// displayValue resolves one of the displayAttrs for colouring/binning.
func (r RecordRow) displayValue(attr string) (float64, bool) {
	if attr == "type_code" {
		return r.typeCode(), true
	}
	v, ok := r.Field(attr)
	return v.Num, ok
}

// resolveModels validates the request's correlation keys, substituting
// defaults for unknown or empty keys. Each substitution of a bad key adds a
// notice so the caller can surface the fallback.
func resolveModels(req *Request) (notices []string) {
	resolve := func(kind correlation.Kind, key *string) {
		if *key == "" {
			*key = correlation.Default(kind)
			return
		}
		var err error
		switch kind {
		case correlation.KindVsToVs30:
			_, err = correlation.VsToVs30(*key)
		default:
			_, err = correlation.RawToVs(kind, *key)
		}
		if err != nil {
			notices = append(notices, fmt.Sprintf("%v, using default %q", err, correlation.Default(kind)))
			*key = correlation.Default(kind)
		}
	}
	resolve(correlation.KindSPTToVs, &req.SPTVsCorrelation)
	resolve(correlation.KindCPTToVs, &req.CPTVsCorrelation)
	resolve(correlation.KindVsToVs30, &req.Vs30Correlation)
	return notices
}

// resolveDisplay validates ColourBy/HistBy/HistBins the same way.
func resolveDisplay(req *Request) (notices []string) {
	check := func(sel *string, def string) {
		if *sel == "" {
			*sel = def
			return
		}
		for _, a := range displayAttrs {
			if a == *sel {
				return
			}
		}
		notices = append(notices, fmt.Sprintf("unknown display attribute %q, using default %q", *sel, def))
		*sel = def
	}
	check(&req.ColourBy, defaultColourBy)
	check(&req.HistBy, defaultHistBy)
	if req.HistBins <= 0 || req.HistBins > 200 {
		req.HistBins = defaultHistBins
	}
	return notices
}

// BuildIndex runs the full pipeline: resolve models, compute estimates,
// filter, aggregate.
func BuildIndex(snap *dataset.Snapshot, req Request) Response {
	resp := Response{Meta: snap.Meta}
	resp.Notices = append(resolveModels(&req), resolveDisplay(&req)...)

	expr, verr := query.Parse(req.Query)
	if verr != nil {
		resp.ValidationError = verr
		return resp
	}

	estimates := snap.Estimates(req.SPTVsCorrelation, req.CPTVsCorrelation, req.Vs30Correlation)
	rows := make([]RecordRow, 0, len(snap.Records))
	for i, r := range snap.Records {
		row := buildRow(r, estimates[i])
		if expr == nil || expr.Match(row) {
			rows = append(rows, row)
		}
	}
	resp.Records = rows

	for _, row := range rows {
		if !row.Vs30.Valid {
			resp.WithoutEstimate++
		}
	}
	resp.Map = buildMap(rows, req.ColourBy)
	resp.Histogram = buildHistogram(rows, req.HistBy, req.HistBins)
	resp.ResidualSummary = buildResidualSummary(rows)
	return resp
}

func buildRow(r models.Record, est dataset.Estimate) RecordRow {
	row := RecordRow{Record: r, SourceFiles: r.SourceFileURL(sourceFileBase)}
	if r.MeasuredGWL.Valid && r.ModelGWL.Valid {
		row.GWLResidual = sql.NullFloat64{Float64: r.MeasuredGWL.Float64 - r.ModelGWL.Float64, Valid: true}
	}
	if est.Err != nil {
		row.NoEstimate = est.Err.Error()
		return row
	}
	v := est.Value
	row.Vs30 = sql.NullFloat64{Float64: v.Vs30, Valid: true}
	row.Vs30Stddev = sql.NullFloat64{Float64: v.Stddev, Valid: true}
	row.Vs30LogResidual = v.LogResidual
	row.Extrapolated = v.Extrapolated
	row.UsedSoilInfo = v.UsedSoilInfo
	row.UsedEfficiency = v.UsedEfficiency
	row.LowConfidence = v.LowConfidence
	return row
}
