package view

import (
	"database/sql"
	"math"
	"sort"

	"gonum.org/v1/gonum/floats"
	"gonum.org/v1/gonum/stat"
)

// MapPoint is one marker on the scatter map. Records without an estimate are
// still plotted, with a no-estimate marker and reason.
type MapPoint struct {
	Name        string
	Lat         float64
	Lon         float64
	ColourValue sql.NullFloat64
	Size        float64
	HasEstimate bool
	NoEstimate  string
}

// HistogramBin is one equal-width bin over the selected attribute.
type HistogramBin struct {
	BinStart float64
	BinEnd   float64
	Count    int
}

// ResidualSummary summarises the log residuals of records that produced an
// estimate. Excluded counts the records that did not.
type ResidualSummary struct {
	Mean     float64
	Stddev   float64
	Count    int
	Excluded int
}

// buildMap emits one point per row. Marker size encodes |log residual|;
// rows without a residual take the median of the rest so they stay visible,
// matching the original display behaviour. Vs30 colour values are clipped
// to the [0.1, 99.9] percentiles so a handful of outliers don't flatten the
// colour scale.
func buildMap(rows []RecordRow, colourBy string) []MapPoint {
	var absResiduals []float64
	for _, r := range rows {
		if r.Vs30LogResidual.Valid {
			absResiduals = append(absResiduals, math.Abs(r.Vs30LogResidual.Float64))
		}
	}
	fallbackSize := 0.5
	if len(absResiduals) > 0 {
		sort.Float64s(absResiduals)
		fallbackSize = math.Round(stat.Quantile(0.5, stat.Empirical, absResiduals, nil)*10) / 10
		if fallbackSize <= 0 {
			fallbackSize = 0.1
		}
	}

	var clipLo, clipHi float64
	clip := colourBy == "vs30"
	if clip {
		clipLo, clipHi = percentileBounds(rows, colourBy, 0.001, 0.999)
	}

	points := make([]MapPoint, 0, len(rows))
	for _, r := range rows {
		p := MapPoint{
			Name:        r.Name,
			Lat:         r.Latitude,
			Lon:         r.Longitude,
			Size:        fallbackSize,
			HasEstimate: r.Vs30.Valid,
			NoEstimate:  r.NoEstimate,
		}
		if r.Vs30LogResidual.Valid {
			p.Size = math.Abs(r.Vs30LogResidual.Float64)
		}
		if v, ok := r.displayValue(colourBy); ok {
			if clip {
				v = math.Min(math.Max(v, clipLo), clipHi)
			}
			p.ColourValue = sql.NullFloat64{Float64: v, Valid: true}
		}
		points = append(points, p)
	}
	return points
}

func percentileBounds(rows []RecordRow, attr string, lo, hi float64) (float64, float64) {
	var vals []float64
	for _, r := range rows {
		if v, ok := r.displayValue(attr); ok {
			vals = append(vals, v)
		}
	}
	if len(vals) == 0 {
		return math.Inf(-1), math.Inf(1)
	}
	sort.Float64s(vals)
	return stat.Quantile(lo, stat.Empirical, vals, nil),
		stat.Quantile(hi, stat.Empirical, vals, nil)
}

// buildHistogram bins the selected attribute into equal-width bins over the
// observed range. Rows without a value for the attribute are dropped; an
// empty input yields zero bins.
func buildHistogram(rows []RecordRow, attr string, binCount int) []HistogramBin {
	var vals []float64
	for _, r := range rows {
		if v, ok := r.displayValue(attr); ok {
			vals = append(vals, v)
		}
	}
	if len(vals) == 0 {
		return nil
	}

	min, max := floats.Min(vals), floats.Max(vals)
	if min == max {
		return []HistogramBin{{BinStart: min, BinEnd: max, Count: len(vals)}}
	}

	dividers := make([]float64, binCount+1)
	floats.Span(dividers, min, max)
	bins := make([]HistogramBin, binCount)
	for i := range bins {
		bins[i] = HistogramBin{BinStart: dividers[i], BinEnd: dividers[i+1]}
	}
	width := (max - min) / float64(binCount)
	for _, v := range vals {
		i := int((v - min) / width)
		if i >= binCount {
			i = binCount - 1 // max lands in the last bin
		}
		bins[i].Count++
	}
	return bins
}

// buildResidualSummary averages the log residuals of rows with an estimate.
func buildResidualSummary(rows []RecordRow) ResidualSummary {
	var residuals []float64
	excluded := 0
	for _, r := range rows {
		if r.Vs30LogResidual.Valid {
			residuals = append(residuals, r.Vs30LogResidual.Float64)
		} else {
			excluded++
		}
	}
	summary := ResidualSummary{Count: len(residuals), Excluded: excluded}
	if len(residuals) == 0 {
		return summary
	}
	mean, stddev := stat.MeanStdDev(residuals, nil)
	summary.Mean = mean
	if len(residuals) > 1 {
		summary.Stddev = stddev
	}
	return summary
}
