// Package plot renders depth-profile plots for record detail pages. Depth
// runs down the vertical axis, so Y values are negated before plotting.
package plot

import (
	"bytes"
	"fmt"

	"gonum.org/v1/plot"
	"gonum.org/v1/plot/plotter"
	"gonum.org/v1/plot/vg"

	"github.com/quakecoresoft/nzgdmap/internal/models"
)

// Profile renders a record's raw measurements as a PNG. SPT blow counts are
// drawn as a step plot; CPT traces as lines, with sleeve friction overlaid
// when present.
func Profile(p models.DepthProfile) ([]byte, error) {
	if len(p.Samples) == 0 {
		return nil, fmt.Errorf("record %s: no profile data to plot", p.RecordName)
	}
	if p.SPT {
		return sptPlot(p)
	}
	return cptPlot(p)
}

func sptPlot(p models.DepthProfile) ([]byte, error) {
	pl := plot.New()
	pl.Title.Text = p.RecordName
	pl.X.Label.Text = "Number of blows"
	pl.Y.Label.Text = "Depth (m)"

	line, err := plotter.NewLine(stepPoints(p.Samples))
	if err != nil {
		return nil, err
	}
	line.Width = vg.Points(1)
	pl.Add(line)
	pl.Add(plotter.NewGrid())

	return render(pl)
}

func cptPlot(p models.DepthProfile) ([]byte, error) {
	pl := plot.New()
	pl.Title.Text = p.RecordName
	pl.X.Label.Text = "Cone resistance qc (MPa)"
	pl.Y.Label.Text = "Depth (m)"

	qc := make(plotter.XYs, len(p.Samples))
	for i, s := range p.Samples {
		qc[i].X = s.Value
		qc[i].Y = -s.Depth
	}
	qcLine, err := plotter.NewLine(qc)
	if err != nil {
		return nil, err
	}
	qcLine.Width = vg.Points(1)
	pl.Add(qcLine)
	pl.Legend.Add("qc", qcLine)

	var fs plotter.XYs
	for _, s := range p.Samples {
		if s.SleeveFriction.Valid {
			fs = append(fs, plotter.XY{X: s.SleeveFriction.Float64, Y: -s.Depth})
		}
	}
	if len(fs) > 0 {
		fsLine, err := plotter.NewLine(fs)
		if err != nil {
			return nil, err
		}
		fsLine.Width = vg.Points(1)
		fsLine.Dashes = []vg.Length{vg.Points(4), vg.Points(2)}
		pl.Add(fsLine)
		pl.Legend.Add("fs", fsLine)
	}
	pl.Add(plotter.NewGrid())

	return render(pl)
}

// stepPoints duplicates sample values so blow counts draw as horizontal
// steps between depth levels rather than sloped segments.
func stepPoints(samples []models.ProfileSample) plotter.XYs {
	var pts plotter.XYs
	for i, s := range samples {
		if i > 0 {
			pts = append(pts, plotter.XY{X: s.Value, Y: -samples[i-1].Depth})
		}
		pts = append(pts, plotter.XY{X: s.Value, Y: -s.Depth})
	}
	return pts
}

func render(pl *plot.Plot) ([]byte, error) {
	w, err := pl.WriterTo(5*vg.Inch, 7*vg.Inch, "png")
	if err != nil {
		return nil, err
	}
	var buf bytes.Buffer
	if _, err := w.WriteTo(&buf); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}
