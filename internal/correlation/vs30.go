package correlation

import "math"

// travelTimeVs30 computes the time-averaged velocity over the top 30 m.
// Layers deeper than 30 m are truncated; when the profile is shallower the
// deepest layer's velocity is extended to 30 m and the result is flagged as
// extrapolated. Uncertainty combines per-layer ln-space stddevs under an
// independent-error assumption, weighted by each layer's share of travel
// time (the sensitivity of ln Vs30 to ln Vs_i).
func travelTimeVs30(layers []VsLayer) Vs30Result {
	const target = 30.0

	covered := 0.0
	travelTime := 0.0
	type contrib struct {
		time     float64
		lnStddev float64
	}
	var contribs []contrib

	for _, l := range layers {
		if covered >= target {
			break
		}
		th := l.Thickness
		if covered+th > target {
			th = target - covered
		}
		t := th / l.Vs
		travelTime += t
		covered += th
		contribs = append(contribs, contrib{time: t, lnStddev: l.LnStddev})
	}

	res := Vs30Result{}
	if covered < target && len(layers) > 0 {
		last := layers[len(layers)-1]
		t := (target - covered) / last.Vs
		travelTime += t
		contribs = append(contribs, contrib{time: t, lnStddev: last.LnStddev})
		res.Extrapolated = true
	}
	if travelTime <= 0 {
		return res
	}

	res.Vs30 = target / travelTime
	variance := 0.0
	for _, c := range contribs {
		w := c.time / travelTime
		variance += w * w * c.lnStddev * c.lnStddev
	}
	res.LnStddev = math.Sqrt(variance)
	return res
}

// Boore (2004) and Boore et al. (2011) differ only in the minimum profile
// depth their extrapolations were validated for: 10 m and 5 m respectively.
// Records shallower than the minimum produce no estimate under that model.
var boore2004 = VsToVs30Model{
	Key:      "boore_2004",
	Name:     "Boore (2004)",
	MinDepth: 10,
	fn:       travelTimeVs30,
}

var boore2011 = VsToVs30Model{
	Key:      "boore_2011",
	Name:     "Boore et al. (2011)",
	MinDepth: 5,
	fn:       travelTimeVs30,
}
