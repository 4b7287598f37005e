package correlation

import "strings"

// SoilClass is the coarse soil category the SPT correlations are fitted to.
type SoilClass int

const (
	SoilSand SoilClass = iota
	SoilSilt
	SoilClay
)

func (s SoilClass) String() string {
	switch s {
	case SoilSilt:
		return "silt"
	case SoilClay:
		return "clay"
	}
	return "sand"
}

// DefaultSoil is assumed when a record has no soil log. Sand is the most
// common surficial soil in the dataset.
const DefaultSoil = SoilSand

// ClassifySoil maps a free-text soil log label onto a SoilClass. The primary
// constituent is named last in NZGD logs, so "SANDY SILT" classifies as silt.
func ClassifySoil(label string) SoilClass {
	l := strings.ToUpper(strings.TrimSpace(label))
	switch {
	case strings.HasSuffix(l, "CLAY"):
		return SoilClay
	case strings.HasSuffix(l, "SILT"):
		return SoilSilt
	case strings.HasSuffix(l, "SAND") || strings.HasSuffix(l, "GRAVEL"):
		return SoilSand
	case strings.Contains(l, "CLAY"):
		return SoilClay
	case strings.Contains(l, "SILT"):
		return SoilSilt
	default:
		return SoilSand
	}
}
