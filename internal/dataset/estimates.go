package dataset

import (
	"errors"

	"github.com/quakecoresoft/nzgdmap/internal/correlation"
	"github.com/quakecoresoft/nzgdmap/internal/metrics"
	"github.com/quakecoresoft/nzgdmap/internal/models"
	"github.com/quakecoresoft/nzgdmap/internal/vs30"
)

// Estimates returns one entry per record, in record order, computed under
// the given correlation selection. Keys must already be validated; callers
// resolve unknown keys to defaults before getting here. Results are cached
// on the snapshot for the selection, so repeated requests with the same
// dropdown choices do not recompute.
func (s *Snapshot) Estimates(sptKey, cptKey, vs30Key string) []Estimate {
	cacheKey := sptKey + "|" + cptKey + "|" + vs30Key

	s.mu.RLock()
	cached, ok := s.estimates[cacheKey]
	s.mu.RUnlock()
	if ok {
		return cached
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	if cached, ok := s.estimates[cacheKey]; ok {
		return cached
	}

	sptModel, sptErr := correlation.RawToVs(correlation.KindSPTToVs, sptKey)
	cptModel, cptErr := correlation.RawToVs(correlation.KindCPTToVs, cptKey)
	vsModel, vsErr := correlation.VsToVs30(vs30Key)

	out := make([]Estimate, len(s.Records))
	for i, r := range s.Records {
		rawModel, rawErr := cptModel, cptErr
		if r.IsSPT() {
			rawModel, rawErr = sptModel, sptErr
		}
		if rawErr != nil {
			out[i] = Estimate{Err: rawErr}
			continue
		}
		if vsErr != nil {
			out[i] = Estimate{Err: vsErr}
			continue
		}

		profile, _ := s.Profile(r.NZGDID)
		if profile.RecordName == "" {
			profile = models.DepthProfile{RecordName: r.Name, SPT: r.IsSPT()}
		}
		params := models.InstrumentParams{
			HammerEnergyRatio: r.HammerEnergyRatio,
			BoreholeDiameter:  r.BoreholeDiameter,
			TipNetAreaRatio:   r.TipNetAreaRatio,
			MeasuredGWL:       r.MeasuredGWL,
		}
		est, err := vs30.Compute(profile, s.Soils(r.NZGDID), rawModel, vsModel, params, r.ModelVs30)
		out[i] = Estimate{Value: est, Err: err}
		metrics.Vs30Computations.WithLabelValues(outcomeLabel(err)).Inc()
	}

	s.estimates[cacheKey] = out
	return out
}

func outcomeLabel(err error) string {
	var insufficient *vs30.InsufficientDataError
	var missing *correlation.MissingInputError
	switch {
	case err == nil:
		return "ok"
	case errors.As(err, &insufficient):
		return "insufficient_data"
	case errors.As(err, &missing):
		return "missing_input"
	default:
		return "error"
	}
}
