package api

import (
	"encoding/json"
	"net/http"
	"strconv"
	"strings"

	"github.com/quakecoresoft/nzgdmap/internal/correlation"
	"github.com/quakecoresoft/nzgdmap/internal/metrics"
	"github.com/quakecoresoft/nzgdmap/internal/query"
	"github.com/quakecoresoft/nzgdmap/internal/view"
)

func writeJSON(w http.ResponseWriter, v any) {
	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(v)
}

func (s *Server) handleRecords(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	bins, _ := strconv.Atoi(q.Get("hist_bins"))
	req := view.Request{
		Query:            q.Get("query"),
		Vs30Correlation:  q.Get("vs30_correlation"),
		SPTVsCorrelation: q.Get("spt_vs_correlation"),
		CPTVsCorrelation: q.Get("cpt_vs_correlation"),
		ColourBy:         q.Get("colour_by"),
		HistBy:           q.Get("hist_by"),
		HistBins:         bins,
	}

	resp := view.BuildIndex(s.handle.Current(), req)
	if resp.ValidationError != nil {
		metrics.QueriesEvaluated.WithLabelValues("invalid").Inc()
	} else {
		metrics.QueriesEvaluated.WithLabelValues("ok").Inc()
	}
	writeJSON(w, resp)
}

func (s *Server) handleRecordDetail(w http.ResponseWriter, r *http.Request) {
	name := strings.TrimPrefix(r.URL.Path, "/api/records/")
	if name == "" {
		http.Error(w, "record name required", http.StatusBadRequest)
		return
	}
	detail, ok := view.BuildRecordDetail(s.handle.Current(), name)
	if !ok {
		http.Error(w, "record not found", http.StatusNotFound)
		return
	}
	writeJSON(w, detail)
}

// correlationOption pairs a model key with its display name.
type correlationOption struct {
	Key  string
	Name string
}

func (s *Server) handleCorrelations(w http.ResponseWriter, r *http.Request) {
	options := func(kind correlation.Kind) []correlationOption {
		var opts []correlationOption
		for _, key := range correlation.List(kind) {
			name := key
			switch kind {
			case correlation.KindVsToVs30:
				if m, err := correlation.VsToVs30(key); err == nil {
					name = m.Name
				}
			default:
				if m, err := correlation.RawToVs(kind, key); err == nil {
					name = m.Name
				}
			}
			opts = append(opts, correlationOption{Key: key, Name: name})
		}
		return opts
	}

	writeJSON(w, map[string]any{
		"SPTToVs":      options(correlation.KindSPTToVs),
		"CPTToVs":      options(correlation.KindCPTToVs),
		"VsToVs30":     options(correlation.KindVsToVs30),
		"DisplayAttrs": view.DisplayAttrs(),
		"QueryFields":  query.Fields(),
	})
}

// handleValidate checks a query string without evaluating it, for
// as-you-type feedback. It never mutates anything.
func (s *Server) handleValidate(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query().Get("query")
	if err := query.Validate(q); err != nil {
		writeJSON(w, map[string]any{"Valid": false, "Error": err.Msg, "Pos": err.Pos})
		return
	}
	writeJSON(w, map[string]any{"Valid": true})
}

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	snap := s.handle.Current()
	writeJSON(w, map[string]any{
		"status":   "ok",
		"records":  len(snap.Records),
		"loadedAt": snap.Meta.LoadedAt,
	})
}
