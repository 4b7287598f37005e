package api

import (
	"encoding/csv"
	"fmt"
	"net/http"
	"strings"

	"github.com/quakecoresoft/nzgdmap/internal/plot"
	"github.com/quakecoresoft/nzgdmap/internal/view"
)

func recordName(path, prefix string) string {
	name := strings.TrimPrefix(path, prefix)
	name = strings.TrimSuffix(name, ".csv")
	return strings.TrimSuffix(name, ".png")
}

func writeCSV(w http.ResponseWriter, filename string, t view.Table) {
	w.Header().Set("Content-Type", "text/csv")
	w.Header().Set("Content-Disposition", fmt.Sprintf("attachment; filename=%s", filename))
	cw := csv.NewWriter(w)
	cw.Write(t.Columns)
	cw.WriteAll(t.Rows)
	cw.Flush()
}

func (s *Server) handleDownloadMeasurements(w http.ResponseWriter, r *http.Request) {
	name := recordName(r.URL.Path, "/download/measurements/")
	snap := s.handle.Current()
	rec, ok := snap.Record(name)
	if !ok {
		http.Error(w, "record not found", http.StatusNotFound)
		return
	}
	profile, ok := snap.Profile(rec.NZGDID)
	if !ok {
		http.Error(w, "record has no measurements", http.StatusNotFound)
		return
	}
	writeCSV(w, name+".csv", view.ProfileTable(profile))
}

func (s *Server) handleDownloadSoil(w http.ResponseWriter, r *http.Request) {
	name := recordName(r.URL.Path, "/download/soil/")
	snap := s.handle.Current()
	rec, ok := snap.Record(name)
	if !ok {
		http.Error(w, "record not found", http.StatusNotFound)
		return
	}
	soils := snap.Soils(rec.NZGDID)
	if len(soils) == 0 {
		http.Error(w, "record has no soil log", http.StatusNotFound)
		return
	}
	writeCSV(w, name+"_soil_types.csv", view.SoilTable(soils))
}

func (s *Server) handlePlot(w http.ResponseWriter, r *http.Request) {
	name := recordName(r.URL.Path, "/plots/")
	snap := s.handle.Current()
	rec, ok := snap.Record(name)
	if !ok {
		http.Error(w, "record not found", http.StatusNotFound)
		return
	}
	profile, ok := snap.Profile(rec.NZGDID)
	if !ok {
		http.Error(w, "record has no measurements", http.StatusNotFound)
		return
	}
	png, err := plot.Profile(profile)
	if err != nil {
		http.Error(w, err.Error(), http.StatusInternalServerError)
		return
	}
	w.Header().Set("Content-Type", "image/png")
	w.Write(png)
}
