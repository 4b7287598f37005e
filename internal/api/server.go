// Package api serves the record index, per-record details, CSV downloads
// and profile plots over HTTP. It is delivery glue: all computation happens
// in the dataset, query and view packages.
package api

import (
	"context"
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/quakecoresoft/nzgdmap/internal/dataset"
	"github.com/quakecoresoft/nzgdmap/internal/metrics"
)

type Server struct {
	handle *dataset.Handle
	port   string
}

func NewServer(handle *dataset.Handle, port string) *Server {
	return &Server{handle: handle, port: port}
}

func (s *Server) Handler() http.Handler {
	mux := http.NewServeMux()
	mux.HandleFunc("/api/records", s.timed("records", s.handleRecords))
	mux.HandleFunc("/api/records/", s.timed("record_detail", s.handleRecordDetail))
	mux.HandleFunc("/api/correlations", s.timed("correlations", s.handleCorrelations))
	mux.HandleFunc("/validate", s.timed("validate", s.handleValidate))
	mux.HandleFunc("/download/measurements/", s.timed("download_measurements", s.handleDownloadMeasurements))
	mux.HandleFunc("/download/soil/", s.timed("download_soil", s.handleDownloadSoil))
	mux.HandleFunc("/plots/", s.timed("plots", s.handlePlot))
	mux.HandleFunc("/health", s.handleHealth)
	mux.Handle("/metrics", promhttp.Handler())
	return mux
}

func (s *Server) timed(endpoint string, fn http.HandlerFunc) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		fn(w, r)
		metrics.RequestDuration.WithLabelValues(endpoint).Observe(time.Since(start).Seconds())
	}
}

func (s *Server) Run(ctx context.Context) error {
	server := &http.Server{
		Addr:    ":" + s.port,
		Handler: s.Handler(),
	}

	go func() {
		<-ctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		server.Shutdown(shutdownCtx)
	}()

	if err := server.ListenAndServe(); err != http.ErrServerClosed {
		return err
	}
	return nil
}
