package api_test

import (
	"bytes"
	"database/sql"
	"encoding/json"
	"net/http/httptest"
	"net/url"
	"strings"
	"testing"

	_ "modernc.org/sqlite"

	"github.com/quakecoresoft/nzgdmap/internal/api"
	"github.com/quakecoresoft/nzgdmap/internal/dataset"
	"github.com/quakecoresoft/nzgdmap/internal/models"
	"github.com/quakecoresoft/nzgdmap/internal/store"
)

func setupServer(t *testing.T) *api.Server {
	t.Helper()
	db, err := sql.Open("sqlite", ":memory:")
	if err != nil {
		t.Fatal(err)
	}
	t.Cleanup(func() { db.Close() })

	st := store.New(db)
	if err := st.Migrate(); err != nil {
		t.Fatal(err)
	}

	records := []models.Record{
		{
			NZGDID: 1, Name: "BH_A", Type: "BH",
			Latitude: -43.53, Longitude: 172.63,
			Region: "Canterbury", District: "Christchurch City", City: "Christchurch", Suburb: "Riccarton",
			ModelVs30: sql.NullFloat64{Float64: 220, Valid: true},
		},
		{
			NZGDID: 2, Name: "CPT_B", Type: "CPT",
			Latitude: -41.29, Longitude: 174.78,
			Region: "Wellington", District: "Wellington City", City: "Wellington", Suburb: "Te Aro",
		},
	}
	for _, r := range records {
		if err := st.UpsertRecord(r); err != nil {
			t.Fatal(err)
		}
	}
	for _, d := range []float64{2, 6, 10, 14, 18} {
		if err := st.InsertSPTMeasurement(1, models.ProfileSample{Depth: d, Value: 12}); err != nil {
			t.Fatal(err)
		}
	}
	if err := st.InsertSoilInterval(1, models.SoilInterval{TopDepth: 0, Thickness: 20, SoilType: "CLAY"}); err != nil {
		t.Fatal(err)
	}

	snap, err := dataset.Load(st)
	if err != nil {
		t.Fatal(err)
	}
	return api.NewServer(dataset.NewHandle(snap), "8080")
}

func get(t *testing.T, srv *api.Server, path string) *httptest.ResponseRecorder {
	t.Helper()
	req := httptest.NewRequest("GET", path, nil)
	w := httptest.NewRecorder()
	srv.Handler().ServeHTTP(w, req)
	return w
}

func TestHealthEndpoint(t *testing.T) {
	t.Parallel()
	srv := setupServer(t)

	w := get(t, srv, "/health")
	if w.Code != 200 {
		t.Fatalf("expected 200, got %d", w.Code)
	}
	body := w.Body.String()
	if !strings.Contains(body, `"status"`) {
		t.Error("expected status field in JSON response")
	}
	if !strings.Contains(body, `"records":2`) {
		t.Errorf("expected records count in response, got %s", body)
	}
}

func TestRecordsEndpoint(t *testing.T) {
	t.Parallel()
	srv := setupServer(t)

	w := get(t, srv, "/api/records")
	if w.Code != 200 {
		t.Fatalf("expected 200, got %d", w.Code)
	}

	var resp struct {
		Records []struct {
			Name string
			Vs30 sql.NullFloat64
		}
		ValidationError *struct{ Msg string }
		WithoutEstimate int
	}
	if err := json.NewDecoder(w.Body).Decode(&resp); err != nil {
		t.Fatalf("decode response: %v", err)
	}
	if resp.ValidationError != nil {
		t.Fatalf("ValidationError = %+v, want nil", resp.ValidationError)
	}
	if len(resp.Records) != 2 {
		t.Fatalf("len(Records) = %d, want 2", len(resp.Records))
	}
	if resp.Records[0].Name != "BH_A" || !resp.Records[0].Vs30.Valid {
		t.Errorf("Records[0] = %+v, want BH_A with an estimate", resp.Records[0])
	}
	// CPT_B has no measurements at all.
	if resp.WithoutEstimate != 1 {
		t.Errorf("WithoutEstimate = %d, want 1", resp.WithoutEstimate)
	}
}

func TestRecordsEndpointFiltered(t *testing.T) {
	t.Parallel()
	srv := setupServer(t)

	w := get(t, srv, "/api/records?query="+escape(`region == "Canterbury"`))
	var resp struct {
		Records []struct{ Name string }
	}
	if err := json.NewDecoder(w.Body).Decode(&resp); err != nil {
		t.Fatalf("decode response: %v", err)
	}
	if len(resp.Records) != 1 || resp.Records[0].Name != "BH_A" {
		t.Errorf("Records = %+v, want only BH_A", resp.Records)
	}
}

func TestRecordsEndpointInvalidQuery(t *testing.T) {
	t.Parallel()
	srv := setupServer(t)

	w := get(t, srv, "/api/records?query="+escape(`__import__('os')`))
	if w.Code != 200 {
		t.Fatalf("expected 200 with an in-band error, got %d", w.Code)
	}
	var resp struct {
		Records         []struct{ Name string }
		ValidationError *struct {
			Msg string
			Pos int
		}
	}
	if err := json.NewDecoder(w.Body).Decode(&resp); err != nil {
		t.Fatalf("decode response: %v", err)
	}
	if resp.ValidationError == nil {
		t.Fatal("ValidationError = nil, want a rejection")
	}
	if len(resp.Records) != 0 {
		t.Errorf("Records = %+v, want empty on a rejected query", resp.Records)
	}
}

func TestValidateEndpoint(t *testing.T) {
	t.Parallel()
	srv := setupServer(t)

	w := get(t, srv, "/validate?query="+escape(`vs30 < 100`))
	if !strings.Contains(w.Body.String(), `"Valid":true`) {
		t.Errorf("valid query response = %s", w.Body.String())
	}

	w = get(t, srv, "/validate?query="+escape(`nope == 1`))
	body := w.Body.String()
	if !strings.Contains(body, `"Valid":false`) || !strings.Contains(body, "unknown field") {
		t.Errorf("invalid query response = %s", body)
	}
}

func TestRecordDetailEndpoint(t *testing.T) {
	t.Parallel()
	srv := setupServer(t)

	w := get(t, srv, "/api/records/BH_A")
	if w.Code != 200 {
		t.Fatalf("expected 200, got %d", w.Code)
	}
	body := w.Body.String()
	if !strings.Contains(body, `"BH_A"`) || !strings.Contains(body, "brandenberg_2010") {
		t.Errorf("detail response missing expected content: %s", body)
	}

	if w := get(t, srv, "/api/records/BH_NOPE"); w.Code != 404 {
		t.Errorf("unknown record: expected 404, got %d", w.Code)
	}
}

func TestCorrelationsEndpoint(t *testing.T) {
	t.Parallel()
	srv := setupServer(t)

	w := get(t, srv, "/api/correlations")
	if w.Code != 200 {
		t.Fatalf("expected 200, got %d", w.Code)
	}
	body := w.Body.String()
	for _, want := range []string{"boore_2004", "boore_2011", "mcgann_2015", "vs30_log_residual"} {
		if !strings.Contains(body, want) {
			t.Errorf("correlations response missing %q", want)
		}
	}
}

func TestDownloadMeasurements(t *testing.T) {
	t.Parallel()
	srv := setupServer(t)

	w := get(t, srv, "/download/measurements/BH_A.csv")
	if w.Code != 200 {
		t.Fatalf("expected 200, got %d", w.Code)
	}
	if ct := w.Header().Get("Content-Type"); ct != "text/csv" {
		t.Errorf("Content-Type = %q, want text/csv", ct)
	}
	lines := strings.Split(strings.TrimSpace(w.Body.String()), "\n")
	if lines[0] != "depth_m,number_of_blows" {
		t.Errorf("header = %q", lines[0])
	}
	if len(lines) != 6 {
		t.Errorf("len(lines) = %d, want header + 5 samples", len(lines))
	}

	// CPT_B exists but has no measurements.
	if w := get(t, srv, "/download/measurements/CPT_B.csv"); w.Code != 404 {
		t.Errorf("no-measurement record: expected 404, got %d", w.Code)
	}
}

func TestDownloadSoil(t *testing.T) {
	t.Parallel()
	srv := setupServer(t)

	w := get(t, srv, "/download/soil/BH_A.csv")
	if w.Code != 200 {
		t.Fatalf("expected 200, got %d", w.Code)
	}
	if !strings.Contains(w.Body.String(), "CLAY") {
		t.Errorf("soil CSV missing layer: %s", w.Body.String())
	}

	if w := get(t, srv, "/download/soil/CPT_B.csv"); w.Code != 404 {
		t.Errorf("no-soil record: expected 404, got %d", w.Code)
	}
}

func TestPlotEndpoint(t *testing.T) {
	t.Parallel()
	srv := setupServer(t)

	w := get(t, srv, "/plots/BH_A.png")
	if w.Code != 200 {
		t.Fatalf("expected 200, got %d", w.Code)
	}
	if ct := w.Header().Get("Content-Type"); ct != "image/png" {
		t.Errorf("Content-Type = %q, want image/png", ct)
	}
	if !bytes.HasPrefix(w.Body.Bytes(), []byte("\x89PNG")) {
		t.Error("response body is not a PNG")
	}

	if w := get(t, srv, "/plots/CPT_B.png"); w.Code != 404 {
		t.Errorf("no-measurement record: expected 404, got %d", w.Code)
	}
}

func escape(q string) string { return url.QueryEscape(q) }
