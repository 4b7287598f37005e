package dataset

import (
	"database/sql"
	"errors"
	"testing"

	_ "modernc.org/sqlite"

	"github.com/quakecoresoft/nzgdmap/internal/correlation"
	"github.com/quakecoresoft/nzgdmap/internal/models"
	"github.com/quakecoresoft/nzgdmap/internal/store"
)

func setupTestStore(t *testing.T) *store.Store {
	t.Helper()
	db, err := sql.Open("sqlite", ":memory:")
	if err != nil {
		t.Fatalf("open db: %v", err)
	}
	t.Cleanup(func() { db.Close() })

	st := store.New(db)
	if err := st.Migrate(); err != nil {
		t.Fatalf("migrate: %v", err)
	}
	return st
}

func seedRecord(t *testing.T, st *store.Store, r models.Record) {
	t.Helper()
	if err := st.UpsertRecord(r); err != nil {
		t.Fatalf("UpsertRecord(%s): %v", r.Name, err)
	}
}

func seedSPTProfile(t *testing.T, st *store.Store, id int64, depths ...float64) {
	t.Helper()
	for _, d := range depths {
		if err := st.InsertSPTMeasurement(id, models.ProfileSample{Depth: d, Value: 15}); err != nil {
			t.Fatalf("InsertSPTMeasurement: %v", err)
		}
	}
}

func seedCPTProfile(t *testing.T, st *store.Store, id int64, depths ...float64) {
	t.Helper()
	for _, d := range depths {
		sm := models.ProfileSample{
			Depth:          d,
			Value:          2.5,
			SleeveFriction: sql.NullFloat64{Float64: 0.05, Valid: true},
		}
		if err := st.InsertCPTMeasurement(id, sm); err != nil {
			t.Fatalf("InsertCPTMeasurement: %v", err)
		}
	}
}

func TestLoadBuildsSnapshot(t *testing.T) {
	st := setupTestStore(t)
	seedRecord(t, st, models.Record{NZGDID: 1, Name: "BH_1", Type: "BH", Latitude: -43.5, Longitude: 172.6})
	seedRecord(t, st, models.Record{NZGDID: 2, Name: "CPT_2", Type: "CPT", Latitude: -43.6, Longitude: 172.7})
	seedSPTProfile(t, st, 1, 2, 6, 12)
	seedCPTProfile(t, st, 2, 1, 5, 11)
	if err := st.InsertSoilInterval(1, models.SoilInterval{TopDepth: 0, Thickness: 15, SoilType: "CLAY"}); err != nil {
		t.Fatalf("InsertSoilInterval: %v", err)
	}

	snap, err := Load(st)
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if len(snap.Records) != 2 {
		t.Fatalf("len(Records) = %d, want 2", len(snap.Records))
	}
	if snap.Meta.Skipped != 0 {
		t.Errorf("Skipped = %d, want 0", snap.Meta.Skipped)
	}

	rec, ok := snap.Record("BH_1")
	if !ok {
		t.Fatal("Record(BH_1) not found")
	}
	if !rec.IsSPT() {
		t.Error("BH_1 not recognised as SPT")
	}

	profile, ok := snap.Profile(1)
	if !ok {
		t.Fatal("Profile(1) missing")
	}
	if !profile.SPT || len(profile.Samples) != 3 {
		t.Errorf("Profile(1) = %+v, want 3 SPT samples", profile)
	}
	cptProfile, ok := snap.Profile(2)
	if !ok {
		t.Fatal("Profile(2) missing")
	}
	if cptProfile.SPT {
		t.Error("CPT_2 profile marked as SPT")
	}
	if len(snap.Soils(1)) != 1 {
		t.Errorf("Soils(1) = %v, want one interval", snap.Soils(1))
	}
	if got := snap.RecordNames(); len(got) != 2 || got[0] != "BH_1" || got[1] != "CPT_2" {
		t.Errorf("RecordNames = %v, want [BH_1 CPT_2]", got)
	}
}

func TestLoadSkipsMalformedRecords(t *testing.T) {
	st := setupTestStore(t)
	seedRecord(t, st, models.Record{NZGDID: 1, Name: "CPT_OK", Type: "CPT", Latitude: -43.5, Longitude: 172.6})
	seedRecord(t, st, models.Record{NZGDID: 2, Name: "CPT_BADLAT", Type: "CPT", Latitude: 212.0, Longitude: 172.6})
	seedRecord(t, st, models.Record{NZGDID: 3, Name: "CPT_DUPDEPTH", Type: "CPT", Latitude: -43.5, Longitude: 172.6})
	seedCPTProfile(t, st, 3, 2, 2) // duplicate depth
	seedRecord(t, st, models.Record{NZGDID: 4, Name: "CPT_NEGDEPTH", Type: "CPT", Latitude: -43.5, Longitude: 172.6})
	seedCPTProfile(t, st, 4, -1, 3)

	snap, err := Load(st)
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if len(snap.Records) != 1 || snap.Records[0].Name != "CPT_OK" {
		t.Fatalf("Records = %v, want only CPT_OK", snap.RecordNames())
	}
	if snap.Meta.Skipped != 3 {
		t.Errorf("Skipped = %d, want 3", snap.Meta.Skipped)
	}
	if _, ok := snap.Record("CPT_BADLAT"); ok {
		t.Error("record with out-of-range latitude survived the load")
	}
}

func TestEstimatesCachedPerSelection(t *testing.T) {
	st := setupTestStore(t)
	seedRecord(t, st, models.Record{NZGDID: 1, Name: "BH_1", Type: "BH", Latitude: -43.5, Longitude: 172.6})
	seedSPTProfile(t, st, 1, 2, 6, 12)

	snap, err := Load(st)
	if err != nil {
		t.Fatalf("Load: %v", err)
	}

	sptKey := correlation.Default(correlation.KindSPTToVs)
	cptKey := correlation.Default(correlation.KindCPTToVs)
	vs30Key := correlation.Default(correlation.KindVsToVs30)

	first := snap.Estimates(sptKey, cptKey, vs30Key)
	second := snap.Estimates(sptKey, cptKey, vs30Key)
	if &first[0] != &second[0] {
		t.Error("repeated selection recomputed instead of returning the cached slice")
	}

	other := snap.Estimates(sptKey, cptKey, "boore_2011")
	if &other[0] == &first[0] {
		t.Error("different selection shared a cache entry")
	}
}

func TestEstimatesPerRecordOutcomes(t *testing.T) {
	st := setupTestStore(t)
	// Deep SPT record: estimate. Shallow CPT record: insufficient data.
	// CPT without sleeve friction under mcgann_2015: missing input.
	seedRecord(t, st, models.Record{
		NZGDID: 1, Name: "BH_1", Type: "BH", Latitude: -43.5, Longitude: 172.6,
		ModelVs30: sql.NullFloat64{Float64: 220, Valid: true},
	})
	seedSPTProfile(t, st, 1, 2, 6, 12, 18)
	seedRecord(t, st, models.Record{NZGDID: 2, Name: "CPT_2", Type: "CPT", Latitude: -43.6, Longitude: 172.7})
	seedCPTProfile(t, st, 2, 1, 3)
	seedRecord(t, st, models.Record{NZGDID: 3, Name: "CPT_3", Type: "CPT", Latitude: -43.7, Longitude: 172.8})
	for _, d := range []float64{1, 6, 12} {
		if err := st.InsertCPTMeasurement(3, models.ProfileSample{Depth: d, Value: 2.5}); err != nil {
			t.Fatalf("InsertCPTMeasurement: %v", err)
		}
	}

	snap, err := Load(st)
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	ests := snap.Estimates("brandenberg_2010", "mcgann_2015", "boore_2011")
	if len(ests) != 3 {
		t.Fatalf("len(estimates) = %d, want 3", len(ests))
	}

	// Records come back in name order: BH_1, CPT_2, CPT_3.
	if ests[0].Err != nil {
		t.Errorf("BH_1 estimate error = %v, want nil", ests[0].Err)
	}
	if !ests[0].Value.LogResidual.Valid {
		t.Error("BH_1 estimate missing its log residual")
	}
	if outcomeLabel(ests[1].Err) != "insufficient_data" {
		t.Errorf("CPT_2 outcome = %q, want insufficient_data", outcomeLabel(ests[1].Err))
	}
	if outcomeLabel(ests[2].Err) != "missing_input" {
		t.Errorf("CPT_3 outcome = %q, want missing_input", outcomeLabel(ests[2].Err))
	}
}

func TestEstimatesUnknownModelKey(t *testing.T) {
	st := setupTestStore(t)
	seedRecord(t, st, models.Record{NZGDID: 1, Name: "BH_1", Type: "BH", Latitude: -43.5, Longitude: 172.6})
	seedSPTProfile(t, st, 1, 2, 6, 12)

	snap, err := Load(st)
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	ests := snap.Estimates("not_a_model", correlation.Default(correlation.KindCPTToVs), "boore_2011")
	var unknown *correlation.UnknownModelError
	if !errors.As(ests[0].Err, &unknown) {
		t.Errorf("estimate error = %v, want UnknownModelError", ests[0].Err)
	}
}

func TestHandleSwap(t *testing.T) {
	st := setupTestStore(t)
	seedRecord(t, st, models.Record{NZGDID: 1, Name: "BH_1", Type: "BH", Latitude: -43.5, Longitude: 172.6})

	first, err := Load(st)
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	h := NewHandle(first)
	if h.Current() != first {
		t.Fatal("Current() did not return the initial snapshot")
	}

	seedRecord(t, st, models.Record{NZGDID: 2, Name: "CPT_2", Type: "CPT", Latitude: -43.6, Longitude: 172.7})
	second, err := Load(st)
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	h.Swap(second)
	if h.Current() != second {
		t.Error("Swap did not install the new snapshot")
	}
	if len(first.Records) != 1 {
		t.Error("old snapshot mutated by reload")
	}
}
