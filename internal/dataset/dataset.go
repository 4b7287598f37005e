// Package dataset holds the in-memory snapshot of the record index. A
// snapshot is immutable once built; reloads build a fresh snapshot and swap
// it in atomically so in-flight requests always see a consistent version.
package dataset

import (
	"fmt"
	"log"
	"math"
	"sync"
	"sync/atomic"
	"time"

	"github.com/quakecoresoft/nzgdmap/internal/models"
	"github.com/quakecoresoft/nzgdmap/internal/store"
)

// DataIntegrityError describes a malformed dataset row. It is fatal for the
// record only: the record is logged and skipped, never the whole load.
type DataIntegrityError struct {
	RecordName string
	Reason     string
}

func (e *DataIntegrityError) Error() string {
	return fmt.Sprintf("record %s: %s", e.RecordName, e.Reason)
}

// Snapshot is one immutable version of the dataset plus a cache of derived
// estimates. The cache is keyed by correlation selection and guarded by a
// mutex; everything else is read-only after Load.
type Snapshot struct {
	Meta     models.DatasetMeta
	Records  []models.Record // ordered by name
	byName   map[string]int
	profiles map[int64]models.DepthProfile
	soils    map[int64][]models.SoilInterval

	mu        sync.RWMutex
	estimates map[string][]Estimate
}

// Estimate pairs a record's Vs30 result with the per-record error that
// prevented one, if any. Exactly one of the two is meaningful.
type Estimate struct {
	Value models.Vs30Estimate
	Err   error
}

// Load builds a snapshot from the store, applying per-row integrity checks.
func Load(st *store.Store) (*Snapshot, error) {
	records, err := st.ListRecords()
	if err != nil {
		return nil, fmt.Errorf("list records: %w", err)
	}
	cpt, err := st.CPTMeasurements()
	if err != nil {
		return nil, fmt.Errorf("load cpt measurements: %w", err)
	}
	spt, err := st.SPTMeasurements()
	if err != nil {
		return nil, fmt.Errorf("load spt measurements: %w", err)
	}
	soils, err := st.SoilIntervals()
	if err != nil {
		return nil, fmt.Errorf("load soil intervals: %w", err)
	}
	retrievedAt, err := st.RetrievedAt()
	if err != nil {
		return nil, fmt.Errorf("load dataset meta: %w", err)
	}

	snap := &Snapshot{
		byName:    make(map[string]int),
		profiles:  make(map[int64]models.DepthProfile),
		soils:     soils,
		estimates: make(map[string][]Estimate),
	}
	skipped := 0
	for _, r := range records {
		samples := cpt[r.NZGDID]
		isSPT := r.IsSPT()
		if isSPT {
			samples = spt[r.NZGDID]
		}
		if err := checkRecord(r, samples); err != nil {
			log.Printf("dataset: skipping: %v", err)
			skipped++
			continue
		}
		snap.byName[r.Name] = len(snap.Records)
		snap.Records = append(snap.Records, r)
		if len(samples) > 0 {
			snap.profiles[r.NZGDID] = models.DepthProfile{
				RecordName: r.Name,
				SPT:        isSPT,
				Samples:    samples,
			}
		}
	}
	snap.Meta = models.DatasetMeta{
		RetrievedAt: retrievedAt,
		LoadedAt:    time.Now().UTC(),
		Skipped:     skipped,
	}
	return snap, nil
}

// checkRecord enforces the invariants the computation layer relies on:
// usable coordinates and a depth profile that is non-negative, strictly
// increasing and free of duplicates.
func checkRecord(r models.Record, samples []models.ProfileSample) *DataIntegrityError {
	if r.Name == "" {
		return &DataIntegrityError{RecordName: fmt.Sprintf("nzgd_id %d", r.NZGDID), Reason: "empty record name"}
	}
	if math.IsNaN(r.Latitude) || math.IsNaN(r.Longitude) ||
		math.Abs(r.Latitude) > 90 || math.Abs(r.Longitude) > 180 {
		return &DataIntegrityError{RecordName: r.Name, Reason: fmt.Sprintf("coordinates out of range (%v, %v)", r.Latitude, r.Longitude)}
	}
	prev := math.Inf(-1)
	for _, sm := range samples {
		if sm.Depth < 0 {
			return &DataIntegrityError{RecordName: r.Name, Reason: fmt.Sprintf("negative depth %v", sm.Depth)}
		}
		if sm.Depth == prev {
			return &DataIntegrityError{RecordName: r.Name, Reason: fmt.Sprintf("duplicate depth %v", sm.Depth)}
		}
		if sm.Depth < prev {
			return &DataIntegrityError{RecordName: r.Name, Reason: fmt.Sprintf("depth %v out of order", sm.Depth)}
		}
		prev = sm.Depth
	}
	return nil
}

// Record looks a record up by name.
func (s *Snapshot) Record(name string) (models.Record, bool) {
	i, ok := s.byName[name]
	if !ok {
		return models.Record{}, false
	}
	return s.Records[i], true
}

// Profile returns the record's raw depth profile, if it has one.
func (s *Snapshot) Profile(nzgdID int64) (models.DepthProfile, bool) {
	p, ok := s.profiles[nzgdID]
	return p, ok
}

// Soils returns the record's soil log. Empty for most CPT records.
func (s *Snapshot) Soils(nzgdID int64) []models.SoilInterval {
	return s.soils[nzgdID]
}

// RecordNames returns all record names in canonical (name) order.
func (s *Snapshot) RecordNames() []string {
	names := make([]string, len(s.Records))
	for i, r := range s.Records {
		names[i] = r.Name
	}
	return names
}

// Handle is the process-wide pointer to the current snapshot. Swap is
// atomic; readers that already hold a snapshot keep it until they finish.
type Handle struct {
	p atomic.Pointer[Snapshot]
}

func NewHandle(snap *Snapshot) *Handle {
	h := &Handle{}
	h.p.Store(snap)
	return h
}

func (h *Handle) Current() *Snapshot { return h.p.Load() }

func (h *Handle) Swap(snap *Snapshot) { h.p.Store(snap) }
