// Package store is the database/sql access layer over the extracted NZGD
// SQLite dataset. The serving path is read-only; the insert methods exist
// for fixture loading and tests.
package store

import (
	"database/sql"
	"fmt"
	"time"

	"github.com/quakecoresoft/nzgdmap/internal/models"
)

type Store struct {
	db *sql.DB
}

func New(db *sql.DB) *Store {
	return &Store{db: db}
}

const recordColumns = `nzgd_id, name, type, latitude, longitude, investigation_date, published_date,
	original_reference, region, district, city, suburb, shallowest_depth, deepest_depth,
	measured_gwl, model_gwl_westerhoff_2019, model_vs30_foster_2019, model_vs30_stddev_foster_2019,
	tip_net_area_ratio, hammer_energy_ratio, borehole_diameter`

func scanRecord(row interface{ Scan(...any) error }) (models.Record, error) {
	var r models.Record
	err := row.Scan(
		&r.NZGDID, &r.Name, &r.Type, &r.Latitude, &r.Longitude,
		&r.InvestigationDate, &r.PublishedDate, &r.OriginalReference,
		&r.Region, &r.District, &r.City, &r.Suburb,
		&r.ShallowestDepth, &r.DeepestDepth, &r.MeasuredGWL,
		&r.ModelGWL, &r.ModelVs30, &r.ModelVs30Stddev,
		&r.TipNetAreaRatio, &r.HammerEnergyRatio, &r.BoreholeDiameter,
	)
	return r, err
}

// ListRecords returns every record ordered by name. Name order is the
// canonical record order everywhere downstream.
func (s *Store) ListRecords() ([]models.Record, error) {
	rows, err := s.db.Query(`SELECT ` + recordColumns + ` FROM records ORDER BY name`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var records []models.Record
	for rows.Next() {
		r, err := scanRecord(rows)
		if err != nil {
			return nil, err
		}
		records = append(records, r)
	}
	return records, rows.Err()
}

// CPTMeasurements returns every CPT sample grouped by record, ordered by
// depth within each record.
func (s *Store) CPTMeasurements() (map[int64][]models.ProfileSample, error) {
	rows, err := s.db.Query(`SELECT nzgd_id, depth, qc, fs, u2 FROM cpt_measurements ORDER BY nzgd_id, depth`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	samples := make(map[int64][]models.ProfileSample)
	for rows.Next() {
		var id int64
		var sm models.ProfileSample
		if err := rows.Scan(&id, &sm.Depth, &sm.Value, &sm.SleeveFriction, &sm.PorePressure); err != nil {
			return nil, err
		}
		samples[id] = append(samples[id], sm)
	}
	return samples, rows.Err()
}

// SPTMeasurements returns every SPT blow count grouped by record, ordered by
// depth within each record.
func (s *Store) SPTMeasurements() (map[int64][]models.ProfileSample, error) {
	rows, err := s.db.Query(`SELECT nzgd_id, depth, n FROM spt_measurements ORDER BY nzgd_id, depth`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	samples := make(map[int64][]models.ProfileSample)
	for rows.Next() {
		var id int64
		var sm models.ProfileSample
		if err := rows.Scan(&id, &sm.Depth, &sm.Value); err != nil {
			return nil, err
		}
		samples[id] = append(samples[id], sm)
	}
	return samples, rows.Err()
}

// SoilIntervals returns every soil log layer grouped by record, ordered by
// top depth within each record.
func (s *Store) SoilIntervals() (map[int64][]models.SoilInterval, error) {
	rows, err := s.db.Query(`SELECT nzgd_id, top_depth, thickness, soil_type FROM spt_soil_intervals ORDER BY nzgd_id, top_depth`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	intervals := make(map[int64][]models.SoilInterval)
	for rows.Next() {
		var id int64
		var si models.SoilInterval
		if err := rows.Scan(&id, &si.TopDepth, &si.Thickness, &si.SoilType); err != nil {
			return nil, err
		}
		intervals[id] = append(intervals[id], si)
	}
	return intervals, rows.Err()
}

// RetrievedAt reports when the dataset was last pulled from the NZGD.
func (s *Store) RetrievedAt() (time.Time, error) {
	var v string
	err := s.db.QueryRow(`SELECT value FROM dataset_meta WHERE key = 'retrieved_at'`).Scan(&v)
	if err == sql.ErrNoRows {
		return time.Time{}, nil
	}
	if err != nil {
		return time.Time{}, err
	}
	t, err := time.Parse("2006-01-02", v)
	if err != nil {
		return time.Time{}, fmt.Errorf("parse retrieved_at %q: %w", v, err)
	}
	return t, nil
}

func (s *Store) SetRetrievedAt(t time.Time) error {
	_, err := s.db.Exec(`
		INSERT INTO dataset_meta (key, value) VALUES ('retrieved_at', ?)
		ON CONFLICT(key) DO UPDATE SET value = excluded.value
	`, t.Format("2006-01-02"))
	return err
}

func (s *Store) UpsertRecord(r models.Record) error {
	_, err := s.db.Exec(`
		INSERT INTO records (`+recordColumns+`)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT(nzgd_id) DO UPDATE SET
			name = excluded.name,
			type = excluded.type,
			latitude = excluded.latitude,
			longitude = excluded.longitude,
			investigation_date = excluded.investigation_date,
			published_date = excluded.published_date,
			original_reference = excluded.original_reference,
			region = excluded.region,
			district = excluded.district,
			city = excluded.city,
			suburb = excluded.suburb,
			shallowest_depth = excluded.shallowest_depth,
			deepest_depth = excluded.deepest_depth,
			measured_gwl = excluded.measured_gwl,
			model_gwl_westerhoff_2019 = excluded.model_gwl_westerhoff_2019,
			model_vs30_foster_2019 = excluded.model_vs30_foster_2019,
			model_vs30_stddev_foster_2019 = excluded.model_vs30_stddev_foster_2019,
			tip_net_area_ratio = excluded.tip_net_area_ratio,
			hammer_energy_ratio = excluded.hammer_energy_ratio,
			borehole_diameter = excluded.borehole_diameter
	`, r.NZGDID, r.Name, r.Type, r.Latitude, r.Longitude,
		r.InvestigationDate, r.PublishedDate, r.OriginalReference,
		r.Region, r.District, r.City, r.Suburb,
		r.ShallowestDepth, r.DeepestDepth, r.MeasuredGWL,
		r.ModelGWL, r.ModelVs30, r.ModelVs30Stddev,
		r.TipNetAreaRatio, r.HammerEnergyRatio, r.BoreholeDiameter)
	return err
}

func (s *Store) InsertCPTMeasurement(nzgdID int64, sm models.ProfileSample) error {
	_, err := s.db.Exec(`INSERT INTO cpt_measurements (nzgd_id, depth, qc, fs, u2) VALUES (?, ?, ?, ?, ?)`,
		nzgdID, sm.Depth, sm.Value, sm.SleeveFriction, sm.PorePressure)
	return err
}

func (s *Store) InsertSPTMeasurement(nzgdID int64, sm models.ProfileSample) error {
	_, err := s.db.Exec(`INSERT INTO spt_measurements (nzgd_id, depth, n) VALUES (?, ?, ?)`,
		nzgdID, sm.Depth, sm.Value)
	return err
}

func (s *Store) InsertSoilInterval(nzgdID int64, si models.SoilInterval) error {
	_, err := s.db.Exec(`INSERT INTO spt_soil_intervals (nzgd_id, top_depth, thickness, soil_type) VALUES (?, ?, ?, ?)`,
		nzgdID, si.TopDepth, si.Thickness, si.SoilType)
	return err
}
