package repository

import (
	"context"
	"database/sql"
	"fmt"
	"os"
	"path/filepath"
	"time"

	_ "modernc.org/sqlite"

	"github.com/drug-reco-engine/internal/domain"
)

// SQLiteStore reads clinical records from a local SQLite file. Dates are
// stored as text and parsed with ParseDate, so files exported by other tools
// load as long as they use a supported layout.
type SQLiteStore struct {
	db     *sql.DB
	dbPath string
}

// NewSQLiteStore opens the database, creating the file and schema if needed.
func NewSQLiteStore(dbPath string) (*SQLiteStore, error) {
	if dir := filepath.Dir(dbPath); dir != "" {
		if err := os.MkdirAll(dir, 0755); err != nil {
			return nil, fmt.Errorf("failed to create directory: %w", err)
		}
	}

	db, err := sql.Open("sqlite", dbPath)
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}

	if _, err := db.Exec("PRAGMA journal_mode=WAL"); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to set WAL mode: %w", err)
	}

	if err := createClinicalSchema(db); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to create schema: %w", err)
	}

	return &SQLiteStore{db: db, dbPath: dbPath}, nil
}

func createClinicalSchema(db *sql.DB) error {
	schema := `
	CREATE TABLE IF NOT EXISTS patients (
		patient_id TEXT PRIMARY KEY,
		name TEXT,
		gender TEXT,
		birth_date TEXT
	);

	CREATE TABLE IF NOT EXISTS visits (
		visit_id TEXT PRIMARY KEY,
		patient_id TEXT NOT NULL,
		diagnosis TEXT,
		chief_complaint TEXT,
		age_months REAL,
		weight_kg REAL,
		gender TEXT,
		visit_type TEXT,
		outcome_class TEXT,
		recovery_days REAL,
		visit_date TEXT
	);

	CREATE TABLE IF NOT EXISTS visit_drugs (
		id INTEGER PRIMARY KEY AUTOINCREMENT,
		visit_id TEXT NOT NULL,
		drug_name TEXT,
		dose_value REAL,
		dose_unit TEXT,
		route TEXT
	);

	CREATE INDEX IF NOT EXISTS idx_visits_patient ON visits(patient_id);
	CREATE INDEX IF NOT EXISTS idx_visit_drugs_visit ON visit_drugs(visit_id);
	`
	_, err := db.Exec(schema)
	return err
}

// Patients returns all patients ordered by id.
func (s *SQLiteStore) Patients(ctx context.Context) ([]domain.Patient, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT patient_id, name, gender, birth_date
		FROM patients
		ORDER BY patient_id
	`)
	if err != nil {
		return nil, fmt.Errorf("failed to query patients: %w", err)
	}
	defer rows.Close()

	var out []domain.Patient
	for rows.Next() {
		var (
			p                  domain.Patient
			name, gender, born sql.NullString
		)
		if err := rows.Scan(&p.PatientID, &name, &gender, &born); err != nil {
			return nil, fmt.Errorf("failed to scan patient: %w", err)
		}
		p.Name = name.String
		p.Gender = gender.String
		if born.String != "" {
			t, err := ParseDate(born.String)
			if err != nil {
				return nil, fmt.Errorf("patient %s: %w", p.PatientID, err)
			}
			p.BirthDate = &t
		}
		out = append(out, p)
	}
	return out, rows.Err()
}

// Visits returns all visits ordered by id.
func (s *SQLiteStore) Visits(ctx context.Context) ([]domain.VisitRecord, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT visit_id, patient_id, diagnosis, chief_complaint, age_months, weight_kg,
			gender, visit_type, outcome_class, recovery_days, visit_date
		FROM visits
		ORDER BY visit_id
	`)
	if err != nil {
		return nil, fmt.Errorf("failed to query visits: %w", err)
	}
	defer rows.Close()

	var out []domain.VisitRecord
	for rows.Next() {
		var (
			v                                 domain.VisitRecord
			diagnosis, complaint, gender      sql.NullString
			visitType, outcome, visitDate     sql.NullString
			ageMonths, weightKG, recoveryDays sql.NullFloat64
		)
		err := rows.Scan(
			&v.VisitID, &v.PatientID, &diagnosis, &complaint, &ageMonths, &weightKG,
			&gender, &visitType, &outcome, &recoveryDays, &visitDate,
		)
		if err != nil {
			return nil, fmt.Errorf("failed to scan visit: %w", err)
		}
		v.Diagnosis = diagnosis.String
		v.ChiefComplaint = complaint.String
		v.Gender = gender.String
		v.VisitType = domain.VisitType(visitType.String)
		v.OutcomeClass = domain.OutcomeClass(outcome.String)
		v.AgeMonths = floatPtr(ageMonths)
		v.WeightKG = floatPtr(weightKG)
		v.RecoveryDays = floatPtr(recoveryDays)
		if visitDate.String != "" {
			t, err := ParseDate(visitDate.String)
			if err != nil {
				return nil, fmt.Errorf("visit %s: %w", v.VisitID, err)
			}
			v.VisitDate = t
		}
		out = append(out, v)
	}
	return out, rows.Err()
}

// VisitDrugs returns all drug administrations in insertion order.
func (s *SQLiteStore) VisitDrugs(ctx context.Context) ([]domain.DrugAdministration, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT visit_id, drug_name, dose_value, dose_unit, route
		FROM visit_drugs
		ORDER BY id
	`)
	if err != nil {
		return nil, fmt.Errorf("failed to query visit drugs: %w", err)
	}
	defer rows.Close()

	var out []domain.DrugAdministration
	for rows.Next() {
		var (
			d                 domain.DrugAdministration
			drug, unit, route sql.NullString
			dose              sql.NullFloat64
		)
		if err := rows.Scan(&d.VisitID, &drug, &dose, &unit, &route); err != nil {
			return nil, fmt.Errorf("failed to scan visit drug: %w", err)
		}
		d.DrugName = drug.String
		d.DoseValue = floatPtr(dose)
		d.DoseUnit = unit.String
		d.Route = route.String
		out = append(out, d)
	}
	return out, rows.Err()
}

// Import writes a fixture in one transaction, replacing rows with the same
// patient and visit ids.
func (s *SQLiteStore) Import(ctx context.Context, fx *Fixture) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to begin import: %w", err)
	}
	defer tx.Rollback()

	for _, p := range fx.Patients {
		var born any
		if p.BirthDate != nil {
			born = p.BirthDate.UTC().Format(time.RFC3339)
		}
		_, err := tx.ExecContext(ctx, `
			INSERT OR REPLACE INTO patients (patient_id, name, gender, birth_date)
			VALUES (?, ?, ?, ?)
		`, p.PatientID, nullString(p.Name), nullString(p.Gender), born)
		if err != nil {
			return fmt.Errorf("failed to import patient %s: %w", p.PatientID, err)
		}
	}

	for _, v := range fx.Visits {
		var visitDate any
		if !v.VisitDate.IsZero() {
			visitDate = v.VisitDate.UTC().Format(time.RFC3339)
		}
		_, err := tx.ExecContext(ctx, `
			INSERT OR REPLACE INTO visits (
				visit_id, patient_id, diagnosis, chief_complaint, age_months, weight_kg,
				gender, visit_type, outcome_class, recovery_days, visit_date
			) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
		`,
			v.VisitID, v.PatientID, nullString(v.Diagnosis), nullString(v.ChiefComplaint),
			v.AgeMonths, v.WeightKG, nullString(v.Gender), nullString(string(v.VisitType)),
			nullString(string(v.OutcomeClass)), v.RecoveryDays, visitDate,
		)
		if err != nil {
			return fmt.Errorf("failed to import visit %s: %w", v.VisitID, err)
		}
		if _, err := tx.ExecContext(ctx, "DELETE FROM visit_drugs WHERE visit_id = ?", v.VisitID); err != nil {
			return fmt.Errorf("failed to clear drugs of visit %s: %w", v.VisitID, err)
		}
	}

	stmt, err := tx.PrepareContext(ctx, `
		INSERT INTO visit_drugs (visit_id, drug_name, dose_value, dose_unit, route)
		VALUES (?, ?, ?, ?, ?)
	`)
	if err != nil {
		return fmt.Errorf("failed to prepare drug insert: %w", err)
	}
	defer stmt.Close()

	for _, d := range fx.VisitDrugs {
		if _, err := stmt.ExecContext(ctx, d.VisitID, nullString(d.DrugName), d.DoseValue, nullString(d.DoseUnit), nullString(d.Route)); err != nil {
			return fmt.Errorf("failed to import drug for visit %s: %w", d.VisitID, err)
		}
	}

	return tx.Commit()
}

// Path returns the database file location.
func (s *SQLiteStore) Path() string {
	return s.dbPath
}

// Close closes the store and releases resources.
func (s *SQLiteStore) Close() error {
	return s.db.Close()
}

func floatPtr(n sql.NullFloat64) *float64 {
	if !n.Valid {
		return nil
	}
	f := n.Float64
	return &f
}
