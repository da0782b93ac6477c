package repository

import (
	"context"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/sirupsen/logrus"

	"github.com/drug-reco-engine/internal/domain"
)

// PostgresStore reads clinical records from PostgreSQL.
type PostgresStore struct {
	db  *pgxpool.Pool
	log *logrus.Logger
}

// NewPostgresStore creates a store over an open pool.
func NewPostgresStore(db *pgxpool.Pool, logger *logrus.Logger) *PostgresStore {
	return &PostgresStore{
		db:  db,
		log: logger,
	}
}

// Patients returns all patients ordered by id.
func (r *PostgresStore) Patients(ctx context.Context) ([]domain.Patient, error) {
	query := `
		SELECT patient_id, COALESCE(name, ''), COALESCE(gender, ''), birth_date
		FROM patients
		ORDER BY patient_id`

	rows, err := r.db.Query(ctx, query)
	if err != nil {
		r.log.WithError(err).Error("Failed to query patients")
		return nil, fmt.Errorf("querying patients: %w", err)
	}
	defer rows.Close()

	var out []domain.Patient
	for rows.Next() {
		var p domain.Patient
		if err := rows.Scan(&p.PatientID, &p.Name, &p.Gender, &p.BirthDate); err != nil {
			return nil, fmt.Errorf("scanning patient: %w", err)
		}
		out = append(out, p)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterating patients: %w", err)
	}
	return out, nil
}

// Visits returns all visits ordered by id.
func (r *PostgresStore) Visits(ctx context.Context) ([]domain.VisitRecord, error) {
	query := `
		SELECT visit_id, patient_id, COALESCE(diagnosis, ''), COALESCE(chief_complaint, ''),
			   age_months, weight_kg, COALESCE(gender, ''), COALESCE(visit_type, ''),
			   COALESCE(outcome_class, ''), recovery_days, visit_date
		FROM visits
		ORDER BY visit_id`

	rows, err := r.db.Query(ctx, query)
	if err != nil {
		r.log.WithError(err).Error("Failed to query visits")
		return nil, fmt.Errorf("querying visits: %w", err)
	}
	defer rows.Close()

	var out []domain.VisitRecord
	for rows.Next() {
		var (
			v         domain.VisitRecord
			visitType string
			outcome   string
			visitDate *time.Time
		)
		err := rows.Scan(
			&v.VisitID, &v.PatientID, &v.Diagnosis, &v.ChiefComplaint,
			&v.AgeMonths, &v.WeightKG, &v.Gender, &visitType,
			&outcome, &v.RecoveryDays, &visitDate,
		)
		if err != nil {
			return nil, fmt.Errorf("scanning visit: %w", err)
		}
		v.VisitType = domain.VisitType(visitType)
		v.OutcomeClass = domain.OutcomeClass(outcome)
		if visitDate != nil {
			v.VisitDate = visitDate.UTC()
		}
		out = append(out, v)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterating visits: %w", err)
	}
	return out, nil
}

// VisitDrugs returns all drug administrations in insertion order.
func (r *PostgresStore) VisitDrugs(ctx context.Context) ([]domain.DrugAdministration, error) {
	query := `
		SELECT visit_id, COALESCE(drug_name, ''), dose_value, COALESCE(dose_unit, ''), COALESCE(route, '')
		FROM visit_drugs
		ORDER BY id`

	rows, err := r.db.Query(ctx, query)
	if err != nil {
		r.log.WithError(err).Error("Failed to query visit drugs")
		return nil, fmt.Errorf("querying visit drugs: %w", err)
	}
	defer rows.Close()

	var out []domain.DrugAdministration
	for rows.Next() {
		var d domain.DrugAdministration
		if err := rows.Scan(&d.VisitID, &d.DrugName, &d.DoseValue, &d.DoseUnit, &d.Route); err != nil {
			return nil, fmt.Errorf("scanning visit drug: %w", err)
		}
		out = append(out, d)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterating visit drugs: %w", err)
	}
	return out, nil
}

// Import bulk-loads a fixture in one transaction. Existing patients and
// visits with the same ids are replaced along with their drug rows.
func (r *PostgresStore) Import(ctx context.Context, fx *Fixture) error {
	tx, err := r.db.Begin(ctx)
	if err != nil {
		return fmt.Errorf("beginning import: %w", err)
	}
	defer tx.Rollback(ctx)

	for _, p := range fx.Patients {
		_, err := tx.Exec(ctx, `
			INSERT INTO patients (patient_id, name, gender, birth_date)
			VALUES ($1, $2, $3, $4)
			ON CONFLICT (patient_id) DO UPDATE SET
				name = EXCLUDED.name, gender = EXCLUDED.gender, birth_date = EXCLUDED.birth_date`,
			p.PatientID, nullString(p.Name), nullString(p.Gender), p.BirthDate)
		if err != nil {
			return fmt.Errorf("importing patient %s: %w", p.PatientID, err)
		}
	}

	for _, v := range fx.Visits {
		_, err := tx.Exec(ctx, `
			INSERT INTO visits (
				visit_id, patient_id, diagnosis, chief_complaint, age_months, weight_kg,
				gender, visit_type, outcome_class, recovery_days, visit_date
			) VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11)
			ON CONFLICT (visit_id) DO UPDATE SET
				patient_id = EXCLUDED.patient_id, diagnosis = EXCLUDED.diagnosis,
				chief_complaint = EXCLUDED.chief_complaint, age_months = EXCLUDED.age_months,
				weight_kg = EXCLUDED.weight_kg, gender = EXCLUDED.gender,
				visit_type = EXCLUDED.visit_type, outcome_class = EXCLUDED.outcome_class,
				recovery_days = EXCLUDED.recovery_days, visit_date = EXCLUDED.visit_date`,
			v.VisitID, v.PatientID, nullString(v.Diagnosis), nullString(v.ChiefComplaint),
			v.AgeMonths, v.WeightKG, nullString(v.Gender), nullString(string(v.VisitType)),
			nullString(string(v.OutcomeClass)), v.RecoveryDays, nullTime(v.VisitDate))
		if err != nil {
			return fmt.Errorf("importing visit %s: %w", v.VisitID, err)
		}
		if _, err := tx.Exec(ctx, `DELETE FROM visit_drugs WHERE visit_id = $1`, v.VisitID); err != nil {
			return fmt.Errorf("clearing drugs of visit %s: %w", v.VisitID, err)
		}
	}

	copied, err := tx.CopyFrom(ctx,
		pgx.Identifier{"visit_drugs"},
		[]string{"visit_id", "drug_name", "dose_value", "dose_unit", "route"},
		pgx.CopyFromSlice(len(fx.VisitDrugs), func(i int) ([]any, error) {
			d := fx.VisitDrugs[i]
			return []any{d.VisitID, nullString(d.DrugName), d.DoseValue, nullString(d.DoseUnit), nullString(d.Route)}, nil
		}),
	)
	if err != nil {
		return fmt.Errorf("copying visit drugs: %w", err)
	}

	if err := tx.Commit(ctx); err != nil {
		return fmt.Errorf("committing import: %w", err)
	}

	r.log.WithFields(logrus.Fields{
		"patients":    len(fx.Patients),
		"visits":      len(fx.Visits),
		"visit_drugs": copied,
	}).Info("Imported clinical records")
	return nil
}

func nullString(s string) *string {
	if s == "" {
		return nil
	}
	return &s
}

func nullTime(t time.Time) *time.Time {
	if t.IsZero() {
		return nil
	}
	return &t
}
