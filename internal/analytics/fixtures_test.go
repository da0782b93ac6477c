package analytics

import (
	"time"

	"github.com/drug-reco-engine/internal/domain"
)

var baseDate = time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)

func f64(v float64) *float64 { return &v }

type recOpt func(*domain.ClinicalRecord)

func withRecovery(d float64) recOpt {
	return func(r *domain.ClinicalRecord) { r.RecoveryDays = f64(d) }
}

func withDose(v float64, unit string, weight float64) recOpt {
	return func(r *domain.ClinicalRecord) {
		r.DoseValue = f64(v)
		r.DoseUnit = unit
		r.WeightKG = f64(weight)
	}
}

func withPatient(id string) recOpt {
	return func(r *domain.ClinicalRecord) { r.PatientID = id }
}

func withComplaint(c string) recOpt {
	return func(r *domain.ClinicalRecord) { r.ChiefComplaint = c }
}

func record(diagnosis, drug string, outcome domain.OutcomeClass, opts ...recOpt) domain.ClinicalRecord {
	r := domain.ClinicalRecord{
		VisitRecord: domain.VisitRecord{
			PatientID:    "P-1",
			Diagnosis:    diagnosis,
			OutcomeClass: outcome,
			VisitDate:    baseDate,
		},
		DrugName: drug,
	}
	for _, o := range opts {
		o(&r)
	}
	return r
}

// repeat returns n copies of rec.
func repeat(n int, rec domain.ClinicalRecord) []domain.ClinicalRecord {
	out := make([]domain.ClinicalRecord, n)
	for i := range out {
		out[i] = rec
	}
	return out
}
