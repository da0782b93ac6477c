package domain

import (
	"strings"
	"time"
)

// Patient is a registered patient. Only the identifier and gender are used by
// the engine; the remaining fields travel through for display.
type Patient struct {
	PatientID string     `json:"patient_id"`
	Name      string     `json:"name,omitempty"`
	Gender    string     `json:"gender,omitempty"`
	BirthDate *time.Time `json:"birth_date,omitempty"`
}

// VisitRecord is one clinical visit. Nullable measurements are pointers.
type VisitRecord struct {
	VisitID        string       `json:"visit_id"`
	PatientID      string       `json:"patient_id"`
	Diagnosis      string       `json:"diagnosis"`
	ChiefComplaint string       `json:"chief_complaint,omitempty"`
	AgeMonths      *float64     `json:"age_months,omitempty"`
	WeightKG       *float64     `json:"weight_kg,omitempty"`
	Gender         string       `json:"gender,omitempty"`
	VisitType      VisitType    `json:"visit_type,omitempty"`
	OutcomeClass   OutcomeClass `json:"outcome_class,omitempty"`
	RecoveryDays   *float64     `json:"recovery_days,omitempty"`
	VisitDate      time.Time    `json:"visit_date"`
}

// DrugAdministration is a drug given during a visit. VisitID is a
// back-reference; the visit does not own the administration.
type DrugAdministration struct {
	VisitID   string   `json:"visit_id"`
	DrugName  string   `json:"drug_name"`
	DoseValue *float64 `json:"dose_value,omitempty"`
	DoseUnit  string   `json:"dose_unit,omitempty"`
	Route     string   `json:"route,omitempty"`
}

// ClinicalRecord is a visit left-joined with one of its drug
// administrations. A visit without drugs yields one record with an
// Unknown drug.
type ClinicalRecord struct {
	VisitRecord
	DrugName  string   `json:"drug_name"`
	DoseValue *float64 `json:"dose_value,omitempty"`
	DoseUnit  string   `json:"dose_unit,omitempty"`
	Route     string   `json:"route,omitempty"`
}

// NormalizeVisit applies the sentinel mapping to a visit.
func NormalizeVisit(v VisitRecord) VisitRecord {
	v.Diagnosis = orUnknown(v.Diagnosis)
	v.ChiefComplaint = strings.TrimSpace(v.ChiefComplaint)
	v.Gender = strings.TrimSpace(v.Gender)
	if o, err := ParseOutcomeClass(string(v.OutcomeClass)); err == nil {
		v.OutcomeClass = o
	}
	if strings.EqualFold(strings.TrimSpace(string(v.VisitType)), string(VisitNewCase)) {
		v.VisitType = VisitNewCase
	}
	return v
}

// NormalizeRecord applies the sentinel mapping once, at ingestion: a blank
// diagnosis or drug name becomes Unknown.
func NormalizeRecord(r ClinicalRecord) ClinicalRecord {
	r.VisitRecord = NormalizeVisit(r.VisitRecord)
	r.DrugName = orUnknown(r.DrugName)
	r.DoseUnit = strings.TrimSpace(r.DoseUnit)
	r.Route = strings.TrimSpace(r.Route)
	return r
}

// JoinVisitDrugs left-joins drug administrations onto visits by VisitID and
// normalizes every resulting record. Visit order is preserved, and within a
// visit the administrations keep their input order.
func JoinVisitDrugs(visits []VisitRecord, drugs []DrugAdministration) []ClinicalRecord {
	byVisit := make(map[string][]DrugAdministration, len(visits))
	for _, d := range drugs {
		byVisit[d.VisitID] = append(byVisit[d.VisitID], d)
	}

	records := make([]ClinicalRecord, 0, len(drugs)+len(visits))
	for _, v := range visits {
		administered := byVisit[v.VisitID]
		if len(administered) == 0 {
			records = append(records, NormalizeRecord(ClinicalRecord{VisitRecord: v}))
			continue
		}
		for _, d := range administered {
			records = append(records, NormalizeRecord(ClinicalRecord{
				VisitRecord: v,
				DrugName:    d.DrugName,
				DoseValue:   d.DoseValue,
				DoseUnit:    d.DoseUnit,
				Route:       d.Route,
			}))
		}
	}
	return records
}

func orUnknown(s string) string {
	s = strings.TrimSpace(s)
	if s == "" {
		return UnknownCategory
	}
	return s
}
