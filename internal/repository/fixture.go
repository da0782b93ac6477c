package repository

import (
	"encoding/json"
	"fmt"
	"io"
	"os"
	"strings"
	"time"

	"github.com/drug-reco-engine/internal/domain"
)

// Fixture is a complete record set in one JSON document.
type Fixture struct {
	Patients   []domain.Patient
	Visits     []domain.VisitRecord
	VisitDrugs []domain.DrugAdministration
}

// dateLayouts are tried in order when parsing dates.
var dateLayouts = []string{
	time.RFC3339,
	"2006-01-02 15:04:05",
	"2006-01-02",
	"02/01/2006",
}

// ParseDate parses a record date in any supported layout. Dates without a
// zone are UTC.
func ParseDate(s string) (time.Time, error) {
	s = strings.TrimSpace(s)
	for _, layout := range dateLayouts {
		if t, err := time.Parse(layout, s); err == nil {
			return t.UTC(), nil
		}
	}
	return time.Time{}, fmt.Errorf("unrecognized date %q", s)
}

type fixturePatient struct {
	PatientID string `json:"patient_id"`
	Name      string `json:"name"`
	Gender    string `json:"gender"`
	BirthDate string `json:"birth_date"`
}

type fixtureVisit struct {
	VisitID        string   `json:"visit_id"`
	PatientID      string   `json:"patient_id"`
	Diagnosis      string   `json:"diagnosis"`
	ChiefComplaint string   `json:"chief_complaint"`
	AgeMonths      *float64 `json:"age_months"`
	WeightKG       *float64 `json:"weight_kg"`
	Gender         string   `json:"gender"`
	VisitType      string   `json:"visit_type"`
	OutcomeClass   string   `json:"outcome_class"`
	RecoveryDays   *float64 `json:"recovery_days"`
	VisitDate      string   `json:"visit_date"`
}

type fixtureDocument struct {
	Patients   []fixturePatient            `json:"patients"`
	Visits     []fixtureVisit              `json:"visits"`
	VisitDrugs []domain.DrugAdministration `json:"visit_drugs"`
}

// LoadFixture reads a fixture file.
func LoadFixture(path string) (*Fixture, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("opening fixture: %w", err)
	}
	defer f.Close()
	return DecodeFixture(f)
}

// DecodeFixture parses a fixture document. A malformed date is an error; a
// missing one leaves the zero time.
func DecodeFixture(r io.Reader) (*Fixture, error) {
	var doc fixtureDocument
	if err := json.NewDecoder(r).Decode(&doc); err != nil {
		return nil, fmt.Errorf("decoding fixture: %w", err)
	}

	fx := &Fixture{
		Patients:   make([]domain.Patient, 0, len(doc.Patients)),
		Visits:     make([]domain.VisitRecord, 0, len(doc.Visits)),
		VisitDrugs: doc.VisitDrugs,
	}
	for _, p := range doc.Patients {
		patient := domain.Patient{PatientID: p.PatientID, Name: p.Name, Gender: p.Gender}
		if p.BirthDate != "" {
			t, err := ParseDate(p.BirthDate)
			if err != nil {
				return nil, fmt.Errorf("patient %s: %w", p.PatientID, err)
			}
			patient.BirthDate = &t
		}
		fx.Patients = append(fx.Patients, patient)
	}
	for _, v := range doc.Visits {
		visit := domain.VisitRecord{
			VisitID:        v.VisitID,
			PatientID:      v.PatientID,
			Diagnosis:      v.Diagnosis,
			ChiefComplaint: v.ChiefComplaint,
			AgeMonths:      v.AgeMonths,
			WeightKG:       v.WeightKG,
			Gender:         v.Gender,
			VisitType:      domain.VisitType(v.VisitType),
			OutcomeClass:   domain.OutcomeClass(v.OutcomeClass),
			RecoveryDays:   v.RecoveryDays,
		}
		if v.VisitDate != "" {
			t, err := ParseDate(v.VisitDate)
			if err != nil {
				return nil, fmt.Errorf("visit %s: %w", v.VisitID, err)
			}
			visit.VisitDate = t
		}
		fx.Visits = append(fx.Visits, visit)
	}
	if fx.VisitDrugs == nil {
		fx.VisitDrugs = []domain.DrugAdministration{}
	}
	return fx, nil
}
