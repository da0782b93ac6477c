package analytics

import (
	"cmp"
	"slices"

	"github.com/drug-reco-engine/internal/domain"
)

type fieldCheck struct {
	name    string
	missing func(domain.ClinicalRecord) bool
}

var qualityFields = []fieldCheck{
	{"Patient_ID", func(r domain.ClinicalRecord) bool { return r.PatientID == "" }},
	{"Diagnosis", func(r domain.ClinicalRecord) bool { return r.Diagnosis == domain.UnknownCategory }},
	{"Chief_Complaint", func(r domain.ClinicalRecord) bool { return r.ChiefComplaint == "" }},
	{"Age_Months", func(r domain.ClinicalRecord) bool { return r.AgeMonths == nil }},
	{"Weight_KG", func(r domain.ClinicalRecord) bool { return r.WeightKG == nil }},
	{"Gender", func(r domain.ClinicalRecord) bool { return r.Gender == "" }},
	{"Visit_Type", func(r domain.ClinicalRecord) bool { return r.VisitType == "" }},
	{"Outcome_Class", func(r domain.ClinicalRecord) bool { return r.OutcomeClass == "" }},
	{"Recovery_Days", func(r domain.ClinicalRecord) bool { return r.RecoveryDays == nil }},
	{"Visit_Date", func(r domain.ClinicalRecord) bool { return r.VisitDate.IsZero() }},
	{"Drug_Name", func(r domain.ClinicalRecord) bool { return r.DrugName == domain.UnknownCategory }},
	{"Dose_Value", func(r domain.ClinicalRecord) bool { return r.DoseValue == nil }},
	{"Dose_Unit", func(r domain.ClinicalRecord) bool { return r.DoseUnit == "" }},
	{"Route", func(r domain.ClinicalRecord) bool { return r.Route == "" }},
}

// BuildDataQualityReport reports row counts and per-field missing rates.
// Diagnosis and drug name count as missing when they carry the Unknown
// sentinel.
func BuildDataQualityReport(records []domain.ClinicalRecord) domain.DataQualityReport {
	patients := make(map[string]struct{})
	missing := make([]int, len(qualityFields))
	for _, r := range records {
		if r.PatientID != "" {
			patients[r.PatientID] = struct{}{}
		}
		for i, f := range qualityFields {
			if f.missing(r) {
				missing[i]++
			}
		}
	}

	rates := make([]domain.FieldMissingRate, len(qualityFields))
	for i, f := range qualityFields {
		rate := 0.0
		if len(records) > 0 {
			rate = float64(missing[i]) / float64(len(records))
		}
		rates[i] = domain.FieldMissingRate{Field: f.name, MissingRate: rate}
	}
	slices.SortStableFunc(rates, func(x, y domain.FieldMissingRate) int {
		return cmp.Compare(y.MissingRate, x.MissingRate)
	})

	return domain.DataQualityReport{
		Rows:           len(records),
		UniquePatients: len(patients),
		MissingRates:   rates,
	}
}
