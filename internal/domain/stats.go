package domain

import "time"

// DiagnosisDrugStat is the population cure-rate and recovery summary for
// one (diagnosis, drug) pair.
type DiagnosisDrugStat struct {
	Diagnosis   string  `json:"diagnosis"`
	DrugName    string  `json:"drug_name"`
	TotalCases  int     `json:"total_cases"`
	CuredCases  int     `json:"cured_cases"`
	CureRate    float64 `json:"cure_rate"`
	AvgRecovery float64 `json:"avg_recovery"`
}

// DoseStat is the historical dosing range for one (drug, unit) pair.
type DoseStat struct {
	DrugName     string  `json:"drug_name"`
	DoseUnit     string  `json:"dose_unit"`
	MinDose      float64 `json:"min_dose"`
	MaxDose      float64 `json:"max_dose"`
	AvgDose      float64 `json:"avg_dose"`
	AvgDosePerKG float64 `json:"avg_dose_per_kg"`
	Cases        int     `json:"cases"`
}

// DoseOutlier is a dosed record whose dose-per-kilogram lies far from the
// drug's mean.
type DoseOutlier struct {
	VisitID   string  `json:"visit_id"`
	PatientID string  `json:"patient_id"`
	DrugName  string  `json:"drug_name"`
	DoseValue float64 `json:"dose_value"`
	DoseUnit  string  `json:"dose_unit"`
	WeightKG  float64 `json:"weight_kg"`
	DosePerKG float64 `json:"dose_per_kg"`
	ZScore    float64 `json:"z_score"`
}

// ComplaintCureStat summarizes outcomes per (diagnosis, chief complaint).
// CureRate is a percentage.
type ComplaintCureStat struct {
	Diagnosis      string   `json:"diagnosis"`
	ChiefComplaint string   `json:"chief_complaint"`
	TotalCases     int      `json:"total_cases"`
	CuredCases     int      `json:"cured_cases"`
	CureRate       float64  `json:"cure_rate_pct"`
	AvgRecovery    *float64 `json:"avg_recovery,omitempty"`
}

// DrugEffectiveness ranks drugs across all diagnoses by cure rate, speed and
// the volume of supporting cases.
type DrugEffectiveness struct {
	DrugName           string  `json:"drug_name"`
	TotalCases         int     `json:"total_cases"`
	CuredCases         int     `json:"cured_cases"`
	CureRate           float64 `json:"cure_rate"`
	AvgRecovery        float64 `json:"avg_recovery"`
	SpeedScore         float64 `json:"speed_score"`
	ReliabilityScore   float64 `json:"reliability_score"`
	EffectivenessScore float64 `json:"effectiveness_score"`
}

// FieldMissingRate is the share of records lacking a field.
type FieldMissingRate struct {
	Field       string  `json:"field"`
	MissingRate float64 `json:"missing_rate"`
}

// DataQualityReport describes completeness of the record snapshot.
type DataQualityReport struct {
	Rows           int                `json:"rows"`
	UniquePatients int                `json:"unique_patients"`
	MissingRates   []FieldMissingRate `json:"missing_rates"`
}

// DrugSuccess is one row of a patient's worked table.
type DrugSuccess struct {
	DrugName     string   `json:"drug_name"`
	SuccessCount int      `json:"success_count"`
	AvgRecovery  *float64 `json:"avg_recovery,omitempty"`
}

// DrugFailure is one row of a patient's failed table.
type DrugFailure struct {
	DrugName  string `json:"drug_name"`
	FailCount int    `json:"fail_count"`
}

// PatientDrugHistory is the lifetime success/fail tally for one
// (patient, drug) pair.
type PatientDrugHistory struct {
	PatientID    string `json:"patient_id"`
	DrugName     string `json:"drug_name"`
	SuccessCount int    `json:"success_count"`
	FailCount    int    `json:"fail_count"`
}

// RecurrenceEpisode is one New Case visit in a patient's timeline.
// DaysSinceLast is nil for the first episode of a diagnosis.
type RecurrenceEpisode struct {
	Diagnosis     string    `json:"diagnosis"`
	VisitID       string    `json:"visit_id"`
	VisitDate     time.Time `json:"visit_date"`
	DaysSinceLast *int      `json:"days_since_last"`
	EpisodeNo     int       `json:"episode_no"`
}

// RecurrenceSummary aggregates the gaps between episodes of a diagnosis.
type RecurrenceSummary struct {
	Diagnosis       string  `json:"diagnosis"`
	RecurrenceCount int     `json:"recurrence_count"`
	AvgDaysBetween  float64 `json:"avg_days_between"`
	MinDaysBetween  int     `json:"min_days_between"`
}

// PatientHistory bundles the per-patient tables used by the engine.
type PatientHistory struct {
	PatientID  string              `json:"patient_id"`
	Worked     []DrugSuccess       `json:"worked"`
	Failed     []DrugFailure       `json:"failed"`
	Timeline   []RecurrenceEpisode `json:"recurrence_timeline"`
	Recurrence []RecurrenceSummary `json:"recurrence_summary"`
}

// SuccessCount returns how often the drug cured this patient.
func (h *PatientHistory) SuccessCount(drug string) int {
	if h == nil {
		return 0
	}
	for _, w := range h.Worked {
		if w.DrugName == drug {
			return w.SuccessCount
		}
	}
	return 0
}

// FailCount returns how often the drug failed this patient.
func (h *PatientHistory) FailCount(drug string) int {
	if h == nil {
		return 0
	}
	for _, f := range h.Failed {
		if f.DrugName == drug {
			return f.FailCount
		}
	}
	return 0
}

// RecurrenceCount returns the number of recurrences of a diagnosis, 0 if none.
func (h *PatientHistory) RecurrenceCount(diagnosis string) int {
	if h == nil {
		return 0
	}
	for _, r := range h.Recurrence {
		if r.Diagnosis == diagnosis {
			return r.RecurrenceCount
		}
	}
	return 0
}

// DrugHistory returns the combined success/fail tally for a drug.
func (h *PatientHistory) DrugHistory(drug string) PatientDrugHistory {
	out := PatientDrugHistory{DrugName: drug}
	if h == nil {
		return out
	}
	out.PatientID = h.PatientID
	out.SuccessCount = h.SuccessCount(drug)
	out.FailCount = h.FailCount(drug)
	return out
}
