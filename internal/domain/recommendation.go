package domain

import "time"

// Defaults applied when a recommendation request leaves them unset.
const (
	DefaultTopK          = 3
	DefaultFailThreshold = 2
)

// ClinicalFeatures is the classifier input for one query.
type ClinicalFeatures struct {
	Diagnosis      string  `json:"diagnosis"`
	ChiefComplaint string  `json:"chief_complaint"`
	AgeMonths      float64 `json:"age_months"`
	WeightKG       float64 `json:"weight_kg"`
	Gender         string  `json:"gender"`
}

// LabelProbability is one entry of a classifier's output distribution.
type LabelProbability struct {
	Label       string  `json:"label"`
	Probability float64 `json:"probability"`
}

// RecommendationRequest is a single recommend call. Allergies is free text
// matched as a case-insensitive substring of the drug name.
type RecommendationRequest struct {
	PatientID      string  `json:"patient_id"`
	Diagnosis      string  `json:"diagnosis"`
	AgeMonths      float64 `json:"age_months"`
	WeightKG       float64 `json:"weight_kg"`
	ChiefComplaint string  `json:"chief_complaint,omitempty"`
	Gender         string  `json:"gender,omitempty"`
	Allergies      string  `json:"allergies,omitempty"`
	K              int     `json:"k,omitempty"`
	FailThreshold  int     `json:"fail_threshold,omitempty"`
}

// Features returns the classifier input for the request, with blank
// complaint and gender mapped to Unknown.
func (r RecommendationRequest) Features() ClinicalFeatures {
	f := ClinicalFeatures{
		Diagnosis:      r.Diagnosis,
		ChiefComplaint: r.ChiefComplaint,
		AgeMonths:      r.AgeMonths,
		WeightKG:       r.WeightKG,
		Gender:         r.Gender,
	}
	if f.ChiefComplaint == "" {
		f.ChiefComplaint = UnknownCategory
	}
	if f.Gender == "" {
		f.Gender = UnknownCategory
	}
	return f
}

// Exclusion reason texts. Reasons accumulate, joined by "; ".
const (
	ExclusionAllergy       = "Allergy"
	ExclusionReasonDivider = "; "
)

// CandidateScore is one scored drug in a recommendation.
type CandidateScore struct {
	DrugName            string   `json:"drug_name"`
	MLProb              float64  `json:"ml_prob"`
	CureRate            float64  `json:"cure_rate"`
	AvgRecovery         float64  `json:"avg_recovery"`
	TotalCases          int      `json:"total_cases"`
	SuccessCountPatient int      `json:"success_count_patient"`
	FailCountPatient    int      `json:"fail_count_patient"`
	RecurrenceFactor    int      `json:"recurrence_factor"`
	FinalScore          float64  `json:"final_score"`
	Excluded            bool     `json:"excluded"`
	ExclusionReason     string   `json:"exclusion_reason"`
	DoseFlag            DoseFlag `json:"dose_flag"`
}

// Exclude marks the candidate excluded and appends a reason. Exclusion is
// never reverted.
func (c *CandidateScore) Exclude(reason string) {
	c.Excluded = true
	if c.ExclusionReason == "" {
		c.ExclusionReason = reason
		return
	}
	c.ExclusionReason += ExclusionReasonDivider + reason
}

// Recommendation is the full, traceable result of a recommend call. Every
// table is always present, possibly empty.
type Recommendation struct {
	ID                 string              `json:"id"`
	SnapshotID         string              `json:"snapshot_id,omitempty"`
	PatientID          string              `json:"patient_id"`
	Diagnosis          string              `json:"diagnosis"`
	K                  int                 `json:"k"`
	FailThreshold      int                 `json:"fail_threshold"`
	Candidates         []CandidateScore    `json:"candidates"`
	Excluded           []CandidateScore    `json:"excluded"`
	Final              []CandidateScore    `json:"final"`
	Worked             []DrugSuccess       `json:"worked_table"`
	Failed             []DrugFailure       `json:"failed_table"`
	RecurrenceSummary  []RecurrenceSummary `json:"recurrence_summary"`
	RecurrenceTimeline []RecurrenceEpisode `json:"recurrence_timeline"`
	GeneratedAt        time.Time           `json:"generated_at"`
}
