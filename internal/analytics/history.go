package analytics

import (
	"cmp"
	"math"
	"slices"

	"github.com/drug-reco-engine/internal/domain"
)

// WorkedDrugs lists the drugs that cured the patient with their success
// count and mean recovery, most successful first, then fastest.
func WorkedDrugs(records []domain.ClinicalRecord, patientID string) []domain.DrugSuccess {
	groups := make(map[string]*outcomeTally)
	for _, r := range records {
		if r.PatientID != patientID || !r.OutcomeClass.IsSuccess() {
			continue
		}
		t, ok := groups[r.DrugName]
		if !ok {
			t = &outcomeTally{}
			groups[r.DrugName] = t
		}
		t.add(r)
	}

	out := make([]domain.DrugSuccess, 0, len(groups))
	for drug, t := range groups {
		row := domain.DrugSuccess{DrugName: drug, SuccessCount: t.total}
		if avg, ok := t.avgRecovery(); ok {
			avg = Round(avg, 2)
			row.AvgRecovery = &avg
		}
		out = append(out, row)
	}

	slices.SortFunc(out, func(x, y domain.DrugSuccess) int {
		return cmp.Or(
			cmp.Compare(y.SuccessCount, x.SuccessCount),
			compareRecovery(x.AvgRecovery, y.AvgRecovery),
			cmp.Compare(x.DrugName, y.DrugName),
		)
	})
	return out
}

// compareRecovery orders known recoveries ascending with missing values last.
func compareRecovery(a, b *float64) int {
	switch {
	case a == nil && b == nil:
		return 0
	case a == nil:
		return 1
	case b == nil:
		return -1
	default:
		return cmp.Compare(*a, *b)
	}
}

// FailedDrugs lists the drugs with a failure outcome for the patient,
// most failures first.
func FailedDrugs(records []domain.ClinicalRecord, patientID string) []domain.DrugFailure {
	counts := make(map[string]int)
	for _, r := range records {
		if r.PatientID == patientID && r.OutcomeClass.IsFailure() {
			counts[r.DrugName]++
		}
	}

	out := make([]domain.DrugFailure, 0, len(counts))
	for drug, n := range counts {
		out = append(out, domain.DrugFailure{DrugName: drug, FailCount: n})
	}
	slices.SortFunc(out, func(x, y domain.DrugFailure) int {
		return cmp.Or(cmp.Compare(y.FailCount, x.FailCount), cmp.Compare(x.DrugName, y.DrugName))
	})
	return out
}

// RecurrenceTimeline lists the patient's New Case visits ordered by
// diagnosis and date. Within a diagnosis the episode number counts from 1
// and DaysSinceLast holds whole days since the previous episode.
func RecurrenceTimeline(visits []domain.VisitRecord, patientID string) []domain.RecurrenceEpisode {
	var cases []domain.VisitRecord
	for _, v := range visits {
		if v.PatientID == patientID && v.VisitType == domain.VisitNewCase {
			cases = append(cases, v)
		}
	}
	slices.SortStableFunc(cases, func(x, y domain.VisitRecord) int {
		return cmp.Or(
			cmp.Compare(x.Diagnosis, y.Diagnosis),
			x.VisitDate.Compare(y.VisitDate),
			cmp.Compare(x.VisitID, y.VisitID),
		)
	})

	out := make([]domain.RecurrenceEpisode, 0, len(cases))
	for i, v := range cases {
		ep := domain.RecurrenceEpisode{
			Diagnosis: v.Diagnosis,
			VisitID:   v.VisitID,
			VisitDate: v.VisitDate,
			EpisodeNo: 1,
		}
		if i > 0 && cases[i-1].Diagnosis == v.Diagnosis {
			prev := out[i-1]
			days := int(math.Floor(v.VisitDate.Sub(prev.VisitDate).Hours() / 24))
			ep.DaysSinceLast = &days
			ep.EpisodeNo = prev.EpisodeNo + 1
		}
		out = append(out, ep)
	}
	return out
}

// SummarizeRecurrence aggregates the gaps of a timeline per diagnosis. First
// episodes carry no gap and are not counted. Rows are ordered by recurrence
// count descending, then average gap ascending.
func SummarizeRecurrence(timeline []domain.RecurrenceEpisode) []domain.RecurrenceSummary {
	type acc struct {
		n, sum, min int
	}
	groups := make(map[string]*acc)
	for _, ep := range timeline {
		if ep.DaysSinceLast == nil {
			continue
		}
		d := *ep.DaysSinceLast
		a, ok := groups[ep.Diagnosis]
		if !ok {
			a = &acc{min: d}
			groups[ep.Diagnosis] = a
		}
		a.n++
		a.sum += d
		a.min = min(a.min, d)
	}

	out := make([]domain.RecurrenceSummary, 0, len(groups))
	for diagnosis, a := range groups {
		out = append(out, domain.RecurrenceSummary{
			Diagnosis:       diagnosis,
			RecurrenceCount: a.n,
			AvgDaysBetween:  Round(float64(a.sum)/float64(a.n), 1),
			MinDaysBetween:  a.min,
		})
	}
	slices.SortFunc(out, func(x, y domain.RecurrenceSummary) int {
		return cmp.Or(
			cmp.Compare(y.RecurrenceCount, x.RecurrenceCount),
			cmp.Compare(x.AvgDaysBetween, y.AvgDaysBetween),
			cmp.Compare(x.Diagnosis, y.Diagnosis),
		)
	})
	return out
}

// BuildPatientHistory assembles every per-patient table. Empty history
// yields empty, non-nil tables.
func BuildPatientHistory(patientID string, records []domain.ClinicalRecord, visits []domain.VisitRecord) *domain.PatientHistory {
	timeline := RecurrenceTimeline(visits, patientID)
	return &domain.PatientHistory{
		PatientID:  patientID,
		Worked:     WorkedDrugs(records, patientID),
		Failed:     FailedDrugs(records, patientID),
		Timeline:   timeline,
		Recurrence: SummarizeRecurrence(timeline),
	}
}
