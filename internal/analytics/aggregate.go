// Package analytics computes the derived statistical tables used by the
// recommendation engine. Every builder is a pure function of a record
// snapshot and returns a freshly allocated table.
package analytics

import (
	"cmp"
	"math"
	"slices"

	"github.com/drug-reco-engine/internal/domain"
)

// outcomeTally accumulates case and recovery counts for one group.
type outcomeTally struct {
	total       int
	cured       int
	recoverySum float64
	recoveryN   int
}

func (t *outcomeTally) add(r domain.ClinicalRecord) {
	t.total++
	if r.OutcomeClass.IsSuccess() {
		t.cured++
	}
	if r.RecoveryDays != nil {
		t.recoverySum += *r.RecoveryDays
		t.recoveryN++
	}
}

func (t *outcomeTally) cureRate() float64 {
	if t.total == 0 {
		return 0
	}
	return float64(t.cured) / float64(t.total)
}

// avgRecovery returns the mean recovery, ok=false when nothing was recorded.
func (t *outcomeTally) avgRecovery() (float64, bool) {
	if t.recoveryN == 0 {
		return 0, false
	}
	return t.recoverySum / float64(t.recoveryN), true
}

type pairKey struct {
	a, b string
}

// BuildDiagnosisDrugStats groups records by (diagnosis, drug) and reports
// cure rate and mean recovery per group. Groups without recovery data carry
// the NoRecoverySentinel. Rows are ordered by diagnosis ascending, then cure
// rate descending, then recovery ascending, then drug name.
func BuildDiagnosisDrugStats(records []domain.ClinicalRecord) []domain.DiagnosisDrugStat {
	groups := make(map[pairKey]*outcomeTally)
	for _, r := range records {
		k := pairKey{r.Diagnosis, r.DrugName}
		t, ok := groups[k]
		if !ok {
			t = &outcomeTally{}
			groups[k] = t
		}
		t.add(r)
	}

	out := make([]domain.DiagnosisDrugStat, 0, len(groups))
	for k, t := range groups {
		avg, ok := t.avgRecovery()
		if !ok {
			avg = domain.NoRecoverySentinel
		}
		out = append(out, domain.DiagnosisDrugStat{
			Diagnosis:   k.a,
			DrugName:    k.b,
			TotalCases:  t.total,
			CuredCases:  t.cured,
			CureRate:    t.cureRate(),
			AvgRecovery: avg,
		})
	}

	slices.SortFunc(out, func(x, y domain.DiagnosisDrugStat) int {
		return cmp.Or(
			cmp.Compare(x.Diagnosis, y.Diagnosis),
			cmp.Compare(y.CureRate, x.CureRate),
			cmp.Compare(x.AvgRecovery, y.AvgRecovery),
			cmp.Compare(x.DrugName, y.DrugName),
		)
	})
	return out
}

// BuildComplaintCureStats groups records by (diagnosis, chief complaint).
// Cure rate is a percentage rounded to one decimal.
func BuildComplaintCureStats(records []domain.ClinicalRecord) []domain.ComplaintCureStat {
	groups := make(map[pairKey]*outcomeTally)
	for _, r := range records {
		k := pairKey{r.Diagnosis, r.ChiefComplaint}
		t, ok := groups[k]
		if !ok {
			t = &outcomeTally{}
			groups[k] = t
		}
		t.add(r)
	}

	out := make([]domain.ComplaintCureStat, 0, len(groups))
	for k, t := range groups {
		stat := domain.ComplaintCureStat{
			Diagnosis:      k.a,
			ChiefComplaint: k.b,
			TotalCases:     t.total,
			CuredCases:     t.cured,
			CureRate:       Round(t.cureRate()*100, 1),
		}
		if avg, ok := t.avgRecovery(); ok {
			avg = Round(avg, 2)
			stat.AvgRecovery = &avg
		}
		out = append(out, stat)
	}

	slices.SortFunc(out, func(x, y domain.ComplaintCureStat) int {
		return cmp.Or(
			cmp.Compare(x.Diagnosis, y.Diagnosis),
			cmp.Compare(y.CureRate, x.CureRate),
			cmp.Compare(x.ChiefComplaint, y.ChiefComplaint),
		)
	})
	return out
}

// BuildDrugEffectiveness ranks drugs across all diagnoses. The score blends
// cure rate (0.6), speed 1/(avg_recovery+1) (0.2) and the case volume
// log(1+n) normalised by its maximum (0.2).
func BuildDrugEffectiveness(records []domain.ClinicalRecord) []domain.DrugEffectiveness {
	groups := make(map[string]*outcomeTally)
	for _, r := range records {
		t, ok := groups[r.DrugName]
		if !ok {
			t = &outcomeTally{}
			groups[r.DrugName] = t
		}
		t.add(r)
	}

	out := make([]domain.DrugEffectiveness, 0, len(groups))
	maxReliability := 0.0
	for drug, t := range groups {
		avg, ok := t.avgRecovery()
		if !ok {
			avg = domain.NoRecoverySentinel
		}
		e := domain.DrugEffectiveness{
			DrugName:         drug,
			TotalCases:       t.total,
			CuredCases:       t.cured,
			CureRate:         t.cureRate(),
			AvgRecovery:      avg,
			SpeedScore:       1 / (avg + 1),
			ReliabilityScore: math.Log1p(float64(t.total)),
		}
		maxReliability = max(maxReliability, e.ReliabilityScore)
		out = append(out, e)
	}

	for i := range out {
		norm := 0.0
		if maxReliability > 0 {
			norm = out[i].ReliabilityScore / maxReliability
		}
		out[i].EffectivenessScore = 0.6*out[i].CureRate + 0.2*out[i].SpeedScore + 0.2*norm
	}

	slices.SortFunc(out, func(x, y domain.DrugEffectiveness) int {
		return cmp.Or(
			cmp.Compare(y.EffectivenessScore, x.EffectivenessScore),
			cmp.Compare(x.DrugName, y.DrugName),
		)
	})
	return out
}

// Round rounds x to the given number of decimal places.
func Round(x float64, places int) float64 {
	p := math.Pow(10, float64(places))
	return math.Round(x*p) / p
}
