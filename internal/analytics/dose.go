package analytics

import (
	"cmp"
	"math"
	"slices"

	"github.com/drug-reco-engine/internal/domain"
)

// dosedRecord is a record with every field needed for dose arithmetic.
type dosedRecord struct {
	rec       domain.ClinicalRecord
	dose      float64
	weight    float64
	dosePerKG float64
}

// dosedRecords keeps records with a dose value, a dose unit and a positive
// weight. A zero weight would make dose-per-kilogram undefined.
func dosedRecords(records []domain.ClinicalRecord) []dosedRecord {
	var out []dosedRecord
	for _, r := range records {
		if r.DoseValue == nil || r.DoseUnit == "" || r.WeightKG == nil || *r.WeightKG <= 0 {
			continue
		}
		out = append(out, dosedRecord{
			rec:       r,
			dose:      *r.DoseValue,
			weight:    *r.WeightKG,
			dosePerKG: *r.DoseValue / *r.WeightKG,
		})
	}
	return out
}

// BuildDoseReference summarizes historical dosing per (drug, unit). The table
// is informational and never influences ranking.
func BuildDoseReference(records []domain.ClinicalRecord) []domain.DoseStat {
	type acc struct {
		min, max, sum, perKG float64
		n                    int
	}
	groups := make(map[pairKey]*acc)
	for _, d := range dosedRecords(records) {
		k := pairKey{d.rec.DrugName, d.rec.DoseUnit}
		a, ok := groups[k]
		if !ok {
			a = &acc{min: d.dose, max: d.dose}
			groups[k] = a
		}
		a.min = min(a.min, d.dose)
		a.max = max(a.max, d.dose)
		a.sum += d.dose
		a.perKG += d.dosePerKG
		a.n++
	}

	out := make([]domain.DoseStat, 0, len(groups))
	for k, a := range groups {
		out = append(out, domain.DoseStat{
			DrugName:     k.a,
			DoseUnit:     k.b,
			MinDose:      a.min,
			MaxDose:      a.max,
			AvgDose:      Round(a.sum/float64(a.n), 2),
			AvgDosePerKG: Round(a.perKG/float64(a.n), 2),
			Cases:        a.n,
		})
	}

	slices.SortFunc(out, func(x, y domain.DoseStat) int {
		return cmp.Or(cmp.Compare(x.DrugName, y.DrugName), cmp.Compare(x.DoseUnit, y.DoseUnit))
	})
	return out
}

// MinOutlierGroupSize is the smallest per-drug sample tested for outliers.
const MinOutlierGroupSize = 3

// DetectDoseOutliers returns dosed records whose dose-per-kilogram deviates
// from their drug's mean by more than z sample standard deviations. Drugs
// with fewer than MinOutlierGroupSize records or zero spread are skipped.
func DetectDoseOutliers(records []domain.ClinicalRecord, z float64) []domain.DoseOutlier {
	byDrug := make(map[string][]dosedRecord)
	for _, d := range dosedRecords(records) {
		byDrug[d.rec.DrugName] = append(byDrug[d.rec.DrugName], d)
	}

	var out []domain.DoseOutlier
	for _, group := range byDrug {
		if len(group) < MinOutlierGroupSize {
			continue
		}
		mean, std := meanStd(group)
		if std == 0 || math.IsNaN(std) {
			continue
		}
		for _, d := range group {
			dev := d.dosePerKG - mean
			if math.Abs(dev) <= z*std {
				continue
			}
			out = append(out, domain.DoseOutlier{
				VisitID:   d.rec.VisitID,
				PatientID: d.rec.PatientID,
				DrugName:  d.rec.DrugName,
				DoseValue: d.dose,
				DoseUnit:  d.rec.DoseUnit,
				WeightKG:  d.weight,
				DosePerKG: d.dosePerKG,
				ZScore:    dev / std,
			})
		}
	}

	slices.SortFunc(out, func(x, y domain.DoseOutlier) int {
		return cmp.Or(
			cmp.Compare(y.DosePerKG, x.DosePerKG),
			cmp.Compare(x.DrugName, y.DrugName),
			cmp.Compare(x.VisitID, y.VisitID),
		)
	})
	return out
}

// meanStd returns the mean and sample standard deviation of dose-per-kg.
func meanStd(group []dosedRecord) (float64, float64) {
	var sum float64
	for _, d := range group {
		sum += d.dosePerKG
	}
	mean := sum / float64(len(group))

	var sq float64
	for _, d := range group {
		sq += (d.dosePerKG - mean) * (d.dosePerKG - mean)
	}
	return mean, math.Sqrt(sq / float64(len(group)-1))
}
