package analytics

import "github.com/drug-reco-engine/internal/domain"

// Aggregates bundles the population tables the engine consults: the
// diagnosis-drug statistics and the dose reference. It is immutable after
// construction.
type Aggregates struct {
	diagnosisDrug []domain.DiagnosisDrugStat
	doses         []domain.DoseStat
	byDiagnosis   map[string][]domain.DiagnosisDrugStat
	dosed         map[string]struct{}
}

// NewAggregates indexes prebuilt tables.
func NewAggregates(stats []domain.DiagnosisDrugStat, doses []domain.DoseStat) *Aggregates {
	a := &Aggregates{
		diagnosisDrug: stats,
		doses:         doses,
		byDiagnosis:   make(map[string][]domain.DiagnosisDrugStat),
		dosed:         make(map[string]struct{}, len(doses)),
	}
	for _, s := range stats {
		a.byDiagnosis[s.Diagnosis] = append(a.byDiagnosis[s.Diagnosis], s)
	}
	for _, d := range doses {
		a.dosed[d.DrugName] = struct{}{}
	}
	return a
}

// BuildAggregates computes both population tables from records.
func BuildAggregates(records []domain.ClinicalRecord) *Aggregates {
	return NewAggregates(BuildDiagnosisDrugStats(records), BuildDoseReference(records))
}

// DiagnosisDrugStats returns the full diagnosis-drug table.
func (a *Aggregates) DiagnosisDrugStats() []domain.DiagnosisDrugStat {
	return a.diagnosisDrug
}

// DoseReference returns the full dose reference table.
func (a *Aggregates) DoseReference() []domain.DoseStat {
	return a.doses
}

// ForDiagnosis returns the rows for one diagnosis in table order.
func (a *Aggregates) ForDiagnosis(diagnosis string) []domain.DiagnosisDrugStat {
	return a.byDiagnosis[diagnosis]
}

// HasDoseHistory reports whether any dosing data exists for the drug.
func (a *Aggregates) HasDoseHistory(drug string) bool {
	_, ok := a.dosed[drug]
	return ok
}
