package analytics

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/drug-reco-engine/internal/domain"
)

func TestBuildDataQualityReport(t *testing.T) {
	records := []domain.ClinicalRecord{
		record("URTI", "A", domain.OutcomeCured, withRecovery(3), withPatient("P-1")),
		record(domain.UnknownCategory, "A", domain.OutcomeCured, withPatient("P-2")),
	}

	report := BuildDataQualityReport(records)

	assert.Equal(t, 2, report.Rows)
	assert.Equal(t, 2, report.UniquePatients)
	require.Len(t, report.MissingRates, len(qualityFields))

	rates := make(map[string]float64)
	for _, r := range report.MissingRates {
		rates[r.Field] = r.MissingRate
	}
	assert.Equal(t, 0.5, rates["Diagnosis"])
	assert.Equal(t, 0.5, rates["Recovery_Days"])
	assert.Equal(t, 1.0, rates["Dose_Value"])
	assert.Equal(t, 0.0, rates["Patient_ID"])

	for i := 1; i < len(report.MissingRates); i++ {
		assert.GreaterOrEqual(t, report.MissingRates[i-1].MissingRate, report.MissingRates[i].MissingRate)
	}
}

func TestAggregatesIndex(t *testing.T) {
	records := []domain.ClinicalRecord{
		record("URTI", "A", domain.OutcomeCured, withDose(250, "mg", 10)),
		record("URTI", "B", domain.OutcomeNoChange),
		record("Asthma", "C", domain.OutcomeCured),
	}

	agg := BuildAggregates(records)

	assert.Len(t, agg.DiagnosisDrugStats(), 3)
	assert.Len(t, agg.ForDiagnosis("URTI"), 2)
	assert.Empty(t, agg.ForDiagnosis("Otitis"))
	assert.True(t, agg.HasDoseHistory("A"))
	assert.False(t, agg.HasDoseHistory("B"))
	assert.Len(t, agg.DoseReference(), 1)
}
