package analytics

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/drug-reco-engine/internal/domain"
)

func TestBuildDoseReference(t *testing.T) {
	records := []domain.ClinicalRecord{
		record("URTI", "Amoxicillin", domain.OutcomeCured, withDose(250, "mg", 10)),
		record("URTI", "Amoxicillin", domain.OutcomeCured, withDose(500, "mg", 20)),
		record("URTI", "Amoxicillin", domain.OutcomeCured, withDose(5, "ml", 10)),
		// no weight, excluded
		record("URTI", "Paracetamol", domain.OutcomeCured, func(r *domain.ClinicalRecord) {
			r.DoseValue = f64(120)
			r.DoseUnit = "mg"
		}),
	}

	doses := BuildDoseReference(records)

	require.Len(t, doses, 2)
	mg := doses[0]
	assert.Equal(t, "Amoxicillin", mg.DrugName)
	assert.Equal(t, "mg", mg.DoseUnit)
	assert.Equal(t, 250.0, mg.MinDose)
	assert.Equal(t, 500.0, mg.MaxDose)
	assert.Equal(t, 375.0, mg.AvgDose)
	assert.Equal(t, 25.0, mg.AvgDosePerKG)
	assert.Equal(t, 2, mg.Cases)

	assert.Equal(t, "ml", doses[1].DoseUnit)
	assert.Equal(t, 0.5, doses[1].AvgDosePerKG)
}

func TestBuildDoseReferenceSkipsZeroWeight(t *testing.T) {
	records := []domain.ClinicalRecord{
		record("URTI", "Amoxicillin", domain.OutcomeCured, withDose(250, "mg", 0)),
	}

	assert.Empty(t, BuildDoseReference(records))
}

func TestDetectDoseOutliers(t *testing.T) {
	var records []domain.ClinicalRecord
	for i := 0; i < 12; i++ {
		r := record("URTI", "Amoxicillin", domain.OutcomeCured, withDose(100, "mg", 10))
		r.VisitID = "normal"
		records = append(records, r)
	}
	records[0].DoseValue = f64(101)
	spike := record("URTI", "Amoxicillin", domain.OutcomeCured, withDose(1000, "mg", 10))
	spike.VisitID = "spike"
	records = append(records, spike)

	// Too few rows to test.
	records = append(records,
		record("URTI", "Rare", domain.OutcomeCured, withDose(1, "mg", 10)),
		record("URTI", "Rare", domain.OutcomeCured, withDose(100, "mg", 10)),
	)

	outliers := DetectDoseOutliers(records, 3)

	require.Len(t, outliers, 1)
	assert.Equal(t, "spike", outliers[0].VisitID)
	assert.Equal(t, 100.0, outliers[0].DosePerKG)
	assert.Greater(t, outliers[0].ZScore, 3.0)
}

func TestDetectDoseOutliersZeroSpread(t *testing.T) {
	records := repeat(5, record("URTI", "Amoxicillin", domain.OutcomeCured, withDose(100, "mg", 10)))

	assert.Empty(t, DetectDoseOutliers(records, 3))
}
