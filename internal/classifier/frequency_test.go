package classifier

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/drug-reco-engine/internal/domain"
)

func rec(diagnosis, drug string) domain.ClinicalRecord {
	return domain.ClinicalRecord{VisitRecord: domain.VisitRecord{Diagnosis: diagnosis}, DrugName: drug}
}

func TestFrequencyClassifier(t *testing.T) {
	records := []domain.ClinicalRecord{
		rec("URTI", "Amoxicillin"),
		rec("URTI", "Amoxicillin"),
		rec("URTI", "Paracetamol"),
		rec("Asthma", "Salbutamol"),
		rec("Asthma", domain.UnknownCategory),
	}

	c := NewFrequencyClassifier(records, 1)

	assert.Equal(t, []string{"Amoxicillin", "Paracetamol", "Salbutamol"}, c.Labels())

	probs, err := c.PredictProbabilities(context.Background(), domain.ClinicalFeatures{Diagnosis: "URTI"})
	require.NoError(t, err)
	// (2+1)/(3+3), (1+1)/6, (0+1)/6
	assert.InDelta(t, 0.5, probs[0].Probability, 1e-12)
	assert.InDelta(t, 2.0/6, probs[1].Probability, 1e-12)
	assert.InDelta(t, 1.0/6, probs[2].Probability, 1e-12)

	unseen, err := c.PredictProbabilities(context.Background(), domain.ClinicalFeatures{Diagnosis: "Otitis"})
	require.NoError(t, err)
	// Marginal counts 2, 1, 1 smoothed.
	assert.InDelta(t, 3.0/7, unseen[0].Probability, 1e-12)
}

func TestFrequencyClassifierEmpty(t *testing.T) {
	c := NewFrequencyClassifier(nil, 0)

	probs, err := c.PredictProbabilities(context.Background(), domain.ClinicalFeatures{Diagnosis: "URTI"})
	require.NoError(t, err)
	assert.Empty(t, probs)
	assert.Empty(t, c.Labels())
}

func TestDistribution(t *testing.T) {
	probs, err := distribution([]string{"a", "b"}, []float64{0, 0})
	require.NoError(t, err)
	assert.Equal(t, 0.5, probs[0].Probability)

	probs, err = distribution([]string{"a", "b"}, []float64{-1, 3})
	require.NoError(t, err)
	assert.Equal(t, 0.0, probs[0].Probability)
	assert.Equal(t, 1.0, probs[1].Probability)

	_, err = distribution([]string{"a"}, nil)
	assert.Error(t, err)
}
