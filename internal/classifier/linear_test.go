package classifier

import (
	"context"
	"encoding/json"
	"math"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/drug-reco-engine/internal/domain"
)

func threeLabelModel() ModelFile {
	return ModelFile{
		Version: "2024.1",
		Labels:  []string{"Amoxicillin", "Paracetamol", "Salbutamol"},
		Features: []ModelFeature{
			{Name: FeatureDiagnosis, Kind: "categorical", Categories: []string{"URTI", "Asthma"}},
			{Name: FeatureWeightKG, Kind: "numeric", Mean: 10, Scale: 2},
		},
		Coef: [][]float64{
			{2, 0, 0},
			{0, 0, 1},
			{0, 3, 0},
		},
		Intercept: []float64{0, 0, 0},
	}
}

func sum(probs []domain.LabelProbability) float64 {
	var s float64
	for _, p := range probs {
		s += p.Probability
	}
	return s
}

func TestLinearModelSoftmax(t *testing.T) {
	m, err := NewLinearModel(threeLabelModel())
	require.NoError(t, err)

	probs, err := m.PredictProbabilities(context.Background(), domain.ClinicalFeatures{Diagnosis: "URTI", WeightKG: 10})
	require.NoError(t, err)

	require.Len(t, probs, 3)
	assert.InDelta(t, 1.0, sum(probs), 1e-12)
	e2 := math.Exp(2)
	assert.InDelta(t, e2/(e2+2), probs[0].Probability, 1e-12)
	assert.Equal(t, "Amoxicillin", probs[0].Label)
	assert.InDelta(t, 1/(e2+2), probs[1].Probability, 1e-12)
}

func TestLinearModelIgnoresUnknownCategory(t *testing.T) {
	m, err := NewLinearModel(threeLabelModel())
	require.NoError(t, err)

	probs, err := m.PredictProbabilities(context.Background(), domain.ClinicalFeatures{Diagnosis: "Otitis", WeightKG: 10})
	require.NoError(t, err)

	for _, p := range probs {
		assert.InDelta(t, 1.0/3, p.Probability, 1e-12)
	}
}

func TestLinearModelBinary(t *testing.T) {
	m, err := NewLinearModel(ModelFile{
		Labels:    []string{"A", "B"},
		Features:  []ModelFeature{{Name: FeatureAgeMonths, Kind: "numeric"}},
		Coef:      [][]float64{{1}},
		Intercept: []float64{0},
	})
	require.NoError(t, err)

	probs, err := m.PredictProbabilities(context.Background(), domain.ClinicalFeatures{AgeMonths: 0})
	require.NoError(t, err)
	assert.InDelta(t, 0.5, probs[0].Probability, 1e-12)

	probs, err = m.PredictProbabilities(context.Background(), domain.ClinicalFeatures{AgeMonths: 2})
	require.NoError(t, err)
	assert.Greater(t, probs[1].Probability, probs[0].Probability)
	assert.InDelta(t, 1.0, sum(probs), 1e-12)
}

func TestNewLinearModelValidation(t *testing.T) {
	tests := []struct {
		name   string
		mutate func(*ModelFile)
	}{
		{"single label", func(f *ModelFile) { f.Labels = []string{"A"} }},
		{"duplicate label", func(f *ModelFile) { f.Labels[2] = "Amoxicillin" }},
		{"unknown feature", func(f *ModelFile) { f.Features[0].Name = "height" }},
		{"kind mismatch", func(f *ModelFile) { f.Features[1].Kind = "categorical" }},
		{"bad kind", func(f *ModelFile) { f.Features[0].Kind = "ordinal" }},
		{"short row", func(f *ModelFile) { f.Coef[1] = []float64{1} }},
		{"missing intercept", func(f *ModelFile) { f.Intercept = f.Intercept[:2] }},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			f := threeLabelModel()
			tt.mutate(&f)
			_, err := NewLinearModel(f)
			assert.Error(t, err)
		})
	}
}

func TestLoadLinearModel(t *testing.T) {
	path := filepath.Join(t.TempDir(), "model.json")
	data, err := json.Marshal(threeLabelModel())
	require.NoError(t, err)
	require.NoError(t, os.WriteFile(path, data, 0o600))

	m, err := LoadLinearModel(path)
	require.NoError(t, err)
	assert.Equal(t, "2024.1", m.Version())
	assert.Equal(t, []string{"Amoxicillin", "Paracetamol", "Salbutamol"}, m.Labels())

	_, err = LoadLinearModel(filepath.Join(t.TempDir(), "missing.json"))
	assert.Error(t, err)
}
