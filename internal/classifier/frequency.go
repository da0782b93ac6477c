package classifier

import (
	"context"
	"slices"

	"github.com/drug-reco-engine/internal/domain"
)

// DefaultSmoothing is the Laplace pseudo-count added to every label.
const DefaultSmoothing = 1.0

// FrequencyClassifier estimates P(drug | diagnosis) from historical
// prescribing frequencies. It is the fallback when no trained model is
// configured. Records with an Unknown drug do not contribute a label.
type FrequencyClassifier struct {
	labels    []string
	alpha     float64
	byDx      map[string][]float64
	marginal  []float64
	dxTotals  map[string]float64
	allTotals float64
}

// NewFrequencyClassifier counts drug occurrences per diagnosis. A
// non-positive smoothing falls back to DefaultSmoothing.
func NewFrequencyClassifier(records []domain.ClinicalRecord, smoothing float64) *FrequencyClassifier {
	if smoothing <= 0 {
		smoothing = DefaultSmoothing
	}

	var names []string
	for _, r := range records {
		if r.DrugName != domain.UnknownCategory {
			names = append(names, r.DrugName)
		}
	}
	slices.Sort(names)
	labels := slices.Compact(names)
	pos := make(map[string]int, len(labels))
	for i, l := range labels {
		pos[l] = i
	}

	c := &FrequencyClassifier{
		labels:   labels,
		alpha:    smoothing,
		byDx:     make(map[string][]float64),
		marginal: make([]float64, len(labels)),
		dxTotals: make(map[string]float64),
	}
	for _, r := range records {
		i, ok := pos[r.DrugName]
		if !ok {
			continue
		}
		counts, ok := c.byDx[r.Diagnosis]
		if !ok {
			counts = make([]float64, len(labels))
			c.byDx[r.Diagnosis] = counts
		}
		counts[i]++
		c.dxTotals[r.Diagnosis]++
		c.marginal[i]++
		c.allTotals++
	}
	return c
}

// Labels returns every drug seen in the records, sorted.
func (c *FrequencyClassifier) Labels() []string {
	return c.labels
}

// PredictProbabilities returns the smoothed prescribing distribution for
// the diagnosis, or the overall distribution for an unseen diagnosis.
func (c *FrequencyClassifier) PredictProbabilities(_ context.Context, features domain.ClinicalFeatures) ([]domain.LabelProbability, error) {
	counts, ok := c.byDx[features.Diagnosis]
	if !ok {
		counts = c.marginal
	}
	scores := make([]float64, len(counts))
	for i, n := range counts {
		scores[i] = n + c.alpha
	}
	return distribution(c.labels, scores)
}
