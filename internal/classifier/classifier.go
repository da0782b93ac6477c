// Package classifier provides implementations of the drug classifier
// capability. Every implementation is safe for concurrent use once built.
package classifier

import (
	"fmt"
	"math"

	"github.com/drug-reco-engine/internal/domain"
)

// Kinds accepted by the classifier.kind setting.
const (
	KindLinear    = "linear"
	KindRemote    = "remote"
	KindFrequency = "frequency"
)

// distribution pairs labels with probabilities normalised to sum to 1.
// Non-finite or negative scores are treated as zero. An all-zero input
// yields the uniform distribution.
func distribution(labels []string, scores []float64) ([]domain.LabelProbability, error) {
	if len(labels) != len(scores) {
		return nil, fmt.Errorf("label/score length mismatch: %d labels, %d scores", len(labels), len(scores))
	}
	if len(labels) == 0 {
		return []domain.LabelProbability{}, nil
	}

	var total float64
	clean := make([]float64, len(scores))
	for i, s := range scores {
		if math.IsNaN(s) || math.IsInf(s, 0) || s < 0 {
			s = 0
		}
		clean[i] = s
		total += s
	}

	out := make([]domain.LabelProbability, len(labels))
	for i, l := range labels {
		p := 1 / float64(len(labels))
		if total > 0 {
			p = clean[i] / total
		}
		out[i] = domain.LabelProbability{Label: l, Probability: p}
	}
	return out, nil
}

// uniqueLabels drops empty and repeated labels, keeping first occurrences.
func uniqueLabels(labels []string) []string {
	seen := make(map[string]struct{}, len(labels))
	out := make([]string, 0, len(labels))
	for _, l := range labels {
		if l == "" {
			continue
		}
		if _, ok := seen[l]; ok {
			continue
		}
		seen[l] = struct{}{}
		out = append(out, l)
	}
	return out
}
