package classifier

import (
	"context"
	"encoding/json"
	"fmt"
	"math"
	"os"
	"strings"

	"github.com/drug-reco-engine/internal/domain"
)

// Feature names understood by a linear model file.
const (
	FeatureDiagnosis      = "diagnosis"
	FeatureChiefComplaint = "chief_complaint"
	FeatureGender         = "gender"
	FeatureAgeMonths      = "age_months"
	FeatureWeightKG       = "weight_kg"
)

// ModelFeature describes one input column of an exported model. Categorical
// features expand to one indicator per category; a value outside the
// category list contributes nothing. Numeric features are standardised with
// Mean and Scale when Scale is non-zero.
type ModelFeature struct {
	Name       string   `json:"name"`
	Kind       string   `json:"kind"` // "categorical" or "numeric"
	Categories []string `json:"categories,omitempty"`
	Mean       float64  `json:"mean,omitempty"`
	Scale      float64  `json:"scale,omitempty"`
}

// ModelFile is the JSON export of a multinomial logistic regression. Coef
// has one row per label, or a single row for a binary model.
type ModelFile struct {
	Version   string         `json:"version"`
	Labels    []string       `json:"labels"`
	Features  []ModelFeature `json:"features"`
	Coef      [][]float64    `json:"coef"`
	Intercept []float64      `json:"intercept"`
}

// LinearModel evaluates an exported logistic regression.
type LinearModel struct {
	version   string
	labels    []string
	features  []ModelFeature
	index     []map[string]int
	coef      [][]float64
	intercept []float64
	width     int
}

// LoadLinearModel reads and validates a model file.
func LoadLinearModel(path string) (*LinearModel, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read model file: %w", err)
	}
	var file ModelFile
	if err := json.Unmarshal(data, &file); err != nil {
		return nil, fmt.Errorf("failed to parse model file: %w", err)
	}
	return NewLinearModel(file)
}

// NewLinearModel validates the exported parameters and builds the model.
func NewLinearModel(file ModelFile) (*LinearModel, error) {
	if len(file.Labels) < 2 {
		return nil, fmt.Errorf("model must have at least two labels, got %d", len(file.Labels))
	}
	if len(uniqueLabels(file.Labels)) != len(file.Labels) {
		return nil, fmt.Errorf("model labels must be unique and non-empty")
	}

	m := &LinearModel{
		version:   file.Version,
		labels:    file.Labels,
		features:  file.Features,
		coef:      file.Coef,
		intercept: file.Intercept,
	}
	for _, f := range file.Features {
		switch f.Kind {
		case "categorical":
			idx := make(map[string]int, len(f.Categories))
			for i, c := range f.Categories {
				idx[c] = i
			}
			m.index = append(m.index, idx)
			m.width += len(f.Categories)
		case "numeric":
			m.index = append(m.index, nil)
			m.width++
		default:
			return nil, fmt.Errorf("feature %q has unknown kind %q", f.Name, f.Kind)
		}
		switch featureValue(domain.ClinicalFeatures{}, f.Name).(type) {
		case string:
			if f.Kind != "categorical" {
				return nil, fmt.Errorf("feature %q must be categorical", f.Name)
			}
		case float64:
			if f.Kind != "numeric" {
				return nil, fmt.Errorf("feature %q must be numeric", f.Name)
			}
		default:
			return nil, fmt.Errorf("unknown feature %q", f.Name)
		}
	}

	rows := len(file.Labels)
	if rows == 2 && len(file.Coef) == 1 {
		rows = 1
	}
	if len(file.Coef) != rows || len(file.Intercept) != rows {
		return nil, fmt.Errorf("expected %d coefficient rows and intercepts, got %d and %d", rows, len(file.Coef), len(file.Intercept))
	}
	for i, row := range file.Coef {
		if len(row) != m.width {
			return nil, fmt.Errorf("coefficient row %d has %d values, want %d", i, len(row), m.width)
		}
	}
	return m, nil
}

// Labels returns the model's label universe.
func (m *LinearModel) Labels() []string {
	return m.labels
}

// Version returns the model version string from the file.
func (m *LinearModel) Version() string {
	return m.version
}

// PredictProbabilities evaluates the model.
func (m *LinearModel) PredictProbabilities(_ context.Context, features domain.ClinicalFeatures) ([]domain.LabelProbability, error) {
	x := m.encode(features)

	logits := make([]float64, len(m.coef))
	for i, row := range m.coef {
		z := m.intercept[i]
		for j, w := range row {
			z += w * x[j]
		}
		logits[i] = z
	}

	if len(logits) == 1 {
		p := 1 / (1 + math.Exp(-logits[0]))
		return distribution(m.labels, []float64{1 - p, p})
	}
	return distribution(m.labels, softmax(logits))
}

func (m *LinearModel) encode(features domain.ClinicalFeatures) []float64 {
	x := make([]float64, m.width)
	offset := 0
	for i, f := range m.features {
		v := featureValue(features, f.Name)
		switch f.Kind {
		case "categorical":
			if j, ok := m.index[i][strings.TrimSpace(v.(string))]; ok {
				x[offset+j] = 1
			}
			offset += len(f.Categories)
		case "numeric":
			n := v.(float64)
			if f.Scale != 0 {
				n = (n - f.Mean) / f.Scale
			}
			x[offset] = n
			offset++
		}
	}
	return x
}

func featureValue(f domain.ClinicalFeatures, name string) any {
	switch name {
	case FeatureDiagnosis:
		return f.Diagnosis
	case FeatureChiefComplaint:
		return f.ChiefComplaint
	case FeatureGender:
		return f.Gender
	case FeatureAgeMonths:
		return f.AgeMonths
	case FeatureWeightKG:
		return f.WeightKG
	default:
		return nil
	}
}

func softmax(logits []float64) []float64 {
	peak := math.Inf(-1)
	for _, z := range logits {
		peak = max(peak, z)
	}
	out := make([]float64, len(logits))
	for i, z := range logits {
		out[i] = math.Exp(z - peak)
	}
	return out
}
