package service

import (
	"cmp"
	"context"
	"errors"
	"slices"
	"time"

	"github.com/sirupsen/logrus"

	"github.com/drug-reco-engine/internal/analytics"
	"github.com/drug-reco-engine/internal/domain"
)

// Inputs are the capabilities one recommendation is computed against. All
// three must come from the same data snapshot.
type Inputs struct {
	Classifier domain.Classifier
	Aggregates *analytics.Aggregates
	History    domain.HistorySource
}

// Engine fuses classifier output, population statistics and patient
// history into a ranked, safety-filtered recommendation. It holds no
// mutable state and may be shared.
type Engine struct {
	logger  *logrus.Logger
	weights domain.ScoringConfig
	rules   []ExclusionRule
}

// NewEngine creates an engine with the given weights and the default
// exclusion rules.
func NewEngine(weights domain.ScoringConfig, logger *logrus.Logger) *Engine {
	return &Engine{
		logger:  logger,
		weights: weights,
		rules:   DefaultExclusionRules(),
	}
}

// Recommend scores every drug in the classifier's label universe for the
// request. The request must already carry resolved K and FailThreshold.
func (e *Engine) Recommend(ctx context.Context, in Inputs, req domain.RecommendationRequest) (*domain.Recommendation, error) {
	switch {
	case in.Classifier == nil:
		return nil, domain.MissingCapability("classifier")
	case in.Aggregates == nil:
		return nil, domain.MissingCapability("diagnosis-drug aggregates")
	case in.History == nil:
		return nil, domain.MissingCapability("patient history")
	}

	probs, err := in.Classifier.PredictProbabilities(ctx, req.Features())
	if err != nil {
		var cerr *domain.ClassifierError
		if errors.As(err, &cerr) {
			return nil, err
		}
		return nil, &domain.ClassifierError{Err: err}
	}

	history := normalizeHistory(req.PatientID, in.History.PatientHistory(req.PatientID))
	recurrence := history.RecurrenceCount(req.Diagnosis)

	base := make(map[string]domain.DiagnosisDrugStat)
	for _, s := range in.Aggregates.ForDiagnosis(req.Diagnosis) {
		base[s.DrugName] = s
	}
	if len(base) == 0 {
		e.logger.WithField("diagnosis", req.Diagnosis).Debug("No population history for diagnosis; scoring from classifier alone")
	}

	query := ExclusionQuery{Allergies: req.Allergies, FailThreshold: req.FailThreshold}
	seen := make(map[string]struct{}, len(probs))
	candidates := make([]domain.CandidateScore, 0, len(probs))
	for _, p := range probs {
		if _, dup := seen[p.Label]; dup {
			continue
		}
		seen[p.Label] = struct{}{}

		c := domain.CandidateScore{
			DrugName:    p.Label,
			MLProb:      p.Probability,
			AvgRecovery: domain.NoRecoverySentinel,
		}
		if s, ok := base[p.Label]; ok {
			c.CureRate = s.CureRate
			c.AvgRecovery = s.AvgRecovery
			c.TotalCases = s.TotalCases
		}
		c.SuccessCountPatient = history.SuccessCount(p.Label)
		c.FailCountPatient = history.FailCount(p.Label)
		c.RecurrenceFactor = recurrence
		c.FinalScore = e.Score(c)

		applyExclusions(e.rules, &c, query)

		c.DoseFlag = domain.DoseHistoryMissing
		if in.Aggregates.HasDoseHistory(p.Label) {
			c.DoseFlag = domain.DoseHistoryAvailable
		}
		candidates = append(candidates, c)
	}

	slices.SortStableFunc(candidates, byScore)

	excluded := make([]domain.CandidateScore, 0)
	final := make([]domain.CandidateScore, 0, req.K)
	for _, c := range candidates {
		switch {
		case c.Excluded:
			excluded = append(excluded, c)
		case len(final) < req.K:
			final = append(final, c)
		}
	}

	e.logger.WithFields(logrus.Fields{
		"patient_id": req.PatientID,
		"diagnosis":  req.Diagnosis,
		"candidates": len(candidates),
		"excluded":   len(excluded),
		"final":      len(final),
	}).Info("Computed drug recommendation")

	return &domain.Recommendation{
		PatientID:          req.PatientID,
		Diagnosis:          req.Diagnosis,
		K:                  req.K,
		FailThreshold:      req.FailThreshold,
		Candidates:         candidates,
		Excluded:           excluded,
		Final:              final,
		Worked:             history.Worked,
		Failed:             history.Failed,
		RecurrenceSummary:  history.Recurrence,
		RecurrenceTimeline: history.Timeline,
		GeneratedAt:        time.Now().UTC(),
	}, nil
}

// Score computes the fused score of a candidate:
//
//	ml·p + cure·rate + recovery·1/(avg+1)
//	+ success·wins − fail·losses
//	+ n·(recSuccess·wins − recFail·losses)   when recurrence n > 0
func (e *Engine) Score(c domain.CandidateScore) float64 {
	w := e.weights
	score := w.MLWeight*c.MLProb +
		w.CureRateWeight*c.CureRate +
		w.RecoveryWeight*(1/(c.AvgRecovery+1))

	wins := float64(c.SuccessCountPatient)
	losses := float64(c.FailCountPatient)
	score += w.SuccessBonus*wins - w.FailPenalty*losses

	if n := float64(c.RecurrenceFactor); n > 0 {
		score += w.RecurrenceSuccessBonus*n*wins - w.RecurrenceFailPenalty*n*losses
	}
	return score
}

func emptyHistory(patientID string) *domain.PatientHistory {
	return &domain.PatientHistory{
		PatientID:  patientID,
		Worked:     []domain.DrugSuccess{},
		Failed:     []domain.DrugFailure{},
		Timeline:   []domain.RecurrenceEpisode{},
		Recurrence: []domain.RecurrenceSummary{},
	}
}

// normalizeHistory returns a copy of h whose tables are never nil so a
// partially filled history still serializes every table as an array.
func normalizeHistory(patientID string, h *domain.PatientHistory) *domain.PatientHistory {
	if h == nil {
		return emptyHistory(patientID)
	}
	out := *h
	if out.Worked == nil {
		out.Worked = []domain.DrugSuccess{}
	}
	if out.Failed == nil {
		out.Failed = []domain.DrugFailure{}
	}
	if out.Timeline == nil {
		out.Timeline = []domain.RecurrenceEpisode{}
	}
	if out.Recurrence == nil {
		out.Recurrence = []domain.RecurrenceSummary{}
	}
	return &out
}

// byScore orders by final score descending, then drug name ascending.
func byScore(a, b domain.CandidateScore) int {
	return cmp.Or(cmp.Compare(b.FinalScore, a.FinalScore), cmp.Compare(a.DrugName, b.DrugName))
}
