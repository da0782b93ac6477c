package service

import (
	"context"
	"fmt"
	"strings"

	"github.com/google/uuid"
	"github.com/sirupsen/logrus"

	"github.com/drug-reco-engine/internal/analytics"
	"github.com/drug-reco-engine/internal/domain"
	"github.com/drug-reco-engine/internal/snapshot"
)

// RecommendationService answers recommendation and analytics queries
// against the currently published snapshot.
type RecommendationService struct {
	logger     *logrus.Logger
	registry   *snapshot.Registry
	classifier domain.Classifier
	engine     *Engine
	defaults   domain.RecommendationConfig
}

// NewRecommendationService creates the service. A nil classifier selects
// the baseline frequency classifier of each snapshot; unset scoring weights
// use the defaults.
func NewRecommendationService(
	logger *logrus.Logger,
	registry *snapshot.Registry,
	classifier domain.Classifier,
	cfg domain.RecommendationConfig,
) *RecommendationService {
	if cfg.Scoring == (domain.ScoringConfig{}) {
		cfg.Scoring = domain.DefaultScoringConfig()
	}
	return &RecommendationService{
		logger:     logger,
		registry:   registry,
		classifier: classifier,
		engine:     NewEngine(cfg.Scoring, logger),
		defaults:   cfg,
	}
}

// Recommend resolves defaults, validates the request and runs the engine
// against one snapshot.
func (s *RecommendationService) Recommend(ctx context.Context, req domain.RecommendationRequest) (*domain.Recommendation, error) {
	req = resolveRequest(req, s.defaults)
	if err := ValidateRequest(req); err != nil {
		return nil, err
	}

	snap, err := s.registry.Current()
	if err != nil {
		return nil, err
	}

	s.logger.WithFields(logrus.Fields{
		"patient_id":    req.PatientID,
		"diagnosis":     req.Diagnosis,
		"k":             req.K,
		"has_allergies": req.Allergies != "",
		"snapshot_id":   snap.ID(),
	}).Debug("Starting recommendation")

	rec, err := s.engine.Recommend(ctx, s.inputs(snap), req)
	if err != nil {
		return nil, fmt.Errorf("failed to compute recommendation: %w", err)
	}
	rec.ID = uuid.New().String()
	rec.SnapshotID = snap.ID()
	return rec, nil
}

func (s *RecommendationService) inputs(snap *snapshot.Snapshot) Inputs {
	c := s.classifier
	if c == nil {
		c = snap.Baseline()
	}
	return Inputs{
		Classifier: c,
		Aggregates: snap.Aggregates(),
		History:    snap,
	}
}

// PatientHistory returns the patient's worked, failed and recurrence
// tables. A patient absent from the snapshot is ErrNotFound.
func (s *RecommendationService) PatientHistory(_ context.Context, patientID string) (*domain.PatientHistory, error) {
	snap, err := s.registry.Current()
	if err != nil {
		return nil, err
	}
	patientID = strings.TrimSpace(patientID)
	if !snap.HasPatient(patientID) {
		return nil, fmt.Errorf("patient %s: %w", patientID, domain.ErrNotFound)
	}
	return snap.PatientHistory(patientID), nil
}

// DiagnosisDrugStats returns the population table, limited to one
// diagnosis when diagnosis is non-empty.
func (s *RecommendationService) DiagnosisDrugStats(_ context.Context, diagnosis string) ([]domain.DiagnosisDrugStat, error) {
	snap, err := s.registry.Current()
	if err != nil {
		return nil, err
	}
	if diagnosis = strings.TrimSpace(diagnosis); diagnosis != "" {
		rows := snap.Aggregates().ForDiagnosis(diagnosis)
		if rows == nil {
			rows = []domain.DiagnosisDrugStat{}
		}
		return rows, nil
	}
	return snap.Aggregates().DiagnosisDrugStats(), nil
}

// DoseReference returns the dose reference table.
func (s *RecommendationService) DoseReference(_ context.Context) ([]domain.DoseStat, error) {
	snap, err := s.registry.Current()
	if err != nil {
		return nil, err
	}
	return snap.Aggregates().DoseReference(), nil
}

// ComplaintCureStats returns cure rates per diagnosis and chief complaint.
func (s *RecommendationService) ComplaintCureStats(_ context.Context) ([]domain.ComplaintCureStat, error) {
	snap, err := s.registry.Current()
	if err != nil {
		return nil, err
	}
	return analytics.BuildComplaintCureStats(snap.Records()), nil
}

// DrugEffectiveness returns the cross-diagnosis drug ranking.
func (s *RecommendationService) DrugEffectiveness(_ context.Context) ([]domain.DrugEffectiveness, error) {
	snap, err := s.registry.Current()
	if err != nil {
		return nil, err
	}
	return analytics.BuildDrugEffectiveness(snap.Records()), nil
}

// DoseOutliers returns unusual doses. A non-positive z uses the configured
// threshold.
func (s *RecommendationService) DoseOutliers(_ context.Context, z float64) ([]domain.DoseOutlier, error) {
	snap, err := s.registry.Current()
	if err != nil {
		return nil, err
	}
	if z <= 0 {
		z = s.defaults.OutlierZ
	}
	if z <= 0 {
		z = 3
	}
	outliers := analytics.DetectDoseOutliers(snap.Records(), z)
	if outliers == nil {
		outliers = []domain.DoseOutlier{}
	}
	return outliers, nil
}

// DataQuality reports completeness of the snapshot.
func (s *RecommendationService) DataQuality(_ context.Context) (domain.DataQualityReport, error) {
	snap, err := s.registry.Current()
	if err != nil {
		return domain.DataQualityReport{}, err
	}
	return analytics.BuildDataQualityReport(snap.Records()), nil
}

// RebuildSnapshot reloads the data store and publishes a new snapshot.
func (s *RecommendationService) RebuildSnapshot(ctx context.Context) (snapshot.Info, error) {
	snap, err := s.registry.Rebuild(ctx)
	if err != nil {
		return snapshot.Info{}, fmt.Errorf("failed to rebuild snapshot: %w", err)
	}
	return snap.Info(), nil
}

// SnapshotInfo describes the published snapshot.
func (s *RecommendationService) SnapshotInfo() (snapshot.Info, error) {
	snap, err := s.registry.Current()
	if err != nil {
		return snapshot.Info{}, err
	}
	return snap.Info(), nil
}
