package service

import (
	"math"
	"strings"

	"github.com/drug-reco-engine/internal/domain"
)

// resolveRequest trims text fields and fills K and FailThreshold from the
// configured defaults when unset.
func resolveRequest(req domain.RecommendationRequest, defaults domain.RecommendationConfig) domain.RecommendationRequest {
	req.PatientID = strings.TrimSpace(req.PatientID)
	req.Diagnosis = strings.TrimSpace(req.Diagnosis)
	req.ChiefComplaint = strings.TrimSpace(req.ChiefComplaint)
	req.Gender = strings.TrimSpace(req.Gender)
	req.Allergies = strings.TrimSpace(req.Allergies)

	if req.K == 0 {
		req.K = defaults.TopK
		if req.K == 0 {
			req.K = domain.DefaultTopK
		}
	}
	if req.FailThreshold == 0 {
		req.FailThreshold = defaults.FailThreshold
		if req.FailThreshold == 0 {
			req.FailThreshold = domain.DefaultFailThreshold
		}
	}
	return req
}

// ValidateRequest checks a resolved request.
func ValidateRequest(req domain.RecommendationRequest) error {
	if req.PatientID == "" {
		return domain.NewValidationError("patient_id", "is required", req.PatientID)
	}
	if req.Diagnosis == "" {
		return domain.NewValidationError("diagnosis", "is required", req.Diagnosis)
	}
	if math.IsNaN(req.AgeMonths) || math.IsInf(req.AgeMonths, 0) || req.AgeMonths < 0 {
		return domain.NewValidationError("age_months", "must be a non-negative number", req.AgeMonths)
	}
	if math.IsNaN(req.WeightKG) || math.IsInf(req.WeightKG, 0) || req.WeightKG < 0 {
		return domain.NewValidationError("weight_kg", "must be a non-negative number", req.WeightKG)
	}
	if req.K < 1 {
		return domain.NewValidationError("k", "must be at least 1", req.K)
	}
	if req.FailThreshold < 1 {
		return domain.NewValidationError("fail_threshold", "must be at least 1", req.FailThreshold)
	}
	return nil
}
