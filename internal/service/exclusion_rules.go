package service

import (
	"fmt"
	"strings"

	"github.com/drug-reco-engine/internal/domain"
)

// ExclusionRule is a hard safety veto evaluated against every candidate,
// independent of its score.
type ExclusionRule struct {
	Code        string
	Name        string
	Description string
	Evaluate    func(c *domain.CandidateScore, q ExclusionQuery) (excluded bool, reason string)
}

// ExclusionQuery carries the request-level inputs the rules consult.
type ExclusionQuery struct {
	Allergies     string
	FailThreshold int
}

// Exclusion rule codes.
const (
	RuleAllergy         = "ALLERGY"
	RuleRepeatedFailure = "REPEATED_FAILURE"
)

// DefaultExclusionRules returns the allergy and repeated-failure rules in
// evaluation order. Reasons are appended in this order.
func DefaultExclusionRules() []ExclusionRule {
	return []ExclusionRule{
		{
			Code:        RuleAllergy,
			Name:        "Allergy",
			Description: "Allergy text appears, case-insensitively, in the drug name",
			Evaluate:    evaluateAllergy,
		},
		{
			Code:        RuleRepeatedFailure,
			Name:        "Repeated failure",
			Description: "Drug failed this patient at least fail_threshold times",
			Evaluate:    evaluateRepeatedFailure,
		},
	}
}

// evaluateAllergy is a literal substring match against the display name. It
// does not resolve active ingredients or allergen classes.
func evaluateAllergy(c *domain.CandidateScore, q ExclusionQuery) (bool, string) {
	allergy := strings.ToLower(strings.TrimSpace(q.Allergies))
	if allergy == "" {
		return false, ""
	}
	if strings.Contains(strings.ToLower(c.DrugName), allergy) {
		return true, domain.ExclusionAllergy
	}
	return false, ""
}

func evaluateRepeatedFailure(c *domain.CandidateScore, q ExclusionQuery) (bool, string) {
	if c.FailCountPatient >= q.FailThreshold {
		return true, fmt.Sprintf("Failed >= %d times", q.FailThreshold)
	}
	return false, ""
}

// applyExclusions runs every rule; a candidate excluded by one rule is
// still evaluated by the rest so all reasons are recorded.
func applyExclusions(rules []ExclusionRule, c *domain.CandidateScore, q ExclusionQuery) {
	for _, rule := range rules {
		if excluded, reason := rule.Evaluate(c, q); excluded {
			c.Exclude(reason)
		}
	}
}
