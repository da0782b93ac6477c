// Package domain contains the core clinical entities used by the drug
// recommendation engine: visit and drug-administration records, the derived
// statistical tables computed from them, and the recommendation result shape.
//
// All derived tables are recomputed from an immutable snapshot of historical
// records. Nothing in this package mutates shared state.
package domain

import (
	"errors"
	"strings"
)

// UnknownCategory is the sentinel assigned to records with a missing
// diagnosis or drug name at ingestion.
const UnknownCategory = "Unknown"

// NoRecoverySentinel marks an average recovery time with no observed data.
// It is treated as worst-case slow by the scoring formula.
const NoRecoverySentinel = 999.0

// OutcomeClass is the recorded result of a visit's treatment.
type OutcomeClass string

const (
	OutcomeCured       OutcomeClass = "Cured"
	OutcomeImproved    OutcomeClass = "Improved"
	OutcomeNoChange    OutcomeClass = "No Change"
	OutcomeWorsened    OutcomeClass = "Worsened"
	OutcomeSideEffects OutcomeClass = "Side Effects"
)

// VisitType distinguishes new episodes from follow-up visits.
type VisitType string

const (
	VisitNewCase  VisitType = "New Case"
	VisitFollowUp VisitType = "Follow-up"
)

var (
	ErrNotFound            = errors.New("not found")
	ErrMissingCapability   = errors.New("missing capability")
	ErrSnapshotUnavailable = errors.New("no data snapshot has been published")
	ErrInvalidOutcomeClass = errors.New("invalid outcome class")
)

// IsValid reports whether the outcome is one of the recorded classes.
func (o OutcomeClass) IsValid() bool {
	switch o {
	case OutcomeCured, OutcomeImproved, OutcomeNoChange, OutcomeWorsened, OutcomeSideEffects:
		return true
	default:
		return false
	}
}

// IsSuccess reports whether the outcome counts as a treatment success.
func (o OutcomeClass) IsSuccess() bool {
	return o == OutcomeCured
}

// IsFailure reports whether the outcome counts as a treatment failure.
// Improved is neither a success nor a failure.
func (o OutcomeClass) IsFailure() bool {
	switch o {
	case OutcomeNoChange, OutcomeWorsened, OutcomeSideEffects:
		return true
	default:
		return false
	}
}

func (o OutcomeClass) String() string {
	return string(o)
}

// IsValid reports whether the visit type is known.
func (v VisitType) IsValid() bool {
	return v == VisitNewCase || v == VisitFollowUp
}

func (v VisitType) String() string {
	return string(v)
}

// ParseOutcomeClass matches a stored outcome label case-insensitively.
func ParseOutcomeClass(s string) (OutcomeClass, error) {
	s = strings.TrimSpace(s)
	for _, o := range []OutcomeClass{OutcomeCured, OutcomeImproved, OutcomeNoChange, OutcomeWorsened, OutcomeSideEffects} {
		if strings.EqualFold(s, string(o)) {
			return o, nil
		}
	}
	return "", ErrInvalidOutcomeClass
}

// DoseFlag annotates a candidate with whether historical dosing exists.
type DoseFlag string

const (
	DoseHistoryAvailable DoseFlag = "HistDoseAvailable"
	DoseHistoryMissing   DoseFlag = "NoHistDose"
)
