// Package feedback stores clinician responses to drug recommendations: which
// suggested drug was accepted, or what was prescribed instead.
package feedback

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"strings"
	"time"
)

// ErrInvalidFeedback is returned when a required field is missing.
var ErrInvalidFeedback = errors.New("invalid feedback")

// Feedback records the outcome of one recommendation.
type Feedback struct {
	ID               int64     `json:"id,omitempty"`
	RecommendationID string    `json:"recommendation_id"`
	PatientID        string    `json:"patient_id"`
	Diagnosis        string    `json:"diagnosis"`
	SuggestedDrug    string    `json:"suggested_drug"`        // Top-ranked drug shown
	ChosenDrug       string    `json:"chosen_drug,omitempty"` // What was prescribed
	Accepted         bool      `json:"accepted"`
	SnapshotID       string    `json:"snapshot_id,omitempty"`
	Notes            string    `json:"notes,omitempty"`
	CreatedAt        time.Time `json:"created_at"`
	UpdatedAt        time.Time `json:"updated_at"`
}

// Normalize trims fields and fills ChosenDrug for accepted suggestions.
func (f *Feedback) Normalize() {
	f.RecommendationID = strings.TrimSpace(f.RecommendationID)
	f.PatientID = strings.TrimSpace(f.PatientID)
	f.Diagnosis = strings.TrimSpace(f.Diagnosis)
	f.SuggestedDrug = strings.TrimSpace(f.SuggestedDrug)
	f.ChosenDrug = strings.TrimSpace(f.ChosenDrug)
	if f.Accepted && f.ChosenDrug == "" {
		f.ChosenDrug = f.SuggestedDrug
	}
}

// Validate checks required fields.
func (f *Feedback) Validate() error {
	switch {
	case f.RecommendationID == "":
		return errors.Join(ErrInvalidFeedback, errors.New("recommendation_id is required"))
	case f.PatientID == "":
		return errors.Join(ErrInvalidFeedback, errors.New("patient_id is required"))
	case f.SuggestedDrug == "":
		return errors.Join(ErrInvalidFeedback, errors.New("suggested_drug is required"))
	}
	return nil
}

// Store defines the interface for feedback storage operations.
type Store interface {
	// Save stores or updates feedback. Feedback for the same recommendation
	// is updated in place.
	Save(ctx context.Context, feedback *Feedback) error

	// Get retrieves feedback for a recommendation, or nil if none exists.
	Get(ctx context.Context, recommendationID string) (*Feedback, error)

	// List returns feedback entries, newest first.
	List(ctx context.Context, limit, offset int) ([]*Feedback, error)

	// ListByPatient returns one patient's feedback, newest first.
	ListByPatient(ctx context.Context, patientID string, limit, offset int) ([]*Feedback, error)

	// Count returns the total number of feedback entries.
	Count(ctx context.Context) (int64, error)

	// Delete removes a feedback entry by ID.
	Delete(ctx context.Context, id int64) error

	// ExportJSON exports all feedback to a JSON writer.
	ExportJSON(ctx context.Context, writer io.Writer) error

	// ImportJSON imports feedback from a JSON reader. Entries whose
	// recommendation already has feedback are skipped.
	ImportJSON(ctx context.Context, reader io.Reader) (imported int, skipped int, err error)

	// Close closes the store and releases resources.
	Close() error
}

// FeedbackExport represents the JSON export format.
type FeedbackExport struct {
	Version    string      `json:"version"`
	ExportedAt time.Time   `json:"exported_at"`
	Count      int         `json:"count"`
	Feedback   []*Feedback `json:"feedback"`
}

// ExportVersion is written into every export document.
const ExportVersion = "1.0"

// maxExportLimit is the maximum number of entries to export at once.
const maxExportLimit = 1000000

const feedbackColumns = `id, recommendation_id, patient_id, diagnosis, suggested_drug,
	COALESCE(chosen_drug, ''), accepted, COALESCE(snapshot_id, ''), COALESCE(notes, ''),
	created_at, updated_at`

// scanner is an interface for sql.Row and sql.Rows
type scanner interface {
	Scan(dest ...interface{}) error
}

func scanFeedback(s scanner) (*Feedback, error) {
	fb := &Feedback{}
	err := s.Scan(
		&fb.ID, &fb.RecommendationID, &fb.PatientID, &fb.Diagnosis, &fb.SuggestedDrug,
		&fb.ChosenDrug, &fb.Accepted, &fb.SnapshotID, &fb.Notes, &fb.CreatedAt, &fb.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}
	return fb, nil
}

// importFeedback is the shared ImportJSON loop.
func importFeedback(ctx context.Context, s Store, reader io.Reader) (imported int, skipped int, err error) {
	export, err := decodeExport(reader)
	if err != nil {
		return 0, 0, err
	}

	for _, fb := range export.Feedback {
		existing, err := s.Get(ctx, fb.RecommendationID)
		if err != nil {
			return imported, skipped, fmt.Errorf("failed to check existing: %w", err)
		}
		if existing != nil {
			skipped++
			continue
		}

		fb.ID = 0
		if err := s.Save(ctx, fb); err != nil {
			return imported, skipped, fmt.Errorf("failed to save: %w", err)
		}
		imported++
	}
	return imported, skipped, nil
}

func exportFeedback(ctx context.Context, s Store, writer io.Writer) error {
	all, err := s.List(ctx, maxExportLimit, 0)
	if err != nil {
		return fmt.Errorf("failed to list feedback: %w", err)
	}
	if all == nil {
		all = []*Feedback{}
	}

	export := &FeedbackExport{
		Version:    ExportVersion,
		ExportedAt: time.Now().UTC(),
		Count:      len(all),
		Feedback:   all,
	}

	encoder := json.NewEncoder(writer)
	encoder.SetIndent("", "  ")
	return encoder.Encode(export)
}

func decodeExport(reader io.Reader) (*FeedbackExport, error) {
	var export FeedbackExport
	if err := json.NewDecoder(reader).Decode(&export); err != nil {
		return nil, fmt.Errorf("failed to decode JSON: %w", err)
	}
	return &export, nil
}
