package mcp

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/modelcontextprotocol/go-sdk/mcp"
	"github.com/sirupsen/logrus"

	"github.com/drug-reco-engine/internal/domain"
	"github.com/drug-reco-engine/internal/feedback"
)

// Tool names.
const (
	ToolRecommendDrugs     = "recommend_drugs"
	ToolDiagnosisDrugStats = "diagnosis_drug_stats"
	ToolPatientHistory     = "patient_history"
	ToolDoseReference      = "dose_reference"
	ToolSubmitFeedback     = "submit_feedback"
)

// RecommendDrugsParams defines parameters for the recommend_drugs tool
type RecommendDrugsParams struct {
	PatientID      string  `json:"patient_id" jsonschema:"patient identifier used for history lookups"`
	Diagnosis      string  `json:"diagnosis" jsonschema:"working diagnosis"`
	AgeMonths      float64 `json:"age_months" jsonschema:"patient age in months"`
	WeightKG       float64 `json:"weight_kg" jsonschema:"patient weight in kilograms"`
	ChiefComplaint string  `json:"chief_complaint,omitempty" jsonschema:"presenting complaint"`
	Gender         string  `json:"gender,omitempty"`
	Allergies      string  `json:"allergies,omitempty" jsonschema:"free-text allergies matched against drug names"`
	K              int     `json:"k,omitempty" jsonschema:"number of drugs to return"`
	FailThreshold  int     `json:"fail_threshold,omitempty" jsonschema:"prior failures that exclude a drug"`
}

// DiagnosisDrugStatsParams defines parameters for the diagnosis_drug_stats tool
type DiagnosisDrugStatsParams struct {
	Diagnosis string `json:"diagnosis,omitempty" jsonschema:"limit rows to one diagnosis"`
}

// PatientHistoryParams defines parameters for the patient_history tool
type PatientHistoryParams struct {
	PatientID string `json:"patient_id"`
}

// DoseReferenceParams defines parameters for the dose_reference tool
type DoseReferenceParams struct {
	DrugName string `json:"drug_name,omitempty" jsonschema:"limit rows to one drug"`
}

// SubmitFeedbackParams defines parameters for the submit_feedback tool
type SubmitFeedbackParams struct {
	RecommendationID string `json:"recommendation_id"`
	PatientID        string `json:"patient_id"`
	Diagnosis        string `json:"diagnosis,omitempty"`
	SuggestedDrug    string `json:"suggested_drug"`
	ChosenDrug       string `json:"chosen_drug,omitempty"`
	Accepted         bool   `json:"accepted,omitempty"`
	SnapshotID       string `json:"snapshot_id,omitempty"`
	Notes            string `json:"notes,omitempty"`
}

func (s *Server) registerTools() {
	mcp.AddTool(s.mcpServer, &mcp.Tool{
		Name:        ToolRecommendDrugs,
		Description: "Rank candidate drugs for a patient by fusing classifier probabilities, population cure rates and the patient's own treatment history. Allergic and repeatedly failed drugs are excluded.",
	}, s.handleRecommendDrugs)

	mcp.AddTool(s.mcpServer, &mcp.Tool{
		Name:        ToolDiagnosisDrugStats,
		Description: "Population cure rate and average recovery per diagnosis and drug.",
	}, s.handleDiagnosisDrugStats)

	mcp.AddTool(s.mcpServer, &mcp.Tool{
		Name:        ToolPatientHistory,
		Description: "Drugs that cured or failed a patient, with the recurrence timeline of new episodes.",
	}, s.handlePatientHistory)

	mcp.AddTool(s.mcpServer, &mcp.Tool{
		Name:        ToolDoseReference,
		Description: "Historical dose ranges per drug and unit, including dose per kilogram.",
	}, s.handleDoseReference)

	count := 4
	if s.feedback != nil {
		mcp.AddTool(s.mcpServer, &mcp.Tool{
			Name:        ToolSubmitFeedback,
			Description: "Record whether a recommended drug was prescribed, or which drug was chosen instead.",
		}, s.handleSubmitFeedback)
		count++
	}

	s.logger.WithField("tool_count", count).Info("Registered MCP tools")
}

func (s *Server) handleRecommendDrugs(ctx context.Context, _ *mcp.CallToolRequest, in RecommendDrugsParams) (*mcp.CallToolResult, any, error) {
	start := time.Now()
	rec, err := s.engine.Recommend(ctx, domain.RecommendationRequest{
		PatientID:      in.PatientID,
		Diagnosis:      in.Diagnosis,
		AgeMonths:      in.AgeMonths,
		WeightKG:       in.WeightKG,
		ChiefComplaint: in.ChiefComplaint,
		Gender:         in.Gender,
		Allergies:      in.Allergies,
		K:              in.K,
		FailThreshold:  in.FailThreshold,
	})
	if err != nil {
		return s.toolError(ToolRecommendDrugs, err), nil, nil
	}

	s.logger.WithFields(logrus.Fields{
		"tool":              ToolRecommendDrugs,
		"recommendation_id": rec.ID,
		"final":             len(rec.Final),
		"excluded":          len(rec.Excluded),
		"duration":          time.Since(start).String(),
	}).Info("Tool completed")
	return jsonResult(rec)
}

func (s *Server) handleDiagnosisDrugStats(ctx context.Context, _ *mcp.CallToolRequest, in DiagnosisDrugStatsParams) (*mcp.CallToolResult, any, error) {
	stats, err := s.engine.DiagnosisDrugStats(ctx, in.Diagnosis)
	if err != nil {
		return s.toolError(ToolDiagnosisDrugStats, err), nil, nil
	}
	return jsonResult(map[string]any{"stats": stats, "count": len(stats)})
}

func (s *Server) handlePatientHistory(ctx context.Context, _ *mcp.CallToolRequest, in PatientHistoryParams) (*mcp.CallToolResult, any, error) {
	history, err := s.engine.PatientHistory(ctx, in.PatientID)
	if err != nil {
		return s.toolError(ToolPatientHistory, err), nil, nil
	}
	return jsonResult(history)
}

func (s *Server) handleDoseReference(ctx context.Context, _ *mcp.CallToolRequest, in DoseReferenceParams) (*mcp.CallToolResult, any, error) {
	doses, err := s.engine.DoseReference(ctx)
	if err != nil {
		return s.toolError(ToolDoseReference, err), nil, nil
	}
	if in.DrugName != "" {
		filtered := make([]domain.DoseStat, 0, len(doses))
		for _, d := range doses {
			if d.DrugName == in.DrugName {
				filtered = append(filtered, d)
			}
		}
		doses = filtered
	}
	return jsonResult(map[string]any{"doses": doses, "count": len(doses)})
}

func (s *Server) handleSubmitFeedback(ctx context.Context, _ *mcp.CallToolRequest, in SubmitFeedbackParams) (*mcp.CallToolResult, any, error) {
	fb := &feedback.Feedback{
		RecommendationID: in.RecommendationID,
		PatientID:        in.PatientID,
		Diagnosis:        in.Diagnosis,
		SuggestedDrug:    in.SuggestedDrug,
		ChosenDrug:       in.ChosenDrug,
		Accepted:         in.Accepted,
		SnapshotID:       in.SnapshotID,
		Notes:            in.Notes,
	}
	if err := s.feedback.Save(ctx, fb); err != nil {
		return s.toolError(ToolSubmitFeedback, err), nil, nil
	}
	return jsonResult(fb)
}

// toolError reports a failure to the client as a tool result so the model
// can read the reason.
func (s *Server) toolError(tool string, err error) *mcp.CallToolResult {
	code := domain.ErrorCode(err)
	if errors.Is(err, feedback.ErrInvalidFeedback) {
		code = domain.ErrValidation
	}
	s.logger.WithError(err).WithFields(logrus.Fields{
		"tool": tool,
		"code": code,
	}).Warn("Tool failed")
	return &mcp.CallToolResult{
		IsError: true,
		Content: []mcp.Content{
			&mcp.TextContent{Text: fmt.Sprintf("%s: %v", code, err)},
		},
	}
}

func jsonResult(v any) (*mcp.CallToolResult, any, error) {
	data, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		return nil, nil, fmt.Errorf("encoding result: %w", err)
	}
	return &mcp.CallToolResult{
		Content: []mcp.Content{&mcp.TextContent{Text: string(data)}},
	}, nil, nil
}
