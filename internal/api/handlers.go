package api

import (
	"fmt"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/drug-reco-engine/internal/domain"
	"github.com/drug-reco-engine/internal/feedback"
)

const (
	defaultPageSize = 50
	maxPageSize     = 500
)

// handleHealth reports liveness and whether a snapshot is published.
func (s *Server) handleHealth(c *gin.Context) {
	body := gin.H{
		"status":    "healthy",
		"timestamp": time.Now().UTC(),
		"version":   Version,
	}
	info, err := s.reco.SnapshotInfo()
	if err != nil {
		body["status"] = "degraded"
		body["snapshot"] = nil
	} else {
		body["snapshot"] = info
	}
	c.JSON(http.StatusOK, body)
}

func (s *Server) handleRecommend(c *gin.Context) {
	var req domain.RecommendationRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		s.respondInvalid(c, err.Error())
		return
	}

	rec, err := s.reco.Recommend(c.Request.Context(), req)
	if err != nil {
		s.respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, rec)
}

func (s *Server) handlePatientHistory(c *gin.Context) {
	history, err := s.reco.PatientHistory(c.Request.Context(), c.Param("id"))
	if err != nil {
		s.respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, history)
}

func (s *Server) handleDiagnosisDrugStats(c *gin.Context) {
	stats, err := s.reco.DiagnosisDrugStats(c.Request.Context(), c.Query("diagnosis"))
	if err != nil {
		s.respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"stats": stats, "count": len(stats)})
}

func (s *Server) handleDoseReference(c *gin.Context) {
	doses, err := s.reco.DoseReference(c.Request.Context())
	if err != nil {
		s.respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"doses": doses, "count": len(doses)})
}

func (s *Server) handleComplaintCureStats(c *gin.Context) {
	stats, err := s.reco.ComplaintCureStats(c.Request.Context())
	if err != nil {
		s.respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"stats": stats, "count": len(stats)})
}

func (s *Server) handleDrugEffectiveness(c *gin.Context) {
	drugs, err := s.reco.DrugEffectiveness(c.Request.Context())
	if err != nil {
		s.respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"drugs": drugs, "count": len(drugs)})
}

func (s *Server) handleDoseOutliers(c *gin.Context) {
	var z float64
	if raw := c.Query("z"); raw != "" {
		parsed, err := strconv.ParseFloat(raw, 64)
		if err != nil || parsed <= 0 {
			s.respondInvalid(c, fmt.Sprintf("z must be a positive number, got %q", raw))
			return
		}
		z = parsed
	}

	outliers, err := s.reco.DoseOutliers(c.Request.Context(), z)
	if err != nil {
		s.respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"outliers": outliers, "count": len(outliers)})
}

func (s *Server) handleDataQuality(c *gin.Context) {
	report, err := s.reco.DataQuality(c.Request.Context())
	if err != nil {
		s.respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, report)
}

func (s *Server) handleSnapshotInfo(c *gin.Context) {
	info, err := s.reco.SnapshotInfo()
	if err != nil {
		s.respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, info)
}

func (s *Server) handleSnapshotRebuild(c *gin.Context) {
	info, err := s.reco.RebuildSnapshot(c.Request.Context())
	if err != nil {
		s.respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, info)
}

func (s *Server) handleSubmitFeedback(c *gin.Context) {
	var fb feedback.Feedback
	if err := c.ShouldBindJSON(&fb); err != nil {
		s.respondInvalid(c, err.Error())
		return
	}
	fb.ID = 0

	if err := s.feedback.Save(c.Request.Context(), &fb); err != nil {
		s.respondError(c, err)
		return
	}
	c.JSON(http.StatusCreated, fb)
}

func (s *Server) handleListFeedback(c *gin.Context) {
	limit, offset, ok := s.pagination(c)
	if !ok {
		return
	}

	var (
		list []*feedback.Feedback
		err  error
	)
	if patientID := strings.TrimSpace(c.Query("patient_id")); patientID != "" {
		list, err = s.feedback.ListByPatient(c.Request.Context(), patientID, limit, offset)
	} else {
		list, err = s.feedback.List(c.Request.Context(), limit, offset)
	}
	if err != nil {
		s.respondError(c, err)
		return
	}
	if list == nil {
		list = []*feedback.Feedback{}
	}

	total, err := s.feedback.Count(c.Request.Context())
	if err != nil {
		s.respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"feedback": list, "count": len(list), "total": total, "limit": limit, "offset": offset})
}

func (s *Server) handleExportFeedback(c *gin.Context) {
	c.Header("Content-Type", "application/json")
	c.Header("Content-Disposition", `attachment; filename="feedback-export.json"`)
	c.Status(http.StatusOK)
	if err := s.feedback.ExportJSON(c.Request.Context(), c.Writer); err != nil {
		s.logger.WithError(err).Error("Feedback export failed")
	}
}

func (s *Server) pagination(c *gin.Context) (limit, offset int, ok bool) {
	limit, offset = defaultPageSize, 0
	if raw := c.Query("limit"); raw != "" {
		n, err := strconv.Atoi(raw)
		if err != nil || n < 1 {
			s.respondInvalid(c, fmt.Sprintf("limit must be a positive integer, got %q", raw))
			return 0, 0, false
		}
		limit = min(n, maxPageSize)
	}
	if raw := c.Query("offset"); raw != "" {
		n, err := strconv.Atoi(raw)
		if err != nil || n < 0 {
			s.respondInvalid(c, fmt.Sprintf("offset must be a non-negative integer, got %q", raw))
			return 0, 0, false
		}
		offset = n
	}
	return limit, offset, true
}
