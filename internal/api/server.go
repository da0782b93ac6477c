// Package api exposes the recommendation engine over HTTP.
package api

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"slices"
	"time"

	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"
	"github.com/sirupsen/logrus"

	"github.com/drug-reco-engine/internal/domain"
	"github.com/drug-reco-engine/internal/feedback"
	"github.com/drug-reco-engine/internal/middleware"
	"github.com/drug-reco-engine/internal/snapshot"
)

// Version is reported by the health endpoint.
const Version = "1.0.0"

// Recommender is the engine surface the HTTP handlers call.
type Recommender interface {
	Recommend(ctx context.Context, req domain.RecommendationRequest) (*domain.Recommendation, error)
	PatientHistory(ctx context.Context, patientID string) (*domain.PatientHistory, error)
	DiagnosisDrugStats(ctx context.Context, diagnosis string) ([]domain.DiagnosisDrugStat, error)
	DoseReference(ctx context.Context) ([]domain.DoseStat, error)
	ComplaintCureStats(ctx context.Context) ([]domain.ComplaintCureStat, error)
	DrugEffectiveness(ctx context.Context) ([]domain.DrugEffectiveness, error)
	DoseOutliers(ctx context.Context, z float64) ([]domain.DoseOutlier, error)
	DataQuality(ctx context.Context) (domain.DataQualityReport, error)
	RebuildSnapshot(ctx context.Context) (snapshot.Info, error)
	SnapshotInfo() (snapshot.Info, error)
}

// Server represents the HTTP server
type Server struct {
	config   domain.ServerConfig
	reco     Recommender
	feedback feedback.Store
	logger   *logrus.Logger
	router   *gin.Engine
	server   *http.Server
}

// NewServer creates a new HTTP server instance. A nil feedback store
// disables the feedback routes.
func NewServer(cfg domain.ServerConfig, reco Recommender, fb feedback.Store, logger *logrus.Logger) *Server {
	router := gin.New()

	router.Use(middleware.CorrelationID())
	router.Use(middleware.Recovery(logger))
	router.Use(middleware.AuditLogger(logger))
	router.Use(middleware.SecurityHeaders())
	router.Use(cors.New(corsConfig(cfg.AllowedOrigins)))
	router.Use(middleware.RateLimit(cfg.RateLimit, cfg.RateBurst))
	router.Use(middleware.RequestTimeout(cfg.WriteTimeout))

	server := &Server{
		config:   cfg,
		reco:     reco,
		feedback: fb,
		logger:   logger,
		router:   router,
	}

	server.setupRoutes()

	return server
}

func corsConfig(origins []string) cors.Config {
	cfg := cors.Config{
		AllowMethods:  []string{"GET", "POST", "OPTIONS"},
		AllowHeaders:  []string{"Origin", "Content-Type", "Accept", "Authorization", "X-Correlation-ID", "X-Request-ID"},
		ExposeHeaders: []string{"Content-Length", "X-Correlation-ID"},
		MaxAge:        12 * time.Hour,
	}
	if len(origins) == 0 || slices.Contains(origins, "*") {
		cfg.AllowAllOrigins = true
	} else {
		cfg.AllowOrigins = origins
	}
	return cfg
}

// Handler returns the routed handler, for tests and embedding.
func (s *Server) Handler() http.Handler {
	return s.router
}

// Start serves until ctx is cancelled, then shuts down gracefully.
func (s *Server) Start(ctx context.Context) error {
	addr := fmt.Sprintf("%s:%d", s.config.Host, s.config.Port)

	s.server = &http.Server{
		Addr:         addr,
		Handler:      s.router,
		ReadTimeout:  s.config.ReadTimeout,
		WriteTimeout: s.config.WriteTimeout,
		IdleTimeout:  s.config.IdleTimeout,
	}

	errCh := make(chan error, 1)
	go func() {
		s.logger.WithField("addr", addr).Info("HTTP server listening")
		if err := s.server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
		close(errCh)
	}()

	select {
	case err := <-errCh:
		if err != nil {
			return fmt.Errorf("starting server: %w", err)
		}
		return nil
	case <-ctx.Done():
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	return s.server.Shutdown(shutdownCtx)
}

// setupRoutes configures the API routes
func (s *Server) setupRoutes() {
	s.router.GET("/health", s.handleHealth)

	v1 := s.router.Group("/api/v1")
	{
		v1.POST("/recommendations", s.handleRecommend)
		v1.GET("/patients/:id/history", s.handlePatientHistory)

		stats := v1.Group("/stats")
		stats.GET("/diagnosis-drug", s.handleDiagnosisDrugStats)
		stats.GET("/doses", s.handleDoseReference)
		stats.GET("/complaints", s.handleComplaintCureStats)
		stats.GET("/effectiveness", s.handleDrugEffectiveness)
		stats.GET("/dose-outliers", s.handleDoseOutliers)
		stats.GET("/quality", s.handleDataQuality)

		v1.GET("/snapshot", s.handleSnapshotInfo)
		v1.POST("/snapshot/rebuild", s.handleSnapshotRebuild)

		if s.feedback != nil {
			v1.POST("/feedback", s.handleSubmitFeedback)
			v1.GET("/feedback", s.handleListFeedback)
			v1.GET("/feedback/export", s.handleExportFeedback)
		}
	}
}
