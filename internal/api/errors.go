package api

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/drug-reco-engine/internal/domain"
	"github.com/drug-reco-engine/internal/feedback"
	"github.com/drug-reco-engine/internal/middleware"
)

var statusByCode = map[string]int{
	domain.ErrInvalidInput:        http.StatusBadRequest,
	domain.ErrValidation:          http.StatusBadRequest,
	domain.ErrNotFoundCode:        http.StatusNotFound,
	domain.ErrRateLimit:           http.StatusTooManyRequests,
	domain.ErrSnapshotError:       http.StatusServiceUnavailable,
	domain.ErrMissingCapabilities: http.StatusServiceUnavailable,
	domain.ErrClassifierError:     http.StatusBadGateway,
	domain.ErrDatabaseError:       http.StatusInternalServerError,
	domain.ErrInternalServer:      http.StatusInternalServerError,
}

// respondError writes err as an APIError. Internal failures are logged and
// their details withheld from the client.
func (s *Server) respondError(c *gin.Context, err error) {
	code := domain.ErrorCode(err)
	if errors.Is(err, feedback.ErrInvalidFeedback) {
		code = domain.ErrValidation
	}
	status, ok := statusByCode[code]
	if !ok {
		status = http.StatusInternalServerError
	}

	details := err.Error()
	if status >= http.StatusInternalServerError {
		s.logger.WithError(err).WithField("correlation_id", c.GetString(middleware.CorrelationKey)).
			Error("Request failed")
		if code == domain.ErrInternalServer {
			details = ""
		}
	}

	c.AbortWithStatusJSON(status, domain.NewAPIError(code, messageFor(code), details, c.GetString(middleware.CorrelationKey)))
}

func (s *Server) respondInvalid(c *gin.Context, details string) {
	c.AbortWithStatusJSON(http.StatusBadRequest, domain.NewAPIError(
		domain.ErrInvalidInput, messageFor(domain.ErrInvalidInput), details, c.GetString(middleware.CorrelationKey)))
}

func messageFor(code string) string {
	switch code {
	case domain.ErrInvalidInput:
		return "Malformed request"
	case domain.ErrValidation:
		return "Request validation failed"
	case domain.ErrNotFoundCode:
		return "Resource not found"
	case domain.ErrSnapshotError:
		return "Historical data is not loaded yet"
	case domain.ErrMissingCapabilities:
		return "Engine is not fully configured"
	case domain.ErrClassifierError:
		return "Drug classifier failed"
	case domain.ErrDatabaseError:
		return "Database error"
	default:
		return "Internal server error"
	}
}
