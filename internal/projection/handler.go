package projection

import (
	"errors"
	"log/slog"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	v1 "github.com/sensorwatch-lab/sensorwatch/internal/api/v1"
	httperr "github.com/sensorwatch-lab/sensorwatch/internal/core/errors"
	"github.com/sensorwatch-lab/sensorwatch/internal/core/storage"
	"github.com/sensorwatch-lab/sensorwatch/internal/window"
)

// RegisterRoutes registers all projection API routes on the given router.
func (s *Service) RegisterRoutes(r gin.IRouter) {
	r.GET("/v1/readings/latest", s.HandleLatest)
	r.GET("/v1/readings/window", s.HandleWindow)
	r.GET("/v1/scores/:metric", s.HandleScore)
	r.GET("/v1/liveness", s.HandleLiveness)
	r.GET("/v1/status", s.HandleStatus)
}

// HandleLatest handles GET /v1/readings/latest?limit=
func (s *Service) HandleLatest(c *gin.Context) {
	var query LatestQuery
	if err := c.ShouldBindQuery(&query); err != nil {
		writeInvalidQuery(c, err)
		return
	}

	readings, err := s.Latest(c.Request.Context(), query.Limit)
	if err != nil {
		writeQueryError(c, err)
		return
	}

	c.JSON(http.StatusOK, ReadingsResponse{
		State:    stateOf(len(readings)),
		Count:    len(readings),
		Readings: readings,
	})
}

// HandleWindow handles GET /v1/readings/window?span=
func (s *Service) HandleWindow(c *gin.Context) {
	span, ok := s.bindSpan(c)
	if !ok {
		return
	}

	w, err := s.Window(c.Request.Context(), span)
	if err != nil {
		writeQueryError(c, err)
		return
	}

	c.JSON(http.StatusOK, ReadingsResponse{
		State:    stateOf(len(w.Readings)),
		Count:    len(w.Readings),
		Span:     w.Span.String(),
		Fallback: w.Fallback,
		Readings: w.Readings,
	})
}

// HandleScore handles GET /v1/scores/:metric?span=
func (s *Service) HandleScore(c *gin.Context) {
	metric, err := v1.ParseMetric(c.Param("metric"))
	if err != nil {
		writeInvalidQuery(c, err)
		return
	}
	span, ok := s.bindSpan(c)
	if !ok {
		return
	}

	report, err := s.Score(c.Request.Context(), metric, span)
	if err != nil {
		writeQueryError(c, err)
		return
	}

	c.JSON(http.StatusOK, report)
}

// HandleLiveness handles GET /v1/liveness
func (s *Service) HandleLiveness(c *gin.Context) {
	report, err := s.Liveness(c.Request.Context(), s.nowFn())
	if err != nil {
		writeQueryError(c, err)
		return
	}

	c.JSON(http.StatusOK, report)
}

// HandleStatus handles GET /v1/status
func (s *Service) HandleStatus(c *gin.Context) {
	snap, err := s.Status(c.Request.Context())
	if err != nil {
		writeQueryError(c, err)
		return
	}

	c.JSON(http.StatusOK, snap)
}

// bindSpan parses the optional span query parameter. Zero means "use the default".
func (s *Service) bindSpan(c *gin.Context) (time.Duration, bool) {
	var query SpanQuery
	if err := c.ShouldBindQuery(&query); err != nil {
		writeInvalidQuery(c, err)
		return 0, false
	}
	if query.Span == "" {
		return 0, true
	}

	span, err := window.ParseSpan(query.Span)
	if err != nil {
		writeInvalidQuery(c, err)
		return 0, false
	}
	return span, true
}

func stateOf(n int) string {
	if n == 0 {
		return StateNoData
	}
	return StateOK
}

func writeInvalidQuery(c *gin.Context, err error) {
	c.JSON(http.StatusBadRequest, httperr.ErrorResponse{
		ErrorType: httperr.HttpInvalidQueryError,
		Message:   "Invalid query parameters",
		Details:   err.Error(),
	})
}

func writeQueryError(c *gin.Context, err error) {
	switch {
	case errors.Is(err, ErrInvalidQuery):
		writeInvalidQuery(c, err)
	case errors.Is(err, storage.ErrUnavailable):
		slog.Error("[Projection] Reading store unavailable", "path", c.FullPath(), "error", err)
		c.JSON(http.StatusServiceUnavailable, httperr.ErrorResponse{
			ErrorType: httperr.HttpStorageUnavailableError,
			Message:   "Reading store is unavailable",
		})
	default:
		slog.Error("[Projection] Query failed", "path", c.FullPath(), "error", err)
		c.JSON(http.StatusInternalServerError, httperr.ErrorResponse{
			ErrorType: httperr.HttpInternalError,
			Message:   "Failed to query readings",
			Details:   err.Error(),
		})
	}
}
