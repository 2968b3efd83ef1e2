package assistant

import (
	"errors"
	"log/slog"
	"net/http"

	"github.com/gin-gonic/gin"
	httperr "github.com/sensorwatch-lab/sensorwatch/internal/core/errors"
	"github.com/sensorwatch-lab/sensorwatch/internal/core/storage"
)

// AskRequest is the body of POST /v1/assistant/ask.
type AskRequest struct {
	Question string `json:"question"`
}

func (s *Service) RegisterRoutes(r gin.IRouter) {
	r.POST("/v1/assistant/ask", s.HandleAsk)
}

// HandleAsk handles POST /v1/assistant/ask.
func (s *Service) HandleAsk(c *gin.Context) {
	var req AskRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, httperr.ErrorResponse{
			ErrorType: httperr.HttpInvalidJsonError,
			Message:   "Invalid request body",
			Details:   err.Error(),
		})
		return
	}

	answer, err := s.Ask(c.Request.Context(), req.Question)
	switch {
	case err == nil:
		c.JSON(http.StatusOK, answer)
	case errors.Is(err, ErrEmptyQuestion):
		c.JSON(http.StatusBadRequest, httperr.ErrorResponse{
			ErrorType: httperr.HttpValidationError,
			Message:   err.Error(),
		})
	case errors.Is(err, storage.ErrUnavailable):
		slog.Error("[Assistant] Reading store unavailable", "error", err)
		c.JSON(http.StatusServiceUnavailable, httperr.ErrorResponse{
			ErrorType: httperr.HttpStorageUnavailableError,
			Message:   "Reading store is unavailable",
		})
	default:
		slog.Error("[Assistant] Failed to build context", "error", err)
		c.JSON(http.StatusInternalServerError, httperr.ErrorResponse{
			ErrorType: httperr.HttpInternalError,
			Message:   "Failed to answer question",
			Details:   err.Error(),
		})
	}
}
