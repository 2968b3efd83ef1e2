package ingestion

import (
	"github.com/gin-gonic/gin"
)

const defaultMaxBodyBytes = 64 * 1024

type Service struct {
	gate         *Gate
	maxBodyBytes int64
}

func NewService(gate *Gate, maxBodyBytes int64) *Service {
	if gate == nil {
		panic("ingestion: gate must not be nil")
	}
	if maxBodyBytes <= 0 {
		maxBodyBytes = defaultMaxBodyBytes
	}
	return &Service{
		gate:         gate,
		maxBodyBytes: maxBodyBytes,
	}
}

// RegisterRoutes registers the ingestion service routes.
func (s *Service) RegisterRoutes(r gin.IRouter) {
	r.POST("/v1/readings", s.IngestHandler)
}
