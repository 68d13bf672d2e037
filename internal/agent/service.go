package agent

import (
	"context"
	"log/slog"
	"time"

	"github.com/google/uuid"

	"github.com/ashureev/vocabot/internal/metrics"
)

// Service decorates a Generator with request ids, timing logs and metrics.
type Service struct {
	generator Generator
	metrics   *metrics.Metrics
	logger    *slog.Logger
}

// NewService wraps generator. m may be nil.
func NewService(generator Generator, m *metrics.Metrics, logger *slog.Logger) *Service {
	if logger == nil {
		logger = slog.Default()
	}
	return &Service{
		generator: generator,
		metrics:   m,
		logger:    logger,
	}
}

// Complete forwards req to the wrapped generator.
func (s *Service) Complete(ctx context.Context, req CompletionRequest) (string, error) {
	if req.RequestID == "" {
		req.RequestID = uuid.NewString()
	}

	start := time.Now()
	content, err := s.generator.Complete(ctx, req)
	elapsed := time.Since(start)
	s.metrics.ObserveGenerator(elapsed.Seconds())

	if err != nil {
		s.logger.Warn("Generative API request failed",
			"request_id", req.RequestID,
			"temperature", req.Temperature,
			"duration", elapsed,
			"error", err)
		return "", err
	}

	s.logger.Debug("Generative API request completed",
		"request_id", req.RequestID,
		"temperature", req.Temperature,
		"duration", elapsed,
		"chars", len(content))
	return content, nil
}
