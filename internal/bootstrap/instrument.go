package bootstrap

import (
	"context"
	"time"

	"github.com/velworks/strpdf/internal/core/domain"
	"github.com/velworks/strpdf/internal/core/ports"
	"github.com/velworks/strpdf/internal/observability/metrics"
)

// Metrics wrappers live here so neither the usecases nor the progress
// streamer depend on the metrics registry.

type instrumentedExtractor struct {
	inner   ports.FormExtractor
	metrics *metrics.PipelineMetrics
}

func instrumentExtractor(inner ports.FormExtractor, m *metrics.PipelineMetrics) ports.FormExtractor {
	return &instrumentedExtractor{inner: inner, metrics: m}
}

func (e *instrumentedExtractor) Extract(ctx context.Context, content []byte) (*domain.Record, error) {
	start := time.Now()
	rec, err := e.inner.Extract(ctx, content)
	e.metrics.ObserveExtraction(serviceName, time.Since(start), err)
	return rec, err
}

type instrumentedProcessor struct {
	inner   ports.SessionProcessor
	metrics *metrics.PipelineMetrics
}

func instrumentProcessor(inner ports.SessionProcessor, m *metrics.PipelineMetrics) ports.SessionProcessor {
	return &instrumentedProcessor{inner: inner, metrics: m}
}

func (p *instrumentedProcessor) ProcessSession(ctx context.Context, sessionID string) error {
	start := time.Now()
	p.metrics.StartSession()
	err := p.inner.ProcessSession(ctx, sessionID)
	p.metrics.FinishSession(serviceName, time.Since(start), err)
	return err
}

type instrumentedStreamer struct {
	inner   ports.ProgressStreamer
	metrics *metrics.PipelineMetrics
}

func instrumentStreamer(inner ports.ProgressStreamer, m *metrics.PipelineMetrics) ports.ProgressStreamer {
	return &instrumentedStreamer{inner: inner, metrics: m}
}

func (s *instrumentedStreamer) Stream(ctx context.Context, sessionID string, modes []domain.OutputMode, conn ports.SubscriberConn) error {
	s.metrics.SubscriberAttached()
	defer s.metrics.SubscriberDetached()
	return s.inner.Stream(ctx, sessionID, modes, conn)
}
