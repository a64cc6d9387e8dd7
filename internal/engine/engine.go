// Package engine invokes the external QuickSand analysis engine on an
// in-memory artifact and returns its raw, engine-defined result.
package engine

import (
	"context"
	"errors"
	"fmt"
	"time"

	"go.uber.org/zap"
	"golang.org/x/sync/semaphore"
)

// ErrEmptyArtifact is returned when Scan is handed a zero-length buffer.
var ErrEmptyArtifact = errors.New("artifact is empty")

// ErrAnalysisFailure matches every *AnalysisError via errors.Is.
var ErrAnalysisFailure = errors.New("analysis failure")

// AnalysisError reports that the engine failed while analysing an artifact.
// Msg is the engine's own message.
type AnalysisError struct {
	Msg string
	Err error
}

func (e *AnalysisError) Error() string { return e.Msg }

func (e *AnalysisError) Unwrap() error { return e.Err }

// Is reports ErrAnalysisFailure so callers need not know the concrete type.
func (e *AnalysisError) Is(target error) bool { return target == ErrAnalysisFailure }

// Engine is the black-box analysis engine. Analyze must accept the artifact
// from memory and return the engine's result object, which is usually a
// map[string]any but may be any value.
type Engine interface {
	Analyze(ctx context.Context, artifact []byte) (any, error)
}

// ScannerConfig tunes a Scanner. Zero values disable the corresponding limit.
type ScannerConfig struct {
	// Timeout bounds a single engine invocation.
	Timeout time.Duration

	// MaxConcurrent bounds how many engine invocations may run at once.
	MaxConcurrent int64
}

// Scanner is the scan adapter: it runs an Engine and translates every engine
// fault into an *AnalysisError.
type Scanner struct {
	engine  Engine
	cfg     ScannerConfig
	sem     *semaphore.Weighted // nil = unbounded
	logger  *zap.Logger
	metrics MetricsRecordFunc
}

// MetricsRecordFunc is an optional callback invoked after every engine run
// with its outcome ("success", "failure" or "timeout") and duration.
type MetricsRecordFunc func(outcome string, d time.Duration)

// NewScanner creates a Scanner around eng.
func NewScanner(eng Engine, cfg ScannerConfig, logger *zap.Logger) *Scanner {
	s := &Scanner{engine: eng, cfg: cfg, logger: logger}
	if cfg.MaxConcurrent > 0 {
		s.sem = semaphore.NewWeighted(cfg.MaxConcurrent)
	}
	return s
}

// SetMetrics configures the metrics callback.
func (s *Scanner) SetMetrics(fn MetricsRecordFunc) {
	s.metrics = fn
}

// Scan analyses artifact and returns the engine's raw result. A nil result is
// replaced by an empty mapping. Engine errors, panics and timeouts surface as
// *AnalysisError; no retry is attempted.
func (s *Scanner) Scan(ctx context.Context, artifact []byte) (any, error) {
	if len(artifact) == 0 {
		return nil, ErrEmptyArtifact
	}

	if s.sem != nil {
		if err := s.sem.Acquire(ctx, 1); err != nil {
			return nil, &AnalysisError{Msg: fmt.Sprintf("waiting for engine slot: %v", err), Err: err}
		}
		defer s.sem.Release(1)
	}

	if s.cfg.Timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, s.cfg.Timeout)
		defer cancel()
	}

	start := time.Now()
	raw, err := s.invoke(ctx, artifact)
	elapsed := time.Since(start)

	if err != nil {
		outcome := "failure"
		if errors.Is(err, context.DeadlineExceeded) {
			outcome = "timeout"
		}
		s.record(outcome, elapsed)
		s.logger.Warn("engine analysis failed",
			zap.Int("artifact_bytes", len(artifact)),
			zap.Duration("elapsed", elapsed),
			zap.Error(err),
		)
		return nil, &AnalysisError{Msg: err.Error(), Err: err}
	}

	s.record("success", elapsed)
	if raw == nil {
		raw = map[string]any{}
	}
	return raw, nil
}

// invoke calls the engine, converting a panic into an error.
func (s *Scanner) invoke(ctx context.Context, artifact []byte) (raw any, err error) {
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("engine panic: %v", r)
		}
	}()
	return s.engine.Analyze(ctx, artifact)
}

func (s *Scanner) record(outcome string, d time.Duration) {
	if s.metrics != nil {
		s.metrics(outcome, d)
	}
}

// ReadinessChecker is implemented by engines that can report whether they
// are able to analyse artifacts right now.
type ReadinessChecker interface {
	Ready(ctx context.Context) error
}

// Ready probes the wrapped engine. Engines without a probe are assumed ready.
func (s *Scanner) Ready(ctx context.Context) error {
	rc, ok := s.engine.(ReadinessChecker)
	if !ok {
		return nil
	}
	return rc.Ready(ctx)
}
