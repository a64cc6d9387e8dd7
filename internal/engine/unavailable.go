package engine

import (
	"context"
	"errors"

	"go.uber.org/zap"
)

// UnavailableMessage is reported in place of a result when no engine is installed.
const UnavailableMessage = "quicksand engine is not installed on the server"

// UnavailableEngine stands in when no QuickSand engine is configured. It
// answers every artifact with a single non-list "error" flow, which
// normalizes to a zero score.
type UnavailableEngine struct {
	logger *zap.Logger
}

// NewUnavailableEngine creates an UnavailableEngine backed by the given logger.
func NewUnavailableEngine(logger *zap.Logger) *UnavailableEngine {
	return &UnavailableEngine{logger: logger}
}

// Analyze logs the skipped analysis and returns the placeholder result.
func (u *UnavailableEngine) Analyze(_ context.Context, artifact []byte) (any, error) {
	u.logger.Warn("analysis skipped (no engine configured)", zap.Int("artifact_bytes", len(artifact)))
	return map[string]any{"error": UnavailableMessage}, nil
}

// Ready always fails: verdicts from this engine carry no analysis.
func (u *UnavailableEngine) Ready(_ context.Context) error {
	return errors.New(UnavailableMessage)
}
