package engine

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/jaherreraf/IngSoftwareIIcybersecurity/internal/quicksand"
	"go.uber.org/zap"
)

// maxErrorBody caps how much of a failed sidecar response is quoted in errors.
const maxErrorBody = 4 << 10

// HTTPEngine sends the artifact to a QuickSand sidecar service and decodes
// the JSON result it answers with.
type HTTPEngine struct {
	url        string
	httpClient *http.Client
	logger     *zap.Logger
}

// NewHTTPEngine creates an HTTPEngine posting to url. A zero timeout leaves
// request lifetime to the caller's context.
func NewHTTPEngine(url string, timeout time.Duration, logger *zap.Logger) *HTTPEngine {
	return &HTTPEngine{
		url:        url,
		httpClient: &http.Client{Timeout: timeout},
		logger:     logger,
	}
}

// Analyze implements Engine.
func (e *HTTPEngine) Analyze(ctx context.Context, artifact []byte) (any, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, e.url, bytes.NewReader(artifact))
	if err != nil {
		return nil, fmt.Errorf("build sidecar request: %w", err)
	}
	req.Header.Set("Content-Type", "application/octet-stream")
	req.Header.Set("Accept", "application/json")

	resp, err := e.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("quicksand sidecar unreachable: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		body, _ := io.ReadAll(io.LimitReader(resp.Body, maxErrorBody))
		e.logger.Debug("quicksand sidecar error",
			zap.Int("status", resp.StatusCode),
			zap.String("url", e.url),
		)
		return nil, fmt.Errorf("quicksand sidecar returned %d: %s", resp.StatusCode, strings.TrimSpace(string(body)))
	}

	return quicksand.Decode(resp.Body)
}

// Ready sends a HEAD request to the sidecar. Any answer below 500 counts as
// reachable, since the analysis route need not support HEAD.
func (e *HTTPEngine) Ready(ctx context.Context) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodHead, e.url, nil)
	if err != nil {
		return fmt.Errorf("build probe request: %w", err)
	}
	resp, err := e.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("quicksand sidecar unreachable: %w", err)
	}
	resp.Body.Close()
	if resp.StatusCode >= 500 {
		return fmt.Errorf("quicksand sidecar unhealthy: %d", resp.StatusCode)
	}
	return nil
}
