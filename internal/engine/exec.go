package engine

import (
	"bytes"
	"context"
	"fmt"
	"os"
	"os/exec"
	"strings"

	"github.com/jaherreraf/IngSoftwareIIcybersecurity/internal/quicksand"
	"go.uber.org/zap"
)

// FilePlaceholder in ExecEngine arguments is replaced by the path of a
// temporary file holding the artifact.
const FilePlaceholder = "{file}"

// ExecEngine runs the QuickSand command-line tool and decodes the JSON it
// prints on stdout. When no argument contains FilePlaceholder the artifact is
// piped to the command's stdin instead of being written to disk.
type ExecEngine struct {
	command string
	args    []string
	logger  *zap.Logger
}

// NewExecEngine creates an ExecEngine for command with the given argument template.
func NewExecEngine(command string, args []string, logger *zap.Logger) *ExecEngine {
	return &ExecEngine{command: command, args: args, logger: logger}
}

// Analyze implements Engine.
func (e *ExecEngine) Analyze(ctx context.Context, artifact []byte) (any, error) {
	path, err := exec.LookPath(e.command)
	if err != nil {
		return nil, fmt.Errorf("quicksand binary %q not found: %w", e.command, err)
	}

	args, tmpPath, err := e.expandArgs(artifact)
	if err != nil {
		return nil, err
	}
	if tmpPath != "" {
		defer os.Remove(tmpPath)
	}

	var stdout, stderr bytes.Buffer
	cmd := exec.CommandContext(ctx, path, args...)
	cmd.Stdout = &stdout
	cmd.Stderr = &stderr
	if tmpPath == "" {
		cmd.Stdin = bytes.NewReader(artifact)
	}

	e.logger.Debug("running quicksand", zap.String("command", path), zap.Strings("args", args))
	if err := cmd.Run(); err != nil {
		if ctxErr := ctx.Err(); ctxErr != nil {
			return nil, fmt.Errorf("quicksand aborted: %w", ctxErr)
		}
		msg := strings.TrimSpace(stderr.String())
		if msg == "" {
			msg = err.Error()
		}
		return nil, fmt.Errorf("quicksand failed: %s", msg)
	}

	return quicksand.Decode(&stdout)
}

// expandArgs substitutes FilePlaceholder, writing the artifact to a temp file
// only when the placeholder is used.
func (e *ExecEngine) expandArgs(artifact []byte) ([]string, string, error) {
	usesFile := false
	for _, a := range e.args {
		if strings.Contains(a, FilePlaceholder) {
			usesFile = true
			break
		}
	}
	if !usesFile {
		return append([]string(nil), e.args...), "", nil
	}

	f, err := os.CreateTemp("", "quicksand-artifact-*")
	if err != nil {
		return nil, "", fmt.Errorf("create temp artifact: %w", err)
	}
	tmpPath := f.Name()
	if _, err := f.Write(artifact); err != nil {
		f.Close()
		os.Remove(tmpPath)
		return nil, "", fmt.Errorf("write temp artifact: %w", err)
	}
	if err := f.Close(); err != nil {
		os.Remove(tmpPath)
		return nil, "", fmt.Errorf("close temp artifact: %w", err)
	}

	args := make([]string, len(e.args))
	for i, a := range e.args {
		args[i] = strings.ReplaceAll(a, FilePlaceholder, tmpPath)
	}
	return args, tmpPath, nil
}

// Ready reports whether the command can be found on PATH.
func (e *ExecEngine) Ready(_ context.Context) error {
	if _, err := exec.LookPath(e.command); err != nil {
		return fmt.Errorf("quicksand binary %q not found: %w", e.command, err)
	}
	return nil
}
