package engine

import (
	"fmt"
	"time"

	"go.uber.org/zap"
)

// Kind selects an Engine implementation.
type Kind string

const (
	KindExec Kind = "exec"
	KindHTTP Kind = "http"
	KindNone Kind = "none"
)

// Config describes which engine to build and how to reach it.
type Config struct {
	Kind    Kind
	Command string
	Args    []string
	URL     string
	Timeout time.Duration
}

// New builds the Engine selected by cfg.Kind.
func New(cfg Config, logger *zap.Logger) (Engine, error) {
	switch cfg.Kind {
	case KindExec, "":
		if cfg.Command == "" {
			return nil, fmt.Errorf("engine.command is required for kind %q", KindExec)
		}
		return NewExecEngine(cfg.Command, cfg.Args, logger), nil
	case KindHTTP:
		if cfg.URL == "" {
			return nil, fmt.Errorf("engine.url is required for kind %q", KindHTTP)
		}
		return NewHTTPEngine(cfg.URL, cfg.Timeout, logger), nil
	case KindNone:
		return NewUnavailableEngine(logger), nil
	default:
		return nil, fmt.Errorf("unknown engine kind %q", cfg.Kind)
	}
}
