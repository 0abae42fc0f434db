package ports

import (
	"context"

	"github.com/google/uuid"
)

type runIDKey struct{}

// WithRunID attaches the run identifier to the context so every layer can
// enrich its log entries with it.
func WithRunID(ctx context.Context, id string) context.Context {
	return context.WithValue(ctx, runIDKey{}, id)
}

// RunID extracts the run identifier from ctx. It returns an empty string when
// none has been set.
func RunID(ctx context.Context) string {
	if ctx == nil {
		return ""
	}
	if id, ok := ctx.Value(runIDKey{}).(string); ok {
		return id
	}
	return ""
}

// NewRunID produces a fresh UUIDv4 run identifier. Entry points call it once
// per command execution.
func NewRunID() string {
	return uuid.NewString()
}
