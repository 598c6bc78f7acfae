// Package context carries run tracing values through plan execution
package context

import (
	"context"
	"time"

	"github.com/google/uuid"
)

// Unexported struct pointers prevent key collisions.
var (
	runIDKey         = &struct{}{}
	correlationIDKey = &struct{}{}
	projectKey       = &struct{}{}
	startTimeKey     = &struct{}{}
)

// WithRunID adds a run ID to the context, generating one when empty
func WithRunID(parent context.Context, runID string) context.Context {
	if runID == "" {
		runID = GenerateRunID()
	}
	return context.WithValue(parent, runIDKey, runID)
}

// GetRunID retrieves the run ID from context, or "" when absent
func GetRunID(ctx context.Context) string {
	if id, ok := ctx.Value(runIDKey).(string); ok {
		return id
	}
	return ""
}

// WithCorrelationID adds a correlation ID to the context
func WithCorrelationID(parent context.Context, correlationID string) context.Context {
	if correlationID == "" {
		correlationID = GenerateCorrelationID()
	}
	return context.WithValue(parent, correlationIDKey, correlationID)
}

// GetCorrelationID retrieves the correlation ID from context, or "" when absent
func GetCorrelationID(ctx context.Context) string {
	if id, ok := ctx.Value(correlationIDKey).(string); ok {
		return id
	}
	return ""
}

// WithProject records the project key being executed
func WithProject(parent context.Context, project string) context.Context {
	return context.WithValue(parent, projectKey, project)
}

// GetProject retrieves the project key from context
func GetProject(ctx context.Context) string {
	if p, ok := ctx.Value(projectKey).(string); ok {
		return p
	}
	return ""
}

// WithStartTime adds the operation start time to the context
func WithStartTime(parent context.Context, startTime time.Time) context.Context {
	return context.WithValue(parent, startTimeKey, startTime)
}

// GetDuration returns the time elapsed since the start time in context
func GetDuration(ctx context.Context) (time.Duration, bool) {
	t, ok := ctx.Value(startTimeKey).(time.Time)
	if !ok {
		return 0, false
	}
	return time.Since(t), true
}

// GenerateRunID creates a new unique run ID
func GenerateRunID() string {
	return "run_" + uuid.New().String()
}

// GenerateCorrelationID creates a new unique correlation ID
func GenerateCorrelationID() string {
	return "cor_" + uuid.New().String()
}

// EnrichContext adds a run ID, correlation ID and start time when missing
func EnrichContext(parent context.Context) context.Context {
	ctx := parent
	if GetRunID(ctx) == "" {
		ctx = WithRunID(ctx, "")
	}
	if GetCorrelationID(ctx) == "" {
		ctx = WithCorrelationID(ctx, "")
	}
	return WithStartTime(ctx, time.Now())
}
