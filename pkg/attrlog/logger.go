// Package attrlog provides structured logging with trace-ID propagation for
// the resolver/filter engines, adapted from the service layer's logging
// package (logrus-backed).
package attrlog

import (
	"context"
	"os"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/sirupsen/logrus"
)

// ContextKey is the type for context keys used to stash logging metadata.
type ContextKey string

const (
	TraceIDKey    ContextKey = "trace_id"
	PrincipalKey  ContextKey = "principal"
	RecipientKey  ContextKey = "recipient_id"
)

// Logger wraps logrus.Logger, tagging every entry with the owning
// component's name (e.g. "resolver", "filter", a connector id).
type Logger struct {
	*logrus.Logger
	component string
}

// New creates a Logger for the given component.
func New(component, level, format string) *Logger {
	logger := logrus.New()

	logLevel, err := logrus.ParseLevel(level)
	if err != nil {
		logLevel = logrus.InfoLevel
	}
	logger.SetLevel(logLevel)

	if format == "json" {
		logger.SetFormatter(&logrus.JSONFormatter{
			TimestampFormat: time.RFC3339Nano,
			FieldMap: logrus.FieldMap{
				logrus.FieldKeyTime:  "timestamp",
				logrus.FieldKeyLevel: "level",
				logrus.FieldKeyMsg:   "message",
			},
		})
	} else {
		logger.SetFormatter(&logrus.TextFormatter{
			TimestampFormat: time.RFC3339,
			FullTimestamp:   true,
		})
	}

	logger.SetOutput(os.Stdout)

	return &Logger{Logger: logger, component: component}
}

// NewFromEnv builds a Logger using LOG_LEVEL/LOG_FORMAT, defaulting to
// info/json when unset.
func NewFromEnv(component string) *Logger {
	level := strings.TrimSpace(os.Getenv("LOG_LEVEL"))
	if level == "" {
		level = "info"
	}
	format := strings.TrimSpace(os.Getenv("LOG_FORMAT"))
	if format == "" {
		format = "json"
	}
	return New(component, level, format)
}

// WithContext returns an entry pre-populated with trace/principal metadata
// found on ctx.
func (l *Logger) WithContext(ctx context.Context) *logrus.Entry {
	entry := l.Logger.WithField("component", l.component)
	if traceID := ctx.Value(TraceIDKey); traceID != nil {
		entry = entry.WithField("trace_id", traceID)
	}
	if principal := ctx.Value(PrincipalKey); principal != nil {
		entry = entry.WithField("principal", principal)
	}
	if recipient := ctx.Value(RecipientKey); recipient != nil {
		entry = entry.WithField("recipient_id", recipient)
	}
	return entry
}

// NewTraceID generates a new trace ID.
func NewTraceID() string {
	return uuid.New().String()
}

// WithTraceID attaches a trace ID to ctx.
func WithTraceID(ctx context.Context, traceID string) context.Context {
	return context.WithValue(ctx, TraceIDKey, traceID)
}

// GetTraceID retrieves the trace ID from ctx, if any.
func GetTraceID(ctx context.Context) string {
	if traceID, ok := ctx.Value(TraceIDKey).(string); ok {
		return traceID
	}
	return ""
}

// LogResolve logs the outcome of resolving a single attribute definition.
func (l *Logger) LogResolve(ctx context.Context, attributeID string, duration time.Duration, err error) {
	entry := l.WithContext(ctx).WithFields(logrus.Fields{
		"attribute_id": attributeID,
		"duration_ms":  duration.Milliseconds(),
	})
	if err != nil {
		entry.WithError(err).Error("attribute definition resolution failed")
		return
	}
	entry.Debug("attribute definition resolved")
}

// LogConnectorCall logs a data connector invocation.
func (l *Logger) LogConnectorCall(ctx context.Context, connectorID string, duration time.Duration, err error) {
	entry := l.WithContext(ctx).WithFields(logrus.Fields{
		"connector_id": connectorID,
		"duration_ms":  duration.Milliseconds(),
	})
	if err != nil {
		entry.WithError(err).Warn("data connector call failed")
		return
	}
	entry.Debug("data connector call succeeded")
}

// LogFailover logs that resolution engaged a connector's configured
// failover.
func (l *Logger) LogFailover(ctx context.Context, fromConnectorID, toConnectorID string) {
	l.WithContext(ctx).WithFields(logrus.Fields{
		"from_connector": fromConnectorID,
		"to_connector":   toConnectorID,
	}).Warn("connector failover engaged")
}

// LogCoolDown logs that a connector was skipped because it is within its
// cool-down window.
func (l *Logger) LogCoolDown(ctx context.Context, connectorID string, retryAfter time.Duration) {
	l.WithContext(ctx).WithFields(logrus.Fields{
		"connector_id": connectorID,
		"retry_after":  retryAfter.String(),
	}).Debug("connector skipped: within cool-down window")
}

// LogFilterDecision logs a per-attribute filter outcome.
func (l *Logger) LogFilterDecision(ctx context.Context, policyID, attributeID string, kept, denied int) {
	l.WithContext(ctx).WithFields(logrus.Fields{
		"policy_id":    policyID,
		"attribute_id": attributeID,
		"kept_values":  kept,
		"denied_values": denied,
	}).Debug("filter policy evaluated")
}

// LogReload logs the outcome of a reloadable-service reload attempt.
func (l *Logger) LogReload(ctx context.Context, duration time.Duration, err error) {
	entry := l.WithContext(ctx).WithFields(logrus.Fields{
		"duration_ms": duration.Milliseconds(),
	})
	if err != nil {
		entry.WithError(err).Error("configuration reload failed")
		return
	}
	entry.Info("configuration reload succeeded")
}

// Default logger, lazily initialized.
var defaultLogger *Logger

// InitDefault initializes the package-level default logger.
func InitDefault(component, level, format string) {
	defaultLogger = New(component, level, format)
}

// Default returns the package-level default logger, creating a fallback one
// if InitDefault was never called.
func Default() *Logger {
	if defaultLogger == nil {
		defaultLogger = New("attribute-engine", "info", "json")
	}
	return defaultLogger
}
