// Package logging provides structured logging with request-correlation
// support for the control plane.
package logging

import (
	"context"
	"os"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/sirupsen/logrus"
)

// ContextKey is the type for context keys used to carry correlation state.
type ContextKey string

const (
	RequestIDKey   ContextKey = "request_id"
	WorkspaceIDKey ContextKey = "workspace_id"
	UserIDKey      ContextKey = "user_id"
	RoleKey        ContextKey = "role"
	AppIDKey       ContextKey = "app_id"
)

// Logger wraps logrus.Logger with control-plane specific helpers.
type Logger struct {
	*logrus.Logger
	component string
}

// New creates a new Logger instance for the given component.
func New(component, level, format string) *Logger {
	logger := logrus.New()

	logLevel, err := logrus.ParseLevel(level)
	if err != nil {
		logLevel = logrus.InfoLevel
	}
	logger.SetLevel(logLevel)

	if format == "text" {
		logger.SetFormatter(&logrus.TextFormatter{
			TimestampFormat: time.RFC3339,
			FullTimestamp:   true,
		})
	} else {
		logger.SetFormatter(&logrus.JSONFormatter{
			TimestampFormat: time.RFC3339Nano,
			FieldMap: logrus.FieldMap{
				logrus.FieldKeyTime:  "ts",
				logrus.FieldKeyLevel: "level",
				logrus.FieldKeyMsg:   "message",
			},
		})
	}

	logger.SetOutput(os.Stdout)

	return &Logger{Logger: logger, component: component}
}

// NewFromEnv builds a logger using LOG_LEVEL and LOG_FORMAT, defaulting to
// "info" and "json".
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

// WithContext returns a logrus.Entry carrying request_id/workspace_id/
// user_id pulled from ctx, when present.
func (l *Logger) WithContext(ctx context.Context) *logrus.Entry {
	entry := l.Logger.WithField("component", l.component)

	if v := ctx.Value(RequestIDKey); v != nil {
		entry = entry.WithField("request_id", v)
	}
	if v := ctx.Value(WorkspaceIDKey); v != nil {
		entry = entry.WithField("workspace_id", v)
	}
	if v := ctx.Value(UserIDKey); v != nil {
		entry = entry.WithField("user_id", v)
	}
	if v := ctx.Value(RoleKey); v != nil {
		entry = entry.WithField("role", v)
	}

	return entry
}

// WithFields returns a logrus.Entry with the component field plus the given
// fields merged in.
func (l *Logger) WithFields(fields map[string]interface{}) *logrus.Entry {
	if fields == nil {
		fields = make(map[string]interface{})
	}
	fields["component"] = l.component
	return l.Logger.WithFields(fields)
}

// Context propagation helpers. request_id/workspace_id travel on the
// context, never through a process-wide mutable global (spec.md §9).

func WithRequestID(ctx context.Context, id string) context.Context {
	return context.WithValue(ctx, RequestIDKey, id)
}

func RequestID(ctx context.Context) string {
	v, _ := ctx.Value(RequestIDKey).(string)
	return v
}

func WithWorkspaceID(ctx context.Context, id string) context.Context {
	return context.WithValue(ctx, WorkspaceIDKey, id)
}

func WorkspaceID(ctx context.Context) string {
	v, _ := ctx.Value(WorkspaceIDKey).(string)
	return v
}

func WithUserID(ctx context.Context, id string) context.Context {
	return context.WithValue(ctx, UserIDKey, id)
}

func UserID(ctx context.Context) string {
	v, _ := ctx.Value(UserIDKey).(string)
	return v
}

func WithRole(ctx context.Context, role string) context.Context {
	return context.WithValue(ctx, RoleKey, role)
}

func WithAppID(ctx context.Context, id string) context.Context {
	return context.WithValue(ctx, AppIDKey, id)
}

func AppID(ctx context.Context) string {
	v, _ := ctx.Value(AppIDKey).(string)
	return v
}

// NewRequestID mints a fresh correlation identifier.
func NewRequestID() string {
	return uuid.New().String()
}

// LogRequest logs a completed HTTP request.
func (l *Logger) LogRequest(ctx context.Context, method, path string, status int, duration time.Duration) {
	l.WithContext(ctx).WithFields(logrus.Fields{
		"method":      method,
		"path":        path,
		"status":      status,
		"duration_ms": duration.Milliseconds(),
	}).Info("http request")
}

// LogAudit logs an audit-trail entry; callers still persist the canonical
// AuditEvent separately via the workspace audit emitter.
func (l *Logger) LogAudit(ctx context.Context, action, workspaceID, requestID string) {
	l.WithContext(ctx).WithFields(logrus.Fields{
		"audit":        true,
		"action":       action,
		"workspace_id": workspaceID,
		"request_id":   requestID,
	}).Info("audit event")
}

// LogSecurityEvent logs a security-relevant event (tenant boundary probes,
// CSRF rejections, header-gate failures).
func (l *Logger) LogSecurityEvent(ctx context.Context, eventType string, details map[string]interface{}) {
	fields := logrus.Fields{
		"event_type": eventType,
		"severity":   "security",
	}
	for k, v := range details {
		fields[k] = v
	}
	l.WithContext(ctx).WithFields(fields).Warn("security event")
}

// LogError logs an error with context fields attached.
func (l *Logger) LogError(ctx context.Context, message string, err error, fields map[string]interface{}) {
	entry := l.WithContext(ctx)
	if err != nil {
		entry = entry.WithError(err)
	}
	entry.WithFields(fields).Error(message)
}
