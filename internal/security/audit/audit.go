package audit

import (
	"context"
	"log/slog"
	"time"
)

// RequestIDKey is the context key under which the request ID middleware
// stores the ID, so audit lines can be correlated with access logs.
type RequestIDKey struct{}

type Logger struct {
	logger *slog.Logger
}

func NewLogger(logger *slog.Logger) *Logger {
	return &Logger{logger: logger}
}

func (al *Logger) LogAction(ctx context.Context, userID int64, action, resource, resourceID, status, details string) {
	requestID, _ := ctx.Value(RequestIDKey{}).(string)

	al.logger.Info("audit",
		slog.String("action", action),
		slog.String("resource", resource),
		slog.String("resource_id", resourceID),
		slog.Int64("user_id", userID),
		slog.String("status", status),
		slog.String("details", details),
		slog.String("request_id", requestID),
		slog.Time("timestamp", time.Now()),
	)
}

func (al *Logger) LogHire(ctx context.Context, userID int64, employmentID, status, details string) {
	al.LogAction(ctx, userID, "hire", "employment", employmentID, status, details)
}

func (al *Logger) LogStatusChange(ctx context.Context, userID int64, employmentID, status, details string) {
	al.LogAction(ctx, userID, "status_change", "employment", employmentID, status, details)
}

func (al *Logger) LogDeletion(ctx context.Context, userID int64, employmentID, status, details string) {
	al.LogAction(ctx, userID, "delete", "employment", employmentID, status, details)
}

func (al *Logger) LogDenied(ctx context.Context, userID int64, reason string) {
	al.LogAction(ctx, userID, "access_denied", "api", "", "denied", reason)
}
