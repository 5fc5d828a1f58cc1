package audit

import (
	"context"
	"log/slog"
)

// LogRecorder writes failures to a structured logger. It is used when no
// failure queue is configured.
type LogRecorder struct {
	Logger *slog.Logger
}

var _ Recorder = (*LogRecorder)(nil)

// RecordFailure logs the failure at warn level.
func (r *LogRecorder) RecordFailure(ctx context.Context, failure Failure) error {
	logger := r.Logger
	if logger == nil {
		logger = slog.Default()
	}
	logger.WarnContext(ctx, "sync failure recorded",
		"kind", failure.Kind,
		"accounts", failure.AccountIDs,
		"error", failure.Error,
	)
	return nil
}
