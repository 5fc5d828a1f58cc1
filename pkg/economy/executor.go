package economy

import (
	"context"
	"log/slog"
	"time"

	"github.com/chris/live-economy/pkg/audit"
	"github.com/chris/live-economy/pkg/metrics"
	"github.com/chris/live-economy/pkg/models"
	"github.com/chris/live-economy/pkg/pending"
	"github.com/chris/live-economy/pkg/storage"
)

// Executor issues remote writes. Failures are logged, counted and handed to
// the recorder; they are returned to the caller but never surfaced further.
type Executor struct {
	store    storage.AccountWriter
	recorder audit.Recorder
	logger   *slog.Logger
}

// NewExecutor creates a new Executor. A nil recorder falls back to logging.
func NewExecutor(store storage.AccountWriter, recorder audit.Recorder, logger *slog.Logger) *Executor {
	if logger == nil {
		logger = slog.Default()
	}
	if recorder == nil {
		recorder = &audit.LogRecorder{Logger: logger}
	}
	return &Executor{store: store, recorder: recorder, logger: logger}
}

// Flush writes one account's pending snapshot.
func (x *Executor) Flush(ctx context.Context, snap pending.Snapshot) error {
	update := snap.Update()
	if update.Empty() {
		// Overlay-only values; nothing to persist.
		return nil
	}

	start := time.Now()
	err := x.store.ApplyUpdate(ctx, update)
	metrics.FlushDuration.WithLabelValues(audit.KindUpdate).Observe(time.Since(start).Seconds())
	if err != nil {
		metrics.Flushes.WithLabelValues(audit.KindUpdate, metrics.ResultFailure).Inc()
		x.logger.ErrorContext(ctx, "failed to flush pending changes", "account_id", snap.AccountID, "error", err)
		x.record(ctx, audit.Failure{
			Kind:       audit.KindUpdate,
			AccountIDs: []string{snap.AccountID},
			Update:     &update,
			Error:      err.Error(),
		})
		return err
	}

	metrics.Flushes.WithLabelValues(audit.KindUpdate, metrics.ResultSuccess).Inc()
	x.logger.DebugContext(ctx, "flushed pending changes",
		"account_id", snap.AccountID,
		"set", len(update.Set),
		"increments", len(update.Increments),
		"items", len(update.AddItems),
	)
	return nil
}

// Transfer commits an agency transfer as one atomic batch.
func (x *Executor) Transfer(ctx context.Context, transfer models.Transfer) error {
	start := time.Now()
	err := x.store.CommitTransfer(ctx, transfer)
	metrics.FlushDuration.WithLabelValues(audit.KindTransfer).Observe(time.Since(start).Seconds())
	if err != nil {
		metrics.Flushes.WithLabelValues(audit.KindTransfer, metrics.ResultFailure).Inc()
		x.logger.ErrorContext(ctx, "failed to commit agency transfer",
			"transfer_id", transfer.Id,
			"agent_id", transfer.AgentId,
			"target_id", transfer.TargetId,
			"amount", transfer.Amount,
			"error", err,
		)
		x.record(ctx, audit.Failure{
			Kind:       audit.KindTransfer,
			AccountIDs: []string{transfer.AgentId, transfer.TargetId},
			Transfer:   &transfer,
			Error:      err.Error(),
		})
		return err
	}

	metrics.Flushes.WithLabelValues(audit.KindTransfer, metrics.ResultSuccess).Inc()
	x.logger.InfoContext(ctx, "agency transfer committed", "transfer_id", transfer.Id, "amount", transfer.Amount)
	return nil
}

func (x *Executor) record(ctx context.Context, failure audit.Failure) {
	failure.FailedAt = time.Now().UTC()
	if err := x.recorder.RecordFailure(ctx, failure); err != nil {
		x.logger.ErrorContext(ctx, "failed to record sync failure", "kind", failure.Kind, "error", err)
	}
}
