package reconcile

import (
	"context"
	"log/slog"
	"strconv"

	"github.com/chris/live-economy/pkg/feed"
	"github.com/chris/live-economy/pkg/metrics"
	"github.com/chris/live-economy/pkg/models"
)

// PendingSource exposes unconfirmed values under the lock that guards them,
// so the merged result cannot miss a mutation applied concurrently.
type PendingSource interface {
	WithPending(accountID string, fn func(pending models.Patch))
}

// View receives reconciled accounts.
type View interface {
	Put(account models.Account)
	Forget(accountID string)
}

// Reconciler consumes a snapshot feed and keeps the view in step with it.
type Reconciler struct {
	feed    feed.Feed
	pending PendingSource
	view    View
	logger  *slog.Logger
	applied []func(feed.Snapshot)
}

// NewReconciler creates a new Reconciler.
func NewReconciler(f feed.Feed, pending PendingSource, view View, logger *slog.Logger) *Reconciler {
	if logger == nil {
		logger = slog.Default()
	}
	return &Reconciler{feed: f, pending: pending, view: view, logger: logger}
}

// Run applies snapshots until ctx is done or the feed closes.
func (r *Reconciler) Run(ctx context.Context) error {
	snapshots, err := r.feed.Subscribe(ctx)
	if err != nil {
		return err
	}

	r.logger.Info("reconciler started")
	for snap := range snapshots {
		r.Apply(snap)
	}
	r.logger.Info("reconciler stopped")
	return ctx.Err()
}

// OnApplied registers fn to receive every reconciled snapshot. Callbacks run
// on the Run goroutine after the pending lock is released, so slow
// consumers delay the feed but never the entry points.
func (r *Reconciler) OnApplied(fn func(feed.Snapshot)) {
	r.applied = append(r.applied, fn)
}

// Apply reconciles one snapshot into the view.
func (r *Reconciler) Apply(snap feed.Snapshot) {
	id := snap.Account.UserId
	reconciled := snap
	r.pending.WithPending(id, func(pending models.Patch) {
		if snap.Deleted {
			r.view.Forget(id)
			return
		}

		overlaid := len(pending) > 0
		metrics.Snapshots.WithLabelValues(strconv.FormatBool(overlaid)).Inc()
		if overlaid {
			r.logger.Debug("pending values overlaid on snapshot", "account_id", id, "fields", len(pending))
		}
		reconciled.Account = Overlay(snap.Account, pending)
		r.view.Put(reconciled.Account)
	})

	for _, fn := range r.applied {
		fn(reconciled)
	}
}
