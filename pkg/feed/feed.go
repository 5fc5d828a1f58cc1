// Package feed delivers remote account snapshots pushed by the store.
package feed

import (
	"context"

	"github.com/chris/live-economy/pkg/models"
)

// Snapshot is one account as the store saw it at some point in time.
// Snapshots are not causally ordered with local writes.
type Snapshot struct {
	Account models.Account
	// Deleted is set when the account was removed from the store.
	Deleted bool
}

// Feed defines the interface for a source of remote snapshots.
type Feed interface {
	// Subscribe starts delivery. The channel is closed once ctx is done.
	Subscribe(ctx context.Context) (<-chan Snapshot, error)
}
