// Package reconcile merges remote snapshots with changes the store has not confirmed yet.
package reconcile

import "github.com/chris/live-economy/pkg/models"

// Overlay returns the remote account with every pending field written over it.
// Pending values always win; with nothing pending the remote account is
// returned as is.
func Overlay(remote models.Account, pending models.Patch) models.Account {
	if len(pending) == 0 {
		return remote
	}
	merged := remote
	merged.Apply(pending)
	return merged
}
