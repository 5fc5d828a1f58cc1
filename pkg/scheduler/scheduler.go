package scheduler

// Scheduler defines the interface for a component that decides when an account's pending changes are written.
type Scheduler interface {
	// Schedule arms (or re-arms) the account's flush.
	Schedule(accountID string)

	// Cancel disarms the account's flush, reporting whether one was armed.
	Cancel(accountID string) bool

	// Stop disarms every flush and returns the accounts that had one armed.
	Stop() []string
}
