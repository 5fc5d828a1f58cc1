package storage

import (
	"context"

	"github.com/chris/live-economy/pkg/models"
)

// AccountReader defines the interface for reading account documents.
type AccountReader interface {
	// GetAccount retrieves an account by its user ID.
	GetAccount(ctx context.Context, userID string) (*models.Account, error)

	// ListAccounts retrieves all accounts.
	ListAccounts(ctx context.Context) ([]models.Account, error)
}

// AccountWriter defines the interface used to persist pending account changes.
// This is the only write path the sync engine needs.
type AccountWriter interface {
	// ApplyUpdate writes one account's pending fields: absolute values for plain
	// fields, atomic increments for counters and set-union for owned items.
	ApplyUpdate(ctx context.Context, update models.Update) error

	// CommitTransfer persists an agency transfer as a single all-or-nothing batch.
	CommitTransfer(ctx context.Context, transfer models.Transfer) error
}

// AccountManager defines the interface for creating and removing accounts.
type AccountManager interface {
	// CreateAccount creates a new account, failing if one already exists.
	CreateAccount(ctx context.Context, account *models.Account) (*models.Account, error)

	// DeleteAccount deletes a user's account.
	DeleteAccount(ctx context.Context, userID string) error
}

// AccountStore combines the account interfaces.
type AccountStore interface {
	AccountReader
	AccountWriter
	AccountManager
}
