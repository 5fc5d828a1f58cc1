// Package audit records background sync failures outside the process.
package audit

import (
	"context"
	"time"

	"github.com/chris/live-economy/pkg/models"
)

// Failure kinds.
const (
	KindUpdate   = "update"
	KindTransfer = "transfer"
)

// Failure describes a remote write that did not go through.
type Failure struct {
	Kind       string           `json:"kind"`
	AccountIDs []string         `json:"account_ids"`
	Update     *models.Update   `json:"update,omitempty"`
	Transfer   *models.Transfer `json:"transfer,omitempty"`
	Error      string           `json:"error"`
	FailedAt   time.Time        `json:"failed_at"`
}

// Recorder defines the interface for a sink of sync failures.
type Recorder interface {
	RecordFailure(ctx context.Context, failure Failure) error
}
