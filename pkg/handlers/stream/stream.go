// Package stream turns accounts table stream events into snapshot broadcasts.
package stream

import (
	"context"
	"errors"
	"log/slog"

	"github.com/aws/aws-lambda-go/events"
	"github.com/chris/live-economy/pkg/mapping"
	"github.com/chris/live-economy/pkg/websockets"
)

// Handler publishes every changed account to the websocket fan-out.
type Handler struct {
	publisher websockets.Publisher
	logger    *slog.Logger
}

// NewHandler creates a new Handler.
func NewHandler(publisher websockets.Publisher, logger *slog.Logger) *Handler {
	if logger == nil {
		logger = slog.Default()
	}
	return &Handler{publisher: publisher, logger: logger}
}

// HandleRequest processes a batch of stream records. Records that cannot be
// decoded are skipped; a failed publish fails the batch so Lambda retries it.
func (h *Handler) HandleRequest(ctx context.Context, event events.DynamoDBEvent) error {
	var errs []error
	for _, record := range event.Records {
		account, deleted, err := mapping.AccountFromStreamRecord(record)
		if err != nil {
			h.logger.Error("failed to decode stream record", "event_id", record.EventID, "error", err)
			continue
		}

		if err := h.publisher.Publish(ctx, websockets.NewAccountSnapshot(account, deleted)); err != nil {
			h.logger.Error("failed to publish snapshot", "user_id", account.UserId, "error", err)
			errs = append(errs, err)
			continue
		}
		h.logger.Debug("published snapshot", "user_id", account.UserId, "deleted", deleted)
	}
	return errors.Join(errs...)
}
