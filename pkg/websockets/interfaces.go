package websockets

import (
	"context"

	"github.com/chris/live-economy/pkg/storage"
)

// ConnectionManager tracks connected clients. The DynamoDB store satisfies it.
type ConnectionManager = storage.ConnectionRegistry

// AllConnectionsGetter lists the connections a snapshot is delivered to.
type AllConnectionsGetter = storage.ConnectionLister

// Publisher delivers account snapshots to websocket clients.
type Publisher interface {
	Publish(ctx context.Context, message Message) error
}
