package storage

import "context"

// ConnectionRegistry records websocket clients as they connect and leave.
type ConnectionRegistry interface {
	AddConnection(ctx context.Context, connectionID string) error
	RemoveConnection(ctx context.Context, connectionID string) error
}

// ConnectionLister lists the clients that receive account snapshots.
type ConnectionLister interface {
	GetAllConnections(ctx context.Context) ([]string, error)
}

// ConnectionStore is the full connection table.
type ConnectionStore interface {
	ConnectionRegistry
	ConnectionLister
}
