package websockets

import "github.com/chris/live-economy/pkg/models"

// MessageType defines the type of a WebSocket message.
type MessageType string

const (
	// MessageTypeAccountSnapshot carries the stored state of one account.
	MessageTypeAccountSnapshot MessageType = "accountSnapshot"
)

// Message represents a generic WebSocket message.
type Message struct {
	Type    MessageType `json:"type"`
	Payload interface{} `json:"payload"`
}

// AccountSnapshotPayload is the payload for an accountSnapshot message.
type AccountSnapshotPayload struct {
	Account models.Account `json:"account"`
	Deleted bool           `json:"deleted,omitempty"`
}

// NewAccountSnapshot builds an accountSnapshot message.
func NewAccountSnapshot(account models.Account, deleted bool) Message {
	return Message{
		Type:    MessageTypeAccountSnapshot,
		Payload: AccountSnapshotPayload{Account: account, Deleted: deleted},
	}
}
