package feed

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"net/http"
	"time"

	"github.com/chris/live-economy/pkg/websockets"
	"github.com/gorilla/websocket"
)

// envelope mirrors websockets.Message with the payload left undecoded.
type envelope struct {
	Type    websockets.MessageType `json:"type"`
	Payload json.RawMessage        `json:"payload"`
}

// WebSocketFeed receives account snapshots from the fan-out websocket API.
// A dropped connection is redialled after the retry interval.
type WebSocketFeed struct {
	url    string
	header http.Header
	dialer *websocket.Dialer
	retry  time.Duration
	logger *slog.Logger
}

// NewWebSocketFeed creates a new WebSocketFeed.
func NewWebSocketFeed(url string, header http.Header, retry time.Duration, logger *slog.Logger) *WebSocketFeed {
	if retry <= 0 {
		retry = DefaultPollInterval
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &WebSocketFeed{
		url:    url,
		header: header,
		dialer: websocket.DefaultDialer,
		retry:  retry,
		logger: logger,
	}
}

// Make sure we conform to the interface
var _ Feed = (*WebSocketFeed)(nil)

// Subscribe dials the endpoint once synchronously, so a bad URL fails fast,
// then keeps the connection open in the background.
func (f *WebSocketFeed) Subscribe(ctx context.Context) (<-chan Snapshot, error) {
	conn, err := f.dial(ctx)
	if err != nil {
		return nil, err
	}

	out := make(chan Snapshot, 64)
	go func() {
		defer close(out)
		for {
			f.read(ctx, conn, out)
			if !sleep(ctx, f.retry) {
				return
			}
			for {
				if conn, err = f.dial(ctx); err == nil {
					break
				}
				f.logger.Warn("failed to redial snapshot feed", "error", err)
				if !sleep(ctx, f.retry) {
					return
				}
			}
		}
	}()
	return out, nil
}

func (f *WebSocketFeed) dial(ctx context.Context) (*websocket.Conn, error) {
	conn, _, err := f.dialer.DialContext(ctx, f.url, f.header)
	if err != nil {
		return nil, fmt.Errorf("failed to dial snapshot feed: %w", err)
	}
	return conn, nil
}

// read consumes messages until the connection drops or ctx is done.
func (f *WebSocketFeed) read(ctx context.Context, conn *websocket.Conn, out chan<- Snapshot) {
	defer conn.Close()

	// Unblock ReadMessage when the subscription ends.
	stop := context.AfterFunc(ctx, func() { conn.Close() })
	defer stop()

	for {
		_, data, err := conn.ReadMessage()
		if err != nil {
			if ctx.Err() == nil && websocket.IsUnexpectedCloseError(err, websocket.CloseNormalClosure, websocket.CloseGoingAway) {
				f.logger.Warn("snapshot feed connection lost", "error", err)
			}
			return
		}

		snap, ok, err := decodeMessage(data)
		if err != nil {
			f.logger.Warn("skipping malformed snapshot message", "error", err)
			continue
		}
		if !ok {
			continue
		}
		select {
		case out <- snap:
		case <-ctx.Done():
			return
		}
	}
}

func decodeMessage(data []byte) (Snapshot, bool, error) {
	var env envelope
	if err := json.Unmarshal(data, &env); err != nil {
		return Snapshot{}, false, fmt.Errorf("failed to unmarshal message: %w", err)
	}
	if env.Type != websockets.MessageTypeAccountSnapshot {
		return Snapshot{}, false, nil
	}

	var payload websockets.AccountSnapshotPayload
	if err := json.Unmarshal(env.Payload, &payload); err != nil {
		return Snapshot{}, false, fmt.Errorf("failed to unmarshal snapshot payload: %w", err)
	}
	if payload.Account.UserId == "" {
		return Snapshot{}, false, fmt.Errorf("snapshot has no user_id")
	}
	return Snapshot{Account: payload.Account, Deleted: payload.Deleted}, true, nil
}
