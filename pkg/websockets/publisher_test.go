package websockets

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/apigatewaymanagementapi"
	apigwtypes "github.com/aws/aws-sdk-go-v2/service/apigatewaymanagementapi/types"
	"github.com/chris/live-economy/pkg/models"
	"github.com/gorilla/websocket"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeConnections struct {
	mu      sync.Mutex
	ids     []string
	err     error
	removed []string
}

func (f *fakeConnections) GetAllConnections(ctx context.Context) ([]string, error) {
	return f.ids, f.err
}

func (f *fakeConnections) AddConnection(ctx context.Context, id string) error { return nil }

func (f *fakeConnections) RemoveConnection(ctx context.Context, id string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.removed = append(f.removed, id)
	return nil
}

type fakeGateway struct {
	posted map[string][]byte
	errs   map[string]error
}

func (f *fakeGateway) PostToConnection(ctx context.Context, in *apigatewaymanagementapi.PostToConnectionInput, _ ...func(*apigatewaymanagementapi.Options)) (*apigatewaymanagementapi.PostToConnectionOutput, error) {
	id := aws.ToString(in.ConnectionId)
	if err := f.errs[id]; err != nil {
		return nil, err
	}
	f.posted[id] = in.Data
	return &apigatewaymanagementapi.PostToConnectionOutput{}, nil
}

func TestDefaultPublisher(t *testing.T) {
	msg := NewAccountSnapshot(models.Account{UserId: "user1", Coins: 10}, false)

	t.Run("Posts To Every Connection", func(t *testing.T) {
		conns := &fakeConnections{ids: []string{"a", "b", "gone", "broken"}}
		gw := &fakeGateway{posted: map[string][]byte{}, errs: map[string]error{
			"gone":   &apigwtypes.GoneException{},
			"broken": errors.New("throttled"),
		}}

		p := NewPublisherWithClient(conns, conns, gw)
		err := p.Publish(context.Background(), msg)

		require.NoError(t, err)
		assert.Len(t, gw.posted, 2)
		assert.Equal(t, []string{"gone"}, conns.removed)

		var decoded struct {
			Type    MessageType            `json:"type"`
			Payload AccountSnapshotPayload `json:"payload"`
		}
		require.NoError(t, json.Unmarshal(gw.posted["a"], &decoded))
		assert.Equal(t, MessageTypeAccountSnapshot, decoded.Type)
		assert.Equal(t, int64(10), decoded.Payload.Account.Coins)
	})

	t.Run("Connection Lookup Error", func(t *testing.T) {
		conns := &fakeConnections{err: errors.New("table missing")}
		p := NewPublisherWithClient(conns, conns, &fakeGateway{posted: map[string][]byte{}})

		err := p.Publish(context.Background(), msg)
		assert.ErrorContains(t, err, "failed to get all connections")
	})
}

func TestHub(t *testing.T) {
	hub := NewHub()
	upgrader := websocket.Upgrader{}
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		conn, err := upgrader.Upgrade(w, r, nil)
		if err != nil {
			return
		}
		hub.Register("local-1", conn)
	}))
	defer srv.Close()

	client, _, err := websocket.DefaultDialer.Dial("ws"+strings.TrimPrefix(srv.URL, "http"), nil)
	require.NoError(t, err)
	defer client.Close()

	assert.Eventually(t, func() bool { return hub.Len() == 1 }, time.Second, 5*time.Millisecond)

	require.NoError(t, hub.Publish(context.Background(), NewAccountSnapshot(models.Account{UserId: "user1"}, true)))

	_ = client.SetReadDeadline(time.Now().Add(2 * time.Second))
	_, data, err := client.ReadMessage()
	require.NoError(t, err)
	assert.Contains(t, string(data), `"type":"accountSnapshot"`)
	assert.Contains(t, string(data), `"deleted":true`)

	hub.Unregister("local-1")
	assert.Equal(t, 0, hub.Len())
}
