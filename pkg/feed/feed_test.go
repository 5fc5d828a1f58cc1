package feed

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/dynamodbstreams"
	"github.com/aws/aws-sdk-go-v2/service/dynamodbstreams/types"
	"github.com/chris/live-economy/pkg/feed/mocks"
	"github.com/chris/live-economy/pkg/models"
	"github.com/chris/live-economy/pkg/websockets"
	"github.com/gorilla/websocket"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
)

var discard = slog.New(slog.NewTextHandler(io.Discard, nil))

func accountImage(userID string, coins string) map[string]types.AttributeValue {
	return map[string]types.AttributeValue{
		"user_id":     &types.AttributeValueMemberS{Value: userID},
		"coins":       &types.AttributeValueMemberN{Value: coins},
		"is_vip":      &types.AttributeValueMemberBOOL{Value: true},
		"owned_items": &types.AttributeValueMemberSS{Value: []string{"frame-1"}},
	}
}

func receive(t *testing.T, ch <-chan Snapshot) Snapshot {
	t.Helper()
	select {
	case snap, ok := <-ch:
		require.True(t, ok, "feed closed")
		return snap
	case <-time.After(2 * time.Second):
		t.Fatal("timed out waiting for snapshot")
	}
	return Snapshot{}
}

func TestDecodeRecord(t *testing.T) {
	t.Run("Modify", func(t *testing.T) {
		snap, ok, err := decodeRecord(types.Record{
			EventName: types.OperationTypeModify,
			Dynamodb:  &types.StreamRecord{NewImage: accountImage("user1", "120")},
		})

		require.NoError(t, err)
		require.True(t, ok)
		assert.Equal(t, "user1", snap.Account.UserId)
		assert.Equal(t, int64(120), snap.Account.Coins)
		assert.True(t, snap.Account.IsVip)
		assert.Equal(t, []string{"frame-1"}, snap.Account.OwnedItems)
		assert.False(t, snap.Deleted)
	})

	t.Run("Remove", func(t *testing.T) {
		snap, ok, err := decodeRecord(types.Record{
			EventName: types.OperationTypeRemove,
			Dynamodb: &types.StreamRecord{Keys: map[string]types.AttributeValue{
				"user_id": &types.AttributeValueMemberS{Value: "user1"},
			}},
		})

		require.NoError(t, err)
		require.True(t, ok)
		assert.Equal(t, "user1", snap.Account.UserId)
		assert.True(t, snap.Deleted)
	})

	t.Run("No Image", func(t *testing.T) {
		_, ok, err := decodeRecord(types.Record{EventName: types.OperationTypeModify, Dynamodb: &types.StreamRecord{}})
		assert.NoError(t, err)
		assert.False(t, ok)
	})
}

func TestStreamsFeed(t *testing.T) {
	const arn = "arn:aws:dynamodb:us-east-1:123456789012:table/accounts/stream/2026-01-01T00:00:00.000"

	t.Run("Reads Open Shards", func(t *testing.T) {
		mockClient := new(mocks.StreamsAPI)
		mockClient.On("DescribeStream", mock.Anything, mock.Anything).Return(&dynamodbstreams.DescribeStreamOutput{
			StreamDescription: &types.StreamDescription{Shards: []types.Shard{
				{ShardId: aws.String("shard-closed"), SequenceNumberRange: &types.SequenceNumberRange{
					StartingSequenceNumber: aws.String("1"),
					EndingSequenceNumber:   aws.String("9"),
				}},
				{ShardId: aws.String("shard-open"), SequenceNumberRange: &types.SequenceNumberRange{
					StartingSequenceNumber: aws.String("10"),
				}},
			}},
		}, nil)
		mockClient.On("GetShardIterator", mock.Anything, mock.MatchedBy(func(in *dynamodbstreams.GetShardIteratorInput) bool {
			return aws.ToString(in.ShardId) == "shard-open" && in.ShardIteratorType == types.ShardIteratorTypeLatest
		})).Return(&dynamodbstreams.GetShardIteratorOutput{ShardIterator: aws.String("it-1")}, nil).Once()
		mockClient.On("GetRecords", mock.Anything, mock.MatchedBy(func(in *dynamodbstreams.GetRecordsInput) bool {
			return aws.ToString(in.ShardIterator) == "it-1"
		})).Return(&dynamodbstreams.GetRecordsOutput{
			Records: []types.Record{
				{EventName: types.OperationTypeModify, Dynamodb: &types.StreamRecord{NewImage: accountImage("user1", "100")}},
				{EventName: types.OperationTypeModify, Dynamodb: &types.StreamRecord{NewImage: map[string]types.AttributeValue{
					"user_id": &types.AttributeValueMemberS{Value: "user2"},
					"coins":   &types.AttributeValueMemberS{Value: "not a number"},
				}}},
				{EventName: types.OperationTypeInsert, Dynamodb: &types.StreamRecord{NewImage: accountImage("user3", "5")}},
			},
			NextShardIterator: aws.String("it-2"),
		}, nil).Once()
		mockClient.On("GetRecords", mock.Anything, mock.MatchedBy(func(in *dynamodbstreams.GetRecordsInput) bool {
			return aws.ToString(in.ShardIterator) == "it-2"
		})).Return(&dynamodbstreams.GetRecordsOutput{}, nil).Once()

		ctx, cancel := context.WithCancel(context.Background())
		defer cancel()

		f := NewStreamsFeed(mockClient, arn, 10*time.Millisecond, discard)
		ch, err := f.Subscribe(ctx)
		require.NoError(t, err)

		assert.Equal(t, "user1", receive(t, ch).Account.UserId)
		// The undecodable record is skipped.
		assert.Equal(t, "user3", receive(t, ch).Account.UserId)

		cancel()
		assert.Eventually(t, func() bool {
			_, open := <-ch
			return !open
		}, time.Second, 5*time.Millisecond)
	})

	t.Run("Renews Expired Iterator", func(t *testing.T) {
		mockClient := new(mocks.StreamsAPI)
		mockClient.On("DescribeStream", mock.Anything, mock.Anything).Return(&dynamodbstreams.DescribeStreamOutput{
			StreamDescription: &types.StreamDescription{Shards: []types.Shard{{ShardId: aws.String("shard-1")}}},
		}, nil)
		mockClient.On("GetShardIterator", mock.Anything, mock.Anything).
			Return(&dynamodbstreams.GetShardIteratorOutput{ShardIterator: aws.String("it-old")}, nil).Once()
		mockClient.On("GetShardIterator", mock.Anything, mock.Anything).
			Return(&dynamodbstreams.GetShardIteratorOutput{ShardIterator: aws.String("it-new")}, nil).Once()
		mockClient.On("GetRecords", mock.Anything, mock.MatchedBy(func(in *dynamodbstreams.GetRecordsInput) bool {
			return aws.ToString(in.ShardIterator) == "it-old"
		})).Return(nil, &types.ExpiredIteratorException{}).Once()
		mockClient.On("GetRecords", mock.Anything, mock.MatchedBy(func(in *dynamodbstreams.GetRecordsInput) bool {
			return aws.ToString(in.ShardIterator) == "it-new"
		})).Return(&dynamodbstreams.GetRecordsOutput{
			Records: []types.Record{{EventName: types.OperationTypeModify, Dynamodb: &types.StreamRecord{NewImage: accountImage("user1", "7")}}},
		}, nil).Once()

		ctx, cancel := context.WithCancel(context.Background())
		defer cancel()

		f := NewStreamsFeed(mockClient, arn, 10*time.Millisecond, discard)
		ch, err := f.Subscribe(ctx)
		require.NoError(t, err)

		assert.Equal(t, int64(7), receive(t, ch).Account.Coins)
	})

	t.Run("Child Shard Read From Oldest Record", func(t *testing.T) {
		mockClient := new(mocks.StreamsAPI)
		mockClient.On("DescribeStream", mock.Anything, mock.Anything).Return(&dynamodbstreams.DescribeStreamOutput{
			StreamDescription: &types.StreamDescription{Shards: []types.Shard{{ShardId: aws.String("parent")}}},
		}, nil).Once()
		mockClient.On("DescribeStream", mock.Anything, mock.Anything).Return(&dynamodbstreams.DescribeStreamOutput{
			StreamDescription: &types.StreamDescription{Shards: []types.Shard{
				{ShardId: aws.String("parent"), SequenceNumberRange: &types.SequenceNumberRange{
					StartingSequenceNumber: aws.String("1"),
					EndingSequenceNumber:   aws.String("9"),
				}},
				{ShardId: aws.String("child"), ParentShardId: aws.String("parent")},
			}},
		}, nil)
		mockClient.On("GetShardIterator", mock.Anything, mock.MatchedBy(func(in *dynamodbstreams.GetShardIteratorInput) bool {
			return aws.ToString(in.ShardId) == "parent" && in.ShardIteratorType == types.ShardIteratorTypeLatest
		})).Return(&dynamodbstreams.GetShardIteratorOutput{ShardIterator: aws.String("it-parent")}, nil).Once()
		// The parent closes on its first read.
		mockClient.On("GetRecords", mock.Anything, mock.MatchedBy(func(in *dynamodbstreams.GetRecordsInput) bool {
			return aws.ToString(in.ShardIterator) == "it-parent"
		})).Return(&dynamodbstreams.GetRecordsOutput{}, nil).Once()
		mockClient.On("GetShardIterator", mock.Anything, mock.MatchedBy(func(in *dynamodbstreams.GetShardIteratorInput) bool {
			return aws.ToString(in.ShardId) == "child" && in.ShardIteratorType == types.ShardIteratorTypeTrimHorizon
		})).Return(&dynamodbstreams.GetShardIteratorOutput{ShardIterator: aws.String("it-child")}, nil).Once()
		mockClient.On("GetRecords", mock.Anything, mock.MatchedBy(func(in *dynamodbstreams.GetRecordsInput) bool {
			return aws.ToString(in.ShardIterator) == "it-child"
		})).Return(&dynamodbstreams.GetRecordsOutput{
			Records:           []types.Record{{EventName: types.OperationTypeModify, Dynamodb: &types.StreamRecord{NewImage: accountImage("user5", "42")}}},
			NextShardIterator: aws.String("it-child-tip"),
		}, nil).Once()
		mockClient.On("GetRecords", mock.Anything, mock.MatchedBy(func(in *dynamodbstreams.GetRecordsInput) bool {
			return aws.ToString(in.ShardIterator) == "it-child-tip"
		})).Return(&dynamodbstreams.GetRecordsOutput{NextShardIterator: aws.String("it-child-tip")}, nil)

		ctx, cancel := context.WithCancel(context.Background())
		defer cancel()

		// A long poll keeps the periodic refresh out of the picture; the
		// parent closing is what starts the child.
		f := NewStreamsFeed(mockClient, arn, time.Minute, discard)
		ch, err := f.Subscribe(ctx)
		require.NoError(t, err)

		snap := receive(t, ch)
		assert.Equal(t, "user5", snap.Account.UserId)
		assert.Equal(t, int64(42), snap.Account.Coins)
	})

	t.Run("Describe Error", func(t *testing.T) {
		mockClient := new(mocks.StreamsAPI)
		mockClient.On("DescribeStream", mock.Anything, mock.Anything).Return(nil, errors.New("access denied"))

		f := NewStreamsFeed(mockClient, arn, 0, discard)
		_, err := f.Subscribe(context.Background())

		assert.ErrorContains(t, err, "failed to describe stream")
	})
}

func TestWebSocketFeed(t *testing.T) {
	upgrader := websocket.Upgrader{}
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		conn, err := upgrader.Upgrade(w, r, nil)
		if err != nil {
			return
		}
		defer conn.Close()

		_ = conn.WriteMessage(websocket.TextMessage, []byte("not json"))
		_ = conn.WriteJSON(websockets.Message{Type: "somethingElse", Payload: map[string]string{"x": "y"}})
		_ = conn.WriteJSON(websockets.NewAccountSnapshot(models.Account{UserId: "user1", Coins: 42}, false))
		_ = conn.WriteJSON(websockets.NewAccountSnapshot(models.Account{UserId: "user2"}, true))

		// Hold the connection until the client goes away.
		for {
			if _, _, err := conn.ReadMessage(); err != nil {
				return
			}
		}
	}))
	defer srv.Close()

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	f := NewWebSocketFeed("ws"+strings.TrimPrefix(srv.URL, "http"), nil, 10*time.Millisecond, discard)
	ch, err := f.Subscribe(ctx)
	require.NoError(t, err)

	first := receive(t, ch)
	assert.Equal(t, "user1", first.Account.UserId)
	assert.Equal(t, int64(42), first.Account.Coins)

	second := receive(t, ch)
	assert.Equal(t, "user2", second.Account.UserId)
	assert.True(t, second.Deleted)
}

func TestWebSocketFeedDialError(t *testing.T) {
	f := NewWebSocketFeed("ws://127.0.0.1:1/nowhere", nil, 0, discard)
	_, err := f.Subscribe(context.Background())
	assert.ErrorContains(t, err, "failed to dial snapshot feed")
}

func TestDecodeMessage(t *testing.T) {
	data, err := json.Marshal(websockets.NewAccountSnapshot(models.Account{}, false))
	require.NoError(t, err)

	_, _, err = decodeMessage(data)
	assert.ErrorContains(t, err, "no user_id")
}
