package feed

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/feature/dynamodb/attributevalue"
	"github.com/aws/aws-sdk-go-v2/service/dynamodbstreams"
	"github.com/aws/aws-sdk-go-v2/service/dynamodbstreams/types"
	"github.com/chris/live-economy/pkg/models"
)

// DefaultPollInterval is the pause between GetRecords calls on an idle shard.
const DefaultPollInterval = time.Second

// StreamsAPI is the subset of the DynamoDB Streams client used by StreamsFeed.
type StreamsAPI interface {
	DescribeStream(ctx context.Context, params *dynamodbstreams.DescribeStreamInput, optFns ...func(*dynamodbstreams.Options)) (*dynamodbstreams.DescribeStreamOutput, error)
	GetShardIterator(ctx context.Context, params *dynamodbstreams.GetShardIteratorInput, optFns ...func(*dynamodbstreams.Options)) (*dynamodbstreams.GetShardIteratorOutput, error)
	GetRecords(ctx context.Context, params *dynamodbstreams.GetRecordsInput, optFns ...func(*dynamodbstreams.Options)) (*dynamodbstreams.GetRecordsOutput, error)
}

// StreamsFeed polls the accounts table's stream and emits every new image.
// Open shards are discovered again every refresh interval and whenever a
// shard closes, so child shards created by a split are picked up. Shards
// found after Subscribe are read from their oldest record.
type StreamsFeed struct {
	client    StreamsAPI
	streamARN string
	poll      time.Duration
	refresh   time.Duration
	logger    *slog.Logger
}

// NewStreamsFeed creates a new StreamsFeed.
func NewStreamsFeed(client StreamsAPI, streamARN string, poll time.Duration, logger *slog.Logger) *StreamsFeed {
	if poll <= 0 {
		poll = DefaultPollInterval
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &StreamsFeed{
		client:    client,
		streamARN: streamARN,
		poll:      poll,
		refresh:   30 * poll,
		logger:    logger,
	}
}

// Make sure we conform to the interface
var _ Feed = (*StreamsFeed)(nil)

// Subscribe starts one reader per open shard, beginning at the shard's tip.
func (f *StreamsFeed) Subscribe(ctx context.Context) (<-chan Snapshot, error) {
	shards, err := f.openShards(ctx)
	if err != nil {
		return nil, err
	}

	out := make(chan Snapshot, 64)
	shardClosed := make(chan struct{}, 1)
	var wg sync.WaitGroup
	seen := make(map[string]bool)
	start := func(shardID string, from types.ShardIteratorType) {
		if seen[shardID] {
			return
		}
		seen[shardID] = true
		wg.Add(1)
		go func() {
			defer wg.Done()
			if f.readShard(ctx, shardID, from, out) {
				select {
				case shardClosed <- struct{}{}:
				default:
				}
			}
		}()
	}
	for _, id := range shards {
		start(id, types.ShardIteratorTypeLatest)
	}

	go func() {
		ticker := time.NewTicker(f.refresh)
		defer ticker.Stop()
		for {
			select {
			case <-ctx.Done():
				wg.Wait()
				close(out)
				return
			case <-shardClosed:
			case <-ticker.C:
			}

			shards, err := f.openShards(ctx)
			if err != nil {
				if ctx.Err() == nil {
					f.logger.Warn("failed to refresh stream shards", "error", err)
				}
				continue
			}
			for _, id := range shards {
				start(id, types.ShardIteratorTypeTrimHorizon)
			}
		}
	}()

	return out, nil
}

// openShards lists the stream's shards that are still being written to.
func (f *StreamsFeed) openShards(ctx context.Context) ([]string, error) {
	input := &dynamodbstreams.DescribeStreamInput{StreamArn: aws.String(f.streamARN)}

	var ids []string
	for {
		out, err := f.client.DescribeStream(ctx, input)
		if err != nil {
			return nil, fmt.Errorf("failed to describe stream: %w", err)
		}
		if out.StreamDescription == nil {
			return nil, fmt.Errorf("stream %s has no description", f.streamARN)
		}
		for _, shard := range out.StreamDescription.Shards {
			if shard.SequenceNumberRange != nil && shard.SequenceNumberRange.EndingSequenceNumber != nil {
				continue
			}
			ids = append(ids, aws.ToString(shard.ShardId))
		}
		if out.StreamDescription.LastEvaluatedShardId == nil {
			break
		}
		input.ExclusiveStartShardId = out.StreamDescription.LastEvaluatedShardId
	}
	return ids, nil
}

// iterator opens the shard at from, or just past afterSeq when a record of
// the shard has already been read.
func (f *StreamsFeed) iterator(ctx context.Context, shardID string, from types.ShardIteratorType, afterSeq string) (*string, error) {
	input := &dynamodbstreams.GetShardIteratorInput{
		StreamArn:         aws.String(f.streamARN),
		ShardId:           aws.String(shardID),
		ShardIteratorType: from,
	}
	if afterSeq != "" {
		input.ShardIteratorType = types.ShardIteratorTypeAfterSequenceNumber
		input.SequenceNumber = aws.String(afterSeq)
	}
	out, err := f.client.GetShardIterator(ctx, input)
	if err != nil {
		return nil, fmt.Errorf("failed to get shard iterator: %w", err)
	}
	return out.ShardIterator, nil
}

// readShard emits the shard's records until ctx is done or the shard
// closes. It reports true when the shard was read to its end.
func (f *StreamsFeed) readShard(ctx context.Context, shardID string, from types.ShardIteratorType, out chan<- Snapshot) bool {
	logger := f.logger.With("shard_id", shardID)

	var lastSeq string
	it, err := f.iterator(ctx, shardID, from, lastSeq)
	if err != nil {
		logger.Error("failed to open shard", "error", err)
		return false
	}

	for it != nil {
		res, err := f.client.GetRecords(ctx, &dynamodbstreams.GetRecordsInput{ShardIterator: it})
		if err != nil {
			if ctx.Err() != nil {
				return false
			}
			var expired *types.ExpiredIteratorException
			if errors.As(err, &expired) {
				if it, err = f.iterator(ctx, shardID, from, lastSeq); err != nil {
					logger.Error("failed to renew shard iterator", "error", err)
					return false
				}
				continue
			}
			logger.Warn("failed to get stream records", "error", err)
			if !sleep(ctx, f.poll) {
				return false
			}
			continue
		}

		for _, rec := range res.Records {
			if rec.Dynamodb != nil && rec.Dynamodb.SequenceNumber != nil {
				lastSeq = aws.ToString(rec.Dynamodb.SequenceNumber)
			}
			snap, ok, err := decodeRecord(rec)
			if err != nil {
				logger.Warn("skipping undecodable stream record", "event_id", aws.ToString(rec.EventID), "error", err)
				continue
			}
			if !ok {
				continue
			}
			select {
			case out <- snap:
			case <-ctx.Done():
				return false
			}
		}

		it = res.NextShardIterator
		if it != nil && len(res.Records) == 0 && !sleep(ctx, f.poll) {
			return false
		}
	}
	logger.Info("stream shard closed")
	return true
}

// decodeRecord turns a stream record into a snapshot. Records without an
// image, such as those of a KEYS_ONLY stream, report false.
func decodeRecord(rec types.Record) (Snapshot, bool, error) {
	if rec.Dynamodb == nil {
		return Snapshot{}, false, nil
	}

	image := rec.Dynamodb.NewImage
	deleted := rec.EventName == types.OperationTypeRemove
	if deleted {
		image = rec.Dynamodb.Keys
	}
	if len(image) == 0 {
		return Snapshot{}, false, nil
	}

	item, err := attributevalue.FromDynamoDBStreamsMap(image)
	if err != nil {
		return Snapshot{}, false, fmt.Errorf("failed to convert stream image: %w", err)
	}
	var account models.Account
	if err := attributevalue.UnmarshalMap(item, &account); err != nil {
		return Snapshot{}, false, fmt.Errorf("failed to unmarshal account: %w", err)
	}
	return Snapshot{Account: account, Deleted: deleted}, true, nil
}

func sleep(ctx context.Context, d time.Duration) bool {
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-t.C:
		return true
	case <-ctx.Done():
		return false
	}
}
