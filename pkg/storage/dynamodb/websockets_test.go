package dynamodb

import (
	"context"
	"errors"
	"testing"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/dynamodb"
	"github.com/aws/aws-sdk-go-v2/service/dynamodb/types"
	"github.com/chris/live-economy/pkg/storage/dynamodb/mocks"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
)

func TestAddConnection(t *testing.T) {
	t.Run("Success", func(t *testing.T) {
		mockClient := new(mocks.DynamoDBAPI)
		mockClient.On("PutItem", mock.Anything, mock.MatchedBy(func(in *dynamodb.PutItemInput) bool {
			id, ok := in.Item["connection_id"].(*types.AttributeValueMemberS)
			_, hasTTL := in.Item["ttl"]
			return aws.ToString(in.TableName) == "connections" && ok && id.Value == "conn-1" && hasTTL
		})).Return(&dynamodb.PutItemOutput{}, nil)

		store := New(mockClient, "accounts", "connections")
		err := store.AddConnection(context.Background(), "conn-1")

		assert.NoError(t, err)
		mockClient.AssertExpectations(t)
	})

	t.Run("Storage Error", func(t *testing.T) {
		mockClient := new(mocks.DynamoDBAPI)
		mockClient.On("PutItem", mock.Anything, mock.Anything).Return(nil, errors.New("boom"))

		store := New(mockClient, "accounts", "connections")
		err := store.AddConnection(context.Background(), "conn-1")

		assert.ErrorContains(t, err, "failed to put connection")
	})
}

func TestRemoveConnection(t *testing.T) {
	mockClient := new(mocks.DynamoDBAPI)
	mockClient.On("DeleteItem", mock.Anything, mock.Anything).Return(&dynamodb.DeleteItemOutput{}, nil)

	store := New(mockClient, "accounts", "connections")
	err := store.RemoveConnection(context.Background(), "conn-1")

	assert.NoError(t, err)
	mockClient.AssertExpectations(t)
}

func TestGetAllConnections(t *testing.T) {
	item := func(id string) map[string]types.AttributeValue {
		return map[string]types.AttributeValue{"connection_id": &types.AttributeValueMemberS{Value: id}}
	}

	t.Run("Success Across Pages", func(t *testing.T) {
		mockClient := new(mocks.DynamoDBAPI)
		mockClient.On("Query", mock.Anything, mock.MatchedBy(func(in *dynamodb.QueryInput) bool {
			return in.ExclusiveStartKey == nil
		})).Return(&dynamodb.QueryOutput{
			Items:            []map[string]types.AttributeValue{item("conn-1")},
			LastEvaluatedKey: item("conn-1"),
		}, nil).Once()
		mockClient.On("Query", mock.Anything, mock.MatchedBy(func(in *dynamodb.QueryInput) bool {
			return in.ExclusiveStartKey != nil
		})).Return(&dynamodb.QueryOutput{
			Items: []map[string]types.AttributeValue{item("conn-2")},
		}, nil).Once()

		store := New(mockClient, "accounts", "connections")
		ids, err := store.GetAllConnections(context.Background())

		assert.NoError(t, err)
		assert.Equal(t, []string{"conn-1", "conn-2"}, ids)
		mockClient.AssertExpectations(t)
	})

	t.Run("Storage Error", func(t *testing.T) {
		mockClient := new(mocks.DynamoDBAPI)
		mockClient.On("Query", mock.Anything, mock.Anything).Return(nil, errors.New("boom"))

		store := New(mockClient, "accounts", "connections")
		_, err := store.GetAllConnections(context.Background())

		assert.ErrorContains(t, err, "failed to query connections table")
	})
}
