package dynamodb

import (
	"context"
	"fmt"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/feature/dynamodb/attributevalue"
	"github.com/aws/aws-sdk-go-v2/service/dynamodb"
	"github.com/aws/aws-sdk-go-v2/service/dynamodb/types"
)

const (
	connectionsPK    = "connections"
	connectionsIndex = "pk-index"
	connectionTTL    = 2 * time.Hour
)

// WebSocketConnection represents a record in the WebSocket connections table.
type WebSocketConnection struct {
	ConnectionID string `dynamodbav:"connection_id"`
	PK           string `dynamodbav:"pk"`
	ConnectedAt  int64  `dynamodbav:"connected_at"`
	TTL          int64  `dynamodbav:"ttl"`
}

// AddConnection saves a new WebSocket connection ID to the database.
// Connections expire on their own after connectionTTL in case $disconnect is never delivered.
func (s *Store) AddConnection(ctx context.Context, connectionID string) error {
	now := time.Now()
	conn := WebSocketConnection{
		ConnectionID: connectionID,
		PK:           connectionsPK,
		ConnectedAt:  now.Unix(),
		TTL:          now.Add(connectionTTL).Unix(),
	}
	item, err := attributevalue.MarshalMap(conn)
	if err != nil {
		return fmt.Errorf("failed to marshal connection: %w", err)
	}

	_, err = s.Client.PutItem(ctx, &dynamodb.PutItemInput{
		TableName: aws.String(s.WebsocketConnectionsTableName),
		Item:      item,
	})
	if err != nil {
		return fmt.Errorf("failed to put connection: %w", err)
	}

	return nil
}

// RemoveConnection deletes a WebSocket connection ID from the database.
func (s *Store) RemoveConnection(ctx context.Context, connectionID string) error {
	_, err := s.Client.DeleteItem(ctx, &dynamodb.DeleteItemInput{
		TableName: aws.String(s.WebsocketConnectionsTableName),
		Key: map[string]types.AttributeValue{
			"connection_id": &types.AttributeValueMemberS{Value: connectionID},
		},
	})
	if err != nil {
		return fmt.Errorf("failed to delete connection: %w", err)
	}

	return nil
}

// GetAllConnections retrieves all active WebSocket connection IDs from the database.
func (s *Store) GetAllConnections(ctx context.Context) ([]string, error) {
	input := &dynamodb.QueryInput{
		TableName:              aws.String(s.WebsocketConnectionsTableName),
		IndexName:              aws.String(connectionsIndex),
		KeyConditionExpression: aws.String("pk = :pk"),
		ExpressionAttributeValues: map[string]types.AttributeValue{
			":pk": &types.AttributeValueMemberS{Value: connectionsPK},
		},
		ProjectionExpression: aws.String("connection_id"),
	}

	var connectionIDs []string
	for {
		queryOutput, err := s.Client.Query(ctx, input)
		if err != nil {
			return nil, fmt.Errorf("failed to query connections table: %w", err)
		}

		var connections []WebSocketConnection
		if err := attributevalue.UnmarshalListOfMaps(queryOutput.Items, &connections); err != nil {
			return nil, fmt.Errorf("failed to unmarshal connections: %w", err)
		}
		for _, conn := range connections {
			connectionIDs = append(connectionIDs, conn.ConnectionID)
		}

		if len(queryOutput.LastEvaluatedKey) == 0 {
			break
		}
		input.ExclusiveStartKey = queryOutput.LastEvaluatedKey
	}

	return connectionIDs, nil
}
