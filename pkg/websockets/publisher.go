package websockets

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/service/apigatewaymanagementapi"
	apigwtypes "github.com/aws/aws-sdk-go-v2/service/apigatewaymanagementapi/types"
)

// PostToConnectionAPI is the subset of the API Gateway management client used by DefaultPublisher.
type PostToConnectionAPI interface {
	PostToConnection(ctx context.Context, params *apigatewaymanagementapi.PostToConnectionInput, optFns ...func(*apigatewaymanagementapi.Options)) (*apigatewaymanagementapi.PostToConnectionOutput, error)
}

// DefaultPublisher is the default implementation of the Publisher interface.
// It posts every message to every connection registered in the store.
type DefaultPublisher struct {
	store       AllConnectionsGetter
	connManager ConnectionManager
	apiGwClient PostToConnectionAPI
	logger      *slog.Logger
}

// NewPublisher creates a new DefaultPublisher for the given websocket API endpoint.
func NewPublisher(ctx context.Context, store AllConnectionsGetter, connManager ConnectionManager, apiEndpoint string) (*DefaultPublisher, error) {
	cfg, err := config.LoadDefaultConfig(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to load aws config: %w", err)
	}

	apiGwClient := apigatewaymanagementapi.NewFromConfig(cfg, func(o *apigatewaymanagementapi.Options) {
		o.BaseEndpoint = aws.String(apiEndpoint)
	})

	return NewPublisherWithClient(store, connManager, apiGwClient), nil
}

// NewPublisherWithClient creates a DefaultPublisher around an existing client.
func NewPublisherWithClient(store AllConnectionsGetter, connManager ConnectionManager, client PostToConnectionAPI) *DefaultPublisher {
	return &DefaultPublisher{
		store:       store,
		connManager: connManager,
		apiGwClient: client,
		logger:      slog.Default(),
	}
}

// Make sure we conform to the interface
var _ Publisher = (*DefaultPublisher)(nil)

// Publish sends a message to all connected clients. Connections that API
// Gateway reports as gone are removed; other delivery errors are logged.
func (p *DefaultPublisher) Publish(ctx context.Context, message Message) error {
	connectionIDs, err := p.store.GetAllConnections(ctx)
	if err != nil {
		return fmt.Errorf("failed to get all connections: %w", err)
	}

	payload, err := json.Marshal(message)
	if err != nil {
		return fmt.Errorf("failed to marshal message: %w", err)
	}

	for _, connectionID := range connectionIDs {
		_, err := p.apiGwClient.PostToConnection(ctx, &apigatewaymanagementapi.PostToConnectionInput{
			ConnectionId: aws.String(connectionID),
			Data:         payload,
		})
		if err == nil {
			continue
		}

		var goneErr *apigwtypes.GoneException
		if errors.As(err, &goneErr) {
			p.logger.Info("stale connection found, deleting", "connectionId", connectionID)
			if err := p.connManager.RemoveConnection(ctx, connectionID); err != nil {
				p.logger.Error("failed to delete stale connection", "error", err)
			}
		} else {
			p.logger.Error("failed to post to connection", "connectionId", connectionID, "error", err)
		}
	}

	return nil
}
