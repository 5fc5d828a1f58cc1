package main

import (
	"context"
	"log/slog"
	"os"

	"github.com/aws/aws-lambda-go/lambda"
	"github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/service/dynamodb"
	appconfig "github.com/chris/live-economy/pkg/config"
	wshandlers "github.com/chris/live-economy/pkg/handlers/websockets"
	dydbstore "github.com/chris/live-economy/pkg/storage/dynamodb"
	"github.com/joho/godotenv"
)

var handler *wshandlers.Handler

func init() {
	logger := slog.New(slog.NewJSONHandler(os.Stdout, nil))
	slog.SetDefault(logger)

	// Load environment variables for local testing.
	_ = godotenv.Load()

	cfg, err := appconfig.Load()
	if err == nil {
		err = cfg.RequireConnections()
	}
	if err != nil {
		logger.Error("invalid configuration", "error", err)
		os.Exit(1)
	}

	awsCfg, err := config.LoadDefaultConfig(context.TODO())
	if err != nil {
		logger.Error("unable to load SDK config", "error", err)
		os.Exit(1)
	}

	store := dydbstore.New(dynamodb.NewFromConfig(awsCfg), cfg.AccountsTable, cfg.ConnectionsTable)
	handler = wshandlers.NewHandler(store, nil)
}

func main() {
	lambda.Start(handler.HandleRequest)
}
