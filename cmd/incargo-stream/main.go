// Command incargo-stream is the Lambda function attached to the node table
// stream. It keeps the refValue of every record equal to its path.
package main

import (
	"context"
	"log/slog"
	"os"

	"github.com/aws/aws-lambda-go/lambda"
	awsconfig "github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/service/dynamodb"

	"github.com/jacentio/incargo/internal/config"
	"github.com/jacentio/incargo/store"
	"github.com/jacentio/incargo/stream"
)

func main() {
	cfg, err := config.Load("")
	if err != nil {
		slog.Error("failed to load config", "error", err)
		os.Exit(1)
	}
	cfg.Log.Format = "json"
	logger := cfg.Logger(os.Stdout)

	awsCfg, err := awsconfig.LoadDefaultConfig(context.Background())
	if err != nil {
		logger.Error("failed to load aws config", "error", err)
		os.Exit(1)
	}

	rs := store.NewDynamo(dynamodb.NewFromConfig(awsCfg), cfg.StoreDynamo())
	handler := stream.NewHandler(rs, logger)

	lambda.Start(handler.HandleRefRepair)
}
