package main

import (
	"context"
	"fmt"
	"io"
	"log/slog"

	"github.com/aws/aws-sdk-go-v2/aws"
	awsconfig "github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/service/dynamodb"

	"github.com/jacentio/incargo/internal/config"
	"github.com/jacentio/incargo/store"
)

// openStore opens the configured backend. The closer is nil when the backend
// holds nothing to release.
func openStore(ctx context.Context, cfg *config.Config, logger *slog.Logger) (store.RecordStore, io.Closer, error) {
	switch cfg.Store.Backend {
	case config.BackendMemory:
		logger.Warn("using the in-memory store, records are lost on exit")
		return store.NewMemory(), nil, nil

	case config.BackendSQLite:
		s, err := store.OpenSQLite(cfg.Store.SQLite.Path)
		if err != nil {
			return nil, nil, err
		}
		logger.Debug("opened sqlite store", "path", s.Path())
		return s, s, nil

	case config.BackendDynamo:
		client, err := newDynamoClient(ctx, cfg.Store.Dynamo)
		if err != nil {
			return nil, nil, err
		}
		d := store.NewDynamo(client, cfg.StoreDynamo())
		logger.Debug("using dynamodb store",
			"table", d.Config().Table,
			"namespace", d.Config().Namespace,
		)
		return d, nil, nil
	}
	return nil, nil, fmt.Errorf("unknown backend %q", cfg.Store.Backend)
}

// newDynamoClient builds a DynamoDB client from the shared AWS configuration,
// honouring the region, profile and endpoint overrides.
func newDynamoClient(ctx context.Context, c config.DynamoConfig) (*dynamodb.Client, error) {
	var opts []func(*awsconfig.LoadOptions) error
	if c.Region != "" {
		opts = append(opts, awsconfig.WithRegion(c.Region))
	}
	if c.Profile != "" {
		opts = append(opts, awsconfig.WithSharedConfigProfile(c.Profile))
	}

	awsCfg, err := awsconfig.LoadDefaultConfig(ctx, opts...)
	if err != nil {
		return nil, fmt.Errorf("load aws config: %w", err)
	}

	return dynamodb.NewFromConfig(awsCfg, func(o *dynamodb.Options) {
		if c.Endpoint != "" {
			o.BaseEndpoint = aws.String(c.Endpoint)
		}
	}), nil
}
