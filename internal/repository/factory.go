package repository

import (
	"context"
	"fmt"
	"log/slog"
	"path/filepath"

	"github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/service/dynamodb"
	"github.com/aws/aws-sdk-go-v2/service/s3"

	"github.com/mrled/suns/dnsrenew/internal/logger"
	"github.com/mrled/suns/dnsrenew/internal/model"
	"github.com/mrled/suns/dnsrenew/internal/repository/dynamorepo"
	"github.com/mrled/suns/dnsrenew/internal/repository/memrepo"
	"github.com/mrled/suns/dnsrenew/internal/repository/s3repo"
)

// RepositoryConfig holds configuration for creating a repository
type RepositoryConfig struct {
	// Environment selects the document name, see BlobName
	Environment string

	// FilePath for JSON file persistence. A directory path gets BlobName appended.
	FilePath string

	// S3Bucket keeps the document as an object in this bucket
	S3Bucket string

	// S3Prefix is prepended to the object key
	S3Prefix string

	// DynamoTable is the DynamoDB table name for persistence
	DynamoTable string

	// DynamoEndpoint is an optional custom DynamoDB endpoint URL
	DynamoEndpoint string

	Logger *slog.Logger
}

// NewRepository creates a BlobRepository based on the provided configuration.
// DynamoDB wins over S3, S3 over a file; with none configured the document
// lives in memory only.
func NewRepository(ctx context.Context, cfg RepositoryConfig) (model.BlobRepository, error) {
	log := logger.OrDefault(cfg.Logger)
	name := BlobName(cfg.Environment)

	if cfg.DynamoTable != "" || cfg.S3Bucket != "" {
		awsCfg, err := config.LoadDefaultConfig(ctx)
		if err != nil {
			return nil, fmt.Errorf("failed to load AWS config: %w", err)
		}

		if cfg.DynamoTable != "" {
			var client *dynamodb.Client
			if cfg.DynamoEndpoint != "" {
				client = dynamodb.NewFromConfig(awsCfg, func(o *dynamodb.Options) {
					o.BaseEndpoint = &cfg.DynamoEndpoint
				})
				log.Info("Using DynamoDB endpoint", slog.String("endpoint", cfg.DynamoEndpoint))
			} else {
				client = dynamodb.NewFromConfig(awsCfg)
			}

			log.Info("Using DynamoDB table", slog.String("table", cfg.DynamoTable), slog.String("blob", name))
			return dynamorepo.NewDynamoRepository(client, cfg.DynamoTable, name), nil
		}

		key := cfg.S3Prefix + name
		log.Info("Using S3 object", slog.String("bucket", cfg.S3Bucket), slog.String("key", key))
		return s3repo.New(s3.NewFromConfig(awsCfg), cfg.S3Bucket, key), nil
	}

	if cfg.FilePath != "" {
		path := cfg.FilePath
		if filepath.Ext(path) == "" {
			path = filepath.Join(path, name)
		}
		repo, err := memrepo.NewMemoryRepositoryWithPersistence(path)
		if err != nil {
			return nil, fmt.Errorf("failed to create repository: %w", err)
		}
		log.Info("Using JSON persistence", slog.String("path", path))
		return repo, nil
	}

	log.Warn("No persistence configured; store will not survive this process")
	return memrepo.NewMemoryRepository(), nil
}
