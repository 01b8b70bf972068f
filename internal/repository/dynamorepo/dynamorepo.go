package dynamorepo

import (
	"context"
	"fmt"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/feature/dynamodb/attributevalue"
	"github.com/aws/aws-sdk-go-v2/service/dynamodb"
	"github.com/aws/aws-sdk-go-v2/service/dynamodb/types"

	"github.com/mrled/suns/dnsrenew/internal/model"
)

// DynamoClient is the subset of the DynamoDB API used by the repository
type DynamoClient interface {
	GetItem(ctx context.Context, params *dynamodb.GetItemInput, optFns ...func(*dynamodb.Options)) (*dynamodb.GetItemOutput, error)
	PutItem(ctx context.Context, params *dynamodb.PutItemInput, optFns ...func(*dynamodb.Options)) (*dynamodb.PutItemOutput, error)
}

// DynamoRepository keeps one document as a single DynamoDB item
type DynamoRepository struct {
	client    DynamoClient
	tableName string
	blobName  string
	now       func() time.Time
}

// NewDynamoRepository creates a new DynamoDB-backed repository for the named document
func NewDynamoRepository(client DynamoClient, tableName, blobName string) *DynamoRepository {
	return &DynamoRepository{
		client:    client,
		tableName: tableName,
		blobName:  blobName,
		now:       time.Now,
	}
}

// Name implements model.BlobRepository
func (r *DynamoRepository) Name() string {
	return fmt.Sprintf("dynamodb://%s/%s", r.tableName, r.blobName)
}

// Load implements model.BlobRepository
func (r *DynamoRepository) Load(ctx context.Context) ([]byte, error) {
	result, err := r.client.GetItem(ctx, &dynamodb.GetItemInput{
		TableName: aws.String(r.tableName),
		Key: map[string]types.AttributeValue{
			"pk": &types.AttributeValueMemberS{Value: r.blobName},
			"sk": &types.AttributeValueMemberS{Value: SnapshotSortKey},
		},
		ConsistentRead: aws.Bool(true),
	})
	if err != nil {
		return nil, fmt.Errorf("failed to get document: %w", err)
	}

	if result.Item == nil {
		return nil, model.ErrBlobNotFound
	}

	var dto BlobDTO
	if err := attributevalue.UnmarshalMap(result.Item, &dto); err != nil {
		return nil, fmt.Errorf("failed to unmarshal document: %w", err)
	}
	if dto.Document == "" {
		return nil, model.ErrBlobNotFound
	}

	return dto.ToBlob(), nil
}

// Save implements model.BlobRepository with an unconditional put
func (r *DynamoRepository) Save(ctx context.Context, data []byte) error {
	item, err := attributevalue.MarshalMap(FromBlob(r.blobName, data, r.now().UTC()))
	if err != nil {
		return fmt.Errorf("failed to marshal document: %w", err)
	}

	_, err = r.client.PutItem(ctx, &dynamodb.PutItemInput{
		TableName: aws.String(r.tableName),
		Item:      item,
	})
	if err != nil {
		return fmt.Errorf("failed to store document: %w", err)
	}

	return nil
}
