package dynamorepo

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/aws/aws-sdk-go-v2/feature/dynamodb/attributevalue"
	"github.com/aws/aws-sdk-go-v2/service/dynamodb"
	"github.com/aws/aws-sdk-go-v2/service/dynamodb/types"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/mrled/suns/dnsrenew/internal/model"
)

// mockDynamo keeps items keyed by pk
type mockDynamo struct {
	items  map[string]map[string]types.AttributeValue
	putErr error
	gets   []*dynamodb.GetItemInput
}

func newMockDynamo() *mockDynamo {
	return &mockDynamo{items: make(map[string]map[string]types.AttributeValue)}
}

func (m *mockDynamo) GetItem(ctx context.Context, params *dynamodb.GetItemInput, optFns ...func(*dynamodb.Options)) (*dynamodb.GetItemOutput, error) {
	m.gets = append(m.gets, params)
	pk := params.Key["pk"].(*types.AttributeValueMemberS).Value
	return &dynamodb.GetItemOutput{Item: m.items[pk]}, nil
}

func (m *mockDynamo) PutItem(ctx context.Context, params *dynamodb.PutItemInput, optFns ...func(*dynamodb.Options)) (*dynamodb.PutItemOutput, error) {
	if m.putErr != nil {
		return nil, m.putErr
	}
	pk := params.Item["pk"].(*types.AttributeValueMemberS).Value
	m.items[pk] = params.Item
	return &dynamodb.PutItemOutput{}, nil
}

func TestDynamoRepository_RoundTrip(t *testing.T) {
	ctx := context.Background()
	client := newMockDynamo()
	repo := NewDynamoRepository(client, "certs", "greenlock.json")
	repo.now = func() time.Time { return time.Date(2025, 10, 17, 12, 0, 0, 0, time.UTC) }

	_, err := repo.Load(ctx)
	require.ErrorIs(t, err, model.ErrBlobNotFound)

	require.NoError(t, repo.Save(ctx, []byte(`{"accounts":{}}`)))

	got, err := repo.Load(ctx)
	require.NoError(t, err)
	assert.Equal(t, `{"accounts":{}}`, string(got))

	last := client.gets[len(client.gets)-1]
	assert.Equal(t, "certs", *last.TableName)
	assert.Equal(t, SnapshotSortKey, last.Key["sk"].(*types.AttributeValueMemberS).Value)

	var dto BlobDTO
	require.NoError(t, attributevalue.UnmarshalMap(client.items["greenlock.json"], &dto))
	assert.Equal(t, 15, dto.Size)
	assert.True(t, dto.UpdatedAt.Equal(time.Date(2025, 10, 17, 12, 0, 0, 0, time.UTC)))
}

func TestDynamoRepository_SaveError(t *testing.T) {
	client := newMockDynamo()
	client.putErr = errors.New("throttled")
	repo := NewDynamoRepository(client, "certs", "greenlock.json")

	err := repo.Save(context.Background(), []byte("{}"))
	require.Error(t, err)
	assert.Contains(t, err.Error(), "throttled")
}

func TestDynamoRepository_Name(t *testing.T) {
	repo := NewDynamoRepository(newMockDynamo(), "certs", "greenlock-development.json")
	assert.Equal(t, "dynamodb://certs/greenlock-development.json", repo.Name())
}

func TestFromBlob(t *testing.T) {
	dto := FromBlob("greenlock.json", []byte("abc"), time.Time{})
	assert.Equal(t, "greenlock.json", dto.PK)
	assert.Equal(t, SnapshotSortKey, dto.SK)
	assert.Equal(t, 3, dto.Size)
	assert.Equal(t, []byte("abc"), dto.ToBlob())
}
