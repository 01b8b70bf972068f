package dynamorepo

import (
	"time"
)

// SnapshotSortKey is the sort key of the item holding a store document
const SnapshotSortKey = "snapshot"

// BlobDTO represents the persistence layer DTO for DynamoDB
// It maps a stored document to DynamoDB's key structure where:
// - PK (partition key) is the blob name
// - SK (sort key) is always SnapshotSortKey
type BlobDTO struct {
	PK        string    `dynamodbav:"pk"`
	SK        string    `dynamodbav:"sk"`
	Document  string    `dynamodbav:"Document"`
	Size      int       `dynamodbav:"Size"`
	UpdatedAt time.Time `dynamodbav:"UpdatedAt"`
}

// FromBlob creates a BlobDTO for the document stored under name
func FromBlob(name string, data []byte, updatedAt time.Time) *BlobDTO {
	return &BlobDTO{
		PK:        name,
		SK:        SnapshotSortKey,
		Document:  string(data),
		Size:      len(data),
		UpdatedAt: updatedAt,
	}
}

// ToBlob returns the stored document
func (dto *BlobDTO) ToBlob() []byte {
	return []byte(dto.Document)
}
