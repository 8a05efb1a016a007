package db

import (
	"context"
	"errors"
	"fmt"
	"testing"
	"time"

	"github.com/aws/aws-sdk-go-v2/feature/dynamodb/attributevalue"
	"github.com/aws/aws-sdk-go-v2/service/dynamodb"
	"github.com/aws/aws-sdk-go-v2/service/dynamodb/types"
	"github.com/spacesedan/narratives/internal/logging"
	"github.com/spacesedan/narratives/internal/models"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeDynamo struct {
	batchSizes  []int
	unprocessed int // calls that hand every request back unprocessed
	writeErr    error
	pages       []*dynamodb.ScanOutput
	scans       int
}

func (f *fakeDynamo) BatchWriteItem(ctx context.Context, in *dynamodb.BatchWriteItemInput, _ ...func(*dynamodb.Options)) (*dynamodb.BatchWriteItemOutput, error) {
	if f.writeErr != nil {
		return nil, f.writeErr
	}
	total := 0
	for _, reqs := range in.RequestItems {
		total += len(reqs)
	}
	f.batchSizes = append(f.batchSizes, total)

	if f.unprocessed > 0 {
		f.unprocessed--
		return &dynamodb.BatchWriteItemOutput{UnprocessedItems: in.RequestItems}, nil
	}
	return &dynamodb.BatchWriteItemOutput{}, nil
}

func (f *fakeDynamo) Scan(ctx context.Context, in *dynamodb.ScanInput, _ ...func(*dynamodb.Options)) (*dynamodb.ScanOutput, error) {
	out := f.pages[f.scans]
	f.scans++
	return out, nil
}

func manyNarratives(n int) []models.Narrative {
	out := make([]models.Narrative, n)
	for i := range out {
		out[i] = testNarrative(fmt.Sprintf("narrative_%d", i), time.Now(), 0.8)
	}
	return out
}

func newTestDynamoStore(api dynamoAPI) *DynamoStore {
	s := NewDynamoStore(api, "narratives", logging.Discard())
	s.backoff = time.Millisecond
	return s
}

func TestDynamoSaveChunksWrites(t *testing.T) {
	api := &fakeDynamo{}
	require.NoError(t, newTestDynamoStore(api).SaveNarratives(context.Background(), manyNarratives(30)))
	assert.Equal(t, []int{25, 5}, api.batchSizes)
}

func TestDynamoSaveRetriesUnprocessed(t *testing.T) {
	api := &fakeDynamo{unprocessed: 2}
	require.NoError(t, newTestDynamoStore(api).SaveNarratives(context.Background(), manyNarratives(3)))
	assert.Equal(t, []int{3, 3, 3}, api.batchSizes)
}

func TestDynamoSaveGivesUpAfterRetries(t *testing.T) {
	api := &fakeDynamo{unprocessed: DYNAMODB_MAX_RETRIES + 1}
	err := newTestDynamoStore(api).SaveNarratives(context.Background(), manyNarratives(2))
	require.Error(t, err)
	assert.Contains(t, err.Error(), "not written")
}

func TestDynamoSaveWrapsClientError(t *testing.T) {
	api := &fakeDynamo{writeErr: errors.New("throttled")}
	err := newTestDynamoStore(api).SaveNarratives(context.Background(), manyNarratives(1))
	require.Error(t, err)
	assert.ErrorIs(t, err, api.writeErr)
}

func TestDynamoAllNarrativesPaginates(t *testing.T) {
	detected := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)
	first, err := attributevalue.MarshalMap(testNarrative("first", detected, 0.7))
	require.NoError(t, err)
	second, err := attributevalue.MarshalMap(testNarrative("second", detected, 0.9))
	require.NoError(t, err)

	api := &fakeDynamo{pages: []*dynamodb.ScanOutput{
		{Items: []map[string]types.AttributeValue{first}, LastEvaluatedKey: map[string]types.AttributeValue{
			"id": &types.AttributeValueMemberS{Value: "first"},
		}},
		{Items: []map[string]types.AttributeValue{second}},
	}}

	got, err := newTestDynamoStore(api).AllNarratives(context.Background())
	require.NoError(t, err)
	require.Len(t, got, 2)
	assert.Equal(t, "first", got[0].ID)
	assert.Equal(t, "second", got[1].ID)
	assert.Equal(t, []string{"news", "rss"}, got[1].Sources)
	assert.Equal(t, 2, api.scans)
}
