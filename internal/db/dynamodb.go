package db

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/feature/dynamodb/attributevalue"
	"github.com/aws/aws-sdk-go-v2/service/dynamodb"
	"github.com/aws/aws-sdk-go-v2/service/dynamodb/types"
	"github.com/spacesedan/narratives/internal/logging"
	"github.com/spacesedan/narratives/internal/models"
	"github.com/spacesedan/narratives/internal/utils"
)

const (
	DYNAMODB_MAX_BATCH   = 25
	DYNAMODB_MAX_RETRIES = 3
	NARRATIVE_TTL        = 30 * 24 * time.Hour
)

type dynamoAPI interface {
	BatchWriteItem(ctx context.Context, params *dynamodb.BatchWriteItemInput, optFns ...func(*dynamodb.Options)) (*dynamodb.BatchWriteItemOutput, error)
	Scan(ctx context.Context, params *dynamodb.ScanInput, optFns ...func(*dynamodb.Options)) (*dynamodb.ScanOutput, error)
}

type DynamoStore struct {
	client  dynamoAPI
	table   string
	logger  *slog.Logger
	backoff time.Duration
}

func NewDynamoStore(client dynamoAPI, table string, logger *slog.Logger) *DynamoStore {
	if logger == nil {
		logger = logging.Discard()
	}
	return &DynamoStore{client: client, table: table, logger: logger, backoff: 500 * time.Millisecond}
}

type dynamoNarrative struct {
	models.Narrative
	ExpiresAt int64 `dynamodbav:"expires_at"`
}

func (s *DynamoStore) SaveNarratives(ctx context.Context, narratives []models.Narrative) error {
	expiresAt := time.Now().Add(NARRATIVE_TTL).Unix()

	for _, chunk := range utils.Chunk(narratives, DYNAMODB_MAX_BATCH) {
		if err := ctx.Err(); err != nil {
			s.logger.Warn("[DynamoDB] context canceled")
			return err
		}

		writeRequests := make([]types.WriteRequest, 0, len(chunk))
		for _, n := range chunk {
			item, err := attributevalue.MarshalMap(dynamoNarrative{Narrative: n, ExpiresAt: expiresAt})
			if err != nil {
				return fmt.Errorf("[DynamoDB] Failed to marshal narrative %s: %w", n.ID, err)
			}
			writeRequests = append(writeRequests, types.WriteRequest{
				PutRequest: &types.PutRequest{Item: item},
			})
		}

		if err := s.batchWrite(ctx, writeRequests); err != nil {
			return err
		}
	}

	s.logger.Info("[DynamoDB] Successfully stored narratives", slog.Int("count", len(narratives)))
	return nil
}

func (s *DynamoStore) batchWrite(ctx context.Context, requests []types.WriteRequest) error {
	out, err := s.client.BatchWriteItem(ctx, &dynamodb.BatchWriteItemInput{
		RequestItems: map[string][]types.WriteRequest{s.table: requests},
	})
	if err != nil {
		return fmt.Errorf("[DynamoDB] Failed to batch write narratives: %w", err)
	}

	retryCount := 0
	backoff := s.backoff
	for len(out.UnprocessedItems) > 0 && retryCount < DYNAMODB_MAX_RETRIES {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-time.After(backoff):
		}
		backoff *= 2

		s.logger.Warn("[DynamoDB] Retrying unprocessed items...",
			slog.Int("retry_attempt", retryCount+1),
			slog.Int("remaining_items", len(out.UnprocessedItems[s.table])))

		out, err = s.client.BatchWriteItem(ctx, &dynamodb.BatchWriteItemInput{
			RequestItems: out.UnprocessedItems,
		})
		if err != nil {
			return fmt.Errorf("[DynamoDB] Failed to retry batch write: %w", err)
		}
		retryCount++
	}

	if remaining := len(out.UnprocessedItems[s.table]); remaining > 0 {
		return fmt.Errorf("[DynamoDB] %d narratives were not written after %d retries", remaining, DYNAMODB_MAX_RETRIES)
	}
	return nil
}

// AllNarratives scans the whole table.
func (s *DynamoStore) AllNarratives(ctx context.Context) ([]models.Narrative, error) {
	var narratives []models.Narrative
	paginator := dynamodb.NewScanPaginator(s.client, &dynamodb.ScanInput{
		TableName: aws.String(s.table),
	})

	for paginator.HasMorePages() {
		out, err := paginator.NextPage(ctx)
		if err != nil {
			return nil, fmt.Errorf("[DynamoDB] Scan for narratives failed: %w", err)
		}
		var page []models.Narrative
		if err := attributevalue.UnmarshalListOfMaps(out.Items, &page); err != nil {
			return nil, fmt.Errorf("[DynamoDB] Unable to unmarshal narrative page: %w", err)
		}
		narratives = append(narratives, page...)
	}
	return narratives, nil
}

func (s *DynamoStore) Close() error { return nil }
