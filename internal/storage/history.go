package storage

import (
	"context"
	"fmt"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/feature/dynamodb/attributevalue"
	"github.com/aws/aws-sdk-go-v2/service/dynamodb"
	"github.com/aws/aws-sdk-go-v2/service/dynamodb/types"
	"github.com/google/uuid"
	"github.com/sirupsen/logrus"

	"github.com/homescout/listing-api/internal/models"
	apperrors "github.com/homescout/listing-api/pkg/errors"
)

// maxHistoryPage bounds a single history listing response.
const maxHistoryPage = 100

const defaultHistoryPage = 20

// maxHistorySkip bounds the requested offset so limit+skip stays well within
// int32 for the Dynamo query limit.
const maxHistorySkip = 10000

// DynamoHistoryStore keeps the search ledger in a table with identity as
// partition key and a timestamp-prefixed sort key, so a descending query
// yields newest-first order and a COUNT query serves the quota guard.
type DynamoHistoryStore struct {
	client *dynamodb.Client
	table  string
	logger *logrus.Logger
	now    func() time.Time
}

// NewDynamoHistoryStore constructs a history store over the given table.
func NewDynamoHistoryStore(client *dynamodb.Client, table string, logger *logrus.Logger) *DynamoHistoryStore {
	return &DynamoHistoryStore{client: client, table: table, logger: logger, now: time.Now}
}

// WithClock overrides the timestamp source. Intended for tests.
func (s *DynamoHistoryStore) WithClock(now func() time.Time) *DynamoHistoryStore {
	s.now = now
	return s
}

func sortKey(ts time.Time, recordID string) string {
	return fmt.Sprintf("%s#%s", ts.UTC().Format(time.RFC3339Nano), recordID)
}

// clampHistoryPage normalizes caller-supplied paging parameters.
func clampHistoryPage(limit, skip int) (int, int) {
	if limit <= 0 {
		limit = defaultHistoryPage
	}
	if limit > maxHistoryPage {
		limit = maxHistoryPage
	}
	if skip < 0 {
		skip = 0
	}
	if skip > maxHistorySkip {
		skip = maxHistorySkip
	}
	return limit, skip
}

// Append records one search invocation attributed to identity with the
// current timestamp. Only storage unavailability fails an append.
func (s *DynamoHistoryStore) Append(ctx context.Context, identity string, params map[string]string, resultCount int) (*models.SearchRecord, error) {
	if identity == "" {
		return nil, apperrors.NewAppError(apperrors.CodeValidation, "history identity must not be empty", nil)
	}

	now := s.now()
	rec := &models.SearchRecord{
		Identity:    identity,
		RecordID:    uuid.New().String(),
		Params:      params,
		ResultCount: resultCount,
		CreatedAt:   now,
	}
	rec.SortKey = sortKey(now, rec.RecordID)

	item, err := attributevalue.MarshalMap(rec)
	if err != nil {
		return nil, storageError("history marshal", err)
	}

	start := time.Now()
	_, err = s.client.PutItem(ctx, &dynamodb.PutItemInput{
		TableName: aws.String(s.table),
		Item:      item,
	})
	observe(s.table, "put_item", start, err)
	if err != nil {
		return nil, storageError("history put", err)
	}
	return rec, nil
}

// ListFor returns identity's records newest first. limit is clamped to
// maxHistoryPage; skip drops that many newest records first.
func (s *DynamoHistoryStore) ListFor(ctx context.Context, identity string, limit, skip int) ([]models.SearchRecord, error) {
	limit, skip = clampHistoryPage(limit, skip)

	wanted := limit + skip
	var records []models.SearchRecord
	var lastKey map[string]types.AttributeValue

	for len(records) < wanted {
		start := time.Now()
		result, err := s.client.Query(ctx, &dynamodb.QueryInput{
			TableName:              aws.String(s.table),
			KeyConditionExpression: aws.String("#id = :identity"),
			ExpressionAttributeNames: map[string]string{
				"#id": "identity",
			},
			ExpressionAttributeValues: map[string]types.AttributeValue{
				":identity": &types.AttributeValueMemberS{Value: identity},
			},
			ScanIndexForward:  aws.Bool(false), // newest first
			Limit:             aws.Int32(int32(wanted - len(records))),
			ExclusiveStartKey: lastKey,
		})
		observe(s.table, "query", start, err)
		if err != nil {
			return nil, storageError("history query", err)
		}

		var page []models.SearchRecord
		if err := attributevalue.UnmarshalListOfMaps(result.Items, &page); err != nil {
			return nil, storageError("history unmarshal", err)
		}
		records = append(records, page...)

		lastKey = result.LastEvaluatedKey
		if lastKey == nil {
			break
		}
	}

	if skip >= len(records) {
		return []models.SearchRecord{}, nil
	}
	return records[skip:], nil
}

// CountFor returns the total number of records attributed to identity.
// This is the quota guard's cumulative counter.
func (s *DynamoHistoryStore) CountFor(ctx context.Context, identity string) (int, error) {
	count := 0
	var lastKey map[string]types.AttributeValue

	for {
		start := time.Now()
		result, err := s.client.Query(ctx, &dynamodb.QueryInput{
			TableName:              aws.String(s.table),
			KeyConditionExpression: aws.String("#id = :identity"),
			ExpressionAttributeNames: map[string]string{
				"#id": "identity",
			},
			ExpressionAttributeValues: map[string]types.AttributeValue{
				":identity": &types.AttributeValueMemberS{Value: identity},
			},
			Select:            types.SelectCount,
			ExclusiveStartKey: lastKey,
		})
		observe(s.table, "query", start, err)
		if err != nil {
			return 0, storageError("history count", err)
		}

		count += int(result.Count)
		lastKey = result.LastEvaluatedKey
		if lastKey == nil {
			break
		}
	}
	return count, nil
}

// DeleteOne removes the record with recordID if it belongs to identity.
// Returns NOT_FOUND otherwise.
func (s *DynamoHistoryStore) DeleteOne(ctx context.Context, identity, recordID string) error {
	var lastKey map[string]types.AttributeValue

	for {
		start := time.Now()
		result, err := s.client.Query(ctx, &dynamodb.QueryInput{
			TableName:              aws.String(s.table),
			KeyConditionExpression: aws.String("#id = :identity"),
			FilterExpression:       aws.String("record_id = :rid"),
			ExpressionAttributeNames: map[string]string{
				"#id": "identity",
			},
			ExpressionAttributeValues: map[string]types.AttributeValue{
				":identity": &types.AttributeValueMemberS{Value: identity},
				":rid":      &types.AttributeValueMemberS{Value: recordID},
			},
			ProjectionExpression: aws.String("#id, sk"),
			ExclusiveStartKey:    lastKey,
		})
		observe(s.table, "query", start, err)
		if err != nil {
			return storageError("history query", err)
		}

		if len(result.Items) > 0 {
			start = time.Now()
			_, err = s.client.DeleteItem(ctx, &dynamodb.DeleteItemInput{
				TableName: aws.String(s.table),
				Key: map[string]types.AttributeValue{
					"identity": result.Items[0]["identity"],
					"sk":       result.Items[0]["sk"],
				},
			})
			observe(s.table, "delete_item", start, err)
			if err != nil {
				return storageError("history delete", err)
			}
			return nil
		}

		lastKey = result.LastEvaluatedKey
		if lastKey == nil {
			return apperrors.NewAppErrorf(apperrors.CodeNotFound, nil, "no history record %s for this identity", recordID)
		}
	}
}

// DeleteAll removes every record for identity. Deleting zero records is
// not an error, so repeated calls all succeed.
func (s *DynamoHistoryStore) DeleteAll(ctx context.Context, identity string) error {
	for {
		start := time.Now()
		result, err := s.client.Query(ctx, &dynamodb.QueryInput{
			TableName:              aws.String(s.table),
			KeyConditionExpression: aws.String("#id = :identity"),
			ExpressionAttributeNames: map[string]string{
				"#id": "identity",
			},
			ExpressionAttributeValues: map[string]types.AttributeValue{
				":identity": &types.AttributeValueMemberS{Value: identity},
			},
			ProjectionExpression: aws.String("#id, sk"),
		})
		observe(s.table, "query", start, err)
		if err != nil {
			return storageError("history query", err)
		}

		if len(result.Items) == 0 {
			return nil
		}

		// BatchWriteItem accepts at most 25 deletes per call.
		for i := 0; i < len(result.Items); i += 25 {
			end := i + 25
			if end > len(result.Items) {
				end = len(result.Items)
			}

			requests := make([]types.WriteRequest, 0, end-i)
			for _, item := range result.Items[i:end] {
				requests = append(requests, types.WriteRequest{
					DeleteRequest: &types.DeleteRequest{
						Key: map[string]types.AttributeValue{
							"identity": item["identity"],
							"sk":       item["sk"],
						},
					},
				})
			}

			unprocessed := map[string][]types.WriteRequest{s.table: requests}
			for len(unprocessed[s.table]) > 0 {
				start = time.Now()
				out, err := s.client.BatchWriteItem(ctx, &dynamodb.BatchWriteItemInput{
					RequestItems: unprocessed,
				})
				observe(s.table, "batch_write", start, err)
				if err != nil {
					return storageError("history batch delete", err)
				}
				unprocessed = out.UnprocessedItems
			}
		}
	}
}
