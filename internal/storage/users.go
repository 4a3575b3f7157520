package storage

import (
	"context"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/feature/dynamodb/attributevalue"
	"github.com/aws/aws-sdk-go-v2/service/dynamodb"
	"github.com/aws/aws-sdk-go-v2/service/dynamodb/types"
	"github.com/sirupsen/logrus"

	"github.com/homescout/listing-api/internal/models"
	apperrors "github.com/homescout/listing-api/pkg/errors"
)

const emailIndexName = "email-index"

// DynamoUserStore stores users in a table keyed by user_id with a GSI on
// the unique email.
type DynamoUserStore struct {
	client *dynamodb.Client
	table  string
	logger *logrus.Logger
}

// NewDynamoUserStore constructs a user store over the given table.
func NewDynamoUserStore(client *dynamodb.Client, table string, logger *logrus.Logger) *DynamoUserStore {
	return &DynamoUserStore{client: client, table: table, logger: logger}
}

// FindByEmail looks up a user by exact, case-sensitive email match.
func (s *DynamoUserStore) FindByEmail(ctx context.Context, email string) (*models.User, error) {
	start := time.Now()
	result, err := s.client.Query(ctx, &dynamodb.QueryInput{
		TableName:              aws.String(s.table),
		IndexName:              aws.String(emailIndexName),
		KeyConditionExpression: aws.String("email = :email"),
		ExpressionAttributeValues: map[string]types.AttributeValue{
			":email": &types.AttributeValueMemberS{Value: email},
		},
	})
	observe(s.table, "query", start, err)
	if err != nil {
		return nil, storageError("user query", err)
	}

	if len(result.Items) == 0 {
		return nil, apperrors.NewAppErrorf(apperrors.CodeNotFound, nil, "no user with email %s", email)
	}

	var user models.User
	if err := attributevalue.UnmarshalMap(result.Items[0], &user); err != nil {
		return nil, storageError("user unmarshal", err)
	}
	return &user, nil
}

// FindByID fetches a user by primary key.
func (s *DynamoUserStore) FindByID(ctx context.Context, id string) (*models.User, error) {
	start := time.Now()
	result, err := s.client.GetItem(ctx, &dynamodb.GetItemInput{
		TableName: aws.String(s.table),
		Key: map[string]types.AttributeValue{
			"user_id": &types.AttributeValueMemberS{Value: id},
		},
	})
	observe(s.table, "get_item", start, err)
	if err != nil {
		return nil, storageError("user get", err)
	}

	if result.Item == nil {
		return nil, apperrors.NewAppErrorf(apperrors.CodeNotFound, nil, "no user with id %s", id)
	}

	var user models.User
	if err := attributevalue.UnmarshalMap(result.Item, &user); err != nil {
		return nil, storageError("user unmarshal", err)
	}
	return &user, nil
}

// Insert creates the user, enforcing email uniqueness. Returns CONFLICT
// when the email is already registered.
func (s *DynamoUserStore) Insert(ctx context.Context, user *models.User) error {
	// Uniqueness pre-check against the email index. Concurrent inserts of
	// the same email can still slip through between check and put; the
	// conditional put below keeps ids unique regardless.
	if _, err := s.FindByEmail(ctx, user.Email); err == nil {
		return apperrors.NewAppErrorf(apperrors.CodeConflict, nil, "email %s already registered", user.Email)
	} else if !apperrors.IsCode(err, apperrors.CodeNotFound) {
		return err
	}

	item, err := attributevalue.MarshalMap(user)
	if err != nil {
		return storageError("user marshal", err)
	}

	start := time.Now()
	_, err = s.client.PutItem(ctx, &dynamodb.PutItemInput{
		TableName:           aws.String(s.table),
		Item:                item,
		ConditionExpression: aws.String("attribute_not_exists(user_id)"),
	})
	observe(s.table, "put_item", start, err)
	if err != nil {
		if isConditionalCheckFailed(err) {
			return apperrors.NewAppError(apperrors.CodeConflict, "user already exists", err)
		}
		return storageError("user put", err)
	}
	return nil
}

// Delete removes a user by id. Returns NOT_FOUND when the id is unknown.
func (s *DynamoUserStore) Delete(ctx context.Context, id string) error {
	start := time.Now()
	_, err := s.client.DeleteItem(ctx, &dynamodb.DeleteItemInput{
		TableName: aws.String(s.table),
		Key: map[string]types.AttributeValue{
			"user_id": &types.AttributeValueMemberS{Value: id},
		},
		ConditionExpression: aws.String("attribute_exists(user_id)"),
	})
	observe(s.table, "delete_item", start, err)
	if err != nil {
		if isConditionalCheckFailed(err) {
			return apperrors.NewAppErrorf(apperrors.CodeNotFound, err, "no user with id %s", id)
		}
		return storageError("user delete", err)
	}
	return nil
}

// ListAll returns every user. Admin-only surface; the table is small.
func (s *DynamoUserStore) ListAll(ctx context.Context) ([]models.User, error) {
	var users []models.User
	var lastKey map[string]types.AttributeValue

	for {
		start := time.Now()
		result, err := s.client.Scan(ctx, &dynamodb.ScanInput{
			TableName:         aws.String(s.table),
			ExclusiveStartKey: lastKey,
		})
		observe(s.table, "scan", start, err)
		if err != nil {
			return nil, storageError("user scan", err)
		}

		var page []models.User
		if err := attributevalue.UnmarshalListOfMaps(result.Items, &page); err != nil {
			return nil, storageError("user unmarshal", err)
		}
		users = append(users, page...)

		lastKey = result.LastEvaluatedKey
		if lastKey == nil {
			break
		}
	}
	return users, nil
}
