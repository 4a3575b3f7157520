package storage

import (
	"context"
	"strconv"
	"strings"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/feature/dynamodb/attributevalue"
	"github.com/aws/aws-sdk-go-v2/service/dynamodb"
	"github.com/aws/aws-sdk-go-v2/service/dynamodb/types"
	"github.com/sirupsen/logrus"

	"github.com/homescout/listing-api/internal/models"
	apperrors "github.com/homescout/listing-api/pkg/errors"
)

// DynamoListingStore stores listings in a table keyed by listing_id and
// serves searches as filtered scans.
type DynamoListingStore struct {
	client *dynamodb.Client
	table  string
	logger *logrus.Logger
}

// NewDynamoListingStore constructs a listing store over the given table.
func NewDynamoListingStore(client *dynamodb.Client, table string, logger *logrus.Logger) *DynamoListingStore {
	return &DynamoListingStore{client: client, table: table, logger: logger}
}

// Search returns every listing matching the supplied filter fields. An
// empty filter returns the full table.
func (s *DynamoListingStore) Search(ctx context.Context, filter models.ListingFilter) ([]models.Listing, error) {
	input := &dynamodb.ScanInput{
		TableName: aws.String(s.table),
	}
	applyFilter(input, filter)

	var listings []models.Listing
	for {
		start := time.Now()
		result, err := s.client.Scan(ctx, input)
		observe(s.table, "scan", start, err)
		if err != nil {
			return nil, storageError("listing scan", err)
		}

		var page []models.Listing
		if err := attributevalue.UnmarshalListOfMaps(result.Items, &page); err != nil {
			return nil, storageError("listing unmarshal", err)
		}
		listings = append(listings, page...)

		if result.LastEvaluatedKey == nil {
			break
		}
		input.ExclusiveStartKey = result.LastEvaluatedKey
	}
	return listings, nil
}

// applyFilter builds the scan filter expression from the supplied fields.
// "type" collides with a DynamoDB reserved word, hence the name alias.
func applyFilter(input *dynamodb.ScanInput, filter models.ListingFilter) {
	if filter.IsEmpty() {
		return
	}

	var conds []string
	names := make(map[string]string)
	values := make(map[string]types.AttributeValue)

	if filter.Type != nil {
		conds = append(conds, "#lt = :type")
		names["#lt"] = "type"
		values[":type"] = &types.AttributeValueMemberS{Value: *filter.Type}
	}
	if filter.Neighborhood != nil {
		conds = append(conds, "neighborhood = :neighborhood")
		values[":neighborhood"] = &types.AttributeValueMemberS{Value: *filter.Neighborhood}
	}
	if filter.Bedrooms != nil {
		conds = append(conds, "bedrooms = :bedrooms")
		values[":bedrooms"] = &types.AttributeValueMemberN{Value: strconv.Itoa(*filter.Bedrooms)}
	}
	if filter.Bathrooms != nil {
		conds = append(conds, "bathrooms = :bathrooms")
		values[":bathrooms"] = &types.AttributeValueMemberN{Value: strconv.Itoa(*filter.Bathrooms)}
	}
	if filter.ParkingSpots != nil {
		conds = append(conds, "parking_spots = :parking_spots")
		values[":parking_spots"] = &types.AttributeValueMemberN{Value: strconv.Itoa(*filter.ParkingSpots)}
	}

	input.FilterExpression = aws.String(strings.Join(conds, " AND "))
	input.ExpressionAttributeValues = values
	if len(names) > 0 {
		input.ExpressionAttributeNames = names
	}
}

// Insert persists a new listing.
func (s *DynamoListingStore) Insert(ctx context.Context, listing *models.Listing) error {
	item, err := attributevalue.MarshalMap(listing)
	if err != nil {
		return storageError("listing marshal", err)
	}

	start := time.Now()
	_, err = s.client.PutItem(ctx, &dynamodb.PutItemInput{
		TableName:           aws.String(s.table),
		Item:                item,
		ConditionExpression: aws.String("attribute_not_exists(listing_id)"),
	})
	observe(s.table, "put_item", start, err)
	if err != nil {
		if isConditionalCheckFailed(err) {
			return apperrors.NewAppError(apperrors.CodeConflict, "listing already exists", err)
		}
		return storageError("listing put", err)
	}
	return nil
}
