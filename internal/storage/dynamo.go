package storage

import (
	"context"
	"errors"
	"fmt"
	"time"

	awsconfig "github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/service/dynamodb"
	"github.com/aws/aws-sdk-go-v2/service/dynamodb/types"
	"github.com/sirupsen/logrus"

	"github.com/homescout/listing-api/internal/config"
	"github.com/homescout/listing-api/internal/metrics"
	apperrors "github.com/homescout/listing-api/pkg/errors"
)

// NewDynamoClient creates a DynamoDB client from the AWS config chain.
// With an explicit profile it uses shared credentials; otherwise the default
// chain applies (IRSA in Kubernetes, instance roles, env vars).
func NewDynamoClient(cfg *config.Config, logger *logrus.Logger) (*dynamodb.Client, error) {
	ctx := context.Background()

	opts := []func(*awsconfig.LoadOptions) error{
		awsconfig.WithRegion(cfg.DynamoDB.Region),
	}
	if cfg.AWS.Profile != "" {
		opts = append(opts, awsconfig.WithSharedConfigProfile(cfg.AWS.Profile))
	}

	awsCfg, err := awsconfig.LoadDefaultConfig(ctx, opts...)
	if err != nil {
		return nil, fmt.Errorf("failed to load AWS config: %w", err)
	}

	client := dynamodb.NewFromConfig(awsCfg)

	logger.WithFields(logrus.Fields{
		"region":         cfg.DynamoDB.Region,
		"users_table":    cfg.DynamoDB.UsersTableName,
		"listings_table": cfg.DynamoDB.ListingsTableName,
		"history_table":  cfg.DynamoDB.HistoryTableName,
	}).Info("DynamoDB client initialized")

	return client, nil
}

// storageError wraps a DynamoDB failure as STORAGE_UNAVAILABLE. These are
// terminal for the request and surfaced as-is, never retried here.
func storageError(op string, err error) error {
	return apperrors.NewAppErrorf(apperrors.CodeStorageUnavailable, err, "dynamodb %s failed", op)
}

// isConditionalCheckFailed reports whether err is a failed condition
// expression (used to detect missing keys and duplicate inserts).
func isConditionalCheckFailed(err error) bool {
	var ccf *types.ConditionalCheckFailedException
	return errors.As(err, &ccf)
}

// observe records metrics for a completed DynamoDB call.
func observe(table, op string, start time.Time, err error) {
	status := "success"
	if err != nil {
		status = "failure"
	}
	metrics.RecordDynamoOperation(table, op, status, time.Since(start))
}
