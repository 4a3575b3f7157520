// Package storage provides the DynamoDB-backed stores for users, listings,
// and the search history ledger.
package storage

import (
	"context"

	"github.com/homescout/listing-api/internal/models"
)

// UserStore persists user accounts. Email uniqueness is enforced here.
type UserStore interface {
	FindByEmail(ctx context.Context, email string) (*models.User, error)
	FindByID(ctx context.Context, id string) (*models.User, error)
	Insert(ctx context.Context, user *models.User) error
	Delete(ctx context.Context, id string) error
	ListAll(ctx context.Context) ([]models.User, error)
}

// ListingStore persists property listings and serves filtered queries.
type ListingStore interface {
	Search(ctx context.Context, filter models.ListingFilter) ([]models.Listing, error)
	Insert(ctx context.Context, listing *models.Listing) error
}

// HistoryStore is the append-mostly search ledger. It doubles as the quota
// guard's count source and the user-facing history.
type HistoryStore interface {
	Append(ctx context.Context, identity string, params map[string]string, resultCount int) (*models.SearchRecord, error)
	ListFor(ctx context.Context, identity string, limit, skip int) ([]models.SearchRecord, error)
	CountFor(ctx context.Context, identity string) (int, error)
	DeleteOne(ctx context.Context, identity, recordID string) error
	DeleteAll(ctx context.Context, identity string) error
}
