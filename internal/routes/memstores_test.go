package routes

import (
	"context"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/homescout/listing-api/internal/models"
	apperrors "github.com/homescout/listing-api/pkg/errors"
)

// In-memory stores backing the route tests. They mirror the DynamoDB
// stores' error codes so handlers exercise the same code paths.

type memUserStore struct {
	mu    sync.Mutex
	users map[string]*models.User
	err   error
}

func newMemUserStore() *memUserStore {
	return &memUserStore{users: make(map[string]*models.User)}
}

func (s *memUserStore) FindByEmail(_ context.Context, email string) (*models.User, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.err != nil {
		return nil, s.err
	}
	for _, u := range s.users {
		if u.Email == email {
			copied := *u
			return &copied, nil
		}
	}
	return nil, apperrors.NewAppErrorf(apperrors.CodeNotFound, nil, "no user with email %s", email)
}

func (s *memUserStore) FindByID(_ context.Context, id string) (*models.User, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.err != nil {
		return nil, s.err
	}
	if u, ok := s.users[id]; ok {
		copied := *u
		return &copied, nil
	}
	return nil, apperrors.NewAppErrorf(apperrors.CodeNotFound, nil, "no user with id %s", id)
}

func (s *memUserStore) Insert(_ context.Context, user *models.User) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.err != nil {
		return s.err
	}
	for _, u := range s.users {
		if u.Email == user.Email {
			return apperrors.NewAppErrorf(apperrors.CodeConflict, nil, "email %s is already registered", user.Email)
		}
	}
	copied := *user
	s.users[user.UserID] = &copied
	return nil
}

func (s *memUserStore) Delete(_ context.Context, id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.err != nil {
		return s.err
	}
	if _, ok := s.users[id]; !ok {
		return apperrors.NewAppErrorf(apperrors.CodeNotFound, nil, "no user with id %s", id)
	}
	delete(s.users, id)
	return nil
}

func (s *memUserStore) ListAll(_ context.Context) ([]models.User, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.err != nil {
		return nil, s.err
	}
	out := make([]models.User, 0, len(s.users))
	for _, u := range s.users {
		out = append(out, *u)
	}
	return out, nil
}

type memListingStore struct {
	mu       sync.Mutex
	listings []models.Listing
	err      error
}

func newMemListingStore(listings ...models.Listing) *memListingStore {
	return &memListingStore{listings: listings}
}

func (s *memListingStore) Search(_ context.Context, filter models.ListingFilter) ([]models.Listing, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.err != nil {
		return nil, s.err
	}
	var out []models.Listing
	for i := range s.listings {
		if filter.Matches(&s.listings[i]) {
			out = append(out, s.listings[i])
		}
	}
	return out, nil
}

func (s *memListingStore) Insert(_ context.Context, listing *models.Listing) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.err != nil {
		return s.err
	}
	s.listings = append(s.listings, *listing)
	return nil
}

type memHistoryStore struct {
	mu      sync.Mutex
	records map[string][]models.SearchRecord
	err     error
}

func newMemHistoryStore() *memHistoryStore {
	return &memHistoryStore{records: make(map[string][]models.SearchRecord)}
}

func (s *memHistoryStore) Append(_ context.Context, identity string, params map[string]string, resultCount int) (*models.SearchRecord, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.err != nil {
		return nil, s.err
	}
	if identity == "" {
		return nil, apperrors.NewAppError(apperrors.CodeValidation, "identity must not be empty", nil)
	}
	record := models.SearchRecord{
		Identity:    identity,
		RecordID:    uuid.New().String(),
		Params:      params,
		ResultCount: resultCount,
		CreatedAt:   time.Now().UTC(),
	}
	s.records[identity] = append(s.records[identity], record)
	return &record, nil
}

func (s *memHistoryStore) ListFor(_ context.Context, identity string, limit, skip int) ([]models.SearchRecord, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.err != nil {
		return nil, s.err
	}
	if limit <= 0 {
		limit = 20
	}
	if limit > 100 {
		limit = 100
	}
	if skip < 0 {
		skip = 0
	}

	stored := s.records[identity]
	newestFirst := make([]models.SearchRecord, 0, len(stored))
	for i := len(stored) - 1; i >= 0; i-- {
		newestFirst = append(newestFirst, stored[i])
	}

	if skip >= len(newestFirst) {
		return nil, nil
	}
	newestFirst = newestFirst[skip:]
	if len(newestFirst) > limit {
		newestFirst = newestFirst[:limit]
	}
	return newestFirst, nil
}

func (s *memHistoryStore) CountFor(_ context.Context, identity string) (int, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.err != nil {
		return 0, s.err
	}
	return len(s.records[identity]), nil
}

func (s *memHistoryStore) DeleteOne(_ context.Context, identity, recordID string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.err != nil {
		return s.err
	}
	stored := s.records[identity]
	for i := range stored {
		if stored[i].RecordID == recordID {
			s.records[identity] = append(stored[:i], stored[i+1:]...)
			return nil
		}
	}
	return apperrors.NewAppErrorf(apperrors.CodeNotFound, nil, "no history record %s", recordID)
}

func (s *memHistoryStore) DeleteAll(_ context.Context, identity string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.err != nil {
		return s.err
	}
	delete(s.records, identity)
	return nil
}
