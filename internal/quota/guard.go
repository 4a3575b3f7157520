// Package quota enforces the free-usage cap for anonymous searches.
//
// The counter is the persisted search history itself: the guard counts
// records attributed to the address-derived identity and denies once the
// configured limit is reached. The count is cumulative and never resets.
// Known limitations, accepted by design: the quota is per network address
// (rotating addresses bypasses it, shared NAT addresses pool it), and the
// count-then-append sequence is not atomic, so concurrent requests from one
// address can each pass the check before any of them is recorded.
package quota

import (
	"context"

	"github.com/sirupsen/logrus"

	"github.com/homescout/listing-api/internal/metrics"
	apperrors "github.com/homescout/listing-api/pkg/errors"
)

// AnonymousPrefix namespaces address-derived identities so they can never
// collide with user ids.
const AnonymousPrefix = "anonymous:"

// AnonymousIdentity derives a stable identity string from a client network
// address. Isolated here so the identity scheme can change (e.g. to a
// cookie) without touching the counting logic.
func AnonymousIdentity(addr string) string {
	return AnonymousPrefix + addr
}

// HistoryCounter is the slice of the history store the guard needs.
type HistoryCounter interface {
	CountFor(ctx context.Context, identity string) (int, error)
}

// Guard admits or denies anonymous searches based on accumulated history.
type Guard struct {
	history HistoryCounter
	limit   int
	logger  *logrus.Logger
}

// NewGuard constructs a Guard with the given cumulative limit.
func NewGuard(history HistoryCounter, limit int, logger *logrus.Logger) *Guard {
	return &Guard{history: history, limit: limit, logger: logger}
}

// Check derives the anonymous identity for addr and admits the request if
// its accumulated search count is below the limit. On denial it fails with
// QUOTA_EXCEEDED; storage failures propagate unmodified. Check never
// writes: the ledger append happens in the calling flow after the search.
func (g *Guard) Check(ctx context.Context, addr string) (string, error) {
	identity := AnonymousIdentity(addr)

	count, err := g.history.CountFor(ctx, identity)
	if err != nil {
		return "", err
	}

	if count >= g.limit {
		g.logger.WithFields(logrus.Fields{
			"identity": identity,
			"count":    count,
			"limit":    g.limit,
		}).Warn("Anonymous search quota exceeded")
		metrics.RecordQuotaDenial()
		return "", apperrors.NewAppErrorf(apperrors.CodeQuotaExceeded, nil,
			"free search quota of %d exhausted, please sign in to continue", g.limit)
	}

	return identity, nil
}
