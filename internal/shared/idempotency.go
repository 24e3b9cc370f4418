package shared

import (
	"context"
	"errors"
	"strings"
	"time"

	"github.com/odyssey-commerce/storefront/internal/platform/db"
)

// ErrIdempotencyConflict reports a key that was already claimed in its scope.
var ErrIdempotencyConflict = errors.New("idempotent request already processed")

// IdempotencyStore records which (scope, key) pairs have been processed.
type IdempotencyStore struct {
	db  db.DBTX
	now func() time.Time
}

// NewIdempotencyStore binds the store to a pool or transaction.
func NewIdempotencyStore(q db.DBTX) *IdempotencyStore {
	return &IdempotencyStore{db: q, now: time.Now}
}

func scopedKey(scope, key string) (string, string, error) {
	scope, key = strings.TrimSpace(scope), strings.TrimSpace(key)
	switch {
	case scope == "":
		return "", "", errors.New("idempotency scope required")
	case key == "":
		return "", "", errors.New("idempotency key required")
	}
	return scope, key, nil
}

// Claim marks key as processed within scope. A second claim of the same pair
// returns ErrIdempotencyConflict.
func (s *IdempotencyStore) Claim(ctx context.Context, scope, key string) error {
	if s == nil || s.db == nil {
		return errors.New("idempotency store not initialised")
	}
	scope, key, err := scopedKey(scope, key)
	if err != nil {
		return err
	}
	tag, err := s.db.Exec(ctx,
		`INSERT INTO idempotency_keys (key, module, created_at) VALUES ($1, $2, $3) ON CONFLICT DO NOTHING`,
		key, scope, s.now().UTC())
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return ErrIdempotencyConflict
	}
	return nil
}

// Release forgets a claim so that a failed delivery can be retried.
func (s *IdempotencyStore) Release(ctx context.Context, scope, key string) error {
	if s == nil || s.db == nil {
		return nil
	}
	scope, key, err := scopedKey(scope, key)
	if err != nil {
		return err
	}
	_, err = s.db.Exec(ctx, `DELETE FROM idempotency_keys WHERE key = $1 AND module = $2`, key, scope)
	return err
}

// Prune drops claims older than retention and returns the number removed.
func (s *IdempotencyStore) Prune(ctx context.Context, retention time.Duration) (int64, error) {
	if s == nil || s.db == nil || retention <= 0 {
		return 0, nil
	}
	tag, err := s.db.Exec(ctx, `DELETE FROM idempotency_keys WHERE created_at < $1`, s.now().UTC().Add(-retention))
	if err != nil {
		return 0, err
	}
	return tag.RowsAffected(), nil
}
