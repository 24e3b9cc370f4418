package db

import (
	"context"
	"errors"
	"fmt"
	"slices"

	"github.com/jackc/pgx/v5"
)

// DefaultScope names an owner-scoped table holding an is_default flag. OwnerTable is the
// table the owner column references; its row is the lock every change of the scope takes first.
type DefaultScope struct {
	Table       string
	OwnerColumn string
	OwnerTable  string
}

// LockOwnerRows locks the owner row, then every record of owner, so concurrent default changes
// serialise even while the owner has no records yet.
func LockOwnerRows(ctx context.Context, q DBTX, scope DefaultScope, ownerID int64) ([]int64, error) {
	if scope.OwnerTable != "" {
		var one int
		owner := fmt.Sprintf(`SELECT 1 FROM %s WHERE id = $1 FOR UPDATE`, scope.OwnerTable)
		if err := q.QueryRow(ctx, owner, ownerID).Scan(&one); err != nil {
			if errors.Is(err, pgx.ErrNoRows) {
				return nil, nil
			}
			return nil, fmt.Errorf("platform/db: lock %s owner: %w", scope.Table, err)
		}
	}
	query := fmt.Sprintf(`SELECT id FROM %s WHERE %s = $1 ORDER BY id FOR UPDATE`, scope.Table, scope.OwnerColumn)
	rows, err := q.Query(ctx, query, ownerID)
	if err != nil {
		return nil, fmt.Errorf("platform/db: lock %s rows: %w", scope.Table, err)
	}
	defer rows.Close()
	var ids []int64
	for rows.Next() {
		var id int64
		if err := rows.Scan(&id); err != nil {
			return nil, err
		}
		ids = append(ids, id)
	}
	return ids, rows.Err()
}

// MakeDefault locks the owner's rows, clears the current default and flags id. It reports false
// without writing when id does not belong to owner. Must run inside a transaction.
//
// The partial unique index on (owner) WHERE is_default is checked per row, so the clear has to
// be its own statement before the flag is set.
func MakeDefault(ctx context.Context, q DBTX, scope DefaultScope, ownerID, id int64) (bool, error) {
	ids, err := LockOwnerRows(ctx, q, scope, ownerID)
	if err != nil {
		return false, err
	}
	if !slices.Contains(ids, id) {
		return false, nil
	}
	clear := fmt.Sprintf(`UPDATE %s SET is_default = FALSE, updated_at = NOW()
		WHERE %s = $1 AND is_default AND id <> $2`, scope.Table, scope.OwnerColumn)
	if _, err := q.Exec(ctx, clear, ownerID, id); err != nil {
		return false, fmt.Errorf("platform/db: clear default %s: %w", scope.Table, err)
	}
	set := fmt.Sprintf(`UPDATE %s SET is_default = TRUE, updated_at = NOW()
		WHERE id = $1 AND NOT is_default`, scope.Table)
	if _, err := q.Exec(ctx, set, id); err != nil {
		return false, fmt.Errorf("platform/db: set default %s: %w", scope.Table, err)
	}
	return true, nil
}

// PromoteNewest makes the newest remaining record of owner the default when none is flagged.
// Callers hold the owner row locks.
func PromoteNewest(ctx context.Context, q DBTX, scope DefaultScope, ownerID int64) error {
	query := fmt.Sprintf(`UPDATE %[1]s SET is_default = TRUE, updated_at = NOW()
		WHERE id = (SELECT id FROM %[1]s WHERE %[2]s = $1 ORDER BY created_at DESC, id DESC LIMIT 1)
		AND NOT EXISTS (SELECT 1 FROM %[1]s WHERE %[2]s = $1 AND is_default)`, scope.Table, scope.OwnerColumn)
	if _, err := q.Exec(ctx, query, ownerID); err != nil {
		return fmt.Errorf("platform/db: promote default %s: %w", scope.Table, err)
	}
	return nil
}
