package shared

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/odyssey-commerce/storefront/internal/platform/db"
)

// AuditLog is one back-office mutation as stored in audit_logs.
type AuditLog struct {
	ActorID  int64
	Action   string // "<entity>.<verb>", e.g. "order.status"
	Entity   string
	EntityID string
	Meta     map[string]any
	At       time.Time
}

func (l AuditLog) validate() error {
	if l.Entity == "" || l.EntityID == "" {
		return errors.New("audit: entity and entity id required")
	}
	if i := strings.IndexByte(l.Action, '.'); i <= 0 || i == len(l.Action)-1 {
		return fmt.Errorf("audit: action %q must look like entity.verb", l.Action)
	}
	return nil
}

// RecordAudit inserts l using q, which is normally the transaction that made the change.
func RecordAudit(ctx context.Context, q db.DBTX, l AuditLog) error {
	if q == nil {
		return errors.New("audit: no database handle")
	}
	if err := l.validate(); err != nil {
		return err
	}
	meta := l.Meta
	if meta == nil {
		meta = map[string]any{}
	}
	metaJSON, err := json.Marshal(meta)
	if err != nil {
		return fmt.Errorf("audit: encode meta: %w", err)
	}
	var at *time.Time
	if !l.At.IsZero() {
		at = &l.At
	}
	_, err = q.Exec(ctx,
		`INSERT INTO audit_logs (actor_id, action, entity, entity_id, meta, occurred_at) VALUES ($1, $2, $3, $4, $5, COALESCE($6, NOW()))`,
		l.ActorID, l.Action, l.Entity, l.EntityID, metaJSON, at)
	return err
}
