package shared

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRecordAudit(t *testing.T) {
	rec := &execRecorder{tag: "INSERT 0 1"}
	err := RecordAudit(context.Background(), rec, AuditLog{
		ActorID: 7, Action: "order.status", Entity: "order", EntityID: "12",
		Meta: map[string]any{"from": "PENDING", "to": "PAID"},
	})
	require.NoError(t, err)
	require.Len(t, rec.args, 1)
	args := rec.args[0]
	assert.Equal(t, int64(7), args[0])
	assert.JSONEq(t, `{"from":"PENDING","to":"PAID"}`, string(args[4].([]byte)))
	assert.Nil(t, args[5], "zero time defers to NOW()")

	require.NoError(t, RecordAudit(context.Background(), rec, AuditLog{Action: "review.moderate", Entity: "review", EntityID: "3"}))
	assert.Equal(t, "{}", string(rec.args[1][4].([]byte)))
}

func TestRecordAuditRejectsMalformed(t *testing.T) {
	rec := &execRecorder{tag: "INSERT 0 1"}
	for _, l := range []AuditLog{
		{Action: "order.status", Entity: "order"},
		{Action: "status", Entity: "order", EntityID: "1"},
		{Action: "order.", Entity: "order", EntityID: "1"},
		{Action: ".status", Entity: "order", EntityID: "1"},
	} {
		assert.Error(t, RecordAudit(context.Background(), rec, l), "%+v", l)
	}
	assert.Zero(t, rec.calls)
	assert.Error(t, RecordAudit(context.Background(), nil, AuditLog{Action: "a.b", Entity: "a", EntityID: "1"}))
}
