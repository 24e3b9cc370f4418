package orders

import (
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/odyssey-commerce/storefront/internal/platform/httpx"
)

func TestValidateTransitionTable(t *testing.T) {
	allowed := map[[2]Status]bool{
		{StatusPending, StatusProcessing}:   true,
		{StatusPending, StatusCancelled}:    true,
		{StatusProcessing, StatusShipped}:   true,
		{StatusProcessing, StatusCancelled}: true,
		{StatusProcessing, StatusCompleted}: true,
		{StatusShipped, StatusDelivered}:    true,
	}
	for _, from := range Statuses() {
		for _, to := range Statuses() {
			err := ValidateTransition(from, to)
			if allowed[[2]Status{from, to}] {
				assert.NoError(t, err, "%s -> %s", from, to)
			} else {
				assert.ErrorIs(t, err, httpx.ErrValidation, "%s -> %s", from, to)
			}
		}
	}
}

func TestTerminalStatusesRejectCancellation(t *testing.T) {
	for _, s := range []Status{StatusCancelled, StatusDelivered, StatusCompleted} {
		assert.True(t, s.Terminal(), s)
		assert.Error(t, ValidateTransition(s, StatusCancelled))
	}
	assert.Error(t, ValidateTransition(StatusShipped, StatusCancelled))
	assert.False(t, StatusShipped.Terminal())
}

func TestUnknownStatus(t *testing.T) {
	assert.Error(t, ValidateTransition("LOST", StatusCancelled))
	_, err := ParseStatus("pending")
	assert.ErrorIs(t, err, httpx.ErrValidation)

	var s Status
	assert.Error(t, json.Unmarshal([]byte(`"REFUNDED"`), &s))
	assert.NoError(t, json.Unmarshal([]byte(`"SHIPPED"`), &s))
	assert.Equal(t, StatusShipped, s)
}
