package app

import (
	"testing"

	"github.com/stretchr/testify/assert"

	_ "github.com/odyssey-commerce/storefront/internal/testing/guard"
)

func TestTestModeFollowsEnvironment(t *testing.T) {
	assert.True(t, InTestMode())

	for value, want := range map[string]bool{"0": false, "1": true, "true": true, "off": false, "": false} {
		t.Setenv(testModeEnv, value)
		RefreshTestMode()
		assert.Equal(t, want, InTestMode(), "value %q", value)
	}
}
