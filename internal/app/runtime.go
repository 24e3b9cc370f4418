package app

import (
	"os"
	"strconv"
	"sync"
	"sync/atomic"
)

// testModeEnv holds a boolean; binaries return before touching Postgres or Redis when it is true.
const testModeEnv = "STOREFRONT_TEST_MODE"

var (
	testMode     atomic.Bool
	testModeInit sync.Once
)

func loadTestMode() {
	on, err := strconv.ParseBool(os.Getenv(testModeEnv))
	testMode.Store(err == nil && on)
}

// InTestMode reports whether the binaries should skip startup side effects.
func InTestMode() bool {
	testModeInit.Do(loadTestMode)
	return testMode.Load()
}

// RefreshTestMode re-reads the environment.
func RefreshTestMode() {
	testModeInit.Do(func() {})
	loadTestMode()
}
