// Package guard switches the process into test mode when blank-imported by a test,
// so code paths that check app.InTestMode skip network startup.
package guard

import "os"

func init() {
	if _, ok := os.LookupEnv("STOREFRONT_TEST_MODE"); !ok {
		_ = os.Setenv("STOREFRONT_TEST_MODE", "1")
	}
}
