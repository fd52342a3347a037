// Package guard switches binaries into test mode when imported by a test, so
// calling main never dials Postgres, Redis or Gotenberg.
package guard

import (
	"os"
	"sync"
)

const testModeEnv = "FACTURAPRO_TEST_MODE"

var once sync.Once

func init() {
	once.Do(func() {
		if os.Getenv(testModeEnv) == "" {
			_ = os.Setenv(testModeEnv, "1")
		}
	})
}
