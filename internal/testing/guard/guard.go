// Package guard forces test mode when imported, so package tests never
// start real runtimes.
package guard

import (
	"os"
	"sync"
)

var once sync.Once

func init() {
	once.Do(func() {
		if os.Getenv("MONITOP_TEST_MODE") == "" {
			_ = os.Setenv("MONITOP_TEST_MODE", "1")
		}
	})
}
