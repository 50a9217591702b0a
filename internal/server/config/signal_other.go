//go:build !unix

package config

import (
	"fmt"
	"os"
)

// ParseSignal reports that eviction signals are unavailable on this platform.
func ParseSignal(name string) (os.Signal, error) {
	return nil, fmt.Errorf("signal %q not supported on this platform", name)
}
