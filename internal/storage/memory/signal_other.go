//go:build !unix

package memory

import "os"

// No portable memory-pressure signal exists; use a Trigger instead.
func defaultSignals() []os.Signal {
	return nil
}
